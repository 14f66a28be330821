package mempool

import (
	"math/big"
	"sort"
	"testing"

	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/util"
	"github.com/stretchr/testify/require"
)

type feerStub struct {
	height  uint32
	balance int64
	p2pSig  bool
}

func (f *feerStub) GetBaseExecFee() int64                        { return 30 }
func (f *feerStub) FeePerByte() int64                             { return 1 }
func (f *feerStub) BlockHeight() uint32                           { return f.height }
func (f *feerStub) GetUtilityTokenBalance(util.Uint160) *big.Int { return big.NewInt(f.balance) }
func (f *feerStub) P2PSigExtensionsEnabled() bool                 { return f.p2pSig }

func newTx(nonce uint32, netFee int64, sender util.Uint160) *transaction.Transaction {
	tx := &transaction.Transaction{Nonce: nonce, NetworkFee: netFee, Script: []byte{0x51}}
	tx.Signers = []transaction.Signer{{Account: sender}}
	return tx
}

func TestPool_AddGetRemove(t *testing.T) {
	p := New(10, 0, false)
	fs := &feerStub{}
	tx := newTx(0, 100, util.Uint160{1})

	_, ok := p.TryGetValue(tx.Hash())
	require.False(t, ok)

	require.NoError(t, p.Add(tx, fs))
	require.ErrorIs(t, p.Add(tx, fs), ErrDup)

	got, ok := p.TryGetValue(tx.Hash())
	require.True(t, ok)
	require.Equal(t, tx, got)

	p.Remove(tx.Hash(), fs)
	_, ok = p.TryGetValue(tx.Hash())
	require.False(t, ok)
	require.Equal(t, 0, p.Count())
}

func TestPool_OrderedByFee(t *testing.T) {
	p := New(10, 0, false)
	fs := &feerStub{}
	low := newTx(1, 10, util.Uint160{1})
	high := newTx(2, 1000, util.Uint160{2})
	mid := newTx(3, 100, util.Uint160{3})

	require.NoError(t, p.Add(low, fs))
	require.NoError(t, p.Add(high, fs))
	require.NoError(t, p.Add(mid, fs))

	txs := p.GetVerifiedTransactions()
	require.Len(t, txs, 3)
	require.Equal(t, high.Hash(), txs[0].Hash())
	require.Equal(t, mid.Hash(), txs[1].Hash())
	require.Equal(t, low.Hash(), txs[2].Hash())
	require.True(t, sort.IsSorted(sort.Reverse(p.verifiedTxes)))
}

func TestPool_HighPriorityFirst(t *testing.T) {
	p := New(10, 0, false)
	fs := &feerStub{}
	rich := newTx(1, 1000, util.Uint160{1})
	hp := newTx(2, 1, util.Uint160{2})
	hp.Attributes = []transaction.Attribute{{Type: transaction.HighPriorityT}}

	require.NoError(t, p.Add(rich, fs))
	require.NoError(t, p.Add(hp, fs))

	txs := p.GetVerifiedTransactions()
	require.Equal(t, hp.Hash(), txs[0].Hash())
}

func TestPool_OverCapacityEvictsCheapest(t *testing.T) {
	p := New(2, 0, false)
	fs := &feerStub{}
	a := newTx(1, 10, util.Uint160{1})
	b := newTx(2, 20, util.Uint160{2})
	c := newTx(3, 30, util.Uint160{3})

	require.NoError(t, p.Add(a, fs))
	require.NoError(t, p.Add(b, fs))
	require.NoError(t, p.Add(c, fs))
	require.Equal(t, 2, p.Count())

	_, ok := p.TryGetValue(a.Hash())
	require.False(t, ok)

	cheap := newTx(4, 1, util.Uint160{4})
	require.ErrorIs(t, p.Add(cheap, fs), ErrOOM)
}

func TestPool_OracleResponseReplacement(t *testing.T) {
	p := New(10, 0, false)
	fs := &feerStub{}
	oracleTx := func(nonce uint32, netFee int64, id uint64) *transaction.Transaction {
		tx := newTx(nonce, netFee, util.Uint160{1})
		tx.Attributes = []transaction.Attribute{{Type: transaction.OracleResponseT, OracleID: id}}
		return tx
	}

	tx1 := oracleTx(1, 10, 7)
	require.NoError(t, p.Add(tx1, fs))

	tx2 := oracleTx(2, 5, 7)
	require.ErrorIs(t, p.Add(tx2, fs), ErrOracleResponse)

	tx3 := oracleTx(3, 20, 7)
	require.NoError(t, p.Add(tx3, fs))

	_, ok := p.TryGetValue(tx1.Hash())
	require.False(t, ok)
	_, ok = p.TryGetValue(tx3.Hash())
	require.True(t, ok)
}

func TestPool_RemoveStale(t *testing.T) {
	p := New(10, 0, false)
	fs := &feerStub{}
	keep := newTx(1, 10, util.Uint160{1})
	drop := newTx(2, 20, util.Uint160{2})
	require.NoError(t, p.Add(keep, fs))
	require.NoError(t, p.Add(drop, fs))

	p.RemoveStale(func(tx *transaction.Transaction) bool {
		return tx.Hash().Equals(keep.Hash())
	}, fs)

	require.Equal(t, 1, p.Count())
	_, ok := p.TryGetValue(keep.Hash())
	require.True(t, ok)
}
