package ledger

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/neogo-core/node/pkg/config"
	"github.com/neogo-core/node/pkg/core/block"
	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/storage"
	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/opcode"
	"github.com/stretchr/testify/require"
)

// newTestChain builds a single-committee-member chain (m=1), so one
// key both signs every header witness and governs policy.
func newTestChain(t *testing.T) (*Blockchain, *keys.PrivateKey) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)

	cfg := config.ProtocolConfiguration{
		MemPoolSize:                 100,
		StandbyCommittee:            []string{hex.EncodeToString(priv.PublicKey().Bytes())},
		ValidatorsCount:             1,
		MaxValidUntilBlockIncrement: 100,
	}
	require.NoError(t, cfg.Validate())

	bc, err := New(cfg, storage.NewMemoryStore(), nil)
	require.NoError(t, err)
	return bc, priv
}

func signHeader(h *block.Header, priv *keys.PrivateKey) {
	sig := priv.Sign(h.Hash().BytesBE())
	h.Script = transaction.Witness{
		InvocationScript:   append([]byte{byte(opcode.PUSHDATA1), byte(len(sig))}, sig...),
		VerificationScript: priv.PublicKey().GetVerificationScript(),
	}
}

func buildBlock(t *testing.T, bc *Blockchain, priv *keys.PrivateKey, txs []*transaction.Transaction, prevHash util.Uint256, index uint32, timestamp uint64) *block.Block {
	nextConsensus, err := bc.contracts.NEO.CommitteeAccount()
	require.NoError(t, err)

	b := block.New(bc.cfg.StateRootInHeader)
	b.Version = block.VersionInitial
	b.PrevHash = prevHash
	b.Timestamp = timestamp
	b.Index = index
	b.NextConsensus = nextConsensus
	b.Transactions = txs
	b.RebuildMerkleRoot()
	signHeader(&b.Header, priv)
	return b
}

func buildTx(priv *keys.PrivateKey, validUntil uint32, sysFee, netFee int64) *transaction.Transaction {
	acc := priv.PublicKey().GetScriptHash()
	tx := &transaction.Transaction{
		Version:         0,
		Nonce:           1,
		SystemFee:       sysFee,
		NetworkFee:      netFee,
		ValidUntilBlock: validUntil,
		Signers:         []transaction.Signer{{Account: acc, Scopes: transaction.CalledByEntry}},
		Script:          []byte{byte(opcode.RET)},
	}
	sig := priv.Sign(tx.Hash().BytesBE())
	tx.Witnesses = []transaction.Witness{{
		InvocationScript:   append([]byte{byte(opcode.PUSHDATA1), byte(len(sig))}, sig...),
		VerificationScript: priv.PublicKey().GetVerificationScript(),
	}}
	return tx
}

func fundGAS(t *testing.T, bc *Blockchain, acc util.Uint160, amount int64) {
	ic := &interop.Context{DAO: bc.dao}
	require.NoError(t, bc.contracts.GAS.Mint(ic, acc, big.NewInt(amount)))
	require.NoError(t, bc.dao.Persist())
}

func TestNewBuildsDeterministicGenesis(t *testing.T) {
	bc, _ := newTestChain(t)

	require.Equal(t, uint32(0), bc.BlockHeight())
	require.Equal(t, bc.genesisHash, bc.CurrentBlockHash())

	g, err := bc.GetBlock(bc.CurrentBlockHash())
	require.NoError(t, err)
	require.Equal(t, uint32(0), g.Index)
	require.Empty(t, g.Transactions)

	bc2, err := New(bc.cfg, bc.store, nil)
	require.NoError(t, err)
	require.Equal(t, bc.genesisHash, bc2.genesisHash)
}

func TestAddBlockPersistsTransactionAndMovesTrieRoot(t *testing.T) {
	bc, committeePriv := newTestChain(t)

	senderPriv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	sender := senderPriv.PublicKey().GetScriptHash()
	fundGAS(t, bc, sender, util.NewFixed8(1000).Int64())

	tx := buildTx(senderPriv, bc.BlockHeight()+100, 1000, 2000)
	rootBefore := bc.trie.StateRoot()

	b := buildBlock(t, bc, committeePriv, []*transaction.Transaction{tx}, bc.CurrentBlockHash(), bc.BlockHeight()+1, 1)
	require.NoError(t, bc.AddBlock(b))

	require.Equal(t, uint32(1), bc.BlockHeight())
	require.Equal(t, b.Hash(), bc.CurrentBlockHash())
	require.NotEqual(t, rootBefore, bc.trie.StateRoot())
	require.Len(t, bc.history, 1)

	balance := bc.GetUtilityTokenBalance(sender)
	require.Equal(t, util.NewFixed8(1000).Int64()-tx.SystemFee-tx.NetworkFee, balance.Int64())

	aer, err := bc.GetAppExecResult(tx.Hash())
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), aer.Container)
}

func TestAddBlockRejectsWrongPrevHash(t *testing.T) {
	bc, committeePriv := newTestChain(t)

	b := buildBlock(t, bc, committeePriv, nil, util.Uint256{1, 2, 3}, bc.BlockHeight()+1, 1)
	err := bc.AddBlock(b)
	require.ErrorIs(t, err, errPrevHashMismatch)
}

func TestAddBlockRejectsBadWitness(t *testing.T) {
	bc, _ := newTestChain(t)

	other, err := keys.NewPrivateKey()
	require.NoError(t, err)
	b := buildBlock(t, bc, other, nil, bc.CurrentBlockHash(), bc.BlockHeight()+1, 1)
	require.ErrorIs(t, bc.AddBlock(b), errHeaderWitness)
}

func TestPoolTxRejectsInsufficientNetworkFee(t *testing.T) {
	bc, _ := newTestChain(t)

	senderPriv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	sender := senderPriv.PublicKey().GetScriptHash()
	fundGAS(t, bc, sender, util.NewFixed8(1000).Int64())

	tx := buildTx(senderPriv, bc.BlockHeight()+100, 0, 1)
	require.ErrorIs(t, bc.PoolTx(tx), errTxFee)
}

func TestPoolTxAdmitsWellFormedTransaction(t *testing.T) {
	bc, _ := newTestChain(t)

	senderPriv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	sender := senderPriv.PublicKey().GetScriptHash()
	fundGAS(t, bc, sender, util.NewFixed8(1000).Int64())

	tx := buildTx(senderPriv, bc.BlockHeight()+100, 0, 1000000)
	require.NoError(t, bc.PoolTx(tx))
	require.True(t, bc.HasTransaction(tx.Hash()))
}

func TestReorganizeReplacesTip(t *testing.T) {
	bc, committeePriv := newTestChain(t)
	genesisHash := bc.CurrentBlockHash()

	blockA := buildBlock(t, bc, committeePriv, nil, genesisHash, 1, 1)
	require.NoError(t, bc.AddBlock(blockA))
	require.Equal(t, blockA.Hash(), bc.CurrentBlockHash())

	blockB := buildBlock(t, bc, committeePriv, nil, genesisHash, 1, 2)
	require.NotEqual(t, blockA.Hash(), blockB.Hash())

	bc.mtx.Lock()
	bc.headers[blockB.Hash()] = &headerEntry{header: &blockB.Header, cumWork: 1}
	bc.mtx.Unlock()

	err := bc.Reorganize(blockB.Hash(), func(fromIndex uint32) ([]*block.Block, error) {
		require.Equal(t, uint32(1), fromIndex)
		return []*block.Block{blockB}, nil
	})
	require.NoError(t, err)

	require.Equal(t, uint32(1), bc.BlockHeight())
	require.Equal(t, blockB.Hash(), bc.CurrentBlockHash())
	require.False(t, bc.HasBlock(blockA.Hash()))
}
