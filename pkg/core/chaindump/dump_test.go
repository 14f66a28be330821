package chaindump_test

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/neogo-core/node/pkg/config"
	"github.com/neogo-core/node/pkg/core/block"
	"github.com/neogo-core/node/pkg/core/chaindump"
	"github.com/neogo-core/node/pkg/core/ledger"
	"github.com/neogo-core/node/pkg/core/storage"
	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/vm/opcode"
	"github.com/stretchr/testify/require"
)

// newChain builds an m=1 committee chain signed by priv, so two
// independently-created chains with the same priv share a byte-identical
// genesis and accept each other's blocks.
func newChain(t *testing.T, priv *keys.PrivateKey) *ledger.Blockchain {
	cfg := config.ProtocolConfiguration{
		MemPoolSize:                 100,
		StandbyCommittee:            []string{hex.EncodeToString(priv.PublicKey().Bytes())},
		ValidatorsCount:             1,
		MaxValidUntilBlockIncrement: 100,
	}
	require.NoError(t, cfg.Validate())

	bc, err := ledger.New(cfg, storage.NewMemoryStore(), nil)
	require.NoError(t, err)
	return bc
}

func appendBlock(t *testing.T, bc *ledger.Blockchain, priv *keys.PrivateKey) *block.Block {
	// Single-key committee (n=1): the committee account is the 1-of-1
	// multi-sig script hash over that one key, matching
	// native.NEO.CommitteeAccount's m = n - (n-1)/2 formula.
	nextConsensus, err := keys.PublicKeys{priv.PublicKey()}.GetScriptHash(1)
	require.NoError(t, err)

	b := block.New(bc.GetConfig().StateRootInHeader)
	b.Version = block.VersionInitial
	b.PrevHash = bc.CurrentBlockHash()
	b.Timestamp = uint64(bc.BlockHeight()) + 1
	b.Index = bc.BlockHeight() + 1
	b.NextConsensus = nextConsensus
	b.RebuildMerkleRoot()

	sig := priv.Sign(b.Hash().BytesBE())
	b.Script = transaction.Witness{
		InvocationScript:   append([]byte{byte(opcode.PUSHDATA1), byte(len(sig))}, sig...),
		VerificationScript: priv.PublicKey().GetVerificationScript(),
	}

	require.NoError(t, bc.AddBlock(b))
	return b
}

func TestDumpAndRestoreRoundTrip(t *testing.T) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)

	bc := newChain(t, priv)
	for i := 0; i < 3; i++ {
		appendBlock(t, bc, priv)
	}
	require.Equal(t, uint32(3), bc.BlockHeight())

	// Dump only the non-genesis blocks: genesis is reproduced
	// deterministically by ledger.New itself from the shared config.
	w := io.NewBufBinWriter()
	require.NoError(t, chaindump.Dump(bc, w.BinWriter, 1, bc.BlockHeight()))
	require.NoError(t, w.Err)
	buf := w.Bytes()

	bc2 := newChain(t, priv)

	var seen []uint32
	r := io.NewBinReaderFromBuf(buf)
	require.NoError(t, chaindump.Restore(bc2, r, 0, bc.BlockHeight(), func(b *block.Block) error {
		seen = append(seen, b.Index)
		return nil
	}))

	require.Equal(t, bc.BlockHeight(), bc2.BlockHeight())
	require.Equal(t, bc.CurrentBlockHash(), bc2.CurrentBlockHash())
	require.Equal(t, []uint32{1, 2, 3}, seen)
}

func TestDumpRejectsRangeBeyondChainHeight(t *testing.T) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	bc := newChain(t, priv)

	w := io.NewBufBinWriter()
	err = chaindump.Dump(bc, w.BinWriter, 0, 5)
	require.Error(t, err)
}

func TestRestoreStopsOnHandlerError(t *testing.T) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)

	bc := newChain(t, priv)
	for i := 0; i < 3; i++ {
		appendBlock(t, bc, priv)
	}

	w := io.NewBufBinWriter()
	require.NoError(t, chaindump.Dump(bc, w.BinWriter, 1, bc.BlockHeight()))

	bc2 := newChain(t, priv)
	errStopped := errors.New("stopped early")

	var lastIndex uint32
	r := io.NewBinReaderFromBuf(w.Bytes())
	restoreErr := chaindump.Restore(bc2, r, 0, 3, func(b *block.Block) error {
		lastIndex = b.Index
		if b.Index == 2 {
			return errStopped
		}
		return nil
	})

	require.ErrorIs(t, restoreErr, errStopped)
	require.Equal(t, uint32(2), lastIndex)
	require.Equal(t, uint32(2), bc2.BlockHeight())
}
