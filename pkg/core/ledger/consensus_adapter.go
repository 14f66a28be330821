package ledger

import (
	"errors"
	"time"

	"github.com/neogo-core/node/pkg/core/block"
	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/util"
)

// ConsensusAdapter narrows a Blockchain down to the
// pkg/consensus.Service.Ledger interface (BlockHeight, AddBlock(index,
// validatorIndex, txHashes)), assembling the block a just-finished
// round describes from the mempool and handing it to
// Blockchain.AddBlockFromConsensus (spec.md §4.5 "hand the block to
// the ledger"). Go forbids two same-named methods with different
// signatures on one type, so this lives as its own thin wrapper rather
// than widening Blockchain.AddBlock itself.
type ConsensusAdapter struct {
	bc *Blockchain
}

// NewConsensusAdapter wraps bc for use as a consensus.Service's Ledger.
func NewConsensusAdapter(bc *Blockchain) *ConsensusAdapter {
	return &ConsensusAdapter{bc: bc}
}

// BlockHeight implements consensus.Service's Ledger interface.
func (a *ConsensusAdapter) BlockHeight() uint32 {
	return a.bc.BlockHeight()
}

// ErrUnresolvedTransaction is returned when a committed round names a
// transaction hash this node never saw in its own mempool.
var ErrUnresolvedTransaction = errors.New("ledger: consensus round committed a transaction this node never pooled")

// AddBlock implements consensus.Service's Ledger interface: it
// resolves txHashes against the mempool, assembles the block the
// round at blockIndex with primary validatorIndex just certified, and
// persists it.
func (a *ConsensusAdapter) AddBlock(blockIndex uint32, validatorIndex uint16, txHashes []util.Uint256) error {
	bc := a.bc

	txs := make([]*transaction.Transaction, 0, len(txHashes))
	for _, h := range txHashes {
		tx, ok := bc.mempool.TryGetValue(h)
		if !ok {
			return ErrUnresolvedTransaction
		}
		txs = append(txs, tx)
	}

	validators := bc.contracts.NEO.Validators()
	if int(validatorIndex) >= len(validators) {
		return errors.New("ledger: validator index out of range")
	}
	nextConsensus, err := bc.contracts.NEO.CommitteeAccount()
	if err != nil {
		return err
	}

	b := block.New(bc.cfg.StateRootInHeader)
	b.Version = block.VersionInitial
	b.PrevHash = bc.CurrentBlockHash()
	b.Index = blockIndex
	b.Timestamp = uint64(time.Now().UnixMilli())
	b.PrimaryIndex = byte(validatorIndex)
	b.NextConsensus = nextConsensus
	b.Transactions = txs
	b.RebuildMerkleRoot()

	for _, tx := range txs {
		bc.mempool.Remove(tx.Hash(), bc)
	}
	return bc.AddBlockFromConsensus(b)
}
