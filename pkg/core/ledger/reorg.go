package ledger

import (
	"errors"

	"github.com/neogo-core/node/pkg/core/block"
	"github.com/neogo-core/node/pkg/core/mpt"
	"github.com/neogo-core/node/pkg/util"
)

// blockDiff is one block's undo record: the value every key its change
// set touched held immediately before that block was applied (nil
// meaning the key was absent), plus the trie's root before the block's
// writes were folded in. A bounded ring of these is all AddBlock keeps
// — rolling back further than historyDepth blocks has no recorded
// path back (spec.md §4.4 "Reorganization", see DESIGN.md for why this
// node bounds it rather than retaining full history).
type blockDiff struct {
	index          uint32
	hash           util.Uint256
	prior          map[string][]byte
	post           map[string][]byte
	trieRootBefore util.Uint256
	trieRootAfter  util.Uint256
}

// ErrReorgTooDeep is returned when a requested switch would have to
// roll back further than historyDepth blocks.
var ErrReorgTooDeep = errors.New("ledger: fork point is beyond the retained undo history")

// ErrUnknownFork is returned when newTip names a header this node has
// never indexed.
var ErrUnknownFork = errors.New("ledger: unknown fork tip")

// captureUndoValues reads, from the root store (not yet merged with
// the block's changes), the value every key in changes currently
// holds.
func (bc *Blockchain) captureUndoValues(changes map[string][]byte) map[string][]byte {
	prior := make(map[string][]byte, len(changes))
	for k := range changes {
		v, err := bc.store.Get([]byte(k))
		if err != nil {
			prior[k] = nil
			continue
		}
		prior[k] = append([]byte(nil), v...)
	}
	return prior
}

// pushHistory appends a block's undo record, trimming the window to
// historyDepth. post and trieRootAfter are the same change set and
// resulting root AddBlock just persisted, kept alongside prior/
// trieRootBefore so a reorg that fails partway through replaying a new
// chain can redo this block exactly as it was, not merely re-read
// whatever undoTo happened to leave in the store.
func (bc *Blockchain) pushHistory(index uint32, prior, post map[string][]byte, trieRootBefore, trieRootAfter util.Uint256) {
	d := blockDiff{
		index: index, hash: bc.heightIndex[index],
		prior: prior, post: post,
		trieRootBefore: trieRootBefore, trieRootAfter: trieRootAfter,
	}
	bc.history = append(bc.history, d)
	if len(bc.history) > historyDepth {
		bc.history = bc.history[len(bc.history)-historyDepth:]
	}
}

// Reorganize switches the canonical chain to end at newTip, which must
// name a header already indexed (e.g. one seen on a sibling fork).
// It undoes blocks back to the lowest
// common ancestor using the bounded undo history, then replays the new
// chain's blocks forward through the normal persist procedure,
// restoring the original chain if any replay step fails (spec.md §4.4
// "Reorganization").
func (bc *Blockchain) Reorganize(newTip util.Uint256, newChainBlocks func(fromIndex uint32) ([]*block.Block, error)) error {
	bc.mtx.Lock()

	newHeader, ok := bc.headers[newTip]
	if !ok {
		bc.mtx.Unlock()
		return ErrUnknownFork
	}

	lca, err := bc.lowestCommonAncestor(newHeader.header)
	if err != nil {
		bc.mtx.Unlock()
		return err
	}
	if bc.bestHeight-lca.Index > historyDepth {
		bc.mtx.Unlock()
		return ErrReorgTooDeep
	}

	undone, err := bc.undoTo(lca.Index)
	bc.mtx.Unlock()
	if err != nil {
		return err
	}

	newBlocks, err := newChainBlocks(lca.Index + 1)
	if err != nil {
		bc.mtx.Lock()
		bc.redoFrom(undone)
		bc.mtx.Unlock()
		return err
	}
	// A failure partway through this loop only restores the blocks this
	// call itself undid; any new-chain blocks already persisted before
	// the failing one are not retracted. Re-deriving those back out
	// would need its own undo records, which AddBlock only starts
	// keeping once a block is this chain's accepted tip — out of scope
	// for this node's bounded reorg support (see DESIGN.md).
	for _, nb := range newBlocks {
		if err := bc.AddBlock(nb); err != nil {
			bc.mtx.Lock()
			bc.redoFrom(undone)
			bc.mtx.Unlock()
			return err
		}
	}
	return nil
}

// lowestCommonAncestor walks both chains' parent pointers back to the
// first shared header. Caller holds bc.mtx.
func (bc *Blockchain) lowestCommonAncestor(tip *block.Header) (*block.Header, error) {
	seen := make(map[util.Uint256]bool)
	for h := bc.headers[bc.bestHash].header; ; {
		seen[h.Hash()] = true
		if h.Index == 0 {
			break
		}
		parent, ok := bc.headers[h.PrevHash]
		if !ok {
			break
		}
		h = parent.header
	}
	for h := tip; ; {
		if seen[h.Hash()] {
			return h, nil
		}
		if h.Index == 0 {
			return nil, ErrUnknownFork
		}
		parent, ok := bc.headers[h.PrevHash]
		if !ok {
			return nil, ErrUnknownFork
		}
		h = parent.header
	}
}

// undoTo rolls the current chain back to height target, inverting each
// block's storage writes and resetting the trie to its pre-block root
// from the undo history in reverse order, returning the diffs it
// consumed so a failed replay can restore them. Caller holds bc.mtx.
func (bc *Blockchain) undoTo(target uint32) ([]blockDiff, error) {
	var undone []blockDiff
	for bc.bestHeight > target {
		if len(bc.history) == 0 {
			return nil, ErrReorgTooDeep
		}
		d := bc.history[len(bc.history)-1]
		if d.index != bc.bestHeight {
			return nil, ErrReorgTooDeep
		}
		bc.history = bc.history[:len(bc.history)-1]

		for k, v := range d.prior {
			if v == nil {
				if err := bc.store.Delete([]byte(k)); err != nil {
					return nil, err
				}
			} else if err := bc.store.Put([]byte(k), v); err != nil {
				return nil, err
			}
		}
		bc.trie = bc.trieAtRoot(d.trieRootBefore)

		undone = append(undone, d)
		bc.bestHeight--
		bc.bestHash = bc.headers[bc.bestHash].header.PrevHash
		delete(bc.heightIndex, d.index)
	}
	return undone, nil
}

// redoFrom reapplies undone diffs in forward order, used to restore
// the original chain when a reorg's replay phase fails partway
// through. Caller holds bc.mtx.
func (bc *Blockchain) redoFrom(undone []blockDiff) {
	for i := len(undone) - 1; i >= 0; i-- {
		d := undone[i]
		for k, v := range d.post {
			if v == nil {
				_ = bc.store.Delete([]byte(k))
			} else {
				_ = bc.store.Put([]byte(k), v)
			}
		}
		bc.trie = bc.trieAtRoot(d.trieRootAfter)
		bc.bestHeight = d.index
		bc.bestHash = d.hash
		bc.heightIndex[d.index] = d.hash
		bc.history = append(bc.history, d)
	}
}

// trieAtRoot rebuilds a Trie view rooted at root. Because trieStore
// never drops a node once written when refcounting is disabled (see
// mpt.Trie.Flush/bumpRefcount), any root this chain ever flushed
// remains resolvable by hash.
func (bc *Blockchain) trieAtRoot(root util.Uint256) *mpt.Trie {
	if root.Equals(util.Uint256{}) {
		return mpt.NewTrie(nil, false, bc.trieStore)
	}
	return mpt.NewTrie(mpt.NewHashNode(root), false, bc.trieStore)
}
