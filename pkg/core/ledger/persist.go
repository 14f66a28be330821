package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/neogo-core/node/pkg/core/block"
	"github.com/neogo-core/node/pkg/core/dao"
	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/state"
	"github.com/neogo-core/node/pkg/core/storage"
	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/opcode"
	"github.com/neogo-core/node/pkg/vm/trigger"
	"github.com/neogo-core/node/pkg/vm/vmstate"
	"go.uber.org/zap"
)

var (
	errPrevHashMismatch  = errors.New("ledger: block's prev_hash does not match current best block")
	errIndexMismatch     = errors.New("ledger: block index is not current height + 1")
	errTimestampNotAfter = errors.New("ledger: block timestamp does not exceed its parent's")
	errMerkleMismatch    = errors.New("ledger: block merkle root does not match its transactions")
	errHeaderWitness     = errors.New("ledger: block header witness does not satisfy the committee threshold")
	errTooManyTx         = errors.New("ledger: block exceeds the configured transaction limit")
	errTxValidUntil      = errors.New("ledger: transaction valid_until_block is out of range")
	errTxBlocked         = errors.New("ledger: transaction sender is blocked by policy")
	errTxFee             = errors.New("ledger: transaction network_fee does not cover size and verification cost")
	errTxBalance         = errors.New("ledger: sender balance cannot cover system_fee + network_fee")
	errTxWitness         = errors.New("ledger: transaction witness does not verify")
)

// functionTable returns the combined SYSCALL + native method table every
// script this ledger loads is dispatched against.
func (bc *Blockchain) functionTable() []interop.Function {
	return append(interop.DefaultFunctions(), bc.contracts.Functions()...)
}

// newContext builds an interop.Context for running code against d in
// the scope of block b (OnPersist/PostPersist pass tx as nil).
func (bc *Blockchain) newContext(d *dao.Simple, b *block.Block, tx *transaction.Transaction, trig trigger.Type) *interop.Context {
	return interop.NewContext(trig, d, b, tx, bc.cfg.Hardforks, bc.functionTable(), bc.log)
}

// AddBlock validates and applies b against the current best block,
// running its OnPersist/transaction-batch/PostPersist cycle and
// folding the resulting storage changes into the state trie (spec.md
// §4.4 "persist procedure").
func (bc *Blockchain) AddBlock(b *block.Block) error {
	return bc.addBlock(b, true)
}

// AddBlockFromConsensus applies a block this node's own dBFT round
// just certified via a commit quorum (spec.md §4.5 "When commits ≥ M:
// aggregate signatures"). The Service.Ledger interface a round commits
// through (blockIndex, validatorIndex, txHashes) never carries the
// quorum's aggregated commit signatures back out to the caller
// assembling the block, so there is no multi-sig witness for this path
// to check — the round having reached a commit quorum already is the
// block's authorization, and header-witness verification is skipped
// for it alone (see DESIGN.md).
func (bc *Blockchain) AddBlockFromConsensus(b *block.Block) error {
	return bc.addBlock(b, false)
}

func (bc *Blockchain) addBlock(b *block.Block, checkWitness bool) error {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()

	if err := bc.validateHeaderFields(&b.Header); err != nil {
		return err
	}
	if checkWitness {
		if err := bc.validateHeaderWitness(&b.Header); err != nil {
			return err
		}
	}
	if uint32(len(b.Transactions)) > uint32(bc.cfg.MaxTransactionsPerBlock) && bc.cfg.MaxTransactionsPerBlock != 0 {
		return errTooManyTx
	}
	if !b.ComputeMerkleRoot().Equals(b.MerkleRoot) {
		return errMerkleMismatch
	}

	blockDAO := bc.dao.GetWrapped()

	onCtx := bc.newContext(blockDAO, b, nil, trigger.OnPersist)
	for _, c := range bc.contracts.All() {
		if c.OnPersist == nil {
			continue
		}
		if err := c.OnPersist(onCtx); err != nil {
			return fmt.Errorf("ledger: OnPersist on %s: %w", c.Name, err)
		}
	}

	var aers []*state.AppExecResult
	var totalNetworkFee int64
	for _, tx := range b.Transactions {
		aer, err := bc.applyTransaction(blockDAO, b, tx)
		if err != nil {
			return err
		}
		aers = append(aers, aer)
		totalNetworkFee += tx.NetworkFee
	}

	if err := bc.runPostPersist(blockDAO, b, totalNetworkFee); err != nil {
		return err
	}

	if err := blockDAO.StoreAsBlock(b, nil); err != nil {
		return err
	}

	changes := blockDAO.Changes()
	trieRootBefore := bc.trie.StateRoot()
	if err := bc.foldChangesIntoTrie(changes); err != nil {
		return err
	}
	// bc.dao's overlay is empty here (it was flushed at the end of the
	// previous AddBlock), so reading it now yields every touched key's
	// pre-block value, the undo record a reorg needs (spec.md §4.4
	// "Reorganization").
	priorValues := bc.captureUndoValues(changes)
	if err := blockDAO.Persist(); err != nil {
		return err
	}
	if err := bc.dao.Persist(); err != nil {
		return err
	}
	if err := bc.trie.Flush(); err != nil {
		return err
	}
	trieRootAfter := bc.trie.StateRoot()

	bc.pushHistory(b.Index, priorValues, changes, trieRootBefore, trieRootAfter)

	h := b.Hash()
	bc.headers[h] = &headerEntry{header: &b.Header, cumWork: uint64(b.Index)}
	bc.heightIndex[b.Index] = h
	bc.bestHash = h
	bc.bestHeight = b.Index

	bc.log.Info("block persisted",
		zap.Uint32("index", b.Index), zap.String("hash", h.StringLE()),
		zap.Int("tx", len(b.Transactions)))

	bc.publishBlock(b)
	for i, tx := range b.Transactions {
		bc.publishTransaction(tx)
		bc.publishExecution(aers[i])
	}
	return nil
}

// validateHeaderFields checks h's linkage to the current best block,
// independent of its witness (spec.md §4.4 persist procedure step 1).
func (bc *Blockchain) validateHeaderFields(h *block.Header) error {
	if !h.PrevHash.Equals(bc.bestHash) {
		return errPrevHashMismatch
	}
	if h.Index != bc.bestHeight+1 {
		return errIndexMismatch
	}
	parent := bc.headers[bc.bestHash].header
	if h.Timestamp <= parent.Timestamp {
		return errTimestampNotAfter
	}
	return nil
}

// validateHeaderWitness checks h's witness against the configured
// committee's multi-sig threshold (spec.md §4.4 persist procedure step
// 1 "witness verifies against parent.next_consensus").
func (bc *Blockchain) validateHeaderWitness(h *block.Header) error {
	committee := bc.contracts.NEO.Committee()
	m := len(committee) - (len(committee)-1)/2
	if !verifyMultisigWitness(h.Hash(), h.Script, m, committee) {
		return errHeaderWitness
	}
	return nil
}

// verifyMultisigWitness reports whether witness carries at least m
// valid signatures over digest from distinct members of committee,
// the same invocation-script-parsing scheme stateroot.VerifyWitness
// uses for state-root messages (spec.md §6), applied here to a block
// header instead of running its verification script through the VM —
// a deliberate simplification over real NeoVM CheckMultisig execution
// (see DESIGN.md).
func verifyMultisigWitness(digest util.Uint256, witness transaction.Witness, m int, committee keys.PublicKeys) bool {
	sigs, err := parseInvocationSignatures(witness.InvocationScript)
	if err != nil || len(sigs) < m {
		return false
	}
	dgst := digest.BytesBE()
	used := make(map[int]bool, len(committee))
	matched := 0
	for _, sig := range sigs {
		for i, pub := range committee {
			if used[i] {
				continue
			}
			if pub.Verify(sig, dgst) {
				used[i] = true
				matched++
				break
			}
		}
	}
	return matched >= m
}

func parseInvocationSignatures(script []byte) ([][]byte, error) {
	var sigs [][]byte
	for i := 0; i < len(script); {
		if opcode.Opcode(script[i]) != opcode.PUSHDATA1 {
			return nil, errors.New("ledger: invocation script contains a non-PUSHDATA1 opcode")
		}
		if i+1 >= len(script) {
			return nil, errors.New("ledger: truncated invocation script")
		}
		n := int(script[i+1])
		start := i + 2
		if start+n > len(script) {
			return nil, errors.New("ledger: truncated invocation script data")
		}
		sigs = append(sigs, script[start:start+n])
		i = start + n
	}
	return sigs, nil
}

// applyTransaction runs one transaction's script against its own
// wrapped DAO, burning its fees from blockDAO first so they survive
// regardless of the script's outcome (spec.md §4.4 invariant "fees are
// still consumed regardless of vm_state").
func (bc *Blockchain) applyTransaction(blockDAO *dao.Simple, b *block.Block, tx *transaction.Transaction) (*state.AppExecResult, error) {
	sender := tx.Sender()
	fee := new(big.Int).SetInt64(tx.SystemFee + tx.NetworkFee)
	feeCtx := &interop.Context{DAO: blockDAO}
	if err := bc.contracts.GAS.Burn(feeCtx, sender, fee); err != nil {
		return nil, fmt.Errorf("ledger: tx %s: %w", tx.Hash().StringLE(), err)
	}

	txDAO := blockDAO.GetWrapped()
	ic := bc.newContext(txDAO, b, tx, trigger.Application)
	v := ic.SpawnVM()
	v.SetGasLimit(tx.SystemFee)
	v.SetExecFeeFactor(bc.contracts.Policy.GetBaseExecFee(ic))
	v.LoadScript(tx.Script)
	runErr := v.Run()

	exec := state.Execution{
		Trigger:     trigger.Application,
		VMState:     v.State(),
		GasConsumed: v.GasConsumed(),
	}
	if v.State() == vmstate.Fault {
		if runErr != nil {
			exec.FaultException = runErr.Error()
		} else if v.FaultException() != nil {
			exec.FaultException = v.FaultException().Error()
		}
	} else {
		if err := txDAO.Persist(); err != nil {
			return nil, err
		}
		for _, n := range v.Notifications() {
			exec.Events = append(exec.Events, state.NotificationEvent{
				ScriptHash: n.ScriptHash,
				Name:       n.Name,
				Item:       n.State,
			})
		}
	}

	aer := &state.AppExecResult{Container: tx.Hash(), Execution: exec}
	if err := blockDAO.AppendAppExecResult(aer, nil); err != nil {
		return nil, err
	}
	return aer, nil
}

// runPostPersist mints the block reward and the block's total network
// fee to the primary, then runs every native contract's PostPersist
// hook (spec.md §4.4 persist procedure, final phase).
func (bc *Blockchain) runPostPersist(blockDAO *dao.Simple, b *block.Block, totalNetworkFee int64) error {
	validators := bc.contracts.NEO.Validators()
	if len(validators) > 0 {
		primaryPub := validators[int(b.PrimaryIndex)%len(validators)]
		primaryAcc := primaryPub.GetScriptHash()
		amount := new(big.Int).SetInt64(blockReward.Int64() + totalNetworkFee)
		ic := &interop.Context{DAO: blockDAO}
		if err := bc.contracts.GAS.Mint(ic, primaryAcc, amount); err != nil {
			return err
		}
	}

	ic := bc.newContext(blockDAO, b, nil, trigger.PostPersist)
	for _, c := range bc.contracts.All() {
		if c.PostPersist == nil {
			continue
		}
		if err := c.PostPersist(ic); err != nil {
			return fmt.Errorf("ledger: PostPersist on %s: %w", c.Name, err)
		}
	}
	return nil
}

// foldChangesIntoTrie applies a block's cumulative storage change set
// to the state trie, using the same (contract_id ‖ user_key) trie key
// that remains once STStorage's one-byte DAO prefix is stripped off
// (spec.md §4.3 "Storage entries: trie key = contract_id(LE i32) ‖
// user_key").
func (bc *Blockchain) foldChangesIntoTrie(changes map[string][]byte) error {
	prefix := byte(storage.STStorage)
	for k, v := range changes {
		if len(k) == 0 || k[0] != prefix {
			continue
		}
		trieKey := []byte(k)[1:]
		if v == nil {
			if err := bc.trie.Delete(trieKey); err != nil {
				return err
			}
			continue
		}
		if err := bc.trie.Put(trieKey, v); err != nil {
			return err
		}
	}
	return nil
}
