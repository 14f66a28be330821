package ledger

import (
	"errors"
	"math/big"

	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/neogo-core/node/pkg/vm/opcode"
)

// VerifyTx runs every static and stateful admission check a
// transaction must pass before PoolTx accepts it, mirroring the
// block-persist invariants (spec.md §3 "Transaction", §4.4 "admission
// checks").
func (bc *Blockchain) VerifyTx(tx *transaction.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	height := bc.BlockHeight()
	if tx.ValidUntilBlock <= height || tx.ValidUntilBlock > height+bc.cfg.MaxValidUntilBlockIncrement {
		return errTxValidUntil
	}

	ic := bc.blockContext()
	sender := tx.Sender()
	if bc.contracts.Policy.IsBlocked(ic, sender) {
		return errTxBlocked
	}

	size := int64(tx.Size())
	minFee := size*bc.FeePerByte() + bc.verificationCost(tx)
	if tx.NetworkFee < minFee {
		return errTxFee
	}

	balance := bc.GetUtilityTokenBalance(sender)
	required := new(big.Int).SetInt64(tx.SystemFee + tx.NetworkFee)
	if balance.Cmp(required) < 0 {
		return errTxBalance
	}

	if len(tx.Signers) != len(tx.Witnesses) {
		return errTxWitness
	}
	digest := tx.Hash()
	for i, signer := range tx.Signers {
		w := tx.Witnesses[i]
		if !w.ScriptHash().Equals(signer.Account) {
			return errTxWitness
		}
		m, pubs, err := parseVerificationScript(w.VerificationScript)
		if err != nil {
			return errTxWitness
		}
		if !verifyMultisigWitness(digest, w, m, pubs) {
			return errTxWitness
		}
	}
	return nil
}

// verificationCost estimates the execution fee a transaction's
// witnesses would cost the base-fee-factor-scaled VM to check, so
// NetworkFee's lower bound reflects more than just wire size (spec.md
// §3 "network_fee covers size and witness verification"). This node
// charges a flat per-witness price rather than metering the
// verification scripts it does not actually load into a VM (see
// DESIGN.md).
func (bc *Blockchain) verificationCost(tx *transaction.Transaction) int64 {
	const perWitnessOpcodes = 180
	return int64(len(tx.Witnesses)) * perWitnessOpcodes * bc.contracts.Policy.GetBaseExecFee(bc.blockContext())
}

// parseVerificationScript extracts the public keys and signature
// threshold a single-sig or multi-sig verification script (as built by
// keys.PublicKey.GetVerificationScript / keys.GetMultiSigVerification
// Script) checks against, without executing it — this node verifies
// witnesses by matching invocation-script signatures directly against
// these keys rather than running CheckSig/CheckMultisig through a VM
// (see DESIGN.md, same approach block header witnesses use).
func parseVerificationScript(script []byte) (int, keys.PublicKeys, error) {
	if len(script) < 2 {
		return 0, nil, errors.New("ledger: empty verification script")
	}
	if opcode.Opcode(script[0]) == opcode.PUSHDATA1 {
		n := int(script[1])
		if len(script) < 2+n {
			return 0, nil, errors.New("ledger: truncated single-sig verification script")
		}
		pub := &keys.PublicKey{}
		if err := pub.DecodeBytes(script[2 : 2+n]); err != nil {
			return 0, nil, err
		}
		return 1, keys.PublicKeys{pub}, nil
	}

	i := 0
	m, err := readPushInt(script, &i)
	if err != nil {
		return 0, nil, err
	}
	var pubs keys.PublicKeys
	for i < len(script) && opcode.Opcode(script[i]) == opcode.PUSHDATA1 {
		if i+1 >= len(script) {
			return 0, nil, errors.New("ledger: truncated multi-sig verification script")
		}
		ln := int(script[i+1])
		start := i + 2
		if start+ln > len(script) {
			return 0, nil, errors.New("ledger: truncated multi-sig verification script data")
		}
		pub := &keys.PublicKey{}
		if err := pub.DecodeBytes(script[start : start+ln]); err != nil {
			return 0, nil, err
		}
		pubs = append(pubs, pub)
		i = start + ln
	}
	if len(pubs) == 0 {
		return 0, nil, errors.New("ledger: multi-sig verification script carries no keys")
	}
	return m, pubs, nil
}

// readPushInt reads the PUSHINT8/PUSHINT16 instruction at script[*i]
// (a multi-sig script's leading threshold push) and advances *i past
// the opcode and its operand.
func readPushInt(script []byte, i *int) (int, error) {
	if *i >= len(script) {
		return 0, errors.New("ledger: truncated verification script")
	}
	switch opcode.Opcode(script[*i]) {
	case opcode.PUSHINT8:
		if *i+1 >= len(script) {
			return 0, errors.New("ledger: truncated PUSHINT8")
		}
		v := int(script[*i+1])
		*i += 2
		return v, nil
	case opcode.PUSHINT16:
		if *i+2 >= len(script) {
			return 0, errors.New("ledger: truncated PUSHINT16")
		}
		v := int(script[*i+1]) | int(script[*i+2])<<8
		*i += 3
		return v, nil
	default:
		return 0, errors.New("ledger: expected PUSHINT8/16 threshold")
	}
}
