package stateroot

import (
	"errors"

	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/neogo-core/node/pkg/vm/opcode"
)

// ErrWitnessInvalid is returned when a state-root message's witness
// fails to authenticate under the supplied validator set.
var ErrWitnessInvalid = errors.New("stateroot: witness does not satisfy validator threshold")

// Sign appends one more PUSHDATA1-wrapped signature to s.Witness's
// invocation script, signing s.Hash() with priv. Signatures must be
// appended in the same relative order as the corresponding public keys
// appear in the m-of-n verification script, matching the ordering
// NeoVM's CheckMultisig syscall requires (spec.md §6).
func (s *StateRoot) Sign(priv *keys.PrivateKey) {
	sig := priv.Sign(s.Hash().BytesBE())
	s.Witness.InvocationScript = append(s.Witness.InvocationScript,
		append([]byte{byte(opcode.PUSHDATA1), byte(len(sig))}, sig...)...)
}

// SetValidators builds s.Witness.VerificationScript from the designated
// state-validator set, requiring m signatures out of the given
// (canonically sorted) public keys.
func (s *StateRoot) SetValidators(m int, validators keys.PublicKeys) error {
	script, err := keys.GetMultiSigVerificationScript(m, validators)
	if err != nil {
		return err
	}
	s.Witness.VerificationScript = script
	return nil
}

// VerifyWitness reports whether s's witness carries at least m valid
// signatures from distinct members of validators over s.Hash().
func (s *StateRoot) VerifyWitness(m int, validators keys.PublicKeys) bool {
	sigs, err := parseInvocationSignatures(s.Witness.InvocationScript)
	if err != nil || len(sigs) < m {
		return false
	}
	digest := s.Hash().BytesBE()
	used := make(map[int]bool, len(validators))
	matched := 0
	for _, sig := range sigs {
		for i, pub := range validators {
			if used[i] {
				continue
			}
			if pub.Verify(sig, digest) {
				used[i] = true
				matched++
				break
			}
		}
	}
	return matched >= m
}

// parseInvocationSignatures extracts the PUSHDATA1-wrapped byte strings
// from an invocation script built by repeated calls to Sign.
func parseInvocationSignatures(script []byte) ([][]byte, error) {
	var sigs [][]byte
	for i := 0; i < len(script); {
		if opcode.Opcode(script[i]) != opcode.PUSHDATA1 {
			return nil, errors.New("stateroot: invocation script contains a non-PUSHDATA1 opcode")
		}
		if i+1 >= len(script) {
			return nil, errors.New("stateroot: truncated invocation script")
		}
		n := int(script[i+1])
		start := i + 2
		if start+n > len(script) {
			return nil, errors.New("stateroot: truncated invocation script data")
		}
		sigs = append(sigs, script[start:start+n])
		i = start + n
	}
	return sigs, nil
}
