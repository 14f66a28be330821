package transaction

import (
	"errors"

	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// WitnessScope is a bitmask of the reach a signer's witness covers
// (spec.md §3 "Signer", scopes enum).
type WitnessScope byte

const (
	None            WitnessScope = 0
	CalledByEntry   WitnessScope = 0x01
	CustomContracts WitnessScope = 0x10
	CustomGroups    WitnessScope = 0x20
	WitnessRules    WitnessScope = 0x40
	Global          WitnessScope = 0x80
)

// Has reports whether s contains every bit of scope.
func (s WitnessScope) Has(scope WitnessScope) bool { return s&scope == scope }

// WitnessRule is an opaque (action, condition) pair further narrowing
// a WitnessRules-scoped signer; condition evaluation belongs to the
// witness-verification path, not the wire format, so it is kept as an
// undecoded blob here (spec.md §3 lists rules only as "list<WitnessRule>").
type WitnessRule struct {
	Action    byte
	Condition []byte
}

// DecodeBinary implements io.Serializable.
func (r *WitnessRule) DecodeBinary(br *io.BinReader) {
	r.Action = br.ReadB()
	r.Condition = br.ReadVarBytes()
}

// EncodeBinary implements io.Serializable.
func (r *WitnessRule) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(r.Action)
	bw.WriteVarBytes(r.Condition)
}

// ErrInvalidSigners is returned by Transaction validation when the
// signer list violates spec.md §3's uniqueness/Global invariants.
var ErrInvalidSigners = errors.New("invalid signers: duplicate account or more than one Global scope")

// Signer is one transaction co-signer and the reach of its witness
// (spec.md §3 "Signer").
type Signer struct {
	Account          util.Uint160
	Scopes           WitnessScope
	AllowedContracts []util.Uint160
	AllowedGroups    []*keys.PublicKey
	Rules            []WitnessRule
}

// DecodeBinary implements io.Serializable.
func (s *Signer) DecodeBinary(br *io.BinReader) {
	s.Account.DecodeBinary(br)
	s.Scopes = WitnessScope(br.ReadB())
	if s.Scopes.Has(CustomContracts) {
		n := br.ReadVarUint()
		s.AllowedContracts = make([]util.Uint160, n)
		for i := range s.AllowedContracts {
			s.AllowedContracts[i].DecodeBinary(br)
		}
	}
	if s.Scopes.Has(CustomGroups) {
		n := br.ReadVarUint()
		s.AllowedGroups = make([]*keys.PublicKey, n)
		for i := range s.AllowedGroups {
			b := br.ReadVarBytes()
			if br.Err != nil {
				return
			}
			pub := &keys.PublicKey{}
			if err := pub.DecodeBytes(b); err != nil {
				br.Err = err
				return
			}
			s.AllowedGroups[i] = pub
		}
	}
	if s.Scopes.Has(WitnessRules) {
		n := br.ReadVarUint()
		s.Rules = make([]WitnessRule, n)
		for i := range s.Rules {
			s.Rules[i].DecodeBinary(br)
		}
	}
}

// EncodeBinary implements io.Serializable.
func (s *Signer) EncodeBinary(bw *io.BinWriter) {
	s.Account.EncodeBinary(bw)
	bw.WriteB(byte(s.Scopes))
	if s.Scopes.Has(CustomContracts) {
		bw.WriteVarUint(uint64(len(s.AllowedContracts)))
		for _, c := range s.AllowedContracts {
			c.EncodeBinary(bw)
		}
	}
	if s.Scopes.Has(CustomGroups) {
		bw.WriteVarUint(uint64(len(s.AllowedGroups)))
		for _, g := range s.AllowedGroups {
			bw.WriteVarBytes(g.Bytes())
		}
	}
	if s.Scopes.Has(WitnessRules) {
		bw.WriteVarUint(uint64(len(s.Rules)))
		for i := range s.Rules {
			s.Rules[i].EncodeBinary(bw)
		}
	}
}

// ValidateSigners enforces spec.md §3's signer invariants: accounts
// unique within the transaction, at most one carries Global.
func ValidateSigners(signers []Signer) error {
	seen := make(map[util.Uint160]bool, len(signers))
	globalCount := 0
	for _, s := range signers {
		if seen[s.Account] {
			return ErrInvalidSigners
		}
		seen[s.Account] = true
		if s.Scopes.Has(Global) {
			globalCount++
		}
	}
	if globalCount > 1 {
		return ErrInvalidSigners
	}
	return nil
}
