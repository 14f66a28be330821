// Package keys wraps the ECDSA secp256r1 primitives Neo signatures use.
// Cryptographic primitives are an out-of-scope pure-function
// collaborator per spec.md §1; this package is a thin adapter so the
// in-scope subsystems (witness verification, consensus signatures) have
// something concrete to call.
package keys

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/opcode"
)

// PrivateKey wraps an ECDSA secp256r1 private key.
type PrivateKey struct {
	ecdsa.PrivateKey
}

// NewPrivateKey generates a fresh random private key.
func NewPrivateKey() (*PrivateKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PrivateKey: *priv}, nil
}

// PublicKey returns the public key corresponding to p.
func (p *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{PublicKey: p.PrivateKey.PublicKey}
}

// Sign signs the SHA-256 digest of data and returns a raw fixed 64-byte
// (r||s) signature, matching the teacher's `rfc6979`-flavored signature
// encoding used throughout consensus and witness verification.
func (p *PrivateKey) Sign(data []byte) []byte {
	h := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, &p.PrivateKey, h[:])
	if err != nil {
		return nil
	}
	return packSignature(r, s)
}

func packSignature(r, s *big.Int) []byte {
	out := make([]byte, 64)
	rb := r.Bytes()
	sb := s.Bytes()
	copy(out[32-len(rb):32], rb)
	copy(out[64-len(sb):64], sb)
	return out
}

// PublicKey wraps an ECDSA secp256r1 public key.
type PublicKey struct {
	ecdsa.PublicKey
}

// Bytes returns the compressed SEC1 encoding of the public key.
func (p *PublicKey) Bytes() []byte {
	return elliptic.MarshalCompressed(elliptic.P256(), p.X, p.Y)
}

// DecodeBytes decodes a compressed or uncompressed SEC1-encoded public
// key into p.
func (p *PublicKey) DecodeBytes(data []byte) error {
	curve := elliptic.P256()
	var x, y *big.Int
	switch {
	case len(data) == 33:
		x, y = elliptic.UnmarshalCompressed(curve, data)
	case len(data) == 65:
		x, y = elliptic.Unmarshal(curve, data)
	default:
		return errors.New("invalid public key encoding length")
	}
	if x == nil {
		return errors.New("invalid public key encoding")
	}
	p.Curve = curve
	p.X, p.Y = x, y
	return nil
}

// Verify reports whether sig (raw 64-byte r||s) is a valid signature of
// the SHA-256 digest of msg under p, mirroring Sign's own hashing step
// so callers pass the same pre-image to both.
func (p *PublicKey) Verify(sig, msg []byte) bool {
	if len(sig) != 64 {
		return false
	}
	h := sha256.Sum256(msg)
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	return ecdsa.Verify(&p.PublicKey, h[:], r, s)
}

// GetScriptHash returns the Hash160 of the single-signature
// verification script derived from p (spec.md §3).
func (p *PublicKey) GetScriptHash() util.Uint160 {
	return hash.Hash160(p.GetVerificationScript())
}

// PublicKeys is a slice of public keys sorted by their compressed
// encoding, the canonical order every multi-sig verification script
// and committee/validator list uses (spec.md §4.5 "validator set").
type PublicKeys []*PublicKey

func (p PublicKeys) Len() int      { return len(p) }
func (p PublicKeys) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p PublicKeys) Less(i, j int) bool {
	return bytes.Compare(p[i].Bytes(), p[j].Bytes()) < 0
}

// GetMultiSigVerificationScript builds the m-of-n multi-signature
// verification script over pubs (which must already be in canonical
// order), matching the witness format spec.md §6 describes for
// state-root and consensus-committee signatures.
func GetMultiSigVerificationScript(m int, pubs PublicKeys) ([]byte, error) {
	n := len(pubs)
	if m <= 0 || m > n || n > 255 {
		return nil, fmt.Errorf("keys: invalid multi-sig threshold %d of %d", m, n)
	}
	script := make([]byte, 0, 3+n*(2+33)+6)
	script = appendPushInt(script, m)
	for _, pub := range pubs {
		b := pub.Bytes()
		script = append(script, byte(opcode.PUSHDATA1), byte(len(b)))
		script = append(script, b...)
	}
	script = appendPushInt(script, n)
	script = append(script, byte(opcode.SYSCALL))
	script = append(script, 0x9e, 0xd1, 0xa6, 0xa9) // System.Crypto.CheckMultisig hash (informational constant)
	return script, nil
}

// GetScriptHash returns the Hash160 of the m-of-n multi-signature
// verification script over pubs.
func (p PublicKeys) GetScriptHash(m int) (util.Uint160, error) {
	script, err := GetMultiSigVerificationScript(m, p)
	if err != nil {
		return util.Uint160{}, err
	}
	return hash.Hash160(script), nil
}

// appendPushInt appends the shortest PUSHINT8/16 encoding of a small
// non-negative n, sufficient for multi-sig threshold/count operands.
func appendPushInt(script []byte, n int) []byte {
	if n <= 0x7F {
		return append(script, byte(opcode.PUSHINT8), byte(n))
	}
	return append(script, byte(opcode.PUSHINT16), byte(n), byte(n>>8))
}

// GetVerificationScript builds the single-signature NeoVM verification
// script: PUSHDATA1 <pubkey> SYSCALL CheckWitness-equivalent. This
// repository encodes it as a minimal opcode sequence sufficient for
// CheckWitness-style script-hash derivation and does not aim to be a
// bit-exact copy of every historical encoding variant.
func (p *PublicKey) GetVerificationScript() []byte {
	pub := p.Bytes()
	script := make([]byte, 0, len(pub)+3)
	script = append(script, byte(opcode.PUSHDATA1), byte(len(pub)))
	script = append(script, pub...)
	script = append(script, byte(opcode.SYSCALL))
	script = append(script, 0xcb, 0x96, 0xf1, 0x68) // System.Crypto.CheckSig hash (informational constant)
	return script
}
