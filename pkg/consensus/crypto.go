package consensus

import (
	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/nspcc-dev/dbft"
	"github.com/pkg/errors"
)

// privateKey wraps keys.PrivateKey to satisfy dbft's crypto.PrivateKey
// interface, the same adapter shape the teacher's crypto.go uses.
type privateKey struct {
	*keys.PrivateKey
}

var _ dbft.PrivateKey = (*privateKey)(nil)

// Sign implements the dbft.PrivateKey interface.
func (p *privateKey) Sign(data []byte) ([]byte, error) {
	return p.PrivateKey.Sign(data), nil
}

// publicKey wraps keys.PublicKey to satisfy dbft's crypto.PublicKey
// interface.
type publicKey struct {
	*keys.PublicKey
}

var _ dbft.PublicKey = (*publicKey)(nil)

// MarshalBinary implements encoding.BinaryMarshaler.
func (p publicKey) MarshalBinary() ([]byte, error) {
	return p.PublicKey.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *publicKey) UnmarshalBinary(data []byte) error {
	return p.PublicKey.DecodeBytes(data)
}

// Verify implements the dbft.PublicKey interface. keys.PublicKey.Verify
// already hashes msg itself, so this does not pre-hash it again.
func (p publicKey) Verify(msg, sig []byte) error {
	if p.PublicKey.Verify(sig, msg) {
		return nil
	}
	return errors.New("consensus: signature verification failed")
}
