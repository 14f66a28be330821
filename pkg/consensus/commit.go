package consensus

import "github.com/neogo-core/node/pkg/io"

// signatureSize is the raw (r||s) ECDSA signature size used throughout
// this repository's witnesses (pkg/crypto/keys.PrivateKey.Sign).
const signatureSize = 64

// commit is the dBFT Commit message body: a signature over the
// proposed block's unsigned header encoding (spec.md §4.5
// "Commit{signature}").
type commit struct {
	Signature [signatureSize]byte
}

// EncodeBinary implements io.Serializable.
func (c *commit) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(c.Signature[:])
}

// DecodeBinary implements io.Serializable.
func (c *commit) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(c.Signature[:])
}
