// Package transaction implements the Neo N3 transaction wire format
// and its constituent parts: witnesses, signers and attributes
// (spec.md §3, §6).
package transaction

import (
	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// Witness is an (invocation_script, verification_script) pair; the
// verification script's Hash160 must match the corresponding signer's
// account (spec.md §3 "Witness").
type Witness struct {
	InvocationScript   []byte
	VerificationScript []byte
}

// ScriptHash returns the Hash160 of the verification script.
func (w Witness) ScriptHash() util.Uint160 {
	return hash.Hash160(w.VerificationScript)
}

// DecodeBinary implements io.Serializable.
func (w *Witness) DecodeBinary(br *io.BinReader) {
	w.InvocationScript = br.ReadVarBytes()
	w.VerificationScript = br.ReadVarBytes()
}

// EncodeBinary implements io.Serializable.
func (w *Witness) EncodeBinary(bw *io.BinWriter) {
	bw.WriteVarBytes(w.InvocationScript)
	bw.WriteVarBytes(w.VerificationScript)
}
