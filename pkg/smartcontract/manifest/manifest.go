// Package manifest implements the contract manifest: the ABI method
// table a native or deployed contract's method dispatch is built from
// (spec.md §4.2 "Native contract registration").
package manifest

import (
	"encoding/json"

	"github.com/neogo-core/node/pkg/io"
)

// Parameter is one ABI method parameter's name and declared type.
type Parameter struct {
	Name string
	Type string
}

// Method describes one callable contract method.
type Method struct {
	Name       string
	Parameters []Parameter
	ReturnType string
	// Offset is the method's entry point within the contract script.
	Offset int
	// Safe marks a method as read-only (no WriteStates required).
	Safe bool
}

// ABI is the set of methods and events a contract exposes.
type ABI struct {
	Methods []Method
	Events  []Method
}

// Manifest is a contract's declared identity and ABI.
type Manifest struct {
	Name string
	ABI  ABI
}

// NewManifest creates a blank Manifest named name.
func NewManifest(name string) *Manifest {
	return &Manifest{Name: name}
}

// EncodeBinary implements io.Serializable via a JSON envelope, matching
// the teacher's convention of storing manifests as their JSON form
// inside otherwise-binary contract state records.
func (m *Manifest) EncodeBinary(bw *io.BinWriter) {
	data, err := json.Marshal(m)
	if err != nil {
		bw.Err = err
		return
	}
	bw.WriteVarBytes(data)
}

// DecodeBinary implements io.Serializable.
func (m *Manifest) DecodeBinary(br *io.BinReader) {
	data := br.ReadVarBytes()
	if br.Err != nil {
		return
	}
	if err := json.Unmarshal(data, m); err != nil {
		br.Err = err
	}
}
