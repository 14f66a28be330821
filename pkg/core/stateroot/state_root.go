// Package stateroot implements the state-root message (spec.md §6
// "State-root message") and the state-validator witness that certifies
// it: a separate M-of-N multi-signature carried alongside (not inside)
// each block, letting light clients and other chains trust a height's
// state root without replaying the chain.
package stateroot

import (
	"encoding/json"
	"errors"

	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// Version is the only state-root message version this node produces or
// accepts.
const Version byte = 0

// StateRoot is a signed attestation that the chain's state trie has
// root Root at height Index (spec.md §6 "State-root message").
type StateRoot struct {
	Version byte
	Index   uint32
	Root    util.Uint256
	Witness transaction.Witness

	hash      util.Uint256
	hashValid bool
}

// Hash returns the double-SHA256 of the message's hashable fields,
// cached after the first call.
func (s *StateRoot) Hash() util.Uint256 {
	if !s.hashValid {
		buf := io.NewBufBinWriter()
		s.encodeHashableFields(buf.BinWriter)
		s.hash = hash.DoubleSha256(buf.Bytes())
		s.hashValid = true
	}
	return s.hash
}

func (s *StateRoot) encodeHashableFields(bw *io.BinWriter) {
	bw.WriteB(s.Version)
	bw.WriteU32LE(s.Index)
	bw.WriteBytes(s.Root[:])
}

// EncodeBinary implements io.Serializable.
func (s *StateRoot) EncodeBinary(bw *io.BinWriter) {
	s.encodeHashableFields(bw)
	bw.WriteVarUint(1)
	s.Witness.EncodeBinary(bw)
}

// DecodeBinary implements io.Serializable.
func (s *StateRoot) DecodeBinary(br *io.BinReader) {
	s.Version = br.ReadB()
	s.Index = br.ReadU32LE()
	br.ReadBytes(s.Root[:])
	if br.Err != nil {
		return
	}
	n := br.ReadVarUint()
	if br.Err == nil && n != 1 {
		br.Err = errors.New("stateroot: message must carry exactly one witness")
		return
	}
	s.Witness.DecodeBinary(br)
	s.hashValid = false
}

type stateRootAux struct {
	Version byte                `json:"version"`
	Index   uint32              `json:"index"`
	Root    util.Uint256        `json:"stateroot"`
	Witness transaction.Witness `json:"witness"`
}

// MarshalJSON implements json.Marshaler.
func (s StateRoot) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateRootAux{
		Version: s.Version,
		Index:   s.Index,
		Root:    s.Root,
		Witness: s.Witness,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StateRoot) UnmarshalJSON(data []byte) error {
	var aux stateRootAux
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Version = aux.Version
	s.Index = aux.Index
	s.Root = aux.Root
	s.Witness = aux.Witness
	s.hashValid = false
	return nil
}
