// Package state holds the persisted record shapes layered over
// pkg/core/storage: contract storage values, deployed contract
// records, and application execution results (spec.md §3 DataCache,
// §4.2 native/contract registration).
package state

import "github.com/neogo-core/node/pkg/io"

// StorageItem is the raw value half of a contract storage key/value
// pair.
type StorageItem []byte

// DecodeBinary implements io.Serializable.
func (s *StorageItem) DecodeBinary(br *io.BinReader) {
	*s = br.ReadVarBytes()
}

// EncodeBinary implements io.Serializable.
func (s *StorageItem) EncodeBinary(bw *io.BinWriter) {
	bw.WriteVarBytes(*s)
}
