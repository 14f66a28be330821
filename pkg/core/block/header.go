// Package block implements the Neo N3 block and header wire formats
// (spec.md §3 "Block").
package block

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/encoding/address"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// VersionInitial is the only block version this node produces or accepts.
const VersionInitial uint32 = 0

// Header holds a block's fixed-size fields (spec.md §3 "Block").
type Header struct {
	// Version of the block, currently only 0.
	Version uint32

	// PrevHash is the hash of the previous block.
	PrevHash util.Uint256

	// MerkleRoot is the root hash of the block's transaction list.
	MerkleRoot util.Uint256

	// Timestamp is a millisecond-precision Unix timestamp.
	Timestamp uint64

	// Nonce is a block-level random number.
	Nonce uint64

	// Index is the height of the block.
	Index uint32

	// NextConsensus is the script hash of the next-round consensus
	// committee's multi-signature account.
	NextConsensus util.Uint160

	// Script is the witness over the hashable header fields. Not part
	// of the hashable field set itself.
	Script transaction.Witness

	// StateRootEnabled reports whether PrevStateRoot carries a value.
	// When false PrevStateRoot stays zero and is never (de)serialized.
	StateRootEnabled bool
	// PrevStateRoot is the state root of the previous block, present
	// only when StateRootEnabled.
	PrevStateRoot util.Uint256
	// PrimaryIndex is the index of the primary consensus node for this
	// round (spec.md §7 "primary selection").
	PrimaryIndex byte

	hash util.Uint256
}

type baseAux struct {
	Hash          util.Uint256          `json:"hash"`
	Version       uint32                `json:"version"`
	PrevHash      util.Uint256          `json:"previousblockhash"`
	MerkleRoot    util.Uint256          `json:"merkleroot"`
	Timestamp     uint64                `json:"time"`
	Nonce         string                `json:"nonce"`
	Index         uint32                `json:"index"`
	NextConsensus string                `json:"nextconsensus"`
	PrimaryIndex  byte                  `json:"primary"`
	PrevStateRoot *util.Uint256         `json:"previousstateroot,omitempty"`
	Witnesses     []transaction.Witness `json:"witnesses"`
}

// Hash returns the double-SHA256 of the header's hashable fields
// (spec.md §3 "Hashes": Hash256 = SHA256(SHA256(...))), cached after the
// first call until the next DecodeBinary.
func (b *Header) Hash() util.Uint256 {
	if b.hash.Equals(util.Uint256{}) {
		b.createHash()
	}
	return b.hash
}

// DecodeBinary implements io.Serializable. It also refreshes the cached
// hash, see Header.Hash.
func (b *Header) DecodeBinary(br *io.BinReader) {
	b.decodeHashableFields(br)
	witnessCount := br.ReadVarUint()
	if br.Err == nil && witnessCount != 1 {
		br.Err = errors.New("block: header must carry exactly one witness")
		return
	}
	b.Script.DecodeBinary(br)
}

// EncodeBinary implements io.Serializable.
func (b *Header) EncodeBinary(bw *io.BinWriter) {
	b.encodeHashableFields(bw)
	bw.WriteVarUint(1)
	b.Script.EncodeBinary(bw)
}

// createHash recomputes and caches the header hash.
func (b *Header) createHash() {
	buf := io.NewBufBinWriter()
	b.encodeHashableFields(buf.BinWriter)
	b.hash = hash.DoubleSha256(buf.Bytes())
}

func (b *Header) encodeHashableFields(bw *io.BinWriter) {
	bw.WriteU32LE(b.Version)
	bw.WriteBytes(b.PrevHash[:])
	bw.WriteBytes(b.MerkleRoot[:])
	bw.WriteU64LE(b.Timestamp)
	bw.WriteU64LE(b.Nonce)
	bw.WriteU32LE(b.Index)
	bw.WriteB(b.PrimaryIndex)
	bw.WriteBytes(b.NextConsensus[:])
	if b.StateRootEnabled {
		bw.WriteBytes(b.PrevStateRoot[:])
	}
}

func (b *Header) decodeHashableFields(br *io.BinReader) {
	b.Version = br.ReadU32LE()
	br.ReadBytes(b.PrevHash[:])
	br.ReadBytes(b.MerkleRoot[:])
	b.Timestamp = br.ReadU64LE()
	b.Nonce = br.ReadU64LE()
	b.Index = br.ReadU32LE()
	b.PrimaryIndex = br.ReadB()
	br.ReadBytes(b.NextConsensus[:])
	if b.StateRootEnabled {
		br.ReadBytes(b.PrevStateRoot[:])
	}
	if br.Err == nil {
		b.createHash()
	}
}

// MarshalJSON implements json.Marshaler.
func (b Header) MarshalJSON() ([]byte, error) {
	aux := baseAux{
		Hash:          b.Hash(),
		Version:       b.Version,
		PrevHash:      b.PrevHash,
		MerkleRoot:    b.MerkleRoot,
		Timestamp:     b.Timestamp,
		Nonce:         fmt.Sprintf("%016X", b.Nonce),
		Index:         b.Index,
		PrimaryIndex:  b.PrimaryIndex,
		NextConsensus: address.Uint160ToString(b.NextConsensus),
		Witnesses:     []transaction.Witness{b.Script},
	}
	if b.StateRootEnabled {
		aux.PrevStateRoot = &b.PrevStateRoot
	}
	return json.Marshal(aux)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Header) UnmarshalJSON(data []byte) error {
	aux := new(baseAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	var nonce uint64
	var err error
	if len(aux.Nonce) != 0 {
		nonce, err = strconv.ParseUint(aux.Nonce, 16, 64)
		if err != nil {
			return err
		}
	}
	nextC, err := address.StringToUint160(aux.NextConsensus)
	if err != nil {
		return err
	}
	if len(aux.Witnesses) != 1 {
		return errors.New("block: wrong number of witnesses")
	}
	b.Version = aux.Version
	b.PrevHash = aux.PrevHash
	b.MerkleRoot = aux.MerkleRoot
	b.Timestamp = aux.Timestamp
	b.Nonce = nonce
	b.Index = aux.Index
	b.PrimaryIndex = aux.PrimaryIndex
	b.NextConsensus = nextC
	b.Script = aux.Witnesses[0]
	if b.StateRootEnabled {
		if aux.PrevStateRoot == nil {
			return errors.New("block: 'previousstateroot' is empty")
		}
		b.PrevStateRoot = *aux.PrevStateRoot
	}
	if !aux.Hash.Equals(b.Hash()) {
		return errors.New("block: json 'hash' doesn't match block hash")
	}
	return nil
}
