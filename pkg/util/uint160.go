package util

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/neogo-core/node/pkg/io"
)

// Uint160Size is the size of Uint160 in bytes.
const Uint160Size = 20

// Uint160 is a 20-byte little-endian script hash, displayed as
// big-endian hex with a 0x prefix (see spec.md §3 "Hashes").
type Uint160 [Uint160Size]byte

// Uint160DecodeBytes decodes a little-endian byte slice into a Uint160.
func Uint160DecodeBytes(b []byte) (u Uint160, err error) {
	if len(b) != Uint160Size {
		return u, fmt.Errorf("expected %d bytes, got %d", Uint160Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// Uint160DecodeBytesBE decodes a big-endian byte slice into a Uint160.
func Uint160DecodeBytesBE(b []byte) (u Uint160, err error) {
	if len(b) != Uint160Size {
		return u, fmt.Errorf("expected %d bytes, got %d", Uint160Size, len(b))
	}
	for i, c := range b {
		u[Uint160Size-1-i] = c
	}
	return u, nil
}

// Uint160DecodeString decodes a big-endian hex string (optionally
// 0x-prefixed) into a Uint160.
func Uint160DecodeString(s string) (u Uint160, err error) {
	s = trim0x(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint160DecodeBytesBE(b)
}

// Bytes returns the little-endian byte slice representation of u.
func (u Uint160) Bytes() []byte {
	b := make([]byte, Uint160Size)
	copy(b, u[:])
	return b
}

// BytesBE returns the big-endian byte slice representation of u.
func (u Uint160) BytesBE() []byte {
	b := make([]byte, Uint160Size)
	for i := 0; i < Uint160Size; i++ {
		b[i] = u[Uint160Size-1-i]
	}
	return b
}

// Equals returns true when u and other hold the same value.
func (u Uint160) Equals(other Uint160) bool {
	return u == other
}

// Less orders two Uint160 values by their little-endian byte
// representation, used for deterministic signer/account ordering.
func (u Uint160) Less(other Uint160) bool {
	return bytes.Compare(u[:], other[:]) < 0
}

// DecodeBinary implements io.Serializable, reading the little-endian
// fixed-width wire form.
func (u *Uint160) DecodeBinary(br *io.BinReader) {
	br.ReadBytes(u[:])
}

// EncodeBinary implements io.Serializable.
func (u *Uint160) EncodeBinary(bw *io.BinWriter) {
	bw.WriteBytes(u[:])
}

// String implements fmt.Stringer, returning big-endian hex without 0x.
func (u Uint160) String() string {
	return hex.EncodeToString(u.BytesBE())
}

// StringLE returns the little-endian hex representation.
func (u Uint160) StringLE() string {
	return hex.EncodeToString(u[:])
}

// MarshalJSON implements the json.Marshaler interface.
func (u Uint160) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + u.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (u *Uint160) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := Uint160DecodeString(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}
