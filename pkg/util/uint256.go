package util

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/neogo-core/node/pkg/io"
)

// Uint256Size is the size of Uint256 in bytes.
const Uint256Size = 32

// Uint256 is a 32-byte little-endian hash, displayed as big-endian hex
// with a 0x prefix (see spec.md §3 "Hashes").
type Uint256 [Uint256Size]byte

// Uint256DecodeBytes attempts to decode a byte slice into a Uint256. The
// bytes are expected in little-endian order, as stored internally.
func Uint256DecodeBytes(b []byte) (u Uint256, err error) {
	if len(b) != Uint256Size {
		return u, fmt.Errorf("expected %d bytes, got %d", Uint256Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// Uint256DecodeBytesBE decodes a big-endian byte slice (as used in
// display/wire contexts) into a Uint256.
func Uint256DecodeBytesBE(b []byte) (u Uint256, err error) {
	if len(b) != Uint256Size {
		return u, fmt.Errorf("expected %d bytes, got %d", Uint256Size, len(b))
	}
	for i, c := range b {
		u[Uint256Size-1-i] = c
	}
	return u, nil
}

// Uint256DecodeString attempts to decode the given big-endian hex string
// (optionally 0x-prefixed) into a Uint256.
func Uint256DecodeString(s string) (u Uint256, err error) {
	s = trim0x(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint256DecodeBytesBE(b)
}

// Bytes returns the little-endian byte slice representation of u.
func (u Uint256) Bytes() []byte {
	b := make([]byte, Uint256Size)
	copy(b, u[:])
	return b
}

// BytesBE returns the big-endian byte slice representation of u.
func (u Uint256) BytesBE() []byte {
	b := make([]byte, Uint256Size)
	for i := 0; i < Uint256Size; i++ {
		b[i] = u[Uint256Size-1-i]
	}
	return b
}

// Equals returns true when u and other hold the same value.
func (u Uint256) Equals(other Uint256) bool {
	return u == other
}

// DecodeBinary implements io.Serializable, reading the little-endian
// fixed-width wire form.
func (u *Uint256) DecodeBinary(br *io.BinReader) {
	br.ReadBytes(u[:])
}

// EncodeBinary implements io.Serializable.
func (u *Uint256) EncodeBinary(bw *io.BinWriter) {
	bw.WriteBytes(u[:])
}

// String implements fmt.Stringer, returning big-endian hex without 0x.
func (u Uint256) String() string {
	return hex.EncodeToString(u.BytesBE())
}

// StringLE returns the little-endian hex representation.
func (u Uint256) StringLE() string {
	return hex.EncodeToString(u[:])
}

// MarshalJSON implements the json.Marshaler interface.
func (u Uint256) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + u.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (u *Uint256) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := Uint256DecodeString(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
