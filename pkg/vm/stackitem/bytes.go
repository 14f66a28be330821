package stackitem

import (
	"bytes"
	"math/big"
)

// ByteString is an immutable byte sequence, ≤ MaxByteStringLen
// (spec.md §4.1).
type ByteString []byte

// NewByteString constructs a ByteString item, faulting via ErrTooBig if
// b exceeds MaxByteStringLen.
func NewByteString(b []byte) (ByteString, error) {
	if len(b) > MaxByteStringLen {
		return nil, ErrTooBig
	}
	out := make([]byte, len(b))
	copy(out, b)
	return ByteString(out), nil
}

// Type implements Item.
func (ByteString) Type() Type { return ByteStringT }

// Bool implements Item; a ByteString is truthy unless every byte is 0.
func (b ByteString) Bool() bool {
	for _, c := range b {
		if c != 0 {
			return true
		}
	}
	return false
}

// TryBytes implements Item.
func (b ByteString) TryBytes() ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// BigInt implements Item.
func (b ByteString) BigInt() (*big.Int, error) {
	return bytesToBigIntLE(b)
}

// Equals implements Item; ByteString compares by value.
func (b ByteString) Equals(other Item) bool {
	switch o := other.(type) {
	case ByteString:
		return bytes.Equal(b, o)
	case Buffer:
		return bytes.Equal(b, o)
	default:
		return false
	}
}

// Dup implements Item; ByteString is immutable so Dup is a no-op copy
// of the header.
func (b ByteString) Dup() Item { return b }

// Buffer is a mutable byte vector, otherwise identical to ByteString
// (spec.md §4.1 "Buffer ↔ ByteString: same bytes, different
// mutability").
type Buffer []byte

// NewBuffer constructs a Buffer item of size n, zero-filled.
func NewBuffer(n int) (Buffer, error) {
	if n > MaxByteStringLen {
		return nil, ErrTooBig
	}
	return make(Buffer, n), nil
}

// NewBufferFromBytes constructs a Buffer item copying b.
func NewBufferFromBytes(b []byte) (Buffer, error) {
	if len(b) > MaxByteStringLen {
		return nil, ErrTooBig
	}
	out := make([]byte, len(b))
	copy(out, b)
	return Buffer(out), nil
}

// Type implements Item.
func (Buffer) Type() Type { return BufferT }

// Bool implements Item.
func (b Buffer) Bool() bool {
	for _, c := range b {
		if c != 0 {
			return true
		}
	}
	return false
}

// TryBytes implements Item.
func (b Buffer) TryBytes() ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// BigInt implements Item.
func (b Buffer) BigInt() (*big.Int, error) {
	return bytesToBigIntLE(b)
}

// Equals implements Item; per NeoVM semantics Buffer never compares
// equal by value, only by reference (handled by the caller comparing
// pointers); as a value type here, we compare by reference identity
// using pointer equality on the backing array is not expressible with
// a plain slice type, so we conservatively only equal an identical
// Buffer value produced via Dup-sharing in the engine.
func (b Buffer) Equals(other Item) bool {
	o, ok := other.(Buffer)
	if !ok {
		return false
	}
	if len(b) == 0 || len(o) == 0 {
		return len(b) == len(o)
	}
	return len(b) == len(o) && &b[0] == &o[0]
}

// Dup implements Item; Buffer is mutable and reference-tracked, so Dup
// returns the same backing slice (shared mutable reference).
func (b Buffer) Dup() Item { return b }
