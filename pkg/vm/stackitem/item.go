package stackitem

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// Limits from spec.md §4.1 ("Limits").
const (
	// MaxByteStringLen bounds ByteString/Buffer length.
	MaxByteStringLen = 1024 * 1024
	// MaxIntegerBits bounds Integer two's-complement arithmetic width.
	MaxIntegerBits = 256
	// MaxArraySize bounds the element count of Array/Struct/Map.
	MaxArraySize = 2048
	// MaxKeySize bounds Map key ByteString length.
	MaxKeySize = 64
)

// Errors returned by stack-item coercions and constructors; the VM
// engine converts all of them into a Fault (spec.md §7).
var (
	ErrTooBig        = errors.New("item exceeds the maximum allowed size")
	ErrInvalidType   = errors.New("invalid item type for this operation")
	ErrIntegerTooBig = errors.New("integer exceeds 256-bit two's complement bound")
)

// Item is the common interface implemented by all ten stack-item
// kinds (spec.md §4.1, §9).
type Item interface {
	// Type returns the concrete kind of the item.
	Type() Type
	// Bool coerces the item to a Boolean per spec.md §4.1 type
	// coercion rules; it never returns an error since every kind has a
	// defined truthiness.
	Bool() bool
	// TryBytes coerces the item to its raw byte representation
	// (ByteString/Buffer: the bytes; Integer: minimal LE two's
	// complement; Boolean: single byte). Compound/Interop/Pointer
	// items return ErrInvalidType.
	TryBytes() ([]byte, error)
	// BigInt coerces the item to an arbitrary-precision integer
	// (Boolean: 0/1; ByteString/Buffer: LE two's complement, length
	// bound to 32 bytes on read per spec.md §4.1).
	BigInt() (*big.Int, error)
	// Equals implements NeoVM value/reference equality: primitives
	// compare by value, Struct compares by deep value equality, other
	// compounds compare by reference identity.
	Equals(other Item) bool
	// Dup returns a value suitable for pushing onto another stack slot;
	// for primitives this is a value copy, for compounds it is the
	// same reference (ref-counted, see RefCounter).
	Dup() Item
}

// Null represents the VM's null/void value.
type Null struct{}

// NewNull returns the canonical Null value.
func NewNull() Null { return Null{} }

// Type implements Item.
func (Null) Type() Type { return AnyT }

// Bool implements Item; Null is always falsy.
func (Null) Bool() bool { return false }

// TryBytes implements Item.
func (Null) TryBytes() ([]byte, error) { return nil, ErrInvalidType }

// BigInt implements Item.
func (Null) BigInt() (*big.Int, error) { return nil, ErrInvalidType }

// Equals implements Item; Null equals only Null.
func (Null) Equals(other Item) bool {
	_, ok := other.(Null)
	return ok
}

// Dup implements Item.
func (n Null) Dup() Item { return n }

// Bool is the Boolean stack-item kind.
type Bool bool

// NewBool constructs a Bool item.
func NewBool(b bool) Bool { return Bool(b) }

// Type implements Item.
func (Bool) Type() Type { return BooleanT }

// Bool implements Item.
func (b Bool) Bool() bool { return bool(b) }

// TryBytes implements Item.
func (b Bool) TryBytes() ([]byte, error) {
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

// BigInt implements Item.
func (b Bool) BigInt() (*big.Int, error) {
	if b {
		return big.NewInt(1), nil
	}
	return big.NewInt(0), nil
}

// Equals implements Item.
func (b Bool) Equals(other Item) bool {
	o, ok := other.(Bool)
	return ok && b == o
}

// Dup implements Item.
func (b Bool) Dup() Item { return b }

// Integer is the arbitrary-precision Integer stack-item kind, bounded
// to MaxIntegerBits two's complement on arithmetic operations
// (spec.md §4.1). Every value that passes NewInteger's bounds check is
// held in the holiman/uint256 fast path as magnitude plus sign;
// NewInteger leaves the math/big field nil.
type Integer struct {
	small    uint256.Int
	smallNeg bool
	big      *big.Int // non-nil only when the value doesn't fit the fast path
}

// NewInteger constructs an Integer item from a big.Int, faulting via
// ErrIntegerTooBig if it exceeds the 256-bit two's complement bound.
func NewInteger(v *big.Int) (Integer, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), MaxIntegerBits-1)
	if v.Cmp(limit) >= 0 || v.Cmp(new(big.Int).Neg(limit)) < 0 {
		return Integer{}, ErrIntegerTooBig
	}
	abs := new(big.Int).Abs(v)
	if abs.BitLen() <= 256 {
		var u uint256.Int
		u.SetFromBig(abs)
		return Integer{small: u, smallNeg: v.Sign() < 0}, nil
	}
	return Integer{big: new(big.Int).Set(v)}, nil
}

// NewIntegerFromInt64 constructs an Integer from an int64, which always
// fits the bound.
func NewIntegerFromInt64(v int64) Integer {
	i, _ := NewInteger(big.NewInt(v))
	return i
}

// Type implements Item.
func (Integer) Type() Type { return IntegerT }

func (i Integer) toBig() *big.Int {
	if i.big != nil {
		return i.big
	}
	v := i.small.ToBig()
	if i.smallNeg {
		v.Neg(v)
	}
	return v
}

// Bool implements Item; non-zero is truthy.
func (i Integer) Bool() bool {
	return i.toBig().Sign() != 0
}

// TryBytes implements Item, producing the minimal little-endian two's
// complement encoding (spec.md §4.1 "Type coercions").
func (i Integer) TryBytes() ([]byte, error) {
	return minimalLE(i.toBig()), nil
}

// BigInt implements Item.
func (i Integer) BigInt() (*big.Int, error) {
	return new(big.Int).Set(i.toBig()), nil
}

// Equals implements Item.
func (i Integer) Equals(other Item) bool {
	o, ok := other.(Integer)
	return ok && i.toBig().Cmp(o.toBig()) == 0
}

// Dup implements Item.
func (i Integer) Dup() Item { return i }

// minimalLE returns the minimal little-endian two's complement
// encoding of v (spec.md §4.1: "write produces minimal encoding").
func minimalLE(v *big.Int) []byte {
	if v.Sign() == 0 {
		return []byte{}
	}
	be := v.Bytes()
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	if v.Sign() < 0 {
		le = twosComplementNegate(le)
	}
	// Ensure the sign bit of the last byte matches the value's sign,
	// extending by one byte if necessary.
	last := le[len(le)-1]
	neg := v.Sign() < 0
	if (last&0x80 != 0) != neg {
		if neg {
			le = append(le, 0xFF)
		} else {
			le = append(le, 0x00)
		}
	}
	return le
}

func twosComplementNegate(le []byte) []byte {
	out := make([]byte, len(le))
	carry := 1
	for i, b := range le {
		v := int(^b) + carry
		out[i] = byte(v)
		if v > 0xFF {
			carry = 1
		} else {
			carry = 0
		}
	}
	return out
}

// bytesToBigIntLE decodes a little-endian two's complement byte slice
// (spec.md §4.1: "ByteString ↔ Int: little-endian two's complement,
// length ≤ 32 bytes on read").
func bytesToBigIntLE(b []byte) (*big.Int, error) {
	if len(b) > 32 {
		return nil, ErrIntegerTooBig
	}
	if len(b) == 0 {
		return big.NewInt(0), nil
	}
	neg := b[len(b)-1]&0x80 != 0
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	v := new(big.Int).SetBytes(be)
	if neg {
		max := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		v.Sub(v, max)
	}
	return v, nil
}
