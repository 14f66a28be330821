package stackitem

import "math/big"

// Pointer references an offset within a specific script, produced by
// PUSHA and consumed by CALLA (spec.md §4.1).
type Pointer struct {
	Offset     int
	ScriptHash [20]byte
}

// NewPointer constructs a Pointer item.
func NewPointer(offset int, scriptHash [20]byte) Pointer {
	return Pointer{Offset: offset, ScriptHash: scriptHash}
}

// Type implements Item.
func (Pointer) Type() Type { return PointerT }

// Bool implements Item; pointers are always truthy.
func (Pointer) Bool() bool { return true }

// TryBytes implements Item.
func (Pointer) TryBytes() ([]byte, error) { return nil, ErrInvalidType }

// BigInt implements Item.
func (Pointer) BigInt() (*big.Int, error) { return nil, ErrInvalidType }

// Equals implements Item.
func (p Pointer) Equals(other Item) bool {
	o, ok := other.(Pointer)
	return ok && p == o
}

// Dup implements Item.
func (p Pointer) Dup() Item { return p }

// Interop wraps an opaque host-side handle (iterator, storage context)
// that the VM stack can carry without interpreting (spec.md §4.1
// "InteropInterface(opaque handle)").
type Interop struct {
	value any
}

// NewInterop constructs an Interop item wrapping v.
func NewInterop(v any) Interop {
	return Interop{value: v}
}

// Value returns the wrapped handle.
func (i Interop) Value() any { return i.value }

// Type implements Item.
func (Interop) Type() Type { return InteropT }

// Bool implements Item; an Interop handle is always truthy.
func (Interop) Bool() bool { return true }

// TryBytes implements Item.
func (Interop) TryBytes() ([]byte, error) { return nil, ErrInvalidType }

// BigInt implements Item.
func (Interop) BigInt() (*big.Int, error) { return nil, ErrInvalidType }

// Equals implements Item; Interop compares by reference identity of
// the wrapped handle.
func (i Interop) Equals(other Item) bool {
	o, ok := other.(Interop)
	return ok && i.value == o.value
}

// Dup implements Item.
func (i Interop) Dup() Item { return i }
