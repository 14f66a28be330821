package stackitem

import "math/big"

// The As* helpers implement spec.md §9's "Polymorphism over stack
// items" design note: typed accessors returning structured errors on
// mismatch instead of open-ended type assertions scattered across the
// engine.

// AsBool coerces item to a Go bool (spec.md §4.1 "Bool → Int").
func AsBool(item Item) bool { return item.Bool() }

// AsBigInt coerces item to *big.Int, or returns an error for
// non-numeric-coercible kinds.
func AsBigInt(item Item) (*big.Int, error) { return item.BigInt() }

// AsBytes coerces item to its byte representation, or returns an
// error for compound/interop/pointer kinds.
func AsBytes(item Item) ([]byte, error) { return item.TryBytes() }

// AsArray asserts item is an Array or Struct, returning its element
// slice.
func AsArray(item Item) ([]Item, error) {
	a, ok := item.(Array)
	if !ok {
		return nil, ErrInvalidType
	}
	return a.Elems(), nil
}

// AsMap asserts item is a Map.
func AsMap(item Item) (Map, error) {
	m, ok := item.(Map)
	if !ok {
		return Map{}, ErrInvalidType
	}
	return m, nil
}

// Make converts a native Go value into the corresponding Item,
// supporting the scalar kinds used pervasively by interop handlers
// marshaling return values onto the stack.
func Make(v any) Item {
	switch t := v.(type) {
	case nil:
		return Null{}
	case Item:
		return t
	case bool:
		return Bool(t)
	case int:
		return NewIntegerFromInt64(int64(t))
	case int64:
		return NewIntegerFromInt64(t)
	case uint32:
		return NewIntegerFromInt64(int64(t))
	case uint64:
		i, _ := NewInteger(new(big.Int).SetUint64(t))
		return i
	case *big.Int:
		i, _ := NewInteger(t)
		return i
	case []byte:
		b, _ := NewByteString(t)
		return b
	case string:
		b, _ := NewByteString([]byte(t))
		return b
	default:
		return Null{}
	}
}
