package stackitem

import "math/big"

// arrayItem is the shared backing store for Array and Struct items; it
// is always referenced through a pointer so RefCounter can use pointer
// identity as the tracking key and so mutation through one Dup'd
// reference is visible through every other (spec.md §4.1 "Compound
// types ... are reference-tracked").
type arrayItem struct {
	elems []Item
}

// Array is an ordered, mutable, reference-compared compound item.
type Array struct {
	*arrayItem
	isStruct bool
}

// NewArray constructs an Array wrapping elems (no copy), bounded to
// MaxArraySize.
func NewArray(elems []Item) (Array, error) {
	if len(elems) > MaxArraySize {
		return Array{}, ErrTooBig
	}
	return Array{arrayItem: &arrayItem{elems: elems}}, nil
}

// NewStruct constructs a Struct (value-equality Array variant).
func NewStruct(elems []Item) (Array, error) {
	a, err := NewArray(elems)
	if err != nil {
		return a, err
	}
	a.isStruct = true
	return a, nil
}

// Type implements Item.
func (a Array) Type() Type {
	if a.isStruct {
		return StructT
	}
	return ArrayT
}

// Bool implements Item; arrays and structs are always truthy.
func (Array) Bool() bool { return true }

// TryBytes implements Item.
func (Array) TryBytes() ([]byte, error) { return nil, ErrInvalidType }

// BigInt implements Item.
func (Array) BigInt() (*big.Int, error) { return nil, ErrInvalidType }

// Len returns the element count.
func (a Array) Len() int { return len(a.elems) }

// Append adds an item to the end, bounded to MaxArraySize.
func (a Array) Append(item Item) error {
	if len(a.elems) >= MaxArraySize {
		return ErrTooBig
	}
	a.elems = append(a.elems, item)
	return nil
}

// At returns the element at index i.
func (a Array) At(i int) Item { return a.elems[i] }

// Set replaces the element at index i.
func (a Array) Set(i int, item Item) { a.elems[i] = item }

// Elems returns the backing slice (shared, not copied).
func (a Array) Elems() []Item { return a.elems }

// Remove deletes the element at index i, preserving order.
func (a Array) Remove(i int) {
	a.elems = append(a.elems[:i], a.elems[i+1:]...)
}

// Clear empties the array in place.
func (a Array) Clear() { a.elems = a.elems[:0] }

// refKey implements countable.
func (a Array) refKey() any { return a.arrayItem }

// Equals implements Item. Struct compares by deep value equality
// (recursively), Array and other compounds compare by reference
// identity only (spec.md §4.1 "Struct (value-equality)").
func (a Array) Equals(other Item) bool {
	o, ok := other.(Array)
	if !ok {
		return false
	}
	if !a.isStruct {
		return a.arrayItem == o.arrayItem
	}
	if !o.isStruct || len(a.elems) != len(o.elems) {
		return false
	}
	for i := range a.elems {
		if !a.elems[i].Equals(o.elems[i]) {
			return false
		}
	}
	return true
}

// Dup implements Item: both Array and Struct share their backing
// store across Dup (reference semantics) — callers that need a deep
// Struct clone (e.g. the CONVERT/assignment-by-value rules some
// opcodes apply to Struct) must use DeepCopy explicitly.
func (a Array) Dup() Item { return a }

// DeepCopy returns a Struct with an independent backing store and
// recursively deep-copied Struct elements, matching NeoVM's
// pass-by-value Struct semantics on STLOC/parameter binding.
func (a Array) DeepCopy() Array {
	elems := make([]Item, len(a.elems))
	for i, e := range a.elems {
		if s, ok := e.(Array); ok && s.isStruct {
			elems[i] = s.DeepCopy()
		} else {
			elems[i] = e
		}
	}
	out, _ := NewArray(elems)
	out.isStruct = a.isStruct
	return out
}

// mapItem is the shared backing store for Map items.
type mapItem struct {
	keys []Item
	vals map[any]Item
	idx  map[any]int
}

// Map is an ordered-insertion, mutable, reference-compared compound
// item whose keys are restricted to primitive types.
type Map struct {
	*mapItem
}

// NewMap constructs an empty Map.
func NewMap() Map {
	return Map{mapItem: &mapItem{vals: make(map[any]Item), idx: make(map[any]int)}}
}

// Type implements Item.
func (Map) Type() Type { return MapT }

// Bool implements Item; maps are always truthy.
func (Map) Bool() bool { return true }

// TryBytes implements Item.
func (Map) TryBytes() ([]byte, error) { return nil, ErrInvalidType }

// BigInt implements Item.
func (Map) BigInt() (*big.Int, error) { return nil, ErrInvalidType }

// mapKey converts a primitive Item into a Go-comparable map key.
func mapKey(k Item) (any, error) {
	switch v := k.(type) {
	case Bool:
		return v, nil
	case Integer:
		s, _ := v.TryBytes()
		return string(s) + "#int", nil
	case ByteString:
		if len(v) > MaxKeySize {
			return nil, ErrTooBig
		}
		return string(v) + "#bs", nil
	case Buffer:
		if len(v) > MaxKeySize {
			return nil, ErrTooBig
		}
		return string(v) + "#bs", nil
	default:
		return nil, ErrInvalidType
	}
}

// Set inserts or updates the value for key k, bounded to MaxArraySize
// distinct keys.
func (m Map) Set(k, v Item) error {
	mk, err := mapKey(k)
	if err != nil {
		return err
	}
	if _, ok := m.idx[mk]; !ok {
		if len(m.keys) >= MaxArraySize {
			return ErrTooBig
		}
		m.idx[mk] = len(m.keys)
		m.keys = append(m.keys, k)
	}
	m.vals[mk] = v
	return nil
}

// Get returns the value for key k and whether it was present.
func (m Map) Get(k Item) (Item, bool) {
	mk, err := mapKey(k)
	if err != nil {
		return nil, false
	}
	v, ok := m.vals[mk]
	return v, ok
}

// Delete removes key k if present.
func (m Map) Delete(k Item) {
	mk, err := mapKey(k)
	if err != nil {
		return
	}
	i, ok := m.idx[mk]
	if !ok {
		return
	}
	delete(m.vals, mk)
	delete(m.idx, mk)
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	for j := i; j < len(m.keys); j++ {
		nk, _ := mapKey(m.keys[j])
		m.idx[nk] = j
	}
}

// Len returns the number of entries.
func (m Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m Map) Keys() []Item { return m.keys }

// Values returns the values in key-insertion order.
func (m Map) Values() []Item {
	out := make([]Item, len(m.keys))
	for i, k := range m.keys {
		mk, _ := mapKey(k)
		out[i] = m.vals[mk]
	}
	return out
}

// refKey implements countable.
func (m Map) refKey() any { return m.mapItem }

// Equals implements Item; Map compares by reference identity.
func (m Map) Equals(other Item) bool {
	o, ok := other.(Map)
	return ok && m.mapItem == o.mapItem
}

// Dup implements Item; Map shares its backing store across Dup.
func (m Map) Dup() Item { return m }

// refKey implements countable for Buffer via its backing array
// identity, so mutation through one Dup'd reference is reflected in
// RefCounter bookkeeping the same way arrays and maps are.
func (b Buffer) refKey() any {
	if len(b) == 0 {
		return (*byte)(nil)
	}
	return &b[0]
}
