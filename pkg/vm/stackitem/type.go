// Package stackitem implements the NeoVM's ten stack-item kinds as a
// tagged variant (spec.md §4.1, §9 "Polymorphism over stack items").
package stackitem

// Type identifies the concrete kind of a stack Item.
type Type byte

// The ten item kinds from spec.md §4.1.
const (
	AnyT            Type = 0x00
	PointerT        Type = 0x10
	BooleanT        Type = 0x20
	IntegerT        Type = 0x21
	ByteStringT     Type = 0x28
	BufferT         Type = 0x30
	ArrayT          Type = 0x40
	StructT         Type = 0x41
	MapT            Type = 0x48
	InteropT        Type = 0x60
)

// String renders the type's mnemonic name.
func (t Type) String() string {
	switch t {
	case AnyT:
		return "Any"
	case PointerT:
		return "Pointer"
	case BooleanT:
		return "Boolean"
	case IntegerT:
		return "Integer"
	case ByteStringT:
		return "ByteString"
	case BufferT:
		return "Buffer"
	case ArrayT:
		return "Array"
	case StructT:
		return "Struct"
	case MapT:
		return "Map"
	case InteropT:
		return "InteropInterface"
	default:
		return "Unknown"
	}
}

// IsValid reports whether t names one of the ten known kinds.
func (t Type) IsValid() bool {
	switch t {
	case AnyT, PointerT, BooleanT, IntegerT, ByteStringT, BufferT, ArrayT, StructT, MapT, InteropT:
		return true
	default:
		return false
	}
}
