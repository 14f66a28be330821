package stackitem

import (
	"errors"

	"github.com/neogo-core/node/pkg/io"
)

// MaxSize bounds the total encoded size of one Serialize call
// (spec.md §4.1 "Serialize/Deserialize ... bounded total size").
const MaxSize = 1024 * 1024

// ErrUnserializable is returned for kinds with no binary encoding
// (Pointer, Interop).
var ErrUnserializable = errors.New("item cannot be serialized")

// Serialize encodes item using the tagged stack-item binary format
// (spec.md §4.1): a one-byte Type tag followed by a kind-specific
// payload, recursing into Array/Struct/Map elements. The result is
// bounded to MaxSize.
func Serialize(item Item) ([]byte, error) {
	w := io.NewBufBinWriter()
	EncodeBinary(item, w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	data := w.Bytes()
	if len(data) > MaxSize {
		return nil, ErrTooBig
	}
	return data, nil
}

// EncodeBinary writes item's tagged binary encoding to bw, faulting
// bw.Err on an unserializable kind or a cyclic compound reference.
func EncodeBinary(item Item, bw *io.BinWriter) {
	encodeBinary(item, bw, make(map[any]bool))
}

func encodeBinary(item Item, bw *io.BinWriter, seen map[any]bool) {
	if bw.Err != nil {
		return
	}
	switch t := item.(type) {
	case Null:
		bw.WriteB(byte(AnyT))
	case Bool:
		bw.WriteB(byte(BooleanT))
		if t {
			bw.WriteB(1)
		} else {
			bw.WriteB(0)
		}
	case Integer:
		bw.WriteB(byte(IntegerT))
		b, _ := t.TryBytes()
		bw.WriteVarBytes(b)
	case ByteString:
		bw.WriteB(byte(ByteStringT))
		bw.WriteVarBytes(t)
	case Buffer:
		bw.WriteB(byte(BufferT))
		bw.WriteVarBytes(t)
	case Array:
		encodeCompound(t.arrayItem, t.isStruct, t, bw, seen)
	case Map:
		if seen[t.mapItem] {
			bw.Err = errors.New("stackitem: circular reference")
			return
		}
		seen[t.mapItem] = true
		bw.WriteB(byte(MapT))
		bw.WriteVarUint(uint64(t.Len()))
		for _, k := range t.Keys() {
			encodeBinary(k, bw, seen)
			v, _ := t.Get(k)
			encodeBinary(v, bw, seen)
		}
	default:
		bw.Err = ErrUnserializable
	}
}

func encodeCompound(backing *arrayItem, isStruct bool, a Array, bw *io.BinWriter, seen map[any]bool) {
	if seen[backing] {
		bw.Err = errors.New("stackitem: circular reference")
		return
	}
	seen[backing] = true
	if isStruct {
		bw.WriteB(byte(StructT))
	} else {
		bw.WriteB(byte(ArrayT))
	}
	bw.WriteVarUint(uint64(a.Len()))
	for i := 0; i < a.Len(); i++ {
		encodeBinary(a.At(i), bw, seen)
	}
}

// Deserialize decodes data produced by Serialize back into an Item.
func Deserialize(data []byte) (Item, error) {
	br := io.NewBinReaderFromBuf(data)
	item := DecodeBinary(br)
	if br.Err != nil {
		return nil, br.Err
	}
	return item, nil
}

// DecodeBinary reads one tagged item from br, recursing into compound
// payloads; br.Err is set on malformed input.
func DecodeBinary(br *io.BinReader) Item {
	typ := Type(br.ReadB())
	if br.Err != nil {
		return nil
	}
	switch typ {
	case AnyT:
		return Null{}
	case BooleanT:
		b := br.ReadB()
		return Bool(b != 0)
	case IntegerT:
		raw := br.ReadVarBytes()
		if br.Err != nil {
			return nil
		}
		v, err := bytesToBigIntLE(raw)
		if err != nil {
			br.Err = err
			return nil
		}
		i, err := NewInteger(v)
		if err != nil {
			br.Err = err
			return nil
		}
		return i
	case ByteStringT:
		raw := br.ReadVarBytes()
		bs, err := NewByteString(raw)
		if err != nil {
			br.Err = err
			return nil
		}
		return bs
	case BufferT:
		raw := br.ReadVarBytes()
		buf, err := NewBufferFromBytes(raw)
		if err != nil {
			br.Err = err
			return nil
		}
		return buf
	case ArrayT, StructT:
		n := br.ReadVarUint()
		if br.Err != nil {
			return nil
		}
		elems := make([]Item, n)
		for i := range elems {
			elems[i] = DecodeBinary(br)
			if br.Err != nil {
				return nil
			}
		}
		var a Array
		var err error
		if typ == StructT {
			a, err = NewStruct(elems)
		} else {
			a, err = NewArray(elems)
		}
		if err != nil {
			br.Err = err
			return nil
		}
		return a
	case MapT:
		n := br.ReadVarUint()
		if br.Err != nil {
			return nil
		}
		m := NewMap()
		for i := uint64(0); i < n; i++ {
			k := DecodeBinary(br)
			v := DecodeBinary(br)
			if br.Err != nil {
				return nil
			}
			if err := m.Set(k, v); err != nil {
				br.Err = err
				return nil
			}
		}
		return m
	default:
		br.Err = errors.New("stackitem: unknown type tag")
		return nil
	}
}
