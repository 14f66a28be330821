package vm

import "github.com/neogo-core/node/pkg/vm/stackitem"

func (v *VM) memcpy() error {
	count, err := v.popBigInt()
	if err != nil {
		return err
	}
	srcIndex, err := v.popBigInt()
	if err != nil {
		return err
	}
	srcBytes, err := stackitem.AsBytes(v.popItem())
	if err != nil {
		return err
	}
	dstIndex, err := v.popBigInt()
	if err != nil {
		return err
	}
	dst, ok := v.popItem().(stackitem.Buffer)
	if !ok {
		return fault("MEMCPY: destination is not a Buffer")
	}
	n := int(count.Int64())
	si := int(srcIndex.Int64())
	di := int(dstIndex.Int64())
	if si < 0 || di < 0 || n < 0 || si+n > len(srcBytes) || di+n > len(dst) {
		return fault("MEMCPY: out of bounds")
	}
	copy(dst[di:di+n], srcBytes[si:si+n])
	return nil
}

func (v *VM) splice2(fn func(a, b []byte) ([]byte, error)) error {
	b, err := stackitem.AsBytes(v.popItem())
	if err != nil {
		return err
	}
	a, err := stackitem.AsBytes(v.popItem())
	if err != nil {
		return err
	}
	out, err := fn(a, b)
	if err != nil {
		return err
	}
	if len(out) > stackitem.MaxByteStringLen {
		return stackitem.ErrTooBig
	}
	buf, err := stackitem.NewBufferFromBytes(out)
	if err != nil {
		return err
	}
	return v.pushItem(buf)
}

func (v *VM) substr() error {
	count, err := v.popBigInt()
	if err != nil {
		return err
	}
	index, err := v.popBigInt()
	if err != nil {
		return err
	}
	b, err := stackitem.AsBytes(v.popItem())
	if err != nil {
		return err
	}
	i, n := int(index.Int64()), int(count.Int64())
	if i < 0 || n < 0 || i+n > len(b) {
		return fault("SUBSTR: out of bounds")
	}
	buf, err := stackitem.NewBufferFromBytes(append([]byte(nil), b[i:i+n]...))
	if err != nil {
		return err
	}
	return v.pushItem(buf)
}

func (v *VM) sliceN(fromRight bool) error {
	count, err := v.popBigInt()
	if err != nil {
		return err
	}
	b, err := stackitem.AsBytes(v.popItem())
	if err != nil {
		return err
	}
	n := int(count.Int64())
	if n < 0 || n > len(b) {
		return fault("LEFT/RIGHT: out of bounds")
	}
	var out []byte
	if fromRight {
		out = append([]byte(nil), b[len(b)-n:]...)
	} else {
		out = append([]byte(nil), b[:n]...)
	}
	buf, err := stackitem.NewBufferFromBytes(out)
	if err != nil {
		return err
	}
	return v.pushItem(buf)
}

func (v *VM) pack(isStruct bool) error {
	count, err := v.popBigInt()
	if err != nil {
		return err
	}
	n := int(count.Int64())
	elems := make([]stackitem.Item, n)
	for i := 0; i < n; i++ {
		elems[i] = v.popItem()
	}
	var item stackitem.Item
	if isStruct {
		item, err = stackitem.NewStruct(elems)
	} else {
		item, err = stackitem.NewArray(elems)
	}
	if err != nil {
		return err
	}
	return v.pushItem(item)
}

func (v *VM) packMap() error {
	count, err := v.popBigInt()
	if err != nil {
		return err
	}
	n := int(count.Int64())
	m := stackitem.NewMap()
	for i := 0; i < n; i++ {
		val := v.popItem()
		key := v.popItem()
		if err := m.Set(key, val); err != nil {
			return err
		}
	}
	return v.pushItem(m)
}

func (v *VM) unpack() error {
	item := v.popItem()
	elems, err := stackitem.AsArray(item)
	if err != nil {
		return err
	}
	for i := len(elems) - 1; i >= 0; i-- {
		if err := v.pushItem(elems[i].Dup()); err != nil {
			return err
		}
	}
	return v.pushItem(stackitem.NewIntegerFromInt64(int64(len(elems))))
}

func (v *VM) newArrayN(isStruct bool) error {
	count, err := v.popBigInt()
	if err != nil {
		return err
	}
	n := int(count.Int64())
	if n < 0 || n > stackitem.MaxArraySize {
		return stackitem.ErrTooBig
	}
	elems := make([]stackitem.Item, n)
	for i := range elems {
		elems[i] = stackitem.NewNull()
	}
	var item stackitem.Item
	if isStruct {
		item, err = stackitem.NewStruct(elems)
	} else {
		item, err = stackitem.NewArray(elems)
	}
	if err != nil {
		return err
	}
	return v.pushItem(item)
}

func (v *VM) size() error {
	item := v.popItem()
	switch t := item.(type) {
	case stackitem.Array:
		return v.pushItem(stackitem.NewIntegerFromInt64(int64(t.Len())))
	case stackitem.Map:
		return v.pushItem(stackitem.NewIntegerFromInt64(int64(t.Len())))
	default:
		b, err := item.TryBytes()
		if err != nil {
			return err
		}
		return v.pushItem(stackitem.NewIntegerFromInt64(int64(len(b))))
	}
}

func (v *VM) haskey() error {
	key := v.popItem()
	item := v.popItem()
	switch t := item.(type) {
	case stackitem.Array:
		idx, err := key.BigInt()
		if err != nil {
			return err
		}
		i := int(idx.Int64())
		return v.pushItem(stackitem.NewBool(i >= 0 && i < t.Len()))
	case stackitem.Map:
		_, ok := t.Get(key)
		return v.pushItem(stackitem.NewBool(ok))
	default:
		return fault("HASKEY: unsupported type")
	}
}

func (v *VM) pickItem() error {
	key := v.popItem()
	item := v.popItem()
	switch t := item.(type) {
	case stackitem.Array:
		idx, err := key.BigInt()
		if err != nil {
			return err
		}
		i := int(idx.Int64())
		if i < 0 || i >= t.Len() {
			return fault("PICKITEM: index out of range")
		}
		return v.pushItem(t.At(i).Dup())
	case stackitem.Map:
		val, ok := t.Get(key)
		if !ok {
			return fault("PICKITEM: key not found")
		}
		return v.pushItem(val.Dup())
	default:
		b, err := item.TryBytes()
		if err != nil {
			return err
		}
		idx, err := key.BigInt()
		if err != nil {
			return err
		}
		i := int(idx.Int64())
		if i < 0 || i >= len(b) {
			return fault("PICKITEM: index out of range")
		}
		return v.pushItem(stackitem.NewIntegerFromInt64(int64(b[i])))
	}
}

func (v *VM) setItem() error {
	val := v.popItem()
	key := v.popItem()
	item := v.popItem()
	switch t := item.(type) {
	case stackitem.Array:
		idx, err := key.BigInt()
		if err != nil {
			return err
		}
		i := int(idx.Int64())
		if i < 0 || i >= t.Len() {
			return fault("SETITEM: index out of range")
		}
		t.Set(i, val)
		return nil
	case stackitem.Map:
		return t.Set(key, val)
	default:
		return fault("SETITEM: unsupported type")
	}
}

func (v *VM) remove() error {
	key := v.popItem()
	item := v.popItem()
	switch t := item.(type) {
	case stackitem.Array:
		idx, err := key.BigInt()
		if err != nil {
			return err
		}
		i := int(idx.Int64())
		if i < 0 || i >= t.Len() {
			return fault("REMOVE: index out of range")
		}
		t.Remove(i)
		return nil
	case stackitem.Map:
		t.Delete(key)
		return nil
	default:
		return fault("REMOVE: unsupported type")
	}
}

func (v *VM) convert(t stackitem.Type) error {
	item := v.popItem()
	if item.Type() == t {
		return v.pushItem(item)
	}
	switch t {
	case stackitem.BooleanT:
		return v.pushItem(stackitem.NewBool(item.Bool()))
	case stackitem.IntegerT:
		n, err := item.BigInt()
		if err != nil {
			return err
		}
		out, err := stackitem.NewInteger(n)
		if err != nil {
			return err
		}
		return v.pushItem(out)
	case stackitem.ByteStringT:
		b, err := item.TryBytes()
		if err != nil {
			return err
		}
		out, err := stackitem.NewByteString(b)
		if err != nil {
			return err
		}
		return v.pushItem(out)
	case stackitem.BufferT:
		b, err := item.TryBytes()
		if err != nil {
			return err
		}
		out, err := stackitem.NewBufferFromBytes(b)
		if err != nil {
			return err
		}
		return v.pushItem(out)
	default:
		return fault("CONVERT: unsupported target type")
	}
}
