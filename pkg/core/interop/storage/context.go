// Package storage implements the System.Storage.* interop services:
// per-contract storage contexts, get/put/delete, and the Find iterator
// with its bitmask of output-shaping options (spec.md §4.2 "Storage
// interop").
package storage

import (
	"errors"

	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/interop/iterator"
	"github.com/neogo-core/node/pkg/core/native"
	"github.com/neogo-core/node/pkg/core/state"
	"github.com/neogo-core/node/pkg/vm/callflag"
	"github.com/neogo-core/node/pkg/vm/stackitem"
)

// MaxStorageKeyLen and MaxStorageValueLen bound a single storage
// item's key and value, matching the fixed node-wide limits contract
// authors must respect (not configurable per spec.md §4.2).
const (
	MaxStorageKeyLen   = 64
	MaxStorageValueLen = 65535
)

// Find output-shaping options, combined as a bitmask (spec.md §4.2
// "Find option bitmask").
const (
	FindDefault      int64 = 0
	FindRemovePrefix int64 = 1 << 0
	FindKeysOnly     int64 = 1 << 1
	FindValuesOnly   int64 = 1 << 2
	FindDeserialize  int64 = 1 << 3
	FindPick0        int64 = 1 << 4
	FindPick1        int64 = 1 << 5
	FindBackwards    int64 = 1 << 7
	FindAll          int64 = FindRemovePrefix | FindKeysOnly | FindValuesOnly |
		FindDeserialize | FindPick0 | FindPick1 | FindBackwards
)

// ErrGasLimitExceeded is returned when a Put would charge more gas
// than the running VM's remaining limit allows.
var ErrGasLimitExceeded = errors.New("storage: gas limit exceeded")

var errInvalidType = errors.New("storage: invalid Context stack item")

// Context identifies the contract id a storage operation targets and
// whether it was obtained read-only.
type Context struct {
	ID       int32
	ReadOnly bool
}

// GetContext pushes a read/write Context for the currently executing
// contract.
func GetContext(ic *interop.Context) error {
	return getContext(ic, false)
}

// GetReadOnlyContext pushes a read-only Context for the currently
// executing contract.
func GetReadOnlyContext(ic *interop.Context) error {
	return getContext(ic, true)
}

func getContext(ic *interop.Context, readOnly bool) error {
	hash := ic.VM.Context().ScriptHash()
	cs, err := native.GetContractState(ic.DAO, hash)
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(stackitem.NewInterop(&Context{ID: cs.ID, ReadOnly: readOnly}))
	return nil
}

// ContextAsReadOnly replaces the top-of-stack Context with an
// equivalent read-only one.
func ContextAsReadOnly(ic *interop.Context) error {
	stc, err := popContext(ic)
	if err != nil {
		return err
	}
	ro := *stc
	ro.ReadOnly = true
	ic.VM.Estack().Push(stackitem.NewInterop(&ro))
	return nil
}

func popContext(ic *interop.Context) (*Context, error) {
	item := ic.VM.Estack().Pop()
	iface, ok := item.(stackitem.Interop)
	if !ok {
		return nil, errInvalidType
	}
	stc, ok := iface.Value().(*Context)
	if !ok {
		return nil, errInvalidType
	}
	return stc, nil
}

// Get fetches the value stored at the top-of-stack key under the
// next Context, pushing Null if absent.
func Get(ic *interop.Context) error {
	keyItem := ic.VM.Estack().Pop()
	key, err := keyItem.TryBytes()
	if err != nil {
		return err
	}
	stc, err := popContext(ic)
	if err != nil {
		return err
	}
	si := ic.DAO.GetStorageItem(stc.ID, key)
	if si == nil {
		ic.VM.Estack().Push(stackitem.NewNull())
		return nil
	}
	bs, err := stackitem.NewByteString(si)
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(bs)
	return nil
}

// Put stores the top-of-stack value under the next key under the next
// Context, charging a per-byte storage fee gated by the running VM's
// remaining gas (spec.md §4.2 "storage fee").
func Put(ic *interop.Context) error {
	valItem := ic.VM.Estack().Pop()
	value, err := valItem.TryBytes()
	if err != nil {
		return err
	}
	keyItem := ic.VM.Estack().Pop()
	key, err := keyItem.TryBytes()
	if err != nil {
		return err
	}
	stc, err := popContext(ic)
	if err != nil {
		return err
	}
	if len(key) > MaxStorageKeyLen {
		return errors.New("storage: key too big")
	}
	if len(value) > MaxStorageValueLen {
		return errors.New("storage: value too big")
	}
	if stc.ReadOnly {
		return errors.New("storage: StorageContext is read only")
	}

	existing := ic.DAO.GetStorageItem(stc.ID, key)
	sizeInc := len(value)
	switch {
	case existing == nil:
		sizeInc += len(key)
	case len(value) > 0 && len(value) > len(existing):
		sizeInc = len(value) - len(existing)
	default:
		sizeInc = 1
	}

	if sizeInc > 0 {
		if !ic.VM.Context().CallFlags().Has(callflag.WriteStates) {
			return errors.New("storage: missing WriteStates flag")
		}
		if err := ic.VM.AddGas(int64(sizeInc) * native.DefaultStoragePrice); err != nil {
			return ErrGasLimitExceeded
		}
	}

	return ic.DAO.PutStorageItem(stc.ID, key, state.StorageItem(value))
}

// Delete removes the value stored under the top-of-stack key under the
// next Context.
func Delete(ic *interop.Context) error {
	keyItem := ic.VM.Estack().Pop()
	key, err := keyItem.TryBytes()
	if err != nil {
		return err
	}
	stc, err := popContext(ic)
	if err != nil {
		return err
	}
	if stc.ReadOnly {
		return errors.New("storage: StorageContext is read only")
	}
	return ic.DAO.DeleteStorageItem(stc.ID, key)
}

// Find pushes an iterator over the key range in the Context at the
// bottom of its three arguments whose key starts with the prefix in the
// middle, shaped by the top-of-stack options bitmask.
func Find(ic *interop.Context) error {
	optsItem := ic.VM.Estack().Pop()
	bi, err := optsItem.BigInt()
	if err != nil {
		return err
	}
	opts := bi.Int64()
	if opts&(^FindAll) != 0 {
		return errors.New("storage: invalid Find options")
	}
	if opts&FindKeysOnly != 0 && opts&(FindValuesOnly|FindDeserialize|FindPick0|FindPick1) != 0 {
		return errors.New("storage: incompatible Find options")
	}
	if opts&FindPick0 != 0 && opts&FindPick1 != 0 {
		return errors.New("storage: incompatible Find options")
	}
	if (opts&FindPick0 != 0 || opts&FindPick1 != 0) && opts&FindDeserialize == 0 {
		return errors.New("storage: Pick without Deserialize")
	}

	prefixItem := ic.VM.Estack().Pop()
	prefix, err := prefixItem.TryBytes()
	if err != nil {
		return err
	}

	stc, err := popContext(ic)
	if err != nil {
		return err
	}

	var kvs []findResult
	ic.DAO.Seek(stc.ID, prefix, opts&FindBackwards != 0, func(k []byte, v state.StorageItem) bool {
		kvs = append(kvs, findResult{key: append([]byte{}, k...), value: append(state.StorageItem{}, v...)})
		return true
	})

	items := make([]stackitem.Item, 0, len(kvs))
	for _, kv := range kvs {
		item, ok := shapeFindResult(kv.key, kv.value, prefix, opts)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	ic.VM.Estack().Push(stackitem.NewInterop(iterator.NewSliceIterator(items)))
	return nil
}

type findResult struct {
	key   []byte
	value state.StorageItem
}

func byteItem(b []byte) stackitem.Item {
	bs, err := stackitem.NewByteString(b)
	if err != nil {
		return stackitem.NewNull()
	}
	return bs
}

func shapeFindResult(key []byte, value state.StorageItem, prefix []byte, opts int64) (stackitem.Item, bool) {
	outKey := key
	if opts&FindRemovePrefix != 0 {
		outKey = key[len(prefix):]
	}

	if opts&FindValuesOnly == 0 && opts&FindKeysOnly != 0 {
		return byteItem(outKey), true
	}

	var valItem stackitem.Item
	if opts&FindDeserialize != 0 {
		decoded, err := stackitem.Deserialize(value)
		if err != nil {
			return nil, false
		}
		if opts&(FindPick0|FindPick1) != 0 {
			arr, ok := decoded.(stackitem.Array)
			if !ok {
				return nil, false
			}
			idx := 0
			if opts&FindPick1 != 0 {
				idx = 1
			}
			if idx >= arr.Len() {
				return nil, false
			}
			valItem = arr.At(idx)
		} else {
			valItem = decoded
		}
	} else {
		valItem = byteItem(value)
	}

	if opts&FindValuesOnly != 0 {
		return valItem, true
	}
	st, err := stackitem.NewStruct([]stackitem.Item{byteItem(outKey), valItem})
	if err != nil {
		return nil, false
	}
	return st, true
}
