// Package iterator implements the System.Iterator.* interop services:
// a cursor over a pre-collected result set, consumed one item at a
// time via Next/Value (spec.md §4.2 "Iterator"). Results are
// snapshotted at the point their producing call (e.g. storage.Find)
// ran, not re-evaluated lazily against the DAO.
package iterator

import (
	"errors"

	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/vm/stackitem"
)

var errInvalidType = errors.New("iterator: invalid Iterator stack item")

// Iterator is the minimal cursor contract storage.Find and any other
// interop producing an iterator must satisfy.
type Iterator interface {
	Next() bool
	Value() stackitem.Item
}

type sliceIterator struct {
	items []stackitem.Item
	idx   int
}

// NewSliceIterator returns an Iterator over a fixed, pre-collected
// slice of items.
func NewSliceIterator(items []stackitem.Item) Iterator {
	return &sliceIterator{items: items, idx: -1}
}

func (s *sliceIterator) Next() bool {
	if s.idx+1 >= len(s.items) {
		return false
	}
	s.idx++
	return true
}

func (s *sliceIterator) Value() stackitem.Item {
	return s.items[s.idx]
}

func popIterator(ic *interop.Context) (Iterator, error) {
	item := ic.VM.Estack().Pop()
	iface, ok := item.(stackitem.Interop)
	if !ok {
		return nil, errInvalidType
	}
	it, ok := iface.Value().(Iterator)
	if !ok {
		return nil, errInvalidType
	}
	return it, nil
}

// Next advances the top-of-stack Iterator and pushes whether it has a
// current item.
func Next(ic *interop.Context) error {
	it, err := popIterator(ic)
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(stackitem.NewBool(it.Next()))
	return nil
}

// Value pushes the top-of-stack Iterator's current item; it panics
// (like the reference semantics it mirrors) if Next was never called
// or already returned false, since that is a contract-author bug, not
// a recoverable runtime fault.
func Value(ic *interop.Context) error {
	it, err := popIterator(ic)
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(it.Value())
	return nil
}
