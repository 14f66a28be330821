// Package dao layers typed accessors over pkg/core/storage: contract
// storage items, deployed contract records, blocks/transactions and
// application execution logs, plus the Unchanged/Added/Changed/Deleted
// overlay a block's execution writes through before being committed to
// the underlying Store (spec.md §3 "DataCache").
package dao

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sort"

	"github.com/neogo-core/node/pkg/core/block"
	"github.com/neogo-core/node/pkg/core/state"
	"github.com/neogo-core/node/pkg/core/storage"
	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/trigger"
)

// Version is the on-disk schema marker.
type Version struct {
	Prefix byte
	Value  string
}

// ErrNotFound is returned for any typed lookup that misses.
var ErrNotFound = errors.New("dao: not found")

// entryState is the DataCache per-key lifecycle (spec.md §3).
type entryState byte

const (
	stateUnchanged entryState = iota
	stateAdded
	stateChanged
	stateDeleted
)

type cacheEntry struct {
	value []byte
	state entryState
}

// Simple is a DataCache overlay over a storage.Store: reads check the
// in-memory overlay first and fall back to the backing Store; writes
// land only in the overlay until Persist flushes them as one batch.
type Simple struct {
	Store    storage.Store
	parent   *Simple
	mptOn    bool
	keepHist bool
	overlay  map[string]*cacheEntry
}

// NewSimple wraps backing with a fresh, empty overlay. mptEnabled and
// keepHistory are carried through from the protocol configuration but
// do not change Simple's own read/write behavior; callers above it
// (mpt.Billet, stateroot) consult them.
func NewSimple(backing storage.Store, mptEnabled, keepHistory bool) *Simple {
	return &Simple{
		Store:    backing,
		mptOn:    mptEnabled,
		keepHist: keepHistory,
		overlay:  make(map[string]*cacheEntry),
	}
}

func (d *Simple) get(key []byte) ([]byte, bool) {
	if e, ok := d.overlay[string(key)]; ok {
		if e.state == stateDeleted {
			return nil, false
		}
		return e.value, true
	}
	if d.parent != nil {
		return d.parent.get(key)
	}
	v, err := d.Store.Get(key)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (d *Simple) put(key, value []byte) {
	e, existed := d.overlay[string(key)]
	st := stateChanged
	if !existed {
		if _, ok := d.get(key); !ok {
			st = stateAdded
		}
	}
	if e == nil {
		e = &cacheEntry{}
		d.overlay[string(key)] = e
	}
	e.value = value
	e.state = st
}

func (d *Simple) del(key []byte) {
	d.overlay[string(key)] = &cacheEntry{state: stateDeleted}
}

// Put serializes s and stores it under key.
func (d *Simple) Put(s io.Serializable, key []byte) error {
	buf := io.NewBufBinWriter()
	s.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return buf.Err
	}
	d.put(key, buf.Bytes())
	return nil
}

// Delete removes the record stored under key, through the same
// overlay Put writes land in.
func (d *Simple) Delete(key []byte) error {
	d.del(key)
	return nil
}

// Changes returns every key this overlay itself has written or
// deleted, without touching the parent/backing store; a nil value
// means the key was deleted. The ledger's persist procedure uses this
// to drive the state trie's per-block update and to capture an undo
// record for reorg (spec.md §4.4 "cumulative change set").
func (d *Simple) Changes() map[string][]byte {
	out := make(map[string][]byte, len(d.overlay))
	for k, e := range d.overlay {
		if e.state == stateDeleted {
			out[k] = nil
		} else {
			out[k] = e.value
		}
	}
	return out
}

// GetAndDecode looks up key and decodes it into s.
func (d *Simple) GetAndDecode(s io.Serializable, key []byte) error {
	v, ok := d.get(key)
	if !ok {
		return ErrNotFound
	}
	br := io.NewBinReaderFromBuf(v)
	s.DecodeBinary(br)
	return br.Err
}

func storageKey(id int32, key []byte) []byte {
	out := make([]byte, 1+4+len(key))
	out[0] = byte(storage.STStorage)
	binary.LittleEndian.PutUint32(out[1:5], uint32(id))
	copy(out[5:], key)
	return out
}

// PutStorageItem stores a contract storage value under (id, key).
func (d *Simple) PutStorageItem(id int32, key []byte, si state.StorageItem) error {
	d.put(storageKey(id, key), []byte(si))
	return nil
}

// GetStorageItem fetches the value stored under (id, key), or nil if
// absent.
func (d *Simple) GetStorageItem(id int32, key []byte) state.StorageItem {
	v, ok := d.get(storageKey(id, key))
	if !ok {
		return nil
	}
	return state.StorageItem(v)
}

// DeleteStorageItem removes the value stored under (id, key).
func (d *Simple) DeleteStorageItem(id int32, key []byte) error {
	d.del(storageKey(id, key))
	return nil
}

// Seek iterates contract id's storage items whose key has the given
// prefix, longest-first-overlay-aware: overlay entries shadow the
// backing Store, matching DataCache's layered-read semantics.
func (d *Simple) Seek(id int32, prefix []byte, backwards bool, f func(k []byte, v state.StorageItem) bool) {
	base := append([]byte{byte(storage.STStorage)}, make([]byte, 4)...)
	binary.LittleEndian.PutUint32(base[1:5], uint32(id))
	fullPrefix := append(base, prefix...)

	seen := make(map[string]bool)
	var kvs []storage.KeyValue
	for c := d; c != nil; c = c.parent {
		for k, e := range c.overlay {
			if seen[k] {
				continue
			}
			if len(k) < len(fullPrefix) || k[:len(fullPrefix)] != string(fullPrefix) {
				continue
			}
			seen[k] = true
			if e.state == stateDeleted {
				continue
			}
			kvs = append(kvs, storage.KeyValue{Key: []byte(k), Value: e.value})
		}
		if c.parent == nil {
			c.Store.Seek(storage.SeekRange{Prefix: fullPrefix, Backwards: backwards}, func(k, v []byte) bool {
				if !seen[string(k)] {
					seen[string(k)] = true
					kvs = append(kvs, storage.KeyValue{Key: append([]byte{}, k...), Value: append([]byte{}, v...)})
				}
				return true
			})
		}
	}

	sortKVs(kvs, backwards)
	for _, kv := range kvs {
		storageKeySuffix := kv.Key[len(base):]
		if !f(storageKeySuffix, state.StorageItem(kv.Value)) {
			return
		}
	}
}

func sortKVs(kvs []storage.KeyValue, backwards bool) {
	sort.Slice(kvs, func(i, j int) bool {
		c := bytes.Compare(kvs[i].Key, kvs[j].Key)
		if backwards {
			return c > 0
		}
		return c < 0
	})
}

// GetVersion reads the persisted schema Version record.
func (d *Simple) GetVersion() (Version, error) {
	v, ok := d.get(storage.SYSVersion.Bytes())
	if !ok {
		return Version{}, ErrNotFound
	}
	if len(v) == 0 {
		return Version{}, ErrNotFound
	}
	return Version{Prefix: v[0], Value: string(v[1:])}, nil
}

// PutVersion stores the schema Version record.
func (d *Simple) PutVersion(v Version) error {
	out := append([]byte{v.Prefix}, []byte(v.Value)...)
	d.put(storage.SYSVersion.Bytes(), out)
	return nil
}

// StoreAsBlock persists b under its hash, keyed by DataExecutable.
func (d *Simple) StoreAsBlock(b *block.Block, aer *state.AppExecResult) error {
	buf := io.NewBufBinWriter()
	b.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return buf.Err
	}
	h := b.Hash()
	d.put(blockKey(h), buf.Bytes())
	if aer != nil {
		return d.AppendAppExecResult(aer, nil)
	}
	return nil
}

// GetBlock fetches and decodes the block stored under hash.
func (d *Simple) GetBlock(hash util.Uint256) (*block.Block, error) {
	v, ok := d.get(blockKey(hash))
	if !ok {
		return nil, ErrNotFound
	}
	b := &block.Block{}
	br := io.NewBinReaderFromBuf(v)
	b.DecodeBinary(br)
	if br.Err != nil {
		return nil, br.Err
	}
	return b, nil
}

func blockKey(h util.Uint256) []byte {
	return append([]byte{byte(storage.DataExecutable)}, h.Bytes()...)
}

func aerKey(h util.Uint256, trig trigger.Type) []byte {
	return append([]byte{byte(storage.DataExecutable), 'a', byte(trig)}, h.Bytes()...)
}

// AppendAppExecResult persists one execution record for its container
// hash under the given trigger; bw is accepted for batching symmetry
// with the teacher's call sites but unused by this in-overlay DAO.
func (d *Simple) AppendAppExecResult(aer *state.AppExecResult, _ *io.BinWriter) error {
	buf := io.NewBufBinWriter()
	encodeAppExecResult(buf.BinWriter, aer)
	if buf.Err != nil {
		return buf.Err
	}
	d.put(aerKey(aer.Container, aer.Trigger), buf.Bytes())
	return nil
}

// GetAppExecResults fetches all execution records for hash matching
// trig (trigger.All matches every trigger kind).
func (d *Simple) GetAppExecResults(hash util.Uint256, trig trigger.Type) ([]state.AppExecResult, error) {
	var out []state.AppExecResult
	for _, t := range []trigger.Type{trigger.OnPersist, trigger.PostPersist, trigger.Verification, trigger.Application, trigger.System} {
		if trig != trigger.All && trig != t {
			continue
		}
		v, ok := d.get(aerKey(hash, t))
		if !ok {
			continue
		}
		aer, err := decodeAppExecResult(v)
		if err != nil {
			return nil, err
		}
		out = append(out, *aer)
	}
	return out, nil
}

// Persist flushes this overlay into its parent (if GetWrapped'd) or,
// at the root, as a single batch to the backing Store; either way the
// overlay is cleared afterward. This is the commit half of the
// DataCache's layered-commit-point design (spec.md §4.4 persist
// procedure): a transaction's wrapped DAO discards its overlay instead
// of calling Persist when its execution faults.
func (d *Simple) Persist() error {
	if d.parent != nil {
		for k, e := range d.overlay {
			d.parent.overlay[k] = e
		}
		d.overlay = make(map[string]*cacheEntry)
		return nil
	}
	puts := make(map[string][]byte)
	dels := make(map[string]bool)
	for k, e := range d.overlay {
		if e.state == stateDeleted {
			dels[k] = true
		} else {
			puts[k] = e.value
		}
	}
	if err := d.Store.PutChangeSet(puts, dels); err != nil {
		return err
	}
	d.overlay = make(map[string]*cacheEntry)
	return nil
}

// GetWrapped returns a child Simple whose reads fall through to d and
// whose writes land only in its own overlay until Persist, giving each
// transaction in a block its own discardable commit point (spec.md
// §4.4 "on Fault the transaction's storage writes are discarded").
func (d *Simple) GetWrapped() *Simple {
	return &Simple{parent: d, mptOn: d.mptOn, keepHist: d.keepHist, overlay: make(map[string]*cacheEntry)}
}
