package storage

import (
	"sync"
)

// MemCachedStore wraps a backing Store with an in-memory overlay: reads
// check the overlay first and fall through to the backing store on
// miss, writes land only in the overlay until Persist flushes them down
// in one PutChangeSet batch. The ledger uses one of these per in-flight
// block so a faulted transaction's writes can be discarded by simply
// not persisting them (spec.md §4.4 DataCache "layered commit points").
type MemCachedStore struct {
	*MemoryStore

	mu      sync.RWMutex
	ps      Store
	private map[string]bool
	deleted map[string]struct{}
}

// NewMemCachedStore creates a MemCachedStore overlaying ps.
func NewMemCachedStore(ps Store) *MemCachedStore {
	return &MemCachedStore{
		MemoryStore: NewMemoryStore(),
		ps:          ps,
		private:     make(map[string]bool),
		deleted:     make(map[string]struct{}),
	}
}

// Get returns the overlay's value for key if present (even if it was
// deleted, which Get reports as ErrKeyNotFound without touching ps),
// otherwise falls through to the backing store.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	if _, ok := s.deleted[string(key)]; ok {
		s.mu.RUnlock()
		return nil, ErrKeyNotFound
	}
	s.mu.RUnlock()

	v, err := s.MemoryStore.Get(key)
	if err == nil {
		return v, nil
	}
	return s.ps.Get(key)
}

// Put records a write in the overlay, remembering whether the key
// already existed in the backing store (needed by the change-set
// reducer to classify Added vs Changed).
func (s *MemCachedStore) Put(key, value []byte) error {
	s.mu.Lock()
	delete(s.deleted, string(key))
	if _, ok := s.private[string(key)]; !ok {
		_, err := s.ps.Get(key)
		s.private[string(key)] = err == nil
	}
	s.mu.Unlock()
	return s.MemoryStore.Put(key, value)
}

// Delete records a deletion in the overlay.
func (s *MemCachedStore) Delete(key []byte) error {
	s.mu.Lock()
	if _, ok := s.private[string(key)]; !ok {
		_, err := s.ps.Get(key)
		s.private[string(key)] = err == nil
	}
	s.deleted[string(key)] = struct{}{}
	s.mu.Unlock()
	return s.MemoryStore.Delete(key)
}

// Seek merges the overlay's keys with the backing store's, preferring
// the overlay and skipping anything marked deleted.
func (s *MemCachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	seen := make(map[string]bool)
	cont := true
	s.MemoryStore.Seek(rng, func(k, v []byte) bool {
		seen[string(k)] = true
		cont = f(k, v)
		return cont
	})
	if !cont {
		return
	}
	s.mu.RLock()
	deleted := make(map[string]struct{}, len(s.deleted))
	for k := range s.deleted {
		deleted[k] = struct{}{}
	}
	s.mu.RUnlock()
	s.ps.Seek(rng, func(k, v []byte) bool {
		if seen[string(k)] {
			return true
		}
		if _, ok := deleted[string(k)]; ok {
			return true
		}
		return f(k, v)
	})
}

// GetBatch reduces the overlay into a MemBatch of puts and deletes,
// each tagged with whether the key pre-existed in the backing store.
func (s *MemCachedStore) GetBatch() MemBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b MemBatch
	s.MemoryStore.mu.RLock()
	for k, v := range s.MemoryStore.data {
		b.Put = append(b.Put, KeyValueExists{
			KeyValue: KeyValue{Key: []byte(k), Value: v},
			Exists:   s.private[k],
		})
	}
	s.MemoryStore.mu.RUnlock()
	for k := range s.deleted {
		b.Deleted = append(b.Deleted, KeyValueExists{
			KeyValue: KeyValue{Key: []byte(k)},
			Exists:   s.private[k],
		})
	}
	return b
}

// Persist flushes the overlay into the backing store as a single
// PutChangeSet batch, then clears the overlay. It returns the number of
// keys written (puts plus deletes).
func (s *MemCachedStore) Persist() (int, error) {
	s.mu.Lock()

	s.MemoryStore.mu.Lock()
	puts := make(map[string][]byte, len(s.MemoryStore.data))
	for k, v := range s.MemoryStore.data {
		puts[k] = v
	}
	s.MemoryStore.data = make(map[string][]byte)
	s.MemoryStore.mu.Unlock()

	dels := make(map[string]bool, len(s.deleted))
	for k := range s.deleted {
		dels[k] = true
	}
	s.deleted = make(map[string]struct{})
	s.private = make(map[string]bool)
	s.mu.Unlock()

	n := len(puts) + len(dels)
	if n == 0 {
		return 0, nil
	}
	if err := s.ps.PutChangeSet(puts, dels); err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the backing store; the overlay holds no resources of
// its own.
func (s *MemCachedStore) Close() error {
	return s.ps.Close()
}
