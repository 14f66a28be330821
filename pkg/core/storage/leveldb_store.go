package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore is a Store backed by github.com/syndtr/goleveldb, an
// LSM-tree embedded database.
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens (creating if absent) a LevelDB database at path.
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

// Get implements Store.
func (s *LevelDBStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrKeyNotFound
	}
	return v, err
}

// Put implements Store.
func (s *LevelDBStore) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

// Delete implements Store.
func (s *LevelDBStore) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

// PutChangeSet implements Store.
func (s *LevelDBStore) PutChangeSet(puts map[string][]byte, dels map[string]bool) error {
	batch := new(leveldb.Batch)
	for k, v := range puts {
		batch.Put([]byte(k), v)
	}
	for k := range dels {
		batch.Delete([]byte(k))
	}
	return s.db.Write(batch, nil)
}

// Seek implements Store.
func (s *LevelDBStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	slice := util.BytesPrefix(rng.Prefix)
	iter := s.db.NewIterator(slice, nil)
	defer iter.Release()

	lower := append(append([]byte{}, rng.Prefix...), rng.Start...)
	if !rng.Backwards {
		ok := iter.Seek(lower)
		for ; ok; ok = iter.Next() {
			if !f(iter.Key(), iter.Value()) {
				return
			}
		}
		return
	}
	var ok bool
	if len(rng.Start) > 0 {
		ok = iter.Seek(lower)
		if !ok {
			ok = iter.Last()
		}
	} else {
		ok = iter.Last()
	}
	for ; ok; ok = iter.Prev() {
		if !f(iter.Key(), iter.Value()) {
			return
		}
	}
}

// Close implements Store.
func (s *LevelDBStore) Close() error { return s.db.Close() }
