package storage

import (
	"bytes"

	"go.etcd.io/bbolt"
)

var boltBucket = []byte("neogo")

// BoltStore is a Store backed by go.etcd.io/bbolt, a single-file
// embedded B+tree database.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (creating if absent) a BoltDB file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Get implements Store.
func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		out = append([]byte{}, v...)
		return nil
	})
	return out, err
}

// Put implements Store.
func (s *BoltStore) Put(key, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
}

// Delete implements Store.
func (s *BoltStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Delete(key)
	})
}

// PutChangeSet implements Store.
func (s *BoltStore) PutChangeSet(puts map[string][]byte, dels map[string]bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBucket)
		for k, v := range puts {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		for k := range dels {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Seek implements Store.
func (s *BoltStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	_ = s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		lower := append(append([]byte{}, rng.Prefix...), rng.Start...)
		if !rng.Backwards {
			for k, v := c.Seek(lower); k != nil && bytes.HasPrefix(k, rng.Prefix); k, v = c.Next() {
				if !f(k, v) {
					return nil
				}
			}
			return nil
		}
		// Backwards: position at the last key with the prefix (or at
		// lower, if a start bound narrows the range), then walk back.
		var k, v []byte
		if len(rng.Start) > 0 {
			k, v = c.Seek(lower)
			if k == nil || bytes.Compare(k, lower) > 0 {
				k, v = c.Prev()
			}
		} else {
			k, v = seekLast(c, rng.Prefix)
		}
		for ; k != nil && bytes.HasPrefix(k, rng.Prefix); k, v = c.Prev() {
			if !f(k, v) {
				return nil
			}
		}
		return nil
	})
}

func seekLast(c *bbolt.Cursor, prefix []byte) (k, v []byte) {
	upper := append(append([]byte{}, prefix...), 0xff)
	k, v = c.Seek(upper)
	if k == nil {
		k, v = c.Last()
	} else {
		k, v = c.Prev()
	}
	return k, v
}

// Close implements Store.
func (s *BoltStore) Close() error { return s.db.Close() }
