package mpt

import (
	"testing"

	"github.com/neogo-core/node/pkg/core/storage"
	"github.com/stretchr/testify/require"
)

func newTestStore() *storage.MemCachedStore {
	return storage.NewMemCachedStore(storage.NewMemoryStore())
}

func newEmptyTrie() *Trie {
	return NewTrie(nil, false, newTestStore())
}

func TestTrie_PutGetDelete(t *testing.T) {
	tr := newEmptyTrie()
	require.NoError(t, tr.Put([]byte{0xac, 0x11}, []byte("one")))
	require.NoError(t, tr.Put([]byte{0xac, 0x22}, []byte("two")))
	require.NoError(t, tr.Put([]byte{0xac}, []byte("root")))

	v, err := tr.Get([]byte{0xac, 0x11})
	require.NoError(t, err)
	require.Equal(t, []byte("one"), v)

	v, err = tr.Get([]byte{0xac})
	require.NoError(t, err)
	require.Equal(t, []byte("root"), v)

	require.NoError(t, tr.Delete([]byte{0xac, 0x11}))
	_, err = tr.Get([]byte{0xac, 0x11})
	require.ErrorIs(t, err, ErrNotFound)

	v, err = tr.Get([]byte{0xac, 0x22})
	require.NoError(t, err)
	require.Equal(t, []byte("two"), v)
}

func TestTrie_DeleteMissingIsNoop(t *testing.T) {
	tr := newEmptyTrie()
	require.NoError(t, tr.Put([]byte{1, 2}, []byte("x")))
	root := tr.StateRoot()
	require.NoError(t, tr.Delete([]byte{9, 9}))
	require.Equal(t, root, tr.StateRoot())
}

func TestTrie_EmptyRootIsZero(t *testing.T) {
	tr := newEmptyTrie()
	require.True(t, tr.StateRoot().Equals(tr.root.Hash()))
	require.Equal(t, 32, len(tr.StateRoot().Bytes()))
	for _, b := range tr.StateRoot().Bytes() {
		require.Zero(t, b)
	}
}

func TestTrie_Flush_Refcount(t *testing.T) {
	store := newTestStore()
	tr := NewTrie(nil, true, store)

	key1, key2 := []byte{0x11}, []byte{0x12}
	require.NoError(t, tr.Put(key1, []byte{1}))
	require.NoError(t, tr.Flush())
	require.NoError(t, tr.Put(key2, []byte{1}))
	require.NoError(t, tr.Flush())

	v, err := tr.Get(key1)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, v)

	require.NoError(t, tr.Delete(key1))
	require.NoError(t, tr.Flush())

	_, err = tr.Get(key1)
	require.ErrorIs(t, err, ErrNotFound)
	v, err = tr.Get(key2)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, v)

	// A later put-then-delete of the same key within one flush window
	// must leave the persisted refcounts exactly as they were.
	require.NoError(t, tr.Put(key1, []byte{2}))
	require.NoError(t, tr.Delete(key1))
	require.NoError(t, tr.Flush())
	v, err = tr.Get(key2)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, v)
}

func TestTrie_HistoricalView(t *testing.T) {
	store := newTestStore()
	tr := NewTrie(nil, false, store)
	require.NoError(t, tr.Put([]byte{1}, []byte("v1")))
	require.NoError(t, tr.Flush())
	root1 := tr.StateRoot()

	require.NoError(t, tr.Put([]byte{1}, []byte("v2")))
	require.NoError(t, tr.Flush())

	view := NewTrie(NewHashNode(root1), false, store)
	v, err := view.Get([]byte{1})
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
}

func TestTrie_GetProof_VerifyProof(t *testing.T) {
	tr := newEmptyTrie()
	require.NoError(t, tr.Put([]byte{0xac, 0x11}, []byte("one")))
	require.NoError(t, tr.Put([]byte{0xac, 0x22}, []byte("two")))
	require.NoError(t, tr.Put([]byte{0xac}, []byte("root")))

	proof, err := tr.GetProof([]byte{0xac, 0x11})
	require.NoError(t, err)
	require.NotEmpty(t, proof)

	v, ok := VerifyProof(tr.StateRoot(), []byte{0xac, 0x11}, proof)
	require.True(t, ok)
	require.Equal(t, []byte("one"), v)

	_, ok = VerifyProof(tr.StateRoot(), []byte{0xac, 0x33}, proof)
	require.False(t, ok)
}

func TestNode_JSON(t *testing.T) {
	tr := newEmptyTrie()
	require.NoError(t, tr.Put([]byte{0xac, 0x11}, []byte{0xac, 0x11}))
	require.NoError(t, tr.Put([]byte{0xac, 0x22}, []byte{0xac, 0x22}))
	require.NoError(t, tr.Put([]byte{0xac}, []byte{0xac}))
	require.NoError(t, tr.Delete([]byte{0xac, 0x11}))
	require.NoError(t, tr.Delete([]byte{0xac, 0x22}))

	js, err := tr.root.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"key":"0a0c", "next":{"value":"ac"}}`, string(js))
}
