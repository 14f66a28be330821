package mpt

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/neogo-core/node/pkg/core/storage"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// ErrNotFound is returned by Get/GetProof when key has no entry under
// the trie's current root.
var ErrNotFound = errors.New("mpt: key not found")

// nodeCacheSize bounds the read-through LRU cache every Trie keeps in
// front of its backing store.
const nodeCacheSize = 10000

// Trie is a Modified Merkle-Patricia Trie over a MemCachedStore: Put
// and Delete mutate an in-memory, copy-on-write node tree rooted at
// root, and Flush reconciles the nodes that became (un)reachable since
// the last Flush against the store's persisted reference counts
// (spec.md §4.3).
type Trie struct {
	store *storage.MemCachedStore
	root  Node

	refcountEnabled bool
	cache           *lru.Cache

	// flushedRoot is the root as of the last Flush (or the root NewTrie
	// was constructed with), used as the "before" snapshot a Flush diffs
	// the current root against to find newly (un)reachable nodes.
	flushedRoot Node
}

// NewTrie creates a Trie rooted at root (nil means an empty trie) over
// store, with enableRefCount selecting whether Flush reference-counts
// and garbage-collects nodes that fall out of reach, or simply leaves
// every ever-written node in store (suitable for a single always-live
// chain where historical roots are never pruned).
func NewTrie(root Node, enableRefCount bool, store *storage.MemCachedStore) *Trie {
	if root == nil {
		root = EmptyNode{}
	}
	c, _ := lru.New(nodeCacheSize)
	return &Trie{
		store:           store,
		root:            root,
		refcountEnabled: enableRefCount,
		cache:           c,
		flushedRoot:     root,
	}
}

// StateRoot returns the hash of the trie's current root, or the zero
// Uint256 for an empty trie (spec.md §4.3: "distinct from any valid
// root" — zero serves as that sentinel here, as it never arises from
// hashing real node content).
func (t *Trie) StateRoot() util.Uint256 {
	return t.root.Hash()
}

func storeKey(h util.Uint256) []byte {
	return append(storage.DataMPT.Bytes(), h.Bytes()...)
}

// resolve loads the concrete node a HashNode placeholder refers to,
// passing through any other node kind unchanged.
func (t *Trie) resolve(n Node) (Node, error) {
	hn, ok := n.(*HashNode)
	if !ok {
		return n, nil
	}
	return t.getNode(hn.Hash())
}

// getNode fetches a stored node by hash, checking the LRU cache before
// falling through to the backing store.
func (t *Trie) getNode(h util.Uint256) (Node, error) {
	if v, ok := t.cache.Get(h); ok {
		return v.(Node), nil
	}
	data, err := t.store.Get(storeKey(h))
	if err != nil {
		return nil, fmt.Errorf("mpt: node %s: %w", h.StringLE(), err)
	}
	n, _, err := decodeStored(data)
	if err != nil {
		return nil, err
	}
	t.cache.Add(h, n)
	return n, nil
}

// putToStore writes n directly to the backing store with refcount 1,
// bypassing the Flush reconciliation path. It exists for tests and for
// seeding a trie with nodes built out-of-band (e.g. from a snapshot
// transfer) before any Put/Delete touches them.
func (t *Trie) putToStore(n Node) {
	h := n.Hash()
	t.store.Put(storeKey(h), encodeStored(n, 1))
	t.cache.Add(h, n)
}

func encodeStored(n Node, refcount int32) []byte {
	w := io.NewBufBinWriter()
	w.WriteU32LE(uint32(refcount))
	w.WriteBytes(nodeBytes(n))
	return w.Bytes()
}

func decodeStored(data []byte) (Node, int32, error) {
	r := io.NewBinReaderFromBuf(data)
	rc := int32(r.ReadU32LE())
	var no NodeObject
	no.DecodeBinary(r)
	if r.Err != nil {
		return nil, 0, r.Err
	}
	return no.Node, rc, nil
}

// Get returns the value stored at key, or ErrNotFound.
func (t *Trie) Get(key []byte) ([]byte, error) {
	path := toNibbles(key)
	n := t.root
	for {
		cur, err := t.resolve(n)
		if err != nil {
			return nil, err
		}
		switch v := cur.(type) {
		case EmptyNode:
			return nil, ErrNotFound
		case *LeafNode:
			if len(path) != 0 {
				return nil, ErrNotFound
			}
			return v.value, nil
		case *ExtensionNode:
			cp := commonPrefix(v.key, path)
			if cp < len(v.key) {
				return nil, ErrNotFound
			}
			path = path[cp:]
			n = v.next
		case *BranchNode:
			if len(path) == 0 {
				term, err := t.resolve(v.Children[lastChild])
				if err != nil {
					return nil, err
				}
				if lf, ok := term.(*LeafNode); ok {
					return lf.value, nil
				}
				return nil, ErrNotFound
			}
			n = v.Children[path[0]]
			path = path[1:]
		default:
			return nil, fmt.Errorf("mpt: unexpected node type %T", cur)
		}
	}
}

// Put inserts or replaces the value at key.
func (t *Trie) Put(key, value []byte) error {
	if len(key) == 0 {
		return errors.New("mpt: empty key")
	}
	if len(value) > MaxValueLength {
		return fmt.Errorf("mpt: value too long: %d", len(value))
	}
	newRoot, err := t.putIntoNode(t.root, toNibbles(key), value)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func newLeafPath(path, value []byte) Node {
	v := make([]byte, len(value))
	copy(v, value)
	leaf := NewLeafNode(v)
	if len(path) == 0 {
		return leaf
	}
	return NewExtensionNode(path, leaf)
}

func (t *Trie) putIntoNode(curr Node, path, value []byte) (Node, error) {
	resolved, err := t.resolve(curr)
	if err != nil {
		return nil, err
	}
	switch n := resolved.(type) {
	case EmptyNode:
		return newLeafPath(path, value), nil
	case *LeafNode:
		if len(path) != 0 {
			return nil, errors.New("mpt: leaf encountered with unconsumed path")
		}
		v := make([]byte, len(value))
		copy(v, value)
		return NewLeafNode(v), nil
	case *ExtensionNode:
		return t.putExtension(n, path, value)
	case *BranchNode:
		return t.putBranch(n, path, value)
	default:
		return nil, fmt.Errorf("mpt: unknown node type %T", resolved)
	}
}

func (t *Trie) putExtension(e *ExtensionNode, path, value []byte) (Node, error) {
	cp := commonPrefix(e.key, path)
	if cp == len(e.key) {
		newChild, err := t.putIntoNode(e.next, path[cp:], value)
		if err != nil {
			return nil, err
		}
		return NewExtensionNode(e.key, newChild), nil
	}

	branch := NewBranchNode()
	eRest := e.key[cp+1:]
	eNibble := e.key[cp]
	if len(eRest) == 0 {
		branch.Children[eNibble] = e.next
	} else {
		branch.Children[eNibble] = NewExtensionNode(eRest, e.next)
	}

	if cp < len(path) {
		pRest := path[cp+1:]
		pNibble := path[cp]
		branch.Children[pNibble] = newLeafPath(pRest, value)
	} else {
		v := make([]byte, len(value))
		copy(v, value)
		branch.Children[lastChild] = NewLeafNode(v)
	}

	if cp == 0 {
		return branch, nil
	}
	return NewExtensionNode(append([]byte(nil), e.key[:cp]...), branch), nil
}

func (t *Trie) putBranch(b *BranchNode, path, value []byte) (Node, error) {
	nb := &BranchNode{Children: b.Children}
	if len(path) == 0 {
		v := make([]byte, len(value))
		copy(v, value)
		nb.Children[lastChild] = NewLeafNode(v)
		return nb, nil
	}
	nibble, rest := path[0], path[1:]
	newChild, err := t.putIntoNode(b.Children[nibble], rest, value)
	if err != nil {
		return nil, err
	}
	nb.Children[nibble] = newChild
	return nb, nil
}

// Delete removes key's entry, if any. Deleting an absent key is a
// silent no-op, matching the DataCache's "Deleted" transition applying
// only to keys that existed.
func (t *Trie) Delete(key []byte) error {
	newRoot, removed, err := t.deleteFromNode(t.root, toNibbles(key))
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}
	t.root = newRoot
	return nil
}

func (t *Trie) deleteFromNode(curr Node, path []byte) (Node, bool, error) {
	resolved, err := t.resolve(curr)
	if err != nil {
		return nil, false, err
	}
	switch n := resolved.(type) {
	case EmptyNode:
		return EmptyNode{}, false, nil
	case *LeafNode:
		if len(path) != 0 {
			return curr, false, nil
		}
		return EmptyNode{}, true, nil
	case *ExtensionNode:
		cp := commonPrefix(n.key, path)
		if cp < len(n.key) {
			return curr, false, nil
		}
		newChild, removed, err := t.deleteFromNode(n.next, path[cp:])
		if err != nil || !removed {
			return curr, removed, err
		}
		switch c := newChild.(type) {
		case EmptyNode:
			return EmptyNode{}, true, nil
		case *ExtensionNode:
			merged := append(append([]byte(nil), n.key...), c.key...)
			return NewExtensionNode(merged, c.next), true, nil
		default:
			return NewExtensionNode(append([]byte(nil), n.key...), newChild), true, nil
		}
	case *BranchNode:
		nb := &BranchNode{Children: n.Children}
		var removed bool
		if len(path) == 0 {
			if _, empty := n.Children[lastChild].(EmptyNode); empty {
				return curr, false, nil
			}
			nb.Children[lastChild] = EmptyNode{}
			removed = true
		} else {
			nibble, rest := path[0], path[1:]
			newChild, ok, err := t.deleteFromNode(n.Children[nibble], rest)
			if err != nil || !ok {
				return curr, ok, err
			}
			nb.Children[nibble] = newChild
			removed = true
		}
		return t.collapseBranch(nb), removed, nil
	default:
		return curr, false, nil
	}
}

// collapseBranch simplifies a branch left with zero or one live
// children into EmptyNode/ExtensionNode/LeafNode, the inverse of
// putExtension's split.
func (t *Trie) collapseBranch(b *BranchNode) Node {
	count, only := 0, -1
	for i, c := range b.Children {
		if _, empty := c.(EmptyNode); !empty {
			count++
			only = i
		}
	}
	switch {
	case count > 1:
		return b
	case count == 0:
		return EmptyNode{}
	}
	if only == lastChild {
		return b.Children[lastChild]
	}
	child, err := t.resolve(b.Children[only])
	if err != nil {
		return b
	}
	nibble := byte(only)
	if e, ok := child.(*ExtensionNode); ok {
		return NewExtensionNode(append([]byte{nibble}, e.key...), e.next)
	}
	return NewExtensionNode([]byte{nibble}, child)
}

// GetProof returns the ordered, root-to-leaf sequence of encoded nodes
// proving key's membership (or rather its value) under the trie's
// current root, suitable for VerifyProof against that root hash.
func (t *Trie) GetProof(key []byte) ([][]byte, error) {
	path := toNibbles(key)
	var proof [][]byte
	n := t.root
	for {
		cur, err := t.resolve(n)
		if err != nil {
			return nil, err
		}
		switch v := cur.(type) {
		case EmptyNode:
			return nil, ErrNotFound
		case *LeafNode:
			if len(path) != 0 {
				return nil, ErrNotFound
			}
			proof = append(proof, nodeBytes(v))
			return proof, nil
		case *ExtensionNode:
			cp := commonPrefix(v.key, path)
			if cp < len(v.key) {
				return nil, ErrNotFound
			}
			proof = append(proof, nodeBytes(v))
			path = path[cp:]
			n = v.next
		case *BranchNode:
			proof = append(proof, nodeBytes(v))
			if len(path) == 0 {
				if _, empty := v.Children[lastChild].(EmptyNode); empty {
					return nil, ErrNotFound
				}
				n = v.Children[lastChild]
				path = nil
				continue
			}
			n = v.Children[path[0]]
			path = path[1:]
		default:
			return nil, fmt.Errorf("mpt: unexpected node type %T", cur)
		}
	}
}

// VerifyProof recomputes hashes up proof's path and returns the leaf
// value iff the final hash equals root (spec.md §4.3 "verify_proof").
func VerifyProof(root util.Uint256, key []byte, proof [][]byte) ([]byte, bool) {
	path := toNibbles(key)
	expected := root
	for i, raw := range proof {
		var no NodeObject
		r := io.NewBinReaderFromBuf(raw)
		no.DecodeBinary(r)
		if r.Err != nil {
			return nil, false
		}
		if no.Node.Hash() != expected {
			return nil, false
		}
		switch n := no.Node.(type) {
		case *LeafNode:
			if i != len(proof)-1 || len(path) != 0 {
				return nil, false
			}
			return n.value, true
		case *ExtensionNode:
			cp := commonPrefix(n.key, path)
			if cp != len(n.key) {
				return nil, false
			}
			path = path[cp:]
			expected = n.next.Hash()
		case *BranchNode:
			if len(path) == 0 {
				if _, empty := n.Children[lastChild].(EmptyNode); empty {
					return nil, false
				}
				expected = n.Children[lastChild].Hash()
			} else {
				expected = n.Children[path[0]].Hash()
				path = path[1:]
			}
		default:
			return nil, false
		}
	}
	return nil, false
}

// liveNodes returns every non-empty node reachable from root, keyed by
// hash, resolving HashNode placeholders through the store as needed.
func (t *Trie) liveNodes(root Node) (map[util.Uint256]Node, error) {
	out := make(map[util.Uint256]Node)
	var walk func(n Node) error
	walk = func(n Node) error {
		switch v := n.(type) {
		case nil, EmptyNode:
			return nil
		case *HashNode:
			loaded, err := t.getNode(v.Hash())
			if err != nil {
				return err
			}
			return walk(loaded)
		case *LeafNode:
			out[v.Hash()] = v
			return nil
		case *ExtensionNode:
			if _, ok := out[v.Hash()]; ok {
				return nil
			}
			out[v.Hash()] = v
			return walk(v.next)
		case *BranchNode:
			if _, ok := out[v.Hash()]; ok {
				return nil
			}
			out[v.Hash()] = v
			for _, c := range v.Children {
				if err := walk(c); err != nil {
					return err
				}
			}
			return nil
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}

// Flush reconciles every node that became reachable or unreachable
// since the last Flush against the store's persisted reference counts,
// writing new nodes, bumping or dropping counts, and deleting nodes
// whose count falls to zero when refcounting is enabled. With
// refcounting disabled, every newly reachable node is written with a
// nominal count of 1 and nothing is ever collected.
func (t *Trie) Flush() error {
	before, err := t.liveNodes(t.flushedRoot)
	if err != nil {
		return err
	}
	after, err := t.liveNodes(t.root)
	if err != nil {
		return err
	}

	for h, n := range after {
		if _, ok := before[h]; !ok {
			if err := t.bumpRefcount(h, n, 1); err != nil {
				return err
			}
		}
	}
	for h, n := range before {
		if _, ok := after[h]; !ok {
			if err := t.bumpRefcount(h, n, -1); err != nil {
				return err
			}
		}
	}

	t.flushedRoot = t.root
	return nil
}

func (t *Trie) bumpRefcount(h util.Uint256, n Node, delta int32) error {
	key := storeKey(h)
	var rc int32
	data, err := t.store.Get(key)
	switch {
	case err == nil:
		r := io.NewBinReaderFromBuf(data)
		rc = int32(r.ReadU32LE())
	case errors.Is(err, storage.ErrKeyNotFound):
		rc = 0
	default:
		return err
	}

	if !t.refcountEnabled {
		if rc > 0 && delta < 0 {
			return nil
		}
		rc = 1
	} else {
		rc += delta
	}

	if rc <= 0 {
		t.cache.Remove(h)
		return t.store.Delete(key)
	}
	t.cache.Add(h, n)
	return t.store.Put(key, encodeStored(n, rc))
}
