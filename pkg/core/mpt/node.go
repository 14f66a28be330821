// Package mpt implements the Merkle-Patricia Trie that commits the
// chain's storage and account state to a single root hash per block
// (spec.md §4.3 "State Commitment").
package mpt

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// NodeType tags a node's concrete kind on the wire, letting a
// heterogeneous slot (a Branch child, a Trie's root) self-describe
// which concrete type follows.
type NodeType byte

// Node kinds, in the order the trie's on-disk/wire tag byte uses.
const (
	TypeBranchNode NodeType = iota
	TypeExtensionNode
	TypeLeafNode
	TypeHashNode
	TypeEmptyNode
)

// MaxValueLength bounds a leaf's stored value; it matches the largest
// single storage item the VM's storage interop will ever write.
const MaxValueLength = 3 + 1<<16

// maxPathLength bounds an extension node's shared nibble path to one
// trie key's worth of nibbles.
const maxPathLength = 2 * 256

// childrenCount is a Branch node's fan-out: one slot per nibble value
// plus one terminator slot for a value ending exactly at this branch.
const childrenCount = 17

// lastChild is the Branch terminator slot's index.
const lastChild = childrenCount - 1

// Node is implemented by every trie node kind: the five concrete types
// below, used interchangeably as Branch children, a Trie's root, and
// Merkle-proof path entries.
type Node interface {
	io.Serializable
	json.Marshaler
	json.Unmarshaler

	Type() NodeType
	Hash() util.Uint256
	Bytes() []byte
	Size() int
}

// BaseNode caches a node's SHA-256 hash across repeated lookups; all
// concrete node kinds except EmptyNode embed it.
type BaseNode struct {
	hash      util.Uint256
	hashValid bool
}

func (b *BaseNode) invalidateCache() {
	b.hashValid = false
}

// nodeBytes renders n's type tag followed by its EncodeBinary body,
// the canonical form both node hashing and trie-store persistence use.
func nodeBytes(n Node) []byte {
	w := io.NewBufBinWriter()
	w.WriteB(byte(n.Type()))
	n.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

func encodedSize(n Node) int {
	w := io.NewBufBinWriter()
	n.EncodeBinary(w.BinWriter)
	return len(w.Bytes())
}

// asHashNode collapses any node to the HashNode referencing its hash,
// the form Branch/Extension children take on the wire so that encoding
// a node never recurses into its children's full subtrees.
func asHashNode(n Node) Node {
	if n == nil {
		return EmptyNode{}
	}
	switch n.Type() {
	case TypeEmptyNode, TypeHashNode:
		return n
	default:
		return NewHashNode(n.Hash())
	}
}

// EmptyNode is the zero value of every unpopulated Branch slot and the
// root of a brand-new trie. It carries no hash of its own: an empty
// trie's root hash is the zero Uint256, distinct from any real root.
type EmptyNode struct{}

func (EmptyNode) Type() NodeType                 { return TypeEmptyNode }
func (EmptyNode) Hash() util.Uint256             { return util.Uint256{} }
func (n EmptyNode) Bytes() []byte                { return nodeBytes(n) }
func (n EmptyNode) Size() int                    { return 0 }
func (EmptyNode) EncodeBinary(w *io.BinWriter)   {}
func (EmptyNode) DecodeBinary(r *io.BinReader)   {}
func (EmptyNode) MarshalJSON() ([]byte, error)   { return []byte("{}"), nil }
func (EmptyNode) UnmarshalJSON(data []byte) error {
	if !bytes.Equal(bytes.TrimSpace(data), []byte("{}")) {
		return errors.New("mpt: invalid empty node")
	}
	return nil
}

// HashNode is a placeholder for a subtree that hasn't been loaded from
// the store: it records only that subtree's root hash. Branch and
// Extension nodes always encode their children this way.
type HashNode struct {
	BaseNode
}

// NewHashNode creates a HashNode wrapping h.
func NewHashNode(h util.Uint256) *HashNode {
	return &HashNode{BaseNode{hash: h, hashValid: true}}
}

func (n *HashNode) Type() NodeType     { return TypeHashNode }
func (n *HashNode) Hash() util.Uint256 { return n.hash }
func (n *HashNode) Bytes() []byte      { return nodeBytes(n) }
func (n *HashNode) Size() int          { return encodedSize(n) }

func (n *HashNode) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(n.hash[:])
}

func (n *HashNode) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(n.hash[:])
}

func (n HashNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"hash": n.hash.StringLE()})
}

func (n *HashNode) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return errors.New("mpt: invalid hash node")
	}
	s, ok := m["hash"]
	if !ok {
		return errors.New("mpt: missing hash field")
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	h, err := util.Uint256DecodeBytes(raw)
	if err != nil {
		return err
	}
	n.hash = h
	n.hashValid = true
	return nil
}

// LeafNode stores a trie value at the end of a key's nibble path.
type LeafNode struct {
	BaseNode
	value []byte
}

// NewLeafNode creates a LeafNode holding value.
func NewLeafNode(value []byte) *LeafNode {
	return &LeafNode{value: value}
}

func (n *LeafNode) Type() NodeType { return TypeLeafNode }
func (n *LeafNode) Bytes() []byte  { return nodeBytes(n) }
func (n *LeafNode) Size() int      { return encodedSize(n) }

func (n *LeafNode) Hash() util.Uint256 {
	if !n.hashValid {
		n.hash = hash.Sha256(n.Bytes())
		n.hashValid = true
	}
	return n.hash
}

func (n *LeafNode) EncodeBinary(w *io.BinWriter) {
	if len(n.value) > MaxValueLength {
		w.Err = fmt.Errorf("mpt: leaf value too long: %d", len(n.value))
		return
	}
	w.WriteVarBytes(n.value)
}

func (n *LeafNode) DecodeBinary(r *io.BinReader) {
	n.value = r.ReadVarBytes()
	if r.Err == nil && len(n.value) > MaxValueLength {
		r.Err = fmt.Errorf("mpt: leaf value too long: %d", len(n.value))
	}
	n.invalidateCache()
}

func (n LeafNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"value": hex.EncodeToString(n.value)})
}

func (n *LeafNode) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return errors.New("mpt: invalid leaf node")
	}
	s, ok := m["value"]
	if !ok {
		return errors.New("mpt: missing value field")
	}
	v, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	n.value = v
	n.invalidateCache()
	return nil
}

// ExtensionNode shares a nibble-path prefix between its parent and a
// single child, collapsing chains of single-child Branches.
type ExtensionNode struct {
	BaseNode
	key  []byte
	next Node
}

// NewExtensionNode creates an ExtensionNode over the given nibble-path
// key leading to next.
func NewExtensionNode(key []byte, next Node) *ExtensionNode {
	return &ExtensionNode{key: key, next: next}
}

func (n *ExtensionNode) Type() NodeType { return TypeExtensionNode }
func (n *ExtensionNode) Bytes() []byte  { return nodeBytes(n) }
func (n *ExtensionNode) Size() int      { return encodedSize(n) }

func (n *ExtensionNode) Hash() util.Uint256 {
	if !n.hashValid {
		n.hash = hash.Sha256(n.Bytes())
		n.hashValid = true
	}
	return n.hash
}

func (n *ExtensionNode) EncodeBinary(w *io.BinWriter) {
	if len(n.key) > maxPathLength {
		w.Err = fmt.Errorf("mpt: extension key too long: %d", len(n.key))
		return
	}
	w.WriteVarBytes(n.key)
	child := asHashNode(n.next)
	w.WriteB(byte(child.Type()))
	child.EncodeBinary(w)
}

func (n *ExtensionNode) DecodeBinary(r *io.BinReader) {
	n.key = r.ReadVarBytes()
	if r.Err == nil && len(n.key) > maxPathLength {
		r.Err = fmt.Errorf("mpt: extension key too long: %d", len(n.key))
		return
	}
	n.next = decodeNodeObject(r)
	n.invalidateCache()
}

func (n ExtensionNode) MarshalJSON() ([]byte, error) {
	nextJSON, err := n.next.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(`{"key":%q,"next":%s}`, hex.EncodeToString(n.key), nextJSON)), nil
}

func (n *ExtensionNode) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 2 {
		return errors.New("mpt: invalid extension node")
	}
	keyRaw, ok := m["key"]
	if !ok {
		return errors.New("mpt: missing key field")
	}
	nextRaw, ok := m["next"]
	if !ok {
		return errors.New("mpt: missing next field")
	}
	var keyHex string
	if err := json.Unmarshal(keyRaw, &keyHex); err != nil {
		return err
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return err
	}
	var no NodeObject
	if err := no.UnmarshalJSON(nextRaw); err != nil {
		return err
	}
	n.key = key
	n.next = no.Node
	n.invalidateCache()
	return nil
}

// BranchNode fans a path out over 16 nibble values plus one terminator
// slot (index lastChild) for a value ending exactly at this node.
type BranchNode struct {
	BaseNode
	Children [childrenCount]Node
}

// NewBranchNode creates a BranchNode with every slot empty.
func NewBranchNode() *BranchNode {
	b := &BranchNode{}
	for i := range b.Children {
		b.Children[i] = EmptyNode{}
	}
	return b
}

func (n *BranchNode) Type() NodeType { return TypeBranchNode }
func (n *BranchNode) Bytes() []byte  { return nodeBytes(n) }
func (n *BranchNode) Size() int      { return encodedSize(n) }

func (n *BranchNode) Hash() util.Uint256 {
	if !n.hashValid {
		n.hash = hash.Sha256(n.Bytes())
		n.hashValid = true
	}
	return n.hash
}

func (n *BranchNode) EncodeBinary(w *io.BinWriter) {
	for i := 0; i < childrenCount; i++ {
		child := asHashNode(n.Children[i])
		w.WriteB(byte(child.Type()))
		child.EncodeBinary(w)
		if w.Err != nil {
			return
		}
	}
}

func (n *BranchNode) DecodeBinary(r *io.BinReader) {
	for i := 0; i < childrenCount; i++ {
		n.Children[i] = decodeNodeObject(r)
		if r.Err != nil {
			return
		}
	}
	n.invalidateCache()
}

func (n BranchNode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < childrenCount; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		cj, err := n.Children[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(cj)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (n *BranchNode) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != childrenCount {
		return fmt.Errorf("mpt: branch node needs %d children, got %d", childrenCount, len(raw))
	}
	for i := range raw {
		var no NodeObject
		if err := no.UnmarshalJSON(raw[i]); err != nil {
			return err
		}
		n.Children[i] = no.Node
	}
	n.invalidateCache()
	return nil
}

// decodeNodeObject reads a type-tagged node (as Branch/Extension write
// their children) directly from r, without going through NodeObject's
// JSON-style dispatch.
func decodeNodeObject(r *io.BinReader) Node {
	typ := NodeType(r.ReadB())
	if r.Err != nil {
		return EmptyNode{}
	}
	n, err := nodeFromType(typ)
	if err != nil {
		r.Err = err
		return EmptyNode{}
	}
	n.DecodeBinary(r)
	if hn, ok := n.(*HashNode); ok {
		hn.hashValid = true
	}
	return n
}

func nodeFromType(typ NodeType) (Node, error) {
	switch typ {
	case TypeBranchNode:
		return NewBranchNode(), nil
	case TypeExtensionNode:
		return &ExtensionNode{}, nil
	case TypeLeafNode:
		return &LeafNode{}, nil
	case TypeHashNode:
		return &HashNode{}, nil
	case TypeEmptyNode:
		return EmptyNode{}, nil
	default:
		return nil, fmt.Errorf("mpt: unknown node type %d", typ)
	}
}

// NodeObject wraps any Node for contexts needing a self-describing
// (type-tagged) encoding of an otherwise-untyped slot: the trie store's
// top-level records and JSON (de)serialization entry points.
type NodeObject struct {
	Node
}

// EncodeBinary implements io.Serializable.
func (no NodeObject) EncodeBinary(w *io.BinWriter) {
	if no.Node == nil {
		w.Err = errors.New("mpt: nil node")
		return
	}
	w.WriteB(byte(no.Node.Type()))
	no.Node.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (no *NodeObject) DecodeBinary(r *io.BinReader) {
	no.Node = decodeNodeObject(r)
}

// MarshalJSON implements json.Marshaler.
func (no NodeObject) MarshalJSON() ([]byte, error) {
	if no.Node == nil {
		return []byte("{}"), nil
	}
	return no.Node.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler, dispatching on the
// presence of type-specific fields since a bare JSON document doesn't
// carry an explicit type tag the way the binary encoding does.
func (no *NodeObject) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		b := NewBranchNode()
		if err := b.UnmarshalJSON(data); err != nil {
			return err
		}
		no.Node = b
		return nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	switch {
	case len(m) == 0:
		no.Node = EmptyNode{}
		return nil
	case len(m) == 1 && has(m, "value"):
		l := new(LeafNode)
		if err := l.UnmarshalJSON(data); err != nil {
			return err
		}
		no.Node = l
		return nil
	case len(m) == 1 && has(m, "hash"):
		h := new(HashNode)
		if err := h.UnmarshalJSON(data); err != nil {
			return err
		}
		no.Node = h
		return nil
	case len(m) == 2 && has(m, "key") && has(m, "next"):
		e := new(ExtensionNode)
		if err := e.UnmarshalJSON(data); err != nil {
			return err
		}
		no.Node = e
		return nil
	default:
		return fmt.Errorf("mpt: unrecognized node JSON with fields %v", keysOf(m))
	}
}

func has(m map[string]json.RawMessage, k string) bool {
	_, ok := m[k]
	return ok
}

func keysOf(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// toNibbles expands key into its nibble path, high nibble first,
// the form every trie lookup/insert walks one nibble at a time.
func toNibbles(key []byte) []byte {
	out := make([]byte, len(key)*2)
	for i, b := range key {
		out[i*2] = b >> 4
		out[i*2+1] = b & 0x0F
	}
	return out
}

// commonPrefix returns the length of the longest shared prefix of a
// and b.
func commonPrefix(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
