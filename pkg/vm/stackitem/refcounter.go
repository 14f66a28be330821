package stackitem

// RefCounter counts, for every compound object (Array/Struct/Map/
// Buffer), how many times it currently sits on an evaluation stack:
// the VM adds one on every push and removes one on every pop, and an
// object is untracked when its count reaches zero. References held
// inside other compound items or in slots are not counted, and no
// cycle detection is performed.
//
// Compound items here are represented as ordinary Go pointers
// (*arrayItem, *mapItem) rather than an explicit integer-handle arena:
// Go's garbage collector already provides the identity and liveness
// Go needs, and RefCounter only needs to track the *count*, not manage
// allocation. This keeps the traversal order deterministic (arrays and
// map key iteration order are program-defined, never GC-ordered) while
// avoiding a parallel handle table that would just shadow the Go
// runtime's own object graph.
type RefCounter struct {
	counts map[countable]int
	size   int
	limit  int
}

// countable is implemented by every item that participates in
// reference counting.
type countable interface {
	Item
	refKey() any
}

// NewRefCounter creates a RefCounter bounded to limit total tracked
// items (spec.md §4.1 "the engine enforces an upper bound on total
// tracked items to prevent cycles from exploding memory").
func NewRefCounter(limit int) *RefCounter {
	return &RefCounter{counts: make(map[countable]int), limit: limit}
}

// Add increments item's reference count, registering it if new. It
// reports ErrTooBig if doing so would exceed the configured limit.
func (r *RefCounter) Add(item Item) error {
	c, ok := item.(countable)
	if !ok {
		return nil
	}
	if _, tracked := r.counts[c]; !tracked {
		if r.size >= r.limit {
			return ErrTooBig
		}
		r.size++
	}
	r.counts[c]++
	return nil
}

// Remove decrements item's reference count, untracking it at zero.
func (r *RefCounter) Remove(item Item) {
	c, ok := item.(countable)
	if !ok {
		return
	}
	n, tracked := r.counts[c]
	if !tracked {
		return
	}
	if n <= 1 {
		delete(r.counts, c)
		r.size--
		return
	}
	r.counts[c] = n - 1
}

// Count returns the current combined reference count for item (0 if
// untracked or not a compound type).
func (r *RefCounter) Count(item Item) int {
	c, ok := item.(countable)
	if !ok {
		return 0
	}
	return r.counts[c]
}

// Size returns the number of distinct compound items currently tracked.
func (r *RefCounter) Size() int {
	return r.size
}
