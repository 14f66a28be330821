package vm

import "github.com/neogo-core/node/pkg/vm/stackitem"

// Stack is a simple LIFO of stack items backing a context's evaluation
// or alt stack.
type Stack struct {
	items []stackitem.Item
}

// NewStack creates an empty Stack.
func NewStack() *Stack {
	return &Stack{}
}

// Len returns the number of items on the stack.
func (s *Stack) Len() int { return len(s.items) }

// Push pushes an item onto the top of the stack.
func (s *Stack) Push(item stackitem.Item) {
	s.items = append(s.items, item)
}

// PushVal wraps v in its corresponding stackitem.Item via
// stackitem.Make and pushes it, the convenience path callers and tests
// use instead of constructing items by hand.
func (s *Stack) PushVal(v any) {
	s.Push(stackitem.Make(v))
}

// Pop removes and returns the top item, panicking if the stack is
// empty (callers must check Len first; the engine translates this
// into a Fault at the call site via recover).
func (s *Stack) Pop() stackitem.Item {
	n := len(s.items)
	item := s.items[n-1]
	s.items = s.items[:n-1]
	return item
}

// Top returns the item at depth n from the top (0 = topmost) without
// removing it.
func (s *Stack) Top(n int) stackitem.Item {
	return s.items[len(s.items)-1-n]
}

// Peek is an alias for Top(0), the conventional "top of stack".
func (s *Stack) Peek() stackitem.Item {
	return s.Top(0)
}

// RemoveAt removes and returns the item at depth n from the top.
func (s *Stack) RemoveAt(n int) stackitem.Item {
	idx := len(s.items) - 1 - n
	item := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return item
}

// InsertAt inserts item at depth n from the top (0 = becomes new top).
func (s *Stack) InsertAt(item stackitem.Item, n int) {
	idx := len(s.items) - n
	s.items = append(s.items, nil)
	copy(s.items[idx+1:], s.items[idx:])
	s.items[idx] = item
}

// Clear empties the stack.
func (s *Stack) Clear() {
	s.items = s.items[:0]
}

// Items returns the backing slice, bottom to top.
func (s *Stack) Items() []stackitem.Item {
	return s.items
}
