package vm

import (
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/callflag"
	"github.com/neogo-core/node/pkg/vm/stackitem"
)

// tryState is the three-state lifecycle of a try-frame (spec.md §9
// "Exception unwinding across contexts").
type tryState byte

const (
	tryStateTry tryState = iota
	tryStateCatch
	tryStateFinally
)

// tryFrame records one TRY block's catch/finally targets and current
// lifecycle state (spec.md §4.1 "Exception handling"). try-frames form
// a stack within their owning ExecutionContext.
type tryFrame struct {
	state        tryState
	catchPC      int
	finallyPC    int
	hasCatch     bool
	hasFinally   bool
	endPC        int
	finallyEndPC int
}

// ExecutionContext is a single invocation frame: its own instruction
// pointer, evaluation/alt stacks, static/local/argument slots and
// try-frame stack, exclusively owned until it is destroyed on RET or
// unwind (spec.md §3 "ExecutionContext").
type ExecutionContext struct {
	script []byte
	ip     int

	estack *Stack
	astack *Stack

	statics *slot
	locals  *slot
	args    *slot

	tryStack []tryFrame

	callFlags    callflag.CallFlag
	rvcount      int // -1 means "all remaining items"
	scriptHash   util.Uint160
	callingHash  util.Uint160
	entryHash    util.Uint160
	methodName   string
	isNative     bool
}

// NewExecutionContext creates a fresh frame over script, sharing no
// state with its caller except what's explicitly inherited via call
// flags and the entry/calling hashes.
func NewExecutionContext(script []byte) *ExecutionContext {
	return &ExecutionContext{
		script: script,
		estack: NewStack(),
		astack: NewStack(),
		rvcount: -1,
	}
}

// IP returns the current instruction pointer.
func (c *ExecutionContext) IP() int { return c.ip }

// ScriptHash returns the Hash160 of the running script, assigned by
// the engine at load time.
func (c *ExecutionContext) ScriptHash() util.Uint160 { return c.scriptHash }

// CallingScriptHash returns the Hash160 of whichever context invoked
// this one, or the zero hash for the entry context.
func (c *ExecutionContext) CallingScriptHash() util.Uint160 { return c.callingHash }

// EntryScriptHash returns the Hash160 of the outermost context in the
// current invocation stack.
func (c *ExecutionContext) EntryScriptHash() util.Uint160 { return c.entryHash }

// Script returns the running script bytes.
func (c *ExecutionContext) Script() []byte { return c.script }

// Estack returns the per-context evaluation stack.
func (c *ExecutionContext) Estack() *Stack { return c.estack }

// Astack returns the per-context alt stack.
func (c *ExecutionContext) Astack() *Stack { return c.astack }

// CallFlags returns the context's effective call-flag mask.
func (c *ExecutionContext) CallFlags() callflag.CallFlag { return c.callFlags }

func (c *ExecutionContext) pushTry(catchPC, finallyPC int, hasCatch, hasFinally bool, endPC int) {
	c.tryStack = append(c.tryStack, tryFrame{
		state: tryStateTry, catchPC: catchPC, finallyPC: finallyPC,
		hasCatch: hasCatch, hasFinally: hasFinally, endPC: endPC,
	})
}

func (c *ExecutionContext) topTry() *tryFrame {
	if len(c.tryStack) == 0 {
		return nil
	}
	return &c.tryStack[len(c.tryStack)-1]
}

func (c *ExecutionContext) popTry() {
	c.tryStack = c.tryStack[:len(c.tryStack)-1]
}

// slot is a fixed-size, lazily-sized register file backing static
// fields, locals and arguments (INITSLOT/INITSSLOT in spec.md §4.1).
type slot struct {
	items []stackitem.Item
}

func newSlot(n int) *slot {
	items := make([]stackitem.Item, n)
	for i := range items {
		items[i] = stackitem.Null{}
	}
	return &slot{items: items}
}

func (s *slot) get(i int) (stackitem.Item, bool) {
	if s == nil || i < 0 || i >= len(s.items) {
		return nil, false
	}
	return s.items[i], true
}

func (s *slot) set(i int, v stackitem.Item) bool {
	if s == nil || i < 0 || i >= len(s.items) {
		return false
	}
	s.items[i] = v
	return true
}
