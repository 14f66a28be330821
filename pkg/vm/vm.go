// Package vm implements the NeoVM stack machine: execution contexts,
// the invocation stack, gas-metered instruction dispatch and the
// SYSCALL interop bridge (spec.md §4.1).
package vm

import (
	"fmt"
	"math/big"

	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/callflag"
	"github.com/neogo-core/node/pkg/vm/opcode"
	"github.com/neogo-core/node/pkg/vm/stackitem"
	"github.com/neogo-core/node/pkg/vm/trigger"
	"github.com/neogo-core/node/pkg/vm/vmstate"
)

// Notification is a single System.Runtime.Notify record
// (spec.md §4.1/§4.2).
type Notification struct {
	ScriptHash util.Uint160
	Name       string
	State      stackitem.Array
}

// LogEntry is a single System.Runtime.Log record.
type LogEntry struct {
	ScriptHash util.Uint160
	Message    string
}

// ErrFault is wrapped by every VM-internal error surfaced as the Fault
// terminal state (spec.md §7 "The VM converts all internal errors into
// a single Fault state plus an opaque reason string").
type ErrFault struct {
	Reason string
}

func (e *ErrFault) Error() string { return e.Reason }

func fault(format string, args ...any) error {
	return &ErrFault{Reason: fmt.Sprintf(format, args...)}
}

// VM is one NeoVM execution engine instance. An engine is never shared
// across goroutines (spec.md §5 "Reference counter inside a VM engine:
// thread-confined to that engine").
type VM struct {
	istack []*ExecutionContext
	ref    *stackitem.RefCounter

	state    vmstate.State
	faultErr error

	gasConsumed   int64
	gasLimit      int64
	execFeeFactor int64

	trigger   trigger.Type
	container any
	limits    Limits

	interops InteropGetter

	notifications []Notification
	logs          []LogEntry

	// uncaught carries an exception through a finally block that was
	// entered while unwinding, so doEndFinally knows to resume the
	// unwind instead of falling through (spec.md §4.1 "finally runs on
	// both the normal and exceptional paths").
	uncaught stackitem.Item

	invocationCounter map[util.Uint160]int

	entryScriptHash util.Uint160

	checkedHash []byte // convenience for standalone witness-verification runs
}

// New creates a VM with default limits and no gas limit (caller must
// set GasLimit before Run for metered execution).
func New() *VM {
	return &VM{
		ref:               stackitem.NewRefCounter(2 * DefaultLimits().MaxStackSize),
		limits:            DefaultLimits(),
		execFeeFactor:     30,
		invocationCounter: make(map[util.Uint160]int),
	}
}

// SetGasLimit sets the maximum gas this run may consume.
func (v *VM) SetGasLimit(limit int64) { v.gasLimit = limit }

// GasConsumed returns the gas consumed so far.
func (v *VM) GasConsumed() int64 { return v.gasConsumed }

// AddGas charges price (already in final gas units, not opcode
// "price" units) against the running gas limit, for interop handlers
// whose cost depends on their arguments (e.g. per-byte storage fees)
// rather than a fixed SYSCALL price.
func (v *VM) AddGas(price int64) error {
	if v.gasLimit > 0 && v.gasConsumed+price > v.gasLimit {
		v.gasConsumed = v.gasLimit
		return fault("gas limit exceeded")
	}
	v.gasConsumed += price
	return nil
}

// SetExecFeeFactor sets the policy-driven opcode price multiplier.
func (v *VM) SetExecFeeFactor(f int64) { v.execFeeFactor = f }

// SetInterops installs the SYSCALL resolver.
func (v *VM) SetInterops(g InteropGetter) { v.interops = g }

// SetTrigger sets the trigger context for this run.
func (v *VM) SetTrigger(t trigger.Type) { v.trigger = t }

// Trigger returns the trigger context for this run.
func (v *VM) Trigger() trigger.Type { return v.trigger }

// SetContainer sets the script container (transaction or block)
// visible to interop handlers via GetScriptContainer.
func (v *VM) SetContainer(c any) { v.container = c }

// Container returns the script container, if any.
func (v *VM) Container() any { return v.container }

// SetCheckedHash sets the message hash used by standalone
// witness-verification runs (consensus payload signature checks).
func (v *VM) SetCheckedHash(h []byte) { v.checkedHash = h }

// CheckedHash returns the message hash set via SetCheckedHash.
func (v *VM) CheckedHash() []byte { return v.checkedHash }

// State returns the current VM state.
func (v *VM) State() vmstate.State { return v.state }

// FaultException returns the fault reason, if any.
func (v *VM) FaultException() error { return v.faultErr }

// Notifications returns the accumulated notification log.
func (v *VM) Notifications() []Notification { return v.notifications }

// Logs returns the accumulated log records.
func (v *VM) Logs() []LogEntry { return v.logs }

// RefCounter exposes the engine's shared reference counter.
func (v *VM) RefCounter() *stackitem.RefCounter { return v.ref }

// EntryScriptHash returns the Hash160 of the outermost loaded script.
func (v *VM) EntryScriptHash() util.Uint160 { return v.entryScriptHash }

// InvocationCount returns how many times contract h has been entered
// via LoadScriptForCall during this run.
func (v *VM) InvocationCount(h util.Uint160) int { return v.invocationCounter[h] }

// AddNotification records a System.Runtime.Notify event, faulting if
// the current context lacks AllowNotify (spec.md §4.1 "Call flags").
func (v *VM) AddNotification(name string, state stackitem.Array) error {
	if !v.Context().callFlags.Has(callflag.AllowNotify) {
		return fault("Notify: missing AllowNotify flag")
	}
	v.notifications = append(v.notifications, Notification{
		ScriptHash: v.Context().scriptHash,
		Name:       name,
		State:      state,
	})
	return nil
}

// AddLog records a System.Runtime.Log event.
func (v *VM) AddLog(message string) {
	v.logs = append(v.logs, LogEntry{ScriptHash: v.Context().scriptHash, Message: message})
}

// Context returns the currently executing frame, or nil if the
// invocation stack is empty.
func (v *VM) Context() *ExecutionContext {
	if len(v.istack) == 0 {
		return nil
	}
	return v.istack[len(v.istack)-1]
}

// Estack returns the top context's evaluation stack, the conventional
// shorthand used by callers pushing arguments / reading results.
func (v *VM) Estack() *Stack {
	return v.Context().Estack()
}

// Load loads script as the entry context with full call flags,
// establishing entry/calling/executing script hashes as itself.
func (v *VM) Load(script []byte) {
	v.LoadScriptWithFlags(script, callflag.All)
}

// LoadScriptWithFlags loads script as a new entry context with the
// given call flags.
func (v *VM) LoadScriptWithFlags(script []byte, flags callflag.CallFlag) {
	h := hash.Hash160(script)
	ctx := v.newContext(script, h, h, h, flags)
	v.entryScriptHash = h
	v.istack = append(v.istack, ctx)
}

// LoadScriptWithHash loads script as a new entry context under the
// given contract hash with the given call flags, for tests and
// standalone runs that want entry/calling/executing hashes to reflect
// a deployed contract's hash rather than the script's own Hash160.
func (v *VM) LoadScriptWithHash(script []byte, h util.Uint160, flags callflag.CallFlag) {
	ctx := v.newContext(script, h, h, h, flags)
	v.entryScriptHash = h
	v.istack = append(v.istack, ctx)
}

// LoadScript pushes script as a nested call context, computing its
// contract hash from the script bytes themselves (the plain CALL/
// dynamic-invoke path, as opposed to LoadScriptForCall's explicit
// contractHash for a deployed contract whose NEF-stored script may
// differ from the raw bytes on the stack).
func (v *VM) LoadScript(script []byte) error {
	return v.LoadScriptForCall(script, hash.Hash160(script), callflag.All)
}

// LoadScriptForCall pushes a new context for a contract-to-contract
// call, masking flags to the intersection of the caller's current
// flags and the callee's declared requirement, and preserving the
// entry-script hash while updating the calling-script hash to the
// current top context (spec.md §4.1 "Contract call semantics").
func (v *VM) LoadScriptForCall(script []byte, contractHash util.Uint160, requiredFlags callflag.CallFlag) error {
	if len(v.istack) >= v.limits.MaxInvocationStackDepth {
		return fault("invocation stack depth exceeded")
	}
	cur := v.Context()
	callingHash := util.Uint160{}
	entryHash := contractHash
	flags := requiredFlags
	if cur != nil {
		callingHash = cur.scriptHash
		entryHash = cur.entryHash
		flags = cur.callFlags.And(requiredFlags)
	}
	ctx := v.newContext(script, contractHash, callingHash, entryHash, flags)
	v.istack = append(v.istack, ctx)
	v.invocationCounter[contractHash]++
	return nil
}

func (v *VM) newContext(script []byte, self, calling, entry util.Uint160, flags callflag.CallFlag) *ExecutionContext {
	ctx := NewExecutionContext(script)
	ctx.scriptHash = self
	ctx.callingHash = calling
	ctx.entryHash = entry
	ctx.callFlags = flags
	return ctx
}

// Run executes until a terminal state is reached, returning the fault
// error (nil on Halt). It never suspends mid-instruction
// (spec.md §5 "Inside the VM: never suspends mid-instruction").
func (v *VM) Run() error {
	if v.state == vmstate.None && len(v.istack) == 0 {
		return fault("no script loaded")
	}
	for v.state == vmstate.None {
		if err := v.step(); err != nil {
			v.fail(err)
		}
	}
	if v.state == vmstate.Fault {
		return v.faultErr
	}
	return nil
}

func (v *VM) fail(err error) {
	v.state = vmstate.Fault
	v.faultErr = err
}

func (v *VM) chargeGas(price int64) error {
	cost := price * v.execFeeFactor
	if v.gasLimit > 0 && v.gasConsumed+cost > v.gasLimit {
		v.gasConsumed = v.gasLimit
		return fault("gas limit exceeded")
	}
	v.gasConsumed += cost
	return nil
}

// step decodes and executes exactly one instruction, returning any
// error as a candidate Fault reason (panics from stack underflow are
// recovered and converted the same way).
func (v *VM) step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fault("%v", r)
		}
	}()

	ctx := v.Context()
	if ctx == nil {
		v.state = vmstate.Halt
		return nil
	}
	if ctx.ip >= len(ctx.script) {
		return v.doReturn()
	}
	op := opcode.Opcode(ctx.script[ctx.ip])
	if err := v.chargeGas(opcodePrice(op)); err != nil {
		return err
	}
	ctx.ip++
	return v.execute(ctx, op)
}

func (v *VM) readOperand(ctx *ExecutionContext, n int) []byte {
	b := ctx.script[ctx.ip : ctx.ip+n]
	ctx.ip += n
	return b
}

func (v *VM) jumpOffset(ctx *ExecutionContext, from int, offset int) error {
	target := from + offset
	if target < 0 || target > len(ctx.script) {
		return fault("jump target out of script bounds")
	}
	ctx.ip = target
	return nil
}

func (v *VM) pushItem(item stackitem.Item) error {
	if v.Estack().Len() >= v.limits.MaxStackSize {
		return fault("stack item count limit exceeded")
	}
	if err := v.ref.Add(item); err != nil {
		return err
	}
	v.Estack().Push(item)
	return nil
}

func (v *VM) popItem() stackitem.Item {
	item := v.Estack().Pop()
	v.ref.Remove(item)
	return item
}

func (v *VM) popBigInt() (*big.Int, error) {
	item := v.popItem()
	return item.BigInt()
}

func (v *VM) popBool() bool {
	return v.popItem().Bool()
}
