package vm

import (
	"github.com/neogo-core/node/pkg/vm/stackitem"
)

// doTry pushes a new try-frame over the current context, reading its
// catch/finally offsets (0 meaning "absent"), per spec.md §4.1
// "Exception handling".
func (v *VM) doTry(ctx *ExecutionContext, width int) error {
	from := ctx.ip - 1
	catchOffset := v.readOffset(ctx, width)
	finallyOffset := v.readOffset(ctx, width)
	hasCatch := catchOffset != 0
	hasFinally := finallyOffset != 0
	var catchPC, finallyPC int
	if hasCatch {
		catchPC = from + catchOffset
	}
	if hasFinally {
		finallyPC = from + finallyOffset
	}
	ctx.pushTry(catchPC, finallyPC, hasCatch, hasFinally, 0)
	return nil
}

// doEndTry closes the current try-frame: if it has a finally clause,
// control transfers there with the post-finally resume point recorded;
// otherwise it jumps straight to the end target.
func (v *VM) doEndTry(ctx *ExecutionContext, width int) error {
	from := ctx.ip - 1
	offset := v.readOffset(ctx, width)
	frame := ctx.topTry()
	if frame == nil {
		return fault("ENDTRY: no active try block")
	}
	target := from + offset
	if frame.hasFinally && frame.state != tryStateFinally {
		frame.finallyEndPC = target
		frame.state = tryStateFinally
		ctx.ip = frame.finallyPC
		return nil
	}
	ctx.popTry()
	ctx.ip = target
	return nil
}

// doEndFinally resumes after the just-completed finally block, either
// at the recorded post-finally target or by continuing to unwind if
// the finally was entered while propagating an exception.
func (v *VM) doEndFinally(ctx *ExecutionContext) error {
	frame := ctx.topTry()
	if frame == nil {
		return fault("ENDFINALLY: no active try block")
	}
	ctx.popTry()
	if v.uncaught != nil {
		exc := v.uncaught
		v.uncaught = nil
		return v.doThrow(exc)
	}
	ctx.ip = frame.finallyEndPC
	return nil
}

// doThrow implements the unwind procedure (spec.md §4.1 "THROW /
// uncaught exception unwinding"): search the current context's
// try-stack for a handler; if none, pop the context and continue
// searching the caller, propagating to Fault if the invocation stack
// empties with the exception still live.
func (v *VM) doThrow(exc stackitem.Item) error {
	for len(v.istack) > 0 {
		ctx := v.istack[len(v.istack)-1]
		for len(ctx.tryStack) > 0 {
			frame := ctx.topTry()
			if frame.state == tryStateTry && frame.hasCatch {
				frame.state = tryStateCatch
				ctx.ip = frame.catchPC
				ctx.estack.Push(exc)
				return nil
			}
			if frame.hasFinally && frame.state != tryStateFinally {
				v.uncaught = exc
				frame.state = tryStateFinally
				ctx.ip = frame.finallyPC
				return nil
			}
			ctx.popTry()
		}
		v.istack = v.istack[:len(v.istack)-1]
	}
	return fault("unhandled exception: %v", exc)
}
