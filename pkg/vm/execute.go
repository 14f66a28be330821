package vm

import (
	"encoding/binary"
	"math/big"

	"github.com/neogo-core/node/pkg/vm/callflag"
	"github.com/neogo-core/node/pkg/vm/opcode"
	"github.com/neogo-core/node/pkg/vm/stackitem"
	"github.com/neogo-core/node/pkg/vm/vmstate"
)

// execute dispatches a single decoded instruction against ctx
// (spec.md §4.1 instruction semantics). ctx.ip already points past the
// opcode byte; operand bytes are consumed from there.
func (v *VM) execute(ctx *ExecutionContext, op opcode.Opcode) error {
	switch op {
	case opcode.PUSHINT8:
		return v.pushInt(ctx, 1)
	case opcode.PUSHINT16:
		return v.pushInt(ctx, 2)
	case opcode.PUSHINT32:
		return v.pushInt(ctx, 4)
	case opcode.PUSHINT64:
		return v.pushInt(ctx, 8)
	case opcode.PUSHINT128:
		return v.pushInt(ctx, 16)
	case opcode.PUSHINT256:
		return v.pushInt(ctx, 32)
	case opcode.PUSHT:
		return v.pushItem(stackitem.NewBool(true))
	case opcode.PUSHF:
		return v.pushItem(stackitem.NewBool(false))
	case opcode.PUSHNULL:
		return v.pushItem(stackitem.NewNull())
	case opcode.PUSHA:
		offset := int(int32(binary.LittleEndian.Uint32(v.readOperand(ctx, 4))))
		return v.pushItem(stackitem.NewPointer(ctx.ip-5+offset, ctx.scriptHash))
	case opcode.PUSHDATA1:
		n := int(v.readOperand(ctx, 1)[0])
		return v.pushBytes(ctx, n)
	case opcode.PUSHDATA2:
		n := int(binary.LittleEndian.Uint16(v.readOperand(ctx, 2)))
		return v.pushBytes(ctx, n)
	case opcode.PUSHDATA4:
		n := int(binary.LittleEndian.Uint32(v.readOperand(ctx, 4)))
		return v.pushBytes(ctx, n)
	case opcode.PUSHM1:
		return v.pushItem(stackitem.NewIntegerFromInt64(-1))
	case opcode.NOP:
		return nil
	}
	if op >= opcode.PUSH0 && op <= opcode.PUSH16 {
		return v.pushItem(stackitem.NewIntegerFromInt64(int64(op) - int64(opcode.PUSH0)))
	}

	switch op {
	case opcode.JMP:
		return v.jmp(ctx, 1, true)
	case opcode.JMPL:
		return v.jmp(ctx, 4, true)
	case opcode.JMPIF:
		return v.jmpCond(ctx, 1, v.popBool())
	case opcode.JMPIFL:
		return v.jmpCond(ctx, 4, v.popBool())
	case opcode.JMPIFNOT:
		return v.jmpCond(ctx, 1, !v.popBool())
	case opcode.JMPIFNOTL:
		return v.jmpCond(ctx, 4, !v.popBool())
	case opcode.JMPEQ, opcode.JMPEQL, opcode.JMPNE, opcode.JMPNEL,
		opcode.JMPGT, opcode.JMPGTL, opcode.JMPGE, opcode.JMPGEL,
		opcode.JMPLT, opcode.JMPLTL, opcode.JMPLE, opcode.JMPLEL:
		return v.jmpCompare(ctx, op)
	case opcode.CALL:
		return v.call(ctx, 1)
	case opcode.CALLL:
		return v.call(ctx, 4)
	case opcode.CALLA:
		ptr, ok := v.popItem().(stackitem.Pointer)
		if !ok {
			return fault("CALLA: not a pointer")
		}
		if ptr.Offset < 0 || ptr.Offset > len(ctx.script) {
			return fault("CALLA: pointer target out of bounds")
		}
		if len(v.istack) >= v.limits.MaxInvocationStackDepth {
			return fault("invocation stack depth exceeded")
		}
		newCtx := v.newContext(ctx.script, ctx.scriptHash, ctx.scriptHash, ctx.entryHash, ctx.callFlags)
		newCtx.ip = ptr.Offset
		v.istack = append(v.istack, newCtx)
		return nil
	case opcode.ABORT:
		return fault("ABORT")
	case opcode.ASSERT:
		if !v.popBool() {
			return fault("ASSERT failed")
		}
		return nil
	case opcode.THROW:
		return v.doThrow(v.popItem())
	case opcode.TRY:
		return v.doTry(ctx, 1)
	case opcode.TRYL:
		return v.doTry(ctx, 4)
	case opcode.ENDTRY:
		return v.doEndTry(ctx, 1)
	case opcode.ENDTRYL:
		return v.doEndTry(ctx, 4)
	case opcode.ENDFINALLY:
		return v.doEndFinally(ctx)
	case opcode.RET:
		return v.doReturn()
	case opcode.SYSCALL:
		hashBytes := v.readOperand(ctx, 4)
		return v.doSyscall(binary.LittleEndian.Uint32(hashBytes))
	}

	switch op {
	case opcode.DEPTH:
		return v.pushItem(stackitem.NewIntegerFromInt64(int64(ctx.estack.Len())))
	case opcode.DROP:
		v.popItem()
		return nil
	case opcode.NIP:
		ctx.estack.RemoveAt(1)
		return nil
	case opcode.XDROP:
		n, err := v.popBigInt()
		if err != nil {
			return err
		}
		ctx.estack.RemoveAt(int(n.Int64()))
		return nil
	case opcode.CLEAR:
		ctx.estack.Clear()
		return nil
	case opcode.DUP:
		return v.pushItem(ctx.estack.Peek().Dup())
	case opcode.OVER:
		return v.pushItem(ctx.estack.Top(1).Dup())
	case opcode.PICK:
		n, err := v.popBigInt()
		if err != nil {
			return err
		}
		return v.pushItem(ctx.estack.Top(int(n.Int64())).Dup())
	case opcode.TUCK:
		ctx.estack.InsertAt(ctx.estack.Peek().Dup(), 2)
		return nil
	case opcode.SWAP:
		a := ctx.estack.RemoveAt(1)
		ctx.estack.Push(a)
		return nil
	case opcode.ROT:
		a := ctx.estack.RemoveAt(2)
		ctx.estack.Push(a)
		return nil
	case opcode.ROLL:
		n, err := v.popBigInt()
		if err != nil {
			return err
		}
		item := ctx.estack.RemoveAt(int(n.Int64()))
		ctx.estack.Push(item)
		return nil
	case opcode.REVERSE3:
		return v.reverseN(ctx, 3)
	case opcode.REVERSE4:
		return v.reverseN(ctx, 4)
	case opcode.REVERSEN:
		n, err := v.popBigInt()
		if err != nil {
			return err
		}
		return v.reverseN(ctx, int(n.Int64()))
	}

	switch op {
	case opcode.INITSSLOT:
		n := int(v.readOperand(ctx, 1)[0])
		ctx.statics = newSlot(n)
		return nil
	case opcode.INITSLOT:
		nLocals := int(v.readOperand(ctx, 1)[0])
		nArgs := int(v.readOperand(ctx, 1)[0])
		ctx.locals = newSlot(nLocals)
		ctx.args = newSlot(nArgs)
		for i := nArgs - 1; i >= 0; i-- {
			ctx.args.set(i, v.popItem())
		}
		return nil
	case opcode.LDSFLD0:
		return v.ldSlot(ctx.statics, 0)
	case opcode.LDSFLD:
		return v.ldSlot(ctx.statics, int(v.readOperand(ctx, 1)[0]))
	case opcode.STSFLD0:
		return v.stSlot(ctx.statics, 0)
	case opcode.STSFLD:
		return v.stSlot(ctx.statics, int(v.readOperand(ctx, 1)[0]))
	case opcode.LDLOC0:
		return v.ldSlot(ctx.locals, 0)
	case opcode.LDLOC:
		return v.ldSlot(ctx.locals, int(v.readOperand(ctx, 1)[0]))
	case opcode.STLOC0:
		return v.stSlot(ctx.locals, 0)
	case opcode.STLOC:
		return v.stSlot(ctx.locals, int(v.readOperand(ctx, 1)[0]))
	case opcode.LDARG0:
		return v.ldSlot(ctx.args, 0)
	case opcode.LDARG:
		return v.ldSlot(ctx.args, int(v.readOperand(ctx, 1)[0]))
	case opcode.STARG0:
		return v.stSlot(ctx.args, 0)
	case opcode.STARG:
		return v.stSlot(ctx.args, int(v.readOperand(ctx, 1)[0]))
	}

	switch op {
	case opcode.NEWBUFFER:
		n, err := v.popBigInt()
		if err != nil {
			return err
		}
		buf, err := stackitem.NewBuffer(int(n.Int64()))
		if err != nil {
			return err
		}
		return v.pushItem(buf)
	case opcode.MEMCPY:
		return v.memcpy()
	case opcode.CAT:
		return v.splice2(func(a, b []byte) ([]byte, error) {
			out := make([]byte, 0, len(a)+len(b))
			out = append(out, a...)
			out = append(out, b...)
			return out, nil
		})
	case opcode.SUBSTR:
		return v.substr()
	case opcode.LEFT:
		return v.sliceN(false)
	case opcode.RIGHT:
		return v.sliceN(true)
	}

	if bin, ok := binaryNumericOps[op]; ok {
		return v.binaryNumeric(bin)
	}
	if un, ok := unaryNumericOps[op]; ok {
		return v.unaryNumeric(un)
	}
	if _, ok := numericComparisons[op]; ok {
		return v.numericCompare(op)
	}

	switch op {
	case opcode.MODMUL:
		mod, err := v.popBigInt()
		if err != nil {
			return err
		}
		b, err := v.popBigInt()
		if err != nil {
			return err
		}
		a, err := v.popBigInt()
		if err != nil {
			return err
		}
		if mod.Sign() == 0 {
			return fault("MODMUL: modulus is zero")
		}
		res := new(big.Int).Mod(new(big.Int).Mul(a, b), mod)
		item, err := stackitem.NewInteger(res)
		if err != nil {
			return err
		}
		return v.pushItem(item)
	case opcode.MODPOW:
		mod, err := v.popBigInt()
		if err != nil {
			return err
		}
		e, err := v.popBigInt()
		if err != nil {
			return err
		}
		a, err := v.popBigInt()
		if err != nil {
			return err
		}
		if mod.Sign() == 0 {
			return fault("MODPOW: modulus is zero")
		}
		res := new(big.Int).Exp(a, e, mod)
		item, err := stackitem.NewInteger(res)
		if err != nil {
			return err
		}
		return v.pushItem(item)
	}

	switch op {
	case opcode.EQUAL:
		b := v.popItem()
		a := v.popItem()
		return v.pushItem(stackitem.NewBool(a.Equals(b)))
	case opcode.NOTEQUAL:
		b := v.popItem()
		a := v.popItem()
		return v.pushItem(stackitem.NewBool(!a.Equals(b)))
	case opcode.NZ:
		n, err := v.popBigInt()
		if err != nil {
			return err
		}
		return v.pushItem(stackitem.NewBool(n.Sign() != 0))
	case opcode.NOT:
		return v.pushItem(stackitem.NewBool(!v.popBool()))
	case opcode.BOOLAND:
		b := v.popBool()
		a := v.popBool()
		return v.pushItem(stackitem.NewBool(a && b))
	case opcode.BOOLOR:
		b := v.popBool()
		a := v.popBool()
		return v.pushItem(stackitem.NewBool(a || b))
	case opcode.WITHIN:
		hi, err := v.popBigInt()
		if err != nil {
			return err
		}
		lo, err := v.popBigInt()
		if err != nil {
			return err
		}
		x, err := v.popBigInt()
		if err != nil {
			return err
		}
		return v.pushItem(stackitem.NewBool(x.Cmp(lo) >= 0 && x.Cmp(hi) < 0))
	}

	switch op {
	case opcode.PACK:
		return v.pack(false)
	case opcode.PACKSTRUCT:
		return v.pack(true)
	case opcode.PACKMAP:
		return v.packMap()
	case opcode.UNPACK:
		return v.unpack()
	case opcode.NEWARRAY0:
		a, err := stackitem.NewArray(nil)
		if err != nil {
			return err
		}
		return v.pushItem(a)
	case opcode.NEWARRAY:
		return v.newArrayN(false)
	case opcode.NEWARRAYT:
		v.readOperand(ctx, 1) // element type byte, unused by this engine's untyped arrays
		return v.newArrayN(false)
	case opcode.NEWSTRUCT0:
		s, err := stackitem.NewStruct(nil)
		if err != nil {
			return err
		}
		return v.pushItem(s)
	case opcode.NEWSTRUCT:
		return v.newArrayN(true)
	case opcode.NEWMAP:
		return v.pushItem(stackitem.NewMap())
	case opcode.SIZE:
		return v.size()
	case opcode.HASKEY:
		return v.haskey()
	case opcode.KEYS:
		m, err := stackitem.AsMap(v.popItem())
		if err != nil {
			return err
		}
		arr, err := stackitem.NewArray(m.Keys())
		if err != nil {
			return err
		}
		return v.pushItem(arr)
	case opcode.VALUES:
		m, err := stackitem.AsMap(v.popItem())
		if err != nil {
			return err
		}
		arr, err := stackitem.NewArray(m.Values())
		if err != nil {
			return err
		}
		return v.pushItem(arr)
	case opcode.PICKITEM:
		return v.pickItem()
	case opcode.APPEND:
		item := v.popItem()
		a, ok := v.popItem().(stackitem.Array)
		if !ok {
			return fault("APPEND: not an array")
		}
		return a.Append(item)
	case opcode.SETITEM:
		return v.setItem()
	case opcode.REVERSEITEMS:
		a, err := stackitem.AsArray(v.popItem())
		if err != nil {
			return err
		}
		for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
			a[i], a[j] = a[j], a[i]
		}
		return nil
	case opcode.REMOVE:
		return v.remove()
	case opcode.CLEARITEMS:
		item := v.popItem()
		a, ok := item.(stackitem.Array)
		if !ok {
			return fault("CLEARITEMS: not a compound")
		}
		a.Clear()
		return nil
	case opcode.POPITEM:
		a, ok := ctx.estack.Peek().(stackitem.Array)
		if !ok {
			return fault("POPITEM: not an array")
		}
		n := a.Len()
		if n == 0 {
			return fault("POPITEM: empty array")
		}
		item := a.At(n - 1)
		a.Remove(n - 1)
		return v.pushItem(item)
	}

	switch op {
	case opcode.ISNULL:
		_, ok := v.popItem().(stackitem.Null)
		return v.pushItem(stackitem.NewBool(ok))
	case opcode.ISTYPE:
		t := stackitem.Type(v.readOperand(ctx, 1)[0])
		item := v.popItem()
		return v.pushItem(stackitem.NewBool(item.Type() == t))
	case opcode.CONVERT:
		t := stackitem.Type(v.readOperand(ctx, 1)[0])
		return v.convert(t)
	}

	return fault("unimplemented opcode %s", op)
}

func (v *VM) pushInt(ctx *ExecutionContext, n int) error {
	b := v.readOperand(ctx, n)
	le := make([]byte, n)
	copy(le, b)
	neg := le[n-1]&0x80 != 0
	be := make([]byte, n)
	for i, c := range le {
		be[n-1-i] = c
	}
	val := new(big.Int).SetBytes(be)
	if neg {
		max := new(big.Int).Lsh(big.NewInt(1), uint(n*8))
		val.Sub(val, max)
	}
	item, err := stackitem.NewInteger(val)
	if err != nil {
		return err
	}
	return v.pushItem(item)
}

func (v *VM) pushBytes(ctx *ExecutionContext, n int) error {
	b := v.readOperand(ctx, n)
	item, err := stackitem.NewByteString(append([]byte(nil), b...))
	if err != nil {
		return err
	}
	return v.pushItem(item)
}

func (v *VM) jmp(ctx *ExecutionContext, width int, _ bool) error {
	from := ctx.ip - 1
	offset := v.readOffset(ctx, width)
	return v.jumpOffset(ctx, from, offset)
}

func (v *VM) jmpCond(ctx *ExecutionContext, width int, cond bool) error {
	from := ctx.ip - 1
	offset := v.readOffset(ctx, width)
	if !cond {
		return nil
	}
	return v.jumpOffset(ctx, from, offset)
}

func (v *VM) readOffset(ctx *ExecutionContext, width int) int {
	b := v.readOperand(ctx, width)
	if width == 1 {
		return int(int8(b[0]))
	}
	return int(int32(binary.LittleEndian.Uint32(b)))
}

func (v *VM) jmpCompare(ctx *ExecutionContext, op opcode.Opcode) error {
	width := 1
	switch op {
	case opcode.JMPEQL, opcode.JMPNEL, opcode.JMPGTL, opcode.JMPGEL, opcode.JMPLTL, opcode.JMPLEL:
		width = 4
	}
	from := ctx.ip - 1
	offset := v.readOffset(ctx, width)
	b, err := v.popBigInt()
	if err != nil {
		return err
	}
	a, err := v.popBigInt()
	if err != nil {
		return err
	}
	cmp := a.Cmp(b)
	var take bool
	switch op {
	case opcode.JMPEQ, opcode.JMPEQL:
		take = cmp == 0
	case opcode.JMPNE, opcode.JMPNEL:
		take = cmp != 0
	case opcode.JMPGT, opcode.JMPGTL:
		take = cmp > 0
	case opcode.JMPGE, opcode.JMPGEL:
		take = cmp >= 0
	case opcode.JMPLT, opcode.JMPLTL:
		take = cmp < 0
	case opcode.JMPLE, opcode.JMPLEL:
		take = cmp <= 0
	}
	if !take {
		return nil
	}
	return v.jumpOffset(ctx, from, offset)
}

// call pushes a new context at a relative offset within the same
// script (spec.md §4.1 "CALL family"), inheriting the caller's call
// flags unmasked (in-script calls are always trusted).
func (v *VM) call(ctx *ExecutionContext, width int) error {
	from := ctx.ip - 1
	offset := v.readOffset(ctx, width)
	target := from + offset
	if target < 0 || target > len(ctx.script) {
		return fault("CALL target out of bounds")
	}
	if len(v.istack) >= v.limits.MaxInvocationStackDepth {
		return fault("invocation stack depth exceeded")
	}
	newCtx := v.newContext(ctx.script, ctx.scriptHash, ctx.scriptHash, ctx.entryHash, ctx.callFlags)
	newCtx.ip = target
	v.istack = append(v.istack, newCtx)
	return nil
}

// doReturn pops the current context, moving its top rvcount items up
// to the caller's evaluation stack (spec.md §4.1 "RET"). Returning
// from the entry context halts the engine.
func (v *VM) doReturn() error {
	ctx := v.istack[len(v.istack)-1]
	v.istack = v.istack[:len(v.istack)-1]

	if len(v.istack) == 0 {
		v.state = vmstate.Halt
		return nil
	}

	caller := v.istack[len(v.istack)-1]
	n := ctx.estack.Len()
	if ctx.rvcount >= 0 {
		n = ctx.rvcount
	}
	items := make([]stackitem.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, ctx.estack.RemoveAt(0))
	}
	for i := len(items) - 1; i >= 0; i-- {
		caller.estack.Push(items[i])
	}
	return nil
}

// doSyscall resolves and invokes a SYSCALL target (spec.md §4.1
// "Interop dispatcher"): resolve, check flags, charge gas, invoke.
func (v *VM) doSyscall(h uint32) error {
	if v.interops == nil {
		return fault("no interop service registered")
	}
	desc := v.interops(h)
	if desc == nil {
		return fault("unknown syscall %08x", h)
	}
	if !v.Context().callFlags.Has(desc.RequiredFlags) {
		return fault("syscall %s: missing call flags", desc.Name)
	}
	if err := v.chargeGas(desc.Price); err != nil {
		return err
	}
	return desc.Func(v)
}

func (v *VM) reverseN(ctx *ExecutionContext, n int) error {
	if n <= 1 {
		return nil
	}
	items := ctx.estack.Items()
	l := len(items)
	for i, j := l-n, l-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return nil
}

func (v *VM) ldSlot(s *slot, i int) error {
	item, ok := s.get(i)
	if !ok {
		return fault("slot index out of range")
	}
	return v.pushItem(item.Dup())
}

func (v *VM) stSlot(s *slot, i int) error {
	item := v.popItem()
	if !s.set(i, item) {
		return fault("slot index out of range")
	}
	return nil
}

// CallFlagAllowed is used by interop handlers (pkg/core/interop) to
// assert a capability before performing a host effect.
func CallFlagAllowed(v *VM, required callflag.CallFlag) bool {
	return v.Context().callFlags.Has(required)
}
