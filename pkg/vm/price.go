package vm

import "github.com/neogo-core/node/pkg/vm/opcode"

// Base opcode prices in gas fractions, scaled by the current policy's
// exec_fee_factor before being charged (spec.md §4.1 "Gas accounting").
// Prices group by relative cost tier, following the shape (not the
// exact historical tuning) of the reference opcode price table.
const (
	priceNone    int64 = 1 << 0
	priceStack   int64 = 1 << 1
	priceStorage int64 = 1 << 4
	priceCompute int64 = 1 << 3
	priceSlot    int64 = 1 << 2
)

func opcodePrice(op opcode.Opcode) int64 {
	switch op {
	case opcode.NOP, opcode.PUSHT, opcode.PUSHF, opcode.PUSHNULL,
		opcode.PUSH0, opcode.PUSH1, opcode.PUSH2, opcode.PUSH3, opcode.PUSH4,
		opcode.PUSH5, opcode.PUSH6, opcode.PUSH7, opcode.PUSH8, opcode.PUSH9,
		opcode.PUSH10, opcode.PUSH11, opcode.PUSH12, opcode.PUSH13, opcode.PUSH14,
		opcode.PUSH15, opcode.PUSH16, opcode.PUSHM1,
		opcode.PUSHINT8, opcode.PUSHINT16, opcode.PUSHINT32, opcode.PUSHINT64,
		opcode.PUSHINT128, opcode.PUSHINT256,
		opcode.DROP, opcode.NIP, opcode.DUP, opcode.OVER, opcode.SWAP,
		opcode.ROT, opcode.TUCK, opcode.DEPTH, opcode.CLEAR:
		return priceNone
	case opcode.PUSHDATA1, opcode.PUSHDATA2, opcode.PUSHDATA4,
		opcode.XDROP, opcode.PICK, opcode.ROLL, opcode.REVERSE3,
		opcode.REVERSE4, opcode.REVERSEN:
		return priceStack
	case opcode.INITSLOT, opcode.INITSSLOT,
		opcode.LDSFLD0, opcode.LDSFLD, opcode.STSFLD0, opcode.STSFLD,
		opcode.LDLOC0, opcode.LDLOC, opcode.STLOC0, opcode.STLOC,
		opcode.LDARG0, opcode.LDARG, opcode.STARG0, opcode.STARG:
		return priceSlot
	case opcode.NEWBUFFER, opcode.MEMCPY, opcode.CAT, opcode.SUBSTR,
		opcode.LEFT, opcode.RIGHT, opcode.NEWARRAY, opcode.NEWARRAY0,
		opcode.NEWSTRUCT, opcode.NEWSTRUCT0, opcode.NEWMAP, opcode.PACK,
		opcode.UNPACK, opcode.SIZE, opcode.HASKEY, opcode.KEYS, opcode.VALUES,
		opcode.PICKITEM, opcode.APPEND, opcode.SETITEM, opcode.REMOVE,
		opcode.CLEARITEMS, opcode.POPITEM, opcode.REVERSEITEMS:
		return priceCompute
	case opcode.JMP, opcode.JMPL, opcode.JMPIF, opcode.JMPIFL,
		opcode.JMPIFNOT, opcode.JMPIFNOTL, opcode.JMPEQ, opcode.JMPEQL,
		opcode.JMPNE, opcode.JMPNEL, opcode.JMPGT, opcode.JMPGTL,
		opcode.JMPGE, opcode.JMPGEL, opcode.JMPLT, opcode.JMPLTL,
		opcode.JMPLE, opcode.JMPLEL:
		return priceNone
	case opcode.CALL, opcode.CALLL, opcode.CALLA, opcode.CALLT:
		return priceCompute << 3
	case opcode.SYSCALL:
		return priceNone
	case opcode.TRY, opcode.TRYL, opcode.ENDTRY, opcode.ENDTRYL,
		opcode.ENDFINALLY, opcode.THROW, opcode.ABORT, opcode.ASSERT, opcode.RET:
		return priceStack
	default:
		return priceCompute
	}
}
