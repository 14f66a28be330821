package vm

import (
	"math/big"

	"github.com/neogo-core/node/pkg/vm/opcode"
	"github.com/neogo-core/node/pkg/vm/stackitem"
)

type binaryNumericFn func(a, b *big.Int) (*big.Int, error)
type unaryNumericFn func(a *big.Int) (*big.Int, error)

var binaryNumericOps = map[opcode.Opcode]binaryNumericFn{
	opcode.ADD: func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Add(a, b), nil },
	opcode.SUB: func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Sub(a, b), nil },
	opcode.MUL: func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Mul(a, b), nil },
	opcode.DIV: func(a, b *big.Int) (*big.Int, error) {
		if b.Sign() == 0 {
			return nil, fault("division by zero")
		}
		return new(big.Int).Quo(a, b), nil
	},
	opcode.MOD: func(a, b *big.Int) (*big.Int, error) {
		if b.Sign() == 0 {
			return nil, fault("division by zero")
		}
		return new(big.Int).Rem(a, b), nil
	},
	opcode.POW: func(a, b *big.Int) (*big.Int, error) {
		if b.Sign() < 0 || !b.IsUint64() || b.Uint64() > 256 {
			return nil, fault("POW exponent out of range")
		}
		return new(big.Int).Exp(a, b, nil), nil
	},
	opcode.SHL: func(a, b *big.Int) (*big.Int, error) {
		if b.Sign() < 0 || !b.IsUint64() || b.Uint64() > stackitem.MaxIntegerBits {
			return nil, fault("SHL shift out of range")
		}
		return new(big.Int).Lsh(a, uint(b.Uint64())), nil
	},
	opcode.SHR: func(a, b *big.Int) (*big.Int, error) {
		if b.Sign() < 0 || !b.IsUint64() || b.Uint64() > stackitem.MaxIntegerBits {
			return nil, fault("SHR shift out of range")
		}
		return new(big.Int).Rsh(a, uint(b.Uint64())), nil
	},
	opcode.AND: func(a, b *big.Int) (*big.Int, error) { return new(big.Int).And(a, b), nil },
	opcode.OR:  func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Or(a, b), nil },
	opcode.XOR: func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Xor(a, b), nil },
	opcode.MIN: func(a, b *big.Int) (*big.Int, error) {
		if a.Cmp(b) <= 0 {
			return a, nil
		}
		return b, nil
	},
	opcode.MAX: func(a, b *big.Int) (*big.Int, error) {
		if a.Cmp(b) >= 0 {
			return a, nil
		}
		return b, nil
	},
}

var numericComparisons = map[opcode.Opcode]func(cmp int) bool{
	opcode.NUMEQUAL:    func(cmp int) bool { return cmp == 0 },
	opcode.NUMNOTEQUAL: func(cmp int) bool { return cmp != 0 },
	opcode.LT:          func(cmp int) bool { return cmp < 0 },
	opcode.LE:          func(cmp int) bool { return cmp <= 0 },
	opcode.GT:          func(cmp int) bool { return cmp > 0 },
	opcode.GE:          func(cmp int) bool { return cmp >= 0 },
}

var unaryNumericOps = map[opcode.Opcode]unaryNumericFn{
	opcode.SIGN: func(a *big.Int) (*big.Int, error) { return big.NewInt(int64(a.Sign())), nil },
	opcode.ABS:  func(a *big.Int) (*big.Int, error) { return new(big.Int).Abs(a), nil },
	opcode.NEGATE: func(a *big.Int) (*big.Int, error) { return new(big.Int).Neg(a), nil },
	opcode.INC:  func(a *big.Int) (*big.Int, error) { return new(big.Int).Add(a, big.NewInt(1)), nil },
	opcode.DEC:  func(a *big.Int) (*big.Int, error) { return new(big.Int).Sub(a, big.NewInt(1)), nil },
	opcode.INVERT: func(a *big.Int) (*big.Int, error) { return new(big.Int).Not(a), nil },
	opcode.SQRT: func(a *big.Int) (*big.Int, error) {
		if a.Sign() < 0 {
			return nil, fault("SQRT of negative number")
		}
		return new(big.Int).Sqrt(a), nil
	},
}

func (v *VM) binaryNumeric(fn binaryNumericFn) error {
	b, err := v.popBigInt()
	if err != nil {
		return err
	}
	a, err := v.popBigInt()
	if err != nil {
		return err
	}
	res, err := fn(a, b)
	if err != nil {
		return err
	}
	item, err := stackitem.NewInteger(res)
	if err != nil {
		return err
	}
	return v.pushItem(item)
}

func (v *VM) unaryNumeric(fn unaryNumericFn) error {
	a, err := v.popBigInt()
	if err != nil {
		return err
	}
	res, err := fn(a)
	if err != nil {
		return err
	}
	item, err := stackitem.NewInteger(res)
	if err != nil {
		return err
	}
	return v.pushItem(item)
}

func (v *VM) numericCompare(op opcode.Opcode) error {
	pred, ok := numericComparisons[op]
	if !ok {
		return fault("not a numeric comparison opcode")
	}
	b, err := v.popBigInt()
	if err != nil {
		return err
	}
	a, err := v.popBigInt()
	if err != nil {
		return err
	}
	return v.pushItem(stackitem.NewBool(pred(a.Cmp(b))))
}
