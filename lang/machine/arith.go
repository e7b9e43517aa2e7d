package machine

import (
	"math"

	"github.com/JJLDonley/Simple-sub005/lang/bytecode"
)

// binop implements the typed arithmetic/bitwise family (ADD..SHR),
// dispatching on t's float-vs-integer-vs-unsigned shape and trapping on
// division by zero per §7. Signed DIV/MOD of the type's minimum value
// by -1 traps with ExitIntegerOverflow; all other overflow wraps per
// two's complement (§9), via Truncate.
func (vm *VM) binop(op bytecode.Op, t bytecode.Type) {
	b := vm.pop()
	a := vm.pop()

	if t.IsFloat() {
		vm.push(floatBinop(op, a, b, t))
		return
	}

	if t.IsUnsigned() {
		vm.push(uintBinop(op, a.U64(), b.U64(), t))
		return
	}
	vm.push(intBinop(op, a.I64(), b.I64(), t))
}

func floatBinop(op bytecode.Op, a, b Slot, t bytecode.Type) Slot {
	var av, bv, r float64
	if t == bytecode.TypeF32 {
		av, bv = float64(a.F32()), float64(b.F32())
	} else {
		av, bv = a.F64(), b.F64()
	}
	switch op {
	case bytecode.ADD:
		r = av + bv
	case bytecode.SUB:
		r = av - bv
	case bytecode.MUL:
		r = av * bv
	case bytecode.DIV:
		r = av / bv
	default:
		panic(trap(ExitUnknownIntrinsic, "bitwise op on float operand"))
	}
	if t == bytecode.TypeF32 {
		return FromF32(float32(r))
	}
	return FromF64(r)
}

func intBinop(op bytecode.Op, a, b int64, t bytecode.Type) Slot {
	var r int64
	switch op {
	case bytecode.ADD:
		r = a + b
	case bytecode.SUB:
		r = a - b
	case bytecode.MUL:
		r = a * b
	case bytecode.DIV:
		if b == 0 {
			panic(trap(ExitDivByZero, "integer division by zero"))
		}
		if b == -1 && a == signedMin(t) {
			panic(trap(ExitIntegerOverflow, "integer division overflow: %d / -1 at %s", a, t))
		}
		r = a / b
	case bytecode.MOD:
		if b == 0 {
			panic(trap(ExitDivByZero, "integer modulo by zero"))
		}
		if b == -1 && a == signedMin(t) {
			panic(trap(ExitIntegerOverflow, "integer modulo overflow: %d %% -1 at %s", a, t))
		}
		r = a % b
	case bytecode.AND:
		r = a & b
	case bytecode.OR:
		r = a | b
	case bytecode.XOR:
		r = a ^ b
	case bytecode.SHL:
		r = a << (uint64(b) & shiftMask(t))
	case bytecode.SHR:
		r = a >> (uint64(b) & shiftMask(t))
	}
	return FromU64(Truncate(uint64(r), t))
}

// signedMin returns the minimum representable value for t's bit width,
// the operand that traps on DIV/MOD by -1 (§9's integer-overflow rule).
func signedMin(t bytecode.Type) int64 {
	w := t.Width()
	return int64(-1) << (uint(w)*8 - 1)
}

// shiftMask reduces a shift count modulo t's bit width, per §4.4's
// "shift counts wrap modulo the operand's bit width" rule.
func shiftMask(t bytecode.Type) uint64 {
	return uint64(t.Width())*8 - 1
}

func uintBinop(op bytecode.Op, a, b uint64, t bytecode.Type) Slot {
	var r uint64
	switch op {
	case bytecode.ADD:
		r = a + b
	case bytecode.SUB:
		r = a - b
	case bytecode.MUL:
		r = a * b
	case bytecode.DIV:
		if b == 0 {
			panic(trap(ExitDivByZero, "integer division by zero"))
		}
		r = a / b
	case bytecode.MOD:
		if b == 0 {
			panic(trap(ExitDivByZero, "integer modulo by zero"))
		}
		r = a % b
	case bytecode.AND:
		r = a & b
	case bytecode.OR:
		r = a | b
	case bytecode.XOR:
		r = a ^ b
	case bytecode.SHL:
		r = a << (b & shiftMask(t))
	case bytecode.SHR:
		r = a >> (b & shiftMask(t))
	}
	return FromU64(Truncate(r, t))
}

// unop implements NEG/INC/DEC.
func (vm *VM) unop(op bytecode.Op, t bytecode.Type) {
	a := vm.pop()
	if t.IsFloat() {
		var v float64
		if t == bytecode.TypeF32 {
			v = float64(a.F32())
		} else {
			v = a.F64()
		}
		switch op {
		case bytecode.NEG:
			v = -v
		case bytecode.INC:
			v = v + 1
		case bytecode.DEC:
			v = v - 1
		}
		if t == bytecode.TypeF32 {
			vm.push(FromF32(float32(v)))
		} else {
			vm.push(FromF64(v))
		}
		return
	}

	var r uint64
	switch op {
	case bytecode.NEG:
		r = uint64(-a.I64())
	case bytecode.INC:
		r = a.U64() + 1
	case bytecode.DEC:
		r = a.U64() - 1
	}
	vm.push(FromU64(Truncate(r, t)))
}

// cmpop implements CMP_EQ..CMP_GE, pushing a bool Slot.
func (vm *VM) cmpop(op bytecode.Op, t bytecode.Type) {
	b := vm.pop()
	a := vm.pop()

	var result bool
	switch {
	case t.IsFloat():
		var av, bv float64
		if t == bytecode.TypeF32 {
			av, bv = float64(a.F32()), float64(b.F32())
		} else {
			av, bv = a.F64(), b.F64()
		}
		result = cmpFloat(op, av, bv)
	case t.IsUnsigned():
		result = cmpUint(op, a.U64(), b.U64())
	default:
		result = cmpInt(op, a.I64(), b.I64())
	}
	vm.push(FromBool(result))
}

func cmpFloat(op bytecode.Op, a, b float64) bool {
	switch op {
	case bytecode.CMP_EQ:
		return a == b
	case bytecode.CMP_NE:
		return a != b
	case bytecode.CMP_LT:
		return a < b
	case bytecode.CMP_LE:
		return a <= b
	case bytecode.CMP_GT:
		return a > b
	case bytecode.CMP_GE:
		return a >= b
	}
	return false
}

func cmpInt(op bytecode.Op, a, b int64) bool {
	switch op {
	case bytecode.CMP_EQ:
		return a == b
	case bytecode.CMP_NE:
		return a != b
	case bytecode.CMP_LT:
		return a < b
	case bytecode.CMP_LE:
		return a <= b
	case bytecode.CMP_GT:
		return a > b
	case bytecode.CMP_GE:
		return a >= b
	}
	return false
}

func cmpUint(op bytecode.Op, a, b uint64) bool {
	switch op {
	case bytecode.CMP_EQ:
		return a == b
	case bytecode.CMP_NE:
		return a != b
	case bytecode.CMP_LT:
		return a < b
	case bytecode.CMP_LE:
		return a <= b
	case bytecode.CMP_GT:
		return a > b
	case bytecode.CMP_GE:
		return a >= b
	}
	return false
}

// conv implements the CONV opcode: a value of type from on top of the
// stack is reinterpreted/cast to to, per the numeric conversion rules
// of §4.2 (float<->int truncates toward zero, narrowing wraps per
// two's complement).
func (vm *VM) conv(from, to bytecode.Type) {
	a := vm.pop()

	var f64 float64
	switch {
	case from.IsFloat():
		if from == bytecode.TypeF32 {
			f64 = float64(a.F32())
		} else {
			f64 = a.F64()
		}
	case from.IsUnsigned():
		f64 = float64(a.U64())
	default:
		f64 = float64(a.I64())
	}

	switch {
	case to.IsFloat():
		if to == bytecode.TypeF32 {
			vm.push(FromF32(float32(f64)))
		} else {
			vm.push(FromF64(f64))
		}
	case from.IsFloat():
		vm.push(FromU64(Truncate(uint64(int64(math.Trunc(f64))), to)))
	default:
		vm.push(FromU64(Truncate(a.U64(), to)))
	}
}
