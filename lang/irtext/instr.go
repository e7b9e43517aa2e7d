package irtext

import (
	"strconv"
	"strings"

	"github.com/JJLDonley/Simple-sub005/lang/bytecode"
)

// emitInstruction lowers one instruction line of dotted-mnemonic textual
// IR (e.g. "add.i32", "array.get.ref", "cmp.eq.i32", "jmp.true loop_top")
// into a Builder call. The dotted-suffix convention mirrors the
// teacher's asm.go mnemonic table, generalized here to the typed-opcode
// scheme of §4.2: the opcode proper is the first dotted component(s),
// trailing components that parse as a Type name select the typed
// variant, and any remaining whitespace-separated tokens are immediate
// operands.
func emitInstruction(b *bytecode.Builder, labels map[string]bytecode.LabelID, lineNo int, text string) error {
	fields := strings.Fields(text)
	mnem := fields[0]
	args := fields[1:]
	parts := strings.Split(mnem, ".")

	switch parts[0] {
	case "nop":
		b.Nop()
	case "pop":
		b.Pop()
	case "dup":
		b.Dup()
	case "dup2":
		b.Dup2()
	case "swap":
		b.Swap()
	case "rot":
		b.Rot()
	case "enter":
		n, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.Enter(uint16(n))

	case "const":
		return emitConst(b, lineNo, parts, args)

	case "add", "sub", "mul", "div", "mod", "and", "or", "xor", "shl", "shr",
		"neg", "inc", "dec":
		t, err := typeSuffix(lineNo, parts)
		if err != nil {
			return err
		}
		switch parts[0] {
		case "add":
			b.Add(t)
		case "sub":
			b.Sub(t)
		case "mul":
			b.Mul(t)
		case "div":
			b.Div(t)
		case "mod":
			b.Mod(t)
		case "and":
			b.And(t)
		case "or":
			b.Or(t)
		case "xor":
			b.Xor(t)
		case "shl":
			b.Shl(t)
		case "shr":
			b.Shr(t)
		case "neg":
			b.Neg(t)
		case "inc":
			b.Inc(t)
		case "dec":
			b.Dec(t)
		}

	case "cmp":
		if len(parts) < 3 {
			return perr(lineNo, "malformed cmp mnemonic: %s", mnem)
		}
		t, ok := bytecode.ParseType(parts[2])
		if !ok {
			return perr(lineNo, "unknown type in mnemonic: %s", mnem)
		}
		switch parts[1] {
		case "eq":
			b.CmpEq(t)
		case "ne":
			b.CmpNe(t)
		case "lt":
			b.CmpLt(t)
		case "le":
			b.CmpLe(t)
		case "gt":
			b.CmpGt(t)
		case "ge":
			b.CmpGe(t)
		default:
			return perr(lineNo, "unknown cmp kind: %s", parts[1])
		}

	case "conv":
		if len(parts) < 3 {
			return perr(lineNo, "malformed conv mnemonic: %s", mnem)
		}
		from, ok1 := bytecode.ParseType(parts[1])
		to, ok2 := bytecode.ParseType(parts[2])
		if !ok1 || !ok2 {
			return perr(lineNo, "unknown type in mnemonic: %s", mnem)
		}
		b.Conv(from, to)

	case "jmp":
		if len(parts) == 1 {
			l, err := resolveLabel(labels, lineNo, arg(args, 0))
			if err != nil {
				return err
			}
			b.Jmp(l)
			return nil
		}
		switch parts[1] {
		case "true":
			l, err := resolveLabel(labels, lineNo, arg(args, 0))
			if err != nil {
				return err
			}
			b.JmpTrue(l)
		case "false":
			l, err := resolveLabel(labels, lineNo, arg(args, 0))
			if err != nil {
				return err
			}
			b.JmpFalse(l)
		default:
			return perr(lineNo, "unknown jmp kind: %s", parts[1])
		}

	case "jmptable":
		if len(args) < 2 {
			return perr(lineNo, "jmptable requires a default and at least one case label")
		}
		def, err := resolveLabel(labels, lineNo, args[0])
		if err != nil {
			return err
		}
		cases := make([]bytecode.LabelID, 0, len(args)-1)
		for _, a := range args[1:] {
			l, err := resolveLabel(labels, lineNo, a)
			if err != nil {
				return err
			}
			cases = append(cases, l)
		}
		b.JmpTable(def, cases)

	case "ret":
		arity := 0
		if len(args) > 0 {
			n, err := parseUintTok(lineNo, args[0])
			if err != nil {
				return err
			}
			arity = int(n)
		}
		b.Ret(arity)

	case "call":
		switch {
		case len(parts) > 1 && parts[1] == "indirect":
			sig, err := parseUintTok(lineNo, arg(args, 0))
			if err != nil {
				return err
			}
			argc, err := parseUintTok(lineNo, arg(args, 1))
			if err != nil {
				return err
			}
			b.CallIndirect(uint32(sig), uint16(argc), boolArg(args, 2))
		default:
			fid, err := parseUintTok(lineNo, arg(args, 0))
			if err != nil {
				return err
			}
			argc, err := parseUintTok(lineNo, arg(args, 1))
			if err != nil {
				return err
			}
			b.Call(uint32(fid), uint16(argc), boolArg(args, 2))
		}

	case "tailcall":
		fid, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		argc, err := parseUintTok(lineNo, arg(args, 1))
		if err != nil {
			return err
		}
		b.TailCall(uint32(fid), uint16(argc))

	case "callcheck":
		sig, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.CallCheck(uint32(sig))

	case "ldloc":
		n, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.LdLoc(uint16(n))
	case "stloc":
		n, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.StLoc(uint16(n))
	case "ldglob":
		n, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.LdGlob(uint32(n))
	case "stglob":
		n, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.StGlob(uint32(n))
	case "ldupv":
		n, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.LdUpv(uint16(n))
	case "stupv":
		n, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.StUpv(uint16(n))

	case "newobj":
		n, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.NewObj(uint32(n))
	case "ldfld":
		n, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.LdFld(uint32(n))
	case "stfld":
		n, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.StFld(uint32(n))
	case "typeof":
		b.TypeOf()
	case "isnull":
		b.IsNull()
	case "refeq":
		b.RefEq()
	case "refne":
		b.RefNe()
	case "newclosure":
		mid, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		uc, err := parseUintTok(lineNo, arg(args, 1))
		if err != nil {
			return err
		}
		b.NewClosure(uint32(mid), uint16(uc))

	case "array":
		return emitArray(b, lineNo, parts, args)
	case "list":
		return emitList(b, lineNo, parts, args)
	case "string":
		return emitString(b, lineNo, parts)

	case "intrinsic":
		id, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.Intrinsic(uint32(id), 0)
	case "syscall":
		id, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		b.Syscall(uint32(id), 0)

	default:
		return perr(lineNo, "unknown mnemonic: %s", mnem)
	}
	return nil
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func boolArg(args []string, i int) bool {
	return arg(args, i) == "true" || arg(args, i) == "1"
}

func typeSuffix(lineNo int, parts []string) (bytecode.Type, error) {
	if len(parts) < 2 {
		return 0, perr(lineNo, "mnemonic missing type suffix: %s", strings.Join(parts, "."))
	}
	t, ok := bytecode.ParseType(parts[1])
	if !ok {
		return 0, perr(lineNo, "unknown type suffix: %s", parts[1])
	}
	return t, nil
}

func emitConst(b *bytecode.Builder, lineNo int, parts, args []string) error {
	if len(parts) < 2 {
		return perr(lineNo, "const requires a type suffix")
	}
	lit := arg(args, 0)
	switch parts[1] {
	case "i8":
		v, err := parseIntTok(lineNo, lit)
		if err != nil {
			return err
		}
		b.ConstI8(int8(v))
	case "i16":
		v, err := parseIntTok(lineNo, lit)
		if err != nil {
			return err
		}
		b.ConstI16(int16(v))
	case "i32":
		v, err := parseIntTok(lineNo, lit)
		if err != nil {
			return err
		}
		b.ConstI32(int32(v))
	case "i64":
		v, err := parseIntTok(lineNo, lit)
		if err != nil {
			return err
		}
		b.ConstI64(v)
	case "u8":
		v, err := parseUintTok(lineNo, lit)
		if err != nil {
			return err
		}
		b.ConstU8(uint8(v))
	case "u16":
		v, err := parseUintTok(lineNo, lit)
		if err != nil {
			return err
		}
		b.ConstU16(uint16(v))
	case "u32":
		v, err := parseUintTok(lineNo, lit)
		if err != nil {
			return err
		}
		b.ConstU32(uint32(v))
	case "u64":
		v, err := parseUintTok(lineNo, lit)
		if err != nil {
			return err
		}
		b.ConstU64(v)
	case "f32":
		v, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return perr(lineNo, "bad f32 literal: %s", lit)
		}
		b.ConstF32(float32(v))
	case "f64":
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return perr(lineNo, "bad f64 literal: %s", lit)
		}
		b.ConstF64(v)
	case "bool":
		b.ConstBool(lit == "true")
	case "char":
		r, err := parseUintTok(lineNo, lit)
		if err != nil {
			return err
		}
		b.ConstChar(rune(r))
	case "string":
		id, err := parseUintTok(lineNo, lit)
		if err != nil {
			return err
		}
		b.ConstString(uint32(id))
	case "null":
		b.ConstNull()
	default:
		return perr(lineNo, "unknown const type: %s", parts[1])
	}
	return nil
}

func emitArray(b *bytecode.Builder, lineNo int, parts, args []string) error {
	if len(parts) < 2 {
		return perr(lineNo, "malformed array mnemonic")
	}
	switch parts[1] {
	case "new":
		typeID, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		length, err := parseUintTok(lineNo, arg(args, 1))
		if err != nil {
			return err
		}
		b.NewArray(uint32(typeID), uint32(length))
	case "len":
		b.ArrayLen()
	case "get":
		t, err := typeSuffix(lineNo, parts[1:])
		if err != nil {
			return err
		}
		b.ArrayGet(t)
	case "set":
		t, err := typeSuffix(lineNo, parts[1:])
		if err != nil {
			return err
		}
		b.ArraySet(t)
	default:
		return perr(lineNo, "unknown array op: %s", parts[1])
	}
	return nil
}

func emitList(b *bytecode.Builder, lineNo int, parts, args []string) error {
	if len(parts) < 2 {
		return perr(lineNo, "malformed list mnemonic")
	}
	switch parts[1] {
	case "new":
		typeID, err := parseUintTok(lineNo, arg(args, 0))
		if err != nil {
			return err
		}
		cap, err := parseUintTok(lineNo, arg(args, 1))
		if err != nil {
			return err
		}
		b.NewList(uint32(typeID), uint32(cap))
	case "len":
		b.ListLen()
	case "get":
		t, err := typeSuffix(lineNo, parts[1:])
		if err != nil {
			return err
		}
		b.ListGet(t)
	case "set":
		t, err := typeSuffix(lineNo, parts[1:])
		if err != nil {
			return err
		}
		b.ListSet(t)
	case "push":
		t, err := typeSuffix(lineNo, parts[1:])
		if err != nil {
			return err
		}
		b.ListPush(t)
	case "pop":
		t, err := typeSuffix(lineNo, parts[1:])
		if err != nil {
			return err
		}
		b.ListPop(t)
	case "insert":
		b.ListInsert()
	case "remove":
		b.ListRemove()
	case "clear":
		b.ListClear()
	default:
		return perr(lineNo, "unknown list op: %s", parts[1])
	}
	return nil
}

func emitString(b *bytecode.Builder, lineNo int, parts []string) error {
	if len(parts) < 2 {
		return perr(lineNo, "malformed string mnemonic")
	}
	switch parts[1] {
	case "len":
		b.StringLen()
	case "concat":
		b.StringConcat()
	case "get":
		// string.get.char
		b.StringGetChar()
	case "slice":
		b.StringSlice()
	default:
		return perr(lineNo, "unknown string op: %s", parts[1])
	}
	return nil
}
