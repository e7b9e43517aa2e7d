package irtext

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JJLDonley/Simple-sub005/lang/bytecode"
)

func bitsToF32(v uint32) float32 { return math.Float32frombits(v) }
func bitsToF64(v uint64) float64 { return math.Float64frombits(v) }

// Dasm renders a Module back to the textual IR format, satisfying the
// emit-then-parse round trip (§8 property 1): Parse(Dasm(m)) produces a
// Module equivalent in every field Dasm prints. Mirrors the teacher's
// asm.go Dasm companion to Asm.
func Dasm(m *Module) string {
	var sb strings.Builder

	if len(m.Types) > 0 {
		sb.WriteString("types:\n")
		for _, t := range m.Types {
			kind := "enum"
			if t.Kind == TypeKindArtifact {
				kind = "artifact"
			}
			fmt.Fprintf(&sb, "  type %s size=%d kind=%s\n", t.Name, t.Size, kind)
			for _, f := range t.Fields {
				fmt.Fprintf(&sb, "  field %s %s offset=%d\n", f.Name, f.Type, f.Offset)
			}
		}
		sb.WriteString("\n")
	}

	if len(m.Sigs) > 0 {
		sb.WriteString("sigs:\n")
		for _, s := range m.Sigs {
			fmt.Fprintf(&sb, "  sig %s: (%s) -> %s\n", s.Name, strings.Join(s.Params, ", "), s.Return)
		}
		sb.WriteString("\n")
	}

	if len(m.Consts) > 0 {
		sb.WriteString("consts:\n")
		for _, c := range m.Consts {
			fmt.Fprintf(&sb, "  const %s %s %s\n", c.Name, c.Kind, c.Text)
		}
		sb.WriteString("\n")
	}

	if len(m.Globals) > 0 {
		sb.WriteString("globals:\n")
		for _, g := range m.Globals {
			fmt.Fprintf(&sb, "  global %s %s init=%s\n", g.Name, g.Type, g.Init)
		}
		sb.WriteString("\n")
	}

	if len(m.Imports) > 0 {
		sb.WriteString("imports:\n")
		for _, imp := range m.Imports {
			fmt.Fprintf(&sb, "  import %s %s %s sig=%s\n", imp.Name, imp.Module, imp.Symbol, imp.Sig)
		}
		sb.WriteString("\n")
	}

	for _, fn := range m.Functions {
		fmt.Fprintf(&sb, "func %s locals=%d stack=%d sig=%d\n", fn.Name, fn.Locals, fn.StackMax, fn.SigID)
		dasmBody(&sb, fn.Code)
		sb.WriteString("end\n\n")
	}

	fmt.Fprintf(&sb, "entry %s\n", m.Entry)
	return sb.String()
}

// dasmBody disassembles one function's code buffer back into indented
// mnemonic lines. It does not attempt to reconstruct original label
// names: synthetic labels (L0, L1, ...) are generated at every distinct
// jump target, which is sufficient for the round-trip property even
// though it does not reproduce the author's original label spelling.
func dasmBody(sb *strings.Builder, code []byte) {
	targets := map[uint32]string{}
	addLabel := func(addr uint32) string {
		if name, ok := targets[addr]; ok {
			return name
		}
		name := fmt.Sprintf("L%d", len(targets))
		targets[addr] = name
		return name
	}

	d := newDecoder(code, 0)
	for d.ip < uint32(len(code)) {
		op := bytecode.Op(d.code[d.ip])
		switch {
		case op == bytecode.JMP || op == bytecode.JMP_TRUE || op == bytecode.JMP_FALSE:
			d.ip++
			addLabel(d.jumpTarget())
		case op == bytecode.JMPTABLE:
			d.ip++
			addLabel(d.jumpTarget())
			n := d.uvarint()
			for i := uint64(0); i < n; i++ {
				addLabel(d.jumpTarget())
			}
		default:
			skipInstruction(d)
		}
	}

	d = newDecoder(code, 0)
	for d.ip < uint32(len(code)) {
		if name, ok := targets[d.ip]; ok {
			fmt.Fprintf(sb, "%s:\n", name)
		}
		dasmOne(sb, d, targets)
	}
}

// skipInstruction advances past one instruction without printing,
// used in the label-discovery pass.
func skipInstruction(d *decoder) {
	op := d.op()
	switch {
	case isTypedBinary(op):
		d.byteImm()
	case op == bytecode.CONV:
		d.byteImm()
		d.byteImm()
	case op == bytecode.ENTER, op == bytecode.LDLOC, op == bytecode.STLOC,
		op == bytecode.LDGLOB, op == bytecode.STGLOB, op == bytecode.LDUPV, op == bytecode.STUPV,
		op == bytecode.NEWOBJ, op == bytecode.LDFLD, op == bytecode.STFLD,
		op == bytecode.CALLCHECK, op == bytecode.INTRINSIC, op == bytecode.SYSCALL,
		op == bytecode.CONST_STRING, op == bytecode.CONST_U16, op == bytecode.CONST_U32,
		op == bytecode.CONST_U64, op == bytecode.CONST_CHAR:
		d.uvarint()
	case op == bytecode.CONST_I8, op == bytecode.CONST_U8, op == bytecode.CONST_BOOL:
		d.byteImm()
	case op == bytecode.CONST_I16, op == bytecode.CONST_I32, op == bytecode.CONST_I64:
		d.varint()
	case op == bytecode.CONST_F32:
		d.fixed32()
	case op == bytecode.CONST_F64:
		d.fixed64()
	case op == bytecode.NEWARRAY, op == bytecode.NEWLIST:
		d.uvarint()
		d.uvarint()
	case op == bytecode.ARRAY_GET, op == bytecode.ARRAY_SET, op == bytecode.LIST_GET,
		op == bytecode.LIST_SET, op == bytecode.LIST_PUSH, op == bytecode.LIST_POP:
		d.byteImm()
	case op == bytecode.NEWCLOSURE:
		d.uvarint()
		d.uvarint()
	case op == bytecode.CALL:
		d.uvarint()
		d.uvarint()
	case op == bytecode.CALL_INDIRECT:
		d.uvarint()
		d.uvarint()
	case op == bytecode.TAILCALL:
		d.uvarint()
		d.uvarint()
	}
}

func isTypedBinary(op bytecode.Op) bool {
	switch op {
	case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD,
		bytecode.AND, bytecode.OR, bytecode.XOR, bytecode.SHL, bytecode.SHR,
		bytecode.NEG, bytecode.INC, bytecode.DEC,
		bytecode.CMP_EQ, bytecode.CMP_NE, bytecode.CMP_LT, bytecode.CMP_LE, bytecode.CMP_GT, bytecode.CMP_GE:
		return true
	default:
		return false
	}
}

// dasmOne prints exactly one instruction and advances d past it.
func dasmOne(sb *strings.Builder, d *decoder, targets map[uint32]string) {
	ip := d.ip
	op := d.op()
	switch op {
	case bytecode.NOP:
		sb.WriteString("  nop\n")
	case bytecode.POP:
		sb.WriteString("  pop\n")
	case bytecode.DUP:
		sb.WriteString("  dup\n")
	case bytecode.DUP2:
		sb.WriteString("  dup2\n")
	case bytecode.SWAP:
		sb.WriteString("  swap\n")
	case bytecode.ROT:
		sb.WriteString("  rot\n")
	case bytecode.ENTER:
		fmt.Fprintf(sb, "  enter %d\n", d.uvarint())
	case bytecode.RET:
		sb.WriteString("  ret\n")
	case bytecode.JMP:
		fmt.Fprintf(sb, "  jmp %s\n", targets[d.jumpTarget()])
	case bytecode.JMP_TRUE:
		fmt.Fprintf(sb, "  jmp.true %s\n", targets[d.jumpTarget()])
	case bytecode.JMP_FALSE:
		fmt.Fprintf(sb, "  jmp.false %s\n", targets[d.jumpTarget()])
	case bytecode.JMPTABLE:
		def := targets[d.jumpTarget()]
		n := d.uvarint()
		cases := make([]string, 0, n)
		for i := uint64(0); i < n; i++ {
			cases = append(cases, targets[d.jumpTarget()])
		}
		fmt.Fprintf(sb, "  jmptable %s %s\n", def, strings.Join(cases, " "))
	case bytecode.INTRINSIC:
		fmt.Fprintf(sb, "  intrinsic %d\n", d.uvarint())
	case bytecode.SYSCALL:
		fmt.Fprintf(sb, "  syscall %d\n", d.uvarint())
	case bytecode.CALL:
		fid := d.uvarint()
		argc := d.uvarint()
		fmt.Fprintf(sb, "  call %d %d\n", fid, argc)
	case bytecode.CALL_INDIRECT:
		sig := d.uvarint()
		argc := d.uvarint()
		fmt.Fprintf(sb, "  call.indirect %d %d\n", sig, argc)
	case bytecode.TAILCALL:
		fid := d.uvarint()
		argc := d.uvarint()
		fmt.Fprintf(sb, "  tailcall %d %d\n", fid, argc)
	case bytecode.CALLCHECK:
		fmt.Fprintf(sb, "  callcheck %d\n", d.uvarint())
	case bytecode.LDLOC:
		fmt.Fprintf(sb, "  ldloc %d\n", d.uvarint())
	case bytecode.STLOC:
		fmt.Fprintf(sb, "  stloc %d\n", d.uvarint())
	case bytecode.LDGLOB:
		fmt.Fprintf(sb, "  ldglob %d\n", d.uvarint())
	case bytecode.STGLOB:
		fmt.Fprintf(sb, "  stglob %d\n", d.uvarint())
	case bytecode.LDUPV:
		fmt.Fprintf(sb, "  ldupv %d\n", d.uvarint())
	case bytecode.STUPV:
		fmt.Fprintf(sb, "  stupv %d\n", d.uvarint())
	case bytecode.NEWOBJ:
		fmt.Fprintf(sb, "  newobj %d\n", d.uvarint())
	case bytecode.LDFLD:
		fmt.Fprintf(sb, "  ldfld %d\n", d.uvarint())
	case bytecode.STFLD:
		fmt.Fprintf(sb, "  stfld %d\n", d.uvarint())
	case bytecode.TYPEOF:
		sb.WriteString("  typeof\n")
	case bytecode.ISNULL:
		sb.WriteString("  isnull\n")
	case bytecode.REF_EQ:
		sb.WriteString("  refeq\n")
	case bytecode.REF_NE:
		sb.WriteString("  refne\n")
	case bytecode.NEWCLOSURE:
		mid := d.uvarint()
		uc := d.uvarint()
		fmt.Fprintf(sb, "  newclosure %d %d\n", mid, uc)
	case bytecode.NEWARRAY:
		t := d.uvarint()
		l := d.uvarint()
		fmt.Fprintf(sb, "  array.new %d %d\n", t, l)
	case bytecode.ARRAY_LEN:
		sb.WriteString("  array.len\n")
	case bytecode.ARRAY_GET:
		fmt.Fprintf(sb, "  array.get.%s\n", d.typeImm())
	case bytecode.ARRAY_SET:
		fmt.Fprintf(sb, "  array.set.%s\n", d.typeImm())
	case bytecode.NEWLIST:
		t := d.uvarint()
		c := d.uvarint()
		fmt.Fprintf(sb, "  list.new %d %d\n", t, c)
	case bytecode.LIST_LEN:
		sb.WriteString("  list.len\n")
	case bytecode.LIST_GET:
		fmt.Fprintf(sb, "  list.get.%s\n", d.typeImm())
	case bytecode.LIST_SET:
		fmt.Fprintf(sb, "  list.set.%s\n", d.typeImm())
	case bytecode.LIST_PUSH:
		fmt.Fprintf(sb, "  list.push.%s\n", d.typeImm())
	case bytecode.LIST_POP:
		fmt.Fprintf(sb, "  list.pop.%s\n", d.typeImm())
	case bytecode.LIST_INSERT:
		sb.WriteString("  list.insert\n")
	case bytecode.LIST_REMOVE:
		sb.WriteString("  list.remove\n")
	case bytecode.LIST_CLEAR:
		sb.WriteString("  list.clear\n")
	case bytecode.STRING_LEN:
		sb.WriteString("  string.len\n")
	case bytecode.STRING_CONCAT:
		sb.WriteString("  string.concat\n")
	case bytecode.STRING_GET_CHAR:
		sb.WriteString("  string.get.char\n")
	case bytecode.STRING_SLICE:
		sb.WriteString("  string.slice\n")
	case bytecode.CONST_I8:
		fmt.Fprintf(sb, "  const.i8 %d\n", int8(d.byteImm()))
	case bytecode.CONST_I16:
		fmt.Fprintf(sb, "  const.i16 %d\n", d.varint())
	case bytecode.CONST_I32:
		fmt.Fprintf(sb, "  const.i32 %d\n", d.varint())
	case bytecode.CONST_I64:
		fmt.Fprintf(sb, "  const.i64 %d\n", d.varint())
	case bytecode.CONST_U8:
		fmt.Fprintf(sb, "  const.u8 %d\n", d.byteImm())
	case bytecode.CONST_U16:
		fmt.Fprintf(sb, "  const.u16 %d\n", d.uvarint())
	case bytecode.CONST_U32:
		fmt.Fprintf(sb, "  const.u32 %d\n", d.uvarint())
	case bytecode.CONST_U64:
		fmt.Fprintf(sb, "  const.u64 %d\n", d.uvarint())
	case bytecode.CONST_F32:
		fmt.Fprintf(sb, "  const.f32 %s\n", strconv.FormatFloat(float64(bitsToF32(d.fixed32())), 'g', -1, 32))
	case bytecode.CONST_F64:
		fmt.Fprintf(sb, "  const.f64 %s\n", strconv.FormatFloat(bitsToF64(d.fixed64()), 'g', -1, 64))
	case bytecode.CONST_BOOL:
		fmt.Fprintf(sb, "  const.bool %t\n", d.byteImm() != 0)
	case bytecode.CONST_CHAR:
		fmt.Fprintf(sb, "  const.char %d\n", d.uvarint())
	case bytecode.CONST_STRING:
		fmt.Fprintf(sb, "  const.string %d\n", d.uvarint())
	case bytecode.CONST_NULL:
		sb.WriteString("  const.null\n")
	case bytecode.CONV:
		from := d.typeImm()
		to := d.typeImm()
		fmt.Fprintf(sb, "  conv.%s.%s\n", from, to)
	default:
		if isTypedBinary(op) {
			t := d.typeImm()
			fmt.Fprintf(sb, "  %s.%s\n", op.Name(), t)
			return
		}
		fmt.Fprintf(sb, "  ; unknown opcode %d at %d\n", byte(op), ip)
	}
}
