package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeError reports an opcode that could not be finished into a valid
// binary stream, such as a label referenced but never bound. Mirrors
// the teacher's builder.finish returning a non-nil error for the
// equivalent situation.
type EncodeError struct {
	Msg string
}

func (e *EncodeError) Error() string { return e.Msg }

// LabelID identifies a jump target created with NewLabel, bound exactly
// once with BindLabel before Finish.
type LabelID int

type fixup struct {
	pos   int // byte offset of the 4-byte placeholder to patch
	label LabelID
}

// Builder accumulates one function body's bytecode, tracking stack
// depth as it goes (§4.6's "stack-height discipline") and resolving
// label references in a final Finish pass, exactly as the teacher's
// asm.go/compiler.go two-pass label handling does (first pass assigns
// addresses, a fixup list is patched once all instructions are laid
// out).
type Builder struct {
	code   []byte
	labels []int // address of label i, or -1 if unbound
	fixups []fixup

	depth    int
	maxStack int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewLabel allocates a fresh, as-yet-unbound label.
func (b *Builder) NewLabel() LabelID {
	b.labels = append(b.labels, -1)
	return LabelID(len(b.labels) - 1)
}

// BindLabel records the current code offset as the address of l. A
// label must be bound exactly once before Finish.
func (b *Builder) BindLabel(l LabelID) {
	b.labels[l] = len(b.code)
}

// MaxStack returns the high-water mark of stack depth observed across
// every emitted instruction so far.
func (b *Builder) MaxStack() int { return b.maxStack }

// Depth returns the builder's current tracked stack depth.
func (b *Builder) Depth() int { return b.depth }

func (b *Builder) adjust(delta int) {
	b.depth += delta
	if b.depth > b.maxStack {
		b.maxStack = b.depth
	}
}

func (b *Builder) emitByte(v byte) { b.code = append(b.code, v) }

func (b *Builder) emitUvarint(v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	b.code = append(b.code, buf[:n]...)
}

func (b *Builder) emitVarint(v int64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutVarint(buf[:], v)
	b.code = append(b.code, buf[:n]...)
}

func (b *Builder) emitFixed32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.code = append(b.code, buf[:]...)
}

func (b *Builder) emitFixed64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.code = append(b.code, buf[:]...)
}

// emitJumpPlaceholder reserves a fixed 4-byte slot for a jump target,
// recording a fixup to patch once l's address is known. Every jump
// instruction is therefore exactly 4 bytes of immediate, regardless of
// how far away the target ends up being.
func (b *Builder) emitJumpPlaceholder(l LabelID) {
	b.fixups = append(b.fixups, fixup{pos: len(b.code), label: l})
	b.emitFixed32(0)
}

// --- Stack-only opcodes ---

func (b *Builder) Nop()   { b.emitByte(byte(NOP)) }
func (b *Builder) Pop()   { b.emitByte(byte(POP)); b.adjust(-1) }
func (b *Builder) Dup()   { b.emitByte(byte(DUP)); b.adjust(1) }
func (b *Builder) Dup2()  { b.emitByte(byte(DUP2)); b.adjust(2) }
func (b *Builder) Swap()  { b.emitByte(byte(SWAP)) }
func (b *Builder) Rot()   { b.emitByte(byte(ROT)) }
func (b *Builder) Enter(locals uint16) {
	b.emitByte(byte(ENTER))
	b.emitUvarint(uint64(locals))
}

// --- Constants ---

func (b *Builder) ConstI8(v int8) {
	b.emitByte(byte(CONST_I8))
	b.emitByte(byte(v))
	b.adjust(1)
}
func (b *Builder) ConstI16(v int16) {
	b.emitByte(byte(CONST_I16))
	b.emitVarint(int64(v))
	b.adjust(1)
}
func (b *Builder) ConstI32(v int32) {
	b.emitByte(byte(CONST_I32))
	b.emitVarint(int64(v))
	b.adjust(1)
}
func (b *Builder) ConstI64(v int64) {
	b.emitByte(byte(CONST_I64))
	b.emitVarint(v)
	b.adjust(1)
}
func (b *Builder) ConstU8(v uint8) {
	b.emitByte(byte(CONST_U8))
	b.emitByte(v)
	b.adjust(1)
}
func (b *Builder) ConstU16(v uint16) {
	b.emitByte(byte(CONST_U16))
	b.emitUvarint(uint64(v))
	b.adjust(1)
}
func (b *Builder) ConstU32(v uint32) {
	b.emitByte(byte(CONST_U32))
	b.emitUvarint(uint64(v))
	b.adjust(1)
}
func (b *Builder) ConstU64(v uint64) {
	b.emitByte(byte(CONST_U64))
	b.emitUvarint(v)
	b.adjust(1)
}
func (b *Builder) ConstF32(v float32) {
	b.emitByte(byte(CONST_F32))
	b.emitFixed32(math.Float32bits(v))
	b.adjust(1)
}
func (b *Builder) ConstF64(v float64) {
	b.emitByte(byte(CONST_F64))
	b.emitFixed64(math.Float64bits(v))
	b.adjust(1)
}
func (b *Builder) ConstBool(v bool) {
	b.emitByte(byte(CONST_BOOL))
	if v {
		b.emitByte(1)
	} else {
		b.emitByte(0)
	}
	b.adjust(1)
}
func (b *Builder) ConstChar(v rune) {
	b.emitByte(byte(CONST_CHAR))
	b.emitUvarint(uint64(v))
	b.adjust(1)
}

// ConstString pushes an interned string by its const-table id (§6:
// "strings are referenced by const id only").
func (b *Builder) ConstString(constID uint32) {
	b.emitByte(byte(CONST_STRING))
	b.emitUvarint(uint64(constID))
	b.adjust(1)
}

func (b *Builder) ConstNull() {
	b.emitByte(byte(CONST_NULL))
	b.adjust(1)
}

// --- Typed arithmetic/bitwise/compare/unary ---

func (b *Builder) typedBinary(op Op, t Type) {
	b.emitByte(byte(op))
	b.emitByte(byte(t))
	b.adjust(stackEffect(op))
}

func (b *Builder) Add(t Type) { b.typedBinary(ADD, t) }
func (b *Builder) Sub(t Type) { b.typedBinary(SUB, t) }
func (b *Builder) Mul(t Type) { b.typedBinary(MUL, t) }
func (b *Builder) Div(t Type) { b.typedBinary(DIV, t) }
func (b *Builder) Mod(t Type) { b.typedBinary(MOD, t) }
func (b *Builder) And(t Type) { b.typedBinary(AND, t) }
func (b *Builder) Or(t Type)  { b.typedBinary(OR, t) }
func (b *Builder) Xor(t Type) { b.typedBinary(XOR, t) }
func (b *Builder) Shl(t Type) { b.typedBinary(SHL, t) }
func (b *Builder) Shr(t Type) { b.typedBinary(SHR, t) }

func (b *Builder) Neg(t Type) { b.typedBinary(NEG, t) }
func (b *Builder) Inc(t Type) { b.typedBinary(INC, t) }
func (b *Builder) Dec(t Type) { b.typedBinary(DEC, t) }

func (b *Builder) CmpEq(t Type) { b.typedBinary(CMP_EQ, t) }
func (b *Builder) CmpNe(t Type) { b.typedBinary(CMP_NE, t) }
func (b *Builder) CmpLt(t Type) { b.typedBinary(CMP_LT, t) }
func (b *Builder) CmpLe(t Type) { b.typedBinary(CMP_LE, t) }
func (b *Builder) CmpGt(t Type) { b.typedBinary(CMP_GT, t) }
func (b *Builder) CmpGe(t Type) { b.typedBinary(CMP_GE, t) }

func (b *Builder) Conv(from, to Type) {
	b.emitByte(byte(CONV))
	b.emitByte(byte(from))
	b.emitByte(byte(to))
	b.adjust(0)
}

// --- Control flow ---

func (b *Builder) Jmp(l LabelID) {
	b.emitByte(byte(JMP))
	b.emitJumpPlaceholder(l)
}
func (b *Builder) JmpTrue(l LabelID) {
	b.emitByte(byte(JMP_TRUE))
	b.emitJumpPlaceholder(l)
	b.adjust(-1)
}
func (b *Builder) JmpFalse(l LabelID) {
	b.emitByte(byte(JMP_FALSE))
	b.emitJumpPlaceholder(l)
	b.adjust(-1)
}

// JmpTable pops a selector; if it is out of [0,len(cases)) control
// transfers to def, else to cases[selector].
func (b *Builder) JmpTable(def LabelID, cases []LabelID) {
	b.emitByte(byte(JMPTABLE))
	b.emitJumpPlaceholder(def)
	b.emitUvarint(uint64(len(cases)))
	for _, c := range cases {
		b.emitJumpPlaceholder(c)
	}
	b.adjust(-1)
}

func (b *Builder) Ret(arity int) {
	b.emitByte(byte(RET))
	b.depth -= arity
}

func (b *Builder) Call(fid uint32, argc uint16, returnsValue bool) {
	b.emitByte(byte(CALL))
	b.emitUvarint(uint64(fid))
	b.emitUvarint(uint64(argc))
	delta := -int(argc)
	if returnsValue {
		delta++
	}
	b.adjust(delta)
}

func (b *Builder) CallIndirect(sigID uint32, argc uint16, returnsValue bool) {
	b.emitByte(byte(CALL_INDIRECT))
	b.emitUvarint(uint64(sigID))
	b.emitUvarint(uint64(argc))
	// Pops the callable handle plus argc arguments.
	delta := -int(argc) - 1
	if returnsValue {
		delta++
	}
	b.adjust(delta)
}

func (b *Builder) TailCall(fid uint32, argc uint16) {
	b.emitByte(byte(TAILCALL))
	b.emitUvarint(uint64(fid))
	b.emitUvarint(uint64(argc))
	b.adjust(-int(argc))
}

func (b *Builder) CallCheck(sigID uint32) {
	b.emitByte(byte(CALLCHECK))
	b.emitUvarint(uint64(sigID))
}

// --- Locals/globals/upvalues ---

func (b *Builder) LdLoc(idx uint16) {
	b.emitByte(byte(LDLOC))
	b.emitUvarint(uint64(idx))
	b.adjust(1)
}
func (b *Builder) StLoc(idx uint16) {
	b.emitByte(byte(STLOC))
	b.emitUvarint(uint64(idx))
	b.adjust(-1)
}
func (b *Builder) LdGlob(idx uint32) {
	b.emitByte(byte(LDGLOB))
	b.emitUvarint(uint64(idx))
	b.adjust(1)
}
func (b *Builder) StGlob(idx uint32) {
	b.emitByte(byte(STGLOB))
	b.emitUvarint(uint64(idx))
	b.adjust(-1)
}
func (b *Builder) LdUpv(idx uint16) {
	b.emitByte(byte(LDUPV))
	b.emitUvarint(uint64(idx))
	b.adjust(1)
}
func (b *Builder) StUpv(idx uint16) {
	b.emitByte(byte(STUPV))
	b.emitUvarint(uint64(idx))
	b.adjust(-1)
}

// --- Heap ---

func (b *Builder) NewObj(typeID uint32) {
	b.emitByte(byte(NEWOBJ))
	b.emitUvarint(uint64(typeID))
	b.adjust(1)
}
func (b *Builder) LdFld(fieldID uint32) {
	b.emitByte(byte(LDFLD))
	b.emitUvarint(uint64(fieldID))
}
func (b *Builder) StFld(fieldID uint32) {
	b.emitByte(byte(STFLD))
	b.emitUvarint(uint64(fieldID))
	b.adjust(-2)
}
func (b *Builder) TypeOf() { b.emitByte(byte(TYPEOF)) }
func (b *Builder) IsNull() { b.emitByte(byte(ISNULL)) }
func (b *Builder) RefEq()  { b.emitByte(byte(REF_EQ)); b.adjust(-1) }
func (b *Builder) RefNe()  { b.emitByte(byte(REF_NE)); b.adjust(-1) }

func (b *Builder) NewClosure(methodID uint32, upvalueCount uint16) {
	b.emitByte(byte(NEWCLOSURE))
	b.emitUvarint(uint64(methodID))
	b.emitUvarint(uint64(upvalueCount))
	b.adjust(-int(upvalueCount) + 1)
}

// --- Arrays ---

func (b *Builder) NewArray(typeID uint32, length uint32) {
	b.emitByte(byte(NEWARRAY))
	b.emitUvarint(uint64(typeID))
	b.emitUvarint(uint64(length))
	b.adjust(1)
}
func (b *Builder) ArrayLen() { b.emitByte(byte(ARRAY_LEN)) }
func (b *Builder) ArrayGet(elem Type) {
	b.emitByte(byte(ARRAY_GET))
	b.emitByte(byte(elem))
	b.adjust(stackEffect(ARRAY_GET))
}
func (b *Builder) ArraySet(elem Type) {
	b.emitByte(byte(ARRAY_SET))
	b.emitByte(byte(elem))
	b.adjust(stackEffect(ARRAY_SET))
}

// --- Lists ---

func (b *Builder) NewList(typeID uint32, cap uint32) {
	b.emitByte(byte(NEWLIST))
	b.emitUvarint(uint64(typeID))
	b.emitUvarint(uint64(cap))
	b.adjust(1)
}
func (b *Builder) ListLen() { b.emitByte(byte(LIST_LEN)) }
func (b *Builder) ListGet(elem Type) {
	b.emitByte(byte(LIST_GET))
	b.emitByte(byte(elem))
	b.adjust(stackEffect(LIST_GET))
}
func (b *Builder) ListSet(elem Type) {
	b.emitByte(byte(LIST_SET))
	b.emitByte(byte(elem))
	b.adjust(stackEffect(LIST_SET))
}
func (b *Builder) ListPush(elem Type) {
	b.emitByte(byte(LIST_PUSH))
	b.emitByte(byte(elem))
	b.adjust(stackEffect(LIST_PUSH))
}
func (b *Builder) ListPop(elem Type) {
	b.emitByte(byte(LIST_POP))
	b.emitByte(byte(elem))
	b.adjust(stackEffect(LIST_POP))
}
func (b *Builder) ListInsert() { b.emitByte(byte(LIST_INSERT)); b.adjust(stackEffect(LIST_INSERT)) }
func (b *Builder) ListRemove() { b.emitByte(byte(LIST_REMOVE)); b.adjust(stackEffect(LIST_REMOVE)) }
func (b *Builder) ListClear()  { b.emitByte(byte(LIST_CLEAR)); b.adjust(stackEffect(LIST_CLEAR)) }

// --- Strings ---

func (b *Builder) StringLen()     { b.emitByte(byte(STRING_LEN)) }
func (b *Builder) StringConcat()  { b.emitByte(byte(STRING_CONCAT)); b.adjust(-1) }
func (b *Builder) StringGetChar() { b.emitByte(byte(STRING_GET_CHAR)); b.adjust(-1) }
func (b *Builder) StringSlice()   { b.emitByte(byte(STRING_SLICE)); b.adjust(-2) }

// --- System ---

// Intrinsic emits a call to intrinsic id. The IR text format (§4.3)
// carries only the id, not its arity, so the caller is responsible for
// telling the builder the net stack effect it should track (the
// emitter knows this per intrinsic id; the IR text parser, which has
// no such table, passes 0 and accepts an approximate MaxStack).
func (b *Builder) Intrinsic(id uint32, netStackEffect int) {
	b.emitByte(byte(INTRINSIC))
	b.emitUvarint(uint64(id))
	b.adjust(netStackEffect)
}

func (b *Builder) Syscall(id uint32, netStackEffect int) {
	b.emitByte(byte(SYSCALL))
	b.emitUvarint(uint64(id))
	b.adjust(netStackEffect)
}

// Finish resolves every jump fixup against the label table and returns
// the completed code. An unbound label is a fatal EncodeError, matching
// §4.2's "Unresolved references are a fatal error."
func (b *Builder) Finish() ([]byte, error) {
	for _, fx := range b.fixups {
		addr := b.labels[fx.label]
		if addr < 0 {
			return nil, &EncodeError{Msg: fmt.Sprintf("unbound label %d", fx.label)}
		}
		binary.LittleEndian.PutUint32(b.code[fx.pos:fx.pos+4], uint32(addr))
	}
	return b.code, nil
}
