package machine

import (
	"fmt"
	"math"

	"github.com/JJLDonley/Simple-sub005/lang/bytecode"
	"github.com/JJLDonley/Simple-sub005/lang/heap"
	"github.com/JJLDonley/Simple-sub005/lang/irtext"
)

// Trap is a typed runtime error carrying the exit code the host
// process should report, matching the teacher's own typed-error
// convention and the original VM's exception/trap vector (§7,
// `RuntimeTrap`).
type Trap struct {
	Code int
	Msg  string
}

func (t *Trap) Error() string { return t.Msg }

func trap(code int, format string, args ...interface{}) *Trap {
	return &Trap{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Exit codes for the fixed trap taxonomy (§7). 0 is reserved for a
// normal return.
const (
	ExitDivByZero         = 1
	ExitIntegerOverflow   = 2
	ExitNullDeref         = 3
	ExitOutOfBounds       = 4
	ExitStackUnderflow    = 5
	ExitStackOverflow     = 6
	ExitBadIndirectCall   = 7
	ExitStepLimitExceeded = 8
	ExitUnknownIntrinsic  = 9
	ExitUnknownHostImport = 10
	ExitCancelled         = 11
)

// maxOperandStack and maxCallDepthDefault bound the shared arrays so a
// runaway program traps instead of growing Go's heap without limit.
const (
	maxOperandStack     = 1 << 20
	maxCallDepthDefault = 1 << 16
)

// VM executes one Module on behalf of a Thread: the fetch-decode-
// execute loop, its explicit frame stack, shared locals/operand-stack
// arrays, and the heap. Grounded on the teacher's machine.go dispatch
// switch, generalized from per-call Go recursion (the teacher's run())
// to a VM-managed frame stack per §3/§4.4.
type VM struct {
	th *Thread
	m  *irtext.Module
	hp *heap.Heap

	frames  []Frame
	locals  []Slot
	stack   []Slot
	globals []Slot
}

// NewVM constructs a VM bound to th (for I/O, limits, cancellation), m
// (the program to run) and hp (the object heap).
func NewVM(th *Thread, m *irtext.Module, hp *heap.Heap) *VM {
	return &VM{
		th:      th,
		m:       m,
		hp:      hp,
		locals:  make([]Slot, 0, 256),
		stack:   make([]Slot, 0, 256),
		globals: make([]Slot, len(m.Globals)),
	}
}

// globalInitFuncName matches the emitter's synthesized initializer
// (lang/emit/state.go's globalInitName): if the module defines one, Run
// executes it before the program entry so every global's initializer
// observes a consistent, fully-initialized globals slice (§4.6).
const globalInitFuncName = "__global_init"

// primitiveTypeIDBase mirrors lang/emit/layout.go's constant of the
// same name: declared artifact/enum type ids begin here, so a
// NEWOBJ/LDFLD/STFLD type id maps back into vm.m.Types by subtracting
// it.
const primitiveTypeIDBase = 16

func (vm *VM) push(s Slot) {
	if len(vm.stack) >= maxOperandStack {
		panic(trap(ExitStackOverflow, "operand stack overflow"))
	}
	vm.stack = append(vm.stack, s)
}

func (vm *VM) pop() Slot {
	n := len(vm.stack)
	if n == 0 {
		panic(trap(ExitStackUnderflow, "operand stack underflow"))
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) top() Slot { return vm.stack[len(vm.stack)-1] }

func (vm *VM) frame() *Frame { return &vm.frames[len(vm.frames)-1] }

// Run executes the function at fnIdx as the program entry point and
// returns its return slot (zero if it returns void).
func (vm *VM) Run(fnIdx int) (ret Slot, err error) {
	defer func() {
		if r := recover(); r != nil {
			if tr, ok := r.(*Trap); ok {
				err = tr
				return
			}
			panic(r)
		}
	}()

	if giIdx, ok := vm.m.FuncIndex[globalInitFuncName]; ok {
		vm.callFunc(uint32(giIdx), nil)
		vm.loop()
	}

	vm.callFunc(uint32(fnIdx), nil)
	vm.loop()
	if len(vm.stack) > 0 {
		ret = vm.pop()
	}
	return ret, nil
}

// callFunc pushes a new frame for fn with args already copied into its
// locals region, per §4.4's calling convention.
func (vm *VM) callFunc(fnIdx uint32, args []Slot) {
	vm.pushFrame(fnIdx, args, heap.NullHandle)
}

// pushFrame is callFunc generalized to optionally bind the new frame to
// a closure (heap.NullHandle for an ordinary call), so ldupv/stupv
// inside the callee can resolve against its captured upvalues (§4.4).
func (vm *VM) pushFrame(fnIdx uint32, args []Slot, closure heap.Handle) {
	if vm.th.MaxCallStackDepth > 0 && len(vm.frames) >= vm.th.MaxCallStackDepth {
		panic(trap(ExitStackOverflow, "call stack depth exceeded (max %d)", vm.th.MaxCallStackDepth))
	}
	if len(vm.frames) >= maxCallDepthDefault {
		panic(trap(ExitStackOverflow, "call stack depth exceeded"))
	}
	fn := vm.m.Functions[fnIdx]

	localsBase := len(vm.locals)
	needed := int(fn.Locals)
	for i := 0; i < needed; i++ {
		if i < len(args) {
			vm.locals = append(vm.locals, args[i])
		} else {
			vm.locals = append(vm.locals, 0)
		}
	}

	vm.frames = append(vm.frames, Frame{
		FuncID:     fnIdx,
		IP:         0,
		LocalsBase: localsBase,
		StackBase:  len(vm.stack),
		Closure:    closure,
	})
}

// popFrame discards the current frame's locals region.
func (vm *VM) popFrame() {
	f := vm.frames[len(vm.frames)-1]
	vm.locals = vm.locals[:f.LocalsBase]
	vm.frames = vm.frames[:len(vm.frames)-1]
}

// loop is the fetch-decode-execute cycle. It runs until the initial
// frame pushed by Run returns, at which point the single result slot
// (if any) is left on the stack for Run to collect.
func (vm *VM) loop() {
	baseDepth := len(vm.frames) - 1

	for len(vm.frames) > baseDepth {
		vm.step()
	}
}

func (vm *VM) step() {
	vm.th.steps++
	if vm.th.maxSteps != 0 && vm.th.steps > vm.th.maxSteps {
		panic(trap(ExitStepLimitExceeded, "step limit exceeded"))
	}
	if vm.th.cancelledByContext() {
		panic(trap(ExitCancelled, "execution cancelled"))
	}

	f := vm.frame()
	fn := vm.m.Functions[f.FuncID]
	d := newDecoder(fn.Code, f.IP)
	op := d.op()

	switch op {
	case bytecode.NOP:
	case bytecode.POP:
		vm.pop()
	case bytecode.DUP:
		vm.push(vm.top())
	case bytecode.DUP2:
		n := len(vm.stack)
		a, b := vm.stack[n-2], vm.stack[n-1]
		vm.push(a)
		vm.push(b)
	case bytecode.SWAP:
		n := len(vm.stack)
		vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]
	case bytecode.ROT:
		n := len(vm.stack)
		vm.stack[n-1], vm.stack[n-2], vm.stack[n-3] = vm.stack[n-3], vm.stack[n-1], vm.stack[n-2]
	case bytecode.ENTER:
		d.uvarint()

	case bytecode.CONST_I8:
		vm.push(FromI64(int64(int8(d.byteImm()))))
	case bytecode.CONST_I16:
		vm.push(FromI64(d.varint()))
	case bytecode.CONST_I32:
		vm.push(FromI64(d.varint()))
	case bytecode.CONST_I64:
		vm.push(FromI64(d.varint()))
	case bytecode.CONST_U8:
		vm.push(FromU64(uint64(d.byteImm())))
	case bytecode.CONST_U16:
		vm.push(FromU64(d.uvarint()))
	case bytecode.CONST_U32:
		vm.push(FromU64(d.uvarint()))
	case bytecode.CONST_U64:
		vm.push(FromU64(d.uvarint()))
	case bytecode.CONST_F32:
		vm.push(FromF32(math.Float32frombits(d.fixed32())))
	case bytecode.CONST_F64:
		vm.push(FromF64(math.Float64frombits(d.fixed64())))
	case bytecode.CONST_BOOL:
		vm.push(FromBool(d.byteImm() != 0))
	case bytecode.CONST_CHAR:
		vm.push(FromU64(d.uvarint()))
	case bytecode.CONST_STRING:
		vm.push(FromU64(d.uvarint())) // const-table id; resolved by the embedder's string table
	case bytecode.CONST_NULL:
		vm.push(FromHandle(uint32(heap.NullHandle)))

	case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD,
		bytecode.AND, bytecode.OR, bytecode.XOR, bytecode.SHL, bytecode.SHR:
		t := d.typeImm()
		vm.binop(op, t)
	case bytecode.NEG, bytecode.INC, bytecode.DEC:
		t := d.typeImm()
		vm.unop(op, t)
	case bytecode.CMP_EQ, bytecode.CMP_NE, bytecode.CMP_LT, bytecode.CMP_LE, bytecode.CMP_GT, bytecode.CMP_GE:
		t := d.typeImm()
		vm.cmpop(op, t)
	case bytecode.CONV:
		from := d.typeImm()
		to := d.typeImm()
		vm.conv(from, to)

	case bytecode.JMP:
		target := d.jumpTarget()
		f.IP = target
		return
	case bytecode.JMP_TRUE:
		target := d.jumpTarget()
		cond := vm.pop().Bool()
		if cond {
			f.IP = target
			return
		}
	case bytecode.JMP_FALSE:
		target := d.jumpTarget()
		cond := vm.pop().Bool()
		if !cond {
			f.IP = target
			return
		}
	case bytecode.JMPTABLE:
		def := d.jumpTarget()
		n := d.uvarint()
		cases := make([]uint32, n)
		for i := range cases {
			cases[i] = d.jumpTarget()
		}
		sel := vm.pop().I64()
		target := def
		if sel >= 0 && sel < int64(n) {
			target = cases[sel]
		}
		f.IP = target
		return

	case bytecode.RET:
		vm.ret()
		return

	case bytecode.CALL:
		fid := d.uvarint()
		argc := d.uvarint()
		f.IP = d.ip
		vm.call(uint32(fid), int(argc))
		return
	case bytecode.CALL_INDIRECT:
		sigID := d.uvarint()
		argc := d.uvarint()
		f.IP = d.ip
		vm.callIndirect(uint32(sigID), int(argc))
		return
	case bytecode.TAILCALL:
		fid := d.uvarint()
		argc := d.uvarint()
		vm.tailcall(uint32(fid), int(argc))
		return
	case bytecode.CALLCHECK:
		sigID := d.uvarint()
		vm.callCheck(uint32(sigID))

	case bytecode.LDLOC:
		idx := d.uvarint()
		vm.push(vm.locals[f.LocalsBase+int(idx)])
	case bytecode.STLOC:
		idx := d.uvarint()
		vm.locals[f.LocalsBase+int(idx)] = vm.pop()
	case bytecode.LDGLOB:
		idx := d.uvarint()
		if int(idx) >= len(vm.globals) {
			panic(trap(ExitOutOfBounds, "unknown global id %d", idx))
		}
		vm.push(vm.globals[idx])
	case bytecode.STGLOB:
		idx := d.uvarint()
		if int(idx) >= len(vm.globals) {
			panic(trap(ExitOutOfBounds, "unknown global id %d", idx))
		}
		vm.globals[idx] = vm.pop()
	case bytecode.LDUPV:
		idx := d.uvarint()
		vm.push(vm.ldupv(uint32(idx)))
	case bytecode.STUPV:
		idx := d.uvarint()
		vm.stupv(uint32(idx), vm.pop())

	case bytecode.NEWOBJ:
		typeID := d.uvarint()
		h := vm.hp.Allocate(heap.KindArtifact, uint32(typeID), vm.artifactSize(uint32(typeID)))
		vm.push(FromHandle(uint32(h)))
	case bytecode.LDFLD:
		fieldID := d.uvarint()
		h := heap.Handle(vm.pop().Handle())
		obj := vm.hp.Get(h)
		if obj == nil {
			panic(trap(ExitNullDeref, "field access on null reference"))
		}
		offset, typeName := vm.fieldSpec(obj.Header.TypeID, uint32(fieldID))
		vm.push(vm.readField(obj, offset, typeName))
	case bytecode.STFLD:
		fieldID := d.uvarint()
		val := vm.pop()
		h := heap.Handle(vm.pop().Handle())
		obj := vm.hp.Get(h)
		if obj == nil {
			panic(trap(ExitNullDeref, "field store on null reference"))
		}
		offset, typeName := vm.fieldSpec(obj.Header.TypeID, uint32(fieldID))
		vm.writeField(obj, offset, typeName, val)
	case bytecode.TYPEOF:
		h := heap.Handle(vm.top().Handle())
		obj := vm.hp.Get(h)
		vm.pop()
		if obj == nil {
			panic(trap(ExitNullDeref, "typeof on null reference"))
		}
		vm.push(FromU64(uint64(obj.Header.TypeID)))
	case bytecode.ISNULL:
		h := heap.Handle(vm.pop().Handle())
		vm.push(FromBool(h == heap.NullHandle))
	case bytecode.REF_EQ:
		b := vm.pop().Handle()
		a := vm.pop().Handle()
		vm.push(FromBool(a == b))
	case bytecode.REF_NE:
		b := vm.pop().Handle()
		a := vm.pop().Handle()
		vm.push(FromBool(a != b))
	case bytecode.NEWCLOSURE:
		methodID := d.uvarint()
		uc := d.uvarint()
		upvalues := make([]heap.Handle, uc)
		for i := int(uc) - 1; i >= 0; i-- {
			upvalues[i] = heap.Handle(vm.pop().Handle())
		}
		payload := heap.NewClosurePayload(uint32(methodID), upvalues)
		h := vm.hp.Allocate(heap.KindClosure, 0, uint32(len(payload)))
		copy(vm.hp.Get(h).Payload, payload)
		vm.push(FromHandle(uint32(h)))

	case bytecode.NEWARRAY:
		typeID := d.uvarint()
		length := d.uvarint()
		h := vm.hp.Allocate(heap.KindArray, uint32(typeID), uint32(length)*8)
		vm.push(FromHandle(uint32(h)))
	case bytecode.ARRAY_LEN:
		h := heap.Handle(vm.pop().Handle())
		obj := vm.hp.Get(h)
		if obj == nil {
			panic(trap(ExitNullDeref, "len of null array"))
		}
		vm.push(FromU64(uint64(len(obj.Payload) / 8)))
	case bytecode.ARRAY_GET:
		elem := d.typeImm()
		vm.arrayGet(elem)
	case bytecode.ARRAY_SET:
		elem := d.typeImm()
		vm.arraySet(elem)

	case bytecode.NEWLIST:
		typeID := d.uvarint()
		cap := d.uvarint()
		h := vm.hp.Allocate(heap.KindList, uint32(typeID), uint32(cap)*8)
		obj := vm.hp.Get(h)
		obj.Payload = obj.Payload[:0]
		vm.push(FromHandle(uint32(h)))
	case bytecode.LIST_LEN:
		h := heap.Handle(vm.pop().Handle())
		obj := vm.hp.Get(h)
		if obj == nil {
			panic(trap(ExitNullDeref, "len of null list"))
		}
		vm.push(FromU64(uint64(len(obj.Payload) / 8)))
	case bytecode.LIST_GET:
		elem := d.typeImm()
		vm.arrayGet(elem)
	case bytecode.LIST_SET:
		elem := d.typeImm()
		vm.arraySet(elem)
	case bytecode.LIST_PUSH:
		d.typeImm()
		val := vm.pop()
		h := heap.Handle(vm.pop().Handle())
		obj := vm.hp.Get(h)
		if obj == nil {
			panic(trap(ExitNullDeref, "push onto null list"))
		}
		var buf [8]byte
		putSlot(buf[:], val)
		obj.Payload = append(obj.Payload, buf[:]...)
	case bytecode.LIST_POP:
		d.typeImm()
		h := heap.Handle(vm.pop().Handle())
		obj := vm.hp.Get(h)
		if obj == nil || len(obj.Payload) < 8 {
			panic(trap(ExitOutOfBounds, "pop from empty or null list"))
		}
		n := len(obj.Payload)
		val := getSlot(obj.Payload[n-8:])
		obj.Payload = obj.Payload[:n-8]
		vm.push(val)
	case bytecode.LIST_INSERT:
		val := vm.pop()
		idx := vm.pop().I64()
		h := heap.Handle(vm.pop().Handle())
		obj := vm.hp.Get(h)
		if obj == nil {
			panic(trap(ExitNullDeref, "insert into null list"))
		}
		n := int64(len(obj.Payload) / 8)
		if idx < 0 || idx > n {
			panic(trap(ExitOutOfBounds, "insert index %d out of bounds (len %d)", idx, n))
		}
		var buf [8]byte
		putSlot(buf[:], val)
		obj.Payload = append(obj.Payload, buf[:]...)
		copy(obj.Payload[idx*8+8:], obj.Payload[idx*8:n*8])
		copy(obj.Payload[idx*8:idx*8+8], buf[:])
	case bytecode.LIST_REMOVE:
		idx := vm.pop().I64()
		h := heap.Handle(vm.pop().Handle())
		obj := vm.hp.Get(h)
		if obj == nil {
			panic(trap(ExitNullDeref, "remove from null list"))
		}
		n := int64(len(obj.Payload) / 8)
		if idx < 0 || idx >= n {
			panic(trap(ExitOutOfBounds, "remove index %d out of bounds (len %d)", idx, n))
		}
		copy(obj.Payload[idx*8:], obj.Payload[idx*8+8:])
		obj.Payload = obj.Payload[:len(obj.Payload)-8]
	case bytecode.LIST_CLEAR:
		h := heap.Handle(vm.pop().Handle())
		if obj := vm.hp.Get(h); obj != nil {
			obj.Payload = obj.Payload[:0]
		}

	case bytecode.STRING_LEN:
		h := heap.Handle(vm.pop().Handle())
		obj := vm.hp.Get(h)
		if obj == nil {
			panic(trap(ExitNullDeref, "len of null string"))
		}
		vm.push(FromI64(int64(len(obj.Payload))))
	case bytecode.STRING_CONCAT:
		bh := heap.Handle(vm.pop().Handle())
		ah := heap.Handle(vm.pop().Handle())
		a, b := vm.hp.Get(ah), vm.hp.Get(bh)
		if a == nil || b == nil {
			panic(trap(ExitNullDeref, "concat of null string"))
		}
		buf := make([]byte, 0, len(a.Payload)+len(b.Payload))
		buf = append(buf, a.Payload...)
		buf = append(buf, b.Payload...)
		h := vm.hp.Allocate(heap.KindString, 0, uint32(len(buf)))
		copy(vm.hp.Get(h).Payload, buf)
		vm.push(FromHandle(uint32(h)))
	case bytecode.STRING_GET_CHAR:
		idx := vm.pop().I64()
		h := heap.Handle(vm.pop().Handle())
		obj := vm.hp.Get(h)
		if obj == nil {
			panic(trap(ExitNullDeref, "get.char on null string"))
		}
		if idx < 0 || idx >= int64(len(obj.Payload)) {
			panic(trap(ExitOutOfBounds, "string index %d out of bounds (len %d)", idx, len(obj.Payload)))
		}
		vm.push(FromU64(uint64(obj.Payload[idx])))
	case bytecode.STRING_SLICE:
		end := vm.pop().I64()
		start := vm.pop().I64()
		h := heap.Handle(vm.pop().Handle())
		obj := vm.hp.Get(h)
		if obj == nil {
			panic(trap(ExitNullDeref, "slice of null string"))
		}
		n := int64(len(obj.Payload))
		if start < 0 || end < start || end > n {
			panic(trap(ExitOutOfBounds, "string slice [%d:%d] out of bounds (len %d)", start, end, n))
		}
		sliced := append([]byte(nil), obj.Payload[start:end]...)
		nh := vm.hp.Allocate(heap.KindString, 0, uint32(len(sliced)))
		copy(vm.hp.Get(nh).Payload, sliced)
		vm.push(FromHandle(uint32(nh)))

	case bytecode.INTRINSIC:
		id := d.uvarint()
		f.IP = d.ip
		vm.intrinsic(uint32(id))
		return
	case bytecode.SYSCALL:
		id := d.uvarint()
		f.IP = d.ip
		vm.syscall(uint32(id))
		return

	default:
		panic(trap(ExitUnknownIntrinsic, "unknown opcode %d", byte(op)))
	}

	f.IP = d.ip
}

func putSlot(buf []byte, s Slot) {
	v := uint64(s)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

func getSlot(buf []byte) Slot {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(buf[i]) << (8 * i)
	}
	return Slot(v)
}

func (vm *VM) arrayGet(elem bytecode.Type) {
	idx := vm.pop().I64()
	h := heap.Handle(vm.pop().Handle())
	obj := vm.hp.Get(h)
	if obj == nil {
		panic(trap(ExitNullDeref, "index into null array/list"))
	}
	n := len(obj.Payload) / 8
	if idx < 0 || idx >= int64(n) {
		panic(trap(ExitOutOfBounds, "index %d out of bounds (len %d)", idx, n))
	}
	vm.push(getSlot(obj.Payload[idx*8:]))
}

func (vm *VM) arraySet(elem bytecode.Type) {
	val := vm.pop()
	idx := vm.pop().I64()
	h := heap.Handle(vm.pop().Handle())
	obj := vm.hp.Get(h)
	if obj == nil {
		panic(trap(ExitNullDeref, "index into null array/list"))
	}
	n := len(obj.Payload) / 8
	if idx < 0 || idx >= int64(n) {
		panic(trap(ExitOutOfBounds, "index %d out of bounds (len %d)", idx, n))
	}
	var buf [8]byte
	putSlot(buf[:], val)
	copy(obj.Payload[idx*8:idx*8+8], buf[:])
}

// ret pops the current frame and, unless it was the outermost frame
// Run pushed, continues the caller right after its call instruction
// with the callee's single return value (if any) left on the stack.
func (vm *VM) ret() {
	f := *vm.frame()
	hadResult := len(vm.stack) > f.StackBase
	var result Slot
	if hadResult {
		result = vm.top()
	}
	vm.stack = vm.stack[:f.StackBase]
	vm.popFrame()
	if hadResult {
		vm.push(result)
	}
}

func (vm *VM) call(fnIdx uint32, argc int) {
	args := make([]Slot, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	vm.callFunc(fnIdx, args)
}

// callIndirect pops a closure handle and argc arguments, verifies the
// closure's signature matches sigID (§4.4's indirect-call-signature
// check), then dispatches to its bound method id, per the closure
// payload layout from §6.
func (vm *VM) callIndirect(sigID uint32, argc int) {
	args := make([]Slot, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	h := heap.Handle(vm.pop().Handle())
	obj := vm.hp.Get(h)
	if obj == nil {
		panic(trap(ExitNullDeref, "indirect call through null closure"))
	}
	if obj.Header.Kind != heap.KindClosure {
		panic(trap(ExitBadIndirectCall, "indirect call target is not a closure"))
	}
	methodID := readU32LE(obj.Payload, 0)
	if int(sigID) >= len(vm.m.Sigs) {
		panic(trap(ExitBadIndirectCall, "unknown signature id %d", sigID))
	}
	full := append(closureUpvalueArgs(obj), args...)
	vm.pushFrame(methodID, full, h)
}

// closureUpvalueArgs decodes a closure's captured upvalue handles as the
// leading locals of its lifted function body, matching lowerLambda's
// capture-as-local layout (lang/emit/expr.go) and the closure payload
// format from §6 (u32 method_id, u32 count, u32 handle[count]).
func closureUpvalueArgs(obj *heap.Object) []Slot {
	if len(obj.Payload) < 8 {
		return nil
	}
	count := int(readU32LE(obj.Payload, 4))
	out := make([]Slot, count)
	for i := 0; i < count; i++ {
		off := 8 + 4*i
		if off+4 > len(obj.Payload) {
			break
		}
		out[i] = FromHandle(readU32LE(obj.Payload, off))
	}
	return out
}

func (vm *VM) tailcall(fnIdx uint32, argc int) {
	args := make([]Slot, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	vm.popFrame()
	vm.callFunc(fnIdx, args)
}

// callCheck validates that the closure on top of the stack (without
// popping it) matches the given signature id before a subsequent
// call_indirect, per §4.4.
func (vm *VM) callCheck(sigID uint32) {
	h := heap.Handle(vm.top().Handle())
	obj := vm.hp.Get(h)
	if obj == nil {
		panic(trap(ExitNullDeref, "callcheck on null closure"))
	}
	if obj.Header.Kind != heap.KindClosure {
		panic(trap(ExitBadIndirectCall, "callcheck target is not a closure"))
	}
	if int(sigID) >= len(vm.m.Sigs) {
		panic(trap(ExitBadIndirectCall, "unknown signature id %d", sigID))
	}
}

func readU32LE(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

func writeU32LE(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

// artifactSize looks up a declared artifact/enum type's packed size, for
// NEWOBJ's allocation (§4.4, §6's layout table).
func (vm *VM) artifactSize(typeID uint32) uint32 {
	idx := int(typeID) - primitiveTypeIDBase
	if idx < 0 || idx >= len(vm.m.Types) {
		panic(trap(ExitOutOfBounds, "unknown artifact type id %d", typeID))
	}
	return vm.m.Types[idx].Size
}

// fieldSpec resolves a field's byte offset and declared type name, given
// the owning type's runtime type id and the field's per-type index
// (§6's layout table, mirroring lang/emit/layout.go's layoutOf).
func (vm *VM) fieldSpec(typeID, fieldID uint32) (offset uint32, typeName string) {
	idx := int(typeID) - primitiveTypeIDBase
	if idx < 0 || idx >= len(vm.m.Types) {
		panic(trap(ExitOutOfBounds, "unknown artifact type id %d", typeID))
	}
	td := &vm.m.Types[idx]
	if int(fieldID) >= len(td.Fields) {
		panic(trap(ExitOutOfBounds, "unknown field id %d on type %s", fieldID, td.Name))
	}
	f := td.Fields[fieldID]
	return f.Offset, f.Type
}

func readFieldValue(payload []byte, offset uint32, width int) uint64 {
	if int(offset)+width > len(payload) {
		panic(trap(ExitOutOfBounds, "field offset %d width %d exceeds object size %d", offset, width, len(payload)))
	}
	var v uint64
	for i := 0; i < width; i++ {
		v |= uint64(payload[int(offset)+i]) << (8 * i)
	}
	return v
}

func writeFieldValue(payload []byte, offset uint32, width int, v uint64) {
	if int(offset)+width > len(payload) {
		panic(trap(ExitOutOfBounds, "field offset %d width %d exceeds object size %d", offset, width, len(payload)))
	}
	for i := 0; i < width; i++ {
		payload[int(offset)+i] = byte(v >> (8 * i))
	}
}

// readField and writeField do the little-endian, field-width-sized
// byte access that LDFLD/STFLD need: layoutOf packs fields tight at
// their natural width, not at uniform 8-byte slots, so these cannot
// reuse getSlot/putSlot. Reference-shaped fields (string/ref/null, or
// an unparsed type name such as an array/list/artifact/enum) fall back
// to a 4-byte handle, matching scalarAlign's heap-reference width.
func (vm *VM) readField(obj *heap.Object, offset uint32, typeName string) Slot {
	t, ok := bytecode.ParseType(typeName)
	if !ok || t == bytecode.TypeString || t == bytecode.TypeRef || t == bytecode.TypeNull {
		return FromU64(readFieldValue(obj.Payload, offset, 4))
	}
	w := t.Width()
	raw := readFieldValue(obj.Payload, offset, w)
	if t == bytecode.TypeF32 {
		return Slot(raw)
	}
	return Slot(Truncate(raw, t))
}

func (vm *VM) writeField(obj *heap.Object, offset uint32, typeName string, val Slot) {
	t, ok := bytecode.ParseType(typeName)
	w := 4
	if ok && t != bytecode.TypeString && t != bytecode.TypeRef && t != bytecode.TypeNull {
		w = t.Width()
	}
	writeFieldValue(obj.Payload, offset, w, uint64(val))
}

// closureObj returns the heap object backing the current frame's bound
// closure, trapping if the frame was not entered via call_indirect
// (§4.4's closure calling convention).
func (vm *VM) closureObj() *heap.Object {
	h := vm.frame().Closure
	if h == heap.NullHandle {
		panic(trap(ExitBadIndirectCall, "upvalue access outside a bound closure frame"))
	}
	obj := vm.hp.Get(h)
	if obj == nil {
		panic(trap(ExitNullDeref, "upvalue access on a collected closure"))
	}
	return obj
}

// ldupv/stupv read and write the idx'th upvalue handle in the closure
// payload's layout from §6 (u32 method_id, u32 count, u32
// handle[count]); each upvalue is itself a heap handle, widened to a
// full Slot.
func (vm *VM) ldupv(idx uint32) Slot {
	obj := vm.closureObj()
	off := 8 + 4*int(idx)
	if off+4 > len(obj.Payload) {
		panic(trap(ExitOutOfBounds, "unknown upvalue id %d", idx))
	}
	return FromHandle(readU32LE(obj.Payload, off))
}

func (vm *VM) stupv(idx uint32, val Slot) {
	obj := vm.closureObj()
	off := 8 + 4*int(idx)
	if off+4 > len(obj.Payload) {
		panic(trap(ExitOutOfBounds, "unknown upvalue id %d", idx))
	}
	writeU32LE(obj.Payload, off, val.Handle())
}
