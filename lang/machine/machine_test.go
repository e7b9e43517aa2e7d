package machine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JJLDonley/Simple-sub005/lang/heap"
	"github.com/JJLDonley/Simple-sub005/lang/irtext"
)

func mustParse(t *testing.T, text string) *irtext.Module {
	t.Helper()
	m, err := irtext.Parse(text)
	require.NoError(t, err)
	return m
}

func TestAddI32AndReturn(t *testing.T) {
	m := mustParse(t, `
func main locals=0 stack=4
  const.i32 2
  const.i32 3
  add.i32
  ret 1
end

entry main
`)
	th := &Thread{}
	got, err := th.RunProgram(context.Background(), m)
	require.NoError(t, err)
	require.EqualValues(t, 5, got.I64())
}

func TestDivByZeroTraps(t *testing.T) {
	m := mustParse(t, `
func main locals=0 stack=4
  const.i32 1
  const.i32 0
  div.i32
  ret 1
end

entry main
`)
	th := &Thread{}
	_, err := th.RunProgram(context.Background(), m)
	require.Error(t, err)
	tr, ok := err.(*Trap)
	require.True(t, ok)
	require.Equal(t, ExitDivByZero, tr.Code)
}

func TestLocalsAndLoop(t *testing.T) {
	// sum 0..4 via a loop, leaving 10 on the stack
	m := mustParse(t, `
func main locals=2 stack=4
  const.i32 0
  stloc 0
  const.i32 0
  stloc 1
loop:
  ldloc 1
  const.i32 5
  cmp.lt.i32
  jmp.false done
  ldloc 0
  ldloc 1
  add.i32
  stloc 0
  ldloc 1
  const.i32 1
  add.i32
  stloc 1
  jmp loop
done:
  ldloc 0
  ret 1
end

entry main
`)
	th := &Thread{}
	got, err := th.RunProgram(context.Background(), m)
	require.NoError(t, err)
	require.EqualValues(t, 10, got.I64())
}

func TestCallFunction(t *testing.T) {
	m := mustParse(t, `
func add_one locals=1 stack=4
  ldloc 0
  const.i32 1
  add.i32
  ret 1
end

func main locals=0 stack=4
  const.i32 41
  call 0 1
  ret 1
end

entry main
`)
	th := &Thread{}
	got, err := th.RunProgram(context.Background(), m)
	require.NoError(t, err)
	require.EqualValues(t, 42, got.I64())
}

func TestStepLimitTraps(t *testing.T) {
	m := mustParse(t, `
func main locals=0 stack=4
loop:
  jmp loop
end

entry main
`)
	th := &Thread{MaxSteps: 100}
	_, err := th.RunProgram(context.Background(), m)
	require.Error(t, err)
	tr, ok := err.(*Trap)
	require.True(t, ok)
	require.Equal(t, ExitStepLimitExceeded, tr.Code)
}

// TestNewObjFieldReadWrite covers S3's shape: an artifact allocated with
// NEWOBJ, its fields written and read back with STFLD/LDFLD against the
// packed layout (two i32 fields at offsets 0 and 4).
func TestNewObjFieldReadWrite(t *testing.T) {
	m := mustParse(t, `
types:
type P size=8 kind=artifact
field x i32 offset=0
field y i32 offset=4

func P__distSq locals=1 stack=4
  ldloc 0
  ldfld 0
  ldloc 0
  ldfld 0
  mul.i32
  ldloc 0
  ldfld 1
  ldloc 0
  ldfld 1
  mul.i32
  add.i32
  ret 1
end

func main locals=1 stack=8
  newobj 16
  stloc 0
  ldloc 0
  const.i32 3
  stfld 0
  ldloc 0
  const.i32 4
  stfld 1
  ldloc 0
  call 0 1
  ret 1
end

entry main
`)
	th := &Thread{}
	got, err := th.RunProgram(context.Background(), m)
	require.NoError(t, err)
	require.EqualValues(t, 25, got.I64())
}

// TestGlobalStoreAndLoad covers §4.6's global-initializer auto-run: a
// __global_init function seeds a global before main ever executes, and
// LDGLOB/STGLOB read and write the shared globals slice.
func TestGlobalStoreAndLoad(t *testing.T) {
	m := mustParse(t, `
globals:
global counter i32

func __global_init locals=0 stack=4
  const.i32 5
  stglob 0
  ret 0
end

func main locals=0 stack=4
  ldglob 0
  const.i32 1
  add.i32
  ret 1
end

entry main
`)
	th := &Thread{}
	got, err := th.RunProgram(context.Background(), m)
	require.NoError(t, err)
	require.EqualValues(t, 6, got.I64())
}

// TestShiftCountWrapsModuloBitWidth covers §4.4's shift-count masking
// rule: shl.i32 by 33 must behave identically to shl.i32 by 1 on a
// 32-bit operand.
func TestShiftCountWrapsModuloBitWidth(t *testing.T) {
	m := mustParse(t, `
func main locals=0 stack=8
  const.i32 1
  const.i32 33
  shl.i32
  const.i32 1
  const.i32 1
  shl.i32
  cmp.eq.i32
  ret 1
end

entry main
`)
	th := &Thread{}
	got, err := th.RunProgram(context.Background(), m)
	require.NoError(t, err)
	require.True(t, got.Bool())
}

// TestDivIntMinByNegOneTraps covers §9's integer-overflow trap: dividing
// the minimum representable i32 by -1 overflows the representable range
// and must trap rather than wrap.
func TestDivIntMinByNegOneTraps(t *testing.T) {
	m := mustParse(t, `
func main locals=0 stack=4
  const.i32 -2147483648
  const.i32 -1
  div.i32
  ret 1
end

entry main
`)
	th := &Thread{}
	_, err := th.RunProgram(context.Background(), m)
	require.Error(t, err)
	tr, ok := err.(*Trap)
	require.True(t, ok)
	require.Equal(t, ExitIntegerOverflow, tr.Code)
}

// TestModIntMinByNegOneTraps is TestDivIntMinByNegOneTraps's mod.i32
// counterpart.
func TestModIntMinByNegOneTraps(t *testing.T) {
	m := mustParse(t, `
func main locals=0 stack=4
  const.i32 -2147483648
  const.i32 -1
  mod.i32
  ret 1
end

entry main
`)
	th := &Thread{}
	_, err := th.RunProgram(context.Background(), m)
	require.Error(t, err)
	tr, ok := err.(*Trap)
	require.True(t, ok)
	require.Equal(t, ExitIntegerOverflow, tr.Code)
}

// TestStringLenConcatSliceGetChar covers comment 8's heap-backed string
// operations end to end: len, concat, get.char and slice all read/write
// the raw byte payload directly.
func TestStringLenConcatSliceGetChar(t *testing.T) {
	m := mustParse(t, `
func main locals=2 stack=8
  ldloc 0
  string.len
  ldloc 0
  ldloc 1
  string.concat
  string.len
  add.i32
  ldloc 1
  const.i32 1
  string.get.char
  ldloc 0
  const.i32 0
  const.i32 3
  string.slice
  string.len
  add.i32
  add.i32
  ret 1
end

entry main
`)
	th := &Thread{}
	th.init()
	hp := heap.New()
	a := hp.Allocate(heap.KindString, 0, 3)
	copy(hp.Get(a).Payload, "foo")
	b := hp.Allocate(heap.KindString, 0, 2)
	copy(hp.Get(b).Payload, "zz")
	vm := NewVM(th, m, hp)
	vm.callFunc(uint32(m.FuncIndex["main"]), []Slot{FromHandle(uint32(a)), FromHandle(uint32(b))})
	vm.loop()
	got := vm.pop()
	// len("foo")=3, len("foo"+"zz")=5, 'z' (second char of "zz") = 122,
	// len("foo"[0:3])=3 -> 3+5+122+3 = 133
	require.EqualValues(t, 133, got.I64())
}

// TestListInsertRemove covers comment 8's list.insert/list.remove
// against the existing getSlot/putSlot 8-byte-slot list representation.
func TestListInsertRemove(t *testing.T) {
	m := mustParse(t, `
func main locals=1 stack=8
  list.new 16 0
  stloc 0
  ldloc 0
  const.i32 10
  list.push.i32
  ldloc 0
  const.i32 30
  list.push.i32
  ldloc 0
  const.i32 0
  const.i32 20
  list.insert
  ldloc 0
  const.i32 0
  list.remove
  ldloc 0
  const.i32 0
  list.get.i32
  ldloc 0
  const.i32 1
  list.get.i32
  add.i32
  ret 1
end

entry main
`)
	th := &Thread{}
	got, err := th.RunProgram(context.Background(), m)
	require.NoError(t, err)
	// push 10, push 30 -> [10,30]; insert(0,20) -> [20,10,30];
	// remove(0) -> [10,30]; get(0)+get(1) = 40
	require.EqualValues(t, 40, got.I64())
}

// TestClosureCaptureSurvivesGCAndIsReturned covers S5's GC-survival
// scenario: a closure's captured upvalue must stay reachable across an
// explicit Collect when only the closure handle itself is a root, and
// LDUPV must still resolve it afterwards (§8 properties 4 and 5).
func TestClosureCaptureSurvivesGCAndIsReturned(t *testing.T) {
	m := mustParse(t, `
types:
type Box size=4 kind=artifact
field v i32 offset=0

func __lambda_1 locals=0 stack=4
  ldupv 0
  ldfld 0
  ret 1
end

func make_box locals=1 stack=4
  newobj 16
  stloc 0
  ldloc 0
  const.i32 7
  stfld 0
  ldloc 0
  ret 1
end

entry make_box
`)
	th := &Thread{}
	th.init()
	hp := heap.New()
	vm := NewVM(th, m, hp)

	vm.callFunc(uint32(m.FuncIndex["make_box"]), nil)
	vm.loop()
	boxHandle := heap.Handle(vm.pop().Handle())

	payload := heap.NewClosurePayload(uint32(m.FuncIndex["__lambda_1"]), []heap.Handle{boxHandle})
	closureHandle := hp.Allocate(heap.KindClosure, 0, uint32(len(payload)))
	copy(hp.Get(closureHandle).Payload, payload)

	hp.Collect(func(mark func(heap.Handle)) {
		mark(closureHandle)
	})
	require.NotNil(t, hp.Get(boxHandle), "closure upvalue must keep its captured object alive across GC")

	vm.pushFrame(uint32(m.FuncIndex["__lambda_1"]), nil, closureHandle)
	vm.loop()
	got := vm.pop()
	require.EqualValues(t, 7, got.I64())
}

// TestLdupvOutsideClosureFrameTraps covers LDUPV's bound-closure
// precondition: a frame entered via an ordinary call has no closure to
// resolve against.
func TestLdupvOutsideClosureFrameTraps(t *testing.T) {
	m := mustParse(t, `
func main locals=0 stack=4
  ldupv 0
  ret 1
end

entry main
`)
	th := &Thread{}
	_, err := th.RunProgram(context.Background(), m)
	require.Error(t, err)
	tr, ok := err.(*Trap)
	require.True(t, ok)
	require.Equal(t, ExitBadIndirectCall, tr.Code)
}
