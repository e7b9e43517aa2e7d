package machine

import "github.com/JJLDonley/Simple-sub005/lang/heap"

// Frame records one activation on the VM's call-frame stack: the
// instruction pointer, the function being executed, and the locals/
// operand-stack regions carved out of the thread's shared slot arrays
// (§3: "a frame stack recording {instruction pointer, function id,
// locals base, stack base}"). Unlike the teacher's per-call Go
// recursion, frames here are VM-managed entries in an explicit stack so
// that call/ret/tailcall are ordinary opcodes rather than native Go
// calls.
type Frame struct {
	FuncID     uint32
	IP         uint32
	LocalsBase int
	StackBase  int

	// Closure is the bound closure handle for a frame entered via
	// call_indirect, heap.NullHandle otherwise. ldupv/stupv resolve
	// against it (§4.4).
	Closure heap.Handle
}
