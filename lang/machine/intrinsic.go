package machine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/JJLDonley/Simple-sub005/lang/heap"
)

// intrinsic dispatches a fixed-id intrinsic call (§4.4, §6). Argument
// count and ABI are per-id, ported from the original VM's
// intrinsic_ids.h table; each case pops exactly the arguments that id
// takes and pushes exactly its declared return, if any.
func (vm *VM) intrinsic(id uint32) {
	switch id {
	case IntrinsicTrap:
		panic(trap(0, "trap"))
	case IntrinsicBreakpoint:
		// no-op in a headless VM; a debugger-attached embedder can hook this.

	case IntrinsicLogI32:
		fmt.Fprintln(vm.th.stderr, vm.pop().I64())
	case IntrinsicLogI64:
		fmt.Fprintln(vm.th.stderr, vm.pop().I64())
	case IntrinsicLogF32:
		fmt.Fprintln(vm.th.stderr, float64(vm.pop().F32()))
	case IntrinsicLogF64:
		fmt.Fprintln(vm.th.stderr, vm.pop().F64())
	case IntrinsicLogRef:
		fmt.Fprintln(vm.th.stderr, vm.pop().Handle())

	case IntrinsicAbsI32, IntrinsicAbsI64:
		v := vm.pop().I64()
		if v < 0 {
			v = -v
		}
		vm.push(FromI64(v))
	case IntrinsicAbsF32:
		vm.push(FromF32(float32(math.Abs(float64(vm.pop().F32())))))
	case IntrinsicAbsF64:
		vm.push(FromF64(math.Abs(vm.pop().F64())))

	case IntrinsicMinI32, IntrinsicMinI64:
		b, a := vm.pop().I64(), vm.pop().I64()
		if b < a {
			a = b
		}
		vm.push(FromI64(a))
	case IntrinsicMinF32:
		b, a := vm.pop().F32(), vm.pop().F32()
		vm.push(FromF32(float32(math.Min(float64(a), float64(b)))))
	case IntrinsicMinF64:
		b, a := vm.pop().F64(), vm.pop().F64()
		vm.push(FromF64(math.Min(a, b)))

	case IntrinsicMaxI32, IntrinsicMaxI64:
		b, a := vm.pop().I64(), vm.pop().I64()
		if b > a {
			a = b
		}
		vm.push(FromI64(a))
	case IntrinsicMaxF32:
		b, a := vm.pop().F32(), vm.pop().F32()
		vm.push(FromF32(float32(math.Max(float64(a), float64(b)))))
	case IntrinsicMaxF64:
		b, a := vm.pop().F64(), vm.pop().F64()
		vm.push(FromF64(math.Max(a, b)))

	case IntrinsicSqrtF32:
		vm.push(FromF32(float32(math.Sqrt(float64(vm.pop().F32())))))
	case IntrinsicSqrtF64:
		vm.push(FromF64(math.Sqrt(vm.pop().F64())))

	case IntrinsicMonoNs:
		vm.push(FromI64(monoNow()))
	case IntrinsicWallNs:
		vm.push(FromI64(time.Now().UnixNano()))

	case IntrinsicRandU32:
		vm.push(FromU64(uint64(rand.Uint32())))
	case IntrinsicRandU64:
		vm.push(FromU64(rand.Uint64()))

	case IntrinsicWriteStdout:
		len_ := vm.pop().I64()
		h := vm.pop().Handle()
		vm.writeDevice(vm.th.stdout, h, len_)
	case IntrinsicWriteStderr:
		len_ := vm.pop().I64()
		h := vm.pop().Handle()
		vm.writeDevice(vm.th.stderr, h, len_)

	case IntrinsicPrintAny:
		vm.printAny()

	case IntrinsicDlCallI8, IntrinsicDlCallI16, IntrinsicDlCallI32, IntrinsicDlCallI64,
		IntrinsicDlCallU8, IntrinsicDlCallU16, IntrinsicDlCallU32, IntrinsicDlCallU64,
		IntrinsicDlCallF32, IntrinsicDlCallF64, IntrinsicDlCallBool, IntrinsicDlCallChar,
		IntrinsicDlCallStr0:
		panic(trap(ExitUnknownHostImport, "dynamic library calls require an embedder-registered core.dl implementation"))

	default:
		panic(trap(ExitUnknownIntrinsic, "unknown intrinsic id 0x%04x", id))
	}
}

var processStart = time.Now()

// monoNow is the machine's monotonic clock source (§4.4's "monotonic
// wall clock" pair); always measured from process start so it can
// never run backwards regardless of host wall-clock adjustments.
func monoNow() int64 { return int64(time.Since(processStart)) }

// printAny implements the print_any tagged-union intrinsic (§6): the
// tag (one of the PrintAny* constants) is on top of the stack, the
// value immediately below it.
func (vm *VM) printAny() {
	tag := vm.pop().U64()
	val := vm.pop()
	switch uint32(tag) {
	case PrintAnyI8, PrintAnyI16, PrintAnyI32, PrintAnyI64:
		fmt.Fprintln(vm.th.stdout, val.I64())
	case PrintAnyU8, PrintAnyU16, PrintAnyU32, PrintAnyU64:
		fmt.Fprintln(vm.th.stdout, val.U64())
	case PrintAnyF32:
		fmt.Fprintln(vm.th.stdout, float64(val.F32()))
	case PrintAnyF64:
		fmt.Fprintln(vm.th.stdout, val.F64())
	case PrintAnyBool:
		fmt.Fprintln(vm.th.stdout, val.Bool())
	case PrintAnyChar:
		fmt.Fprintln(vm.th.stdout, string(rune(val.U64())))
	case PrintAnyString:
		fmt.Fprintln(vm.th.stdout, val.Handle())
	default:
		panic(trap(ExitUnknownIntrinsic, "print_any: unknown tag %d", tag))
	}
}

// writeDevice writes the low n bytes of the heap buffer at handle h to
// w, backing the write_stdout/write_stderr intrinsics over a
// core.io-style buffer object.
func (vm *VM) writeDevice(w interface{ Write([]byte) (int, error) }, h uint32, n int64) {
	obj := vm.hp.Get(heap.Handle(h))
	if obj == nil {
		panic(trap(ExitNullDeref, "write from null buffer"))
	}
	if n < 0 || n > int64(len(obj.Payload)) {
		panic(trap(ExitOutOfBounds, "write length %d exceeds buffer size %d", n, len(obj.Payload)))
	}
	w.Write(obj.Payload[:n])
}
