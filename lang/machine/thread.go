package machine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/JJLDonley/Simple-sub005/lang/heap"
	"github.com/JJLDonley/Simple-sub005/lang/irtext"
)

// HostFunc is a host-import implementation: it receives the VM so it can
// read arguments off the operand stack and push its result, per §4.7.
type HostFunc func(vm *VM, args []Slot) ([]Slot, error)

// Thread owns one execution of a Module: its I/O, resource limits and
// cancellation, mirroring the teacher's Thread (lang/machine/thread.go)
// field for field where the concept still applies, dropping only what
// was specific to the teacher's dynamic value system (Load/Predeclared/
// MaxCompareDepth, which has no equivalent over unboxed Slots).
type Thread struct {
	// Name is an optional name that describes the thread, mostly for debugging.
	Name string

	// Stdout, Stderr and Stdin are the standard I/O abstractions for the
	// thread. If nil, os.Stdout, os.Stderr and os.Stdin are used.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxSteps is the maximum number of fetch-decode-execute cycles
	// before the thread traps with ExitStepLimitExceeded. A value <= 0 means no
	// limit.
	MaxSteps int

	// MaxCallStackDepth limits the number of nested function calls. A
	// value <= 0 means no limit.
	MaxCallStackDepth int

	// HostImports resolves a (module, symbol) host call to its
	// implementation; set by the embedder for core.os/io/fs/log/dl and
	// any accepted foreign imports (§4.7).
	HostImports map[string]HostFunc

	ctx       context.Context
	ctxCancel func()
	cancelled atomic.Bool

	steps, maxSteps uint64

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

// RunProgram loads m and executes its entry function to completion,
// returning the entry function's single return slot (or a zero Slot if
// it returns void).
func (th *Thread) RunProgram(ctx context.Context, m *irtext.Module) (Slot, error) {
	if th.ctx != nil {
		return 0, fmt.Errorf("thread %s is already executing a program", th.Name)
	}

	ctx, cancel := context.WithCancel(ctx)
	th.ctx = ctx
	th.ctxCancel = cancel
	th.init()

	vm := NewVM(th, m, heap.New())
	return vm.Run(m.EntryIdx)
}

func (th *Thread) init() {
	if th.MaxSteps <= 0 {
		th.maxSteps--
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	if th.Stderr != nil {
		th.stderr = th.Stderr
	} else {
		th.stderr = os.Stderr
	}
	if th.Stdin != nil {
		th.stdin = th.Stdin
	} else {
		th.stdin = os.Stdin
	}
	if th.ctx == nil {
		th.ctx = context.Background()
		th.ctxCancel = func() {}
	} else {
		go func() {
			<-th.ctx.Done()
			th.cancelled.Store(true)
		}()
	}
}

func (th *Thread) cancelledByContext() bool { return th.cancelled.Load() }
