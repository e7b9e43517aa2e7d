// Package heap implements the VM's handle-indexed object arena (C1): a
// non-moving mark-sweep heap over byte payloads, ported closely from
// the original Heap (VM/include/heap.h, VM/src/heap.cpp): the same
// header shape, free-list reuse on Allocate, idempotent Mark with
// Closure-upvalue recursion, and ResetMarks/Sweep.
package heap

import "encoding/binary"

// ObjectKind identifies the payload shape of a heap object.
type ObjectKind uint8

const (
	KindString ObjectKind = iota
	KindArray
	KindList
	KindArtifact
	KindClosure
)

// Handle is a stable 32-bit index into the heap. It is reused across
// dead objects, but never refers to two different live objects at the
// same time (§3's heap invariant).
type Handle uint32

// NullHandle is the sentinel for a null reference, matching the
// closure payload's 0xFFFFFFFF null-upvalue marker.
const NullHandle Handle = 0xFFFFFFFF

// ObjHeader is the fixed metadata every heap object carries, mirroring
// ObjHeader in heap.h field for field.
type ObjHeader struct {
	Kind   ObjectKind
	TypeID uint32
	Size   uint32
	Marked bool
	Alive  bool
}

// Object is a heap object: its header plus an opaque payload whose
// interpretation is kind-specific (§3).
type Object struct {
	Header  ObjHeader
	Payload []byte
}

// Heap is the VM's object arena.
type Heap struct {
	objects  []Object
	freeList []Handle
}

// New returns an empty Heap.
func New() *Heap {
	return &Heap{}
}

// Allocate reserves size bytes of zeroed payload for an object of the
// given kind and type id, preferring a reused free-list slot over
// growing the arena, and returns its handle.
func (h *Heap) Allocate(kind ObjectKind, typeID, size uint32) Handle {
	payload := make([]byte, size)
	hdr := ObjHeader{Kind: kind, TypeID: typeID, Size: size, Alive: true}

	if n := len(h.freeList); n > 0 {
		handle := h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.objects[handle] = Object{Header: hdr, Payload: payload}
		return handle
	}

	h.objects = append(h.objects, Object{Header: hdr, Payload: payload})
	return Handle(len(h.objects) - 1)
}

// Get returns the object for handle, or nil if the handle is out of
// range or does not currently refer to a live object. This is a soft
// failure per §4.1; the VM is responsible for trapping on a nil
// dereference.
func (h *Heap) Get(handle Handle) *Object {
	if int(handle) < 0 || int(handle) >= len(h.objects) {
		return nil
	}
	obj := &h.objects[handle]
	if !obj.Header.Alive {
		return nil
	}
	return obj
}

// Mark sets handle's mark bit. It is idempotent: marking an
// already-marked object is a no-op, which both satisfies §8 property 3
// and guards against cycles when recursing into a Closure's upvalues
// (§9, "Cyclic object graphs").
func (h *Heap) Mark(handle Handle) {
	if handle == NullHandle {
		return
	}
	obj := h.Get(handle)
	if obj == nil || obj.Header.Marked {
		return
	}
	obj.Header.Marked = true

	if obj.Header.Kind == KindClosure {
		h.markClosureUpvalues(obj)
	}
}

// markClosureUpvalues reads the closure payload layout from §6:
// u32 method_id, u32 upvalue_count, u32 upvalue_handle[upvalue_count],
// all little-endian, recursively marking every non-null upvalue.
func (h *Heap) markClosureUpvalues(obj *Object) {
	if len(obj.Payload) < 8 {
		return
	}
	count := binary.LittleEndian.Uint32(obj.Payload[4:8])
	for i := uint32(0); i < count; i++ {
		off := 8 + 4*int(i)
		if off+4 > len(obj.Payload) {
			break
		}
		uv := Handle(binary.LittleEndian.Uint32(obj.Payload[off : off+4]))
		if uv != NullHandle {
			h.Mark(uv)
		}
	}
}

// ResetMarks clears the mark bit on every live object, in preparation
// for a fresh mark phase.
func (h *Heap) ResetMarks() {
	for i := range h.objects {
		if h.objects[i].Header.Alive {
			h.objects[i].Header.Marked = false
		}
	}
}

// Sweep frees every live object whose mark bit is clear, returning its
// handle to the free list, and clears the mark bit on every surviving
// object so the heap is ready for the next mark phase.
func (h *Heap) Sweep() {
	for i := range h.objects {
		obj := &h.objects[i]
		if !obj.Header.Alive {
			continue
		}
		if !obj.Header.Marked {
			obj.Header.Alive = false
			obj.Payload = nil
			h.freeList = append(h.freeList, Handle(i))
			continue
		}
		obj.Header.Marked = false
	}
}

// Collect runs the standard reset -> mark(roots) -> sweep protocol
// described in §4.1, given a function that marks every GC root.
func (h *Heap) Collect(markRoots func(mark func(Handle))) {
	h.ResetMarks()
	markRoots(h.Mark)
	h.Sweep()
}

// Len reports the number of object slots ever allocated (including
// freed ones still occupying a slot), useful for tests and for
// allocation-threshold GC triggers.
func (h *Heap) Len() int { return len(h.objects) }

// NewClosurePayload builds a closure payload for methodID and the
// given upvalue handles (NullHandle for an unset slot), per the §6
// layout.
func NewClosurePayload(methodID uint32, upvalues []Handle) []byte {
	buf := make([]byte, 8+4*len(upvalues))
	binary.LittleEndian.PutUint32(buf[0:4], methodID)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(upvalues)))
	for i, uv := range upvalues {
		binary.LittleEndian.PutUint32(buf[8+4*i:12+4*i], uint32(uv))
	}
	return buf
}
