package machine

import (
	"math"

	"github.com/JJLDonley/Simple-sub005/lang/bytecode"
)

// Slot is one unboxed operand-stack or locals-array word. Its static
// type is established by the emitting opcode (§3, §4.4): the
// interpreter does not carry a runtime type tag alongside it, except
// where §4.4 explicitly calls for one (callcheck, reference opcodes,
// bounds checks). A Slot is always 8 bytes wide regardless of the
// logical type it holds; narrower integer types are sign/zero-extended
// into it and truncated back out on store, giving two's-complement
// wraparound for overflow (§9 Open Questions).
type Slot uint64

// I64 reinterprets the slot's bits as a signed 64-bit integer.
func (s Slot) I64() int64 { return int64(s) }

// U64 reinterprets the slot's bits as an unsigned 64-bit integer.
func (s Slot) U64() uint64 { return uint64(s) }

// F64 reinterprets the slot's bits as a float64.
func (s Slot) F64() float64 { return math.Float64frombits(uint64(s)) }

// F32 reinterprets the low 32 bits of the slot as a float32.
func (s Slot) F32() float32 { return math.Float32frombits(uint32(s)) }

// Bool reinterprets the slot as a boolean (nonzero is true).
func (s Slot) Bool() bool { return s != 0 }

// Handle reinterprets the slot as a 32-bit heap handle.
func (s Slot) Handle() uint32 { return uint32(s) }

// FromI64 packs a signed 64-bit integer into a Slot.
func FromI64(v int64) Slot { return Slot(uint64(v)) }

// FromU64 packs an unsigned 64-bit integer into a Slot.
func FromU64(v uint64) Slot { return Slot(v) }

// FromF64 packs a float64 into a Slot.
func FromF64(v float64) Slot { return Slot(math.Float64bits(v)) }

// FromF32 packs a float32 into a Slot (upper bits zero).
func FromF32(v float32) Slot { return Slot(uint64(math.Float32bits(v))) }

// FromBool packs a boolean into a Slot.
func FromBool(v bool) Slot {
	if v {
		return 1
	}
	return 0
}

// FromHandle packs a 32-bit heap handle into a Slot.
func FromHandle(h uint32) Slot { return Slot(uint64(h)) }

// Truncate narrows a raw 64-bit pattern down to the storage width of t
// and sign/zero-extends it back out, giving two's-complement
// wraparound for every fixed-width integer type (§9).
func Truncate(v uint64, t bytecode.Type) uint64 {
	switch t {
	case bytecode.TypeI8:
		return uint64(int64(int8(v)))
	case bytecode.TypeI16:
		return uint64(int64(int16(v)))
	case bytecode.TypeI32:
		return uint64(int64(int32(v)))
	case bytecode.TypeU8:
		return uint64(uint8(v))
	case bytecode.TypeU16:
		return uint64(uint16(v))
	case bytecode.TypeU32:
		return uint64(uint32(v))
	case bytecode.TypeF32:
		return uint64(math.Float32bits(float32(math.Float64frombits(v))))
	default:
		return v
	}
}
