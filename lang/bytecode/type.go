package bytecode

// Type tags the operand a typed opcode acts on. The encoder and the IR
// text parser both translate a dotted mnemonic suffix (".i32", ".f64",
// ".ref", …) to and from one of these tags; the VM dispatches on it at
// run time for every typed opcode (add, cmp, array/list element access,
// conversions).
type Type byte

const (
	TypeVoid Type = iota
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeU8
	TypeU16
	TypeU32
	TypeU64
	TypeF32
	TypeF64
	TypeBool
	TypeChar
	TypeString
	TypeRef
	TypeNull
)

// NumericTypes lists every type over which arithmetic, bitwise, compare,
// neg/inc/dec and conversion opcodes are defined, in declaration order.
// This is a deliberate generalization from the excerpted original, which
// only demonstrates i32/i64/u32/u64 for some families: the full set
// covers every width the signature-type token grammar (§6) names.
var NumericTypes = []Type{
	TypeI8, TypeI16, TypeI32, TypeI64,
	TypeU8, TypeU16, TypeU32, TypeU64,
	TypeF32, TypeF64,
}

// IntegerTypes is NumericTypes minus the floating point types; bitwise
// and modulo opcodes are only defined over these.
var IntegerTypes = []Type{
	TypeI8, TypeI16, TypeI32, TypeI64,
	TypeU8, TypeU16, TypeU32, TypeU64,
}

// SignedTypes are the types for which a sign-dependent trap (div by -1
// on signed minimum) and a meaningful neg are defined without a cast.
var SignedTypes = []Type{TypeI8, TypeI16, TypeI32, TypeI64, TypeF32, TypeF64}

// ElementTypes lists the element tags accepted by array/list get/set/
// push/pop opcodes, per §4.2.
var ElementTypes = []Type{TypeI32, TypeI64, TypeF32, TypeF64, TypeRef}

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeU8:
		return "u8"
	case TypeU16:
		return "u16"
	case TypeU32:
		return "u32"
	case TypeU64:
		return "u64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeBool:
		return "bool"
	case TypeChar:
		return "char"
	case TypeString:
		return "string"
	case TypeRef:
		return "ref"
	case TypeNull:
		return "null"
	default:
		return "?"
	}
}

// IsFloat reports whether t is f32 or f64.
func (t Type) IsFloat() bool { return t == TypeF32 || t == TypeF64 }

// IsUnsigned reports whether t is one of the unsigned integer widths.
func (t Type) IsUnsigned() bool {
	switch t {
	case TypeU8, TypeU16, TypeU32, TypeU64:
		return true
	default:
		return false
	}
}

// Width returns the storage width in bytes for a numeric type, or 0 if t
// is not a fixed-width numeric type.
func (t Type) Width() int {
	switch t {
	case TypeI8, TypeU8, TypeBool, TypeChar:
		return 1
	case TypeI16, TypeU16:
		return 2
	case TypeI32, TypeU32, TypeF32:
		return 4
	case TypeI64, TypeU64, TypeF64:
		return 8
	default:
		return 0
	}
}

// ParseType maps a signature/mnemonic type token to a Type. ok is false
// for an unrecognized token.
func ParseType(s string) (Type, bool) {
	switch s {
	case "void":
		return TypeVoid, true
	case "i8":
		return TypeI8, true
	case "i16":
		return TypeI16, true
	case "i32":
		return TypeI32, true
	case "i64":
		return TypeI64, true
	case "u8":
		return TypeU8, true
	case "u16":
		return TypeU16, true
	case "u32":
		return TypeU32, true
	case "u64":
		return TypeU64, true
	case "f32":
		return TypeF32, true
	case "f64":
		return TypeF64, true
	case "bool":
		return TypeBool, true
	case "char":
		return TypeChar, true
	case "string":
		return TypeString, true
	case "ref":
		return TypeRef, true
	case "null":
		return TypeNull, true
	default:
		return 0, false
	}
}
