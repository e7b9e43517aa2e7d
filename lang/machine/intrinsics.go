package machine

// Intrinsic ids, ported verbatim from the original VM's
// intrinsic_ids.h. These are stable across versions and must never be
// renumbered (§6). IntrinsicAbsF32/IntrinsicAbsF64 have no equivalent in
// intrinsic_ids.h; they are appended immediately after the ported block
// rather than interleaved into it, so the ported ids keep their
// original numbering.
const (
	IntrinsicTrap       uint32 = 0x0000
	IntrinsicBreakpoint uint32 = 0x0001

	IntrinsicLogI32 uint32 = 0x0010
	IntrinsicLogI64 uint32 = 0x0011
	IntrinsicLogF32 uint32 = 0x0012
	IntrinsicLogF64 uint32 = 0x0013
	IntrinsicLogRef uint32 = 0x0014

	IntrinsicAbsI32  uint32 = 0x0020
	IntrinsicAbsI64  uint32 = 0x0021
	IntrinsicMinI32  uint32 = 0x0022
	IntrinsicMaxI32  uint32 = 0x0023
	IntrinsicMinI64  uint32 = 0x0024
	IntrinsicMaxI64  uint32 = 0x0025
	IntrinsicMinF32  uint32 = 0x0026
	IntrinsicMaxF32  uint32 = 0x0027
	IntrinsicMinF64  uint32 = 0x0028
	IntrinsicMaxF64  uint32 = 0x0029
	IntrinsicSqrtF32 uint32 = 0x002A
	IntrinsicSqrtF64 uint32 = 0x002B

	IntrinsicAbsF32 uint32 = 0x002C
	IntrinsicAbsF64 uint32 = 0x002D

	IntrinsicMonoNs uint32 = 0x0030
	IntrinsicWallNs uint32 = 0x0031

	IntrinsicRandU32 uint32 = 0x0040
	IntrinsicRandU64 uint32 = 0x0041

	IntrinsicWriteStdout uint32 = 0x0050
	IntrinsicWriteStderr uint32 = 0x0051

	IntrinsicPrintAny uint32 = 0x0060

	IntrinsicDlCallI8     uint32 = 0x0070
	IntrinsicDlCallI16    uint32 = 0x0071
	IntrinsicDlCallI32    uint32 = 0x0072
	IntrinsicDlCallI64    uint32 = 0x0073
	IntrinsicDlCallU8     uint32 = 0x0074
	IntrinsicDlCallU16    uint32 = 0x0075
	IntrinsicDlCallU32    uint32 = 0x0076
	IntrinsicDlCallU64    uint32 = 0x0077
	IntrinsicDlCallF32    uint32 = 0x0078
	IntrinsicDlCallF64    uint32 = 0x0079
	IntrinsicDlCallBool   uint32 = 0x007A
	IntrinsicDlCallChar   uint32 = 0x007B
	IntrinsicDlCallStr0   uint32 = 0x007C
)

// printAnyTag values for the intrinsic 0x0060 print_any tagged union
// (§6, §4.4), 1..13 = i8,i16,i32,i64,u8,u16,u32,u64,f32,f64,bool,char,
// string.
const (
	PrintAnyI8 uint32 = iota + 1
	PrintAnyI16
	PrintAnyI32
	PrintAnyI64
	PrintAnyU8
	PrintAnyU16
	PrintAnyU32
	PrintAnyU64
	PrintAnyF32
	PrintAnyF64
	PrintAnyBool
	PrintAnyChar
	PrintAnyString
)
