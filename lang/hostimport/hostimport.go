// Package hostimport is the closed catalog of reserved host modules
// (C7): core.os, core.io, core.fs, core.log, core.dl. It is consulted
// by the emitter (lang/emit) to synthesize import entries and by the
// VM (lang/machine) to route a call to its host implementation instead
// of a foreign symbol lookup, per §4.7.
package hostimport

import "github.com/JJLDonley/Simple-sub005/lang/bytecode"

// Symbol describes one canonical reserved-module function.
type Symbol struct {
	Module string
	Name   string
	Params []bytecode.Type
	Return bytecode.Type
}

// FullName is "<module>.<name>", the key used by the emitter's
// (module,symbol) dedup table.
func (s Symbol) FullName() string { return s.Module + "." + s.Name }

const (
	CoreOS  = "core.os"
	CoreIO  = "core.io"
	CoreFS  = "core.fs"
	CoreLog = "core.log"
	CoreDL  = "core.dl"
)

// catalog is the minimal required catalog from §4.7, built once at
// package init so both the emitter and the VM consult the exact same
// canonical signatures.
var catalog = map[string][]Symbol{
	CoreOS: {
		{Module: CoreOS, Name: "args_count", Return: bytecode.TypeI32},
		{Module: CoreOS, Name: "args_get", Params: []bytecode.Type{bytecode.TypeI32}, Return: bytecode.TypeString},
		{Module: CoreOS, Name: "env_get", Params: []bytecode.Type{bytecode.TypeString}, Return: bytecode.TypeString},
		{Module: CoreOS, Name: "cwd_get", Return: bytecode.TypeString},
		{Module: CoreOS, Name: "time_mono_ns", Return: bytecode.TypeI64},
		{Module: CoreOS, Name: "time_wall_ns", Return: bytecode.TypeI64},
		{Module: CoreOS, Name: "sleep_ms", Params: []bytecode.Type{bytecode.TypeI32}, Return: bytecode.TypeVoid},
	},
	CoreIO: {
		{Module: CoreIO, Name: "buffer_new", Params: []bytecode.Type{bytecode.TypeI32}, Return: bytecode.TypeRef},
		{Module: CoreIO, Name: "buffer_len", Params: []bytecode.Type{bytecode.TypeRef}, Return: bytecode.TypeI32},
		{Module: CoreIO, Name: "buffer_fill", Params: []bytecode.Type{bytecode.TypeRef, bytecode.TypeI32, bytecode.TypeI32}, Return: bytecode.TypeI32},
		{Module: CoreIO, Name: "buffer_copy", Params: []bytecode.Type{bytecode.TypeRef, bytecode.TypeRef, bytecode.TypeI32}, Return: bytecode.TypeI32},
	},
	CoreFS: {
		{Module: CoreFS, Name: "open", Params: []bytecode.Type{bytecode.TypeString, bytecode.TypeI32}, Return: bytecode.TypeI32},
		{Module: CoreFS, Name: "close", Params: []bytecode.Type{bytecode.TypeI32}, Return: bytecode.TypeVoid},
		{Module: CoreFS, Name: "read", Params: []bytecode.Type{bytecode.TypeI32, bytecode.TypeRef, bytecode.TypeI32}, Return: bytecode.TypeI32},
		{Module: CoreFS, Name: "write", Params: []bytecode.Type{bytecode.TypeI32, bytecode.TypeRef, bytecode.TypeI32}, Return: bytecode.TypeI32},
	},
	CoreLog: {
		{Module: CoreLog, Name: "log", Params: []bytecode.Type{bytecode.TypeString, bytecode.TypeI32}, Return: bytecode.TypeVoid},
	},
	CoreDL: {
		{Module: CoreDL, Name: "open", Params: []bytecode.Type{bytecode.TypeString}, Return: bytecode.TypeI64},
		{Module: CoreDL, Name: "sym", Params: []bytecode.Type{bytecode.TypeI64, bytecode.TypeString}, Return: bytecode.TypeI64},
		{Module: CoreDL, Name: "close", Params: []bytecode.Type{bytecode.TypeI64}, Return: bytecode.TypeI32},
		{Module: CoreDL, Name: "last_error", Return: bytecode.TypeString},
	},
}

// aliases canonicalizes every user-facing spelling to the lowercase
// dotted module name, per §6's "Import path normalization": Core.OS,
// core_os, CORE.os, … all resolve to "core.os".
var aliases = map[string]string{
	"core.os": CoreOS, "core_os": CoreOS, "core.io": CoreIO, "core_io": CoreIO,
	"core.fs": CoreFS, "core_fs": CoreFS, "core.log": CoreLog, "core_log": CoreLog,
	"core.dl": CoreDL, "core_dl": CoreDL,
}

// Canonicalize resolves a user-facing import path to its reserved
// module name, trying exact match first, then a case-insensitive and
// underscore/dot-normalized form. ok is false if path does not name a
// reserved module at all (it is a plain foreign import).
func Canonicalize(path string) (string, bool) {
	if m, ok := aliases[path]; ok {
		return m, true
	}
	norm := normalize(path)
	if m, ok := aliases[norm]; ok {
		return m, true
	}
	return "", false
}

func normalize(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			c = '.'
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// IsReserved reports whether module is one of the canonical reserved
// module names (CoreOS, CoreIO, CoreFS, CoreLog, CoreDL).
func IsReserved(module string) bool {
	_, ok := catalog[module]
	return ok
}

// Symbols returns the full, fixed symbol list for a canonical reserved
// module name. Per §4.6, "all module symbols listed in §6 are
// synthesized, even if only some are used" — callers always get the
// complete list, never a filtered subset.
func Symbols(module string) []Symbol {
	return catalog[module]
}

// Lookup finds the canonical Symbol for (module, name), used by the VM
// to validate a reserved dispatch and by the emitter to find the
// signature for a reserved-module reference.
func Lookup(module, name string) (Symbol, bool) {
	for _, s := range catalog[module] {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// IsScalarABI reports whether t is a type the dynamic-library call ABI
// (core.dl's synthesized call$<N> family) can pass or return directly:
// every fixed-width numeric type, bool and char. String and ref types
// are not scalar ABI types. Mirrors IsSupportedDlAbiType.
func IsScalarABI(t bytecode.Type) bool {
	switch t {
	case bytecode.TypeI8, bytecode.TypeI16, bytecode.TypeI32, bytecode.TypeI64,
		bytecode.TypeU8, bytecode.TypeU16, bytecode.TypeU32, bytecode.TypeU64,
		bytecode.TypeF32, bytecode.TypeF64, bytecode.TypeBool, bytecode.TypeChar:
		return true
	default:
		return false
	}
}

// DlCallIntrinsicFor returns the name of the intrinsic that services a
// call$<N> companion returning ret, e.g. "DlCallF64" for a f64 return.
// The companion dispatch is per-return-ABI-type, per §4.4.
func DlCallIntrinsicFor(ret bytecode.Type) (string, bool) {
	switch ret {
	case bytecode.TypeI8:
		return "DlCallI8", true
	case bytecode.TypeI16:
		return "DlCallI16", true
	case bytecode.TypeI32:
		return "DlCallI32", true
	case bytecode.TypeI64:
		return "DlCallI64", true
	case bytecode.TypeU8:
		return "DlCallU8", true
	case bytecode.TypeU16:
		return "DlCallU16", true
	case bytecode.TypeU32:
		return "DlCallU32", true
	case bytecode.TypeU64:
		return "DlCallU64", true
	case bytecode.TypeF32:
		return "DlCallF32", true
	case bytecode.TypeF64:
		return "DlCallF64", true
	case bytecode.TypeBool:
		return "DlCallBool", true
	case bytecode.TypeChar:
		return "DlCallChar", true
	case bytecode.TypeString:
		return "DlCallStr0", true
	default:
		return "", false
	}
}
