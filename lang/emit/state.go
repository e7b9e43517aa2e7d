// Package emit implements C6, the SIR emitter: it lowers a validated
// lang/ast.Program to the textual SIR module format lang/irtext parses
// (§4.6, §6). Emission is organized the way the teacher's
// lang/compiler/compiler.go organizes compilation: one owning state
// struct per program (pcomp-equivalent: name tables, constant pool,
// import/function registries) and, per function, a direct textual
// emission pass rather than a CFG (grounded on
// original_source/Lang/src/sir/lang_arrays.cpp's EmitArrayLiteral,
// which writes mnemonics straight to an output stream while threading a
// running stack_depth counter instead of building an intermediate
// graph).
package emit

import (
	"fmt"
	"strings"

	"github.com/dolthub/swiss"

	"github.com/JJLDonley/Simple-sub005/lang/ast"
	"github.com/JJLDonley/Simple-sub005/lang/hostimport"
)

// Error is returned for any failure during emission (§4.6's
// "Failure semantics": transactional, single diagnostic, output
// undefined on error).
type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// state is the emitter's single owning context, threaded by mutable
// reference through every lowering function — never a package-level
// global, per §9's "Global mutable state in the emitter" design note.
type state struct {
	program *ast.Program

	// Declaration-name lookup tables: dedup/lookup only, never iterated —
	// emission order always comes from the parallel xxxOrder slices below,
	// so swapping the backing map never affects output order. Grounded on
	// the teacher's lang/machine/map.go Map, generalized from a dynamic
	// Value-keyed runtime map to the emitter's own name tables.
	artifacts *swiss.Map[string, *ast.ArtifactDecl]
	enums     *swiss.Map[string, *ast.EnumDecl]
	globals   *swiss.Map[string, *ast.GlobalDecl]
	funcs     *swiss.Map[string, *ast.FuncDecl]

	sigNames *swiss.Map[string, string] // canonical "(p,p)->r" shape -> assigned sig name
	sigOrder []sigEntry

	constIDs   *swiss.Map[string, int] // "kind|text" -> assigned index (name is "k"+index)
	constOrder []constEntry

	globalOrder []globalEntry

	importKeys  *swiss.Map[string, int] // "module.symbol" -> index into importOrder
	importOrder []importEntry

	typeDefs []string // rendered `types:` section lines, one TypeDef block each

	funcBodies []funcBody // finished function text blocks, in emission order

	lambdaSeq int

	// layouts maps an artifact/enum name to its computed field-offset
	// table (artifacts) so ldfld/stfld lowering can look up a field's
	// index by name.
	layouts *swiss.Map[string, *recordLayout]

	// importDecls indexes user extern declarations by their local
	// callable name (ImportDecl.Name); importDeclIndex records the
	// call-fid each has been assigned once resolved.
	importDecls     *swiss.Map[string, *ast.ImportDecl]
	importDeclIndex *swiss.Map[string, int]

	// funcIndexOf assigns every callable (import, top-level function,
	// artifact method, synthesized lambda/entry/init) a single shared
	// fid space, imports first. Precomputed for declared names before
	// any body is lowered; extended on demand for names synthesized
	// during lowering (lambdas, __script_entry, __global_init).
	funcIndexOf   *swiss.Map[string, int]
	nextFuncIndex int
}

type sigEntry struct {
	Name   string
	Params []string
	Return string
}

type constEntry struct {
	Name string
	Kind string
	Text string
}

type globalEntry struct {
	Name string
	Type string
	Init string
}

type importEntry struct {
	Name   string
	Module string
	Symbol string
	Sig    string
	Flags  uint32
}

type funcBody struct {
	Name     string
	Locals   int
	StackMax int
	Sig      string
	Lines    []string
}

func newState(program *ast.Program) *state {
	st := &state{
		program:         program,
		artifacts:       swiss.NewMap[string, *ast.ArtifactDecl](8),
		enums:           swiss.NewMap[string, *ast.EnumDecl](8),
		globals:         swiss.NewMap[string, *ast.GlobalDecl](8),
		funcs:           swiss.NewMap[string, *ast.FuncDecl](8),
		sigNames:        swiss.NewMap[string, string](8),
		constIDs:        swiss.NewMap[string, int](16),
		importKeys:      swiss.NewMap[string, int](8),
		layouts:         swiss.NewMap[string, *recordLayout](8),
		importDecls:     swiss.NewMap[string, *ast.ImportDecl](8),
		importDeclIndex: swiss.NewMap[string, int](8),
		funcIndexOf:     swiss.NewMap[string, int](8),
	}
	for _, d := range program.Decls {
		switch decl := d.(type) {
		case *ast.ArtifactDecl:
			st.artifacts.Put(decl.Name, decl)
		case *ast.EnumDecl:
			st.enums.Put(decl.Name, decl)
		case *ast.GlobalDecl:
			st.globals.Put(decl.Name, decl)
		case *ast.FuncDecl:
			st.funcs.Put(decl.Name, decl)
		case *ast.ImportDecl:
			st.importDecls.Put(decl.Name, decl)
		}
	}
	return st
}

// assignFuncIndices fixes the fid for every declared callable, imports
// occupying the low end of the space. Must run after every import
// (including dl companions) has been registered and before any
// function body is lowered, so call sites resolve to stable fids.
func (st *state) assignFuncIndices() {
	idx := len(st.importOrder)
	for _, d := range st.program.Decls {
		switch decl := d.(type) {
		case *ast.FuncDecl:
			st.funcIndexOf.Put(decl.Name, idx)
			idx++
		case *ast.ArtifactDecl:
			for _, m := range decl.Methods {
				st.funcIndexOf.Put(mangleMethod(decl.Name, m.Name), idx)
				idx++
			}
		}
	}
	st.nextFuncIndex = idx
}

// funcIndex returns name's fid, assigning the next free one on first
// reference (used for synthesized names: lambdas, __script_entry,
// __global_init).
func (st *state) funcIndex(name string) int {
	if i, ok := st.funcIndexOf.Get(name); ok {
		return i
	}
	i := st.nextFuncIndex
	st.nextFuncIndex++
	st.funcIndexOf.Put(name, i)
	return i
}

// importFuncIndex returns the fid assigned to the import named decl —
// the same shared call-fid space funcIndex addresses, since imports
// occupy indices [0, len(importOrder)).
func (st *state) importFuncIndex(importIdx int) int { return importIdx }

// --- name mangling, per §4.6 ---

func mangleMethod(artifact, method string) string { return artifact + "__" + method }
func mangleModuleFn(module, fn string) string      { return module + "__" + fn }

const (
	scriptEntryName = "__script_entry"
	globalInitName  = "__global_init"
)

// --- signature interning ---

// internSig registers (params, ret) under a stable, deterministic name
// and returns it. Repeated calls with an identical shape return the
// same name, so every function/lambda/import sharing a signature
// shares one `sigs:` entry.
func (st *state) internSig(params []string, ret string) string {
	shape := "(" + strings.Join(params, ",") + ")->" + ret
	if name, ok := st.sigNames.Get(shape); ok {
		return name
	}
	name := fmt.Sprintf("sig%d", len(st.sigOrder))
	st.sigNames.Put(shape, name)
	st.sigOrder = append(st.sigOrder, sigEntry{Name: name, Params: params, Return: ret})
	return name
}

// --- constant interning ---

// internConst dedups a constant by (kind, text) into the documentation
// consts: table and returns both its display name ("kN") and its
// position, the latter being the operand a const.string line actually
// needs at run time (the VM's string table is indexed by this
// position; every other scalar kind inlines its literal value directly
// and never looks the index up).
func (st *state) internConst(kind, text string) (name string, index int) {
	key := kind + "|" + text
	if idx, ok := st.constIDs.Get(key); ok {
		return fmt.Sprintf("k%d", idx), idx
	}
	idx := len(st.constOrder)
	st.constIDs.Put(key, idx)
	name = fmt.Sprintf("k%d", idx)
	st.constOrder = append(st.constOrder, constEntry{Name: name, Kind: kind, Text: text})
	return name, idx
}

// --- import registration, per §4.6 "Host-import synthesis" and §4.7 ---

// internImport registers one (module, symbol) import, deduping by key
// exactly as original_source's add_reserved_import does: a second
// registration for the same key is a no-op that still refreshes sig so
// the slot always reflects the latest signature requested for it.
func (st *state) internImport(module, symbol, sig string) int {
	key := module + "." + symbol
	if idx, ok := st.importKeys.Get(key); ok {
		st.importOrder[idx].Sig = sig
		return idx
	}
	idx := len(st.importOrder)
	st.importKeys.Put(key, idx)
	st.importOrder = append(st.importOrder, importEntry{
		Name: fmt.Sprintf("import_%d", idx), Module: module, Symbol: symbol, Sig: sig,
	})
	return idx
}

// synthesizeReserved emits the full fixed symbol set for a reserved
// host module, even if the program only references one symbol — per
// §4.6: "all module symbols listed in §6 are synthesized, even if only
// some are used."
func (st *state) synthesizeReserved(canonical string) {
	for _, sym := range hostimport.Symbols(canonical) {
		params := make([]string, len(sym.Params))
		for i, p := range sym.Params {
			params[i] = p.String()
		}
		sig := st.internSig(params, sym.Return.String())
		st.internImport(sym.Module, sym.Name, sig)
	}
}

// synthesizeDlCompanion adds the call$<N> dynamic-dispatch import for a
// user extern in a non-core.dl module whose ABI is fully scalar, per
// §4.6's last paragraph. N is the companion's position in one sequence
// shared by every synthesized companion, in extern declaration order,
// whatever its arity; the companion's shape is "(i64,
// original_params...)".
func (st *state) synthesizeDlCompanion(n int, params []string, ret string) {
	companionParams := append([]string{"i64"}, params...)
	sig := st.internSig(companionParams, ret)
	st.internImport(hostimport.CoreDL, fmt.Sprintf("call$%d", n), sig)
}

// renderModule assembles every section into the final SIR text, in the
// stable section order §4.6 names.
func (st *state) renderModule(entry string) string {
	var sb strings.Builder

	if len(st.typeDefs) > 0 {
		sb.WriteString("types:\n")
		for _, t := range st.typeDefs {
			sb.WriteString(t)
		}
	}

	if len(st.sigOrder) > 0 {
		sb.WriteString("sigs:\n")
		for _, s := range st.sigOrder {
			fmt.Fprintf(&sb, "  sig %s: (%s) -> %s\n", s.Name, strings.Join(s.Params, ", "), s.Return)
		}
	}

	if len(st.constOrder) > 0 {
		sb.WriteString("consts:\n")
		for _, c := range st.constOrder {
			fmt.Fprintf(&sb, "  const %s %s %s\n", c.Name, c.Kind, c.Text)
		}
	}

	if len(st.globalOrder) > 0 {
		sb.WriteString("globals:\n")
		for _, g := range st.globalOrder {
			if g.Init != "" {
				fmt.Fprintf(&sb, "  global %s %s init=%s\n", g.Name, g.Type, g.Init)
			} else {
				fmt.Fprintf(&sb, "  global %s %s\n", g.Name, g.Type)
			}
		}
	}

	if len(st.importOrder) > 0 {
		sb.WriteString("imports:\n")
		for _, imp := range st.importOrder {
			fmt.Fprintf(&sb, "  import %s %s %s sig=%s flags=%d\n", imp.Name, imp.Module, imp.Symbol, imp.Sig, imp.Flags)
		}
	}

	for _, fb := range st.funcBodies {
		// A func header's sig= is a bare numeric index into sigs: (unlike
		// imports:, whose sig= is the sig's name) — see irtext.parseFunction.
		fmt.Fprintf(&sb, "func %s locals=%d stack=%d sig=%d\n", fb.Name, fb.Locals, fb.StackMax, sigIndex(st, fb.Sig))
		for _, line := range fb.Lines {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("end\n")
	}

	fmt.Fprintf(&sb, "entry %s\n", entry)
	return sb.String()
}
