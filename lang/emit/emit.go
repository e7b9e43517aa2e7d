package emit

import (
	"fmt"

	"github.com/JJLDonley/Simple-sub005/lang/ast"
	"github.com/JJLDonley/Simple-sub005/lang/bytecode"
	"github.com/JJLDonley/Simple-sub005/lang/hostimport"
)

// Emit lowers a validated program to its textual SIR module (§4.6).
// Callers are expected to have already run lang/validate.Validate —
// emission assumes a structurally sound tree and does not repeat those
// checks.
func Emit(program *ast.Program) (string, error) {
	if len(program.Decls) == 0 && len(program.TopLevelStmts) == 0 {
		return "", errf("program has no functions or top-level statements")
	}

	st := newState(program)

	if err := st.resolveImports(); err != nil {
		return "", err
	}
	st.assignFuncIndices()

	if err := st.renderTypeDefs(); err != nil {
		return "", err
	}

	for _, d := range program.Decls {
		switch decl := d.(type) {
		case *ast.GlobalDecl:
			if err := st.registerGlobal(decl); err != nil {
				return "", err
			}
		case *ast.FuncDecl:
			if _, err := st.lowerFunction(decl.Name, decl, nil); err != nil {
				return "", err
			}
		case *ast.ArtifactDecl:
			for _, m := range decl.Methods {
				if _, err := st.lowerFunction(mangleMethod(decl.Name, m.Name), m, decl); err != nil {
					return "", err
				}
			}
		}
	}

	if len(st.globalOrder) > 0 {
		if err := st.lowerGlobalInit(); err != nil {
			return "", err
		}
	}

	if len(program.TopLevelStmts) > 0 {
		if err := st.lowerScriptEntry(); err != nil {
			return "", err
		}
	}

	entry, err := st.chooseEntry()
	if err != nil {
		return "", err
	}
	return st.renderModule(entry), nil
}

// resolveImports registers every ImportDecl's resolved slot: reserved
// modules get their full fixed symbol set synthesized once per
// canonical module (§4.6's "host-import synthesis"); everything else
// registers as a plain foreign import, gaining a core.dl call$<N>
// companion when its ABI is fully scalar (§4.6's last paragraph).
func (st *state) resolveImports() error {
	seenReserved := map[string]bool{}
	companionSeq := 0

	for _, d := range st.program.Decls {
		decl, ok := d.(*ast.ImportDecl)
		if !ok {
			continue
		}
		canonical, isReserved := hostimport.Canonicalize(decl.Module)
		if isReserved {
			if !seenReserved[canonical] {
				st.synthesizeReserved(canonical)
				seenReserved[canonical] = true
			}
			sym, ok := hostimport.Lookup(canonical, decl.Symbol)
			if !ok {
				return errf("unsupported import path: %s.%s", canonical, decl.Symbol)
			}
			idx, ok := st.importKeys.Get(sym.FullName())
			if !ok {
				return errf("unsupported import path: %s", decl.Module)
			}
			st.importDeclIndex.Put(decl.Name, idx)
			continue
		}

		params, ret, ok := scalarSignature(decl.Sig)
		if !ok {
			return errf("extern '%s.%s' has unsupported ABI type", decl.Module, decl.Symbol)
		}
		paramTokens := make([]string, len(params))
		for i, p := range params {
			paramTokens[i] = p.String()
		}
		sig := st.internSig(paramTokens, ret.String())
		idx := st.internImport(decl.Module, decl.Symbol, sig)
		st.importDeclIndex.Put(decl.Name, idx)

		if allScalarABI(params) && hostimport.IsScalarABI(ret) {
			companionParams := make([]string, len(params))
			copy(companionParams, paramTokens)
			st.synthesizeDlCompanion(companionSeq, companionParams, ret.String())
			companionSeq++
		}
	}
	return nil
}

// scalarSignature renders an extern's callback-shaped Sig into
// bytecode.Type params/return, failing if any type token is not a
// recognized scalar/ref ABI shape.
func scalarSignature(sig *ast.TypeRef) ([]bytecode.Type, bytecode.Type, bool) {
	if sig == nil {
		return nil, bytecode.TypeVoid, true
	}
	params := make([]bytecode.Type, len(sig.Params))
	for i, p := range sig.Params {
		t, ok := bytecode.ParseType(typeRefToken(p))
		if !ok {
			return nil, 0, false
		}
		params[i] = t
	}
	ret := bytecode.TypeVoid
	if sig.CallbackRet != nil {
		t, ok := bytecode.ParseType(typeRefToken(sig.CallbackRet))
		if !ok {
			return nil, 0, false
		}
		ret = t
	}
	return params, ret, true
}

func allScalarABI(params []bytecode.Type) bool {
	for _, p := range params {
		if !hostimport.IsScalarABI(p) {
			return false
		}
	}
	return true
}

// registerGlobal assigns name's globals: slot and, when it has an
// initializer, records the interned constant it must resolve to — the
// actual store happens in __global_init.
func (st *state) registerGlobal(decl *ast.GlobalDecl) error {
	idx := st.globalIndex(decl.Name)
	if decl.Init == nil {
		return nil
	}
	lit, ok := decl.Init.(*ast.BasicLit)
	if !ok {
		return errf("global '%s' initializer is not a representable constant", decl.Name)
	}
	name, _, _ := st.internLit(lit, typeRefToken(decl.Type))
	st.globalOrder[idx].Init = name
	return nil
}

// lowerGlobalInit synthesizes __global_init: for every global with an
// initializer, push its constant and store it, in declaration order.
func (st *state) lowerGlobalInit() error {
	c := &funcCtx{st: st, name: globalInitName, locals: map[string]int{}, localTypes: map[string]string{}}
	for _, d := range st.program.Decls {
		decl, ok := d.(*ast.GlobalDecl)
		if !ok || decl.Init == nil {
			continue
		}
		idx := st.globalIndex(decl.Name)
		if _, err := c.lowerExpr(decl.Init, typeRefToken(decl.Type)); err != nil {
			return err
		}
		c.emit(fmt.Sprintf("stglob %d", idx))
		c.popStack(1)
	}
	c.emit("ret 0")
	sig := st.internSig(nil, "void")
	st.funcBodies = append(st.funcBodies, funcBody{
		Name: globalInitName, Locals: c.nextLocal, StackMax: c.max, Sig: sig, Lines: c.lines,
	})
	st.funcIndex(globalInitName)
	return nil
}

// lowerScriptEntry synthesizes __script_entry from the program's
// top-level statements.
func (st *state) lowerScriptEntry() error {
	c := &funcCtx{st: st, name: scriptEntryName, locals: map[string]int{}, localTypes: map[string]string{}}
	body := &ast.Block{Stmts: st.program.TopLevelStmts}
	if err := c.lowerBlock(body); err != nil {
		return err
	}
	c.emit("ret 0")
	sig := st.internSig(nil, "void")
	st.funcBodies = append(st.funcBodies, funcBody{
		Name: scriptEntryName, Locals: c.nextLocal, StackMax: c.max, Sig: sig, Lines: c.lines,
	})
	st.funcIndex(scriptEntryName)
	return nil
}

// chooseEntry implements §4.6's "Entry selection": __script_entry if
// top-level statements exist; else a function named main; else the
// first function in declaration order.
func (st *state) chooseEntry() (string, error) {
	if len(st.program.TopLevelStmts) > 0 {
		return scriptEntryName, nil
	}
	if _, ok := st.funcs.Get("main"); ok {
		return "main", nil
	}
	for _, d := range st.program.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok {
			return fn.Name, nil
		}
	}
	return "", errf("program has no functions or top-level statements")
}
