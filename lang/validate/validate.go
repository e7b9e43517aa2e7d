// Package validate implements C5: structural and scoping checks over a
// lang/ast.Program that lang/emit relies on holding before it lowers a
// tree to SIR text. The rule set and error wording are grounded on
// original_source/Lang/src/validate/lang_modules.cpp's ValidateProgram;
// the position-prefixed, one-decl-at-a-time error style carries over
// lang/resolver's error-reporting convention (see DESIGN.md).
package validate

import (
	"fmt"

	"github.com/JJLDonley/Simple-sub005/lang/ast"
	"github.com/JJLDonley/Simple-sub005/lang/position"
)

// builtinTypes are the scalar keyword tokens every TypeRef is allowed
// to name without a declaration, per §6's canonical signature tokens.
var builtinTypes = map[string]bool{
	"void": true, "bool": true, "char": true,
	"i8": true, "i16": true, "i32": true, "i64": true,
	"u8": true, "u16": true, "u32": true, "u64": true,
	"f32": true, "f64": true, "string": true,
}

// context accumulates the names visible while checking a Program,
// mirroring original_source's ValidateContext.
type context struct {
	topLevel    map[string]bool
	artifacts   map[string]*ast.ArtifactDecl
	enums       map[string]*ast.EnumDecl
	enumMembers map[string]bool
}

// Validate checks program against every rule in spec.md §4.5. It
// returns the first violation found. The message is prefixed with
// "<line>:<col>: " when the offending node carries a known position; a
// violation inside a function or method is further prefixed with
// "in function '<name>': ".
func Validate(program *ast.Program) error {
	if len(program.Decls) == 0 && len(program.TopLevelStmts) == 0 {
		return fmt.Errorf("program has no declarations or top-level statements")
	}

	ctx := &context{
		topLevel:    map[string]bool{},
		artifacts:   map[string]*ast.ArtifactDecl{},
		enums:       map[string]*ast.EnumDecl{},
		enumMembers: map[string]bool{},
	}

	for _, d := range program.Decls {
		name := d.DeclName()
		if name == "" {
			continue
		}
		if ctx.topLevel[name] {
			return fmt.Errorf("duplicate top-level declaration: %s", name)
		}
		ctx.topLevel[name] = true
		switch decl := d.(type) {
		case *ast.ArtifactDecl:
			ctx.artifacts[name] = decl
		case *ast.EnumDecl:
			ctx.enums[name] = decl
			if err := checkEnum(decl, ctx); err != nil {
				return err
			}
		}
	}

	for _, s := range program.TopLevelStmts {
		if err := checkNoReturn(s); err != nil {
			return err
		}
	}

	for _, d := range program.Decls {
		switch decl := d.(type) {
		case *ast.ImportDecl:
			// Import paths are resolved by lang/hostimport at emission time;
			// nothing to structurally validate here beyond its presence.
		case *ast.ArtifactDecl:
			if err := checkArtifact(decl, ctx); err != nil {
				return err
			}
		case *ast.FuncDecl:
			if err := checkFunc(decl, nil, ctx); err != nil {
				return err
			}
		case *ast.GlobalDecl:
			if decl.Type != nil {
				if decl.Type.Callback {
					return posErr(decl.Pos, "callback is only valid as a parameter type")
				}
				if err := checkTypeRef(decl.Type, ctx, nil); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func checkEnum(decl *ast.EnumDecl, ctx *context) error {
	seen := map[string]bool{}
	for _, m := range decl.Members {
		if !m.Explicit {
			return posErr(m.Pos, "enum member requires explicit value: "+m.Name)
		}
		if seen[m.Name] {
			return posErr(m.Pos, "duplicate enum member: "+m.Name)
		}
		seen[m.Name] = true
		ctx.enumMembers[m.Name] = true
	}
	return nil
}

func checkArtifact(decl *ast.ArtifactDecl, ctx *context) error {
	generics, err := collectTypeParams(decl.Generic)
	if err != nil {
		return posErr(decl.Pos, err.Error())
	}
	names := map[string]bool{}
	for _, f := range decl.Fields {
		if names[f.Name] {
			return posErr(f.Pos, "duplicate artifact member: "+f.Name)
		}
		names[f.Name] = true
		if f.Type.Callback {
			return posErr(f.Pos, "callback is only valid as a parameter type")
		}
		if err := checkTypeRef(f.Type, ctx, generics); err != nil {
			return err
		}
	}
	for _, m := range decl.Methods {
		if names[m.Name] {
			return posErr(m.Pos, "duplicate artifact member: "+m.Name)
		}
		names[m.Name] = true
	}
	for _, m := range decl.Methods {
		merged, err := collectTypeParamsMerged(decl.Generic, nil)
		if err != nil {
			return posErr(m.Pos, err.Error())
		}
		if err := checkFunc(m, merged, ctx); err != nil {
			return wrapf(err, "in function '%s.%s'", decl.Name, m.Name)
		}
	}
	return nil
}

func checkFunc(fn *ast.FuncDecl, typeParams map[string]bool, ctx *context) error {
	if typeParams == nil {
		var err error
		typeParams, err = collectTypeParams(nil)
		if err != nil {
			return posErr(fn.Pos, err.Error())
		}
	}
	if fn.Return != nil {
		if fn.Return.Callback {
			return posErr(fn.Pos, "callback is only valid as a parameter type")
		}
		if err := checkTypeRef(fn.Return, ctx, typeParams); err != nil {
			return wrapf(err, "in function '%s'", fn.Name)
		}
	}
	seen := map[string]bool{}
	for _, p := range fn.Params {
		if seen[p.Name] {
			return posErr(p.Pos, "duplicate parameter name: "+p.Name)
		}
		seen[p.Name] = true
		if err := checkTypeRef(p.Type, ctx, typeParams); err != nil {
			return wrapf(err, "in function '%s'", fn.Name)
		}
	}
	if fn.Body != nil {
		if err := checkBody(fn.Body, ctx, typeParams); err != nil {
			return wrapf(err, "in function '%s'", fn.Name)
		}
	}
	return nil
}

// checkBody walks statement/expression nodes looking for TypeRefs and
// LambdaExprs that need the same checks a declaration-level type gets:
// a lambda's own params/return, and any local var-decl's type.
func checkBody(b *ast.Block, ctx *context, typeParams map[string]bool) error {
	var err error
	var visit ast.VisitorFunc
	visit = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if err != nil || dir != ast.VisitEnter {
			return nil
		}
		switch node := n.(type) {
		case *ast.VarDeclStmt:
			if node.Type != nil {
				if node.Type.Callback {
					err = posErr(node.Pos, "callback is only valid as a parameter type")
					return nil
				}
				err = checkTypeRef(node.Type, ctx, typeParams)
			}
		case *ast.LambdaExpr:
			seen := map[string]bool{}
			for _, p := range node.Params {
				if seen[p.Name] {
					err = posErr(p.Pos, "duplicate parameter name: "+p.Name)
					return nil
				}
				seen[p.Name] = true
				if e := checkTypeRef(p.Type, ctx, typeParams); e != nil {
					err = e
					return nil
				}
			}
			if node.Return != nil && node.Return.Callback {
				err = posErr(node.Pos, "callback is only valid as a parameter type")
			}
		}
		if err != nil {
			return nil
		}
		return visit
	}
	ast.Walk(visit, b)
	return err
}

func checkNoReturn(s ast.Stmt) error {
	var err error
	var visit ast.VisitorFunc
	visit = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if err != nil || dir != ast.VisitEnter {
			return nil
		}
		if ret, ok := n.(*ast.ReturnStmt); ok {
			err = posErr(ret.Pos, "top-level return is not allowed")
			return nil
		}
		return visit
	}
	ast.Walk(visit, s)
	return err
}

// checkTypeRef verifies t names a known scalar, a declared artifact or
// enum, or (recursively) a valid array/list of one, and that a generic
// name is satisfied by typeParams.
func checkTypeRef(t *ast.TypeRef, ctx *context, typeParams map[string]bool) error {
	if t == nil {
		return nil
	}
	if t.Array || t.List {
		return checkTypeRef(t.Elem, ctx, typeParams)
	}
	if builtinTypes[t.Name] {
		return nil
	}
	if ctx.artifacts[t.Name] != nil || ctx.enums[t.Name] != nil {
		return nil
	}
	if typeParams[t.Name] {
		return nil
	}
	return posErr(t.Pos, "unknown type: "+t.Name)
}

func collectTypeParams(generics []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, g := range generics {
		if out[g] {
			return nil, fmt.Errorf("duplicate generic parameter: %s", g)
		}
		out[g] = true
	}
	return out, nil
}

func collectTypeParamsMerged(a, b []string) (map[string]bool, error) {
	out, err := collectTypeParams(a)
	if err != nil {
		return nil, err
	}
	for _, g := range b {
		if out[g] {
			return nil, fmt.Errorf("duplicate generic parameter: %s", g)
		}
		out[g] = true
	}
	return out, nil
}

func posErr(p position.Pos, msg string) error {
	return fmt.Errorf("%s", position.Prefix(p, msg))
}

func wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
