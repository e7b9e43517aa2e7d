package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JJLDonley/Simple-sub005/lang/ast"
	"github.com/JJLDonley/Simple-sub005/lang/irtext"
)

func intLit(v string) *ast.BasicLit { return &ast.BasicLit{Kind: ast.LitInt, Raw: v} }

func typ(name string) *ast.TypeRef { return &ast.TypeRef{Name: name} }

// TestEmitSimpleReturn covers S1: `main() -> i32 { return 41 + 1 }`.
func TestEmitSimpleReturn(t *testing.T) {
	program := &ast.Program{
		Name: "s1",
		Decls: []ast.Decl{
			&ast.FuncDecl{
				Name:   "main",
				Return: typ("i32"),
				Body: &ast.Block{Stmts: []ast.Stmt{
					&ast.ReturnStmt{Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: intLit("41"), Right: intLit("1")}},
				}},
			},
		},
	}

	text, err := Emit(program)
	require.NoError(t, err)
	require.Contains(t, text, "const.i32 41")
	require.Contains(t, text, "const.i32 1")
	require.Contains(t, text, "add.i32")
	require.Contains(t, text, "ret 1")
	require.Contains(t, text, "entry main")

	mod, err := irtext.Parse(text)
	require.NoError(t, err)
	require.Equal(t, "main", mod.Entry)
}

// TestEmitArtifactMethod covers S3's layout/mangling shape:
// `artifact P { x: i32, y: i32 }` with a distSq method.
func TestEmitArtifactMethod(t *testing.T) {
	artifact := &ast.ArtifactDecl{
		Name: "P",
		Fields: []*ast.Field{
			{Name: "x", Type: typ("i32")},
			{Name: "y", Type: typ("i32")},
		},
	}
	method := &ast.FuncDecl{
		Name:   "distSq",
		Return: typ("i32"),
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.BinaryExpr{
				Op: ast.OpAdd,
				Left: &ast.BinaryExpr{Op: ast.OpMul,
					Left:  &ast.SelectorExpr{X: &ast.Ident{Name: "self"}, Sel: "x"},
					Right: &ast.SelectorExpr{X: &ast.Ident{Name: "self"}, Sel: "x"},
				},
				Right: &ast.BinaryExpr{Op: ast.OpMul,
					Left:  &ast.SelectorExpr{X: &ast.Ident{Name: "self"}, Sel: "y"},
					Right: &ast.SelectorExpr{X: &ast.Ident{Name: "self"}, Sel: "y"},
				},
			}},
		}},
	}
	artifact.Methods = []*ast.FuncDecl{method}

	program := &ast.Program{Name: "s3", Decls: []ast.Decl{artifact}}

	text, err := Emit(program)
	require.NoError(t, err)
	require.Contains(t, text, "type P size=8 kind=artifact")
	require.Contains(t, text, "field x i32 offset=0")
	require.Contains(t, text, "field y i32 offset=4")
	require.Contains(t, text, "func P__distSq")
	require.Contains(t, text, "ldfld")

	_, err = irtext.Parse(text)
	require.NoError(t, err)
}

// TestEmitListCapacityAndPush covers S4's shape: allocating a
// list<i32>, pushing elements.
func TestEmitListCapacityAndPush(t *testing.T) {
	program := &ast.Program{
		Name: "s4",
		Decls: []ast.Decl{
			&ast.FuncDecl{
				Name:   "main",
				Return: typ("i32"),
				Body: &ast.Block{Stmts: []ast.Stmt{
					&ast.VarDeclStmt{
						Name: "xs",
						Type: &ast.TypeRef{List: true, Elem: typ("i32")},
						Init: &ast.NewListExpr{Type: typ("i32")},
					},
					&ast.ReturnStmt{Value: intLit("0")},
				}},
			},
		},
	}

	text, err := Emit(program)
	require.NoError(t, err)
	require.Contains(t, text, "list.new")

	_, err = irtext.Parse(text)
	require.NoError(t, err)
}

// TestEmitListPushPopLowersToDedicatedOpcodes covers S4's method-call
// surface syntax for list builtins: xs.push(v)/xs.pop() must lower to
// list.push.i32/list.pop.i32, not a call/call.indirect through some
// artifact method table (list<T> declares no methods of its own).
func TestEmitListPushPopLowersToDedicatedOpcodes(t *testing.T) {
	program := &ast.Program{
		Name: "s4b",
		Decls: []ast.Decl{
			&ast.FuncDecl{
				Name:   "main",
				Return: typ("i32"),
				Body: &ast.Block{Stmts: []ast.Stmt{
					&ast.VarDeclStmt{
						Name: "xs",
						Type: &ast.TypeRef{List: true, Elem: typ("i32")},
						Init: &ast.NewListExpr{Type: typ("i32")},
					},
					&ast.ExprStmt{Expr: &ast.CallExpr{
						Fun:  &ast.SelectorExpr{X: &ast.Ident{Name: "xs"}, Sel: "push"},
						Args: []ast.Expr{intLit("5")},
					}},
					&ast.ReturnStmt{Value: &ast.CallExpr{
						Fun: &ast.SelectorExpr{X: &ast.Ident{Name: "xs"}, Sel: "pop"},
					}},
				}},
			},
		},
	}

	text, err := Emit(program)
	require.NoError(t, err)
	require.Contains(t, text, "list.push.i32")
	require.Contains(t, text, "list.pop.i32")

	_, err = irtext.Parse(text)
	require.NoError(t, err)
}

// TestEmitLogCallCountsFormatPlaceholders covers the core.log
// format-string convenience: a one-argument log(fmt) call site, with
// fmt a string-literal constant, must synthesize the "{}" placeholder
// count as the catalog's second (string, i32) argument.
func TestEmitLogCallCountsFormatPlaceholders(t *testing.T) {
	program := &ast.Program{
		Name: "logfmt",
		Decls: []ast.Decl{
			&ast.ImportDecl{Name: "log", Module: "core.log", Symbol: "log"},
			&ast.FuncDecl{
				Name:   "main",
				Return: typ("i32"),
				Body: &ast.Block{Stmts: []ast.Stmt{
					&ast.ExprStmt{Expr: &ast.CallExpr{
						Fun:  &ast.Ident{Name: "log"},
						Args: []ast.Expr{&ast.BasicLit{Kind: ast.LitString, Raw: "x={} y={}"}},
					}},
					&ast.ReturnStmt{Value: intLit("0")},
				}},
			},
		},
	}

	text, err := Emit(program)
	require.NoError(t, err)
	require.Contains(t, text, "const.i32 2")

	_, err = irtext.Parse(text)
	require.NoError(t, err)
}

// TestEmitLogCallRejectsUnmatchedBrace covers
// countFormatPlaceholders's "unmatched '}'" diagnostic surfacing
// through the emitter when lowering a log(fmt) call site.
func TestEmitLogCallRejectsUnmatchedBrace(t *testing.T) {
	program := &ast.Program{
		Name: "logfmtbad",
		Decls: []ast.Decl{
			&ast.ImportDecl{Name: "log", Module: "core.log", Symbol: "log"},
			&ast.FuncDecl{
				Name:   "main",
				Return: typ("i32"),
				Body: &ast.Block{Stmts: []ast.Stmt{
					&ast.ExprStmt{Expr: &ast.CallExpr{
						Fun:  &ast.Ident{Name: "log"},
						Args: []ast.Expr{&ast.BasicLit{Kind: ast.LitString, Raw: "oops }"}},
					}},
					&ast.ReturnStmt{Value: intLit("0")},
				}},
			},
		},
	}

	_, err := Emit(program)
	require.Error(t, err)
}

// TestEmitEntrySelectionPrefersScriptEntry covers §4.6's entry
// selection rule when top-level statements exist.
func TestEmitEntrySelectionPrefersScriptEntry(t *testing.T) {
	program := &ast.Program{
		Name: "script",
		Decls: []ast.Decl{
			&ast.FuncDecl{Name: "helper", Return: typ("i32"), Body: &ast.Block{Stmts: []ast.Stmt{
				&ast.ReturnStmt{Value: intLit("1")},
			}}},
		},
		TopLevelStmts: []ast.Stmt{
			&ast.ExprStmt{Expr: &ast.CallExpr{Fun: &ast.Ident{Name: "helper"}}},
		},
	}

	text, err := Emit(program)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(strings.TrimRight(text, "\n"), "entry __script_entry"))

	mod, err := irtext.Parse(text)
	require.NoError(t, err)
	require.Equal(t, "__script_entry", mod.Entry)
}

// TestEmitRejectsEmptyProgram covers the "program has no functions or
// top-level statements" diagnostic.
func TestEmitRejectsEmptyProgram(t *testing.T) {
	_, err := Emit(&ast.Program{Name: "empty"})
	require.Error(t, err)
}

// TestEmitLambdaCapture covers S5's shape: a lambda capturing an
// enclosing local, lifted to a synthesized top-level function.
func TestEmitLambdaCapture(t *testing.T) {
	program := &ast.Program{
		Name: "s5",
		Decls: []ast.Decl{
			&ast.FuncDecl{
				Name:   "main",
				Return: typ("i32"),
				Body: &ast.Block{Stmts: []ast.Stmt{
					&ast.VarDeclStmt{Name: "n", Type: typ("i32"), Init: intLit("7")},
					&ast.VarDeclStmt{
						Name: "f",
						Type: &ast.TypeRef{Callback: true, CallbackRet: typ("i32")},
						Init: &ast.LambdaExpr{Return: typ("i32"), Body: &ast.Block{Stmts: []ast.Stmt{
							&ast.ReturnStmt{Value: &ast.Ident{Name: "n"}},
						}}},
					},
					&ast.ReturnStmt{Value: intLit("0")},
				}},
			},
		},
	}

	text, err := Emit(program)
	require.NoError(t, err)
	require.Contains(t, text, "newclosure")
	require.Contains(t, text, "func __lambda_1")

	_, err = irtext.Parse(text)
	require.NoError(t, err)
}
