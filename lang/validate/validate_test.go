package validate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JJLDonley/Simple-sub005/lang/ast"
	"github.com/JJLDonley/Simple-sub005/lang/validate"
)

func i32() *ast.TypeRef { return &ast.TypeRef{Name: "i32"} }

func TestValidateSimpleProgramOK(t *testing.T) {
	prog := &ast.Program{
		Decls: []ast.Decl{
			&ast.FuncDecl{
				Name:   "main",
				Return: i32(),
				Body: &ast.Block{Stmts: []ast.Stmt{
					&ast.ReturnStmt{Value: &ast.BasicLit{Kind: ast.LitInt, Raw: "42"}},
				}},
			},
		},
	}
	require.NoError(t, validate.Validate(prog))
}

func TestValidateRejectsEmptyProgram(t *testing.T) {
	require.Error(t, validate.Validate(&ast.Program{}))
}

func TestValidateRejectsDuplicateTopLevel(t *testing.T) {
	prog := &ast.Program{
		Decls: []ast.Decl{
			&ast.FuncDecl{Name: "f", Body: &ast.Block{}},
			&ast.GlobalDecl{Name: "f", Type: i32()},
		},
	}
	err := validate.Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate top-level declaration")
}

func TestValidateRejectsImplicitEnumValue(t *testing.T) {
	prog := &ast.Program{
		Decls: []ast.Decl{
			&ast.EnumDecl{Name: "Color", Members: []*ast.EnumMember{
				{Name: "Red", Explicit: false},
			}},
		},
	}
	err := validate.Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires explicit value")
}

func TestValidateRejectsDuplicateEnumMember(t *testing.T) {
	prog := &ast.Program{
		Decls: []ast.Decl{
			&ast.EnumDecl{Name: "Color", Members: []*ast.EnumMember{
				{Name: "Red", Value: 0, Explicit: true},
				{Name: "Red", Value: 1, Explicit: true},
			}},
		},
	}
	err := validate.Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate enum member")
}

func TestValidateRejectsDuplicateArtifactField(t *testing.T) {
	prog := &ast.Program{
		Decls: []ast.Decl{
			&ast.ArtifactDecl{Name: "Point", Fields: []*ast.Field{
				{Name: "x", Type: i32()},
				{Name: "x", Type: i32()},
			}},
		},
	}
	err := validate.Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate artifact member")
}

func TestValidateRejectsCallbackField(t *testing.T) {
	prog := &ast.Program{
		Decls: []ast.Decl{
			&ast.ArtifactDecl{Name: "Handler", Fields: []*ast.Field{
				{Name: "cb", Type: &ast.TypeRef{Name: "proc", Callback: true}},
			}},
		},
	}
	err := validate.Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "callback is only valid as a parameter type")
}

func TestValidateRejectsUnknownType(t *testing.T) {
	prog := &ast.Program{
		Decls: []ast.Decl{
			&ast.GlobalDecl{Name: "g", Type: &ast.TypeRef{Name: "Nope"}},
		},
	}
	err := validate.Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown type")
}

func TestValidateRejectsTopLevelReturn(t *testing.T) {
	prog := &ast.Program{
		TopLevelStmts: []ast.Stmt{
			&ast.ReturnStmt{},
		},
	}
	err := validate.Validate(prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "top-level return is not allowed")
}

func TestValidateAcceptsArtifactReferencedByField(t *testing.T) {
	prog := &ast.Program{
		Decls: []ast.Decl{
			&ast.ArtifactDecl{Name: "Point", Fields: []*ast.Field{
				{Name: "x", Type: i32()},
				{Name: "y", Type: i32()},
			}},
			&ast.ArtifactDecl{Name: "Line", Fields: []*ast.Field{
				{Name: "a", Type: &ast.TypeRef{Name: "Point"}},
				{Name: "b", Type: &ast.TypeRef{Name: "Point"}},
			}},
		},
	}
	require.NoError(t, validate.Validate(prog))
}
