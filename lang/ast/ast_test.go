package ast_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JJLDonley/Simple-sub005/lang/ast"
)

func TestArtifactDeclFormatSortsCountKeys(t *testing.T) {
	decl := &ast.ArtifactDecl{
		Name:    "P",
		Fields:  []*ast.Field{{Name: "x", Type: &ast.TypeRef{Name: "i32"}}},
		Methods: []*ast.FuncDecl{{Name: "m"}},
	}
	out := fmt.Sprintf("%#v", decl)
	require.Equal(t, "artifact P {fields=1, methods=1}", out)
}

func TestProgramWalkVisitsDeclsThenTopLevelStmts(t *testing.T) {
	var seen []string
	program := &ast.Program{
		Decls: []ast.Decl{
			&ast.FuncDecl{Name: "f", Body: &ast.Block{}},
		},
		TopLevelStmts: []ast.Stmt{
			&ast.ExprStmt{Expr: &ast.Ident{Name: "f"}},
		},
	}

	var visit ast.VisitorFunc
	visit = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir == ast.VisitEnter {
			seen = append(seen, fmt.Sprintf("%T", n))
		}
		return visit
	}
	ast.Walk(visit, program)

	require.Equal(t, []string{
		"*ast.Program", "*ast.FuncDecl", "*ast.Block",
		"*ast.ExprStmt", "*ast.Ident",
	}, seen)
}
