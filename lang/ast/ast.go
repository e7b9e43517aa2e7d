// Package ast defines the minimal abstract syntax tree C5 (the
// validator) and C6 (the SIR emitter) operate on: a Program made of
// top-level declarations (artifacts, enums, functions, globals,
// imports), each function body a small statement/expression tree.
// This is a deliberate generalization down from the teacher's full
// surface-language grammar (lang/ast originally modeled a complete
// Starlark-like scripting language): SPEC_FULL.md's source language is
// a declaration/type tree, not a general-purpose scripting language,
// so only the node shapes validate/emit actually need are kept, ported
// to lang/position's compact Pos instead of the teacher's token
// package (no lexer exists in this pipeline; positions are assigned by
// whatever builds the tree, e.g. a test or a future front end).
package ast

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/JJLDonley/Simple-sub005/lang/position"
)

// Node is any node in the tree. Every Node implements Format the way
// the teacher's printer.go did, for debugging and test diffs.
type Node interface {
	fmt.Formatter
	Span() (start, end position.Pos)
	Walk(v Visitor)
}

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmt()
}

// Decl is a top-level declaration.
type Decl interface {
	Node
	decl()
	DeclName() string
}

// Program is the root of the tree: every top-level declaration in
// compilation order, matching SPEC_FULL.md §4's Program/Decl model.
type Program struct {
	Name          string
	Decls         []Decl
	TopLevelStmts []Stmt // statements outside any declaration; entry becomes __script_entry when non-empty
}

func (n *Program) Format(f fmt.State, verb rune) {
	format(f, verb, n, "program "+n.Name, map[string]int{"decls": len(n.Decls)})
}
func (n *Program) Span() (start, end position.Pos) {
	if len(n.Decls) == 0 {
		return position.NoPos, position.NoPos
	}
	start, _ = n.Decls[0].Span()
	_, end = n.Decls[len(n.Decls)-1].Span()
	return start, end
}
func (n *Program) Walk(v Visitor) {
	for _, d := range n.Decls {
		Walk(v, d)
	}
	for _, s := range n.TopLevelStmts {
		Walk(v, s)
	}
}

func format(f fmt.State, verb rune, n Node, label string, counts map[string]int) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(%T)", verb, n)
		return
	}
	label = strings.ReplaceAll(label, "\n", "⏎")
	if f.Flag('#') && len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		var sb strings.Builder
		sb.WriteString(label)
		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%d", k, counts[k])
		}
		sb.WriteString("}")
		label = sb.String()
	}
	fmt.Fprint(f, label)
}
