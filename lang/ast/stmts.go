package ast

import (
	"fmt"

	"github.com/JJLDonley/Simple-sub005/lang/position"
)

// Block is a sequence of statements, e.g. a function or branch body.
type Block struct {
	Start, End position.Pos
	Stmts      []Stmt
}

func (n *Block) stmt() {}
func (n *Block) Format(f fmt.State, verb rune) {
	format(f, verb, n, "block", map[string]int{"stmts": len(n.Stmts)})
}
func (n *Block) Span() (start, end position.Pos) { return n.Start, n.End }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}

// VarDeclStmt declares a local variable with an initializer.
type VarDeclStmt struct {
	Pos  position.Pos
	Name string
	Type *TypeRef
	Init Expr
}

func (n *VarDeclStmt) stmt() {}
func (n *VarDeclStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "var "+n.Name, nil)
}
func (n *VarDeclStmt) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *VarDeclStmt) Walk(v Visitor) {
	if n.Init != nil {
		Walk(v, n.Init)
	}
}

// AssignStmt assigns Right to Left (an Ident, IndexExpr or
// SelectorExpr).
type AssignStmt struct {
	Pos   position.Pos
	Left  Expr
	Right Expr
}

func (n *AssignStmt) stmt() {}
func (n *AssignStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "assign", nil) }
func (n *AssignStmt) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *AssignStmt) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}

// ExprStmt is an expression used as a statement (a call).
type ExprStmt struct {
	Expr Expr
}

func (n *ExprStmt) stmt() {}
func (n *ExprStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "exprstmt", nil) }
func (n *ExprStmt) Span() (start, end position.Pos) { return n.Expr.Span() }
func (n *ExprStmt) Walk(v Visitor)                  { Walk(v, n.Expr) }

// IfStmt is a conditional with an optional else branch.
type IfStmt struct {
	Pos  position.Pos
	Cond Expr
	Then *Block
	Else *Block // nil if absent; may itself contain a single IfStmt for else-if
}

func (n *IfStmt) stmt() {}
func (n *IfStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "if", nil) }
func (n *IfStmt) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *IfStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	if n.Else != nil {
		Walk(v, n.Else)
	}
}

// WhileStmt is a condition-first loop.
type WhileStmt struct {
	Pos  position.Pos
	Cond Expr
	Body *Block
}

func (n *WhileStmt) stmt() {}
func (n *WhileStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "while", nil) }
func (n *WhileStmt) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *WhileStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
}

// ForInStmt iterates Seq (an array or list-typed expression) binding
// each element to Name in turn, for C6's iterator lowering.
type ForInStmt struct {
	Pos  position.Pos
	Name string
	Seq  Expr
	Body *Block
}

func (n *ForInStmt) stmt() {}
func (n *ForInStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "for "+n.Name, nil) }
func (n *ForInStmt) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *ForInStmt) Walk(v Visitor) {
	Walk(v, n.Seq)
	Walk(v, n.Body)
}

// ReturnStmt returns from the enclosing function, optionally with a
// value. Per §4's "top-level script return" Non-goal, a ReturnStmt
// outside a FuncDecl body is a validation error.
type ReturnStmt struct {
	Pos   position.Pos
	Value Expr // nil for a void return
}

func (n *ReturnStmt) stmt() {}
func (n *ReturnStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "return", nil) }
func (n *ReturnStmt) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *ReturnStmt) Walk(v Visitor) {
	if n.Value != nil {
		Walk(v, n.Value)
	}
}

// BreakStmt/ContinueStmt exit or restart the nearest enclosing loop.
type BreakStmt struct{ Pos position.Pos }

func (n *BreakStmt) stmt()                          {}
func (n *BreakStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "break", nil) }
func (n *BreakStmt) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *BreakStmt) Walk(_ Visitor)                  {}

type ContinueStmt struct{ Pos position.Pos }

func (n *ContinueStmt) stmt()                          {}
func (n *ContinueStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "continue", nil) }
func (n *ContinueStmt) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *ContinueStmt) Walk(_ Visitor)                  {}
