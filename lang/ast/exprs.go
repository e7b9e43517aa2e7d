package ast

import (
	"fmt"

	"github.com/JJLDonley/Simple-sub005/lang/position"
)

// Ident references a local, parameter, global, or declaration name.
type Ident struct {
	Pos  position.Pos
	Name string
}

func (n *Ident) expr() {}
func (n *Ident) Format(f fmt.State, verb rune)   { format(f, verb, n, "ident "+n.Name, nil) }
func (n *Ident) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *Ident) Walk(_ Visitor)                  {}

// LitKind distinguishes the literal kinds §4 names: integer, float,
// bool, string, char and null.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitBool
	LitString
	LitChar
	LitNull
)

// BasicLit is a literal value as it appears in source: its raw text
// plus the parsed Go value (int64, float64, bool, string or rune),
// matching the literal-parsing rules supplemented from
// original_source/Lang/src/sir/lang_literals.cpp.
type BasicLit struct {
	Pos  position.Pos
	Kind LitKind
	Raw  string
	Val  interface{}
}

func (n *BasicLit) expr() {}
func (n *BasicLit) Format(f fmt.State, verb rune)   { format(f, verb, n, "lit "+n.Raw, nil) }
func (n *BasicLit) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *BasicLit) Walk(_ Visitor)                  {}

// BinaryOp enumerates the operators a BinaryExpr can carry.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLogAnd
	OpLogOr
)

// BinaryExpr is a binary operator expression.
type BinaryExpr struct {
	Pos         position.Pos
	Op          BinaryOp
	Left, Right Expr
}

func (n *BinaryExpr) expr()                          {}
func (n *BinaryExpr) Format(f fmt.State, verb rune)   { format(f, verb, n, "binop", nil) }
func (n *BinaryExpr) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *BinaryExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}

// UnaryOp enumerates the operators a UnaryExpr can carry.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
	OpBitNot
)

// UnaryExpr is a unary operator expression.
type UnaryExpr struct {
	Pos position.Pos
	Op  UnaryOp
	X   Expr
}

func (n *UnaryExpr) expr()                          {}
func (n *UnaryExpr) Format(f fmt.State, verb rune)   { format(f, verb, n, "unop", nil) }
func (n *UnaryExpr) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *UnaryExpr) Walk(v Visitor)                  { Walk(v, n.X) }

// CallExpr invokes Fun (an Ident naming a function/method/callback
// parameter) with Args.
type CallExpr struct {
	Pos  position.Pos
	Fun  Expr
	Args []Expr
}

func (n *CallExpr) expr() {}
func (n *CallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "call", map[string]int{"args": len(n.Args)})
}
func (n *CallExpr) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Fun)
	for _, a := range n.Args {
		Walk(v, a)
	}
}

// IndexExpr is array/list element access: X[Index].
type IndexExpr struct {
	Pos        position.Pos
	X          Expr
	Index      Expr
}

func (n *IndexExpr) expr()                          {}
func (n *IndexExpr) Format(f fmt.State, verb rune)   { format(f, verb, n, "index", nil) }
func (n *IndexExpr) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *IndexExpr) Walk(v Visitor) {
	Walk(v, n.X)
	Walk(v, n.Index)
}

// SelectorExpr is a field or method reference: X.Sel.
type SelectorExpr struct {
	Pos position.Pos
	X   Expr
	Sel string
}

func (n *SelectorExpr) expr() {}
func (n *SelectorExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "selector ."+n.Sel, nil)
}
func (n *SelectorExpr) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *SelectorExpr) Walk(v Visitor)                  { Walk(v, n.X) }

// NewArrayExpr constructs a fixed-length array, optionally with
// element literal expressions (§4's array literal lowering,
// supplemented from lang_arrays.cpp).
type NewArrayExpr struct {
	Pos    position.Pos
	Type   *TypeRef
	Length Expr
	Elems  []Expr // literal elements, if given; nil for a bare new T[n]
}

func (n *NewArrayExpr) expr()                          {}
func (n *NewArrayExpr) Format(f fmt.State, verb rune)   { format(f, verb, n, "newarray", nil) }
func (n *NewArrayExpr) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *NewArrayExpr) Walk(v Visitor) {
	if n.Length != nil {
		Walk(v, n.Length)
	}
	for _, e := range n.Elems {
		Walk(v, e)
	}
}

// NewListExpr constructs a growable list with an optional initial
// capacity.
type NewListExpr struct {
	Pos      position.Pos
	Type     *TypeRef
	Capacity Expr
}

func (n *NewListExpr) expr()                          {}
func (n *NewListExpr) Format(f fmt.State, verb rune)   { format(f, verb, n, "newlist", nil) }
func (n *NewListExpr) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *NewListExpr) Walk(v Visitor) {
	if n.Capacity != nil {
		Walk(v, n.Capacity)
	}
}

// LambdaExpr is an anonymous function literal. C6 lifts every
// LambdaExpr found in a body to a synthesized top-level function
// (§4.6 "Lambda lifting"); Captures is filled in by C5/C6, not by
// whatever constructs the tree, listing the enclosing locals the body
// references free.
type LambdaExpr struct {
	Pos      position.Pos
	Params   []*Param
	Return   *TypeRef
	Body     *Block
	Captures []string
}

func (n *LambdaExpr) expr() {}
func (n *LambdaExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "lambda", map[string]int{"params": len(n.Params), "captures": len(n.Captures)})
}
func (n *LambdaExpr) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *LambdaExpr) Walk(v Visitor)                  { Walk(v, n.Body) }

// NewExpr constructs an artifact instance.
type NewExpr struct {
	Pos  position.Pos
	Type *TypeRef
}

func (n *NewExpr) expr()                          {}
func (n *NewExpr) Format(f fmt.State, verb rune)   { format(f, verb, n, "new "+n.Type.String(), nil) }
func (n *NewExpr) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *NewExpr) Walk(_ Visitor)                  {}
