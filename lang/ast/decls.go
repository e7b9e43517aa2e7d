package ast

import (
	"fmt"

	"github.com/JJLDonley/Simple-sub005/lang/position"
)

// Field is one artifact field: its name and type. Declaration order is
// the field's position in ArtifactDecl.Fields.
type Field struct {
	Pos  position.Pos
	Name string
	Type *TypeRef
}

// Param is one function/method parameter.
type Param struct {
	Pos  position.Pos
	Name string
	Type *TypeRef
}

// ArtifactDecl declares a composite value type with named fields and
// methods, per §4's artifact declaration rules (duplicate field/method
// names are a validation error).
type ArtifactDecl struct {
	Pos     position.Pos
	Name    string
	Fields  []*Field
	Methods []*FuncDecl
	Generic []string // generic parameter names, duplicates checked by C5
}

func (n *ArtifactDecl) decl()             {}
func (n *ArtifactDecl) DeclName() string  { return n.Name }
func (n *ArtifactDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "artifact "+n.Name, map[string]int{"fields": len(n.Fields), "methods": len(n.Methods)})
}
func (n *ArtifactDecl) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *ArtifactDecl) Walk(v Visitor) {
	for _, m := range n.Methods {
		Walk(v, m)
	}
}

// EnumMember is one "Name = value" or implicit-value enum entry.
type EnumMember struct {
	Pos      position.Pos
	Name     string
	Value    int64
	Explicit bool // true if the program text gave an explicit value
}

// EnumDecl declares a named set of integer constants, per §4's enum
// rules (duplicate member names are a validation error; duplicate
// values are not checked).
type EnumDecl struct {
	Pos     position.Pos
	Name    string
	Members []*EnumMember
}

func (n *EnumDecl) decl()            {}
func (n *EnumDecl) DeclName() string { return n.Name }
func (n *EnumDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "enum "+n.Name, map[string]int{"members": len(n.Members)})
}
func (n *EnumDecl) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *EnumDecl) Walk(_ Visitor)                  {}

// FuncDecl declares a top-level function or an artifact method.
type FuncDecl struct {
	Pos    position.Pos
	Name   string
	Params []*Param
	Return *TypeRef // nil for void
	Body   *Block
}

func (n *FuncDecl) decl()            {}
func (n *FuncDecl) DeclName() string { return n.Name }
func (n *FuncDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "func "+n.Name, map[string]int{"params": len(n.Params)})
}
func (n *FuncDecl) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *FuncDecl) Walk(v Visitor) {
	if n.Body != nil {
		Walk(v, n.Body)
	}
}

// GlobalDecl declares a module-level mutable variable with an
// initializer expression.
type GlobalDecl struct {
	Pos  position.Pos
	Name string
	Type *TypeRef
	Init Expr
}

func (n *GlobalDecl) decl()            {}
func (n *GlobalDecl) DeclName() string { return n.Name }
func (n *GlobalDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "global "+n.Name, nil)
}
func (n *GlobalDecl) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *GlobalDecl) Walk(v Visitor) {
	if n.Init != nil {
		Walk(v, n.Init)
	}
}

// ImportDecl declares a dependency on another module's symbol,
// reserved (core.*, per lang/hostimport) or foreign.
type ImportDecl struct {
	Pos    position.Pos
	Name   string // local binding name
	Module string
	Symbol string
	Sig    *TypeRef // callback-shaped signature of the imported symbol
}

func (n *ImportDecl) decl()            {}
func (n *ImportDecl) DeclName() string { return n.Name }
func (n *ImportDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "import "+n.Module+"."+n.Symbol, nil)
}
func (n *ImportDecl) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *ImportDecl) Walk(_ Visitor)                  {}
