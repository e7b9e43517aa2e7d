package ast

import (
	"fmt"

	"github.com/JJLDonley/Simple-sub005/lang/position"
)

// TypeRef names a type reference as it appears in a signature, field,
// or local-variable declaration: a scalar keyword ("i32", "string"), a
// named artifact/enum, or one of the two compound forms (array, list).
type TypeRef struct {
	Pos      position.Pos
	Name     string   // scalar keyword or artifact/enum name
	Array    bool     // true for T[N]
	List     bool     // true for List<T>
	Length   int      // array length, only meaningful when Array
	Elem     *TypeRef // element type, only set for Array/List
	Callback bool     // true if this TypeRef names a callback signature, per §4's
	// "callback as parameter only" rule: never valid as a field, local, or return type.
	Params       []*TypeRef // callback parameter types, only set when Callback
	CallbackRet  *TypeRef   // callback return type, only set when Callback
}

func (n *TypeRef) String() string {
	switch {
	case n.Callback:
		parts := make([]string, len(n.Params))
		for i, p := range n.Params {
			parts[i] = p.String()
		}
		ret := "void"
		if n.CallbackRet != nil {
			ret = n.CallbackRet.String()
		}
		s := "("
		for i, p := range parts {
			if i > 0 {
				s += ", "
			}
			s += p
		}
		return s + ") -> " + ret
	case n.Array:
		return n.Elem.String() + "[]"
	case n.List:
		return "List<" + n.Elem.String() + ">"
	default:
		return n.Name
	}
}

func (n *TypeRef) Format(f fmt.State, verb rune)   { format(f, verb, n, "type "+n.String(), nil) }
func (n *TypeRef) Span() (start, end position.Pos) { return n.Pos, n.Pos }
func (n *TypeRef) Walk(v Visitor) {
	if n.Elem != nil {
		Walk(v, n.Elem)
	}
	for _, p := range n.Params {
		Walk(v, p)
	}
	if n.CallbackRet != nil {
		Walk(v, n.CallbackRet)
	}
}
