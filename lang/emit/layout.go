package emit

import (
	"fmt"
	"strings"

	"github.com/JJLDonley/Simple-sub005/lang/ast"
	"github.com/JJLDonley/Simple-sub005/lang/bytecode"
)

// primitiveTypeIDBase is where declared (artifact/enum) type ids begin:
// ids below it are reserved for bytecode.Type's own primitive values,
// so a newarray/newlist element type_id and a newobj record type_id
// share one numbering without collision.
const primitiveTypeIDBase = 16

// elementTypeID returns the type_id newarray/newlist take for an
// element token: a primitive's own bytecode.Type value, or a declared
// artifact/enum's id, or the generic reference id for anything else
// (array<T>/list<T> elements, which are always stored as handles).
func (st *state) elementTypeID(token string) int {
	if t, ok := bytecode.ParseType(token); ok {
		return int(t)
	}
	if id, ok := st.namedTypeID(token); ok {
		return id
	}
	return int(bytecode.TypeRef)
}

// artifactTypeID returns the type_id newobj takes for a declared
// artifact name.
func (st *state) artifactTypeID(name string) int {
	if id, ok := st.namedTypeID(name); ok {
		return id
	}
	return int(bytecode.TypeRef)
}

func (st *state) namedTypeID(name string) (int, bool) {
	id := primitiveTypeIDBase
	for _, d := range st.program.Decls {
		switch decl := d.(type) {
		case *ast.ArtifactDecl:
			if decl.Name == name {
				return id, true
			}
			id++
		case *ast.EnumDecl:
			if decl.Name == name {
				return id, true
			}
			id++
		}
	}
	return 0, false
}

// recordLayout is one artifact's computed field offsets, per §4.6's
// "Layout algorithm for artifacts": declaration order, each field
// aligned to its natural width, final size padded up to the maximum
// field alignment.
type recordLayout struct {
	Size          uint32
	FieldIndex    map[string]int // field name -> position in FieldOffset/FieldTypes
	FieldOffset   []uint32
	FieldTypes    []string
	fieldMaxAlign uint32
}

func (l *recordLayout) maxAlign() uint32 { return l.fieldMaxAlign }

// scalarAlign returns the natural alignment (and width) in bytes for a
// primitive type token: 1/2/4/8 per width, 4 for references, matching
// §4.6 exactly. Record types recurse into their own computed layout.
func (st *state) scalarAlign(typeName string) uint32 {
	switch typeName {
	case "i8", "u8", "bool", "char":
		return 1
	case "i16", "u16":
		return 2
	case "i32", "u32", "f32":
		return 4
	case "i64", "u64", "f64":
		return 8
	case "string":
		return 4 // a string is a heap reference
	default:
		if _, ok := st.enums.Get(typeName); ok {
			return 4 // enums are backed by i32
		}
		if _, ok := st.artifacts.Get(typeName); ok {
			layout, err := st.layoutOf(typeName)
			if err != nil {
				return 4
			}
			return layout.maxAlign()
		}
		return 4 // array/list/generic: a reference
	}
}

// layoutOf computes (memoized) the field layout for the artifact named
// name, recursing through nested artifact field types as needed.
func (st *state) layoutOf(name string) (*recordLayout, error) {
	if l, ok := st.layouts.Get(name); ok {
		return l, nil
	}
	decl, ok := st.artifacts.Get(name)
	if !ok {
		return nil, errf("unknown artifact: %s", name)
	}
	layout := &recordLayout{FieldIndex: map[string]int{}}
	// Insert a placeholder before recursing so a (validated-out)
	// self-referential field chain cannot recurse forever.
	st.layouts.Put(name, layout)

	var offset uint32
	var maxAlign uint32 = 1
	for i, f := range decl.Fields {
		typeName := typeRefToken(f.Type)
		align := st.scalarAlign(typeName)
		if align > maxAlign {
			maxAlign = align
		}
		offset = alignUp(offset, align)
		layout.FieldIndex[f.Name] = i
		layout.FieldOffset = append(layout.FieldOffset, offset)
		layout.FieldTypes = append(layout.FieldTypes, typeName)
		offset += align
	}
	layout.Size = alignUp(offset, maxAlign)
	layout.fieldMaxAlign = maxAlign
	return layout, nil
}

func alignUp(off, align uint32) uint32 {
	if align == 0 {
		return off
	}
	rem := off % align
	if rem == 0 {
		return off
	}
	return off + (align - rem)
}

// typeRefToken renders a TypeRef the way the `types:`/`sigs:` sections
// spell it: scalar keywords as-is, arrays/lists wrapped per §6's
// canonical tokens (array<T>, list<T>), everything else its bare name.
func typeRefToken(t *ast.TypeRef) string {
	if t == nil {
		return "void"
	}
	switch {
	case t.Array:
		return fmt.Sprintf("array<%s>", typeRefToken(t.Elem))
	case t.List:
		return fmt.Sprintf("list<%s>", typeRefToken(t.Elem))
	default:
		return t.Name
	}
}

// renderTypeDefs computes every artifact/enum's layout and produces the
// `types:` section text, in declaration order.
func (st *state) renderTypeDefs() error {
	for _, d := range st.program.Decls {
		switch decl := d.(type) {
		case *ast.ArtifactDecl:
			layout, err := st.layoutOf(decl.Name)
			if err != nil {
				return err
			}
			var sb strings.Builder
			fmt.Fprintf(&sb, "  type %s size=%d kind=artifact\n", decl.Name, layout.Size)
			for i, f := range decl.Fields {
				fmt.Fprintf(&sb, "  field %s %s offset=%d\n", f.Name, layout.FieldTypes[i], layout.FieldOffset[i])
			}
			st.typeDefs = append(st.typeDefs, sb.String())
		case *ast.EnumDecl:
			var sb strings.Builder
			fmt.Fprintf(&sb, "  type %s size=4 kind=enum\n", decl.Name)
			st.typeDefs = append(st.typeDefs, sb.String())
		}
	}
	return nil
}
