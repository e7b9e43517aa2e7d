package emit

import (
	"fmt"
	"strings"

	"github.com/JJLDonley/Simple-sub005/lang/ast"
)

// funcCtx holds the per-function emission state: its accumulated
// mnemonic lines, local slot assignments, and the running stack-depth
// counter §4.6's "Stack-height discipline" requires the emitter track
// as it produces lines (pushStack/popStack below are the direct
// generalization of lang_arrays.cpp's PushStack/PopStack helpers).
type funcCtx struct {
	st   *state
	name string

	lines []string
	depth int
	max   int

	locals     map[string]int
	localTypes map[string]string
	nextLocal  int

	self    *ast.ArtifactDecl // set inside a method body, receiver at local 0
	loops   []loopLabels
	labelN  int
}

type loopLabels struct {
	continueLabel string
	breakLabel    string
}

func (c *funcCtx) newLabel(prefix string) string {
	c.labelN++
	return fmt.Sprintf("%s_%d", prefix, c.labelN)
}

func (c *funcCtx) emit(line string) {
	c.lines = append(c.lines, "  "+line)
}

func (c *funcCtx) label(name string) {
	c.lines = append(c.lines, name+":")
}

func (c *funcCtx) pushStack(n int) {
	c.depth += n
	if c.depth > c.max {
		c.max = c.depth
	}
}

func (c *funcCtx) popStack(n int) { c.depth -= n }

func (c *funcCtx) allocLocal(name, typ string) int {
	slot := c.nextLocal
	c.nextLocal++
	c.locals[name] = slot
	c.localTypes[name] = typ
	return slot
}

// lowerFunction emits one `func ... end` block for fn (a top-level
// function or an artifact method, self non-nil for the latter) and
// appends it to st.funcBodies. Returns the assigned signature name.
func (st *state) lowerFunction(emittedName string, fn *ast.FuncDecl, self *ast.ArtifactDecl) (string, error) {
	c := &funcCtx{
		st:         st,
		name:       emittedName,
		locals:     map[string]int{},
		localTypes: map[string]string{},
		self:       self,
	}

	params := []string{}
	if self != nil {
		c.allocLocal("self", self.Name)
		params = append(params, self.Name)
	}
	for _, p := range fn.Params {
		c.allocLocal(p.Name, typeRefToken(p.Type))
		params = append(params, typeRefToken(p.Type))
	}
	ret := typeRefToken(fn.Return)
	sig := st.internSig(params, ret)

	if fn.Body != nil {
		if err := c.lowerBlock(fn.Body); err != nil {
			return "", err
		}
	}
	// Every path must reach the declared return height; a body that
	// falls off the end returns void/implicit zero.
	if ret == "void" {
		c.emit("ret 0")
	} else {
		c.emit("ret 1")
	}

	st.funcBodies = append(st.funcBodies, funcBody{
		Name: emittedName, Locals: c.nextLocal, StackMax: c.max, Sig: sig, Lines: c.lines,
	})
	return sig, nil
}

func (c *funcCtx) lowerBlock(b *ast.Block) error {
	for _, s := range b.Stmts {
		if err := c.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *funcCtx) lowerStmt(s ast.Stmt) error {
	switch stmt := s.(type) {
	case *ast.VarDeclStmt:
		typ := typeRefToken(stmt.Type)
		if stmt.Init != nil {
			got, err := c.lowerExpr(stmt.Init, typ)
			if err != nil {
				return err
			}
			if typ == "" {
				typ = got
			}
		}
		slot := c.allocLocal(stmt.Name, typ)
		if stmt.Init != nil {
			c.emit(fmt.Sprintf("stloc %d", slot))
			c.popStack(1)
		}
		return nil

	case *ast.AssignStmt:
		return c.lowerAssign(stmt)

	case *ast.ExprStmt:
		typ, err := c.lowerExpr(stmt.Expr, "")
		if err != nil {
			return err
		}
		if typ != "void" {
			c.emit("pop")
			c.popStack(1)
		}
		return nil

	case *ast.IfStmt:
		return c.lowerIf(stmt)

	case *ast.WhileStmt:
		return c.lowerWhile(stmt)

	case *ast.ForInStmt:
		return c.lowerForIn(stmt)

	case *ast.ReturnStmt:
		if stmt.Value == nil {
			c.emit("ret 0")
			return nil
		}
		if _, err := c.lowerExpr(stmt.Value, ""); err != nil {
			return err
		}
		c.emit("ret 1")
		c.popStack(1)
		return nil

	case *ast.BreakStmt:
		if len(c.loops) == 0 {
			return errf("break outside loop")
		}
		c.emit("jmp " + c.loops[len(c.loops)-1].breakLabel)
		return nil

	case *ast.ContinueStmt:
		if len(c.loops) == 0 {
			return errf("continue outside loop")
		}
		c.emit("jmp " + c.loops[len(c.loops)-1].continueLabel)
		return nil

	case *ast.Block:
		return c.lowerBlock(stmt)

	default:
		return errf("unsupported statement node: %T", s)
	}
}

func (c *funcCtx) lowerIf(stmt *ast.IfStmt) error {
	elseLabel := c.newLabel("else")
	endLabel := c.newLabel("endif")
	if _, err := c.lowerExpr(stmt.Cond, "bool"); err != nil {
		return err
	}
	c.emit("jmp.false " + elseLabel)
	c.popStack(1)
	if err := c.lowerBlock(stmt.Then); err != nil {
		return err
	}
	c.emit("jmp " + endLabel)
	c.label(elseLabel)
	if stmt.Else != nil {
		if err := c.lowerBlock(stmt.Else); err != nil {
			return err
		}
	}
	c.label(endLabel)
	return nil
}

func (c *funcCtx) lowerWhile(stmt *ast.WhileStmt) error {
	top := c.newLabel("loop")
	end := c.newLabel("endloop")
	c.loops = append(c.loops, loopLabels{continueLabel: top, breakLabel: end})
	defer func() { c.loops = c.loops[:len(c.loops)-1] }()

	c.label(top)
	if _, err := c.lowerExpr(stmt.Cond, "bool"); err != nil {
		return err
	}
	c.emit("jmp.false " + end)
	c.popStack(1)
	if err := c.lowerBlock(stmt.Body); err != nil {
		return err
	}
	c.emit("jmp " + top)
	c.label(end)
	return nil
}

// lowerForIn desugars `for name in seq { body }` to an index-counted
// while loop over seq's elements, since the instruction set has no
// dedicated iterator opcode (only array.len/list.len + indexed get).
func (c *funcCtx) lowerForIn(stmt *ast.ForInStmt) error {
	seqType, err := c.lowerExpr(stmt.Seq, "")
	if err != nil {
		return err
	}
	seqSlot := c.allocLocal("__forin_seq", seqType)
	c.emit(fmt.Sprintf("stloc %d", seqSlot))
	c.popStack(1)

	elemType, lenOp, getOp := sequenceOps(seqType)

	idxSlot := c.allocLocal("__forin_idx", "i32")
	c.emit("const.i32 0")
	c.pushStack(1)
	c.emit(fmt.Sprintf("stloc %d", idxSlot))
	c.popStack(1)

	top := c.newLabel("forin")
	end := c.newLabel("endforin")
	c.loops = append(c.loops, loopLabels{continueLabel: top, breakLabel: end})
	defer func() { c.loops = c.loops[:len(c.loops)-1] }()

	c.label(top)
	c.emit(fmt.Sprintf("ldloc %d", idxSlot))
	c.pushStack(1)
	c.emit(fmt.Sprintf("ldloc %d", seqSlot))
	c.pushStack(1)
	c.emit(lenOp)
	c.emit("cmp.lt.i32")
	c.popStack(1)
	c.emit("jmp.false " + end)
	c.popStack(1)

	c.emit(fmt.Sprintf("ldloc %d", seqSlot))
	c.pushStack(1)
	c.emit(fmt.Sprintf("ldloc %d", idxSlot))
	c.pushStack(1)
	c.emit(getOp)
	c.popStack(1)
	elemSlot := c.allocLocal(stmt.Name, elemType)
	c.emit(fmt.Sprintf("stloc %d", elemSlot))
	c.popStack(1)

	if err := c.lowerBlock(stmt.Body); err != nil {
		return err
	}

	c.emit(fmt.Sprintf("ldloc %d", idxSlot))
	c.pushStack(1)
	c.emit("const.i32 1")
	c.pushStack(1)
	c.emit("add.i32")
	c.popStack(1)
	c.emit(fmt.Sprintf("stloc %d", idxSlot))
	c.popStack(1)
	c.emit("jmp " + top)
	c.label(end)
	return nil
}

// sequenceOps returns the element type and the len/get mnemonics for a
// sequence type token ("array<T>" or "list<T>").
func sequenceOps(seqType string) (elemType, lenOp, getOp string) {
	isList := strings.HasPrefix(seqType, "list<")
	elem := elemType
	inner := seqType
	inner = strings.TrimPrefix(inner, "array<")
	inner = strings.TrimPrefix(inner, "list<")
	inner = strings.TrimSuffix(inner, ">")
	elem = inner
	if isList {
		return elem, "list.len", "list.get." + elementTag(elem)
	}
	return elem, "array.len", "array.get." + elementTag(elem)
}

// elementTag maps a value type token to the element-tag family
// array/list get/set/push/pop opcodes support (§4.2's ElementTypes:
// i32, i64, f32, f64, ref).
func elementTag(typ string) string {
	switch typ {
	case "i32", "i64", "f32", "f64":
		return typ
	default:
		return "ref"
	}
}

func (c *funcCtx) lowerAssign(stmt *ast.AssignStmt) error {
	switch lhs := stmt.Left.(type) {
	case *ast.Ident:
		if slot, ok := c.locals[lhs.Name]; ok {
			typ := c.localTypes[lhs.Name]
			if _, err := c.lowerExpr(stmt.Right, typ); err != nil {
				return err
			}
			c.emit(fmt.Sprintf("stloc %d", slot))
			c.popStack(1)
			return nil
		}
		if g, ok := c.st.globals.Get(lhs.Name); ok {
			idx := c.st.globalIndex(lhs.Name)
			if _, err := c.lowerExpr(stmt.Right, typeRefToken(g.Type)); err != nil {
				return err
			}
			c.emit(fmt.Sprintf("stglob %d", idx))
			c.popStack(1)
			return nil
		}
		return errf("assignment to unknown name: %s", lhs.Name)

	case *ast.IndexExpr:
		collType, err := c.lowerExpr(lhs.X, "")
		if err != nil {
			return err
		}
		if _, err := c.lowerExpr(lhs.Index, "i32"); err != nil {
			return err
		}
		elem, isList := elementOf(collType)
		if _, err := c.lowerExpr(stmt.Right, elem); err != nil {
			return err
		}
		tag := elementTag(elem)
		if isList {
			c.emit("list.set." + tag)
		} else {
			c.emit("array.set." + tag)
		}
		c.popStack(3)
		return nil

	case *ast.SelectorExpr:
		if err := c.lowerFieldTarget(lhs); err != nil {
			return err
		}
		xType, err := c.inferType(lhs.X)
		if err != nil {
			return err
		}
		layout, err := c.st.layoutOf(xType)
		if err != nil {
			return err
		}
		if _, err := c.lowerExpr(stmt.Right, layout.FieldTypes[layout.FieldIndex[lhs.Sel]]); err != nil {
			return err
		}
		c.emit(fmt.Sprintf("stfld %d", layout.FieldIndex[lhs.Sel]))
		c.popStack(2)
		return nil

	default:
		return errf("unsupported assignment target: %T", stmt.Left)
	}
}

// lowerFieldTarget pushes the object reference half of a field store
// (selector.X), leaving the caller to push the value and emit stfld.
func (c *funcCtx) lowerFieldTarget(sel *ast.SelectorExpr) error {
	_, err := c.lowerExpr(sel.X, "")
	return err
}

func elementOf(collType string) (elem string, isList bool) {
	switch {
	case strings.HasPrefix(collType, "list<"):
		return strings.TrimSuffix(strings.TrimPrefix(collType, "list<"), ">"), true
	case strings.HasPrefix(collType, "array<"):
		return strings.TrimSuffix(strings.TrimPrefix(collType, "array<"), ">"), false
	default:
		return "i32", false
	}
}

// globalIndex returns name's slot in the emitted globals: section,
// registering it on first reference.
func (st *state) globalIndex(name string) int {
	for i, g := range st.globalOrder {
		if g.Name == name {
			return i
		}
	}
	g, _ := st.globals.Get(name)
	idx := len(st.globalOrder)
	st.globalOrder = append(st.globalOrder, globalEntry{Name: name, Type: typeRefToken(g.Type)})
	return idx
}

// inferType returns the static type token of expr without emitting any
// code, used where a later stage (field/array lowering) needs to know
// an already-lowered expression's type.
func (c *funcCtx) inferType(e ast.Expr) (string, error) {
	switch expr := e.(type) {
	case *ast.Ident:
		if t, ok := c.localTypes[expr.Name]; ok {
			return t, nil
		}
		if g, ok := c.st.globals.Get(expr.Name); ok {
			return typeRefToken(g.Type), nil
		}
		return "", errf("unknown identifier: %s", expr.Name)
	case *ast.SelectorExpr:
		xType, err := c.inferType(expr.X)
		if err != nil {
			return "", err
		}
		layout, err := c.st.layoutOf(xType)
		if err != nil {
			return "", err
		}
		idx, ok := layout.FieldIndex[expr.Sel]
		if !ok {
			return "", errf("unknown field: %s", expr.Sel)
		}
		return layout.FieldTypes[idx], nil
	case *ast.IndexExpr:
		collType, err := c.inferType(expr.X)
		if err != nil {
			return "", err
		}
		elem, _ := elementOf(collType)
		return elem, nil
	case *ast.BasicLit:
		_, t, _ := c.st.internLit(expr, "")
		return t, nil
	case *ast.CallExpr:
		return c.calleeReturnType(expr)
	default:
		return "i32", nil
	}
}

func (c *funcCtx) calleeReturnType(call *ast.CallExpr) (string, error) {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		if f, ok := c.st.funcs.Get(fn.Name); ok {
			return typeRefToken(f.Return), nil
		}
		return "i32", nil
	case *ast.SelectorExpr:
		if artifact, ok := fn.X.(*ast.Ident); ok {
			if a, ok := c.st.artifacts.Get(artifact.Name); ok {
				for _, m := range a.Methods {
					if m.Name == fn.Sel {
						return typeRefToken(m.Return), nil
					}
				}
			}
		}
		return "i32", nil
	default:
		return "i32", nil
	}
}
