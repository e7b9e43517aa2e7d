package emit

import (
	"fmt"
	"strings"

	"github.com/JJLDonley/Simple-sub005/lang/ast"
	"github.com/JJLDonley/Simple-sub005/lang/hostimport"
)

// lowerExpr emits expr's code, leaving exactly one value on the
// operand stack, and returns its static type token. want is a type
// hint (e.g. the declared type of the slot the value will be stored
// into) used only to pick a literal's width when it has no narrower
// context; it is never required to match.
func (c *funcCtx) lowerExpr(e ast.Expr, want string) (string, error) {
	switch expr := e.(type) {
	case *ast.BasicLit:
		_, typ, opnd := c.st.internLit(expr, want)
		mnemType := typ
		if expr.Kind == ast.LitNull {
			mnemType = "null" // const.null takes no type-suffixed push form of its own
		}
		if opnd == "" {
			c.emit("const." + mnemType)
		} else {
			c.emit("const." + mnemType + " " + opnd)
		}
		c.pushStack(1)
		return typ, nil

	case *ast.Ident:
		if slot, ok := c.locals[expr.Name]; ok {
			c.emit(fmt.Sprintf("ldloc %d", slot))
			c.pushStack(1)
			return c.localTypes[expr.Name], nil
		}
		if g, ok := c.st.globals.Get(expr.Name); ok {
			idx := c.st.globalIndex(expr.Name)
			c.emit(fmt.Sprintf("ldglob %d", idx))
			c.pushStack(1)
			return typeRefToken(g.Type), nil
		}
		return "", errf("unknown identifier: %s", expr.Name)

	case *ast.BinaryExpr:
		return c.lowerBinary(expr)

	case *ast.UnaryExpr:
		return c.lowerUnary(expr)

	case *ast.CallExpr:
		return c.lowerCall(expr)

	case *ast.IndexExpr:
		collType, err := c.lowerExpr(expr.X, "")
		if err != nil {
			return "", err
		}
		if _, err := c.lowerExpr(expr.Index, "i32"); err != nil {
			return "", err
		}
		elem, isList := elementOf(collType)
		tag := elementTag(elem)
		if isList {
			c.emit("list.get." + tag)
		} else {
			c.emit("array.get." + tag)
		}
		c.popStack(1)
		return elem, nil

	case *ast.SelectorExpr:
		xType, err := c.lowerExpr(expr.X, "")
		if err != nil {
			return "", err
		}
		layout, err := c.st.layoutOf(xType)
		if err != nil {
			return "", err
		}
		idx, ok := layout.FieldIndex[expr.Sel]
		if !ok {
			return "", errf("unknown field: %s.%s", xType, expr.Sel)
		}
		c.emit(fmt.Sprintf("ldfld %d", idx))
		return layout.FieldTypes[idx], nil

	case *ast.NewExpr:
		typeID := c.st.artifactTypeID(expr.Type.Name)
		c.emit(fmt.Sprintf("newobj %d", typeID))
		c.pushStack(1)
		return expr.Type.Name, nil

	case *ast.NewArrayExpr:
		return c.lowerNewArray(expr)

	case *ast.NewListExpr:
		elem := typeRefToken(expr.Type)
		typeID := c.st.elementTypeID(elem)
		cap, err := constIntOrZero(expr.Capacity)
		if err != nil {
			return "", err
		}
		c.emit(fmt.Sprintf("list.new %d %d", typeID, cap))
		c.pushStack(1)
		return "list<" + elem + ">", nil

	case *ast.LambdaExpr:
		return c.lowerLambda(expr)

	default:
		return "", errf("unsupported expression node: %T", e)
	}
}

func (c *funcCtx) lowerBinary(expr *ast.BinaryExpr) (string, error) {
	switch expr.Op {
	case ast.OpLogAnd, ast.OpLogOr:
		return c.lowerShortCircuit(expr)
	}
	leftType, err := c.lowerExpr(expr.Left, "")
	if err != nil {
		return "", err
	}
	if _, err := c.lowerExpr(expr.Right, leftType); err != nil {
		return "", err
	}
	switch expr.Op {
	case ast.OpAdd:
		c.emit("add." + leftType)
	case ast.OpSub:
		c.emit("sub." + leftType)
	case ast.OpMul:
		c.emit("mul." + leftType)
	case ast.OpDiv:
		c.emit("div." + leftType)
	case ast.OpMod:
		c.emit("mod." + leftType)
	case ast.OpAnd:
		c.emit("and." + leftType)
	case ast.OpOr:
		c.emit("or." + leftType)
	case ast.OpXor:
		c.emit("xor." + leftType)
	case ast.OpShl:
		c.emit("shl." + leftType)
	case ast.OpShr:
		c.emit("shr." + leftType)
	case ast.OpEq:
		c.emit("cmp.eq." + leftType)
	case ast.OpNe:
		c.emit("cmp.ne." + leftType)
	case ast.OpLt:
		c.emit("cmp.lt." + leftType)
	case ast.OpLe:
		c.emit("cmp.le." + leftType)
	case ast.OpGt:
		c.emit("cmp.gt." + leftType)
	case ast.OpGe:
		c.emit("cmp.ge." + leftType)
	default:
		return "", errf("unsupported binary operator")
	}
	c.popStack(1)
	if isCompareOp(expr.Op) {
		return "bool", nil
	}
	return leftType, nil
}

func isCompareOp(op ast.BinaryOp) bool {
	switch op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return true
	default:
		return false
	}
}

// lowerShortCircuit lowers && and || to a branch so the right operand
// is not evaluated unless needed.
func (c *funcCtx) lowerShortCircuit(expr *ast.BinaryExpr) (string, error) {
	if _, err := c.lowerExpr(expr.Left, "bool"); err != nil {
		return "", err
	}
	shortLabel := c.newLabel("sc")
	endLabel := c.newLabel("scend")
	c.emit("dup")
	c.pushStack(1)
	if expr.Op == ast.OpLogAnd {
		c.emit("jmp.false " + shortLabel)
	} else {
		c.emit("jmp.true " + shortLabel)
	}
	c.popStack(1)
	c.emit("pop")
	c.popStack(1)
	if _, err := c.lowerExpr(expr.Right, "bool"); err != nil {
		return "", err
	}
	c.emit("jmp " + endLabel)
	c.label(shortLabel)
	c.label(endLabel)
	return "bool", nil
}

func (c *funcCtx) lowerUnary(expr *ast.UnaryExpr) (string, error) {
	typ, err := c.lowerExpr(expr.X, "")
	if err != nil {
		return "", err
	}
	switch expr.Op {
	case ast.OpNeg:
		c.emit("neg." + typ)
	case ast.OpNot:
		c.emit("const.bool false")
		c.pushStack(1)
		c.emit("cmp.eq.bool")
		c.popStack(1)
		return "bool", nil
	case ast.OpBitNot:
		c.emit("const." + typ + " -1")
		c.pushStack(1)
		c.emit("xor." + typ)
		c.popStack(1)
	default:
		return "", errf("unsupported unary operator")
	}
	return typ, nil
}

// lowerNewArray emits a fixed-length array construction, with or
// without an element literal list, per lang_arrays.cpp's
// EmitArrayLiteral: array.new, then per element dup / value / index /
// swap / array.set.
func (c *funcCtx) lowerNewArray(expr *ast.NewArrayExpr) (string, error) {
	elem := typeRefToken(expr.Type)
	typeID := c.st.elementTypeID(elem)
	tag := elementTag(elem)

	length := len(expr.Elems)
	if length == 0 && expr.Length != nil {
		// array.new's length is an immediate operand, not a stack value, so
		// a bare `new T[n]` requires n to fold to a constant at emit time.
		n, err := constIntOrZero(expr.Length)
		if err != nil {
			return "", err
		}
		length = n
	}

	c.emit(fmt.Sprintf("array.new %d %d", typeID, length))
	c.pushStack(1)
	for i, elemExpr := range expr.Elems {
		c.emit("dup")
		c.pushStack(1)
		if _, err := c.lowerExpr(elemExpr, elem); err != nil {
			return "", err
		}
		c.emit(fmt.Sprintf("const.i32 %d", i))
		c.pushStack(1)
		c.emit("swap")
		c.emit("array.set." + tag)
		c.popStack(3)
	}
	return "array<" + elem + ">", nil
}

// lowerCall resolves the callee (a plain function, an artifact method
// via a.b(...), or an indirect call through a callback-typed local)
// and emits argument pushes followed by the matching call form.
func (c *funcCtx) lowerCall(expr *ast.CallExpr) (string, error) {
	switch fn := expr.Fun.(type) {
	case *ast.Ident:
		if f, ok := c.st.funcs.Get(fn.Name); ok {
			for _, a := range expr.Args {
				if _, err := c.lowerExpr(a, ""); err != nil {
					return "", err
				}
			}
			fid := c.st.funcIndex(fn.Name)
			ret := typeRefToken(f.Return)
			c.emit(fmt.Sprintf("call %d %d %t", fid, len(expr.Args), ret != "void"))
			c.popStack(len(expr.Args))
			if ret != "void" {
				c.pushStack(1)
			}
			return ret, nil
		}
		if impDecl, ok := c.st.importDecls.Get(fn.Name); ok {
			argc := len(expr.Args)
			if canonical, ok := hostimport.Canonicalize(impDecl.Module); ok &&
				canonical == hostimport.CoreLog && impDecl.Symbol == "log" && argc == 1 {
				n, err := c.lowerLogCall(expr.Args[0])
				if err != nil {
					return "", err
				}
				argc = n
			} else {
				for _, a := range expr.Args {
					if _, err := c.lowerExpr(a, ""); err != nil {
						return "", err
					}
				}
			}
			idx, _ := c.st.importDeclIndex.Get(fn.Name)
			ret := callbackReturnToken(impDecl.Sig)
			c.emit(fmt.Sprintf("call %d %d %t", c.st.importFuncIndex(idx), argc, ret != "void"))
			c.popStack(argc)
			if ret != "void" {
				c.pushStack(1)
			}
			return ret, nil
		}
		if slot, ok := c.locals[fn.Name]; ok {
			// Indirect call through a callback-typed parameter: the return
			// type isn't tracked per-local beyond its scalar token, so a
			// non-void callback result is assumed i32-shaped — narrower than
			// a fully type-checked front end would give, but the call forms
			// (argc, sig id) are still emitted correctly either way.
			c.emit(fmt.Sprintf("ldloc %d", slot))
			c.pushStack(1)
			argTypes := make([]string, len(expr.Args))
			for i, a := range expr.Args {
				t, err := c.lowerExpr(a, "")
				if err != nil {
					return "", err
				}
				argTypes[i] = t
			}
			sig := c.st.internSig(argTypes, "i32")
			c.emit(fmt.Sprintf("call.indirect %d %d true", sigIndex(c.st, sig), len(expr.Args)))
			c.popStack(len(expr.Args) + 1)
			c.pushStack(1)
			return "i32", nil
		}
		return "", errf("call to unknown function: %s", fn.Name)

	case *ast.SelectorExpr:
		return c.lowerMethodCall(fn, expr.Args)

	default:
		return "", errf("unsupported call target: %T", expr.Fun)
	}
}

// lowerLogCall lowers the single user-supplied argument of a
// core.log.log(fmt) call, a format-string convenience core.log's
// catalog signature (string, i32) anticipates but a surface call site
// only spells with one argument. When fmt is a string-literal
// constant, its "{}" placeholders are counted at emit time
// (countFormatPlaceholders) and pushed as the second argument; any
// other expression is passed through unchanged with an implicit count
// of zero, since only a literal's contents are knowable here. Returns
// the argument count pushed (always 2).
func (c *funcCtx) lowerLogCall(fmtArg ast.Expr) (int, error) {
	if _, err := c.lowerExpr(fmtArg, "string"); err != nil {
		return 0, err
	}
	count := 0
	if lit, ok := fmtArg.(*ast.BasicLit); ok && lit.Kind == ast.LitString {
		n, err := countFormatPlaceholders(lit.Raw)
		if err != nil {
			return 0, err
		}
		count = n
	}
	c.emit(fmt.Sprintf("const.i32 %d", count))
	c.pushStack(1)
	return 2, nil
}

func (c *funcCtx) lowerMethodCall(sel *ast.SelectorExpr, args []ast.Expr) (string, error) {
	if recvType, err := c.inferType(sel.X); err == nil && isSequenceType(recvType) {
		return c.lowerSequenceBuiltin(sel, args, recvType)
	}

	recvType, err := c.lowerExpr(sel.X, "")
	if err != nil {
		return "", err
	}
	artifact, ok := c.st.artifacts.Get(recvType)
	if !ok {
		return "", errf("method call on non-artifact type: %s", recvType)
	}
	var method *ast.FuncDecl
	for _, m := range artifact.Methods {
		if m.Name == sel.Sel {
			method = m
			break
		}
	}
	if method == nil {
		return "", errf("unknown method: %s.%s", recvType, sel.Sel)
	}
	for _, a := range args {
		if _, err := c.lowerExpr(a, ""); err != nil {
			return "", err
		}
	}
	mangled := mangleMethod(artifact.Name, method.Name)
	fid := c.st.funcIndex(mangled)
	ret := typeRefToken(method.Return)
	c.emit(fmt.Sprintf("call %d %d %t", fid, len(args)+1, ret != "void"))
	c.popStack(len(args) + 1)
	if ret != "void" {
		c.pushStack(1)
	}
	return ret, nil
}

// constIntOrZero folds a literal-integer expression to its value, used
// for the immediate-operand length/capacity fields array.new and
// list.new take (the instruction set has no dynamic-length allocation
// form). Nil evaluates to zero.
func constIntOrZero(e ast.Expr) (int, error) {
	if e == nil {
		return 0, nil
	}
	lit, ok := e.(*ast.BasicLit)
	if !ok || lit.Kind != ast.LitInt {
		return 0, errf("array/list length or capacity must be a constant integer literal")
	}
	v, ok := parseIntegerLiteralText(lit.Raw)
	if !ok {
		return 0, errf("malformed integer literal: %s", lit.Raw)
	}
	return int(v), nil
}

// callbackReturnToken returns the rendered return-type token of a
// callback-shaped TypeRef (an extern's or callback parameter's Sig),
// "void" when unset.
func callbackReturnToken(sig *ast.TypeRef) string {
	if sig == nil || sig.CallbackRet == nil {
		return "void"
	}
	return typeRefToken(sig.CallbackRet)
}

func isSequenceType(typ string) bool {
	return strings.HasPrefix(typ, "list<") || strings.HasPrefix(typ, "array<")
}

// lowerSequenceBuiltin lowers a.len()/.push(v)/.pop()/.clear() calls on
// a list- or array-typed receiver to their dedicated SIR opcodes (§4.2's
// Lists/Arrays families) rather than a user function call — these are
// operations the instruction set bakes in directly, not methods any
// artifact declares.
func (c *funcCtx) lowerSequenceBuiltin(sel *ast.SelectorExpr, args []ast.Expr, recvType string) (string, error) {
	isList := strings.HasPrefix(recvType, "list<")
	elem, _ := elementOf(recvType)
	tag := elementTag(elem)
	family := "array"
	if isList {
		family = "list"
	}

	switch sel.Sel {
	case "len":
		if _, err := c.lowerExpr(sel.X, ""); err != nil {
			return "", err
		}
		c.emit(family + ".len")
		return "i32", nil

	case "push":
		if !isList {
			return "", errf("push is only defined on list<T>, got %s", recvType)
		}
		if len(args) != 1 {
			return "", errf("push takes exactly one argument")
		}
		if _, err := c.lowerExpr(sel.X, ""); err != nil {
			return "", err
		}
		if _, err := c.lowerExpr(args[0], elem); err != nil {
			return "", err
		}
		c.emit("list.push." + tag)
		c.popStack(2)
		return "void", nil

	case "pop":
		if !isList {
			return "", errf("pop is only defined on list<T>, got %s", recvType)
		}
		if _, err := c.lowerExpr(sel.X, ""); err != nil {
			return "", err
		}
		c.emit("list.pop." + tag)
		return elem, nil

	case "clear":
		if !isList {
			return "", errf("clear is only defined on list<T>, got %s", recvType)
		}
		if _, err := c.lowerExpr(sel.X, ""); err != nil {
			return "", err
		}
		c.emit("list.clear")
		c.popStack(1)
		return "void", nil

	default:
		return "", errf("unknown %s builtin: %s", family, sel.Sel)
	}
}

func sigIndex(st *state, name string) int {
	for i, s := range st.sigOrder {
		if s.Name == name {
			return i
		}
	}
	return 0
}

// captureNames computes expr's free variables among the enclosing
// function's locals — the set Captures must list before lowering can
// proceed, since nothing upstream of the emitter populates it.
// Approximates scoping by walk order rather than by block: once the
// walk reaches a VarDeclStmt/ForInStmt binding a name, every later
// node in the lambda body treats that name as shadowed, including
// nodes outside the declaring block; uses walked before the
// declaration can still capture it. It never captures a name the
// lambda doesn't actually read.
func (c *funcCtx) captureNames(expr *ast.LambdaExpr) []string {
	bound := map[string]bool{}
	for _, p := range expr.Params {
		bound[p.Name] = true
	}
	var captured []string
	seen := map[string]bool{}
	var visit ast.VisitorFunc
	visit = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir != ast.VisitEnter {
			return nil
		}
		switch node := n.(type) {
		case *ast.VarDeclStmt:
			bound[node.Name] = true
		case *ast.ForInStmt:
			bound[node.Name] = true
		case *ast.Ident:
			if !bound[node.Name] && !seen[node.Name] {
				if _, ok := c.locals[node.Name]; ok {
					seen[node.Name] = true
					captured = append(captured, node.Name)
				}
			}
		}
		return visit
	}
	ast.Walk(visit, expr.Body)
	expr.Captures = captured
	return captured
}

// lowerLambda lifts expr to a synthesized top-level function and emits
// the newclosure sequence at the use site, per §4.6's "Lambda
// lifting": captured locals become positional upvalues, pushed in
// capture order before newclosure.
func (c *funcCtx) lowerLambda(expr *ast.LambdaExpr) (string, error) {
	c.st.lambdaSeq++
	name := fmt.Sprintf("__lambda_%d", c.st.lambdaSeq)
	captures := c.captureNames(expr)

	lc := &funcCtx{st: c.st, name: name, locals: map[string]int{}, localTypes: map[string]string{}}
	for _, cap := range captures {
		lc.allocLocal(cap, c.localTypes[cap])
	}
	for _, p := range expr.Params {
		lc.allocLocal(p.Name, typeRefToken(p.Type))
	}
	if err := lc.lowerBlock(expr.Body); err != nil {
		return "", err
	}
	ret := typeRefToken(expr.Return)
	if ret == "void" {
		lc.emit("ret 0")
	} else {
		lc.emit("ret 1")
	}
	params := make([]string, 0, len(captures)+len(expr.Params))
	for _, cap := range captures {
		params = append(params, c.localTypes[cap])
	}
	for _, p := range expr.Params {
		params = append(params, typeRefToken(p.Type))
	}
	sig := c.st.internSig(params, ret)
	c.st.funcBodies = append(c.st.funcBodies, funcBody{
		Name: name, Locals: lc.nextLocal, StackMax: lc.max, Sig: sig, Lines: lc.lines,
	})

	for _, cap := range captures {
		slot, ok := c.locals[cap]
		if !ok {
			return "", errf("lambda captures unknown local: %s", cap)
		}
		c.emit(fmt.Sprintf("ldloc %d", slot))
		c.pushStack(1)
	}
	fid := c.st.funcIndex(name)
	c.emit(fmt.Sprintf("newclosure %d %d", fid, len(captures)))
	c.popStack(len(captures))
	c.pushStack(1)
	return "ref", nil
}
