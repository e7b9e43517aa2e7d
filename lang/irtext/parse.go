package irtext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JJLDonley/Simple-sub005/lang/bytecode"
)

// ParseError is a fatal malformed-IR-text error with line context,
// matching §7's IrParseError taxonomy.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func perr(line int, format string, args ...interface{}) error {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// srcLine is one non-blank, comment-stripped source line together with
// its original 1-based line number, used for error context throughout
// parsing.
type srcLine struct {
	no   int
	text string
}

// Parse parses a complete textual SIR module (§6) into an executable
// Module. It mirrors the teacher's asm.go section-by-section parsing
// and the original ParseIrTextModule/LowerIrTextToModule two-pass
// per-function algorithm.
func Parse(text string) (*Module, error) {
	rawLines := strings.Split(text, "\n")
	var lines []srcLine
	for i, raw := range rawLines {
		l := stripComment(raw)
		l = strings.TrimRight(l, " \t\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, srcLine{no: i + 1, text: l})
	}

	m := &Module{FuncIndex: map[string]int{}}

	i := 0
	for i < len(lines) {
		l := lines[i]
		trimmed := strings.TrimSpace(l.text)
		var err error
		switch {
		case trimmed == "types:":
			i, err = parseTypes(lines, i+1, m)
		case trimmed == "sigs:":
			i, err = parseSigs(lines, i+1, m)
		case trimmed == "consts:":
			i, err = parseConsts(lines, i+1, m)
		case trimmed == "globals:":
			i, err = parseGlobals(lines, i+1, m)
		case trimmed == "imports:":
			i, err = parseImports(lines, i+1, m)
		case strings.HasPrefix(trimmed, "func "):
			var fn Function
			i, fn, err = parseFunction(lines, i)
			if err == nil {
				m.FuncIndex[fn.Name] = len(m.Functions)
				m.Functions = append(m.Functions, fn)
			}
		case strings.HasPrefix(trimmed, "entry "):
			m.Entry = strings.TrimSpace(strings.TrimPrefix(trimmed, "entry "))
			i++
		default:
			err = perr(l.no, "unexpected line: %q", trimmed)
		}
		if err != nil {
			return nil, err
		}
	}

	idx, ok := m.functionByName(m.Entry)
	if !ok {
		return nil, fmt.Errorf("entry function not found")
	}
	m.EntryIdx = idx
	return m, nil
}

func stripComment(s string) string {
	for i, c := range s {
		if c == ';' || c == '#' {
			return s[:i]
		}
	}
	return s
}

func isSectionOrFuncOrEntry(trimmed string) bool {
	return trimmed == "types:" || trimmed == "sigs:" || trimmed == "consts:" ||
		trimmed == "globals:" || trimmed == "imports:" ||
		strings.HasPrefix(trimmed, "func ") || strings.HasPrefix(trimmed, "entry ")
}

// --- types: section ---

func parseTypes(lines []srcLine, i int, m *Module) (int, error) {
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i].text)
		if isSectionOrFuncOrEntry(trimmed) {
			return i, nil
		}
		fields := strings.Fields(trimmed)
		if len(fields) == 0 {
			i++
			continue
		}
		switch fields[0] {
		case "type":
			if len(fields) < 4 {
				return i, perr(lines[i].no, "malformed type line")
			}
			td := TypeDef{Name: fields[1]}
			for _, kv := range fields[2:] {
				k, v, _ := strings.Cut(kv, "=")
				switch k {
				case "size":
					sz, err := strconv.ParseUint(v, 10, 32)
					if err != nil {
						return i, perr(lines[i].no, "bad size: %s", v)
					}
					td.Size = uint32(sz)
				case "kind":
					if v == "artifact" {
						td.Kind = TypeKindArtifact
					} else {
						td.Kind = TypeKindEnum
					}
				}
			}
			m.Types = append(m.Types, td)
			i++
		case "field":
			if len(m.Types) == 0 || len(fields) < 4 {
				return i, perr(lines[i].no, "field with no preceding type")
			}
			last := &m.Types[len(m.Types)-1]
			f := Field{Name: fields[1], Type: fields[2]}
			k, v, _ := strings.Cut(fields[3], "=")
			if k == "offset" {
				off, err := strconv.ParseUint(v, 10, 32)
				if err != nil {
					return i, perr(lines[i].no, "bad offset: %s", v)
				}
				f.Offset = uint32(off)
			}
			last.Fields = append(last.Fields, f)
			i++
		default:
			return i, perr(lines[i].no, "unexpected line in types: %q", trimmed)
		}
	}
	return i, nil
}

// --- sigs: section ---

func parseSigs(lines []srcLine, i int, m *Module) (int, error) {
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i].text)
		if isSectionOrFuncOrEntry(trimmed) {
			return i, nil
		}
		fields := strings.Fields(trimmed)
		if len(fields) == 0 || fields[0] != "sig" {
			return i, perr(lines[i].no, "expected sig line, got %q", trimmed)
		}
		name := strings.TrimSuffix(fields[1], ":")
		rest := strings.Join(fields[2:], " ")
		params, ret, err := parseSigShape(rest)
		if err != nil {
			return i, perr(lines[i].no, "%s", err)
		}
		m.Sigs = append(m.Sigs, Sig{Name: name, Params: params, Return: ret})
		i++
	}
	return i, nil
}

// parseSigShape parses "(T, T, ...) -> T".
func parseSigShape(s string) ([]string, string, error) {
	arrow := strings.Index(s, "->")
	if arrow < 0 {
		return nil, "", fmt.Errorf("malformed signature: %q", s)
	}
	paramsPart := strings.TrimSpace(s[:arrow])
	ret := strings.TrimSpace(s[arrow+2:])
	paramsPart = strings.TrimPrefix(paramsPart, "(")
	paramsPart = strings.TrimSuffix(paramsPart, ")")
	paramsPart = strings.TrimSpace(paramsPart)
	if paramsPart == "" {
		return nil, ret, nil
	}
	rawParams := strings.Split(paramsPart, ",")
	params := make([]string, 0, len(rawParams))
	for _, p := range rawParams {
		params = append(params, strings.TrimSpace(p))
	}
	return params, ret, nil
}

// --- consts: section ---

func parseConsts(lines []srcLine, i int, m *Module) (int, error) {
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i].text)
		if isSectionOrFuncOrEntry(trimmed) {
			return i, nil
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 3 || fields[0] != "const" {
			return i, perr(lines[i].no, "expected const line, got %q", trimmed)
		}
		m.Consts = append(m.Consts, Const{Name: fields[1], Kind: fields[2], Text: strings.Join(fields[3:], " ")})
		i++
	}
	return i, nil
}

// --- globals: section ---

func parseGlobals(lines []srcLine, i int, m *Module) (int, error) {
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i].text)
		if isSectionOrFuncOrEntry(trimmed) {
			return i, nil
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 3 || fields[0] != "global" {
			return i, perr(lines[i].no, "expected global line, got %q", trimmed)
		}
		g := Global{Name: fields[1], Type: fields[2], Index: uint32(len(m.Globals))}
		for _, kv := range fields[3:] {
			k, v, _ := strings.Cut(kv, "=")
			if k == "init" {
				g.Init = v
			}
		}
		m.Globals = append(m.Globals, g)
		i++
	}
	return i, nil
}

// --- imports: section ---

func parseImports(lines []srcLine, i int, m *Module) (int, error) {
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i].text)
		if isSectionOrFuncOrEntry(trimmed) {
			return i, nil
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 4 || fields[0] != "import" {
			return i, perr(lines[i].no, "expected import line, got %q", trimmed)
		}
		imp := Import{Name: fields[1], Module: fields[2], Symbol: fields[3], Index: uint32(len(m.Imports))}
		for _, kv := range fields[4:] {
			k, v, _ := strings.Cut(kv, "=")
			switch k {
			case "sig":
				imp.Sig = v
			case "flags":
				f, err := strconv.ParseUint(v, 10, 32)
				if err == nil {
					imp.Flags = uint32(f)
				}
			}
		}
		m.Imports = append(m.Imports, imp)
		i++
	}
	return i, nil
}

// --- func ... end blocks ---

func parseFunction(lines []srcLine, i int) (int, Function, error) {
	header := strings.Fields(strings.TrimSpace(lines[i].text))
	if len(header) < 2 {
		return i, Function{}, perr(lines[i].no, "malformed func header")
	}
	fn := Function{Name: header[1]}
	for _, kv := range header[2:] {
		k, v, _ := strings.Cut(kv, "=")
		switch k {
		case "locals":
			n, err := strconv.ParseUint(v, 10, 16)
			if err != nil {
				return i, Function{}, perr(lines[i].no, "bad locals: %s", v)
			}
			fn.Locals = uint16(n)
		case "stack":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return i, Function{}, perr(lines[i].no, "bad stack: %s", v)
			}
			fn.StackMax = uint32(n)
		case "sig":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return i, Function{}, perr(lines[i].no, "bad sig: %s", v)
			}
			fn.SigID = uint32(n)
		}
	}
	i++

	bodyStart := i
	for i < len(lines) && strings.TrimSpace(lines[i].text) != "end" {
		i++
	}
	if i >= len(lines) {
		return i, Function{}, perr(lines[bodyStart].no, "unterminated func %s", fn.Name)
	}
	body := lines[bodyStart:i]
	i++ // past "end"

	code, err := lowerBody(body)
	if err != nil {
		return i, Function{}, err
	}
	fn.Code = code
	return i, fn, nil
}

// lowerBody runs the two-pass label resolution over one function's
// instruction lines: pass 1 assigns a label id to every label
// definition, pass 2 emits instructions, binding labels as they are
// reached and resolving jump targets against the table built in pass 1.
func lowerBody(body []srcLine) ([]byte, error) {
	b := bytecode.NewBuilder()
	labelIDs := map[string]bytecode.LabelID{}

	for _, l := range body {
		if name, ok := labelDef(l.text); ok {
			labelIDs[name] = b.NewLabel()
		}
	}

	for _, l := range body {
		trimmed := strings.TrimSpace(l.text)
		if trimmed == "" {
			continue
		}
		if name, ok := labelDef(l.text); ok {
			b.BindLabel(labelIDs[name])
			continue
		}
		if err := emitInstruction(b, labelIDs, l.no, trimmed); err != nil {
			return nil, err
		}
	}

	code, err := b.Finish()
	if err != nil {
		return nil, perr(0, "%s", err)
	}
	return code, nil
}

// labelDef reports whether a line is a bare label definition ("name:"),
// as opposed to an instruction that happens to take a label argument.
func labelDef(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, ":") && !strings.Contains(trimmed, " ") && len(trimmed) > 1 {
		return strings.TrimSuffix(trimmed, ":"), true
	}
	return "", false
}

func resolveLabel(labels map[string]bytecode.LabelID, lineNo int, name string) (bytecode.LabelID, error) {
	id, ok := labels[name]
	if !ok {
		return 0, perr(lineNo, "unknown label: %s", name)
	}
	return id, nil
}

func parseUintTok(lineNo int, tok string) (uint64, error) {
	v, err := strconv.ParseUint(tok, 0, 64) // base 0 accepts 0x/0b/decimal
	if err != nil {
		return 0, perr(lineNo, "bad numeric literal: %s", tok)
	}
	return v, nil
}

func parseIntTok(lineNo int, tok string) (int64, error) {
	v, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		return 0, perr(lineNo, "bad numeric literal: %s", tok)
	}
	return v, nil
}
