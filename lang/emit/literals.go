package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JJLDonley/Simple-sub005/lang/ast"
)

// parseIntegerLiteralText parses a decimal, 0x-hex, or 0b-binary
// integer literal's source text, grounded on
// original_source/Lang/src/sir/lang_literals.cpp's
// ParseIntegerLiteralText.
func parseIntegerLiteralText(text string) (int64, bool) {
	switch {
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		v, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		return int64(v), true
	case strings.HasPrefix(text, "0b") || strings.HasPrefix(text, "0B"):
		v, err := strconv.ParseUint(text[2:], 2, 64)
		if err != nil {
			return 0, false
		}
		return int64(v), true
	default:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
}

// escapeStringLiteral renders value as the const table's text form:
// control characters and quotes escaped, matching
// EscapeStringLiteral's table (\n \r \t \" \\, \xHH for other control
// bytes).
func escapeStringLiteral(value string) string {
	var sb strings.Builder
	sb.Grow(len(value))
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch ch {
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			if ch < 0x20 {
				fmt.Fprintf(&sb, `\x%02X`, ch)
			} else {
				sb.WriteByte(ch)
			}
		}
	}
	return sb.String()
}

// decodeCharLiteral takes a char literal's raw source text (quoted or
// bare) and returns its codepoint, stripping a single layer of
// surrounding single quotes if present.
func decodeCharLiteral(raw string) rune {
	s := raw
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
	}
	for _, r := range s {
		return r
	}
	return 0
}

// countFormatPlaceholders scans a core.log format string for "{}"
// placeholders, grounded on
// original_source/Lang/src/sir/lang_errors.cpp's
// CountFormatPlaceholders: a bare '{' must be followed immediately by
// '}', and a '}' may never appear unpaired.
func countFormatPlaceholders(format string) (count int, err error) {
	for i := 0; i < len(format); i++ {
		switch format[i] {
		case '{':
			if i+1 >= len(format) || format[i+1] != '}' {
				return 0, errf("invalid format string: expected '{}' placeholder")
			}
			count++
			i++
		case '}':
			return 0, errf("invalid format string: unmatched '}'")
		}
	}
	return count, nil
}

// internLit interns a BasicLit into the documentation consts: table
// and returns the assigned const name, the scalar type it was emitted
// as, and opnd — the operand text the const.TYPE line must carry.
// Every scalar kind but string inlines its literal value directly as
// opnd (const.i32/.bool/.char/… take the value itself, per
// lang/irtext's emitConst); only const.string takes a const-table
// index, since a string's bytes live in the runtime's string table
// rather than on the operand stack. Untyped integer literals default
// to i32 and untyped float literals to f64 when no wider context (want)
// narrows them.
func (st *state) internLit(lit *ast.BasicLit, want string) (name, typ, opnd string) {
	switch lit.Kind {
	case ast.LitInt:
		t := want
		if t == "" {
			t = "i32"
		}
		v, _ := parseIntegerLiteralText(lit.Raw)
		text := strconv.FormatInt(v, 10)
		name, _ := st.internConst(t, text)
		return name, t, text
	case ast.LitFloat:
		t := want
		if t == "" {
			t = "f64"
		}
		name, _ := st.internConst(t, lit.Raw)
		return name, t, lit.Raw
	case ast.LitBool:
		text := "false"
		if lit.Raw == "true" {
			text = "true"
		}
		name, _ := st.internConst("bool", text)
		return name, "bool", text
	case ast.LitChar:
		text := strconv.FormatInt(int64(decodeCharLiteral(lit.Raw)), 10)
		name, _ := st.internConst("char", text)
		return name, "char", text
	case ast.LitString:
		text := `"` + escapeStringLiteral(lit.Raw) + `"`
		name, idx := st.internConst("string", text)
		return name, "string", strconv.Itoa(idx)
	case ast.LitNull:
		name, _ := st.internConst("null", "")
		return name, "ref", ""
	default:
		name, _ := st.internConst("i32", "0")
		return name, "i32", "0"
	}
}
