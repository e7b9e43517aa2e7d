package irtext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleProgram = `
; a trivial module exercising every section kind
types:
  type Point size=8 kind=artifact
  field x i32 offset=0
  field y i32 offset=4

sigs:
  sig binop: (i32, i32) -> i32

consts:
  const greeting string "hello"

globals:
  global counter i32 init=__ginit_counter

func __ginit_counter locals=0 stack=2
  const.i32 0
  ret 1
end

func main locals=0 stack=4
  const.i32 2
  const.i32 3
  add.i32
  ret 1
end

entry main
`

func TestParseSampleProgram(t *testing.T) {
	m, err := Parse(sampleProgram)
	require.NoError(t, err)
	require.Len(t, m.Types, 1)
	require.Equal(t, "Point", m.Types[0].Name)
	require.Len(t, m.Types[0].Fields, 2)
	require.Len(t, m.Sigs, 1)
	require.Equal(t, "binop", m.Sigs[0].Name)
	require.Len(t, m.Consts, 1)
	require.Len(t, m.Globals, 1)
	require.Equal(t, "main", m.Entry)
	require.Len(t, m.Functions, 2)
}

func TestParseUnknownLabelFails(t *testing.T) {
	_, err := Parse(`
func main locals=0 stack=1
  jmp nowhere
end

entry main
`)
	require.Error(t, err)
}

func TestParseMissingEntryFails(t *testing.T) {
	_, err := Parse(`
func main locals=0 stack=1
  const.i32 1
  ret 1
end
`)
	require.Error(t, err)
}

func TestDasmRoundTrip(t *testing.T) {
	m, err := Parse(`
func main locals=0 stack=4
  const.i32 2
  const.i32 3
  add.i32
  ret 1
end

entry main
`)
	require.NoError(t, err)

	text := Dasm(m)
	m2, err := Parse(text)
	require.NoError(t, err)
	require.Equal(t, m.Entry, m2.Entry)
	require.Len(t, m2.Functions, 1)
	require.Equal(t, m.Functions[0].Code, m2.Functions[0].Code)
}
