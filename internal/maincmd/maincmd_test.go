package maincmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"

	"github.com/JJLDonley/Simple-sub005/internal/maincmd"
)

const sample = `
func main locals=0 stack=2 sig=0
  const.i32 40
  const.i32 2
  add.i32
  ret 1
end
entry main
`

func writeSample(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.sir")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestRunFilesReturnsEntryResult(t *testing.T) {
	path := writeSample(t, sample)

	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}

	err := maincmd.RunFiles(context.Background(), stdio, 0, path)
	require.NoError(t, err)
	require.Equal(t, "42\n", out.String())
	require.Empty(t, errOut.String())
}

func TestRunFilesReportsParseError(t *testing.T) {
	path := writeSample(t, "func main locals=0 stack=0 sig=0\n  bogus.op\nend\nentry main\n")

	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}

	err := maincmd.RunFiles(context.Background(), stdio, 0, path)
	require.Error(t, err)
	require.Contains(t, errOut.String(), path)
}

func TestRunFilesTrapsStepLimit(t *testing.T) {
	loop := `
func main locals=0 stack=1 sig=0
l0:
  const.i32 1
  pop
  jmp l0
end
entry main
`
	path := writeSample(t, loop)

	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}

	err := maincmd.RunFiles(context.Background(), stdio, 1000, path)
	require.Error(t, err)
	require.Contains(t, errOut.String(), path)
}

func TestDasmFilesRoundTrips(t *testing.T) {
	path := writeSample(t, sample)

	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}

	err := maincmd.DasmFiles(context.Background(), stdio, path)
	require.NoError(t, err)
	require.Empty(t, errOut.String())
	require.True(t, strings.Contains(out.String(), "func main"))
	require.True(t, strings.Contains(out.String(), "entry main"))
}

func TestCmdValidateRequiresFileForRun(t *testing.T) {
	c := &maincmd.Cmd{}
	c.SetArgs([]string{"run"})
	c.SetFlags(map[string]bool{})
	err := c.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least one file")
}

func TestCmdValidateRejectsUnknownCommand(t *testing.T) {
	c := &maincmd.Cmd{}
	c.SetArgs([]string{"frobnicate"})
	c.SetFlags(map[string]bool{})
	err := c.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown command")
}
