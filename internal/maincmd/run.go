package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/JJLDonley/Simple-sub005/lang/irtext"
	"github.com/JJLDonley/Simple-sub005/lang/machine"
)

// Run implements the run command: parse a textual SIR module and
// execute its entry function to completion.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFiles(ctx, stdio, c.MaxSteps, args...)
}

// RunFiles parses and executes each file in turn, stopping at the
// first one that fails to parse or traps — the textual IR is
// machine-generated, not hand-edited source, so §7 treats a malformed
// module as a single fatal error rather than something to accumulate
// and keep going past.
func RunFiles(ctx context.Context, stdio mainer.Stdio, maxSteps int, files ...string) error {
	for _, path := range files {
		text, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}

		m, err := irtext.Parse(string(text))
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}

		th := &machine.Thread{
			Name:     path,
			Stdout:   stdio.Stdout,
			Stderr:   stdio.Stderr,
			Stdin:    stdio.Stdin,
			MaxSteps: maxSteps,
		}
		ret, err := th.RunProgram(ctx, m)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
		fmt.Fprintln(stdio.Stdout, ret.I64())
	}
	return nil
}
