package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/JJLDonley/Simple-sub005/lang/irtext"
)

// Dasm implements the dasm command: parse a textual SIR module and
// print it back out, exercising the same parse/render round trip
// parse_test.go checks at the package level.
func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return DasmFiles(ctx, stdio, args...)
}

func DasmFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	for _, path := range files {
		text, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}

		m, err := irtext.Parse(string(text))
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}

		fmt.Fprint(stdio.Stdout, irtext.Dasm(m))
	}
	return nil
}
