package maincmd

import (
	"context"
	"fmt"
	"io"

	"github.com/briarlang/briar/lang/machine"
	"github.com/chzyer/readline"
	"github.com/mna/mainer"
)

const (
	replPrompt       = "> "
	replResultPrefix = "= "
)

// repl runs an interactive read-eval-print loop against mctx, entered when
// the CLI is given neither -e nor a file (spec.md §6: "with no positional
// and no -e, enters a REPL loop when readline is available").
func repl(ctx context.Context, mctx *machine.Context, stdio mainer.Stdio) error {
	mctx.SetReplMode(true)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            replPrompt,
		HistoryFile:       "",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             io.NopCloser(stdio.Stdin),
		Stdout:            stdio.Stdout,
		Stderr:            stdio.Stderr,
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	rl.CaptureExitSignal()

	for i := 1; ; i++ {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		v := mctx.ExecuteSource(fmt.Sprintf("<repl:%d>", i), line)
		if n := mctx.ErrorCount(); n > 0 {
			if err := reportErrors(mctx, stdio); err != nil {
				fmt.Fprintln(stdio.Stderr, err)
			}
			continue
		}
		fmt.Fprintf(stdio.Stdout, "%s%s\n", replResultPrefix, v.String())
	}
}
