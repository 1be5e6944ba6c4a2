package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/briarlang/briar/lang/compiler"
	"github.com/briarlang/briar/lang/machine"
	"github.com/briarlang/briar/lang/parser"
	"github.com/mna/mainer"
)

const binName = "briar"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [-e code] [-p pkg] [-d] [file] [arg...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<file>] [<arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Interpreter and embedding host for the briar scripting language.

With -e, evaluates the given source instead of reading a file. Otherwise
the first positional argument is the source file to run; any remaining
positional arguments are exposed to the script as the global array
"args". With no file and no -e, starts a REPL.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -e <code>                 Evaluate <code> instead of a file.
       -p <pkg>                  Name used for the evaluated chunk in
                                 error positions and -d output.
       -d                        Disassemble compiled bytecode instead
                                 of running it.
       -timeout-ms <n>           Arm a wall-clock execution deadline
                                 (negative disables). Also settable via
                                 BRIAR_TIMEOUT_MS.
`, binName)
)

// Cmd is the briar executable's flag-bound state, parsed by mainer.Parser
// from os.Args the same way the rest of this repo's tooling does.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Eval string `flag:"e"`
	Pkg  string `flag:"p"`
	Dis  bool   `flag:"d"`

	// TimeoutMS arms spec.md §6's set_timeout (negative disables); settable
	// via -timeout-ms or the BRIAR_TIMEOUT_MS environment variable.
	TimeoutMS int `flag:"timeout-ms"`

	args  []string
	flags map[string]bool
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) { c.flags = flags }

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if c.Eval != "" && c.Dis && len(c.args) > 0 {
		return errors.New("-d with -e does not take positional arguments")
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	c.TimeoutMS = -1 // default: no deadline, unless -timeout-ms/BRIAR_TIMEOUT_MS overrides it

	p := mainer.Parser{
		EnvVars:   true,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.run(ctx, stdio); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return mainer.Failure
	}
	return mainer.Success
}

// run drives the actual embedding-API call sequence: build a context, wire
// stdio and the `args` global, then either disassemble, evaluate -e,
// execute a file, or fall into the REPL, per spec.md §6's CLI contract.
func (c *Cmd) run(ctx context.Context, stdio mainer.Stdio) error {
	mctx := machine.NewContext()
	mctx.SetStdout(stdio.Stdout)
	mctx.SetStderr(stdio.Stderr)
	mctx.SetStdin(stdio.Stdin)
	mctx.SetTimeout(c.TimeoutMS)

	var (
		file       string
		scriptArgs []string
	)
	switch {
	case c.Eval != "":
		scriptArgs = c.args
	case len(c.args) > 0:
		file = c.args[0]
		scriptArgs = c.args[1:]
	}

	argv := make([]machine.Value, len(scriptArgs))
	for i, a := range scriptArgs {
		argv[i] = machine.String(a)
	}
	mctx.SetGlobal("args", machine.NewArray(argv))

	pkgName := c.Pkg
	if pkgName == "" {
		pkgName = "<source>"
	}

	switch {
	case c.Dis:
		return c.disassembleOne(mctx, stdio, file, pkgName)
	case c.Eval != "":
		mctx.ExecuteSource(pkgName, c.Eval)
		return reportErrors(mctx, stdio)
	case file != "":
		mctx.ExecuteFile(file)
		return reportErrors(mctx, stdio)
	default:
		return repl(ctx, mctx, stdio)
	}
}

// disassembleOne compiles (but does not run) either -e's source or file,
// and prints its bytecode listing, the `-d` flag's behavior.
func (c *Cmd) disassembleOne(mctx *machine.Context, stdio mainer.Stdio, file, pkgName string) error {
	var (
		src      []byte
		filename string
		err      error
	)
	if c.Eval != "" {
		src, filename = []byte(c.Eval), pkgName
	} else if file != "" {
		filename = file
		src, err = os.ReadFile(file)
		if err != nil {
			return err
		}
	} else {
		return errors.New("-d requires -e or a source file")
	}

	chunk, err := parser.ParseChunk(context.Background(), 0, mctx.FileSet(), filename, src)
	if err != nil {
		return err
	}
	res, err := compiler.Compile(mctx.FileSet(), 0, chunk, "", mctx.HostGlobalNames(), nil, nil)
	if err != nil {
		return err
	}
	disassemble(stdio.Stdout, filename, res)
	return nil
}

// reportErrors prints every pending error on mctx (accumulated by
// ExecuteSource/ExecuteFile) to stdio.Stderr and, if there were any,
// returns a non-nil error so Main reports CLI failure.
func reportErrors(mctx *machine.Context, stdio mainer.Stdio) error {
	n := mctx.ErrorCount()
	for i := 0; i < n; i++ {
		fmt.Fprintln(stdio.Stderr, mctx.GetError(i))
	}
	mctx.ClearErrors()
	if n > 0 {
		return fmt.Errorf("%d error(s)", n)
	}
	return nil
}
