// Command briar is the thin CLI host for the briar scripting language
// described in spec.md §6: it parses flags, builds one embedding-API
// context, and either evaluates inline source, runs a file, disassembles
// compiled bytecode, or starts a REPL.
package main

import (
	"os"

	"github.com/briarlang/briar/internal/maincmd"
	"github.com/mna/mainer"
)

var (
	buildVersion = "dev"
	buildDate    = "unknown"
)

func main() {
	c := &maincmd.Cmd{BuildVersion: buildVersion, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
