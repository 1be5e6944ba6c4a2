// Package compiler walks a resolved AST and emits a linear bytecode program
// for the stack machine: a byte sequence, a parallel position sequence for
// diagnostics, and a constants pool.
package compiler

import "github.com/briarlang/briar/lang/token"

// CompilationResult is the output of compiling one function body, including
// the synthetic top-level function of a file. Bytecode and Positions always
// have the same length.
type CompilationResult struct {
	Name      string
	NumParams int
	NumLocals int
	NumFree   int

	Bytecode  []byte
	Positions []token.Pos

	// Constants holds float64, string, or *CompilationResult (a nested
	// function, referenced by the FUNCTION opcode's const operand).
	Constants []interface{}

	// ModuleGlobals lists the names of module-global symbols defined at the
	// top level of this file, in definition order; used to build the
	// `module::symbol` bindings installed by an importer.
	ModuleGlobals []string

	// Path is the canonical import path this file was compiled under, or
	// empty for the program's own entry file. The machine package keys its
	// run-once module cache on it.
	Path string

	// IsModuleInit marks a CompilationResult compiled to satisfy an import:
	// on CALL, instead of an ordinary `return`, its body's last instruction
	// gathers its own ModuleGlobals into an array and returns it, so the
	// importer can distribute the values into its own module-global slots.
	IsModuleInit bool
}
