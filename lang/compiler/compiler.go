// Package compiler walks a resolved AST and emits a linear bytecode program
// for the stack machine. Unlike the CFG-based compiler this package was
// originally adapted from, it does not build a control-flow graph or use
// variable-length jump operands: it emits instructions in one linear pass,
// recording the IP of each forward jump and patching its fixed 2-byte
// operand once the target is known, exactly as described in the bytecode
// specification's emitter section.
package compiler

import (
	"fmt"
	"path"

	"github.com/briarlang/briar/lang/ast"
	"github.com/briarlang/briar/lang/parser"
	"github.com/briarlang/briar/lang/resolver"
	"github.com/briarlang/briar/lang/scanner"
	"github.com/briarlang/briar/lang/token"
)

// compilation is the state shared across one file and every file it
// transitively imports: the module cache, the currently-open import chain
// (for cycle detection), and accumulated errors.
type compilation struct {
	fset        *token.FileSet
	loader      SourceLoader
	hostGlobals map[string]int
	mode        parser.Mode
	cache       Cache
	stack       []string
	errs        scanner.ErrorList
}

// Compile compiles chunk (already parsed from filename) into a
// CompilationResult, recursively loading, parsing and compiling any files
// it imports via loader. importPath is chunk's own canonical identity, used
// if this chunk is itself reachable as an import target; leave it empty
// for a program's own entry file, which cannot be imported. cache is
// shared across Compile calls within one embedding context: pass a fresh
// Cache{} for a clean run, or reuse one to skip recompiling already-seen
// modules, or replace it with a fresh Cache{} to force a reload.
func Compile(fset *token.FileSet, mode parser.Mode, chunk *ast.Chunk, importPath string, hostGlobals map[string]int, loader SourceLoader, cache Cache) (*CompilationResult, error) {
	comp := &compilation{fset: fset, loader: loader, hostGlobals: hostGlobals, mode: mode, cache: cache}
	if comp.cache == nil {
		comp.cache = Cache{}
	}
	res := comp.compileChunk(chunk, importPath, false)
	return res, comp.errs.Err()
}

// compileChunk compiles one already-parsed file, handling the module cache
// and import-cycle bookkeeping around the actual per-file compilation.
func (comp *compilation) compileChunk(chunk *ast.Chunk, canonicalPath string, isImport bool) *CompilationResult {
	if canonicalPath != "" {
		if cached, ok := comp.cache[canonicalPath]; ok {
			return cached
		}
		for _, onStack := range comp.stack {
			if onStack == canonicalPath {
				comp.errs.Add(token.Position{Filename: chunk.Name},
					fmt.Sprintf("import cycle detected: %q imports itself transitively", canonicalPath))
				return nil
			}
		}
		comp.stack = append(comp.stack, canonicalPath)
		defer func() { comp.stack = comp.stack[:len(comp.stack)-1] }()
	}

	fc := &fileCompiler{
		comp:  comp,
		table: resolver.NewTable(nil, comp.hostGlobals),
		path:  canonicalPath,
	}
	if fc.path == "" {
		// an entry file resolves its imports relative to its own name
		fc.path = chunk.Name
	}
	fc.pushFunc("", nil)
	fc.compileStmts(chunk.Block.Stmts)

	endPos, _ := chunk.Span()
	if isImport {
		fc.emitModuleInitReturn(endPos)
	} else {
		fc.sc.emit0(endPos, RETURN)
	}

	result, _ := fc.popFunc()
	result.Path = canonicalPath
	result.IsModuleInit = isImport
	result.ModuleGlobals = fc.table.ModuleGlobals()

	if canonicalPath != "" {
		comp.cache[canonicalPath] = result
	}
	return result
}

// compileImport resolves, parses (if not already cached) and compiles the
// file named by stmt, installs a `path::export` module-global binding for
// each of its exports, and emits the code that invokes the compiled module
// body and scatters its exported values into those bindings.
func (fc *fileCompiler) compileImport(stmt *ast.ImportStmt) {
	if !fc.table.AtModuleScope() {
		fc.errorf(stmt.ImportPos, "import must appear at the top level of a file")
		return
	}

	fromDir := path.Dir(fc.path)
	canonical, src, err := fc.comp.loader.Load(fromDir, stmt.Path)
	if err != nil {
		fc.errorf(stmt.PathPos, "importing %q: %s", stmt.Path, err)
		return
	}

	child, ok := fc.comp.cache[canonical]
	if !ok {
		childChunk, perr := parser.ParseChunk(nil, fc.comp.mode, fc.comp.fset, canonical, src)
		if perr != nil {
			fc.comp.errs.Add(token.Position{Filename: canonical}, perr.Error())
			return
		}
		child = fc.comp.compileChunk(childChunk, canonical, true)
		if child == nil {
			return
		}
	}

	prefix := stmt.Path
	for _, name := range child.ModuleGlobals {
		if _, err := fc.table.DefineImportedGlobal(prefix + "::" + name); err != nil {
			fc.errorf(stmt.PathPos, "%s", err)
			return
		}
	}

	fc.emitImportRun(stmt.ImportPos, child, prefix)
}

// emitImportRun builds a closure over child (a module-init function; it
// has no free variables, since a file's top level never closes over
// anything), calls it to get its exports as an array, and scatters the
// array's elements into the qualified bindings compileImport just
// installed, in export-order.
func (fc *fileCompiler) emitImportRun(pos token.Pos, child *CompilationResult, prefix string) {
	idx := fc.sc.addConstant(child)
	fc.sc.emitFunction(pos, idx, 0)
	fc.sc.emitU8(pos, CALL, 0)

	for i, name := range child.ModuleGlobals {
		fc.sc.emit0(pos, DUP)
		fc.sc.emitNumber(pos, float64(i))
		fc.sc.emit0(pos, GET_INDEX)
		sym, _ := fc.table.Resolve(prefix + "::" + name)
		fc.emitDefine(sym, pos)
	}
	fc.sc.emit0(pos, POP)
}

func (fc *fileCompiler) errorf(pos token.Pos, format string, args ...interface{}) {
	position := token.Position{}
	if fc.comp.fset != nil {
		position = fc.comp.fset.Position(pos)
	}
	fc.comp.errs.Add(position, fmt.Sprintf(format, args...))
}
