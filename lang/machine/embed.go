package machine

import (
	"context"
	"os"
	"path"

	"github.com/briarlang/briar/lang/compiler"
	"github.com/briarlang/briar/lang/parser"
	"github.com/briarlang/briar/lang/token"
)

// FileReader resolves an import or execute_file path to its source bytes,
// spec.md §6's set_file_read callback. NewContext installs none; while none
// is set, ReadFile falls back to os.ReadFile.
type FileReader func(path string) ([]byte, error)

// FileWriter persists bytes to path, spec.md §6's set_file_write callback.
// NewContext installs none; while none is set, WriteFile falls back to
// os.WriteFile.
type FileWriter func(path string, data []byte) error

// SetFileRead installs the callback execute_file and import resolution use
// to load source from disk (or wherever the embedder chooses).
func (ctx *Context) SetFileRead(fn FileReader) { ctx.fileRead = fn }

// SetFileWrite installs the callback any native function wanting to write a
// file uses instead of reaching for the os package directly.
func (ctx *Context) SetFileWrite(fn FileWriter) { ctx.fileWrite = fn }

// ReadFile invokes the context's installed file-read callback, falling back
// to os.ReadFile if none was set.
func (ctx *Context) ReadFile(path string) ([]byte, error) {
	if ctx.fileRead != nil {
		return ctx.fileRead(path)
	}
	return os.ReadFile(path)
}

// WriteFile invokes the context's installed file-write callback, falling
// back to os.WriteFile if none was set.
func (ctx *Context) WriteFile(path string, data []byte) error {
	if ctx.fileWrite != nil {
		return ctx.fileWrite(path, data)
	}
	return os.WriteFile(path, data, 0o644)
}

// SetNativeFunction builds a NativeFunction around body and installs it as
// a global named name in one step, spec.md §6's set_native_function.
func (ctx *Context) SetNativeFunction(name string, userData any, body func(ctx *Context, userData any, args []Value) (Value, error)) {
	ctx.SetGlobal(name, NewNativeFunction(name, userData, body))
}

// sourceLoader adapts a Context's file-read callback to compiler.SourceLoader,
// the compiler's sole filesystem seam: an import path is resolved relative
// to the importing file's directory, given a ".briar" suffix when it has no
// extension, and canonicalized with path.Join so the same file reached via
// two different relative paths shares one cache entry and runs its module
// init exactly once.
type sourceLoader struct{ ctx *Context }

func (l sourceLoader) Load(fromDir, importPath string) (string, []byte, error) {
	canonical := path.Join(fromDir, importPath)
	if path.Ext(canonical) == "" {
		canonical += ".briar"
	}
	src, err := l.ctx.ReadFile(canonical)
	if err != nil {
		return "", nil, err
	}
	return canonical, src, nil
}

// compileMode returns the parser/compiler Mode matching the context's
// current settings (spec.md §6 set_repl_mode's map-literal disambiguation).
func (ctx *Context) compileMode() parser.Mode {
	if ctx.replMode {
		return parser.ReplMode
	}
	return 0
}

// execute parses src (registered in the context's FileSet under filename),
// compiles it against this context's host globals and import cache, and
// runs it as a fresh top-level program, the shared core of ExecuteSource
// and ExecuteFile. A parse or compile failure is recorded to the context's
// error list as a ParsingError/CompilationError and Null is returned,
// matching spec.md §6's "execute_source/execute_file -> Value (null on
// error)".
func (ctx *Context) execute(filename string, src []byte) Value {
	chunk, err := parser.ParseChunk(context.Background(), ctx.compileMode(), ctx.fset, filename, src)
	if err != nil {
		ctx.errors.Addf(ParsingError, ctx.fset.Position(token.NoPos), "%s", err)
		return Null
	}

	res, err := compiler.Compile(ctx.fset, ctx.compileMode(), chunk, "", ctx.hostGlobalNames, sourceLoader{ctx}, ctx.compileCache)
	if err != nil {
		ctx.errors.Addf(CompilationError, ctx.fset.Position(token.NoPos), "%s", err)
		return Null
	}

	fn := NewFunction(res)
	val, err := ctx.Run(fn, nil)
	if err != nil {
		if rerr, ok := err.(*RuntimeError); ok {
			ctx.errors.Add(rerr)
		} else {
			ctx.errors.Addf(RuntimeErrorKind, ctx.fset.Position(token.NoPos), "%s", err)
		}
		return Null
	}
	return val
}

// ExecuteSource compiles and runs text as a new top-level program named
// filename (used only for error positions and as the import-resolution
// base, via path.Dir(filename)), spec.md §6's execute_source.
func (ctx *Context) ExecuteSource(filename, text string) Value {
	if filename == "" {
		filename = "<source>"
	}
	return ctx.execute(filename, []byte(text))
}

// ExecuteFile reads path via the context's file-read callback, then
// compiles and runs it as a new top-level program, spec.md §6's
// execute_file. Imports within the file resolve relative to path's
// directory.
func (ctx *Context) ExecuteFile(path string) Value {
	src, err := ctx.ReadFile(path)
	if err != nil {
		ctx.errors.Addf(UserError, ctx.fset.Position(token.NoPos), "reading %q: %s", path, err)
		return Null
	}
	return ctx.execute(path, src)
}

// DestroyContext releases ctx's heap, compiled-module cache and pending
// error list, spec.md §6's destroy_context. Go's garbage collector reclaims
// the underlying memory once ctx itself becomes unreachable; this method
// exists so embedders following the spec's make_context/destroy_context
// pairing have an explicit, symmetric call to make, and so a context that
// is kept around after destruction (a bug in the embedder) fails loudly
// rather than silently leaking state from a previous program.
func (ctx *Context) DestroyContext() {
	ctx.heap = nil
	ctx.moduleCache = nil
	ctx.compileCache = nil
	ctx.errors.Clear()
	ctx.stack = nil
	ctx.frames = nil
	ctx.thisStack = nil
}
