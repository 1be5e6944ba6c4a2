package compiler

// SourceLoader resolves an `import "path"` statement to source bytes. It is
// the compiler's sole injection point for file I/O, keeping the compiler
// package itself free of filesystem access; the host embedding this module
// supplies the implementation (e.g. relative-to-fromDir disk reads).
type SourceLoader interface {
	// Load resolves path as imported from a file in directory fromDir, and
	// returns a canonical form of path (used for import-cycle detection and
	// as the module cache key) plus the resolved file's contents.
	Load(fromDir, path string) (canonical string, src []byte, err error)
}

// Cache holds compiled modules by canonical import path, shared across a
// family of Compile calls that import one another. The embedder owns it and
// may clear it (e.g. assign a fresh Cache{}) to force modules to be
// re-loaded and re-compiled on the next run, satisfying the reload-on-
// cache-clear property of import idempotence.
type Cache map[string]*CompilationResult
