package machine

import (
	"io"
	"time"

	"github.com/briarlang/briar/lang/compiler"
	"github.com/briarlang/briar/lang/token"
)

// MaxValueStack, MaxFrames and MaxThisStack are the VM's fixed stack
// capacities (spec.md §4.7/§5: "stack/frame/this-stack fixed capacity
// 2048, overflow is fatal runtime error").
const (
	MaxValueStack = 2048
	MaxFrames     = 2048
	MaxThisStack  = 2048
)

// Context is one embeddable interpreter instance: the spec's "context"
// (make_context/destroy_context in spec.md §6). It owns the value/frame/
// this stacks, the heap, host globals, I/O callbacks, the optional
// execution deadline, and the pending error list. A Context runs at most
// one program at a time and is not safe for concurrent use (spec.md §5).
type Context struct {
	fset *token.FileSet

	heap *Heap

	hostGlobalNames  map[string]int
	hostGlobalValues []Value

	// moduleCache holds the already-evaluated export array per canonical
	// import path, so that importing the same module twice runs its init
	// code once (spec.md §8 property 10); ClearModuleCache forces the next
	// import to run it again.
	moduleCache map[string]moduleRecord

	stack     []Value
	sp        int
	frames    []Frame
	thisStack []Value
	thisSP    int

	lastPopped Value

	// instrCount counts instructions executed by the current Run, sampled
	// against the deadline every instrPerDeadlineCheck steps.
	instrCount int

	running  bool
	replMode bool

	deadline    time.Time
	hasDeadline bool

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	// fileRead and fileWrite are the spec.md §6 set_file_read/set_file_write
	// callbacks; nil means ReadFile/WriteFile fall back to the os package.
	fileRead  FileReader
	fileWrite FileWriter

	// compileCache holds compiled modules by canonical import path across
	// every ExecuteSource/ExecuteFile call on this context, distinct from
	// moduleCache (which holds already-*evaluated* module exports, looked up
	// when a module-init function is called): this one lets a second
	// execute_file avoid
	// recompiling a module the first execute_file already compiled.
	compileCache compiler.Cache

	errors ErrorList

	// opOverloadKeys interns the conventional operator-overload method
	// names (spec.md §4.7: "__operator_add__", ...) once at construction so
	// the VM never allocates a fresh string for a map lookup on the hot
	// path.
	opOverloadKeys map[string]String
}

type moduleRecord struct {
	exports []Value
}

// NewContext constructs a fresh, idle interpreter context.
func NewContext() *Context {
	ctx := &Context{
		fset:            token.NewFileSet(),
		heap:            newHeap(),
		hostGlobalNames: make(map[string]int),
		moduleCache:     make(map[string]moduleRecord),
		compileCache:    compiler.Cache{},
		stack:           make([]Value, MaxValueStack),
		frames:          make([]Frame, 0, MaxFrames),
		thisStack:       make([]Value, MaxThisStack),
		stdout:          io.Discard,
		stderr:          io.Discard,
		lastPopped:      Null,
	}
	ctx.opOverloadKeys = make(map[string]String, len(overloadNames))
	for _, n := range overloadNames {
		ctx.opOverloadKeys[n] = String(n)
	}
	ctx.SetNativeFunction("tostring", nil, tostringNative)
	return ctx
}

// overloadNames lists every conventionally-named operator-overload method
// spec.md §4.7 defines.
var overloadNames = []string{
	"__operator_add__", "__operator_sub__", "__operator_mul__",
	"__operator_div__", "__operator_mod__",
	"__operator_or__", "__operator_xor__", "__operator_and__",
	"__operator_lshift__", "__operator_rshift__",
	"__operator_minus__", "__operator_bang__",
	"__cmp__",
}

// FileSet returns the context's shared position table, for the compiler and
// embedding API to register source files into.
func (ctx *Context) FileSet() *token.FileSet { return ctx.fset }

// SetReplMode toggles REPL parsing (spec.md §6's set_repl_mode): when on,
// a `{ ... }` in statement position parses as a map literal rather than a
// block (parser.ReplMode); it has no other effect on compilation or
// execution.
func (ctx *Context) SetReplMode(v bool) { ctx.replMode = v }

// SetTimeout arms (ms > 0) or disables (ms < 0) a wall-clock execution
// deadline, sampled every 1000 instructions per spec.md §4.7/§5.
func (ctx *Context) SetTimeout(ms int) {
	if ms < 0 {
		ctx.hasDeadline = false
		return
	}
	ctx.deadline = time.Now().Add(time.Duration(ms) * time.Millisecond)
	ctx.hasDeadline = true
}

func (ctx *Context) SetStdout(w io.Writer) { ctx.stdout = w }
func (ctx *Context) SetStderr(w io.Writer) { ctx.stderr = w }
func (ctx *Context) SetStdin(r io.Reader)  { ctx.stdin = r }

// SetGlobal installs (or overwrites) a host global binding, making name
// resolve via GET_HOST_GLOBAL in any chunk compiled against this context
// from this point on.
func (ctx *Context) SetGlobal(name string, v Value) {
	if idx, ok := ctx.hostGlobalNames[name]; ok {
		ctx.hostGlobalValues[idx] = v
		return
	}
	idx := len(ctx.hostGlobalValues)
	ctx.hostGlobalNames[name] = idx
	ctx.hostGlobalValues = append(ctx.hostGlobalValues, v)
}

// HostGlobalNames exposes the name->index table for the compiler's
// hostGlobals parameter.
func (ctx *Context) HostGlobalNames() map[string]int { return ctx.hostGlobalNames }

// NewExternal wraps data as an opaque script value named by typeName and
// registers it with the context's heap, so destroy runs once the value
// becomes unreachable and is swept.
func (ctx *Context) NewExternal(typeName string, data any, destroy func(data any)) *External {
	return ctx.heap.NewExternal(NewExternal(typeName, data, destroy))
}

// GetError, ErrorCount and ClearErrors implement spec.md §6's error
// introspection surface.
func (ctx *Context) GetError(i int) *RuntimeError {
	if i < 0 || i >= ctx.errors.Len() {
		return nil
	}
	return ctx.errors.At(i)
}
func (ctx *Context) ErrorCount() int { return ctx.errors.Len() }
func (ctx *Context) ClearErrors()    { ctx.errors.Clear() }

// ClearModuleCache forces the next import of any module to recompile and
// re-run its init code, per spec.md §8 property 10.
func (ctx *Context) ClearModuleCache() {
	ctx.moduleCache = make(map[string]moduleRecord)
	ctx.compileCache = compiler.Cache{}
}

// LastPopped returns the last value popped from the operand stack by the
// most recent execution, the "last-popped" result spec.md's S1-S7 scenarios
// check.
func (ctx *Context) LastPopped() Value { return ctx.lastPopped }
