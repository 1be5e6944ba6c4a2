package machine

import (
	"fmt"

	"github.com/briarlang/briar/lang/compiler"
)

// Function is a script-defined closure: compiled code plus the free
// variables it captured at FUNCTION-opcode time. A module's top-level code
// (its implicit init function) is represented the same way. Globals points
// to the shared module-global slot array for the file Code was compiled
// from: every function literal nested within one file shares the same
// Globals instance (module-global reads/writes are never promoted to Free,
// so they must all land in one place), while a fresh *moduleGlobals is
// created whenever Code.IsModuleInit is true -- one per imported file.
type Function struct {
	Code     *compiler.CompilationResult
	Freevars []Value
	Globals  *moduleGlobals
}

// NewFunction wraps a top-level CompilationResult (an entry chunk or a
// freshly-loaded import) as a callable Function with its own fresh
// module-global slot array, the entry point the embedding API uses to turn
// compiler output into something Context.Run can execute.
func NewFunction(code *compiler.CompilationResult) *Function {
	return &Function{Code: code, Globals: &moduleGlobals{}}
}

var _ Callable = (*Function)(nil)

func (fn *Function) String() string { return fmt.Sprintf("function(%p %s)", fn, fn.Name()) }
func (Function) Type() string       { return "function" }
func (fn *Function) Name() string {
	if fn.Code.Name == "" {
		return "anonymous"
	}
	return fn.Code.Name
}

// NativeFunction wraps a host-supplied Go function so it can be called from
// script like any other value, per spec.md's set_native_function embedding
// interface. Body receives the interpreter Context, the raw UserData the
// embedder registered it with, and the positional argument values.
type NativeFunction struct {
	name     string
	UserData any
	Body     func(ctx *Context, userData any, args []Value) (Value, error)
}

// NewNativeFunction constructs a host-callable native function value.
func NewNativeFunction(name string, userData any, body func(ctx *Context, userData any, args []Value) (Value, error)) *NativeFunction {
	return &NativeFunction{name: name, UserData: userData, Body: body}
}

var _ Callable = (*NativeFunction)(nil)

func (f *NativeFunction) String() string { return fmt.Sprintf("native_function(%s)", f.name) }
func (NativeFunction) Type() string      { return "native_function" }
func (f *NativeFunction) Name() string   { return f.name }

// External wraps an opaque, embedder-owned pointer so native code can pass
// host resources (file handles, connections, ...) through script values
// without the VM needing to understand their shape. Destroy, if non-nil, is
// invoked by the garbage collector when the external value is swept.
type External struct {
	name    string
	Data    any
	Destroy func(data any)
}

// NewExternal wraps data as an opaque script value named by typeName (used
// only for diagnostics and Type()).
func NewExternal(typeName string, data any, destroy func(data any)) *External {
	return &External{name: typeName, Data: data, Destroy: destroy}
}

func (e *External) String() string { return fmt.Sprintf("external(%s %p)", e.name, e) }
func (e *External) Type() string   { return "external:" + e.name }

// ErrorValue is the script-visible counterpart of a runtime error: a
// message plus an optional traceback, produced by a recovered runtime error
// or by the `error` native function. It is a first-class Value, distinct
// from the Go error interface used internally by the VM and embedding API.
type ErrorValue struct {
	Message   string
	Traceback []TracebackFrame
}

func (e *ErrorValue) String() string { return e.Message }
func (ErrorValue) Type() string      { return "error" }
