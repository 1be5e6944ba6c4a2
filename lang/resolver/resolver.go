// The block-scoped resolution algorithm here (chained block scopes inside a
// function, function scopes chained across a file for free-variable
// capture) follows the general approach of the Starlark-go resolver:
// https://github.com/google/starlark-go/tree/master/syntax/resolve.go
package resolver

import (
	"fmt"
	"strings"
)

type block struct {
	parent         *block
	names          map[string]*Symbol
	offset         int // base index in the enclosing function's locals
	numDefinitions int
}

func newBlock(parent *block, offset int) *block {
	return &block{parent: parent, names: make(map[string]*Symbol), offset: offset}
}

// Func is the symbol-table state for one compiled function body (or a
// file's implicit top-level function).
type Func struct {
	parent *Func // lexically enclosing function within the same file, nil at file top level
	top    *block

	MaxDefinitions int      // high-water mark of locals needed, emitted as num_locals
	FreeSymbols    []Symbol // originals, in the enclosing scope's own kind, in capture order
}

func newFunc(parent *Func) *Func {
	f := &Func{parent: parent}
	f.top = newBlock(nil, 0)
	return f
}

// PushBlock enters a nested block scope (if/while/for body, etc.).
func (f *Func) PushBlock() {
	f.top = newBlock(f.top, f.top.offset+f.top.numDefinitions)
}

// PopBlock exits the current block scope.
func (f *Func) PopBlock() {
	f.top = f.top.parent
}

// Table is the symbol table for one file scope. File scopes chain to an
// outer file scope (the importing file) to resolve free variables across
// an import boundary; see Resolve.
type Table struct {
	outer        *Table
	hostGlobals  map[string]int
	moduleNames  map[string]int // exported module-global symbols, by name -> index
	moduleOrder  []string
	nextModIndex int
	fn           *Func // current function scope; the file-level Func when fn.parent==nil
}

// NewTable creates a file-level symbol table. outer is the importing file's
// table, or nil for the outermost file. hostGlobals is the embedder's
// global store, shared by the whole program.
func NewTable(outer *Table, hostGlobals map[string]int) *Table {
	return &Table{
		outer:       outer,
		hostGlobals: hostGlobals,
		moduleNames: make(map[string]int),
		fn:          newFunc(nil),
	}
}

// PushFunc enters a new function literal's scope.
func (t *Table) PushFunc() { t.fn = newFunc(t.fn) }

// PopFunc exits the current function literal's scope, returning it (the
// compiler reads MaxDefinitions/FreeSymbols from it once popped).
func (t *Table) PopFunc() *Func {
	f := t.fn
	t.fn = f.parent
	return f
}

// PushBlock/PopBlock delegate to the current function's block stack.
func (t *Table) PushBlock() { t.fn.PushBlock() }
func (t *Table) PopBlock()  { t.fn.PopBlock() }

// AtModuleScope reports whether the current scope has no enclosing
// function. A definition inside a nested block (an if/while body, say) at
// the top level of a file is still module-global, per spec: only function
// nesting, not block nesting, switches a definition's kind to local.
func (t *Table) AtModuleScope() bool { return t.fn.parent == nil }

// ModuleGlobals returns the module-global symbols exported by this file
// scope, in definition order, for installation into an importer as
// `module::name`.
func (t *Table) ModuleGlobals() []string { return t.moduleOrder }

// Define declares an assignable (`var`) binding in the current block scope.
func (t *Table) Define(name string) (Symbol, error) {
	return t.define(name, true)
}

// DefineConst declares a non-assignable (`const`) binding in the current
// block scope; the compiler rejects any later SET against it.
func (t *Table) DefineConst(name string) (Symbol, error) {
	return t.define(name, false)
}

func (t *Table) define(name string, assignable bool) (Symbol, error) {
	if strings.Contains(name, "::") {
		return Symbol{}, fmt.Errorf("invalid name %q: module-qualified names are reserved", name)
	}
	if name == "this" {
		return Symbol{}, fmt.Errorf("invalid name %q: reserved identifier", name)
	}
	if _, ok := t.hostGlobals[name]; ok {
		return Symbol{}, fmt.Errorf("invalid name %q: shadows a host global", name)
	}

	blk := t.fn.top
	if _, ok := blk.names[name]; ok {
		return Symbol{}, fmt.Errorf("name %q is already defined in this scope", name)
	}

	var sym Symbol
	if t.AtModuleScope() {
		sym = Symbol{Name: name, Scope: ModuleGlobal, Index: t.nextModIndex, Assignable: assignable}
		t.nextModIndex++
		t.moduleNames[name] = sym.Index
		t.moduleOrder = append(t.moduleOrder, name)
	} else {
		sym = Symbol{Name: name, Scope: Local, Index: blk.offset + blk.numDefinitions, Assignable: assignable}
		blk.numDefinitions++
		if blk.offset+blk.numDefinitions > t.fn.MaxDefinitions {
			t.fn.MaxDefinitions = blk.offset + blk.numDefinitions
		}
	}
	blk.names[name] = &sym
	return sym, nil
}

// DefineImportedGlobal installs a qualified `path::name` module-global
// binding for one export of an imported file, in this table's own
// module-global index space. Unlike Define, it accepts names containing
// "::" (the compiler is the only caller, never user source) and is always
// non-assignable: an imported binding cannot be reassigned by the importer.
// It does not appear in ModuleGlobals, since it is not an export of this
// file itself.
func (t *Table) DefineImportedGlobal(qualifiedName string) (Symbol, error) {
	if _, ok := t.fn.top.names[qualifiedName]; ok {
		return Symbol{}, fmt.Errorf("name %q is already defined in this scope", qualifiedName)
	}
	sym := Symbol{Name: qualifiedName, Scope: ModuleGlobal, Index: t.nextModIndex, Assignable: false}
	t.nextModIndex++
	t.moduleNames[qualifiedName] = sym.Index
	t.fn.top.names[qualifiedName] = &sym
	return sym, nil
}

// DefineFunctionSelf installs the function-self binding (direct recursion
// by name) in the current function's top block scope.
func (t *Table) DefineFunctionSelf(name string) {
	sym := &Symbol{Name: name, Scope: FunctionSelf}
	t.fn.top.names[name] = sym
}

// DefineThis installs the synthesized "this" binding in the current
// function's top block scope.
func (t *Table) DefineThis() {
	sym := &Symbol{Name: "this", Scope: This}
	t.fn.top.names["this"] = sym
}

// Resolve implements the resolution algorithm:
//  1. host globals first;
//  2. walk the current file scope's function/block stack, innermost first;
//  3. a symbol found in an enclosing function of the same file (including a
//     "this" or "function-self" binding) is promoted to a chain of Free
//     symbols down to the currently active function (capture);
//  4. otherwise, if an outer file scope exists, recurse there; a
//     module-global or host-global result there is returned as-is,
//     anything else is captured as a free symbol in the current scope;
//  5. otherwise, Undefined.
func (t *Table) Resolve(name string) (Symbol, bool) {
	if idx, ok := t.hostGlobals[name]; ok {
		return Symbol{Name: name, Scope: HostGlobal, Index: idx}, true
	}

	if sym, owner, ok := t.lookupLocal(name); ok {
		return t.captureAcrossFuncs(name, sym, owner), true
	}

	if t.outer != nil {
		if sym, ok := t.outer.Resolve(name); ok {
			if sym.Scope == ModuleGlobal || sym.Scope == HostGlobal {
				return sym, true
			}
			return t.defineFree(sym), true
		}
	}
	return Symbol{}, false
}

// lookupLocal walks this file scope's function chain (innermost function
// first, then its enclosing functions within the same file), and within
// each function its block-scope stack, innermost block first.
func (t *Table) lookupLocal(name string) (sym Symbol, owner *Func, ok bool) {
	for fn := t.fn; fn != nil; fn = fn.parent {
		for blk := fn.top; blk != nil; blk = blk.parent {
			if s, found := blk.names[name]; found {
				return *s, fn, true
			}
		}
	}
	return Symbol{}, nil, false
}

// captureAcrossFuncs promotes sym into a chain of Free symbols from the
// function that owns it (owner) down to the currently active function
// (t.fn), so that every intermediate nested function also sees it as Free.
// If owner == t.fn, no promotion is needed.
func (t *Table) captureAcrossFuncs(name string, sym Symbol, owner *Func) Symbol {
	if owner == t.fn || sym.Scope == ModuleGlobal {
		return sym
	}

	var chain []*Func
	for fn := t.fn; fn != owner; fn = fn.parent {
		chain = append(chain, fn)
	}
	cur := sym
	for i := len(chain) - 1; i >= 0; i-- {
		cur = chain[i].defineFreeSymbol(name, cur)
	}
	return cur
}

// defineFree promotes sym (already resolved in the outer file scope) into a
// free symbol of the current function scope.
func (t *Table) defineFree(sym Symbol) Symbol {
	return t.fn.defineFreeSymbol(sym.Name, sym)
}

// defineFreeSymbol appends a copy of original to f.FreeSymbols and installs
// (or reuses) a Free-kind symbol for it in f's top block scope.
func (f *Func) defineFreeSymbol(name string, original Symbol) Symbol {
	if existing, ok := f.top.names[name]; ok && existing.Scope == Free {
		return *existing
	}
	idx := len(f.FreeSymbols)
	f.FreeSymbols = append(f.FreeSymbols, original)
	sym := &Symbol{Name: name, Scope: Free, Index: idx, Assignable: original.Assignable}
	f.top.names[name] = sym
	return *sym
}
