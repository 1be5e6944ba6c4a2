package resolver_test

import (
	"testing"

	"github.com/briarlang/briar/lang/resolver"
	"github.com/stretchr/testify/require"
)

func TestDefineModuleGlobal(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	sym, err := tbl.Define("a")
	require.NoError(t, err)
	require.Equal(t, resolver.ModuleGlobal, sym.Scope)
	require.Equal(t, 0, sym.Index)

	sym2, err := tbl.Define("b")
	require.NoError(t, err)
	require.Equal(t, 1, sym2.Index)

	require.Equal(t, []string{"a", "b"}, tbl.ModuleGlobals())
}

func TestDefineDuplicateInSameBlockErrors(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	_, err := tbl.Define("a")
	require.NoError(t, err)
	_, err = tbl.Define("a")
	require.Error(t, err)
}

func TestDefineRejectsQualifiedAndThis(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	_, err := tbl.Define("mod::a")
	require.Error(t, err)
	_, err = tbl.Define("this")
	require.Error(t, err)
}

func TestHostGlobalShadowRejected(t *testing.T) {
	tbl := resolver.NewTable(nil, map[string]int{"print": 0})
	_, err := tbl.Define("print")
	require.Error(t, err)
}

func TestResolveHostGlobal(t *testing.T) {
	tbl := resolver.NewTable(nil, map[string]int{"print": 3})
	sym, ok := tbl.Resolve("print")
	require.True(t, ok)
	require.Equal(t, resolver.HostGlobal, sym.Scope)
	require.Equal(t, 3, sym.Index)
}

func TestResolveUndefined(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	_, ok := tbl.Resolve("nope")
	require.False(t, ok)
}

func TestResolveModuleGlobalFromWithinFunction(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	_, err := tbl.Define("g")
	require.NoError(t, err)

	tbl.PushFunc()
	sym, ok := tbl.Resolve("g")
	require.True(t, ok)
	require.Equal(t, resolver.ModuleGlobal, sym.Scope)
	tbl.PopFunc()
}

// A module-global is addressed by a single flat index regardless of which
// function reads it, so even two levels deep it must resolve as-is rather
// than being promoted to a captured free variable.
func TestModuleGlobalFromDeeplyNestedFunctionIsNotPromotedToFree(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	_, err := tbl.Define("g")
	require.NoError(t, err)

	tbl.PushFunc()
	tbl.PushFunc()
	sym, ok := tbl.Resolve("g")
	require.True(t, ok)
	require.Equal(t, resolver.ModuleGlobal, sym.Scope)
	require.Equal(t, 0, sym.Index)
	tbl.PopFunc()
	tbl.PopFunc()
}

// A var declared inside a nested block at file top level (e.g. inside an
// if-body) is still module-global: only function nesting, not block
// nesting, switches a definition to local.
func TestModuleGlobalInsideTopLevelBlockStaysModuleGlobal(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	tbl.PushBlock()
	sym, err := tbl.Define("x")
	require.NoError(t, err)
	require.Equal(t, resolver.ModuleGlobal, sym.Scope)
	tbl.PopBlock()
}

func TestLocalInNestedBlock(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	tbl.PushFunc()
	tbl.PushBlock()
	sym, err := tbl.Define("x")
	require.NoError(t, err)
	require.Equal(t, resolver.Local, sym.Scope)
	require.Equal(t, 0, sym.Index)

	found, ok := tbl.Resolve("x")
	require.True(t, ok)
	require.Equal(t, sym, found)
	tbl.PopBlock()
	tbl.PopFunc()
}

func TestLocalIndicesAccumulateAcrossSiblingBlocks(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	tbl.PushFunc()

	tbl.PushBlock()
	a, err := tbl.Define("a")
	require.NoError(t, err)
	require.Equal(t, 0, a.Index)
	tbl.PopBlock()

	tbl.PushBlock()
	b, err := tbl.Define("b")
	require.NoError(t, err)
	require.Equal(t, 0, b.Index) // sibling block reuses the index, same offset
	tbl.PopBlock()

	f := tbl.PopFunc()
	require.Equal(t, 1, f.MaxDefinitions)
}

func TestLocalIndicesNestWithinSameFunction(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	tbl.PushFunc()

	a, err := tbl.Define("a")
	require.NoError(t, err)
	require.Equal(t, 0, a.Index)

	tbl.PushBlock()
	b, err := tbl.Define("b")
	require.NoError(t, err)
	require.Equal(t, 1, b.Index) // nested block starts after outer's definitions
	tbl.PopBlock()

	f := tbl.PopFunc()
	require.Equal(t, 2, f.MaxDefinitions)
}

func TestFreeVariableSingleLevelCapture(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	tbl.PushFunc() // outer
	outer, err := tbl.Define("x")
	require.NoError(t, err)
	require.Equal(t, resolver.Local, outer.Scope)

	tbl.PushFunc() // inner closure
	sym, ok := tbl.Resolve("x")
	require.True(t, ok)
	require.Equal(t, resolver.Free, sym.Scope)
	require.Equal(t, 0, sym.Index)

	inner := tbl.PopFunc()
	require.Len(t, inner.FreeSymbols, 1)
	require.Equal(t, outer, inner.FreeSymbols[0])
	tbl.PopFunc()
}

func TestFreeVariableMultiLevelCapturePromotesAtEveryLevel(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	tbl.PushFunc() // level 0
	outer, err := tbl.Define("x")
	require.NoError(t, err)

	tbl.PushFunc() // level 1
	tbl.PushFunc() // level 2, the one that actually references x

	sym, ok := tbl.Resolve("x")
	require.True(t, ok)
	require.Equal(t, resolver.Free, sym.Scope)

	level2 := tbl.PopFunc()
	require.Len(t, level2.FreeSymbols, 1)
	require.Equal(t, resolver.Free, level2.FreeSymbols[0].Scope, "level 1 must also see x promoted to Free")

	level1 := tbl.PopFunc()
	require.Len(t, level1.FreeSymbols, 1)
	require.Equal(t, outer, level1.FreeSymbols[0])

	tbl.PopFunc()
}

func TestFreeVariableCaptureIsDeduplicated(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	tbl.PushFunc()
	_, err := tbl.Define("x")
	require.NoError(t, err)

	tbl.PushFunc()
	sym1, _ := tbl.Resolve("x")
	sym2, _ := tbl.Resolve("x")
	require.Equal(t, sym1, sym2)

	inner := tbl.PopFunc()
	require.Len(t, inner.FreeSymbols, 1)
	tbl.PopFunc()
}

func TestResolveAcrossFileScopeCapturesModuleGlobalDirectly(t *testing.T) {
	outer := resolver.NewTable(nil, nil)
	_, err := outer.Define("shared")
	require.NoError(t, err)

	inner := resolver.NewTable(outer, nil)
	sym, ok := inner.Resolve("shared")
	require.True(t, ok)
	require.Equal(t, resolver.ModuleGlobal, sym.Scope)
}

func TestFunctionSelfAndThisBindings(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	tbl.PushFunc()
	tbl.DefineFunctionSelf("fact")
	tbl.DefineThis()

	self, ok := tbl.Resolve("fact")
	require.True(t, ok)
	require.Equal(t, resolver.FunctionSelf, self.Scope)

	this, ok := tbl.Resolve("this")
	require.True(t, ok)
	require.Equal(t, resolver.This, this.Scope)
	tbl.PopFunc()
}

func TestThisCapturedByNestedClosure(t *testing.T) {
	tbl := resolver.NewTable(nil, nil)
	tbl.PushFunc()
	tbl.DefineThis()

	tbl.PushFunc()
	sym, ok := tbl.Resolve("this")
	require.True(t, ok)
	require.Equal(t, resolver.Free, sym.Scope)
	tbl.PopFunc()

	tbl.PopFunc()
}
