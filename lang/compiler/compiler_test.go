package compiler_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/briarlang/briar/lang/compiler"
	"github.com/briarlang/briar/lang/parser"
	"github.com/briarlang/briar/lang/token"
	"github.com/stretchr/testify/require"
)

func compileOne(t *testing.T, src string, hostGlobals map[string]int) *compiler.CompilationResult {
	t.Helper()
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fset, "test.briar", []byte(src))
	require.NoError(t, err)
	res, err := compiler.Compile(fset, 0, ch, "", hostGlobals, nil, nil)
	require.NoError(t, err)
	return res
}

// opcodes extracts just the opcode stream (skipping operand bytes) from a
// compiled function's bytecode, for shape assertions without hardcoding
// every operand byte.
func opcodes(t *testing.T, res *compiler.CompilationResult) []compiler.Opcode {
	t.Helper()
	var ops []compiler.Opcode
	code := res.Bytecode
	for i := 0; i < len(code); {
		op := compiler.Opcode(code[i])
		ops = append(ops, op)
		i += 1 + compiler.OperandWidth(op)
	}
	return ops
}

func TestConstantFoldingCollapsesArithmetic(t *testing.T) {
	res := compileOne(t, `var a = 2 + 3 * 4;`, nil)
	ops := opcodes(t, res)
	// folds entirely to a single NUMBER push, no ADD/MUL emitted.
	require.Contains(t, ops, compiler.NUMBER)
	require.NotContains(t, ops, compiler.ADD)
	require.NotContains(t, ops, compiler.MUL)
}

func TestModuleGlobalDefineAndGet(t *testing.T) {
	res := compileOne(t, `var a = 1; var b = a;`, nil)
	require.Equal(t, []string{"a", "b"}, res.ModuleGlobals)
	ops := opcodes(t, res)
	require.Contains(t, ops, compiler.DEFINE_MODULE_GLOBAL)
	require.Contains(t, ops, compiler.GET_MODULE_GLOBAL)
}

func TestConstReassignmentRejectedAtCompileTime(t *testing.T) {
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fset, "test.briar", []byte(`const a = 1; a = 2;`))
	require.NoError(t, err)
	_, err = compiler.Compile(fset, 0, ch, "", nil, nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not assignable")
}

func TestAssigningUnresolvedIdentifierDefinesIt(t *testing.T) {
	res := compileOne(t, `a = 1;`, nil)
	require.Equal(t, []string{"a"}, res.ModuleGlobals)
}

func TestIfElseEmitsPatchedJumps(t *testing.T) {
	res := compileOne(t, `if (true) { var x = 1; } else { var y = 2; }`, nil)
	ops := opcodes(t, res)
	require.Contains(t, ops, compiler.JUMP_IF_FALSE)
	require.Contains(t, ops, compiler.JUMP)
}

func TestWhileLoopBreakAndContinue(t *testing.T) {
	res := compileOne(t, `while (true) { if (true) { break; } continue; }`, nil)
	ops := opcodes(t, res)
	require.Contains(t, ops, compiler.JUMP_IF_FALSE)
	// one JUMP back (loop re-test) plus the break and continue jumps.
	count := 0
	for _, op := range ops {
		if op == compiler.JUMP {
			count++
		}
	}
	require.GreaterOrEqual(t, count, 3)
}

func TestForInDesugarsToLenCompareAndGetValueAt(t *testing.T) {
	res := compileOne(t, `for (x in [1, 2, 3]) { x; }`, nil)
	ops := opcodes(t, res)
	require.Contains(t, ops, compiler.LEN)
	require.Contains(t, ops, compiler.GET_VALUE_AT)
	require.Contains(t, ops, compiler.COMPARE)
	require.Contains(t, ops, compiler.GREATER_THAN)
}

func TestFunctionLiteralEmitsFunctionOpcodeWithZeroFreeVars(t *testing.T) {
	res := compileOne(t, `var f = function(x) { return x; };`, nil)
	found := false
	for _, c := range res.Constants {
		if fn, ok := c.(*compiler.CompilationResult); ok {
			found = true
			require.Equal(t, 1, fn.NumParams)
			require.Equal(t, 0, fn.NumFree)
		}
	}
	require.True(t, found, "expected a nested function constant")
	require.Contains(t, opcodes(t, res), compiler.FUNCTION)
}

func TestClosureCapturesEnclosingLocalAsFree(t *testing.T) {
	res := compileOne(t, `
		function make() {
			var count = 0;
			return function() { count = count + 1; return count; };
		}
	`, nil)
	outer := res.Constants[findFunc(t, res)].(*compiler.CompilationResult)
	var inner *compiler.CompilationResult
	for _, c := range outer.Constants {
		if fn, ok := c.(*compiler.CompilationResult); ok {
			inner = fn
		}
	}
	require.NotNil(t, inner, "expected nested closure constant")
	require.Equal(t, 1, inner.NumFree)
	innerOps := opcodes(t, inner)
	require.Contains(t, innerOps, compiler.GET_FREE)
	require.Contains(t, innerOps, compiler.SET_FREE)
}

func findFunc(t *testing.T, res *compiler.CompilationResult) int {
	t.Helper()
	for i, c := range res.Constants {
		if _, ok := c.(*compiler.CompilationResult); ok {
			return i
		}
	}
	t.Fatal("no function constant found")
	return -1
}

func TestRecursionViaFunctionSelfNotFreeVariable(t *testing.T) {
	res := compileOne(t, `
		function fact(n) {
			if (n < 2) { return 1; }
			return n * fact(n - 1);
		}
	`, nil)
	fn := res.Constants[findFunc(t, res)].(*compiler.CompilationResult)
	require.Equal(t, 0, fn.NumFree)
	ops := opcodes(t, fn)
	require.Contains(t, ops, compiler.CURRENT_FUNCTION)
}

func TestRecoverStmtArmsHandlerAndSkipsItOnFallThrough(t *testing.T) {
	res := compileOne(t, `
		function safe() {
			recover (err) { return err; }
			return 1;
		}
	`, nil)
	fn := res.Constants[findFunc(t, res)].(*compiler.CompilationResult)
	ops := opcodes(t, fn)
	require.Equal(t, compiler.SET_RECOVER, ops[0])
	require.Equal(t, compiler.JUMP, ops[1])
}

func TestHostGlobalResolvesWithoutDefine(t *testing.T) {
	res := compileOne(t, `print(1);`, map[string]int{"print": 0})
	ops := opcodes(t, res)
	require.Contains(t, ops, compiler.GET_HOST_GLOBAL)
}

func TestIndexAssignCompiles(t *testing.T) {
	res := compileOne(t, `var a = [1, 2]; a[0] = 5;`, nil)
	ops := opcodes(t, res)
	require.Contains(t, ops, compiler.SET_INDEX)
}

func TestCompoundIndexIncDecUsesHiddenTemps(t *testing.T) {
	res := compileOne(t, `var a = [1, 2]; a[0]++;`, nil)
	ops := opcodes(t, res)
	require.Contains(t, ops, compiler.GET_INDEX)
	require.Contains(t, ops, compiler.SET_INDEX)
	require.Contains(t, ops, compiler.DEFINE_LOCAL)
}

func TestTemplateStringDesugarsToAdd(t *testing.T) {
	res := compileOne(t, "var name = \"a\"; var s = `hi ${name}!`;", nil)
	ops := opcodes(t, res)
	count := 0
	for _, op := range ops {
		if op == compiler.ADD {
			count++
		}
	}
	require.Equal(t, 2, count)
}

func TestMapLiteralUsesMapStartEndAndSetIndex(t *testing.T) {
	res := compileOne(t, `var m = {x: 1, y: 2};`, nil)
	ops := opcodes(t, res)
	require.Contains(t, ops, compiler.MAP_START)
	require.Contains(t, ops, compiler.MAP_END)
	require.Contains(t, ops, compiler.SET_INDEX)
}

type mapLoader map[string]string

func (l mapLoader) Load(fromDir, path string) (string, []byte, error) {
	src, ok := l[path]
	if !ok {
		return "", nil, fmt.Errorf("no such module %q", path)
	}
	return path, []byte(src), nil
}

func TestImportInstallsQualifiedBindingsAndModuleInitConvention(t *testing.T) {
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fset, "main.briar", []byte(`
		import "mathx";
		var two = mathx::one + mathx::one;
	`))
	require.NoError(t, err)

	loader := mapLoader{"mathx": `var one = 1;`}
	res, err := compiler.Compile(fset, 0, ch, "", nil, loader, nil)
	require.NoError(t, err)

	var child *compiler.CompilationResult
	for _, c := range res.Constants {
		if fn, ok := c.(*compiler.CompilationResult); ok {
			child = fn
		}
	}
	require.NotNil(t, child, "expected the imported module's compiled body as a constant")
	require.True(t, child.IsModuleInit)
	require.Equal(t, "mathx", child.Path)
	require.Equal(t, []string{"one"}, child.ModuleGlobals)

	childOps := opcodes(t, child)
	require.Equal(t, compiler.RETURN_VALUE, childOps[len(childOps)-1])
	require.Contains(t, childOps, compiler.ARRAY)
}

func TestImportCycleDetected(t *testing.T) {
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fset, "a.briar", []byte(`import "b";`))
	require.NoError(t, err)

	loader := mapLoader{"b": `import "a";`, "a": `import "b";`}
	_, err = compiler.Compile(fset, 0, ch, "a", nil, loader, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "import cycle")
}

func TestImportCacheReuseAndClearForcesReload(t *testing.T) {
	fset := token.NewFileSet()
	loader := mapLoader{"mathx": `var one = 1;`}
	cache := compiler.Cache{}

	ch1, err := parser.ParseChunk(context.Background(), 0, fset, "main1.briar", []byte(`import "mathx"; var a = mathx::one;`))
	require.NoError(t, err)
	_, err = compiler.Compile(fset, 0, ch1, "", nil, loader, cache)
	require.NoError(t, err)
	require.Contains(t, cache, "mathx")

	cachedBefore := cache["mathx"]

	ch2, err := parser.ParseChunk(context.Background(), 0, fset, "main2.briar", []byte(`import "mathx"; var b = mathx::one;`))
	require.NoError(t, err)
	_, err = compiler.Compile(fset, 0, ch2, "", nil, loader, cache)
	require.NoError(t, err)
	require.Same(t, cachedBefore, cache["mathx"], "second compile should reuse the cached module, not recompile it")

	cache = compiler.Cache{}
	ch3, err := parser.ParseChunk(context.Background(), 0, fset, "main3.briar", []byte(`import "mathx"; var c = mathx::one;`))
	require.NoError(t, err)
	_, err = compiler.Compile(fset, 0, ch3, "", nil, loader, cache)
	require.NoError(t, err)
	require.NotSame(t, cachedBefore, cache["mathx"], "clearing the cache should force a fresh compile")
}
