package machine_test

import (
	"context"
	"testing"

	"github.com/briarlang/briar/lang/compiler"
	"github.com/briarlang/briar/lang/machine"
	"github.com/briarlang/briar/lang/parser"
	"github.com/briarlang/briar/lang/token"
	"github.com/stretchr/testify/require"
)

// run parses, compiles and executes src against a fresh context, returning
// the chunk's last-popped value the way spec.md's S1-S7 scenarios check.
func run(t *testing.T, src string) (machine.Value, *machine.Context) {
	t.Helper()
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fset, "test.briar", []byte(src))
	require.NoError(t, err)
	res, err := compiler.Compile(fset, 0, ch, "", nil, nil, nil)
	require.NoError(t, err)

	ctx := machine.NewContext()
	fn := machine.NewFunction(res)
	_, err = ctx.Run(fn, nil)
	require.NoError(t, err)
	return ctx.LastPopped(), ctx
}

func TestConstantFoldedArithmetic(t *testing.T) {
	v, _ := run(t, `var a = 2 + 3 * 4; a;`)
	require.Equal(t, machine.Number(14), v)
}

func TestNegativeArrayIndexFromEnd(t *testing.T) {
	v, _ := run(t, `var a = [1, 2, 3]; a[-1];`)
	require.Equal(t, machine.Number(3), v)
}

func TestClosureCapturesAndCalls(t *testing.T) {
	v, _ := run(t, `
function make(x) {
	return function(y) { return x + y; };
}
make(10)(7);
`)
	require.Equal(t, machine.Number(17), v)
}

func TestOperatorOverloadOnMap(t *testing.T) {
	v, _ := run(t, `
var m = {};
m["__operator_add__"] = function(x, y) { return 42; };
m + 1;
`)
	require.Equal(t, machine.Number(42), v)
}

func TestRecoverCatchesErrorRaisedAfterItInSameFunction(t *testing.T) {
	// A map lacking __operator_div__ forces a genuine unsupported-operand
	// runtime error (plain 1/0 is non-erroring IEEE-754 division in this
	// language), which the recover block then catches and returns.
	v, _ := run(t, `
function f() {
	recover (e) {
		return e;
	}
	var m = {};
	var x = m / 1;
}
f();
`)
	_, ok := v.(*machine.ErrorValue)
	require.True(t, ok, "expected an ErrorValue, got %T", v)
}
