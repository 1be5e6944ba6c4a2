package parser_test

import (
	"context"
	"testing"

	"github.com/briarlang/briar/lang/ast"
	"github.com/briarlang/briar/lang/parser"
	"github.com/briarlang/briar/lang/token"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, mode parser.Mode, src string) *ast.Chunk {
	t.Helper()
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), mode, fset, "test.briar", []byte(src))
	require.NoError(t, err)
	return ch
}

func TestParseVarAndConstDecl(t *testing.T) {
	ch := parseOne(t, 0, `var a = 1; const b = 2;`)
	require.Len(t, ch.Block.Stmts, 2)

	d1 := ch.Block.Stmts[0].(*ast.DeclStmt)
	require.Equal(t, ast.VarDecl, d1.Kind)
	require.Equal(t, "a", d1.Name.Name)

	d2 := ch.Block.Stmts[1].(*ast.DeclStmt)
	require.Equal(t, ast.ConstDecl, d2.Kind)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	ch := parseOne(t, 0, `var a = 2 + 3 * 4;`)
	d := ch.Block.Stmts[0].(*ast.DeclStmt)
	bin := d.Value.(*ast.BinOpExpr)
	require.Equal(t, token.PLUS, bin.Op)
	require.Equal(t, float64(2), bin.X.(*ast.LiteralExpr).Num)
	rhs := bin.Y.(*ast.BinOpExpr)
	require.Equal(t, token.STAR, rhs.Op)
}

func TestParseTernary(t *testing.T) {
	ch := parseOne(t, 0, `var a = 1 < 2 ? "yes" : "no";`)
	d := ch.Block.Stmts[0].(*ast.DeclStmt)
	tern := d.Value.(*ast.TernaryExpr)
	require.Equal(t, "yes", tern.Then.(*ast.LiteralExpr).Str)
	require.Equal(t, "no", tern.Else.(*ast.LiteralExpr).Str)
}

func TestParseLogicalShortCircuitNodes(t *testing.T) {
	ch := parseOne(t, 0, `var a = true && false || true;`)
	d := ch.Block.Stmts[0].(*ast.DeclStmt)
	or := d.Value.(*ast.LogicExpr)
	require.Equal(t, token.LOR, or.Op)
	and := or.X.(*ast.LogicExpr)
	require.Equal(t, token.LAND, and.Op)
}

func TestParseAssignAndCompoundAssign(t *testing.T) {
	ch := parseOne(t, 0, `a = 1; a += 2;`)
	plain := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.AssignExpr)
	require.Equal(t, token.Token(0), plain.Op)

	compound := ch.Block.Stmts[1].(*ast.ExprStmt).X.(*ast.AssignExpr)
	require.Equal(t, token.PLUS, compound.Op)
}

func TestParsePostfixIncDec(t *testing.T) {
	ch := parseOne(t, 0, `a++; --b;`)
	post := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.IncDecExpr)
	require.True(t, post.Postfix)
	require.Equal(t, token.INCR, post.Op)

	pre := ch.Block.Stmts[1].(*ast.ExprStmt).X.(*ast.IncDecExpr)
	require.False(t, pre.Postfix)
	require.Equal(t, token.DECR, pre.Op)
}

func TestParseDotDesugarsToDotExprNode(t *testing.T) {
	ch := parseOne(t, 0, `a.b;`)
	dot := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.DotExpr)
	require.Equal(t, "b", dot.Name)
}

func TestParseIndexAndCall(t *testing.T) {
	ch := parseOne(t, 0, `a[0](1, 2);`)
	call := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.CallExpr)
	require.Len(t, call.Args, 2)
	idx := call.Fn.(*ast.IndexExpr)
	require.Equal(t, float64(0), idx.Index.(*ast.LiteralExpr).Num)
}

func TestParseArrayAndMapLiterals(t *testing.T) {
	ch := parseOne(t, 0, `var a = [1, 2, 3,]; var b = {x: 1, "y": 2, 3: "three"};`)
	arr := ch.Block.Stmts[0].(*ast.DeclStmt).Value.(*ast.ArrayExpr)
	require.Len(t, arr.Elems, 3)

	m := ch.Block.Stmts[1].(*ast.DeclStmt).Value.(*ast.MapExpr)
	require.Len(t, m.Entries, 3)
	require.Equal(t, "x", m.Entries[0].Key.(*ast.LiteralExpr).Str)
}

func TestParseFuncStmtAndLiteral(t *testing.T) {
	ch := parseOne(t, 0, `function add(x, y) { return x + y; } var f = function(x) { return x; };`)
	fs := ch.Block.Stmts[0].(*ast.FuncStmt)
	require.Equal(t, "add", fs.Name.Name)
	require.Len(t, fs.Func.Params, 2)

	d := ch.Block.Stmts[1].(*ast.DeclStmt)
	fn := d.Value.(*ast.FuncExpr)
	require.Empty(t, fn.Name)
	require.Len(t, fn.Params, 1)
}

func TestParseIfElseIfElse(t *testing.T) {
	ch := parseOne(t, 0, `if (a) { b; } else if (c) { d; } else { e; }`)
	ifs := ch.Block.Stmts[0].(*ast.IfStmt)
	require.Len(t, ifs.Cases, 2)
	require.NotNil(t, ifs.Else)
}

func TestParseWhileAndBreakContinue(t *testing.T) {
	ch := parseOne(t, 0, `while (a) { break; continue; }`)
	w := ch.Block.Stmts[0].(*ast.WhileStmt)
	require.IsType(t, &ast.BreakStmt{}, w.Body.Stmts[0])
	require.IsType(t, &ast.ContinueStmt{}, w.Body.Stmts[1])
}

func TestParseForThreePart(t *testing.T) {
	ch := parseOne(t, 0, `for (var i = 0; i < 10; i = i + 1) { a; }`)
	f := ch.Block.Stmts[0].(*ast.ForStmt)
	require.NotNil(t, f.Init)
	require.NotNil(t, f.Test)
	require.NotNil(t, f.Update)
}

func TestParseForInDisambiguatedFromThreePart(t *testing.T) {
	ch := parseOne(t, 0, `for (x in source) { y; }`)
	f := ch.Block.Stmts[0].(*ast.ForInStmt)
	require.Equal(t, "x", f.Iter.Name)
}

func TestParseReturnBareAndWithValue(t *testing.T) {
	ch := parseOne(t, 0, `function f() { return; }`)
	body := ch.Block.Stmts[0].(*ast.FuncStmt).Func.Body
	ret := body.Stmts[0].(*ast.ReturnStmt)
	require.Nil(t, ret.X)
}

func TestParseImport(t *testing.T) {
	ch := parseOne(t, 0, `import "math";`)
	imp := ch.Block.Stmts[0].(*ast.ImportStmt)
	require.Equal(t, "math", imp.Path)
}

func TestParseRecover(t *testing.T) {
	ch := parseOne(t, 0, `function f() { recover (err) { return err; } }`)
	body := ch.Block.Stmts[0].(*ast.FuncStmt).Func.Body
	rec := body.Stmts[0].(*ast.RecoverStmt)
	require.Equal(t, "err", rec.Err.Name)
}

func TestParseTemplateStringWithPlaceholders(t *testing.T) {
	ch := parseOne(t, 0, "var a = `hello ${name} you are ${1 + 2}`;")
	tmpl := ch.Block.Stmts[0].(*ast.DeclStmt).Value.(*ast.TemplateExpr)
	require.Equal(t, []string{"hello ", " you are ", ""}, tmpl.Texts)
	require.Len(t, tmpl.Exprs, 2)
	require.Equal(t, "name", tmpl.Exprs[0].(*ast.IdentExpr).Name)
}

func TestParseReplModeBareBlockIsMapExpr(t *testing.T) {
	ch := parseOne(t, parser.ReplMode, `{x: 1};`)
	m := ch.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.MapExpr)
	require.Len(t, m.Entries, 1)
}

func TestParseNonReplModeBareBlockIsBlockStmt(t *testing.T) {
	ch := parseOne(t, 0, `{ a; }`)
	require.IsType(t, &ast.BlockStmt{}, ch.Block.Stmts[0])
}

func TestParseErrorRecoversToBadStmt(t *testing.T) {
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fset, "test.briar", []byte(`var a = ; var b = 2;`))
	require.Error(t, err)
	require.NotEmpty(t, ch.Block.Stmts)
}
