package optimizer_test

import (
	"testing"

	"github.com/briarlang/briar/lang/ast"
	"github.com/briarlang/briar/lang/optimizer"
	"github.com/briarlang/briar/lang/token"
	"github.com/stretchr/testify/require"
)

func num(v float64) *ast.LiteralExpr { return &ast.LiteralExpr{Kind: ast.NumberLit, Num: v} }
func str(v string) *ast.LiteralExpr  { return &ast.LiteralExpr{Kind: ast.StringLit, Str: v} }

func TestFoldArithmetic(t *testing.T) {
	e := &ast.BinOpExpr{X: num(2), Op: token.PLUS, Y: &ast.BinOpExpr{X: num(3), Op: token.STAR, Y: num(4)}}
	// only one level folds at a time; the compiler folds bottom-up.
	inner, ok := optimizer.Fold(e.Y.(*ast.BinOpExpr))
	require.True(t, ok)
	require.Equal(t, float64(12), inner.Num)

	outer := &ast.BinOpExpr{X: num(2), Op: token.PLUS, Y: inner}
	lit, ok := optimizer.Fold(outer)
	require.True(t, ok)
	require.Equal(t, float64(14), lit.Num)
}

func TestFoldModulusIsIntegerTruncated(t *testing.T) {
	e := &ast.BinOpExpr{X: num(7.9), Op: token.PERCENT, Y: num(2.9)}
	lit, ok := optimizer.Fold(e)
	require.True(t, ok)
	require.Equal(t, float64(1), lit.Num) // 7 % 2 == 1, not fmod(7.9, 2.9)
}

func TestFoldStringConcat(t *testing.T) {
	e := &ast.BinOpExpr{X: str("a"), Op: token.PLUS, Y: str("b")}
	lit, ok := optimizer.Fold(e)
	require.True(t, ok)
	require.Equal(t, "ab", lit.Str)
}

func TestFoldDoesNotFoldLogicOrTernary(t *testing.T) {
	e := &ast.LogicExpr{X: &ast.LiteralExpr{Kind: ast.BoolLit, Bool: true}, Op: token.LAND, Y: &ast.LiteralExpr{Kind: ast.BoolLit, Bool: false}}
	_, ok := optimizer.Fold(&ast.UnaryExpr{Op: token.NOT, X: e})
	require.False(t, ok)
	_, ok = optimizer.Fold(&ast.TernaryExpr{Cond: &ast.LiteralExpr{Kind: ast.BoolLit, Bool: true}, Then: num(1), Else: num(2)})
	require.False(t, ok)
}

func TestFoldUnaryMinus(t *testing.T) {
	lit, ok := optimizer.Fold(&ast.UnaryExpr{Op: token.MINUS, X: num(5)})
	require.True(t, ok)
	require.Equal(t, float64(-5), lit.Num)
}

func TestFoldNonLiteralOperandKeepsOriginal(t *testing.T) {
	e := &ast.BinOpExpr{X: &ast.IdentExpr{Name: "x"}, Op: token.PLUS, Y: num(1)}
	_, ok := optimizer.Fold(e)
	require.False(t, ok)
}
