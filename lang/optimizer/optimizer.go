// Package optimizer implements the constant-folding pass invoked by the
// compiler on every expression node before it is emitted.
package optimizer

import (
	"math"

	"github.com/briarlang/briar/lang/ast"
	"github.com/briarlang/briar/lang/token"
)

// Fold attempts to constant-fold e. It returns a replacement *ast.LiteralExpr
// and true if e's leaves are all literals and its operator is in the folded
// set; otherwise it returns (nil, false), meaning "keep the original node".
//
// Folded: the full set of numeric infix/prefix ops (including `%` as
// integer modulus of the truncated integer parts, bitwise ops over
// truncated integer parts, and shifts), plus `+` string concatenation.
// Not folded: `&&`, `||`, `?:`, calls, index, assign.
func Fold(e ast.Expr) (*ast.LiteralExpr, bool) {
	switch n := e.(type) {
	case *ast.UnaryExpr:
		return foldUnary(n)
	case *ast.BinOpExpr:
		return foldBinary(n)
	default:
		return nil, false
	}
}

func asLiteral(e ast.Expr) (*ast.LiteralExpr, bool) {
	lit, ok := e.(*ast.LiteralExpr)
	return lit, ok
}

func foldUnary(n *ast.UnaryExpr) (*ast.LiteralExpr, bool) {
	x, ok := asLiteral(n.X)
	if !ok {
		return nil, false
	}
	start, end := n.Span()
	switch n.Op {
	case token.MINUS:
		if x.Kind != ast.NumberLit {
			return nil, false
		}
		return &ast.LiteralExpr{ValuePos: start, EndPos: end, Kind: ast.NumberLit, Num: -x.Num}, true
	case token.NOT:
		if x.Kind != ast.BoolLit {
			return nil, false
		}
		return &ast.LiteralExpr{ValuePos: start, EndPos: end, Kind: ast.BoolLit, Bool: !x.Bool}, true
	default:
		return nil, false
	}
}

func foldBinary(n *ast.BinOpExpr) (*ast.LiteralExpr, bool) {
	x, ok := asLiteral(n.X)
	if !ok {
		return nil, false
	}
	y, ok := asLiteral(n.Y)
	if !ok {
		return nil, false
	}
	start, end := n.Span()

	if n.Op == token.PLUS && x.Kind == ast.StringLit && y.Kind == ast.StringLit {
		return &ast.LiteralExpr{ValuePos: start, EndPos: end, Kind: ast.StringLit, Str: x.Str + y.Str}, true
	}
	if x.Kind != ast.NumberLit || y.Kind != ast.NumberLit {
		return nil, false
	}

	a, b := x.Num, y.Num
	switch n.Op {
	case token.PLUS:
		return numLit(start, end, a+b), true
	case token.MINUS:
		return numLit(start, end, a-b), true
	case token.STAR:
		return numLit(start, end, a*b), true
	case token.SLASH:
		return numLit(start, end, a/b), true
	case token.PERCENT:
		ai, bi := truncInt(a), truncInt(b)
		if bi == 0 {
			return nil, false
		}
		return numLit(start, end, float64(ai%bi)), true
	case token.AMP:
		return numLit(start, end, float64(truncInt(a)&truncInt(b))), true
	case token.PIPE:
		return numLit(start, end, float64(truncInt(a)|truncInt(b))), true
	case token.CARET:
		return numLit(start, end, float64(truncInt(a)^truncInt(b))), true
	case token.SHL:
		return numLit(start, end, float64(truncInt(a)<<uint64(truncInt(b)&63))), true
	case token.SHR:
		return numLit(start, end, float64(truncInt(a)>>uint64(truncInt(b)&63))), true
	default:
		return nil, false
	}
}

func numLit(start, end token.Pos, v float64) *ast.LiteralExpr {
	return &ast.LiteralExpr{ValuePos: start, EndPos: end, Kind: ast.NumberLit, Num: v}
}

// truncInt is the truncated 64-bit integer part of a double, matching the
// spec's rule for `%`, bitwise ops and shifts.
func truncInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}
