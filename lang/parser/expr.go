package parser

import (
	"github.com/briarlang/briar/lang/ast"
	"github.com/briarlang/briar/lang/token"
)

// binPrec gives the left-associative binding power of each infix operator,
// from logical-or (loosest) up to product (tightest); assign and ternary
// sit below this table and prefix/incdec/postfix sit above it, per the
// precedence ladder: assign, ternary, logical-or, logical-and, bit-or,
// bit-xor, bit-and, equals, less/greater, shift, sum, product, prefix,
// incdec, postfix.
var binPrec = map[token.Token]int{
	token.LOR:    1,
	token.LAND:   2,
	token.PIPE:   3,
	token.CARET:  4,
	token.AMP:    5,
	token.EQL:    6,
	token.NEQ:    6,
	token.LSS:    7,
	token.LEQ:    7,
	token.GTR:    7,
	token.GEQ:    7,
	token.SHL:    8,
	token.SHR:    8,
	token.PLUS:   9,
	token.MINUS:  9,
	token.STAR:   10,
	token.SLASH:  10,
	token.PERCENT: 10,
}

const lowestBinPrec = 1

func (p *parser) parseExpr() ast.Expr {
	return p.parseAssign()
}

func (p *parser) parseAssign() ast.Expr {
	left := p.parseTernary()
	return p.maybeAssignFrom(left)
}

// maybeAssignFrom checks whether the current token is `=` or a compound
// assign operator and, if so, builds the AssignExpr with left as its
// target; otherwise it returns left unchanged.
func (p *parser) maybeAssignFrom(left ast.Expr) ast.Expr {
	if !p.tok.IsAssignOp() {
		return left
	}
	assignTok := p.tok
	pos := p.expect(p.tok)
	right := p.parseAssign() // right-associative

	var op token.Token
	if assignTok != token.ASSIGN {
		op = assignTok.BinaryOpForAssign()
	}
	if !isAssignable(left) {
		start, _ := left.Span()
		p.error(start, "expected an assignable expression")
	}
	return &ast.AssignExpr{Left: left, AssignAt: pos, Op: op, Right: right}
}

func isAssignable(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IdentExpr, *ast.IndexExpr, *ast.DotExpr:
		return true
	default:
		return false
	}
}

func (p *parser) parseTernary() ast.Expr {
	cond := p.parseBinary(lowestBinPrec)
	if p.tok != token.QUESTION {
		return cond
	}
	p.advance()
	then := p.parseAssign()
	p.expect(token.COLON)
	els := p.parseAssign()
	return &ast.TernaryExpr{Cond: cond, Then: then, Else: els}
}

func (p *parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	return p.parseBinaryFrom(left, minPrec)
}

// parseBinaryFrom continues precedence-climbing from an already-parsed left
// operand; used both by parseBinary and by the for-loop disambiguation that
// must resume parsing after consuming a leading identifier.
func (p *parser) parseBinaryFrom(left ast.Expr, minPrec int) ast.Expr {
	for {
		prec, ok := binPrec[p.tok]
		if !ok || prec < minPrec {
			return left
		}
		op := p.tok
		pos := p.pos
		p.advance()
		right := p.parseBinary(prec + 1)

		if op == token.LAND || op == token.LOR {
			left = &ast.LogicExpr{X: left, OpPos: pos, Op: op, Y: right}
		} else {
			left = &ast.BinOpExpr{X: left, OpPos: pos, Op: op, Y: right}
		}
	}
}

func (p *parser) parseUnary() ast.Expr {
	switch p.tok {
	case token.MINUS, token.NOT:
		op := p.tok
		pos := p.pos
		p.advance()
		x := p.parseUnary()
		return &ast.UnaryExpr{OpPos: pos, Op: op, X: x}

	case token.INCR, token.DECR:
		op := p.tok
		pos := p.pos
		p.advance()
		x := p.parseUnary()
		return &ast.IncDecExpr{OpPos: pos, Op: op, X: x, Postfix: false}

	default:
		return p.parsePostfix()
	}
}

func (p *parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	return p.parsePostfixFrom(x)
}

// parsePostfixFrom continues the postfix-operator chain (`.`, `[`, `(`,
// `++`, `--`) starting from an already-parsed primary expression.
func (p *parser) parsePostfixFrom(x ast.Expr) ast.Expr {
	for {
		switch p.tok {
		case token.DOT:
			dot := p.expect(token.DOT)
			name := p.parseIdentExpr()
			x = &ast.DotExpr{X: x, Dot: dot, NamePos: name.NamePos, Name: name.Name}

		case token.LBRACK:
			lbrack := p.expect(token.LBRACK)
			idx := p.parseExpr()
			rbrack := p.expect(token.RBRACK)
			x = &ast.IndexExpr{X: x, Lbrack: lbrack, Rbrack: rbrack, Index: idx}

		case token.LPAREN:
			lparen := p.expect(token.LPAREN)
			var args []ast.Expr
			if p.tok != token.RPAREN {
				args = append(args, p.parseExpr())
				for p.tok == token.COMMA {
					p.advance()
					args = append(args, p.parseExpr())
				}
			}
			rparen := p.expect(token.RPAREN)
			x = &ast.CallExpr{Fn: x, Lparen: lparen, Rparen: rparen, Args: args}

		case token.INCR, token.DECR:
			op := p.tok
			pos := p.pos
			p.advance()
			if !isAssignable(x) {
				start, _ := x.Span()
				p.error(start, "expected an assignable expression")
			}
			return &ast.IncDecExpr{OpPos: pos, Op: op, X: x, Postfix: true}

		default:
			return x
		}
	}
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.tok {
	case token.IDENT:
		return p.parseIdentExpr()

	case token.NUMBER:
		lit := &ast.LiteralExpr{ValuePos: p.pos, Kind: ast.NumberLit, Num: p.val.Float}
		p.advance()
		lit.EndPos = p.pos
		return lit

	case token.STRING:
		lit := &ast.LiteralExpr{ValuePos: p.pos, Kind: ast.StringLit, Str: p.val.Str}
		p.advance()
		lit.EndPos = p.pos
		return lit

	case token.TRUE, token.FALSE:
		b := p.tok == token.TRUE
		lit := &ast.LiteralExpr{ValuePos: p.pos, Kind: ast.BoolLit, Bool: b}
		p.advance()
		lit.EndPos = p.pos
		return lit

	case token.NULL:
		lit := &ast.LiteralExpr{ValuePos: p.pos, Kind: ast.NullLit}
		p.advance()
		lit.EndPos = p.pos
		return lit

	case token.TEMPLATE_STR:
		return p.parseTemplateExpr()

	case token.LPAREN:
		lparen := p.expect(token.LPAREN)
		x := p.parseExpr()
		rparen := p.expect(token.RPAREN)
		return &ast.ParenExpr{Lparen: lparen, Rparen: rparen, X: x}

	case token.LBRACK:
		return p.parseArrayExpr()

	case token.LBRACE:
		return p.parseMapExpr()

	case token.FUNCTION:
		funcPos := p.expect(token.FUNCTION)
		return p.parseFuncExprBody(funcPos, "")

	default:
		start := p.pos
		p.errorExpected(start, token.IDENT, token.NUMBER, token.STRING, token.LPAREN)
		panic(errPanicMode)
	}
}

// parseTemplateExpr parses a backtick template string, consuming interleaved
// literal-text segments and `${ expr }` placeholder expressions by driving
// the scanner's ContinueTemplateString re-entry point directly.
func (p *parser) parseTemplateExpr() *ast.TemplateExpr {
	start := p.pos
	text := p.val.Str
	done := p.val.TemplateDone
	texts := []string{text}
	var exprs []ast.Expr

	for !done {
		p.advance() // first token of the placeholder expression
		exprs = append(exprs, p.parseExpr())

		if p.tok != token.RBRACE {
			p.errorExpected(p.pos, token.RBRACE)
			panic(errPanicMode)
		}
		tok := p.scanner.ContinueTemplateString(&p.val)
		p.tok = tok
		p.pos = p.scanner.Pos()
		text = p.val.Str
		done = p.val.TemplateDone
		texts = append(texts, text)
	}
	end := p.pos
	p.advance()
	return &ast.TemplateExpr{Start: start, End: end, Texts: texts, Exprs: exprs}
}

func (p *parser) parseArrayExpr() *ast.ArrayExpr {
	var expr ast.ArrayExpr
	expr.Lbrack = p.expect(token.LBRACK)
	for p.tok != token.RBRACK && p.tok != token.EOF {
		expr.Elems = append(expr.Elems, p.parseExpr())
		if p.tok == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	expr.Rbrack = p.expect(token.RBRACK)
	return &expr
}

func (p *parser) parseMapExpr() *ast.MapExpr {
	var expr ast.MapExpr
	expr.Lbrace = p.expect(token.LBRACE)
	for p.tok != token.RBRACE && p.tok != token.EOF {
		expr.Entries = append(expr.Entries, p.parseMapEntry())
		if p.tok == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	expr.Rbrace = p.expect(token.RBRACE)
	return &expr
}

// parseMapEntry parses `KEY: VALUE`. KEY must be an identifier (treated as
// a string), a string, a number or a bool literal; any other key expression
// is a parse error.
func (p *parser) parseMapEntry() ast.MapEntry {
	var key ast.Expr
	switch p.tok {
	case token.IDENT:
		id := p.parseIdentExpr()
		key = &ast.LiteralExpr{ValuePos: id.NamePos, EndPos: id.NamePos + token.Pos(len(id.Name)), Kind: ast.StringLit, Str: id.Name}
	case token.STRING, token.NUMBER, token.TRUE, token.FALSE:
		key = p.parsePrimary()
	default:
		p.errorExpected(p.pos, token.IDENT, token.STRING, token.NUMBER, token.TRUE, token.FALSE)
		panic(errPanicMode)
	}
	p.expect(token.COLON)
	value := p.parseExpr()
	return ast.MapEntry{Key: key, Value: value}
}
