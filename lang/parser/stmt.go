package parser

import (
	"github.com/briarlang/briar/lang/ast"
	"github.com/briarlang/briar/lang/token"
)

func (p *parser) parseDeclStmt() *ast.DeclStmt {
	var stmt ast.DeclStmt
	if p.tok == token.CONST {
		stmt.Kind = ast.ConstDecl
	} else {
		stmt.Kind = ast.VarDecl
	}
	stmt.DeclPos = p.expect(token.VAR, token.CONST)
	stmt.Name = p.parseIdentExpr()
	p.expect(token.ASSIGN)
	stmt.Value = p.parseExpr()
	p.expect(token.SEMI)
	return &stmt
}

func (p *parser) parseFuncStmt() *ast.FuncStmt {
	var stmt ast.FuncStmt
	stmt.FuncPos = p.expect(token.FUNCTION)
	stmt.Name = p.parseIdentExpr()
	stmt.Func = p.parseFuncExprBody(stmt.FuncPos, stmt.Name.Name)
	return &stmt
}

// parseFuncExprBody parses the `(params) BLOCK` part shared by named
// function statements and anonymous function literals.
func (p *parser) parseFuncExprBody(funcPos token.Pos, name string) *ast.FuncExpr {
	var fn ast.FuncExpr
	fn.FuncPos = funcPos
	fn.Name = name

	p.expect(token.LPAREN)
	if p.tok != token.RPAREN {
		fn.Params = append(fn.Params, p.parseIdentExpr())
		for p.tok == token.COMMA {
			p.advance()
			fn.Params = append(fn.Params, p.parseIdentExpr())
		}
	}
	p.expect(token.RPAREN)
	fn.Body = p.parseBlock()
	return &fn
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	var stmt ast.IfStmt
	stmt.IfPos = p.expect(token.IF)
	stmt.Cases = append(stmt.Cases, p.parseIfCase())

	for p.tok == token.ELSE {
		p.advance()
		if p.tok == token.IF {
			p.advance()
			stmt.Cases = append(stmt.Cases, p.parseIfCase())
			continue
		}
		stmt.Else = p.parseBlock()
		break
	}
	return &stmt
}

func (p *parser) parseIfCase() ast.IfCase {
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	return ast.IfCase{Cond: cond, Body: p.parseBlock()}
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	var stmt ast.WhileStmt
	stmt.WhilePos = p.expect(token.WHILE)
	p.expect(token.LPAREN)
	stmt.Cond = p.parseExpr()
	p.expect(token.RPAREN)
	stmt.Body = p.parseBlock()
	return &stmt
}

// parseForStmt distinguishes `for (IDENT in EXPR) BLOCK` from the classic
// three-part `for (init; test; update) BLOCK` by lookahead of IDENT IN.
func (p *parser) parseForStmt() ast.Stmt {
	forPos := p.expect(token.FOR)
	p.expect(token.LPAREN)

	if p.tok == token.IDENT {
		iter := p.parseIdentExpr()
		if p.tok == token.IN {
			p.advance()
			source := p.parseExpr()
			p.expect(token.RPAREN)
			return &ast.ForInStmt{ForPos: forPos, Iter: iter, Source: source, Body: p.parseBlock()}
		}
		// not a for-in; iter was actually the start of an init expr/assignment.
		return p.parseForThreePart(forPos, p.finishExprStmtFrom(iter))
	}

	var init ast.Stmt
	if p.tok == token.VAR || p.tok == token.CONST {
		init = p.parseDeclStmtNoSemi()
		p.expect(token.SEMI)
	} else if p.tok != token.SEMI {
		x := p.parseExpr()
		p.expect(token.SEMI)
		init = &ast.ExprStmt{X: x}
	} else {
		p.expect(token.SEMI)
	}
	return p.parseForThreePart(forPos, init)
}

// finishExprStmtFrom continues parsing an expression statement whose first
// identifier has already been consumed, ending with `;`, for use as a
// for-loop init clause.
func (p *parser) finishExprStmtFrom(first ast.Expr) ast.Stmt {
	x := p.parsePostfixFrom(first)
	x = p.parseBinaryFrom(x, lowestBinPrec)
	x = p.maybeAssignFrom(x)
	p.expect(token.SEMI)
	return &ast.ExprStmt{X: x}
}

func (p *parser) parseDeclStmtNoSemi() *ast.DeclStmt {
	var stmt ast.DeclStmt
	if p.tok == token.CONST {
		stmt.Kind = ast.ConstDecl
	} else {
		stmt.Kind = ast.VarDecl
	}
	stmt.DeclPos = p.expect(token.VAR, token.CONST)
	stmt.Name = p.parseIdentExpr()
	p.expect(token.ASSIGN)
	stmt.Value = p.parseExpr()
	return &stmt
}

func (p *parser) parseForThreePart(forPos token.Pos, init ast.Stmt) *ast.ForStmt {
	var stmt ast.ForStmt
	stmt.ForPos = forPos
	stmt.Init = init

	if p.tok != token.SEMI {
		stmt.Test = p.parseExpr()
	}
	p.expect(token.SEMI)

	if p.tok != token.RPAREN {
		x := p.parseExpr()
		stmt.Update = &ast.ExprStmt{X: x}
	}
	p.expect(token.RPAREN)
	stmt.Body = p.parseBlock()
	return &stmt
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	var stmt ast.ReturnStmt
	stmt.ReturnPos = p.expect(token.RETURN)
	if p.tok != token.SEMI {
		stmt.X = p.parseExpr()
	}
	p.expect(token.SEMI)
	return &stmt
}

func (p *parser) parseImportStmt() *ast.ImportStmt {
	var stmt ast.ImportStmt
	stmt.ImportPos = p.expect(token.IMPORT)
	stmt.PathPos = p.pos
	if p.tok != token.STRING {
		p.errorExpected(p.pos, token.STRING)
		panic(errPanicMode)
	}
	stmt.Path = p.val.Str
	p.advance()
	p.expect(token.SEMI)
	return &stmt
}

func (p *parser) parseRecoverStmt() *ast.RecoverStmt {
	var stmt ast.RecoverStmt
	stmt.RecoverPos = p.expect(token.RECOVER)
	p.expect(token.LPAREN)
	stmt.Err = p.parseIdentExpr()
	p.expect(token.RPAREN)
	stmt.Body = p.parseBlock()
	return &stmt
}

func (p *parser) parseIdentExpr() *ast.IdentExpr {
	pos := p.pos
	if p.tok != token.IDENT {
		p.errorExpected(pos, token.IDENT)
		panic(errPanicMode)
	}
	name := p.val.Str
	p.advance()
	return &ast.IdentExpr{NamePos: pos, Name: name}
}
