package compiler

import (
	"github.com/briarlang/briar/lang/ast"
	"github.com/briarlang/briar/lang/optimizer"
	"github.com/briarlang/briar/lang/resolver"
	"github.com/briarlang/briar/lang/token"
)

func (fc *fileCompiler) compileExpr(e ast.Expr) {
	if lit, ok := optimizer.Fold(e); ok {
		fc.compileExpr(lit)
		return
	}

	switch n := e.(type) {
	case *ast.IdentExpr:
		fc.compileIdent(n)
	case *ast.LiteralExpr:
		fc.compileLiteral(n)
	case *ast.TemplateExpr:
		fc.compileTemplate(n)
	case *ast.ArrayExpr:
		fc.compileArray(n)
	case *ast.MapExpr:
		fc.compileMap(n)
	case *ast.ParenExpr:
		fc.compileExpr(n.X)
	case *ast.FuncExpr:
		fc.compileFuncExpr(n, n.Name)
	case *ast.CallExpr:
		fc.compileCall(n)
	case *ast.IndexExpr:
		fc.compileExpr(n.X)
		fc.compileExpr(n.Index)
		pos, _ := n.Span()
		fc.sc.emit0(pos, GET_INDEX)
	case *ast.DotExpr:
		fc.compileDot(n)
	case *ast.UnaryExpr:
		fc.compileUnary(n)
	case *ast.IncDecExpr:
		fc.compileIncDec(n, true)
	case *ast.BinOpExpr:
		fc.compileBinOp(n)
	case *ast.LogicExpr:
		fc.compileLogic(n)
	case *ast.TernaryExpr:
		fc.compileTernary(n)
	case *ast.AssignExpr:
		fc.compileAssign(n, true)
	case *ast.BadExpr:
		// parser already reported the error
	default:
		pos, _ := e.Span()
		fc.errorf(pos, "compiler: unhandled expression type %T", e)
	}
}

func (fc *fileCompiler) compileIdent(n *ast.IdentExpr) {
	sym, ok := fc.table.Resolve(n.Name)
	if !ok {
		fc.errorf(n.NamePos, "undefined name %q", n.Name)
		return
	}
	fc.emitGet(sym, n.NamePos)
}

func (fc *fileCompiler) compileLiteral(n *ast.LiteralExpr) {
	switch n.Kind {
	case ast.NumberLit:
		fc.sc.emitNumber(n.ValuePos, n.Num)
	case ast.StringLit:
		fc.sc.emitConstant(n.ValuePos, n.Str)
	case ast.BoolLit:
		if n.Bool {
			fc.sc.emit0(n.ValuePos, TRUE)
		} else {
			fc.sc.emit0(n.ValuePos, FALSE)
		}
	case ast.NullLit:
		fc.sc.emit0(n.ValuePos, NULL)
	}
}

// compileTemplate desugars `text0 ${e0} text1 ${e1} text2` into
// `text0 + e0 + text1 + e1 + text2`, relying on ADD's documented rule that
// concatenating a string with a non-string stringifies the non-string
// operand, so no dedicated stringify opcode is needed.
func (fc *fileCompiler) compileTemplate(n *ast.TemplateExpr) {
	fc.sc.emitConstant(n.Start, n.Texts[0])
	for i, e := range n.Exprs {
		fc.compileExpr(e)
		fc.sc.emit0(n.Start, ADD)
		fc.sc.emitConstant(n.Start, n.Texts[i+1])
		fc.sc.emit0(n.Start, ADD)
	}
}

func (fc *fileCompiler) compileArray(n *ast.ArrayExpr) {
	for _, e := range n.Elems {
		fc.compileExpr(e)
	}
	fc.sc.emitU16(n.Lbrack, ARRAY, uint16(len(n.Elems)))
}

// compileMap builds the map via MAP_START/MAP_END bracketing a sequence of
// GET_THIS/key/value/SET_INDEX writes against the in-progress map sitting
// on the machine's this-stack; see the opcode table, there is no dedicated
// "map literal" opcode beyond these.
func (fc *fileCompiler) compileMap(n *ast.MapExpr) {
	fc.sc.emitU16(n.Lbrace, MAP_START, uint16(len(n.Entries)))
	for _, entry := range n.Entries {
		fc.sc.emit0(n.Lbrace, GET_THIS)
		fc.compileExpr(entry.Key)
		fc.compileExpr(entry.Value)
		fc.sc.emit0(n.Lbrace, SET_INDEX)
	}
	fc.sc.emitU16(n.Rbrace, MAP_END, uint16(len(n.Entries)))
}

func (fc *fileCompiler) compileCall(n *ast.CallExpr) {
	fc.compileExpr(n.Fn)
	for _, a := range n.Args {
		fc.compileExpr(a)
	}
	fc.sc.emitU8(n.Lparen, CALL, uint8(len(n.Args)))
}

func (fc *fileCompiler) compileDot(n *ast.DotExpr) {
	fc.compileExpr(n.X)
	fc.sc.emitConstant(n.NamePos, n.Name)
	fc.sc.emit0(n.Dot, GET_INDEX)
}

func (fc *fileCompiler) compileUnary(n *ast.UnaryExpr) {
	fc.compileExpr(n.X)
	switch n.Op {
	case token.MINUS:
		fc.sc.emit0(n.OpPos, MINUS)
	case token.NOT:
		fc.sc.emit0(n.OpPos, BANG)
	}
}

var directBinOp = map[token.Token]Opcode{
	token.PLUS:    ADD,
	token.MINUS:   SUB,
	token.STAR:    MUL,
	token.SLASH:   DIV,
	token.PERCENT: MOD,
	token.AMP:     AND,
	token.PIPE:    OR,
	token.CARET:   XOR,
	token.SHL:     LSHIFT,
	token.SHR:     RSHIFT,
}

// compileBinOp compiles X, Y and the operator. Relational operators don't
// have their own comparison opcodes: `>`/`>=` compile straight to
// COMPARE plus GREATER_THAN[_EQUAL]; `<`/`<=` get there by compiling their
// operands in swapped order (X < Y is Y > X); `==`/`!=` use COMPARE_EQ plus
// EQUAL/NOT_EQUAL.
func (fc *fileCompiler) compileBinOp(n *ast.BinOpExpr) {
	switch n.Op {
	case token.LSS:
		fc.compileExpr(n.Y)
		fc.compileExpr(n.X)
		fc.sc.emit0(n.OpPos, COMPARE)
		fc.sc.emit0(n.OpPos, GREATER_THAN)
	case token.LEQ:
		fc.compileExpr(n.Y)
		fc.compileExpr(n.X)
		fc.sc.emit0(n.OpPos, COMPARE)
		fc.sc.emit0(n.OpPos, GREATER_THAN_EQUAL)
	case token.GTR:
		fc.compileExpr(n.X)
		fc.compileExpr(n.Y)
		fc.sc.emit0(n.OpPos, COMPARE)
		fc.sc.emit0(n.OpPos, GREATER_THAN)
	case token.GEQ:
		fc.compileExpr(n.X)
		fc.compileExpr(n.Y)
		fc.sc.emit0(n.OpPos, COMPARE)
		fc.sc.emit0(n.OpPos, GREATER_THAN_EQUAL)
	case token.EQL:
		fc.compileExpr(n.X)
		fc.compileExpr(n.Y)
		fc.sc.emit0(n.OpPos, COMPARE_EQ)
		fc.sc.emit0(n.OpPos, EQUAL)
	case token.NEQ:
		fc.compileExpr(n.X)
		fc.compileExpr(n.Y)
		fc.sc.emit0(n.OpPos, COMPARE_EQ)
		fc.sc.emit0(n.OpPos, NOT_EQUAL)
	default:
		op, ok := directBinOp[n.Op]
		if !ok {
			fc.errorf(n.OpPos, "compiler: unhandled binary operator %s", n.Op)
			return
		}
		fc.compileExpr(n.X)
		fc.compileExpr(n.Y)
		fc.sc.emit0(n.OpPos, op)
	}
}

// compileLogic compiles short-circuit `&&`/`||`.
func (fc *fileCompiler) compileLogic(n *ast.LogicExpr) {
	fc.compileExpr(n.X)
	if n.Op == token.LAND {
		falseJump := fc.sc.emitJump(n.OpPos, JUMP_IF_FALSE)
		fc.compileExpr(n.Y)
		end := fc.sc.emitJump(n.OpPos, JUMP)
		fc.sc.patchJump(falseJump)
		fc.sc.emit0(n.OpPos, FALSE)
		fc.sc.patchJump(end)
		return
	}
	trueJump := fc.sc.emitJump(n.OpPos, JUMP_IF_TRUE)
	fc.compileExpr(n.Y)
	end := fc.sc.emitJump(n.OpPos, JUMP)
	fc.sc.patchJump(trueJump)
	fc.sc.emit0(n.OpPos, TRUE)
	fc.sc.patchJump(end)
}

func (fc *fileCompiler) compileTernary(n *ast.TernaryExpr) {
	fc.compileExpr(n.Cond)
	pos, _ := n.Cond.Span()
	falseJump := fc.sc.emitJump(pos, JUMP_IF_FALSE)
	fc.compileExpr(n.Then)
	end := fc.sc.emitJump(pos, JUMP)
	fc.sc.patchJump(falseJump)
	fc.compileExpr(n.Else)
	fc.sc.patchJump(end)
}

// compileFuncExpr compiles a function literal. selfName, when non-empty,
// makes the function's own name resolve inside its body via FunctionSelf
// (CURRENT_FUNCTION) rather than an ordinary closure capture, so direct
// recursion doesn't cost a free-variable slot.
func (fc *fileCompiler) compileFuncExpr(n *ast.FuncExpr, selfName string) {
	fc.pushFunc(selfName, n.Params)
	fc.compileStmts(n.Body.Stmts)
	fc.sc.emit0(n.Body.End, RETURN)
	child, fn := fc.popFunc()
	child.Name = n.Name
	child.NumParams = len(n.Params)

	// Emit, in the enclosing (now-current) scope, one read of each free
	// symbol's ORIGINAL binding, in capture order; FUNCTION then pops them
	// in the same order to populate the closure's free-variable array.
	for _, free := range fn.FreeSymbols {
		fc.emitGet(free, n.FuncPos)
	}
	idx := fc.sc.addConstant(child)
	fc.sc.emitFunction(n.FuncPos, idx, uint8(len(fn.FreeSymbols)))
}

// emitGet/emitSet/emitDefine dispatch to the opcode matching sym.Scope;
// they're shared by identifier reads/writes, for-in's hidden locals,
// import's module-global scatter, and the recover/closure machinery.

func (fc *fileCompiler) emitGet(sym resolver.Symbol, pos token.Pos) {
	switch sym.Scope {
	case resolver.ModuleGlobal:
		fc.sc.emitU16(pos, GET_MODULE_GLOBAL, uint16(sym.Index))
	case resolver.HostGlobal:
		fc.sc.emitU16(pos, GET_HOST_GLOBAL, uint16(sym.Index))
	case resolver.Local:
		fc.sc.emitU8(pos, GET_LOCAL, uint8(sym.Index))
	case resolver.Free:
		fc.sc.emitU8(pos, GET_FREE, uint8(sym.Index))
	case resolver.FunctionSelf:
		fc.sc.emit0(pos, CURRENT_FUNCTION)
	case resolver.This:
		fc.sc.emit0(pos, GET_THIS)
	default:
		fc.errorf(pos, "compiler: cannot read a %s symbol", sym.Scope)
	}
}

func (fc *fileCompiler) emitSet(sym resolver.Symbol, pos token.Pos) {
	if !sym.Assignable {
		fc.errorf(pos, "cannot assign to %q: not assignable", sym.Name)
		return
	}
	switch sym.Scope {
	case resolver.ModuleGlobal:
		fc.sc.emitU16(pos, SET_MODULE_GLOBAL, uint16(sym.Index))
	case resolver.Local:
		fc.sc.emitU8(pos, SET_LOCAL, uint8(sym.Index))
	case resolver.Free:
		fc.sc.emitU8(pos, SET_FREE, uint8(sym.Index))
	default:
		fc.errorf(pos, "compiler: cannot assign to a %s symbol", sym.Scope)
	}
}

func (fc *fileCompiler) emitDefine(sym resolver.Symbol, pos token.Pos) {
	switch sym.Scope {
	case resolver.ModuleGlobal:
		fc.sc.emitU16(pos, DEFINE_MODULE_GLOBAL, uint16(sym.Index))
	case resolver.Local:
		fc.sc.emitU8(pos, DEFINE_LOCAL, uint8(sym.Index))
	default:
		fc.errorf(pos, "compiler: cannot define a %s symbol", sym.Scope)
	}
}

// compileAssign compiles `Left = Right` or a compound assign, desugared by
// the parser to plain `=` with Op carrying the underlying binary operator.
// wantValue controls whether the assigned value is left on the stack
// (needed when the assignment is used as a sub-expression); statement
// context (see compileExprStmt) passes false to skip that extra work,
// since ExprStmt would just pop it again.
//
// For an IdentExpr target that fails to resolve, this defines it (as a new
// local or module-global, depending on scope) instead of erroring: per
// spec's adopted behavior, assigning to an unresolved identifier declares
// it. For an IndexExpr target (or a DotExpr target, compiled the same way
// with its name as a string key), the target and index sub-expressions are
// (re-)compiled up to three times (the closed opcode set has no multi-value
// duplicate/rotate
// instruction to avoid it); this only risks duplicating side effects in the
// target/index expressions, never in the assigned value expression itself.
func (fc *fileCompiler) compileAssign(n *ast.AssignExpr, wantValue bool) {
	pos := n.AssignAt
	switch left := n.Left.(type) {
	case *ast.IdentExpr:
		fc.compileIdentAssign(left, n, wantValue, pos)
	case *ast.IndexExpr:
		fc.compileIndexAssign(left.X, func() { fc.compileExpr(left.Index) }, n, wantValue, pos)
	case *ast.DotExpr:
		fc.compileIndexAssign(left.X, func() { fc.sc.emitConstant(left.NamePos, left.Name) }, n, wantValue, pos)
	default:
		fc.errorf(pos, "compiler: invalid assignment target %T", n.Left)
	}
}

func (fc *fileCompiler) compileIdentAssign(left *ast.IdentExpr, n *ast.AssignExpr, wantValue bool, pos token.Pos) {
	sym, ok := fc.table.Resolve(left.Name)
	if !ok {
		var err error
		sym, err = fc.table.Define(left.Name)
		if err != nil {
			fc.errorf(left.NamePos, "%s", err)
			return
		}
		fc.compileExpr(n.Right)
		if wantValue {
			fc.sc.emit0(pos, DUP)
		}
		fc.emitDefine(sym, pos)
		return
	}

	if n.Op != 0 {
		fc.emitGet(sym, left.NamePos)
		fc.compileExpr(n.Right)
		op, opOK := directBinOp[n.Op]
		if !opOK {
			fc.errorf(pos, "compiler: unhandled compound-assign operator %s", n.Op)
			return
		}
		fc.sc.emit0(pos, op)
	} else {
		fc.compileExpr(n.Right)
	}
	if wantValue {
		fc.sc.emit0(pos, DUP)
	}
	fc.emitSet(sym, pos)
}

// compileIndexAssign implements X[K] = R (or a compound form); emitIndex
// compiles the key expression K.
func (fc *fileCompiler) compileIndexAssign(xExpr ast.Expr, emitIndex func(), n *ast.AssignExpr, wantValue bool, pos token.Pos) {
	fc.compileExpr(xExpr)
	emitIndex()
	if n.Op != 0 {
		fc.compileExpr(xExpr)
		emitIndex()
		fc.sc.emit0(pos, GET_INDEX)
		fc.compileExpr(n.Right)
		op, ok := directBinOp[n.Op]
		if !ok {
			fc.errorf(pos, "compiler: unhandled compound-assign operator %s", n.Op)
			return
		}
		fc.sc.emit0(pos, op)
	} else {
		fc.compileExpr(n.Right)
	}
	fc.sc.emit0(pos, SET_INDEX)
	if wantValue {
		fc.compileExpr(xExpr)
		emitIndex()
		fc.sc.emit0(pos, GET_INDEX)
	}
}

// compileIncDec compiles `++x`/`--x`/`x++`/`x--`. For an index/dot target
// it stashes the old and new values in two hidden locals so SET_INDEX's
// fixed (target, key, value) arity is never violated by an extra
// duplicate; for an identifier target, DUP suffices since SET_LOCAL/
// SET_MODULE_GLOBAL/SET_FREE each consume exactly one value.
func (fc *fileCompiler) compileIncDec(n *ast.IncDecExpr, wantValue bool) {
	pos := n.OpPos
	delta := directBinOp[token.PLUS]
	if n.Op == token.DECR {
		delta = directBinOp[token.MINUS]
	}

	switch x := n.X.(type) {
	case *ast.IdentExpr:
		sym, ok := fc.table.Resolve(x.Name)
		if !ok {
			fc.errorf(x.NamePos, "undefined name %q", x.Name)
			return
		}
		fc.emitGet(sym, pos)
		if wantValue && n.Postfix {
			fc.sc.emit0(pos, DUP)
		}
		fc.sc.emitNumber(pos, 1)
		fc.sc.emit0(pos, delta)
		if wantValue && !n.Postfix {
			fc.sc.emit0(pos, DUP)
		}
		fc.emitSet(sym, pos)
		return

	case *ast.IndexExpr:
		fc.compileIncDecIndexed(x.X, func() { fc.compileExpr(x.Index) }, delta, wantValue, n.Postfix, pos)
	case *ast.DotExpr:
		fc.compileIncDecIndexed(x.X, func() { fc.sc.emitConstant(x.NamePos, x.Name) }, delta, wantValue, n.Postfix, pos)
	default:
		fc.errorf(pos, "compiler: invalid incdec target %T", n.X)
	}
}

func (fc *fileCompiler) compileIncDecIndexed(xExpr ast.Expr, emitIndex func(), delta Opcode, wantValue, postfix bool, pos token.Pos) {
	fc.compileExpr(xExpr) // T
	emitIndex()           // K
	fc.compileExpr(xExpr) // T K T2
	emitIndex()            // T K T2 K2
	fc.sc.emit0(pos, GET_INDEX) // T K old

	oldLocal := fc.newTemp()
	fc.emitDefine(oldLocal, pos) // T K
	fc.emitGet(oldLocal, pos)    // T K old
	fc.sc.emitNumber(pos, 1)     // T K old 1
	fc.sc.emit0(pos, delta)      // T K new

	newLocal := fc.newTemp()
	fc.emitDefine(newLocal, pos) // T K
	fc.emitGet(newLocal, pos)    // T K new
	fc.sc.emit0(pos, SET_INDEX)  // (empty)

	if wantValue {
		if postfix {
			fc.emitGet(oldLocal, pos)
		} else {
			fc.emitGet(newLocal, pos)
		}
	}
}

// newTemp allocates a hidden local slot for intermediate values during
// index-target compound-assign/incdec compilation. Names are prefixed with
// "@", which the scanner never produces for a user identifier, and
// suffixed with a per-file counter so nested uses never collide.
func (fc *fileCompiler) newTemp() resolver.Symbol {
	fc.tempCount++
	name := "@t" + itoa(fc.tempCount)
	sym, err := fc.table.Define(name)
	if err != nil {
		// unreachable: the counter guarantees uniqueness
		panic(err)
	}
	return sym
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
