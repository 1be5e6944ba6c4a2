package compiler

import (
	"github.com/briarlang/briar/lang/ast"
	"github.com/briarlang/briar/lang/resolver"
	"github.com/briarlang/briar/lang/token"
)

// fileCompiler drives compilation of one file, wrapping a resolver.Table
// (the file's own symbol table, shared across every function literal it
// contains) and a stack of scopes, one per currently-open function body.
type fileCompiler struct {
	comp  *compilation
	table *resolver.Table
	path  string

	funcs []*scope
	sc    *scope // funcs[len(funcs)-1]

	tempCount int // synthesizes unique "@tN" hidden-local names
}

// pushFunc enters a new function body: a fresh scope, a fresh resolver
// function scope, and a `this` binding available throughout the body. name
// is used only for the FuncExpr self-reference case; params is nil for the
// file's own synthetic top-level function.
func (fc *fileCompiler) pushFunc(name string, params []*ast.IdentExpr) {
	fc.table.PushFunc()
	fc.table.DefineThis()
	if name != "" {
		fc.table.DefineFunctionSelf(name)
	}
	fc.funcs = append(fc.funcs, newScope())
	fc.sc = fc.funcs[len(fc.funcs)-1]
	for _, p := range params {
		_, _ = fc.table.Define(p.Name)
	}
}

// popFunc closes the current function body and returns its compiled form
// plus the resolver.Func it was compiled against (for its FreeSymbols,
// needed by the caller to emit the enclosing closure-construction code).
func (fc *fileCompiler) popFunc() (*CompilationResult, *resolver.Func) {
	fn := fc.table.PopFunc()
	sc := fc.sc
	fc.funcs = fc.funcs[:len(fc.funcs)-1]
	if len(fc.funcs) > 0 {
		fc.sc = fc.funcs[len(fc.funcs)-1]
	} else {
		fc.sc = nil
	}
	return &CompilationResult{
		NumLocals: fn.MaxDefinitions,
		NumFree:   len(fn.FreeSymbols),
		Bytecode:  sc.code,
		Positions: sc.positions,
		Constants: sc.consts,
	}, fn
}

// emitModuleInitReturn is appended instead of a plain RETURN at the end of
// a file compiled to satisfy an import: it gathers the file's own exported
// module-globals, in definition order, into an array and returns it, so the
// importer can scatter the values into its own qualified bindings (see
// compileImport/emitImportRun). This uses only the closed opcode set: there
// is no dedicated "import" opcode.
func (fc *fileCompiler) emitModuleInitReturn(pos token.Pos) {
	names := fc.table.ModuleGlobals()
	for i := range names {
		sym, _ := fc.table.Resolve(names[i])
		fc.emitGet(sym, pos)
	}
	fc.sc.emitU16(pos, ARRAY, uint16(len(names)))
	fc.sc.emit0(pos, RETURN_VALUE)
}

func (fc *fileCompiler) compileStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		fc.compileStmt(s)
	}
}

func (fc *fileCompiler) compileStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		fc.compileExprStmt(n)
	case *ast.DeclStmt:
		fc.compileDeclStmt(n)
	case *ast.FuncStmt:
		fc.compileFuncStmt(n)
	case *ast.IfStmt:
		fc.compileIfStmt(n)
	case *ast.WhileStmt:
		fc.compileWhileStmt(n)
	case *ast.ForStmt:
		fc.compileForStmt(n)
	case *ast.ForInStmt:
		fc.compileForInStmt(n)
	case *ast.BreakStmt:
		fc.compileBreakStmt(n)
	case *ast.ContinueStmt:
		fc.compileContinueStmt(n)
	case *ast.ReturnStmt:
		fc.compileReturnStmt(n)
	case *ast.ImportStmt:
		fc.compileImport(n)
	case *ast.RecoverStmt:
		fc.compileRecoverStmt(n)
	case *ast.BlockStmt:
		fc.table.PushBlock()
		fc.compileStmts(n.Body.Stmts)
		fc.table.PopBlock()
	case *ast.BadStmt:
		// parser already reported the underlying error; nothing to emit.
	default:
		fc.errorf(0, "compiler: unhandled statement type %T", s)
	}
}

func (fc *fileCompiler) compileExprStmt(n *ast.ExprStmt) {
	pos, _ := n.Span()
	if assign, ok := n.X.(*ast.AssignExpr); ok {
		fc.compileAssign(assign, false)
		return
	}
	if incdec, ok := n.X.(*ast.IncDecExpr); ok {
		fc.compileIncDec(incdec, false)
		return
	}
	fc.compileExpr(n.X)
	fc.sc.emit0(pos, POP)
}

func (fc *fileCompiler) compileDeclStmt(n *ast.DeclStmt) {
	fc.compileExpr(n.Value)
	var sym resolver.Symbol
	var err error
	if n.Kind == ast.ConstDecl {
		sym, err = fc.table.DefineConst(n.Name.Name)
	} else {
		sym, err = fc.table.Define(n.Name.Name)
	}
	if err != nil {
		fc.errorf(n.DeclPos, "%s", err)
		return
	}
	fc.emitDefine(sym, n.DeclPos)
}

// compileFuncStmt treats `function NAME(params) BLOCK` as sugar for
// `const NAME = function(params) BLOCK`, per the ast.FuncStmt doc comment,
// with NAME defined in the *outer* scope before the body is compiled so
// ordinary references to it (including from sibling statements defined
// later) resolve normally, and with Name threaded through so within-body
// self-reference goes through FunctionSelf/CURRENT_FUNCTION instead of an
// ordinary closure capture.
func (fc *fileCompiler) compileFuncStmt(n *ast.FuncStmt) {
	sym, err := fc.table.DefineConst(n.Name.Name)
	if err != nil {
		fc.errorf(n.FuncPos, "%s", err)
		return
	}
	fc.compileFuncExpr(n.Func, n.Name.Name)
	fc.emitDefine(sym, n.FuncPos)
}

func (fc *fileCompiler) compileIfStmt(n *ast.IfStmt) {
	var endJumps []int
	for i, c := range n.Cases {
		fc.compileExpr(c.Cond)
		pos, _ := c.Cond.Span()
		falseJump := fc.sc.emitJump(pos, JUMP_IF_FALSE)

		fc.table.PushBlock()
		fc.compileStmts(c.Body.Stmts)
		fc.table.PopBlock()

		if i < len(n.Cases)-1 || n.Else != nil {
			endJumps = append(endJumps, fc.sc.emitJump(pos, JUMP))
		}
		fc.sc.patchJump(falseJump)
	}
	if n.Else != nil {
		fc.table.PushBlock()
		fc.compileStmts(n.Else.Stmts)
		fc.table.PopBlock()
	}
	for _, ip := range endJumps {
		fc.sc.patchJump(ip)
	}
}

func (fc *fileCompiler) compileWhileStmt(n *ast.WhileStmt) {
	testIP := len(fc.sc.code)
	fc.compileExpr(n.Cond)
	pos, _ := n.Cond.Span()
	exitJump := fc.sc.emitJump(pos, JUMP_IF_FALSE)

	loop := fc.sc.pushLoop()
	fc.table.PushBlock()
	fc.compileStmts(n.Body.Stmts)
	fc.table.PopBlock()

	fc.sc.emitU16(pos, JUMP, uint16(testIP))
	fc.sc.patchJump(exitJump)
	for _, ip := range loop.breaks {
		fc.sc.patchJump(ip)
	}
	for _, ip := range loop.continues {
		fc.sc.patchJumpTo(ip, testIP)
	}
	fc.sc.popLoop()
}

func (fc *fileCompiler) compileForStmt(n *ast.ForStmt) {
	fc.table.PushBlock()
	if n.Init != nil {
		fc.compileStmt(n.Init)
	}
	testIP := len(fc.sc.code)
	var exitJump int
	hasTest := n.Test != nil
	pos := n.ForPos
	if hasTest {
		fc.compileExpr(n.Test)
		pos, _ = n.Test.Span()
		exitJump = fc.sc.emitJump(pos, JUMP_IF_FALSE)
	}

	loop := fc.sc.pushLoop()
	fc.table.PushBlock()
	fc.compileStmts(n.Body.Stmts)
	fc.table.PopBlock()

	updateIP := len(fc.sc.code)
	if n.Update != nil {
		fc.compileStmt(n.Update)
	}
	fc.sc.emitU16(pos, JUMP, uint16(testIP))
	if hasTest {
		fc.sc.patchJump(exitJump)
	}
	for _, ip := range loop.breaks {
		fc.sc.patchJump(ip)
	}
	for _, ip := range loop.continues {
		fc.sc.patchJumpTo(ip, updateIP)
	}
	fc.sc.popLoop()
	fc.table.PopBlock()
}

// compileForInStmt desugars `for (iter in src) BODY` using two hidden
// locals, `@src` and `@i`, and the existing opcode set: the loop test
// reuses compileBinOp's swapped-operand `<` pattern (COMPARE + GREATER_THAN
// with operands reversed), and the per-iteration element is read with
// GET_VALUE_AT, which yields `{key, value}` pairs when src is a map.
func (fc *fileCompiler) compileForInStmt(n *ast.ForInStmt) {
	pos := n.ForPos
	fc.table.PushBlock()

	fc.compileExpr(n.Source)
	srcSym, _ := fc.table.Define("@src")
	fc.emitDefine(srcSym, pos)

	fc.sc.emitNumber(pos, 0)
	iSym, _ := fc.table.Define("@i")
	fc.emitDefine(iSym, pos)

	testIP := len(fc.sc.code)
	fc.emitGet(srcSym, pos)
	fc.sc.emit0(pos, LEN)
	fc.emitGet(iSym, pos)
	fc.sc.emit0(pos, COMPARE)
	fc.sc.emit0(pos, GREATER_THAN) // len(@src) > @i  <=>  @i < len(@src)
	exitJump := fc.sc.emitJump(pos, JUMP_IF_FALSE)

	loop := fc.sc.pushLoop()
	fc.table.PushBlock()
	fc.emitGet(srcSym, pos)
	fc.emitGet(iSym, pos)
	fc.sc.emit0(pos, GET_VALUE_AT)
	iterSym, _ := fc.table.Define(n.Iter.Name)
	fc.emitDefine(iterSym, pos)
	fc.compileStmts(n.Body.Stmts)
	fc.table.PopBlock()

	updateIP := len(fc.sc.code)
	fc.emitGet(iSym, pos)
	fc.sc.emitNumber(pos, 1)
	fc.sc.emit0(pos, ADD)
	fc.emitSet(iSym, pos)

	fc.sc.emitU16(pos, JUMP, uint16(testIP))
	fc.sc.patchJump(exitJump)
	for _, ip := range loop.breaks {
		fc.sc.patchJump(ip)
	}
	for _, ip := range loop.continues {
		fc.sc.patchJumpTo(ip, updateIP)
	}
	fc.sc.popLoop()
	fc.table.PopBlock()
}

func (fc *fileCompiler) compileBreakStmt(n *ast.BreakStmt) {
	loop := fc.sc.currentLoop()
	if loop == nil {
		fc.errorf(n.BreakPos, "break outside a loop")
		return
	}
	ip := fc.sc.emitJump(n.BreakPos, JUMP)
	loop.breaks = append(loop.breaks, ip)
}

func (fc *fileCompiler) compileContinueStmt(n *ast.ContinueStmt) {
	loop := fc.sc.currentLoop()
	if loop == nil {
		fc.errorf(n.ContinuePos, "continue outside a loop")
		return
	}
	ip := fc.sc.emitJump(n.ContinuePos, JUMP)
	loop.continues = append(loop.continues, ip)
}

func (fc *fileCompiler) compileReturnStmt(n *ast.ReturnStmt) {
	if n.X == nil {
		fc.sc.emit0(n.ReturnPos, RETURN)
		return
	}
	fc.compileExpr(n.X)
	fc.sc.emit0(n.ReturnPos, RETURN_VALUE)
}

// compileRecoverStmt arms the frame's recover handler at SET_RECOVER's
// target, then emits a JUMP over the handler body, which is compiled inline
// and reached only by the machine unwinding into it. The body's last
// statement must be a return; recover is not required to be the first
// statement of its block.
func (fc *fileCompiler) compileRecoverStmt(n *ast.RecoverStmt) {
	armIP := fc.sc.emitJump(n.RecoverPos, SET_RECOVER) // operand patched below, once the handler's IP is known
	skip := fc.sc.emitJump(n.RecoverPos, JUMP)
	fc.sc.patchJump(armIP)

	fc.table.PushBlock()
	errSym, _ := fc.table.Define(n.Err.Name)
	fc.emitDefine(errSym, n.RecoverPos)

	var last ast.Stmt
	if k := len(n.Body.Stmts); k > 0 {
		last = n.Body.Stmts[k-1]
	}
	if _, ok := last.(*ast.ReturnStmt); !ok {
		fc.errorf(n.RecoverPos, "recover body must end in a return")
	}
	fc.compileStmts(n.Body.Stmts)
	fc.table.PopBlock()
	fc.sc.patchJump(skip)
}
