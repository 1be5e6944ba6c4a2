package machine

import "github.com/briarlang/briar/lang/token"

// Frame is one activation record on the VM's frame stack, per spec.md §4.7.
// Locals live on the value stack at [basePointer, basePointer+NumLocals);
// Code/Positions are read directly from Fn.Code to avoid a pointer chase on
// every instruction fetch.
type Frame struct {
	Fn          *Function
	IP          int
	BasePointer int

	Code      []byte
	Positions []token.Pos

	RecoverIP    int // -1 when no recover handler is armed
	IsRecovering bool
}

func newFrame(fn *Function, basePointer int) Frame {
	return Frame{
		Fn:          fn,
		BasePointer: basePointer,
		Code:        fn.Code.Bytecode,
		Positions:   fn.Code.Positions,
		RecoverIP:   -1,
	}
}

// Pos returns the source position of the instruction at the frame's current
// IP, for error reporting and tracebacks.
func (f *Frame) Pos() token.Pos {
	if f.IP < 0 || f.IP >= len(f.Positions) {
		return token.NoPos
	}
	return f.Positions[f.IP]
}
