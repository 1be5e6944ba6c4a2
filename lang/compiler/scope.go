package compiler

import (
	"encoding/binary"
	"math"

	"github.com/briarlang/briar/lang/token"
)

// loopCtx tracks the open break/continue jump sites of one enclosing loop,
// patched once the loop's end (break target) and update-or-test (continue
// target) addresses are known. Both lists are "open patch lists" rather
// than a single pre-known address: for a three-part for loop the update
// clause is compiled after the body, so continue's target isn't known any
// earlier than break's is.
type loopCtx struct {
	breaks    []int
	continues []int
}

// scope accumulates the bytecode for one function body (including a file's
// synthetic top-level function). Nested function literals get their own
// scope, pushed on fileCompiler.funcs while being compiled.
type scope struct {
	code       []byte
	positions  []token.Pos
	consts     []interface{}
	constIndex map[interface{}]int
	loops      []*loopCtx
}

func newScope() *scope {
	return &scope{constIndex: make(map[interface{}]int)}
}

func (s *scope) push(pos token.Pos, b byte) {
	s.code = append(s.code, b)
	s.positions = append(s.positions, pos)
}

// emit0 emits a zero-operand opcode and returns its IP.
func (s *scope) emit0(pos token.Pos, op Opcode) int {
	ip := len(s.code)
	s.push(pos, byte(op))
	return ip
}

// emitU8 emits an opcode with a single-byte operand.
func (s *scope) emitU8(pos token.Pos, op Opcode, operand uint8) int {
	ip := len(s.code)
	s.push(pos, byte(op))
	s.push(pos, operand)
	return ip
}

// emitU16 emits an opcode with a big-endian two-byte operand.
func (s *scope) emitU16(pos token.Pos, op Opcode, operand uint16) int {
	ip := len(s.code)
	s.push(pos, byte(op))
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], operand)
	s.push(pos, buf[0])
	s.push(pos, buf[1])
	return ip
}

// emitNumber emits the NUMBER opcode with v's raw IEEE-754 bit pattern as
// an 8-byte big-endian operand; number literals are never pooled as
// constants, per spec's opcode table.
func (s *scope) emitNumber(pos token.Pos, v float64) int {
	ip := len(s.code)
	s.push(pos, byte(NUMBER))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	for _, b := range buf {
		s.push(pos, b)
	}
	return ip
}

// emitJump emits a jump opcode with a placeholder operand and returns its
// IP for later patching via patchJump.
func (s *scope) emitJump(pos token.Pos, op Opcode) int {
	return s.emitU16(pos, op, 0)
}

// patchJump overwrites the operand of the jump instruction at ip so it
// targets the current end of the instruction stream.
func (s *scope) patchJump(ip int) {
	s.patchJumpTo(ip, len(s.code))
}

func (s *scope) patchJumpTo(ip, target int) {
	binary.BigEndian.PutUint16(s.code[ip+1:ip+3], uint16(target))
}

// addConstant interns v (a float64 or string) by value, or appends a fresh
// entry for a *CompilationResult (nested function), and returns its index
// in the constant pool.
func (s *scope) addConstant(v interface{}) uint16 {
	if _, isFunc := v.(*CompilationResult); !isFunc {
		if idx, ok := s.constIndex[v]; ok {
			return uint16(idx)
		}
	}
	idx := len(s.consts)
	s.consts = append(s.consts, v)
	if _, isFunc := v.(*CompilationResult); !isFunc {
		s.constIndex[v] = idx
	}
	return uint16(idx)
}

func (s *scope) emitConstant(pos token.Pos, v interface{}) int {
	return s.emitU16(pos, CONSTANT, s.addConstant(v))
}

// emitFunction emits FUNCTION's special 3-byte operand (u16 constant index,
// u8 free-variable count) and returns the opcode's IP.
func (s *scope) emitFunction(pos token.Pos, constIdx uint16, nfree uint8) int {
	ip := len(s.code)
	s.push(pos, byte(FUNCTION))
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], constIdx)
	s.push(pos, buf[0])
	s.push(pos, buf[1])
	s.push(pos, nfree)
	return ip
}

func (s *scope) currentLoop() *loopCtx {
	if len(s.loops) == 0 {
		return nil
	}
	return s.loops[len(s.loops)-1]
}

func (s *scope) pushLoop() *loopCtx {
	l := &loopCtx{}
	s.loops = append(s.loops, l)
	return l
}

func (s *scope) popLoop() {
	s.loops = s.loops[:len(s.loops)-1]
}
