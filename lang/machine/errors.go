package machine

import (
	"fmt"
	"strings"

	"github.com/briarlang/briar/lang/token"
)

// ErrorKind classifies a machine-level error for the embedding API's
// get_error/error_count surface.
type ErrorKind int

const (
	ParsingError ErrorKind = iota
	CompilationError
	RuntimeErrorKind
	TimeoutError
	AllocationError
	UserError
)

func (k ErrorKind) String() string {
	switch k {
	case ParsingError:
		return "parsing"
	case CompilationError:
		return "compilation"
	case RuntimeErrorKind:
		return "runtime"
	case TimeoutError:
		return "timeout"
	case AllocationError:
		return "allocation"
	case UserError:
		return "user"
	default:
		return "unknown"
	}
}

// maxErrorMessage bounds a RuntimeError's message length; the C original
// this spec was distilled from truncates into a fixed buffer preserving a
// trailing null terminator. Go strings carry their own length, so the
// equivalent here is a plain truncation with an added ellipsis marker.
const maxErrorMessage = 2048

// TracebackFrame names one call frame in a RuntimeError's traceback, in
// innermost-first order.
type TracebackFrame struct {
	FunctionName string
	Pos          token.Position
}

func (f TracebackFrame) String() string {
	return fmt.Sprintf("%s (%s)", f.FunctionName, f.Pos)
}

// RuntimeError is the machine's internal representation of any of the error
// kinds spec.md §7 defines. It implements error so it can flow through
// ordinary Go error returns, and carries the extra kind/position/traceback
// fields the embedding API exposes via get_error.
type RuntimeError struct {
	Kind      ErrorKind
	Message   string
	Pos       token.Position
	Traceback []TracebackFrame
}

func newRuntimeError(kind ErrorKind, pos token.Position, format string, args ...any) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage-3] + "..."
	}
	return &RuntimeError{Kind: kind, Message: msg, Pos: pos}
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, " (%s)", e.Pos)
	}
	for _, f := range e.Traceback {
		fmt.Fprintf(&b, "\n\tat %s", f)
	}
	return b.String()
}

// ToValue converts the error to the first-class ErrorValue a recover
// handler or the `error` native function's result receives.
func (e *RuntimeError) ToValue() *ErrorValue {
	return &ErrorValue{Message: e.Error(), Traceback: e.Traceback}
}

// maxErrors bounds the embedding API's pending-error list; errors raised
// beyond this capacity are silently dropped, per spec.md §7.
const maxErrors = 16

// ErrorList is a fixed-capacity accumulator of RuntimeErrors, shared by the
// lexer/parser/compiler (parsing and compilation errors) and, at a given
// Context, by native-function error reporting (set_global/get_error/
// error_count/clear_errors in spec.md §6).
type ErrorList struct {
	errs []*RuntimeError
}

// Add appends err, silently dropping it once the list is at capacity.
func (l *ErrorList) Add(err *RuntimeError) {
	if len(l.errs) >= maxErrors {
		return
	}
	l.errs = append(l.errs, err)
}

// Addf is a convenience wrapper building and adding a RuntimeError.
func (l *ErrorList) Addf(kind ErrorKind, pos token.Position, format string, args ...any) {
	l.Add(newRuntimeError(kind, pos, format, args...))
}

func (l *ErrorList) Len() int              { return len(l.errs) }
func (l *ErrorList) At(i int) *RuntimeError { return l.errs[i] }
func (l *ErrorList) Clear()                { l.errs = l.errs[:0] }
func (l *ErrorList) Last() *RuntimeError {
	if len(l.errs) == 0 {
		return nil
	}
	return l.errs[len(l.errs)-1]
}

func (l *ErrorList) Error() string {
	var b strings.Builder
	for i, e := range l.errs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Error())
	}
	return b.String()
}
