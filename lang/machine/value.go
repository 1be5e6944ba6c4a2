// Package machine implements the register-less stack virtual machine that
// executes compiled bytecode, the tracing mark-sweep garbage collector that
// backs it, and the runtime representation of every value the language
// manipulates.
//
// The data model follows a tagged-value design (spec.md's "Implementers MAY
// substitute a tagged enum instead of NaN-boxing" escape hatch): Value is an
// interface satisfied by a small, closed set of concrete Go types, one per
// runtime type tag (number, bool, null, string, error, array, map, function,
// native function, external). Dispatch on those tags -- for indexing,
// arithmetic, equality, comparison -- lives in free functions in this
// package rather than behind per-type interface methods, mirroring the
// centralized getIndex/setIndex/Binary/Compare style of the Starlark-go
// evaluator this package is grounded on.
package machine

// Value is implemented by every runtime value the machine manipulates.
type Value interface {
	String() string
	Type() string
}

// Callable is implemented by values that may appear as the callee of a CALL
// instruction: script Functions and host-supplied NativeFunctions.
type Callable interface {
	Value
	Name() string
}

// Bool is the boolean value type.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

const (
	True  = Bool(true)
	False = Bool(false)
)

// Null is the single null value.
type nullType struct{}

func (nullType) String() string { return "null" }
func (nullType) Type() string   { return "null" }

// Null is the sole instance of the null type, pushed by the NULL opcode and
// produced by RETURN and out-of-range reads.
var Null Value = nullType{}

// Truth reports whether v is truthy: null and false are falsy, everything
// else -- including zero, the empty string, and empty containers -- is
// truthy. Only bool and null carry truth-value semantics distinct from
// "exists"; this mirrors the spec's boolean-coercion rule for JUMP_IF_FALSE
// and JUMP_IF_TRUE.
func Truth(v Value) bool {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case nullType:
		return false
	default:
		return true
	}
}

// Hashable reports whether v may be used as a map key: numbers, bools, null
// and strings compare and hash by value; every other allocated type (array,
// map, function, ...) is excluded since it either cannot be hashed stably
// (array/map contents are mutable) or has no meaningful value identity to
// key by.
func Hashable(v Value) bool {
	switch v.(type) {
	case Number, Bool, nullType, String:
		return true
	default:
		return false
	}
}
