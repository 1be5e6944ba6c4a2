package machine

import (
	"strings"

	"github.com/briarlang/briar/lang/token"
)

// asNumber reports v's numeric value, coercing Null to 0 per the VM's
// null-coercion rule (spec.md §4.7: arithmetic on null behaves as if it were
// zero). Any other non-numeric type fails.
func asNumber(v Value) (Number, bool) {
	switch v := v.(type) {
	case Number:
		return v, true
	case nullType:
		return 0, true
	default:
		return 0, false
	}
}

// add implements ADD's type-dependent behavior: string concatenation
// (stringifying a non-string operand on either side), in-place array
// append, numeric addition with null-coercion, and a __operator_add__
// overload fallback when a map operand is present.
func (ctx *Context) add(pos token.Pos, a, b Value) (Value, error) {
	if arr, ok := a.(*Array); ok {
		arr.Append(b)
		return arr, nil
	}
	if as, ok := a.(String); ok {
		if bs, ok := b.(String); ok {
			return as + bs, nil
		}
		return as + String(ToString(b)), nil
	}
	if bs, ok := b.(String); ok {
		return String(ToString(a)) + bs, nil
	}
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			return an + bn, nil
		}
	}
	if res, handled, err := ctx.tryOverload("__operator_add__", a, b); handled {
		return res, err
	}
	return Null, newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos),
		"add: unsupported operand types %s, %s", a.Type(), b.Type())
}

// binNumeric implements SUB/MUL/DIV: numeric computation with null
// coercion, falling back to the named overload when a map operand is
// present.
func (ctx *Context) binNumeric(pos token.Pos, overload, symbol string, fn func(a, b float64) float64) error {
	b, a := ctx.pop(), ctx.pop()
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if aok && bok {
		return ctx.push(Number(fn(float64(an), float64(bn))))
	}
	if res, handled, err := ctx.tryOverload(overload, a, b); handled {
		if err != nil {
			return err
		}
		return ctx.push(res)
	}
	return newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos),
		"%s: unsupported operand types %s, %s", symbol, a.Type(), b.Type())
}

// binIntegral implements MOD and the bitwise/shift opcodes: both operands
// are null-coerced then truncated to int64 before fn runs, falling back to
// the named overload when a map operand is present.
func (ctx *Context) binIntegral(pos token.Pos, overload, symbol string, fn func(a, b int64) int64) error {
	b, a := ctx.pop(), ctx.pop()
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if aok && bok {
		return ctx.push(Number(fn(truncInt(an), truncInt(bn))))
	}
	if res, handled, err := ctx.tryOverload(overload, a, b); handled {
		if err != nil {
			return err
		}
		return ctx.push(res)
	}
	return newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos),
		"%s: unsupported operand types %s, %s", symbol, a.Type(), b.Type())
}

// compare orders a and b, returning a negative/zero/positive value the way
// the COMPARE opcode's GREATER_THAN(_EQUAL) tests expect. Numbers and
// strings order by value; a __cmp__ overload handles map operands; anything
// else (mismatched, non-orderable types) is a runtime error.
func (ctx *Context) compare(pos token.Pos, a, b Value) (Number, error) {
	if an, ok := a.(Number); ok {
		if bn, ok := b.(Number); ok {
			return Number(an.Cmp(bn)), nil
		}
	}
	if as, ok := a.(String); ok {
		if bs, ok := b.(String); ok {
			return Number(strings.Compare(string(as), string(bs))), nil
		}
	}
	if res, handled, err := ctx.tryOverload("__cmp__", a, b); handled {
		if err != nil {
			return 0, err
		}
		n, ok := res.(Number)
		if !ok {
			return 0, newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "__cmp__: must return a number")
		}
		return n, nil
	}
	return 0, newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos),
		"values of type %s and %s are not orderable", a.Type(), b.Type())
}

// compareEq implements COMPARE_EQ: an "orderedness number" that does not
// require orderability, per opcode.go's comment -- it returns 0 for equal
// values and a nonzero number otherwise, never a runtime error, since
// equality has no failure mode. Numbers cross-coerce with null treated as
// 0, strings compare byte-wise, and every allocated type (*Array, *Map,
// *Function, *NativeFunction, *External) compares by pointer identity.
func compareEq(a, b Value) Number {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			if an == bn {
				return 0
			}
			return 1
		}
	}
	if as, ok := a.(String); ok {
		if bs, ok := b.(String); ok {
			if as == bs {
				return 0
			}
			return 1
		}
		return 1
	}
	if ab, ok := a.(Bool); ok {
		if bb, ok := b.(Bool); ok {
			if ab == bb {
				return 0
			}
			return 1
		}
		return 1
	}
	if a == b {
		return 0
	}
	return 1
}

// getIndex implements GET_INDEX: array/string indexing (negative-from-end,
// out-of-range yields Null) and map lookup by a Hashable key (absent yields
// Null).
func (ctx *Context) getIndex(pos token.Pos, target, idx Value) (Value, error) {
	switch t := target.(type) {
	case *Array:
		n, ok := idx.(Number)
		if !ok {
			return Null, newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "array index must be a number")
		}
		return t.Index(int(n)), nil
	case String:
		n, ok := idx.(Number)
		if !ok {
			return Null, newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "string index must be a number")
		}
		i, ok := resolveIndex(int(n), len(t))
		if !ok {
			return Null, nil
		}
		return String(t[i : i+1]), nil
	case *Map:
		if !Hashable(idx) {
			return Null, newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "unhashable map key type %s", idx.Type())
		}
		v, _ := t.Get(idx)
		return v, nil
	default:
		return Null, newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "value of type %s is not indexable", target.Type())
	}
}

// setIndex implements SET_INDEX: array element assignment (growing with
// null padding) and map key assignment.
func (ctx *Context) setIndex(pos token.Pos, target, idx, val Value) error {
	switch t := target.(type) {
	case *Array:
		n, ok := idx.(Number)
		if !ok {
			return newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "array index must be a number")
		}
		t.SetIndex(int(n), val)
		return nil
	case *Map:
		if !Hashable(idx) {
			return newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "unhashable map key type %s", idx.Type())
		}
		t.Set(idx, val)
		return nil
	default:
		return newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "value of type %s does not support index assignment", target.Type())
	}
}

// getValueAt implements GET_VALUE_AT, the ordinal-access opcode for-in
// iteration desugars to. Arrays yield the element at the given ordinal;
// maps yield a synthetic two-entry {key, value} map so `for (k in m)` can
// read `k.key`/`k.value` (dot access desugars to index access) uniformly
// whether iterating an array or a map.
func (ctx *Context) getValueAt(pos token.Pos, target, idx Value) (Value, error) {
	n, ok := idx.(Number)
	if !ok {
		return Null, newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "iteration index must be a number")
	}
	i := int(n)
	switch t := target.(type) {
	case *Array:
		return t.Index(i), nil
	case *Map:
		k, ok := t.KeyAt(i)
		if !ok {
			return Null, newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "iteration index out of range")
		}
		v, _ := t.ValueAt(i)
		pair := ctx.heap.NewMap(2)
		pair.Set(String("key"), k)
		pair.Set(String("value"), v)
		return pair, nil
	default:
		return Null, newRuntimeError(RuntimeErrorKind, ctx.fset.Position(pos), "value of type %s is not iterable", target.Type())
	}
}
