package machine

import "strings"

// ToString renders v as a script-visible string: the conversion ADD applies
// to a non-string operand, which is how template strings stringify their
// placeholders, and the body of the `tostring` native. Numbers use a shortest round-trippable decimal form, booleans
// render as true/false, null as null, strings pass through unchanged, and
// arrays/maps render a depth-bounded debug form meant only for diagnostics,
// never relied on by any testable property.
func ToString(v Value) string {
	return toStringDepth(v, 0)
}

const toStringMaxDepth = 4

func toStringDepth(v Value, depth int) string {
	switch v := v.(type) {
	case String:
		return string(v)
	case Number:
		return v.String()
	case Bool:
		return v.String()
	case nullType:
		return "null"
	}
	if depth >= toStringMaxDepth {
		return v.Type() + "(...)"
	}
	switch v := v.(type) {
	case *Array:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(toStringDepth(e, depth+1))
		}
		b.WriteByte(']')
		return b.String()
	case *Map:
		var b strings.Builder
		b.WriteByte('{')
		first := true
		v.Pairs(func(k, val Value) {
			if !first {
				b.WriteString(", ")
			}
			first = false
			b.WriteString(toStringDepth(k, depth+1))
			b.WriteString(": ")
			b.WriteString(toStringDepth(val, depth+1))
		})
		b.WriteByte('}')
		return b.String()
	default:
		return v.String()
	}
}

// tostringNative is the NativeFunction body bound as the host global
// `tostring`.
func tostringNative(_ *Context, _ any, args []Value) (Value, error) {
	if len(args) == 0 {
		return String("null"), nil
	}
	return String(ToString(args[0])), nil
}
