package machine

import "strconv"

// String is the string value type: an immutable, comparable Go string. Two
// Strings with the same contents compare and hash equal by Go's built-in
// interface equality, which is exactly the byte-wise equality spec.md's data
// model calls for, so no separate hashing layer is needed for string keys.
type String string

func (s String) String() string { return string(s) }
func (String) Type() string     { return "string" }

// Quoted returns a double-quoted, Go-escaped form of s, used by ToString's
// debug rendering of container elements.
func (s String) Quoted() string { return strconv.Quote(string(s)) }

// Len returns the number of bytes in s. The language treats strings as
// byte sequences (the scanner is byte-oriented and non-ASCII text passes
// through literals untouched), so indexing and length are byte-based.
func (s String) Len() int { return len(s) }
