package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < tokenCount; tok++ {
		require.NotEmpty(t, tok.String(), "token %d", tok)
	}
}

func TestLookupIdent(t *testing.T) {
	for tok := FUNCTION; tok < tokenCount; tok++ {
		require.Equal(t, tok, LookupIdent(tokenNames[tok]))
	}
	require.Equal(t, IDENT, LookupIdent("notakeyword"))
	require.Equal(t, IDENT, LookupIdent("x"))
}

func TestIsAssignOp(t *testing.T) {
	require.True(t, ASSIGN.IsAssignOp())
	require.True(t, ADD_ASSIGN.IsAssignOp())
	require.True(t, SHR_ASSIGN.IsAssignOp())
	require.False(t, PLUS.IsAssignOp())
	require.False(t, EQL.IsAssignOp())
}

func TestBinaryOpForAssign(t *testing.T) {
	cases := map[Token]Token{
		ADD_ASSIGN: PLUS,
		SUB_ASSIGN: MINUS,
		MUL_ASSIGN: STAR,
		DIV_ASSIGN: SLASH,
		MOD_ASSIGN: PERCENT,
		AND_ASSIGN: AMP,
		OR_ASSIGN:  PIPE,
		XOR_ASSIGN: CARET,
		SHL_ASSIGN: SHL,
		SHR_ASSIGN: SHR,
	}
	for tok, want := range cases {
		require.Equal(t, want, tok.BinaryOpForAssign())
	}
	require.Panics(t, func() { ASSIGN.BinaryOpForAssign() })
}
