package scanner_test

import (
	"testing"

	"github.com/briarlang/briar/lang/scanner"
	"github.com/briarlang/briar/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []scanner.TokenAndValue {
	t.Helper()
	fs := token.NewFileSet()
	f := fs.AddFile("test.briar", len(src))

	var el scanner.ErrorList
	var s scanner.Scanner
	s.Init(f, []byte(src), el.Add)

	var out []scanner.TokenAndValue
	var val token.Value
	for {
		tok := s.Scan(&val)
		out = append(out, scanner.TokenAndValue{Token: tok, Value: val})
		if tok == token.EOF {
			break
		}
	}
	require.Empty(t, el, "scan errors: %v", el.Err())
	return out
}

func kinds(toks []scanner.TokenAndValue) []token.Token {
	out := make([]token.Token, len(toks))
	for i, tv := range toks {
		out[i] = tv.Token
	}
	return out
}

func TestScanPunctAndOperators(t *testing.T) {
	toks := scanAll(t, "a += 1; b = a <= 2 && !c;")
	require.Equal(t, []token.Token{
		token.IDENT, token.ADD_ASSIGN, token.NUMBER, token.SEMI,
		token.IDENT, token.ASSIGN, token.IDENT, token.LEQ, token.NUMBER, token.LAND, token.NOT, token.IDENT, token.SEMI,
		token.EOF,
	}, kinds(toks))
}

func TestScanKeywords(t *testing.T) {
	toks := scanAll(t, "function if else while for in const var true false null return break continue import recover")
	want := []token.Token{
		token.FUNCTION, token.IF, token.ELSE, token.WHILE, token.FOR, token.IN,
		token.CONST, token.VAR, token.TRUE, token.FALSE, token.NULL, token.RETURN,
		token.BREAK, token.CONTINUE, token.IMPORT, token.RECOVER, token.EOF,
	}
	require.Equal(t, want, kinds(toks))
}

func TestScanQualifiedIdent(t *testing.T) {
	toks := scanAll(t, "math::sqrt")
	require.Equal(t, []token.Token{token.IDENT, token.EOF}, kinds(toks))
	require.Equal(t, "math::sqrt", toks[0].Value.Str)
}

func TestScanNumber(t *testing.T) {
	toks := scanAll(t, "1 2.5 0x1F")
	require.Equal(t, []token.Token{token.NUMBER, token.NUMBER, token.NUMBER, token.EOF}, kinds(toks))
	require.Equal(t, float64(1), toks[0].Value.Float)
	require.Equal(t, 2.5, toks[1].Value.Float)
	require.Equal(t, float64(31), toks[2].Value.Float)
}

func TestScanStringEscapes(t *testing.T) {
	toks := scanAll(t, `"a\nb\tc\"d"`)
	require.Equal(t, token.STRING, toks[0].Token)
	require.Equal(t, "a\nb\tc\"d", toks[0].Value.Str)
}

func TestScanStringUnknownEscapePassesThrough(t *testing.T) {
	toks := scanAll(t, `"a\qb"`)
	require.Equal(t, "aqb", toks[0].Value.Str)
}

func TestScanLineComment(t *testing.T) {
	toks := scanAll(t, "a // comment\nb")
	require.Equal(t, []token.Token{token.IDENT, token.IDENT, token.EOF}, kinds(toks))
}

func TestScanTemplateStringNoPlaceholder(t *testing.T) {
	toks := scanAll(t, "`hello world`")
	require.Equal(t, token.TEMPLATE_STR, toks[0].Token)
	require.Equal(t, "hello world", toks[0].Value.Str)
	require.True(t, toks[0].Value.TemplateDone)
}

func TestScanTemplateStringWithPlaceholder(t *testing.T) {
	fs := token.NewFileSet()
	src := "`hello ${n}!`"
	f := fs.AddFile("test.briar", len(src))
	var el scanner.ErrorList
	var s scanner.Scanner
	s.Init(f, []byte(src), el.Add)

	var val token.Value
	tok := s.Scan(&val)
	require.Equal(t, token.TEMPLATE_STR, tok)
	require.Equal(t, "hello ", val.Str)
	require.False(t, val.TemplateDone)

	tok = s.Scan(&val)
	require.Equal(t, token.IDENT, tok)
	require.Equal(t, "n", val.Str)

	tok = s.Scan(&val)
	require.Equal(t, token.RBRACE, tok)

	tok = s.ContinueTemplateString(&val)
	require.Equal(t, token.TEMPLATE_STR, tok)
	require.Equal(t, "!", val.Str)
	require.True(t, val.TemplateDone)
}
