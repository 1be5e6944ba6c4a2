// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scanner

import (
	"bytes"
	"context"
	"fmt"
	"go/scanner"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/briarlang/briar/lang/token"
)

type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

var PrintError = scanner.PrintError

// TokenAndValue combines the token type with the token value type in the
// same struct.
type TokenAndValue struct {
	Token token.Token
	Pos   token.Pos
	Value token.Value
}

// ScanFiles is a helper that tokenizes the given source files and returns
// the list of tokens grouped by file, plus any accumulated error (which, if
// non-nil, implements Unwrap() []error via go/scanner.ErrorList).
func ScanFiles(ctx context.Context, files ...string) (*token.FileSet, [][]TokenAndValue, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	var (
		s      Scanner
		tokVal token.Value
		el     ErrorList
	)

	fs := token.NewFileSet()
	tokensByFile := make([][]TokenAndValue, len(files))
	for i, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			el.Add(token.Position{Filename: file}, err.Error())
			continue
		}

		f := fs.AddFile(file, len(b))
		s.Init(f, b, el.Add)
		for {
			tok := s.Scan(&tokVal)
			tokensByFile[i] = append(tokensByFile[i], TokenAndValue{Token: tok, Pos: s.Pos(), Value: tokVal})
			if tok == token.EOF {
				break
			}
		}
	}
	el.Sort()
	return fs, tokensByFile, el.Err()
}

// Scanner tokenizes one source file for the parser to consume. It keeps the
// current character and can peek one byte ahead; the caller (the parser)
// gets its one-token lookahead by calling Scan.
type Scanner struct {
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	sb               strings.Builder
	pendingSurrogate rune
	invalidByte      byte
	cur              rune
	off              int
	roff             int
	tokOff           int
	failed           bool
}

var (
	bom      = [2]byte{0xFE, 0xFF}
	hashBang = [2]byte{'#', '!'}
)

// Init initializes the scanner to tokenize a new file. It panics if the
// file's recorded size does not match len(src).
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	if file.Size() != len(src)+1 {
		panic(fmt.Sprintf("file size (%d) does not match src len (%d)+1", file.Size(), len(src)))
	}

	s.file = file
	s.src = src
	s.err = errHandler

	s.sb.Reset()
	s.pendingSurrogate = 0
	s.invalidByte = 0
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.failed = false

	if len(src) >= len(bom) && bytes.Equal(src[:len(bom)], bom[:]) {
		s.off += len(bom)
		s.roff += len(bom)
	}
	if len(src)-s.roff >= len(hashBang) && bytes.Equal(src[s.roff:s.roff+len(hashBang)], hashBang[:]) {
		for s.cur != '\n' && s.cur != -1 {
			s.advance()
		}
	}
	s.advance()
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off)
		}
		s.cur = -1
		return
	}

	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off)
	}

	s.invalidByte = 0
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "illegal UTF-8 encoding")
			s.invalidByte = s.src[s.roff]
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) error(off int, msg string) {
	s.failed = true
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

func (s *Scanner) advanceIf(matches ...byte) bool {
	if bytes.ContainsRune(matches, s.cur) {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token in the source file, along with its literal
// value in *tokVal.
func (s *Scanner) Scan(tokVal *token.Value) (tok token.Token) {
	if s.failed {
		return token.INVALID
	}

	s.skipWhitespace()
	start := s.off
	s.tokOff = start

	switch cur := s.cur; {
	case isLetter(cur):
		lit := s.ident()
		tok = token.LookupIdent(lit)
		*tokVal = token.Value{Str: lit}

	case isDecimal(cur) || (cur == '.' && isDecimal(rune(s.peek()))):
		lit := s.number()
		v, err := parseNumber(lit)
		if err != nil {
			s.error(start, "invalid number literal: "+lit)
		}
		tok = token.NUMBER
		*tokVal = token.Value{Str: lit, Float: v}

	default:
		*tokVal = token.Value{}
		s.advance()
		switch cur {
		case '"', '\'':
			val := s.shortString(cur)
			tok = token.STRING
			*tokVal = token.Value{Str: val}

		case '`':
			val, done := s.templateSegment()
			tok = token.TEMPLATE_STR
			*tokVal = token.Value{Str: val, TemplateDone: done}

		case '(':
			tok = token.LPAREN
		case ')':
			tok = token.RPAREN
		case '{':
			tok = token.LBRACE
		case '}':
			tok = token.RBRACE
		case '[':
			tok = token.LBRACK
		case ']':
			tok = token.RBRACK
		case ',':
			tok = token.COMMA
		case ';':
			tok = token.SEMI
		case '?':
			tok = token.QUESTION

		case ':':
			tok = token.COLON
			if s.advanceIf(':') {
				// a `::` not preceded by an identifier is consumed whole and
				// reported as COLON; module-qualified names are scanned by
				// ident().
			}

		case '.':
			tok = token.DOT

		case '+':
			tok = token.PLUS
			if s.advanceIf('+') {
				tok = token.INCR
			} else if s.advanceIf('=') {
				tok = token.ADD_ASSIGN
			}
		case '-':
			tok = token.MINUS
			if s.advanceIf('-') {
				tok = token.DECR
			} else if s.advanceIf('=') {
				tok = token.SUB_ASSIGN
			}
		case '*':
			tok = token.STAR
			if s.advanceIf('=') {
				tok = token.MUL_ASSIGN
			}
		case '/':
			if s.advanceIf('/') {
				s.lineComment()
				return s.Scan(tokVal)
			}
			tok = token.SLASH
			if s.advanceIf('=') {
				tok = token.DIV_ASSIGN
			}
		case '%':
			tok = token.PERCENT
			if s.advanceIf('=') {
				tok = token.MOD_ASSIGN
			}
		case '&':
			tok = token.AMP
			if s.advanceIf('&') {
				tok = token.LAND
			} else if s.advanceIf('=') {
				tok = token.AND_ASSIGN
			}
		case '|':
			tok = token.PIPE
			if s.advanceIf('|') {
				tok = token.LOR
			} else if s.advanceIf('=') {
				tok = token.OR_ASSIGN
			}
		case '^':
			tok = token.CARET
			if s.advanceIf('=') {
				tok = token.XOR_ASSIGN
			}
		case '!':
			tok = token.NOT
			if s.advanceIf('=') {
				tok = token.NEQ
			}
		case '=':
			tok = token.ASSIGN
			if s.advanceIf('=') {
				tok = token.EQL
			}
		case '<':
			tok = token.LSS
			if s.advanceIf('<') {
				tok = token.SHL
				if s.advanceIf('=') {
					tok = token.SHL_ASSIGN
				}
			} else if s.advanceIf('=') {
				tok = token.LEQ
			}
		case '>':
			tok = token.GTR
			if s.advanceIf('>') {
				tok = token.SHR
				if s.advanceIf('=') {
					tok = token.SHR_ASSIGN
				}
			} else if s.advanceIf('=') {
				tok = token.GEQ
			}

		case -1:
			tok = token.EOF

		default:
			if cur == utf8.RuneError && s.invalidByte > 0 {
				cur = rune(s.invalidByte)
				s.invalidByte = 0
			}
			s.errorf(start, "illegal character %#U", cur)
			tok = token.INVALID
		}
		if tokVal.Str == "" && tok != token.STRING && tok != token.TEMPLATE_STR {
			*tokVal = token.Value{Str: tok.String()}
		}
	}
	return tok
}

// Pos returns the starting position of the most recently scanned token.
func (s *Scanner) Pos() token.Pos { return s.file.Pos(s.tokOff) }

// ContinueTemplateString re-enters the lexer after the parser has consumed
// a `${ expr }` placeholder inside a template string, resuming scanning of
// the literal text from the current position.
func (s *Scanner) ContinueTemplateString(tokVal *token.Value) token.Token {
	s.tokOff = s.off
	val, done := s.templateSegment()
	*tokVal = token.Value{Str: val, TemplateDone: done}
	return token.TEMPLATE_STR
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	// `::` is accepted inside an identifier (module-qualified name); a single
	// `:` terminates it.
	for s.cur == ':' && s.peek() == ':' {
		s.advance()
		s.advance()
		for isLetter(s.cur) || isDigit(s.cur) {
			s.advance()
		}
	}
	return string(s.src[start:s.off])
}

func (s *Scanner) lineComment() {
	for s.cur != '\n' && s.cur != -1 {
		s.advance()
	}
}

func (s *Scanner) skipWhitespace() {
	for isWhitespace(s.cur) {
		s.advance()
	}
}

func isWhitespace(rn rune) bool { return rn == ' ' || rn == '\t' || rn == '\n' || rn == '\r' }

func isLetter(rn rune) bool {
	return 'a' <= rn && rn <= 'z' || 'A' <= rn && rn <= 'Z' || rn == '_' ||
		rn >= utf8.RuneSelf && unicode.IsLetter(rn)
}

func isDigit(rn rune) bool {
	return '0' <= rn && rn <= '9' || rn >= utf8.RuneSelf && unicode.IsDigit(rn)
}
