// Package parser implements the Pratt-style expression parser and recursive-
// descent statement parser that turn a token stream into an *ast.Chunk.
package parser

import (
	"context"
	"errors"
	"os"

	"github.com/briarlang/briar/lang/ast"
	"github.com/briarlang/briar/lang/scanner"
	"github.com/briarlang/briar/lang/token"
)

// Mode is a set of bit flags that configures parsing.
type Mode uint

const (
	// ReplMode makes a bare `{ ... }` at chunk top level parse as a map
	// literal expression statement instead of a block statement, matching
	// the REPL's convention of treating a lone brace group as a map value.
	ReplMode Mode = 1 << iota
)

// ParseFiles parses the given source files and returns the shared FileSet,
// one *ast.Chunk per file (in order), and any accumulated error, which if
// non-nil is a scanner.ErrorList.
func ParseFiles(ctx context.Context, mode Mode, files ...string) (*token.FileSet, []*ast.Chunk, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	var p parser
	p.mode = mode
	fs := token.NewFileSet()
	res := make([]*ast.Chunk, 0, len(files))

	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			p.errors.Add(token.Position{Filename: file}, err.Error())
			continue
		}
		p.init(fs, file, b)
		ch := p.parseChunk()
		ch.Name = file
		res = append(res, ch)
	}
	p.errors.Sort()
	return fs, res, p.errors.Err()
}

// ParseChunk parses a single chunk from src, registering it in fset under
// filename, and returns the AST and any error (a scanner.ErrorList).
func ParseChunk(ctx context.Context, mode Mode, fset *token.FileSet, filename string, src []byte) (*ast.Chunk, error) {
	var p parser
	p.mode = mode
	p.init(fset, filename, src)
	ch := p.parseChunk()
	ch.Name = filename
	return ch, p.errors.Err()
}

// parser holds the mutable state of one parse.
type parser struct {
	mode    Mode
	scanner scanner.Scanner
	errors  scanner.ErrorList
	file    *token.File

	tok token.Token
	val token.Value
	pos token.Pos
}

func (p *parser) init(fset *token.FileSet, filename string, src []byte) {
	p.file = fset.AddFile(filename, len(src))
	p.scanner.Init(p.file, src, p.errors.Add)
	p.advance()
}

func (p *parser) advance() {
	p.tok = p.scanner.Scan(&p.val)
	p.pos = p.scanner.Pos()
}

var errPanicMode = errors.New("panic")

// expect consumes the current token if it matches one of toks and returns
// its position; otherwise it records an error and unwinds to the nearest
// statement boundary via panic(errPanicMode).
func (p *parser) expect(toks ...token.Token) token.Pos {
	pos := p.pos
	for _, tok := range toks {
		if p.tok == tok {
			p.advance()
			return pos
		}
	}
	p.errorExpected(pos, toks...)
	panic(errPanicMode)
}

func (p *parser) error(pos token.Pos, msg string) {
	p.errors.Add(p.file.Position(pos), msg)
}

func (p *parser) errorExpected(pos token.Pos, toks ...token.Token) {
	msg := "expected "
	if len(toks) == 1 {
		msg += toks[0].GoString()
	} else {
		msg += "one of "
		for i, tok := range toks {
			if i > 0 {
				msg += ", "
			}
			msg += tok.GoString()
		}
	}
	if pos == p.pos {
		msg += ", found " + p.tok.GoString()
	}
	p.error(pos, msg)
}

func tokenIn(t token.Token, toks ...token.Token) bool {
	for _, tok := range toks {
		if t == tok {
			return true
		}
	}
	return false
}
