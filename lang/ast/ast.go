// Package ast defines the types used to represent the parsed form of a
// briar source file: statements, expressions and the top-level Chunk that
// holds them.
package ast

import (
	"github.com/briarlang/briar/lang/token"
)

// Node is any node in the AST.
type Node interface {
	// Span reports the start and end position of the node.
	Span() (start, end token.Pos)

	// Walk visits the node's direct children, in source order.
	Walk(v Visitor)
}

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is a statement node.
type Stmt interface {
	Node

	// BlockEnding reports whether this statement may only appear as the last
	// statement of a block (return, break, continue).
	BlockEnding() bool
}

// Chunk is the root of a parsed file or REPL chunk.
type Chunk struct {
	Name  string // filename, may be empty
	Block *Block
	EOF   token.Pos
}

func (n *Chunk) Span() (start, end token.Pos) {
	if n.Block != nil {
		return n.Block.Span()
	}
	return n.EOF, n.EOF
}
func (n *Chunk) Walk(v Visitor) {
	if n.Block != nil {
		Walk(v, n.Block)
	}
}

// Block is an ordered sequence of statements delimited by `{` `}`, or the
// implicit top-level block of a Chunk.
type Block struct {
	Start token.Pos
	End   token.Pos
	Stmts []Stmt
}

func (n *Block) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}
