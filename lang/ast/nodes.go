package ast

import (
	"fmt"
	"os"
	"strings"

	"github.com/lumen-lang/lumen/lang/token"
)

type (
	// Chunk represents a whole parsed file. It is exactly the same as Block
	// except that it keeps track of its name and the EOF position, which is
	// useful to get a valid position even for an empty file.
	Chunk struct {
		// Name is the filename, which may be empty if the chunk is not a file.
		Name string

		Block *Block
		EOF   token.Pos // position of the EOF marker

		// Function is filled in by the resolver; it is an indirect reference
		// (any, concretely *resolver.Function) to avoid an import cycle.
		Function any
	}

	// Block represents a block of statements delimited by braces.
	Block struct {
		Start token.Pos // position of '{' (or the first statement, for a top-level block)
		End   token.Pos // position of '}' (or the position after the last statement)
		Stmts []Stmt
	}

	// FuncSignature represents the parameter list of a function literal or
	// declaration.
	FuncSignature struct {
		Lparen    token.Pos
		Params    []*IdentExpr
		Commas    []token.Pos // len(Params)-1
		DotDotDot token.Pos   // position of trailing '...' if the last param is variadic, else 0
		Rparen    token.Pos
	}

	// KeyVal represents a single key/value pair in a map literal.
	KeyVal struct {
		Key   Expr // IdentExpr (shorthand key) or any expression in brackets
		Colon token.Pos
		Value Expr
	}
)

func (n *Chunk) Format(f fmt.State, verb rune) {
	lbl := "chunk"
	if n.Name != "" {
		lbl += " " + strings.ReplaceAll(n.Name, string(os.PathSeparator), "/")
	}
	format(f, verb, n, lbl, nil)
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

func (n *Block) Format(f fmt.State, verb rune) {
	format(f, verb, n, "block", map[string]int{"stmts": len(n.Stmts)})
}
func (n *Block) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}
