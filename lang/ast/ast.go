// Package ast defines the types that represent the abstract syntax tree
// (AST) produced by lang/parser. It is a thin, quasi-lossless tree: every
// node keeps its lang/token.Pos span, but whitespace and comments are not
// represented.
package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lumen-lang/lumen/lang/token"
)

// Node represents any node in the AST.
type Node interface {
	// Every Node implements fmt.Formatter so it can print a description of
	// itself. The only supported verbs are 'v' and 's'. The '#' flag prints
	// count information about child nodes. A width can be set to define the
	// number of runes to print for the node description; by default it is
	// padded with spaces on the left if shorter, or truncated if longer. The
	// '-' flag pads on the right instead, and '+' disables padding entirely.
	fmt.Formatter

	// Span reports the start and end position of the node.
	Span() (start, end token.Pos)

	// Walk visits the node's children with the Visitor pattern.
	Walk(v Visitor)
}

// Expr represents an expression in the AST.
type Expr interface {
	Node
	expr()
}

// Stmt represents a statement in the AST.
type Stmt interface {
	Node

	// BlockEnding reports whether the statement may only appear as the last
	// statement of a block (return, break, continue, throw).
	BlockEnding() bool
}

func format(f fmt.State, verb rune, n Node, label string, counts map[string]int) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(%T)", verb, n)
		return
	}

	label = strings.ReplaceAll(label, "\r\n", "⏎")
	label = strings.ReplaceAll(label, "\n", "⏎")
	label = strings.ReplaceAll(label, "\t", "⭾")

	if w, ok := f.Width(); ok {
		minus, plus := f.Flag('-'), f.Flag('+')
		runes := []rune(label)
		switch {
		case len(runes) >= w:
			runes = runes[:w]
		case minus:
			runes = append(runes, []rune(strings.Repeat(" ", w-len(runes)))...)
		case !plus:
			runes = append([]rune(strings.Repeat(" ", w-len(runes))), runes...)
		}
		label = string(runes)
	}

	fmt.Fprint(f, label)
	if f.Flag('#') && len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprint(f, " {")
		for i, k := range keys {
			if i > 0 {
				fmt.Fprint(f, ", ")
			}
			fmt.Fprintf(f, "%s=%d", k, counts[k])
		}
		fmt.Fprint(f, "}")
	}
}

// Unwrap returns the expression inside e, recursively unwrapping ParenExpr
// until it reaches a non-ParenExpr.
func Unwrap(e Expr) Expr {
	if pe, ok := e.(*ParenExpr); ok {
		return Unwrap(pe.Expr)
	}
	return e
}

// IsValidStmt reports whether e is a valid ExprStmt expression: only
// function calls, possibly wrapped in a "try" unary operator, and yield
// expressions are valid statements on their own.
func IsValidStmt(e Expr) bool {
	ue := Unwrap(e)
	if unary, ok := ue.(*UnaryOpExpr); ok {
		if unary.Op == token.YIELD {
			return true
		}
		if unary.Op != token.TRY {
			return false
		}
		ue = unary.Right
	}
	_, ok := ue.(*CallExpr)
	return ok
}

// IsAssignable reports whether e can appear on the left side of an
// assignment: an IdentExpr, a DotExpr or an IndexExpr whose own prefix is
// itself assignable.
func IsAssignable(e Expr) bool {
	switch e := e.(type) {
	case *IdentExpr:
		return true
	case *DotExpr:
		return IsAssignable(Unwrap(e.Left))
	case *IndexExpr:
		return IsAssignable(Unwrap(e.Prefix))
	default:
		return false
	}
}
