package ast

import (
	"fmt"

	"github.com/lumen-lang/lumen/lang/token"
)

type (
	// ArrayLikeExpr represents an array ([1, 2, 3]) or tuple ((1, 2, 3))
	// literal. Tuples are an internal calling-convention value and are not
	// produced by the parser directly; this node only ever represents an
	// array literal today, and the Type field distinguishes the two for
	// when the compiler needs to construct tuple literals itself.
	ArrayLikeExpr struct {
		Type   token.Token // LBRACK or LPAREN
		Left   token.Pos
		Items  []Expr
		Commas []token.Pos // len(Items)-1 or len(Items) with a trailing comma
		Right  token.Pos
	}

	// BadExpr represents an expression that failed to parse.
	BadExpr struct {
		Start token.Pos
		End   token.Pos
	}

	// BinOpExpr represents a binary expression, e.g. x + y.
	BinOpExpr struct {
		Left  Expr
		Type  token.Token // binary operator token
		Op    token.Pos
		Right Expr
	}

	// CallExpr represents a function call, e.g. f(x, y).
	CallExpr struct {
		Fn     Expr
		Lparen token.Pos
		Args   []Expr
		Commas []token.Pos // len(Args)-1
		Rparen token.Pos
	}

	// DotExpr represents a selector expression, e.g. x.y.
	DotExpr struct {
		Left  Expr
		Dot   token.Pos
		Right *IdentExpr
	}

	// FuncExpr represents a function literal: fun(params) { ... } or
	// seq(params) { ... } for a generator.
	FuncExpr struct {
		Fn    token.Pos
		IsSeq bool // true if declared with the seq keyword
		Sig   *FuncSignature
		Body  *Block
		End   token.Pos

		// Function is filled in by the resolver; it is an indirect reference
		// (any, concretely *resolver.Function) to avoid an import cycle.
		Function any
	}

	// IdentExpr represents an identifier.
	IdentExpr struct {
		Start token.Pos
		Lit   string

		// Binding is filled in by the resolver; it is an indirect reference
		// (any, concretely *resolver.Binding) to avoid an import cycle.
		Binding any
	}

	// IndexExpr represents an index expression, e.g. x[y].
	IndexExpr struct {
		Prefix Expr
		Lbrack token.Pos
		Index  Expr
		Rbrack token.Pos
	}

	// LiteralExpr represents a literal: string, int, float, true, false, null
	// or undefined.
	LiteralExpr struct {
		Type  token.Token // STRING, INT, FLOAT, TRUE, FALSE, NULL or UNDEFINED
		Start token.Pos
		Raw   string      // uninterpreted source text
		Value interface{} // string | int64 | float64, nil for true/false/null/undefined
	}

	// MapExpr represents an object literal, e.g. { a: 1, "b": 2 }.
	MapExpr struct {
		Lbrace token.Pos
		Items  []*KeyVal
		Commas []token.Pos // len(Items)-1 or len(Items) with a trailing comma
		Rbrace token.Pos
	}

	// ParenExpr represents an expression wrapped in parentheses.
	ParenExpr struct {
		Lparen token.Pos
		Expr   Expr
		Rparen token.Pos
	}

	// UnaryOpExpr represents a unary operator expression: -x, +x, ~x, not x,
	// or the control constructs try x and yield x, which are parsed as unary
	// operators and lowered specially by the compiler.
	UnaryOpExpr struct {
		Op    token.Token
		Pos   token.Pos
		Right Expr
	}
)

func (n *ArrayLikeExpr) Format(f fmt.State, verb rune) {
	lbl := "array"
	if n.Type == token.LPAREN {
		lbl = "tuple"
	}
	format(f, verb, n, lbl, map[string]int{"items": len(n.Items)})
}
func (n *ArrayLikeExpr) Span() (start, end token.Pos) { return n.Left, n.Right + 1 }
func (n *ArrayLikeExpr) Walk(v Visitor) {
	for _, e := range n.Items {
		Walk(v, e)
	}
}
func (n *ArrayLikeExpr) expr() {}

func (n *BadExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "!bad expr!", nil) }
func (n *BadExpr) Span() (start, end token.Pos)  { return n.Start, n.End }
func (n *BadExpr) Walk(v Visitor)                {}
func (n *BadExpr) expr()                         {}

func (n *BinOpExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "binary "+n.Type.GoString(), nil)
}
func (n *BinOpExpr) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *BinOpExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *BinOpExpr) expr() {}

func (n *CallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "call", map[string]int{"args": len(n.Args)})
}
func (n *CallExpr) Span() (start, end token.Pos) {
	start, _ = n.Fn.Span()
	return start, n.Rparen + 1
}
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Fn)
	for _, e := range n.Args {
		Walk(v, e)
	}
}
func (n *CallExpr) expr() {}

func (n *DotExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "expr.ident", nil) }
func (n *DotExpr) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *DotExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *DotExpr) expr() {}

func (n *FuncExpr) Format(f fmt.State, verb rune) {
	lbl := "fn"
	if n.IsSeq {
		lbl = "seq"
	}
	if n.Sig.DotDotDot.IsValid() {
		lbl += " ..."
	}
	format(f, verb, n, lbl, map[string]int{"params": len(n.Sig.Params)})
}
func (n *FuncExpr) Span() (start, end token.Pos) { return n.Fn, n.End + 1 }
func (n *FuncExpr) Walk(v Visitor) {
	for _, e := range n.Sig.Params {
		Walk(v, e)
	}
	Walk(v, n.Body)
}
func (n *FuncExpr) expr() {}

func (n *IdentExpr) Format(f fmt.State, verb rune) { format(f, verb, n, n.Lit, nil) }
func (n *IdentExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Lit))
}
func (n *IdentExpr) Walk(v Visitor) {}
func (n *IdentExpr) expr()          {}

func (n *IndexExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "expr[index]", nil) }
func (n *IndexExpr) Span() (start, end token.Pos) {
	start, _ = n.Prefix.Span()
	return start, n.Rbrack + 1
}
func (n *IndexExpr) Walk(v Visitor) {
	Walk(v, n.Prefix)
	Walk(v, n.Index)
}
func (n *IndexExpr) expr() {}

func (n *LiteralExpr) Format(f fmt.State, verb rune) {
	if n.Value == nil {
		format(f, verb, n, n.Type.String(), nil)
	} else {
		format(f, verb, n, n.Type.String()+" "+n.Raw, nil)
	}
}
func (n *LiteralExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Raw))
}
func (n *LiteralExpr) Walk(v Visitor) {}
func (n *LiteralExpr) expr()          {}

func (n *MapExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "map", map[string]int{"keyvals": len(n.Items)})
}
func (n *MapExpr) Span() (start, end token.Pos) { return n.Lbrace, n.Rbrace + 1 }
func (n *MapExpr) Walk(v Visitor) {
	for _, kv := range n.Items {
		Walk(v, kv.Key)
		Walk(v, kv.Value)
	}
}
func (n *MapExpr) expr() {}

func (n *ParenExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "(expr)", nil) }
func (n *ParenExpr) Span() (start, end token.Pos)  { return n.Lparen, n.Rparen + 1 }
func (n *ParenExpr) Walk(v Visitor)                { Walk(v, n.Expr) }
func (n *ParenExpr) expr()                         {}

func (n *UnaryOpExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "unary "+n.Op.GoString(), nil)
}
func (n *UnaryOpExpr) Span() (start, end token.Pos) {
	_, end = n.Right.Span()
	return n.Pos, end
}
func (n *UnaryOpExpr) Walk(v Visitor) { Walk(v, n.Right) }
func (n *UnaryOpExpr) expr()          {}
