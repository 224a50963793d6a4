package ast

import (
	"fmt"

	"github.com/lumen-lang/lumen/lang/token"
)

type (
	// AssignStmt represents an assignment statement (x = y + z, a, b = 1, 2),
	// an augmented assignment (x += 2), or a var declaration (var x = 1).
	AssignStmt struct {
		Decl        token.Pos   // position of 'var', zero if not a declaration
		Left        []Expr      // IdentExpr, DotExpr or IndexExpr; one only for augmented assignment
		LeftCommas  []token.Pos // len(Left)-1
		AssignTok   token.Token // EQ or one of PLUS_EQ..GTGT_EQ
		AssignPos   token.Pos
		Right       []Expr      // may be empty only for a bare var declaration
		RightCommas []token.Pos // len(Right)-1
	}

	// BadStmt represents a statement that failed to parse.
	BadStmt struct {
		Start token.Pos
		End   token.Pos
	}

	// ExprStmt represents an expression used as a statement. Only function
	// calls, possibly wrapped in a "try" unary operator, and yield
	// expressions are valid here.
	ExprStmt struct {
		Expr Expr
	}

	// ForInStmt represents a foreach loop: foreach (x in xs) { ... } or
	// foreach (i, x in xs) { ... }, where i is bound to the zero-based
	// iteration index.
	ForInStmt struct {
		For   token.Pos
		Left  []*IdentExpr // 1 or 2 binding names
		In    token.Pos
		Right Expr
		Body  *Block
		End   token.Pos
	}

	// ForLoopStmt represents a C-style 3-clause for loop.
	ForLoopStmt struct {
		For  token.Pos
		Init Stmt // may be nil; AssignStmt or ExprStmt
		Cond Expr // may be nil
		Post Stmt // may be nil; AssignStmt or ExprStmt
		Body *Block
	}

	// WhileStmt represents a while loop.
	WhileStmt struct {
		While token.Pos
		Cond  Expr
		Body  *Block
	}

	// FuncStmt represents a named function or sequence declaration.
	FuncStmt struct {
		Fn    token.Pos
		IsSeq bool
		Name  *IdentExpr
		Sig   *FuncSignature
		Body  *Block
		End   token.Pos

		// Function is filled in by the resolver; it is an indirect reference
		// (any, concretely *resolver.Function) to avoid an import cycle.
		Function any
	}

	// IfStmt represents an if, if/else or if/else-if chain (the else-if is
	// represented as a single IfStmt statement inside the Else block).
	IfStmt struct {
		If   token.Pos
		Cond Expr
		Then *Block
		Else *Block // nil if no else clause
	}

	// ImportStmt represents an import statement: import "path" or
	// import name from "path".
	ImportStmt struct {
		Import token.Pos
		Name   *IdentExpr // nil for a bare side-effecting import
		From   token.Pos  // zero if Name is nil
		Path   *LiteralExpr
	}

	// ExportStmt represents an export statement wrapping a declaration:
	// export var x = 1 or export fun f() { ... }.
	ExportStmt struct {
		Export token.Pos
		Decl   Stmt // AssignStmt or FuncStmt
	}

	// ReturnLikeStmt represents a return, break, continue or throw statement.
	ReturnLikeStmt struct {
		Type  token.Token // RETURN, BREAK, CONTINUE or THROW
		Start token.Pos
		Expr  Expr // may be nil for return/break/continue; required for throw
	}

	// TryStmt represents a try/catch/finally statement. At least one of
	// CatchBody and FinallyBody is non-nil.
	TryStmt struct {
		Try         token.Pos
		Body        *Block
		Catch       token.Pos    // zero if there is no catch clause
		CatchParam  *IdentExpr   // nil if the catch clause binds no error variable
		CatchBody   *Block       // nil if there is no catch clause
		Finally     token.Pos    // zero if there is no finally clause
		FinallyBody *Block       // nil if there is no finally clause
		End         token.Pos
	}
)

func (n *AssignStmt) Format(f fmt.State, verb rune) {
	lbl := "assignment"
	switch {
	case n.Decl.IsValid():
		lbl = "var declaration"
	case n.AssignTok != token.EQ:
		lbl = "augmented assignment " + n.AssignTok.GoString()
	}
	format(f, verb, n, lbl, map[string]int{"left": len(n.Left), "right": len(n.Right)})
}
func (n *AssignStmt) Span() (start, end token.Pos) {
	if n.Decl.IsValid() {
		start = n.Decl
	} else {
		start, _ = n.Left[0].Span()
	}
	if len(n.Right) > 0 {
		_, end = n.Right[len(n.Right)-1].Span()
	} else {
		_, end = n.Left[len(n.Left)-1].Span()
	}
	return start, end
}
func (n *AssignStmt) Walk(v Visitor) {
	for _, e := range n.Left {
		Walk(v, e)
	}
	for _, e := range n.Right {
		Walk(v, e)
	}
}
func (n *AssignStmt) BlockEnding() bool { return false }

func (n *BadStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "!bad stmt!", nil) }
func (n *BadStmt) Span() (start, end token.Pos)  { return n.Start, n.End }
func (n *BadStmt) Walk(v Visitor)                {}
func (n *BadStmt) BlockEnding() bool             { return false }

func (n *ExprStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "expr stmt", nil) }
func (n *ExprStmt) Span() (start, end token.Pos)  { return n.Expr.Span() }
func (n *ExprStmt) Walk(v Visitor)                { Walk(v, n.Expr) }
func (n *ExprStmt) BlockEnding() bool             { return false }

func (n *ForInStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "foreach", map[string]int{"left": len(n.Left)})
}
func (n *ForInStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.For, end
}
func (n *ForInStmt) Walk(v Visitor) {
	for _, e := range n.Left {
		Walk(v, e)
	}
	Walk(v, n.Right)
	Walk(v, n.Body)
}
func (n *ForInStmt) BlockEnding() bool { return false }

func (n *ForLoopStmt) Format(f fmt.State, verb rune) {
	var clauses int
	if n.Init != nil {
		clauses++
	}
	if n.Cond != nil {
		clauses++
	}
	if n.Post != nil {
		clauses++
	}
	format(f, verb, n, "for", map[string]int{"clauses": clauses})
}
func (n *ForLoopStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.For, end
}
func (n *ForLoopStmt) Walk(v Visitor) {
	if n.Init != nil {
		Walk(v, n.Init)
	}
	if n.Cond != nil {
		Walk(v, n.Cond)
	}
	if n.Post != nil {
		Walk(v, n.Post)
	}
	Walk(v, n.Body)
}
func (n *ForLoopStmt) BlockEnding() bool { return false }

func (n *WhileStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "while", nil) }
func (n *WhileStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.While, end
}
func (n *WhileStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
}
func (n *WhileStmt) BlockEnding() bool { return false }

func (n *FuncStmt) Format(f fmt.State, verb rune) {
	lbl := "fn decl"
	if n.IsSeq {
		lbl = "seq decl"
	}
	if n.Sig.DotDotDot.IsValid() {
		lbl += " ..."
	}
	format(f, verb, n, lbl, map[string]int{"params": len(n.Sig.Params)})
}
func (n *FuncStmt) Span() (start, end token.Pos) { return n.Fn, n.End + 1 }
func (n *FuncStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	for _, e := range n.Sig.Params {
		Walk(v, e)
	}
	Walk(v, n.Body)
}
func (n *FuncStmt) BlockEnding() bool { return false }

func (n *IfStmt) Format(f fmt.State, verb rune) {
	lbl := "if"
	if n.Else != nil {
		lbl += " else"
	}
	format(f, verb, n, lbl, nil)
}
func (n *IfStmt) Span() (start, end token.Pos) {
	_, end = n.Then.Span()
	if n.Else != nil {
		_, end = n.Else.Span()
	}
	return n.If, end
}
func (n *IfStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	if n.Else != nil {
		Walk(v, n.Else)
	}
}
func (n *IfStmt) BlockEnding() bool { return false }

func (n *ImportStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "import", nil) }
func (n *ImportStmt) Span() (start, end token.Pos) {
	_, end = n.Path.Span()
	return n.Import, end
}
func (n *ImportStmt) Walk(v Visitor) {
	if n.Name != nil {
		Walk(v, n.Name)
	}
	Walk(v, n.Path)
}
func (n *ImportStmt) BlockEnding() bool { return false }

func (n *ExportStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "export", nil) }
func (n *ExportStmt) Span() (start, end token.Pos) {
	_, end = n.Decl.Span()
	return n.Export, end
}
func (n *ExportStmt) Walk(v Visitor)    { Walk(v, n.Decl) }
func (n *ExportStmt) BlockEnding() bool { return false }

func (n *ReturnLikeStmt) Format(f fmt.State, verb rune) {
	var exprCount int
	if n.Expr != nil {
		exprCount = 1
	}
	format(f, verb, n, n.Type.String(), map[string]int{"expr": exprCount})
}
func (n *ReturnLikeStmt) Span() (start, end token.Pos) {
	end = n.Start + token.Pos(len(n.Type.String()))
	if n.Expr != nil {
		_, end = n.Expr.Span()
	}
	return n.Start, end
}
func (n *ReturnLikeStmt) Walk(v Visitor) {
	if n.Expr != nil {
		Walk(v, n.Expr)
	}
}
func (n *ReturnLikeStmt) BlockEnding() bool { return true }

func (n *TryStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "try", map[string]int{
		"catch":   boolCount(n.CatchBody != nil),
		"finally": boolCount(n.FinallyBody != nil),
	})
}
func (n *TryStmt) Span() (start, end token.Pos) { return n.Try, n.End + 1 }
func (n *TryStmt) Walk(v Visitor) {
	Walk(v, n.Body)
	if n.CatchBody != nil {
		if n.CatchParam != nil {
			Walk(v, n.CatchParam)
		}
		Walk(v, n.CatchBody)
	}
	if n.FinallyBody != nil {
		Walk(v, n.FinallyBody)
	}
}
func (n *TryStmt) BlockEnding() bool { return false }

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
