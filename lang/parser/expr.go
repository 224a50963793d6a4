package parser

import (
	"github.com/lumen-lang/lumen/lang/ast"
	"github.com/lumen-lang/lumen/lang/scanner"
	"github.com/lumen-lang/lumen/lang/token"
)

var unopToks = map[token.Token]bool{
	token.MINUS: true, token.PLUS: true, token.NOT: true, token.TILDE: true,
	token.TRY: true, token.YIELD: true,
}

// binopPriority maps a binary operator token to its (left, right) binding
// power for precedence climbing; a higher number binds tighter.
var binopPriority = map[token.Token]struct{ left, right int }{
	token.OR: {1, 1},
	token.AND: {2, 2},
	token.LT: {3, 3}, token.LE: {3, 3}, token.GT: {3, 3}, token.GE: {3, 3},
	token.EQL: {3, 3}, token.NEQ: {3, 3},
	token.PIPE: {4, 4},
	token.CIRCUMFLEX: {5, 5},
	token.AMPERSAND:  {6, 6},
	token.LTLT:       {7, 7}, token.GTGT: {7, 7},
	token.PLUS: {10, 10}, token.MINUS: {10, 10},
	token.STAR: {11, 11}, token.SLASH: {11, 11}, token.SLASHSLASH: {11, 11}, token.PERCENT: {11, 11},
}

const unopPriority = 12

func (p *parser) parseExpr() ast.Expr { return p.parseSubExpr(0) }

// parseSubExpr implements precedence-climbing: it parses a run of binary
// operators whose left binding power is greater than priority.
func (p *parser) parseSubExpr(priority int) ast.Expr {
	var left ast.Expr
	if unopToks[p.tok] {
		op, pos := p.tok, p.expect(p.tok)
		left = &ast.UnaryOpExpr{Op: op, Pos: pos, Right: p.parseSubExpr(unopPriority)}
	} else {
		left = p.parseSuffixedExpr()
	}

	for {
		prio, ok := binopPriority[p.tok]
		if !ok || prio.left <= priority {
			break
		}
		op, pos := p.tok, p.expect(p.tok)
		right := p.parseSubExpr(prio.right)
		left = &ast.BinOpExpr{Left: left, Type: op, Op: pos, Right: right}
	}
	return left
}

func (p *parser) parseSuffixedExpr() ast.Expr {
	primary := p.parsePrimaryExpr()
loop:
	for {
		switch p.tok {
		case token.DOT:
			primary = p.parseDotExpr(primary)
		case token.LBRACK:
			primary = p.parseIndexExpr(primary)
		case token.LPAREN:
			primary = p.parseCallExpr(primary)
		default:
			break loop
		}
	}
	return primary
}

func (p *parser) parsePrimaryExpr() ast.Expr {
	switch p.tok {
	case token.IDENT:
		return p.parseIdentExpr()
	case token.INT, token.FLOAT, token.STRING, token.TRUE, token.FALSE, token.NULL, token.UNDEFINED:
		return p.parseAtomExpr()
	case token.LBRACE:
		return p.parseMapExpr()
	case token.LBRACK:
		return p.parseArrayExpr()
	case token.FUN, token.SEQ:
		return p.parseFuncExpr()
	case token.LPAREN:
		lparen := p.expect(token.LPAREN)
		expr := p.parseExpr()
		rparen := p.expect(token.RPAREN)
		return &ast.ParenExpr{Lparen: lparen, Expr: expr, Rparen: rparen}
	default:
		pos := p.pos
		p.errorExpected(pos, "expression")
		panic(errPanicMode)
	}
}

func (p *parser) parseAtomExpr() *ast.LiteralExpr {
	var val interface{}
	switch p.tok {
	case token.INT:
		v, err := scanner.NumberToInt(p.lit)
		if err != nil {
			p.error(p.pos, "invalid integer literal: "+err.Error())
		}
		val = v
	case token.FLOAT:
		v, err := scanner.NumberToFloat(p.lit)
		if err != nil {
			p.error(p.pos, "invalid float literal: "+err.Error())
		}
		val = v
	case token.STRING:
		val = p.lit
	}
	lit := &ast.LiteralExpr{Type: p.tok, Raw: p.lit, Value: val}
	lit.Start = p.expect(p.tok)
	return lit
}

func (p *parser) parseMapExpr() *ast.MapExpr {
	var expr ast.MapExpr
	expr.Lbrace = p.expect(token.LBRACE)
	for !tokenIn(p.tok, token.RBRACE, token.EOF) {
		expr.Items = append(expr.Items, p.parseKeyVal())
		if p.tok == token.COMMA {
			expr.Commas = append(expr.Commas, p.expect(token.COMMA))
		} else {
			break
		}
	}
	expr.Rbrace = p.expect(token.RBRACE)
	return &expr
}

func (p *parser) parseKeyVal() *ast.KeyVal {
	var kv ast.KeyVal
	switch p.tok {
	case token.LBRACK:
		p.expect(token.LBRACK)
		kv.Key = p.parseExpr()
		p.expect(token.RBRACK)
	case token.STRING:
		kv.Key = p.parseAtomExpr()
	case token.IDENT:
		kv.Key = p.parseIdentExpr()
	default:
		p.expect(token.IDENT, token.LBRACK, token.STRING)
		panic("unreachable")
	}
	kv.Colon = p.expect(token.COLON)
	kv.Value = p.parseExpr()
	return &kv
}

func (p *parser) parseArrayExpr() *ast.ArrayLikeExpr {
	var expr ast.ArrayLikeExpr
	expr.Type = token.LBRACK
	expr.Left = p.expect(token.LBRACK)
	for !tokenIn(p.tok, token.RBRACK, token.EOF) {
		expr.Items = append(expr.Items, p.parseExpr())
		if p.tok == token.COMMA {
			expr.Commas = append(expr.Commas, p.expect(token.COMMA))
		} else {
			break
		}
	}
	expr.Right = p.expect(token.RBRACK)
	return &expr
}

func (p *parser) parseFuncExpr() *ast.FuncExpr {
	var expr ast.FuncExpr
	expr.IsSeq = p.tok == token.SEQ
	expr.Fn = p.expect(p.tok)
	expr.Sig = p.parseFuncSignature()
	expr.Body = p.parseBlock()
	expr.End = expr.Body.End
	return &expr
}

func (p *parser) parseFuncSignature() *ast.FuncSignature {
	var sig ast.FuncSignature
	sig.Lparen = p.expect(token.LPAREN)
	for p.tok == token.IDENT || p.tok == token.DOTDOTDOT {
		if p.tok == token.DOTDOTDOT {
			sig.DotDotDot = p.expect(token.DOTDOTDOT)
			sig.Params = append(sig.Params, p.parseIdentExpr())
			break // a variadic parameter must be the last one
		}
		sig.Params = append(sig.Params, p.parseIdentExpr())
		if p.tok == token.COMMA {
			sig.Commas = append(sig.Commas, p.expect(token.COMMA))
			continue
		}
		break
	}
	sig.Rparen = p.expect(token.RPAREN)
	return &sig
}

func (p *parser) parseDotExpr(left ast.Expr) *ast.DotExpr {
	var expr ast.DotExpr
	expr.Left = left
	expr.Dot = p.expect(token.DOT)
	expr.Right = p.parseIdentExpr()
	return &expr
}

func (p *parser) parseIndexExpr(prefix ast.Expr) *ast.IndexExpr {
	var expr ast.IndexExpr
	expr.Prefix = prefix
	expr.Lbrack = p.expect(token.LBRACK)
	expr.Index = p.parseExpr()
	expr.Rbrack = p.expect(token.RBRACK)
	return &expr
}

func (p *parser) parseCallExpr(fn ast.Expr) *ast.CallExpr {
	var expr ast.CallExpr
	expr.Fn = fn
	expr.Lparen = p.expect(token.LPAREN)
	if p.tok != token.RPAREN {
		expr.Args, expr.Commas = p.parseExprList()
	}
	expr.Rparen = p.expect(token.RPAREN)
	return &expr
}

func (p *parser) parseIdentExpr() *ast.IdentExpr {
	var expr ast.IdentExpr
	expr.Lit = p.lit
	expr.Start = p.expect(token.IDENT)
	return &expr
}

func (p *parser) parseExprList() ([]ast.Expr, []token.Pos) {
	var exprs []ast.Expr
	var commas []token.Pos
	exprs = append(exprs, p.parseExpr())
	for p.tok == token.COMMA {
		commas = append(commas, p.expect(token.COMMA))
		exprs = append(exprs, p.parseExpr())
	}
	return exprs, commas
}
