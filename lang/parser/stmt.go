package parser

import (
	"github.com/lumen-lang/lumen/lang/ast"
	"github.com/lumen-lang/lumen/lang/token"
)

func (p *parser) parseVarDecl() *ast.AssignStmt {
	var stmt ast.AssignStmt
	stmt.Decl = p.expect(token.VAR)
	stmt.Left = []ast.Expr{p.parseIdentExpr()}
	if p.tok == token.EQ {
		stmt.AssignTok = token.EQ
		stmt.AssignPos = p.expect(token.EQ)
		stmt.Right = []ast.Expr{p.parseExpr()}
	}
	return &stmt
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	var stmt ast.IfStmt
	stmt.If = p.expect(token.IF)
	p.expect(token.LPAREN)
	stmt.Cond = p.parseExpr()
	p.expect(token.RPAREN)
	stmt.Then = p.parseBlock()
	if p.tok == token.ELSE {
		p.expect(token.ELSE)
		if p.tok == token.IF {
			elseIf := p.parseIfStmt()
			start, end := elseIf.Span()
			stmt.Else = &ast.Block{Start: start, End: end, Stmts: []ast.Stmt{elseIf}}
		} else {
			stmt.Else = p.parseBlock()
		}
	}
	return &stmt
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	var stmt ast.WhileStmt
	stmt.While = p.expect(token.WHILE)
	p.expect(token.LPAREN)
	stmt.Cond = p.parseExpr()
	p.expect(token.RPAREN)
	stmt.Body = p.parseBlock()
	return &stmt
}

func (p *parser) parseForStmt() *ast.ForLoopStmt {
	var stmt ast.ForLoopStmt
	stmt.For = p.expect(token.FOR)
	p.expect(token.LPAREN)

	if p.tok != token.SEMI {
		if p.tok == token.VAR {
			stmt.Init = p.parseVarDecl()
		} else {
			stmt.Init = p.parseExprOrAssignStmt()
		}
	}
	p.expect(token.SEMI)

	if p.tok != token.SEMI {
		stmt.Cond = p.parseExpr()
	}
	p.expect(token.SEMI)

	if p.tok != token.RPAREN {
		stmt.Post = p.parseExprOrAssignStmt()
	}
	p.expect(token.RPAREN)

	stmt.Body = p.parseBlock()
	return &stmt
}

func (p *parser) parseForInStmt() *ast.ForInStmt {
	var stmt ast.ForInStmt
	stmt.For = p.expect(token.FOREACH)
	p.expect(token.LPAREN)

	stmt.Left = append(stmt.Left, p.parseIdentExpr())
	if p.tok == token.COMMA {
		p.expect(token.COMMA)
		stmt.Left = append(stmt.Left, p.parseIdentExpr())
	}
	stmt.In = p.expect(token.IN)
	stmt.Right = p.parseExpr()
	p.expect(token.RPAREN)

	stmt.Body = p.parseBlock()
	_, stmt.End = stmt.Body.Span()
	return &stmt
}

func (p *parser) parseFuncStmt() *ast.FuncStmt {
	var stmt ast.FuncStmt
	stmt.IsSeq = p.tok == token.SEQ
	stmt.Fn = p.expect(p.tok)
	stmt.Name = p.parseIdentExpr()
	stmt.Sig = p.parseFuncSignature()
	stmt.Body = p.parseBlock()
	_, stmt.End = stmt.Body.Span()
	return &stmt
}

func (p *parser) parseReturnLikeStmt() *ast.ReturnLikeStmt {
	var stmt ast.ReturnLikeStmt
	stmt.Type = p.tok
	stmt.Start = p.expect(p.tok)
	if stmt.Type == token.RETURN && p.tok != token.SEMI {
		stmt.Expr = p.parseExpr()
	}
	return &stmt
}

func (p *parser) parseThrowStmt() *ast.ReturnLikeStmt {
	var stmt ast.ReturnLikeStmt
	stmt.Type = token.THROW
	stmt.Start = p.expect(token.THROW)
	stmt.Expr = p.parseExpr()
	return &stmt
}

func (p *parser) parseTryStmt() *ast.TryStmt {
	var stmt ast.TryStmt
	stmt.Try = p.expect(token.TRY)
	stmt.Body = p.parseBlock()

	if p.tok == token.CATCH {
		stmt.Catch = p.expect(token.CATCH)
		if p.tok == token.LPAREN {
			p.expect(token.LPAREN)
			stmt.CatchParam = p.parseIdentExpr()
			p.expect(token.RPAREN)
		}
		stmt.CatchBody = p.parseBlock()
	}
	if p.tok == token.FINALLY {
		stmt.Finally = p.expect(token.FINALLY)
		stmt.FinallyBody = p.parseBlock()
	}
	switch {
	case stmt.FinallyBody != nil:
		_, stmt.End = stmt.FinallyBody.Span()
	case stmt.CatchBody != nil:
		_, stmt.End = stmt.CatchBody.Span()
	default:
		p.error(stmt.Try, "try statement requires a catch or finally clause")
		_, stmt.End = stmt.Body.Span()
	}
	return &stmt
}

func (p *parser) parseImportStmt() *ast.ImportStmt {
	var stmt ast.ImportStmt
	stmt.Import = p.expect(token.IMPORT)
	if p.tok == token.IDENT {
		stmt.Name = p.parseIdentExpr()
		stmt.From = p.expect(token.FROM)
	}
	stmt.Path = p.parseAtomExpr()
	if stmt.Path.Type != token.STRING {
		p.errorExpected(stmt.Path.Start, "string literal")
	}
	return &stmt
}

func (p *parser) parseExportStmt() *ast.ExportStmt {
	var stmt ast.ExportStmt
	stmt.Export = p.expect(token.EXPORT)
	switch p.tok {
	case token.VAR:
		decl := p.parseVarDecl()
		p.expect(token.SEMI)
		stmt.Decl = decl
	case token.FUN, token.SEQ:
		stmt.Decl = p.parseFuncStmt()
	default:
		p.expect(token.VAR, token.FUN, token.SEQ)
		panic("unreachable")
	}
	return &stmt
}

func (p *parser) parseExprOrAssignStmt() ast.Stmt {
	expr := p.parseExpr()
	switch {
	case p.tok == token.COMMA || p.tok == token.EQ:
		return p.parseAssignStmt(expr)
	case token.IsAssignOp(p.tok):
		return p.parseAugAssignStmt(expr)
	}
	if !ast.IsValidStmt(expr) {
		start, end := expr.Span()
		p.errorExpected(start, "function call")
		return &ast.BadStmt{Start: start, End: end}
	}
	return &ast.ExprStmt{Expr: expr}
}

func (p *parser) parseAssignStmt(firstExpr ast.Expr) *ast.AssignStmt {
	var stmt ast.AssignStmt
	left := []ast.Expr{firstExpr}
	for p.tok == token.COMMA {
		stmt.LeftCommas = append(stmt.LeftCommas, p.expect(token.COMMA))
		left = append(left, p.parseExpr())
	}
	for _, e := range left {
		if !ast.IsAssignable(e) {
			start, _ := e.Span()
			p.errorExpected(start, "assignable expression")
		}
	}
	stmt.Left = left
	stmt.AssignTok = token.EQ
	stmt.AssignPos = p.expect(token.EQ)
	stmt.Right, stmt.RightCommas = p.parseExprList()
	return &stmt
}

func (p *parser) parseAugAssignStmt(firstExpr ast.Expr) *ast.AssignStmt {
	var stmt ast.AssignStmt
	if !ast.IsAssignable(firstExpr) {
		start, _ := firstExpr.Span()
		p.errorExpected(start, "assignable expression")
	}
	stmt.Left = []ast.Expr{firstExpr}
	stmt.AssignTok = p.tok
	stmt.AssignPos = p.expect(p.tok)
	stmt.Right = []ast.Expr{p.parseExpr()}
	return &stmt
}
