package parser

import (
	"github.com/lumen-lang/lumen/lang/ast"
	"github.com/lumen-lang/lumen/lang/token"
)

func (p *parser) parseChunk() *ast.Chunk {
	var chunk ast.Chunk
	chunk.Block = p.parseTopLevelBlock()
	chunk.EOF = p.expect(token.EOF)
	return &chunk
}

// parseTopLevelBlock parses the implicit top-level block of a file: a
// sequence of statements up to EOF, with no surrounding braces.
func (p *parser) parseTopLevelBlock() *ast.Block {
	var block ast.Block
	block.Start = p.pos
	for p.tok != token.EOF {
		if stmt := p.parseStmt(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	block.End = p.pos
	return &block
}

// parseBlock parses a brace-delimited block: { stmt* }.
func (p *parser) parseBlock() *ast.Block {
	var block ast.Block
	block.Start = p.expect(token.LBRACE)
	for !tokenIn(p.tok, token.RBRACE, token.EOF) {
		if stmt := p.parseStmt(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	block.End = p.expect(token.RBRACE)
	return &block
}

// syncToks are statement-starting tokens safe to resume parsing at after a
// syntax error.
var syncToks = map[token.Token]bool{
	token.VAR: true, token.FUN: true, token.SEQ: true, token.IF: true,
	token.WHILE: true, token.FOR: true, token.FOREACH: true, token.RETURN: true,
	token.BREAK: true, token.CONTINUE: true, token.THROW: true, token.TRY: true,
	token.IMPORT: true, token.EXPORT: true, token.RBRACE: true, token.EOF: true,
}

func (p *parser) syncAfterError() token.Pos {
	for !syncToks[p.tok] {
		p.advance()
	}
	return p.pos
}

// parseStmt parses a single statement, or returns nil for a statement to
// skip (the empty ";" statement). A syntax error unwinds to here and
// produces a BadStmt spanning the skipped tokens.
func (p *parser) parseStmt() (stmt ast.Stmt) {
	start := p.pos

	defer func() {
		if err := recover(); err != nil {
			if err != errPanicMode {
				panic(err)
			}
			stmt = &ast.BadStmt{Start: start, End: p.syncAfterError()}
		}
	}()

	switch p.tok {
	case token.SEMI:
		p.advance()
		return nil
	case token.VAR:
		s := p.parseVarDecl()
		p.expect(token.SEMI)
		return s
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.FOREACH:
		return p.parseForInStmt()
	case token.FUN, token.SEQ:
		return p.parseFuncStmt()
	case token.RETURN, token.BREAK, token.CONTINUE:
		s := p.parseReturnLikeStmt()
		p.expect(token.SEMI)
		return s
	case token.THROW:
		s := p.parseThrowStmt()
		p.expect(token.SEMI)
		return s
	case token.TRY:
		return p.parseTryStmt()
	case token.IMPORT:
		s := p.parseImportStmt()
		p.expect(token.SEMI)
		return s
	case token.EXPORT:
		return p.parseExportStmt()
	default:
		s := p.parseExprOrAssignStmt()
		p.expect(token.SEMI)
		return s
	}
}
