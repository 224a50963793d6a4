// Package parser implements a recursive-descent parser that transforms
// Lumen source code into an abstract syntax tree (ast.Chunk).
package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lumen-lang/lumen/lang/ast"
	"github.com/lumen-lang/lumen/lang/scanner"
	"github.com/lumen-lang/lumen/lang/token"
)

// ErrorList collects errors encountered while parsing, in the order they are
// reported; it is not sorted.
type ErrorList []error

func (e *ErrorList) add(pos token.Position, msg string) {
	*e = append(*e, fmt.Errorf("%s: %s", pos, msg))
}

// Err returns e as an error if it is non-empty, else nil.
func (e ErrorList) Err() error {
	if len(e) == 0 {
		return nil
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return errors.New(strings.Join(msgs, "\n"))
}

// ParseFiles parses the named source files and returns the shared FileSet,
// one ast.Chunk per file (in order, including partial chunks for files that
// failed to parse fully) and any errors encountered across all files.
func ParseFiles(files ...string) (*token.FileSet, []*ast.Chunk, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	fset := token.NewFileSet()
	var chunks []*ast.Chunk
	var errs ErrorList

	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			errs.add(token.Position{Filename: file}, err.Error())
			continue
		}
		ch, perrs := ParseChunk(fset, file, b)
		chunks = append(chunks, ch)
		errs = append(errs, perrs...)
	}
	return fset, chunks, errs.Err()
}

// ParseChunk parses a single chunk from src, registering it in fset under
// filename, and returns the AST plus any errors encountered.
func ParseChunk(fset *token.FileSet, filename string, src []byte) (*ast.Chunk, ErrorList) {
	var p parser
	p.init(fset, filename, src)
	ch := p.parseChunk()
	ch.Name = filename
	return ch, p.errors
}

// parser parses a single source file into an AST.
type parser struct {
	file    *token.File
	scanner scanner.Scanner
	errors  ErrorList

	tok token.Token // current token
	pos token.Pos   // position of tok
	lit string      // literal text of tok, if any
}

func (p *parser) init(fset *token.FileSet, filename string, src []byte) {
	p.file = fset.AddFile(filename, len(src))
	p.scanner.Init(p.file, string(src), func(pos token.Pos, msg string) {
		p.errors.add(p.file.Position(pos), msg)
	})
	p.advance()
}

func (p *parser) advance() {
	p.tok, p.pos, p.lit = p.scanner.Scan()
}

// errPanicMode is used to unwind the parser to the nearest statement
// boundary after a syntax error, via panic/recover in parseStmt.
var errPanicMode = errors.New("panic mode")

func (p *parser) error(pos token.Pos, msg string) {
	p.errors.add(p.file.Position(pos), msg)
}

func (p *parser) errorExpected(pos token.Pos, msg string) {
	msg = "expected " + msg
	if pos == p.pos {
		if p.lit != "" {
			msg += ", found " + p.lit
		} else {
			msg += ", found " + p.tok.GoString()
		}
	}
	p.error(pos, msg)
}

// expect consumes and returns the position of the current token if it
// matches one of toks; otherwise it records an error and panics with
// errPanicMode, to be recovered at the statement level.
func (p *parser) expect(toks ...token.Token) token.Pos {
	pos := p.pos
	for _, tok := range toks {
		if p.tok == tok {
			p.advance()
			return pos
		}
	}

	names := make([]string, len(toks))
	for i, tok := range toks {
		names[i] = tok.GoString()
	}
	lbl := strings.Join(names, ", ")
	if len(toks) > 1 {
		lbl = "one of " + lbl
	}
	p.errorExpected(pos, lbl)
	panic(errPanicMode)
}

func tokenIn(t token.Token, toks ...token.Token) bool {
	for _, tok := range toks {
		if t == tok {
			return true
		}
	}
	return false
}
