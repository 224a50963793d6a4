// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner implements a lexer for Lumen source text, turning a byte
// stream into a sequence of lang/token.Token values.
package scanner

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lumen-lang/lumen/lang/token"
)

const eof = -1

// Scanner tokenizes a single source file. Construct with Init, then call
// Scan repeatedly until it returns token.EOF.
type Scanner struct {
	file *token.File
	src  string
	err  func(pos token.Pos, msg string)

	sb               strings.Builder // scratch buffer for string literals
	pendingSurrogate rune            // first half of a UTF-16 surrogate pair awaiting its second half

	cur  rune // character at off
	off  int  // byte offset of cur in src
	roff int  // byte offset of the character following cur

	ErrorCount int
}

// Init prepares s to scan src, whose positions are recorded against file.
// errh, if non-nil, is called for every lexical error encountered; otherwise
// errors are merely counted in ErrorCount.
func (s *Scanner) Init(file *token.File, src string, errh func(pos token.Pos, msg string)) {
	s.file = file
	s.src = src
	s.err = errh
	s.ErrorCount = 0
	s.off = 0
	s.roff = 0
	s.cur = ' '
	s.advance()
	if s.cur == '﻿' {
		s.advance() // skip BOM
	}
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = eof
		return
	}
	s.off = s.roff
	if s.src[s.off] == '\n' {
		s.file.AddLine(s.off + 1)
	}
	r, w := rune(s.src[s.off]), 1
	switch {
	case r == 0:
		s.error(s.off, "invalid NUL byte")
	case r >= utf8.RuneSelf:
		r, w = utf8.DecodeRuneInString(s.src[s.off:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "invalid UTF-8 encoding")
		}
	}
	s.roff = s.off + w
	s.cur = r
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) error(offset int, msg string) {
	s.ErrorCount++
	if s.err != nil {
		s.err(s.file.Pos(offset), msg)
	}
}

func (s *Scanner) errorf(offset int, format string, args ...interface{}) {
	s.error(offset, fmt.Sprintf(format, args...))
}

// advanceIf advances past cur and reports true if cur == r, otherwise it
// leaves the scanner untouched and reports false.
func (s *Scanner) advanceIf(r rune) bool {
	if s.cur == r {
		s.advance()
		return true
	}
	return false
}

func isLetter(r rune) bool {
	return r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r >= utf8.RuneSelf
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func (s *Scanner) skipSpace() {
	for s.cur == ' ' || s.cur == '\t' || s.cur == '\r' || s.cur == '\n' {
		s.advance()
	}
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return s.src[start:s.off]
}

// Scan returns the next token, its starting position, and, for IDENT, INT,
// FLOAT and STRING tokens, the literal text (for STRING, the decoded value;
// for the others, the raw source text).
func (s *Scanner) Scan() (tok token.Token, pos token.Pos, lit string) {
	s.skipSpace()

	for s.cur == '#' {
		s.skipComment()
		s.skipSpace()
	}

	offset := s.off
	pos = s.file.Pos(offset)

	switch {
	case s.cur == eof:
		return token.EOF, pos, ""
	case isLetter(s.cur):
		lit = s.ident()
		if kw, ok := token.Keywords[lit]; ok {
			return kw, pos, lit
		}
		return token.IDENT, pos, lit
	case isDigit(s.cur):
		return s.scanNumber(offset)
	case s.cur == '"' || s.cur == '\'':
		return s.scanString(offset)
	}

	r := s.cur
	s.advance()
	switch r {
	case '+':
		if s.advanceIf('=') {
			return token.PLUS_EQ, pos, ""
		}
		return token.PLUS, pos, ""
	case '-':
		if s.advanceIf('=') {
			return token.MINUS_EQ, pos, ""
		}
		if s.advanceIf('>') {
			return token.ARROW, pos, ""
		}
		return token.MINUS, pos, ""
	case '*':
		if s.advanceIf('=') {
			return token.STAR_EQ, pos, ""
		}
		return token.STAR, pos, ""
	case '/':
		if s.advanceIf('/') {
			if s.advanceIf('=') {
				return token.SLASHSLASH_EQ, pos, ""
			}
			return token.SLASHSLASH, pos, ""
		}
		if s.advanceIf('=') {
			return token.SLASH_EQ, pos, ""
		}
		return token.SLASH, pos, ""
	case '%':
		if s.advanceIf('=') {
			return token.PERCENT_EQ, pos, ""
		}
		return token.PERCENT, pos, ""
	case '^':
		if s.advanceIf('=') {
			return token.CIRCUMFLEX_EQ, pos, ""
		}
		return token.CIRCUMFLEX, pos, ""
	case '&':
		if s.advanceIf('=') {
			return token.AMP_EQ, pos, ""
		}
		return token.AMPERSAND, pos, ""
	case '|':
		if s.advanceIf('=') {
			return token.PIPE_EQ, pos, ""
		}
		return token.PIPE, pos, ""
	case '~':
		return token.TILDE, pos, ""
	case '<':
		if s.advanceIf('<') {
			if s.advanceIf('=') {
				return token.LTLT_EQ, pos, ""
			}
			return token.LTLT, pos, ""
		}
		if s.advanceIf('=') {
			return token.LE, pos, ""
		}
		return token.LT, pos, ""
	case '>':
		if s.advanceIf('>') {
			if s.advanceIf('=') {
				return token.GTGT_EQ, pos, ""
			}
			return token.GTGT, pos, ""
		}
		if s.advanceIf('=') {
			return token.GE, pos, ""
		}
		return token.GT, pos, ""
	case '.':
		if s.cur == '.' && s.peek() == '.' {
			s.advance()
			s.advance()
			return token.DOTDOTDOT, pos, ""
		}
		return token.DOT, pos, ""
	case ',':
		return token.COMMA, pos, ""
	case '=':
		if s.advanceIf('=') {
			return token.EQL, pos, ""
		}
		return token.EQ, pos, ""
	case ';':
		return token.SEMI, pos, ""
	case ':':
		return token.COLON, pos, ""
	case '(':
		return token.LPAREN, pos, ""
	case ')':
		return token.RPAREN, pos, ""
	case '[':
		return token.LBRACK, pos, ""
	case ']':
		return token.RBRACK, pos, ""
	case '{':
		return token.LBRACE, pos, ""
	case '}':
		return token.RBRACE, pos, ""
	case '!':
		if s.advanceIf('=') {
			return token.NEQ, pos, ""
		}
		return token.BANG, pos, ""
	case '?':
		return token.QUESTION, pos, ""
	}

	s.errorf(offset, "unexpected character %#U", r)
	return token.ILLEGAL, pos, string(r)
}

func (s *Scanner) skipComment() {
	// s.cur == '#'
	for s.cur != '\n' && s.cur != eof {
		s.advance()
	}
}

// ScanFiles tokenizes every byte of src and returns the resulting tokens,
// positions and literals (EOF included as the final entry). It is a
// convenience for callers that want a whole file's tokens at once; the
// package's own tests drive a Scanner directly.
func ScanFiles(file *token.File, src string) (toks []token.Token, poss []token.Pos, lits []string, errs []error) {
	var sc Scanner
	sc.Init(file, src, func(pos token.Pos, msg string) {
		errs = append(errs, fmt.Errorf("%s: %s", file.Position(pos), msg))
	})
	for {
		tok, pos, lit := sc.Scan()
		toks = append(toks, tok)
		poss = append(poss, pos)
		lits = append(lits, lit)
		if tok == token.EOF {
			break
		}
	}
	return toks, poss, lits, errs
}
