// Adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scanner

import (
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/lumen-lang/lumen/lang/token"
)

// scanString scans a double- or single-quoted string literal, returning the
// decoded value (escapes resolved) as lit.
func (s *Scanner) scanString(startOff int) (tok token.Token, pos token.Pos, lit string) {
	pos = s.file.Pos(startOff)
	opening := s.cur
	s.advance() // consume opening quote
	s.sb.Reset()
	s.pendingSurrogate = 0

	for {
		cur := s.cur
		if cur == '\n' || cur == eof {
			s.error(startOff, "string literal not terminated")
			break
		}
		s.advance()
		if cur == opening {
			break
		}
		if cur == '\\' {
			s.escape()
		} else {
			s.writeStringLitRune(cur)
		}
	}
	if s.pendingSurrogate != 0 {
		s.sb.WriteRune(utf8.RuneError)
	}
	return token.STRING, pos, s.sb.String()
}

var simpleEscapes = [...]byte{
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'0':  0,
}

// escape parses an escape sequence with the leading backslash already
// consumed.
func (s *Scanner) escape() {
	startOff := s.off - 1

	switch cur := s.cur; cur {
	case 'a', 'b', 'f', 'n', 'r', 't', 'v', '\\', '\'', '"', '0':
		s.advance()
		s.writeStringLitRune(rune(simpleEscapes[cur]))
		return
	}

	illegalOrIncomplete := func() {
		if s.cur == eof {
			s.error(startOff, "escape sequence not terminated")
			return
		}
		s.errorf(s.off, "illegal character %#U in escape sequence", s.cur)
	}

	var max, rn uint32
	if s.advanceIf('x') {
		// \xhh - exactly 2 hexadecimal digits, to encode a byte
		max = 255
		for i := 0; i < 2; i++ {
			if !isHexadecimal(s.cur) {
				illegalOrIncomplete()
				return
			}
			rn = rn*16 + uint32(digitVal(s.cur))
			s.advance()
		}
	} else if s.advanceIf('u') {
		max = unicode.MaxRune
		if s.advanceIf('{') {
			// \u{h+} - one to eight hexadecimal digits, a Unicode code point
			var count int
			for isHexadecimal(s.cur) {
				rn = rn*16 + uint32(digitVal(s.cur))
				s.advance()
				count++
			}
			if !s.advanceIf('}') {
				illegalOrIncomplete()
				return
			}
			if count == 0 || count > 8 {
				s.error(startOff, "escape sequence has an invalid number of hexadecimal digits")
				return
			}
		} else {
			// \uhhhh - exactly 4 hexadecimal digits
			for i := 0; i < 4; i++ {
				if !isHexadecimal(s.cur) {
					illegalOrIncomplete()
					return
				}
				rn = rn*16 + uint32(digitVal(s.cur))
				s.advance()
			}
		}
	} else {
		msg := "unknown escape sequence"
		if s.cur == eof {
			msg = "escape sequence not terminated"
		}
		s.error(startOff, msg)
		return
	}

	if rn > max {
		msg := "escape sequence is invalid Unicode code point"
		if max == 255 {
			msg = "escape sequence is invalid byte value"
		}
		s.error(startOff, msg)
		return
	}
	if utf16.IsSurrogate(rune(rn)) {
		s.writeStringLitSurrogate(rune(rn))
		return
	}
	s.writeStringLitRune(rune(rn))
}

// writeStringLitRune writes a rune that is not a surrogate half.
func (s *Scanner) writeStringLitRune(rn rune) {
	if s.pendingSurrogate != 0 {
		s.sb.WriteRune(utf8.RuneError)
		s.pendingSurrogate = 0
	}
	s.sb.WriteRune(rn)
}

// writeStringLitSurrogate writes a rune that is a surrogate half (first or
// second), combining a pending pair into a single rune.
func (s *Scanner) writeStringLitSurrogate(rn rune) {
	if s.pendingSurrogate == 0 {
		s.pendingSurrogate = rn
	} else {
		s.sb.WriteRune(utf16.DecodeRune(s.pendingSurrogate, rn))
		s.pendingSurrogate = 0
	}
}

func digitVal(rn rune) int {
	switch {
	case '0' <= rn && rn <= '9':
		return int(rn - '0')
	case 'a' <= rn && rn <= 'f':
		return int(rn - 'a' + 10)
	case 'A' <= rn && rn <= 'F':
		return int(rn - 'A' + 10)
	}
	return 16 // larger than any legal digit value
}
