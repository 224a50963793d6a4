package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/lang/scanner"
	"github.com/lumen-lang/lumen/lang/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, []string) {
	t.Helper()
	fset := token.NewFileSet()
	f := fset.AddFile("test.lum", len(src))
	var errs []string
	var sc scanner.Scanner
	sc.Init(f, src, func(pos token.Pos, msg string) {
		errs = append(errs, fset.Position(pos).String()+": "+msg)
	})
	var toks []token.Token
	var lits []string
	for {
		tok, _, lit := sc.Scan()
		toks = append(toks, tok)
		lits = append(lits, lit)
		if tok == token.EOF {
			break
		}
	}
	require.Empty(t, errs, "unexpected scan errors: %v", errs)
	return toks, lits
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks, _ := scanAll(t, `+ - * / // % ^ & | ~ << >> . , = ; : ( ) [ ] { } < > >= <= == != ! ? += -= *= /= //= %= ^= &= |= <<= >>= ->`)
	want := []token.Token{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.SLASHSLASH, token.PERCENT,
		token.CIRCUMFLEX, token.AMPERSAND, token.PIPE, token.TILDE, token.LTLT, token.GTGT,
		token.DOT, token.COMMA, token.EQ, token.SEMI, token.COLON, token.LPAREN, token.RPAREN,
		token.LBRACK, token.RBRACK, token.LBRACE, token.RBRACE, token.LT, token.GT, token.GE,
		token.LE, token.EQL, token.NEQ, token.BANG, token.QUESTION, token.PLUS_EQ,
		token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.SLASHSLASH_EQ, token.PERCENT_EQ,
		token.CIRCUMFLEX_EQ, token.AMP_EQ, token.PIPE_EQ, token.LTLT_EQ, token.GTGT_EQ,
		token.ARROW, token.EOF,
	}
	require.Equal(t, want, toks)
}

func TestScanKeywordsAndIdents(t *testing.T) {
	toks, lits := scanAll(t, `var fun seq if else while do for foreach in break continue return yield try catch finally throw import export from and or not true false null undefined foo _bar baz123`)
	want := []token.Token{
		token.VAR, token.FUN, token.SEQ, token.IF, token.ELSE, token.WHILE, token.DO, token.FOR,
		token.FOREACH, token.IN, token.BREAK, token.CONTINUE, token.RETURN, token.YIELD,
		token.TRY, token.CATCH, token.FINALLY, token.THROW, token.IMPORT, token.EXPORT,
		token.FROM, token.AND, token.OR, token.NOT, token.TRUE, token.FALSE, token.NULL,
		token.UNDEFINED, token.IDENT, token.IDENT, token.IDENT, token.EOF,
	}
	require.Equal(t, want, toks)
	require.Equal(t, "foo", lits[len(lits)-4])
	require.Equal(t, "_bar", lits[len(lits)-3])
	require.Equal(t, "baz123", lits[len(lits)-2])
}

func TestScanNumbers(t *testing.T) {
	toks, lits := scanAll(t, `123 0x1F 0o17 0b101 3.14 1e10 0x1p4 1_000`)
	for i, want := range []token.Token{token.INT, token.INT, token.INT, token.INT, token.FLOAT, token.FLOAT, token.FLOAT, token.INT} {
		require.Equal(t, want, toks[i], "token %d (%q)", i, lits[i])
	}
}

func TestScanStrings(t *testing.T) {
	toks, lits := scanAll(t, `"hello\nworld" 'it\'s' "\x41" "\u{1F600}"`)
	require.Equal(t, token.STRING, toks[0])
	require.Equal(t, "hello\nworld", lits[0])
	require.Equal(t, "it's", lits[1])
	require.Equal(t, "A", lits[2])
	require.Equal(t, "😀", lits[3])
}

func TestScanCommentsAreSkipped(t *testing.T) {
	toks, _ := scanAll(t, "# a line comment\nvar x # trailing\n")
	require.Equal(t, []token.Token{token.VAR, token.IDENT, token.EOF}, toks)
}

func TestScanIllegalCharacter(t *testing.T) {
	fset := token.NewFileSet()
	f := fset.AddFile("test.lum", 1)
	var errs []string
	var sc scanner.Scanner
	sc.Init(f, "`", func(pos token.Pos, msg string) {
		errs = append(errs, msg)
	})
	tok, _, _ := sc.Scan()
	require.Equal(t, token.ILLEGAL, tok)
	require.NotEmpty(t, errs)
}

func TestNumberToInt(t *testing.T) {
	for _, c := range []struct {
		lit  string
		want int64
	}{
		{"123", 123},
		{"0x1F", 31},
		{"0o17", 15},
		{"0b101", 5},
		{"1_000", 1000},
	} {
		got, err := scanner.NumberToInt(c.lit)
		require.NoError(t, err, c.lit)
		require.Equal(t, c.want, got, c.lit)
	}
}

func TestNumberToFloat(t *testing.T) {
	got, err := scanner.NumberToFloat("3.14")
	require.NoError(t, err)
	require.InDelta(t, 3.14, got, 1e-9)
}
