package compiler_test

import (
	"testing"

	"github.com/lumen-lang/lumen/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestAsm(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string // error "contains" this err string, no error if empty
	}{
		{"empty", ``, "expected program section"},
		{"not program", `function:`, "expected program section"},
		{"program only", `program: foo bar +baz`, "missing top-level function"},

		{"invalid function", `
				program:
					function: MissingNumArgs
						code:
			`, "invalid function: want at least 4 fields"},

		{"minimally valid", `
				program:
					function: Top 0 0
						code:
			`, ""},

		{"missing code", `
				program:
					function: Top 0 0
			`, "expected code section"},

		{"missing code followed by function", `
				program:
					function: Top 0 0
					function: Top 0 0
						code:
			`, "expected code section"},

		{"extra unknown section", `
				program:
					function: Top 0 0
						code:
				locals:
				`, "unexpected section: locals:"},

		{"invalid opcode", `
				program:
					function: Top 0 0
						code:
							foobar
				`, "invalid opcode: foobar"},

		{"missing opcode arg", `
				program:
					function: Top 0 0
						code:
							JMP
				`, "expected an argument for opcode JMP"},

		{"extra opcode arg", `
				program:
					function: Top 0 0
						code:
							JMP 1 2
				`, "expected an argument for opcode JMP, got 3 fields"},

		{"unexpected opcode arg", `
				program:
					function: Top 0 0
						code:
							NOP 1
				`, "expected no argument for opcode NOP"},

		{"invalid jump address", `
				program:
					function: Top 0 0
						code:
							NOP
							JMP 2
				`, "invalid jump index 2"},

		{"invalid handler number of fields", `
				program:
					function: Top 0 0
						handlers:
							1 2 3
						code:
							NOP
				`, "invalid handler"},

		{"invalid handler not an integer", `
				program:
					function: Top 0 0
						handlers:
							a b c d
						code:
							NOP
				`, "invalid unsigned integer"},

		{"invalid cell", `
				program:
					function: Top 0 0
						locals:
							x
							y
						cells:
							z
				`, `invalid cell: "z" is not an existing local`},

		{"invalid constant number of fields", `
				program:
					constants:
						123
				`, "invalid constant: expected type and value"},

		{"invalid constant type", `
				program:
					constants:
						foo 123
				`, "invalid constant type"},

		{"invalid integer constant", `
				program:
					constants:
						int abc
				`, "invalid integer"},

		{"invalid float constant", `
				program:
					constants:
						float abc
				`, "invalid float"},

		{"invalid string constant", `
				program:
					constants:
						string "a'
				`, "invalid string"},

		{"maximally valid", `
				program:
					loads:
						math
						json
					names:
						name
						age
					constants:
						string "abc"
						int 1234
						float 3.1415

					function: Top 1 0 +varargs
						locals:
							z
						cells:
							z
						code:
							NOP

					function: Nested 2 1
						locals:
							x
							y
						cells:
							x
						freevars:
							z
						handlers:
							0 4 3 0
						code:
							TRUE
							DUP
							FALSE
							NOP
							JMP 1
			`, ""},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := compiler.Asm([]byte(c.in))
			if c.err == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, c.err)
		})
	}
}

func TestDasm(t *testing.T) {
	cases := []struct {
		desc string
		p    compiler.Program
		err  string // error "contains" this err string, no error if empty
	}{
		{"empty", compiler.Program{}, "missing top-level function"},

		{"invalid constant type", compiler.Program{
			Toplevel:  &compiler.Funcode{},
			Constants: []any{true},
		}, "unsupported constant type: bool"},

		{"invalid opcode argument", compiler.Program{
			Toplevel: &compiler.Funcode{
				Code: []byte{byte(compiler.JMP), '\xff', '\xff', '\xff', '\xff', '\xff', '\x00'},
			},
		}, "invalid uvarint argument"},

		{"invalid handler pc0", compiler.Program{
			Toplevel: &compiler.Funcode{
				Code:     []byte{byte(compiler.NOP), byte(compiler.NOP)},
				Handlers: []compiler.Handler{{PC0: 5, PC1: 1}},
			},
		}, "invalid pc0 address"},

		{"invalid handler pc1", compiler.Program{
			Toplevel: &compiler.Funcode{
				Code:     []byte{byte(compiler.NOP), byte(compiler.NOP)},
				Handlers: []compiler.Handler{{PC0: 0, PC1: 5}},
			},
		}, "invalid pc1 address"},

		{"invalid jump", compiler.Program{
			Toplevel: &compiler.Funcode{
				Code: []byte{byte(compiler.JMP), '\x02', '\x00', '\x00', '\x00', byte(compiler.NOP)},
			},
		}, "invalid jump address"},

		{"valid code and handler", compiler.Program{
			Toplevel: &compiler.Funcode{
				Code:     []byte{byte(compiler.NOP), byte(compiler.JMP), '\x06', '\x00', '\x00', '\x00', byte(compiler.NOP)},
				Handlers: []compiler.Handler{{PC0: 0, PC1: 6, CatchPC: 0, FinallyPC: 0}},
			},
		}, ""},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			p := c.p
			_, err := compiler.Dasm(&p)
			if c.err == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, c.err)
		})
	}
}

func TestAsmDasmRoundtrip(t *testing.T) {
	const src = `program:
	constants:
		string	"hi"	# 000
		int	42	# 001

	function: Top 2 0
		locals:
			x	# 000
		code:
			CONSTANT 000	# 000
			SETLOCAL 000	# 001
			LOCAL 000	# 002
			RETURN	# 003
`
	p, err := compiler.Asm([]byte(src))
	require.NoError(t, err)
	require.Equal(t, "Top", p.Toplevel.Name)
	require.Equal(t, []any{"hi", int64(42)}, p.Constants)

	out, err := compiler.Dasm(p)
	require.NoError(t, err)

	p2, err := compiler.Asm(out)
	require.NoError(t, err)
	require.Equal(t, p.Toplevel.Code, p2.Toplevel.Code)
	require.Equal(t, p.Constants, p2.Constants)
}
