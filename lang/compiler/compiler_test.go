package compiler_test

import (
	"context"
	"testing"

	"github.com/lumen-lang/lumen/lang/ast"
	"github.com/lumen-lang/lumen/lang/compiler"
	"github.com/lumen-lang/lumen/lang/parser"
	"github.com/lumen-lang/lumen/lang/resolver"
	"github.com/lumen-lang/lumen/lang/token"
	"github.com/stretchr/testify/require"
)

// compile parses, resolves and compiles src as a single chunk, failing the
// test on any parse or resolve error.
func compile(t *testing.T, src string) *compiler.Program {
	t.Helper()

	fset := token.NewFileSet()
	ch, errs := parser.ParseChunk(fset, "test.lum", []byte(src))
	require.NoError(t, errs.Err())

	chunks := []*ast.Chunk{ch}
	err := resolver.ResolveFiles(context.Background(), fset, chunks, 0, nil, nil, nil)
	require.NoError(t, err)

	progs := compiler.CompileFiles(context.Background(), fset, chunks)
	require.Len(t, progs, 1)
	return progs[0]
}

func TestCompileFilesEmpty(t *testing.T) {
	progs := compiler.CompileFiles(context.Background(), token.NewFileSet(), nil)
	require.Nil(t, progs)
}

func TestCompileLiteralsAndReturn(t *testing.T) {
	p := compile(t, `var x = 1; return x + 2;`)
	require.NotNil(t, p.Toplevel)
	require.Contains(t, p.Constants, int64(1))
	require.Contains(t, p.Constants, int64(2))
}

func TestCompileIfElse(t *testing.T) {
	p := compile(t, `
		var x = 1;
		if (x > 0) {
			x = 2;
		} else {
			x = 3;
		}
		return x;
	`)
	require.NotEmpty(t, p.Toplevel.Code)
}

func TestCompileWhileBreakContinue(t *testing.T) {
	p := compile(t, `
		var i = 0;
		while (i < 10) {
			i = i + 1;
			if (i == 5) {
				break;
			}
			continue;
		}
		return i;
	`)
	require.NotEmpty(t, p.Toplevel.Code)
}

func TestCompileForLoop(t *testing.T) {
	p := compile(t, `
		var sum = 0;
		for (var i = 0; i < 10; i = i + 1) {
			sum = sum + i;
		}
		return sum;
	`)
	require.NotEmpty(t, p.Toplevel.Code)
}

func TestCompileForeachTwoVar(t *testing.T) {
	p := compile(t, `
		var xs = [1, 2, 3];
		var total = 0;
		foreach (i, v in xs) {
			total = total + i + v;
		}
		return total;
	`)
	require.NotEmpty(t, p.Toplevel.Code)
}

func TestCompileClosure(t *testing.T) {
	p := compile(t, `
		fun makeCounter() {
			var n = 0;
			fun inc() {
				n = n + 1;
				return n;
			}
			return inc;
		}
		return makeCounter();
	`)
	require.Len(t, p.Functions, 2)
}

func TestCompileTryCatchFinally(t *testing.T) {
	p := compile(t, `
		fun risky() {
			try {
				throw "boom";
			} catch (e) {
				return e;
			} finally {
				var cleaned = true;
			}
		}
		return risky();
	`)
	require.Len(t, p.Functions, 1)
	fn := p.Functions[0]
	require.Len(t, fn.Handlers, 1)
	h := fn.Handlers[0]
	require.NotZero(t, h.CatchPC)
	require.NotZero(t, h.FinallyPC)
}

func TestCompileTailCallCancelledByFinally(t *testing.T) {
	p := compile(t, `
		fun f() {
			return 1;
		}
		fun g() {
			try {
				return f();
			} finally {
				var x = 1;
			}
		}
		return g();
	`)
	require.Len(t, p.Functions, 2)
	gFn := p.Functions[1]
	require.Contains(t, disassembleOps(gFn), compiler.CALL)
	require.NotContains(t, disassembleOps(gFn), compiler.CALL_TAIL)
}

func TestCompileTailCallOutsideFinally(t *testing.T) {
	p := compile(t, `
		fun f() {
			return 1;
		}
		fun g() {
			return f();
		}
		return g();
	`)
	require.Len(t, p.Functions, 2)
	gFn := p.Functions[1]
	require.Contains(t, disassembleOps(gFn), compiler.CALL_TAIL)
}

func TestCompileShortCircuitAnd(t *testing.T) {
	p := compile(t, `
		var a = true;
		var b = false;
		return a && b;
	`)
	require.Contains(t, disassembleOps(p.Toplevel), compiler.DUP)
	require.Contains(t, disassembleOps(p.Toplevel), compiler.CJMP)
}

func TestCompileShortCircuitOr(t *testing.T) {
	p := compile(t, `
		var a = true;
		var b = false;
		return a || b;
	`)
	require.Contains(t, disassembleOps(p.Toplevel), compiler.DUP)
	require.Contains(t, disassembleOps(p.Toplevel), compiler.CJMP)
}

func TestCompileSequenceYield(t *testing.T) {
	p := compile(t, `
		seq counter() {
			yield 1;
			yield 2;
		}
		return counter();
	`)
	require.Len(t, p.Functions, 1)
	require.True(t, p.Functions[0].IsSequence)
	require.Contains(t, disassembleOps(p.Functions[0]), compiler.SEQSUSPEND)
	require.Contains(t, disassembleOps(p.Functions[0]), compiler.SEQRESUME)
}

func TestCompileDestructuringAssign(t *testing.T) {
	p := compile(t, `
		fun pair() {
			return [1, 2];
		}
		var a;
		var b;
		a, b = pair();
		return a + b;
	`)
	require.Contains(t, disassembleOps(p.Toplevel), compiler.UNPACK)
}

func TestCompileImportBareAndNamed(t *testing.T) {
	p := compile(t, `
		import "sideeffect";
		import math from "math";
		return math;
	`)
	require.Len(t, p.Loads, 2)
	ops := disassembleOps(p.Toplevel)
	require.Contains(t, ops, compiler.LOAD)
}

func TestCompileExport(t *testing.T) {
	p := compile(t, `
		export fun greet() {
			return "hi";
		}
	`)
	require.Len(t, p.Exports, 1)
	require.Equal(t, "greet", p.Exports[0].Name)
}

func TestCompileMapShorthandKey(t *testing.T) {
	p := compile(t, `
		var k = "dyn";
		return {a: 1, [k]: 2};
	`)
	require.Contains(t, p.Constants, "a")
}

func TestCompileUndefinedAndNullCollapseToNil(t *testing.T) {
	p := compile(t, `
		var a = undefined;
		var b = null;
		return a;
	`)
	ops := disassembleOps(p.Toplevel)
	var nilCount int
	for _, op := range ops {
		if op == compiler.NIL {
			nilCount++
		}
	}
	require.GreaterOrEqual(t, nilCount, 2)
}

// disassembleOps decodes fn.Code into its sequence of opcodes, ignoring
// operands, for tests that only need to assert an opcode was or wasn't
// emitted.
func disassembleOps(fn *compiler.Funcode) []compiler.Opcode {
	return compiler.DecodeOps(fn.Code)
}
