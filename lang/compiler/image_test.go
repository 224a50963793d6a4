package compiler_test

import (
	"testing"

	"github.com/lumen-lang/lumen/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestImageRoundTripSimpleProgram(t *testing.T) {
	p := compile(t, `
		var x = 1;
		var y = "hello";
		return x + 2;
	`)

	b, err := p.Encode()
	require.NoError(t, err)

	got, err := compiler.DecodeImage(b)
	require.NoError(t, err)

	require.Equal(t, p.Constants, got.Constants)
	require.Equal(t, p.Toplevel.Code, got.Toplevel.Code)
	require.Equal(t, p.Toplevel.MaxStack, got.Toplevel.MaxStack)
	require.Equal(t, p.Toplevel.NumParams, got.Toplevel.NumParams)
	require.Equal(t, len(p.Toplevel.Locals), len(got.Toplevel.Locals))
	require.Equal(t, p.Toplevel.Handlers, got.Toplevel.Handlers)
}

func TestImageRoundTripNestedFunctionsAndTryCatch(t *testing.T) {
	p := compile(t, `
		fun outer(a, ...rest) {
			try {
				throw a;
			} catch (e) {
				return e;
			} finally {
				rest = rest;
			}
		}
		seq gen() {
			yield 1;
		}
		return outer(1);
	`)

	b, err := p.Encode()
	require.NoError(t, err)

	got, err := compiler.DecodeImage(b)
	require.NoError(t, err)

	require.Equal(t, len(p.Functions), len(got.Functions))
	for i, fn := range p.Functions {
		gfn := got.Functions[i]
		require.Equal(t, fn.Code, gfn.Code)
		require.Equal(t, fn.HasVarargs, gfn.HasVarargs)
		require.Equal(t, fn.IsSequence, gfn.IsSequence)
		require.Equal(t, fn.Handlers, gfn.Handlers)
		require.Equal(t, fn.Cells, gfn.Cells)
	}
}

func TestImageDecodeRejectsBadMagic(t *testing.T) {
	_, err := compiler.DecodeImage([]byte("not an image"))
	require.Error(t, err)
}

func TestImageDecodeRejectsWrongVersion(t *testing.T) {
	p := compile(t, `return 1;`)
	b, err := p.Encode()
	require.NoError(t, err)

	// version is the two bytes immediately after the 4-byte magic
	corrupted := append([]byte(nil), b...)
	corrupted[4] = 0xff
	corrupted[5] = 0xff

	_, err = compiler.DecodeImage(corrupted)
	require.Error(t, err)
}

func TestImagePreservesPositionDebugInfo(t *testing.T) {
	p := compile(t, `
		var x = 1;
		var y = 2;
		return x + y;
	`)

	b, err := p.Encode()
	require.NoError(t, err)
	got, err := compiler.DecodeImage(b)
	require.NoError(t, err)

	require.Equal(t, p.Toplevel.Position(0), got.Toplevel.Position(0))
}
