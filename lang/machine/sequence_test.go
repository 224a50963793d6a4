package machine_test

import (
	"context"
	"testing"

	"github.com/lumen-lang/lumen/lang/machine"
	"github.com/stretchr/testify/require"
)

func TestGeneratorYieldCount(t *testing.T) {
	p := compile(t, `
		seq naturals(n) {
			var i = 0;
			while (i < n) {
				yield i;
				i = i + 1;
			}
		}
		return naturals(5);
	`)

	var th machine.Thread
	v, err := th.RunProgram(context.Background(), p)
	require.NoError(t, err)

	gen, ok := v.(*machine.Generator)
	require.True(t, ok)

	var yields int
	for {
		ok, err := gen.MoveNext(machine.Nil)
		require.NoError(t, err)
		if !ok {
			break
		}
		yields++
	}
	require.Equal(t, 5, yields)

	// exhausted generator keeps reporting done, it does not panic or restart
	ok, err = gen.MoveNext(machine.Nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGeneratorMoveNextReturnsFalseWhenEmpty(t *testing.T) {
	p := compile(t, `
		seq empty() {
		}
		return empty();
	`)

	var th machine.Thread
	v, err := th.RunProgram(context.Background(), p)
	require.NoError(t, err)

	gen, ok := v.(*machine.Generator)
	require.True(t, ok)

	ok, err = gen.MoveNext(machine.Nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGeneratorErrorPropagatesAndSticks(t *testing.T) {
	p := compile(t, `
		seq bad() {
			yield 1;
			throw "broken";
		}
		return bad();
	`)

	var th machine.Thread
	v, err := th.RunProgram(context.Background(), p)
	require.NoError(t, err)

	gen, ok := v.(*machine.Generator)
	require.True(t, ok)

	ok, err = gen.MoveNext(machine.Nil)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = gen.MoveNext(machine.Nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")

	// the error sticks: a generator that errored out never resumes
	_, err = gen.MoveNext(machine.Nil)
	require.Error(t, err)
}
