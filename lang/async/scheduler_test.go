package async_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/lang/async"
	"github.com/lumen-lang/lumen/lang/machine"
)

// fakeEnumerator is a minimal stand-in for a *machine.Generator: it yields
// steps times before reporting completion, optionally failing at the step
// index failAt, so the scheduler's bookkeeping can be exercised without compiling
// and running an actual sequence function.
type fakeEnumerator struct {
	steps   int
	failAt  int // -1 disables; otherwise the step index (0-based) that errors
	current int
}

var _ machine.HasAttrs = (*fakeEnumerator)(nil)

func (f *fakeEnumerator) String() string   { return "fakeEnumerator" }
func (f *fakeEnumerator) Type() string     { return "fakeEnumerator" }
func (f *fakeEnumerator) AttrNames() []string { return []string{"moveNext"} }

func (f *fakeEnumerator) Attr(name string) (machine.Value, error) {
	if name != "moveNext" {
		return nil, nil
	}
	return machine.NewBuiltin("moveNext", func(_ *machine.Thread, _ *machine.Tuple) (machine.Value, error) {
		if f.current == f.failAt {
			return nil, fmt.Errorf("boom at step %d", f.current)
		}
		if f.current >= f.steps {
			return machine.False, nil
		}
		f.current++
		return machine.True, nil
	}), nil
}

func taskFunc(enum *fakeEnumerator) *machine.Builtin {
	return machine.NewBuiltin("task", func(_ *machine.Thread, _ *machine.Tuple) (machine.Value, error) {
		return enum, nil
	})
}

func TestSchedulerRunsTaskToCompletion(t *testing.T) {
	sched := async.NewScheduler(&machine.Thread{})
	enum := &fakeEnumerator{steps: 3, failAt: -1}

	_, err := sched.Start(taskFunc(enum))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		more, err := sched.Run()
		require.NoError(t, err)
		require.True(t, more)
	}
	more, err := sched.Run()
	require.NoError(t, err)
	require.False(t, more)
}

func TestSchedulerTwoTasksInterleave(t *testing.T) {
	sched := async.NewScheduler(&machine.Thread{})
	a := &fakeEnumerator{steps: 3, failAt: -1}
	b := &fakeEnumerator{steps: 3, failAt: -1}

	_, err := sched.Start(taskFunc(a))
	require.NoError(t, err)
	_, err = sched.Start(taskFunc(b))
	require.NoError(t, err)

	require.NoError(t, sched.RunToCompletion())
	require.Equal(t, 3, a.current)
	require.Equal(t, 3, b.current)
}

func TestSchedulerErrorSurfacesOnNextRunNotOnStart(t *testing.T) {
	sched := async.NewScheduler(&machine.Thread{})
	enum := &fakeEnumerator{steps: 3, failAt: 1}

	_, err := sched.Start(taskFunc(enum))
	require.NoError(t, err, "start must never surface a task's own failure")

	more, err := sched.Run()
	require.NoError(t, err)
	require.True(t, more)

	_, err = sched.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom at step 1")
}

func TestSchedulerRunToCompletionDrainsErrorQueueBeforeReturning(t *testing.T) {
	sched := async.NewScheduler(&machine.Thread{})
	enum := &fakeEnumerator{steps: 1, failAt: 0}

	_, err := sched.Start(taskFunc(enum))
	require.NoError(t, err)

	err = sched.RunToCompletion()
	require.Error(t, err)
}

func TestSchedulerStartRejectsNonTaskValue(t *testing.T) {
	sched := async.NewScheduler(&machine.Thread{})
	_, err := sched.Start(machine.String("not a task"))
	require.Error(t, err)
}

func TestPredeclaredAsyncObjectExposesMethods(t *testing.T) {
	th := &machine.Thread{}
	obj := async.NewPredeclared(th)

	for _, name := range []string{"start", "run", "runToCompletion"} {
		v, err := obj.Attr(name)
		require.NoError(t, err)
		_, ok := v.(machine.Callable)
		require.True(t, ok, "%s must be callable", name)
	}

	err := obj.SetField("stop", machine.Nil)
	require.Error(t, err, "the async object must not accept new fields once built")
}
