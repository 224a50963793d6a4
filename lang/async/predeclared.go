package async

import "github.com/lumen-lang/lumen/lang/machine"

// NewPredeclared builds the object exposed to scripts as the predeclared
// "async" identifier, its start/run/runToCompletion methods bound to a
// fresh Scheduler for th. Callers register it with
// th.Predeclared["async"] = NewPredeclared(th).
func NewPredeclared(th *machine.Thread) *machine.Object {
	sched := NewScheduler(th)
	obj := machine.NewObject()

	obj.SetKey(machine.String("start"), machine.NewBuiltin("start",
		func(_ *machine.Thread, args *machine.Tuple) (machine.Value, error) {
			if args.Len() < 1 {
				return nil, errStartArity
			}
			if _, err := sched.Start(args.Index(0)); err != nil {
				return nil, err
			}
			return machine.Nil, nil
		}))

	obj.SetKey(machine.String("run"), machine.NewBuiltin("run",
		func(_ *machine.Thread, _ *machine.Tuple) (machine.Value, error) {
			more, err := sched.Run()
			if err != nil {
				return nil, err
			}
			return machine.Bool(more), nil
		}))

	obj.SetKey(machine.String("runToCompletion"), machine.NewBuiltin("runToCompletion",
		func(_ *machine.Thread, _ *machine.Tuple) (machine.Value, error) {
			if err := sched.RunToCompletion(); err != nil {
				return nil, err
			}
			return machine.Nil, nil
		}))

	obj.Locked = true
	return obj
}

var errStartArity = &arityError{fn: "start", want: "1 argument (a task)"}

type arityError struct {
	fn   string
	want string
}

func (e *arityError) Error() string { return e.fn + "() requires " + e.want }
