package machine

import "fmt"

// A Builtin is a Callable value backed by a Go function, used to expose host
// and standard-library functionality to scripts (see lang/async for the
// scheduler's start/run/runToCompletion methods, and the predeclared error
// function below).
type Builtin struct {
	name string
	fn   func(th *Thread, args *Tuple) (Value, error)
}

var _ Callable = (*Builtin)(nil)

// NewBuiltin returns a Callable wrapping fn under the given name.
func NewBuiltin(name string, fn func(th *Thread, args *Tuple) (Value, error)) *Builtin {
	return &Builtin{name: name, fn: fn}
}

func (b *Builtin) String() string { return fmt.Sprintf("<built-in function %s>", b.name) }
func (b *Builtin) Type() string    { return "builtin_function" }
func (b *Builtin) Name() string    { return b.name }

func (b *Builtin) CallInternal(th *Thread, args *Tuple) (Value, error) {
	v, err := b.fn(th, args)
	if err == nil {
		return v, nil
	}
	return v, wrapHostError(err)
}

// scriptError wraps a Value raised by a native function so that it is
// thrown verbatim to the nearest catch handler, the same way a throw
// statement's operand is, rather than being boxed in a RuntimeError. The
// predeclared error() function (see ErrorBuiltin) uses this so that
// error("x") and throw "x" are indistinguishable to a catch clause.
type scriptError struct{ val Value }

func (e *scriptError) Error() string { return e.val.String() }

// hostCallError marks a plain Go error returned by a Builtin's native
// closure as originating on the host side of the boundary, so the VM
// classifies it as a HostError value instead of a generic RuntimeError. It
// wraps (and unwraps to) the original error, preserving the cause chain.
type hostCallError struct{ cause error }

func (e *hostCallError) Error() string { return e.cause.Error() }
func (e *hostCallError) Unwrap() error { return e.cause }

// wrapHostError marks err as host-originated unless it is already a
// scriptError (a script-level throw, not a host failure) or already carries
// its own classification (e.g. a type mismatch detected inside the
// closure), in which case it is returned unchanged.
func wrapHostError(err error) error {
	switch err.(type) {
	case *scriptError, *hostCallError, *typeMismatchError:
		return err
	default:
		return &hostCallError{cause: err}
	}
}

// thrownValue returns the Value a CALL opcode pushes to a catch handler for
// a native function's reported error: the wrapped value itself for a
// scriptError, or the classified error value for any other host-level
// failure.
func thrownValue(err error) Value {
	if se, ok := err.(*scriptError); ok {
		return se.val
	}
	return classifyError(err)
}

// ErrorBuiltin is the predeclared error(value) function: calling it raises
// value to the nearest catch handler exactly as "throw value" would. It
// exists as a callable alongside the throw statement because some
// expression contexts (e.g. the right side of an "or") can only hold an
// expression, not a statement.
var ErrorBuiltin = NewBuiltin("error", func(th *Thread, args *Tuple) (Value, error) {
	var val Value = Nil
	if args.Len() > 0 {
		val = args.Index(0)
	}
	return nil, &scriptError{val: val}
})
