package machine

import "fmt"

// RuntimeError is the catch-all Value for a VM failure that is neither a
// type mismatch nor a host-function failure: stack overflow, division by
// zero, an unsupported opcode for an otherwise well-typed operand pair, and
// any other failure surfaced by the machine package itself. CompileError
// has no counterpart here: parse and resolve diagnostics are surfaced to
// the embedder as *scanner.Error/*scanner.ErrorList before a Program ever
// exists, and are never thrown from the VM.
type RuntimeError struct {
	Message string
	cause   error
}

var (
	_ Value    = (*RuntimeError)(nil)
	_ HasAttrs = (*RuntimeError)(nil)
)

func newRuntimeError(err error) *RuntimeError { return &RuntimeError{Message: err.Error(), cause: err} }

func (e *RuntimeError) String() string { return fmt.Sprintf("runtime error: %s", e.Message) }
func (e *RuntimeError) Type() string   { return "error" }

func (e *RuntimeError) Attr(name string) (Value, error) {
	if name == "message" {
		return String(e.Message), nil
	}
	return nil, nil
}

func (e *RuntimeError) AttrNames() []string { return []string{"message"} }

func (e *RuntimeError) Error() string { return e.Message }
func (e *RuntimeError) Unwrap() error { return e.cause }

// TypeError is the Value thrown for an operation applied to value tags it
// does not support: comparing incompatible types, indexing a non-indexable
// value, calling a non-function, and the like. See errType in ops.go for
// the call sites that raise it.
type TypeError struct {
	Message string
	cause   error
}

var (
	_ Value    = (*TypeError)(nil)
	_ HasAttrs = (*TypeError)(nil)
)

func newTypeError(err error) *TypeError { return &TypeError{Message: err.Error(), cause: err} }

func (e *TypeError) String() string { return fmt.Sprintf("type error: %s", e.Message) }
func (e *TypeError) Type() string   { return "error" }

func (e *TypeError) Attr(name string) (Value, error) {
	if name == "message" {
		return String(e.Message), nil
	}
	return nil, nil
}

func (e *TypeError) AttrNames() []string { return []string{"message"} }

func (e *TypeError) Error() string { return e.Message }
func (e *TypeError) Unwrap() error { return e.cause }

// HostError is the Value thrown when a Builtin's native Go closure returns
// a plain error rather than raising a script value via scriptError: a
// failed syscall, a malformed argument the host validated itself, an I/O
// failure in an async task, and so on. Unwrap returns the original error
// the host function produced, so Go-side callers of RunProgram can still
// errors.As/errors.Is past the boxing.
type HostError struct {
	Message string
	cause   error
}

var (
	_ Value    = (*HostError)(nil)
	_ HasAttrs = (*HostError)(nil)
)

func newHostError(err error) *HostError {
	// Unwrap the hostCallError marker itself so Attr/Error report the
	// underlying failure's message, not the marker's.
	cause := err
	if hce, ok := err.(*hostCallError); ok {
		cause = hce.cause
	}
	return &HostError{Message: cause.Error(), cause: cause}
}

func (e *HostError) String() string { return fmt.Sprintf("host error: %s", e.Message) }
func (e *HostError) Type() string   { return "error" }

func (e *HostError) Attr(name string) (Value, error) {
	if name == "message" {
		return String(e.Message), nil
	}
	return nil, nil
}

func (e *HostError) AttrNames() []string { return []string{"message"} }

func (e *HostError) Error() string { return e.Message }
func (e *HostError) Unwrap() error { return e.cause }

// classifyError picks the catchable error Value for a propagating Go error,
// based on the dynamic type of its outermost marker. err is never rewrapped
// with fmt.Errorf("%w", ...) as it crosses frames (finishThrow/Call just
// pass it through), so the marker type set on the error at its origin
// (errType in ops.go, wrapHostError in builtin.go) survives unchanged to
// wherever classifyError is finally called.
func classifyError(err error) Value {
	switch err.(type) {
	case *typeMismatchError:
		return newTypeError(err)
	case *hostCallError:
		return newHostError(err)
	default:
		return newRuntimeError(err)
	}
}
