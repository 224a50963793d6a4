package machine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/lumen-lang/lumen/lang/compiler"
)

type Thread struct {
	// Name is an optional name that describes the thread, mostly for debugging.
	Name string

	// Stdout, Stderr and Stdin are the standard I/O abstractions for the thread.
	// If nil, os.Stdout, os.Stderr and os.Stdin are used, respectively.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxSteps is the maximum number of "steps", a deliberately unspecified
	// measure of machine execution time, before the thread is cancelled. A value
	// <= 0 means no limit.
	MaxSteps int

	// DisableRecursion prevents recursive execution of functions when set to
	// true. It incurs a small performance cost for the runtime verification on
	// each function call but can be a useful safety check when executing
	// untrusted code. If a recursive call is detected when set to true, the
	// thread is cancelled.
	DisableRecursion bool

	// MaxCallStackDepth limits the number of nested function calls. If the limit
	// is reached, the thread is cancelled. A value <= 0 means no limit.
	MaxCallStackDepth int

	// Load is an optional function value to call to load modules (called by the
	// LOAD opcode).
	Load func(*Thread, string) (Value, error)

	// Predeclared is the set of predeclared identifiers and their assigned
	// values. Predeclared identifiers are like the Universe identifiers in that
	// they are available to all modules automatically and they cannot be
	// assigned to.
	Predeclared map[string]Value

	// Globals is the single global object shared by every frame running on this
	// thread, read and written by the GLOBAL and SETGLOBAL opcodes. Writes
	// persist across calls for the lifetime of the thread.
	Globals *Object

	// Pool rents frame locals/operand-stack buffers for calls running on this
	// thread. If nil, DefaultPool is used.
	Pool *Pool

	ctx       context.Context
	ctxCancel func()
	callStack []*Frame
	cancelled atomic.Bool

	// gen is set on a thread dedicated to running a single generator's frame;
	// SEQSUSPEND and SEQRESUME use it to park and resume that frame. Nil on an
	// ordinary thread.
	gen *Generator

	steps, maxSteps uint64

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

func (th *Thread) RunProgram(ctx context.Context, p *compiler.Program) (Value, error) {
	if th.ctx != nil {
		return nil, fmt.Errorf("thread %s is already executing a program", th.Name)
	}

	th.init()

	ctx, cancel := context.WithCancel(ctx)
	th.ctx = ctx
	th.ctxCancel = cancel
	topfn := makeToplevelFunction(p)
	return Call(th, topfn, nil)
}

func (th *Thread) init() {
	if th.Globals == nil {
		th.Globals = NewObject()
	}
	if th.MaxSteps <= 0 {
		th.maxSteps-- // (MaxUint64)
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	if th.Stderr != nil {
		th.stderr = th.Stderr
	} else {
		th.stderr = os.Stderr
	}
	if th.Stdin != nil {
		th.stdin = th.Stdin
	} else {
		th.stdin = os.Stdin
	}
	if th.ctx == nil {
		th.ctx = context.Background()
		th.ctxCancel = func() {}
	} else {
		go func() {
			<-th.ctx.Done()
			th.cancelled.Store(true)
		}()
	}
}

// pool returns the effective frame-buffer pool for this thread.
func (th *Thread) pool() *Pool {
	if th.Pool != nil {
		return th.Pool
	}
	return DefaultPool
}

// maxCallStackDepth returns the effective call stack depth limit, treating a
// non-positive MaxCallStackDepth as unlimited.
func (th *Thread) maxCallStackDepth() int {
	if th.MaxCallStackDepth <= 0 {
		return int(^uint(0) >> 1)
	}
	return th.MaxCallStackDepth
}

func makeToplevelFunction(p *compiler.Program) *Function {
	// create the value denoted by each program constant; the language has a
	// single Number tag, so both integer and float literals collapse to Float.
	constants := make([]Value, len(p.Constants))
	for i, c := range p.Constants {
		var v Value
		switch c := c.(type) {
		case int64:
			v = Float(c)
		case float64:
			v = Float(c)
		case string:
			v = String(c)
		default:
			panic(fmt.Sprintf("unexpected constant %T: %[1]v", c))
		}
		constants[i] = v
	}

	return &Function{
		Funcode: p.Toplevel,
		Module: &Module{
			Program:   p,
			Constants: constants,
		},
	}
}
