package machine

import "fmt"

type generatorState int

const (
	genInitial generatorState = iota
	genSuspended
	genRunning
	genCompleted
	genErrored
)

func (s generatorState) String() string {
	switch s {
	case genInitial:
		return "initial"
	case genSuspended:
		return "suspended"
	case genRunning:
		return "running"
	case genCompleted:
		return "completed"
	case genErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Generator is the runtime instance created by calling a function declared
// with "seq" rather than "fun"; it is the Value-model counterpart of the
// spec's generator/sequence concept (named Generator here, not Sequence, to
// avoid colliding with the pre-existing Sequence interface in value.go,
// which names known-length iterables).
//
// Go has no stackful coroutines, so a Generator's call frame runs on a
// dedicated goroutine that blocks on a channel at every SEQSUSPEND; MoveNext
// hands it a value and waits for the next suspension or completion. The
// frame's buffer is rented from the Pool like any call's, but it is only
// released when the generator's frame finishes, so it is held across every
// MoveNext in between.
type Generator struct {
	fn   *Function
	args *Tuple
	th   *Thread // template thread the generator was created from

	state       generatorState
	lastYielded Value
	pendingSent Value // value handed in by the most recent MoveNext, read by SEQRESUME
	err         error
	started     bool

	resumeCh chan Value
	yieldCh  chan generatorSignal
}

type generatorSignal struct {
	value Value
	err   error
	done  bool
}

var (
	_ Value    = (*Generator)(nil)
	_ Iterable = (*Generator)(nil)
	_ HasAttrs = (*Generator)(nil)
)

func newGenerator(th *Thread, fn *Function, args *Tuple) *Generator {
	return &Generator{fn: fn, args: args, th: th, state: genInitial}
}

func (g *Generator) String() string { return fmt.Sprintf("sequence(%p)", g) }
func (g *Generator) Type() string   { return "sequence" }

func (g *Generator) AttrNames() []string {
	return []string{"moveNext", "current", "getEnumerator"}
}

func (g *Generator) Attr(name string) (Value, error) {
	switch name {
	case "moveNext", "getEnumerator":
		return &generatorMethod{gen: g, name: name}, nil
	case "current":
		if g.lastYielded == nil {
			return Nil, nil
		}
		return g.lastYielded, nil
	}
	return nil, nil
}

// generatorMethod is the Callable bound to a Generator's native method
// attributes (moveNext, getEnumerator).
type generatorMethod struct {
	gen  *Generator
	name string
}

var _ Callable = (*generatorMethod)(nil)

func (m *generatorMethod) String() string {
	return fmt.Sprintf("<built-in method %s of sequence>", m.name)
}
func (m *generatorMethod) Type() string { return "builtin_function" }
func (m *generatorMethod) Name() string { return m.name }

func (m *generatorMethod) CallInternal(th *Thread, args *Tuple) (Value, error) {
	switch m.name {
	case "moveNext":
		sent := Value(Nil)
		if args.Len() > 0 {
			sent = args.Index(0)
		}
		ok, err := m.gen.MoveNext(sent)
		if err != nil {
			return nil, err
		}
		return Bool(ok), nil
	case "getEnumerator":
		return m.gen, nil
	}
	return nil, fmt.Errorf("unknown sequence method %s", m.name)
}

// MoveNext resumes the generator, starting it on the first call, and runs it
// until its next SEQSUSPEND or completion. It reports whether a value was
// produced; false means the generator is exhausted.
func (g *Generator) MoveNext(sent Value) (bool, error) {
	switch g.state {
	case genCompleted:
		return false, nil
	case genErrored:
		return false, g.err
	case genRunning:
		return false, fmt.Errorf("sequence is already running")
	}

	if !g.started {
		g.started = true
		g.state = genRunning
		g.resumeCh = make(chan Value)
		g.yieldCh = make(chan generatorSignal)

		seqTh := &Thread{
			Name:              g.th.Name + ":seq",
			Stdout:            g.th.Stdout,
			Stderr:            g.th.Stderr,
			Stdin:             g.th.Stdin,
			MaxSteps:          g.th.MaxSteps,
			DisableRecursion:  g.th.DisableRecursion,
			MaxCallStackDepth: g.th.MaxCallStackDepth,
			Load:              g.th.Load,
			Predeclared:       g.th.Predeclared,
			Globals:           g.th.Globals,
			Pool:              g.th.Pool,
		}
		seqTh.init()
		seqTh.gen = g

		go func() {
			defer func() {
				if r := recover(); r != nil {
					g.yieldCh <- generatorSignal{err: fmt.Errorf("sequence panicked: %v", r), done: true}
				}
			}()
			// run reads its frame off the top of the call stack, as Call would have
			// left it; a generator's frame is pushed here directly instead, since it
			// must stay in place for the generator's whole lifetime (many MoveNext
			// calls), not be popped when a single call returns.
			seqTh.callStack = append(seqTh.callStack, &Frame{callable: g.fn})
			result, err := run(seqTh, g.fn, g.args)
			if err != nil {
				g.yieldCh <- generatorSignal{err: err, done: true}
				return
			}
			g.yieldCh <- generatorSignal{value: result, done: true}
		}()
	} else {
		g.state = genRunning
		g.resumeCh <- sent
	}

	sig := <-g.yieldCh
	if sig.done {
		if sig.err != nil {
			g.state = genErrored
			g.err = sig.err
			return false, sig.err
		}
		g.state = genCompleted
		g.lastYielded = sig.value
		return false, nil
	}
	g.state = genSuspended
	g.lastYielded = sig.value
	return true, nil
}

func (g *Generator) Iterate() Iterator { return &generatorIterator{gen: g} }

type generatorIterator struct{ gen *Generator }

func (it *generatorIterator) Next(p *Value) bool {
	ok, err := it.gen.MoveNext(Nil)
	if err != nil || !ok {
		return false
	}
	*p = it.gen.lastYielded
	return true
}

func (*generatorIterator) Done() {}
