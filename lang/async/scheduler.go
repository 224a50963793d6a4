// Package async implements the single-threaded cooperative scheduler that
// drives sequence-backed tasks: start(task) begins a task, run() pumps the
// ready queue once, and runToCompletion() pumps run() to quiescence. See
// NewPredeclared for the object exposed to scripts as the predeclared
// "async" identifier.
package async

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/lumen-lang/lumen/lang/machine"
)

// Task is one unit of cooperative work: an enumerator object (anything
// exposing moveNext/current through HasAttrs, the shape a seq function's
// return value has) driven one step at a time by a Scheduler's ready queue.
// The ID is assigned on Start so a failed task can be named in a chained
// error without depending on the enumerator having any identity of its own.
type Task struct {
	ID uuid.UUID

	enumerator machine.Value
	moveNext   machine.Callable
	done       bool
}

// Scheduler is a single-threaded cooperative pump over a ready queue of
// task continuations. It is grounded on gad-lang/gad's vmPool.mu pattern
// (a mutex guarding a pool/queue a single VM owns but that other goroutines
// may touch): ready, active and errs are guarded by mu because Enqueue is
// the thread-safe entry point a host I/O callback uses to wake a task
// blocked on an external completion, while Start/Run/RunToCompletion are
// only ever called from the scheduler's owning thread.
type Scheduler struct {
	th *machine.Thread

	mu     sync.Mutex
	ready  []*Task
	active int
	errs   []error
}

// NewScheduler returns a Scheduler that calls task methods (moveNext,
// getEnumerator) on th.
func NewScheduler(th *machine.Thread) *Scheduler {
	return &Scheduler{th: th}
}

// Start accepts a value that is either a function (invoked to obtain an
// enumerator) or an object exposing getEnumerator, increments the active
// task counter, and schedules the task's first step.
func (s *Scheduler) Start(task machine.Value) (*Task, error) {
	enum, err := enumeratorOf(s.th, task)
	if err != nil {
		return nil, err
	}
	moveNext, err := methodOf(enum, "moveNext")
	if err != nil {
		return nil, err
	}

	t := &Task{ID: uuid.New(), enumerator: enum, moveNext: moveNext}
	s.mu.Lock()
	s.active++
	s.ready = append(s.ready, t)
	s.mu.Unlock()
	return t, nil
}

// Enqueue schedules an already-started task's next step. It is safe to call
// from any goroutine, so that host I/O callbacks can wake a task blocked on
// an external completion without synchronizing with the scheduler's own
// thread beyond this call.
func (s *Scheduler) Enqueue(t *Task) {
	s.mu.Lock()
	s.ready = append(s.ready, t)
	s.mu.Unlock()
}

// Run drains the ready queue once: every task ready at the instant Run is
// called advances exactly one step, in enqueue order. A task that yields
// again re-enqueues itself for a later Run, not this one. If the error
// queue is non-empty, the oldest failure is popped and returned, wrapped
// with the failing task's id as its chain (%w preserves the underlying
// error for errors.Is/As). Run reports whether any task remains active or
// any error remains queued, regardless of whether it returned one itself.
func (s *Scheduler) Run() (bool, error) {
	s.mu.Lock()
	batch := s.ready
	s.ready = nil
	s.mu.Unlock()

	for _, t := range batch {
		if t.done {
			continue
		}
		more, err := t.moveNext.CallInternal(s.th, machine.NilaryTuple)
		if err != nil {
			t.done = true
			s.mu.Lock()
			s.active--
			s.errs = append(s.errs, fmt.Errorf("task %s: %w", t.ID, err))
			s.mu.Unlock()
			continue
		}
		if cont, ok := more.(machine.Bool); ok && bool(cont) {
			s.Enqueue(t)
			continue
		}
		t.done = true
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return s.active > 0 || len(s.errs) > 0, err
	}
	return s.active > 0, nil
}

// RunToCompletion pumps Run until no active tasks and no queued errors
// remain, or until Run reports an error, which it returns at once (any
// further queued errors stay queued for a later Run). It yields between pumps (runtime.Gosched, not a sleep) so
// a task waiting on external I/O does not turn this into a busy spin.
func (s *Scheduler) RunToCompletion() error {
	for {
		more, err := s.Run()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		runtime.Gosched()
	}
}

// enumeratorOf resolves task to the enumerator object whose moveNext steps
// it, per the two accepted shapes: a callable invoked to produce one (a seq
// function), or an object exposing a callable getEnumerator attribute.
func enumeratorOf(th *machine.Thread, task machine.Value) (machine.Value, error) {
	if callable, ok := task.(machine.Callable); ok {
		return machine.Call(th, callable, machine.NilaryTuple)
	}
	if attrs, ok := task.(machine.HasAttrs); ok {
		if getEnumerator, err := attrs.Attr("getEnumerator"); err == nil && getEnumerator != nil {
			if c, ok := getEnumerator.(machine.Callable); ok {
				return machine.Call(th, c, machine.NilaryTuple)
			}
		}
	}
	return nil, fmt.Errorf("async: %s value is not a task (want a function or an object exposing getEnumerator)", task.Type())
}

func methodOf(v machine.Value, name string) (machine.Callable, error) {
	attrs, ok := v.(machine.HasAttrs)
	if !ok {
		return nil, fmt.Errorf("async: %s value has no %s method", v.Type(), name)
	}
	m, err := attrs.Attr(name)
	if err != nil {
		return nil, err
	}
	c, ok := m.(machine.Callable)
	if !ok {
		return nil, fmt.Errorf("async: %s value's %s attribute is not callable", v.Type(), name)
	}
	return c, nil
}
