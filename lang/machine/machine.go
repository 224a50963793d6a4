// Much of the machine package is adapted from the Starlark source code:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package machine implements the virtual machine that executes the
// bytecode-compiled form of the source code. It also provides the runtime
// representation of the various builtin values.
package machine

import (
	"context"
	"fmt"

	"github.com/lumen-lang/lumen/lang/compiler"
	"github.com/lumen-lang/lumen/lang/token"
)

// pendingKind identifies what a suspended unwind is waiting to resume: a
// function return, a thrown value, or a plain control-flow jump that crosses
// a protected (finally-bearing) region, all of which must detour through
// that region's finally block before taking effect.
type pendingKind int

const (
	pendReturn pendingKind = iota
	pendThrow
	pendJump
)

type pendingUnwind struct {
	kind    pendingKind
	result  Value // pendReturn
	errVal  Value // pendThrow: the value to deliver to an eventual catch
	errProp error // pendThrow: the error to return from run if never caught
	target  uint32
}

// findCatch returns the innermost handler whose catch clause covers pc: pc
// must lie in the handler's protected range and strictly before its own
// CatchPC (an error raised inside the catch block itself is not caught by
// the same handler). Handlers are stored outer-to-inner, so the search scans
// from the end.
func findCatch(handlers []compiler.Handler, pc uint32) (compiler.Handler, bool) {
	for i := len(handlers) - 1; i >= 0; i-- {
		h := handlers[i]
		if h.CatchPC != 0 && h.PC0 <= pc && pc < h.PC1 && pc < h.CatchPC {
			return h, true
		}
	}
	return compiler.Handler{}, false
}

// findFinally returns the innermost handler whose finally block still
// protects pc: pc must lie in the handler's range and strictly before its own
// FinallyPC (control already inside that finally block is not protected by
// it again).
func findFinally(handlers []compiler.Handler, pc uint32) (compiler.Handler, bool) {
	for i := len(handlers) - 1; i >= 0; i-- {
		h := handlers[i]
		if h.FinallyPC != 0 && h.PC0 <= pc && pc < h.FinallyPC {
			return h, true
		}
	}
	return compiler.Handler{}, false
}

func run(th *Thread, fn *Function, args *Tuple) (Value, error) {
	fcode := fn.Funcode
	if th.DisableRecursion {
		// detect recursion
		for _, fr := range th.callStack[:len(th.callStack)-1] {
			// We look for the same function code, not function value, otherwise the
			// user could defeat the check by writing the Y combinator.
			if frfn, ok := fr.callable.(*Function); ok && frfn.Funcode == fcode {
				return nil, fmt.Errorf("function %s called recursively", fn.Name())
			}
		}
	}

	// get the current call frame
	fr := th.callStack[len(th.callStack)-1]

	// create the locals and operand stack, rented from the thread's pool
	nlocals := len(fcode.Locals)
	nspace := nlocals + fcode.MaxStack
	handle := th.pool().Get(nspace)
	defer handle.Release()
	space := handle.Space()
	locals := space[:nlocals:nlocals] // local variables, starting with parameters
	stack := space[nlocals:]          // operand stack

	// digest arguments and set parameters
	if err := setArgs(locals, fn, args); err != nil {
		return nil, err
	}

	// Spill indicated locals to cells. Each cell is a separate alloc to avoid
	// spurious liveness.
	for _, index := range fcode.Cells {
		locals[index] = &cell{locals[index]}
	}

	var iterstack []Iterator // stack of active iterators

	// Use defer so that application panics can pass through interpreter without
	// leaving thread in a bad state.
	defer func() {
		for _, iter := range iterstack {
			iter.Done()
		}
	}()

	var (
		pc           uint32
		result       Value
		inFlightErr  error
		pending      *pendingUnwind
		finallyExits []uint32
	)

	sp := 0
	code := fcode.Code

	// finishReturn resolves a RETURN executed at atPC: it detours through the
	// innermost finally that still protects atPC, or else finalizes the
	// function's result. Reports whether the run loop should stop.
	finishReturn := func(value Value, atPC uint32) bool {
		if h, ok := findFinally(fcode.Handlers, atPC); ok {
			pending = &pendingUnwind{kind: pendReturn, result: value}
			finallyExits = append(finallyExits, h.PC1)
			pc = h.FinallyPC
			return false
		}
		result = value
		return true
	}

	// finishThrow resolves a throw (explicit THROW, or an internal failure)
	// raised at atPC: catch first, then finally, else propagate out of the
	// function. errVal is delivered to a catch clause verbatim; errProp is
	// what run returns if nothing ever catches it.
	finishThrow := func(errVal Value, errProp error, atPC uint32) bool {
		if h, ok := findCatch(fcode.Handlers, atPC); ok {
			sp = 0
			stack[sp] = errVal
			sp++
			pc = h.CatchPC
			return false
		}
		if h, ok := findFinally(fcode.Handlers, atPC); ok {
			pending = &pendingUnwind{kind: pendThrow, errVal: errVal, errProp: errProp}
			finallyExits = append(finallyExits, h.PC1)
			pc = h.FinallyPC
			sp = 0
			return false
		}
		inFlightErr = errProp
		return true
	}

	// finishJump resolves a JMP whose target escapes a finally-protected
	// region it originates in: it detours through that finally first.
	finishJump := func(origPC, target uint32) {
		if h, ok := findFinally(fcode.Handlers, origPC); ok {
			if target < h.PC0 || target >= h.PC1 {
				pending = &pendingUnwind{kind: pendJump, target: target}
				finallyExits = append(finallyExits, h.PC1)
				pc = h.FinallyPC
				sp = 0
				return
			}
		}
		pc = target
	}

loop:
	for {
		th.steps++
		if th.steps >= th.maxSteps {
			th.ctxCancel()
			inFlightErr = fmt.Errorf("thread cancelled: %s", context.Cause(th.ctx))
			break loop
		}
		if th.cancelled.Load() {
			inFlightErr = fmt.Errorf("thread cancelled: %s", context.Cause(th.ctx))
			break loop
		}

		fr.pc = pc

		op := compiler.Opcode(code[pc])
		pc++
		var arg uint32
		if op >= compiler.OpcodeArgMin {
			for s := uint(0); ; s += 7 {
				b := code[pc]
				pc++
				arg |= uint32(b&0x7f) << s
				if b < 0x80 {
					break
				}
			}
		}

		switch op {
		case compiler.NOP:
			// nop

		case compiler.DUP:
			stack[sp] = stack[sp-1]
			sp++

		case compiler.DUP2:
			stack[sp] = stack[sp-2]
			stack[sp+1] = stack[sp-1]
			sp += 2

		case compiler.POP:
			sp--

		case compiler.EXCH:
			stack[sp-2], stack[sp-1] = stack[sp-1], stack[sp-2]

		case compiler.EQL, compiler.NEQ, compiler.GT, compiler.LT, compiler.LE, compiler.GE:
			cmpTok := compareToken(op)
			y := stack[sp-1]
			x := stack[sp-2]
			sp -= 2
			ok, err := Compare(th, cmpTok, x, y)
			if err != nil {
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = Bool(ok)
			sp++

		case compiler.PLUS, compiler.MINUS, compiler.STAR, compiler.SLASH,
			compiler.SLASHSLASH, compiler.PERCENT, compiler.CIRCUMFLEX,
			compiler.AMPERSAND, compiler.PIPE, compiler.TILDE,
			compiler.LTLT, compiler.GTGT:

			binop := binaryToken(op)
			y := stack[sp-1]
			x := stack[sp-2]
			sp -= 2
			z, err := Binary(th, binop, x, y)
			if err != nil {
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = z
			sp++

		case compiler.UPLUS, compiler.UMINUS, compiler.UTILDE:
			unop := unaryToken(op)
			x := stack[sp-1]
			sp--
			y, err := Unary(th, unop, x)
			if err != nil {
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = y
			sp++

		case compiler.NOT:
			stack[sp-1] = !Truth(stack[sp-1])

		case compiler.LEN:
			n := Len(stack[sp-1])
			if n < 0 {
				err := fmt.Errorf("%s value has no length", stack[sp-1].Type())
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp-1] = Float(n)

		case compiler.NIL:
			stack[sp] = Nil
			sp++

		case compiler.TRUE:
			stack[sp] = True
			sp++

		case compiler.FALSE:
			stack[sp] = False
			sp++

		case compiler.JMP:
			if len(finallyExits) > 0 && arg == finallyExits[len(finallyExits)-1] {
				finallyExits = finallyExits[:len(finallyExits)-1]
				if pending == nil {
					pc = arg
					break
				}
				p := pending
				pending = nil
				var done bool
				switch p.kind {
				case pendReturn:
					done = finishReturn(p.result, arg)
				case pendThrow:
					done = finishThrow(p.errVal, p.errProp, arg)
				case pendJump:
					finishJump(arg, p.target)
				}
				if done {
					break loop
				}
				break
			}
			finishJump(fr.pc, arg)

		case compiler.CALL, compiler.CALL_VAR:
			npos := int(arg >> 8)
			var spread Value
			if op == compiler.CALL_VAR {
				spread = stack[sp-1]
				sp--
			}

			var positional []Value
			if npos > 0 {
				positional = append([]Value(nil), stack[sp-npos:sp]...)
				sp -= npos
			}
			if spread != nil {
				iter := Iterate(spread)
				if iter == nil {
					err := fmt.Errorf("%s value is not iterable", spread.Type())
					if finishThrow(classifyError(err), err, fr.pc) {
						break loop
					}
					break
				}
				var v Value
				for iter.Next(&v) {
					positional = append(positional, v)
				}
				iter.Done()
			}

			function := stack[sp-1]
			sp--

			argsTup := NilaryTuple
			if len(positional) > 0 {
				argsTup = NewTuple(positional)
			}
			z, err := Call(th, function, argsTup)
			if err != nil {
				if finishThrow(thrownValue(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = z
			sp++

		case compiler.CALL_TAIL:
			// A true stackless tail call would require rebuilding this frame in
			// place; instead this behaves like CALL immediately followed by
			// RETURN, preserving external semantics (the function still cancels
			// and replaces the caller's result) without eliding the Go call
			// stack frame.
			npos := int(arg >> 8)
			var positional []Value
			if npos > 0 {
				positional = append([]Value(nil), stack[sp-npos:sp]...)
				sp -= npos
			}
			function := stack[sp-1]
			sp--

			argsTup := NilaryTuple
			if len(positional) > 0 {
				argsTup = NewTuple(positional)
			}
			z, err := Call(th, function, argsTup)
			if err != nil {
				if finishThrow(thrownValue(err), err, fr.pc) {
					break loop
				}
				break
			}
			if finishReturn(z, fr.pc) {
				break loop
			}

		case compiler.ITERPUSH:
			x := stack[sp-1]
			sp--
			iter := Iterate(x)
			if iter == nil {
				err := fmt.Errorf("%s value is not iterable", x.Type())
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			iterstack = append(iterstack, iter)

		case compiler.ITERJMP:
			iter := iterstack[len(iterstack)-1]
			if iter.Next(&stack[sp]) {
				sp++
			} else {
				pc = arg
			}

		case compiler.ITERPOP:
			n := len(iterstack) - 1
			iterstack[n].Done()
			iterstack = iterstack[:n]

		case compiler.RETURN:
			value := stack[sp-1]
			sp--
			if finishReturn(value, fr.pc) {
				break loop
			}

		case compiler.THROW:
			val := stack[sp-1]
			sp--
			propErr := fmt.Errorf("uncaught exception: %s", val.String())
			if finishThrow(val, propErr, fr.pc) {
				break loop
			}

		case compiler.SEQSUSPEND:
			val := stack[sp-1]
			sp--
			th.gen.yieldCh <- generatorSignal{value: val}
			sent, ok := <-th.gen.resumeCh
			if !ok {
				sent = Nil
			}
			th.gen.pendingSent = sent

		case compiler.SEQRESUME:
			stack[sp] = th.gen.pendingSent
			sp++

		case compiler.MAKEMAP:
			n := int(arg)
			obj := NewObject()
			base := sp - 2*n
			for i := 0; i < n; i++ {
				k := stack[base+2*i]
				v := stack[base+2*i+1]
				obj.SetKey(k, v) //nolint:errcheck // a freshly built object is never locked
			}
			sp = base
			stack[sp] = obj
			sp++

		case compiler.UNPACK:
			n := int(arg)
			iterable := stack[sp-1]
			sp--

			iter := Iterate(iterable)
			if iter == nil {
				err := fmt.Errorf("%s value is not iterable", iterable.Type())
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			vals := make([]Value, 0, n)
			var v Value
			for len(vals) < n && iter.Next(&v) {
				vals = append(vals, v)
			}
			iter.Done()
			for len(vals) < n {
				vals = append(vals, Nil)
			}
			for i := len(vals) - 1; i >= 0; i-- {
				stack[sp] = vals[i]
				sp++
			}

		case compiler.CJMP:
			if Truth(stack[sp-1]) {
				pc = arg
			}
			sp--

		case compiler.CONSTANT:
			stack[sp] = fn.Module.Constants[arg]
			sp++

		case compiler.MAKETUPLE:
			n := int(arg)
			elems := make([]Value, n)
			sp -= n
			copy(elems, stack[sp:])
			stack[sp] = NewTuple(elems)
			sp++

		case compiler.MAKEARRAY:
			n := int(arg)
			elems := make([]Value, n)
			sp -= n
			copy(elems, stack[sp:])
			stack[sp] = NewArray(elems)
			sp++

		case compiler.MAKEFUNC:
			funcode := fn.Module.Program.Functions[arg]
			freevars := stack[sp-1].(*Tuple) // ok to panic otherwise, compiler error
			stack[sp-1] = &Function{
				Funcode:  funcode,
				Module:   fn.Module,
				Freevars: freevars,
			}

		case compiler.LOAD:
			m := stack[sp-1]
			sp--

			if th.Load == nil {
				err := fmt.Errorf("load not implemented by this application")
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}

			s, ok := m.(String)
			if !ok {
				err := fmt.Errorf("attempt to load non-string module: %s", m.Type())
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}

			v, err := th.Load(th, string(s))
			if err != nil {
				werr := fmt.Errorf("cannot load %s: %w", s, err)
				if finishThrow(classifyError(werr), werr, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = v
			sp++

		case compiler.SETINDEX:
			z := stack[sp-1]
			y := stack[sp-2]
			x := stack[sp-3]
			sp -= 3
			if err := setIndex(th, x, y, z); err != nil {
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}

		case compiler.INDEX:
			y := stack[sp-1]
			x := stack[sp-2]
			sp -= 2
			z, err := getIndex(th, x, y)
			if err != nil {
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = z
			sp++

		case compiler.APPEND:
			elem := stack[sp-1]
			list := stack[sp-2]
			sp -= 2
			a, ok := list.(*Array)
			if !ok {
				err := fmt.Errorf("cannot append to %s value", list.Type())
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			a.Append(elem)

		case compiler.SLICE:
			step := stack[sp-1]
			hi := stack[sp-2]
			lo := stack[sp-3]
			x := stack[sp-4]
			sp -= 4
			z, err := doSlice(x, lo, hi, step)
			if err != nil {
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = z
			sp++

		case compiler.ATTR:
			x := stack[sp-1]
			sp--
			name := fn.Module.Program.Names[arg]
			y, err := getAttr(x, name)
			if err != nil {
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = y
			sp++

		case compiler.SETFIELD:
			y := stack[sp-1]
			x := stack[sp-2]
			sp -= 2
			name := fn.Module.Program.Names[arg]
			if err := setField(x, name, y); err != nil {
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}

		case compiler.SETMAP:
			m := stack[sp-3].(*Object) // ok to panic otherwise, compiler error (map literals only)
			k := stack[sp-2]
			v := stack[sp-1]
			sp -= 3
			if err := m.SetKey(k, v); err != nil {
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}

		case compiler.SETLOCAL:
			locals[arg] = stack[sp-1]
			sp--

		case compiler.SETLOCALCELL:
			locals[arg].(*cell).v = stack[sp-1] // ok to panic otherwise, compiler error
			sp--

		case compiler.LOCAL:
			x := locals[arg]
			if x == nil {
				err := fmt.Errorf("local variable %s referenced before assignment", fcode.Locals[arg].Name)
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = x
			sp++

		case compiler.FREE:
			stack[sp] = fn.Freevars.Index(int(arg))
			sp++

		case compiler.LOCALCELL:
			v := locals[arg].(*cell).v // ok to panic otherwise, compiler error
			if v == nil {
				err := fmt.Errorf("local variable %s referenced before assignment", fcode.Locals[arg].Name)
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = v
			sp++

		case compiler.FREECELL:
			v := fn.Freevars.Index(int(arg)).(*cell).v // ok to panic otherwise, compiler error
			if v == nil {
				err := fmt.Errorf("free variable %s referenced before assignment", fcode.Freevars[arg].Name)
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = v
			sp++

		case compiler.LOCALREF:
			stack[sp] = locals[arg].(*cell) // ok to panic otherwise, compiler error
			sp++

		case compiler.NEWCELL:
			locals[arg] = &cell{}

		case compiler.SETFREECELL:
			fn.Freevars.Index(int(arg)).(*cell).v = stack[sp-1] // ok to panic otherwise, compiler error
			sp--

		case compiler.PREDECLARED:
			name := fn.Module.Program.Names[arg]
			x := th.Predeclared[name]
			if x == nil {
				err := fmt.Errorf("internal error: predeclared variable %s is uninitialized", name)
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = x
			sp++

		case compiler.UNIVERSAL:
			name := fn.Module.Program.Names[arg]
			x := Universe[name]
			if x == nil {
				err := fmt.Errorf("internal error: universal variable %s is uninitialized", name)
				if finishThrow(classifyError(err), err, fr.pc) {
					break loop
				}
				break
			}
			stack[sp] = x
			sp++

		case compiler.GLOBAL:
			name := fn.Module.Program.Names[arg]
			v, _, _ := th.Globals.Get(String(name))
			if v == nil {
				v = Nil
			}
			stack[sp] = v
			sp++

		case compiler.SETGLOBAL:
			name := fn.Module.Program.Names[arg]
			v := stack[sp-1]
			sp--
			th.Globals.SetKey(String(name), v) //nolint:errcheck // the global object is never locked

		default:
			panic(fmt.Sprintf("unimplemented: %s", op))
		}
	}

	return result, inFlightErr
}

// compareToken maps a comparison Opcode back to the token it was compiled
// from. The two enums share names but not a common order, so this is an
// explicit table, mirroring lang/compiler's binOpcode in reverse.
func compareToken(op compiler.Opcode) token.Token {
	switch op {
	case compiler.LT:
		return token.LT
	case compiler.LE:
		return token.LE
	case compiler.GT:
		return token.GT
	case compiler.GE:
		return token.GE
	case compiler.EQL:
		return token.EQL
	case compiler.NEQ:
		return token.NEQ
	}
	panic(fmt.Sprintf("not a comparison opcode: %s", op))
}

func binaryToken(op compiler.Opcode) token.Token {
	switch op {
	case compiler.PLUS:
		return token.PLUS
	case compiler.MINUS:
		return token.MINUS
	case compiler.STAR:
		return token.STAR
	case compiler.SLASH:
		return token.SLASH
	case compiler.SLASHSLASH:
		return token.SLASHSLASH
	case compiler.PERCENT:
		return token.PERCENT
	case compiler.CIRCUMFLEX:
		return token.CIRCUMFLEX
	case compiler.AMPERSAND:
		return token.AMPERSAND
	case compiler.PIPE:
		return token.PIPE
	case compiler.TILDE:
		return token.TILDE
	case compiler.LTLT:
		return token.LTLT
	case compiler.GTGT:
		return token.GTGT
	}
	panic(fmt.Sprintf("not a binary opcode: %s", op))
}

func unaryToken(op compiler.Opcode) token.Token {
	switch op {
	case compiler.UPLUS:
		return token.PLUS
	case compiler.UMINUS:
		return token.MINUS
	case compiler.UTILDE:
		return token.TILDE
	}
	panic(fmt.Sprintf("not a unary opcode: %s", op))
}

// doSlice implements the SLICE opcode: x must be Sliceable, lo/hi/step must
// be Number values (or Nil for lo/hi/step's respective defaults, which
// doSlice and sliceBound fill in).
func doSlice(x, lo, hi, step Value) (Value, error) {
	s, ok := x.(Sliceable)
	if !ok {
		return nil, fmt.Errorf("%s value is not sliceable", x.Type())
	}
	stepN := 1
	if step != Nil {
		n, err := nonNegIndexAllowNegative(step)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("slice step cannot be zero")
		}
		stepN = n
	}
	n := s.Len()
	loN, err := sliceBound(lo, 0, n, stepN)
	if err != nil {
		return nil, err
	}
	hiN, err := sliceBound(hi, n, n, stepN)
	if err != nil {
		return nil, err
	}
	return s.Slice(loN, hiN, stepN), nil
}

func sliceBound(v Value, dflt, n, step int) (int, error) {
	if v == Nil {
		if step < 0 {
			if dflt == 0 {
				return n - 1, nil
			}
			return -1, nil
		}
		return dflt, nil
	}
	i, err := nonNegIndexAllowNegative(v)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i += n
	}
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i, nil
}

func nonNegIndexAllowNegative(v Value) (int, error) {
	f, ok := v.(Float)
	if !ok {
		return 0, fmt.Errorf("slice index must be a number, got %s", v.Type())
	}
	i, err := exactInt(f)
	if err != nil {
		return 0, err
	}
	return int(i), nil
}

// setArgs sets the values of the formal parameters of function fn based on
// the actual parameter values in args.
func setArgs(locals []Value, fn *Function, args *Tuple) error {
	nparams := fn.Funcode.NumParams
	nargs := args.Len()

	if nparams == 0 {
		if nargs > 0 {
			return fmt.Errorf("function %s accepts no arguments (%d given)", fn.Name(), nargs)
		}
		return nil
	}

	if fn.Funcode.HasVarargs {
		nparams--
	} else if nargs > nparams {
		return fmt.Errorf("function %s accepts at most %d arguments (%d given)", fn.Name(), nparams, nargs)
	}

	for i := 0; i < nparams && i < nargs; i++ {
		locals[i] = args.Index(i)
	}
	for i := nargs; i < nparams; i++ {
		locals[i] = Nil
	}

	if fn.Funcode.HasVarargs {
		var elems []Value
		if nargs > nparams {
			elems = make([]Value, nargs-nparams)
			for i := nparams; i < nargs; i++ {
				elems[i-nparams] = args.Index(i)
			}
		}
		locals[nparams] = NewArray(elems)
	}
	return nil
}
