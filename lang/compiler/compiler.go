// Much of the compiler package is adapted from the Starlark source code:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compiler takes a parsed and resolved AST and compiles it to bytecode
// that can be executed by the virtual machine. It also provides a
// pseudo-assembly serialization and deserialization to encode in textual form
// a program that closely matches the binary format of the compiled form.
package compiler

import (
	"context"
	"fmt"

	"github.com/lumen-lang/lumen/lang/ast"
	"github.com/lumen-lang/lumen/lang/resolver"
	"github.com/lumen-lang/lumen/lang/token"
)

// CompileFiles takes the file set and corresponding list of chunks from
// a successful resolve result and compiles the AST to bytecode.
//
// An AST that resulted in errors in the resolve phase should never be
// passed to the compiler, the behavior is undefined.
//
// Compiling files does not return an error as a valid resolved AST
// should always generate a valid, executable compiled program.
func CompileFiles(_ context.Context, fset *token.FileSet, chunks []*ast.Chunk) []*Program {
	if len(chunks) == 0 {
		return nil
	}

	progs := make([]*Program, len(chunks))
	for i, ch := range chunks {
		start, _ := ch.Span()
		file := fset.File(start)
		pcomp := &pcomp{
			prog: &Program{
				Filename: file.Name(),
			},
			names:     make(map[string]uint32),
			constants: make(map[interface{}]uint32),
		}
		resFn := ch.Function.(*resolver.Function)
		fn := pcomp.newFuncode(resFn, start, "", &ast.FuncSignature{}, false)
		pcomp.compileBody(fn, ch.Block)
		pcomp.prog.Toplevel = fn
		progs[i] = pcomp.prog
	}
	return progs
}

// A pcomp holds the compiler state for a Program.
type pcomp struct {
	prog *Program // what we're building

	names     map[string]uint32
	constants map[interface{}]uint32
}

func (pcomp *pcomp) nameIndex(name string) uint32 {
	if ix, ok := pcomp.names[name]; ok {
		return ix
	}
	ix := uint32(len(pcomp.prog.Names))
	pcomp.prog.Names = append(pcomp.prog.Names, name)
	pcomp.names[name] = ix
	return ix
}

func (pcomp *pcomp) constIndex(v interface{}) uint32 {
	if ix, ok := pcomp.constants[v]; ok {
		return ix
	}
	ix := uint32(len(pcomp.prog.Constants))
	pcomp.prog.Constants = append(pcomp.prog.Constants, v)
	pcomp.constants[v] = ix
	return ix
}

func (pcomp *pcomp) newFuncode(resFn *resolver.Function, pos token.Pos, name string, sig *ast.FuncSignature, isSeq bool) *Funcode {
	fn := &Funcode{
		Prog:       pcomp.prog,
		Pos:        pos,
		Name:       name,
		NumParams:  len(sig.Params),
		HasVarargs: resFn.HasVarArg,
		IsSequence: isSeq,
	}
	for _, bdg := range resFn.Locals {
		n, p := identOf(bdg)
		fn.Locals = append(fn.Locals, Binding{Name: n, Pos: p})
		if bdg.Scope == resolver.Cell {
			fn.Cells = append(fn.Cells, bdg.Index)
		}
	}
	for _, bdg := range resFn.FreeVars {
		n, p := identOf(bdg)
		fn.Freevars = append(fn.Freevars, Binding{Name: n, Pos: p})
	}
	return fn
}

// identOf extracts the declaring identifier's literal text and position from
// a resolver.Binding, for disassembly and error messages.
func identOf(bdg *resolver.Binding) (string, token.Pos) {
	if id, ok := bdg.Decl.(*ast.IdentExpr); ok {
		return id.Lit, id.Start
	}
	return "", token.NoPos
}

// compileNested compiles a nested function/sequence literal, registers it in
// the program's function table and returns its index for MAKEFUNC.
func (pcomp *pcomp) compileNested(resFn *resolver.Function, pos token.Pos, name string, sig *ast.FuncSignature, body *ast.Block, isSeq bool) uint32 {
	fn := pcomp.newFuncode(resFn, pos, name, sig, isSeq)
	pcomp.compileBody(fn, body)
	idx := uint32(len(pcomp.prog.Functions))
	pcomp.prog.Functions = append(pcomp.prog.Functions, fn)
	return idx
}

func (pcomp *pcomp) compileBody(fn *Funcode, body *ast.Block) {
	fcomp := &fcomp{pcomp: pcomp, fn: fn, pos: fn.Pos}
	entry := fcomp.newBlock()
	fcomp.block = entry
	fcomp.stmts(body.Stmts)
	if fcomp.block != nil {
		fcomp.emit(NIL)
		fcomp.emit(RETURN)
	}

	var oops bool

	setinitialstack := func(b *block, depth int) {
		if b.initialstack == -1 {
			b.initialstack = depth
		} else if b.initialstack != depth {
			oops = true
		}
	}

	// Linearize the CFG: compute order, address, and initial stack depth of
	// each reachable block.
	var pc uint32
	var blocks []*block
	var maxstack int
	var visit func(b *block)
	visit = func(b *block) {
		if b.index >= 0 {
			return // already visited
		}
		b.index = len(blocks)
		b.addr = pc
		blocks = append(blocks, b)

		stack := b.initialstack
		var cjmpAddr *uint32
		var isiterjmp int
		for i, in := range b.insns {
			pc++

			if in.op >= OpcodeArgMin {
				switch in.op {
				case ITERJMP:
					isiterjmp = 1
					fallthrough
				case CJMP:
					cjmpAddr = &b.insns[i].arg
					pc += 4
				default:
					pc += uint32(varArgLen(in.arg))
				}
			}

			se := in.stackeffect()
			stack += se
			if stack < 0 {
				oops = true
			}
			if stack+isiterjmp > maxstack {
				maxstack = stack + isiterjmp
			}
		}

		// Place the jmp block next.
		if b.jmp != nil {
			for b.jmp.insns == nil && b.jmp.jmp != nil {
				b.jmp = b.jmp.jmp // jump threading (empty blocks)
			}

			setinitialstack(b.jmp, stack+isiterjmp)
			if b.jmp.index < 0 {
				visit(b.jmp)
			} else {
				pc += 5 // explicit backward jump required
			}
		}

		// Then the cjmp block.
		if b.cjmp != nil {
			for b.cjmp.insns == nil && b.cjmp.jmp != nil {
				b.cjmp = b.cjmp.jmp
			}

			setinitialstack(b.cjmp, stack)
			visit(b.cjmp)

			if cjmpAddr != nil {
				*cjmpAddr = b.cjmp.addr
			}
		}
	}
	setinitialstack(entry, 0)
	visit(entry)

	// A catch block is entered only by the unwinder, never by a jump, so it
	// is not reachable from entry: place it after everything that is, with
	// the thrown value as its only operand.
	for _, ph := range fcomp.pendingHandlers {
		if ph.catch != nil {
			setinitialstack(ph.catch, 1)
			visit(ph.catch)
		}
	}

	fn.MaxStack = maxstack
	fcomp.generate(blocks)

	for _, ph := range fcomp.pendingHandlers {
		fn.Handlers = append(fn.Handlers, Handler{
			PC0:       ph.pc0.addr,
			PC1:       ph.pc1.addr,
			CatchPC:   addrOf(ph.catch),
			FinallyPC: addrOf(ph.finally),
		})
	}
	// handlers were appended innermost-first as nested try statements closed;
	// Funcode.Handlers documents outer-to-inner order.
	for l, r := 0, len(fn.Handlers)-1; l < r; l, r = l+1, r-1 {
		fn.Handlers[l], fn.Handlers[r] = fn.Handlers[r], fn.Handlers[l]
	}

	if oops {
		panic("internal error: stack depth mismatch or underflow during codegen")
	}
}

func addrOf(b *block) uint32 {
	if b == nil {
		return 0
	}
	return b.addr
}

// An fcomp holds the compiler state for a Funcode.
type fcomp struct {
	fn *Funcode // what we're building

	pcomp *pcomp
	pos   token.Pos // position of the node currently being compiled
	loops []loop
	block *block

	// protectedDepth counts the nesting depth of try statements that carry a
	// finally clause; a return in tail position is only compiled as a tail
	// call when this is zero, since a tail call discards the frame a finally
	// would need to run in.
	protectedDepth int

	pendingHandlers []pendingHandler
}

type loop struct {
	break_, continue_ *block
}

// pendingHandler records a try statement's protected range in terms of the
// blocks that delimit it; translated to addresses once the CFG is
// linearized.
type pendingHandler struct {
	pc0, pc1       *block
	catch, finally *block
}

// block is a block of code - every executable line of code is compiled inside
// a block.
type block struct {
	insns []insn

	// If the last insn is a RETURN or CALL_TAIL, jmp and cjmp are nil.
	// If the last insn is a CJMP or ITERJMP,
	//  cjmp and jmp are the "true" and "false" successors.
	// Otherwise, jmp is the sole successor.
	jmp, cjmp *block

	initialstack int // for stack depth computation

	// Used during encoding
	index int // -1 => not encoded yet
	addr  uint32
}

type insn struct {
	op  Opcode
	arg uint32
	pos token.Pos
}

// stackeffect returns the net effect of the instruction on the operand
// stack, resolving the variable-effect opcodes using the instruction's own
// argument.
func (in insn) stackeffect() int {
	se := stackEffect[in.op]
	if int(se) != variableStackEffect {
		return int(se)
	}
	switch in.op {
	case MAKETUPLE, MAKEARRAY:
		return 1 - int(in.arg)
	case MAKEMAP:
		return 1 - 2*int(in.arg)
	case CALL, CALL_VAR, CALL_TAIL:
		nargs := int(in.arg>>8) + int(in.arg&0xff)
		pushed := 1
		if in.op == CALL_TAIL {
			pushed = 0
		}
		popped := nargs + 1 // fn + args
		if in.op == CALL_VAR {
			popped++ // the trailing *args array
		}
		return pushed - popped
	case ITERJMP:
		// the element is pushed only along the fallthrough (not-exhausted)
		// edge; the linearizer accounts for that separately via isiterjmp.
		return 0
	case UNPACK:
		return int(in.arg) - 1
	case LOAD:
		return int(in.arg) - 1
	}
	panic(fmt.Sprintf("stackeffect: missing case for variable-effect opcode %v", in.op))
}

func encodeInsn(code []byte, op Opcode, arg uint32) []byte {
	code = append(code, byte(op))
	if op >= OpcodeArgMin {
		if isJump(op) {
			code = addUint32(code, arg, 4) // pad arg to 4 bytes
		} else {
			code = addUint32(code, arg, 0)
		}
	}
	return code
}

// addUint32 encodes x as 7-bit little-endian varint.
func addUint32(code []byte, x uint32, min int) []byte {
	end := len(code) + min
	for x >= 0x80 {
		code = append(code, byte(x)|0x80)
		x >>= 7
	}
	code = append(code, byte(x))
	// Pad the operand with NOPs to exactly min bytes.
	for len(code) < end {
		code = append(code, byte(NOP))
	}
	return code
}

func (fcomp *fcomp) generate(blocks []*block) {
	fn := fcomp.fn
	var code []byte
	var lastPos token.Pos
	for bi, b := range blocks {
		for _, in := range b.insns {
			if in.pos.IsValid() && in.pos != lastPos {
				fn.setPos(uint32(len(code)), in.pos)
				lastPos = in.pos
			}
			code = encodeInsn(code, in.op, in.arg)
		}
		if b.jmp != nil {
			fallsThrough := bi+1 < len(blocks) && blocks[bi+1] == b.jmp
			if !fallsThrough {
				code = encodeInsn(code, JMP, b.jmp.addr)
			}
		}
	}
	fn.Code = code
}

func (fcomp *fcomp) newBlock() *block {
	return &block{index: -1, initialstack: -1}
}

func (fcomp *fcomp) setpos(p token.Pos) {
	if p.IsValid() {
		fcomp.pos = p
	}
}

func (fcomp *fcomp) emit(op Opcode) {
	if fcomp.block == nil {
		return // unreachable
	}
	fcomp.block.insns = append(fcomp.block.insns, insn{op: op, pos: fcomp.pos})
	if op == RETURN {
		fcomp.block = nil
	}
}

func (fcomp *fcomp) emit1(op Opcode, arg uint32) {
	if fcomp.block == nil {
		return
	}
	fcomp.block.insns = append(fcomp.block.insns, insn{op: op, arg: arg, pos: fcomp.pos})
	if op == CALL_TAIL {
		fcomp.block = nil
	}
}

func (fcomp *fcomp) jump(to *block) {
	if fcomp.block == nil {
		return
	}
	fcomp.block.jmp = to
	fcomp.block = nil
}

// condjump ends the current block with a CJMP or ITERJMP: t is the successor
// reached by an explicit (patched) jump, f the successor reached by falling
// through.
func (fcomp *fcomp) condjump(op Opcode, t, f *block) {
	if fcomp.block == nil {
		return
	}
	fcomp.emit1(op, 0)
	fcomp.block.cjmp = t
	fcomp.block.jmp = f
	fcomp.block = nil
}

func (fcomp *fcomp) newLocal(name string) uint32 {
	ix := uint32(len(fcomp.fn.Locals))
	fcomp.fn.Locals = append(fcomp.fn.Locals, Binding{Name: name})
	return ix
}

func (fcomp *fcomp) pushLoop(breakBlock, continueBlock *block) {
	fcomp.loops = append(fcomp.loops, loop{break_: breakBlock, continue_: continueBlock})
}

func (fcomp *fcomp) popLoop() {
	fcomp.loops = fcomp.loops[:len(fcomp.loops)-1]
}

// --- statements ---

func (fcomp *fcomp) stmts(list []ast.Stmt) {
	for _, s := range list {
		if fcomp.block == nil {
			break // rest of the block is unreachable
		}
		fcomp.stmt(s)
	}
}

func (fcomp *fcomp) stmt(s ast.Stmt) {
	start, _ := s.Span()
	fcomp.setpos(start)

	switch s := s.(type) {
	case *ast.AssignStmt:
		fcomp.assignStmt(s)

	case *ast.BadStmt:
		panic("bad statement reached the compiler")

	case *ast.ExprStmt:
		fcomp.expr(s.Expr)
		fcomp.emit(POP)

	case *ast.ForInStmt:
		fcomp.forInStmt(s)

	case *ast.ForLoopStmt:
		fcomp.forLoopStmt(s)

	case *ast.FuncStmt:
		resFn := s.Function.(*resolver.Function)
		fcomp.closure(resFn, s.Fn, s.Name.Lit, s.Sig, s.Body, s.IsSeq)
		fcomp.storeIdent(s.Name)

	case *ast.IfStmt:
		fcomp.ifStmt(s)

	case *ast.ImportStmt:
		fcomp.importStmt(s)

	case *ast.ExportStmt:
		fcomp.stmt(s.Decl)
		fcomp.recordExports(s.Decl)

	case *ast.ReturnLikeStmt:
		fcomp.returnLikeStmt(s)

	case *ast.TryStmt:
		fcomp.tryStmt(s)

	case *ast.WhileStmt:
		fcomp.whileStmt(s)

	default:
		panic(fmt.Sprintf("unexpected stmt %T", s))
	}
}

// recordExports stashes the toplevel names an export statement declares, so
// the program image can report its public surface to an importer.
func (fcomp *fcomp) recordExports(decl ast.Stmt) {
	switch d := decl.(type) {
	case *ast.FuncStmt:
		fcomp.pcomp.prog.Exports = append(fcomp.pcomp.prog.Exports, Binding{Name: d.Name.Lit, Pos: d.Name.Start})
	case *ast.AssignStmt:
		for _, l := range d.Left {
			if id, ok := l.(*ast.IdentExpr); ok {
				fcomp.pcomp.prog.Exports = append(fcomp.pcomp.prog.Exports, Binding{Name: id.Lit, Pos: id.Start})
			}
		}
	}
}

func (fcomp *fcomp) importStmt(s *ast.ImportStmt) {
	fcomp.pcomp.prog.Loads = append(fcomp.pcomp.prog.Loads, Binding{
		Name: s.Path.Value.(string),
		Pos:  s.Import,
	})
	fcomp.emit1(CONSTANT, fcomp.pcomp.constIndex(s.Path.Value))
	if s.Name == nil {
		// bare side-effecting import: run the module, bind nothing.
		fcomp.emit1(LOAD, 0)
		return
	}
	fcomp.emit1(LOAD, 1)
	fcomp.storeIdent(s.Name)
}

func (fcomp *fcomp) ifStmt(s *ast.IfStmt) {
	thenBlock := fcomp.newBlock()
	afterBlock := fcomp.newBlock()
	elseBlock := afterBlock
	if s.Else != nil {
		elseBlock = fcomp.newBlock()
	}

	fcomp.expr(s.Cond)
	fcomp.condjump(CJMP, thenBlock, elseBlock)

	fcomp.block = thenBlock
	fcomp.stmts(s.Then.Stmts)
	fcomp.jump(afterBlock)

	if s.Else != nil {
		fcomp.block = elseBlock
		fcomp.stmts(s.Else.Stmts)
		fcomp.jump(afterBlock)
	}

	fcomp.block = afterBlock
}

func (fcomp *fcomp) whileStmt(s *ast.WhileStmt) {
	condBlock := fcomp.newBlock()
	bodyBlock := fcomp.newBlock()
	afterBlock := fcomp.newBlock()

	fcomp.jump(condBlock)
	fcomp.block = condBlock
	fcomp.expr(s.Cond)
	fcomp.condjump(CJMP, bodyBlock, afterBlock)

	fcomp.block = bodyBlock
	fcomp.pushLoop(afterBlock, condBlock)
	fcomp.stmts(s.Body.Stmts)
	fcomp.popLoop()
	fcomp.jump(condBlock)

	fcomp.block = afterBlock
}

func (fcomp *fcomp) forLoopStmt(s *ast.ForLoopStmt) {
	if s.Init != nil {
		fcomp.stmt(s.Init)
	}

	condBlock := fcomp.newBlock()
	bodyBlock := fcomp.newBlock()
	postBlock := fcomp.newBlock()
	afterBlock := fcomp.newBlock()

	fcomp.jump(condBlock)
	fcomp.block = condBlock
	if s.Cond != nil {
		fcomp.expr(s.Cond)
		fcomp.condjump(CJMP, bodyBlock, afterBlock)
	} else {
		fcomp.jump(bodyBlock)
	}

	fcomp.block = bodyBlock
	fcomp.pushLoop(afterBlock, postBlock)
	fcomp.stmts(s.Body.Stmts)
	fcomp.popLoop()
	fcomp.jump(postBlock)

	fcomp.block = postBlock
	if s.Post != nil {
		fcomp.stmt(s.Post)
	}
	fcomp.jump(condBlock)

	fcomp.block = afterBlock
}

// forInStmt lowers foreach to ITERPUSH/ITERJMP/ITERPOP. The two-variable
// form (index, value) keeps the index in a compiler-allocated local that has
// no source-level binding of its own.
func (fcomp *fcomp) forInStmt(s *ast.ForInStmt) {
	fcomp.expr(s.Right)
	fcomp.emit(ITERPUSH)

	hasIndex := len(s.Left) == 2
	var idxLocal uint32
	if hasIndex {
		idxLocal = fcomp.newLocal("")
		fcomp.emit1(CONSTANT, fcomp.pcomp.constIndex(int64(0)))
		fcomp.emit1(SETLOCAL, idxLocal)
	}

	loopBlock := fcomp.newBlock()
	bodyBlock := fcomp.newBlock()
	postBlock := fcomp.newBlock()
	afterBlock := fcomp.newBlock()

	fcomp.jump(loopBlock)
	fcomp.block = loopBlock
	fcomp.condjump(ITERJMP, afterBlock, bodyBlock)

	fcomp.block = bodyBlock
	if hasIndex {
		fcomp.emit1(LOCAL, idxLocal)
		fcomp.storeLoopVar(s.Left[0])
		fcomp.storeLoopVar(s.Left[1])
	} else {
		fcomp.storeLoopVar(s.Left[0])
	}

	fcomp.pushLoop(afterBlock, postBlock)
	fcomp.stmts(s.Body.Stmts)
	fcomp.popLoop()
	fcomp.jump(postBlock)

	fcomp.block = postBlock
	if hasIndex {
		fcomp.emit1(LOCAL, idxLocal)
		fcomp.emit1(CONSTANT, fcomp.pcomp.constIndex(int64(1)))
		fcomp.emit(PLUS)
		fcomp.emit1(SETLOCAL, idxLocal)
	}
	fcomp.jump(loopBlock)

	fcomp.block = afterBlock
	fcomp.emit(ITERPOP)
}

func (fcomp *fcomp) returnLikeStmt(s *ast.ReturnLikeStmt) {
	switch s.Type {
	case token.RETURN:
		if call, ok := s.Expr.(*ast.CallExpr); ok && fcomp.protectedDepth == 0 {
			fcomp.callExpr(call, true)
			return
		}
		if s.Expr != nil {
			fcomp.expr(s.Expr)
		} else {
			fcomp.emit(NIL)
		}
		fcomp.emit(RETURN)

	case token.BREAK:
		fcomp.jump(fcomp.loops[len(fcomp.loops)-1].break_)

	case token.CONTINUE:
		fcomp.jump(fcomp.loops[len(fcomp.loops)-1].continue_)

	case token.THROW:
		fcomp.expr(s.Expr)
		fcomp.emit(THROW)

	default:
		panic(fmt.Sprintf("unexpected return-like statement type %s", s.Type))
	}
}

// tryStmt lowers try/catch/finally to a handler record covering the body's
// instruction range; no opcode runs to install it; it is pure per-function
// metadata consulted by the virtual machine's unwinder.
func (fcomp *fcomp) tryStmt(s *ast.TryStmt) {
	bodyBlock := fcomp.newBlock()
	afterBlock := fcomp.newBlock()
	var catchBlock, finallyBlock *block
	if s.CatchBody != nil {
		catchBlock = fcomp.newBlock()
	}
	if s.FinallyBody != nil {
		finallyBlock = fcomp.newBlock()
		fcomp.protectedDepth++
	}
	normalExit := afterBlock
	if finallyBlock != nil {
		normalExit = finallyBlock
	}

	fcomp.jump(bodyBlock)
	fcomp.block = bodyBlock
	fcomp.stmts(s.Body.Stmts)
	fcomp.jump(normalExit)

	if catchBlock != nil {
		fcomp.block = catchBlock
		if s.CatchParam != nil {
			fcomp.storeIdent(s.CatchParam)
		} else {
			fcomp.emit(POP)
		}
		fcomp.stmts(s.CatchBody.Stmts)
		fcomp.jump(normalExit)
	}

	if finallyBlock != nil {
		fcomp.block = finallyBlock
		fcomp.stmts(s.FinallyBody.Stmts)
		fcomp.jump(afterBlock)
		fcomp.protectedDepth--
	}

	fcomp.pendingHandlers = append(fcomp.pendingHandlers, pendingHandler{
		pc0: bodyBlock, pc1: afterBlock, catch: catchBlock, finally: finallyBlock,
	})

	fcomp.block = afterBlock
}

// --- assignment ---

func (fcomp *fcomp) assignStmt(s *ast.AssignStmt) {
	isDecl := s.Decl.IsValid()

	if s.AssignTok != token.EQ {
		fcomp.assignOne(s.Left[0], s.Right[0], isDecl, s.AssignTok)
		return
	}
	if len(s.Right) == 0 {
		// bare var declaration: var x;
		for _, l := range s.Left {
			fcomp.emit(NIL)
			fcomp.storeIdent(l.(*ast.IdentExpr))
		}
		return
	}
	if len(s.Left) == len(s.Right) {
		for i := range s.Left {
			fcomp.assignOne(s.Left[i], s.Right[i], isDecl, token.EQ)
		}
		return
	}

	// destructuring a single multi-valued expression: a, b = f()
	fcomp.expr(s.Right[0])
	fcomp.emit1(UNPACK, uint32(len(s.Left)))
	for _, l := range s.Left {
		id, ok := l.(*ast.IdentExpr)
		if !ok {
			panic("destructuring assignment target must be an identifier")
		}
		fcomp.storeIdent(id)
	}
}

func (fcomp *fcomp) assignOne(target, value ast.Expr, isDecl bool, assignTok token.Token) {
	if assignTok != token.EQ {
		op := augOpcode(assignTok)
		switch t := target.(type) {
		case *ast.IdentExpr:
			fcomp.loadIdent(t)
			fcomp.expr(value)
			fcomp.emit(op)
			fcomp.storeIdent(t)
		case *ast.DotExpr:
			fcomp.expr(t.Left)
			fcomp.emit(DUP)
			fcomp.emit1(ATTR, fcomp.pcomp.nameIndex(t.Right.Lit))
			fcomp.expr(value)
			fcomp.emit(op)
			fcomp.emit1(SETFIELD, fcomp.pcomp.nameIndex(t.Right.Lit))
		case *ast.IndexExpr:
			fcomp.expr(t.Prefix)
			fcomp.expr(t.Index)
			fcomp.emit(DUP2)
			fcomp.emit(INDEX)
			fcomp.expr(value)
			fcomp.emit(op)
			fcomp.emit(SETINDEX)
		default:
			panic(fmt.Sprintf("invalid assignment target %T", target))
		}
		return
	}

	switch t := target.(type) {
	case *ast.IdentExpr:
		fcomp.expr(value)
		_ = isDecl
		fcomp.storeIdent(t)
	case *ast.DotExpr:
		fcomp.expr(t.Left)
		fcomp.expr(value)
		fcomp.emit1(SETFIELD, fcomp.pcomp.nameIndex(t.Right.Lit))
	case *ast.IndexExpr:
		fcomp.expr(t.Prefix)
		fcomp.expr(t.Index)
		fcomp.expr(value)
		fcomp.emit(SETINDEX)
	default:
		panic(fmt.Sprintf("invalid assignment target %T", target))
	}
}

func augOpcode(tok token.Token) Opcode {
	switch tok {
	case token.PLUS_EQ:
		return PLUS
	case token.MINUS_EQ:
		return MINUS
	case token.STAR_EQ:
		return STAR
	case token.SLASH_EQ:
		return SLASH
	case token.SLASHSLASH_EQ:
		return SLASHSLASH
	case token.PERCENT_EQ:
		return PERCENT
	case token.CIRCUMFLEX_EQ:
		return CIRCUMFLEX
	case token.AMP_EQ:
		return AMPERSAND
	case token.PIPE_EQ:
		return PIPE
	case token.LTLT_EQ:
		return LTLT
	case token.GTGT_EQ:
		return GTGT
	}
	panic(fmt.Sprintf("not an augmented assignment operator: %s", tok))
}

func binOpcode(tok token.Token) Opcode {
	switch tok {
	case token.LT:
		return LT
	case token.LE:
		return LE
	case token.GT:
		return GT
	case token.GE:
		return GE
	case token.EQL:
		return EQL
	case token.NEQ:
		return NEQ
	case token.PLUS:
		return PLUS
	case token.MINUS:
		return MINUS
	case token.STAR:
		return STAR
	case token.SLASH:
		return SLASH
	case token.SLASHSLASH:
		return SLASHSLASH
	case token.PERCENT:
		return PERCENT
	case token.CIRCUMFLEX:
		return CIRCUMFLEX
	case token.AMPERSAND:
		return AMPERSAND
	case token.PIPE:
		return PIPE
	case token.LTLT:
		return LTLT
	case token.GTGT:
		return GTGT
	}
	panic(fmt.Sprintf("not a binary operator: %s", tok))
}

func unOpcode(tok token.Token) Opcode {
	switch tok {
	case token.PLUS:
		return UPLUS
	case token.MINUS:
		return UMINUS
	case token.TILDE:
		return UTILDE
	case token.NOT:
		return NOT
	}
	panic(fmt.Sprintf("not a unary operator: %s", tok))
}

// --- identifiers ---

func bindingOf(id *ast.IdentExpr) *resolver.Binding {
	return id.Binding.(*resolver.Binding)
}

func (fcomp *fcomp) loadIdent(id *ast.IdentExpr) {
	bdg := bindingOf(id)
	switch bdg.Scope {
	case resolver.Local:
		fcomp.emit1(LOCAL, uint32(bdg.Index))
	case resolver.Cell:
		fcomp.emit1(LOCALCELL, uint32(bdg.Index))
	case resolver.Free:
		fcomp.emit1(FREECELL, uint32(bdg.Index))
	case resolver.Predeclared:
		fcomp.emit1(PREDECLARED, fcomp.pcomp.nameIndex(id.Lit))
	case resolver.Universal:
		fcomp.emit1(UNIVERSAL, fcomp.pcomp.nameIndex(id.Lit))
	case resolver.Global:
		fcomp.emit1(GLOBAL, fcomp.pcomp.nameIndex(id.Lit))
	default:
		panic(fmt.Sprintf("unresolved identifier %q reached the compiler", id.Lit))
	}
}

// storeLoopVar stores the top of stack into a foreach loop variable. Unlike
// a plain assignment, a Cell-scoped foreach variable is rebound to a fresh
// cell before the store, once per iteration: a closure made in one
// iteration must keep observing that iteration's value rather than
// whatever a later iteration writes into a shared cell. A for-loop's own
// variable is never rebound this way; it is deliberately one cell shared
// across every iteration (see forLoopStmt).
func (fcomp *fcomp) storeLoopVar(id *ast.IdentExpr) {
	if bdg := bindingOf(id); bdg.Scope == resolver.Cell {
		fcomp.emit1(NEWCELL, uint32(bdg.Index))
	}
	fcomp.storeIdent(id)
}

func (fcomp *fcomp) storeIdent(id *ast.IdentExpr) {
	bdg := bindingOf(id)
	switch bdg.Scope {
	case resolver.Local:
		fcomp.emit1(SETLOCAL, uint32(bdg.Index))
	case resolver.Cell:
		fcomp.emit1(SETLOCALCELL, uint32(bdg.Index))
	case resolver.Free:
		fcomp.emit1(SETFREECELL, uint32(bdg.Index))
	case resolver.Global:
		fcomp.emit1(SETGLOBAL, fcomp.pcomp.nameIndex(id.Lit))
	default:
		panic(fmt.Sprintf("cannot assign to %q (scope %s)", id.Lit, bdg.Scope))
	}
}

// --- expressions ---

func (fcomp *fcomp) expr(e ast.Expr) {
	start, _ := e.Span()
	fcomp.setpos(start)

	switch e := e.(type) {
	case *ast.ArrayLikeExpr:
		for _, it := range e.Items {
			fcomp.expr(it)
		}
		if e.Type == token.LPAREN {
			fcomp.emit1(MAKETUPLE, uint32(len(e.Items)))
		} else {
			fcomp.emit1(MAKEARRAY, uint32(len(e.Items)))
		}

	case *ast.BadExpr:
		panic("bad expression reached the compiler")

	case *ast.BinOpExpr:
		switch e.Type {
		case token.AND:
			fcomp.logicalAnd(e)
		case token.OR:
			fcomp.logicalOr(e)
		default:
			fcomp.expr(e.Left)
			fcomp.expr(e.Right)
			fcomp.emit(binOpcode(e.Type))
		}

	case *ast.CallExpr:
		fcomp.callExpr(e, false)

	case *ast.DotExpr:
		fcomp.expr(e.Left)
		fcomp.emit1(ATTR, fcomp.pcomp.nameIndex(e.Right.Lit))

	case *ast.FuncExpr:
		resFn := e.Function.(*resolver.Function)
		fcomp.closure(resFn, e.Fn, "", e.Sig, e.Body, e.IsSeq)

	case *ast.IdentExpr:
		fcomp.loadIdent(e)

	case *ast.IndexExpr:
		fcomp.expr(e.Prefix)
		fcomp.expr(e.Index)
		fcomp.emit(INDEX)

	case *ast.LiteralExpr:
		fcomp.literal(e)

	case *ast.MapExpr:
		for _, it := range e.Items {
			fcomp.mapKey(it.Key)
			fcomp.expr(it.Value)
		}
		fcomp.emit1(MAKEMAP, uint32(len(e.Items)))

	case *ast.ParenExpr:
		fcomp.expr(e.Expr)

	case *ast.UnaryOpExpr:
		fcomp.unaryExpr(e)

	default:
		panic(fmt.Sprintf("unexpected expr %T", e))
	}
}

// mapKey compiles a map-literal key. A bare identifier key ({a: 1}) is
// shorthand for the string constant "a"; only a bracketed key ({[e]: 1}) is
// an evaluated expression, represented by any node other than *ast.IdentExpr.
func (fcomp *fcomp) mapKey(key ast.Expr) {
	if id, ok := key.(*ast.IdentExpr); ok {
		fcomp.emit1(CONSTANT, fcomp.pcomp.constIndex(id.Lit))
		return
	}
	fcomp.expr(key)
}

func (fcomp *fcomp) literal(e *ast.LiteralExpr) {
	switch e.Type {
	case token.INT, token.FLOAT, token.STRING:
		fcomp.emit1(CONSTANT, fcomp.pcomp.constIndex(e.Value))
	case token.TRUE:
		fcomp.emit(TRUE)
	case token.FALSE:
		fcomp.emit(FALSE)
	case token.NULL, token.UNDEFINED:
		// undefined collapses to the nil value at the bytecode level; only
		// the surface syntax distinguishes intent.
		fcomp.emit(NIL)
	default:
		panic(fmt.Sprintf("unexpected literal type %s", e.Type))
	}
}

func (fcomp *fcomp) unaryExpr(e *ast.UnaryOpExpr) {
	switch e.Op {
	case token.YIELD:
		fcomp.expr(e.Right)
		fcomp.emit(SEQSUSPEND)
		fcomp.emit(SEQRESUME)
	case token.TRY:
		// the grammar accepts "try <expr>" as a unary operator, but lumen
		// expresses try/catch/finally only through the try statement; this
		// is a transparent pass-through of the operand.
		fcomp.expr(e.Right)
	default:
		fcomp.expr(e.Right)
		fcomp.emit(unOpcode(e.Op))
	}
}

// logicalAnd and logicalOr implement short-circuit evaluation with the
// existing CJMP opcode (DUP the operand so CJMP can consume a copy while the
// original remains available as the short-circuited result) rather than
// dedicated peek-jump opcodes.
func (fcomp *fcomp) logicalAnd(e *ast.BinOpExpr) {
	fcomp.expr(e.Left)
	fcomp.emit(DUP)
	truthy := fcomp.newBlock()
	falsy := fcomp.newBlock()
	done := fcomp.newBlock()
	fcomp.condjump(CJMP, truthy, falsy)

	fcomp.block = truthy
	fcomp.emit(POP)
	fcomp.expr(e.Right)
	fcomp.jump(done)

	fcomp.block = falsy
	fcomp.jump(done)

	fcomp.block = done
}

func (fcomp *fcomp) logicalOr(e *ast.BinOpExpr) {
	fcomp.expr(e.Left)
	fcomp.emit(DUP)
	truthy := fcomp.newBlock()
	falsy := fcomp.newBlock()
	done := fcomp.newBlock()
	fcomp.condjump(CJMP, truthy, falsy)

	fcomp.block = truthy
	fcomp.jump(done)

	fcomp.block = falsy
	fcomp.emit(POP)
	fcomp.expr(e.Right)
	fcomp.jump(done)

	fcomp.block = done
}

// callExpr compiles a call. tail is honored (emitting CALL_TAIL instead of
// CALL) only outside any enclosing finally block.
func (fcomp *fcomp) callExpr(e *ast.CallExpr, tail bool) {
	fcomp.expr(e.Fn)
	for _, a := range e.Args {
		fcomp.expr(a)
	}
	n := uint32(len(e.Args)) << 8
	if tail && fcomp.protectedDepth == 0 {
		fcomp.emit1(CALL_TAIL, n)
	} else {
		fcomp.emit1(CALL, n)
	}
}

// closure compiles a nested function/sequence literal and emits the
// MAKEFUNC sequence: each captured freevar's cell pushed (LOCALREF for a
// cell local of this function, FREE for one already captured by this
// function), combined into a tuple, then consumed by MAKEFUNC.
func (fcomp *fcomp) closure(resFn *resolver.Function, pos token.Pos, name string, sig *ast.FuncSignature, body *ast.Block, isSeq bool) {
	idx := fcomp.pcomp.compileNested(resFn, pos, name, sig, body, isSeq)
	for _, fv := range resFn.FreeVars {
		if fv.Scope == resolver.Free {
			fcomp.emit1(FREE, uint32(fv.Index))
		} else {
			fcomp.emit1(LOCALREF, uint32(fv.Index))
		}
	}
	fcomp.emit1(MAKETUPLE, uint32(len(resFn.FreeVars)))
	fcomp.emit1(MAKEFUNC, idx)
}
