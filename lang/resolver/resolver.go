// Much of the resolver package is adapted from the Starlark source code:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolver implements the resolver that takes a parsed abstract
// syntax tree and resolves identifiers to bindings.
//
// # Scopes
//
// Bindings are either "undefined" (which generates an error), "local" to a
// function (which may be the top-level), a "cell" (a local that is shared
// with at least one nested function), a "free" binding (a reference, from
// inside a nested function, to a cell declared in an enclosing function),
// "predeclared" (from a list of bindings provided to the environment), from
// the "universe" (bindings that are built into the language), or "global"
// (a mutable name living in the VM-wide global object, registered by the
// host; unlike predeclared and universal names, globals may be assigned to
// from script code).
//
// # Bindings
//
// The following constructs introduce new bindings:
//   - var declaration: the scope of the binding is the enclosing block, from
//     that point on.
//   - function/sequence parameters: scoped to the function body.
//   - foreach loop variables: scoped to the loop body, rebound implicitly on
//     every iteration.
//   - named function/sequence declaration: the name is bound in the
//     enclosing block (so it may be referenced recursively from its own
//     body), the parameters are bound in the function body.
//   - a try statement's catch parameter: scoped to the catch body.
//   - import: the imported name, if any, is bound in the enclosing block.
package resolver

import (
	"context"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/lumen-lang/lumen/lang/ast"
	"github.com/lumen-lang/lumen/lang/scanner"
	"github.com/lumen-lang/lumen/lang/token"
)

// Mode is a set of bit flags that configures the resolving. By default (0),
// the symbols are resolved, all errors are reported and blocks are not given
// unique names.
type Mode uint

// List of supported resolver modes, which can be combined with bitwise or.
const (
	NameBlocks Mode = 1 << iota // give unique names to blocks, useful for printing the resolved AST.
)

// ResolveFiles takes the file set and corresponding list of chunks from a
// successful parse result and resolves the bindings used in the source code.
// On success, the AST is enriched with binding resolution information and is
// ready to be compiled to bytecode for virtual machine execution.
//
// An AST that resulted in errors in the parse phase should never be passed
// to the resolver; the behavior is undefined.
//
// The returned error, if non-nil, is guaranteed to be a scanner.ErrorList.
func ResolveFiles(_ context.Context, fset *token.FileSet, chunks []*ast.Chunk,
	mode Mode, isPredeclared, isUniversal, isGlobal func(name string) bool) error {
	if len(chunks) == 0 {
		return nil
	}

	var r resolver
	r.isPredeclared = isPredeclared
	if isPredeclared == nil {
		r.isPredeclared = func(name string) bool { return false }
	}
	r.isUniversal = isUniversal
	if isUniversal == nil {
		r.isUniversal = func(name string) bool { return false }
	}
	r.isGlobal = isGlobal
	if isGlobal == nil {
		r.isGlobal = func(name string) bool { return false }
	}

	for _, ch := range chunks {
		start, _ := ch.Span()
		r.init(fset.File(start))
		r.block(ch.Block, ch)
		ch.Function = r.root.fn

		if mode&NameBlocks != 0 {
			// assign all names in one go at the end, so performance is not
			// impacted at all if this option is not set.
			r.nameBlocks()
		}
	}
	r.errors.Sort()
	return r.errors.Err()
}

// block is a lexical scope: one per brace-delimited block, plus the
// synthetic blocks the resolver pushes around loop-scoped and
// parameter-scoped bindings. It is not exported; resolver.go is the only
// place that allocates or walks it.
type block struct {
	parent   *block
	children []*block
	bindings map[string]*Binding
	fn       *Function // the enclosing function; shared by every block of that function

	name string // assigned by NameBlocks, for debug printing only
}

type resolver struct {
	file   *token.File
	errors scanner.ErrorList

	// env is the current local environment, a linked list of blocks, with
	// the current innermost block first and the tail of the list the file
	// (top-level) block.
	env *block
	// root keeps a reference to the root block.
	root *block

	// globals saves the bindings of predeclared and universal names when
	// they are first referenced.
	globals map[string]*Binding

	// predicates to check if an unresolved name is predeclared, universal or
	// a host-registered global.
	isPredeclared, isUniversal, isGlobal func(name string) bool
}

func (r *resolver) init(file *token.File) {
	r.file = file
	r.env = nil
	r.root = nil
	r.globals = make(map[string]*Binding)
}

func (r *resolver) push(b *block) {
	if r.env == nil {
		// this is the root block
		r.root = b
	} else {
		r.env.children = append(r.env.children, b)
		if b.fn == nil {
			// in same function as before
			b.fn = r.env.fn
		}
	}
	b.parent = r.env
	b.bindings = make(map[string]*Binding)
	r.env = b
}

func (r *resolver) pop() {
	r.env = r.env.parent
}

func (r *resolver) errorf(p token.Pos, format string, args ...interface{}) {
	r.errors.Add(r.file.Position(p), fmt.Sprintf(format, args...))
}

func (r *resolver) block(b *ast.Block, from ast.Node) {
	var blk block
	var isLoop bool

	switch v := from.(type) {
	case *ast.Chunk:
		blk.fn = &Function{Definition: v}
	case *ast.WhileStmt, *ast.ForLoopStmt, *ast.ForInStmt:
		isLoop = true
	}

	r.push(&blk)
	if isLoop {
		blk.fn.loops++
	}

	for _, s := range b.Stmts {
		r.stmt(s)
	}

	if isLoop {
		blk.fn.loops--
	}
	r.pop()
}

func (r *resolver) stmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.AssignStmt:
		// resolve the rhs first
		for _, e := range stmt.Right {
			r.expr(e)
		}

		for _, e := range stmt.Left {
			if stmt.Decl.IsValid() {
				// this is a var declaration, create a new binding
				r.bind(e.(*ast.IdentExpr))
			} else {
				r.expr(e)
			}
		}

	case *ast.BadStmt:
		// already reported at parse time, nothing to resolve

	case *ast.ExprStmt:
		r.expr(stmt.Expr)

	case *ast.ForInStmt:
		r.expr(stmt.Right)

		// the loop variables are always implicit declarations, scoped to a
		// synthetic block wrapping the loop body.
		r.push(new(block))
		for _, id := range stmt.Left {
			r.bind(id)
		}
		r.block(stmt.Body, stmt)
		r.pop()

	case *ast.ForLoopStmt:
		// everything in the 3-part for loop is in a synthetic block around the
		// body, so if the init clause declares a variable, it is scoped to
		// the loop. Cond and Post may reference it.
		r.push(new(block))

		if stmt.Init != nil {
			r.stmt(stmt.Init)
		}
		if stmt.Cond != nil {
			r.expr(stmt.Cond)
		}
		if stmt.Post != nil {
			r.stmt(stmt.Post)
		}
		r.block(stmt.Body, stmt)

		r.pop()

	case *ast.FuncStmt:
		r.bind(stmt.Name)
		stmt.Function = r.function(stmt, stmt.Sig, stmt.Body, stmt.IsSeq)

	case *ast.IfStmt:
		r.expr(stmt.Cond)
		r.block(stmt.Then, stmt)
		if stmt.Else != nil {
			r.block(stmt.Else, stmt)
		}

	case *ast.ImportStmt:
		if stmt.Name != nil {
			r.bind(stmt.Name)
		}

	case *ast.ExportStmt:
		r.stmt(stmt.Decl)

	case *ast.ReturnLikeStmt:
		if stmt.Type == token.BREAK || stmt.Type == token.CONTINUE {
			if r.env.fn.loops == 0 {
				r.errorf(stmt.Start, "%s outside a loop", stmt.Type)
			}
			break
		}
		if stmt.Expr != nil {
			r.expr(stmt.Expr)
		}

	case *ast.TryStmt:
		r.block(stmt.Body, stmt)
		if stmt.CatchBody != nil {
			r.push(new(block))
			if stmt.CatchParam != nil {
				r.bind(stmt.CatchParam)
			}
			r.block(stmt.CatchBody, stmt)
			r.pop()
		}
		if stmt.FinallyBody != nil {
			r.block(stmt.FinallyBody, stmt)
		}

	case *ast.WhileStmt:
		r.expr(stmt.Cond)
		r.block(stmt.Body, stmt)

	default:
		panic(fmt.Sprintf("unexpected stmt %T", stmt))
	}
}

func (r *resolver) expr(expr ast.Expr) {
	switch expr := expr.(type) {
	case *ast.ArrayLikeExpr:
		for _, e := range expr.Items {
			r.expr(e)
		}

	case *ast.BadExpr:
		// already reported at parse time, nothing to resolve

	case *ast.BinOpExpr:
		r.expr(expr.Left)
		r.expr(expr.Right)

	case *ast.CallExpr:
		r.expr(expr.Fn)
		for _, e := range expr.Args {
			r.expr(e)
		}

	case *ast.DotExpr:
		// ignore right, can be anything (runtime lookup)
		r.expr(expr.Left)

	case *ast.FuncExpr:
		expr.Function = r.function(expr, expr.Sig, expr.Body, expr.IsSeq)

	case *ast.IdentExpr:
		r.use(expr)

	case *ast.IndexExpr:
		r.expr(expr.Prefix)
		r.expr(expr.Index)

	case *ast.LiteralExpr:
		// nothing to do

	case *ast.MapExpr:
		for _, it := range expr.Items {
			// a bare identifier key (e.g. {a: 1}) is shorthand for the string
			// "a", not a variable reference; only a bracketed key ({[e]: 1}) is
			// evaluated.
			if _, ok := it.Key.(*ast.IdentExpr); !ok {
				r.expr(it.Key)
			}
			r.expr(it.Value)
		}

	case *ast.ParenExpr:
		r.expr(expr.Expr)

	case *ast.UnaryOpExpr:
		if expr.Op == token.YIELD && !r.env.fn.IsSeq {
			r.errorf(expr.Pos, "yield outside sequence")
		}
		r.expr(expr.Right)

	default:
		panic(fmt.Sprintf("unexpected expr %T", expr))
	}
}

// function resolves the body of a function/sequence literal or declaration
// and returns the Function it built, to be stashed in the AST node for the
// compiler to consume.
func (r *resolver) function(fn ast.Node, sig *ast.FuncSignature, body *ast.Block, isSeq bool) *Function {
	blk := &block{
		fn: &Function{
			Definition: fn,
			IsSeq:      isSeq,
			HasVarArg:  sig.DotDotDot.IsValid(),
		},
	}
	r.push(blk)
	for _, e := range sig.Params {
		r.bind(e)
	}
	r.block(body, fn)
	r.pop()
	return blk.fn
}

func (r *resolver) bind(ident *ast.IdentExpr) {
	if _, ok := r.env.bindings[ident.Lit]; ok {
		// rule: can only shadow in a child block
		r.errorf(ident.Start, "already declared in this block: %s", ident.Lit)
		return
	}

	bdg := &Binding{Scope: Local, Decl: ident}
	ix := len(r.env.fn.Locals)
	bdg.Index = ix
	r.env.fn.Locals = append(r.env.fn.Locals, bdg)
	r.env.bindings[ident.Lit] = bdg

	ident.Binding = bdg
}

func (r *resolver) use(ident *ast.IdentExpr) {
	startFn := r.env.fn
	for env := r.env; env != nil; env = env.parent {
		bdg := env.bindings[ident.Lit]
		if bdg == nil {
			continue
		}

		if env.fn != startFn {
			// found in a parent block belonging to an enclosing function: add
			// the parent's binding to the function's freevars, add a new
			// 'free' binding to the inner function's block, and turn the
			// parent's local into a cell.
			if bdg.Scope == Local {
				bdg.Scope = Cell
			}

			// A sibling block of the same function has its own bindings
			// cache (the bindings map of type block, one per block), so
			// the per-block cache this method sets below misses a second
			// sibling capturing the same outer binding: without this
			// check, each sibling's first reference would append its own
			// duplicate FreeVars entry for a binding already captured
			// elsewhere in this function.
			ix := slices.IndexFunc(r.env.fn.FreeVars, func(fv *Binding) bool { return fv == bdg })
			if ix < 0 {
				ix = len(r.env.fn.FreeVars)
				r.env.fn.FreeVars = append(r.env.fn.FreeVars, bdg)
			}

			bdg = &Binding{
				Decl:  bdg.Decl,
				Scope: Free,
				Index: ix,
			}
			r.env.bindings[ident.Lit] = bdg
		}
		ident.Binding = bdg
		return
	}

	// look for a predeclared or universal binding
	if r.isPredeclared(ident.Lit) {
		bdg, ok := r.globals[ident.Lit]
		if !ok {
			bdg = &Binding{Scope: Predeclared, Decl: ident}
			r.globals[ident.Lit] = bdg
		}
		ident.Binding = bdg
		return
	}
	if r.isUniversal(ident.Lit) {
		bdg, ok := r.globals[ident.Lit]
		if !ok {
			bdg = &Binding{Scope: Universal, Decl: ident}
			r.globals[ident.Lit] = bdg
		}
		ident.Binding = bdg
		return
	}
	if r.isGlobal(ident.Lit) {
		bdg, ok := r.globals[ident.Lit]
		if !ok {
			bdg = &Binding{Scope: Global, Decl: ident}
			r.globals[ident.Lit] = bdg
		}
		ident.Binding = bdg
		return
	}

	r.errorf(ident.Start, "undefined: %s", ident.Lit)
	ident.Binding = &Binding{Scope: Undefined}
}
