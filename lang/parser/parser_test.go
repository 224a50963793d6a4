package parser_test

import (
	"testing"

	"github.com/lumen-lang/lumen/lang/ast"
	"github.com/lumen-lang/lumen/lang/parser"
	"github.com/lumen-lang/lumen/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) (*ast.Chunk, parser.ErrorList) {
	t.Helper()
	fset := token.NewFileSet()
	chunk, errs := parser.ParseChunk(fset, "test.lumen", []byte(src))
	require.NotNil(t, chunk)
	return chunk, errs
}

func TestParseVarDecl(t *testing.T) {
	chunk, errs := parse(t, `var x = 1;`)
	require.Empty(t, errs.Err())
	require.Len(t, chunk.Block.Stmts, 1)

	assign, ok := chunk.Block.Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	assert.True(t, assign.Decl.IsValid())
	assert.Len(t, assign.Left, 1)
	assert.Len(t, assign.Right, 1)
}

func TestParseIfElse(t *testing.T) {
	chunk, errs := parse(t, `
		if (x < 1) {
			y = 1;
		} else if (x < 2) {
			y = 2;
		} else {
			y = 3;
		}
	`)
	require.Empty(t, errs.Err())
	require.Len(t, chunk.Block.Stmts, 1)

	outer, ok := chunk.Block.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	require.NotNil(t, outer.Else)
	require.Len(t, outer.Else.Stmts, 1)
	_, ok = outer.Else.Stmts[0].(*ast.IfStmt)
	assert.True(t, ok)
}

func TestParseWhile(t *testing.T) {
	chunk, errs := parse(t, `while (true) { break; }`)
	require.Empty(t, errs.Err())
	require.Len(t, chunk.Block.Stmts, 1)
	w, ok := chunk.Block.Stmts[0].(*ast.WhileStmt)
	require.True(t, ok)
	require.Len(t, w.Body.Stmts, 1)
	brk, ok := w.Body.Stmts[0].(*ast.ReturnLikeStmt)
	require.True(t, ok)
	assert.Equal(t, token.BREAK, brk.Type)
}

func TestParseForLoop(t *testing.T) {
	chunk, errs := parse(t, `for (var i = 0; i < 10; i += 1) { continue; }`)
	require.Empty(t, errs.Err())
	require.Len(t, chunk.Block.Stmts, 1)
	f, ok := chunk.Block.Stmts[0].(*ast.ForLoopStmt)
	require.True(t, ok)
	require.NotNil(t, f.Init)
	require.NotNil(t, f.Cond)
	require.NotNil(t, f.Post)
}

func TestParseForEach(t *testing.T) {
	chunk, errs := parse(t, `foreach (k, v in obj) { }`)
	require.Empty(t, errs.Err())
	require.Len(t, chunk.Block.Stmts, 1)
	f, ok := chunk.Block.Stmts[0].(*ast.ForInStmt)
	require.True(t, ok)
	assert.Len(t, f.Left, 2)
}

func TestParseFuncAndSeqDecl(t *testing.T) {
	chunk, errs := parse(t, `
		fun add(a, b) { return a + b; }
		seq counter(start, ...rest) { yield start; }
	`)
	require.Empty(t, errs.Err())
	require.Len(t, chunk.Block.Stmts, 2)

	add, ok := chunk.Block.Stmts[0].(*ast.FuncStmt)
	require.True(t, ok)
	assert.False(t, add.IsSeq)
	assert.Len(t, add.Sig.Params, 2)

	counter, ok := chunk.Block.Stmts[1].(*ast.FuncStmt)
	require.True(t, ok)
	assert.True(t, counter.IsSeq)
	assert.True(t, counter.Sig.DotDotDot.IsValid())
	assert.Len(t, counter.Sig.Params, 2)
}

func TestParseTryCatchFinally(t *testing.T) {
	chunk, errs := parse(t, `
		try {
			throw "boom";
		} catch (e) {
			x = e;
		} finally {
			y = 1;
		}
	`)
	require.Empty(t, errs.Err())
	require.Len(t, chunk.Block.Stmts, 1)

	tr, ok := chunk.Block.Stmts[0].(*ast.TryStmt)
	require.True(t, ok)
	require.NotNil(t, tr.CatchBody)
	require.NotNil(t, tr.CatchParam)
	require.NotNil(t, tr.FinallyBody)
}

func TestParseTryWithoutCatchOrFinallyIsError(t *testing.T) {
	_, errs := parse(t, `try { x = 1; }`)
	require.Error(t, errs.Err())
}

func TestParseImportExport(t *testing.T) {
	chunk, errs := parse(t, `
		import "math";
		import m from "math";
		export var x = 1;
		export fun f() { }
	`)
	require.Empty(t, errs.Err())
	require.Len(t, chunk.Block.Stmts, 4)

	bare, ok := chunk.Block.Stmts[0].(*ast.ImportStmt)
	require.True(t, ok)
	assert.Nil(t, bare.Name)

	named, ok := chunk.Block.Stmts[1].(*ast.ImportStmt)
	require.True(t, ok)
	require.NotNil(t, named.Name)
	assert.Equal(t, "m", named.Name.Lit)

	_, ok = chunk.Block.Stmts[2].(*ast.ExportStmt)
	assert.True(t, ok)
	_, ok = chunk.Block.Stmts[3].(*ast.ExportStmt)
	assert.True(t, ok)
}

func TestParseMultiAssign(t *testing.T) {
	chunk, errs := parse(t, `a, b = 1, 2;`)
	require.Empty(t, errs.Err())
	require.Len(t, chunk.Block.Stmts, 1)
	assign, ok := chunk.Block.Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	assert.Len(t, assign.Left, 2)
	assert.Len(t, assign.Right, 2)
}

func TestParseAugmentedAssign(t *testing.T) {
	chunk, errs := parse(t, `x += 1;`)
	require.Empty(t, errs.Err())
	assign, ok := chunk.Block.Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	assert.Equal(t, token.PLUS_EQ, assign.AssignTok)
}

func TestParseExprPrecedence(t *testing.T) {
	chunk, errs := parse(t, `x = 1 + 2 * 3;`)
	require.Empty(t, errs.Err())
	assign, ok := chunk.Block.Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	bin, ok := assign.Right[0].(*ast.BinOpExpr)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, bin.Type)
	rhs, ok := bin.Right.(*ast.BinOpExpr)
	require.True(t, ok)
	assert.Equal(t, token.STAR, rhs.Type)
}

func TestParseCallChain(t *testing.T) {
	chunk, errs := parse(t, `a.b[0](1, 2);`)
	require.Empty(t, errs.Err())
	stmt, ok := chunk.Block.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
	call, ok := stmt.Expr.(*ast.CallExpr)
	require.True(t, ok)
	assert.Len(t, call.Args, 2)
	idx, ok := call.Fn.(*ast.IndexExpr)
	require.True(t, ok)
	_, ok = idx.Prefix.(*ast.DotExpr)
	assert.True(t, ok)
}

func TestParseMapAndArrayLiterals(t *testing.T) {
	chunk, errs := parse(t, `x = { a: 1, "b": 2, [c]: 3 };`)
	require.Empty(t, errs.Err())
	assign, ok := chunk.Block.Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	m, ok := assign.Right[0].(*ast.MapExpr)
	require.True(t, ok)
	assert.Len(t, m.Items, 3)

	chunk, errs = parse(t, `x = [1, 2, 3];`)
	require.Empty(t, errs.Err())
	assign, ok = chunk.Block.Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	arr, ok := assign.Right[0].(*ast.ArrayLikeExpr)
	require.True(t, ok)
	assert.Len(t, arr.Items, 3)
}

func TestParseSyntaxErrorRecovery(t *testing.T) {
	chunk, errs := parse(t, `
		var x = ;
		var y = 1;
	`)
	require.Error(t, errs.Err())
	require.Len(t, chunk.Block.Stmts, 2)
	_, ok := chunk.Block.Stmts[0].(*ast.BadStmt)
	assert.True(t, ok)
	y, ok := chunk.Block.Stmts[1].(*ast.AssignStmt)
	require.True(t, ok)
	assert.True(t, y.Decl.IsValid())
}
