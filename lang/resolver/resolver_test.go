package resolver_test

import (
	"context"
	"testing"

	"github.com/lumen-lang/lumen/lang/ast"
	"github.com/lumen-lang/lumen/lang/parser"
	"github.com/lumen-lang/lumen/lang/resolver"
	"github.com/lumen-lang/lumen/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveSrc(t *testing.T, src string, isPredeclared, isUniversal func(string) bool) (*ast.Chunk, error) {
	t.Helper()
	return resolveSrcFull(t, src, isPredeclared, isUniversal, noNames)
}

func resolveSrcFull(t *testing.T, src string, isPredeclared, isUniversal, isGlobal func(string) bool) (*ast.Chunk, error) {
	t.Helper()
	fset := token.NewFileSet()
	chunk, perrs := parser.ParseChunk(fset, "test.lumen", []byte(src))
	require.NoError(t, perrs.Err())
	err := resolver.ResolveFiles(context.Background(), fset, []*ast.Chunk{chunk}, 0, isPredeclared, isUniversal, isGlobal)
	return chunk, err
}

func noNames(string) bool { return false }

func TestResolveLocalVar(t *testing.T) {
	chunk, err := resolveSrc(t, `var x = 1; x = x + 1;`, noNames, noNames)
	require.NoError(t, err)

	assign := chunk.Block.Stmts[1].(*ast.AssignStmt)
	ident := assign.Left[0].(*ast.IdentExpr)
	bdg := ident.Binding.(*resolver.Binding)
	assert.Equal(t, resolver.Local, bdg.Scope)
}

func TestResolveUndefined(t *testing.T) {
	_, err := resolveSrc(t, `x = 1;`, noNames, noNames)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined: x")
}

func TestResolveDuplicateDeclaration(t *testing.T) {
	_, err := resolveSrc(t, `var x = 1; var x = 2;`, noNames, noNames)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already declared")
}

func TestResolveShadowInChildBlockOK(t *testing.T) {
	_, err := resolveSrc(t, `
		var x = 1;
		if (x < 2) {
			var x = 2;
			x = x + 1;
		}
	`, noNames, noNames)
	require.NoError(t, err)
}

func TestResolveClosureCapture(t *testing.T) {
	chunk, err := resolveSrc(t, `
		fun outer() {
			var x = 1;
			fun inner() {
				return x;
			}
			return inner;
		}
	`, noNames, noNames)
	require.NoError(t, err)

	outer := chunk.Block.Stmts[0].(*ast.FuncStmt)
	outerFn := outer.Function.(*resolver.Function)
	require.Len(t, outerFn.Locals, 2) // x, inner
	xBdg := outerFn.Locals[0]
	assert.Equal(t, resolver.Cell, xBdg.Scope)
}

func TestResolveBreakOutsideLoopIsError(t *testing.T) {
	_, err := resolveSrc(t, `break;`, noNames, noNames)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside a loop")
}

func TestResolveBreakInsideLoopOK(t *testing.T) {
	_, err := resolveSrc(t, `while (true) { break; continue; }`, noNames, noNames)
	require.NoError(t, err)
}

func TestResolveYieldOutsideSequenceIsError(t *testing.T) {
	_, err := resolveSrc(t, `
		fun f() {
			return yield 1;
		}
	`, noNames, noNames)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yield outside sequence")
}

func TestResolveYieldInsideSequenceOK(t *testing.T) {
	_, err := resolveSrc(t, `
		seq f() {
			yield 1;
		}
	`, noNames, noNames)
	require.NoError(t, err)
}

func TestResolveForInLoopVars(t *testing.T) {
	chunk, err := resolveSrc(t, `
		var xs = [1, 2, 3];
		foreach (i, v in xs) {
			v = v + i;
		}
	`, noNames, noNames)
	require.NoError(t, err)
	_, ok := chunk.Block.Stmts[1].(*ast.ForInStmt)
	assert.True(t, ok)
}

func TestResolveTryCatchParam(t *testing.T) {
	_, err := resolveSrc(t, `
		try {
			throw "boom";
		} catch (e) {
			var msg = e;
		}
	`, noNames, noNames)
	require.NoError(t, err)
}

func TestResolvePredeclaredAndUniversal(t *testing.T) {
	isPre := func(n string) bool { return n == "args" }
	isUniv := func(n string) bool { return n == "print" }
	chunk, err := resolveSrc(t, `print(args);`, isPre, isUniv)
	require.NoError(t, err)

	stmt := chunk.Block.Stmts[0].(*ast.ExprStmt)
	call := stmt.Expr.(*ast.CallExpr)
	fnIdent := call.Fn.(*ast.IdentExpr)
	bdg := fnIdent.Binding.(*resolver.Binding)
	assert.Equal(t, resolver.Universal, bdg.Scope)

	argIdent := call.Args[0].(*ast.IdentExpr)
	argBdg := argIdent.Binding.(*resolver.Binding)
	assert.Equal(t, resolver.Predeclared, argBdg.Scope)
}

func TestResolveGlobal(t *testing.T) {
	isGlobal := func(n string) bool { return n == "counter" }
	chunk, err := resolveSrcFull(t, `counter = counter + 1;`, noNames, noNames, isGlobal)
	require.NoError(t, err)

	assign := chunk.Block.Stmts[0].(*ast.AssignStmt)
	ident := assign.Left[0].(*ast.IdentExpr)
	bdg := ident.Binding.(*resolver.Binding)
	assert.Equal(t, resolver.Global, bdg.Scope)
}

func TestResolveClosureCaptureFromSiblingBlocksDeduped(t *testing.T) {
	chunk, err := resolveSrc(t, `
		fun outer() {
			var x = 1;
			fun inner() {
				if (x < 10) {
					return x;
				} else {
					return x;
				}
			}
			return inner;
		}
	`, noNames, noNames)
	require.NoError(t, err)

	outer := chunk.Block.Stmts[0].(*ast.FuncStmt)
	outerFn := outer.Function.(*resolver.Function)
	require.Len(t, outerFn.Locals, 2) // x, inner

	// the inner function captures x from two sibling blocks (the if and
	// else branches, each with their own binding cache); both references
	// must resolve to the same FreeVars slot rather than appending a
	// duplicate entry per sibling.
	ifStmt := findFuncStmt(t, chunk).Body.Stmts[0].(*ast.IfStmt)
	thenReturn := ifStmt.Then.Stmts[0].(*ast.ReturnLikeStmt)
	elseReturn := ifStmt.Else.Stmts[0].(*ast.ReturnLikeStmt)

	thenBdg := thenReturn.Expr.(*ast.IdentExpr).Binding.(*resolver.Binding)
	elseBdg := elseReturn.Expr.(*ast.IdentExpr).Binding.(*resolver.Binding)

	assert.Equal(t, resolver.Free, thenBdg.Scope)
	assert.Equal(t, resolver.Free, elseBdg.Scope)
	assert.Equal(t, thenBdg.Index, elseBdg.Index)
}

// findFuncStmt returns the nested "inner" function statement declared
// inside the chunk's first (outer) function.
func findFuncStmt(t *testing.T, chunk *ast.Chunk) *ast.FuncStmt {
	t.Helper()
	outer := chunk.Block.Stmts[0].(*ast.FuncStmt)
	for _, s := range outer.Body.Stmts {
		if fs, ok := s.(*ast.FuncStmt); ok {
			return fs
		}
	}
	t.Fatal("inner function statement not found")
	return nil
}

func TestResolveVariadicFunction(t *testing.T) {
	chunk, err := resolveSrc(t, `
		fun f(a, ...rest) {
			return a;
		}
	`, noNames, noNames)
	require.NoError(t, err)
	fn := chunk.Block.Stmts[0].(*ast.FuncStmt).Function.(*resolver.Function)
	assert.True(t, fn.HasVarArg)
}
