package resolver

import (
	"fmt"

	"github.com/lumen-lang/lumen/lang/ast"
)

// Scope indicates what kind of scope a Binding has.
type Scope uint8

const (
	Undefined   Scope = iota // name is not defined
	Local                    // name is local to its function
	Cell                     // name is function-local but shared with a nested function
	Free                     // name is a cell captured from an enclosing function
	Predeclared              // name is predeclared for this module (provided to its environment)
	Universal                // name is universal (a language built-in)
	Global                   // name lives in the VM-wide global object, host-registered and mutable
)

var scopeNames = [...]string{
	Undefined:   "undefined",
	Local:       "local",
	Cell:        "cell",
	Free:        "free",
	Predeclared: "predeclared",
	Universal:   "universal",
	Global:      "global",
}

func (s Scope) String() string {
	if int(s) >= len(scopeNames) {
		return fmt.Sprintf("<invalid Scope %d>", s)
	}
	return scopeNames[s]
}

// A Binding contains resolver information about an identifier. The resolver
// creates a binding for each declaration and ties together all identifiers
// that denote the same variable.
type Binding struct {
	Scope Scope

	// Index records the index into the enclosing
	// - function's Locals, if Scope==Local or Scope==Cell
	// - function's FreeVars, if Scope==Free
	// It is zero if Scope is Predeclared, Universal, or Undefined.
	Index int

	// Decl is the node that declares this binding: an *ast.IdentExpr for a
	// parameter, var declaration or foreach binding.
	Decl ast.Node

	// BlockName is the name assigned to the binding's block by NameBlocks,
	// used only for debugging/printing the resolved tree; empty otherwise.
	BlockName string
}

// Function holds the resolver's view of a single function (or the top-level
// chunk, which is treated as an implicit function).
type Function struct {
	// Definition is the node that introduces this function: *ast.Chunk,
	// *ast.FuncStmt or *ast.FuncExpr.
	Definition ast.Node

	// IsSeq is true when Definition declares a sequence (generator) rather
	// than an ordinary function; it controls whether yield is permitted in
	// the function's body.
	IsSeq bool

	// HasVarArg is true when the function's last parameter is variadic.
	HasVarArg bool

	Locals   []*Binding // this function's local/cell variables, parameters first
	FreeVars []*Binding // enclosing cells to capture in the closure

	// loops counts the nesting depth of loop bodies currently open in this
	// function, used to validate break/continue.
	loops int
}
