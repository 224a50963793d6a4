package compiler

import (
	"sync"

	"github.com/lumen-lang/lumen/lang/token"
)

// A Funcode is the code of a compiled function. Funcodes are serialized by
// the assembler's Dasm/Asm pair, which must be updated whenever this
// declaration is changed.
type Funcode struct {
	Prog       *Program
	Pos        token.Pos // position of the fun/seq keyword, or of the chunk for the top level
	Name       string    // name of this function, "" for anonymous function literals
	Code       []byte    // the byte code
	pclinetab  []uint32  // parallel to poslist: pc at which poslist[i] takes effect
	poslist    []token.Pos
	Locals     []Binding // locals, parameters first
	Cells      []int     // indices of Locals that require cells
	Freevars   []Binding // for tracing, captured from the enclosing function
	Handlers   []Handler // try/catch/finally protected ranges, outer to inner
	MaxStack   int
	NumParams  int
	HasVarargs bool
	IsSequence bool // true if this Funcode was declared with "seq" rather than "fun"

	// -- transient state --

	lntOnce sync.Once
}

// Binding names a local, parameter, or freevar slot, kept around purely for
// disassembly and error messages; the VM itself addresses slots by index.
type Binding struct {
	Name string
	Pos  token.Pos
}

// Handler is a protected region installed by a try statement. PC0 and PC1
// delimit the half-open instruction range [PC0, PC1) that the handler
// guards. CatchPC is the address to resume at with the error pushed on the
// stack, or 0 if there is no catch clause (finally-only try). FinallyPC is
// the address of the finally block to run before propagating, or 0 if there
// is none.
type Handler struct {
	PC0, PC1           uint32
	CatchPC, FinallyPC uint32
}

// A Program is the compiled form of a single source file (or of an
// assembled text program). It is immutable once returned by CompileFiles or
// Asm.
type Program struct {
	Filename  string
	Toplevel  *Funcode
	Functions []*Funcode    // nested functions/sequences, in declaration order
	Constants []interface{} // int64, float64 or string
	Names     []string      // names referenced by ATTR/SETFIELD/PREDECLARED/UNIVERSAL/GLOBAL/SETGLOBAL
	Loads     []Binding     // names imported by this program, in import order
	Exports   []Binding     // toplevel names marked with "export", in declaration order
}

// Position decodes the source position recorded for the instruction at pc,
// or the function's own position if no finer-grained entry was recorded.
func (fn *Funcode) Position(pc uint32) token.Pos {
	best := fn.Pos
	for i, p := range fn.pclinetab {
		if p > pc {
			break
		}
		best = fn.poslist[i]
	}
	return best
}

func (fn *Funcode) setPos(pc uint32, pos token.Pos) {
	fn.pclinetab = append(fn.pclinetab, pc)
	fn.poslist = append(fn.poslist, pos)
}
