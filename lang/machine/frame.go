package machine

import "github.com/lumen-lang/lumen/lang/token"

// Frame records a call to a Callable value (including module toplevel) or a
// built-in function.
type Frame struct {
	callable Callable // current function (or toplevel) or callable
	pc       uint32   // program counter (non built-in only)
}

// Position returns the source position of the current point of execution in
// this frame, or zero if the frame's callable does not track one.
func (fr *Frame) Position() token.Pos {
	switch c := fr.callable.(type) {
	case *Function:
		return c.Funcode.Position(fr.pc)
	case callableWithPosition:
		return c.Position()
	}
	return 0
}

type callableWithPosition interface {
	Callable
	Position() token.Pos
}
