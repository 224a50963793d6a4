package scanner

import (
	"fmt"
	"sort"

	"github.com/lumen-lang/lumen/lang/token"
)

// ErrorList is a list of lexical/syntactic/semantic errors, each tagged with
// the token.Position at which it occurred. It implements the error
// interface and keeps its entries sorted by position once Sort is called,
// mirroring the shape of go/scanner.ErrorList adapted to this package's own
// token.Position type.
type ErrorList []*Error

// Error is a single entry in an ErrorList.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	if e.Pos.Filename != "" || e.Pos.Line != 0 {
		return e.Pos.String() + ": " + e.Msg
	}
	return e.Msg
}

// Add appends an error at pos with the given message.
func (el *ErrorList) Add(pos token.Position, msg string) {
	*el = append(*el, &Error{Pos: pos, Msg: msg})
}

// Sort orders the list by position (filename, then offset).
func (el ErrorList) Sort() {
	sort.Slice(el, func(i, j int) bool {
		a, b := el[i].Pos, el[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Offset < b.Offset
	})
}

func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", el[0].Error(), len(el)-1)
}

// Err returns el as an error if it is non-empty, else nil.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}
