package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/lumen-lang/lumen/lang/token"
)

// Printer controls pretty-printing of AST nodes, one per line, indented by
// nesting depth.
type Printer struct {
	// Output is the io.Writer to print to.
	Output io.Writer

	// Fset resolves positions to file:line:col for printing. If nil,
	// positions are omitted.
	Fset *token.FileSet

	// NodeFmt is the format string used to print each node. The verb must be
	// 's' or 'v'; a width and the '#'/'-'/'+' flags are supported (see
	// Node.Format). Defaults to "%v".
	NodeFmt string
}

// Print pretty-prints n and its descendants.
func (p *Printer) Print(n Node) error {
	pp := &printer{w: p.Output, fset: p.Fset, nodeFmt: p.NodeFmt}
	if pp.nodeFmt == "" {
		pp.nodeFmt = "%v"
	}
	Walk(pp, n)
	return pp.err
}

type printer struct {
	w       io.Writer
	fset    *token.FileSet
	nodeFmt string
	depth   int
	err     error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit || p.err != nil {
		p.depth--
		return nil
	}
	p.depth++
	p.printNode(n, p.depth-1)
	return p
}

func (p *printer) printNode(n Node, indent int) {
	if p.err != nil {
		return
	}

	format := "%s"
	args := []interface{}{strings.Repeat(". ", indent)}
	if p.fset != nil {
		format += "[%s:%s] "
		start, end := n.Span()
		args = append(args, p.fset.Position(start), p.fset.Position(end))
	}
	format += p.nodeFmt + "\n"
	args = append(args, n)

	_, p.err = fmt.Fprintf(p.w, format, args...)
}
