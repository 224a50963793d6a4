package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/lumen-lang/lumen/lang/async"
	"github.com/lumen-lang/lumen/lang/compiler"
	"github.com/lumen-lang/lumen/lang/machine"
	"github.com/lumen-lang/lumen/lang/parser"
	"github.com/lumen-lang/lumen/lang/resolver"
	"github.com/lumen-lang/lumen/lang/scanner"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFiles(ctx, stdio, args...)
}

// RunFiles parses, resolves, compiles and executes each file as an
// independent toplevel program, in order. A file's predeclared
// identifiers are the "error" builtin (so a catch block can match the
// exact value a native call raises) and "async" (a scheduler for
// generator-backed tasks, bound fresh per program so two files never
// share ready-queue state). All files are parsed and resolved together
// first, and a parse or resolve error in any of them stops before any
// file runs; a runtime error in one file does not prevent the next file
// from running.
func RunFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	fs, chunks, perr := parser.ParseFiles(ctx, 0, files...)
	if perr != nil {
		scanner.PrintError(stdio.Stderr, perr)
		return perr
	}

	isPredeclared := func(name string) bool {
		return name == "error" || name == "async"
	}

	var resolveMode resolver.Mode
	if rerr := resolver.ResolveFiles(ctx, fs, chunks, resolveMode, isPredeclared, machine.IsUniverse, nil); rerr != nil {
		scanner.PrintError(stdio.Stderr, rerr)
		return rerr
	}

	progs := compiler.CompileFiles(ctx, fs, chunks)

	var lastErr error
	for _, p := range progs {
		th := &machine.Thread{
			Name:   p.Filename,
			Stdout: stdio.Stdout,
			Stderr: stdio.Stderr,
			Stdin:  stdio.Stdin,
		}
		th.Predeclared = map[string]machine.Value{
			"error": machine.ErrorBuiltin,
			"async": async.NewPredeclared(th),
		}

		v, err := th.RunProgram(ctx, p)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", p.Filename, err)
			lastErr = err
			continue
		}
		if v != nil && v != machine.Nil {
			fmt.Fprintln(stdio.Stdout, v)
		}
	}
	return lastErr
}
