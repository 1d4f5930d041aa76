// Package repl drives an interactive bcvm session. The surface
// grammar is out of scope (spec.md §1 Non-goals), so each line typed
// is compiled directly as one or more internal/asm instruction lines
// and appended to `main`'s code; Run then executes from wherever the
// previous line left the instruction pointer up to the new end of
// code, the same incremental-append model a real bc REPL uses once a
// lexer/parser sits in front of it.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"bcvm/internal/asm"
	"bcvm/internal/diag"
	"bcvm/internal/vm"
)

// Start runs an interactive loop over in/out until EOF or "quit".
// The prompt is suppressed when in is not a terminal (matching the
// teacher's interactive-vs-piped handling in cmd/sentra/main.go's REPL
// entry point), so piped input produces only program output.
// Assembly errors and execution diagnostics are written to out either
// way.
func Start(in *os.File, out io.Writer) {
	interactive := isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd())

	prog := vm.NewProgram()
	prog.Out = out
	prog.In = in
	a := asm.New(prog)
	a.Func("main", 0, nil)

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, ">>> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "quit" || line == "exit" {
			break
		}
		if line == "" {
			continue
		}
		if err := a.Assemble(line); err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if execErr := prog.Run(); execErr != nil {
			if vm.IsQuit(execErr) {
				break
			}
			d := diag.FromExecError(execErr, prog)
			fmt.Fprint(out, d.Error())
		}
	}
}
