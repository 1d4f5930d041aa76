// Package diag renders VM execution errors and run statistics for a
// human reader. It is grounded on the teacher's internal/errors
// package — same "typed error + call-stack snapshot" shape, the same
// Error()-string-building approach — generalized from source
// file/line/column locations to this domain's frame model
// (function name + instruction pointer), and extended with
// github.com/dustin/go-humanize for the CLI's --stats output, which
// the teacher's plain fmt-based formatting never had cause to use.
package diag

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"bcvm/internal/vm"
)

// FrameInfo is one call-stack entry in a rendered Diagnostic,
// replacing the teacher's StackFrame{Function,File,Line,Column} with
// this domain's {Function,IP}.
type FrameInfo struct {
	Function string
	IP       int
}

// Diagnostic is the rendered form of a *vm.ExecError plus the frame
// stack active when it occurred, mirroring the teacher's SentraError.
type Diagnostic struct {
	Kind    vm.ErrKind
	Message string
	Frames  []FrameInfo
}

// FromExecError captures err's kind/message together with a snapshot
// of p's current call stack (innermost frame first), down to and
// including the permanent bottom main frame.
func FromExecError(err *vm.ExecError, p *vm.Program) *Diagnostic {
	d := &Diagnostic{Kind: err.Kind, Message: err.Error()}
	frames := p.Frames
	for i := len(frames) - 1; i >= 0; i-- {
		fr := frames[i]
		fn := p.Function(fr.FuncID)
		d.Frames = append(d.Frames, FrameInfo{Function: fn.Name, IP: fr.IP})
	}
	return d
}

// Error renders the diagnostic: kind/message header followed by an
// indented call-stack trace, newest frame first.
func (d *Diagnostic) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", d.Kind, d.Message)
	if len(d.Frames) > 0 {
		sb.WriteString("\nCall Stack:\n")
		for _, f := range d.Frames {
			fmt.Fprintf(&sb, "  at %s (ip=%s)\n", f.Function, humanize.Comma(int64(f.IP)))
		}
	}
	return sb.String()
}

// Stats formats an opcode-dispatch count and elapsed wall time the
// way the CLI's `--stats` flag reports a run, e.g. "3,241,009 opcodes
// in 410ms (avg 126ns/op)".
func Stats(opCount uint64, elapsed time.Duration) string {
	avg := time.Duration(0)
	if opCount > 0 {
		avg = elapsed / time.Duration(opCount)
	}
	return fmt.Sprintf("%s opcodes in %s (avg %s/op)",
		humanize.Comma(int64(opCount)), elapsed.Round(time.Millisecond), avg)
}

// Digits renders a digit count with thousands separators, e.g.
// "12,345 digits", grouping large magnitudes for readability (bc
// numbers can easily run into the thousands of digits once precision
// climbs). The CLI's --stats output does not call it.
func Digits(n int) string {
	return humanize.Comma(int64(n)) + " digits"
}
