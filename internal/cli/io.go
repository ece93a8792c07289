package cli

import (
	"fmt"
	"io"
)

// IO is the output of one command. Results go to stdout; notes about the
// result (a table skipped by an export, an unknown --cols name) are collected
// with Warnf and written to stderr after the command finishes, so piped
// output stays machine-readable.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
}

// NewIO creates a new IO instance.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Out returns the stdout writer for renderers.
func (o *IO) Out() io.Writer { return o.out }

// Warnf records a warning. Warnings do not change the exit code.
func (o *IO) Warnf(format string, a ...any) {
	o.warnings = append(o.warnings, fmt.Sprintf(format, a...))
}

// Warnings returns the warnings recorded so far.
func (o *IO) Warnings() []string { return o.warnings }

// Println writes to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish writes the collected warnings to stderr, once.
func (o *IO) Finish() {
	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	o.warnings = nil
}
