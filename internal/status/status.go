// Package status renders the operator-facing progress stream. These lines
// are for the human running a release; structured diagnostics go to the
// zap logger instead. The writer is injected so tests can capture output.
package status

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Reporter writes human-readable progress lines for pipeline steps.
type Reporter struct {
	mu  sync.Mutex
	out io.Writer

	stepTint *color.Color
	okTint   *color.Color
	warnTint *color.Color
	failTint *color.Color
	infoTint *color.Color
}

// NewReporter returns a Reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{
		out:      out,
		stepTint: color.New(color.FgCyan, color.Bold),
		okTint:   color.New(color.FgGreen),
		warnTint: color.New(color.FgYellow),
		failTint: color.New(color.FgRed, color.Bold),
		infoTint: color.New(color.Faint),
	}
}

// Step announces that a step is starting.
func (r *Reporter) Step(format string, args ...interface{}) {
	r.line(r.stepTint, "[RUNNING]", format, args...)
}

// OK reports a completed step.
func (r *Reporter) OK(format string, args ...interface{}) {
	r.line(r.okTint, "[SUCCESS]", format, args...)
}

// Warn reports a non-fatal problem.
func (r *Reporter) Warn(format string, args ...interface{}) {
	r.line(r.warnTint, "[WARNING]", format, args...)
}

// Fail reports a fatal step failure.
func (r *Reporter) Fail(format string, args ...interface{}) {
	r.line(r.failTint, "[ERROR]", format, args...)
}

// Info reports a detail line, indented under the current step.
func (r *Reporter) Info(format string, args ...interface{}) {
	r.line(r.infoTint, "   ", format, args...)
}

// Raw writes tool output verbatim, without a tag. Used to surface captured
// stdout/stderr to the operator exactly as the tool produced it.
func (r *Reporter) Raw(s string) {
	if s == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, s)
	if s[len(s)-1] != '\n' {
		fmt.Fprintln(r.out)
	}
}

func (r *Reporter) line(tint *color.Color, tag, format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s %s\n", tint.Sprint(tag), fmt.Sprintf(format, args...))
}
