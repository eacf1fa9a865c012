// Package cmdrun executes external release tools as argument vectors.
// Commands are never routed through a shell: the binary and its arguments
// are explicit, which removes quoting and injection ambiguity. A non-zero
// exit is a normal result, not a Go error; only environment-level failures
// (the binary does not exist at all) surface as errors.
package cmdrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"gridrelease/internal/hostenv"
	"gridrelease/internal/status"
)

// ErrToolMissing indicates the requested binary could not be found in the
// environment. Callers treat this as a missing required tool.
var ErrToolMissing = errors.New("required tool not found")

// Command specifies one external tool invocation.
type Command struct {
	Binary string
	Args   []string

	// Dir overrides the working directory; empty means the environment's
	// project directory.
	Dir string

	// Timeout bounds the invocation. Zero means no bound; the executable
	// smoke test is the only step with a default bound.
	Timeout time.Duration
}

// String renders the invocation for logs and status lines.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Outcome is the structured result of one invocation. It is immutable once
// produced and owned by the step that requested the run.
type Outcome struct {
	Success  bool
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Runner is the sole egress to the operating environment. It blocks until
// the command completes or times out; there is no retry policy here.
type Runner struct {
	env    *hostenv.Environment
	report *status.Reporter
	log    *zap.Logger
}

// NewRunner returns a Runner bound to env.
func NewRunner(env *hostenv.Environment, report *status.Reporter, log *zap.Logger) *Runner {
	return &Runner{env: env, report: report, log: log}
}

// Run executes cmd and captures its output. description is the operator
// facing name of the operation ("Building source distribution and wheel").
func (r *Runner) Run(ctx context.Context, cmd Command, description string) (*Outcome, error) {
	r.report.Step("%s...", description)
	r.log.Debug("running command",
		zap.String("binary", cmd.Binary),
		zap.Strings("args", cmd.Args),
		zap.String("dir", cmd.Dir),
		zap.Duration("timeout", cmd.Timeout))

	if _, err := r.env.LookPath(cmd.Binary); err != nil {
		r.report.Fail("%s failed: %s is not installed", description, cmd.Binary)
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, cmd.Binary)
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	execCmd := exec.CommandContext(runCtx, cmd.Binary, cmd.Args...)
	execCmd.Dir = cmd.Dir
	if execCmd.Dir == "" {
		execCmd.Dir = r.env.WorkDir
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	start := time.Now()
	err := execCmd.Run()
	outcome := &Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		outcome.Success = true
		r.report.OK("%s completed successfully", description)
	case runCtx.Err() == context.DeadlineExceeded:
		outcome.TimedOut = true
		outcome.ExitCode = -1
		r.report.Fail("%s timed out after %s", description, cmd.Timeout)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
			r.report.Fail("%s failed (exit code %d)", description, outcome.ExitCode)
		} else {
			// Started but failed for a reason other than exit status.
			r.report.Fail("%s failed: %v", description, err)
			return nil, fmt.Errorf("%s: %w", cmd.Binary, err)
		}
	}

	r.log.Debug("command finished",
		zap.String("binary", cmd.Binary),
		zap.Bool("success", outcome.Success),
		zap.Int("exit_code", outcome.ExitCode),
		zap.Bool("timed_out", outcome.TimedOut),
		zap.Duration("duration", outcome.Duration))
	return outcome, nil
}

// Probe reports whether a tool is available in the environment without
// running it. Used by requirement checks.
func (r *Runner) Probe(name string) bool {
	_, err := r.env.LookPath(name)
	return err == nil
}
