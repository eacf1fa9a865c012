package ghrelease

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"gridrelease/internal/cmdrun"
	"gridrelease/internal/config"
	"gridrelease/internal/relerr"
	"gridrelease/internal/status"
)

// Host talks to the release-hosting service through its CLI.
type Host struct {
	cfg    *config.Config
	run    *cmdrun.Runner
	report *status.Reporter
	log    *zap.Logger
}

// NewHost returns a Host using the configured release-host CLI.
func NewHost(cfg *config.Config, run *cmdrun.Runner, report *status.Reporter, log *zap.Logger) *Host {
	return &Host{cfg: cfg, run: run, report: report, log: log}
}

// CheckAvailable verifies the release-host CLI is installed and
// authenticated before any release mutation happens.
func (h *Host) CheckAvailable(ctx context.Context) error {
	ver, err := h.run.Run(ctx, cmdrun.Command{
		Binary:  h.cfg.Tools.GitHub,
		Args:    []string{"--version"},
		Timeout: h.cfg.Timeouts.Command,
	}, "Checking release host CLI")
	if err != nil || !ver.Success {
		return relerr.New(relerr.MissingRequirement,
			"%s not found; install it from https://cli.github.com/", h.cfg.Tools.GitHub)
	}

	auth, err := h.run.Run(ctx, cmdrun.Command{
		Binary:  h.cfg.Tools.GitHub,
		Args:    []string{"auth", "status"},
		Timeout: h.cfg.Timeouts.Command,
	}, "Checking release host authentication")
	if err != nil {
		return relerr.Wrap(relerr.MissingRequirement, err, "release host CLI unavailable")
	}
	if !auth.Success {
		return relerr.New(relerr.MissingRequirement,
			"not authenticated with the release host; run: %s auth login", h.cfg.Tools.GitHub)
	}
	return nil
}

// CreateRelease publishes a release page for version with the generated
// notes file attached as the description.
func (h *Host) CreateRelease(ctx context.Context, version, title string, draft bool) error {
	if err := h.CheckAvailable(ctx); err != nil {
		return err
	}

	tag := TagName(version)
	h.report.Step("Creating release: %s", tag)

	args := []string{"release", "create", tag}
	if draft {
		args = append(args, "--draft")
	}
	args = append(args, "--title", title, "--notes-file", NotesFile)

	outcome, err := h.run.Run(ctx, cmdrun.Command{
		Binary:  h.cfg.Tools.GitHub,
		Args:    args,
		Timeout: h.cfg.Timeouts.Command,
	}, "Creating release "+tag)
	if err != nil {
		return relerr.Wrap(relerr.MissingRequirement, err, "release host CLI unavailable")
	}
	if !outcome.Success {
		h.report.Raw(outcome.Stderr)
		return relerr.New(relerr.CommandFailure, "release creation failed (exit code %d)", outcome.ExitCode)
	}

	h.report.OK("Release %s created", tag)
	h.log.Info("release created", zap.String("tag", tag), zap.Bool("draft", draft))
	return nil
}

// ListReleases prints the existing releases verbatim.
func (h *Host) ListReleases(ctx context.Context) error {
	h.report.Step("Existing releases:")

	outcome, err := h.run.Run(ctx, cmdrun.Command{
		Binary:  h.cfg.Tools.GitHub,
		Args:    []string{"release", "list"},
		Timeout: h.cfg.Timeouts.Command,
	}, "Listing releases")
	if err != nil {
		return relerr.Wrap(relerr.MissingRequirement, err, "release host CLI unavailable")
	}
	if !outcome.Success {
		return relerr.New(relerr.CommandFailure,
			"could not list releases; is the release host CLI authenticated?")
	}

	if strings.TrimSpace(outcome.Stdout) == "" {
		h.report.Info("No releases found")
		return nil
	}
	h.report.Raw(outcome.Stdout)
	return nil
}
