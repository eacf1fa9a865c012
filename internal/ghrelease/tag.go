// Package ghrelease integrates with version control and the release host:
// git tags, GitHub releases, release notes, and publishing the built
// artifacts to the package index. Every external call goes through the
// command runner; this package owns no long-lived state.
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

// Tagger creates and pushes annotated release tags.
type Tagger struct {
	cfg    *config.Config
	run    *cmdrun.Runner
	report *status.Reporter
	log    *zap.Logger
}

// NewTagger returns a Tagger using the configured git binary.
func NewTagger(cfg *config.Config, run *cmdrun.Runner, report *status.Reporter, log *zap.Logger) *Tagger {
	return &Tagger{cfg: cfg, run: run, report: report, log: log}
}

// TagName maps a version to its tag.
func TagName(version string) string {
	return "v" + version
}

// EnsureTag creates and pushes the annotated tag for version. If the tag
// already exists it is treated as success without a duplicate creation
// call, so re-invocation after a partial failure is safe.
func (t *Tagger) EnsureTag(ctx context.Context, version string) error {
	tag := TagName(version)
	t.report.Step("Creating git tag: %s", tag)

	list, err := t.run.Run(ctx, cmdrun.Command{
		Binary:  t.cfg.Tools.Git,
		Args:    []string{"tag", "-l", tag},
		Timeout: t.cfg.Timeouts.Command,
	}, "Checking for existing tag "+tag)
	if err != nil {
		return relerr.Wrap(relerr.MissingRequirement, err, "git unavailable")
	}
	if list.Success && tagListed(list.Stdout, tag) {
		t.report.Warn("Tag %s already exists", tag)
		t.log.Info("tag exists, skipping creation", zap.String("tag", tag))
		return nil
	}

	create, err := t.run.Run(ctx, cmdrun.Command{
		Binary:  t.cfg.Tools.Git,
		Args:    []string{"tag", "-a", tag, "-m", "Release " + tag},
		Timeout: t.cfg.Timeouts.Command,
	}, "Creating tag "+tag)
	if err != nil {
		return relerr.Wrap(relerr.MissingRequirement, err, "git unavailable")
	}
	if !create.Success {
		t.report.Raw(create.Stderr)
		return relerr.New(relerr.CommandFailure, "tag creation failed (exit code %d)", create.ExitCode)
	}

	push, err := t.run.Run(ctx, cmdrun.Command{
		Binary:  t.cfg.Tools.Git,
		Args:    []string{"push", "origin", tag},
		Timeout: t.cfg.Timeouts.Command,
	}, "Pushing tag "+tag)
	if err != nil {
		return relerr.Wrap(relerr.MissingRequirement, err, "git unavailable")
	}
	if !push.Success {
		t.report.Raw(push.Stderr)
		return relerr.New(relerr.CommandFailure, "tag push failed (exit code %d)", push.ExitCode)
	}

	t.report.OK("Tag %s created and pushed", tag)
	return nil
}

// tagListed reports whether `git tag -l` output names the tag exactly.
// A substring match would confuse v1.0.0 with v1.0.0-rc1.
func tagListed(stdout, tag string) bool {
	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) == tag {
			return true
		}
	}
	return false
}
