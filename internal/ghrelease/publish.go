package ghrelease

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"gridrelease/internal/cmdrun"
	"gridrelease/internal/config"
	"gridrelease/internal/hostenv"
	"gridrelease/internal/relerr"
	"gridrelease/internal/status"
)

// Publisher uploads the built artifacts to the package index.
type Publisher struct {
	env    *hostenv.Environment
	cfg    *config.Config
	run    *cmdrun.Runner
	report *status.Reporter
}

// NewPublisher returns a Publisher for the project at env.WorkDir.
func NewPublisher(env *hostenv.Environment, cfg *config.Config, run *cmdrun.Runner, report *status.Reporter) *Publisher {
	return &Publisher{env: env, cfg: cfg, run: run, report: report}
}

// Publish uploads every artifact in the dist directory. With staging set
// the upload targets the staging index instead of production.
func (p *Publisher) Publish(ctx context.Context, staging bool) error {
	if staging {
		p.report.Step("Publishing to staging index...")
	} else {
		p.report.Step("Publishing to production index...")
	}

	artifacts, err := afero.Glob(p.env.Fs, filepath.Join(p.env.WorkDir, p.cfg.Dirs.Dist, "*"))
	if err != nil {
		return relerr.Wrap(relerr.IOFailure, err, "list %s directory", p.cfg.Dirs.Dist)
	}
	if len(artifacts) == 0 {
		return relerr.New(relerr.ArtifactMissing, "nothing to publish: %s/ is empty", p.cfg.Dirs.Dist)
	}

	args := []string{"upload"}
	if staging {
		args = append(args, "--repository", "testpypi")
	}
	args = append(args, artifacts...)

	outcome, err := p.run.Run(ctx, cmdrun.Command{
		Binary:  p.cfg.Tools.Twine,
		Args:    args,
		Timeout: p.cfg.Timeouts.Command,
	}, "Uploading package")
	if err != nil {
		return relerr.Wrap(relerr.MissingRequirement, err, "publishing tool unavailable")
	}
	if !outcome.Success {
		p.report.Raw(outcome.Stdout)
		p.report.Raw(outcome.Stderr)
		return relerr.New(relerr.CommandFailure, "upload failed (exit code %d)", outcome.ExitCode)
	}

	p.report.OK("Package published successfully")
	return nil
}
