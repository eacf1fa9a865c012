// Package buildtool drives the package build tools: cleaning build state,
// probing tool availability, building the distributable artifacts, and
// smoke-testing an installation in an ephemeral environment.
package buildtool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"gridrelease/internal/cmdrun"
	"gridrelease/internal/config"
	"gridrelease/internal/hostenv"
	"gridrelease/internal/relerr"
	"gridrelease/internal/status"
)

// Requirements is the outcome of the tool availability probe. Every
// missing tool is enumerated; the probe never stops at the first.
type Requirements struct {
	MissingRequired []string
	MissingOptional []string
}

// OK reports whether the pipeline may proceed.
func (r Requirements) OK() bool {
	return len(r.MissingRequired) == 0
}

// Builder invokes the build tool and the artifact checker.
type Builder struct {
	env    *hostenv.Environment
	cfg    *config.Config
	run    *cmdrun.Runner
	report *status.Reporter
	log    *zap.Logger
}

// NewBuilder returns a Builder bound to env and cfg.
func NewBuilder(env *hostenv.Environment, cfg *config.Config, run *cmdrun.Runner, report *status.Reporter, log *zap.Logger) *Builder {
	return &Builder{env: env, cfg: cfg, run: run, report: report, log: log}
}

// Clean removes prior build and staging state: the build and dist
// directories, *.egg-info, and every __pycache__ under the project.
// Deletion problems are warnings, never pipeline failures; a directory
// that is already gone is not an error.
func (b *Builder) Clean(ctx context.Context) {
	b.report.Step("Cleaning build artifacts...")

	targets := []string{
		filepath.Join(b.env.WorkDir, b.cfg.Dirs.Build),
		filepath.Join(b.env.WorkDir, b.cfg.Dirs.Dist),
	}
	if matches, err := afero.Glob(b.env.Fs, filepath.Join(b.env.WorkDir, "*.egg-info")); err == nil {
		targets = append(targets, matches...)
	}

	for _, target := range targets {
		b.removeTree(target)
	}

	// Python bytecode caches can appear at any depth.
	_ = afero.Walk(b.env.Fs, b.env.WorkDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() && info.Name() == "__pycache__" {
			b.removeTree(path)
			return filepath.SkipDir
		}
		return nil
	})

	b.report.OK("Clean completed")
}

func (b *Builder) removeTree(path string) {
	exists, err := afero.DirExists(b.env.Fs, path)
	if err != nil || !exists {
		return
	}
	if err := b.env.Fs.RemoveAll(path); err != nil {
		b.report.Warn("could not remove %s: %v", path, err)
		b.log.Warn("clean target not removed", zap.String("path", path), zap.Error(err))
		return
	}
	b.report.Info("Removed %s", path)
}

// CheckRequirements probes every required and optional tool and returns
// the full set of missing ones.
func (b *Builder) CheckRequirements(ctx context.Context) Requirements {
	b.report.Step("Checking requirements...")

	required := []string{b.cfg.Tools.Python, b.cfg.Tools.Pip, b.cfg.Tools.Twine}
	optional := []string{b.cfg.Tools.PyInstaller}

	var reqs Requirements
	for _, tool := range required {
		if b.run.Probe(tool) {
			b.report.Info("%s is available", tool)
			continue
		}
		b.report.Info("%s is missing", tool)
		reqs.MissingRequired = append(reqs.MissingRequired, tool)
	}
	for _, tool := range optional {
		if b.run.Probe(tool) {
			b.report.Info("%s is available", tool)
			continue
		}
		b.report.Info("%s is missing (optional, needed for executables)", tool)
		reqs.MissingOptional = append(reqs.MissingOptional, tool)
	}

	if len(reqs.MissingRequired) > 0 {
		b.report.Fail("Missing required tools: %s", strings.Join(reqs.MissingRequired, ", "))
		b.report.Info("Install them before building: pip install twine build")
	}
	if len(reqs.MissingOptional) > 0 {
		b.report.Warn("Missing optional tools: %s", strings.Join(reqs.MissingOptional, ", "))
		b.report.Info("Install them to create standalone executables: pip install pyinstaller")
	}
	return reqs
}

// Build produces the distributable artifacts and validates them with the
// artifact checker. It fails fast on the first failing step and attempts
// no partial recovery.
func (b *Builder) Build(ctx context.Context) error {
	outcome, err := b.run.Run(ctx, cmdrun.Command{
		Binary:  b.cfg.Tools.Python,
		Args:    []string{"-m", "build"},
		Timeout: b.cfg.Timeouts.Command,
	}, "Building source distribution and wheel")
	if err != nil {
		return relerr.Wrap(relerr.MissingRequirement, err, "build tool unavailable")
	}
	if !outcome.Success {
		b.report.Raw(outcome.Stdout)
		b.report.Raw(outcome.Stderr)
		return relerr.New(relerr.CommandFailure, "package build failed (exit code %d)", outcome.ExitCode)
	}

	artifacts, err := b.DistArtifacts()
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		return relerr.New(relerr.ArtifactMissing, "build reported success but %s/ contains no artifacts", b.cfg.Dirs.Dist)
	}

	check, err := b.run.Run(ctx, cmdrun.Command{
		Binary:  b.cfg.Tools.Twine,
		Args:    append([]string{"check"}, artifacts...),
		Timeout: b.cfg.Timeouts.Command,
	}, "Checking built package")
	if err != nil {
		return relerr.Wrap(relerr.MissingRequirement, err, "artifact checker unavailable")
	}
	if !check.Success {
		b.report.Raw(check.Stdout)
		b.report.Raw(check.Stderr)
		return relerr.New(relerr.CommandFailure, "artifact check failed (exit code %d)", check.ExitCode)
	}
	return nil
}

// DistArtifacts lists the files currently in the dist directory. The glob
// is expanded here because commands are argument vectors, not shell lines.
func (b *Builder) DistArtifacts() ([]string, error) {
	matches, err := afero.Glob(b.env.Fs, filepath.Join(b.env.WorkDir, b.cfg.Dirs.Dist, "*"))
	if err != nil {
		return nil, relerr.Wrap(relerr.IOFailure, err, "list %s directory", b.cfg.Dirs.Dist)
	}
	return matches, nil
}

// TestInstall installs the built wheel into an ephemeral virtual
// environment and import-smoke-tests it. The environment is always
// removed afterwards, pass or fail.
func (b *Builder) TestInstall(ctx context.Context) error {
	b.report.Step("Testing package installation...")

	testDir := filepath.Join(b.env.WorkDir, b.cfg.Dirs.TestInstall)
	if err := b.env.Fs.RemoveAll(testDir); err != nil {
		return relerr.Wrap(relerr.IOFailure, err, "reset %s", testDir)
	}
	if err := b.env.Fs.MkdirAll(testDir, 0o755); err != nil {
		return relerr.Wrap(relerr.IOFailure, err, "create %s", testDir)
	}
	defer func() {
		if err := b.env.Fs.RemoveAll(testDir); err != nil {
			b.report.Warn("could not remove %s: %v", testDir, err)
		}
	}()

	venvDir := filepath.Join(testDir, "venv")
	outcome, err := b.run.Run(ctx, cmdrun.Command{
		Binary:  b.cfg.Tools.Python,
		Args:    []string{"-m", "venv", venvDir},
		Timeout: b.cfg.Timeouts.Command,
	}, "Creating test virtual environment")
	if err != nil || !outcome.Success {
		return b.commandError(outcome, err, "virtual environment creation failed")
	}

	wheels, err := afero.Glob(b.env.Fs, filepath.Join(b.env.WorkDir, b.cfg.Dirs.Dist, "*.whl"))
	if err != nil {
		return relerr.Wrap(relerr.IOFailure, err, "list built wheels")
	}
	if len(wheels) == 0 {
		return relerr.New(relerr.ArtifactMissing, "no wheel in %s/ to install", b.cfg.Dirs.Dist)
	}

	pip, python := venvTools(venvDir, b.env.Platform)
	install, err := b.run.Run(ctx, cmdrun.Command{
		Binary:  pip,
		Args:    append([]string{"install"}, wheels...),
		Timeout: b.cfg.Timeouts.Command,
	}, "Installing package in test environment")
	if err != nil || !install.Success {
		return b.commandError(install, err, "package installation failed")
	}

	importStmt := fmt.Sprintf("import %s; print(%q)", b.cfg.Project.Name, b.cfg.Project.Name+" imported successfully")
	imp, err := b.run.Run(ctx, cmdrun.Command{
		Binary:  python,
		Args:    []string{"-c", importStmt},
		Timeout: b.cfg.Timeouts.Command,
	}, "Testing package import")
	if err != nil || !imp.Success {
		return b.commandError(imp, err, "package import failed")
	}

	b.report.OK("Package test completed successfully")
	return nil
}

// commandError folds a runner outcome and error into one classified
// failure, surfacing captured output verbatim.
func (b *Builder) commandError(outcome *cmdrun.Outcome, err error, msg string) error {
	if err != nil {
		if errors.Is(err, cmdrun.ErrToolMissing) {
			return relerr.Wrap(relerr.MissingRequirement, err, "%s", msg)
		}
		return relerr.Wrap(relerr.CommandFailure, err, "%s", msg)
	}
	b.report.Raw(outcome.Stdout)
	b.report.Raw(outcome.Stderr)
	return relerr.New(relerr.CommandFailure, "%s (exit code %d)", msg, outcome.ExitCode)
}

// venvTools returns the pip and python paths inside a virtual environment
// for the given platform.
func venvTools(venvDir string, p hostenv.Platform) (pip, python string) {
	if p.Name == hostenv.PlatformWindows {
		return filepath.Join(venvDir, "Scripts", "pip.exe"),
			filepath.Join(venvDir, "Scripts", "python.exe")
	}
	return filepath.Join(venvDir, "bin", "pip"),
		filepath.Join(venvDir, "bin", "python")
}
