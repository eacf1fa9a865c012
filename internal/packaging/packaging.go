// Package packaging produces a standalone executable for the current host
// platform by driving the external packager. Cross-platform builds are
// explicitly unsupported: requesting any platform other than the host is
// rejected, never emulated.
package packaging

import (
	"context"
	"errors"
	"path/filepath"

	units "github.com/docker/go-units"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"gridrelease/internal/cmdrun"
	"gridrelease/internal/config"
	"gridrelease/internal/hostenv"
	"gridrelease/internal/relerr"
	"gridrelease/internal/status"
)

// SmokeResult is the outcome of running the packaged binary once. A failed
// smoke test is a warning, never a packaging failure.
type SmokeResult struct {
	Passed bool
	Reason string
}

// Packager invokes the platform-specific packager and verifies its output.
type Packager struct {
	env    *hostenv.Environment
	cfg    *config.Config
	run    *cmdrun.Runner
	report *status.Reporter
	log    *zap.Logger
}

// NewPackager returns a Packager bound to env and cfg.
func NewPackager(env *hostenv.Environment, cfg *config.Config, run *cmdrun.Runner, report *status.Reporter, log *zap.Logger) *Packager {
	return &Packager{env: env, cfg: cfg, run: run, report: report, log: log}
}

// HostPlatform returns the platform descriptor detected at startup.
func (p *Packager) HostPlatform() hostenv.Platform {
	return p.env.Platform
}

// ExecutablePath is where the packager is expected to leave the binary.
func (p *Packager) ExecutablePath() string {
	return filepath.Join(p.env.WorkDir, p.cfg.Dirs.Dist, p.cfg.Project.Name+p.env.Platform.ExeSuffix)
}

// Package builds the standalone executable for target, which must be the
// host platform. It returns the verified output path. Packager failure and
// missing output are distinct failure modes.
func (p *Packager) Package(ctx context.Context, target hostenv.Platform) (string, error) {
	host := p.env.Platform
	if !host.Supported() {
		return "", relerr.New(relerr.UnsupportedPlatform, "host platform is not recognized; cannot package executables")
	}
	if !target.Supported() {
		return "", relerr.New(relerr.UnsupportedPlatform, "target platform is not recognized")
	}
	if target.Name != host.Name {
		return "", relerr.New(relerr.UnsupportedPlatform,
			"unsupported: cross-build not implemented (host %s, requested %s)", host.Name, target.Name)
	}

	p.report.Step("Building standalone executable...")
	p.report.Info("Platform: %s", host.Name)

	specFile, generic, err := p.selectSpecFile(host)
	if err != nil {
		return "", err
	}
	// The spec-file choice changes the binary's contents, so it is
	// reported, not just logged.
	if generic {
		p.report.Info("Using generic spec file: %s", specFile)
	} else {
		p.report.Info("Using platform-specific spec file: %s", specFile)
	}
	p.log.Info("selected packaging spec file",
		zap.String("spec_file", specFile),
		zap.Bool("generic_fallback", generic))

	outcome, err := p.run.Run(ctx, cmdrun.Command{
		Binary:  p.cfg.Tools.PyInstaller,
		Args:    []string{specFile, "--clean"},
		Timeout: p.cfg.Timeouts.Command,
	}, "Building standalone executable")
	if err != nil {
		if errors.Is(err, cmdrun.ErrToolMissing) {
			return "", relerr.Wrap(relerr.MissingRequirement, err,
				"%s not found; install it with: pip install pyinstaller", p.cfg.Tools.PyInstaller)
		}
		return "", relerr.Wrap(relerr.CommandFailure, err, "packager could not be started")
	}
	if !outcome.Success {
		p.report.Raw(outcome.Stdout)
		p.report.Raw(outcome.Stderr)
		return "", relerr.New(relerr.CommandFailure, "packager failed (exit code %d)", outcome.ExitCode)
	}

	exePath := p.ExecutablePath()
	info, statErr := p.env.Fs.Stat(exePath)
	if statErr != nil || info.IsDir() {
		p.logDistContents()
		return "", relerr.New(relerr.ArtifactMissing,
			"packager reported success but artifact missing: %s", exePath)
	}
	if info.Size() == 0 {
		return "", relerr.New(relerr.ArtifactMissing,
			"packager reported success but artifact is empty: %s", exePath)
	}

	p.report.OK("Executable created: %s", exePath)
	p.report.Info("Size: %s", units.HumanSize(float64(info.Size())))
	return exePath, nil
}

// selectSpecFile picks the platform-specific packaging specification if
// one exists, else the generic fallback.
func (p *Packager) selectSpecFile(host hostenv.Platform) (string, bool, error) {
	platformSpec := p.cfg.Project.Name + "-" + string(host.Name) + ".spec"
	exists, err := afero.Exists(p.env.Fs, filepath.Join(p.env.WorkDir, platformSpec))
	if err != nil {
		return "", false, relerr.Wrap(relerr.IOFailure, err, "probe spec file %s", platformSpec)
	}
	if exists {
		return platformSpec, false, nil
	}
	return p.cfg.Project.Name + ".spec", true, nil
}

// logDistContents records what the packager actually left behind, for
// diagnosing the artifact-missing case.
func (p *Packager) logDistContents() {
	distDir := filepath.Join(p.env.WorkDir, p.cfg.Dirs.Dist)
	entries, err := afero.ReadDir(p.env.Fs, distDir)
	if err != nil {
		p.log.Debug("dist directory unreadable", zap.String("dir", distDir), zap.Error(err))
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	p.log.Debug("dist directory contents", zap.String("dir", distDir), zap.Strings("entries", names))
}

// SmokeTest runs the packaged binary with a harmless flag under a bounded
// timeout. The outcome is reported but never fails packaging.
func (p *Packager) SmokeTest(ctx context.Context, exePath string) SmokeResult {
	outcome, err := p.run.Run(ctx, cmdrun.Command{
		Binary:  exePath,
		Args:    []string{"--help"},
		Timeout: p.cfg.Timeouts.SmokeTest,
	}, "Testing executable")
	switch {
	case err != nil:
		return SmokeResult{Reason: "executable could not be started: " + err.Error()}
	case outcome.TimedOut:
		return SmokeResult{Reason: "executable test timed out"}
	case !outcome.Success:
		return SmokeResult{Reason: "executable exited non-zero"}
	default:
		return SmokeResult{Passed: true}
	}
}

// PlatformGuidance lists the cross-platform build notes reported after a
// host-only build. Executables are only ever built on their own platform.
func (p *Packager) PlatformGuidance() []string {
	return []string{
		"Executables are built for the current platform only",
		"For Windows executables: build on Windows",
		"For macOS executables: build on macOS",
		"For Linux executables: build on Linux",
		"Use CI/CD pipelines for automated multi-platform builds",
	}
}
