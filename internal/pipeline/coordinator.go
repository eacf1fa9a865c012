package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	units "github.com/docker/go-units"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gridrelease/internal/buildtool"
	"gridrelease/internal/config"
	"gridrelease/internal/hostenv"
	"gridrelease/internal/packaging"
	"gridrelease/internal/relerr"
	"gridrelease/internal/seal"
	"gridrelease/internal/status"
)

// ArtifactBuilder is what the coordinator needs from the build layer.
type ArtifactBuilder interface {
	Clean(ctx context.Context)
	CheckRequirements(ctx context.Context) buildtool.Requirements
	Build(ctx context.Context) error
	TestInstall(ctx context.Context) error
}

// ExecutablePackager is what the coordinator needs from the packaging
// layer.
type ExecutablePackager interface {
	HostPlatform() hostenv.Platform
	ExecutablePath() string
	Package(ctx context.Context, target hostenv.Platform) (string, error)
	SmokeTest(ctx context.Context, exePath string) packaging.SmokeResult
	PlatformGuidance() []string
}

// AssetSealer digests assets into a manifest.
type AssetSealer interface {
	Seal(assetPath string, m *seal.Manifest, platform hostenv.PlatformName) (*seal.Asset, error)
}

// IndexPublisher uploads built artifacts to the package index.
type IndexPublisher interface {
	Publish(ctx context.Context, staging bool) error
}

// NotesWriter generates the release-notes file.
type NotesWriter interface {
	Write(version string) error
	Title(version string) string
}

// VersionSource reads the persisted release version.
type VersionSource interface {
	Read() string
}

// Coordinator drives the release workflow. All execution is sequential
// and synchronous; exactly one invocation per project checkout is
// supported (there is no locking against concurrent runs).
type Coordinator struct {
	env    *hostenv.Environment
	cfg    *config.Config
	report *status.Reporter
	log    *zap.Logger

	builder   ArtifactBuilder
	packager  ExecutablePackager
	sealer    AssetSealer
	publisher IndexPublisher
	notes     NotesWriter
	version   VersionSource
}

// NewCoordinator wires a Coordinator from its collaborators.
func NewCoordinator(
	env *hostenv.Environment,
	cfg *config.Config,
	report *status.Reporter,
	log *zap.Logger,
	builder ArtifactBuilder,
	packager ExecutablePackager,
	sealer AssetSealer,
	publisher IndexPublisher,
	notes NotesWriter,
	version VersionSource,
) *Coordinator {
	return &Coordinator{
		env:       env,
		cfg:       cfg,
		report:    report,
		log:       log,
		builder:   builder,
		packager:  packager,
		sealer:    sealer,
		publisher: publisher,
		notes:     notes,
		version:   version,
	}
}

// Run walks the plan in order. The first failing step aborts the run;
// side effects of earlier steps stay in place.
func (c *Coordinator) Run(ctx context.Context, plan []Step) error {
	runID := uuid.NewString()
	names := make([]string, len(plan))
	for i, s := range plan {
		names[i] = s.String()
	}
	c.log.Info("starting release pipeline",
		zap.String("run_id", runID),
		zap.Strings("steps", names))

	for _, step := range plan {
		if err := c.runStep(ctx, step); err != nil {
			c.report.Fail("Pipeline aborted at %s: %v", step, err)
			c.log.Error("pipeline aborted",
				zap.String("run_id", runID),
				zap.String("step", step.String()),
				zap.String("kind", relerr.KindOf(err).String()),
				zap.Error(err))
			return err
		}
	}

	c.report.OK("All selected steps completed successfully")
	c.log.Info("release pipeline finished", zap.String("run_id", runID))
	return nil
}

func (c *Coordinator) runStep(ctx context.Context, step Step) error {
	switch step {
	case StepClean:
		// Side-effect removal only; cannot fail the pipeline.
		c.builder.Clean(ctx)
		return nil

	case StepCheck:
		reqs := c.builder.CheckRequirements(ctx)
		if !reqs.OK() {
			return relerr.New(relerr.MissingRequirement,
				"missing required tools: %s", strings.Join(reqs.MissingRequired, ", "))
		}
		return nil

	case StepBuild:
		return c.builder.Build(ctx)

	case StepTest:
		return c.builder.TestInstall(ctx)

	case StepPackage:
		_, err := c.packageAndSmoke(ctx)
		return err

	case StepAllPlatforms:
		c.report.Step("Cross-platform building notes:")
		for _, line := range c.packager.PlatformGuidance() {
			c.report.Info("%s", line)
		}
		return nil

	case StepPrepareAssets:
		return c.prepareAssets(ctx)

	case StepPublishStaging:
		return c.publisher.Publish(ctx, true)

	case StepPublishProduction:
		return c.publisher.Publish(ctx, false)

	default:
		return relerr.New(relerr.CommandFailure, "unknown pipeline step %d", step)
	}
}

// packageAndSmoke builds the host executable and smoke-tests it. The
// smoke-test outcome is reported but never fails the step.
func (c *Coordinator) packageAndSmoke(ctx context.Context) (string, error) {
	exePath, err := c.packager.Package(ctx, c.packager.HostPlatform())
	if err != nil {
		return "", err
	}
	if res := c.packager.SmokeTest(ctx, exePath); res.Passed {
		c.report.OK("Executable test passed")
	} else {
		c.report.Warn("Executable test failed: %s", res.Reason)
	}
	return exePath, nil
}

// prepareAssets stages the release directory: a platform-tagged copy of
// the executable, a freshly regenerated checksum manifest, and the
// release notes. A missing executable is built on demand, with the
// build announced rather than silently masked.
func (c *Coordinator) prepareAssets(ctx context.Context) error {
	c.report.Step("Preparing release assets...")
	host := c.packager.HostPlatform()

	exePath := c.packager.ExecutablePath()
	if exists, _ := fileExists(c.env, exePath); !exists {
		c.report.Info("Executable not found: %s", exePath)
		c.report.Step("Prerequisite missing, building it now...")
		built, err := c.packageAndSmoke(ctx)
		if err != nil {
			return err
		}
		exePath = built
	}

	releaseDir := filepath.Join(c.env.WorkDir, c.cfg.Dirs.ReleaseAssets)
	if err := c.env.Fs.MkdirAll(releaseDir, 0o755); err != nil {
		return relerr.Wrap(relerr.IOFailure, err, "create %s", releaseDir)
	}

	taggedName := c.cfg.Project.Name + "-" + string(host.Name) + host.ExeSuffix
	taggedPath := filepath.Join(releaseDir, taggedName)
	size, err := copyFile(c.env, exePath, taggedPath)
	if err != nil {
		return relerr.Wrap(relerr.IOFailure, err, "copy executable to %s", taggedPath)
	}
	c.report.OK("Copied executable: %s", taggedPath)
	c.report.Info("Size: %s", units.HumanSize(float64(size)))

	manifest, err := seal.CreateManifest(c.env.Fs, releaseDir)
	if err != nil {
		return relerr.Wrap(relerr.IOFailure, err, "create checksum manifest")
	}
	asset, err := c.sealer.Seal(taggedPath, manifest, host.Name)
	if err != nil {
		return relerr.Wrap(relerr.IOFailure, err, "seal release asset")
	}
	c.report.OK("Created checksums: %s", manifest.Path())
	c.report.Info("Checksum: %s  %s", asset.SHA256, asset.Filename())

	if err := c.notes.Write(c.version.Read()); err != nil {
		return err
	}

	c.report.Info("Release assets prepared in: %s", releaseDir)
	return nil
}

func fileExists(env *hostenv.Environment, path string) (bool, error) {
	info, err := env.Fs.Stat(path)
	if err != nil {
		return false, nil
	}
	return !info.IsDir(), nil
}

// copyFile copies src to dst through the environment's filesystem and
// returns the number of bytes written.
func copyFile(env *hostenv.Environment, src, dst string) (int64, error) {
	in, err := env.Fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := env.Fs.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
