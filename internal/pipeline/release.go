package pipeline

import (
	"context"

	"go.uber.org/zap"

	"gridrelease/internal/relerr"
	"gridrelease/internal/status"
	"gridrelease/internal/version"
)

// TagEnsurer creates the release tag idempotently.
type TagEnsurer interface {
	EnsureTag(ctx context.Context, version string) error
}

// ReleaseHost manages release pages on the hosting service.
type ReleaseHost interface {
	CreateRelease(ctx context.Context, version, title string, draft bool) error
	ListReleases(ctx context.Context) error
}

// VersionStore reads and mutates the persisted release version.
type VersionStore interface {
	VersionSource
	Write(v string) error
}

// ReleaseRequest mirrors the release-management flags of one invocation.
type ReleaseRequest struct {
	Version       string
	BuildOnly     bool
	CreateTag     bool
	CreateRelease bool
	Draft         bool
	ListReleases  bool
}

// Releaser composes the version store, the build pipeline, tagging, and
// the release host into the release-management flow.
type Releaser struct {
	co     *Coordinator
	tagger TagEnsurer
	host   ReleaseHost
	store  VersionStore
	report *status.Reporter
	log    *zap.Logger
}

// NewReleaser wires a Releaser.
func NewReleaser(co *Coordinator, tagger TagEnsurer, host ReleaseHost, store VersionStore, report *status.Reporter, log *zap.Logger) *Releaser {
	return &Releaser{co: co, tagger: tagger, host: host, store: store, report: report, log: log}
}

// Run executes the release-management flow. The version is mutated exactly
// once, before anything else; nothing here is rolled back on a later
// failure; re-invocation is the recovery path.
func (r *Releaser) Run(ctx context.Context, req ReleaseRequest) error {
	if req.ListReleases {
		return r.host.ListReleases(ctx)
	}

	if req.Version == "" {
		r.report.Info("Current version: %s", r.store.Read())
		r.report.Info("Use --version to specify a release version")
		return nil
	}
	if !version.IsValid(req.Version) {
		return relerr.New(relerr.CommandFailure, "invalid version %q: expected X.Y.Z", req.Version)
	}

	r.report.Step("Release management for version %s", req.Version)

	if err := r.store.Write(req.Version); err != nil {
		return relerr.Wrap(relerr.IOFailure, err, "update version")
	}
	r.report.OK("Updated version to %s", req.Version)

	host := r.co.packager.HostPlatform()
	if !host.Supported() {
		return relerr.New(relerr.UnsupportedPlatform, "host platform is not recognized; cannot build release executables")
	}

	buildPlan := []Step{StepClean, StepCheck, StepBuild, StepPackage}
	if err := r.co.Run(ctx, buildPlan); err != nil {
		return err
	}

	if req.BuildOnly {
		r.report.OK("Build completed. Use --create-release to create a release.")
		return nil
	}

	if err := r.co.notes.Write(req.Version); err != nil {
		return err
	}
	r.report.OK("Created release notes")

	if req.CreateTag || req.CreateRelease {
		if err := r.tagger.EnsureTag(ctx, req.Version); err != nil {
			return err
		}
	}

	if req.CreateRelease {
		title := r.co.notes.Title(req.Version)
		if err := r.host.CreateRelease(ctx, req.Version, title, req.Draft); err != nil {
			return err
		}
	}

	r.report.OK("Release %s completed successfully", req.Version)
	r.log.Info("release flow finished",
		zap.String("version", req.Version),
		zap.Bool("tagged", req.CreateTag || req.CreateRelease),
		zap.Bool("release_created", req.CreateRelease),
		zap.Bool("draft", req.Draft))
	return nil
}
