// gridrelease is the local release-orchestration tool for the GridAPI
// package. It cleans build state, builds the distributable artifacts,
// packages a standalone executable for the current host platform, seals
// release assets with checksums, and publishes versions.
//
// Precondition: one invocation per project checkout at a time. There is
// no locking; concurrent runs race on the metadata file and the build
// directories.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gridrelease/internal/buildtool"
	"gridrelease/internal/cmdrun"
	"gridrelease/internal/config"
	"gridrelease/internal/ghrelease"
	"gridrelease/internal/hostenv"
	"gridrelease/internal/packaging"
	"gridrelease/internal/pipeline"
	"gridrelease/internal/seal"
	"gridrelease/internal/status"
	"gridrelease/internal/version"
)

var (
	// Global flags
	verbose bool
	workDir string

	// Step-selection flags. These names are the user-facing contract.
	cleanOnly      bool
	buildOnly      bool
	buildExe       bool
	allPlatforms   bool
	prepareRelease bool
	testOnly       bool
	testPyPI       bool
	publishProd    bool

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gridrelease",
	Short: "Build, package, and publish GridAPI releases",
	Long: `gridrelease orchestrates the GridAPI release pipeline: it cleans
build state, checks for the required tools, builds the distributable
artifacts, optionally packages a standalone executable for the current
host platform, and publishes to the package index.

With no flags the full sequence runs: clean, check, build, test, publish.
Each selection flag narrows the run to its own step sequence; the
precedence is a fixed table, not an accumulation of flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runPipeline,
}

// app bundles the wired components for one invocation.
type app struct {
	env      *hostenv.Environment
	cfg      *config.Config
	report   *status.Reporter
	co       *pipeline.Coordinator
	releaser *pipeline.Releaser
}

// newApp builds the environment once and wires every component from it.
func newApp() (*app, error) {
	env := hostenv.Host(workDir)
	cfg, err := config.Load(env.Fs, filepath.Join(env.WorkDir, config.DefaultPath))
	if err != nil {
		return nil, err
	}

	report := status.NewReporter(env.Stdout)
	runner := cmdrun.NewRunner(env, report, logger)

	builder := buildtool.NewBuilder(env, cfg, runner, report, logger)
	packager := packaging.NewPackager(env, cfg, runner, report, logger)
	sealer := seal.NewSealer(env.Fs, logger)
	publisher := ghrelease.NewPublisher(env, cfg, runner, report)
	notes := ghrelease.NewNotes(env.Fs, cfg, env.WorkDir, logger)
	store := version.NewStore(env.Fs, filepath.Join(env.WorkDir, cfg.Project.MetadataFile), logger)

	co := pipeline.NewCoordinator(env, cfg, report, logger,
		builder, packager, sealer, publisher, notes, store)

	tagger := ghrelease.NewTagger(cfg, runner, report, logger)
	host := ghrelease.NewHost(cfg, runner, report, logger)
	releaser := pipeline.NewReleaser(co, tagger, host, store, report, logger)

	return &app{env: env, cfg: cfg, report: report, co: co, releaser: releaser}, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	plan := pipeline.ResolvePlan(pipeline.Selection{
		Clean:          cleanOnly,
		Build:          buildOnly,
		Exe:            buildExe,
		AllPlatforms:   allPlatforms,
		PrepareRelease: prepareRelease,
		Test:           testOnly,
		TestPyPI:       testPyPI,
		Publish:        publishProd,
	})
	return a.co.Run(cmd.Context(), plan)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workDir, "project-dir", "C", "", "project directory (default: current directory)")

	rootCmd.Flags().BoolVar(&cleanOnly, "clean", false, "clean build artifacts and exit")
	rootCmd.Flags().BoolVar(&buildOnly, "build", false, "build the package only")
	rootCmd.Flags().BoolVar(&buildExe, "exe", false, "build a standalone executable for this platform")
	rootCmd.Flags().BoolVar(&allPlatforms, "all-platforms", false, "build for this platform and print cross-platform guidance")
	rootCmd.Flags().BoolVar(&prepareRelease, "prepare-release", false, "stage release assets with checksums and notes")
	rootCmd.Flags().BoolVar(&testOnly, "test", false, "install the built package into an ephemeral environment and smoke-test it")
	rootCmd.Flags().BoolVar(&testPyPI, "test-pypi", false, "publish to the staging package index")
	rootCmd.Flags().BoolVar(&publishProd, "publish", false, "publish to the production package index")

	rootCmd.AddCommand(releaseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
