package main

import (
	"github.com/spf13/cobra"

	"gridrelease/internal/pipeline"
)

var (
	releaseVersion string
	releaseBuild   bool
	createRelease  bool
	createTag      bool
	listReleases   bool
	draftRelease   bool
)

// releaseCmd is the release-management entry point: version bump, tag,
// and release-page creation on top of the build pipeline.
var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Manage versioned releases",
	Long: `Manages releases end to end: writes the requested version into the
project metadata, builds and packages the executable for this platform,
generates release notes, creates the git tag (idempotently), and creates
the release page on the hosting service.

Examples:
  gridrelease release --version 1.2.0 --build-only
  gridrelease release --version 1.2.0 --create-release --draft
  gridrelease release --list-releases`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		return a.releaser.Run(cmd.Context(), pipeline.ReleaseRequest{
			Version:       releaseVersion,
			BuildOnly:     releaseBuild,
			CreateTag:     createTag,
			CreateRelease: createRelease,
			Draft:         draftRelease,
			ListReleases:  listReleases,
		})
	},
}

func init() {
	releaseCmd.Flags().StringVar(&releaseVersion, "version", "", "version to release (X.Y.Z)")
	releaseCmd.Flags().BoolVar(&releaseBuild, "build-only", false, "stop after building the executable")
	releaseCmd.Flags().BoolVar(&createRelease, "create-release", false, "create a release on the hosting service")
	releaseCmd.Flags().BoolVar(&createTag, "create-tag", false, "create and push the version tag")
	releaseCmd.Flags().BoolVar(&listReleases, "list-releases", false, "list existing releases and exit")
	releaseCmd.Flags().BoolVar(&draftRelease, "draft", false, "create the release as a draft")
}
