// Package pipeline sequences the release workflow. Step-selection flags
// are resolved once, at startup, into an ordered execution plan; the
// coordinator then walks the plan sequentially, short-circuiting on the
// first failure. Execution is non-transactional: completed side effects
// are never rolled back, and recovery is re-invocation against idempotent
// steps.
package pipeline

// Step is one stage of the release workflow.
type Step int

const (
	StepClean Step = iota + 1
	StepCheck
	StepBuild
	StepTest
	StepPackage
	StepAllPlatforms
	StepPrepareAssets
	StepPublishStaging
	StepPublishProduction
)

func (s Step) String() string {
	switch s {
	case StepClean:
		return "clean"
	case StepCheck:
		return "requirements-check"
	case StepBuild:
		return "build"
	case StepTest:
		return "test"
	case StepPackage:
		return "package"
	case StepAllPlatforms:
		return "all-platforms"
	case StepPrepareAssets:
		return "prepare-assets"
	case StepPublishStaging:
		return "publish-staging"
	case StepPublishProduction:
		return "publish-production"
	default:
		return "unknown"
	}
}

// Selection mirrors the step-selection flags of one invocation.
type Selection struct {
	Clean          bool
	Build          bool
	Exe            bool
	AllPlatforms   bool
	PrepareRelease bool
	Test           bool
	TestPyPI       bool
	Publish        bool
}

// ResolvePlan maps a flag selection to the ordered steps to run. This is
// the single precedence table for the whole tool: the first matching
// selection wins, and no flags at all means the full default sequence.
func ResolvePlan(sel Selection) []Step {
	switch {
	case sel.Clean:
		return []Step{StepClean}
	case sel.Build:
		return []Step{StepClean, StepCheck, StepBuild}
	case sel.Exe:
		return []Step{StepClean, StepCheck, StepBuild, StepPackage}
	case sel.AllPlatforms:
		return []Step{StepClean, StepCheck, StepBuild, StepPackage, StepAllPlatforms}
	case sel.PrepareRelease:
		return []Step{StepClean, StepCheck, StepBuild, StepPrepareAssets}
	case sel.Test:
		// Later-only selection: build is skipped on purpose.
		return []Step{StepClean, StepCheck, StepTest}
	case sel.TestPyPI:
		return []Step{StepClean, StepCheck, StepPublishStaging}
	case sel.Publish:
		return []Step{StepClean, StepCheck, StepPublishProduction}
	default:
		return []Step{StepClean, StepCheck, StepBuild, StepTest, StepPublishProduction}
	}
}
