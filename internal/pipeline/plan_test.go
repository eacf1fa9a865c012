package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePlan(t *testing.T) {
	tests := []struct {
		name string
		sel  Selection
		want []Step
	}{
		{
			name: "clean only",
			sel:  Selection{Clean: true},
			want: []Step{StepClean},
		},
		{
			name: "build only",
			sel:  Selection{Build: true},
			want: []Step{StepClean, StepCheck, StepBuild},
		},
		{
			name: "exe",
			sel:  Selection{Exe: true},
			want: []Step{StepClean, StepCheck, StepBuild, StepPackage},
		},
		{
			name: "all platforms",
			sel:  Selection{AllPlatforms: true},
			want: []Step{StepClean, StepCheck, StepBuild, StepPackage, StepAllPlatforms},
		},
		{
			name: "prepare release",
			sel:  Selection{PrepareRelease: true},
			want: []Step{StepClean, StepCheck, StepBuild, StepPrepareAssets},
		},
		{
			name: "test skips build",
			sel:  Selection{Test: true},
			want: []Step{StepClean, StepCheck, StepTest},
		},
		{
			name: "staging publish skips build",
			sel:  Selection{TestPyPI: true},
			want: []Step{StepClean, StepCheck, StepPublishStaging},
		},
		{
			name: "production publish skips build",
			sel:  Selection{Publish: true},
			want: []Step{StepClean, StepCheck, StepPublishProduction},
		},
		{
			name: "no flags runs the full sequence",
			sel:  Selection{},
			want: []Step{StepClean, StepCheck, StepBuild, StepTest, StepPublishProduction},
		},
		{
			name: "clean wins over everything",
			sel:  Selection{Clean: true, Build: true, Publish: true},
			want: []Step{StepClean},
		},
		{
			name: "build wins over test and publish",
			sel:  Selection{Build: true, Test: true, Publish: true},
			want: []Step{StepClean, StepCheck, StepBuild},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePlan(tt.sel))
		})
	}
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "clean", StepClean.String())
	assert.Equal(t, "requirements-check", StepCheck.String())
	assert.Equal(t, "prepare-assets", StepPrepareAssets.String())
	assert.Equal(t, "unknown", Step(99).String())
}
