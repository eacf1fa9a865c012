// Package hostenv describes the environment a release run executes in.
// Everything environment-dependent (working directory, filesystem, host
// platform, tool lookup) is captured once at startup and passed explicitly,
// so no component reads ambient process state directly.
package hostenv

import (
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/afero"
)

// PlatformName classifies the host operating system for packaging purposes.
type PlatformName string

const (
	PlatformWindows PlatformName = "windows"
	PlatformMacOS   PlatformName = "macos"
	PlatformLinux   PlatformName = "linux"
	PlatformUnknown PlatformName = "unknown"
)

// Platform is the host platform descriptor. Derived once at process start
// and immutable for the process lifetime.
type Platform struct {
	Name PlatformName

	// ExeSuffix is the executable filename suffix (".exe" on Windows,
	// empty elsewhere).
	ExeSuffix string
}

// Supported reports whether standalone executables can be packaged for
// this platform. Unknown hosts must be rejected downstream, never
// silently mapped to a fallback.
func (p Platform) Supported() bool {
	return p.Name != PlatformUnknown
}

// DetectPlatform classifies a GOOS value into a Platform descriptor.
func DetectPlatform(goos string) Platform {
	switch goos {
	case "windows":
		return Platform{Name: PlatformWindows, ExeSuffix: ".exe"}
	case "darwin":
		return Platform{Name: PlatformMacOS}
	case "linux":
		return Platform{Name: PlatformLinux}
	default:
		return Platform{Name: PlatformUnknown}
	}
}

// Environment is the explicit execution context threaded through every
// component. It replaces ambient reads of the working directory, the host
// OS, and PATH.
type Environment struct {
	// WorkDir is the project checkout the pipeline operates on.
	WorkDir string

	// Fs is the filesystem all components read and write through.
	Fs afero.Fs

	// Platform is the host platform, detected once.
	Platform Platform

	// LookPath resolves a tool name to an executable path. It is the
	// availability probe used by requirement checks.
	LookPath func(name string) (string, error)

	// Stdout is where operator-facing status lines go.
	Stdout io.Writer
}

// Host builds the Environment from the real process state. This is the
// only place ambient state is read.
func Host(workDir string) *Environment {
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	return &Environment{
		WorkDir:  workDir,
		Fs:       afero.NewOsFs(),
		Platform: DetectPlatform(runtime.GOOS),
		LookPath: exec.LookPath,
		Stdout:   os.Stdout,
	}
}
