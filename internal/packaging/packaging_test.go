package packaging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gridrelease/internal/cmdrun"
	"gridrelease/internal/config"
	"gridrelease/internal/hostenv"
	"gridrelease/internal/relerr"
	"gridrelease/internal/status"
)

func memPackager(t *testing.T, host hostenv.Platform, lookPath func(string) (string, error)) (*Packager, afero.Fs, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	out := &bytes.Buffer{}
	if lookPath == nil {
		lookPath = func(string) (string, error) { return "", errors.New("not found") }
	}
	env := &hostenv.Environment{
		WorkDir:  "/project",
		Fs:       fs,
		Platform: host,
		LookPath: lookPath,
		Stdout:   out,
	}
	cfg := config.Default()
	report := status.NewReporter(out)
	runner := cmdrun.NewRunner(env, report, zap.NewNop())
	return NewPackager(env, cfg, runner, report, zap.NewNop()), fs, out
}

func TestPackageRejectsUnknownHost(t *testing.T) {
	host := hostenv.Platform{Name: hostenv.PlatformUnknown}
	p, fs, _ := memPackager(t, host, nil)

	_, err := p.Package(context.Background(), host)
	require.Error(t, err)
	assert.Equal(t, relerr.UnsupportedPlatform, relerr.KindOf(err))

	// Rejection happens before any filesystem mutation.
	for _, dir := range []string{"/project/dist", "/project/release-assets"} {
		exists, _ := afero.DirExists(fs, dir)
		assert.False(t, exists, "%s must not be created", dir)
	}
}

func TestPackageRejectsCrossBuild(t *testing.T) {
	host := hostenv.Platform{Name: hostenv.PlatformLinux}
	probed := false
	p, fs, _ := memPackager(t, host, func(string) (string, error) {
		probed = true
		return "", nil
	})

	_, err := p.Package(context.Background(), hostenv.Platform{Name: hostenv.PlatformWindows, ExeSuffix: ".exe"})
	require.Error(t, err)
	assert.Equal(t, relerr.UnsupportedPlatform, relerr.KindOf(err))
	assert.Contains(t, err.Error(), "cross-build not implemented")
	assert.False(t, probed, "the packager must not even be probed for a cross-build")

	exists, _ := afero.DirExists(fs, "/project/dist")
	assert.False(t, exists)
}

func TestPackageMissingPackagerTool(t *testing.T) {
	host := hostenv.Platform{Name: hostenv.PlatformLinux}
	p, _, out := memPackager(t, host, nil)

	_, err := p.Package(context.Background(), host)
	require.Error(t, err)
	assert.Equal(t, relerr.MissingRequirement, relerr.KindOf(err))
	assert.Contains(t, err.Error(), "pyinstaller")
	// The spec-file decision is reported even when the tool is absent.
	assert.Contains(t, out.String(), "Using generic spec file: gridapi.spec")
}

func TestPackagePrefersPlatformSpecFile(t *testing.T) {
	host := hostenv.Platform{Name: hostenv.PlatformLinux}
	p, fs, out := memPackager(t, host, nil)
	require.NoError(t, afero.WriteFile(fs, "/project/gridapi-linux.spec", []byte("# spec"), 0o644))

	_, err := p.Package(context.Background(), host)
	require.Error(t, err) // tool still missing; only the selection matters here
	assert.Contains(t, out.String(), "Using platform-specific spec file: gridapi-linux.spec")
}

// osPackager runs against the real filesystem with a stub packager.
func osPackager(t *testing.T, stubBody string) (*Packager, *config.Config, string, *bytes.Buffer) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub tools are shell scripts")
	}
	workDir := t.TempDir()
	out := &bytes.Buffer{}
	env := &hostenv.Environment{
		WorkDir:  workDir,
		Fs:       afero.NewOsFs(),
		Platform: hostenv.DetectPlatform(runtime.GOOS),
		LookPath: exec.LookPath,
		Stdout:   out,
	}
	cfg := config.Default()
	stub := filepath.Join(t.TempDir(), "pyinstaller")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\n"+stubBody+"\n"), 0o755))
	cfg.Tools.PyInstaller = stub

	report := status.NewReporter(out)
	runner := cmdrun.NewRunner(env, report, zap.NewNop())
	return NewPackager(env, cfg, runner, report, zap.NewNop()), cfg, workDir, out
}

func TestPackageSuccessAndSmokeTest(t *testing.T) {
	p, _, workDir, out := osPackager(t, `
mkdir -p dist
printf '#!/bin/sh\necho usage: gridapi\n' > dist/gridapi
chmod +x dist/gridapi`)

	host := p.HostPlatform()
	exePath, err := p.Package(context.Background(), host)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, "dist", "gridapi"), exePath)
	assert.Contains(t, out.String(), "Executable created")

	res := p.SmokeTest(context.Background(), exePath)
	assert.True(t, res.Passed, "smoke test should pass: %s", res.Reason)
}

func TestPackageSmokeTestFailureIsReported(t *testing.T) {
	p, _, _, _ := osPackager(t, `
mkdir -p dist
printf '#!/bin/sh\nexit 2\n' > dist/gridapi
chmod +x dist/gridapi`)

	host := p.HostPlatform()
	exePath, err := p.Package(context.Background(), host)
	require.NoError(t, err)

	res := p.SmokeTest(context.Background(), exePath)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Reason, "non-zero")
}

func TestPackageArtifactMissing(t *testing.T) {
	// The packager "succeeds" without producing the executable: a
	// distinct failure mode from the packager failing outright.
	p, _, _, _ := osPackager(t, "exit 0")

	host := p.HostPlatform()
	_, err := p.Package(context.Background(), host)
	require.Error(t, err)
	assert.Equal(t, relerr.ArtifactMissing, relerr.KindOf(err))
	assert.Contains(t, err.Error(), "packager reported success but artifact missing")
}

func TestPackagePackagerFailure(t *testing.T) {
	p, _, _, _ := osPackager(t, "echo boom 1>&2; exit 1")

	host := p.HostPlatform()
	_, err := p.Package(context.Background(), host)
	require.Error(t, err)
	assert.Equal(t, relerr.CommandFailure, relerr.KindOf(err))
}

func TestPackageEmptyArtifact(t *testing.T) {
	p, _, _, _ := osPackager(t, "mkdir -p dist && : > dist/gridapi")

	host := p.HostPlatform()
	_, err := p.Package(context.Background(), host)
	require.Error(t, err)
	assert.Equal(t, relerr.ArtifactMissing, relerr.KindOf(err))
	assert.Contains(t, err.Error(), "empty")
}

func TestPlatformGuidance(t *testing.T) {
	host := hostenv.Platform{Name: hostenv.PlatformLinux}
	p, _, _ := memPackager(t, host, nil)
	guidance := p.PlatformGuidance()
	require.NotEmpty(t, guidance)
	assert.Contains(t, guidance[0], "current platform only")
}
