package ghrelease

import (
	"bytes"
	"context"
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

func stubPublisher(t *testing.T, twineBody string, withArtifacts bool) (*Publisher, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub tools are shell scripts")
	}
	workDir := t.TempDir()
	stubDir := t.TempDir()
	logFile := filepath.Join(stubDir, "twine.log")

	script := "#!/bin/sh\necho \"$@\" >> \"" + logFile + "\"\n" + twineBody + "\n"
	twineStub := filepath.Join(stubDir, "twine")
	require.NoError(t, os.WriteFile(twineStub, []byte(script), 0o755))

	if withArtifacts {
		require.NoError(t, os.MkdirAll(filepath.Join(workDir, "dist"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(workDir, "dist", "gridapi-1.0.0-py3-none-any.whl"), []byte("w"), 0o644))
	}

	out := &bytes.Buffer{}
	env := &hostenv.Environment{
		WorkDir:  workDir,
		Fs:       afero.NewOsFs(),
		Platform: hostenv.DetectPlatform(runtime.GOOS),
		LookPath: exec.LookPath,
		Stdout:   out,
	}
	cfg := config.Default()
	cfg.Tools.Twine = twineStub

	report := status.NewReporter(out)
	runner := cmdrun.NewRunner(env, report, zap.NewNop())
	return NewPublisher(env, cfg, runner, report), logFile
}

func TestPublishProduction(t *testing.T) {
	pub, logFile := stubPublisher(t, "exit 0", true)

	require.NoError(t, pub.Publish(context.Background(), false))

	calls := readCalls(t, logFile)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "upload")
	assert.NotContains(t, calls[0], "--repository")
	assert.Contains(t, calls[0], "gridapi-1.0.0-py3-none-any.whl")
}

func TestPublishStagingTargetsTestIndex(t *testing.T) {
	pub, logFile := stubPublisher(t, "exit 0", true)

	require.NoError(t, pub.Publish(context.Background(), true))

	calls := readCalls(t, logFile)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "--repository testpypi")
}

func TestPublishWithoutArtifacts(t *testing.T) {
	pub, logFile := stubPublisher(t, "exit 0", false)

	err := pub.Publish(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, relerr.ArtifactMissing, relerr.KindOf(err))
	assert.Empty(t, readCalls(t, logFile), "nothing must be uploaded when dist is empty")
}

func TestPublishUploadFailure(t *testing.T) {
	pub, _ := stubPublisher(t, "echo 403 Forbidden 1>&2; exit 1", true)

	err := pub.Publish(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, relerr.CommandFailure, relerr.KindOf(err))
}
