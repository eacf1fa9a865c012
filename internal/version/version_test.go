package version

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleMetadata = `[build-system]
requires = ["setuptools>=61.0"]

[project]
name = "gridapi"
version = "1.2.3"
description = "GridAPI command line client"
requires-python = ">=3.9"
`

func newStore(t *testing.T, content string) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if content != "" {
		require.NoError(t, afero.WriteFile(fs, "pyproject.toml", []byte(content), 0o644))
	}
	return NewStore(fs, "pyproject.toml", zap.NewNop()), fs
}

func TestRead(t *testing.T) {
	t.Run("parses version line", func(t *testing.T) {
		store, _ := newStore(t, sampleMetadata)
		assert.Equal(t, "1.2.3", store.Read())
	})

	t.Run("missing file falls back to default", func(t *testing.T) {
		store, _ := newStore(t, "")
		assert.Equal(t, DefaultVersion, store.Read())
	})

	t.Run("no version line falls back to default", func(t *testing.T) {
		store, _ := newStore(t, "[project]\nname = \"gridapi\"\n")
		assert.Equal(t, DefaultVersion, store.Read())
	})

	t.Run("single quotes accepted", func(t *testing.T) {
		store, _ := newStore(t, "version = '4.5.6'\n")
		assert.Equal(t, "4.5.6", store.Read())
	})
}

func TestWriteReadRoundTrip(t *testing.T) {
	store, _ := newStore(t, sampleMetadata)
	require.NoError(t, store.Write("2.0.0"))
	assert.Equal(t, "2.0.0", store.Read())
}

func TestWritePreservesOtherLines(t *testing.T) {
	store, fs := newStore(t, sampleMetadata)
	require.NoError(t, store.Write("9.9.9"))

	after, err := afero.ReadFile(fs, "pyproject.toml")
	require.NoError(t, err)

	before := strings.Split(sampleMetadata, "\n")
	got := strings.Split(string(after), "\n")
	require.Len(t, got, len(before))
	for i := range before {
		if strings.HasPrefix(strings.TrimSpace(before[i]), "version") {
			assert.Equal(t, `version = "9.9.9"`, got[i])
			continue
		}
		if diff := cmp.Diff(before[i], got[i]); diff != "" {
			t.Errorf("line %d changed (-before +after):\n%s", i, diff)
		}
	}
}

func TestWritePreservesTrailingNewlineState(t *testing.T) {
	t.Run("with trailing newline", func(t *testing.T) {
		store, fs := newStore(t, "version = \"1.0.0\"\n")
		require.NoError(t, store.Write("1.0.1"))
		data, err := afero.ReadFile(fs, "pyproject.toml")
		require.NoError(t, err)
		assert.Equal(t, "version = \"1.0.1\"\n", string(data))
	})

	t.Run("without trailing newline", func(t *testing.T) {
		store, fs := newStore(t, "version = \"1.0.0\"")
		require.NoError(t, store.Write("1.0.1"))
		data, err := afero.ReadFile(fs, "pyproject.toml")
		require.NoError(t, err)
		assert.Equal(t, "version = \"1.0.1\"", string(data))
	})
}

func TestWriteRejectsInvalidVersion(t *testing.T) {
	store, _ := newStore(t, sampleMetadata)
	for _, v := range []string{"", "1.2", "v1.2.3", "1.2.3.4", "one.two.three"} {
		assert.Error(t, store.Write(v), "version %q should be rejected", v)
	}
}

func TestWriteMissingFile(t *testing.T) {
	store, _ := newStore(t, "")
	assert.Error(t, store.Write("1.0.0"))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("0.0.1"))
	assert.True(t, IsValid("10.20.30"))
	assert.False(t, IsValid("1.0"))
	assert.False(t, IsValid("v1.0.0"))
	assert.False(t, IsValid("1.0.0-rc1"))
}
