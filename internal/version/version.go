// Package version persists the release version inside the project metadata
// file (a line of the form `version = "X.Y.Z"` in pyproject.toml).
//
// The store is deliberately line-oriented rather than a TOML round-trip:
// writes must leave every other byte of the file untouched, and no TOML
// encoder guarantees that. Single-writer, single-process usage is assumed;
// there is no locking.
package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultVersion is returned when the metadata file is missing or carries
// no parseable version line. The fallback is intentional graceful
// degradation and is always logged as a warning.
const DefaultVersion = "1.0.0"

var (
	linePattern   = regexp.MustCompile(`^\s*version\s*=`)
	semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// IsValid reports whether v is an X.Y.Z version string.
func IsValid(v string) bool {
	return semverPattern.MatchString(v)
}

// Store reads and mutates the version line of one metadata file.
type Store struct {
	fs   afero.Fs
	path string
	log  *zap.Logger
}

// NewStore returns a Store over the metadata file at path.
func NewStore(fs afero.Fs, path string, log *zap.Logger) *Store {
	return &Store{fs: fs, path: path, log: log}
}

// Read scans the metadata file for the version assignment. A missing file
// or unparseable line yields DefaultVersion with a warning, not an error.
func (s *Store) Read() string {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		s.log.Warn("metadata file unreadable, using default version",
			zap.String("path", s.path),
			zap.String("default", DefaultVersion),
			zap.Error(err))
		return DefaultVersion
	}

	for _, line := range strings.Split(string(data), "\n") {
		if !linePattern.MatchString(line) {
			continue
		}
		_, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		v := strings.Trim(strings.TrimSpace(value), `"'`)
		if v == "" {
			continue
		}
		return v
	}

	s.log.Warn("no version line in metadata file, using default version",
		zap.String("path", s.path),
		zap.String("default", DefaultVersion))
	return DefaultVersion
}

// Write replaces the version line with `version = "v"`, preserving every
// other line byte-for-byte, including the file's trailing-newline state.
func (s *Store) Write(v string) error {
	if !IsValid(v) {
		return fmt.Errorf("invalid version %q: expected X.Y.Z", v)
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return fmt.Errorf("read metadata %s: %w", s.path, err)
	}

	lines := strings.Split(string(data), "\n")
	replaced := false
	for i, line := range lines {
		if linePattern.MatchString(line) {
			lines[i] = fmt.Sprintf("version = %q", v)
			replaced = true
			break
		}
	}
	if !replaced {
		return fmt.Errorf("no version line in %s", s.path)
	}

	if err := afero.WriteFile(s.fs, s.path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("write metadata %s: %w", s.path, err)
	}
	s.log.Info("updated version", zap.String("path", s.path), zap.String("version", v))
	return nil
}
