package ghrelease

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"gridrelease/internal/config"
	"gridrelease/internal/relerr"
)

// NotesFile is the generated release-notes filename.
const NotesFile = "RELEASE_NOTES.md"

// projectMeta is the subset of the project metadata used in release notes.
type projectMeta struct {
	Project struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
	} `toml:"project"`
}

// Notes generates the release-notes file from the project metadata.
type Notes struct {
	fs   afero.Fs
	cfg  *config.Config
	path string
	meta string
	log  *zap.Logger
}

// NewNotes returns a Notes writer for the project at workDir.
func NewNotes(fs afero.Fs, cfg *config.Config, workDir string, log *zap.Logger) *Notes {
	return &Notes{
		fs:   fs,
		cfg:  cfg,
		path: filepath.Join(workDir, NotesFile),
		meta: filepath.Join(workDir, cfg.Project.MetadataFile),
		log:  log,
	}
}

// Title returns the release page title for a version.
func (n *Notes) Title(version string) string {
	return fmt.Sprintf("%s CLI %s", n.displayName(), TagName(version))
}

// Write generates RELEASE_NOTES.md for version, overwriting any previous
// notes file.
func (n *Notes) Write(version string) error {
	name := n.cfg.Project.Name
	content := fmt.Sprintf(`# %s CLI %s

%s

## Downloads
- **Windows**: %s-windows.exe
- **macOS**: %s-macos
- **Linux**: %s-linux

## Installation
1. Download the executable for your platform
2. Make it executable (Linux/macOS): chmod +x %s-*
3. Run: ./%s-<platform> --help

## Verification
Verify your download against the published checksums:

    sha256sum -c %s
`, n.displayName(), TagName(version), n.description(),
		name, name, name, name, name, "checksums.txt")

	if err := afero.WriteFile(n.fs, n.path, []byte(content), 0o644); err != nil {
		return relerr.Wrap(relerr.IOFailure, err, "write release notes %s", n.path)
	}
	n.log.Info("wrote release notes", zap.String("path", n.path), zap.String("version", version))
	return nil
}

// displayName is the human-facing product name from the metadata file,
// falling back to the configured package name.
func (n *Notes) displayName() string {
	if meta, ok := n.readMeta(); ok && meta.Project.Name != "" {
		return meta.Project.Name
	}
	return n.cfg.Project.Name
}

// description is the one-line summary from the metadata file, with a
// generic fallback when the metadata is absent.
func (n *Notes) description() string {
	if meta, ok := n.readMeta(); ok && strings.TrimSpace(meta.Project.Description) != "" {
		return strings.TrimSpace(meta.Project.Description)
	}
	return "Cross-platform standalone executables. No runtime installation required."
}

func (n *Notes) readMeta() (projectMeta, bool) {
	var meta projectMeta
	data, err := afero.ReadFile(n.fs, n.meta)
	if err != nil {
		n.log.Debug("metadata file unreadable for notes", zap.String("path", n.meta), zap.Error(err))
		return meta, false
	}
	if err := toml.Unmarshal(data, &meta); err != nil {
		n.log.Warn("metadata file is not valid TOML", zap.String("path", n.meta), zap.Error(err))
		return meta, false
	}
	return meta, true
}
