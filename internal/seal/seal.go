// Package seal computes and persists SHA-256 digests for release assets.
// The digest of an asset must always correspond to the exact bytes on disk
// at computation time, so digests are never cached: every call re-reads
// the file.
package seal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"gridrelease/internal/hostenv"
)

// ManifestName is the checksum manifest filename inside a release
// directory.
const ManifestName = "checksums.txt"

// chunkSize is the read granularity for digesting. Assets are standalone
// binaries that can be tens of megabytes, so they are never loaded whole.
const chunkSize = 4096

// Asset describes one sealed release asset.
type Asset struct {
	Path         string
	PlatformName hostenv.PlatformName
	SizeBytes    int64
	SHA256       string
}

// Filename returns the asset's base filename as recorded in the manifest.
func (a *Asset) Filename() string {
	return filepath.Base(a.Path)
}

// Sealer streams files through a SHA-256 accumulator and maintains the
// per-run checksum manifest.
type Sealer struct {
	fs  afero.Fs
	log *zap.Logger
}

// NewSealer returns a Sealer over fs.
func NewSealer(fs afero.Fs, log *zap.Logger) *Sealer {
	return &Sealer{fs: fs, log: log}
}

// Digest re-reads the file at path in fixed-size chunks and returns its
// hex SHA-256 and size in bytes.
func (s *Sealer) Digest(path string) (string, int64, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open asset %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	n, err := io.CopyBuffer(h, f, buf)
	if err != nil {
		return "", 0, fmt.Errorf("digest asset %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Seal digests the asset at assetPath for platform and records it in the
// manifest. Digesting an unchanged file twice yields the same digest;
// there is no caching in between.
func (s *Sealer) Seal(assetPath string, m *Manifest, platform hostenv.PlatformName) (*Asset, error) {
	digest, size, err := s.Digest(assetPath)
	if err != nil {
		return nil, err
	}

	asset := &Asset{
		Path:         assetPath,
		PlatformName: platform,
		SizeBytes:    size,
		SHA256:       digest,
	}
	if err := m.Add(asset); err != nil {
		return nil, err
	}

	s.log.Info("sealed release asset",
		zap.String("asset", asset.Filename()),
		zap.String("sha256", digest),
		zap.Int64("size_bytes", size))
	return asset, nil
}

// Manifest is the append-only checksum file for one asset-preparation run.
// It is regenerated (truncated) at the start of each run so stale entries
// from earlier runs never survive; within a run entries are only appended.
type Manifest struct {
	fs   afero.Fs
	path string
}

// CreateManifest truncates and opens the manifest in releaseDir.
func CreateManifest(fs afero.Fs, releaseDir string) (*Manifest, error) {
	if err := fs.MkdirAll(releaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create release directory %s: %w", releaseDir, err)
	}
	path := filepath.Join(releaseDir, ManifestName)
	if err := afero.WriteFile(fs, path, nil, 0o644); err != nil {
		return nil, fmt.Errorf("create manifest %s: %w", path, err)
	}
	return &Manifest{fs: fs, path: path}, nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return m.path
}

// Add appends one `<hexdigest>  <filename>` entry.
func (m *Manifest) Add(a *Asset) error {
	f, err := m.fs.OpenFile(m.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open manifest %s: %w", m.path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s  %s\n", a.SHA256, a.Filename()); err != nil {
		return fmt.Errorf("write manifest %s: %w", m.path, err)
	}
	return nil
}
