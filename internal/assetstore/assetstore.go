// Package assetstore provides filename-addressed access to the audio
// asset directory shared by the voice worker (writes) and the compositor
// (reads, plus the final mix write). References are bare file names;
// path traversal outside the asset root is rejected.
package assetstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"soundframe/internal/config"
	"soundframe/internal/services"
)

// Store resolves audio asset references under a fixed root plus a
// read-only ambient sound library.
type Store struct {
	root       string
	ambientDir string
}

// New creates the asset root if needed and returns a store over it.
func New(cfg *config.Config) (*Store, error) {
	if strings.TrimSpace(cfg.Paths.AssetDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "asset store", "asset_dir not configured", nil)
	}
	if err := os.MkdirAll(cfg.Paths.AssetDir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset directory: %w", err)
	}
	return &Store{
		root:       cfg.Paths.AssetDir,
		ambientDir: cfg.Paths.AmbientDir,
	}, nil
}

// Root returns the asset root directory.
func (s *Store) Root() string {
	return s.root
}

// Path resolves a reference to an absolute path inside the asset root.
func (s *Store) Path(ref string) (string, error) {
	return resolveUnder(s.root, ref)
}

// Exists reports whether a reference resolves to a regular file.
func (s *Store) Exists(ref string) bool {
	path, err := s.Path(ref)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Open opens an asset for reading. A missing file surfaces as
// ErrAssetMissing so the compositor can skip the layer.
func (s *Store) Open(ref string) (*os.File, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrAssetMissing, "", "open asset", ref, nil)
		}
		return nil, fmt.Errorf("open asset %q: %w", ref, err)
	}
	return file, nil
}

// Create opens an asset for writing, truncating any existing file.
func (s *Store) Create(ref string) (*os.File, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create asset directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create asset %q: %w", ref, err)
	}
	return file, nil
}

// WriteBytes stores raw audio bytes under a reference.
func (s *Store) WriteBytes(ref string, data []byte) error {
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write asset %q: %w", ref, err)
	}
	return nil
}

// WriteFrom streams reader content into an asset.
func (s *Store) WriteFrom(ref string, r io.Reader) (int64, error) {
	file, err := s.Create(ref)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, fmt.Errorf("write asset %q: %w", ref, err)
	}
	return written, nil
}

// Remove deletes an asset. Missing files are not an error.
func (s *Store) Remove(ref string) error {
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove asset %q: %w", ref, err)
	}
	return nil
}

// ResolveAmbient maps an ambient sound label to a WAV file in the
// ambient library. Labels are slugged: lowercased, spaces collapsed to
// underscores. Returns false when the library has no match.
func (s *Store) ResolveAmbient(label string) (string, bool) {
	if strings.TrimSpace(s.ambientDir) == "" {
		return "", false
	}
	slug := SlugLabel(label)
	if slug == "" {
		return "", false
	}
	path := filepath.Join(s.ambientDir, slug+".wav")
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

// SlugLabel normalizes an ambient label to its library file stem.
func SlugLabel(label string) string {
	slug := strings.ToLower(strings.TrimSpace(label))
	slug = strings.Join(strings.Fields(slug), "_")
	return slug
}

func resolveUnder(root, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", services.Wrap(services.ErrValidation, "", "resolve asset", "empty reference", nil)
	}
	if filepath.IsAbs(ref) {
		return "", services.Wrap(services.ErrValidation, "", "resolve asset", "absolute reference: "+ref, nil)
	}
	cleaned := filepath.Clean(ref)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrValidation, "", "resolve asset", "reference escapes asset root: "+ref, nil)
	}
	return filepath.Join(root, cleaned), nil
}
