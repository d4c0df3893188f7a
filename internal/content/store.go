// Package content writes synced pages and manifests under the project root.
// Writes whose content fingerprint matches the file on disk are skipped, so a
// re-sync of unchanged upstream docs leaves modification times alone.
package content

import (
	"os"
	"path/filepath"

	"github.com/inful/mdfp"
	"github.com/spf13/afero"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/frontmatter"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// WriteResult reports what a write did.
type WriteResult int

const (
	Written WriteResult = iota
	Unchanged
)

func (r WriteResult) String() string {
	if r == Unchanged {
		return "unchanged"
	}
	return "written"
}

// Store is a filesystem rooted at the project directory.
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore returns a store over fs with paths resolved against root.
func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// NewOSStore returns a store over the real filesystem.
func NewOSStore(root string) *Store {
	return NewStore(afero.NewOsFs(), root)
}

func (s *Store) abs(rel string) string {
	if filepath.IsAbs(rel) || s.root == "" {
		return rel
	}
	return filepath.Join(s.root, rel)
}

// DirExists reports whether rel is an existing directory.
func (s *Store) DirExists(rel string) (bool, error) {
	ok, err := afero.DirExists(s.fs, s.abs(rel))
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryFileSystem, "failed to stat directory").
			WithContext("path", rel).Build()
	}
	return ok, nil
}

// MkdirAll creates rel and its parents.
func (s *Store) MkdirAll(rel string) error {
	if err := s.fs.MkdirAll(s.abs(rel), dirPerm); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create directory").
			WithContext("path", rel).Build()
	}
	return nil
}

// ReadFile returns the content of rel.
func (s *Store) ReadFile(rel string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.abs(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError("file not found").WithCause(err).WithContext("path", rel).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read file").
			WithContext("path", rel).Build()
	}
	return data, nil
}

// WriteFile writes data to rel, creating parent directories. When the file
// already holds content with the same fingerprint, nothing is written.
func (s *Store) WriteFile(rel string, data []byte) (WriteResult, error) {
	path := s.abs(rel)
	if existing, err := afero.ReadFile(s.fs, path); err == nil && Fingerprint(existing) == Fingerprint(data) {
		return Unchanged, nil
	}

	if err := s.fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return Written, errors.WrapError(err, errors.CategoryFileSystem, "failed to create directory").
			WithContext("path", filepath.Dir(rel)).Build()
	}
	if err := afero.WriteFile(s.fs, path, data, filePerm); err != nil {
		return Written, errors.WrapError(err, errors.CategoryFileSystem, "failed to write file").
			WithContext("path", rel).Build()
	}
	return Written, nil
}

// Fingerprint hashes a page's frontmatter and body separately so that a page
// and its re-rendered twin compare equal regardless of trailing delimiters.
// Content without frontmatter is hashed as body only.
func Fingerprint(data []byte) string {
	fm, body, had, err := frontmatter.Split(data)
	if err != nil || !had {
		return mdfp.CalculateFingerprintFromParts("", string(data))
	}
	return mdfp.CalculateFingerprintFromParts(string(fm), string(body))
}
