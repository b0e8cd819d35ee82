// Package fs implements archive storage on the local filesystem.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ArchiveStorage = (*Store)(nil)

// Store writes record files under a root directory.
type Store struct {
	root string
}

// New creates a store rooted at root. The directory is created lazily.
func New(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Put writes data to root/key, creating parent directories.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// resolve maps a slash key to a path, refusing keys that leave the root.
func (s *Store) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: archive key %q", domain.ErrInvalidInput, key)
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("%w: archive key %q", domain.ErrInvalidInput, key)
	}
	return path, nil
}

// Stats walks the root counting regular files and their sizes.
func (s *Store) Stats(ctx context.Context) (domain.ArchiveStats, error) {
	st := domain.ArchiveStats{Location: s.root}

	info, err := os.Stat(s.root)
	if errors.Is(err, iofs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if !info.IsDir() {
		return st, fmt.Errorf("%s is not a directory", s.root)
	}
	st.Exists = true

	err = filepath.WalkDir(s.root, func(_ string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		st.Files++
		st.Bytes += fi.Size()
		return nil
	})
	return st, err
}

// Location returns the root directory.
func (s *Store) Location() string {
	return s.root
}
