package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalBackend keeps cached datasets as files under a base directory.
type LocalBackend struct {
	basePath string
	logger   zerolog.Logger
}

// NewLocalBackend creates the cache directory if needed. The base path is
// made absolute so keys resolve the same after a chdir.
func NewLocalBackend(basePath string, logger zerolog.Logger) (*LocalBackend, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache path %s: %w", basePath, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &LocalBackend{
		basePath: abs,
		logger:   logger.With().Str("component", "local-cache").Logger(),
	}, nil
}

// Write replaces the file at key. The data goes to a temp file in the same
// directory first and is renamed into place, so a concurrent benchmark
// process never reads a half-written dataset.
func (b *LocalBackend) Write(ctx context.Context, key string, data []byte) error {
	path, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	b.logger.Debug().Str("key", key).Int("size", len(data)).Msg("Cached object")
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dfio-*.tmp")
	if err != nil {
		return err
	}
	_, err = tmp.Write(data)
	err = errors.Join(err, tmp.Close())
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
	}
	return err
}

// Read returns the file stored at key.
func (b *LocalBackend) Read(ctx context.Context, key string) ([]byte, error) {
	path, err := b.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the file at key; a missing file is fine.
func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	path, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a regular file is stored at key. Directories
// don't count.
func (b *LocalBackend) Exists(ctx context.Context, key string) (bool, error) {
	path, err := b.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return info.Mode().IsRegular(), nil
}

func (b *LocalBackend) Close() error { return nil }

func (b *LocalBackend) Type() string { return "local" }

// sanitizePath neutralises the parts of a key that could leave the base
// directory.
func sanitizePath(key string) string {
	key = strings.TrimPrefix(key, "/")
	key = strings.ReplaceAll(key, "..", "_")
	return strings.ReplaceAll(key, "\x00", "")
}

// resolve maps key to a path inside the base directory.
func (b *LocalBackend) resolve(key string) (string, error) {
	path := filepath.Join(b.basePath, sanitizePath(key))
	rel, err := filepath.Rel(b.basePath, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid cache key %q: escapes %s", key, b.basePath)
	}
	return path, nil
}
