package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage persists uploaded objects under slash separated keys.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Delete is idempotent: deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// LocalStorage keeps objects on the local filesystem below root.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates a LocalStorage rooted at dir
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{root: dir}
}

func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put writes data, creating parent directories as needed
func (s *LocalStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create upload directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	return nil
}

// Delete removes the file if present
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// Exists reports whether the file is present
func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
