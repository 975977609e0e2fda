// Package upload stores uploaded images and removes files that entities no
// longer reference.
package upload

import (
	"context"
	"errors"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"catalog-service/prometheus"

	"github.com/google/uuid"
)

// RefPrefix starts every reference returned by Save. It is also the URL
// prefix the files are served under.
const RefPrefix = "uploads/"

var (
	// ErrUnsupportedExtension is returned for files outside the image allow-list.
	ErrUnsupportedExtension = errors.New("unsupported file type")
	// ErrInvalidReference is returned for references outside the upload area.
	ErrInvalidReference = errors.New("invalid upload reference")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Manager turns uploads into stored files and references.
type Manager struct {
	storage Storage
	metrics *prometheus.Metrics
	now     func() time.Time
	newID   func() string
}

// NewManager creates a Manager writing to storage
func NewManager(storage Storage, metrics *prometheus.Metrics) *Manager {
	return &Manager{
		storage: storage,
		metrics: metrics,
		now:     time.Now,
		newID:   func() string { return uuid.NewString()[:8] },
	}
}

// Save stores data under subfolder with a generated name and returns its
// reference, e.g. uploads/products/20240101_120000_1a2b3c4d.png.
func (m *Manager) Save(ctx context.Context, subfolder, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedExtension
	}

	name := m.now().UTC().Format("20060102_150405") + "_" + m.newID() + ext
	key := path.Join(subfolder, name)

	if err := m.storage.Put(ctx, key, data, mime.TypeByExtension(ext)); err != nil {
		return "", err
	}
	m.metrics.RecordUpload(subfolder, len(data))

	return RefPrefix + key, nil
}

// Delete removes the file behind ref. Missing files are not an error.
func (m *Manager) Delete(ctx context.Context, ref string) error {
	key, err := keyFromRef(ref)
	if err != nil {
		return err
	}
	return m.storage.Delete(ctx, key)
}

// Exists reports whether the file behind ref is stored
func (m *Manager) Exists(ctx context.Context, ref string) (bool, error) {
	key, err := keyFromRef(ref)
	if err != nil {
		return false, err
	}
	return m.storage.Exists(ctx, key)
}

func keyFromRef(ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, RefPrefix)
	if !ok || key == "" {
		return "", ErrInvalidReference
	}
	if path.Clean(key) != key || key == ".." || strings.HasPrefix(key, "../") || strings.HasPrefix(key, "/") {
		return "", ErrInvalidReference
	}
	return key, nil
}
