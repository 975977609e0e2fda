package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"catalog-service/prometheus"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m := NewManager(NewLocalStorage(dir), nil)
	m.now = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC) }
	m.newID = func() string { return "1a2b3c4d" }
	return m, dir
}

func TestManager_Save(t *testing.T) {
	m, dir := newTestManager(t)
	ctx := context.Background()

	ref, err := m.Save(ctx, "products", "photo.PNG", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "uploads/products/20240305_140709_1a2b3c4d.png", ref)

	data, err := os.ReadFile(filepath.Join(dir, "products", "20240305_140709_1a2b3c4d.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)

	exists, err := m.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestManager_SaveRejectsUnsupportedExtensions(t *testing.T) {
	m, _ := newTestManager(t)

	for _, name := range []string{"script.sh", "noext", "image.png.exe", ""} {
		_, err := m.Save(context.Background(), "users", name, []byte("x"))
		assert.ErrorIs(t, err, ErrUnsupportedExtension, name)
	}
}

func TestManager_DeleteIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	ref, err := m.Save(ctx, "users", "me.jpg", []byte("img"))
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, ref))
	require.NoError(t, m.Delete(ctx, ref))

	exists, err := m.Exists(ctx, ref)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestManager_RejectsForeignReferences(t *testing.T) {
	m, _ := newTestManager(t)

	for _, ref := range []string{
		"",
		"uploads/",
		"/etc/passwd",
		"uploads/../secret.txt",
		"uploads/users/../../secret.txt",
		"uploads//users/a.png",
		"static/users/a.png",
	} {
		assert.ErrorIs(t, m.Delete(context.Background(), ref), ErrInvalidReference, ref)
	}
}

type failingStorage struct {
	Storage
}

func (failingStorage) Delete(context.Context, string) error {
	return errors.New("disk on fire")
}

func TestCleaner_RemovesInBackground(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	cleaner := NewCleaner(m, time.Second, nil)

	ref, err := m.Save(ctx, "products", "a.webp", []byte("img"))
	require.NoError(t, err)

	cleaner.Remove(ctx, ref)
	cleaner.Remove(ctx, "")
	require.NoError(t, cleaner.Wait(ctx))

	exists, err := m.Exists(ctx, ref)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCleaner_CountsFailures(t *testing.T) {
	metrics := prometheus.NewMetrics("test", promclient.NewRegistry())
	m := NewManager(failingStorage{Storage: NewLocalStorage(t.TempDir())}, metrics)
	cleaner := NewCleaner(m, time.Second, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	cleaner.Remove(ctx, "uploads/products/a.png")
	cleaner.Remove(ctx, "../outside")
	// cancelling the request must not abort the deletion
	cancel()

	require.NoError(t, cleaner.Wait(context.Background()))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.FileCleanupFailuresCounter))
}
