package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/timmy/mediafetch/internal/storage"
)

// Mirror publishes built archives to object storage so downloads can be
// served from the bucket or CDN.
type Mirror struct {
	store  storage.ObjectStorage
	prefix string
}

// NewMirror creates a Mirror that stores archives under prefix.
func NewMirror(store storage.ObjectStorage, prefix string) *Mirror {
	return &Mirror{store: store, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a job archive.
func (m *Mirror) Key(jobID string) string {
	if m.prefix == "" {
		return jobID + ".zip"
	}
	return path.Join(m.prefix, jobID+".zip")
}

// Publish uploads localPath once and returns the public URL of the archive.
func (m *Mirror) Publish(ctx context.Context, jobID, localPath string) (string, error) {
	key := m.Key(jobID)

	exists, err := m.store.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return m.store.GetURL(key), nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	if err := m.store.Upload(ctx, key, f, fi.Size(), "application/zip"); err != nil {
		return "", err
	}
	return m.store.GetURL(key), nil
}

// Remove deletes the mirrored archive for jobID.
func (m *Mirror) Remove(ctx context.Context, jobID string) error {
	return m.store.Delete(ctx, m.Key(jobID))
}
