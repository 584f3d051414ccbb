package storage

import (
	"context"
	"io"
)

// ObjectStorage is the subset of an object store the archive mirror needs.
type ObjectStorage interface {
	// Upload stores size bytes from reader under key
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the public URL of key
	GetURL(key string) string

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}
