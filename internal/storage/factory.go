package storage

import (
	"context"
	"strings"

	"github.com/timmy/mediafetch/internal/config"
)

// NewStorage creates an S3-compatible client from the storage section of the config.
// Parameters:
//   - ctx: context used while loading AWS configuration.
//   - cfg: storage configuration including endpoint, credentials and bucket.
// Returns:
//   - *S3Storage: initialized storage client.
//   - error: non-nil if the client cannot be created.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (*S3Storage, error) {
	storeType := StorageType(cfg.Type)
	if storeType == "" {
		storeType = detectStorageType(cfg.Endpoint)
	}

	return NewS3Storage(ctx, &S3Config{
		Type:      storeType,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		PublicURL: cfg.PublicURL,
	})
}

// detectStorageType guesses the provider from the endpoint host.
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case endpoint == "" || strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
