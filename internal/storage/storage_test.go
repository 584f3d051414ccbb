package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/timmy/mediafetch/internal/config"
)

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{endpoint: "https://abc.r2.cloudflarestorage.com", want: StorageTypeR2},
		{endpoint: "s3.us-west-2.amazonaws.com", want: StorageTypeS3},
		{endpoint: "", want: StorageTypeS3},
		{endpoint: "localhost:9000", want: StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		if got := detectStorageType(tt.endpoint); got != tt.want {
			t.Errorf("detectStorageType(%q) = %s, want %s", tt.endpoint, got, tt.want)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"https://minio.local:9000/":      "minio.local:9000",
		"http://minio.local:9000/bucket": "minio.local:9000",
		"minio.local":                    "minio.local",
	}
	for in, want := range tests {
		if got := normalizeEndpoint(in); got != want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewStorageGetURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{
			name: "public url wins",
			cfg:  config.StorageConfig{Endpoint: "minio.local:9000", Bucket: "media", PublicURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com/archives/x.zip",
		},
		{
			name: "path style endpoint",
			cfg:  config.StorageConfig{Endpoint: "minio.local:9000", Bucket: "media"},
			want: "http://minio.local:9000/media/archives/x.zip",
		},
		{
			name: "aws default",
			cfg:  config.StorageConfig{Bucket: "media", Region: "eu-west-1", AccessKey: "k", SecretKey: "s"},
			want: "https://media.s3.eu-west-1.amazonaws.com/archives/x.zip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStorage(context.Background(), tt.cfg)
			if err != nil {
				t.Fatalf("NewStorage: %v", err)
			}
			if got := s.GetURL("archives/x.zip"); got != tt.want {
				t.Errorf("GetURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&types.NotFound{}) {
		t.Error("types.NotFound not recognised")
	}
	if !isNotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}) {
		t.Error("NoSuchKey not recognised")
	}
	if isNotFound(errors.New("connection refused")) {
		t.Error("generic error treated as not found")
	}
}
