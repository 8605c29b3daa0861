// Package storage provides a domain-agnostic interface for S3-compatible object storage
// (Cloudflare R2 in production, MinIO locally) plus the question image key scheme.
package storage

import (
	"context"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned upload/download operation.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectInfo describes a stored object returned by ListObjects.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// StorageService defines the interface for object storage operations.
type StorageService interface {
	// GenerateUploadURL creates a presigned PUT URL for key. The signature
	// covers the Content-Type header, so the client must send contentType.
	GenerateUploadURL(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (*PresignedURL, error)

	// DeleteObject removes an object from storage.
	DeleteObject(ctx context.Context, bucket, key string) error

	// DeleteObjects removes several objects in one batch.
	DeleteObjects(ctx context.Context, bucket string, keys []string) error

	// ListObjects returns objects under prefix last modified before cutoff.
	ListObjects(ctx context.Context, bucket, prefix string, cutoff time.Time) ([]ObjectInfo, error)

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIORegion() string
	IsMinIOEnabled() bool
}
