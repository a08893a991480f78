// Package storage resolves catalog photo references into URLs the messaging
// provider can fetch.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"salesbot_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultPhotoURLTTL is used when the configured TTL is not positive.
const DefaultPhotoURLTTL = 24 * time.Hour

// MinIOService presigns catalog photos stored as object keys in MinIO.
type MinIOService struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// NewMinIOService creates a new MinIO-backed photo resolver.
func NewMinIOService(cfg config.MinIOConfig) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ttl := cfg.GetPhotoURLTTL()
	if ttl <= 0 {
		ttl = DefaultPhotoURLTTL
	}

	return &MinIOService{
		client: client,
		bucket: cfg.GetMinioBucketCatalogPhotos(),
		ttl:    ttl,
	}, nil
}

// EnsureBucketExists creates the catalog photo bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// ResolvePhotoURL returns ref unchanged when it is already an absolute URL,
// otherwise a presigned GET URL for the object key ref.
func (s *MinIOService) ResolvePhotoURL(ctx context.Context, ref string) (string, error) {
	if IsAbsoluteURL(ref) {
		return ref, nil
	}

	key := strings.TrimPrefix(strings.TrimSpace(ref), "/")
	if key == "" {
		return "", fmt.Errorf("empty photo reference")
	}

	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign photo %s: %w", key, err)
	}
	return presigned.String(), nil
}

// PassthroughResolver is used when MinIO is not configured: references must
// already be absolute URLs.
type PassthroughResolver struct{}

// ResolvePhotoURL returns absolute URLs unchanged and rejects object keys.
func (PassthroughResolver) ResolvePhotoURL(_ context.Context, ref string) (string, error) {
	if IsAbsoluteURL(ref) {
		return ref, nil
	}
	return "", fmt.Errorf("photo reference %q is not a URL and object storage is disabled", ref)
}

// IsAbsoluteURL reports whether ref is an http(s) URL.
func IsAbsoluteURL(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
