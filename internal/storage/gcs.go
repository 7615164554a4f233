package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/itskum47/KMRL-DocAI/internal/domain"
)

// GCSGateway signs V4 URLs against a Cloud Storage bucket. Upload URLs are
// scoped to the exact key and content type; both directions expire after ttl.
type GCSGateway struct {
	client *storage.Client
	bucket string
}

func NewGCSGateway(ctx context.Context, bucket string) (*GCSGateway, error) {
	if bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSGateway{client: client, bucket: bucket}, nil
}

func (g *GCSGateway) Close() error {
	return g.client.Close()
}

func (g *GCSGateway) IssueUploadURL(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	url, err := g.client.Bucket(g.bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		Expires:     time.Now().Add(ttl),
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("sign upload url: %w: %v", domain.ErrStorageUnavailable, err)
	}
	return url, nil
}

func (g *GCSGateway) IssueDownloadURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	url, err := g.client.Bucket(g.bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign download url: %w: %v", domain.ErrStorageUnavailable, err)
	}
	return url, nil
}
