package storage

import (
	"context"
	"time"
)

// Gateway issues time-limited capability URLs for a single object. The
// pipeline never touches file bytes; clients upload and download directly
// against the returned URLs.
type Gateway interface {
	IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	IssueDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
