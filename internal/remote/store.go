// Package remote provides the durable object-store tier behind a narrow
// Store interface, with an S3-compatible implementation (Cloudflare R2,
// MinIO) and a directory-backed implementation for tests and offline runs.
package remote

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound reports that the requested object does not exist in the store.
var ErrNotFound = errors.New("remote: object not found")

// Store is the remote durable tier consumed by the cache resolver and the
// synchronization manager.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, body io.Reader, length int64, contentType string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
