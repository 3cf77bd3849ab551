package repository

import (
	"context"
	"io"

	"cowork-console/internal/console/domain/model"
)

// BlobStore is the port for durable media storage. Put performs a single
// attempt with no retry; retry policy belongs to the caller. The returned
// URL is stable and publicly fetchable.
type BlobStore interface {
	Put(ctx context.Context, kind model.MediaKind, filename string, contentType string, body io.Reader) (string, error)
}
