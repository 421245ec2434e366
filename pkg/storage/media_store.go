// Package storage persists uploaded media blobs and hands back retrievable
// references. The rest of the system treats those references as opaque
// strings attached to messages and profiles.
package storage

import (
	"context"
	"io"
)

// MediaStore accepts an uploaded blob and returns a URL-like reference that
// clients can fetch later.
type MediaStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
