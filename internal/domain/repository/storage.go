package repository

import (
	"context"
	"io"
)

// SnapshotStorage defines the interface for publishing exported catalog
// snapshots to an object store.
// Implementations should be provided by the infrastructure layer (e.g. MinIO).
type SnapshotStorage interface {
	// Upload stores an object under key with the given content type.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Exists checks whether an object is already present under key.
	Exists(ctx context.Context, key string) (bool, error)
}
