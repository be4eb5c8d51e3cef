// Package remote defines the interfaces the sync engine uploads through,
// and clients for the bundled share server and S3-compatible storage.
package remote

import (
	"context"

	"github.com/photobooth/boothsync/internal/models"
)

// ObjectStorage stores photo bytes at a deterministic per-photo key.
// Upload must tolerate overwriting an existing key: retries re-upload to
// the same key after a partial failure.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}

// MetadataService is the remote photo metadata store. Upsert has
// insert-or-overwrite semantics for the same id.
type MetadataService interface {
	Upsert(ctx context.Context, meta *models.RemotePhotoMeta) error
	Get(ctx context.Context, id string) (*models.RemotePhotoMeta, error)
}
