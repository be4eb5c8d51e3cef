package repository

import (
	"context"
	"time"

	"github.com/photobooth/boothsync/internal/models"
)

// MetaRepo defines the interface for remote photo metadata persistence
type MetaRepo interface {
	Get(ctx context.Context, id string) (*models.RemotePhotoMeta, error)
	Upsert(ctx context.Context, meta *models.RemotePhotoMeta) error
	GetAll(ctx context.Context, skip, take int) ([]*models.RemotePhotoMeta, error)
	GetCount(ctx context.Context) (int, error)
	GetCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.RemotePhotoMeta, error)
	Delete(ctx context.Context, id string) (bool, error)
}
