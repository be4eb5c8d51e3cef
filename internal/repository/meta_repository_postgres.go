package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/photobooth/boothsync/internal/models"
)

// PostgresMetaRepository handles photo metadata persistence on PostgreSQL
type PostgresMetaRepository struct {
	db *sql.DB
}

// NewPostgresMetaRepository creates a new PostgresMetaRepository
func NewPostgresMetaRepository(db *sql.DB) *PostgresMetaRepository {
	return &PostgresMetaRepository{db: db}
}

// Get retrieves a photo's metadata by its ID
func (r *PostgresMetaRepository) Get(ctx context.Context, id string) (*models.RemotePhotoMeta, error) {
	query := `
		SELECT id, file_url, width, height, layout_name, created_at
		FROM photos WHERE id = $1
	`

	var meta models.RemotePhotoMeta
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&meta.ID,
		&meta.FileURL,
		&meta.Width,
		&meta.Height,
		&meta.LayoutName,
		&meta.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &meta, nil
}

// Upsert inserts the metadata record, preserving created_at on conflict
func (r *PostgresMetaRepository) Upsert(ctx context.Context, meta *models.RemotePhotoMeta) error {
	query := `
		INSERT INTO photos (id, file_url, width, height, layout_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			file_url = EXCLUDED.file_url,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			layout_name = EXCLUDED.layout_name
	`

	createdAt := meta.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		meta.ID,
		meta.FileURL,
		meta.Width,
		meta.Height,
		meta.LayoutName,
		createdAt,
	)

	return err
}

// GetAll retrieves photo metadata with pagination, newest first
func (r *PostgresMetaRepository) GetAll(ctx context.Context, skip, take int) ([]*models.RemotePhotoMeta, error) {
	query := `
		SELECT id, file_url, width, height, layout_name, created_at
		FROM photos
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, take, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMetas(rows)
}

// GetCount returns the total number of photos
func (r *PostgresMetaRepository) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos").Scan(&count)
	return count, err
}

// GetCreatedBefore returns photos created before cutoff, oldest first
func (r *PostgresMetaRepository) GetCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.RemotePhotoMeta, error) {
	query := `
		SELECT id, file_url, width, height, layout_name, created_at
		FROM photos
		WHERE created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMetas(rows)
}

// Delete removes a photo's metadata by ID
func (r *PostgresMetaRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM photos WHERE id = $1", id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
