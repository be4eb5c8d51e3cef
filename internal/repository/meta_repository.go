package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/photobooth/boothsync/internal/models"
)

// MetaRepository handles photo metadata persistence on SQLite
type MetaRepository struct {
	db *sql.DB
}

// NewMetaRepository creates a new MetaRepository
func NewMetaRepository(db *sql.DB) *MetaRepository {
	return &MetaRepository{db: db}
}

// Get retrieves a photo's metadata by its ID
func (r *MetaRepository) Get(ctx context.Context, id string) (*models.RemotePhotoMeta, error) {
	query := `
		SELECT id, file_url, width, height, layout_name, created_at
		FROM photos WHERE id = ?
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

// Upsert inserts the metadata record, or overwrites everything except
// created_at on conflict. Retried syncs re-send the same id, so the
// original server-assigned timestamp must survive.
func (r *MetaRepository) Upsert(ctx context.Context, meta *models.RemotePhotoMeta) error {
	query := `
		INSERT INTO photos (id, file_url, width, height, layout_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_url = excluded.file_url,
			width = excluded.width,
			height = excluded.height,
			layout_name = excluded.layout_name
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
func (r *MetaRepository) GetAll(ctx context.Context, skip, take int) ([]*models.RemotePhotoMeta, error) {
	query := `
		SELECT id, file_url, width, height, layout_name, created_at
		FROM photos
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, take, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMetas(rows)
}

// GetCount returns the total number of photos
func (r *MetaRepository) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos").Scan(&count)
	return count, err
}

// GetCreatedBefore returns photos created before cutoff, oldest first.
// Used by the cleanup sweep to find expired content.
func (r *MetaRepository) GetCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.RemotePhotoMeta, error) {
	query := `
		SELECT id, file_url, width, height, layout_name, created_at
		FROM photos
		WHERE created_at < ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMetas(rows)
}

// Delete removes a photo's metadata by ID
func (r *MetaRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM photos WHERE id = ?", id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func collectMetas(rows *sql.Rows) ([]*models.RemotePhotoMeta, error) {
	metas := []*models.RemotePhotoMeta{}
	for rows.Next() {
		var meta models.RemotePhotoMeta
		if err := rows.Scan(
			&meta.ID,
			&meta.FileURL,
			&meta.Width,
			&meta.Height,
			&meta.LayoutName,
			&meta.CreatedAt,
		); err != nil {
			return nil, err
		}
		metas = append(metas, &meta)
	}

	return metas, rows.Err()
}
