// Package queue is the durable local store for captured photos awaiting
// remote sync. Every write is committed before the call returns, so a
// capture survives process death even if the first upload attempt never
// starts.
package queue

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/photobooth/boothsync/internal/models"
)

// Store provides crash-durable CRUD over PhotoRecord, keyed by id
type Store struct {
	db *sql.DB
}

// Open creates or opens the queue database at dbPath
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, models.NewStorageError("open", err)
	}

	// Full sync so a committed Save is on disk before the caller proceeds
	// to the network attempt.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, models.NewStorageError("configure", err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, models.NewStorageError("migrate", err)
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS photo_queue (
		id TEXT PRIMARY KEY,
		image_data BLOB NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		layout_name TEXT NOT NULL,
		captured_at DATETIME NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0,
		remote_id TEXT,
		retry_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_photo_queue_synced ON photo_queue(synced);
	`

	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or fully overwrites the record with matching id. The record
// is durably committed when Save returns.
func (s *Store) Save(ctx context.Context, record *models.PhotoRecord) error {
	query := `
		INSERT OR REPLACE INTO photo_queue
			(id, image_data, width, height, layout_name, captured_at, synced, remote_id, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.ImageData,
		record.Width,
		record.Height,
		record.LayoutName,
		record.CapturedAt,
		record.Synced,
		record.RemoteID,
		record.RetryCount,
	)
	if err != nil {
		return models.NewStorageError("save", err)
	}

	return nil
}

// Get retrieves a record by id without its image payload, or nil if absent
func (s *Store) Get(ctx context.Context, id string) (*models.PhotoRecord, error) {
	query := `
		SELECT id, width, height, layout_name, captured_at, synced, remote_id, retry_count
		FROM photo_queue WHERE id = ?
	`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, models.NewStorageError("get", err)
	}

	return record, nil
}

// ListPending returns all records not yet synced, oldest capture first.
// It always reads the latest committed state; there is no caching layer.
func (s *Store) ListPending(ctx context.Context) ([]*models.PhotoRecord, error) {
	query := `
		SELECT id, width, height, layout_name, captured_at, synced, remote_id, retry_count
		FROM photo_queue
		WHERE synced = 0
		ORDER BY captured_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, models.NewStorageError("list pending", err)
	}
	defer rows.Close()

	records := []*models.PhotoRecord{}
	for rows.Next() {
		record, err := scanRecordRows(rows)
		if err != nil {
			return nil, models.NewStorageError("list pending", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStorageError("list pending", err)
	}

	return records, nil
}

// ListExhausted returns unsynced records whose retry count exceeds ceiling.
// These records stay queued; they are surfaced so operators can tell a
// capture is stuck.
func (s *Store) ListExhausted(ctx context.Context, ceiling int) ([]*models.PhotoRecord, error) {
	query := `
		SELECT id, width, height, layout_name, captured_at, synced, remote_id, retry_count
		FROM photo_queue
		WHERE synced = 0 AND retry_count > ?
		ORDER BY captured_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, ceiling)
	if err != nil {
		return nil, models.NewStorageError("list exhausted", err)
	}
	defer rows.Close()

	records := []*models.PhotoRecord{}
	for rows.Next() {
		record, err := scanRecordRows(rows)
		if err != nil {
			return nil, models.NewStorageError("list exhausted", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStorageError("list exhausted", err)
	}

	return records, nil
}

// GetImageData returns the image payload for id, or ErrRecordNotFound
func (s *Store) GetImageData(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT image_data FROM photo_queue WHERE id = ?", id,
	).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, models.NewStorageError("get image data", err)
	}

	return data, nil
}

// MarkSynced sets synced=true and records the remote id. A missing record
// is a silent no-op so retried callers never fail here.
func (s *Store) MarkSynced(ctx context.Context, id, remoteID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE photo_queue SET synced = 1, remote_id = ? WHERE id = ?",
		remoteID, id,
	)
	if err != nil {
		return models.NewStorageError("mark synced", err)
	}

	return nil
}

// IncrementRetry bumps the retry counter. A missing record is a silent
// no-op. The counter only ever increases.
func (s *Store) IncrementRetry(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE photo_queue SET retry_count = retry_count + 1 WHERE id = ?",
		id,
	)
	if err != nil {
		return models.NewStorageError("increment retry", err)
	}

	return nil
}

// PendingCount returns the number of unsynced records
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM photo_queue WHERE synced = 0",
	).Scan(&count)
	if err != nil {
		return 0, models.NewStorageError("pending count", err)
	}

	return count, nil
}

func scanRecord(row *sql.Row) (*models.PhotoRecord, error) {
	var record models.PhotoRecord
	err := row.Scan(
		&record.ID,
		&record.Width,
		&record.Height,
		&record.LayoutName,
		&record.CapturedAt,
		&record.Synced,
		&record.RemoteID,
		&record.RetryCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func scanRecordRows(rows *sql.Rows) (*models.PhotoRecord, error) {
	var record models.PhotoRecord
	err := rows.Scan(
		&record.ID,
		&record.Width,
		&record.Height,
		&record.LayoutName,
		&record.CapturedAt,
		&record.Synced,
		&record.RemoteID,
		&record.RetryCount,
	)
	if err != nil {
		return nil, err
	}

	return &record, nil
}
