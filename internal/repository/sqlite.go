package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Photo metadata for shared booth photos. created_at is server-assigned
	-- and authoritative for expiry.
	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		file_url TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		layout_name TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_photos_created_at ON photos(created_at);
	`

	_, err := db.Exec(schema)
	return err
}
