package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Index persists Ready cache entries so restarts keep serving downloaded
// tracks without refetching.
type Index struct {
	db *sql.DB
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS tracks (
	source_id  TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	performer  TEXT NOT NULL DEFAULT '',
	size_bytes INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
`

// OpenIndex opens (creating if needed) the sqlite index at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache index: %w", err)
	}
	return &Index{db: db}, nil
}

// IndexRow is one persisted track.
type IndexRow struct {
	SourceID  string
	Path      string
	Title     string
	Performer string
	SizeBytes int64
}

// Record upserts a track's artifact.
func (ix *Index) Record(t Track, path string, size int64) error {
	_, err := ix.db.Exec(`
		INSERT INTO tracks (source_id, path, title, performer, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			path = excluded.path,
			title = excluded.title,
			performer = excluded.performer,
			size_bytes = excluded.size_bytes,
			created_at = excluded.created_at`,
		t.SourceID, path, t.Title, t.Performer, size,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// Load returns all persisted tracks.
func (ix *Index) Load() ([]IndexRow, error) {
	rows, err := ix.db.Query(`SELECT source_id, path, title, performer, size_bytes FROM tracks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []IndexRow
	for rows.Next() {
		var r IndexRow
		if err := rows.Scan(&r.SourceID, &r.Path, &r.Title, &r.Performer, &r.SizeBytes); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (ix *Index) Close() error {
	return ix.db.Close()
}
