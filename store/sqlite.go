// Package store persists the extraction cache and the run history in a
// single SQLite database under the project's tool cache directory.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/lexandro/projectindex/cache"
	"github.com/lexandro/projectindex/extract"
)

const (
	// DriverName is the pure Go SQLite driver.
	DriverName = "sqlite"

	// FileName is the database file created inside the cache directory.
	FileName = "project-indexer.db"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store is closed")

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	path        TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	facts       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	hook_name      TEXT NOT NULL,
	started_at     INTEGER NOT NULL,
	duration_ms    INTEGER NOT NULL,
	success        INTEGER NOT NULL,
	total_files    INTEGER NOT NULL,
	analyzed_files INTEGER NOT NULL,
	cached_files   INTEGER NOT NULL,
	error          TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// SQLite implements cache.Persister and the run history.
type SQLite struct {
	db *sql.DB
}

var _ cache.Persister = (*SQLite)(nil)

// Open opens (creating if needed) the database at dbPath and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(dbPath string) (*SQLite, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=2000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Path returns the database location for a project root and cache directory.
// A relative cacheDir is resolved against rootDir.
func Path(rootDir, cacheDir string) string {
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(rootDir, cacheDir)
	}
	return filepath.Join(cacheDir, FileName)
}

// Remove deletes the database at dbPath together with its WAL side files.
func Remove(dbPath string) error {
	var errs []error
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes the database connection
func (s *SQLite) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Load reads every cache entry. Rows whose facts no longer decode are
// skipped so they are re-extracted on the next run.
func (s *SQLite) Load(ctx context.Context) (map[string]cache.Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT path, fingerprint, facts FROM cache_entries`)
	if err != nil {
		return nil, fmt.Errorf("querying cache entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]cache.Entry)
	for rows.Next() {
		var path, fingerprint, raw string
		if err := rows.Scan(&path, &fingerprint, &raw); err != nil {
			return nil, fmt.Errorf("scanning cache entry: %w", err)
		}
		var facts extract.Facts
		if err := json.Unmarshal([]byte(raw), &facts); err != nil {
			continue
		}
		entries[path] = cache.Entry{Fingerprint: fingerprint, Facts: &facts}
	}
	return entries, rows.Err()
}

// Save replaces the stored cache with entries in one transaction.
func (s *SQLite) Save(ctx context.Context, entries map[string]cache.Entry) error {
	if s.db == nil {
		return ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("clearing cache entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cache_entries (path, fingerprint, facts) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for path, entry := range entries {
		if entry.Facts == nil {
			continue
		}
		raw, err := json.Marshal(entry.Facts)
		if err != nil {
			return fmt.Errorf("encoding facts for %s: %w", path, err)
		}
		if _, err := stmt.ExecContext(ctx, path, entry.Fingerprint, string(raw)); err != nil {
			return fmt.Errorf("inserting %s: %w", path, err)
		}
	}
	return tx.Commit()
}
