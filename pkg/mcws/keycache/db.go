// Package keycache persists resolved access key state in SQLite so a new
// process can probe the last known address instead of asking the lookup
// service first.
package keycache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS resolved_keys (
	access_key TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	key_id TEXT NOT NULL DEFAULT '',
	local_candidates_json TEXT NOT NULL DEFAULT '[]',
	active_local TEXT NOT NULL DEFAULT '',
	remote TEXT NOT NULL DEFAULT '',
	port TEXT NOT NULL DEFAULT '',
	https_port TEXT NOT NULL DEFAULT '',
	hardware_ids_json TEXT NOT NULL DEFAULT '[]',
	last_resolved_at TEXT,
	updated_at TEXT NOT NULL
);
`

// DBPair holds separate read and write connections. With WAL mode readers
// don't block the single writer.
type DBPair struct {
	reader *sql.DB
	writer *sql.DB
}

// Reader returns the read-only pool.
func (p *DBPair) Reader() *sql.DB { return p.reader }

// Writer returns the single-connection write pool.
func (p *DBPair) Writer() *sql.DB { return p.writer }

// Close closes both connection pools.
func (p *DBPair) Close() error {
	var errs []error
	if err := p.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close reader: %w", err))
	}
	if err := p.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close writer: %w", err))
	}
	return errors.Join(errs...)
}

// Open opens or creates the cache database at path and applies the schema.
func Open(path string) (*DBPair, error) {
	if path == "" {
		return nil, errors.New("cache path is required")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	writer, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal=WAL&_busy_timeout=5000&cache=shared&mode=rwc", path))
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)
	writer.SetConnMaxLifetime(time.Hour)

	if _, err := writer.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		writer.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	if _, err := writer.Exec(schemaSQL); err != nil {
		writer.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	reader, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal=WAL&_busy_timeout=5000&cache=shared&mode=ro", path))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)
	reader.SetMaxIdleConns(2)
	reader.SetConnMaxLifetime(time.Hour)

	return &DBPair{reader: reader, writer: writer}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
