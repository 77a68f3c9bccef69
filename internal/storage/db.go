// Package storage persists scans, cached book metadata, recommendation
// sets, and device preferences in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Schema creates all tables. Executed on every open; idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS book_metadata_cache (
	id TEXT PRIMARY KEY,
	title_key TEXT NOT NULL,
	author_key TEXT NOT NULL,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	isbn TEXT,
	cover_url TEXT,
	description TEXT,
	categories TEXT, -- JSON array as text
	cached_at DATETIME NOT NULL,
	UNIQUE(title_key, author_key)
);

CREATE TABLE IF NOT EXISTS scans (
	id TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	books TEXT NOT NULL, -- JSON array as text
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_device ON scans(device_id, created_at);

CREATE TABLE IF NOT EXISTS recommendations (
	id TEXT PRIMARY KEY,
	scan_id TEXT NOT NULL UNIQUE,
	device_id TEXT NOT NULL,
	books TEXT NOT NULL, -- JSON array as text
	saved INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recommendations_cleanup ON recommendations(saved, created_at);

CREATE TABLE IF NOT EXISTS preferences (
	device_id TEXT PRIMARY KEY,
	genres TEXT NOT NULL DEFAULT '[]',
	authors TEXT NOT NULL DEFAULT '[]',
	language TEXT NOT NULL DEFAULT '',
	reading_level TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL
);
`

type Config struct {
	Path string
}

// DefaultConfig resolves the database location from the environment,
// falling back to ~/.shelfscan/data.db.
func DefaultConfig() Config {
	if p := os.Getenv("SHELFSCAN_DB_PATH"); p != "" {
		return Config{Path: p}
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{Path: filepath.Join(home, ".shelfscan", "data.db")}
}

// Store wraps the SQLite handle with the domain operations. Safe for
// concurrent use; SQLite serializes writers underneath.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at cfg.Path and applies the
// schema.
func Open(cfg Config) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable; used by the healthcheck.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
