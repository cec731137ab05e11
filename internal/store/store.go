// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed-width so stored timestamps order correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps SQLite access for preferences and history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS history_entries (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			dataset TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS history_topics (
			entry_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			category TEXT NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (entry_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_entries_created_at ON history_entries(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_history_topics_category ON history_topics(category);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value for key. Expired values are reported as missing.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if expiresAt.Valid {
		exp, err := time.Parse(timeLayout, expiresAt.String)
		if err != nil {
			return "", false, err
		}
		if !s.now().Before(exp) {
			return "", false, nil
		}
	}
	return value, true, nil
}

// Set stores value under key. A ttl of zero never expires.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UTC().Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	return err
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Purge removes expired values and reports how many were deleted.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		s.now().UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
