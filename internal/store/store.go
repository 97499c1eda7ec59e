// Package store provides SQLite-backed persistence for the client's
// credential slot.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// tokenKey is the fixed name the bearer token is stored under.
const tokenKey = "token"

// ErrNotFound is returned when the requested slot holds no value.
var ErrNotFound = errors.New("store: not found")

// Store owns the local credential database.
type Store struct {
	db *sql.DB
}

// Open creates the database (and its directory) if needed and runs
// migrations.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// PutToken stores the bearer token, replacing any previous value.
func (s *Store) PutToken(token string) error {
	_, err := s.db.Exec(
		`INSERT INTO credentials (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		tokenKey, token, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put token: %w", err)
	}
	return nil
}

// Token returns the stored bearer token, or ErrNotFound when the slot is
// empty.
func (s *Store) Token() (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM credentials WHERE name = ?`, tokenKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query token: %w", err)
	}
	return value, nil
}

// DeleteToken purges the stored token. The returned bool reports whether a
// token was actually present, which lets callers deduplicate side effects
// when two purges race.
func (s *Store) DeleteToken() (bool, error) {
	res, err := s.db.Exec(`DELETE FROM credentials WHERE name = ?`, tokenKey)
	if err != nil {
		return false, fmt.Errorf("delete token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete token: %w", err)
	}
	return n > 0, nil
}
