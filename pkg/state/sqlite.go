package state

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var (
	errFailedOpenDB  = errors.New("failed to open state database")
	errFailedToInit  = errors.New("failed to initialize state schema")
	errFailedToQuery = errors.New("failed to query state")
	errFailedToSave  = errors.New("failed to save state")
)

const createStateTableSQL = `
	CREATE TABLE IF NOT EXISTS portal_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	PRAGMA journal_mode=WAL;
`

// SQLiteStore is a shared SQLite-backed state database. Individual keys
// are exposed as Adapters through Key.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the state database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedOpenDB, err)
	}

	if _, err := db.Exec(createStateTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", errFailedToInit, err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Key returns the adapter for a single state key.
func (s *SQLiteStore) Key(key string) Adapter {
	return &sqliteAdapter{db: s.db, key: key}
}

type sqliteAdapter struct {
	db  *sql.DB
	key string
}

func (a *sqliteAdapter) Load() ([]byte, bool, error) {
	var value string

	err := a.db.QueryRow("SELECT value FROM portal_state WHERE key = ?", a.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", errFailedToQuery, err)
	}

	return []byte(value), true, nil
}

func (a *sqliteAdapter) Save(data []byte) error {
	_, err := a.db.Exec(
		`INSERT INTO portal_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		a.key, string(data))
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToSave, err)
	}

	return nil
}
