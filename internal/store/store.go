// Package store persists help-session history in SQLite.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for sessions, their threads and
// the items the user opened.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for ad-hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS sessions (
  id              TEXT PRIMARY KEY,
  file            TEXT NOT NULL,
  cursor_offset   INTEGER NOT NULL,
  language        TEXT,
  search_query    TEXT,
  backend         TEXT,
  status          TEXT NOT NULL DEFAULT 'ok',
  thread_count    INTEGER NOT NULL DEFAULT 0,
  created_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS session_threads (
  session_id      TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  thread_id       INTEGER NOT NULL,
  title           TEXT,
  link            TEXT,
  answer_count    INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (session_id, ordinal)
);

CREATE TABLE IF NOT EXISTS clicks (
  id              INTEGER PRIMARY KEY,
  session_id      TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  thread_id       INTEGER NOT NULL,
  answer_id       INTEGER,
  clicked_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
CREATE INDEX IF NOT EXISTS idx_sessions_query ON sessions(search_query);
CREATE INDEX IF NOT EXISTS idx_session_threads_thread ON session_threads(thread_id);
CREATE INDEX IF NOT EXISTS idx_clicks_session ON clicks(session_id);
`
