package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	path string
	db   *sql.DB
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
	}
}

func (s *Store) Init() error {
	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.createSchema(); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'daybell init' first")
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	return s.createSchema()
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS backlog_entries (
			id             TEXT PRIMARY KEY,
			template_id    TEXT NOT NULL,
			title          TEXT NOT NULL,
			notes          TEXT NOT NULL DEFAULT '',
			original_date  TEXT NOT NULL,
			backlog_date   TEXT NOT NULL,
			reason         TEXT NOT NULL DEFAULT '',
			priority       INTEGER NOT NULL DEFAULT 3,
			completed      INTEGER NOT NULL DEFAULT 0,
			completed_date TEXT,
			created_at     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS duration_samples (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			template_id   TEXT NOT NULL,
			scheduled_min INTEGER NOT NULL,
			actual_min    INTEGER NOT NULL,
			completed     INTEGER NOT NULL,
			timestamp     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type  TEXT NOT NULL,
			template_id TEXT NOT NULL DEFAULT '',
			task_title  TEXT NOT NULL DEFAULT '',
			details     TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_samples_template ON duration_samples(template_id);
		CREATE INDEX IF NOT EXISTS idx_backlog_completed ON backlog_entries(completed);
	`)
	return err
}

func (s *Store) GetConfigPath() string {
	return s.path
}
