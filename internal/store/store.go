// Package store persists cases, their media, review bundles, CTA buttons,
// bot settings, registered users, and analytics events in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps a single SQLite connection. SQLite serializes writers anyway;
// keeping one connection plus a mutex avoids SQLITE_BUSY churn.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" in tests.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Debug("pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info("store opened", zap.String("path", path))
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id    INTEGER PRIMARY KEY,
			full_name  TEXT,
			username   TEXT,
			date_reg   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS cases (
			case_id     INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'draft'
			            CHECK (status IN ('draft', 'published', 'archived')),
			sort_order  INTEGER NOT NULL DEFAULT 0,
			created     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS case_media (
			media_id   INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id    INTEGER NOT NULL REFERENCES cases(case_id) ON DELETE CASCADE,
			file_id    TEXT NOT NULL,
			media_type TEXT NOT NULL DEFAULT 'photo',
			position   INTEGER NOT NULL DEFAULT 0,
			is_cover   INTEGER NOT NULL DEFAULT 0,
			created    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_case_media_case_id ON case_media(case_id)`,
		`CREATE INDEX IF NOT EXISTS idx_case_media_position ON case_media(case_id, position)`,
		`CREATE TABLE IF NOT EXISTS case_reviews (
			review_id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id   INTEGER NOT NULL UNIQUE REFERENCES cases(case_id) ON DELETE CASCADE,
			created   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS case_review_items (
			item_id      INTEGER PRIMARY KEY AUTOINCREMENT,
			review_id    INTEGER NOT NULL REFERENCES case_reviews(review_id) ON DELETE CASCADE,
			file_id      TEXT,
			media_type   TEXT NOT NULL,
			text_content TEXT,
			position     INTEGER NOT NULL DEFAULT 0,
			created      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_case_review_items_review
			ON case_review_items(review_id, position)`,
		`CREATE TABLE IF NOT EXISTS case_cta (
			case_id      INTEGER PRIMARY KEY REFERENCES cases(case_id) ON DELETE CASCADE,
			button_text  TEXT NOT NULL DEFAULT 'Contact me',
			action_type  TEXT NOT NULL DEFAULT 'contact',
			action_value TEXT,
			updated      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS bot_settings (
			key        TEXT PRIMARY KEY,
			value      TEXT,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_events (
			event_id      INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id       INTEGER NOT NULL,
			event_type    TEXT NOT NULL,
			event_context TEXT,
			event_value   TEXT,
			payload       TEXT,
			created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_events_user_id ON user_events(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_events_type ON user_events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_user_events_created ON user_events(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
