// ABOUTME: SQLite implementation of the store interfaces using modernc.org/sqlite
// ABOUTME: Provides persistence with automatic schema creation and idempotent migrations

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the store interfaces using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a SQLite store at the given path. The schema is created if it
// doesn't exist and migrations are applied. Parent directories are created
// if needed.
func New(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS admins (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_admins_username ON admins(username);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			receiver TEXT,
			text TEXT,
			filename TEXT,
			seen INTEGER NOT NULL DEFAULT 0,
			location TEXT,
			platform TEXT,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);

		CREATE TABLE IF NOT EXISTS gallery_items (
			id TEXT PRIMARY KEY,
			filename TEXT UNIQUE NOT NULL,
			caption TEXT,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS visit_events (
			id TEXT PRIMARY KEY,
			ip TEXT NOT NULL,
			source TEXT NOT NULL,
			page TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_visit_events_timestamp ON visit_events(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// runMigrations applies schema migrations for databases created by older
// versions of the site. These are idempotent - safe to run multiple times.
func (s *SQLiteStore) runMigrations() error {
	// The receiver/location/platform columns were added to messages after the
	// first deployments. SQLite has no ADD COLUMN IF NOT EXISTS, so we check
	// pragma_table_info first; a column that is already present is a no-op.
	migrations := []struct {
		check  string
		apply  string
		column string
	}{
		{
			check:  `SELECT 1 FROM pragma_table_info('messages') WHERE name = 'receiver'`,
			apply:  `ALTER TABLE messages ADD COLUMN receiver TEXT`,
			column: "receiver",
		},
		{
			check:  `SELECT 1 FROM pragma_table_info('messages') WHERE name = 'location'`,
			apply:  `ALTER TABLE messages ADD COLUMN location TEXT`,
			column: "location",
		},
		{
			check:  `SELECT 1 FROM pragma_table_info('messages') WHERE name = 'platform'`,
			apply:  `ALTER TABLE messages ADD COLUMN platform TEXT`,
			column: "platform",
		},
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRow(m.check).Scan(&exists)
		if err == nil {
			// Column already exists, skip
			continue
		}
		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to messages: %w", m.column, err)
		}
		s.logger.Info("applied migration", "column", m.column, "table", "messages")
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	// SQLite returns "UNIQUE constraint failed" in the error message
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "unique constraint"))
}

// nullString returns nil for empty strings, otherwise the string itself.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ CredentialStore = (*SQLiteStore)(nil)
var _ Ledger = (*SQLiteStore)(nil)
var _ GalleryStore = (*SQLiteStore)(nil)
var _ AnalyticsStore = (*SQLiteStore)(nil)
var _ VisitStore = (*SQLiteStore)(nil)
