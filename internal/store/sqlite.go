package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	verrors "github.com/Aman-CERP/visindex/internal/errors"
)

// schemaVersion is bumped whenever initSchema changes.
const schemaVersion = 1

// DB is the SQLite database holding catalog products, store views, scoped
// configuration values and cron schedules.
type DB struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// validateIntegrity checks an existing database before opening it for writing.
// Returns nil if the file is missing or healthy.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// Open opens (creating if needed) the database at path.
// An empty path opens an in-memory database.
func Open(path string) (*DB, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, verrors.New(verrors.ErrCodeDatabaseOpen,
				fmt.Sprintf("failed to create directory %s", dir), err)
		}

		// A corrupted catalog database is not ours to delete.
		if err := validateIntegrity(path); err != nil {
			slog.Error("catalog_database_corrupted",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil, verrors.New(verrors.ErrCodeCorruptStore,
				fmt.Sprintf("database at %s failed integrity check", path), err).
				WithSuggestion("restore the database from a backup")
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, verrors.New(verrors.ErrCodeDatabaseOpen, "failed to open database", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite, so set them again.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, verrors.New(verrors.ErrCodeDatabaseOpen, "failed to set pragma", err)
		}
	}

	s := &DB{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, verrors.New(verrors.ErrCodeDatabaseOpen, "failed to initialize schema", err)
	}

	return s, nil
}

// initSchema creates all tables.
func (s *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS store (
		store_id INTEGER PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		website_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS catalog_product (
		entity_id INTEGER PRIMARY KEY,
		sku TEXT NOT NULL UNIQUE,
		type_id TEXT NOT NULL DEFAULT 'simple'
	);

	-- store_id 0 holds the default (admin) value
	CREATE TABLE IF NOT EXISTS catalog_product_visibility (
		entity_id INTEGER NOT NULL REFERENCES catalog_product(entity_id) ON DELETE CASCADE,
		store_id INTEGER NOT NULL DEFAULT 0,
		value INTEGER NOT NULL,
		PRIMARY KEY (entity_id, store_id)
	);

	-- parent_id is deliberately not a foreign key: links can outlive parents
	CREATE TABLE IF NOT EXISTS catalog_product_super_link (
		product_id INTEGER NOT NULL,
		parent_id INTEGER NOT NULL,
		PRIMARY KEY (product_id, parent_id)
	);
	CREATE INDEX IF NOT EXISTS idx_super_link_parent ON catalog_product_super_link(parent_id);

	CREATE TABLE IF NOT EXISTS core_config_data (
		scope TEXT NOT NULL DEFAULT 'default',
		scope_id INTEGER NOT NULL DEFAULT 0,
		path TEXT NOT NULL,
		value TEXT,
		PRIMARY KEY (scope, scope_id, path)
	);

	CREATE TABLE IF NOT EXISTS cron_schedule (
		schedule_id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_code TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL,
		scheduled_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cron_schedule_job ON cron_schedule(job_code, status);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// Path returns the database file path ("" for in-memory).
func (s *DB) Path() string {
	return s.path
}

// Close closes the database.
func (s *DB) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// conn returns the underlying handle, failing once the DB is closed.
func (s *DB) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("database is closed")
	}
	return s.db, nil
}
