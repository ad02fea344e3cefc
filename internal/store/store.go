// Package store is the SQLite-backed record store. It executes query
// descriptors (count, record-at-index) and absorbs probe results.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Store wraps the servers database.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at baseDir/spyglass.db.
// The baseDir parameter allows tests to use t.TempDir().
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, "spyglass.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ConfigurePool applies connection pool limits. Zero values are ignored.
func (s *Store) ConfigurePool(maxOpen, maxIdle int) {
	if maxOpen > 0 {
		s.db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		s.db.SetMaxIdleConns(maxIdle)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := getUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS servers (
		  id               TEXT PRIMARY KEY,
		  ip               TEXT NOT NULL,
		  port             INTEGER NOT NULL,
		  hostname         TEXT,
		  description      TEXT NOT NULL DEFAULT '',
		  version_name     TEXT NOT NULL DEFAULT '',
		  version_protocol INTEGER NOT NULL DEFAULT 0,
		  players_online   INTEGER NOT NULL DEFAULT 0,
		  players_max      INTEGER NOT NULL DEFAULT 0,
		  sample_json      TEXT,
		  sample_count     INTEGER NOT NULL DEFAULT 0,
		  favicon          TEXT,
		  cracked          INTEGER,
		  has_forge_data   INTEGER NOT NULL DEFAULT 0,
		  mods_json        TEXT,
		  whitelist        INTEGER,
		  last_seen        INTEGER NOT NULL DEFAULT 0,
		  geo_country      TEXT,
		  geo_city         TEXT,
		  UNIQUE(ip, port)
		);

		CREATE INDEX IF NOT EXISTS idx_servers_last_seen
		ON servers(last_seen DESC);

		CREATE INDEX IF NOT EXISTS idx_servers_players_online
		ON servers(players_online DESC);

		CREATE INDEX IF NOT EXISTS idx_servers_version_protocol
		ON servers(version_protocol DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

func getUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
