package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/funnelmkt/internal/config"
	_ "modernc.org/sqlite"
)

// FileName is the database file inside the base directory.
const FileName = "funnel.db"

// PreviewsDir is the subdirectory where CLI previews are written.
const PreviewsDir = "previews"

// Init initializes the SQLite database at baseDir/funnel.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.funnel.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	previewsDir := filepath.Join(baseDir, PreviewsDir)
	if err := os.MkdirAll(previewsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create previews directory: %w", err)
	}
	_ = os.Chmod(previewsDir, 0700)

	// Pragmas in the DSN apply to every pooled connection.
	dbPath := filepath.Join(baseDir, FileName)
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

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrations[i] moves the schema from user_version i to i+1.
var migrations = []string{
	// clients table
	`CREATE TABLE IF NOT EXISTS clients (
	  id                TEXT PRIMARY KEY,
	  position          INTEGER NOT NULL,
	  full_name         TEXT NOT NULL,
	  job_title         TEXT NOT NULL DEFAULT '',
	  email             TEXT NOT NULL,
	  phone             TEXT NOT NULL,
	  company_name      TEXT NOT NULL,
	  industry          TEXT NOT NULL,
	  company_size      TEXT NOT NULL,
	  years_in_market   INTEGER NOT NULL DEFAULT 0,
	  website           TEXT NOT NULL DEFAULT '',
	  social_media      TEXT NOT NULL DEFAULT '',
	  general_goal      TEXT NOT NULL DEFAULT '',
	  specific_goals    TEXT NOT NULL DEFAULT '',
	  obstacles         TEXT NOT NULL DEFAULT '',
	  prior_results     TEXT NOT NULL DEFAULT '',
	  priority          TEXT NOT NULL,
	  channels_json     TEXT NOT NULL,
	  last_interaction  TEXT NOT NULL,
	  stage             TEXT NOT NULL,
	  created_at        INTEGER NOT NULL,
	  updated_at        INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_clients_position ON clients(position);
	CREATE INDEX IF NOT EXISTS idx_clients_stage ON clients(stage);`,

	// segmentation attributes
	`ALTER TABLE clients ADD COLUMN location TEXT NOT NULL DEFAULT '';
	ALTER TABLE clients ADD COLUMN interests_json TEXT NOT NULL DEFAULT '[]';
	ALTER TABLE clients ADD COLUMN purchase_behavior TEXT NOT NULL DEFAULT '';
	CREATE INDEX IF NOT EXISTS idx_clients_location ON clients(location);`,
}

// CurrentSchemaVersion is the user_version after every migration has run.
var CurrentSchemaVersion = len(migrations)

// migrate runs every migration newer than the stored user_version, each in
// its own transaction together with the version bump.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	for next := version; next < len(migrations); next++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d failed: %w", next+1, err)
		}
		if _, err := tx.Exec(migrations[next]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", next+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", next+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", next+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d failed: %w", next+1, err)
		}
	}
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

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
