package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Obligations",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS obligations (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL,
					kind TEXT NOT NULL CHECK (kind IN ('contract', 'expense')),
					name TEXT NOT NULL,
					amount TEXT NOT NULL,
					frequency TEXT NOT NULL,
					status TEXT,
					probability INTEGER NOT NULL DEFAULT 100,
					start_date DATETIME NOT NULL,
					end_date DATETIME,
					active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_obligations_user_kind ON obligations(user_id, kind)`,
				`CREATE INDEX idx_obligations_end_date ON obligations(end_date)`,
				`CREATE TRIGGER update_obligations_updated_at
				AFTER UPDATE ON obligations
				FOR EACH ROW
				BEGIN
					UPDATE obligations SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
				END`,
			})
		},
	},
	{
		Version:     2,
		Description: "Alert history and business events",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS alerts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL,
					alert_type TEXT NOT NULL,
					alert_key TEXT NOT NULL,
					payload TEXT NOT NULL DEFAULT '{}',
					occurred_at DATETIME NOT NULL,
					UNIQUE(user_id, alert_type, alert_key)
				)`,
				`CREATE INDEX idx_alerts_lookup ON alerts(user_id, alert_type, occurred_at)`,

				`CREATE TABLE IF NOT EXISTS business_events (
					id TEXT PRIMARY KEY,
					user_id INTEGER NOT NULL,
					event_type TEXT NOT NULL,
					category TEXT NOT NULL,
					tier TEXT NOT NULL,
					tier_rank INTEGER NOT NULL,
					title TEXT NOT NULL,
					description TEXT,
					amount TEXT,
					source_id TEXT,
					metadata TEXT NOT NULL DEFAULT '{}',
					occurred_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_business_events_user ON business_events(user_id, occurred_at)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Settings",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS settings (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			})
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
