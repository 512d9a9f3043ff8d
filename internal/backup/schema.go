package backup

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations[i] upgrades the schema from version i to i+1. Applied versions
// are recorded in schema_version.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS backups (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT    NOT NULL,
			reason     TEXT    NOT NULL DEFAULT '',
			checksum   TEXT    NOT NULL,
			size       INTEGER NOT NULL,
			content    TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backups_created ON backups(created_at)`,
	},
	{
		`ALTER TABLE backups ADD COLUMN job_count INTEGER NOT NULL DEFAULT 0`,
	},
}

// migrate brings the database schema to the latest version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("backup: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("backup: read schema version: %w", err)
	}

	for v := current; v < len(migrations); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("backup: begin migration %d: %w", v+1, err)
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("backup: migrate to %d: %w\nstatement: %s", v+1, err, stmt)
			}
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", v+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("backup: record schema version %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("backup: commit migration %d: %w", v+1, err)
		}
	}
	return nil
}
