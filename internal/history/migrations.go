package history

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: Initial schema
	`CREATE TABLE IF NOT EXISTS runs (
		id               TEXT PRIMARY KEY,
		run_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		report_date      TEXT NOT NULL,
		flow             TEXT NOT NULL CHECK(flow IN ('report', 'monitor')),
		metric           TEXT NOT NULL,
		gross            TEXT NOT NULL DEFAULT '',
		net              TEXT NOT NULL DEFAULT '',
		alerts_fired     INTEGER NOT NULL DEFAULT 0,
		email_message_id TEXT NOT NULL DEFAULT '',
		email_error      TEXT NOT NULL DEFAULT '',
		archive_key      TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_run_at ON runs(run_at);
	CREATE INDEX IF NOT EXISTS idx_runs_report_date ON runs(report_date);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
