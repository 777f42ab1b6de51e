package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: initial schema. cost_micros holds the cost in units of
	// 1e-6 USD so sums stay exact integer arithmetic; created_at holds UTC
	// unix nanoseconds for exact, index-friendly range filters.
	`CREATE TABLE IF NOT EXISTS cost_records (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		org_id      TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		feature     TEXT NOT NULL,
		provider    TEXT NOT NULL,
		model       TEXT NOT NULL,
		tokens_in   INTEGER NOT NULL,
		tokens_out  INTEGER NOT NULL,
		cost_micros INTEGER NOT NULL,
		latency_ms  INTEGER,
		request_id  TEXT NOT NULL,
		metadata    TEXT NOT NULL DEFAULT '{}',
		created_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cost_records_org_id ON cost_records(org_id);
	CREATE INDEX IF NOT EXISTS idx_cost_records_user_id ON cost_records(user_id);
	CREATE INDEX IF NOT EXISTS idx_cost_records_feature ON cost_records(feature);
	CREATE INDEX IF NOT EXISTS idx_cost_records_created_at ON cost_records(created_at);`,
}

// runMigrations applies pending schema migrations. Reopening an up-to-date
// database is a no-op; a database from a newer version is rejected so an old
// binary never misreads columns it does not know about.
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

	if currentVersion > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, len(migrations))
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
