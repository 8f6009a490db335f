package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// migrations are applied in order starting from version 0.
// Never modify an existing migration, only append new ones.
var migrations = []func(*sql.Tx) error{
	migrateV0,
	migrateV1,
}

// migrateV0 creates the analysis and run tables.
func migrateV0(tx *sql.Tx) error {
	schema := `
CREATE TABLE IF NOT EXISTS analyses (
    path TEXT NOT NULL,
    options TEXT NOT NULL,
    hash TEXT NOT NULL,
    skip INTEGER NOT NULL DEFAULT 0,
    descriptor TEXT NOT NULL DEFAULT '',
    src TEXT NOT NULL DEFAULT '',
    analyzed_at TEXT NOT NULL,
    PRIMARY KEY (path, options)
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    root TEXT NOT NULL,
    started_at TEXT NOT NULL,
    completed_at TEXT,
    files INTEGER NOT NULL DEFAULT 0,
    hits INTEGER NOT NULL DEFAULT 0,
    misses INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`
	_, err := tx.ExecContext(context.Background(), schema)
	return err
}

// migrateV1 stores the analyzer warnings with each analysis. Earlier rows
// were saved without them, so they are dropped.
func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		`ALTER TABLE analyses ADD COLUMN warnings TEXT NOT NULL DEFAULT '[]';`,
		`DELETE FROM analyses;`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(context.Background(), stmt); err != nil {
			return err
		}
	}
	return nil
}

func ensureSchema(db *sql.DB) error {
	if _, err := db.ExecContext(context.Background(), schemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}
	for i := current + 1; i < len(migrations); i++ {
		if err := runMigration(db, i); err != nil {
			return fmt.Errorf("run migration %d: %w", i, err)
		}
	}
	return nil
}

func runMigration(db *sql.DB, version int) error {
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := migrations[version](tx); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(context.Background(), "INSERT INTO schema_version (version, applied_at) VALUES (?, ?)", version, now); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration, or -1.
func SchemaVersion(db *sql.DB) (int, error) {
	var version int
	row := db.QueryRowContext(context.Background(), "SELECT COALESCE(MAX(version), -1) FROM schema_version")
	err := row.Scan(&version)
	return version, err
}
