package catalog

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the catalog tables. Each statement uses
// IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tools (
		name         TEXT NOT NULL,
		version      TEXT NOT NULL,
		doc          TEXT NOT NULL DEFAULT '',
		container    TEXT NOT NULL DEFAULT '',
		base_command TEXT NOT NULL DEFAULT '[]',
		inputs       TEXT NOT NULL DEFAULT '[]',
		outputs      TEXT NOT NULL DEFAULT '[]',
		created_at   TEXT NOT NULL,
		PRIMARY KEY (name, version)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tools_name ON tools(name)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
