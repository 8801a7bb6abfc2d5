package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for all journal tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		plan_name      TEXT NOT NULL,
		tick_period_ms INTEGER NOT NULL,
		capacity       INTEGER NOT NULL,
		state          TEXT NOT NULL DEFAULT 'RUNNING',
		ticks          INTEGER NOT NULL DEFAULT 0,
		fires          INTEGER NOT NULL DEFAULT 0,
		overruns       INTEGER NOT NULL DEFAULT 0,
		started_at     TEXT NOT NULL,
		finished_at    TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS fires (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		tick      INTEGER NOT NULL,
		slot_id   INTEGER NOT NULL,
		task_name TEXT NOT NULL,
		at        TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS overruns (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		tick    INTEGER NOT NULL,
		pending INTEGER NOT NULL,
		at      TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state)`,
	`CREATE INDEX IF NOT EXISTS idx_fires_run_tick ON fires(run_id, tick)`,
	`CREATE INDEX IF NOT EXISTS idx_overruns_run_tick ON overruns(run_id, tick)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // Optional index to create after column is added
}{
	{
		table:    "runs",
		column:   "error",
		alterSQL: "ALTER TABLE runs ADD COLUMN error TEXT NOT NULL DEFAULT ''",
	},
	{
		table:    "fires",
		column:   "task_name",
		alterSQL: "ALTER TABLE fires ADD COLUMN task_name TEXT NOT NULL DEFAULT ''",
		indexSQL: "CREATE INDEX IF NOT EXISTS idx_fires_task_name ON fires(run_id, task_name)",
	},
}

// migrate executes all schema DDL statements, alter migrations, and post-migration indexes.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
