package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateDropStatusCheck(db); err != nil {
		return fmt.Errorf("relaxing task status constraint: %w", err)
	}
	if err := migrateBackfillSeq(db); err != nil {
		return fmt.Errorf("backfilling time log seq values: %w", err)
	}
	return nil
}

// migrateDropStatusCheck rebuilds a tasks table created with a CHECK on
// status, so snapshots with statuses added by the backend later can be
// stored. Time logs are kept: foreign keys are off during the swap.
func migrateDropStatusCheck(db *sql.DB) error {
	ctx := context.Background()

	var ddl string
	err := db.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'tasks'`).Scan(&ddl)
	if err != nil {
		return fmt.Errorf("reading tasks schema: %w", err)
	}
	if !strings.Contains(ddl, "CHECK(status") {
		return nil
	}

	// PRAGMA foreign_keys is per connection and ignored inside a transaction.
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return err
	}
	defer func() { _, _ = conn.ExecContext(ctx, `PRAGMA foreign_keys = ON`) }()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`CREATE TABLE tasks_rebuild (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL DEFAULT 'todo',
			updated_at TEXT,
			fetched_at TEXT NOT NULL,
			stale      INTEGER NOT NULL DEFAULT 0
		)`,
		`INSERT INTO tasks_rebuild (id, title, status, updated_at, fetched_at, stale)
		 SELECT id, title, status, updated_at, fetched_at, stale FROM tasks`,
		`DROP TABLE tasks`,
		`ALTER TABLE tasks_rebuild RENAME TO tasks`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// migrateBackfillSeq numbers time log rows written before the seq column
// existed, in start order per task.
func migrateBackfillSeq(db *sql.DB) error {
	ctx := context.Background()

	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT task_id FROM time_logs WHERE seq = 0`)
	if err != nil {
		return fmt.Errorf("listing tasks needing seq backfill: %w", err)
	}
	var taskIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		taskIDs = append(taskIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, taskID := range taskIDs {
		logRows, err := db.QueryContext(ctx,
			`SELECT id FROM time_logs WHERE task_id = ? ORDER BY start_at, id`, taskID)
		if err != nil {
			return fmt.Errorf("listing time logs for task: %w", err)
		}
		var ids []string
		for logRows.Next() {
			var id string
			if err := logRows.Scan(&id); err != nil {
				logRows.Close()
				return err
			}
			ids = append(ids, id)
		}
		logRows.Close()

		for i, id := range ids {
			if _, err := db.ExecContext(ctx,
				`UPDATE time_logs SET seq = ? WHERE id = ?`, i+1, id); err != nil {
				return fmt.Errorf("updating time log seq: %w", err)
			}
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT '',
		status     TEXT NOT NULL DEFAULT 'todo',
		updated_at TEXT,
		fetched_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS time_logs (
		id       TEXT PRIMARY KEY,
		task_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		start_at TEXT NOT NULL,
		end_at   TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_time_logs_task ON time_logs(task_id)`,

	// Cache invalidation marks rows stale instead of deleting them.
	`ALTER TABLE tasks ADD COLUMN stale INTEGER NOT NULL DEFAULT 0`,

	// Preserve the backend's ledger order.
	`ALTER TABLE time_logs ADD COLUMN seq INTEGER NOT NULL DEFAULT 0`,
	`CREATE INDEX IF NOT EXISTS idx_time_logs_task_seq ON time_logs(task_id, seq)`,

	// Freshness of whole-collection queries such as the task list.
	`CREATE TABLE IF NOT EXISTS query_state (
		key        TEXT PRIMARY KEY,
		fetched_at TEXT NOT NULL,
		stale      INTEGER NOT NULL DEFAULT 0
	)`,
}
