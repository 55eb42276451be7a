package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tasktimer/internal/db"
	"github.com/alexanderramin/tasktimer/internal/domain"
	"github.com/google/uuid"
)

// SQLiteTaskRepo implements TaskRepo using a SQLite database.
type SQLiteTaskRepo struct {
	db db.DBTX
}

// NewSQLiteTaskRepo creates a new SQLiteTaskRepo. Pass a *sql.Tx to compose
// writes inside a unit of work.
func NewSQLiteTaskRepo(conn db.DBTX) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: conn}
}

func (r *SQLiteTaskRepo) Upsert(ctx context.Context, t *domain.Task, fetchedAt time.Time) error {
	query := `INSERT INTO tasks (id, title, status, updated_at, fetched_at, stale)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			updated_at = excluded.updated_at,
			fetched_at = excluded.fetched_at,
			stale = 0`
	status := t.Status
	if status == "" {
		status = domain.TaskTodo
	}
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.Title,
		string(status),
		zeroTimeToNull(t.UpdatedAt, timeLayout),
		fetchedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upserting task: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM time_logs WHERE task_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clearing time logs: %w", err)
	}

	for i, e := range t.TimeLogs {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO time_logs (id, task_id, seq, start_at, end_at) VALUES (?, ?, ?, ?, ?)`,
			id,
			t.ID,
			i+1,
			e.Start.UTC().Format(timeLayout),
			nullableTimeToString(e.End, timeLayout),
		)
		if err != nil {
			return fmt.Errorf("inserting time log: %w", err)
		}
	}
	return nil
}

func (r *SQLiteTaskRepo) GetByID(ctx context.Context, id string) (*TaskSnapshot, error) {
	query := `SELECT id, title, status, updated_at, fetched_at, stale FROM tasks WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	snap, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	ledgers, err := r.loadTimeLogs(ctx, `WHERE task_id = ?`, id)
	if err != nil {
		return nil, err
	}
	snap.Task.TimeLogs = ledgers[id]
	return snap, nil
}

func (r *SQLiteTaskRepo) List(ctx context.Context) ([]*TaskSnapshot, error) {
	query := `SELECT id, title, status, updated_at, fetched_at, stale FROM tasks ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	var snaps []*TaskSnapshot
	for rows.Next() {
		snap, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	// Close before the next query; an in-memory database has one connection.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}

	ledgers, err := r.loadTimeLogs(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, s := range snaps {
		s.Task.TimeLogs = ledgers[s.Task.ID]
	}
	return snaps, nil
}

func (r *SQLiteTaskRepo) MarkStale(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE tasks SET stale = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("marking task stale: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) MarkAllStale(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE tasks SET stale = 1`); err != nil {
		return fmt.Errorf("marking tasks stale: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) DeleteExcept(ctx context.Context, keep []string) error {
	query := `DELETE FROM tasks`
	args := make([]any, 0, len(keep))
	if len(keep) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",")
		query += ` WHERE id NOT IN (` + placeholders + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting dropped tasks: %w", err)
	}
	return nil
}

// loadTimeLogs returns ledgers keyed by task id, each in stored order.
func (r *SQLiteTaskRepo) loadTimeLogs(ctx context.Context, where string, args ...any) (map[string][]domain.TimeLogEntry, error) {
	query := `SELECT id, task_id, start_at, end_at FROM time_logs ` + where + ` ORDER BY task_id, seq`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing time logs: %w", err)
	}
	defer rows.Close()

	ledgers := make(map[string][]domain.TimeLogEntry)
	for rows.Next() {
		var e domain.TimeLogEntry
		var taskID, startStr string
		var endStr sql.NullString
		if err := rows.Scan(&e.ID, &taskID, &startStr, &endStr); err != nil {
			return nil, fmt.Errorf("scanning time log row: %w", err)
		}
		start, err := time.Parse(timeLayout, startStr)
		if err != nil {
			return nil, fmt.Errorf("parsing time log start: %w", err)
		}
		e.Start = start
		e.End = parseNullableTime(endStr, timeLayout)
		ledgers[taskID] = append(ledgers[taskID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating time logs: %w", err)
	}
	return ledgers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*TaskSnapshot, error) {
	var t domain.Task
	var status, fetchedStr string
	var updatedStr sql.NullString
	var stale int

	if err := row.Scan(&t.ID, &t.Title, &status, &updatedStr, &fetchedStr, &stale); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	if u := parseNullableTime(updatedStr, timeLayout); u != nil {
		t.UpdatedAt = *u
	}
	fetchedAt, err := time.Parse(timeLayout, fetchedStr)
	if err != nil {
		return nil, fmt.Errorf("parsing fetched_at: %w", err)
	}
	return &TaskSnapshot{Task: &t, FetchedAt: fetchedAt, Stale: stale != 0}, nil
}
