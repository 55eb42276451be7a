package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/tasktimer/internal/db"
)

// SQLiteQueryStateRepo implements QueryStateRepo using a SQLite database.
type SQLiteQueryStateRepo struct {
	db db.DBTX
}

func NewSQLiteQueryStateRepo(conn db.DBTX) *SQLiteQueryStateRepo {
	return &SQLiteQueryStateRepo{db: conn}
}

func (r *SQLiteQueryStateRepo) Get(ctx context.Context, key string) (*QueryState, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT key, fetched_at, stale FROM query_state WHERE key = ?`, key)

	var s QueryState
	var fetchedStr string
	var stale int
	if err := row.Scan(&s.Key, &fetchedStr, &stale); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("query state %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning query state: %w", err)
	}
	fetchedAt, err := time.Parse(timeLayout, fetchedStr)
	if err != nil {
		return nil, fmt.Errorf("parsing fetched_at: %w", err)
	}
	s.FetchedAt = fetchedAt
	s.Stale = stale != 0
	return &s, nil
}

func (r *SQLiteQueryStateRepo) MarkFetched(ctx context.Context, key string, at time.Time) error {
	query := `INSERT INTO query_state (key, fetched_at, stale) VALUES (?, ?, 0)
		ON CONFLICT(key) DO UPDATE SET fetched_at = excluded.fetched_at, stale = 0`
	if _, err := r.db.ExecContext(ctx, query, key, at.UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("recording query fetch: %w", err)
	}
	return nil
}

// MarkStale flags key for refetch. Unknown keys are a no-op.
func (r *SQLiteQueryStateRepo) MarkStale(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE query_state SET stale = ? WHERE key = ?`, boolToInt(true), key); err != nil {
		return fmt.Errorf("marking query stale: %w", err)
	}
	return nil
}
