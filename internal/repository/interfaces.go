package repository

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/tasktimer/internal/domain"
)

var ErrNotFound = errors.New("not found")

// TaskSnapshot is a cached copy of a backend task with its ledger.
type TaskSnapshot struct {
	Task      *domain.Task
	FetchedAt time.Time
	Stale     bool
}

// QueryState records when a collection query was last fetched.
type QueryState struct {
	Key       string
	FetchedAt time.Time
	Stale     bool
}

type TaskRepo interface {
	// Upsert writes the task row and replaces its ledger. Callers run it
	// inside a unit of work so readers never see a partial ledger.
	Upsert(ctx context.Context, t *domain.Task, fetchedAt time.Time) error
	GetByID(ctx context.Context, id string) (*TaskSnapshot, error)
	List(ctx context.Context) ([]*TaskSnapshot, error)
	MarkStale(ctx context.Context, id string) error
	MarkAllStale(ctx context.Context) error
	// DeleteExcept removes every task whose id is not in keep.
	DeleteExcept(ctx context.Context, keep []string) error
}

type QueryStateRepo interface {
	Get(ctx context.Context, key string) (*QueryState, error)
	MarkFetched(ctx context.Context, key string, at time.Time) error
	MarkStale(ctx context.Context, key string) error
}
