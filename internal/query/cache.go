// Package query caches backend task reads in SQLite and invalidates them by
// key after timer transitions.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alexanderramin/tasktimer/internal/db"
	"github.com/alexanderramin/tasktimer/internal/domain"
	"github.com/alexanderramin/tasktimer/internal/repository"
)

// DefaultMaxAge bounds how long an unchanged snapshot is served without a
// refetch.
const DefaultMaxAge = 30 * time.Second

const tasksStateKey = "tasks"

// Fetcher is the read side of the backend client.
type Fetcher interface {
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context) ([]*domain.Task, error)
}

// Cache serves task reads from stored snapshots while they are fresh and
// refetches them once stale or expired.
type Cache struct {
	fetcher Fetcher
	tasks   repository.TaskRepo
	states  repository.QueryStateRepo
	uow     db.UnitOfWork
	now     func() time.Time
	maxAge  time.Duration
	logger  *slog.Logger

	flight singleflight.Group

	// epoch counts invalidations; a fetch that overlaps one is repeated.
	epoch atomic.Uint64

	mu        sync.Mutex
	listeners map[int]func(domain.QueryKey)
	nextID    int
}

type Option func(*Cache)

// WithMaxAge sets the snapshot lifetime. Zero keeps snapshots until they
// are invalidated.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) { c.maxAge = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func NewCache(
	fetcher Fetcher,
	tasks repository.TaskRepo,
	states repository.QueryStateRepo,
	uow db.UnitOfWork,
	opts ...Option,
) *Cache {
	c := &Cache{
		fetcher:   fetcher,
		tasks:     tasks,
		states:    states,
		uow:       uow,
		now:       time.Now,
		maxAge:    DefaultMaxAge,
		logger:    slog.New(slog.DiscardHandler),
		listeners: make(map[int]func(domain.QueryKey)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Task returns one task with its ledger.
func (c *Cache) Task(ctx context.Context, taskID string) (*domain.Task, error) {
	snap, err := c.tasks.GetByID(ctx, taskID)
	switch {
	case err == nil && c.fresh(snap.FetchedAt, snap.Stale):
		return snap.Task, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("reading cached task: %w", err)
	}

	v, err, _ := c.flight.Do(taskFlightKey(taskID), func() (any, error) {
		return c.settled(ctx, func() (any, error) {
			task, err := c.fetcher.GetTask(ctx, taskID)
			if err != nil {
				return nil, err
			}
			if err := c.storeTask(ctx, task); err != nil {
				return nil, err
			}
			return task, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Task), nil
}

// Refresh fetches taskID regardless of freshness.
func (c *Cache) Refresh(ctx context.Context, taskID string) (*domain.Task, error) {
	if err := c.tasks.MarkStale(ctx, taskID); err != nil {
		return nil, err
	}
	return c.Task(ctx, taskID)
}

// Tasks returns every task visible to the caller.
func (c *Cache) Tasks(ctx context.Context) ([]*domain.Task, error) {
	state, err := c.states.Get(ctx, tasksStateKey)
	switch {
	case err == nil && c.fresh(state.FetchedAt, state.Stale):
		snaps, err := c.tasks.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading cached tasks: %w", err)
		}
		tasks := make([]*domain.Task, 0, len(snaps))
		for _, s := range snaps {
			tasks = append(tasks, s.Task)
		}
		return tasks, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("reading list state: %w", err)
	}

	v, err, _ := c.flight.Do(tasksStateKey, func() (any, error) {
		return c.settled(ctx, func() (any, error) {
			tasks, err := c.fetcher.ListTasks(ctx)
			if err != nil {
				return nil, err
			}
			if err := c.storeList(ctx, tasks); err != nil {
				return nil, err
			}
			return tasks, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Task), nil
}

// Invalidate marks every snapshot covered by keys stale and notifies
// listeners. ["tasks"] and ["dashboard"] cover the list, ["task", id] one
// task and ["task"] every task.
func (c *Cache) Invalidate(ctx context.Context, keys ...domain.QueryKey) error {
	c.epoch.Add(1)
	var errs []error
	for _, k := range keys {
		if k.Matches(domain.TasksKey()) || k.Matches(domain.DashboardKey()) {
			c.flight.Forget(tasksStateKey)
			if err := c.states.MarkStale(ctx, tasksStateKey); err != nil {
				errs = append(errs, err)
			}
		}
		switch {
		case len(k) >= 2 && k[0] == "task":
			c.flight.Forget(taskFlightKey(k[1]))
			if err := c.tasks.MarkStale(ctx, k[1]); err != nil {
				errs = append(errs, err)
			}
		case k.Matches(domain.QueryKey{"task"}):
			if err := c.tasks.MarkAllStale(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		c.notify(k)
	}
	if err := errors.Join(errs...); err != nil {
		c.logger.WarnContext(ctx, "query_invalidate_failed", "error", err)
		return fmt.Errorf("invalidating queries: %w", err)
	}
	return nil
}

// OnInvalidate registers fn to run for each invalidated key. fn runs on the
// invalidating goroutine.
func (c *Cache) OnInvalidate(fn func(domain.QueryKey)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Cache) notify(k domain.QueryKey) {
	c.mu.Lock()
	fns := make([]func(domain.QueryKey), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(k)
	}
}

// maxSettleAttempts bounds how often a fetch is repeated while
// invalidations keep overlapping it.
const maxSettleAttempts = 3

// settled runs fetch until no invalidation happened while it was in flight,
// so a snapshot read before a timer transition is never returned after it.
// If invalidations keep racing, the last result is returned.
func (c *Cache) settled(ctx context.Context, fetch func() (any, error)) (any, error) {
	var (
		v   any
		err error
	)
	for range maxSettleAttempts {
		before := c.epoch.Load()
		v, err = fetch()
		if err != nil || c.epoch.Load() == before {
			return v, err
		}
		c.logger.DebugContext(ctx, "query_fetch_overlapped_invalidation")
	}
	return v, err
}

func (c *Cache) noteStatus(ctx context.Context, task *domain.Task) {
	if task.Status != "" && !task.Status.Known() {
		c.logger.WarnContext(ctx, "unknown_task_status", "task_id", task.ID, "status", string(task.Status))
	}
}

func taskFlightKey(taskID string) string { return "task:" + taskID }

func (c *Cache) fresh(fetchedAt time.Time, stale bool) bool {
	if stale {
		return false
	}
	if c.maxAge <= 0 {
		return true
	}
	return c.now().Sub(fetchedAt) < c.maxAge
}

func (c *Cache) storeTask(ctx context.Context, task *domain.Task) error {
	c.noteStatus(ctx, task)
	at := c.now()
	err := c.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteTaskRepo(tx).Upsert(ctx, task, at)
	})
	if err != nil {
		return fmt.Errorf("storing task snapshot: %w", err)
	}
	return nil
}

func (c *Cache) storeList(ctx context.Context, tasks []*domain.Task) error {
	at := c.now()
	err := c.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteTaskRepo(tx)
		ids := make([]string, 0, len(tasks))
		for _, t := range tasks {
			c.noteStatus(ctx, t)
			if err := repo.Upsert(ctx, t, at); err != nil {
				return err
			}
			ids = append(ids, t.ID)
		}
		if err := repo.DeleteExcept(ctx, ids); err != nil {
			return err
		}
		return repository.NewSQLiteQueryStateRepo(tx).MarkFetched(ctx, tasksStateKey, at)
	})
	if err != nil {
		return fmt.Errorf("storing task list: %w", err)
	}
	return nil
}
