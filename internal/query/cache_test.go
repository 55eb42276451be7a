package query

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/tasktimer/internal/domain"
	"github.com/alexanderramin/tasktimer/internal/repository"
	"github.com/alexanderramin/tasktimer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	mu      sync.Mutex
	tasks   map[string]*domain.Task
	order   []string
	gets    atomic.Int32
	lists   atomic.Int32
	err     error
	release chan struct{}

	// afterGet runs once a GetTask has read its result, before it returns.
	afterGet func(n int32)
}

func newFakeFetcher(tasks ...*domain.Task) *fakeFetcher {
	f := &fakeFetcher{tasks: make(map[string]*domain.Task)}
	for _, t := range tasks {
		f.put(t)
	}
	return f
}

func (f *fakeFetcher) put(t *domain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[t.ID]; !ok {
		f.order = append(f.order, t.ID)
	}
	cp := *t
	f.tasks[t.ID] = &cp
}

func (f *fakeFetcher) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	n := f.gets.Add(1)
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	t, ok := f.tasks[taskID]
	if !ok {
		f.mu.Unlock()
		return nil, errors.New("not found")
	}
	cp := *t
	hook := f.afterGet
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return &cp, nil
}

func (f *fakeFetcher) ListTasks(context.Context) ([]*domain.Task, error) {
	f.lists.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*domain.Task, 0, len(f.order))
	for _, id := range f.order {
		if t, ok := f.tasks[id]; ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func newTestCache(t *testing.T, f Fetcher, opts ...Option) (*Cache, *testutil.Clock) {
	t.Helper()
	database := testutil.NewTestDB(t)
	clock := testutil.NewClock(base)
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	c := NewCache(f,
		repository.NewSQLiteTaskRepo(database),
		repository.NewSQLiteQueryStateRepo(database),
		testutil.NewTestUoW(database),
		opts...,
	)
	return c, clock
}

func TestCache_TaskServedFromSnapshotWhileFresh(t *testing.T) {
	task := testutil.NewTestTask("Report", testutil.WithTimeLogs(testutil.OpenEntry(base)))
	f := newFakeFetcher(task)
	c, _ := newTestCache(t, f)
	ctx := context.Background()

	got, err := c.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Report", got.Title)

	got, err = c.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Report", got.Title)
	require.Len(t, got.TimeLogs, 1)
	assert.Equal(t, int32(1), f.gets.Load())
}

func TestCache_TaskRefetchedAfterMaxAge(t *testing.T) {
	task := testutil.NewTestTask("Report")
	f := newFakeFetcher(task)
	c, clock := newTestCache(t, f, WithMaxAge(10*time.Second))
	ctx := context.Background()

	_, err := c.Task(ctx, task.ID)
	require.NoError(t, err)

	clock.Advance(11 * time.Second)
	_, err = c.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.gets.Load())
}

func TestCache_ZeroMaxAgeKeepsUntilInvalidated(t *testing.T) {
	task := testutil.NewTestTask("Report")
	f := newFakeFetcher(task)
	c, clock := newTestCache(t, f, WithMaxAge(0))
	ctx := context.Background()

	_, err := c.Task(ctx, task.ID)
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)
	_, err = c.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.gets.Load())
}

func TestCache_InvalidateTaskKeyForcesRefetch(t *testing.T) {
	task := testutil.NewTestTask("Report")
	f := newFakeFetcher(task)
	c, _ := newTestCache(t, f)
	ctx := context.Background()

	_, err := c.Task(ctx, task.ID)
	require.NoError(t, err)

	task.TimeLogs = []domain.TimeLogEntry{testutil.OpenEntry(base)}
	f.put(task)
	require.NoError(t, c.Invalidate(ctx, domain.TaskKey(task.ID)))

	got, err := c.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, got.TimeLogs, 1)
	assert.Equal(t, int32(2), f.gets.Load())
}

func TestCache_FetchOverlappingInvalidationIsRepeated(t *testing.T) {
	task := testutil.NewTestTask("Report")
	f := newFakeFetcher(task)
	c, _ := newTestCache(t, f)
	ctx := context.Background()

	// The first read returns the ledger as it was before a start that the
	// backend confirms while the read is still in flight.
	f.afterGet = func(n int32) {
		if n != 1 {
			return
		}
		started := *task
		started.TimeLogs = []domain.TimeLogEntry{testutil.OpenEntry(base)}
		f.put(&started)
		require.NoError(t, c.Invalidate(ctx, domain.TaskKey(task.ID)))
	}

	got, err := c.Task(ctx, task.ID)

	require.NoError(t, err)
	assert.Len(t, got.TimeLogs, 1)
	assert.Equal(t, int32(2), f.gets.Load())

	snap, err := c.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Task.TimeLogs, 1, "stored snapshot is the post-transition ledger")
	assert.False(t, snap.Stale)
}

func TestCache_InvalidateListLeavesTaskSnapshots(t *testing.T) {
	task := testutil.NewTestTask("Report")
	f := newFakeFetcher(task)
	c, _ := newTestCache(t, f)
	ctx := context.Background()

	_, err := c.Tasks(ctx)
	require.NoError(t, err)
	// The list fetch stored a snapshot of every task.
	_, err = c.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), f.gets.Load())

	require.NoError(t, c.Invalidate(ctx, domain.TasksKey()))

	_, err = c.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), f.gets.Load(), "list key does not cover single-task snapshots")

	_, err = c.Tasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.lists.Load())
}

func TestCache_InvalidateTaskPrefixCoversAllTasks(t *testing.T) {
	a := testutil.NewTestTask("A")
	b := testutil.NewTestTask("B")
	f := newFakeFetcher(a, b)
	c, _ := newTestCache(t, f)
	ctx := context.Background()

	_, err := c.Task(ctx, a.ID)
	require.NoError(t, err)
	_, err = c.Task(ctx, b.ID)
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx, domain.QueryKey{"task"}))

	_, err = c.Task(ctx, a.ID)
	require.NoError(t, err)
	_, err = c.Task(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(4), f.gets.Load())
}

func TestCache_TasksCachesListAndDropsRemoved(t *testing.T) {
	a := testutil.NewTestTask("A", testutil.WithTaskID("a"))
	b := testutil.NewTestTask("B", testutil.WithTaskID("b"))
	f := newFakeFetcher(a, b)
	c, _ := newTestCache(t, f)
	ctx := context.Background()

	got, err := c.Tasks(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = c.Tasks(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(1), f.lists.Load())

	f.mu.Lock()
	delete(f.tasks, "b")
	f.mu.Unlock()
	require.NoError(t, c.Invalidate(ctx, domain.DashboardKey()))

	got, err = c.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestCache_StoresUnknownStatusAndWarns(t *testing.T) {
	odd := testutil.NewTestTask("Old", testutil.WithTaskID("a"), testutil.WithTaskStatus("archived"))
	var logs bytes.Buffer
	c, _ := newTestCache(t, newFakeFetcher(odd), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	ctx := context.Background()

	_, err := c.Tasks(ctx)
	require.NoError(t, err)

	got, err := c.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.TaskStatus("archived"), got[0].Status)
	assert.Contains(t, logs.String(), "unknown_task_status")
}

func TestCache_FetchErrorPropagates(t *testing.T) {
	f := newFakeFetcher()
	f.err = errors.New("backend down")
	c, _ := newTestCache(t, f)

	_, err := c.Task(context.Background(), "x")
	assert.EqualError(t, err, "backend down")

	_, err = c.Tasks(context.Background())
	assert.EqualError(t, err, "backend down")
}

func TestCache_RefreshBypassesFreshness(t *testing.T) {
	task := testutil.NewTestTask("Report")
	f := newFakeFetcher(task)
	c, _ := newTestCache(t, f)
	ctx := context.Background()

	_, err := c.Task(ctx, task.ID)
	require.NoError(t, err)
	_, err = c.Refresh(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.gets.Load())
}

func TestCache_ConcurrentMissesAllResolve(t *testing.T) {
	task := testutil.NewTestTask("Report")
	f := newFakeFetcher(task)
	f.release = make(chan struct{})
	c, _ := newTestCache(t, f)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Task(ctx, task.ID)
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return f.gets.Load() >= 1 }, time.Second, time.Millisecond)
	// Give the other callers time to join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(f.release)
	wg.Wait()

	snap, err := c.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Report", snap.Task.Title)
}

func TestCache_OnInvalidateReceivesKeys(t *testing.T) {
	c, _ := newTestCache(t, newFakeFetcher())
	ctx := context.Background()

	var got []domain.QueryKey
	unsubscribe := c.OnInvalidate(func(k domain.QueryKey) { got = append(got, k) })

	require.NoError(t, c.Invalidate(ctx, domain.TasksKey(), domain.TaskKey("42")))
	assert.Equal(t, []domain.QueryKey{domain.TasksKey(), domain.TaskKey("42")}, got)

	unsubscribe()
	require.NoError(t, c.Invalidate(ctx, domain.DashboardKey()))
	assert.Len(t, got, 2)
}
