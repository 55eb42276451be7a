package timer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/tasktimer/internal/api"
	"github.com/alexanderramin/tasktimer/internal/domain"
	"github.com/alexanderramin/tasktimer/internal/event"
	"github.com/alexanderramin/tasktimer/internal/i18n"
)

// Client issues timer transitions to the backend.
type Client interface {
	StartTask(ctx context.Context, taskID string) error
	PauseTask(ctx context.Context, taskID string) error
}

// Invalidator marks cached queries stale after a successful transition.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...domain.QueryKey) error
}

// Notifier broadcasts that some timer changed.
type Notifier interface {
	Publish(e event.TimerChanged)
}

// Gateway is the only component that changes whether a task's timer runs.
// It applies each transition optimistically, confirms it with the backend
// and restores the pre-call record on failure. At most one transition per
// task is in flight; tasks are independent of each other.
type Gateway struct {
	client      Client
	store       Store
	now         func() time.Time
	invalidator Invalidator
	notifier    Notifier
	logger      *slog.Logger
	observer    UseCaseObserver
	msgs        *i18n.Messages

	// mu guards read-modify-write of store records. It is never held
	// across a backend call.
	mu sync.Mutex
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

func WithInvalidator(inv Invalidator) GatewayOption {
	return func(g *Gateway) { g.invalidator = inv }
}

func WithNotifier(n Notifier) GatewayOption {
	return func(g *Gateway) { g.notifier = n }
}

func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

func WithUseCaseObserver(o UseCaseObserver) GatewayOption {
	return func(g *Gateway) { g.observer = o }
}

func WithMessages(m *i18n.Messages) GatewayOption {
	return func(g *Gateway) { g.msgs = m }
}

func NewGateway(client Client, store Store, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client:   client,
		store:    store,
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
		observer: NoopUseCaseObserver{},
		msgs:     i18n.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start opens a work interval for taskID. The caller checks whether the
// task's status allows starting; the gateway only performs the transition.
func (g *Gateway) Start(ctx context.Context, taskID string) domain.TimerActionResult {
	began := time.Now()

	g.mu.Lock()
	prev := g.record(taskID)
	switch prev.State {
	case domain.TimerTransitioning:
		g.mu.Unlock()
		return g.observe(ctx, "timer.start", taskID, began, domain.Failed(domain.FailureBusy, g.msgs.Busy()))
	case domain.TimerRunning:
		g.mu.Unlock()
		return g.observe(ctx, "timer.start", taskID, began, domain.Failed(domain.FailureInvalid, g.msgs.AlreadyRunning()))
	}

	anchor := g.now()
	rollback := Stopped(prev.TotalCompletedSeconds)
	g.store.Set(taskID, Record{
		State:                 domain.TimerTransitioning,
		Target:                domain.TimerRunning,
		Anchor:                anchor,
		TotalCompletedSeconds: prev.TotalCompletedSeconds,
		Rollback:              &rollback,
	})
	g.mu.Unlock()

	err := g.client.StartTask(ctx, taskID)

	g.mu.Lock()
	if err != nil {
		g.store.Set(taskID, g.rollback(taskID))
		g.mu.Unlock()
		kind := classify(err)
		g.logger.WarnContext(ctx, "timer_start_failed", "task_id", taskID, "failure", string(kind), "error", err)
		return g.observe(ctx, "timer.start", taskID, began, domain.Failed(kind, g.msgs.StartFailed(kind)))
	}
	g.store.Set(taskID, Running(anchor, prev.TotalCompletedSeconds))
	g.mu.Unlock()

	g.afterTransition(ctx, taskID)
	return g.observe(ctx, "timer.start", taskID, began, domain.Succeeded())
}

// Pause closes the open work interval for taskID. The live segment is
// folded into the completed total before the backend confirms.
func (g *Gateway) Pause(ctx context.Context, taskID string) domain.TimerActionResult {
	began := time.Now()

	g.mu.Lock()
	prev := g.record(taskID)
	switch prev.State {
	case domain.TimerTransitioning:
		g.mu.Unlock()
		return g.observe(ctx, "timer.pause", taskID, began, domain.Failed(domain.FailureBusy, g.msgs.Busy()))
	case domain.TimerStopped:
		g.mu.Unlock()
		return g.observe(ctx, "timer.pause", taskID, began, domain.Failed(domain.FailureInvalid, g.msgs.NotRunning()))
	}

	elapsed := ElapsedSince(prev.Anchor, g.now())
	total := prev.TotalCompletedSeconds + elapsed
	rollback := prev
	g.store.Set(taskID, Record{
		State:                 domain.TimerTransitioning,
		Target:                domain.TimerStopped,
		TotalCompletedSeconds: total,
		Rollback:              &rollback,
		PausedElapsed:         elapsed,
	})
	g.mu.Unlock()

	err := g.client.PauseTask(ctx, taskID)

	g.mu.Lock()
	if err != nil {
		g.store.Set(taskID, g.rollback(taskID))
		g.mu.Unlock()
		kind := classify(err)
		g.logger.WarnContext(ctx, "timer_pause_failed", "task_id", taskID, "failure", string(kind), "error", err)
		return g.observe(ctx, "timer.pause", taskID, began, domain.Failed(kind, g.msgs.PauseFailed(kind)))
	}
	g.store.Set(taskID, Stopped(total))
	g.mu.Unlock()

	g.afterTransition(ctx, taskID)
	return g.observe(ctx, "timer.pause", taskID, began, domain.Succeeded())
}

// Sync rebuilds the record for taskID from a freshly fetched ledger and
// returns the resulting view. A task with a transition in flight keeps its
// optimistic record; the next fetch after the transition settles it.
func (g *Gateway) Sync(taskID string, entries []domain.TimeLogEntry) domain.TimerView {
	now := g.now()
	calc := Compute(entries, now)
	if calc.Anomalous() {
		g.logger.Warn("multiple_open_time_logs", "task_id", taskID, "open_entries", calc.OpenEntries, "anchor", calc.Anchor)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if cur, ok := g.store.Get(taskID); ok && cur.State == domain.TimerTransitioning {
		return cur.View(now)
	}

	rec := Stopped(calc.View.TotalCompletedSeconds)
	if calc.View.IsRunning {
		rec = Running(calc.Anchor, calc.View.TotalCompletedSeconds)
	}
	g.store.Set(taskID, rec)
	return rec.View(now)
}

// Forget drops the record for taskID, e.g. when its view closes.
func (g *Gateway) Forget(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.store.Get(taskID); ok && cur.State == domain.TimerTransitioning {
		return
	}
	g.store.Delete(taskID)
}

// View returns the display state of taskID at the current time.
func (g *Gateway) View(taskID string) domain.TimerView {
	g.mu.Lock()
	rec := g.record(taskID)
	g.mu.Unlock()
	return rec.View(g.now())
}

// State returns the state machine position of taskID.
func (g *Gateway) State(taskID string) domain.TimerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.record(taskID).State
}

func (g *Gateway) IsTransitioning(taskID string) bool {
	return g.State(taskID) == domain.TimerTransitioning
}

// Anchor returns the instant the running interval of taskID is measured
// from. ok is false when the timer does not display as running.
func (g *Gateway) Anchor(taskID string) (anchor time.Time, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec := g.record(taskID)
	if !rec.running() {
		return time.Time{}, false
	}
	return rec.Anchor, true
}

// Timer returns the per-task handle views bind to.
func (g *Gateway) Timer(taskID string) *Handle {
	return &Handle{gateway: g, taskID: taskID}
}

// record returns the stored record or a stopped one. Callers hold g.mu.
func (g *Gateway) record(taskID string) Record {
	if rec, ok := g.store.Get(taskID); ok {
		return rec
	}
	return Stopped(0)
}

// rollback returns the pre-call record of an in-flight transition. A paused
// timer is re-anchored so the visible elapsed time continues from where it
// was when pause was called. Callers hold g.mu.
func (g *Gateway) rollback(taskID string) Record {
	cur := g.record(taskID)
	if cur.Rollback == nil {
		return Stopped(cur.TotalCompletedSeconds)
	}
	restored := *cur.Rollback
	restored.Rollback = nil
	if cur.Target == domain.TimerStopped {
		restored.Anchor = g.now().Add(-time.Duration(cur.PausedElapsed) * time.Second)
	}
	return restored
}

// afterTransition marks dependent queries stale, then notifies subscribers.
// Subscribers that refetch on the notification must never read a snapshot
// taken before the transition. Neither step can fail the transition.
func (g *Gateway) afterTransition(ctx context.Context, taskID string) {
	if g.invalidator != nil {
		if err := g.invalidator.Invalidate(ctx, domain.TasksKey(), domain.TaskKey(taskID), domain.DashboardKey()); err != nil {
			g.logger.WarnContext(ctx, "query_invalidation_failed", "task_id", taskID, "error", err)
		}
	}
	if g.notifier != nil {
		g.notifier.Publish(event.TimerChanged{At: g.now()})
	}
}

func (g *Gateway) observe(ctx context.Context, name, taskID string, began time.Time, res domain.TimerActionResult) domain.TimerActionResult {
	g.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		TaskID:    taskID,
		Duration:  time.Since(began),
		Success:   res.Success,
		Failure:   res.Failure,
		StartedAt: began,
	})
	return res
}

// classify maps a backend error onto the failure taxonomy. Timeouts and
// failed token refreshes are transport failures.
func classify(err error) domain.FailureKind {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return domain.FailureAuth
	case errors.Is(err, api.ErrRejected), errors.Is(err, api.ErrNotFound):
		return domain.FailureRejected
	default:
		return domain.FailureTransport
	}
}
