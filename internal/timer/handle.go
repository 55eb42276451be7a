package timer

import (
	"context"
	"time"

	"github.com/alexanderramin/tasktimer/internal/domain"
)

// Controller is what a view needs from a single task's timer.
type Controller interface {
	View() domain.TimerView
	IsTransitioning() bool
	Anchor() (time.Time, bool)
	Start(ctx context.Context) domain.TimerActionResult
	Pause(ctx context.Context) domain.TimerActionResult
}

// Handle binds a Gateway to one task id.
type Handle struct {
	gateway *Gateway
	taskID  string
}

var _ Controller = (*Handle)(nil)

func (h *Handle) TaskID() string { return h.taskID }

func (h *Handle) View() domain.TimerView { return h.gateway.View(h.taskID) }

func (h *Handle) IsRunning() bool { return h.View().IsRunning }

func (h *Handle) LiveElapsedSeconds() int64 { return h.View().LiveElapsedSeconds }

func (h *Handle) TotalCompletedSeconds() int64 { return h.View().TotalCompletedSeconds }

func (h *Handle) IsTransitioning() bool { return h.gateway.IsTransitioning(h.taskID) }

func (h *Handle) Anchor() (time.Time, bool) { return h.gateway.Anchor(h.taskID) }

func (h *Handle) Start(ctx context.Context) domain.TimerActionResult {
	return h.gateway.Start(ctx, h.taskID)
}

func (h *Handle) Pause(ctx context.Context) domain.TimerActionResult {
	return h.gateway.Pause(ctx, h.taskID)
}
