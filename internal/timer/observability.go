package timer

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alexanderramin/tasktimer/internal/domain"
)

// UseCaseEvent captures lightweight execution telemetry for a timer action.
type UseCaseEvent struct {
	Name      string
	TaskID    string
	Duration  time.Duration
	Success   bool
	Failure   domain.FailureKind
	StartedAt time.Time
}

// UseCaseObserver receives timer action events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver writes timer action events to the provided writer.
func NewLogUseCaseObserver(w io.Writer) UseCaseObserver {
	if w == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := []any{
		"use_case", event.Name,
		"task_id", event.TaskID,
		"duration_ms", event.Duration.Milliseconds(),
		"success", event.Success,
	}
	if !event.Success {
		attrs = append(attrs, "failure", string(event.Failure))
		o.logger.WarnContext(ctx, "timer_use_case", attrs...)
		return
	}
	o.logger.InfoContext(ctx, "timer_use_case", attrs...)
}
