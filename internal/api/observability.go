package api

import (
	"io"
	"log/slog"
)

// Op names a backend call.
type Op string

const (
	OpStart Op = "start"
	OpPause Op = "pause"
	OpGet   Op = "get_task"
	OpList  Op = "list_tasks"
)

// CallEvent records metadata about a single backend call.
type CallEvent struct {
	Op        Op
	TaskID    string
	RequestID string
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about backend calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes call events through slog.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an Observer that logs events to w.
func NewLogObserver(w io.Writer) *LogObserver {
	return &LogObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	attrs := []any{
		"op", string(event.Op),
		"request_id", event.RequestID,
		"latency_ms", event.LatencyMs,
	}
	if event.TaskID != "" {
		attrs = append(attrs, "task_id", event.TaskID)
	}
	if !event.Success {
		o.logger.Warn("api_call", append(attrs, "status", "err:"+event.ErrorCode)...)
		return
	}
	o.logger.Info("api_call", append(attrs, "status", "ok")...)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
