package testutil

import (
	"time"

	"github.com/alexanderramin/tasktimer/internal/domain"
	"github.com/google/uuid"
)

// ClosedEntry returns a completed time log entry.
func ClosedEntry(start, end time.Time) domain.TimeLogEntry {
	return domain.TimeLogEntry{ID: uuid.New().String(), Start: start, End: &end}
}

// OpenEntry returns a time log entry with no end.
func OpenEntry(start time.Time) domain.TimeLogEntry {
	return domain.TimeLogEntry{ID: uuid.New().String(), Start: start}
}

// Task options
type TaskOption func(*domain.Task)

func WithTaskID(id string) TaskOption {
	return func(t *domain.Task) {
		t.ID = id
	}
}

func WithTaskStatus(s domain.TaskStatus) TaskOption {
	return func(t *domain.Task) {
		t.Status = s
	}
}

func WithTimeLogs(entries ...domain.TimeLogEntry) TaskOption {
	return func(t *domain.Task) {
		t.TimeLogs = entries
	}
}

func WithUpdatedAt(at time.Time) TaskOption {
	return func(t *domain.Task) {
		t.UpdatedAt = at
	}
}

func NewTestTask(title string, opts ...TaskOption) *domain.Task {
	t := &domain.Task{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    domain.TaskTodo,
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
