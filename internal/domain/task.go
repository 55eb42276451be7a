package domain

import (
	"fmt"
	"time"
)

type Task struct {
	ID        string
	Title     string
	Status    TaskStatus
	TimeLogs  []TimeLogEntry
	UpdatedAt time.Time
}

// CanStartTimer reports whether the task's status allows a new work
// interval. Completed or closed tasks cannot be started; statuses this
// client does not know are left to the backend to refuse.
func (t *Task) CanStartTimer() bool {
	return t.Status != TaskDone && t.Status != TaskClosed
}

// Validate checks the fields the client relies on after decoding. The
// status is not checked; see TaskStatus.Known.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	return nil
}
