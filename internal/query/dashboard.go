package query

import (
	"context"
	"time"

	"github.com/alexanderramin/tasktimer/internal/domain"
	"github.com/alexanderramin/tasktimer/internal/timer"
)

// Dashboard summarizes tracked time across all tasks.
type Dashboard struct {
	At                    time.Time
	Tasks                 int
	Running               int
	ByStatus              map[domain.TaskStatus]int
	TotalCompletedSeconds int64
	LiveElapsedSeconds    int64
}

// TotalSeconds is completed plus live time.
func (d Dashboard) TotalSeconds() int64 {
	return d.TotalCompletedSeconds + d.LiveElapsedSeconds
}

// Dashboard aggregates the cached task list at the current time.
func (c *Cache) Dashboard(ctx context.Context) (Dashboard, error) {
	tasks, err := c.Tasks(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Summarize(tasks, c.now()), nil
}

// Summarize reduces tasks to a Dashboard using the elapsed-time calculator.
func Summarize(tasks []*domain.Task, now time.Time) Dashboard {
	d := Dashboard{At: now, Tasks: len(tasks), ByStatus: make(map[domain.TaskStatus]int)}
	for _, t := range tasks {
		d.ByStatus[t.Status]++
		calc := timer.Compute(t.TimeLogs, now)
		d.TotalCompletedSeconds += calc.View.TotalCompletedSeconds
		if calc.View.IsRunning {
			d.Running++
			d.LiveElapsedSeconds += calc.View.LiveElapsedSeconds
		}
	}
	return d
}
