package api

import (
	"time"

	"github.com/alexanderramin/tasktimer/internal/domain"
)

// taskPayload is the JSON shape of a task returned by the backend.
type taskPayload struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Status    string           `json:"status"`
	TimeLogs  []timeLogPayload `json:"timeLogs"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
}

// timeLogPayload is one ledger entry; a null or missing end means open.
type timeLogPayload struct {
	ID    string     `json:"id"`
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end"`
}

func (p taskPayload) toDomain() *domain.Task {
	t := &domain.Task{
		ID:       p.ID,
		Title:    p.Title,
		Status:   domain.TaskStatus(p.Status),
		TimeLogs: make([]domain.TimeLogEntry, 0, len(p.TimeLogs)),
	}
	if p.UpdatedAt != nil {
		t.UpdatedAt = p.UpdatedAt.UTC()
	}
	for _, l := range p.TimeLogs {
		e := domain.TimeLogEntry{ID: l.ID, Start: l.Start.UTC()}
		if l.End != nil {
			end := l.End.UTC()
			e.End = &end
		}
		t.TimeLogs = append(t.TimeLogs, e)
	}
	return t
}
