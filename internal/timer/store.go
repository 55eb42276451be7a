package timer

import (
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/tasktimer/internal/domain"
)

// Record is the per-task timer state held by a Store. While State is
// transitioning, Target names the state being entered and Rollback holds the
// snapshot to restore if the backend refuses the transition.
type Record struct {
	State                 domain.TimerState
	Target                domain.TimerState
	Anchor                time.Time
	TotalCompletedSeconds int64
	Rollback              *Record

	// PausedElapsed is the live segment an in-flight pause folded into
	// TotalCompletedSeconds. A rollback re-anchors the timer this many
	// seconds before the moment of rollback.
	PausedElapsed int64
}

// Stopped returns the record of a task with no open interval.
func Stopped(total int64) Record {
	return Record{State: domain.TimerStopped, TotalCompletedSeconds: total}
}

// Running returns the record of a task whose open interval began at anchor.
func Running(anchor time.Time, total int64) Record {
	return Record{State: domain.TimerRunning, Anchor: anchor, TotalCompletedSeconds: total}
}

// running reports whether the record should display as running. An
// in-flight start shows as running; an in-flight pause shows as stopped.
func (r Record) running() bool {
	if r.State == domain.TimerTransitioning {
		return r.Target == domain.TimerRunning
	}
	return r.State == domain.TimerRunning
}

// View derives the display state at now.
func (r Record) View(now time.Time) domain.TimerView {
	v := domain.TimerView{TotalCompletedSeconds: r.TotalCompletedSeconds}
	if r.running() {
		v.IsRunning = true
		v.LiveElapsedSeconds = ElapsedSince(r.Anchor, now)
	}
	return v
}

// Store holds timer records keyed by task id for the lifetime of a session.
type Store interface {
	Get(taskID string) (Record, bool)
	Set(taskID string, rec Record)
	Delete(taskID string)
	TaskIDs() []string
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(taskID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[taskID]
	return rec, ok
}

func (s *MemoryStore) Set(taskID string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[taskID] = rec
}

func (s *MemoryStore) Delete(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, taskID)
}

// TaskIDs returns the ids of all tracked tasks in sorted order.
func (s *MemoryStore) TaskIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
