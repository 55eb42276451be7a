package domain

import "time"

// TimeLogEntry is one contiguous work interval in a task's ledger.
// A nil End means the interval is still open.
type TimeLogEntry struct {
	ID    string
	Start time.Time
	End   *time.Time
}

func (e TimeLogEntry) IsOpen() bool {
	return e.End == nil
}

// Seconds returns the whole seconds covered by a closed entry. Open entries
// and entries whose end precedes their start report 0.
func (e TimeLogEntry) Seconds() int64 {
	if e.End == nil {
		return 0
	}
	return FloorSeconds(e.End.Sub(e.Start))
}

// FloorSeconds truncates d to whole seconds, clamping negatives to 0.
func FloorSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}
