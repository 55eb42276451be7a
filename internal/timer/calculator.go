package timer

import (
	"time"

	"github.com/alexanderramin/tasktimer/internal/domain"
)

// Calculation is the result of reducing a ledger at a point in time.
type Calculation struct {
	View domain.TimerView
	// Anchor is the start of the authoritative open entry, zero when stopped.
	Anchor time.Time
	// OpenEntries counts entries without an end. More than one is a data
	// anomaly; the latest-starting entry wins.
	OpenEntries int
}

// Anomalous reports whether the ledger held more than one open entry.
func (c Calculation) Anomalous() bool {
	return c.OpenEntries > 1
}

// Compute reduces a ledger to a TimerView. Entries may arrive in any order.
// Each closed interval is floored to whole seconds before summing so the
// total matches second-granularity billing on the server.
func Compute(entries []domain.TimeLogEntry, now time.Time) Calculation {
	var calc Calculation
	var open *domain.TimeLogEntry

	for i := range entries {
		e := &entries[i]
		if !e.IsOpen() {
			calc.View.TotalCompletedSeconds += e.Seconds()
			continue
		}
		calc.OpenEntries++
		if open == nil || e.Start.After(open.Start) {
			open = e
		}
	}

	if open != nil {
		calc.Anchor = open.Start
		calc.View.IsRunning = true
		calc.View.LiveElapsedSeconds = ElapsedSince(open.Start, now)
	}
	return calc
}

// ElapsedSince returns whole seconds from anchor to now, never negative.
// An anchor in the future (clock skew) yields 0.
func ElapsedSince(anchor, now time.Time) int64 {
	return domain.FloorSeconds(now.Sub(anchor))
}
