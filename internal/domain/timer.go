package domain

// TimerView is the derived display state of a task's timer. It is rebuilt
// whenever the ledger changes and is never persisted.
type TimerView struct {
	IsRunning             bool
	LiveElapsedSeconds    int64
	TotalCompletedSeconds int64
}

// TotalSeconds is the completed time plus the live segment.
func (v TimerView) TotalSeconds() int64 {
	return v.TotalCompletedSeconds + v.LiveElapsedSeconds
}

// TimerActionResult is returned by start and pause. Callers use Success to
// decide whether an optimistic update stands.
type TimerActionResult struct {
	Success     bool
	ErrorReason string
	Failure     FailureKind
}

func Succeeded() TimerActionResult {
	return TimerActionResult{Success: true}
}

func Failed(kind FailureKind, reason string) TimerActionResult {
	return TimerActionResult{Failure: kind, ErrorReason: reason}
}
