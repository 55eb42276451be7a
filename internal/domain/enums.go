package domain

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskClosed     TaskStatus = "closed"
)

// ValidTaskStatuses is the set of statuses the backend is known to send.
var ValidTaskStatuses = map[TaskStatus]bool{
	TaskTodo: true, TaskInProgress: true, TaskDone: true, TaskClosed: true,
}

// Known reports whether s is one of the statuses in ValidTaskStatuses.
// Other values are carried through unchanged.
func (s TaskStatus) Known() bool {
	return ValidTaskStatuses[s]
}

type TimerState string

const (
	TimerStopped       TimerState = "stopped"
	TimerRunning       TimerState = "running"
	TimerTransitioning TimerState = "transitioning"
)

// FailureKind classifies why a timer action did not succeed.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureBusy      FailureKind = "busy"
	FailureInvalid   FailureKind = "invalid"
	FailureTransport FailureKind = "transport"
	FailureAuth      FailureKind = "auth"
	FailureRejected  FailureKind = "rejected"
)
