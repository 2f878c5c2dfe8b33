package models

// SessionStatus represents the lifecycle state of the automation session.
type SessionStatus string

const (
	// StatusIdle means no session is running and no operation is in flight.
	StatusIdle SessionStatus = "idle"
	// StatusPending means a session-starting or stopping operation is in flight.
	StatusPending SessionStatus = "pending"
	// StatusBusy means the engine is actively running submitted tasks.
	StatusBusy SessionStatus = "busy"
)

// TaskOutcome represents the reported result of one submitted task.
// Outcomes are session-scoped: they are created lazily when the engine first
// reports on a task and discarded at the next session start.
type TaskOutcome string

const (
	OutcomeRunning   TaskOutcome = "running"
	OutcomeSucceeded TaskOutcome = "succeeded"
	OutcomeFailed    TaskOutcome = "failed"
	OutcomeCancelled TaskOutcome = "cancelled"
)
