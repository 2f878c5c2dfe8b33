package models

// EngineEvent classifies an asynchronous message from the engine.
type EngineEvent string

const (
	EventTaskStarted      EngineEvent = "task.started"
	EventTaskSucceeded    EngineEvent = "task.succeeded"
	EventTaskFailed       EngineEvent = "task.failed"
	EventTaskCancelled    EngineEvent = "task.cancelled"
	EventSessionCompleted EngineEvent = "session.completed"
	EventLog              EngineEvent = "log"
)

// Outcome maps a per-task event to the outcome it implies. ok is false for
// events that carry no task outcome (log lines, session-level events).
func (e EngineEvent) Outcome() (outcome TaskOutcome, ok bool) {
	switch e {
	case EventTaskStarted:
		return OutcomeRunning, true
	case EventTaskSucceeded:
		return OutcomeSucceeded, true
	case EventTaskFailed:
		return OutcomeFailed, true
	case EventTaskCancelled:
		return OutcomeCancelled, true
	default:
		return "", false
	}
}

// EngineMessage is one asynchronous progress report from the engine.
// EngineTaskID is nil for global events that have no task attribution.
type EngineMessage struct {
	EngineTaskID *int64      `json:"task_id,omitempty"`
	Event        EngineEvent `json:"event"`
	Text         string      `json:"text,omitempty"`
}
