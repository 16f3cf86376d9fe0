package taskmanager

// Status is the lifecycle state shared by tasks and workflows.
type Status int

const (
	// StatusPending indicates the task or workflow has not started yet
	StatusPending Status = iota
	// StatusRunning indicates the task or workflow is executing
	StatusRunning
	// StatusCompleted indicates successful completion
	StatusCompleted
	// StatusFailed indicates execution failed
	StatusFailed
	// StatusCancelled indicates an external cancellation request was honoured
	StatusCancelled
)

// String returns a string representation of the Status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// MarshalText renders the status by name in JSON snapshots.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusCancelled
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed || to == StatusCancelled
	default:
		return false
	}
}
