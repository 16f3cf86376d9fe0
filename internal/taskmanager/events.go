package taskmanager

import (
	"time"

	"github.com/maxkimambo/taskflow/internal/logger"
)

// EventType names a workflow lifecycle notification.
type EventType string

const (
	EventWorkflowStarted   EventType = "workflow_started"
	EventTaskStarted       EventType = "task_started"
	EventTaskCompleted     EventType = "task_completed"
	EventTaskFailed        EventType = "task_failed"
	EventWorkflowCompleted EventType = "workflow_completed"
	EventWorkflowFailed    EventType = "workflow_failed"
	EventWorkflowCancelled EventType = "workflow_cancelled"
)

// Event is delivered to observers. Only the fields relevant to Type are set.
type Event struct {
	Type       EventType
	WorkflowID string
	TaskID     string
	TaskName   string
	Result     any
	Error      string
	// Results is set on workflow_completed and maps task IDs to results
	Results map[string]any
	Time    time.Time
}

// Observer receives workflow events. Observers are called synchronously on
// the goroutine that produced the event and never with workflow locks held,
// so they may query the workflow. Under parallel dispatch they may be called
// concurrently.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Subscribe registers an observer for every event type.
func (w *Workflow) Subscribe(o Observer) {
	if o == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, o)
}

// On registers a handler for a single event type.
func (w *Workflow) On(eventType EventType, handler func(Event)) {
	w.Subscribe(ObserverFunc(func(e Event) {
		if e.Type == eventType {
			handler(e)
		}
	}))
}

func (w *Workflow) emit(e Event) {
	e.WorkflowID = w.id
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	w.mu.Lock()
	observers := make([]Observer, len(w.observers))
	copy(observers, w.observers)
	w.mu.Unlock()

	for _, o := range observers {
		o.OnEvent(e)
	}
}

// LogObserver prints workflow progress through the user-facing logger.
type LogObserver struct {
	WorkflowName string
}

// OnEvent implements Observer.
func (l LogObserver) OnEvent(e Event) {
	switch e.Type {
	case EventWorkflowStarted:
		logger.User.Startingf("Starting workflow %s", l.WorkflowName)
	case EventTaskStarted:
		logger.User.Taskf("Running task %s", e.TaskName)
	case EventTaskCompleted:
		logger.User.Successf("Task %s completed", e.TaskName)
	case EventTaskFailed:
		logger.User.Errorf("Task %s failed: %s", e.TaskName, e.Error)
	case EventWorkflowCompleted:
		logger.User.Successf("Workflow %s completed (%d task results)", l.WorkflowName, len(e.Results))
	case EventWorkflowFailed:
		if e.Error != "" {
			logger.User.Errorf("Workflow %s failed: %s", l.WorkflowName, e.Error)
		} else {
			logger.User.Errorf("Workflow %s failed", l.WorkflowName)
		}
	case EventWorkflowCancelled:
		logger.User.Cancelledf("Workflow %s cancelled", l.WorkflowName)
	}
}
