package taskmanager

import (
	"sync"
	"time"

	"github.com/google/uuid"

	wferrors "github.com/maxkimambo/taskflow/internal/errors"
)

// Options tunes how a workflow dispatches ready tasks.
type Options struct {
	// MaxParallelTasks bounds how many tasks of one ready set execute at the
	// same time. Values below 2 dispatch sequentially in insertion order.
	MaxParallelTasks int
}

// DefaultOptions returns the sequential baseline.
func DefaultOptions() Options {
	return Options{MaxParallelTasks: 1}
}

// Workflow owns a set of tasks and the dependency edges between them, and
// drives them to a terminal status.
type Workflow struct {
	id          string
	name        string
	description string
	opts        Options

	mu        sync.Mutex
	tasks     map[string]*Task
	order     []string
	status    Status
	startTime *time.Time
	endTime   *time.Time
	stranded  []string
	observers []Observer

	context *SharedContext
}

// WorkflowOption configures a Workflow at creation.
type WorkflowOption func(*Workflow)

// WithWorkflowID overrides the generated identifier.
func WithWorkflowID(id string) WorkflowOption {
	return func(w *Workflow) { w.id = id }
}

// WithWorkflowDescription sets the description.
func WithWorkflowDescription(description string) WorkflowOption {
	return func(w *Workflow) { w.description = description }
}

// WithOptions sets dispatch options.
func WithOptions(opts Options) WorkflowOption {
	return func(w *Workflow) { w.opts = opts }
}

// WithObserver subscribes an observer at creation.
func WithObserver(o Observer) WorkflowOption {
	return func(w *Workflow) { w.observers = append(w.observers, o) }
}

// NewWorkflow creates an empty pending workflow.
func NewWorkflow(name string, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		id:      uuid.NewString(),
		name:    name,
		opts:    DefaultOptions(),
		tasks:   make(map[string]*Task),
		status:  StatusPending,
		context: NewSharedContext(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID returns the workflow identifier
func (w *Workflow) ID() string { return w.id }

// Name returns the workflow name
func (w *Workflow) Name() string { return w.name }

// Description returns the workflow description
func (w *Workflow) Description() string { return w.description }

// Status returns the workflow-level status
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// StartTime returns when Run started
func (w *Workflow) StartTime() *time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.startTime
}

// EndTime returns when the workflow reached its terminal status
func (w *Workflow) EndTime() *time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.endTime
}

// Task looks up a task by identifier.
func (w *Workflow) Task(id string) (*Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tasks[id]
	return t, ok
}

// Tasks returns every task in insertion order.
func (w *Workflow) Tasks() []*Task {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.orderedTasksLocked()
}

// Len returns the number of tasks.
func (w *Workflow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tasks)
}

func (w *Workflow) orderedTasksLocked() []*Task {
	out := make([]*Task, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.tasks[id])
	}
	return out
}

// Context returns a copy of the shared context accumulated by the run.
func (w *Workflow) Context() map[string]any {
	return w.context.Snapshot()
}

// Results maps task identifiers to results, restricted to completed tasks.
func (w *Workflow) Results() map[string]any {
	w.mu.Lock()
	tasks := w.orderedTasksLocked()
	w.mu.Unlock()

	results := make(map[string]any)
	for _, t := range tasks {
		if t.Status() == StatusCompleted {
			results[t.ID()] = t.Result()
		}
	}
	return results
}

// Stranded returns the pending tasks that could not run because an upstream
// task failed or was cancelled.
func (w *Workflow) Stranded() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.stranded))
	copy(out, w.stranded)
	return out
}

// Cancel stops the workflow. It is only meaningful while the workflow is
// pending or running: every task that has not reached a terminal status is
// cancelled and no further task is dispatched. An executor call already in
// flight is not interrupted; its late result is discarded.
func (w *Workflow) Cancel() bool {
	w.mu.Lock()
	if w.status != StatusPending && w.status != StatusRunning {
		w.mu.Unlock()
		return false
	}
	w.status = StatusCancelled
	now := time.Now()
	w.endTime = &now
	for _, t := range w.orderedTasksLocked() {
		t.Cancel()
	}
	w.mu.Unlock()

	w.emit(Event{Type: EventWorkflowCancelled})
	return true
}

// CancelTask cancels a single pending or running task. Its dependents can no
// longer become ready.
func (w *Workflow) CancelTask(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status.IsTerminal() {
		return workflowFinished(w.id, w.status, "Cancel task")
	}
	t, ok := w.tasks[id]
	if !ok {
		return wferrors.NewTaskNotFoundError(id, "Cancel task")
	}
	if !t.Cancel() {
		return invalidTransition(id, t.Status(), StatusCancelled)
	}
	return nil
}
