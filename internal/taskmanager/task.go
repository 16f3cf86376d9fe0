package taskmanager

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task represents a single unit of work in a workflow.
//
// Identity and metadata are fixed at creation. Dependencies change only
// through Workflow.AddDependency so that the owning workflow can keep the
// graph acyclic.
type Task struct {
	id          string
	name        string
	description string
	inputs      map[string]any
	executor    Executor

	mu           sync.RWMutex
	dependencies []string
	status       Status
	result       any
	err          string
	startTime    *time.Time
	endTime      *time.Time
}

// TaskOption configures a Task at creation.
type TaskOption func(*Task)

// WithID overrides the generated identifier.
func WithID(id string) TaskOption {
	return func(t *Task) { t.id = id }
}

// WithDescription sets the task description.
func WithDescription(description string) TaskOption {
	return func(t *Task) { t.description = description }
}

// WithInputs sets the task's own inputs. The map is copied.
func WithInputs(inputs map[string]any) TaskOption {
	return func(t *Task) {
		for k, v := range inputs {
			t.inputs[k] = v
		}
	}
}

// WithExecutor binds the executor that performs the task's work.
func WithExecutor(executor Executor) TaskOption {
	return func(t *Task) { t.executor = executor }
}

// WithDependencies pre-populates the dependency list. The identifiers may
// refer to tasks that are added to the workflow later.
func WithDependencies(ids ...string) TaskOption {
	return func(t *Task) {
		for _, id := range ids {
			t.appendDependency(id)
		}
	}
}

// NewTask creates a pending task with a random UUID identifier.
func NewTask(name string, opts ...TaskOption) *Task {
	t := &Task{
		id:     uuid.NewString(),
		name:   name,
		inputs: make(map[string]any),
		status: StatusPending,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the unique identifier for this task
func (t *Task) ID() string { return t.id }

// Name returns the display name
func (t *Task) Name() string { return t.name }

// Description returns the human-readable description
func (t *Task) Description() string { return t.description }

// Executor returns the bound executor, or nil.
func (t *Task) Executor() Executor { return t.executor }

// Inputs returns a copy of the task's own inputs.
func (t *Task) Inputs() map[string]any {
	out := make(map[string]any, len(t.inputs))
	for k, v := range t.inputs {
		out[k] = v
	}
	return out
}

// Dependencies returns a copy of the dependency identifiers in insertion order.
func (t *Task) Dependencies() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.dependencies))
	copy(out, t.dependencies)
	return out
}

// DependsOn reports whether id is a direct dependency.
func (t *Task) DependsOn(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hasDependency(id)
}

func (t *Task) hasDependency(id string) bool {
	for _, dep := range t.dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

func (t *Task) appendDependency(id string) bool {
	if t.hasDependency(id) {
		return false
	}
	t.dependencies = append(t.dependencies, id)
	return true
}

func (t *Task) addDependency(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendDependency(id)
}

// Status returns the current lifecycle status
func (t *Task) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Result returns the executor result. It is nil unless the task completed.
func (t *Task) Result() any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

// Error returns the failure message. It is empty unless the task failed.
func (t *Task) Error() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// StartTime returns when the task entered Running
func (t *Task) StartTime() *time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.startTime
}

// EndTime returns when the task left Running or was cancelled
func (t *Task) EndTime() *time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.endTime
}

// Duration returns endTime - startTime when both are set.
func (t *Task) Duration() (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.startTime == nil || t.endTime == nil {
		return 0, false
	}
	return t.endTime.Sub(*t.startTime), true
}

// Cancel moves a pending or running task to Cancelled. It returns false when
// the task had already reached a terminal status.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(StatusCancelled) == nil
}

func (t *Task) start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(StatusRunning)
}

func (t *Task) complete(result any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.transition(StatusCompleted); err != nil {
		return err
	}
	t.result = result
	return nil
}

func (t *Task) fail(msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.transition(StatusFailed); err != nil {
		return err
	}
	t.err = msg
	return nil
}

// transition must be called with t.mu held.
func (t *Task) transition(to Status) error {
	if !canTransition(t.status, to) {
		return invalidTransition(t.id, t.status, to)
	}
	now := time.Now()
	switch to {
	case StatusRunning:
		t.startTime = &now
	default:
		t.endTime = &now
	}
	t.status = to
	return nil
}
