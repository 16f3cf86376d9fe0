package taskmanager

import (
	"encoding/json"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// TaskState is a point-in-time view of a task.
type TaskState struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Status       Status         `json:"status"`
	Executor     string         `json:"executor,omitempty"`
	Dependencies []string       `json:"dependencies"`
	Inputs       map[string]any `json:"inputs,omitempty"`
	StartTime    *time.Time     `json:"start_time,omitempty"`
	EndTime      *time.Time     `json:"end_time,omitempty"`
	// Duration is in seconds and only set when both timestamps are.
	Duration *float64 `json:"duration,omitempty"`
	Result   any      `json:"result,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// WorkflowState is a point-in-time view of a workflow and all its tasks.
type WorkflowState struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Status      Status               `json:"status"`
	StartTime   *time.Time           `json:"start_time,omitempty"`
	EndTime     *time.Time           `json:"end_time,omitempty"`
	Duration    *float64             `json:"duration,omitempty"`
	Order       []string             `json:"order"`
	Tasks       map[string]TaskState `json:"tasks"`
}

// State returns a snapshot of the task. It is computed on every call.
func (t *Task) State() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	deps := make([]string, len(t.dependencies))
	copy(deps, t.dependencies)
	inputs := make(map[string]any, len(t.inputs))
	for k, v := range t.inputs {
		inputs[k] = v
	}

	return TaskState{
		ID:           t.id,
		Name:         t.name,
		Description:  t.description,
		Status:       t.status,
		Executor:     executorName(t.executor),
		Dependencies: deps,
		Inputs:       inputs,
		StartTime:    t.startTime,
		EndTime:      t.endTime,
		Duration:     durationSeconds(t.startTime, t.endTime),
		Result:       t.result,
		Error:        t.err,
	}
}

// State returns a snapshot of the workflow including every task.
func (w *Workflow) State() WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()

	state := WorkflowState{
		ID:          w.id,
		Name:        w.name,
		Description: w.description,
		Status:      w.status,
		StartTime:   w.startTime,
		EndTime:     w.endTime,
		Duration:    durationSeconds(w.startTime, w.endTime),
		Order:       make([]string, len(w.order)),
		Tasks:       make(map[string]TaskState, len(w.tasks)),
	}
	copy(state.Order, w.order)
	for id, t := range w.tasks {
		state.Tasks[id] = t.State()
	}
	return state
}

// ToStruct converts the snapshot into a protobuf Struct. Results of any
// shape are normalised through their JSON encoding.
func (s WorkflowState) ToStruct() (*structpb.Struct, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func durationSeconds(start, end *time.Time) *float64 {
	if start == nil || end == nil {
		return nil
	}
	d := end.Sub(*start).Seconds()
	return &d
}
