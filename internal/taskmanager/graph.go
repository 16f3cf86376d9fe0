package taskmanager

import (
	wferrors "github.com/maxkimambo/taskflow/internal/errors"
)

// AddTask inserts a task into the workflow and returns its identifier.
// Dependencies already set on the task may name tasks that are added later,
// but they must not close a cycle through tasks already present.
func (w *Workflow) AddTask(t *Task) (string, error) {
	if t == nil || t.ID() == "" {
		return "", wferrors.NewGraphError(wferrors.CodeInvalidTask, "Task must have a non-empty identifier", "Add task")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status.IsTerminal() {
		return "", workflowFinished(w.id, w.status, "Add task")
	}
	if _, exists := w.tasks[t.ID()]; exists {
		return "", wferrors.NewDuplicateTaskError(t.ID())
	}
	for _, dep := range t.Dependencies() {
		if dep == t.ID() || w.reachableLocked(dep, t.ID()) {
			return "", wferrors.NewCycleError(t.ID(), dep)
		}
	}

	w.tasks[t.ID()] = t
	w.order = append(w.order, t.ID())
	return t.ID(), nil
}

// RemoveTask deletes a task that no other task depends on. A running task
// cannot be removed.
func (w *Workflow) RemoveTask(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status.IsTerminal() {
		return workflowFinished(w.id, w.status, "Remove task")
	}

	t, ok := w.tasks[id]
	if !ok {
		return wferrors.NewTaskNotFoundError(id, "Remove task")
	}
	if t.Status() == StatusRunning {
		return wferrors.NewGraphError(wferrors.CodeInvalidTask,
			"Task '"+id+"' is running and cannot be removed", "Remove task").
			WithContext("task", id)
	}
	if dependents := w.dependentsLocked(id); len(dependents) > 0 {
		return wferrors.NewTaskInUseError(id, dependents)
	}

	delete(w.tasks, id)
	for i, existing := range w.order {
		if existing == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return nil
}

// AddDependency records that taskID cannot start until dependsOn has
// completed. The graph is left unchanged when an error is returned. Adding
// an edge that already exists succeeds without effect.
func (w *Workflow) AddDependency(taskID, dependsOn string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status.IsTerminal() {
		return workflowFinished(w.id, w.status, "Add dependency")
	}
	t, ok := w.tasks[taskID]
	if !ok {
		return wferrors.NewTaskNotFoundError(taskID, "Add dependency")
	}
	if _, ok := w.tasks[dependsOn]; !ok {
		return wferrors.NewTaskNotFoundError(dependsOn, "Add dependency")
	}
	if t.DependsOn(dependsOn) {
		return nil
	}
	if w.wouldCreateCycleLocked(taskID, dependsOn) {
		return wferrors.NewCycleError(taskID, dependsOn)
	}

	t.addDependency(dependsOn)
	return nil
}

// Dependents returns the identifiers of tasks that directly depend on id,
// in insertion order.
func (w *Workflow) Dependents(id string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dependentsLocked(id)
}

func (w *Workflow) dependentsLocked(id string) []string {
	var out []string
	for _, other := range w.order {
		if w.tasks[other].DependsOn(id) {
			out = append(out, other)
		}
	}
	return out
}

// wouldCreateCycleLocked reports whether the edge taskID -> dependsOn closes
// a cycle, i.e. whether taskID is already reachable from dependsOn.
func (w *Workflow) wouldCreateCycleLocked(taskID, dependsOn string) bool {
	return taskID == dependsOn || w.reachableLocked(dependsOn, taskID)
}

// reachableLocked walks dependency edges from start with an explicit stack
// and reports whether target is found. Unknown identifiers are leaves.
func (w *Workflow) reachableLocked(start, target string) bool {
	visited := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == target {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		t, ok := w.tasks[current]
		if !ok {
			continue
		}
		for _, dep := range t.Dependencies() {
			if !visited[dep] {
				stack = append(stack, dep)
			}
		}
	}
	return false
}

// Validate checks that every dependency names a task in the workflow and
// that the graph is acyclic.
func (w *Workflow) Validate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range w.orderedTasksLocked() {
		for _, dep := range t.Dependencies() {
			if _, ok := w.tasks[dep]; !ok {
				return wferrors.NewTaskNotFoundError(dep, "Validate workflow").
					WithContext("required_by", t.ID())
			}
		}
	}
	_, err := w.dagLocked().TopologicalSort()
	if err != nil {
		return wferrors.NewGraphError(wferrors.CodeCycleDetected, err.Error(), "Validate workflow")
	}
	return nil
}

// ExecutionPlan groups task identifiers into generations: every task in a
// generation depends only on tasks in earlier generations. With sequential
// dispatch the run visits the tasks in this order when nothing fails.
func (w *Workflow) ExecutionPlan() ([][]string, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dagLocked().Levels()
}

func (w *Workflow) dagLocked() *DAG {
	d := NewDAG()
	for _, id := range w.order {
		d.AddNode(id)
	}
	for _, id := range w.order {
		for _, dep := range w.tasks[id].Dependencies() {
			d.AddEdge(id, dep)
		}
	}
	return d
}
