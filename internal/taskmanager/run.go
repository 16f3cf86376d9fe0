package taskmanager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"golang.org/x/sync/errgroup"

	wferrors "github.com/maxkimambo/taskflow/internal/errors"
	"github.com/maxkimambo/taskflow/internal/logger"
)

// ResultKey is the shared context key under which a task's outcome is stored.
func ResultKey(taskID string) string {
	return "task_" + taskID + "_result"
}

// Run drives the workflow to a terminal status. Task failures are recorded
// on the tasks and reflected in the workflow status; they are not returned.
// Run returns an error only when the workflow cannot start or when pending
// tasks can never become ready for a reason other than an upstream failure
// (errors.Is(err, ErrDeadlock)).
//
// Cancelling ctx cancels the workflow. The same ctx is handed to every
// executor call.
func (w *Workflow) Run(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.status.IsTerminal():
		status := w.status
		w.mu.Unlock()
		return workflowFinished(w.id, status, "Run workflow")
	case w.status == StatusRunning:
		w.mu.Unlock()
		return wferrors.NewGraphError(wferrors.CodeAlreadyStarted, "Workflow is already running", "Run workflow").
			WithContext("workflow", w.id)
	}
	w.status = StatusRunning
	now := time.Now()
	w.startTime = &now
	w.stranded = nil
	taskCount := len(w.tasks)
	w.mu.Unlock()

	log := logger.Op.Workflow(w.id).WithField("name", w.name)
	log.WithField("tasks", taskCount).Debug("Workflow started")
	w.emit(Event{Type: EventWorkflowStarted})

	cancelled := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(cancelled)
		w.Cancel()
	})
	// Observers of the cancellation have returned before Run does.
	defer func() {
		if !stop() {
			<-cancelled
		}
	}()

	for generation := 0; ; generation++ {
		if ctx.Err() != nil {
			w.Cancel()
		}
		if w.Status() == StatusCancelled {
			log.Debug("Workflow cancelled, dispatch stopped")
			break
		}

		ready := w.readySet()
		if len(ready) == 0 {
			deadlocked, blocked := w.classifyPending()
			if len(deadlocked) > 0 {
				return w.abort(wferrors.NewDeadlockError(deadlocked))
			}
			if len(blocked) > 0 {
				logger.Op.Warnf("Tasks blocked by failed or cancelled dependencies: %s", strings.Join(blocked, ", "))
				w.mu.Lock()
				w.stranded = blocked
				w.mu.Unlock()
			}
			break
		}

		log.WithFields(map[string]interface{}{
			"generation": generation,
			"ready":      len(ready),
		}).Debug("Dispatching ready tasks")

		// Every task of a generation sees the context as it stood when the
		// generation started. Sequential dispatch does not re-read it per
		// task, so siblings never see each other's results.
		snapshot := w.context.Snapshot()
		w.dispatch(ctx, ready, snapshot)
	}

	w.finish()
	return nil
}

// readySet returns the pending tasks whose dependencies have all completed,
// in insertion order.
func (w *Workflow) readySet() []*Task {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []*Task
	for _, t := range w.orderedTasksLocked() {
		if t.Status() != StatusPending {
			continue
		}
		if w.dependenciesCompletedLocked(t) {
			ready = append(ready, t)
		}
	}
	return ready
}

func (w *Workflow) dependenciesCompletedLocked(t *Task) bool {
	for _, dep := range t.Dependencies() {
		d, ok := w.tasks[dep]
		if !ok || d.Status() != StatusCompleted {
			return false
		}
	}
	return true
}

// classifyPending splits the pending tasks into those whose dependency chain
// reaches a failed or cancelled task (blocked) and those for which nothing
// explains the lack of progress (deadlocked).
func (w *Workflow) classifyPending() (deadlocked, blocked []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range w.orderedTasksLocked() {
		if t.Status() != StatusPending {
			continue
		}
		if w.reachesFailureLocked(t.ID()) {
			blocked = append(blocked, t.ID())
		} else {
			deadlocked = append(deadlocked, t.ID())
		}
	}
	return deadlocked, blocked
}

func (w *Workflow) reachesFailureLocked(start string) bool {
	visited := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range w.tasks[current].Dependencies() {
			d, ok := w.tasks[dep]
			if !ok || visited[dep] {
				continue
			}
			if s := d.Status(); s == StatusFailed || s == StatusCancelled {
				return true
			}
			visited[dep] = true
			stack = append(stack, dep)
		}
	}
	return false
}

func (w *Workflow) dispatch(ctx context.Context, ready []*Task, snapshot map[string]any) {
	if w.opts.MaxParallelTasks <= 1 {
		for _, t := range ready {
			if w.Status() == StatusCancelled {
				return
			}
			w.runTask(ctx, t, snapshot)
		}
		return
	}

	// Task failures never abort siblings, so the group carries no error.
	var g errgroup.Group
	g.SetLimit(w.opts.MaxParallelTasks)
	for _, t := range ready {
		if w.Status() == StatusCancelled {
			break
		}
		t := t
		g.Go(func() error {
			w.runTask(ctx, t, snapshot)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *Workflow) runTask(ctx context.Context, t *Task, snapshot map[string]any) {
	if !w.startTask(t) {
		return
	}
	w.emit(Event{Type: EventTaskStarted, TaskID: t.ID(), TaskName: t.Name()})

	values, err := w.effectiveInput(t, snapshot)
	if err != nil {
		w.recordFailure(t, err)
		return
	}

	result, err := w.execute(ctx, t, Input{Prompt: t.RenderInput(values), Values: values})
	if err != nil {
		w.recordFailure(t, err)
		return
	}

	if err := t.complete(result); err != nil {
		logger.Op.Task(w.id, t.ID()).WithField("status", t.Status().String()).
			Debug("Discarding late task result")
		return
	}
	w.context.Set(ResultKey(t.ID()), result)
	w.emit(Event{Type: EventTaskCompleted, TaskID: t.ID(), TaskName: t.Name(), Result: result})
}

// startTask moves t to Running unless the workflow has been cancelled.
func (w *Workflow) startTask(t *Task) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status != StatusRunning {
		return false
	}
	return t.start() == nil
}

func (w *Workflow) recordFailure(t *Task, err error) {
	msg := failureMessage(err)
	if ferr := t.fail(msg); ferr != nil {
		logger.Op.Task(w.id, t.ID()).WithField("status", t.Status().String()).
			Debug("Discarding late task failure")
		return
	}
	w.context.Set(ResultKey(t.ID()), map[string]any{"error": msg})
	logger.Op.Task(w.id, t.ID()).WithField("error", msg).Debug("Task failed")
	w.emit(Event{Type: EventTaskFailed, TaskID: t.ID(), TaskName: t.Name(), Error: msg})
}

func failureMessage(err error) string {
	if wfErr, ok := wferrors.AsWorkflowError(err); ok {
		return wfErr.Message
	}
	return err.Error()
}

// effectiveInput layers the task's inputs, the context snapshot and the
// results of the task's dependencies. Later layers win on key collisions.
func (w *Workflow) effectiveInput(t *Task, snapshot map[string]any) (map[string]any, error) {
	depResults := make(map[string]any)
	for _, dep := range t.Dependencies() {
		if d, ok := w.Task(dep); ok {
			depResults[ResultKey(dep)] = d.Result()
		}
	}

	// Nested values are shared with the tasks that produced them and with
	// concurrently dispatched siblings, so a layer replaces colliding keys
	// instead of merging into them.
	values := make(map[string]any)
	for _, layer := range []map[string]any{t.Inputs(), snapshot, depResults} {
		for k := range layer {
			delete(values, k)
		}
		if err := mergo.Merge(&values, layer, mergo.WithOverride); err != nil {
			return nil, wferrors.NewExecutionError(t.ID(), t.Name(), err)
		}
	}
	return values, nil
}

func (w *Workflow) execute(ctx context.Context, t *Task, in Input) (result any, err error) {
	executor := t.Executor()
	if executor == nil {
		return nil, wferrors.NewWorkflowError(wferrors.ErrorCategoryExecution, wferrors.CodeNoExecutor,
			"No executor assigned", "Execute task").
			WithContext("task", t.ID())
	}

	defer func() {
		if r := recover(); r != nil {
			err = wferrors.NewWorkflowError(wferrors.ErrorCategoryExecution, wferrors.CodeExecutorPanic,
				fmt.Sprintf("Executor panicked: %v", r), "Execute task").
				WithContext("task", t.ID())
		}
	}()
	return executor.Execute(ctx, in)
}

// abort fails the workflow on a structural error found mid-run.
func (w *Workflow) abort(err *wferrors.WorkflowError) error {
	w.mu.Lock()
	aborted := w.status == StatusRunning
	if aborted {
		w.status = StatusFailed
		now := time.Now()
		w.endTime = &now
	}
	w.mu.Unlock()

	logger.Op.Workflow(w.id).WithField("code", string(err.Category)+"-"+err.Code).Error(err.Message)
	if aborted {
		w.emit(Event{Type: EventWorkflowFailed, Error: err.Message})
	}
	return err
}

// finish computes the terminal status once dispatch has stopped.
func (w *Workflow) finish() {
	w.mu.Lock()
	if w.status != StatusRunning {
		// Cancel already set the status and emitted its event.
		w.mu.Unlock()
		return
	}
	failed := len(w.stranded) > 0
	for _, t := range w.orderedTasksLocked() {
		if t.Status() == StatusFailed {
			failed = true
			break
		}
	}
	now := time.Now()
	w.endTime = &now
	if failed {
		w.status = StatusFailed
	} else {
		w.status = StatusCompleted
	}
	status := w.status
	w.mu.Unlock()

	logger.Op.Workflow(w.id).WithField("status", status.String()).Debug("Workflow finished")

	if status == StatusFailed {
		w.emit(Event{Type: EventWorkflowFailed})
		return
	}
	w.emit(Event{Type: EventWorkflowCompleted, Results: w.Results()})
}
