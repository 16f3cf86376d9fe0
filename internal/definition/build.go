package definition

import (
	"fmt"

	wferrors "github.com/maxkimambo/taskflow/internal/errors"
	"github.com/maxkimambo/taskflow/internal/executors"
	"github.com/maxkimambo/taskflow/internal/taskmanager"
)

// BuildOptions controls how a Definition becomes a Workflow.
type BuildOptions struct {
	Registry *executors.Registry
	// DefaultExecutor is used for tasks that do not name one
	DefaultExecutor string
	// Options apply unless the definition sets max_parallel_tasks
	Options   taskmanager.Options
	Observers []taskmanager.Observer
}

// Build creates a Workflow from the definition. All tasks are added first,
// then every dependency edge, so unknown labels and cycles are reported
// against the task that declares them.
func (d *Definition) Build(opts BuildOptions) (*taskmanager.Workflow, error) {
	engineOpts := opts.Options
	if d.MaxParallelTasks > 0 {
		engineOpts.MaxParallelTasks = d.MaxParallelTasks
	}

	wfOpts := []taskmanager.WorkflowOption{
		taskmanager.WithWorkflowDescription(d.Description),
		taskmanager.WithOptions(engineOpts),
	}
	for _, o := range opts.Observers {
		wfOpts = append(wfOpts, taskmanager.WithObserver(o))
	}
	w := taskmanager.NewWorkflow(d.Name, wfOpts...)

	for _, td := range d.Tasks {
		executor, err := d.executorFor(td, opts)
		if err != nil {
			return nil, err
		}
		task := taskmanager.NewTask(td.Key,
			taskmanager.WithID(td.Key),
			taskmanager.WithDescription(td.Description),
			taskmanager.WithInputs(td.Inputs),
			taskmanager.WithExecutor(executor),
		)
		if _, err := w.AddTask(task); err != nil {
			return nil, wferrors.NewDefinitionError(wferrors.CodeDefinitionDuplicate,
				fmt.Sprintf("Task '%s' could not be added", td.Key), "Build workflow").
				WithContext("at", td.Range.String()).
				WithOriginalError(err)
		}
	}

	for _, td := range d.Tasks {
		for _, dep := range td.DependsOn {
			if err := w.AddDependency(td.Key, dep); err != nil {
				return nil, d.dependencyError(td, dep, err)
			}
		}
	}
	return w, nil
}

func (d *Definition) executorFor(td TaskDefinition, opts BuildOptions) (taskmanager.Executor, error) {
	name := td.Executor
	if name == "" {
		name = opts.DefaultExecutor
	}
	if name == "" || opts.Registry == nil {
		// Left unbound: the run records the task as failed.
		return nil, nil
	}
	executor, err := opts.Registry.New(name, executors.Spec{Command: td.Command, Message: td.Message})
	if err != nil {
		wfErr, ok := wferrors.AsWorkflowError(err)
		if ok && wfErr.Category == wferrors.ErrorCategoryConfiguration {
			return nil, wfErr.WithContext("task", td.Key).WithContext("at", td.Range.String())
		}
		return nil, err
	}
	return executor, nil
}

func (d *Definition) dependencyError(td TaskDefinition, dep string, err error) error {
	var msg string
	switch {
	case isCode(err, wferrors.CodeTaskNotFound):
		msg = fmt.Sprintf("Task '%s' depends on unknown task '%s'", td.Key, dep)
	case isCode(err, wferrors.CodeCycleDetected):
		msg = fmt.Sprintf("Task '%s' depending on '%s' creates a cycle", td.Key, dep)
	default:
		msg = fmt.Sprintf("Task '%s' cannot depend on '%s'", td.Key, dep)
	}
	return wferrors.NewDefinitionError(wferrors.CodeDefinitionReference, msg, "Build workflow").
		WithContext("at", td.DependsRange.String()).
		WithOriginalError(err)
}

func isCode(err error, code string) bool {
	wfErr, ok := wferrors.AsWorkflowError(err)
	return ok && wfErr.Category == wferrors.ErrorCategoryGraph && wfErr.Code == code
}
