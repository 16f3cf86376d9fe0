package taskmanager

import (
	"fmt"

	wferrors "github.com/maxkimambo/taskflow/internal/errors"
)

// WorkflowBuilder assembles a Workflow from tasks referenced by short keys
// instead of generated identifiers.
type WorkflowBuilder struct {
	name         string
	description  string
	opts         Options
	observers    []Observer
	keys         []string
	tasks        map[string]*Task
	dependencies map[string][]string // key -> list of dependency keys
}

// NewWorkflowBuilder creates a new WorkflowBuilder for a workflow with the given name
func NewWorkflowBuilder(name string) *WorkflowBuilder {
	return &WorkflowBuilder{
		name:         name,
		opts:         DefaultOptions(),
		tasks:        make(map[string]*Task),
		dependencies: make(map[string][]string),
	}
}

// Description sets the workflow description
func (wb *WorkflowBuilder) Description(description string) *WorkflowBuilder {
	wb.description = description
	return wb
}

// Options sets the dispatch options of the built workflow
func (wb *WorkflowBuilder) Options(opts Options) *WorkflowBuilder {
	wb.opts = opts
	return wb
}

// Observe subscribes an observer to the built workflow
func (wb *WorkflowBuilder) Observe(o Observer) *WorkflowBuilder {
	wb.observers = append(wb.observers, o)
	return wb
}

// AddTask adds a task under key. A later call with the same key replaces the task.
func (wb *WorkflowBuilder) AddTask(key string, task *Task) *WorkflowBuilder {
	if _, exists := wb.tasks[key]; !exists {
		wb.keys = append(wb.keys, key)
	}
	wb.tasks[key] = task
	return wb
}

// AddDependency defines a dependency between two task keys
func (wb *WorkflowBuilder) AddDependency(key string, dependsOnKey string) *WorkflowBuilder {
	wb.dependencies[key] = append(wb.dependencies[key], dependsOnKey)
	return wb
}

// Build validates the graph and constructs the Workflow. Tasks are added in
// key insertion order, then every dependency edge.
func (wb *WorkflowBuilder) Build() (*Workflow, error) {
	if err := wb.validateDependencies(); err != nil {
		return nil, err
	}

	opts := []WorkflowOption{
		WithWorkflowDescription(wb.description),
		WithOptions(wb.opts),
	}
	for _, o := range wb.observers {
		opts = append(opts, WithObserver(o))
	}
	w := NewWorkflow(wb.name, opts...)

	for _, key := range wb.keys {
		if _, err := w.AddTask(wb.tasks[key]); err != nil {
			return nil, fmt.Errorf("task '%s': %w", key, err)
		}
	}
	for _, key := range wb.keys {
		for _, depKey := range wb.dependencies[key] {
			if err := w.AddDependency(wb.tasks[key].ID(), wb.tasks[depKey].ID()); err != nil {
				return nil, fmt.Errorf("dependency '%s' -> '%s': %w", key, depKey, err)
			}
		}
	}
	return w, nil
}

// validateDependencies ensures all dependencies reference existing keys
func (wb *WorkflowBuilder) validateDependencies() error {
	for _, key := range wb.keys {
		if wb.tasks[key] == nil {
			return wferrors.NewGraphError(wferrors.CodeInvalidTask,
				fmt.Sprintf("Task '%s' is nil", key), "Build workflow")
		}
	}
	for key, deps := range wb.dependencies {
		if _, exists := wb.tasks[key]; !exists {
			return wferrors.NewTaskNotFoundError(key, "Build workflow")
		}
		for _, depKey := range deps {
			if _, exists := wb.tasks[depKey]; !exists {
				return wferrors.NewTaskNotFoundError(depKey, "Build workflow").
					WithContext("required_by", key)
			}
		}
	}
	return nil
}

// ShowOrder returns the planned execution generations, by key, without
// building the Workflow
func (wb *WorkflowBuilder) ShowOrder() ([][]string, error) {
	if err := wb.validateDependencies(); err != nil {
		return nil, err
	}

	levels, err := wb.createDAG().Levels()
	if err != nil {
		return nil, wferrors.NewGraphError(wferrors.CodeCycleDetected, err.Error(), "Show order")
	}
	return levels, nil
}

// createDAG creates a DAG from the builder's current state
func (wb *WorkflowBuilder) createDAG() *DAG {
	dag := NewDAG()

	for _, key := range wb.keys {
		dag.AddNode(key)
	}

	for _, key := range wb.keys {
		for _, depKey := range wb.dependencies[key] {
			dag.AddEdge(key, depKey)
		}
	}

	return dag
}
