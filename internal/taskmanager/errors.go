package taskmanager

import (
	wferrors "github.com/maxkimambo/taskflow/internal/errors"
)

// Sentinel errors. Concrete errors carry more context but match these with errors.Is.
var (
	ErrTaskNotFound      = wferrors.NewGraphError(wferrors.CodeTaskNotFound, "task not found", "")
	ErrDuplicateTask     = wferrors.NewGraphError(wferrors.CodeDuplicateTask, "task already exists", "")
	ErrCycleDetected     = wferrors.NewGraphError(wferrors.CodeCycleDetected, "dependency cycle", "")
	ErrTaskInUse         = wferrors.NewGraphError(wferrors.CodeTaskInUse, "task is a dependency of another task", "")
	ErrInvalidTask       = wferrors.NewGraphError(wferrors.CodeInvalidTask, "invalid task", "")
	ErrInvalidTransition = wferrors.NewGraphError(wferrors.CodeInvalidTransition, "invalid status transition", "")
	ErrWorkflowFinished  = wferrors.NewGraphError(wferrors.CodeWorkflowFinished, "workflow already finished", "")
	ErrAlreadyStarted    = wferrors.NewGraphError(wferrors.CodeAlreadyStarted, "workflow already started", "")
	ErrDeadlock          = wferrors.NewWorkflowError(wferrors.ErrorCategoryDeadlock, wferrors.CodeDeadlock, "deadlock detected", "")
	ErrNoExecutor        = wferrors.NewWorkflowError(wferrors.ErrorCategoryExecution, wferrors.CodeNoExecutor, "no executor assigned", "")
)

func invalidTransition(taskID string, from, to Status) error {
	return wferrors.NewGraphError(wferrors.CodeInvalidTransition,
		"invalid status transition "+from.String()+" -> "+to.String(),
		"Change task status").
		WithContext("task", taskID)
}

func workflowFinished(workflowID string, status Status, operation string) error {
	return wferrors.NewGraphError(wferrors.CodeWorkflowFinished,
		"workflow already "+status.String(),
		operation).
		WithContext("workflow", workflowID)
}
