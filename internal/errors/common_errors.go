package errors

import (
	"fmt"
	"strings"
)

// Common error codes
const (
	// Graph error codes
	CodeTaskNotFound      = "001"
	CodeDuplicateTask     = "002"
	CodeCycleDetected     = "003"
	CodeTaskInUse         = "004"
	CodeInvalidTask       = "005"
	CodeInvalidTransition = "006"
	CodeWorkflowFinished  = "007"
	CodeAlreadyStarted    = "008"

	// Deadlock error codes
	CodeDeadlock = "001"

	// Execution error codes
	CodeExecutionFailed = "001"
	CodeNoExecutor      = "002"
	CodeExecutorPanic   = "003"

	// Configuration error codes
	CodeConfigInvalid        = "001"
	CodeUnknownExecutor      = "002"
	CodeConfigFileUnreadable = "003"

	// Definition error codes
	CodeDefinitionParse      = "001"
	CodeDefinitionDecode     = "002"
	CodeDefinitionReference  = "003"
	CodeDefinitionDuplicate  = "004"
	CodeDefinitionValue      = "005"
	CodeDefinitionNoWorkflow = "006"
)

// NewTaskNotFoundError creates an error for an unknown task identifier
func NewTaskNotFoundError(taskID, operation string) *WorkflowError {
	return NewGraphError(CodeTaskNotFound,
		fmt.Sprintf("Task '%s' not found", taskID),
		operation).
		WithContext("task", taskID)
}

// NewDuplicateTaskError creates an error for a task that is already present
func NewDuplicateTaskError(taskID string) *WorkflowError {
	return NewGraphError(CodeDuplicateTask,
		fmt.Sprintf("Task '%s' already exists", taskID),
		"Add task").
		WithContext("task", taskID)
}

// NewCycleError creates an error for an edge that would close a dependency cycle
func NewCycleError(taskID, dependsOn string) *WorkflowError {
	msg := fmt.Sprintf("Dependency '%s' -> '%s' would create a cycle", taskID, dependsOn)
	if taskID == dependsOn {
		msg = fmt.Sprintf("Task '%s' cannot depend on itself", taskID)
	}
	return NewGraphError(CodeCycleDetected, msg, "Add dependency").
		WithContext("task", taskID).
		WithContext("depends_on", dependsOn).
		WithTroubleshooting(
			"Remove one of the edges on the cycle",
			"Run 'taskflow validate' to print the current execution plan",
		)
}

// NewTaskInUseError creates an error for removing a task that others depend on
func NewTaskInUseError(taskID string, dependents []string) *WorkflowError {
	return NewGraphError(CodeTaskInUse,
		fmt.Sprintf("Task '%s' is a dependency of %d other task(s)", taskID, len(dependents)),
		"Remove task").
		WithContext("task", taskID).
		WithContext("dependents", strings.Join(dependents, ", "))
}

// NewDeadlockError creates an error for a run where pending tasks can never become ready
func NewDeadlockError(pending []string) *WorkflowError {
	return NewWorkflowError(ErrorCategoryDeadlock, CodeDeadlock,
		fmt.Sprintf("Deadlock detected: %d pending task(s) can never become ready", len(pending)),
		"Run workflow").
		WithContext("pending", strings.Join(pending, ", ")).
		WithTroubleshooting(
			"Check that every dependency refers to a task in the workflow",
			"Run 'taskflow validate' to find unknown dependencies",
		)
}

// NewExecutionError creates an error for a failed task execution
func NewExecutionError(taskID, taskName string, originalErr error) *WorkflowError {
	msg := fmt.Sprintf("Task '%s' failed", taskName)
	if originalErr != nil {
		msg = fmt.Sprintf("Task '%s' failed: %v", taskName, originalErr)
	}
	return NewWorkflowError(ErrorCategoryExecution, CodeExecutionFailed, msg, "Execute task").
		WithContext("task", taskID).
		WithOriginalError(originalErr)
}

// NewUnknownExecutorError creates an error for an executor name with no registration
func NewUnknownExecutorError(name string, known []string) *WorkflowError {
	return NewConfigurationError(CodeUnknownExecutor,
		fmt.Sprintf("Unknown executor '%s'", name),
		"Resolve executor").
		WithContext("executor", name).
		WithTroubleshooting(
			fmt.Sprintf("Use one of: %s", strings.Join(known, ", ")),
			"Set executor.default in taskflow.yaml to change the fallback",
		)
}

// IsStructuralError reports whether err is a graph or deadlock error, i.e. a bad
// graph rather than a bad task
func IsStructuralError(err error) bool {
	if wfErr, ok := AsWorkflowError(err); ok {
		return wfErr.Category == ErrorCategoryGraph || wfErr.Category == ErrorCategoryDeadlock
	}
	return false
}

// GetErrorSeverity returns the severity level of an error
func GetErrorSeverity(err error) string {
	if wfErr, ok := AsWorkflowError(err); ok {
		switch wfErr.Category {
		case ErrorCategoryConfiguration, ErrorCategoryDefinition:
			return "WARNING"
		case ErrorCategoryExecution:
			return "ERROR"
		case ErrorCategoryGraph, ErrorCategoryDeadlock:
			return "CRITICAL"
		default:
			return "ERROR"
		}
	}
	return "ERROR"
}
