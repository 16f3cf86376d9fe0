package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the category of error
type ErrorCategory string

const (
	// ErrorCategoryGraph represents structural errors in the dependency graph
	ErrorCategoryGraph ErrorCategory = "GRAPH"
	// ErrorCategoryDeadlock represents a run that can make no further progress
	ErrorCategoryDeadlock ErrorCategory = "DEADLOCK"
	// ErrorCategoryExecution represents a task whose executor failed
	ErrorCategoryExecution ErrorCategory = "EXECUTION"
	// ErrorCategoryConfiguration represents configuration errors
	ErrorCategoryConfiguration ErrorCategory = "CONFIGURATION"
	// ErrorCategoryDefinition represents errors in a workflow definition file
	ErrorCategoryDefinition ErrorCategory = "DEFINITION"
)

// WorkflowError represents a structured error with context and troubleshooting information
type WorkflowError struct {
	Category        ErrorCategory
	Code            string
	Message         string
	Operation       string
	Context         map[string]interface{}
	Troubleshooting []string
	OriginalError   error
}

// Error implements the error interface
func (e *WorkflowError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s-%s: %s", e.Category, e.Code, e.Message))

	if e.Operation != "" {
		sb.WriteString(fmt.Sprintf("\nOperation: %s", e.Operation))
	}

	if len(e.Context) > 0 {
		sb.WriteString("\nContext:")
		for _, key := range e.contextKeys() {
			sb.WriteString(fmt.Sprintf("\n  %s: %v", key, e.Context[key]))
		}
	}

	if len(e.Troubleshooting) > 0 {
		sb.WriteString("\nTroubleshooting:")
		for i, step := range e.Troubleshooting {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	if e.OriginalError != nil {
		sb.WriteString(fmt.Sprintf("\nUnderlying error: %v", e.OriginalError))
	}

	return sb.String()
}

// Unwrap returns the original error for error chain compatibility
func (e *WorkflowError) Unwrap() error {
	return e.OriginalError
}

// Is reports whether target is a WorkflowError of the same category and code.
func (e *WorkflowError) Is(target error) bool {
	var other *WorkflowError
	if !stderrors.As(target, &other) {
		return false
	}
	return e.Category == other.Category && e.Code == other.Code
}

func (e *WorkflowError) contextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for key := range e.Context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// NewWorkflowError creates a new workflow error with the specified parameters
func NewWorkflowError(category ErrorCategory, code, message, operation string) *WorkflowError {
	return &WorkflowError{
		Category:        category,
		Code:            code,
		Message:         message,
		Operation:       operation,
		Context:         make(map[string]interface{}),
		Troubleshooting: []string{},
	}
}

// WithContext adds context information to the error
func (e *WorkflowError) WithContext(key string, value interface{}) *WorkflowError {
	e.Context[key] = value
	return e
}

// WithTroubleshooting adds troubleshooting steps to the error
func (e *WorkflowError) WithTroubleshooting(steps ...string) *WorkflowError {
	e.Troubleshooting = append(e.Troubleshooting, steps...)
	return e
}

// WithOriginalError adds the original error to the workflow error
func (e *WorkflowError) WithOriginalError(err error) *WorkflowError {
	e.OriginalError = err
	return e
}

// NewGraphError creates a new dependency graph error
func NewGraphError(code, message, operation string) *WorkflowError {
	return NewWorkflowError(ErrorCategoryGraph, code, message, operation)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(code, message, operation string) *WorkflowError {
	return NewWorkflowError(ErrorCategoryConfiguration, code, message, operation)
}

// NewDefinitionError creates a new workflow definition error
func NewDefinitionError(code, message, operation string) *WorkflowError {
	return NewWorkflowError(ErrorCategoryDefinition, code, message, operation)
}

// AsWorkflowError unwraps err into a *WorkflowError if one is present in the chain
func AsWorkflowError(err error) (*WorkflowError, bool) {
	var wfErr *WorkflowError
	if stderrors.As(err, &wfErr) {
		return wfErr, true
	}
	return nil, false
}
