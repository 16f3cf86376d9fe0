package taskmanager

import "context"

// Input is what an Executor receives for one task dispatch.
type Input struct {
	// Prompt is the human-readable rendering of the task and its inputs
	Prompt string
	// Values is the effective input: task inputs merged with the workflow
	// context and the results of the task's dependencies
	Values map[string]any
}

// Executor performs the actual work of a task. The scheduler treats it as
// opaque: it may be slow, it may fail, and no timeout is imposed on it.
type Executor interface {
	Execute(ctx context.Context, in Input) (any, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, in Input) (any, error)

// Execute calls f(ctx, in).
func (f ExecutorFunc) Execute(ctx context.Context, in Input) (any, error) {
	return f(ctx, in)
}

// Named is implemented by executors that report a display name in snapshots.
type Named interface {
	Name() string
}

func executorName(e Executor) string {
	if e == nil {
		return ""
	}
	if n, ok := e.(Named); ok {
		return n.Name()
	}
	return "custom"
}
