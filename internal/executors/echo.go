package executors

import (
	"context"
	"errors"

	"github.com/maxkimambo/taskflow/internal/taskmanager"
)

const (
	EchoName    = "echo"
	CommandName = "command"
	FailName    = "fail"
)

// Echo returns its rendered prompt and input values unchanged.
type Echo struct{}

// Name implements taskmanager.Named.
func (Echo) Name() string { return EchoName }

// Execute implements taskmanager.Executor.
func (Echo) Execute(ctx context.Context, in taskmanager.Input) (any, error) {
	return map[string]any{
		"prompt": in.Prompt,
		"inputs": in.Values,
	}, nil
}

// Fail always fails. Useful for dry runs of failure handling.
type Fail struct {
	Message string
}

// Name implements taskmanager.Named.
func (Fail) Name() string { return FailName }

// Execute implements taskmanager.Executor.
func (f Fail) Execute(ctx context.Context, in taskmanager.Input) (any, error) {
	msg := f.Message
	if msg == "" {
		msg = "forced failure"
	}
	return nil, errors.New(msg)
}
