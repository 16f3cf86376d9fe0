package executors

import (
	"sort"
	"sync"
	"time"

	wferrors "github.com/maxkimambo/taskflow/internal/errors"
	"github.com/maxkimambo/taskflow/internal/taskmanager"
)

// Spec carries the per-task executor settings found in a definition.
type Spec struct {
	// Command is the shell command for the command executor
	Command string
	// Message is the failure message for the fail executor
	Message string
}

// Factory builds an executor for one task.
type Factory func(spec Spec) (taskmanager.Executor, error)

// Registry maps executor names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// CommandOptions configures the command executor registered by Default.
type CommandOptions struct {
	Shell   string
	Timeout time.Duration
}

// Default returns a registry with the built-in echo, command and fail executors.
func Default(opts CommandOptions) *Registry {
	r := NewRegistry()
	r.Register(EchoName, func(Spec) (taskmanager.Executor, error) {
		return Echo{}, nil
	})
	r.Register(CommandName, func(spec Spec) (taskmanager.Executor, error) {
		return NewCommand(spec.Command, opts.Shell, opts.Timeout)
	})
	r.Register(FailName, func(spec Spec) (taskmanager.Executor, error) {
		return Fail{Message: spec.Message}, nil
	})
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New builds the executor registered under name.
func (r *Registry) New(name string, spec Spec) (taskmanager.Executor, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, wferrors.NewUnknownExecutorError(name, r.Names())
	}
	return f(spec)
}

// Names returns the registered executor names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
