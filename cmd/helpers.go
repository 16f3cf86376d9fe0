package cmd

import (
	"sync"
	"time"

	"github.com/maxkimambo/taskflow/internal/definition"
	"github.com/maxkimambo/taskflow/internal/executors"
	"github.com/maxkimambo/taskflow/internal/logger"
	"github.com/maxkimambo/taskflow/internal/progress"
	"github.com/maxkimambo/taskflow/internal/taskmanager"
)

// loadWorkflow parses the definition file and builds a workflow from it using
// the executors and engine options from the loaded config. A positive
// parallel overrides max_parallel_tasks from the file.
func (a *app) loadWorkflow(path string, parallel int) (*definition.Definition, *taskmanager.Workflow, error) {
	def, err := definition.ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	if parallel > 0 {
		def.MaxParallelTasks = parallel
	}

	registry := executors.Default(executors.CommandOptions{
		Shell:   a.cfg.Executor.Command.Shell,
		Timeout: a.cfg.Executor.Command.Timeout,
	})
	w, err := def.Build(definition.BuildOptions{
		Registry:        registry,
		DefaultExecutor: a.cfg.Executor.Default,
		Options:         taskmanager.Options{MaxParallelTasks: a.cfg.Engine.MaxParallelTasks},
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Op.WithFields(map[string]interface{}{
		"workflow": def.Name,
		"file":     path,
		"tasks":    len(def.Tasks),
	}).Debug("Workflow loaded")
	return def, w, nil
}

// taskTimer logs how long each task took once it finishes.
type taskTimer struct {
	mu     sync.Mutex
	starts map[string]time.Time
}

func newTaskTimer() *taskTimer {
	return &taskTimer{starts: make(map[string]time.Time)}
}

func (t *taskTimer) OnEvent(e taskmanager.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Type {
	case taskmanager.EventTaskStarted:
		t.starts[e.TaskID] = e.Time
	case taskmanager.EventTaskCompleted, taskmanager.EventTaskFailed:
		start, ok := t.starts[e.TaskID]
		if !ok {
			return
		}
		delete(t.starts, e.TaskID)
		logger.Op.Debug(progress.ReportTaskComplete(e.TaskName, e.Time.Sub(start), e.Type == taskmanager.EventTaskCompleted))
	}
}
