package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogType selects the destination of an entry: user lines go to stdout,
// operational lines to stderr.
type LogType string

const (
	UserLog LogType = "user"
	OpLog   LogType = "op"
)

// UnifiedLogger owns the single logrus logger behind User and Op.
type UnifiedLogger struct {
	mu     sync.RWMutex
	logger *logrus.Logger
}

var (
	unifiedLog *UnifiedLogger
	once       sync.Once
)

// GetLogger returns the process-wide logger, creating it on first use.
func GetLogger() *UnifiedLogger {
	once.Do(func() {
		l := logrus.New()
		l.SetOutput(os.Stdout)
		l.SetLevel(logrus.InfoLevel)
		l.SetFormatter(&CLIFormatter{
			DisableTimestamp: true,
			DisableLevel:     true,
		})
		unifiedLog = &UnifiedLogger{logger: l}
	})
	return unifiedLog
}

// GetInternalLogger returns the underlying logrus logger (use with caution)
func (l *UnifiedLogger) GetInternalLogger() *logrus.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logger
}

// Workflow returns an operational entry tagged with a workflow id.
func (o *OpLogger) Workflow(workflowID string) *logrus.Entry {
	return o.WithFields(map[string]interface{}{"workflow": workflowID})
}

// Task returns an operational entry tagged with a workflow and task id.
func (o *OpLogger) Task(workflowID, taskID string) *logrus.Entry {
	return o.WithFields(map[string]interface{}{
		"workflow": workflowID,
		"task":     taskID,
	})
}
