package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// OutputRouterHook routes log entries to different outputs based on log_type
type OutputRouterHook struct {
	UserFormatter logrus.Formatter
	OpFormatter   logrus.Formatter
	UserWriter    io.Writer
	OpWriter      io.Writer

	mu sync.Mutex
}

// NewOutputRouterHook creates a new output router hook
func NewOutputRouterHook() *OutputRouterHook {
	return &OutputRouterHook{
		UserFormatter: &CLIFormatter{
			DisableTimestamp: true,
			DisableLevel:     true,
		},
		OpFormatter: &CLIFormatter{},
		UserWriter:  os.Stdout,
		OpWriter:    os.Stderr,
	}
}

// Levels returns all log levels (this hook processes all levels)
func (h *OutputRouterHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire writes the entry to the user or operational destination. The status
// prefix is folded into the message only for the CLI formatter; structured
// formatters keep it as the emoji field.
func (h *OutputRouterHook) Fire(entry *logrus.Entry) error {
	formatter, writer := h.OpFormatter, h.OpWriter
	if logType, _ := entry.Data["log_type"].(string); logType == string(UserLog) {
		formatter, writer = h.UserFormatter, h.UserWriter
		if emoji, ok := entry.Data["emoji"].(string); ok && emoji != "" {
			if _, cli := formatter.(*CLIFormatter); cli {
				prefixed := *entry
				prefixed.Message = emoji + " " + entry.Message
				entry = &prefixed
			}
		}
	}

	b, err := formatter.Format(entry)
	if err != nil {
		return err
	}

	// task goroutines log concurrently
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = writer.Write(b)
	return err
}
