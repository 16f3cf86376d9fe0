package executors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
	"unicode"

	wferrors "github.com/maxkimambo/taskflow/internal/errors"
	"github.com/maxkimambo/taskflow/internal/logger"
	"github.com/maxkimambo/taskflow/internal/taskmanager"
)

// waitDelay bounds how long output pipes are drained after the process is killed.
const waitDelay = 500 * time.Millisecond

// EnvPrefix prefixes the environment variables that carry input values.
const EnvPrefix = "TASKFLOW_TASK_"

// Command runs a shell command per task. The rendered prompt is written to
// stdin, input values are exported as TASKFLOW_TASK_<KEY> variables and the
// trimmed stdout becomes the task result.
type Command struct {
	command string
	shell   string
	timeout time.Duration
}

// NewCommand creates a command executor. A zero timeout means none.
func NewCommand(command, shell string, timeout time.Duration) (*Command, error) {
	if strings.TrimSpace(command) == "" {
		return nil, wferrors.NewConfigurationError(wferrors.CodeConfigInvalid,
			"The command executor requires a command", "Create executor").
			WithTroubleshooting("Set the command attribute on the task")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Command{command: command, shell: shell, timeout: timeout}, nil
}

// Name implements taskmanager.Named.
func (c *Command) Name() string { return CommandName }

// Execute implements taskmanager.Executor.
func (c *Command) Execute(ctx context.Context, in taskmanager.Input) (any, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.shell, "-c", c.command)
	cmd.Stdin = strings.NewReader(in.Prompt)
	cmd.Env = append(os.Environ(), inputEnv(in.Values)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	logger.Op.WithFields(map[string]interface{}{
		"command": c.command,
		"shell":   c.shell,
	}).Debug("Running command")

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)
	if err == nil {
		return strings.TrimSpace(stdout.String()), nil
	}

	msg := strings.TrimSpace(stderr.String())
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		msg = fmt.Sprintf("Command timed out after %s", c.timeout)
	case errors.As(err, &exitErr):
		if msg == "" {
			msg = fmt.Sprintf("Command exited with status %d", exitErr.ExitCode())
		} else {
			msg = fmt.Sprintf("Command exited with status %d: %s", exitErr.ExitCode(), msg)
		}
	default:
		msg = fmt.Sprintf("Command could not run: %v", err)
	}
	return nil, wferrors.NewWorkflowError(wferrors.ErrorCategoryExecution, wferrors.CodeExecutionFailed,
		msg, "Run command").
		WithContext("command", c.command).
		WithContext("duration", duration.Round(time.Millisecond).String()).
		WithOriginalError(err)
}

func inputEnv(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, EnvPrefix+envName(k)+"="+envValue(values[k]))
	}
	return env
}

func envName(key string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, key)
}

func envValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, int, int64, float64:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
