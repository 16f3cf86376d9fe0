package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerInitialization(t *testing.T) {
	assert.NotNil(t, User, "User logger should not be nil after init")
	assert.NotNil(t, Op, "Op logger should not be nil after init")
}

func TestUnifiedLoggerInitialization(t *testing.T) {
	ul := GetLogger()
	require.NotNil(t, ul)
	assert.Same(t, ul, GetLogger(), "GetLogger should return the same instance")
}

func TestLoggerSetup(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		jsonLogs bool
		quiet    bool
	}{
		{"Default", false, false, false},
		{"Verbose", true, false, false},
		{"Quiet", false, false, true},
		{"JSON", false, true, false},
		{"Verbose JSON", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var userBuf, opBuf bytes.Buffer
			SetupWithWriters(tt.verbose, tt.jsonLogs, tt.quiet, &userBuf, &opBuf)

			assert.NotNil(t, User)
			assert.NotNil(t, Op)
		})
	}
	Setup(false, false, false)
}

func TestSetupRoutesByLogType(t *testing.T) {
	t.Setenv("LOG_MODE", "")
	t.Setenv("LOG_FORMAT", "")

	var userBuf, opBuf bytes.Buffer
	SetupWithWriters(false, false, false, &userBuf, &opBuf)
	defer Setup(false, false, false)

	User.Successf("workflow %s finished", "nightly")
	Op.WithFields(map[string]interface{}{"task": "t1"}).Info("dispatching")

	assert.Equal(t, "✅ workflow nightly finished\n", userBuf.String())
	assert.Contains(t, opBuf.String(), "dispatching")
	assert.Contains(t, opBuf.String(), "task=t1")
	assert.NotContains(t, userBuf.String(), "dispatching")
}

func TestSetupQuietSuppressesInfo(t *testing.T) {
	t.Setenv("LOG_MODE", "")

	var userBuf, opBuf bytes.Buffer
	SetupWithWriters(false, false, true, &userBuf, &opBuf)
	defer Setup(false, false, false)

	User.Info("hidden")
	User.Errorf("shown %d", 1)

	assert.NotContains(t, userBuf.String(), "hidden")
	assert.Contains(t, userBuf.String(), "shown")
}

func TestSetupEnvOverride(t *testing.T) {
	t.Setenv("LOG_MODE", "debug")

	var userBuf, opBuf bytes.Buffer
	SetupWithWriters(false, false, true, &userBuf, &opBuf)
	defer Setup(false, false, false)

	Op.Debug("debug line")
	assert.Contains(t, opBuf.String(), "debug line")
}

func TestUserLoggerOutput(t *testing.T) {
	var buf bytes.Buffer

	testLogger := logrus.New()
	testLogger.SetOutput(&buf)
	testLogger.SetLevel(logrus.InfoLevel)

	userLogger := &UserLogger{logger: testLogger}

	userLogger.Info("test message")
	assert.Contains(t, buf.String(), "test message")

	buf.Reset()
	userLogger.Startingf("starting %s", "run")
	assert.Contains(t, buf.String(), "starting run")
}

func TestOpLoggerWithFieldsDoesNotMutateInput(t *testing.T) {
	var buf bytes.Buffer

	testLogger := logrus.New()
	testLogger.SetOutput(&buf)

	opLogger := &OpLogger{logger: testLogger}

	fields := map[string]interface{}{"task": "t1"}
	opLogger.WithFields(fields).Info("operational message")

	assert.Contains(t, buf.String(), "operational message")
	assert.NotContains(t, fields, "log_type")
}

func TestCLIFormatter(t *testing.T) {
	f := &CLIFormatter{DisableTimestamp: true, DisableColors: true}
	entry := &logrus.Entry{
		Message: "hello",
		Level:   logrus.WarnLevel,
		Data:    logrus.Fields{"b": 2, "a": 1, "log_type": "op"},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "WARNING: hello a=1 b=2\n", string(out))
}

func TestLogTypeRouting(t *testing.T) {
	captureHook := &testHook{}

	ul := GetLogger()
	ul.GetInternalLogger().AddHook(captureHook)

	User.Info("user message")
	require.NotEmpty(t, captureHook.entries)
	last := captureHook.entries[len(captureHook.entries)-1]
	assert.Equal(t, string(UserLog), last.Data["log_type"])

	Op.Info("op message")
	last = captureHook.entries[len(captureHook.entries)-1]
	assert.Equal(t, string(OpLog), last.Data["log_type"])
	assert.True(t, strings.HasPrefix(last.Message, "op message"))
}

// testHook is a simple hook for capturing log entries in tests
type testHook struct {
	entries []*logrus.Entry
}

func (h *testHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *testHook) Fire(entry *logrus.Entry) error {
	h.entries = append(h.entries, entry)
	return nil
}

func TestOpLoggerScopes(t *testing.T) {
	var opBuf bytes.Buffer
	SetupWithWriters(false, true, false, &bytes.Buffer{}, &opBuf)

	Op.Workflow("wf-1").Info("workflow line")
	Op.Task("wf-1", "fetch").Info("task line")

	out := opBuf.String()
	assert.Contains(t, out, `"workflow":"wf-1"`)
	assert.Contains(t, out, `"task":"fetch"`)
	assert.Contains(t, out, `"log_type":"op"`)
}
