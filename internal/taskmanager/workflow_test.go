package taskmanager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, in Input) (any, error) {
	args := m.Called(ctx, in)
	return args.Get(0), args.Error(1)
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) OnEvent(e Event) {
	m.Called(e)
}

// echoValue returns {"v": input} for every call.
func echoValue() Executor {
	return ExecutorFunc(func(ctx context.Context, in Input) (any, error) {
		return map[string]any{"v": in.Values}, nil
	})
}

func failing(msg string) Executor {
	return ExecutorFunc(func(ctx context.Context, in Input) (any, error) {
		return nil, errors.New(msg)
	})
}

func addTasks(t *testing.T, w *Workflow, tasks ...*Task) {
	t.Helper()
	for _, task := range tasks {
		_, err := w.AddTask(task)
		require.NoError(t, err)
	}
}

func eventRecorder(w *Workflow) func() []EventType {
	var mu sync.Mutex
	var events []EventType
	w.Subscribe(ObserverFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e.Type)
	}))
	return func() []EventType {
		mu.Lock()
		defer mu.Unlock()
		return append([]EventType(nil), events...)
	}
}

func TestWorkflow_Run_DependentReceivesResult(t *testing.T) {
	w := NewWorkflow("scenario-a")
	t1 := NewTask("T1", WithID("T1"), WithExecutor(echoValue()), WithInputs(map[string]any{"topic": "graphs"}))
	exec := &mockExecutor{}
	exec.On("Execute", mock.Anything, mock.Anything).Return(map[string]any{"v": "done"}, nil).Once()
	t2 := NewTask("T2", WithID("T2"), WithExecutor(exec))
	addTasks(t, w, t1, t2)
	require.NoError(t, w.AddDependency("T2", "T1"))

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, StatusCompleted, w.Status())
	assert.Equal(t, StatusCompleted, t1.Status())
	assert.Equal(t, StatusCompleted, t2.Status())
	assert.Len(t, w.Results(), 2)
	assert.NotNil(t, w.StartTime())
	assert.NotNil(t, w.EndTime())

	exec.AssertExpectations(t)
	in := exec.Calls[0].Arguments.Get(1).(Input)
	assert.Equal(t, map[string]any{"v": map[string]any{"topic": "graphs"}}, in.Values["task_T1_result"])
	assert.Contains(t, in.Prompt, "Task: T2")
	assert.Contains(t, in.Prompt, "task_T1_result: ")

	d, ok := t2.Duration()
	assert.True(t, ok)
	assert.GreaterOrEqual(t, d, time.Duration(0))
}

func TestWorkflow_Run_FailureBlocksDependents(t *testing.T) {
	w := NewWorkflow("scenario-b")
	t1 := NewTask("T1", WithID("T1"), WithExecutor(failing("boom")))
	t2 := NewTask("T2", WithID("T2"), WithExecutor(echoValue()), WithDependencies("T1"))
	t3 := NewTask("T3", WithID("T3"), WithExecutor(echoValue()))
	addTasks(t, w, t1, t2, t3)
	events := eventRecorder(w)

	err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, w.Status())
	assert.Equal(t, StatusFailed, t1.Status())
	assert.Equal(t, "boom", t1.Error())
	assert.Nil(t, t1.Result())
	assert.Equal(t, StatusPending, t2.Status())
	assert.Nil(t, t2.StartTime())
	assert.Equal(t, StatusCompleted, t3.Status(), "sibling still runs")
	assert.Equal(t, []string{"T2"}, w.Stranded())

	results := w.Results()
	assert.Len(t, results, 1)
	assert.Contains(t, results, "T3")

	assert.Equal(t, map[string]any{"error": "boom"}, w.Context()["task_T1_result"])
	assert.Equal(t, []EventType{
		EventWorkflowStarted,
		EventTaskStarted, EventTaskFailed,
		EventTaskStarted, EventTaskCompleted,
		EventWorkflowFailed,
	}, events())
}

func TestWorkflow_AddDependency_RejectsCycle(t *testing.T) {
	w := NewWorkflow("scenario-c")
	addTasks(t, w, NewTask("T1", WithID("T1")), NewTask("T2", WithID("T2")))

	require.NoError(t, w.AddDependency("T1", "T2"))
	for i := 0; i < 2; i++ {
		err := w.AddDependency("T2", "T1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCycleDetected)
	}

	t2, _ := w.Task("T2")
	assert.Empty(t, t2.Dependencies())
	t1, _ := w.Task("T1")
	assert.Equal(t, []string{"T2"}, t1.Dependencies())
}

func TestWorkflow_AddDependency(t *testing.T) {
	w := NewWorkflow("graph")
	addTasks(t, w,
		NewTask("A", WithID("A")),
		NewTask("B", WithID("B")),
		NewTask("C", WithID("C")),
	)

	tests := []struct {
		name      string
		taskID    string
		dependsOn string
		wantErr   error
	}{
		{name: "valid edge", taskID: "B", dependsOn: "A"},
		{name: "existing edge is a no-op", taskID: "B", dependsOn: "A"},
		{name: "transitive edge", taskID: "C", dependsOn: "B"},
		{name: "self edge", taskID: "A", dependsOn: "A", wantErr: ErrCycleDetected},
		{name: "long cycle", taskID: "A", dependsOn: "C", wantErr: ErrCycleDetected},
		{name: "unknown task", taskID: "X", dependsOn: "A", wantErr: ErrTaskNotFound},
		{name: "unknown dependency", taskID: "A", dependsOn: "X", wantErr: ErrTaskNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.AddDependency(tt.taskID, tt.dependsOn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	b, _ := w.Task("B")
	assert.Equal(t, []string{"A"}, b.Dependencies())
	a, _ := w.Task("A")
	assert.Empty(t, a.Dependencies())
}

func TestWorkflow_AddTask(t *testing.T) {
	w := NewWorkflow("add")

	id, err := w.AddTask(NewTask("A", WithID("A")))
	require.NoError(t, err)
	assert.Equal(t, "A", id)

	_, err = w.AddTask(NewTask("again", WithID("A")))
	assert.ErrorIs(t, err, ErrDuplicateTask)

	_, err = w.AddTask(nil)
	assert.ErrorIs(t, err, ErrInvalidTask)

	_, err = w.AddTask(NewTask("self", WithID("S"), WithDependencies("S")))
	assert.ErrorIs(t, err, ErrCycleDetected)

	// B waits on a task that does not exist yet; C closes the loop.
	_, err = w.AddTask(NewTask("B", WithID("B"), WithDependencies("C")))
	require.NoError(t, err)
	_, err = w.AddTask(NewTask("C", WithID("C"), WithDependencies("B")))
	assert.ErrorIs(t, err, ErrCycleDetected)

	assert.Equal(t, 2, w.Len())

	generated := NewTask("generated")
	id, err = w.AddTask(generated)
	require.NoError(t, err)
	assert.Len(t, id, 36)
}

func TestWorkflow_RemoveTask(t *testing.T) {
	w := NewWorkflow("remove")
	addTasks(t, w, NewTask("A", WithID("A")), NewTask("B", WithID("B")))
	require.NoError(t, w.AddDependency("B", "A"))

	err := w.RemoveTask("A")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTaskInUse)
	assert.Equal(t, 2, w.Len())
	b, _ := w.Task("B")
	assert.Equal(t, []string{"A"}, b.Dependencies())
	assert.Equal(t, []string{"B"}, w.Dependents("A"))

	assert.ErrorIs(t, w.RemoveTask("missing"), ErrTaskNotFound)

	require.NoError(t, w.RemoveTask("B"))
	require.NoError(t, w.RemoveTask("A"))
	assert.Equal(t, 0, w.Len())
	assert.Empty(t, w.Tasks())
}

func TestWorkflow_Run_Deadlock(t *testing.T) {
	w := NewWorkflow("deadlock")
	obs := &mockObserver{}
	obs.On("OnEvent", mock.Anything).Return()
	w.Subscribe(obs)

	a := NewTask("A", WithID("A"), WithExecutor(echoValue()))
	b := NewTask("B", WithID("B"), WithExecutor(echoValue()), WithDependencies("ghost"))
	addTasks(t, w, a, b)

	err := w.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeadlock)
	assert.NotErrorIs(t, err, ErrCycleDetected)
	assert.Equal(t, StatusFailed, w.Status())
	assert.Equal(t, StatusCompleted, a.Status())
	assert.Equal(t, StatusPending, b.Status())
	assert.NotNil(t, w.EndTime())

	obs.AssertCalled(t, "OnEvent", mock.MatchedBy(func(e Event) bool {
		return e.Type == EventWorkflowFailed && e.Error != ""
	}))
	obs.AssertNotCalled(t, "OnEvent", mock.MatchedBy(func(e Event) bool {
		return e.Type == EventWorkflowCompleted
	}))
}

func TestWorkflow_Validate(t *testing.T) {
	w := NewWorkflow("validate")
	addTasks(t, w,
		NewTask("A", WithID("A")),
		NewTask("B", WithID("B"), WithDependencies("A")),
	)
	require.NoError(t, w.Validate())

	_, err := w.AddTask(NewTask("C", WithID("C"), WithDependencies("ghost")))
	require.NoError(t, err)
	assert.ErrorIs(t, w.Validate(), ErrTaskNotFound)
}

func TestWorkflow_ExecutionPlan(t *testing.T) {
	w := NewWorkflow("plan")
	addTasks(t, w,
		NewTask("fetch", WithID("fetch")),
		NewTask("parse", WithID("parse"), WithDependencies("fetch")),
		NewTask("lint", WithID("lint")),
		NewTask("report", WithID("report"), WithDependencies("parse", "lint")),
	)

	plan, err := w.ExecutionPlan()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"fetch", "lint"}, {"parse"}, {"report"}}, plan)
}

func TestWorkflow_Cancel_DuringRun(t *testing.T) {
	w := NewWorkflow("scenario-d")
	var calls atomic.Int32
	exec := ExecutorFunc(func(ctx context.Context, in Input) (any, error) {
		calls.Add(1)
		return "ok", nil
	})

	a := NewTask("A", WithID("A"), WithExecutor(exec))
	b := NewTask("B", WithID("B"), WithExecutor(exec))
	c := NewTask("C", WithID("C"), WithExecutor(exec), WithDependencies("A"))
	addTasks(t, w, a, b, c)

	w.On(EventTaskStarted, func(e Event) {
		if e.TaskID == "A" {
			assert.Equal(t, StatusRunning, w.Status())
			assert.True(t, w.Cancel())
		}
	})
	events := eventRecorder(w)

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, StatusCancelled, w.Status())
	assert.NotNil(t, w.EndTime())
	assert.Equal(t, StatusCancelled, a.Status())
	assert.Equal(t, StatusCancelled, b.Status())
	assert.Equal(t, StatusCancelled, c.Status())
	assert.Nil(t, a.Result(), "late result is discarded")
	assert.Equal(t, int32(1), calls.Load(), "nothing dispatched after cancel")
	assert.Empty(t, w.Results())
	assert.Contains(t, events(), EventWorkflowCancelled)
	assert.NotContains(t, events(), EventWorkflowCompleted)

	assert.False(t, w.Cancel(), "cancel is a no-op once terminal")
}

func TestWorkflow_Run_ContextCancelled(t *testing.T) {
	w := NewWorkflow("ctx")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := NewTask("A", WithID("A"), WithExecutor(ExecutorFunc(func(ctx context.Context, in Input) (any, error) {
		cancel()
		for w.Status() != StatusCancelled {
			time.Sleep(time.Millisecond)
		}
		return nil, ctx.Err()
	})))
	b := NewTask("B", WithID("B"), WithExecutor(echoValue()), WithDependencies("A"))
	addTasks(t, w, a, b)

	require.NoError(t, w.Run(ctx))

	assert.Equal(t, StatusCancelled, w.Status())
	assert.Equal(t, StatusCancelled, a.Status())
	assert.Equal(t, StatusCancelled, b.Status())
	assert.Empty(t, a.Error())
}

func TestWorkflow_Cancel_BeforeRun(t *testing.T) {
	w := NewWorkflow("early")
	a := NewTask("A", WithID("A"), WithExecutor(echoValue()))
	addTasks(t, w, a)

	assert.True(t, w.Cancel())
	assert.Equal(t, StatusCancelled, a.Status())

	assert.ErrorIs(t, w.Run(context.Background()), ErrWorkflowFinished)
	_, err := w.AddTask(NewTask("late"))
	assert.ErrorIs(t, err, ErrWorkflowFinished)
}

func TestWorkflow_Run_Twice(t *testing.T) {
	w := NewWorkflow("twice")
	addTasks(t, w, NewTask("A", WithExecutor(echoValue())))

	require.NoError(t, w.Run(context.Background()))
	assert.ErrorIs(t, w.Run(context.Background()), ErrWorkflowFinished)
}

func TestWorkflow_Run_MissingExecutor(t *testing.T) {
	w := NewWorkflow("no-executor")
	a := NewTask("A", WithID("A"))
	addTasks(t, w, a)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, StatusFailed, a.Status())
	assert.Equal(t, "No executor assigned", a.Error())
	assert.Equal(t, StatusFailed, w.Status())
}

func TestWorkflow_Run_ExecutorPanic(t *testing.T) {
	w := NewWorkflow("panic")
	a := NewTask("A", WithID("A"), WithExecutor(ExecutorFunc(func(ctx context.Context, in Input) (any, error) {
		panic("kaboom")
	})))
	addTasks(t, w, a)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, StatusFailed, a.Status())
	assert.Contains(t, a.Error(), "kaboom")
}

func TestWorkflow_Run_EmptyWorkflow(t *testing.T) {
	w := NewWorkflow("empty")
	events := eventRecorder(w)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, StatusCompleted, w.Status())
	assert.Equal(t, []EventType{EventWorkflowStarted, EventWorkflowCompleted}, events())
}

func TestWorkflow_Run_EffectiveInputPrecedence(t *testing.T) {
	w := NewWorkflow("inputs")
	exec := &mockExecutor{}
	exec.On("Execute", mock.Anything, mock.MatchedBy(func(in Input) bool {
		return in.Values["topic"] == "graphs"
	})).Return("first", nil).Once()
	exec.On("Execute", mock.Anything, mock.Anything).Return("second", nil).Once()

	a := NewTask("A", WithID("A"), WithExecutor(exec), WithInputs(map[string]any{"topic": "graphs"}))
	b := NewTask("B", WithID("B"), WithExecutor(exec), WithDependencies("A"),
		WithInputs(map[string]any{"task_A_result": "shadowed", "depth": 2}))
	addTasks(t, w, a, b)

	require.NoError(t, w.Run(context.Background()))
	exec.AssertExpectations(t)

	in := exec.Calls[1].Arguments.Get(1).(Input)
	assert.Equal(t, "first", in.Values["task_A_result"], "dependency result wins over task inputs")
	assert.Equal(t, 2, in.Values["depth"])
	assert.NotContains(t, in.Values, "topic", "task inputs are not shared")
}

func TestWorkflow_Run_Parallel(t *testing.T) {
	w := NewWorkflow("parallel", WithOptions(Options{MaxParallelTasks: 3}))

	var running, peak atomic.Int32
	started := make(chan struct{}, 3)
	release := make(chan struct{})
	slow := ExecutorFunc(func(ctx context.Context, in Input) (any, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		started <- struct{}{}
		<-release
		running.Add(-1)
		return len(in.Values), nil
	})

	addTasks(t, w,
		NewTask("A", WithID("A"), WithExecutor(slow)),
		NewTask("B", WithID("B"), WithExecutor(slow)),
		NewTask("C", WithID("C"), WithExecutor(slow)),
	)
	join := &mockExecutor{}
	join.On("Execute", mock.Anything, mock.Anything).Return("joined", nil).Once()
	addTasks(t, w, NewTask("D", WithID("D"), WithExecutor(join), WithDependencies("A", "B", "C")))

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	for i := 0; i < 3; i++ {
		<-started
	}
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(3), peak.Load())
	assert.Equal(t, StatusCompleted, w.Status())
	in := join.Calls[0].Arguments.Get(1).(Input)
	for _, id := range []string{"A", "B", "C"} {
		assert.Contains(t, in.Values, ResultKey(id))
	}
}

func TestWorkflow_CancelTask(t *testing.T) {
	w := NewWorkflow("cancel-task")
	a := NewTask("A", WithID("A"), WithExecutor(echoValue()))
	b := NewTask("B", WithID("B"), WithExecutor(echoValue()), WithDependencies("A"))
	addTasks(t, w, a, b)

	require.NoError(t, w.CancelTask("A"))
	assert.ErrorIs(t, w.CancelTask("A"), ErrInvalidTransition)
	assert.ErrorIs(t, w.CancelTask("missing"), ErrTaskNotFound)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, StatusPending, b.Status())
	assert.Equal(t, StatusFailed, w.Status())
	assert.Equal(t, []string{"B"}, w.Stranded())
}

func TestWorkflow_State(t *testing.T) {
	w := NewWorkflow("state", WithWorkflowID("wf-1"), WithWorkflowDescription("snapshot"))
	a := NewTask("A", WithID("A"), WithExecutor(echoValue()))
	b := NewTask("B", WithID("B"), WithExecutor(failing("nope")), WithDependencies("A"))
	addTasks(t, w, a, b)

	before := w.State()
	assert.Equal(t, StatusPending, before.Status)
	assert.Nil(t, before.Duration)
	assert.Nil(t, before.Tasks["A"].Duration)

	require.NoError(t, w.Run(context.Background()))

	state := w.State()
	assert.Equal(t, "wf-1", state.ID)
	assert.Equal(t, "snapshot", state.Description)
	assert.Equal(t, StatusFailed, state.Status)
	assert.Equal(t, []string{"A", "B"}, state.Order)
	require.NotNil(t, state.Duration)
	assert.Equal(t, "custom", state.Tasks["A"].Executor)
	assert.NotNil(t, state.Tasks["A"].Result)
	assert.Equal(t, "nope", state.Tasks["B"].Error)
	assert.Equal(t, []string{"A"}, state.Tasks["B"].Dependencies)

	s, err := state.ToStruct()
	require.NoError(t, err)
	assert.Equal(t, "failed", s.Fields["status"].GetStringValue())
	tasks := s.Fields["tasks"].GetStructValue()
	require.NotNil(t, tasks)
	assert.Equal(t, "nope", tasks.Fields["B"].GetStructValue().Fields["error"].GetStringValue())
}

func TestWorkflow_FinishedWorkflowRejectsChanges(t *testing.T) {
	w := NewWorkflow("finished")
	addTasks(t, w,
		NewTask("A", WithID("A"), WithExecutor(echoValue())),
		NewTask("B", WithID("B"), WithExecutor(echoValue())),
	)
	require.NoError(t, w.Run(context.Background()))
	require.Equal(t, StatusCompleted, w.Status())

	tests := []struct {
		name string
		op   func() error
	}{
		{"add task", func() error { _, err := w.AddTask(NewTask("late")); return err }},
		{"add dependency", func() error { return w.AddDependency("B", "A") }},
		{"remove task", func() error { return w.RemoveTask("A") }},
		{"cancel task", func() error { return w.CancelTask("B") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.op(), ErrWorkflowFinished)
		})
	}

	assert.Equal(t, 2, w.Len())
	assert.Len(t, w.Results(), 2)
}

func TestWorkflow_CancelTask_AfterFailedRun(t *testing.T) {
	w := NewWorkflow("failed")
	addTasks(t, w,
		NewTask("A", WithID("A"), WithExecutor(failing("boom"))),
		NewTask("B", WithID("B"), WithExecutor(echoValue()), WithDependencies("A")),
	)
	require.NoError(t, w.Run(context.Background()))
	require.Equal(t, StatusFailed, w.Status())

	assert.ErrorIs(t, w.CancelTask("B"), ErrWorkflowFinished)
	b, _ := w.Task("B")
	assert.Equal(t, StatusPending, b.Status())
}

func TestWorkflow_Run_ContextCancelled_ObserversDoneBeforeReturn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWorkflow("interrupted")
	addTasks(t, w, NewTask("A", WithID("A"), WithExecutor(ExecutorFunc(func(ctx context.Context, in Input) (any, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}))))

	var delivered atomic.Bool
	w.On(EventWorkflowCancelled, func(Event) {
		time.Sleep(100 * time.Millisecond)
		delivered.Store(true)
	})

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, StatusCancelled, w.Status())
	assert.True(t, delivered.Load())
}
