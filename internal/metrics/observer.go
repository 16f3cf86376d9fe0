package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/maxkimambo/taskflow/internal/taskmanager"
)

const instrumentationName = "github.com/maxkimambo/taskflow/internal/metrics"

// Observer records workflow events as OpenTelemetry metrics.
type Observer struct {
	workflowName string

	tasks        metric.Int64Counter
	workflows    metric.Int64Counter
	running      metric.Int64UpDownCounter
	taskDuration metric.Float64Histogram

	mu     sync.Mutex
	starts map[string]time.Time
}

// New creates an observer from the given meter provider, or the global one
// when mp is nil.
func New(mp metric.MeterProvider, workflowName string) (*Observer, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	o := &Observer{workflowName: workflowName, starts: make(map[string]time.Time)}
	var err error
	if o.tasks, err = meter.Int64Counter("taskflow.tasks",
		metric.WithDescription("Tasks that reached a terminal status"),
		metric.WithUnit("{task}")); err != nil {
		return nil, err
	}
	if o.workflows, err = meter.Int64Counter("taskflow.workflows",
		metric.WithDescription("Workflows that reached a terminal status"),
		metric.WithUnit("{workflow}")); err != nil {
		return nil, err
	}
	if o.running, err = meter.Int64UpDownCounter("taskflow.tasks.running",
		metric.WithDescription("Tasks currently executing"),
		metric.WithUnit("{task}")); err != nil {
		return nil, err
	}
	if o.taskDuration, err = meter.Float64Histogram("taskflow.task.duration",
		metric.WithDescription("Time spent in the executor"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return o, nil
}

// OnEvent implements taskmanager.Observer.
func (o *Observer) OnEvent(e taskmanager.Event) {
	ctx := context.Background()
	wf := attribute.String("workflow", o.workflowName)

	switch e.Type {
	case taskmanager.EventTaskStarted:
		o.mu.Lock()
		o.starts[e.TaskID] = e.Time
		o.mu.Unlock()
		o.running.Add(ctx, 1, metric.WithAttributes(wf))
	case taskmanager.EventTaskCompleted, taskmanager.EventTaskFailed:
		status := "completed"
		if e.Type == taskmanager.EventTaskFailed {
			status = "failed"
		}
		attrs := metric.WithAttributes(wf, attribute.String("status", status))
		o.running.Add(ctx, -1, metric.WithAttributes(wf))
		o.tasks.Add(ctx, 1, attrs)

		o.mu.Lock()
		start, ok := o.starts[e.TaskID]
		delete(o.starts, e.TaskID)
		o.mu.Unlock()
		if ok {
			o.taskDuration.Record(ctx, e.Time.Sub(start).Seconds(), attrs)
		}
	case taskmanager.EventWorkflowCompleted:
		o.workflows.Add(ctx, 1, metric.WithAttributes(wf, attribute.String("status", "completed")))
	case taskmanager.EventWorkflowFailed:
		o.workflows.Add(ctx, 1, metric.WithAttributes(wf, attribute.String("status", "failed")))
	case taskmanager.EventWorkflowCancelled:
		o.mu.Lock()
		inFlight := len(o.starts)
		o.starts = make(map[string]time.Time)
		o.mu.Unlock()
		if inFlight > 0 {
			o.running.Add(ctx, -int64(inFlight), metric.WithAttributes(wf))
		}
		o.workflows.Add(ctx, 1, metric.WithAttributes(wf, attribute.String("status", "cancelled")))
	}
}

// InFlight returns the number of tasks started but not yet finished.
func (o *Observer) InFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.starts)
}
