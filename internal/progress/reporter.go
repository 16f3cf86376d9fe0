package progress

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maxkimambo/taskflow/internal/logger"
	"github.com/maxkimambo/taskflow/internal/taskmanager"
)

// ProgressInfo contains progress information for one workflow run
type ProgressInfo struct {
	TotalTasks        int
	CompletedTasks    int
	FailedTasks       int
	RunningTasks      []string // Names of currently running tasks
	ElapsedTime       time.Duration
	EstimatedTimeLeft time.Duration
	CurrentOperation  string
}

// Finished returns the number of tasks that reached completed or failed.
func (p ProgressInfo) Finished() int {
	return p.CompletedTasks + p.FailedTasks
}

// Reporter follows workflow events and periodically writes a progress line
// to the user log. It implements taskmanager.Observer.
type Reporter struct {
	mu             sync.Mutex
	total          int
	startTime      time.Time
	lastReportTime time.Time
	reportInterval time.Duration
	completed      int
	failed         int
	running        map[string]string // task ID -> name
	current        string
	now            func() time.Time
}

// NewReporter creates a reporter for a workflow with total tasks
func NewReporter(total int) *Reporter {
	now := time.Now()
	return &Reporter{
		total:          total,
		startTime:      now,
		lastReportTime: now,
		reportInterval: 5 * time.Second,
		running:        make(map[string]string),
		now:            time.Now,
	}
}

// WithInterval changes how often progress lines are written
func (r *Reporter) WithInterval(d time.Duration) *Reporter {
	r.reportInterval = d
	return r
}

// OnEvent implements taskmanager.Observer.
func (r *Reporter) OnEvent(e taskmanager.Event) {
	r.mu.Lock()
	switch e.Type {
	case taskmanager.EventWorkflowStarted:
		r.startTime = e.Time
		r.lastReportTime = e.Time
	case taskmanager.EventTaskStarted:
		r.running[e.TaskID] = e.TaskName
		r.current = e.TaskName
	case taskmanager.EventTaskCompleted:
		delete(r.running, e.TaskID)
		r.completed++
	case taskmanager.EventTaskFailed:
		delete(r.running, e.TaskID)
		r.failed++
	}
	report := ""
	if (e.Type == taskmanager.EventTaskCompleted || e.Type == taskmanager.EventTaskFailed) && r.shouldReportLocked() {
		report = r.reportLocked()
	}
	r.mu.Unlock()

	if report != "" {
		logger.User.Info(report)
	}
}

// Snapshot returns the current progress
func (r *Reporter) Snapshot() ProgressInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.infoLocked()
}

func (r *Reporter) infoLocked() ProgressInfo {
	running := make([]string, 0, len(r.running))
	for _, name := range r.running {
		running = append(running, name)
	}
	sort.Strings(running)

	elapsed := r.now().Sub(r.startTime)
	return ProgressInfo{
		TotalTasks:        r.total,
		CompletedTasks:    r.completed,
		FailedTasks:       r.failed,
		RunningTasks:      running,
		ElapsedTime:       elapsed,
		EstimatedTimeLeft: CalculateETA(r.completed+r.failed, r.total, elapsed),
		CurrentOperation:  r.current,
	}
}

func (r *Reporter) shouldReportLocked() bool {
	return r.now().Sub(r.lastReportTime) >= r.reportInterval
}

func (r *Reporter) reportLocked() string {
	r.lastReportTime = r.now()
	return Report(r.infoLocked())
}

// Report generates a formatted progress report
func Report(info ProgressInfo) string {
	var sb strings.Builder

	percentage := 0.0
	if info.TotalTasks > 0 {
		percentage = float64(info.Finished()) / float64(info.TotalTasks) * 100
	}

	sb.WriteString(fmt.Sprintf("Progress: %d/%d tasks finished (%.1f%%)",
		info.Finished(), info.TotalTasks, percentage))
	if info.FailedTasks > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", info.FailedTasks))
	}

	sb.WriteString(fmt.Sprintf(" | Elapsed: %s", FormatDuration(info.ElapsedTime)))
	if info.EstimatedTimeLeft > 0 {
		sb.WriteString(fmt.Sprintf(" | ETA: %s", FormatDuration(info.EstimatedTimeLeft)))
	}

	if len(info.RunningTasks) > 0 {
		sb.WriteString(fmt.Sprintf("\n   Running: %s", strings.Join(info.RunningTasks, ", ")))
	} else if info.CurrentOperation != "" {
		sb.WriteString(fmt.Sprintf("\n   Last started: %s", info.CurrentOperation))
	}

	return sb.String()
}

// ReportTaskComplete reports task completion
func ReportTaskComplete(name string, duration time.Duration, success bool) string {
	status := "COMPLETED"
	if !success {
		status = "FAILED"
	}
	return fmt.Sprintf("  %s %s (took %s)", status, name, FormatDuration(duration))
}

// CalculateETA estimates time remaining based on current progress
func CalculateETA(completed, total int, elapsed time.Duration) time.Duration {
	if completed <= 0 || total <= 0 || completed >= total {
		return 0
	}

	averageTimePerTask := elapsed / time.Duration(completed)
	remainingTasks := total - completed
	return averageTimePerTask * time.Duration(remainingTasks)
}

// FormatDuration formats a duration in a user-friendly way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
