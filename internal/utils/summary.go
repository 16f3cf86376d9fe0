package utils

import (
	"fmt"
	"time"

	"github.com/maxkimambo/taskflow/internal/progress"
	"github.com/maxkimambo/taskflow/internal/taskmanager"
)

// TaskTable lists every task of a workflow snapshot in insertion order.
func TaskTable(state taskmanager.WorkflowState) string {
	table := NewTableFormatter("TASK", "STATUS", "EXECUTOR", "DURATION", "ERROR")
	for _, id := range state.Order {
		ts := state.Tasks[id]
		duration := "-"
		if ts.Duration != nil {
			duration = progress.FormatDuration(secondsToDuration(*ts.Duration))
		}
		executor := ts.Executor
		if executor == "" {
			executor = "-"
		}
		table.AddRow(ts.Name, ts.Status.String(), executor, duration, ts.Error)
	}
	return table.String()
}

// VerdictBox frames the terminal status of a run.
func VerdictBox(state taskmanager.WorkflowState, stranded []string) *Box {
	counts := make(map[taskmanager.Status]int)
	for _, ts := range state.Tasks {
		counts[ts.Status]++
	}

	var box *Box
	switch state.Status {
	case taskmanager.StatusCompleted:
		box = NewBox(SuccessMessage, fmt.Sprintf("Workflow %s completed", state.Name))
	case taskmanager.StatusCancelled:
		box = NewBox(WarningMessage, fmt.Sprintf("Workflow %s cancelled", state.Name))
	case taskmanager.StatusFailed:
		box = NewBox(ErrorMessage, fmt.Sprintf("Workflow %s failed", state.Name))
	default:
		box = NewBox(InfoMessage, fmt.Sprintf("Workflow %s is %s", state.Name, state.Status))
	}

	box.AddBullet(fmt.Sprintf("%d completed, %d failed, %d cancelled, %d pending",
		counts[taskmanager.StatusCompleted], counts[taskmanager.StatusFailed],
		counts[taskmanager.StatusCancelled], counts[taskmanager.StatusPending]))
	if state.Duration != nil {
		box.AddBullet("Took " + progress.FormatDuration(secondsToDuration(*state.Duration)))
	}
	for _, id := range stranded {
		box.AddBullet(fmt.Sprintf("%s never ran: an upstream task failed or was cancelled", id))
	}
	return box
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}
