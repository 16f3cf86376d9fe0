package taskmanager

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var dotColors = map[Status]string{
	StatusPending:   "lightgrey",
	StatusRunning:   "lightblue",
	StatusCompleted: "lightgreen",
	StatusFailed:    "salmon",
	StatusCancelled: "orange",
}

// DOT renders the snapshot as a Graphviz digraph. Nodes are filled by status
// and edges point from a dependency to the task that needs it.
func (s WorkflowState) DOT() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("digraph %q {\n", s.Name))
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=filled];\n")
	sb.WriteString(fmt.Sprintf("  label=%q;\n", fmt.Sprintf("%s (%s)", s.Name, s.Status)))
	sb.WriteString("  labelloc=\"t\";\n\n")

	for _, id := range s.Order {
		ts := s.Tasks[id]
		label := ts.Name
		if ts.Executor != "" {
			label += "\n" + ts.Executor
		}
		if ts.Duration != nil {
			label += fmt.Sprintf("\n%.3fs", *ts.Duration)
		}
		if ts.Error != "" {
			msg := ts.Error
			if utf8.RuneCountInString(msg) > 50 {
				msg = string([]rune(msg)[:47]) + "..."
			}
			label += "\nError: " + msg
		}
		sb.WriteString(fmt.Sprintf("  %q [label=%q, fillcolor=%q];\n", id, label, dotColors[ts.Status]))
	}

	sb.WriteString("\n")
	for _, id := range s.Order {
		for _, dep := range s.Tasks[id].Dependencies {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", dep, id))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
