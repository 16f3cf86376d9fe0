package taskmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask_RenderInput(t *testing.T) {
	task := NewTask("summarise", WithDescription("Summarise the outline"))

	got := task.RenderInput(map[string]any{
		"topic":          "graphs",
		"depth":          2,
		"task_a_result":  map[string]any{"v": "x"},
		"tags":           []string{"a", "b"},
		"missing_result": nil,
	})

	want := "Task: summarise\n" +
		"Description: Summarise the outline\n" +
		"\n" +
		"Inputs:\n" +
		"depth: 2\n" +
		"missing_result: null\n" +
		"tags: [\"a\",\"b\"]\n" +
		"task_a_result: {\"v\":\"x\"}\n" +
		"topic: graphs\n"
	assert.Equal(t, want, got)
}

func TestTask_RenderInput_NoDescription(t *testing.T) {
	task := NewTask("bare")
	assert.Equal(t, "Task: bare\n\nInputs:\n", task.RenderInput(nil))
}
