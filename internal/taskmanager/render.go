package taskmanager

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// RenderInput produces the human-readable prompt handed to the executor:
// the task name, its description when present, then every input value
// sorted by key. Maps and slices are JSON-encoded.
func (t *Task) RenderInput(values map[string]any) string {
	var sb strings.Builder
	sb.WriteString("Task: ")
	sb.WriteString(t.name)
	sb.WriteString("\n")
	if t.description != "" {
		sb.WriteString("Description: ")
		sb.WriteString(t.description)
		sb.WriteString("\n")
	}

	sb.WriteString("\nInputs:\n")
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("%s: %s\n", k, renderValue(values[k])))
	}
	return sb.String()
}

func renderValue(v any) string {
	if v == nil {
		return "null"
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}
