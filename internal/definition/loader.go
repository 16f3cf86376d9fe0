package definition

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	wferrors "github.com/maxkimambo/taskflow/internal/errors"
	"github.com/maxkimambo/taskflow/internal/logger"
)

// Definition is a decoded workflow definition file.
type Definition struct {
	Filename    string
	Name        string
	Description string
	// MaxParallelTasks is zero when the file does not set it
	MaxParallelTasks int
	Tasks            []TaskDefinition
}

// TaskDefinition is one task block. Key is the block label, which also
// becomes the task identifier.
type TaskDefinition struct {
	Key          string
	Description  string
	Executor     string
	Command      string
	Message      string
	DependsOn    []string
	Inputs       map[string]any
	Range        hcl.Range
	DependsRange hcl.Range
}

// ParseFile reads and decodes a definition file.
func ParseFile(path string) (*Definition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, wferrors.NewDefinitionError(wferrors.CodeDefinitionParse,
			"Unable to read workflow definition", "Load definition").
			WithContext("path", path).
			WithOriginalError(err)
	}
	return Parse(src, path)
}

// Parse decodes HCL source into a Definition.
func Parse(src []byte, filename string) (*Definition, error) {
	logger.Op.WithFields(map[string]interface{}{
		"path": filename,
	}).Debug("Decoding workflow definition")

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagnosticsError(wferrors.CodeDefinitionParse, "Failed to parse workflow definition", filename, diags)
	}

	var schema fileSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
		return nil, diagnosticsError(wferrors.CodeDefinitionDecode, "Failed to decode workflow definition", filename, diags)
	}

	switch len(schema.Workflows) {
	case 0:
		return nil, wferrors.NewDefinitionError(wferrors.CodeDefinitionNoWorkflow,
			"Definition has no workflow block", "Load definition").
			WithContext("path", filename).
			WithTroubleshooting(`Add a block such as: workflow "name" { description = "..." }`)
	case 1:
	default:
		return nil, wferrors.NewDefinitionError(wferrors.CodeDefinitionDuplicate,
			fmt.Sprintf("Definition has %d workflow blocks, expected one", len(schema.Workflows)),
			"Load definition").
			WithContext("path", filename)
	}

	wb := schema.Workflows[0]
	def := &Definition{
		Filename:         filename,
		Name:             wb.Name,
		Description:      wb.Description,
		MaxParallelTasks: wb.MaxParallelTasks,
	}

	ranges := taskRanges(file)
	seen := make(map[string]hcl.Range)
	for i, tb := range schema.Tasks {
		var declRange hcl.Range
		if i < len(ranges) {
			declRange = ranges[i]
		}
		if prev, dup := seen[tb.Label]; dup {
			return nil, wferrors.NewDefinitionError(wferrors.CodeDefinitionDuplicate,
				fmt.Sprintf("Task '%s' is declared more than once", tb.Label),
				"Load definition").
				WithContext("first", prev.String()).
				WithContext("again", declRange.String())
		}
		seen[tb.Label] = declRange

		td, err := decodeTask(tb, declRange)
		if err != nil {
			return nil, err
		}
		def.Tasks = append(def.Tasks, td)
	}

	logger.Op.WithFields(map[string]interface{}{
		"path":  filename,
		"tasks": len(def.Tasks),
	}).Debug("Decoded workflow definition")
	return def, nil
}

func decodeTask(tb *taskBlock, declRange hcl.Range) (TaskDefinition, error) {
	td := TaskDefinition{
		Key:          tb.Label,
		Description:  tb.Description,
		Executor:     tb.Executor,
		Command:      tb.Command,
		Message:      tb.Message,
		Range:        declRange,
		DependsRange: tb.DependsOn.Range(),
	}

	if isNull(tb.DependsOn) {
		td.DependsOn = nil
	} else if diags := gohcl.DecodeExpression(tb.DependsOn, nil, &td.DependsOn); diags.HasErrors() {
		return td, diagnosticsError(wferrors.CodeDefinitionValue,
			fmt.Sprintf("Task '%s' has an invalid depends_on", tb.Label), declRange.Filename, diags)
	}

	inputs, err := decodeInputs(tb.Inputs)
	if err != nil {
		return td, wferrors.NewDefinitionError(wferrors.CodeDefinitionValue,
			fmt.Sprintf("Task '%s' has invalid inputs: %v", tb.Label, err), "Load definition").
			WithContext("at", tb.Inputs.Range().String())
	}
	td.Inputs = inputs
	return td, nil
}

// decodeInputs evaluates an inputs object and converts it to plain Go values
// through its JSON form. Numbers become float64.
func decodeInputs(expr hcl.Expression) (map[string]any, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return map[string]any{}, nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("expected an object, got %s", ty.FriendlyName())
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known until run time")
	}

	b, err := ctyjson.Marshal(val, ty)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isNull(expr hcl.Expression) bool {
	val, diags := expr.Value(nil)
	return !diags.HasErrors() && val.IsNull()
}

// taskRanges returns the declaration range of every task block in source order.
func taskRanges(file *hcl.File) []hcl.Range {
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil
	}
	var ranges []hcl.Range
	for _, block := range body.Blocks {
		if block.Type == "task" {
			ranges = append(ranges, block.DefRange())
		}
	}
	return ranges
}

func diagnosticsError(code, message, filename string, diags hcl.Diagnostics) error {
	return wferrors.NewDefinitionError(code, message, "Load definition").
		WithContext("path", filename).
		WithOriginalError(diags)
}
