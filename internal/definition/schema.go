package definition

import (
	"github.com/hashicorp/hcl/v2"
)

// fileSchema is the top level of a workflow definition file.
type fileSchema struct {
	Workflows []*workflowBlock `hcl:"workflow,block"`
	Tasks     []*taskBlock     `hcl:"task,block"`
}

type workflowBlock struct {
	Name             string `hcl:"name,label"`
	Description      string `hcl:"description,optional"`
	MaxParallelTasks int    `hcl:"max_parallel_tasks,optional"`
}

// taskBlock keeps depends_on and inputs as raw expressions so that their
// source ranges survive into error messages.
type taskBlock struct {
	Label       string         `hcl:"label,label"`
	Description string         `hcl:"description,optional"`
	Executor    string         `hcl:"executor,optional"`
	Command     string         `hcl:"command,optional"`
	Message     string         `hcl:"message,optional"`
	DependsOn   hcl.Expression `hcl:"depends_on,optional"`
	Inputs      hcl.Expression `hcl:"inputs,optional"`
}
