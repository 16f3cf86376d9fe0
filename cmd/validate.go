package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	var dot bool

	validateCmd := &cobra.Command{
		Use:   "validate <file.hcl>",
		Short: "Check a workflow definition and print its execution plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, w, err := a.loadWorkflow(args[0], 0)
			if err != nil {
				return err
			}
			if err := w.Validate(); err != nil {
				return err
			}
			plan, err := w.ExecutionPlan()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dot {
				fmt.Fprint(out, w.State().DOT())
				return nil
			}
			fmt.Fprintf(out, "Workflow %s is valid (%d tasks)\n", def.Name, w.Len())
			for i, level := range plan {
				fmt.Fprintf(out, "  %d. %s\n", i+1, strings.Join(level, ", "))
			}
			return nil
		},
	}
	validateCmd.Flags().BoolVar(&dot, "dot", false, "Print the dependency graph in Graphviz DOT format")
	return validateCmd
}
