package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/maxkimambo/taskflow/internal/logger"
	"github.com/maxkimambo/taskflow/internal/metrics"
	"github.com/maxkimambo/taskflow/internal/progress"
	"github.com/maxkimambo/taskflow/internal/taskmanager"
	"github.com/maxkimambo/taskflow/internal/utils"
)

const (
	outputText = "text"
	outputJSON = "json"
)

func newRunCmd(a *app) *cobra.Command {
	var output, dotFile string

	runCmd := &cobra.Command{
		Use:   "run <file.hcl>",
		Short: "Run a workflow definition",
		Long: `Run executes every task of the workflow in dependency order.
An interrupt cancels the workflow; tasks that have not started are cancelled.
The command exits non-zero unless the workflow completes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputText && output != outputJSON {
				return fmt.Errorf("unsupported output format %q, use %s or %s", output, outputText, outputJSON)
			}
			return a.run(cmd, args[0], output, dotFile)
		},
	}

	runCmd.Flags().StringVarP(&output, "output", "o", outputText, "Result format: text or json")
	runCmd.Flags().StringVar(&dotFile, "dot", "", "Write the final task graph in Graphviz DOT format to this file")
	runCmd.Flags().IntP("parallel", "p", 1, "Maximum number of tasks running at once")
	_ = a.v.BindPFlag("engine.max_parallel_tasks", runCmd.Flags().Lookup("parallel"))
	return runCmd
}

func (a *app) run(cmd *cobra.Command, path, output, dotFile string) error {
	if output == outputJSON {
		// keep stdout for the document
		logger.SetupWithWriters(a.verbose(), a.cfg.Log.JSON, a.cfg.Log.Quiet, cmd.ErrOrStderr(), cmd.ErrOrStderr())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	parallel := 0
	if cmd.Flags().Changed("parallel") {
		parallel = a.cfg.Engine.MaxParallelTasks
	}
	def, w, err := a.loadWorkflow(path, parallel)
	if err != nil {
		return err
	}

	meter, err := metrics.New(nil, def.Name)
	if err != nil {
		return err
	}
	w.Subscribe(taskmanager.LogObserver{WorkflowName: def.Name})
	w.Subscribe(progress.NewReporter(w.Len()))
	w.Subscribe(meter)
	w.Subscribe(newTaskTimer())

	if err := w.Run(ctx); err != nil {
		return err
	}

	state := w.State()
	if dotFile != "" {
		if err := os.WriteFile(dotFile, []byte(state.DOT()), 0o644); err != nil {
			return err
		}
		logger.Op.Info("Task graph written to " + dotFile)
	}
	if err := writeResult(cmd.OutOrStdout(), output, state, w.Stranded()); err != nil {
		return err
	}
	if state.Status != taskmanager.StatusCompleted {
		return fmt.Errorf("workflow %s finished with status %s", state.Name, state.Status)
	}
	return nil
}

func writeResult(out io.Writer, output string, state taskmanager.WorkflowState, stranded []string) error {
	if output == outputJSON {
		s, err := state.ToStruct()
		if err != nil {
			return err
		}
		b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}

	if _, err := fmt.Fprint(out, utils.TaskTable(state)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, utils.VerdictBox(state, stranded).Render())
	return err
}
