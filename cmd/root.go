package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maxkimambo/taskflow/internal/config"
	"github.com/maxkimambo/taskflow/internal/logger"
)

var version = "v0.1.0"

// app carries state shared by the subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	cfgFile string
	debug   bool
}

// NewRootCmd builds the taskflow command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:           "taskflow",
		Short:         "Run workflows of dependent tasks",
		Long:          `taskflow runs a workflow of tasks described in an HCL file, dispatching each task once every task it depends on has completed.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger.Setup(a.verbose(), cfg.Log.JSON, cfg.Log.Quiet)
			if a.debug {
				logger.Op.Debug("Debug logging enabled")
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Path to a taskflow.yaml config file")
	flags.BoolVar(&a.debug, "debug", false, "Enable debug logging")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.Bool("json", false, "Output logs in JSON format")
	flags.BoolP("quiet", "q", false, "Suppress non-error output")
	_ = a.v.BindPFlag("log.verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("log.json", flags.Lookup("json"))
	_ = a.v.BindPFlag("log.quiet", flags.Lookup("quiet"))

	rootCmd.AddCommand(newRunCmd(a), newValidateCmd(a))
	return rootCmd
}

func (a *app) verbose() bool {
	return a.cfg.Log.Verbose || a.debug
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}
