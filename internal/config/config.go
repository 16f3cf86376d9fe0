package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	wferrors "github.com/maxkimambo/taskflow/internal/errors"
)

// Config holds the configuration for the taskflow CLI.
type Config struct {
	Log struct {
		Verbose bool `mapstructure:"verbose"`
		JSON    bool `mapstructure:"json"`
		Quiet   bool `mapstructure:"quiet"`
	} `mapstructure:"log"`
	Engine struct {
		MaxParallelTasks int `mapstructure:"max_parallel_tasks"`
	} `mapstructure:"engine"`
	Executor struct {
		Default string `mapstructure:"default"`
		Command struct {
			Shell   string        `mapstructure:"shell"`
			Timeout time.Duration `mapstructure:"timeout"`
		} `mapstructure:"command"`
	} `mapstructure:"executor"`
}

// New returns a viper instance with the taskflow defaults, search paths and
// environment binding applied. Flags can be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("taskflow")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("TASKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.verbose", false)
	v.SetDefault("log.json", false)
	v.SetDefault("log.quiet", false)
	v.SetDefault("engine.max_parallel_tasks", 1)
	v.SetDefault("executor.default", "echo")
	v.SetDefault("executor.command.shell", "/bin/sh")
	v.SetDefault("executor.command.timeout", time.Duration(0))
	return v
}

// Load reads the config file (explicit path, or taskflow.yaml in the search
// paths) and the environment into a Config. A missing config file in the
// search paths is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, wferrors.NewConfigurationError(wferrors.CodeConfigFileUnreadable,
				"Unable to read configuration file", "Load config").
				WithContext("path", path).
				WithOriginalError(err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, wferrors.NewConfigurationError(wferrors.CodeConfigInvalid,
			"Invalid configuration", "Load config").
			WithOriginalError(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Engine.MaxParallelTasks < 1 {
		return wferrors.NewConfigurationError(wferrors.CodeConfigInvalid,
			fmt.Sprintf("engine.max_parallel_tasks must be at least 1, got %d", c.Engine.MaxParallelTasks),
			"Validate config").
			WithTroubleshooting("Use 1 for sequential dispatch")
	}
	if c.Executor.Command.Timeout < 0 {
		return wferrors.NewConfigurationError(wferrors.CodeConfigInvalid,
			"executor.command.timeout must not be negative", "Validate config")
	}
	if strings.TrimSpace(c.Executor.Command.Shell) == "" {
		return wferrors.NewConfigurationError(wferrors.CodeConfigInvalid,
			"executor.command.shell must not be empty", "Validate config")
	}
	return nil
}
