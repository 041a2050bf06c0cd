package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tigerroll/qplan/internal/app"
	"github.com/tigerroll/qplan/internal/job"
	config "github.com/tigerroll/qplan/pkg/batch/core/config"
	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "qplan [run-id] [object]",
		Short: "Capture EXPLAIN ANALYZE plans and cost bounds for candidate queries",
		Long: `qplan reads candidate statements from the query source table, runs each one under
EXPLAIN ANALYZE inside a rolled-back transaction and stores the plan text and cost
bounds in the query result table, tagged with the run id.

The run id defaults to a random UUID. When object is given, only candidates whose
object column matches it exactly are processed.`,
		Args:          cobra.RangeArgs(0, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, resolveRunParameters(args, uuid.NewString))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML file layered over the built-in configuration")
	flags.StringVar(&opts.envFile, "env-file", "", "dotenv file to load before reading configuration (default ./.env)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override qplan.system.logging.level (DEBUG, INFO, WARN, ERROR)")

	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the qplan version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// resolveRunParameters maps the positional arguments onto a run. A missing or blank
// run id is replaced by newID; a blank object means no filter.
func resolveRunParameters(args []string, newID func() string) job.RunParameters {
	var params job.RunParameters
	if len(args) > 0 {
		params.RunID = strings.TrimSpace(args[0])
	}
	if len(args) > 1 {
		params.Object = strings.TrimSpace(args[1])
	}
	if params.RunID == "" {
		params.RunID = newID()
	}
	return params
}

func run(ctx context.Context, opts rootOptions, params job.RunParameters) error {
	cfg, err := config.LoadConfig(config.LoadOptions{
		Embedded:    config.EmbeddedConfig(embeddedConfig),
		ConfigFile:  opts.configFile,
		EnvFilePath: opts.envFile,
	})
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.QPlan.System.Logging.Level = opts.logLevel
	}
	logger.Configure(logger.Options{Level: cfg.QPlan.System.Logging.Level, Format: cfg.QPlan.System.Logging.Format})

	return app.RunApplication(ctx, cfg, params)
}
