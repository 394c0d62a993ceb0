// Package cli implements the sisctl command tree.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/schoolstack/sisgo/pkg/slogx"
)

type contextKey string

const cliContextKey contextKey = "cliContext"

// cliContext is the shared state every subcommand pulls from its command
// context after PersistentPreRunE has run.
type cliContext struct {
	Config *Config
	Logger *slog.Logger
}

func fromCommand(cmd *cobra.Command) *cliContext {
	return cmd.Context().Value(cliContextKey).(*cliContext)
}

// NewRootCommand builds the sisctl command tree.
func NewRootCommand(version string) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "sisctl",
		Short: "Load testing and workflow tooling for a School SIS API",
		Long: `sisctl drives a multi-tenant School SIS REST API: scripted workflows,
load-test scenarios with latency reporting, and a local history of past runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := slogx.New(slogx.Config{
				Tool:    "sisctl",
				Version: version,
				Level:   cfg.LogLevel,
				Format:  cfg.LogFormat,
			})

			ctx := &cliContext{Config: cfg, Logger: logger}
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey, ctx))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default ~/.sisctl/config.yaml)")
	flags.String("base-url", "", "SIS API base URL, e.g. https://sis.example.com/api")
	flags.String("tenant", "", "Tenant slug sent as X-Tenant-Slug")
	flags.String("email", "", "Login email")
	flags.String("password", "", "Login password")
	flags.String("api-key", "", "Optional X-API-Key header")
	flags.Duration("timeout", 0, "Per-request timeout")
	flags.String("database", "", "Path of the local run store (default ~/.sisctl/runs.db)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.StringP("output", "o", "text", "Result output format (text, json)")

	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newLoadtestCommand())
	rootCmd.AddCommand(newWorkflowCommand())
	rootCmd.AddCommand(newSimulateCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}
