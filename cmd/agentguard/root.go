package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentguard/config"
	"github.com/hupe1980/agentguard/logging"
)

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:           "agentguard",
		Short:         "Budget limit tooling for LLM agents",
		Long:          "agentguard checks and watches the limit files used to guard LLM agent executions.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")

	newLogger := func(cmd *cobra.Command) *logging.GuardLogger {
		return logging.NewLogger(&logging.LoggerConfig{
			Level:     logging.ParseLevel(logLevel),
			Format:    logFormat,
			Output:    cmd.ErrOrStderr(),
			Component: "agentguard",
		})
	}

	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newWatchCmd(newLogger))

	return rootCmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Load a limits file and print the effective limits",
		Long: "Loads a YAML or TOML limits file, applies AGENTGUARD_* environment overrides, " +
			"validates the result and prints the effective limits as YAML.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limits, err := config.Load(args[0])
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(config.FromLimits(limits)); err != nil {
				return fmt.Errorf("encode limits: %w", err)
			}
			return enc.Close()
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of limits files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return err
		},
	}
}

func newWatchCmd(newLogger func(*cobra.Command) *logging.GuardLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Watch a limits file and log every reload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limits, err := config.Load(args[0])
			if err != nil {
				return err
			}

			logger := newLogger(cmd)
			src := config.NewSource(limits)
			return config.Watch(cmd.Context(), args[0], src, logger)
		},
	}
}
