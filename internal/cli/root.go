// Package cli defines the margin command-line interface.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"margin/api/internal/config"
	"margin/api/internal/logging"
)

// Options stores global CLI options shared between commands.
type Options struct {
	EnvFile string
	Config  config.Config
}

// Execute builds the root command, runs it with args and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	rootCmd := newRootCommand(&Options{}, logger)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "margin",
		Short:         "margin anchors comments to documents and keeps the anchors valid",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.EnvFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = cmd.Flag("log-level").Value.String()
			}
			opts.Config = cfg

			level := logging.ParseLevel(cfg.LogLevel)
			logger = logging.NewLogger(cmd.ErrOrStderr(), level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "Path to a .env file (skipped when missing)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCommand(opts),
		newSeedCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext returns the command logger, or a default one.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
