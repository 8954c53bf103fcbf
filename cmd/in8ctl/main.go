package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"in8/internal/app"
	"in8/internal/config"
	"in8/internal/logging"
)

var (
	verbose bool
	timeout time.Duration

	logger *zap.Logger
	deps   *app.App
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "in8ctl",
	Short: "Operate the in8 survey backend",
	Long: `in8ctl talks to the same MongoDB and Redis the server uses.

It reads configuration exactly like the server: defaults, the YAML file named
by IN8_CONFIG, then environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		if logger, err = logging.New(level); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		deps, err = app.Connect(ctx, cfg, logger)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if deps != nil {
			deps.Close(context.Background())
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templatePushCmd)
	templatePushCmd.Flags().StringVarP(&templateFile, "file", "f", "", "Template document (.json, .yaml or .yml)")
	templatePushCmd.MarkFlagRequired("file")

	usersCmd.AddCommand(usersReconcileCmd)

	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(usersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}
