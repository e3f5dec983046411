// Package main provides the entry point for the canon CLI application.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version       = "0.1.0-dev"
	globalWorld   string
	globalVerbose bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "canon",
		Short:   "A canon entity store with layered consistency enforcement",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&globalWorld, "world", "w", "", "World to operate on (required for most commands)")
	rootCmd.PersistentFlags().BoolVarP(&globalVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newInitCmd(),
		newWorldsCmd(),
		newCreateCmd(),
		newUpdateCmd(),
		newGetCmd(),
		newListCmd(),
		newStatusCmd(),
		newDeleteCmd(),
		newCheckCmd(),
		newAuditCmd(),
		newSearchCmd(),
		newGraphCmd(),
		newHistoryCmd(),
		newRollbackCmd(),
		newRepairCmd(),
		newSessionCmd(),
		newCheckpointCmd(),
		newEventsCmd(),
		newTypesCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}

func setupLogging() {
	level := slog.LevelWarn
	if globalVerbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
