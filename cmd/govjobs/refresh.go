package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the feed and store a fresh listing snapshot, then exit",
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setupApp(ctx)
	if err != nil {
		os.Exit(1)
	}
	defer a.Close()

	if err := a.orch.RefreshListings(ctx); err != nil {
		a.logger.Error("refresh failed", "error", err)
		os.Exit(1)
	}

	a.logger.Info("refresh complete")
	return nil
}
