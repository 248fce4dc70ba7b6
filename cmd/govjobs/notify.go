package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Run one notify cycle against the current snapshot, then exit",
	Long:  "Diffs the current snapshot against the sent ledger, enqueues delivery jobs for every subscription with matches, commits the ledger, and exits. A running daemon's worker drains the queue.",
	RunE:  runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}

func runNotify(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setupApp(ctx)
	if err != nil {
		os.Exit(1)
	}
	defer a.Close()

	if err := a.orch.RunNotifyCycle(ctx); err != nil {
		a.logger.Error("notify cycle failed", "error", err)
		os.Exit(1)
	}

	a.logger.Info("notify cycle complete")
	return nil
}
