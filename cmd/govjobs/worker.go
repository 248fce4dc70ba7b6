package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run only the delivery-queue consumer",
	Long:  "Consumes delivery jobs from the queue and sends notifications; blocks until SIGINT/SIGTERM. Useful for draining the queue separately from the scheduler.",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setupApp(ctx)
	if err != nil {
		os.Exit(1)
	}
	defer a.Close()

	if err := a.queue.Run(ctx, a.worker.HandleJob); err != nil {
		a.logger.Error("queue consumer error", "error", err)
		os.Exit(1)
	}

	a.logger.Info("goodbye")
	return nil
}
