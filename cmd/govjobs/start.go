package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/funtuan/government-job-backend/internal/scheduler"
	"github.com/funtuan/government-job-backend/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the notification daemon",
	Long:  "Start the cron scheduler, delivery worker, and HTTP server; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setupApp(ctx)
	if err != nil {
		os.Exit(1)
	}
	defer a.Close()

	a.logger.Info("config loaded",
		"feed_url", a.cfg.Feed.URL,
		"listen_addr", a.cfg.ListenAddr,
		"refresh_spec", a.cfg.Cron.RefreshSpec,
		"notify_spec", a.cfg.Cron.NotifySpec,
	)

	sched := scheduler.New(a.orch, a.cfg.Cron.RefreshSpec, a.cfg.Cron.NotifySpec, a.logger)
	if err := sched.Start(ctx); err != nil {
		a.logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:    a.cfg.ListenAddr,
		Handler: server.New(a.redis, a.orch, a.logger).Handler(),
	}

	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		if err := a.queue.Run(ctx, a.worker.HandleJob); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		a.logger.Error("daemon error", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}

	a.logger.Info("goodbye")
	return nil
}
