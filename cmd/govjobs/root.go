package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/funtuan/government-job-backend/internal/config"
	"github.com/funtuan/government-job-backend/internal/dispatch"
	"github.com/funtuan/government-job-backend/internal/feed"
	"github.com/funtuan/government-job-backend/internal/ledger"
	"github.com/funtuan/government-job-backend/internal/notify"
	"github.com/funtuan/government-job-backend/internal/queue"
	"github.com/funtuan/government-job-backend/internal/ratelimit"
	"github.com/funtuan/government-job-backend/internal/retry"
	"github.com/funtuan/government-job-backend/internal/store"
	"github.com/funtuan/government-job-backend/internal/worker"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "govjobs",
	Short: "Government job-listing notification backend",
	Long:  "govjobs scrapes the public civil-service job feed and notifies subscribers of new listings matching their filter conditions.",
	// Default to `start` so that `govjobs` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: GOVJOBS_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > GOVJOBS_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("GOVJOBS_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// app bundles the wired collaborators shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	redis  *store.RedisStore
	subs   *store.SQLiteStore
	ledger *ledger.Ledger
	queue  *queue.RedisQueue
	orch   *dispatch.Orchestrator
	worker *worker.Worker
}

// buildApp connects to the stores and wires the pipeline.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	subs, err := store.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		redisStore.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Feed.Timeout}

	var fetcher dispatch.FeedFetcher = feed.NewFetcher(
		cfg.Feed.URL,
		httpClient,
		feed.NewNormalizer(cfg.Accessibility),
	)
	fetcher = retry.NewFetcher(fetcher, 2, 5*time.Second, logger)

	led := ledger.New(redisStore, cfg.LedgerCap)
	deliveryQueue := queue.NewRedisQueue(redisStore.Client(), cfg.Delivery.MaxAttempts, logger)

	orch := dispatch.NewOrchestrator(fetcher, redisStore, led, subs, deliveryQueue, logger)

	channel := ratelimit.NewPacedChannel(
		notify.NewClient(notify.DefaultAPIURL, httpClient, logger),
		ratelimit.NewSendRateLimiter(cfg.Delivery.SendDelay),
	)
	deliveryWorker := worker.NewWorker(channel, redisStore, subs, worker.Options{
		InlineLimit:  cfg.Delivery.InlineLimit,
		MaxAttempts:  cfg.Delivery.MaxAttempts,
		ViewTTL:      cfg.Delivery.ViewTTL,
		BackendHost:  cfg.BackendHost,
		FrontendHost: cfg.FrontendHost,
	}, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		redis:  redisStore,
		subs:   subs,
		ledger: led,
		queue:  deliveryQueue,
		orch:   orch,
		worker: deliveryWorker,
	}, nil
}

func (a *app) Close() {
	a.subs.Close()
	a.redis.Close()
}

// setupApp is the common preamble for subcommands that need the full wiring.
func setupApp(ctx context.Context) (*app, error) {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return nil, err
	}

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire services", "error", err)
		return nil, err
	}
	return a, nil
}
