// Package scheduler wires the cron triggers that drive the refresh and
// notify cycles.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/funtuan/government-job-backend/internal/dispatch"
)

// cycleTimeout bounds a single refresh or notify cycle. A hung upstream must
// not stall the next day's trigger.
const cycleTimeout = 10 * time.Minute

// Scheduler runs the orchestrator's two cycles on their cron specs. Cycle
// failures are logged and surface nothing to cron; the daemon keeps running.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *dispatch.Orchestrator
	refreshSpec  string
	notifySpec   string
	logger       *slog.Logger
}

// New creates a Scheduler with the two cron specs from config.
func New(orchestrator *dispatch.Orchestrator, refreshSpec, notifySpec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		orchestrator: orchestrator,
		refreshSpec:  refreshSpec,
		notifySpec:   notifySpec,
		logger:       logger,
	}
}

// Start registers both jobs and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.refreshSpec, func() {
		s.runCycle(ctx, "refresh", s.orchestrator.RefreshListings)
	}); err != nil {
		return fmt.Errorf("register refresh trigger: %w", err)
	}

	if _, err := s.cron.AddFunc(s.notifySpec, func() {
		s.runCycle(ctx, "notify", s.orchestrator.RunNotifyCycle)
	}); err != nil {
		return fmt.Errorf("register notify trigger: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		"refresh_spec", s.refreshSpec,
		"notify_spec", s.notifySpec,
	)
	return nil
}

// Stop shuts the scheduler down and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runCycle(ctx context.Context, name string, cycle func(context.Context) error) {
	cctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	s.logger.Info("cycle started", "cycle", name)
	if err := cycle(cctx); err != nil {
		s.logger.Error("cycle failed", "cycle", name, "error", err)
		return
	}
	s.logger.Info("cycle finished", "cycle", name)
}
