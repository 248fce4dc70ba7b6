// Package worker consumes delivery jobs and sends matched listings through
// the notify channel.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/funtuan/government-job-backend/internal/model"
)

// ViewKeyPrefix namespaces materialized view artifacts in the snapshot store.
const ViewKeyPrefix = "view:"

// Worker delivers one job's matched listings: up to inlineLimit individual
// messages, then a summary that links a materialized view of the full set.
// Handler errors flow back to the queue's redelivery mechanism; the single
// exception is a revoked credential at the terminal attempt, which removes
// the subscription instead.
type Worker struct {
	channel      model.NotifyChannel
	views        model.SnapshotStore
	subs         model.SubscriptionStore
	inlineLimit  int
	maxAttempts  int
	viewTTL      time.Duration
	backendHost  string
	frontendHost string
	logger       *slog.Logger
}

// Options bundles the delivery-policy knobs for NewWorker.
type Options struct {
	InlineLimit  int
	MaxAttempts  int
	ViewTTL      time.Duration
	BackendHost  string
	FrontendHost string
}

// NewWorker wires a delivery worker.
func NewWorker(
	channel model.NotifyChannel,
	views model.SnapshotStore,
	subs model.SubscriptionStore,
	opts Options,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		channel:      channel,
		views:        views,
		subs:         subs,
		inlineLimit:  opts.InlineLimit,
		maxAttempts:  opts.MaxAttempts,
		viewTTL:      opts.ViewTTL,
		backendHost:  opts.BackendHost,
		frontendHost: opts.FrontendHost,
		logger:       logger,
	}
}

// HandleJob delivers one job. Returning an error requests redelivery of the
// whole job; already-sent listings will be resent, which is accepted and
// bounded by the attempt cap. There is no partial-success tracking.
func (w *Worker) HandleJob(ctx context.Context, job model.DeliveryJob) error {
	inline := len(job.Matched)
	if inline > w.inlineLimit {
		inline = w.inlineLimit
	}

	for _, listing := range job.Matched[:inline] {
		if err := w.channel.Send(ctx, FormatListing(listing.Fields), job.Token); err != nil {
			return w.fail(ctx, job, fmt.Errorf("send listing %s: %w", listing.ID, err))
		}
	}

	viewURL, err := w.materializeView(ctx, job.Matched)
	if err != nil {
		return fmt.Errorf("deliver to %s: %w", job.SubscriptionID, err)
	}

	summary := w.formatSummary(len(job.Matched), viewURL)
	if err := w.channel.Send(ctx, summary, job.Token); err != nil {
		return w.fail(ctx, job, fmt.Errorf("send summary: %w", err))
	}

	w.logger.Info("delivery complete",
		"subscription", job.SubscriptionID,
		"matched", len(job.Matched),
		"inline", inline,
		"attempt", job.Attempts,
	)
	return nil
}

// HandleBatch delivers a batch of jobs, attempting every job even when an
// earlier one fails.
func (w *Worker) HandleBatch(ctx context.Context, jobs []model.DeliveryJob) error {
	var errs []error
	for _, job := range jobs {
		if err := w.HandleJob(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fail decides between redelivery and permanent failure. A revoked credential
// at the terminal attempt deletes the subscription and swallows the error;
// everything else propagates so the queue redelivers the job.
func (w *Worker) fail(ctx context.Context, job model.DeliveryJob, cause error) error {
	if job.Attempts >= w.maxAttempts && model.IsAuthError(cause) {
		w.logger.Warn("credential revoked, removing subscription",
			"subscription", job.SubscriptionID,
			"attempt", job.Attempts,
		)
		if err := w.subs.Delete(ctx, job.SubscriptionID); err != nil {
			return fmt.Errorf("remove revoked subscription %s: %w", job.SubscriptionID, err)
		}
		return nil
	}
	return fmt.Errorf("deliver to %s: %w", job.SubscriptionID, cause)
}

// materializeView stores the full matched set under an opaque id and returns
// the public view URL. The artifact expires on its own; there is no delete path.
func (w *Worker) materializeView(ctx context.Context, matched []model.Listing) (string, error) {
	data, err := json.Marshal(matched)
	if err != nil {
		return "", fmt.Errorf("marshal view: %w", err)
	}

	id := uuid.NewString()
	if err := w.views.Put(ctx, ViewKeyPrefix+id, data, w.viewTTL); err != nil {
		return "", fmt.Errorf("store view: %w", err)
	}

	return fmt.Sprintf("%s/view/%s", w.backendHost, id), nil
}

// formatSummary links the view artifact only when the match set overflowed the
// inline cap; a fully inlined set needs no overflow page.
func (w *Worker) formatSummary(total int, viewURL string) string {
	footer := fmt.Sprintf("設定其他條件 %s\n取消通知訂閱 https://notify-bot.line.me/my/", w.frontendHost)
	if total > w.inlineLimit {
		return fmt.Sprintf("今日符合職缺共 %d 筆，以上只顯示前 %d 筆\n%s\n\n%s",
			total, w.inlineLimit, viewURL, footer)
	}
	return fmt.Sprintf("今日符合職缺共 %d 筆，以上為全部\n\n%s", total, footer)
}
