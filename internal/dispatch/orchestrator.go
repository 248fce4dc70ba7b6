// Package dispatch owns the two scheduled cycles: refreshing the listing
// snapshot and fanning matched listings out to the delivery queue.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/funtuan/government-job-backend/internal/ledger"
	"github.com/funtuan/government-job-backend/internal/match"
	"github.com/funtuan/government-job-backend/internal/model"
)

// SnapshotKey is where the current listing snapshot lives in the store.
const SnapshotKey = "listings:current"

// FeedFetcher retrieves and normalizes the current upstream listing set.
type FeedFetcher interface {
	FetchAll(ctx context.Context) ([]model.Listing, error)
}

// Orchestrator runs the refresh and notify cycles. Each cycle operates on an
// immutable snapshot; the only shared mutable state is the externally owned
// ledger, mutated once per notify cycle.
type Orchestrator struct {
	fetcher   FeedFetcher
	snapshots model.SnapshotStore
	ledger    *ledger.Ledger
	subs      model.SubscriptionStore
	queue     model.DeliveryQueue
	logger    *slog.Logger
}

// NewOrchestrator wires an Orchestrator with all its collaborators.
func NewOrchestrator(
	fetcher FeedFetcher,
	snapshots model.SnapshotStore,
	led *ledger.Ledger,
	subs model.SubscriptionStore,
	queue model.DeliveryQueue,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		snapshots: snapshots,
		ledger:    led,
		subs:      subs,
		queue:     queue,
		logger:    logger,
	}
}

// RefreshListings fetches the upstream feed and replaces the stored snapshot
// wholesale. On any fetch or parse failure nothing is written, so the prior
// snapshot stays in effect and a failed refresh never looks like an empty feed.
func (o *Orchestrator) RefreshListings(ctx context.Context) error {
	listings, err := o.fetcher.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("refresh listings: %w", err)
	}

	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("refresh listings: marshal snapshot: %w", err)
	}
	if err := o.snapshots.Put(ctx, SnapshotKey, data, 0); err != nil {
		return fmt.Errorf("refresh listings: store snapshot: %w", err)
	}

	o.logger.Info("listing snapshot refreshed", "listings", len(listings))
	return nil
}

// RunNotifyCycle diffs the current snapshot against the ledger, evaluates the
// new listings against every subscription, enqueues one delivery job per
// matching subscription, and finally commits the full new-listing id set to
// the ledger. The commit runs exactly once per cycle and only after every
// enqueue succeeded; an enqueue failure aborts the commit so the next cycle
// re-derives the same new set.
func (o *Orchestrator) RunNotifyCycle(ctx context.Context) error {
	snapshot, err := o.loadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("notify cycle: %w", err)
	}
	if len(snapshot) == 0 {
		o.logger.Info("notify cycle skipped, no listing snapshot")
		return nil
	}

	fresh, err := o.ledger.Diff(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("notify cycle: %w", err)
	}
	if len(fresh) == 0 {
		o.logger.Info("notify cycle complete, no new listings")
		return nil
	}

	subs, err := o.subs.List(ctx)
	if err != nil {
		return fmt.Errorf("notify cycle: list subscriptions: %w", err)
	}

	enqueued := 0
	skipped := 0
	for _, sub := range subs {
		var cond model.FilterCondition
		if err := json.Unmarshal(sub.Condition, &cond); err != nil {
			// One broken subscription must not abort the rest of the cycle.
			o.logger.Error("skipping malformed subscription",
				"subscription", sub.ID,
				"error", err,
			)
			skipped++
			continue
		}

		var matched []model.Listing
		for _, listing := range fresh {
			if match.Matches(listing, cond) {
				matched = append(matched, listing)
			}
		}
		if len(matched) == 0 {
			continue
		}

		job := model.DeliveryJob{
			SubscriptionID: sub.ID,
			Token:          sub.Token,
			Matched:        matched,
			Condition:      cond,
		}
		if err := o.queue.Enqueue(ctx, job); err != nil {
			// Abort before the ledger commit: the next cycle will re-derive
			// the same new set and retry the fan-out.
			return fmt.Errorf("notify cycle: %w", err)
		}
		enqueued++
	}

	ids := make([]string, len(fresh))
	for i, listing := range fresh {
		ids[i] = listing.ID
	}
	if err := o.ledger.Commit(ctx, ids); err != nil {
		return fmt.Errorf("notify cycle: %w", err)
	}

	o.logger.Info("notify cycle complete",
		"new_listings", len(fresh),
		"subscriptions", len(subs),
		"jobs_enqueued", enqueued,
		"skipped", skipped,
	)
	return nil
}

// loadSnapshot returns the stored listing snapshot, or nil when absent.
func (o *Orchestrator) loadSnapshot(ctx context.Context) ([]model.Listing, error) {
	data, ok, err := o.snapshots.Get(ctx, SnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var listings []model.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return listings, nil
}

// QuerySnapshot filters the current snapshot with an ad-hoc condition and
// returns a page of results. Used by the HTTP query endpoint and the search
// command; it never touches the ledger.
func (o *Orchestrator) QuerySnapshot(ctx context.Context, cond model.FilterCondition, start, limit int) ([]model.Listing, error) {
	snapshot, err := o.loadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	var matched []model.Listing
	for _, listing := range snapshot {
		if match.Matches(listing, cond) {
			matched = append(matched, listing)
		}
	}

	if start >= len(matched) {
		return nil, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}
