// Package ledger tracks which listing identifiers have already been
// delivered, with bounded retention.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/funtuan/government-job-backend/internal/model"
)

const ledgerKey = "notify:ledger"

// Ledger is a durable, insertion-ordered set of notified listing ids stored
// as a single blob in the snapshot store, newest first. When a commit would
// exceed capacity, the oldest entries are evicted.
type Ledger struct {
	store    model.SnapshotStore
	capacity int
}

// New creates a Ledger with the given capacity.
func New(store model.SnapshotStore, capacity int) *Ledger {
	return &Ledger{store: store, capacity: capacity}
}

// Diff returns the listings from snapshot whose id is not yet in the ledger.
// It does not mutate the ledger, so calling it twice without a commit in
// between yields the same result.
func (l *Ledger) Diff(ctx context.Context, snapshot []model.Listing) ([]model.Listing, error) {
	ids, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}

	var fresh []model.Listing
	for _, listing := range snapshot {
		if _, ok := seen[listing.ID]; !ok {
			fresh = append(fresh, listing)
		}
	}

	return fresh, nil
}

// Commit prepends ids to the ledger, deduplicates, and truncates to capacity
// so the oldest entries are evicted first. Called exactly once per cycle,
// after every delivery job for the cycle has been enqueued.
func (l *Ledger) Commit(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	existing, err := l.load(ctx)
	if err != nil {
		return err
	}

	merged := make([]string, 0, len(ids)+len(existing))
	seen := make(map[string]struct{}, len(ids)+len(existing))
	for _, id := range append(ids, existing...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}

	if len(merged) > l.capacity {
		merged = merged[:l.capacity]
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := l.store.Put(ctx, ledgerKey, data, 0); err != nil {
		return fmt.Errorf("store ledger: %w", err)
	}

	return nil
}

// Size returns the current number of ledger entries.
func (l *Ledger) Size(ctx context.Context) (int, error) {
	ids, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (l *Ledger) load(ctx context.Context) ([]string, error) {
	data, ok, err := l.store.Get(ctx, ledgerKey)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return ids, nil
}
