package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/funtuan/government-job-backend/internal/feed"
	"github.com/funtuan/government-job-backend/internal/model"
)

// flakyFetcher fails the first failures calls, then succeeds.
type flakyFetcher struct {
	failures int
	err      error
	calls    int
}

func (f *flakyFetcher) FetchAll(_ context.Context) ([]model.Listing, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []model.Listing{{ID: "1"}}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetriesTransientErrorThenSucceeds(t *testing.T) {
	inner := &flakyFetcher{failures: 2, err: &model.HTTPError{StatusCode: 503}}
	f := NewFetcher(inner, 3, time.Millisecond, discardLogger())

	listings, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(listings) != 1 {
		t.Errorf("got %d listings, want 1", len(listings))
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestExhaustsRetries(t *testing.T) {
	inner := &flakyFetcher{failures: 10, err: errors.New("connection refused")}
	f := NewFetcher(inner, 2, time.Millisecond, discardLogger())

	if _, err := f.FetchAll(context.Background()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3 (1 initial + 2 retries)", inner.calls)
	}
}

func TestFormatErrorIsNotRetried(t *testing.T) {
	inner := &flakyFetcher{failures: 10, err: &feed.FormatError{Reason: "jobdata literal not found"}}
	f := NewFetcher(inner, 3, time.Millisecond, discardLogger())

	_, err := f.FetchAll(context.Background())

	var formatErr *feed.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected *feed.FormatError, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries)", inner.calls)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	inner := &flakyFetcher{failures: 10, err: &model.HTTPError{StatusCode: 404}}
	f := NewFetcher(inner, 3, time.Millisecond, discardLogger())

	if _, err := f.FetchAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (4xx is permanent)", inner.calls)
	}
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	inner := &flakyFetcher{failures: 10, err: errors.New("timeout")}
	f := NewFetcher(inner, 5, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.FetchAll(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}
