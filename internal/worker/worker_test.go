package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/funtuan/government-job-backend/internal/model"
)

// --- Fakes ---

// scriptedChannel records sent messages and fails specific calls.
type scriptedChannel struct {
	sent  []string
	calls int
	errAt map[int]error // 0-based call index -> error
}

func newScriptedChannel() *scriptedChannel {
	return &scriptedChannel{errAt: make(map[int]error)}
}

func (c *scriptedChannel) Send(_ context.Context, message, _ string) error {
	i := c.calls
	c.calls++
	if err := c.errAt[i]; err != nil {
		return err
	}
	c.sent = append(c.sent, message)
	return nil
}

type memStore struct {
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

type recordingSubs struct {
	deleted []string
}

func (s *recordingSubs) List(_ context.Context) ([]model.Subscription, error) { return nil, nil }

func (s *recordingSubs) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authErr() error {
	return &model.HTTPError{StatusCode: http.StatusUnauthorized, Err: errors.New("invalid access token")}
}

func matchedListings(n int) []model.Listing {
	out := make([]model.Listing, n)
	for i := range out {
		out[i] = model.Listing{
			ID: fmt.Sprintf("%d", i+1),
			Fields: model.ListingFields{
				OrgName: "考選部",
				Title:   fmt.Sprintf("科員 %d", i+1),
				ViewURL: fmt.Sprintf("https://example.com/view?work_id=%d", i+1),
			},
		}
	}
	return out
}

type fixture struct {
	worker  *Worker
	channel *scriptedChannel
	views   *memStore
	subs    *recordingSubs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	channel := newScriptedChannel()
	views := newMemStore()
	subs := &recordingSubs{}
	w := NewWorker(channel, views, subs, Options{
		InlineLimit:  10,
		MaxAttempts:  4,
		ViewTTL:      7 * 24 * time.Hour,
		BackendHost:  "https://backend.example.com",
		FrontendHost: "https://frontend.example.com",
	}, discardLogger())
	return &fixture{worker: w, channel: channel, views: views, subs: subs}
}

func job(n, attempts int) model.DeliveryJob {
	return model.DeliveryJob{
		SubscriptionID: "sub-1",
		Token:          "token-1",
		Matched:        matchedListings(n),
		Attempts:       attempts,
	}
}

// --- Tests ---

func TestHandleJobSmallMatchSet(t *testing.T) {
	f := newFixture(t)

	if err := f.worker.HandleJob(context.Background(), job(3, 1)); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}

	// 3 individual messages plus one summary.
	if len(f.channel.sent) != 4 {
		t.Fatalf("sent %d messages, want 4", len(f.channel.sent))
	}
	summary := f.channel.sent[3]
	if !strings.Contains(summary, "今日符合職缺共 3 筆，以上為全部") {
		t.Errorf("summary = %q", summary)
	}
	// Everything fit inline, so the summary carries no view link.
	if strings.Contains(summary, "/view/") {
		t.Errorf("summary must not reference the view artifact: %q", summary)
	}

	// The view artifact is still created even when everything fit inline.
	if len(f.views.data) != 1 {
		t.Errorf("view artifacts stored = %d, want 1", len(f.views.data))
	}
	for key, ttl := range f.views.ttls {
		if ttl != 7*24*time.Hour {
			t.Errorf("view %s ttl = %v, want 168h", key, ttl)
		}
	}
}

func TestHandleJobOverflowMatchSet(t *testing.T) {
	f := newFixture(t)

	if err := f.worker.HandleJob(context.Background(), job(12, 1)); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}

	// Only the first 10 go inline, in original match order.
	if len(f.channel.sent) != 11 {
		t.Fatalf("sent %d messages, want 11", len(f.channel.sent))
	}
	if !strings.Contains(f.channel.sent[0], "科員 1") || !strings.Contains(f.channel.sent[9], "科員 10") {
		t.Error("inline messages out of order")
	}

	summary := f.channel.sent[10]
	if !strings.Contains(summary, "今日符合職缺共 12 筆，以上只顯示前 10 筆") {
		t.Errorf("summary = %q", summary)
	}
	if !strings.Contains(summary, "/view/") {
		t.Errorf("summary should link the view artifact: %q", summary)
	}
}

func TestHandleJobTransientFailureRequestsRedelivery(t *testing.T) {
	f := newFixture(t)
	f.channel.errAt[1] = &model.HTTPError{StatusCode: http.StatusInternalServerError}

	err := f.worker.HandleJob(context.Background(), job(3, 1))
	if err == nil {
		t.Fatal("expected error for redelivery")
	}
	if len(f.subs.deleted) != 0 {
		t.Errorf("transient failure must not delete subscriptions: %v", f.subs.deleted)
	}
}

func TestHandleJobAuthFailureBeforeTerminalAttempt(t *testing.T) {
	f := newFixture(t)
	f.channel.errAt[0] = authErr()

	err := f.worker.HandleJob(context.Background(), job(3, 2))
	if err == nil {
		t.Fatal("expected error: auth failure below the attempt cap is retried")
	}
	if len(f.subs.deleted) != 0 {
		t.Errorf("subscription deleted too early: %v", f.subs.deleted)
	}
}

func TestHandleJobTerminalAuthFailureRevokesSubscription(t *testing.T) {
	f := newFixture(t)
	f.channel.errAt[0] = authErr()

	err := f.worker.HandleJob(context.Background(), job(3, 4))
	if err != nil {
		t.Fatalf("terminal auth failure must be swallowed, got: %v", err)
	}
	if len(f.subs.deleted) != 1 || f.subs.deleted[0] != "sub-1" {
		t.Errorf("deleted = %v, want [sub-1]", f.subs.deleted)
	}
}

func TestHandleJobTerminalAuthFailureOnSummary(t *testing.T) {
	f := newFixture(t)
	// Individual sends succeed; the summary send hits the revoked credential.
	f.channel.errAt[3] = authErr()

	err := f.worker.HandleJob(context.Background(), job(3, 4))
	if err != nil {
		t.Fatalf("terminal auth failure must be swallowed, got: %v", err)
	}
	if len(f.subs.deleted) != 1 {
		t.Errorf("deleted = %v, want [sub-1]", f.subs.deleted)
	}
}

func TestHandleBatchContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	// First job's first send fails; the second job must still be attempted.
	f.channel.errAt[0] = &model.HTTPError{StatusCode: http.StatusInternalServerError}

	jobs := []model.DeliveryJob{job(1, 1), job(1, 1)}
	err := f.worker.HandleBatch(context.Background(), jobs)
	if err == nil {
		t.Fatal("expected joined error from the failed job")
	}

	// Second job: 1 individual + 1 summary.
	if len(f.channel.sent) != 2 {
		t.Errorf("sent %d messages, want 2 from the surviving job", len(f.channel.sent))
	}
}

func TestFormatListing(t *testing.T) {
	fields := model.ListingFields{
		OrgName:  "考選部",
		WorkAddr: "臺北市文山區試院路1-1號",
		Title:    "科員",
		JobType:  "委任",
		RankFrom: "3",
		RankTo:   "5",
		DateFrom: "2024-01-01",
		DateTo:   "2024-01-31",
		ViewURL:  "https://example.com/view?work_id=1",
		WorkItem: "文書處理",
		Sysnam:   "綜合行政",
	}

	got := FormatListing(fields)
	want := "單位: 考選部\n地點: 臺北市文山區試院路1-1號\n職稱職等: 綜合行政 科員 - 委任 (3~5)\n工作內容: 文書處理\n時間: 2024-01-01 ~ 2024-01-31\n連結: https://example.com/view?work_id=1"
	if got != want {
		t.Errorf("FormatListing =\n%s\nwant\n%s", got, want)
	}
}
