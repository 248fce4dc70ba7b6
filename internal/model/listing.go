package model

import (
	"context"
	"encoding/json"
	"time"
)

// Listing is one normalized job posting from the government feed.
// Derived fields (ID, Region, RequiresAccessibility) are computed once at
// ingestion and never mutated afterwards; a listing lives only as long as the
// snapshot it belongs to.
type Listing struct {
	ID                    string        `json:"workId"`
	Region                string        `json:"city"`
	RequiresAccessibility bool          `json:"isDisability"`
	Fields                ListingFields `json:"fields"`
}

// ListingFields mirrors the raw feed entry. JSON tags match the upstream
// field names so a stored snapshot round-trips unchanged.
type ListingFields struct {
	OrgName     string      `json:"org_name"`
	WorkAddr    string      `json:"work_addr"`
	Title       string      `json:"title"`
	JobType     string      `json:"job_type"`
	RankFrom    json.Number `json:"rank_from"`
	RankTo      json.Number `json:"rank_to"`
	DateFrom    string      `json:"date_from"`
	DateTo      string      `json:"date_to"`
	ViewURL     string      `json:"view_url"`
	WorkQuality string      `json:"work_quality"`
	WorkItem    string      `json:"work_item"`
	Sysnam      string      `json:"sysnam"`
}

// RegionUnknown is the sentinel region for listings whose work address could
// not be parsed. It is a distinct value so it can never accidentally satisfy
// a region allow-list.
const RegionUnknown = "未知"

// FilterCondition is a subscriber's matching criteria. Every field is
// optional; a nil/empty field places no constraint on that dimension, so the
// zero value matches every listing. JSON keys are the subscriber-facing wire
// format and must stay stable.
type FilterCondition struct {
	JobType               *string  `json:"jobType,omitempty"`
	Regions               []string `json:"citys,omitempty"`
	RequiresAccessibility *bool    `json:"isDisability,omitempty"`
	JobFamilies           []string `json:"sysnams,omitempty"`
}

// Subscription is one subscriber's persisted delivery credential plus filter
// condition. The condition is kept raw so a single malformed row cannot abort
// a whole notify cycle; it is parsed per subscription at dispatch time.
type Subscription struct {
	ID        string
	Token     string // LINE Notify access token
	Condition []byte // FilterCondition JSON
}

// DeliveryJob is the unit of work queued per subscription per cycle. It
// carries the full matched set; truncation to the inline display cap happens
// at delivery time so the summary can state the true count.
type DeliveryJob struct {
	SubscriptionID string          `json:"id"`
	Token          string          `json:"token"`
	Matched        []Listing       `json:"matchedJobs"`
	Condition      FilterCondition `json:"condition"`
	Attempts       int             `json:"attempts"`
}

// SnapshotStore is a byte-oriented KV store with optional TTL. It backs the
// listing snapshot, the notification ledger and view artifacts.
type SnapshotStore interface {
	// Get returns (nil, false, nil) when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value under key; ttl <= 0 means no expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SubscriptionStore enumerates and removes subscriber configurations.
// Delete on an unknown id is a no-op.
type SubscriptionStore interface {
	List(ctx context.Context) ([]Subscription, error)
	Delete(ctx context.Context, id string) error
}

// NotifyChannel sends one message through the external push channel.
// Authorization failures are reported as *HTTPError with status 401.
type NotifyChannel interface {
	Send(ctx context.Context, message, token string) error
}

// DeliveryQueue accepts delivery jobs for asynchronous, at-least-once
// consumption by the delivery worker.
type DeliveryQueue interface {
	Enqueue(ctx context.Context, job DeliveryJob) error
}
