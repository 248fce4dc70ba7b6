// Package store provides the externally persisted collaborators: the Redis
// snapshot/ledger/view store and the SQLite subscription store.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/funtuan/government-job-backend/internal/model"
)

// Ensure RedisStore implements model.SnapshotStore.
var _ model.SnapshotStore = (*RedisStore)(nil)

// RedisStore is a byte-oriented KV store on Redis. It backs the listing
// snapshot, the notification ledger, and the time-limited view artifacts.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses redisURL, verifies connectivity, and returns the store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Get returns (nil, false, nil) when the key is absent or expired.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, true, nil
}

// Put stores value under key. A non-positive ttl stores without expiry.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Client exposes the underlying connection for collaborators that need more
// than plain KV, such as the delivery queue.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the underlying connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
