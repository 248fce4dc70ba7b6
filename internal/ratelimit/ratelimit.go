// Package ratelimit paces outbound notify-channel sends.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/funtuan/government-job-backend/internal/model"
)

// SendRateLimiter enforces a minimum delay between consecutive sends for the
// same delivery credential.
type SendRateLimiter struct {
	mu       sync.Mutex
	lastSend map[string]time.Time // key: credential
	minDelay time.Duration
}

// NewSendRateLimiter creates a rate limiter that enforces minDelay between
// consecutive sends with the same credential.
func NewSendRateLimiter(minDelay time.Duration) *SendRateLimiter {
	return &SendRateLimiter{
		lastSend: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last send with the given
// credential. Returns an error if the context is cancelled while waiting.
func (r *SendRateLimiter) Wait(ctx context.Context, credential string) error {
	r.mu.Lock()
	last, ok := r.lastSend[credential]
	now := time.Now()

	if !ok {
		r.lastSend[credential] = now
		r.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(last)
	if elapsed >= r.minDelay {
		r.lastSend[credential] = now
		r.mu.Unlock()
		return nil
	}

	remaining := r.minDelay - elapsed
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait: %w", ctx.Err())
	case <-time.After(remaining):
	}

	r.mu.Lock()
	r.lastSend[credential] = time.Now()
	r.mu.Unlock()

	return nil
}

// PacedChannel is a decorator that enforces send pacing before delegating to
// the wrapped NotifyChannel.
type PacedChannel struct {
	inner   model.NotifyChannel
	limiter *SendRateLimiter
}

// NewPacedChannel wraps a NotifyChannel with per-credential pacing. Workers
// sharing a channel should share the same limiter instance.
func NewPacedChannel(inner model.NotifyChannel, limiter *SendRateLimiter) *PacedChannel {
	return &PacedChannel{inner: inner, limiter: limiter}
}

// Send waits for the limiter to allow a send, then delegates.
func (c *PacedChannel) Send(ctx context.Context, message, token string) error {
	if err := c.limiter.Wait(ctx, token); err != nil {
		return err
	}
	return c.inner.Send(ctx, message, token)
}
