// Package queue implements the asynchronous delivery queue on a Redis list.
// Jobs are consumed with at-least-once semantics: a job whose handler fails
// is re-enqueued with an incremented attempt counter until the attempt cap,
// then dropped with an error log.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/funtuan/government-job-backend/internal/model"
)

const queueKey = "delivery:jobs"

// Ensure RedisQueue implements model.DeliveryQueue.
var _ model.DeliveryQueue = (*RedisQueue)(nil)

// Handler processes one delivery job. Returning an error requests redelivery.
type Handler func(ctx context.Context, job model.DeliveryJob) error

// RedisQueue is a list-backed delivery queue. Producers LPUSH, the consumer
// BRPOPs, so jobs are delivered in enqueue order and redeliveries go to the
// back of the line.
type RedisQueue struct {
	client      *redis.Client
	maxAttempts int
	logger      *slog.Logger
}

// NewRedisQueue creates a queue. maxAttempts is the terminal attempt count
// after which a still-failing job is dropped.
func NewRedisQueue(client *redis.Client, maxAttempts int, logger *slog.Logger) *RedisQueue {
	return &RedisQueue{
		client:      client,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Enqueue pushes a job onto the queue. A zero attempt counter is initialized
// to 1 so the worker always sees the current attempt number.
func (q *RedisQueue) Enqueue(ctx context.Context, job model.DeliveryJob) error {
	data, err := encodeJob(job)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, queueKey, data).Err(); err != nil {
		return fmt.Errorf("enqueue delivery job for %s: %w", job.SubscriptionID, err)
	}
	return nil
}

// Run consumes jobs until ctx is cancelled. Each job is passed to handler;
// on failure the job is redelivered or, at the attempt cap, dropped.
func (q *RedisQueue) Run(ctx context.Context, handler Handler) error {
	q.logger.Info("delivery queue consumer started", "max_attempts", q.maxAttempts)

	for {
		res, err := q.client.BRPop(ctx, 0, queueKey).Result()
		if err != nil {
			if ctx.Err() != nil {
				q.logger.Info("delivery queue consumer stopped")
				return nil
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("dequeue delivery job: %w", err)
		}

		job, err := decodeJob([]byte(res[1]))
		if err != nil {
			// Undecodable payloads cannot be retried; drop them.
			q.logger.Error("dropping undecodable delivery job", "error", err)
			continue
		}

		if err := handler(ctx, job); err != nil {
			q.redeliver(ctx, job, err)
		}
	}
}

// nextDelivery decides the fate of a failed job: the job with its attempt
// counter incremented and true while attempts remain, or false once the
// attempt cap is reached and the job must be dropped.
func nextDelivery(job model.DeliveryJob, maxAttempts int) (model.DeliveryJob, bool) {
	if job.Attempts >= maxAttempts {
		return model.DeliveryJob{}, false
	}
	job.Attempts++
	return job, true
}

// redeliver re-enqueues a failed job with an incremented attempt counter, or
// drops it once the attempt cap is reached.
func (q *RedisQueue) redeliver(ctx context.Context, job model.DeliveryJob, cause error) {
	next, ok := nextDelivery(job, q.maxAttempts)
	if !ok {
		q.logger.Error("delivery job failed permanently",
			"subscription", job.SubscriptionID,
			"attempts", job.Attempts,
			"error", cause,
		)
		return
	}

	q.logger.Warn("redelivering failed job",
		"subscription", next.SubscriptionID,
		"attempt", next.Attempts,
		"error", cause,
	)
	if err := q.Enqueue(ctx, next); err != nil {
		q.logger.Error("redelivery enqueue failed",
			"subscription", next.SubscriptionID,
			"error", err,
		)
	}
}

func encodeJob(job model.DeliveryJob) ([]byte, error) {
	if job.Attempts == 0 {
		job.Attempts = 1
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal delivery job for %s: %w", job.SubscriptionID, err)
	}
	return data, nil
}

func decodeJob(data []byte) (model.DeliveryJob, error) {
	var job model.DeliveryJob
	if err := json.Unmarshal(data, &job); err != nil {
		return model.DeliveryJob{}, fmt.Errorf("unmarshal delivery job: %w", err)
	}
	if job.Attempts == 0 {
		job.Attempts = 1
	}
	return job, nil
}
