// Package redisqueue provides the durable Redis-backed delay/resume queue.
//
// Layout: ready jobs live in a list consumed with BRPOP, delayed jobs in a
// sorted set scored by fire-at time, dead-lettered jobs in a list for manual
// inspection. A promoter goroutine moves due delayed jobs onto the ready list.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/driplinehq/dripline/pkg/queue"
)

const (
	readyKey   = "dripline:queue:ready"
	delayedKey = "dripline:queue:delayed"
	deadKey    = "dripline:queue:dead"

	dequeueBlock    = 2 * time.Second
	promoteInterval = 1 * time.Second
	promoteBatch    = 128
)

type Queue struct {
	client *redis.Client
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewQueue(ctx context.Context, logger *slog.Logger, redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	promoterCtx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		client: client,
		logger: logger.With("module", "redis_queue"),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go q.promote(promoterCtx)

	return q, nil
}

func (q *Queue) EnqueueExecution(ctx context.Context, executionID string) error {
	return q.pushReady(ctx, queue.NewJob(executionID, 0, 0))
}

func (q *Queue) EnqueueDelayedExecution(ctx context.Context, executionID string, fromStep int, delay time.Duration) error {
	job := queue.NewJob(executionID, fromStep, delay)

	if delay <= 0 {
		return q.pushReady(ctx, job)
	}

	return q.pushDelayed(ctx, job)
}

func (q *Queue) Dequeue(ctx context.Context) (*queue.Job, error) {
	for {
		result, err := q.client.BRPop(ctx, dequeueBlock, readyKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}

				continue
			}

			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			return nil, fmt.Errorf("failed to pop job: %w", err)
		}

		// BRPOP returns [key, value].
		var job queue.Job

		err = json.Unmarshal([]byte(result[1]), &job)
		if err != nil {
			q.logger.ErrorContext(ctx, "Dropping undecodable job payload", "error", err)

			continue
		}

		return &job, nil
	}
}

func (q *Queue) Retry(ctx context.Context, job queue.Job, backoff time.Duration) error {
	job.Attempt++
	job.FireAt = time.Now().UTC().Add(backoff)

	if backoff <= 0 {
		return q.pushReady(ctx, job)
	}

	return q.pushDelayed(ctx, job)
}

func (q *Queue) DeadLetter(ctx context.Context, job queue.Job, cause error) error {
	payload, err := json.Marshal(struct {
		queue.Job

		Cause  string    `json:"cause"`
		DeadAt time.Time `json:"dead_at"`
	}{Job: job, Cause: cause.Error(), DeadAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter payload: %w", err)
	}

	err = q.client.LPush(ctx, deadKey, payload).Err()
	if err != nil {
		return fmt.Errorf("failed to dead-letter job %s: %w", job.ID, err)
	}

	return nil
}

func (q *Queue) Close() error {
	q.cancel()
	<-q.done

	return q.client.Close()
}

func (q *Queue) pushReady(ctx context.Context, job queue.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = q.client.LPush(ctx, readyKey, payload).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}

	return nil
}

func (q *Queue) pushDelayed(ctx context.Context, job queue.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = q.client.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(job.FireAt.UnixMilli()),
		Member: payload,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule delayed job %s: %w", job.ID, err)
	}

	return nil
}

// promote moves due delayed jobs onto the ready list. ZREM before LPUSH keeps
// a job from being promoted twice by concurrent promoters.
func (q *Queue) promote(ctx context.Context) {
	defer close(q.done)

	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.promoteDue(ctx)
		}
	}
}

func (q *Queue) promoteDue(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)

	due, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: promoteBatch,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			q.logger.ErrorContext(ctx, "Failed to read due delayed jobs", "error", err)
		}

		return
	}

	for _, payload := range due {
		removed, err := q.client.ZRem(ctx, delayedKey, payload).Result()
		if err != nil || removed == 0 {
			continue
		}

		err = q.client.LPush(ctx, readyKey, payload).Err()
		if err != nil {
			q.logger.ErrorContext(ctx, "Failed to promote delayed job", "error", err)
		}
	}
}
