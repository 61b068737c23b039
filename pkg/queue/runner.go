package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultConcurrency = 5
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 30 * time.Second
)

// Runner drains the queue with a bounded worker pool and applies the retry
// policy: exponential backoff up to MaxAttempts, then dead-letter.
type Runner struct {
	queue       Queue
	handler     Handler
	logger      *slog.Logger
	concurrency int
	maxAttempts int
	baseBackoff time.Duration

	wg sync.WaitGroup
}

type RunnerOption func(*Runner)

func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithMaxAttempts(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithBaseBackoff(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d >= 0 {
			r.baseBackoff = d
		}
	}
}

func NewRunner(queue Queue, handler Handler, logger *slog.Logger, opts ...RunnerOption) *Runner {
	runner := &Runner{
		queue:       queue,
		handler:     handler,
		logger:      logger.With("module", "queue_runner"),
		concurrency: DefaultConcurrency,
		maxAttempts: DefaultMaxAttempts,
		baseBackoff: DefaultBaseBackoff,
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Start launches the worker pool and blocks until the context is cancelled
// and all workers have drained.
func (r *Runner) Start(ctx context.Context) {
	r.logger.InfoContext(ctx, "Starting queue runner", "concurrency", r.concurrency)

	for i := range r.concurrency {
		r.wg.Add(1)

		go func(workerIndex int) {
			defer r.wg.Done()
			r.work(ctx, workerIndex)
		}(i)
	}

	r.wg.Wait()
}

func (r *Runner) work(ctx context.Context, workerIndex int) {
	logger := r.logger.With("worker_index", workerIndex)

	for {
		job, err := r.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}

			logger.ErrorContext(ctx, "Failed to dequeue job", "error", err)

			continue
		}

		if job == nil {
			continue
		}

		r.process(ctx, logger, *job)
	}
}

func (r *Runner) process(ctx context.Context, logger *slog.Logger, job Job) {
	logger = logger.With("job_id", job.ID, "execution_id", job.ExecutionID,
		"from_step", job.FromStep, "attempt", job.Attempt)

	err := r.handler(ctx, job)
	if err == nil {
		return
	}

	if job.Attempt+1 >= r.maxAttempts {
		logger.ErrorContext(ctx, "Job exhausted retry attempts, dead-lettering", "error", err)

		if dlErr := r.queue.DeadLetter(ctx, job, err); dlErr != nil {
			logger.ErrorContext(ctx, "Failed to dead-letter job", "error", dlErr)
		}

		return
	}

	backoff := r.backoffFor(job.Attempt)
	logger.WarnContext(ctx, "Job failed, scheduling retry", "error", err, "backoff", backoff)

	if retryErr := r.queue.Retry(ctx, job, backoff); retryErr != nil {
		logger.ErrorContext(ctx, "Failed to schedule retry", "error", retryErr)
	}
}

// backoffFor doubles the base backoff per attempt already made.
func (r *Runner) backoffFor(attempt int) time.Duration {
	backoff := r.baseBackoff
	for range attempt {
		backoff *= 2
	}

	return backoff
}
