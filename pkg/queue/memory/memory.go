// Package memory provides an in-memory queue implementation for tests and
// local development. Delayed jobs fire via timers; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/driplinehq/dripline/pkg/queue"
)

type DeadJob struct {
	Job   queue.Job
	Cause string
}

type Queue struct {
	jobs   chan queue.Job
	mu     sync.Mutex
	timers []*time.Timer
	dead   []DeadJob
	closed bool
}

func NewQueue() *Queue {
	return &Queue{
		jobs: make(chan queue.Job, 1024),
	}
}

func (q *Queue) EnqueueExecution(ctx context.Context, executionID string) error {
	return q.push(queue.NewJob(executionID, 0, 0))
}

func (q *Queue) EnqueueDelayedExecution(_ context.Context, executionID string, fromStep int, delay time.Duration) error {
	job := queue.NewJob(executionID, fromStep, delay)

	if delay <= 0 {
		return q.push(job)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.timers = append(q.timers, time.AfterFunc(delay, func() {
		_ = q.push(job)
	}))

	return nil
}

func (q *Queue) Dequeue(ctx context.Context) (*queue.Job, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case job, ok := <-q.jobs:
		if !ok {
			return nil, context.Canceled
		}

		return &job, nil
	}
}

func (q *Queue) Retry(_ context.Context, job queue.Job, backoff time.Duration) error {
	job.Attempt++
	job.FireAt = time.Now().UTC().Add(backoff)

	if backoff <= 0 {
		return q.push(job)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.timers = append(q.timers, time.AfterFunc(backoff, func() {
		_ = q.push(job)
	}))

	return nil
}

func (q *Queue) DeadLetter(_ context.Context, job queue.Job, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.dead = append(q.dead, DeadJob{Job: job, Cause: cause.Error()})

	return nil
}

// DeadLetters returns a snapshot of dead-lettered jobs for inspection.
func (q *Queue) DeadLetters() []DeadJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	dead := make([]DeadJob, len(q.dead))
	copy(dead, q.dead)

	return dead
}

// Len reports the number of jobs currently ready for delivery.
func (q *Queue) Len() int {
	return len(q.jobs)
}

func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true

	for _, timer := range q.timers {
		timer.Stop()
	}

	close(q.jobs)

	return nil
}

// push never blocks while holding the mutex: a blocking send on a full
// buffer would wedge every other producer and Close behind the lock.
func (q *Queue) push(job queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue buffer full, dropping job %s for execution %s", job.ID, job.ExecutionID)
	}
}
