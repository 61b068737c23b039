// Package queue provides the durable, at-least-once delay/resume job queue
// that drives workflow executions.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one "run this execution now" unit of work. FromStep is zero for
// fresh runs; resume jobs scheduled by delay nodes carry the order of the
// node after the delay.
type Job struct {
	ID          string    `json:"id"`
	ExecutionID string    `json:"execution_id"`
	FromStep    int       `json:"from_step"`
	Attempt     int       `json:"attempt"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	FireAt      time.Time `json:"fire_at"`
}

// NewJob builds a job firing no earlier than delay from now.
func NewJob(executionID string, fromStep int, delay time.Duration) Job {
	now := time.Now().UTC()

	return Job{
		ID:          uuid.New().String(),
		ExecutionID: executionID,
		FromStep:    fromStep,
		EnqueuedAt:  now,
		FireAt:      now.Add(delay),
	}
}

// Handler processes one job. A non-nil error triggers the queue's retry and
// dead-letter policy; the orchestrator does not retry internally.
type Handler func(ctx context.Context, job Job) error

// Queue schedules and delivers execution jobs. Delivery is at-least-once and
// a given execution's jobs are issued to one worker at a time by construction
// (resume jobs are only enqueued after the prior invocation returned).
type Queue interface {
	// EnqueueExecution schedules an immediate run job for the execution.
	EnqueueExecution(ctx context.Context, executionID string) error
	// EnqueueDelayedExecution schedules a resume job to fire no earlier than
	// delay from now, carrying the node order to resume from.
	EnqueueDelayedExecution(ctx context.Context, executionID string, fromStep int, delay time.Duration) error

	// Dequeue blocks until a due job is available or the context is done.
	Dequeue(ctx context.Context) (*Job, error)
	// Retry re-schedules a failed job to fire after the backoff.
	Retry(ctx context.Context, job Job, backoff time.Duration) error
	// DeadLetter moves a job that exhausted its attempts to the dead-letter
	// state for manual inspection.
	DeadLetter(ctx context.Context, job Job, cause error) error

	Close() error
}
