package queue_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driplinehq/dripline/pkg/queue"
	"github.com/driplinehq/dripline/pkg/queue/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// recordingHandler counts invocations and signals when enough have happened.
type recordingHandler struct {
	mu       sync.Mutex
	calls    []queue.Job
	failFor  int
	done     chan struct{}
	expected int
}

func newRecordingHandler(expected, failFor int) *recordingHandler {
	return &recordingHandler{
		failFor:  failFor,
		expected: expected,
		done:     make(chan struct{}),
	}
}

func (h *recordingHandler) handle(_ context.Context, job queue.Job) error {
	h.mu.Lock()
	h.calls = append(h.calls, job)
	calls := len(h.calls)
	h.mu.Unlock()

	if calls == h.expected {
		close(h.done)
	}

	if calls <= h.failFor {
		return errors.New("handler failed")
	}

	return nil
}

func (h *recordingHandler) jobs() []queue.Job {
	h.mu.Lock()
	defer h.mu.Unlock()

	jobs := make([]queue.Job, len(h.calls))
	copy(jobs, h.calls)

	return jobs
}

func runUntilDone(t *testing.T, runner *queue.Runner, done <-chan struct{}) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	finished := make(chan struct{})

	go func() {
		runner.Start(ctx)
		close(finished)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handler calls")
	}

	cancel()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for runner to drain")
	}
}

func TestRunner_ProcessesJob(t *testing.T) {
	q := memory.NewQueue()
	defer func() { _ = q.Close() }()

	handler := newRecordingHandler(1, 0)
	runner := queue.NewRunner(q, handler.handle, testLogger(), queue.WithConcurrency(1))

	require.NoError(t, q.EnqueueExecution(context.Background(), "exec-1"))

	runUntilDone(t, runner, handler.done)

	jobs := handler.jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "exec-1", jobs[0].ExecutionID)
	assert.Equal(t, 0, jobs[0].FromStep)
	assert.Equal(t, 0, jobs[0].Attempt)
}

func TestRunner_RetriesFailedJob(t *testing.T) {
	q := memory.NewQueue()
	defer func() { _ = q.Close() }()

	handler := newRecordingHandler(2, 1)
	runner := queue.NewRunner(q, handler.handle, testLogger(),
		queue.WithConcurrency(1),
		queue.WithMaxAttempts(3),
		queue.WithBaseBackoff(time.Millisecond))

	require.NoError(t, q.EnqueueExecution(context.Background(), "exec-1"))

	runUntilDone(t, runner, handler.done)

	jobs := handler.jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, 0, jobs[0].Attempt)
	assert.Equal(t, 1, jobs[1].Attempt)
	assert.Empty(t, q.DeadLetters())
}

func TestRunner_DeadLettersAfterMaxAttempts(t *testing.T) {
	q := memory.NewQueue()
	defer func() { _ = q.Close() }()

	handler := newRecordingHandler(2, 2)
	runner := queue.NewRunner(q, handler.handle, testLogger(),
		queue.WithConcurrency(1),
		queue.WithMaxAttempts(2),
		queue.WithBaseBackoff(time.Millisecond))

	require.NoError(t, q.EnqueueExecution(context.Background(), "exec-1"))

	runUntilDone(t, runner, handler.done)

	require.Len(t, handler.jobs(), 2)

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, "exec-1", dead[0].Job.ExecutionID)
	assert.Equal(t, 1, dead[0].Job.Attempt)
	assert.Contains(t, dead[0].Cause, "handler failed")
}

func TestMemoryQueue_DelayedJobFires(t *testing.T) {
	q := memory.NewQueue()
	defer func() { _ = q.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, q.EnqueueDelayedExecution(ctx, "exec-1", 4, 20*time.Millisecond))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "exec-1", job.ExecutionID)
	assert.Equal(t, 4, job.FromStep)
}

func TestMemoryQueue_CloseStopsDelivery(t *testing.T) {
	q := memory.NewQueue()

	require.NoError(t, q.EnqueueDelayedExecution(context.Background(), "exec-1", 2, time.Hour))
	require.NoError(t, q.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.Error(t, err)
}

func TestMemoryQueue_FullBufferErrorsInsteadOfBlocking(t *testing.T) {
	q := memory.NewQueue()
	defer func() { _ = q.Close() }()

	ctx := context.Background()

	// Fill the buffer with no consumer attached.
	for i := 0; i < 1024; i++ {
		require.NoError(t, q.EnqueueExecution(ctx, "exec-1"))
	}

	err := q.EnqueueExecution(ctx, "exec-overflow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer full")

	// The queue is still usable: draining one slot makes room again.
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "exec-1", job.ExecutionID)
	assert.NoError(t, q.EnqueueExecution(ctx, "exec-2"))
}

func TestNewJob_SetsFireTime(t *testing.T) {
	before := time.Now().UTC()
	job := queue.NewJob("exec-1", 3, time.Minute)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "exec-1", job.ExecutionID)
	assert.Equal(t, 3, job.FromStep)
	assert.False(t, job.FireAt.Before(before.Add(time.Minute)))
}
