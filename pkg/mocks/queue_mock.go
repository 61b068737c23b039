package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/driplinehq/dripline/pkg/queue"
)

// MockQueue is a mock implementation of queue.Queue.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) EnqueueExecution(ctx context.Context, executionID string) error {
	args := m.Called(ctx, executionID)

	return args.Error(0)
}

func (m *MockQueue) EnqueueDelayedExecution(ctx context.Context, executionID string, fromStep int, delay time.Duration) error {
	args := m.Called(ctx, executionID, fromStep, delay)

	return args.Error(0)
}

func (m *MockQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*queue.Job), args.Error(1)
}

func (m *MockQueue) Retry(ctx context.Context, job queue.Job, backoff time.Duration) error {
	args := m.Called(ctx, job, backoff)

	return args.Error(0)
}

func (m *MockQueue) DeadLetter(ctx context.Context, job queue.Job, cause error) error {
	args := m.Called(ctx, job, cause)

	return args.Error(0)
}

func (m *MockQueue) Close() error {
	args := m.Called()

	return args.Error(0)
}
