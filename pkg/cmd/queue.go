package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/driplinehq/dripline/pkg/queue"
	"github.com/driplinehq/dripline/pkg/queue/memory"
	"github.com/driplinehq/dripline/pkg/queue/redisqueue"
)

// NewQueue creates a job queue from the queue URL scheme. redis:// selects
// the durable Redis queue; anything else falls back to the in-memory queue,
// which loses pending delays on restart and is only suitable for development.
func NewQueue(ctx context.Context, logger *slog.Logger, queueURL string) queue.Queue {
	switch parseScheme(queueURL) {
	case "redis", "rediss":
		q, err := redisqueue.NewQueue(ctx, logger, queueURL)
		if err != nil {
			panic(fmt.Errorf("failed to create Redis queue: %w", err))
		}

		return q
	default:
		return memory.NewQueue()
	}
}
