// Package main provides the Dripline worker: it consumes execution jobs from
// the queue and runs them through the orchestrator.
package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/driplinehq/dripline/pkg/cmd"
	"github.com/driplinehq/dripline/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "dripline-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute outreach workflow runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "queue-url",
				Usage:    "Queue connection URL (redis:// for durable, memory:// for development)",
				Required: true,
				Sources:  cli.EnvVars("QUEUE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "relay-url",
				Usage:    "Base URL of the email relay service",
				Required: true,
				Sources:  cli.EnvVars("RELAY_URL"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Number of concurrent job workers",
				Value:   0,
				Sources: cli.EnvVars("WORKER_CONCURRENCY"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("dripline-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Dripline Worker")

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			jobQueue := cmd.NewQueue(ctx, logger, command.String("queue-url"))
			defer func() {
				err := jobQueue.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close queue", "error", err)
				}
			}()

			worker := NewWorker(WorkerConfig{
				WorkerID:    workerID,
				Persistence: persistence,
				Queue:       jobQueue,
				EventBus:    eventBus,
				RelayURL:    command.String("relay-url"),
				Concurrency: int(command.Int("concurrency")),
				Logger:      logger,
			})

			return worker.Run(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
