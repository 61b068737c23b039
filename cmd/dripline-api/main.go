// Package main provides the Dripline API server implementation.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/driplinehq/dripline/pkg/cmd"
	"github.com/driplinehq/dripline/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "dripline-api",
		EnableShellCompletion: true,
		Usage:                 "Start the Dripline REST API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   8080,
				Sources: cli.EnvVars("PORT"),
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
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("dripline-api")
			logger.InfoContext(ctx, "Initializing Dripline API")

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

			api := NewAPI(logger, persistence, jobQueue)

			return api.Start(int(command.Int("port")))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
