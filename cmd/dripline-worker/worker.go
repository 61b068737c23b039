package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/driplinehq/dripline/pkg/conditions"
	"github.com/driplinehq/dripline/pkg/dispatch"
	"github.com/driplinehq/dripline/pkg/engine"
	"github.com/driplinehq/dripline/pkg/eventbus"
	"github.com/driplinehq/dripline/pkg/otelhelper"
	"github.com/driplinehq/dripline/pkg/persistence"
	"github.com/driplinehq/dripline/pkg/queue"
)

// Executions still marked running this long after their last update are
// considered abandoned by a dead worker and re-enqueued by the sweeper.
const stuckThreshold = 10 * time.Minute

const sweepSchedule = "@every 1m"

type WorkerConfig struct {
	WorkerID    string
	Persistence persistence.Persistence
	Queue       queue.Queue
	EventBus    eventbus.EventBus
	RelayURL    string
	Concurrency int
	Logger      *slog.Logger
}

// Worker wires the orchestrator to the job queue and runs the stale-execution
// sweeper alongside it.
type Worker struct {
	config WorkerConfig
	logger *slog.Logger
}

func NewWorker(config WorkerConfig) *Worker {
	return &Worker{
		config: config,
		logger: config.Logger,
	}
}

// Run blocks until the context is cancelled or a termination signal arrives.
func (w *Worker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		sig := <-sigChan
		w.logger.InfoContext(ctx, "Received shutdown signal", "signal", sig.String())
		cancel()
	}()

	orchestratorOpts := []engine.Option{engine.WithWorkerID(w.config.WorkerID)}

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tracer, err := otelhelper.NewTracer(ctx, "dripline-worker")
		if err != nil {
			w.logger.WarnContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			orchestratorOpts = append(orchestratorOpts, engine.WithTracer(tracer))
		}
	}

	orchestrator := engine.NewOrchestrator(
		w.config.Persistence,
		dispatch.NewRelayDispatcher(w.config.RelayURL, w.logger),
		w.config.Queue,
		conditions.NewEvaluator(w.logger),
		w.config.EventBus,
		w.logger,
		orchestratorOpts...,
	)

	runnerOpts := []queue.RunnerOption{}
	if w.config.Concurrency > 0 {
		runnerOpts = append(runnerOpts, queue.WithConcurrency(w.config.Concurrency))
	}

	runner := queue.NewRunner(w.config.Queue, func(ctx context.Context, job queue.Job) error {
		return orchestrator.Execute(ctx, job.ExecutionID, job.FromStep)
	}, w.logger, runnerOpts...)

	sweeper, err := w.startSweeper(ctx)
	if err != nil {
		return err
	}

	defer func() {
		<-sweeper.Stop().Done()
	}()

	w.logger.InfoContext(ctx, "Worker started", "queue_concurrency", w.config.Concurrency)

	runner.Start(ctx)

	w.logger.InfoContext(ctx, "Worker stopped")

	return nil
}

// startSweeper re-enqueues executions abandoned mid-run. Re-delivery is safe:
// the orchestrator refuses terminal executions and the step ledger's
// completed-node guard prevents duplicate email dispatch.
func (w *Worker) startSweeper(ctx context.Context) (*cron.Cron, error) {
	sweeper := cron.New()

	_, err := sweeper.AddFunc(sweepSchedule, func() {
		w.sweep(ctx)
	})
	if err != nil {
		return nil, err
	}

	sweeper.Start()

	return sweeper, nil
}

func (w *Worker) sweep(ctx context.Context) {
	stuck, err := w.config.Persistence.Executions().ListStuck(ctx, time.Now().UTC().Add(-stuckThreshold))
	if err != nil {
		w.logger.ErrorContext(ctx, "Sweeper failed to list stuck executions", "error", err)

		return
	}

	for _, execution := range stuck {
		w.logger.WarnContext(ctx, "Re-enqueuing stuck execution",
			"execution_id", execution.ID, "updated_at", execution.UpdatedAt)

		err = w.config.Queue.EnqueueExecution(ctx, execution.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to re-enqueue stuck execution",
				"execution_id", execution.ID, "error", err)
		}
	}
}
