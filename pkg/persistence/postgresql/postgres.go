// Package postgresql provides PostgreSQL persistence for workflows,
// executions, steps and leads.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/driplinehq/dripline/pkg/persistence"
	"github.com/driplinehq/dripline/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	workflows  *WorkflowRepository
	executions *ExecutionRepository
	steps      *StepRepository
	leads      *LeadRepository
}

// NewPersistence connects to PostgreSQL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	postgres := &Persistence{
		db:     database,
		logger: logger,
	}
	postgres.workflows = &WorkflowRepository{db: database, logger: logger}
	postgres.executions = &ExecutionRepository{db: database, logger: logger}
	postgres.steps = &StepRepository{db: database, logger: logger}
	postgres.leads = &LeadRepository{db: database, logger: logger}

	return postgres, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) Executions() persistence.ExecutionRepository {
	return p.executions
}

func (p *Persistence) Steps() persistence.StepRepository {
	return p.steps
}

func (p *Persistence) Leads() persistence.LeadRepository {
	return p.leads
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
