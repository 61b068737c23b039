package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence"
)

// LeadRepository handles lead-related database operations.
type LeadRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *LeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	query := `
		SELECT
			id
		  , workspace_id
		  , email
		  , name
		  , company_name
		  , budget
		  , status
		  , last_email_sent_at
		  , replied_at
		  , booking_confirmed_at
		  , created_at
		  , updated_at
		FROM leads
		WHERE id = $1
	`

	var lead models.Lead

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lead.ID,
		&lead.WorkspaceID,
		&lead.Email,
		&lead.Name,
		&lead.CompanyName,
		&lead.Budget,
		&lead.Status,
		&lead.LastEmailSentAt,
		&lead.RepliedAt,
		&lead.BookingConfirmedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "lead", id, persistence.ErrLeadNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "lead", id, err)
	}

	return &lead, nil
}

func (r *LeadRepository) Save(ctx context.Context, lead *models.Lead) error {
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}

	lead.UpdatedAt = now

	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}

	query := `
		INSERT INTO leads (id, workspace_id, email, name, company_name, budget, status,
			last_email_sent_at, replied_at, booking_confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = EXCLUDED.workspace_id,
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			company_name = EXCLUDED.company_name,
			budget = EXCLUDED.budget,
			status = EXCLUDED.status,
			last_email_sent_at = EXCLUDED.last_email_sent_at,
			replied_at = EXCLUDED.replied_at,
			booking_confirmed_at = EXCLUDED.booking_confirmed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		lead.ID,
		lead.WorkspaceID,
		lead.Email,
		lead.Name,
		lead.CompanyName,
		lead.Budget,
		lead.Status,
		lead.LastEmailSentAt,
		lead.RepliedAt,
		lead.BookingConfirmedAt,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("Save", "lead", lead.ID, err)
	}

	return nil
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id string, status models.LeadStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE leads SET status = $2, updated_at = $3 WHERE id = $1",
		id, status, time.Now().UTC())
	if err != nil {
		return persistence.NewStoreError("UpdateStatus", "lead", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStoreError("UpdateStatus", "lead", id, persistence.ErrLeadNotFound)
	}

	return nil
}

func (r *LeadRepository) TouchLastEmailSent(ctx context.Context, id string, sentAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE leads SET last_email_sent_at = $2, updated_at = $3 WHERE id = $1",
		id, sentAt, time.Now().UTC())
	if err != nil {
		return persistence.NewStoreError("TouchLastEmailSent", "lead", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStoreError("TouchLastEmailSent", "lead", id, persistence.ErrLeadNotFound)
	}

	return nil
}
