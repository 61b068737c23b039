package file

import (
	"context"
	"time"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence"
)

const leadsDir = "leads"

type LeadRepository struct {
	persistence *Persistence
}

func (r *LeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead

	found, err := r.persistence.read(leadsDir, id, &lead)
	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "lead", id, err)
	}

	if !found {
		return nil, persistence.NewStoreError("GetByID", "lead", id, persistence.ErrLeadNotFound)
	}

	return &lead, nil
}

func (r *LeadRepository) Save(ctx context.Context, lead *models.Lead) error {
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}

	lead.UpdatedAt = now

	err := r.persistence.write(leadsDir, lead.ID, lead)
	if err != nil {
		return persistence.NewStoreError("Save", "lead", lead.ID, err)
	}

	return nil
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id string, status models.LeadStatus) error {
	lead, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	lead.Status = status

	return r.Save(ctx, lead)
}

func (r *LeadRepository) TouchLastEmailSent(ctx context.Context, id string, sentAt time.Time) error {
	lead, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	lead.LastEmailSentAt = &sentAt

	return r.Save(ctx, lead)
}
