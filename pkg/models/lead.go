package models

import (
	"strings"
	"time"
)

// LeadStatus marks where a lead stands in the outreach pipeline. The engine
// only ever writes the email markers and the terminal lost marker; the rest
// belong to surrounding CRUD code.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "NEW"
	LeadStatusEmailSent    LeadStatus = "EMAIL_SENT"
	LeadStatusFollowUpSent LeadStatus = "FOLLOW_UP_SENT"
	LeadStatusReplied      LeadStatus = "REPLIED"
	LeadStatusBooked       LeadStatus = "BOOKED"
	LeadStatusLost         LeadStatus = "LOST"
)

// Lead is the prospect a workflow execution acts on behalf of.
type Lead struct {
	ID                 string     `json:"id"`
	WorkspaceID        string     `json:"workspace_id" validate:"required"`
	Email              string     `json:"email"        validate:"required,email"`
	Name               string     `json:"name"`
	CompanyName        string     `json:"company_name"`
	Budget             int64      `json:"budget"`
	Status             LeadStatus `json:"status"`
	LastEmailSentAt    *time.Time `json:"last_email_sent_at,omitempty"`
	RepliedAt          *time.Time `json:"replied_at,omitempty"`
	BookingConfirmedAt *time.Time `json:"booking_confirmed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// FirstName returns the first token of the lead's name, or "there" when the
// name is empty, for use as the email greeting variable.
func (l *Lead) FirstName() string {
	name := strings.TrimSpace(l.Name)
	if name == "" {
		return "there"
	}

	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}

	return name
}
