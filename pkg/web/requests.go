package web

import "github.com/driplinehq/dripline/pkg/models"

// CreateWorkflowRequest is the payload for creating a workflow definition.
// Nodes and edges are supplied inline; the whole graph is validated and saved
// as one unit.
type CreateWorkflowRequest struct {
	WorkspaceID string                 `json:"workspace_id" validate:"required"`
	Name        string                 `json:"name"         validate:"required,min=3"`
	Description string                 `json:"description"`
	Status      models.WorkflowStatus  `json:"status"       validate:"omitempty,oneof=draft active archived"`
	Nodes       []*models.WorkflowNode `json:"nodes"        validate:"dive,required"`
	Edges       []*models.WorkflowEdge `json:"edges"        validate:"dive,required"`
	Config      map[string]any         `json:"config"`
}

// CreateLeadRequest is the payload for registering a lead.
type CreateLeadRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required"`
	Email       string `json:"email"        validate:"required,email"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	Budget      int64  `json:"budget"       validate:"gte=0"`
}

// TriggerWorkflowRequest is the payload for starting an execution.
type TriggerWorkflowRequest struct {
	LeadID string `json:"lead_id" validate:"required"`
}
