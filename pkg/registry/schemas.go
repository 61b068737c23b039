package registry

import (
	"github.com/driplinehq/dripline/pkg/conditions"
	"github.com/driplinehq/dripline/pkg/models"
)

// nodeConfigSchemas returns the JSON schema for each node type's config.
// Every schema allows the config to be omitted entirely; workflow-level
// defaults fill the gaps at execution time.
func nodeConfigSchemas() map[models.NodeType]map[string]any {
	return map[models.NodeType]map[string]any{
		models.NodeTypeTrigger: {
			"type":                 "object",
			"additionalProperties": true,
		},
		models.NodeTypeSendEmail: {
			"type": "object",
			"properties": map[string]any{
				"template_id": map[string]any{
					"type":      "string",
					"minLength": 1,
				},
				"subject": map[string]any{
					"type":      "string",
					"minLength": 1,
				},
			},
			"additionalProperties": true,
		},
		models.NodeTypeSendFollowup: {
			"type": "object",
			"properties": map[string]any{
				"template_id": map[string]any{
					"type":      "string",
					"minLength": 1,
				},
				"subject": map[string]any{
					"type":      "string",
					"minLength": 1,
				},
			},
			"additionalProperties": true,
		},
		models.NodeTypeDelay: {
			"type": "object",
			"properties": map[string]any{
				"delay_days": map[string]any{
					"type":    "integer",
					"minimum": 1,
				},
			},
			"additionalProperties": true,
		},
		models.NodeTypeCondition: {
			"type": "object",
			"properties": map[string]any{
				conditions.ConfigKeyCondition: map[string]any{
					"type": "string",
					"enum": []any{
						string(conditions.KindBudgetQualifies),
						string(conditions.KindReplyReceived),
						string(conditions.KindBookingCompleted),
					},
				},
				conditions.ConfigKeyMinBudget: map[string]any{
					"type":    "integer",
					"minimum": 0,
				},
			},
			"required":             []any{conditions.ConfigKeyCondition},
			"additionalProperties": true,
		},
		models.NodeTypeMarkFailed: {
			"type":                 "object",
			"additionalProperties": true,
		},
	}
}
