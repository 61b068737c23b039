// Package registry holds the closed catalog of node types the engine can
// execute, along with JSON schemas for their configuration payloads.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/driplinehq/dripline/pkg/models"
)

// Registry validates workflow nodes against the schema registered for their
// type. The node type set is closed, so all schemas are registered at
// construction time.
type Registry struct {
	logger  *slog.Logger
	schemas map[models.NodeType]map[string]any
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		schemas: nodeConfigSchemas(),
	}
}

// NodeTypes returns the registered node types.
func (r *Registry) NodeTypes() []models.NodeType {
	types := make([]models.NodeType, 0, len(r.schemas))
	for nodeType := range r.schemas {
		types = append(types, nodeType)
	}

	return types
}

// SchemaFor returns the JSON schema for a node type's config payload.
func (r *Registry) SchemaFor(nodeType models.NodeType) (map[string]any, bool) {
	schema, ok := r.schemas[nodeType]

	return schema, ok
}

// ValidateNode checks the node's type and config against the registered
// schema. Unknown node types are rejected here even though the engine treats
// them as no-ops at run time: definitions should never carry them.
func (r *Registry) ValidateNode(node *models.WorkflowNode) error {
	schema, ok := r.schemas[node.Type]
	if !ok {
		return fmt.Errorf("node type '%s' not registered", node.Type)
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate node %s config: %w", node.GraphID, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			details = append(details, resultError.String())
		}

		return fmt.Errorf("node %s config invalid: %s", node.GraphID, strings.Join(details, "; "))
	}

	return nil
}

// ValidateWorkflow validates every node in the workflow and checks that edge
// endpoints reference existing nodes.
func (r *Registry) ValidateWorkflow(workflow *models.Workflow) error {
	for _, node := range workflow.Nodes {
		err := r.ValidateNode(node)
		if err != nil {
			return err
		}
	}

	for _, edge := range workflow.Edges {
		if _, ok := workflow.NodeByGraphID(edge.SourceID); !ok {
			return fmt.Errorf("edge %s references unknown source node '%s'", edge.ID, edge.SourceID)
		}

		if _, ok := workflow.NodeByGraphID(edge.TargetID); !ok {
			return fmt.Errorf("edge %s references unknown target node '%s'", edge.ID, edge.TargetID)
		}
	}

	return nil
}
