// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrStepNotFound indicates an execution step was not found by the given identifier.
	ErrStepNotFound = errors.New("execution step not found")

	// ErrLeadNotFound indicates a lead was not found by the given identifier.
	ErrLeadNotFound = errors.New("lead not found")
)

// StoreError wraps persistence errors with operation and entity context.
type StoreError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Save")
	Entity   string // Entity kind ("workflow", "execution", "step", "lead")
	EntityID string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.EntityID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, entity, entityID string, err error) *StoreError {
	return &StoreError{Op: op, Entity: entity, EntityID: entityID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsLeadNotFound checks if an error indicates a lead was not found.
func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

// IsNotFound checks if an error indicates any entity was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrStepNotFound) ||
		errors.Is(err, ErrLeadNotFound)
}
