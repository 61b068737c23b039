// Package engine implements the workflow execution orchestrator.
package engine

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. NotFound surfaces through the persistence sentinels
// and transient dispatch failures through dispatch.ErrDispatch; the sentinels
// below are the engine-level failure classes, all fatal for the run.
var (
	// ErrConfiguration indicates missing or invalid node/workflow config,
	// e.g. no resolvable email template. Fatal, surfaced to operators.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedCondition indicates a condition kind the evaluator does
	// not know. Fatal: a silent default could mis-route a lead.
	ErrUnsupportedCondition = errors.New("unsupported condition")

	// ErrInvariantViolation indicates a data-integrity bug, e.g. an
	// execution with no associated lead. Fatal.
	ErrInvariantViolation = errors.New("invariant violation")
)

// StepError wraps a node handler failure with execution and node context.
type StepError struct {
	ExecutionID string
	NodeID      string
	NodeType    string
	Err         error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s (%s) failed in execution %s: %v", e.NodeID, e.NodeType, e.ExecutionID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsUnsupportedCondition checks if an error is an unsupported-condition error.
func IsUnsupportedCondition(err error) bool {
	return errors.Is(err, ErrUnsupportedCondition)
}

// IsInvariantViolation checks if an error is an invariant violation.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
