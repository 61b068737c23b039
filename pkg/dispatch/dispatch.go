// Package dispatch defines the email-dispatch capability consumed by the
// engine. The actual sending service (relay, provider API) is external; this
// package holds the narrow interface plus the HTTP relay client.
package dispatch

import (
	"context"
	"errors"
)

// ErrDispatch indicates the email dispatch capability failed. Transient:
// the queue's retry policy re-runs the invocation.
var ErrDispatch = errors.New("email dispatch failed")

// IsDispatchError checks if an error is a transient dispatch error.
func IsDispatchError(err error) bool {
	return errors.Is(err, ErrDispatch)
}

// Message is one outbound email.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

// Dispatcher builds email bodies from workspace templates and sends them.
// Failures propagate as ErrDispatch-wrapped errors so the queue's retry
// policy treats them as transient.
type Dispatcher interface {
	BuildFromTemplate(ctx context.Context, workspaceID, workflowID, leadID, templateRef string, variables map[string]string) (string, error)
	Send(ctx context.Context, workspaceID string, message Message) error
}
