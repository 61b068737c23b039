// Package mocks provides testify mocks for Dripline interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/driplinehq/dripline/pkg/dispatch"
)

// MockDispatcher is a mock implementation of dispatch.Dispatcher.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) BuildFromTemplate(
	ctx context.Context,
	workspaceID, workflowID, leadID, templateRef string,
	variables map[string]string,
) (string, error) {
	args := m.Called(ctx, workspaceID, workflowID, leadID, templateRef, variables)

	return args.String(0), args.Error(1)
}

func (m *MockDispatcher) Send(ctx context.Context, workspaceID string, message dispatch.Message) error {
	args := m.Called(ctx, workspaceID, message)

	return args.Error(0)
}
