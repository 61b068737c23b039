package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionStatus_Terminal(t *testing.T) {
	assert.True(t, ExecutionStatusCompleted.Terminal())
	assert.True(t, ExecutionStatusFailed.Terminal())
	assert.False(t, ExecutionStatusQueued.Terminal())
	assert.False(t, ExecutionStatusRunning.Terminal())
	assert.False(t, ExecutionStatusPaused.Terminal())
}

func TestExecutionStatus_Runnable(t *testing.T) {
	assert.True(t, ExecutionStatusQueued.Runnable())
	assert.True(t, ExecutionStatusRunning.Runnable())
	assert.True(t, ExecutionStatusPaused.Runnable())
	assert.False(t, ExecutionStatusCompleted.Runnable())
	assert.False(t, ExecutionStatusFailed.Runnable())
}

func TestLead_FirstName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ada Lovelace", "Ada"},
		{"Ada", "Ada"},
		{"  Grace Hopper  ", "Grace"},
		{"", "there"},
		{"   ", "there"},
	}

	for _, tt := range tests {
		lead := &Lead{Name: tt.name}
		assert.Equal(t, tt.want, lead.FirstName(), "name=%q", tt.name)
	}
}
