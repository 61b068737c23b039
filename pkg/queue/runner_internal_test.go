package queue

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffFor_DoublesPerAttempt(t *testing.T) {
	runner := NewRunner(nil, nil, slog.New(slog.NewTextHandler(os.Stdout, nil)),
		WithBaseBackoff(30*time.Second))

	assert.Equal(t, 30*time.Second, runner.backoffFor(0))
	assert.Equal(t, 60*time.Second, runner.backoffFor(1))
	assert.Equal(t, 120*time.Second, runner.backoffFor(2))
}
