package eventbus_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driplinehq/dripline/pkg/channels/gochannel"
	"github.com/driplinehq/dripline/pkg/eventbus"
	"github.com/driplinehq/dripline/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	logger := watermill.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	pub, sub, err := gochannel.CreateTestChannel(logger)
	require.NoError(t, err)

	return eventbus.NewWatermillEventBus(pub, sub)
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan any, 1)

	require.NoError(t, bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, "wf-1"),
		ExecutionID:   "exec-1",
		DurationMs:    1200,
		StepsExecuted: 4,
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", sent))

	select {
	case event := <-received:
		completed, ok := event.(*events.ExecutionCompleted)
		require.True(t, ok)
		assert.Equal(t, "exec-1", completed.ExecutionID)
		assert.Equal(t, 4, completed.StepsExecuted)
		assert.Equal(t, "wf-1", completed.WorkflowID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledEventIsAcked(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for this type; publishing must not block.
	event := events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, "wf-1"),
		ExecutionID: "exec-1",
		LeadID:      "lead-1",
	}
	assert.NoError(t, bus.Publish(ctx, "wf-1", event))
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
