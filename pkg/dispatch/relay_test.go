package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, handler http.HandlerFunc) *RelayDispatcher {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewRelayDispatcher(server.URL, logger)
}

func TestBuildFromTemplate(t *testing.T) {
	ctx := context.Background()

	dispatcher := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/templates/render", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req renderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ws-1", req.WorkspaceID)
		assert.Equal(t, "tpl-intro", req.TemplateRef)
		assert.Equal(t, "Ada", req.Variables["first_name"])

		require.NoError(t, json.NewEncoder(w).Encode(renderResponse{Body: "<p>Hello Ada</p>"}))
	})

	body, err := dispatcher.BuildFromTemplate(ctx, "ws-1", "wf-1", "lead-1", "tpl-intro", map[string]string{"first_name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello Ada</p>", body)
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	var got sendRequest

	dispatcher := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	})

	message := Message{To: "ada@example.com", Subject: "Hello Ada", HTMLBody: "<p>Hello</p>"}
	require.NoError(t, dispatcher.Send(ctx, "ws-1", message))

	assert.Equal(t, "ws-1", got.WorkspaceID)
	assert.Equal(t, "ada@example.com", got.To)
	assert.Equal(t, "Hello Ada", got.Subject)
}

func TestSend_RelayFailureIsDispatchError(t *testing.T) {
	ctx := context.Background()

	dispatcher := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "relay unavailable", http.StatusBadGateway)
	})

	err := dispatcher.Send(ctx, "ws-1", Message{To: "ada@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDispatch))
	assert.Contains(t, err.Error(), "502")
}

func TestBuildFromTemplate_ConnectionRefusedIsDispatchError(t *testing.T) {
	ctx := context.Background()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	dispatcher := NewRelayDispatcher("http://127.0.0.1:1", logger)

	_, err := dispatcher.BuildFromTemplate(ctx, "ws-1", "wf-1", "lead-1", "tpl-intro", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDispatch))
}
