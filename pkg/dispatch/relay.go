package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// RelayDispatcher talks to the email relay service over HTTP.
type RelayDispatcher struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewRelayDispatcher(baseURL string, logger *slog.Logger) *RelayDispatcher {
	return &RelayDispatcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger.With("module", "relay_dispatcher"),
	}
}

type renderRequest struct {
	WorkspaceID string            `json:"workspace_id"`
	WorkflowID  string            `json:"workflow_id"`
	LeadID      string            `json:"lead_id"`
	TemplateRef string            `json:"template_ref"`
	Variables   map[string]string `json:"variables"`
}

type renderResponse struct {
	Body string `json:"body"`
}

func (d *RelayDispatcher) BuildFromTemplate(ctx context.Context, workspaceID, workflowID, leadID, templateRef string, variables map[string]string) (string, error) {
	payload := renderRequest{
		WorkspaceID: workspaceID,
		WorkflowID:  workflowID,
		LeadID:      leadID,
		TemplateRef: templateRef,
		Variables:   variables,
	}

	var rendered renderResponse

	err := d.post(ctx, "/v1/templates/render", payload, &rendered)
	if err != nil {
		return "", err
	}

	return rendered.Body, nil
}

type sendRequest struct {
	WorkspaceID string `json:"workspace_id"`

	Message
}

func (d *RelayDispatcher) Send(ctx context.Context, workspaceID string, message Message) error {
	d.logger.InfoContext(ctx, "Sending email via relay", "workspace_id", workspaceID, "to", message.To)

	return d.post(ctx, "/v1/messages", sendRequest{WorkspaceID: workspaceID, Message: message}, nil)
}

func (d *RelayDispatcher) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal relay request: %w", ErrDispatch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to build relay request: %w", ErrDispatch, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: relay request to %s failed: %w", ErrDispatch, path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return fmt.Errorf("%w: relay returned %d for %s: %s", ErrDispatch, resp.StatusCode, path, detail)
	}

	if out == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("%w: failed to decode relay response: %w", ErrDispatch, err)
	}

	return nil
}
