package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"overseer/internal/types"
)

const defaultBaseURL = "http://127.0.0.1:7979"

// Client talks to the local daemon. The daemon binds loopback only, so
// requests carry no credentials.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitChat starts a stream; any in-flight one is cancelled first.
func (c *Client) SubmitChat(ctx context.Context, req ChatRequest) (string, error) {
	var resp ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

func (c *Client) History(ctx context.Context) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/history", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ClearHistory(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/chat/history", nil, nil)
}

func (c *Client) AbortStream(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/stream/abort", struct{}{}, nil)
}

func (c *Client) StreamActive(ctx context.Context) (bool, error) {
	var resp StreamStatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/stream/status", nil, &resp); err != nil {
		return false, err
	}
	return resp.Active, nil
}

func (c *Client) ListProviders(ctx context.Context) ([]ProviderInfo, error) {
	var resp ProvidersResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/providers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Providers, nil
}

func (c *Client) PendingConfirmations(ctx context.Context) (*ConfirmationsResponse, error) {
	var resp ConfirmationsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/confirmations", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResolveConfirmation(ctx context.Context, id string, approved bool) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errors.New("confirmation id is required")
	}
	var resp ResolveConfirmationResponse
	payload := map[string]bool{"approved": approved}
	if err := c.doJSON(ctx, http.MethodPost, "/api/confirmations/"+id, payload, &resp); err != nil {
		return false, err
	}
	return resp.Found, nil
}

func (c *Client) ApproveAllConfirmations(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/confirmations/approve-all", struct{}{}, nil)
}

func (c *Client) RejectAllConfirmations(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/confirmations/reject-all", struct{}{}, nil)
}

func (c *Client) SetAutoApprove(ctx context.Context, category string, enabled bool) error {
	payload := map[string]any{"category": category, "enabled": enabled}
	return c.doJSON(ctx, http.MethodPost, "/api/confirmations/auto-approve", payload, nil)
}

func (c *Client) Comparison(ctx context.Context) (*ComparisonResponse, error) {
	var resp ComparisonResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/comparison", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddComparisonRun starts a comparison (when req.Prompt is set and none
// is in progress) or adds another run to the one in progress.
func (c *Client) AddComparisonRun(ctx context.Context, req ComparisonRunRequest) (*ComparisonRunResponse, error) {
	var resp ComparisonRunResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/comparison/runs", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SwitchComparisonRun(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/comparison/runs/"+id+"/switch", struct{}{}, nil)
}

func (c *Client) SelectComparisonRun(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/comparison/runs/"+id+"/select", struct{}{}, nil)
}

func (c *Client) CompleteComparisonRun(ctx context.Context, id string, req CompleteRunRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/comparison/runs/"+id+"/complete", req, nil)
}

func (c *Client) DeleteComparisonRun(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/comparison/runs/"+id, nil, nil)
}

func (c *Client) AbortComparison(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/comparison/abort", struct{}{}, nil)
}

func (c *Client) DevServerState(ctx context.Context) (*types.DevServerState, error) {
	var state types.DevServerState
	if err := c.doJSON(ctx, http.MethodGet, "/api/devserver/status", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) StartDevServer(ctx context.Context) (*types.DevServerState, error) {
	var state types.DevServerState
	if err := c.doJSON(ctx, http.MethodPost, "/api/devserver/start", struct{}{}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) StopDevServer(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/devserver/stop", struct{}{}, nil)
}

func (c *Client) RestartDevServer(ctx context.Context) (*types.DevServerState, error) {
	var state types.DevServerState
	if err := c.doJSON(ctx, http.MethodPost, "/api/devserver/restart", struct{}{}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) DevServerLogs(ctx context.Context) ([]LogLine, error) {
	var resp DevServerLogsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/devserver/logs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Lines, nil
}

func (c *Client) ShutdownDaemon(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/shutdown", struct{}{}, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error string `json:"error"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
