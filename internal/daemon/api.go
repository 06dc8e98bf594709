package daemon

import (
	"context"
	"net/http"
	"strings"
	"time"

	"overseer/internal/comparison"
	"overseer/internal/devserver"
	"overseer/internal/gate"
	"overseer/internal/logging"
	"overseer/internal/providers"
	"overseer/internal/session"
	"overseer/internal/stream"
	"overseer/internal/types"
)

// ComparisonService mirrors the orchestrator's operations so handler
// tests can substitute a fake without a real git repository.
type ComparisonService interface {
	State() *types.ComparisonState
	Init(prompt, modelID, modelLabel, providerID, providerLabel string) (*types.ComparisonState, error)
	CreateRun(modelID, modelLabel, providerID, providerLabel string) (*types.ComparisonRun, error)
	SwitchRun(id string) error
	MarkComplete(id string, success bool, stats comparison.RunStats) error
	SelectRun(id string) error
	DeleteRun(id string) error
	Abort() error
}

// DevServerService is the process-supervisor surface the daemon exposes.
type DevServerService interface {
	Start() error
	Stop()
	Restart() error
	State() types.DevServerState
	RecentLogs() []devserver.LogLine
	SubscribeLogs() (<-chan devserver.LogLine, func())
}

type API struct {
	Version    string
	Started    time.Time
	Stream     *stream.Supervisor
	Session    *session.Store
	Gate       *gate.Gate
	Comparison ComparisonService
	DevServer  DevServerService
	Registry   *providers.Registry
	Shutdown   func(context.Context) error
	Logger     logging.Logger
}

type ChatRequest struct {
	Prompt     string `json:"prompt"`
	Context    string `json:"context,omitempty"`
	ModelID    string `json:"model_id,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
}

type ChatResponse struct {
	RequestID string `json:"request_id"`
}

type ResolveConfirmationRequest struct {
	Approved bool `json:"approved"`
}

type AutoApproveRequest struct {
	Category string `json:"category"`
	Enabled  bool   `json:"enabled"`
}

type ComparisonRunRequest struct {
	Prompt        string `json:"prompt,omitempty"`
	ModelID       string `json:"model_id"`
	ModelLabel    string `json:"model_label,omitempty"`
	ProviderID    string `json:"provider_id"`
	ProviderLabel string `json:"provider_label,omitempty"`
}

type CompleteRunRequest struct {
	Success    bool              `json:"success"`
	DurationMs int64             `json:"duration_ms,omitempty"`
	TokenUsage *types.TokenUsage `json:"token_usage,omitempty"`
}

func parseBoolQueryValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func isFollowRequest(r *http.Request) bool {
	return parseBoolQueryValue(r.URL.Query().Get("follow"))
}
