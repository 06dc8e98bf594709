package client

import (
	"time"

	"overseer/internal/types"
)

type HealthResponse struct {
	OK       bool   `json:"ok"`
	Version  string `json:"version"`
	PID      int    `json:"pid"`
	UptimeMs int64  `json:"uptime_ms"`
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

type HistoryResponse struct {
	Messages   []types.Message `json:"messages"`
	ModelID    string          `json:"model_id"`
	ProviderID string          `json:"provider_id"`
}

type StreamStatusResponse struct {
	Active bool `json:"active"`
}

type ProviderInfo struct {
	ID               string   `json:"id"`
	Label            string   `json:"label"`
	DefaultModel     string   `json:"default_model,omitempty"`
	Models           []string `json:"models,omitempty"`
	StatefulExternal bool     `json:"stateful_external"`
}

type ProvidersResponse struct {
	Providers []ProviderInfo `json:"providers"`
}

type ConfirmationsResponse struct {
	Confirmations []*types.Confirmation `json:"confirmations"`
	AutoApprove   map[string]bool       `json:"auto_approve"`
}

type ResolveConfirmationResponse struct {
	Found bool `json:"found"`
}

type ComparisonResponse struct {
	Active     bool                   `json:"active"`
	Comparison *types.ComparisonState `json:"comparison"`
}

type ComparisonRunRequest struct {
	Prompt        string `json:"prompt,omitempty"`
	ModelID       string `json:"model_id"`
	ModelLabel    string `json:"model_label,omitempty"`
	ProviderID    string `json:"provider_id"`
	ProviderLabel string `json:"provider_label,omitempty"`
}

type ComparisonRunResponse struct {
	Comparison *types.ComparisonState `json:"comparison,omitempty"`
	Run        *types.ComparisonRun   `json:"run,omitempty"`
}

type CompleteRunRequest struct {
	Success    bool              `json:"success"`
	DurationMs int64             `json:"duration_ms,omitempty"`
	TokenUsage *types.TokenUsage `json:"token_usage,omitempty"`
}

type LogLine struct {
	Line string    `json:"line"`
	At   time.Time `json:"at"`
}

type DevServerLogsResponse struct {
	Lines []LogLine `json:"lines"`
}
