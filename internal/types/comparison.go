package types

import "time"

type ComparisonPhase string

const (
	ComparisonPhaseInitial   ComparisonPhase = "initial"
	ComparisonPhaseBuilding  ComparisonPhase = "building"
	ComparisonPhaseComparing ComparisonPhase = "comparing"
)

type RunStatus string

const (
	RunStatusBuilding RunStatus = "building"
	RunStatusSuccess  RunStatus = "success"
	RunStatusFailed   RunStatus = "failed"
)

// ComparisonRun is one candidate build attempt, backed by its own git
// branch cut from the comparison baseline.
type ComparisonRun struct {
	ID            string     `json:"id"`
	BranchName    string     `json:"branch_name"`
	ModelID       string     `json:"model_id"`
	ModelLabel    string     `json:"model_label,omitempty"`
	ProviderID    string     `json:"provider_id"`
	ProviderLabel string     `json:"provider_label,omitempty"`
	Status        RunStatus  `json:"status"`
	Prompt        string     `json:"prompt"`
	CreatedAt     time.Time  `json:"created_at"`
	DurationMs    int64      `json:"duration_ms,omitempty"`
	TokenUsage    *TokenUsage `json:"token_usage,omitempty"`
}

type TokenUsage struct {
	Input  int64 `json:"input,omitempty"`
	Output int64 `json:"output,omitempty"`
}

// ComparisonState is the singleton comparison document persisted under
// the project state directory. BaselineBranch records the line of
// development to return to when the comparison is finalized or aborted.
type ComparisonState struct {
	Phase          ComparisonPhase  `json:"phase"`
	BaselineRef    string           `json:"baseline_ref"`
	BaselineBranch string           `json:"baseline_branch"`
	OriginalPrompt string           `json:"original_prompt"`
	Runs           []*ComparisonRun `json:"runs"`
	ActiveRunID    string           `json:"active_run_id,omitempty"`
}

func (s *ComparisonState) Run(id string) *ComparisonRun {
	if s == nil {
		return nil
	}
	for _, run := range s.Runs {
		if run.ID == id {
			return run
		}
	}
	return nil
}

func (s *ComparisonState) BuildingRun() *ComparisonRun {
	if s == nil {
		return nil
	}
	for _, run := range s.Runs {
		if run.Status == RunStatusBuilding {
			return run
		}
	}
	return nil
}
