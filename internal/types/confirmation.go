package types

import "time"

// ToolCategory groups risky tools for per-category auto-approval.
type ToolCategory string

const (
	ToolCategoryShell ToolCategory = "shell"
	ToolCategoryFile  ToolCategory = "file"
)

// Confirmation is a pending approve/reject request raised by a tool
// before it performs a risky operation.
type Confirmation struct {
	ID        string       `json:"id"`
	ToolName  string       `json:"tool_name"`
	Category  ToolCategory `json:"category"`
	Input     string       `json:"input,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
