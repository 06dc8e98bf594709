package types

import "time"

// StreamEvent is one entry in a stream's end-to-end event sequence, from
// the first delta through the terminal marker. Events are fanned out to
// every attached listener and mirrored to reconnecting ones.
type StreamEvent struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id,omitempty"`
	Delta      string    `json:"delta,omitempty"`
	Message    *Message  `json:"message,omitempty"`
	ToolName   string    `json:"tool_name,omitempty"`
	ToolArgs   string    `json:"tool_args,omitempty"`
	ToolResult string    `json:"tool_result,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	EventTypeDelta      = "delta"
	EventTypeMessage    = "message"
	EventTypeToolCall   = "tool_call"
	EventTypeToolResult = "tool_result"
	EventTypeError      = "error"
	// EventTypeEnd is the terminal marker. Every stream emits exactly one,
	// including aborted and failed ones.
	EventTypeEnd = "end"
)

func EndEvent(requestID string) StreamEvent {
	return StreamEvent{Type: EventTypeEnd, RequestID: requestID, CreatedAt: time.Now().UTC()}
}

func ErrorEvent(requestID, message string) StreamEvent {
	return StreamEvent{Type: EventTypeError, RequestID: requestID, Error: message, CreatedAt: time.Now().UTC()}
}
