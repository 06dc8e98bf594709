package ui

import (
	"strings"
	"testing"

	"overseer/internal/types"
)

func TestApplyEventAssemblesTranscript(t *testing.T) {
	m := NewModel(nil)

	m.applyEvent(types.StreamEvent{Type: types.EventTypeDelta, Delta: "dark "})
	m.applyEvent(types.StreamEvent{Type: types.EventTypeDelta, Delta: "mode"})
	if !m.streaming {
		t.Fatalf("expected streaming while deltas arrive")
	}
	m.applyEvent(types.StreamEvent{Type: types.EventTypeEnd})

	if m.streaming {
		t.Fatalf("expected streaming to stop at terminal event")
	}
	if len(m.transcript) != 1 || m.transcript[0].content != "dark mode" {
		t.Fatalf("unexpected transcript: %+v", m.transcript)
	}
	if m.transcript[0].role != "assistant" {
		t.Fatalf("unexpected role %q", m.transcript[0].role)
	}
}

func TestApplyEventErrorDiscardsPartial(t *testing.T) {
	m := NewModel(nil)

	m.applyEvent(types.StreamEvent{Type: types.EventTypeDelta, Delta: "half a thou"})
	m.applyEvent(types.StreamEvent{Type: types.EventTypeError, Error: "provider exploded"})
	m.applyEvent(types.StreamEvent{Type: types.EventTypeEnd})

	if len(m.transcript) != 1 {
		t.Fatalf("unexpected transcript: %+v", m.transcript)
	}
	if m.transcript[0].role != "error" || m.transcript[0].content != "provider exploded" {
		t.Fatalf("unexpected entry: %+v", m.transcript[0])
	}
}

func TestLastAssistantSkipsOtherRoles(t *testing.T) {
	m := NewModel(nil)
	m.transcript = []entry{
		{role: "assistant", content: "first"},
		{role: "user", content: "question"},
		{role: "tool", content: "output"},
	}
	if got := m.lastAssistant(); got != "first" {
		t.Fatalf("expected %q, got %q", "first", got)
	}
}

func TestTruncateFlattensNewlines(t *testing.T) {
	got := truncate("line one\nline two", 12)
	if got != "line one li…" {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestDevStatusLabelPerState(t *testing.T) {
	m := NewModel(nil)

	m.dev = types.DevServerState{Status: types.DevServerRunning, Port: 3000}
	if got := m.devStatus(); !strings.Contains(got, "app :3000") {
		t.Fatalf("unexpected running label %q", got)
	}

	for _, status := range []types.DevServerStatus{
		types.DevServerStarting,
		types.DevServerRestarting,
		types.DevServerCrashed,
		types.DevServerStopped,
	} {
		m.dev = types.DevServerState{Status: status}
		if got := m.devStatus(); !strings.Contains(got, string(status)) {
			t.Fatalf("label %q does not name status %q", got, status)
		}
	}
}
