package store

import (
	"path/filepath"
	"testing"

	"overseer/internal/types"
)

func TestHistoryStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s := NewFileHistoryStore(path)

	if _, ok, err := s.Load(); err != nil || ok {
		t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
	}
	if err := s.Save(nil); err == nil {
		t.Fatalf("expected error for nil snapshot")
	}

	snapshot := &HistorySnapshot{
		ModelID:    "sonnet",
		ProviderID: "anthropic",
		Messages: []types.Message{
			types.UserMessage("add a login form"),
			types.AssistantMessage("Done."),
		},
	}
	if err := s.Save(snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.ModelID != "sonnet" || loaded.ProviderID != "anthropic" {
		t.Fatalf("unexpected pairing %q/%q", loaded.ModelID, loaded.ProviderID)
	}
	if len(loaded.Messages) != 2 || loaded.Messages[1].Role != types.RoleAssistant {
		t.Fatalf("unexpected messages %+v", loaded.Messages)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := s.Load(); ok {
		t.Fatalf("expected cleared store")
	}
}
