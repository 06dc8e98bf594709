package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"overseer/internal/logging"
	"overseer/internal/store"
	"overseer/internal/types"
)

func statefulAgentCLI(providerID string) bool {
	return providerID == "agent-cli"
}

func newTestStore() *Store {
	return New(statefulAgentCLI, nil, logging.Nop())
}

func TestBindPreservesHistoryBetweenOrdinaryProviders(t *testing.T) {
	s := newTestStore()
	s.Bind("sonnet", "anthropic")
	s.AppendUser("hello")
	s.AppendResponses([]types.Message{types.AssistantMessage("hi")})

	s.Bind("gpt-5.1-codex", "openai")
	require.Len(t, s.History(), 2)

	model, provider := s.Pairing()
	require.Equal(t, "gpt-5.1-codex", model)
	require.Equal(t, "openai", provider)
}

func TestBindResetsAcrossStatefulExternalProvider(t *testing.T) {
	s := newTestStore()
	s.Bind("sonnet", "anthropic")
	s.AppendUser("hello")
	s.AppendResponses([]types.Message{types.AssistantMessage("hi")})

	// Switching into the stateful-external provider drops history.
	s.Bind("", "agent-cli")
	require.Empty(t, s.History())

	s.AppendUser("again")
	s.AppendResponses([]types.Message{types.AssistantMessage("sure")})

	// Switching back out drops it too.
	s.Bind("opus", "anthropic")
	require.Empty(t, s.History())
}

func TestBindSamePairingKeepsHistory(t *testing.T) {
	s := newTestStore()
	s.Bind("sonnet", "anthropic")
	s.AppendUser("hello")
	s.AppendResponses([]types.Message{types.AssistantMessage("hi")})
	s.Bind("sonnet", "anthropic")
	require.Len(t, s.History(), 2)
}

func TestMessagesForStripsTrailingUserRun(t *testing.T) {
	s := newTestStore()
	s.AppendUser("first")
	s.AppendResponses([]types.Message{types.AssistantMessage("reply")})
	// Simulate orphans from a crashed turn.
	s.AppendUser("orphan one")
	s.AppendUser("orphan two")

	msgs := s.MessagesFor("new prompt")
	require.Len(t, msgs, 3)
	require.Equal(t, types.RoleUser, msgs[0].Role)
	require.Equal(t, "first", msgs[0].Content)
	require.Equal(t, types.RoleAssistant, msgs[1].Role)
	require.Equal(t, "new prompt", msgs[2].Content)

	// Never two trailing user entries in what gets sent.
	require.NotEqual(t, msgs[len(msgs)-2].Role, msgs[len(msgs)-1].Role)
}

func TestMessagesForEmptyHistory(t *testing.T) {
	s := newTestStore()
	msgs := s.MessagesFor("prompt")
	require.Len(t, msgs, 1)
	require.Equal(t, "prompt", msgs[0].Content)
}

func TestPersistAndRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	history := store.NewFileHistoryStore(path)

	s := New(statefulAgentCLI, history, logging.Nop())
	s.Bind("sonnet", "anthropic")
	s.AppendUser("hello")
	s.AppendResponses([]types.Message{types.AssistantMessage("hi")})

	restored := New(statefulAgentCLI, history, logging.Nop())
	require.Len(t, restored.History(), 2)
	model, provider := restored.Pairing()
	require.Equal(t, "sonnet", model)
	require.Equal(t, "anthropic", provider)

	restored.Reset()
	require.Empty(t, restored.History())
	fresh := New(statefulAgentCLI, history, logging.Nop())
	require.Empty(t, fresh.History())
}
