// Package session owns the active conversation: the ordered message
// history and the (model, provider) pairing that produced it. There is
// exactly one session per daemon process; it is reset in place, never
// replaced.
package session

import (
	"sync"

	"overseer/internal/logging"
	"overseer/internal/store"
	"overseer/internal/types"
)

// StatefulExternalPolicy reports whether a provider keeps its own
// conversation state outside the caller's transcript. Switching into or
// out of such a provider invalidates the held history.
type StatefulExternalPolicy func(providerID string) bool

// HistoryStore is the optional persistence hook for session restore.
type HistoryStore interface {
	Load() (*store.HistorySnapshot, bool, error)
	Save(snapshot *store.HistorySnapshot) error
	Clear() error
}

type Store struct {
	mu         sync.Mutex
	modelID    string
	providerID string
	messages   []types.Message
	stateful   StatefulExternalPolicy
	history    HistoryStore
	logger     logging.Logger
}

func New(stateful StatefulExternalPolicy, history HistoryStore, logger logging.Logger) *Store {
	if stateful == nil {
		stateful = func(string) bool { return false }
	}
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Store{stateful: stateful, history: history, logger: logger}
	s.restore()
	return s
}

func (s *Store) restore() {
	if s.history == nil {
		return
	}
	snapshot, ok, err := s.history.Load()
	if err != nil {
		s.logger.Warn("history_restore_failed", logging.F("error", err))
		return
	}
	if !ok {
		return
	}
	s.modelID = snapshot.ModelID
	s.providerID = snapshot.ProviderID
	s.messages = append([]types.Message{}, snapshot.Messages...)
	s.logger.Info("history_restored",
		logging.F("provider", snapshot.ProviderID),
		logging.F("model", snapshot.ModelID),
		logging.F("messages", len(snapshot.Messages)),
	)
}

// Bind points the session at a (model, provider) pairing, deciding
// whether the held history survives the switch. History is dropped when
// the outgoing or the incoming provider is stateful-external; switching
// between two ordinary providers preserves it.
func (s *Store) Bind(modelID, providerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.modelID == modelID && s.providerID == providerID {
		return
	}
	sameProvider := s.providerID == providerID
	crossesStateful := !sameProvider &&
		(s.stateful(s.providerID) || s.stateful(providerID))
	if crossesStateful {
		s.logger.Info("session_reset_on_switch",
			logging.F("from", s.providerID),
			logging.F("to", providerID),
		)
		s.messages = nil
	}
	s.modelID = modelID
	s.providerID = providerID
	s.persistLocked()
}

// AppendUser records a user turn. Callers must only do this for turns
// that produced at least one assistant response, so the history never
// ends with an orphan user message.
func (s *Store) AppendUser(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, types.UserMessage(content))
	s.persistLocked()
}

// AppendResponses records the assistant messages of a completed turn.
func (s *Store) AppendResponses(messages []types.Message) {
	if len(messages) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, messages...)
	s.persistLocked()
}

// MessagesFor returns the history to send for a new turn: the stored
// history with any trailing run of user messages stripped, plus the new
// user message. The strip repairs a transcript whose previous turn was
// aborted before any assistant output existed.
func (s *Store) MessagesFor(newUserContent string) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := len(s.messages)
	for end > 0 && s.messages[end-1].Role == types.RoleUser {
		end--
	}
	out := make([]types.Message, 0, end+1)
	out = append(out, s.messages[:end]...)
	out = append(out, types.UserMessage(newUserContent))
	return out
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	if s.history != nil {
		if err := s.history.Clear(); err != nil {
			s.logger.Warn("history_clear_failed", logging.F("error", err))
		}
	}
}

// History returns a copy of the stored messages.
func (s *Store) History() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Message{}, s.messages...)
}

// Pairing returns the active (model, provider) ids.
func (s *Store) Pairing() (modelID, providerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelID, s.providerID
}

func (s *Store) persistLocked() {
	if s.history == nil {
		return
	}
	snapshot := &store.HistorySnapshot{
		ModelID:    s.modelID,
		ProviderID: s.providerID,
		Messages:   append([]types.Message{}, s.messages...),
	}
	if err := s.history.Save(snapshot); err != nil {
		s.logger.Warn("history_persist_failed", logging.F("error", err))
	}
}
