package store

import (
	"errors"
	"os"
	"sync"

	"overseer/internal/types"
)

const historySchemaVersion = 1

// HistorySnapshot is the restorable view of the active session: which
// pairing produced the transcript and the transcript itself.
type HistorySnapshot struct {
	ModelID    string          `json:"model_id"`
	ProviderID string          `json:"provider_id"`
	Messages   []types.Message `json:"messages"`
}

// FileHistoryStore persists chat history for session restore across
// daemon restarts. Writes are best effort; the in-memory session is the
// source of truth.
type FileHistoryStore struct {
	path string
	mu   sync.Mutex
}

type historyFile struct {
	Version  int              `json:"version"`
	Snapshot *HistorySnapshot `json:"snapshot"`
}

func NewFileHistoryStore(path string) *FileHistoryStore {
	return &FileHistoryStore{path: path}
}

func (s *FileHistoryStore) Load() (*HistorySnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var file historyFile
	if err := readJSON(s.path, &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if file.Snapshot == nil {
		return nil, false, nil
	}
	if file.Snapshot.Messages == nil {
		file.Snapshot.Messages = []types.Message{}
	}
	return file.Snapshot, true, nil
}

func (s *FileHistoryStore) Save(snapshot *HistorySnapshot) error {
	if snapshot == nil {
		return errors.New("history snapshot is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.path, &historyFile{
		Version:  historySchemaVersion,
		Snapshot: snapshot,
	})
}

func (s *FileHistoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeIfExists(s.path)
}
