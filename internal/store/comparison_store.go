package store

import (
	"errors"
	"os"
	"sync"

	"overseer/internal/types"
)

const comparisonSchemaVersion = 1

// FileComparisonStore persists the singleton comparison document for a
// project as one JSON file.
type FileComparisonStore struct {
	path string
	mu   sync.Mutex
}

type comparisonFile struct {
	Version int                    `json:"version"`
	State   *types.ComparisonState `json:"state"`
}

func NewFileComparisonStore(path string) *FileComparisonStore {
	return &FileComparisonStore{path: path}
}

// Load returns the persisted state, or ok=false when no comparison is in
// progress.
func (s *FileComparisonStore) Load() (*types.ComparisonState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var file comparisonFile
	if err := readJSON(s.path, &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if file.State == nil {
		return nil, false, nil
	}
	return file.State, true, nil
}

func (s *FileComparisonStore) Save(state *types.ComparisonState) error {
	if state == nil {
		return errors.New("comparison state is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.path, &comparisonFile{
		Version: comparisonSchemaVersion,
		State:   state,
	})
}

func (s *FileComparisonStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeIfExists(s.path)
}
