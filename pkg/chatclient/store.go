package chatclient

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// State is the single persisted blob: the message list plus the current
// thread id.
type State struct {
	Messages []ChatMessage `json:"messages"`
	ThreadID string        `json:"threadId,omitempty"`
}

// FileStore persists State as one JSON file, read once at startup and
// rewritten on every change.
type FileStore struct {
	path string
}

// NewFileStore builds a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted state. Missing, unreadable, or corrupt state is
// treated as empty rather than fatal.
func (s *FileStore) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return State{}
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Discarding corrupt chat state")
		return State{}
	}
	return state
}

// Save rewrites the persisted state.
func (s *FileStore) Save(state State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
