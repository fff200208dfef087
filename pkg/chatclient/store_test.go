package chatclient

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	state := store.Load()
	if len(state.Messages) != 0 || state.ThreadID != "" {
		t.Errorf("expected empty state, got %+v", state)
	}
}

func TestFileStore_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	state := NewFileStore(path).Load()
	if len(state.Messages) != 0 || state.ThreadID != "" {
		t.Errorf("expected corrupt state to load as empty, got %+v", state)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewFileStore(path)

	saved := State{
		Messages: []ChatMessage{NewUserMessage("hello")},
		ThreadID: "thread_1",
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded := store.Load()
	if loaded.ThreadID != "thread_1" {
		t.Errorf("expected thread_1, got %s", loaded.ThreadID)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Text != "hello" {
		t.Errorf("unexpected messages: %+v", loaded.Messages)
	}
}
