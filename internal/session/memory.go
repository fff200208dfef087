package session

import (
	"sync"
	"time"
)

type memoryEntry struct {
	threadID string
	storedAt time.Time
}

// MemoryStore is a volatile Store holding mappings in a process-local map.
// Safe for concurrent access. A zero TTL means entries never expire.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore constructs an empty in-memory store without expiry.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithTTL(0)
}

// NewMemoryStoreWithTTL constructs a store whose entries expire ttl after
// their last write. ttl <= 0 disables expiry.
func NewMemoryStoreWithTTL(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live mapping for the session, if any. Expired entries are
// treated as absent and removed lazily.
func (s *MemoryStore) Get(sessionID string) (string, bool) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if s.ttl > 0 && s.now().Sub(entry.storedAt) > s.ttl {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Put refreshes the entry.
		if cur, ok := s.entries[sessionID]; ok && s.now().Sub(cur.storedAt) > s.ttl {
			delete(s.entries, sessionID)
		}
		s.mu.Unlock()
		return "", false
	}
	return entry.threadID, true
}

// Put stores or overwrites the mapping for the session.
func (s *MemoryStore) Put(sessionID, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{threadID: threadID, storedAt: s.now()}
	return nil
}
