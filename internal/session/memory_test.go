package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()

	if _, ok := store.Get("sess-1"); ok {
		t.Error("expected no mapping for a fresh session")
	}

	if err := store.Put("sess-1", "thread-1"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	threadID, ok := store.Get("sess-1")
	if !ok {
		t.Fatal("expected mapping after Put")
	}
	if threadID != "thread-1" {
		t.Errorf("expected thread-1, got %s", threadID)
	}
}

func TestMemoryStore_Overwrite(t *testing.T) {
	store := NewMemoryStore()

	store.Put("sess-1", "thread-1")
	store.Put("sess-1", "thread-2")

	threadID, _ := store.Get("sess-1")
	if threadID != "thread-2" {
		t.Errorf("expected thread-2 after overwrite, got %s", threadID)
	}
}

func TestMemoryStore_ConcurrentSessions(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("sess-%d", i)
			threadID := fmt.Sprintf("thread-%d", i)
			store.Put(sessionID, threadID)
			got, ok := store.Get(sessionID)
			if !ok || got != threadID {
				t.Errorf("session %s: got (%s, %v)", sessionID, got, ok)
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryStore_TTL(t *testing.T) {
	store := NewMemoryStoreWithTTL(time.Minute)
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	store.Put("sess-1", "thread-1")

	if _, ok := store.Get("sess-1"); !ok {
		t.Fatal("expected live mapping")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get("sess-1"); ok {
		t.Error("expected mapping to expire after the TTL")
	}
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	store.Put("sess-1", "thread-1")
	now = now.Add(1000 * time.Hour)

	if _, ok := store.Get("sess-1"); !ok {
		t.Error("expected mapping to survive without a TTL")
	}
}
