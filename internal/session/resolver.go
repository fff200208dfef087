package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ThreadCreator is the slice of the upstream client the resolver needs.
type ThreadCreator interface {
	CreateThread(ctx context.Context) (string, error)
}

// Resolver turns a (sessionID, suppliedThreadID) pair from a request into a
// concrete upstream thread id.
type Resolver struct {
	store    Store
	upstream ThreadCreator
}

// NewResolver builds a resolver over the given store and thread creator.
func NewResolver(store Store, upstream ThreadCreator) *Resolver {
	return &Resolver{store: store, upstream: upstream}
}

// Resolve returns the thread id to use for this turn. A supplied thread id
// always wins and overwrites the session mapping; otherwise a prior mapping
// is reused; otherwise a fresh upstream thread is created and stored.
// Concurrent first calls for the same session may each create a thread, but
// exactly one mapping survives and is never silently dropped afterwards.
func (r *Resolver) Resolve(ctx context.Context, sessionID, suppliedThreadID string) (string, error) {
	if suppliedThreadID != "" {
		if sessionID != "" {
			if err := r.store.Put(sessionID, suppliedThreadID); err != nil {
				return "", fmt.Errorf("store session mapping: %w", err)
			}
		}
		return suppliedThreadID, nil
	}

	if sessionID != "" {
		if threadID, ok := r.store.Get(sessionID); ok {
			return threadID, nil
		}
	}

	threadID, err := r.upstream.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	if sessionID != "" {
		if err := r.store.Put(sessionID, threadID); err != nil {
			return "", fmt.Errorf("store session mapping: %w", err)
		}
		log.Debug().
			Str("session_id", sessionID).
			Str("thread_id", threadID).
			Msg("Created thread for new session")
	}
	return threadID, nil
}
