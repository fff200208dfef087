// Package session maps opaque client session identifiers to upstream
// conversation thread identifiers, so repeated calls from the same browser
// tab continue the same conversation without the client tracking the
// upstream id itself.
package session

// Store is the key-value abstraction backing the session index. It is the
// only shared mutable state in the server; implementations must tolerate
// concurrent reads and writes from independent requests, and a single entry
// must never be observed partially written.
type Store interface {
	// Get returns the thread mapped to the session, if any.
	Get(sessionID string) (threadID string, ok bool)

	// Put stores or overwrites the mapping for the session.
	Put(sessionID, threadID string) error
}
