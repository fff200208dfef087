// Package upstream wraps the third-party conversational-AI provider behind a
// small capability interface: create a conversation thread, append a message,
// start and poll a generation run, list messages, or open a token stream.
// Everything above this package depends only on the interface so tests can
// substitute a scripted fake.
package upstream

import "context"

// RunStatus is the lifecycle state of a generation run as reported by the
// provider.
type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
	RunCancelled  RunStatus = "cancelled"
	RunExpired    RunStatus = "expired"
)

// Terminal reports whether the run has finished and will not change again.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired:
		return true
	}
	return false
}

// Run is one generation run within a thread.
type Run struct {
	ID       string
	ThreadID string
	Status   RunStatus
}

// Message is a message stored in an upstream thread. Segments holds the
// text-typed content parts in provider order.
type Message struct {
	ID       string
	Role     string
	Segments []string
}

// Turn is one role/content pair of conversation history for the streaming
// path, which bypasses threads entirely.
type Turn struct {
	Role    string
	Content string
}

// TokenStream is a lazy, finite, non-restartable sequence of reply tokens.
// Callers pull with Next, read the token with Token, and must check Err once
// Next returns false. Close releases the underlying connection and is safe to
// call at any point to abandon the stream.
type TokenStream interface {
	Next() bool
	Token() string
	Err() error
	Close() error
}

// Client is the provider capability used by the relay. Implementations must
// be safe for concurrent use by independent requests.
type Client interface {
	// CreateThread creates a new empty conversation and returns its id.
	CreateThread(ctx context.Context) (string, error)

	// AddUserMessage appends a user-role message to the thread.
	AddUserMessage(ctx context.Context, threadID, text string) error

	// StartRun starts a generation run for the thread against the given
	// assistant and returns it in its initial (usually queued) state.
	StartRun(ctx context.Context, threadID, assistantID string) (Run, error)

	// GetRun fetches the current state of a run.
	GetRun(ctx context.Context, threadID, runID string) (Run, error)

	// ListMessages returns up to limit messages of the thread, newest first.
	ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error)

	// StreamReply opens a token stream for a reply generated against the
	// given history. The final turn is expected to be the triggering user
	// message.
	StreamReply(ctx context.Context, turns []Turn) (TokenStream, error)
}
