package chatclient

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Conversation holds the local message list plus thread id, enforces the
// delivery-status state machine, and persists every change through the
// optional store.
type Conversation struct {
	mu       sync.Mutex
	messages []ChatMessage
	threadID string
	store    *FileStore
}

// NewConversation builds a conversation, restoring prior state from the
// store when one is given.
func NewConversation(store *FileStore) *Conversation {
	c := &Conversation{store: store}
	if store != nil {
		state := store.Load()
		c.messages = state.Messages
		c.threadID = state.ThreadID
	}
	return c
}

// Messages returns a copy of the message list.
func (c *Conversation) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// ThreadID returns the current upstream thread id, if known.
func (c *Conversation) ThreadID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threadID
}

// SetThreadID records the upstream thread id returned by the server.
func (c *Conversation) SetThreadID(threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if threadID == "" || threadID == c.threadID {
		return
	}
	c.threadID = threadID
	c.persistLocked()
}

// Append adds a message to the history.
func (c *Conversation) Append(msg ChatMessage) ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	c.persistLocked()
	return msg
}

// UpdateStatus advances the delivery status of a user message. Illegal
// transitions (regressions, moves out of a terminal state) are rejected.
func (c *Conversation) UpdateStatus(id string, to Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID != id {
			continue
		}
		if c.messages[i].Role != RoleUser {
			return fmt.Errorf("message %s is not a user message", id)
		}
		if !c.messages[i].Status.CanAdvance(to) {
			return fmt.Errorf("illegal status transition %s -> %s", c.messages[i].Status, to)
		}
		c.messages[i].Status = to
		c.persistLocked()
		return nil
	}
	return fmt.Errorf("message %s not found", id)
}

// AppendDelta grows the text of an in-progress assistant message.
func (c *Conversation) AppendDelta(id, delta string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID != id {
			continue
		}
		c.messages[i].Text += delta
		c.persistLocked()
		return nil
	}
	return fmt.Errorf("message %s not found", id)
}

// Retry creates a new sending-state user message carrying the text of a
// failed one. The failed message itself is never mutated.
func (c *Conversation) Retry(id string) (ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID != id {
			continue
		}
		if c.messages[i].Role != RoleUser || c.messages[i].Status != StatusFailed {
			return ChatMessage{}, fmt.Errorf("message %s is not a failed user message", id)
		}
		msg := NewUserMessage(c.messages[i].Text)
		c.messages = append(c.messages, msg)
		c.persistLocked()
		return msg, nil
	}
	return ChatMessage{}, fmt.Errorf("message %s not found", id)
}

func (c *Conversation) persistLocked() {
	if c.store == nil {
		return
	}
	state := State{Messages: c.messages, ThreadID: c.threadID}
	if err := c.store.Save(state); err != nil {
		log.Warn().Err(err).Msg("Persisting chat state failed")
	}
}
