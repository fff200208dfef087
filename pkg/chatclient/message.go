// Package chatclient is the client side of ChatRelay: it submits turns to
// the relay server (plain or streaming), tracks per-message delivery status
// with optimistic transitions, and persists local chat state to disk.
package chatclient

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one message in the local chat history. Status is meaningful
// only for user messages. Messages are append-only; only the status field
// and, for an in-progress assistant reply, the text may change.
type ChatMessage struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	Text        string `json:"text"`
	TimestampMs int64  `json:"timestampMs"`
	Status      Status `json:"status,omitempty"`
}

// NewUserMessage creates a user message in the sending state.
func NewUserMessage(text string) ChatMessage {
	return ChatMessage{
		ID:          uuid.NewString(),
		Role:        RoleUser,
		Text:        text,
		TimestampMs: time.Now().UnixMilli(),
		Status:      StatusSending,
	}
}

// NewAssistantMessage creates an assistant message, possibly empty when it
// will grow from stream deltas.
func NewAssistantMessage(text string) ChatMessage {
	return ChatMessage{
		ID:          uuid.NewString(),
		Role:        RoleAssistant,
		Text:        text,
		TimestampMs: time.Now().UnixMilli(),
	}
}
