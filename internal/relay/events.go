// Package relay drives the upstream turn lifecycle: the poll-based run
// coordinator for request/response turns and the streaming relay that
// forwards tokens to the browser as they are produced.
package relay

// EventType discriminates the stream event variants.
type EventType string

const (
	EventDelta EventType = "delta"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// StreamEvent is one frame of the token stream sent to the client. Events
// arrive in order; done and error are mutually exclusive terminal events and
// nothing follows them.
type StreamEvent struct {
	Type    EventType `json:"type"`
	Delta   string    `json:"delta,omitempty"`
	Message string    `json:"message,omitempty"`
}
