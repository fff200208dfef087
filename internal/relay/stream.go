package relay

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/chatrelay/internal/upstream"
)

// StreamConfig configures the streaming relay.
type StreamConfig struct {
	// MaxHistoryTurns caps how many trailing history turns are forwarded
	// upstream, bounding request size (default: 16).
	MaxHistoryTurns int
	// SystemPrompt is the fixed persona preamble prepended to every request.
	SystemPrompt string
}

// DefaultSystemPrompt is used when no persona preamble is configured.
const DefaultSystemPrompt = "You are a friendly, concise assistant."

// Streamer opens a token-producing generation call against a bounded
// conversation history and re-emits each token as a delta event as soon as it
// arrives. It does not use the poll-based run lifecycle.
type Streamer struct {
	upstream upstream.Client
	cfg      StreamConfig
}

// NewStreamer builds a streamer with defaults filled in.
func NewStreamer(client upstream.Client, cfg StreamConfig) *Streamer {
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = 16
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	return &Streamer{upstream: client, cfg: cfg}
}

// OpenStream starts the upstream generation and returns the event sequence.
// Exactly one terminal event (done or error) is emitted and the channel is
// closed after it; an upstream failure before the first token still yields a
// well-formed stream holding a single error event. The channel is unbuffered:
// if the consumer stops reading, no further tokens are pulled from upstream,
// and cancelling ctx stops production promptly.
func (s *Streamer) OpenStream(ctx context.Context, history []upstream.Turn, userText string) <-chan StreamEvent {
	out := make(chan StreamEvent)
	go s.produce(ctx, out, history, userText)
	return out
}

func (s *Streamer) produce(ctx context.Context, out chan<- StreamEvent, history []upstream.Turn, userText string) {
	defer close(out)

	turns := s.buildTurns(history, userText)
	tokens, err := s.upstream.StreamReply(ctx, turns)
	if err != nil {
		log.Error().Err(err).Msg("Upstream stream open failed")
		s.emit(ctx, out, StreamEvent{Type: EventError, Message: "upstream request failed"})
		return
	}
	defer func() {
		if err := tokens.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing upstream token stream failed")
		}
	}()

	for tokens.Next() {
		if !s.emit(ctx, out, StreamEvent{Type: EventDelta, Delta: tokens.Token()}) {
			// Consumer went away; stop pulling from upstream.
			return
		}
	}
	if err := tokens.Err(); err != nil {
		log.Error().Err(err).Msg("Upstream token stream failed")
		s.emit(ctx, out, StreamEvent{Type: EventError, Message: "stream interrupted"})
		return
	}
	s.emit(ctx, out, StreamEvent{Type: EventDone})
}

// buildTurns assembles the system preamble, the capped trailing history, and
// the triggering user message.
func (s *Streamer) buildTurns(history []upstream.Turn, userText string) []upstream.Turn {
	if len(history) > s.cfg.MaxHistoryTurns {
		history = history[len(history)-s.cfg.MaxHistoryTurns:]
	}
	turns := make([]upstream.Turn, 0, len(history)+2)
	turns = append(turns, upstream.Turn{Role: "system", Content: s.cfg.SystemPrompt})
	turns = append(turns, history...)
	turns = append(turns, upstream.Turn{Role: "user", Content: userText})
	return turns
}

// emit delivers one event, reporting false if the consumer is gone.
func (s *Streamer) emit(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
