package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chatrelay/internal/upstream"
)

// CoordinatorConfig configures the poll-based run lifecycle.
type CoordinatorConfig struct {
	AssistantID  string        // default assistant; a request-supplied id wins
	PollInterval time.Duration // delay between status polls (default: 1s)
	PollTimeout  time.Duration // overall budget for one run (default: 60s)
	ListLimit    int           // messages fetched when extracting the reply (default: 20)
}

// Coordinator drives one request/response turn: append the user message,
// start a run, poll until a terminal status or the deadline, then extract the
// newest assistant reply. Clock and sleep are injectable so tests run without
// real delays.
type Coordinator struct {
	upstream upstream.Client
	cfg      CoordinatorConfig

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCoordinator builds a coordinator with defaults filled in.
func NewCoordinator(client upstream.Client, cfg CoordinatorConfig) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60 * time.Second
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 20
	}
	return &Coordinator{
		upstream: client,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// RunTurn submits userText to the thread and returns the assistant reply.
// An empty reply with a nil error is the degraded no-assistant-message case,
// not a failure.
func (c *Coordinator) RunTurn(ctx context.Context, threadID, userText, assistantID string) (string, error) {
	if assistantID == "" {
		assistantID = c.cfg.AssistantID
	}
	if assistantID == "" {
		return "", ErrConfiguration
	}

	if err := c.upstream.AddUserMessage(ctx, threadID, userText); err != nil {
		return "", fmt.Errorf("append user message: %w", err)
	}

	run, err := c.upstream.StartRun(ctx, threadID, assistantID)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}

	run, err = c.pollUntilTerminal(ctx, run)
	if err != nil {
		return "", err
	}

	if run.Status != upstream.RunCompleted {
		log.Warn().
			Str("thread_id", threadID).
			Str("run_id", run.ID).
			Str("status", string(run.Status)).
			Msg("Run ended without completing")
		return "", &RunError{Status: run.Status}
	}

	return c.extractReply(ctx, threadID)
}

// pollUntilTerminal polls the run at the configured interval until it is
// terminal or the wall-clock budget elapses.
func (c *Coordinator) pollUntilTerminal(ctx context.Context, run upstream.Run) (upstream.Run, error) {
	deadline := c.now().Add(c.cfg.PollTimeout)
	for !run.Status.Terminal() {
		if !c.now().Before(deadline) {
			return run, ErrRunTimeout
		}
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return run, err
		}
		var err error
		run, err = c.upstream.GetRun(ctx, run.ThreadID, run.ID)
		if err != nil {
			return run, fmt.Errorf("poll run: %w", err)
		}
	}
	return run, nil
}

// extractReply returns the text of the newest assistant message: its text
// segments joined by newlines with surrounding whitespace trimmed. No
// assistant message yields the empty-reply sentinel.
func (c *Coordinator) extractReply(ctx context.Context, threadID string) (string, error) {
	messages, err := c.upstream.ListMessages(ctx, threadID, c.cfg.ListLimit)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	for _, msg := range messages {
		if msg.Role != "assistant" {
			continue
		}
		return strings.TrimSpace(strings.Join(msg.Segments, "\n")), nil
	}
	log.Warn().Str("thread_id", threadID).Msg("Completed run produced no assistant message")
	return "", nil
}
