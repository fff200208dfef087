package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OptimisticDelays fake the sent/delivered transitions with fixed timers
// when no real acknowledgment exists. This is a documented simplification:
// the UI shows progress before the upstream reply is ready, and the
// monotonic state machine discards any timer that fires too late. Zero
// delays disable the corresponding optimistic hop.
type OptimisticDelays struct {
	Sent      time.Duration
	Delivered time.Duration
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	StorePath  string // local state blob; empty disables persistence
	SessionID  string // generated when empty
	Optimistic OptimisticDelays
}

// Client talks to the relay server. At most one streaming turn is in flight
// at a time; starting a new one aborts the previous stream.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessionID  string
	conv       *Conversation
	optimistic OptimisticDelays
	after      func(d time.Duration, f func()) *time.Timer

	mu           sync.Mutex
	cancelStream context.CancelFunc
}

// New builds a client, restoring persisted chat state when a store path is
// configured.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8888"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	var store *FileStore
	if opts.StorePath != "" {
		store = NewFileStore(opts.StorePath)
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		sessionID:  opts.SessionID,
		conv:       NewConversation(store),
		optimistic: opts.Optimistic,
		after:      time.AfterFunc,
	}
}

// Conversation exposes the local message history.
func (c *Client) Conversation() *Conversation { return c.conv }

// SessionID returns the session identifier sent with every turn.
func (c *Client) SessionID() string { return c.sessionID }

// Send submits one request/response turn and returns the assistant reply.
func (c *Client) Send(ctx context.Context, text string) (string, error) {
	msg := c.conv.Append(NewUserMessage(text))
	return c.deliver(ctx, msg)
}

// Retry re-submits the text of a failed message as a new message in sending
// state. The failed message keeps its status.
func (c *Client) Retry(ctx context.Context, failedID string) (string, error) {
	msg, err := c.conv.Retry(failedID)
	if err != nil {
		return "", err
	}
	return c.deliver(ctx, msg)
}

func (c *Client) deliver(ctx context.Context, msg ChatMessage) (string, error) {
	c.scheduleOptimistic(msg.ID)

	reply, threadID, err := c.postChat(ctx, msg.Text)
	if err != nil {
		_ = c.conv.UpdateStatus(msg.ID, StatusFailed)
		return "", err
	}

	c.conv.SetThreadID(threadID)
	_ = c.conv.UpdateStatus(msg.ID, StatusDelivered)
	_ = c.conv.UpdateStatus(msg.ID, StatusRead)
	c.conv.Append(NewAssistantMessage(reply))
	return reply, nil
}

// Stream submits one streaming turn. Deltas grow the in-progress assistant
// message as they arrive and are echoed to onDelta when given; the
// accumulated reply is returned. Tokens already received stay in the history
// even when the stream fails.
func (c *Client) Stream(ctx context.Context, text string, onDelta func(string)) (string, error) {
	ctx, cancel := c.beginStream(ctx)
	defer cancel()

	msg := c.conv.Append(NewUserMessage(text))
	c.scheduleOptimistic(msg.ID)

	resp, err := c.postStream(ctx, text)
	if err != nil {
		_ = c.conv.UpdateStatus(msg.ID, StatusFailed)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_ = c.conv.UpdateStatus(msg.ID, StatusFailed)
		return "", fmt.Errorf("stream rejected: %s", readErrorBody(resp.Body, resp.StatusCode))
	}

	assistant := c.conv.Append(NewAssistantMessage(""))
	reader := newSSEReader(resp.Body)
	var reply strings.Builder
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = c.conv.UpdateStatus(msg.ID, StatusFailed)
			return reply.String(), fmt.Errorf("stream transport: %w", err)
		}
		switch ev.Type {
		case "delta":
			reply.WriteString(ev.Delta)
			_ = c.conv.AppendDelta(assistant.ID, ev.Delta)
			if onDelta != nil {
				onDelta(ev.Delta)
			}
		case "done":
			_ = c.conv.UpdateStatus(msg.ID, StatusDelivered)
			_ = c.conv.UpdateStatus(msg.ID, StatusRead)
			return reply.String(), nil
		case "error":
			_ = c.conv.UpdateStatus(msg.ID, StatusFailed)
			return reply.String(), fmt.Errorf("stream failed: %s", ev.Message)
		}
	}

	// The connection closed without a terminal event.
	_ = c.conv.UpdateStatus(msg.ID, StatusFailed)
	return reply.String(), errors.New("stream ended without terminal event")
}

// beginStream cancels any previous in-flight stream and registers the new one.
func (c *Client) beginStream(parent context.Context) (context.Context, context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelStream != nil {
		c.cancelStream()
	}
	ctx, cancel := context.WithCancel(parent)
	c.cancelStream = cancel
	return ctx, cancel
}

func (c *Client) scheduleOptimistic(id string) {
	if c.optimistic.Sent > 0 {
		c.after(c.optimistic.Sent, func() { _ = c.conv.UpdateStatus(id, StatusSent) })
	}
	if c.optimistic.Delivered > 0 {
		c.after(c.optimistic.Delivered, func() { _ = c.conv.UpdateStatus(id, StatusDelivered) })
	}
}

type chatTurnRequest struct {
	Text      string `json:"text"`
	ThreadID  string `json:"threadId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type chatTurnResponse struct {
	Reply    string `json:"reply"`
	ThreadID string `json:"threadId"`
	Error    string `json:"error"`
}

func (c *Client) postChat(ctx context.Context, text string) (reply, threadID string, err error) {
	body, err := json.Marshal(chatTurnRequest{
		Text:      text,
		ThreadID:  c.conv.ThreadID(),
		SessionID: c.sessionID,
	})
	if err != nil {
		return "", "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("send turn: %w", err)
	}
	defer resp.Body.Close()

	var decoded chatTurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := decoded.Error
		if msg == "" {
			msg = resp.Status
		}
		return "", "", fmt.Errorf("turn rejected: %s", msg)
	}
	return decoded.Reply, decoded.ThreadID, nil
}

type streamTurnRequest struct {
	Message string       `json:"message"`
	History []streamTurn `json:"history,omitempty"`
}

type streamTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) postStream(ctx context.Context, text string) (*http.Response, error) {
	body, err := json.Marshal(streamTurnRequest{
		Message: text,
		History: c.historyTurns(),
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	return c.httpClient.Do(req)
}

// historyTurns maps the local history to wire turns, excluding failed user
// messages and the still-sending current one.
func (c *Client) historyTurns() []streamTurn {
	messages := c.conv.Messages()
	turns := make([]streamTurn, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleUser && (m.Status == StatusFailed || m.Status == StatusSending) {
			continue
		}
		if m.Text == "" {
			continue
		}
		turns = append(turns, streamTurn{Role: string(m.Role), Content: m.Text})
	}
	return turns
}

func readErrorBody(r io.Reader, statusCode int) string {
	var decoded struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&decoded); err == nil && decoded.Error != "" {
		return decoded.Error
	}
	return http.StatusText(statusCode)
}
