package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/internal/relay"
)

// parseFrames splits an SSE body into its decoded events.
func parseFrames(t *testing.T, body string) []relay.StreamEvent {
	t.Helper()
	var events []relay.StreamEvent
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		payload, ok := strings.CutPrefix(frame, "data:")
		require.True(t, ok, "frame %q must use the data: prefix", frame)
		var ev relay.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		events = append(events, ev)
	}
	return events
}

func TestChatStream_RelaysDeltasAndDone(t *testing.T) {
	opener := &fakeOpener{events: []relay.StreamEvent{
		{Type: relay.EventDelta, Delta: "Hel"},
		{Type: relay.EventDelta, Delta: "lo"},
		{Type: relay.EventDone},
	}}
	s := newTestServer(nil, nil, opener)

	rec := postJSON(s, "/api/v1/chat/stream", `{"message":"hi","history":[{"role":"user","content":"earlier"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	events := parseFrames(t, rec.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, "Hel", events[0].Delta)
	assert.Equal(t, "lo", events[1].Delta)
	assert.Equal(t, relay.EventDone, events[2].Type)
}

func TestChatStream_UpstreamFailureEmitsErrorEvent(t *testing.T) {
	opener := &fakeOpener{events: []relay.StreamEvent{
		{Type: relay.EventError, Message: "upstream request failed"},
	}}
	s := newTestServer(nil, nil, opener)

	rec := postJSON(s, "/api/v1/chat/stream", `{"message":"hi"}`)

	require.Equal(t, http.StatusOK, rec.Code, "the handshake must succeed even when upstream fails")
	events := parseFrames(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, relay.EventError, events[0].Type)
	assert.Equal(t, "upstream request failed", events[0].Message)
}

func TestChatStream_MissingMessage(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rec := postJSON(s, "/api/v1/chat/stream", `{"history":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatStream_MethodNotAllowed(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/stream", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
