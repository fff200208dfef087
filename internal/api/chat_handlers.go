package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/chatrelay/internal/relay"
)

// ChatRequest is the body of the non-streaming turn endpoint.
type ChatRequest struct {
	Text        string `json:"text"`
	ThreadID    string `json:"threadId,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
	AssistantID string `json:"assistantId,omitempty"`
}

// ChatResponse is the success body of the non-streaming turn endpoint.
type ChatResponse struct {
	Reply    string `json:"reply"`
	ThreadID string `json:"threadId"`
}

// ErrorResponse is the structured error body for failed turns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleChat runs one request/response turn: resolve the thread, drive the
// run to a terminal state, return the extracted reply.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "text is required"})
	}

	ctx := c.Request().Context()
	started := time.Now()

	threadID, err := s.resolver.Resolve(ctx, req.SessionID, req.ThreadID)
	if err != nil {
		log.Error().Err(err).
			Str("session_id", req.SessionID).
			Msg("Thread resolution failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not start conversation"})
	}

	reply, err := s.coordinator.RunTurn(ctx, threadID, req.Text, req.AssistantID)
	if err != nil {
		log.Error().Err(err).
			Str("thread_id", threadID).
			Dur("duration", time.Since(started)).
			Msg("Turn failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: relay.ClientMessage(err)})
	}

	log.Info().
		Str("thread_id", threadID).
		Str("session_id", req.SessionID).
		Int("reply_len", len(reply)).
		Dur("duration", time.Since(started)).
		Msg("Turn completed")

	return c.JSON(http.StatusOK, ChatResponse{Reply: reply, ThreadID: threadID})
}
