package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/chatrelay/internal/upstream"
)

// StreamRequest is the body of the streaming turn endpoint.
type StreamRequest struct {
	Message string        `json:"message"`
	History []HistoryTurn `json:"history,omitempty"`
}

// HistoryTurn is one prior role/content pair supplied by the client.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// handleChatStream relays the upstream token stream to the client as
// server-sent events, one `data:<JSON>\n\n` frame per event. Validation
// failures are rejected before the stream starts; once streaming, failures
// surface as a terminal error event.
func (s *Server) handleChatStream(c echo.Context) error {
	var req StreamRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
	}

	history := make([]upstream.Turn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, upstream.Turn{Role: turn.Role, Content: turn.Content})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
	res.WriteHeader(http.StatusOK)

	// The request context is cancelled when the client disconnects, which
	// stops the producer pulling from upstream.
	ctx := c.Request().Context()
	events := s.streamer.OpenStream(ctx, history, req.Message)

	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Error().Err(err).Msg("Marshalling stream event failed")
			continue
		}
		if _, err := fmt.Fprintf(res, "data:%s\n\n", payload); err != nil {
			log.Warn().Err(err).Msg("Client transport write failed")
			return nil
		}
		res.Flush()
	}
	return nil
}
