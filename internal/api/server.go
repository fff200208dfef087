// Package api exposes the relay over HTTP: a request/response chat endpoint,
// an SSE streaming endpoint, and a health check.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chatrelay/internal/relay"
	"github.com/chatrelay/internal/upstream"
)

// TurnRunner drives one request/response turn (implemented by relay.Coordinator).
type TurnRunner interface {
	RunTurn(ctx context.Context, threadID, userText, assistantID string) (string, error)
}

// ThreadResolver maps a session to a concrete thread id (implemented by session.Resolver).
type ThreadResolver interface {
	Resolve(ctx context.Context, sessionID, suppliedThreadID string) (string, error)
}

// StreamOpener opens a token stream for a turn (implemented by relay.Streamer).
type StreamOpener interface {
	OpenStream(ctx context.Context, history []upstream.Turn, userText string) <-chan relay.StreamEvent
}

// Server represents the API server
type Server struct {
	echo        *echo.Echo
	port        int
	coordinator TurnRunner
	resolver    ThreadResolver
	streamer    StreamOpener
}

// NewServer creates a new API server
func NewServer(port int, coordinator TurnRunner, resolver ThreadResolver, streamer StreamOpener) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:        e,
		port:        port,
		coordinator: coordinator,
		resolver:    resolver,
		streamer:    streamer,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	// API v1 group
	v1 := s.echo.Group("/api/v1")

	v1.POST("/chat", s.handleChat)
	v1.POST("/chat/stream", s.handleChatStream)
}

// Start begins the API server
func (s *Server) Start() error {
	// Start server in a goroutine
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

// Handler exposes the echo engine as an http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
