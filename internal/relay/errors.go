package relay

import (
	"errors"
	"fmt"

	"github.com/chatrelay/internal/upstream"
)

// ErrConfiguration indicates a required upstream identifier or credential is
// missing. It is raised before any upstream call and is never retried.
var ErrConfiguration = errors.New("assistant is not configured")

// ErrRunTimeout indicates polling exceeded the configured budget while the
// run was still non-terminal.
var ErrRunTimeout = errors.New("timed out waiting for the assistant reply")

// RunError indicates the run reached a failed terminal status.
type RunError struct {
	Status upstream.RunStatus
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run ended with status %s", e.Status)
}

// ClientMessage is the short human-readable message forwarded to the client
// for a turn failure. Internal detail never crosses this boundary.
func ClientMessage(err error) string {
	var runErr *RunError
	switch {
	case errors.As(err, &runErr):
		return string(runErr.Status)
	case errors.Is(err, ErrRunTimeout):
		return ErrRunTimeout.Error()
	case errors.Is(err, ErrConfiguration):
		return ErrConfiguration.Error()
	default:
		return "upstream request failed"
	}
}
