package mcpconn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors.
var (
	// ErrConnectFailed is returned by a strict connect pass when a server
	// is marked failed but no specific error was recorded for it.
	ErrConnectFailed = errors.New("mcpconn: server connect failed")

	// ErrNotConnected is returned when using a server that has not yet
	// established a connection.
	ErrNotConnected = errors.New("mcpconn: server not connected")

	// ErrInvalidConfig is returned when a ServerConfig is missing
	// required fields for its transport type.
	ErrInvalidConfig = errors.New("mcpconn: invalid server config")
)

// Actions attached to lifecycle errors.
const (
	actionConnect = "connect"
	actionClose   = "close"
)

// TimeoutError reports that a bounded wait elapsed before the server's
// operation settled. The operation itself keeps running in the background.
type TimeoutError struct {
	Server  string
	Action  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("mcpconn: %s %q timed out after %s", e.Action, e.Server, e.Timeout)
}

// ClosedError reports that a command was submitted for a server whose
// worker has already completed a successful close.
type ClosedError struct {
	Server string
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("mcpconn: server %q is closed", e.Server)
}

// ClosingError reports that a command was submitted while a close is in
// flight for the server. Only a second close request is satisfied (it
// shares the pending outcome); everything else is rejected with this error.
type ClosingError struct {
	Server string
	Action string
}

func (e *ClosingError) Error() string {
	return fmt.Sprintf("mcpconn: cannot %s %q: close in progress", e.Action, e.Server)
}

// IsTimeoutError reports whether err is (or wraps) a TimeoutError.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsClosedError reports whether err is (or wraps) a ClosedError.
func IsClosedError(err error) bool {
	var ce *ClosedError
	return errors.As(err, &ce)
}

// IsClosingError reports whether err is (or wraps) a ClosingError.
func IsClosingError(err error) bool {
	var ce *ClosingError
	return errors.As(err, &ce)
}

// IsAbortError reports whether err represents an externally requested
// cancellation rather than a genuine connection problem, regardless of
// which operation produced it. Covers context cancellation and errors
// surfaced by transports that name an abort/cancel condition.
func IsAbortError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "abort") ||
		strings.Contains(msg, "canceled") ||
		strings.Contains(msg, "cancelled")
}
