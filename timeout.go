package mcpconn

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// runBounded runs op to completion, racing it against an optional timeout
// and the caller's context. A non-positive timeout waits indefinitely.
//
// First settlement wins. When the timer or the context fires first, op
// keeps running in the background and its eventual outcome is consumed and
// logged at debug level; it is never surfaced a second time. The timer is
// stopped on every path.
func runBounded(ctx context.Context, log *zap.Logger, server, action string, timeout time.Duration, op func() error) error {
	done := make(chan error, 1)
	go func() { done <- op() }()

	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case err := <-done:
		return err
	case <-timeoutC:
		go discardLate(log, server, action, done)
		return &TimeoutError{Server: server, Action: action, Timeout: timeout}
	case <-ctx.Done():
		go discardLate(log, server, action, done)
		return ctx.Err()
	}
}

// discardLate consumes the eventual settlement of an abandoned operation
// so its failure is observed exactly once, as a log line.
func discardLate(log *zap.Logger, server, action string, done <-chan error) {
	if err := <-done; err != nil {
		log.Debug("discarded late failure from abandoned operation",
			zap.String("server", server),
			zap.String("action", action),
			zap.Error(err))
	}
}
