package mcpconn

import (
	"time"

	"go.uber.org/zap"
)

// SessionOption configures a Session via the functional options pattern.
// Configuration is fixed for the Session's lifetime once opened.
type SessionOption func(*sessionOptions)

// sessionOptions holds all configurable fields set via SessionOption
// functions.
type sessionOptions struct {
	connectTimeout time.Duration
	closeTimeout   time.Duration
	dropFailed     bool
	strict         bool
	suppressAbort  bool
	parallel       bool
	logger         *zap.Logger
}

// defaultOptions returns the documented defaults: 10s timeouts, failed
// servers dropped from the active view, abort errors suppressed, serial
// connects, non-strict.
func defaultOptions() sessionOptions {
	return sessionOptions{
		connectTimeout: DefaultConnectTimeout,
		closeTimeout:   DefaultCloseTimeout,
		dropFailed:     true,
		suppressAbort:  true,
	}
}

// resolveOptions applies all option functions over the defaults.
func resolveOptions(opts []SessionOption) sessionOptions {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// WithConnectTimeout bounds each server connect attempt. A non-positive
// duration disables the bound and waits indefinitely.
func WithConnectTimeout(d time.Duration) SessionOption {
	return func(o *sessionOptions) { o.connectTimeout = d }
}

// WithCloseTimeout bounds each server close. A non-positive duration
// disables the bound and waits indefinitely.
func WithCloseTimeout(d time.Duration) SessionOption {
	return func(o *sessionOptions) { o.closeTimeout = d }
}

// WithKeepFailed keeps failed servers in the Active view instead of
// dropping them. Failed servers then appear in both Active and Failed.
func WithKeepFailed() SessionOption {
	return func(o *sessionOptions) { o.dropFailed = false }
}

// WithStrict makes any unrecovered connect failure abort the whole
// connect or reconnect call, after closing every server that had
// connected during the attempt.
func WithStrict() SessionOption {
	return func(o *sessionOptions) { o.strict = true }
}

// WithRaiseAbortErrors propagates cancellation failures instead of
// recording and suppressing them. An abort then aborts the call even when
// strict mode is off.
func WithRaiseAbortErrors() SessionOption {
	return func(o *sessionOptions) { o.suppressAbort = false }
}

// WithParallelConnect connects servers concurrently. Commands against any
// single server are still strictly serialized by a per-server worker.
func WithParallelConnect() SessionOption {
	return func(o *sessionOptions) { o.parallel = true }
}

// WithLogger sets the logger for connection lifecycle events. Defaults to
// a no-op logger.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(o *sessionOptions) { o.logger = logger }
}
