package mcpconn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// --- Settlement ---

func TestRunBounded_ReturnsOperationResult(t *testing.T) {
	err := runBounded(context.Background(), zap.NewNop(), "a", actionConnect, time.Second,
		func() error { return nil })
	assert.NoError(t, err)

	err = runBounded(context.Background(), zap.NewNop(), "a", actionConnect, time.Second,
		func() error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
}

func TestRunBounded_ZeroTimeoutWaitsIndefinitely(t *testing.T) {
	err := runBounded(context.Background(), zap.NewNop(), "a", actionConnect, 0,
		func() error {
			time.Sleep(30 * time.Millisecond)
			return nil
		})
	assert.NoError(t, err)
}

// --- Timeout ---

func TestRunBounded_TimeoutError(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	err := runBounded(context.Background(), zap.NewNop(), "srv", actionClose, 20*time.Millisecond,
		func() error {
			<-release
			return nil
		})

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "srv", te.Server)
	assert.Equal(t, actionClose, te.Action)
	assert.Equal(t, 20*time.Millisecond, te.Timeout)
}

func TestRunBounded_LateFailureIsLoggedNotRaised(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	release := make(chan struct{})

	err := runBounded(context.Background(), log, "srv", actionConnect, 20*time.Millisecond,
		func() error {
			<-release
			return errBoom
		})
	require.True(t, IsTimeoutError(err))

	// The operation's eventual failure surfaces exactly once, as a debug
	// log line.
	close(release)
	require.Eventually(t, func() bool {
		return logs.FilterMessage("discarded late failure from abandoned operation").Len() == 1
	}, time.Second, 5*time.Millisecond)
}

// --- Cancellation ---

func TestRunBounded_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := runBounded(ctx, zap.NewNop(), "srv", actionConnect, time.Second,
		func() error {
			<-release
			return nil
		})

	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsAbortError(err))
}
