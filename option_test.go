package mcpconn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestResolveOptions_Defaults(t *testing.T) {
	o := resolveOptions(nil)

	assert.Equal(t, DefaultConnectTimeout, o.connectTimeout)
	assert.Equal(t, DefaultCloseTimeout, o.closeTimeout)
	assert.True(t, o.dropFailed)
	assert.True(t, o.suppressAbort)
	assert.False(t, o.strict)
	assert.False(t, o.parallel)
	assert.NotNil(t, o.logger)
}

func TestSessionOptions(t *testing.T) {
	log := zap.NewNop()
	o := resolveOptions([]SessionOption{
		WithConnectTimeout(time.Second),
		WithCloseTimeout(2 * time.Second),
		WithKeepFailed(),
		WithStrict(),
		WithRaiseAbortErrors(),
		WithParallelConnect(),
		WithLogger(log),
	})

	assert.Equal(t, time.Second, o.connectTimeout)
	assert.Equal(t, 2*time.Second, o.closeTimeout)
	assert.False(t, o.dropFailed)
	assert.True(t, o.strict)
	assert.False(t, o.suppressAbort)
	assert.True(t, o.parallel)
	assert.Same(t, log, o.logger)
}

func TestWithConnectTimeout_NonPositiveDisables(t *testing.T) {
	o := resolveOptions([]SessionOption{WithConnectTimeout(0), WithCloseTimeout(-1)})

	assert.Equal(t, time.Duration(0), o.connectTimeout)
	assert.Equal(t, time.Duration(-1), o.closeTimeout)
}
