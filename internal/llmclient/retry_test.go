package llmclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRequester(maxRetries int, rpm float64) *requester {
	cfg := getValidLLMConfig()
	cfg.MaxRetries = maxRetries
	cfg.RequestsPerMinute = rpm
	r := newRequester(cfg, zap.NewNop())
	r.backoffFactory = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return r
}

func TestRequester_Do(t *testing.T) {
	ctx := context.Background()
	transient := errors.New("temporarily unavailable")

	t.Run("stops after the retry budget", func(t *testing.T) {
		r := newTestRequester(2, 0)
		calls := 0
		err := r.do(ctx, func(context.Context) error { calls++; return transient })
		assert.ErrorIs(t, err, transient)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent errors end immediately", func(t *testing.T) {
		r := newTestRequester(5, 0)
		calls := 0
		err := r.do(ctx, func(context.Context) error { calls++; return backoff.Permanent(transient) })
		assert.ErrorIs(t, err, transient)
		assert.Equal(t, 1, calls)
	})

	t.Run("limiter paces calls", func(t *testing.T) {
		// 600 per minute is one token every 100ms with a burst of one.
		r := newTestRequester(0, 600)
		require.NotNil(t, r.limiter)
		start := time.Now()
		for i := 0; i < 3; i++ {
			require.NoError(t, r.do(ctx, func(context.Context) error { return nil }))
		}
		assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	})

	t.Run("limiter honours cancellation", func(t *testing.T) {
		r := newTestRequester(3, 1)
		require.NoError(t, r.do(ctx, func(context.Context) error { return nil }))
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		err := r.do(cctx, func(context.Context) error { calls++; return nil })
		assert.Error(t, err)
		assert.Zero(t, calls)
	})
}

func TestTransientStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, transientStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		assert.False(t, transientStatus(code), code)
	}
}
