// internal/llmclient/retry.go
package llmclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/webgym/internal/config"
)

// requester paces provider calls and retries transient failures. Retries are
// off unless max_retries is set.
type requester struct {
	logger         *zap.Logger
	limiter        *rate.Limiter
	maxRetries     int
	backoffFactory func() backoff.BackOff
}

func newRequester(cfg config.LLMConfig, logger *zap.Logger) *requester {
	r := &requester{
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			b.MaxInterval = 30 * time.Second
			return b
		},
	}
	if cfg.RequestsPerMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
	}
	return r
}

// do runs op until it succeeds, returns a backoff.Permanent error, or the
// retry budget runs out.
func (r *requester) do(ctx context.Context, op func(context.Context) error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(r.backoffFactory(), uint64(r.maxRetries)), ctx)
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		err := op(ctx)
		var permanent *backoff.PermanentError
		if err != nil && !errors.As(err, &permanent) {
			r.logger.Warn("LLM request failed.", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}, policy)
}

// transientStatus reports whether an HTTP status is worth retrying.
func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
