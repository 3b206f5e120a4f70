// internal/browser/context.go
package browser

import (
	"context"
	"time"
)

// CombineContext derives a context from session that is also canceled when op
// is done. Values, including the chromedp target, come from session; op only
// contributes its cancellation and deadline.
func CombineContext(session, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(session)
	if op == nil || op.Done() == nil {
		return combined, cancel
	}
	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach keeps the values of ctx but drops its cancellation and deadline, so
// cleanup can still reach the browser after the caller gave up.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
