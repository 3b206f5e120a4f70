// internal/browser/context_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type ctxKey string

const targetKey ctxKey = "target"

func TestCombineContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("values come from the session context", func(t *testing.T) {
		session := context.WithValue(context.Background(), targetKey, "tab-1")
		op, cancelOp := context.WithCancel(context.Background())
		defer cancelOp()

		combined, cancel := CombineContext(session, op)
		defer cancel()

		assert.Equal(t, "tab-1", combined.Value(targetKey))
		assert.NoError(t, combined.Err())
	})

	t.Run("session cancellation propagates", func(t *testing.T) {
		session, cancelSession := context.WithCancel(context.Background())
		combined, cancel := CombineContext(session, context.Background())
		defer cancel()

		cancelSession()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("operation cancellation propagates", func(t *testing.T) {
		op, cancelOp := context.WithCancel(context.Background())
		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		cancelOp()
		assert.Eventually(t, func() bool { return combined.Err() != nil },
			100*time.Millisecond, 5*time.Millisecond)
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("operation deadline ends the combined context", func(t *testing.T) {
		op, cancelOp := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancelOp()

		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		<-combined.Done()
		assert.ErrorIs(t, op.Err(), context.DeadlineExceeded)
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("explicit cancel", func(t *testing.T) {
		op, cancelOp := context.WithCancel(context.Background())
		defer cancelOp()
		combined, cancel := CombineContext(context.Background(), op)
		cancel()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})
}

func TestDetach(t *testing.T) {
	parent, cancelParent := context.WithTimeout(context.WithValue(context.Background(), targetKey, "tab-1"), time.Hour)
	detached := Detach(parent)
	cancelParent()

	assert.ErrorIs(t, parent.Err(), context.Canceled)
	assert.Equal(t, "tab-1", detached.Value(targetKey))
	assert.NoError(t, detached.Err())
	assert.Nil(t, detached.Done())
	_, ok := detached.Deadline()
	assert.False(t, ok)

	derived, cancel := context.WithTimeout(detached, 10*time.Millisecond)
	defer cancel()
	<-derived.Done()
	assert.ErrorIs(t, derived.Err(), context.DeadlineExceeded)
}
