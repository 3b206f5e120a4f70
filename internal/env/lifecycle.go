// internal/env/lifecycle.go
package env

import (
	"fmt"
)

// Lifecycle tracks the Uninitialized -> Ready -> Closed state machine shared by the
// variants. It is embedded by value and is not safe for concurrent use, matching
// the single-threaded contract of an environment instance.
type Lifecycle struct {
	id     Identity
	ready  bool
	closed bool
}

// NewLifecycle starts in the Uninitialized state.
func NewLifecycle(id Identity) Lifecycle {
	return Lifecycle{id: id}
}

func (l *Lifecycle) Identity() Identity  { return l.id }
func (l *Lifecycle) Task() string        { return l.id.Task }
func (l *Lifecycle) SetTask(task string) { l.id.Task = task }

// CheckOpen fails once the environment has been closed.
func (l *Lifecycle) CheckOpen() error {
	if l.closed {
		return fmt.Errorf("%w: %s", ErrEnvClosed, l.id.Name)
	}
	return nil
}

// CheckReady fails when the environment is closed or has never been reset.
func (l *Lifecycle) CheckReady() error {
	if err := l.CheckOpen(); err != nil {
		return err
	}
	if !l.ready {
		return fmt.Errorf("%w: %s", ErrNotReset, l.id.Name)
	}
	return nil
}

// MarkReady records a successful reset.
func (l *Lifecycle) MarkReady() { l.ready = true }

// MarkClosed moves to the terminal state. It reports whether this call performed
// the transition, so a second Close can be a no-op.
func (l *Lifecycle) MarkClosed() bool {
	if l.closed {
		return false
	}
	l.closed, l.ready = true, false
	return true
}

// Closed reports whether Close has run.
func (l *Lifecycle) Closed() bool { return l.closed }
