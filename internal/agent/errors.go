// internal/agent/errors.go
package agent

import "errors"

var (
	// ErrNoTask is returned when neither the agent nor its environment has a task.
	ErrNoTask = errors.New("agent and environment both lack a task")
	// ErrNoOpActionMissing is returned when a reply cannot be parsed and the
	// fallback no-op action is not in the action space.
	ErrNoOpActionMissing = errors.New("no-op action is not in the action space")
)
