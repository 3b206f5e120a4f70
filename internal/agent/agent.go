package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/env"
)

// Decision is an action picked by an agent together with the arguments to call
// it with.
type Decision[S any] struct {
	Action *action.Action[S]
	Args   action.Args
}

// Target addresses the decided action by reference.
func (d Decision[S]) Target() action.Target[S] {
	return action.ByRef(d.Action)
}

// Agent picks actions from an environment's action space. S is the session type
// of the environment it is bound to.
type Agent[S any] interface {
	Name() string
	ID() string
	Task() string
	NextAction(ctx context.Context, obs env.Observation) (Decision[S], error)
	Plan(ctx context.Context, obs env.Observation, steps int) ([]Decision[S], error)
	Reset(ctx context.Context) error
}

// DefaultPlanSteps is used when Plan is asked for zero or fewer steps.
const DefaultPlanSteps = 3

// base carries the state every agent shares.
type base[S any] struct {
	id     string
	name   string
	task   string
	env    env.Environment[S]
	logger *zap.Logger
}

// newBase binds an agent to e. The environment's task wins over task when set.
func newBase[S any](kind, name, task string, e env.Environment[S], logger *zap.Logger) (base[S], error) {
	if e == nil {
		return base[S]{}, fmt.Errorf("agent requires an environment")
	}
	if t := e.Task(); t != "" {
		task = t
	}
	if task == "" {
		return base[S]{}, ErrNoTask
	}
	if name == "" {
		name = kind
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	return base[S]{
		id:     id,
		name:   name,
		task:   task,
		env:    e,
		logger: logger.Named(kind).With(zap.String("agent_id", id[:8]), zap.String("agent", name)),
	}, nil
}

func (b *base[S]) Name() string { return b.name }
func (b *base[S]) ID() string   { return b.id }
func (b *base[S]) Task() string { return b.task }

func (b *base[S]) refreshTask() {
	if t := b.env.Task(); t != "" {
		b.task = t
	}
}

// resetEnv starts a new episode when the environment supports a default reset.
func (b *base[S]) resetEnv(ctx context.Context) error {
	r, ok := b.env.(env.Resetter)
	if !ok {
		return nil
	}
	if _, _, err := r.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset environment: %w", err)
	}
	return nil
}

func planSteps(steps int) int {
	if steps <= 0 {
		return DefaultPlanSteps
	}
	return steps
}
