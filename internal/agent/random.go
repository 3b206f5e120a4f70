// internal/agent/random.go
package agent

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/config"
	"github.com/xkilldash9x/webgym/internal/env"
)

// Random picks actions uniformly from the action space. Every call reseeds from
// the observation text, so equal observations yield equal picks.
type Random[S any] struct {
	base[S]
	rng *rand.Rand
}

var _ Agent[action.NoSession] = (*Random[action.NoSession])(nil)

func NewRandom[S any](e env.Environment[S], cfg config.AgentConfig, logger *zap.Logger) (*Random[S], error) {
	b, err := newBase("random_agent", cfg.Name, cfg.Task, e, logger)
	if err != nil {
		return nil, err
	}
	return &Random[S]{base: b, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}, nil
}

// NextAction returns one action; its arguments are left to the action defaults.
func (r *Random[S]) NextAction(_ context.Context, obs env.Observation) (Decision[S], error) {
	actions, err := r.seeded(obs)
	if err != nil {
		return Decision[S]{}, err
	}
	d := Decision[S]{Action: actions[r.rng.Intn(len(actions))], Args: action.Args{}}
	r.logger.Debug("Picked action.", zap.String("action", d.Action.Name()))
	return d, nil
}

// Plan samples steps actions with replacement.
func (r *Random[S]) Plan(_ context.Context, obs env.Observation, steps int) ([]Decision[S], error) {
	actions, err := r.seeded(obs)
	if err != nil {
		return nil, err
	}
	plan := make([]Decision[S], planSteps(steps))
	for i := range plan {
		plan[i] = Decision[S]{Action: actions[r.rng.Intn(len(actions))], Args: action.Args{}}
	}
	return plan, nil
}

// Reset reseeds from the clock and picks up the environment's current task.
func (r *Random[S]) Reset(_ context.Context) error {
	r.rng.Seed(time.Now().UnixNano())
	r.refreshTask()
	return nil
}

func (r *Random[S]) seeded(obs env.Observation) ([]*action.Action[S], error) {
	actions := r.env.Space().Actions()
	if len(actions) == 0 {
		return nil, fmt.Errorf("action space of %s is empty", r.env.Identity().Name)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(obs.String()))
	r.rng.Seed(int64(h.Sum64()))
	return actions, nil
}
