// File: internal/env/miniwob/env.go
package miniwob

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/env"
)

// EpisodeTimer is implemented by simulators that accept a per-episode time limit.
type EpisodeTimer interface {
	SetEpisodeMaxTime(ctx context.Context, limit time.Duration) error
}

// Env adapts a Simulator to the environment contract.
type Env struct {
	env.Lifecycle

	sim    Simulator
	space  *action.Space[Simulator]
	opts   Options
	logger *zap.Logger
	steps  int
}

var (
	_ env.Environment[Simulator] = (*Env)(nil)
	_ env.Resetter               = (*Env)(nil)
)

// New wraps sim. When opts.EpisodeMaxTime is set and the simulator supports it,
// the limit is applied immediately.
func New(ctx context.Context, id env.Identity, sim Simulator, opts Options, logger *zap.Logger) (*Env, error) {
	if sim == nil {
		return nil, fmt.Errorf("miniwob environment %q requires a simulator", id.Name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	space, err := NewSpace()
	if err != nil {
		return nil, fmt.Errorf("failed to build miniwob action space: %w", err)
	}
	if opts.EpisodeMaxTime > 0 {
		if timer, ok := sim.(EpisodeTimer); ok {
			if err := timer.SetEpisodeMaxTime(ctx, opts.EpisodeMaxTime); err != nil {
				return nil, fmt.Errorf("failed to set episode max time: %w", err)
			}
		}
	}
	return &Env{
		Lifecycle: env.NewLifecycle(id),
		sim:       sim,
		space:     space,
		opts:      opts,
		logger:    logger.Named("miniwob").With(zap.String("env", id.Name)),
	}, nil
}

func (e *Env) Space() *action.Space[Simulator] { return e.space }

// Reset starts a new episode on the simulator.
func (e *Env) Reset(ctx context.Context) (env.Observation, env.Info, error) {
	if err := e.CheckOpen(); err != nil {
		return nil, nil, err
	}
	obs, info, err := e.sim.Reset(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("simulator reset failed: %w", err)
	}
	e.steps = 0
	e.MarkReady()
	e.logger.Debug("Episode reset.")
	return obs, info, nil
}

// Step builds the simulator command through the resolved action, with the live
// simulator injected, and submits it.
func (e *Env) Step(ctx context.Context, target action.Target[Simulator], args action.Args) (env.StepResult, error) {
	if err := e.CheckReady(); err != nil {
		return env.StepResult{}, err
	}
	out, err := env.Invoke(ctx, e.space, e.sim, target, args)
	if err != nil {
		return env.StepResult{}, err
	}
	cmd, ok := out.(Command)
	if !ok {
		return env.StepResult{}, fmt.Errorf("action %s produced %T, expected a simulator command", target, out)
	}
	res, err := e.sim.Step(ctx, cmd)
	if err != nil {
		return env.StepResult{}, fmt.Errorf("simulator step failed: %w", err)
	}
	e.steps++
	if e.opts.MaxEpisodeSteps > 0 && e.steps >= e.opts.MaxEpisodeSteps && !res.Terminated {
		res.Truncated = true
	}
	e.logger.Debug("Step executed.",
		zap.String("action", target.Name()),
		zap.String("command", string(cmd.Type)),
		zap.Float64("reward", res.Reward),
		zap.Bool("terminated", res.Terminated),
		zap.Bool("truncated", res.Truncated),
	)
	return res, nil
}

// Close shuts the simulator down. Later calls are no-ops.
func (e *Env) Close() error {
	if !e.MarkClosed() {
		return nil
	}
	if err := e.sim.Close(); err != nil {
		return fmt.Errorf("failed to close simulator: %w", err)
	}
	return nil
}
