// File: cmd/episode.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/agent"
	"github.com/xkilldash9x/webgym/internal/env"
	"github.com/xkilldash9x/webgym/internal/evaluate"
)

// episodeResult summarizes one driven episode.
type episodeResult struct {
	ID         string
	Steps      int
	Return     float64
	Terminated bool
	Truncated  bool
}

// driverEnv hides the environment's Resetter from the agent, so the driver
// alone starts episodes.
type driverEnv[S any] struct {
	env.Environment[S]
}

// trajectorySource is implemented by agents that keep their parsed replies.
type trajectorySource interface {
	Trajectory() []agent.Output
}

// driver runs episodes of one agent in one environment.
type driver[S any] struct {
	env      env.Environment[S]
	agent    agent.Agent[S]
	maxSteps int
	records  *evaluate.RecordWriter
	logger   *zap.Logger
}

// run drives episodes one after another and stops at the first fatal error.
func (d *driver[S]) run(ctx context.Context, episodes int) ([]episodeResult, error) {
	results := make([]episodeResult, 0, episodes)
	for i := 0; i < episodes; i++ {
		res, err := d.episode(ctx)
		if err != nil {
			return results, fmt.Errorf("episode %d: %w", i+1, err)
		}
		d.logger.Info("Episode finished.",
			zap.String("episode_id", res.ID),
			zap.Int("steps", res.Steps),
			zap.Float64("return", res.Return),
			zap.Bool("terminated", res.Terminated),
			zap.Bool("truncated", res.Truncated),
		)
		results = append(results, res)
	}
	return results, nil
}

// episode resets the environment, then the agent so it adopts the episode's
// task, and alternates NextAction and Step until the episode ends or maxSteps
// is reached. Rejected actions are recorded and the agent is asked again with
// the same observation.
func (d *driver[S]) episode(ctx context.Context) (episodeResult, error) {
	res := episodeResult{ID: uuid.New().String()}
	log := d.logger.With(zap.String("episode_id", res.ID))

	obs := env.Observation{}
	if r, ok := d.env.(env.Resetter); ok {
		o, info, err := r.Reset(ctx)
		if err != nil {
			return res, fmt.Errorf("failed to reset environment: %w", err)
		}
		obs = o
		log.Debug("Environment reset.", zap.Any("info", info))
	}
	if err := d.agent.Reset(ctx); err != nil {
		return res, fmt.Errorf("failed to reset agent: %w", err)
	}

	for res.Steps < d.maxSteps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		decision, err := d.agent.NextAction(ctx, obs)
		if err != nil {
			return res, fmt.Errorf("agent failed to pick an action: %w", err)
		}

		step, err := d.env.Step(ctx, decision.Target(), decision.Args)
		res.Steps++
		rec := evaluate.Record{
			EpisodeID: res.ID,
			Env:       d.env.Identity().Name,
			Task:      d.agent.Task(),
			Step:      res.Steps - 1,
			Action:    decision.Action.Name(),
			Args:      decision.Args,
			Thoughts:  d.lastThoughts(),
		}
		if err != nil {
			if !recoverable(err) {
				return res, fmt.Errorf("step %d: %w", res.Steps, err)
			}
			log.Warn("Action rejected.",
				zap.String("action", decision.Action.Name()),
				zap.String("code", string(action.CodeOf(err))),
				zap.Error(err),
			)
			rec.Error = err.Error()
			if err := d.write(rec); err != nil {
				return res, err
			}
			continue
		}

		res.Return += step.Reward
		res.Terminated, res.Truncated = step.Terminated, step.Truncated
		rec.Reward, rec.Terminated, rec.Truncated = step.Reward, step.Terminated, step.Truncated
		log.Info("Step.",
			zap.Int("step", res.Steps),
			zap.String("action", decision.Action.Name()),
			zap.Any("args", decision.Args),
			zap.Float64("reward", step.Reward),
			zap.Bool("terminated", step.Terminated),
			zap.Bool("truncated", step.Truncated),
		)
		if err := d.write(rec); err != nil {
			return res, err
		}
		if step.Done() {
			return res, nil
		}
		obs = step.Observation
	}
	return res, nil
}

func (d *driver[S]) write(rec evaluate.Record) error {
	if d.records == nil {
		return nil
	}
	return d.records.Write(rec)
}

func (d *driver[S]) lastThoughts() *agent.Thoughts {
	src, ok := d.agent.(trajectorySource)
	if !ok {
		return nil
	}
	history := src.Trajectory()
	if len(history) == 0 {
		return nil
	}
	t := history[len(history)-1].Thoughts
	return &t
}

// recoverable reports whether a Step error only rejected the action.
func recoverable(err error) bool {
	return errors.Is(err, action.ErrInvalidArguments) ||
		errors.Is(err, action.ErrActionDisabled) ||
		errors.Is(err, action.ErrActionNotFound) ||
		errors.Is(err, action.ErrActionUnimplemented)
}
