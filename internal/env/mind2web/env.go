// File: internal/env/mind2web/env.go
package mind2web

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/env"
)

// Env replays recorded demonstrations. Each step scores the produced candidate
// against the demonstration's target for that step and advances a cursor.
type Env struct {
	env.Lifecycle

	dataset   *Dataset
	space     *action.Space[action.NoSession]
	defaultID string
	logger    *zap.Logger

	scenario *Scenario
	cursor   int
}

var (
	_ env.Environment[action.NoSession] = (*Env)(nil)
	_ env.Resetter                      = (*Env)(nil)
)

// Options configure a replay environment.
type Options struct {
	DatasetPath string
	// AnnotationID is the scenario Reset selects; empty selects the first one.
	AnnotationID string
}

// New loads the dataset eagerly.
func New(id env.Identity, opts Options, logger *zap.Logger) (*Env, error) {
	ds, err := LoadDataset(opts.DatasetPath)
	if err != nil {
		return nil, err
	}
	return NewWithDataset(id, ds, opts.AnnotationID, logger)
}

// NewWithDataset builds the environment over an already-loaded dataset.
func NewWithDataset(id env.Identity, ds *Dataset, defaultID string, logger *zap.Logger) (*Env, error) {
	if ds == nil {
		return nil, fmt.Errorf("mind2web environment %q requires a dataset", id.Name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	space, err := NewSpace()
	if err != nil {
		return nil, fmt.Errorf("failed to build mind2web action space: %w", err)
	}
	return &Env{
		Lifecycle: env.NewLifecycle(id),
		dataset:   ds,
		space:     space,
		defaultID: defaultID,
		logger:    logger.Named("mind2web").With(zap.String("env", id.Name)),
	}, nil
}

func (e *Env) Space() *action.Space[action.NoSession] { return e.space }
func (e *Env) Dataset() *Dataset                      { return e.dataset }

// Scenario returns the scenario selected by the last reset, or nil.
func (e *Env) Scenario() *Scenario { return e.scenario }

// Reset selects the configured default scenario.
func (e *Env) Reset(ctx context.Context) (env.Observation, env.Info, error) {
	return e.ResetScenario(ctx, e.defaultID)
}

// ResetScenario selects the scenario with the given annotation id (the first one
// when empty), adopts its confirmed task and returns the observation of step 0.
func (e *Env) ResetScenario(_ context.Context, annotationID string) (env.Observation, env.Info, error) {
	if err := e.CheckOpen(); err != nil {
		return nil, nil, err
	}
	s, err := e.dataset.Get(annotationID)
	if err != nil {
		return nil, nil, err
	}
	e.scenario = s
	e.cursor = 0
	e.SetTask(s.ConfirmedTask)
	e.MarkReady()
	e.logger.Debug("Scenario selected.",
		zap.String("annotation_id", s.AnnotationID),
		zap.String("website", s.Website),
		zap.Int("steps", s.Len()),
	)
	return s.Observation(0), env.Info{"annotation_id": s.AnnotationID}, nil
}

// Step invokes the action and scores its candidate against the current step's
// ground truth. Once the recording is exhausted it reports termination with a
// zero reward and an empty observation instead of invoking the action.
func (e *Env) Step(ctx context.Context, target action.Target[action.NoSession], args action.Args) (env.StepResult, error) {
	if err := e.CheckReady(); err != nil {
		return env.StepResult{}, err
	}
	if e.cursor >= e.scenario.Len() {
		e.logger.Warn("No more steps in the scenario.",
			zap.String("annotation_id", e.scenario.AnnotationID),
			zap.String("domain", e.scenario.Domain),
			zap.Int("cursor", e.cursor),
		)
		return env.StepResult{
			Observation: env.Observation{},
			Terminated:  true,
			Info:        env.Info{"step": e.cursor},
		}, nil
	}
	out, err := env.Invoke(ctx, e.space, action.NoSession{}, target, args)
	if err != nil {
		return env.StepResult{}, err
	}
	produced, ok := out.(Candidate)
	if !ok {
		return env.StepResult{}, fmt.Errorf("action %s produced %T, expected a candidate", target, out)
	}
	truth, hasTarget := e.scenario.Actions[e.cursor].GroundTruth()
	reward := Reward(produced, truth, hasTarget)
	info := env.Info{"step": e.cursor}
	if !hasTarget {
		e.logger.Warn("Recorded step has no positive candidate.", zap.Int("cursor", e.cursor))
		info["missing_ground_truth"] = true
	}
	e.cursor++
	e.logger.Debug("Step scored.",
		zap.String("action", target.Name()),
		zap.Int("backend_node_id", produced.BackendNodeID),
		zap.Float64("reward", reward),
	)
	return env.StepResult{
		Observation: e.scenario.Observation(e.cursor),
		Reward:      reward,
		Info:        info,
	}, nil
}

// Close releases nothing external; it only ends the lifecycle.
func (e *Env) Close() error {
	e.MarkClosed()
	return nil
}
