// internal/agent/llm.go
package agent

import (
	"context"
	"fmt"
	"sync"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/config"
	"github.com/xkilldash9x/webgym/internal/env"
)

const (
	DefaultTrajectoryMaxLength = 5
	DefaultNoopAction          = "none"
)

// Runner turns prompt variables into a raw model reply.
type Runner interface {
	Run(ctx context.Context, vars map[string]any) (string, error)
}

// Template reports which prompt variables a template uses.
type Template interface {
	InputVariables() []string
}

// LLM asks a language model for the next action and keeps a bounded trajectory
// of its recent replies.
type LLM[S any] struct {
	base[S]
	runner   Runner
	template Template

	temperature          float32
	trajectoryMaxLength  int
	noopAction           string
	maxObservationTokens int

	mu         sync.Mutex
	trajectory []Output
}

var _ Agent[action.NoSession] = (*LLM[action.NoSession])(nil)

func NewLLM[S any](e env.Environment[S], runner Runner, tmpl Template, cfg config.AgentConfig, logger *zap.Logger) (*LLM[S], error) {
	if runner == nil || tmpl == nil {
		return nil, fmt.Errorf("llm agent requires a runner and a prompt template")
	}
	b, err := newBase("llm_agent", cfg.Name, cfg.Task, e, logger)
	if err != nil {
		return nil, err
	}
	a := &LLM[S]{
		base:                 b,
		runner:               runner,
		template:             tmpl,
		temperature:          cfg.LLM.Temperature,
		trajectoryMaxLength:  cfg.LLM.TrajectoryMaxLength,
		noopAction:           cfg.LLM.NoopAction,
		maxObservationTokens: cfg.LLM.MaxObservationTokens,
	}
	if a.trajectoryMaxLength <= 0 {
		a.trajectoryMaxLength = DefaultTrajectoryMaxLength
	}
	if a.noopAction == "" {
		a.noopAction = DefaultNoopAction
	}
	return a, nil
}

// NextAction prompts the model with the observation and maps its reply onto
// the action space. Unparseable replies and unknown action names fall back to
// the no-op action, called without arguments.
func (a *LLM[S]) NextAction(ctx context.Context, obs env.Observation) (Decision[S], error) {
	observation := obs.String()
	vars := a.promptVariables(observation)
	a.logger.Debug("Prompt variables.", zap.Any("variables", vars))

	reply, err := a.runner.Run(ctx, vars)
	if err != nil {
		return Decision[S]{}, err
	}
	a.logger.Debug("LLM return.", zap.String("reply", reply))

	space := a.env.Space()
	out, err := ParseOutput(reply)
	var chosen *action.Action[S]
	args := action.Args{}
	switch {
	case err != nil:
		a.logger.Debug("Reply could not be parsed, falling back to no-op.", zap.Error(err))
		if !space.Has(a.noopAction) {
			return Decision[S]{}, fmt.Errorf("%w: %q", ErrNoOpActionMissing, a.noopAction)
		}
		out = DefaultOutput()
		chosen, _ = space.Get(a.noopAction)
	case !space.Has(out.Action.Name):
		a.logger.Warn("Action not in action space.", zap.String("action", out.Action.Name))
		noop, getErr := space.Get(a.noopAction)
		if getErr != nil {
			return Decision[S]{}, fmt.Errorf("%w: %q", ErrNoOpActionMissing, a.noopAction)
		}
		chosen = noop
	default:
		chosen, _ = space.Get(out.Action.Name)
		args = action.Args(out.Action.InputActionArgs)
	}

	out.Observation = observation
	a.record(out)
	return Decision[S]{Action: chosen, Args: args}, nil
}

// Plan calls NextAction steps times with the same observation.
func (a *LLM[S]) Plan(ctx context.Context, obs env.Observation, steps int) ([]Decision[S], error) {
	n := planSteps(steps)
	plan := make([]Decision[S], 0, n)
	for i := 0; i < n; i++ {
		d, err := a.NextAction(ctx, obs)
		if err != nil {
			return plan, err
		}
		plan = append(plan, d)
	}
	return plan, nil
}

// Reset clears the trajectory, takes over the environment's task and starts a
// new episode.
func (a *LLM[S]) Reset(ctx context.Context) error {
	a.mu.Lock()
	a.trajectory = nil
	a.mu.Unlock()
	a.refreshTask()
	return a.resetEnv(ctx)
}

// Trajectory returns the recorded replies, oldest first.
func (a *LLM[S]) Trajectory() []Output {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Output, len(a.trajectory))
	copy(out, a.trajectory)
	return out
}

func (a *LLM[S]) record(out Output) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trajectory = append(a.trajectory, out)
	if over := len(a.trajectory) - a.trajectoryMaxLength; over > 0 {
		a.trajectory = append([]Output(nil), a.trajectory[over:]...)
	}
}

// promptVariables exposes the agent's attributes under the names a template
// may use, restricted to the ones it does use.
func (a *LLM[S]) promptVariables(observation string) map[string]any {
	wanted := a.template.InputVariables()
	vars := make(map[string]any, len(wanted))
	for _, name := range wanted {
		switch name {
		case "name":
			vars[name] = a.name
		case "task":
			vars[name] = a.task
		case "actions":
			vars[name] = mustJSON(a.env.Space().Describe())
		case "trajectory":
			vars[name] = mustJSON(a.Trajectory())
		case "trajectory_max_length":
			vars[name] = a.trajectoryMaxLength
		case "output_format":
			vars[name] = OutputFormat()
		case "observation":
			vars[name] = truncateTokens(observation, a.maxObservationTokens)
		case "temperature":
			vars[name] = a.temperature
		}
	}
	return vars
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
