// File: internal/env/env.go
package env

import (
	"context"
	"errors"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/webgym/internal/action"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sentinel errors shared by every environment variant.
var (
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrConfigNotFound   = errors.New("config file not found")
	ErrEnvClosed        = errors.New("environment is closed")
	ErrNotReset         = errors.New("environment has not been reset")
)

// Identity names an environment instance.
type Identity struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Task string `json:"task,omitempty"`
}

// Observation is an environment-specific observation record.
type Observation map[string]any

// String renders the observation as JSON with sorted keys, so equal observations
// always render to the same text.
func (o Observation) String() string {
	if len(o) == 0 {
		return "{}"
	}
	b, err := json.Marshal(map[string]any(o))
	if err != nil {
		// Values that cannot be marshalled fall back to the sorted key list.
		keys := make([]string, 0, len(o))
		for k := range o {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b, _ = json.Marshal(keys)
	}
	return string(b)
}

// Info carries auxiliary step or reset data.
type Info map[string]any

// StepResult is the outcome of one Step.
type StepResult struct {
	Observation Observation `json:"observation"`
	Reward      float64     `json:"reward"`
	Terminated  bool        `json:"terminated"`
	Truncated   bool        `json:"truncated"`
	Info        Info        `json:"info,omitempty"`
}

// Done reports whether the episode ended for either reason.
func (r StepResult) Done() bool { return r.Terminated || r.Truncated }

// Environment is the polymorphic contract driven by agents and the runner. S is
// the session type threaded into the environment's action executables.
type Environment[S any] interface {
	Identity() Identity
	Task() string
	SetTask(task string)
	Space() *action.Space[S]
	Step(ctx context.Context, target action.Target[S], args action.Args) (StepResult, error)
	Close() error
}

// Resetter is implemented by environments that can start a new episode with their
// construction defaults.
type Resetter interface {
	Reset(ctx context.Context) (Observation, Info, error)
}

// Invoke resolves target through space and calls the action with session.
func Invoke[S any](ctx context.Context, space *action.Space[S], session S, target action.Target[S], args action.Args) (any, error) {
	a, err := space.Resolve(target)
	if err != nil {
		return nil, err
	}
	return a.Call(ctx, session, args)
}
