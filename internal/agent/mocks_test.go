package agent

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/env"
)

// MockEnv is an environment over a fixed action space.
type MockEnv struct {
	mock.Mock
	space *action.Space[action.NoSession]
	task  string
}

func newMockEnv(task string, names ...string) *MockEnv {
	actions := make([]*action.Action[action.NoSession], 0, len(names))
	for _, name := range names {
		actions = append(actions, action.MustNew(action.Definition[action.NoSession]{
			Name:        name,
			Description: name + " action",
			Func: func(context.Context, action.NoSession, action.Args) (any, error) {
				return nil, nil
			},
		}))
	}
	space, err := action.NewSpace(actions...)
	if err != nil {
		panic(err)
	}
	return &MockEnv{space: space, task: task}
}

func (m *MockEnv) Identity() env.Identity {
	return env.Identity{Name: "mock-env", Type: "test", Task: m.task}
}

func (m *MockEnv) Task() string        { return m.task }
func (m *MockEnv) SetTask(task string) { m.task = task }

func (m *MockEnv) Space() *action.Space[action.NoSession] { return m.space }

func (m *MockEnv) Step(ctx context.Context, target action.Target[action.NoSession], args action.Args) (env.StepResult, error) {
	a := m.Called(ctx, target.Name(), args)
	return a.Get(0).(env.StepResult), a.Error(1)
}

func (m *MockEnv) Close() error { return nil }

// MockResettableEnv also implements env.Resetter.
type MockResettableEnv struct {
	*MockEnv
}

func (m MockResettableEnv) Reset(ctx context.Context) (env.Observation, env.Info, error) {
	a := m.Called(ctx)
	return env.Observation{}, env.Info{}, a.Error(0)
}

// MockRunner mocks the prompt runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, vars map[string]any) (string, error) {
	a := m.Called(ctx, vars)
	return a.String(0), a.Error(1)
}

// staticTemplate reports a fixed set of input variables.
type staticTemplate []string

func (t staticTemplate) InputVariables() []string { return t }
