package miniwob

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/webgym/internal/env"
)

// MockSimulator mocks the Simulator interface. CreateAction is real so executables
// produce genuine commands.
type MockSimulator struct {
	mock.Mock
	Allowed []ActionType
}

func (m *MockSimulator) Reset(ctx context.Context) (env.Observation, env.Info, error) {
	args := m.Called(ctx)
	var obs env.Observation
	if v := args.Get(0); v != nil {
		obs = v.(env.Observation)
	}
	var info env.Info
	if v := args.Get(1); v != nil {
		info = v.(env.Info)
	}
	return obs, info, args.Error(2)
}

func (m *MockSimulator) CreateAction(kind ActionType, opts ...CommandOption) (Command, error) {
	return NewCommand(kind, m.Allowed, opts...)
}

func (m *MockSimulator) Step(ctx context.Context, cmd Command) (env.StepResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(env.StepResult), args.Error(1)
}

func (m *MockSimulator) Close() error {
	return m.Called().Error(0)
}

// MockTimedSimulator additionally accepts an episode time limit.
type MockTimedSimulator struct {
	MockSimulator
}

func (m *MockTimedSimulator) SetEpisodeMaxTime(ctx context.Context, limit time.Duration) error {
	return m.Called(ctx, limit).Error(0)
}
