package webarena

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/webgym/internal/env"
)

// MockBrowser mocks the Browser interface.
type MockBrowser struct {
	mock.Mock
}

func (m *MockBrowser) Reset(ctx context.Context, configFile string) (env.Observation, env.Info, error) {
	args := m.Called(ctx, configFile)
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

func (m *MockBrowser) Execute(ctx context.Context, cmd Command) (env.StepResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(env.StepResult), args.Error(1)
}

func (m *MockBrowser) Close() error {
	return m.Called().Error(0)
}
