package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/env"
)

func TestNewBase(t *testing.T) {
	t.Run("EnvironmentTaskWins", func(t *testing.T) {
		e := newMockEnv("env task", "click")
		b, err := newBase[action.NoSession]("random_agent", "", "agent task", e, nil)
		require.NoError(t, err)
		assert.Equal(t, "env task", b.Task())
		assert.Equal(t, "random_agent", b.Name(), "empty name falls back to the kind")
		assert.Len(t, b.ID(), 36)
	})

	t.Run("AgentTaskWhenEnvironmentHasNone", func(t *testing.T) {
		e := newMockEnv("", "click")
		b, err := newBase[action.NoSession]("llm_agent", "bob", "agent task", e, nil)
		require.NoError(t, err)
		assert.Equal(t, "agent task", b.Task())
		assert.Equal(t, "bob", b.Name())
	})

	t.Run("NoTask", func(t *testing.T) {
		e := newMockEnv("", "click")
		_, err := newBase[action.NoSession]("llm_agent", "", "", e, nil)
		assert.ErrorIs(t, err, ErrNoTask)
	})

	t.Run("NilEnvironment", func(t *testing.T) {
		_, err := newBase[action.NoSession]("llm_agent", "", "task", nil, nil)
		assert.Error(t, err)
	})
}

func TestBaseResetEnv(t *testing.T) {
	t.Run("NotResettable", func(t *testing.T) {
		b, err := newBase[action.NoSession]("random_agent", "", "task", newMockEnv("", "click"), nil)
		require.NoError(t, err)
		assert.NoError(t, b.resetEnv(context.Background()))
	})

	t.Run("ResetFailureIsWrapped", func(t *testing.T) {
		e := MockResettableEnv{MockEnv: newMockEnv("task", "click")}
		cause := errors.New("browser gone")
		e.On("Reset", context.Background()).Return(cause).Once()

		b, err := newBase[action.NoSession]("random_agent", "", "", env.Environment[action.NoSession](e), nil)
		require.NoError(t, err)
		err = b.resetEnv(context.Background())
		assert.ErrorIs(t, err, cause)
		e.AssertExpectations(t)
	})
}

func TestDecisionTarget(t *testing.T) {
	e := newMockEnv("task", "click", "none")
	a, err := e.Space().Get("click")
	require.NoError(t, err)

	d := Decision[action.NoSession]{Action: a, Args: action.Args{}}
	resolved, err := e.Space().Resolve(d.Target())
	require.NoError(t, err)
	assert.Same(t, a, resolved)
	assert.Equal(t, "click", d.Target().Name())
}

func TestPlanSteps(t *testing.T) {
	assert.Equal(t, DefaultPlanSteps, planSteps(0))
	assert.Equal(t, DefaultPlanSteps, planSteps(-2))
	assert.Equal(t, 7, planSteps(7))
}
