package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/webgym/api/schemas"
)

func newTestRouter(t *testing.T) (*LLMRouter, *MockLLMClient, *MockLLMClient, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	fast := &MockLLMClient{Name: "fast"}
	powerful := &MockLLMClient{Name: "powerful"}
	router, err := NewLLMRouter(zap.New(core), fast, powerful)
	require.NoError(t, err)
	return router, fast, powerful, logs
}

func TestNewLLMRouter(t *testing.T) {
	client := new(MockLLMClient)
	for name, pair := range map[string][2]schemas.LLMClient{
		"no fast client":     {nil, client},
		"no powerful client": {client, nil},
		"no clients":         {nil, nil},
	} {
		t.Run(name, func(t *testing.T) {
			router, err := NewLLMRouter(setupTestLogger(t), pair[0], pair[1])
			require.Error(t, err)
			assert.Nil(t, router)
			assert.Contains(t, err.Error(), "both fast and powerful tier clients must be provided")
		})
	}
}

func TestLLMRouterGenerate(t *testing.T) {
	tests := []struct {
		name     string
		tier     schemas.ModelTier
		wantFast bool
		logged   schemas.ModelTier
	}{
		{name: "fast tier", tier: schemas.TierFast, wantFast: true, logged: schemas.TierFast},
		{name: "powerful tier", tier: schemas.TierPowerful, logged: schemas.TierPowerful},
		{name: "empty tier defaults to powerful", logged: schemas.TierPowerful},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, fast, powerful, logs := newTestRouter(t)
			ctx := context.Background()
			req := schemas.GenerationRequest{Tier: tt.tier, UserPrompt: "Task: Buy milk"}

			chosen, other := powerful, fast
			if tt.wantFast {
				chosen, other = fast, powerful
			}
			chosen.On("Generate", ctx, req).Return(`{"action": {"name": "none"}}`, nil).Once()

			reply, err := router.Generate(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, `{"action": {"name": "none"}}`, reply)
			chosen.AssertExpectations(t)
			other.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

			require.Equal(t, 1, logs.Len())
			assert.Equal(t, string(tt.logged), logs.All()[0].ContextMap()["tier"])
		})
	}

	t.Run("client error is returned", func(t *testing.T) {
		router, fast, _, _ := newTestRouter(t)
		req := schemas.GenerationRequest{Tier: schemas.TierFast}
		quota := errors.New("quota exceeded")
		fast.On("Generate", mock.Anything, req).Return("", quota).Once()

		_, err := router.Generate(context.Background(), req)
		assert.ErrorIs(t, err, quota)
	})

	t.Run("unknown tier", func(t *testing.T) {
		router, fast, powerful, _ := newTestRouter(t)
		_, err := router.Generate(context.Background(), schemas.GenerationRequest{Tier: "medium"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no LLM client configured for tier: medium")
		fast.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
		powerful.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})
}

func TestLLMRouterClose(t *testing.T) {
	t.Run("distinct clients", func(t *testing.T) {
		router, fast, powerful, _ := newTestRouter(t)
		fast.On("Close").Return(nil).Once()
		powerful.On("Close").Return(errors.New("busy")).Once()

		err := router.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "closing powerful client: busy")
		fast.AssertExpectations(t)
		powerful.AssertExpectations(t)
	})

	t.Run("shared client closes once", func(t *testing.T) {
		shared := &MockLLMClient{Name: "shared"}
		router, err := NewLLMRouter(nil, shared, shared)
		require.NoError(t, err)
		shared.On("Close").Return(nil).Once()

		assert.NoError(t, router.Close())
		shared.AssertNumberOfCalls(t, "Close", 1)
	})
}
