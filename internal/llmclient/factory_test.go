package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webgym/internal/config"
)

// -- Test Cases: Factory Initialization (NewClient) --

func TestNewClient(t *testing.T) {
	logger := setupTestLogger(t)
	ctx := context.Background()

	t.Run("gemini", func(t *testing.T) {
		cfg := getValidLLMConfig()
		client, err := NewClient(ctx, cfg, logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		assert.IsType(t, &GeminiClient{}, client)
	})

	t.Run("openai, case insensitive", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Provider = "OpenAI"
		client, err := NewClient(ctx, cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &OpenAIClient{}, client)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Provider = "anthropomorphic"
		client, err := NewClient(ctx, cfg, logger)
		assert.Nil(t, client)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown or unsupported LLM provider configured: 'anthropomorphic'")
	})

	t.Run("missing api key", func(t *testing.T) {
		for _, provider := range []config.LLMProvider{config.ProviderGemini, config.ProviderOpenAI} {
			cfg := getValidLLMConfig()
			cfg.Provider = provider
			cfg.APIKey = ""
			_, err := NewClient(ctx, cfg, logger)
			assert.Error(t, err, provider)
		}
	})
}
