// -- internal/llmclient/factory.go --
package llmclient

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/api/schemas"
	"github.com/xkilldash9x/webgym/internal/config"
)

// NewClient is a factory function that creates an LLMClient based on the configuration.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch config.LLMProvider(strings.ToLower(string(cfg.Provider))) {
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderOpenAI:
		client, err := NewOpenAIClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGemini, config.ProviderOpenAI)
	}
}
