// internal/llmclient/openai_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/api/schemas"
	"github.com/xkilldash9x/webgym/internal/config"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/"

// OpenAIClient implements schemas.LLMClient for OpenAI-compatible chat
// completion APIs. Endpoint selects the API base.
type OpenAIClient struct {
	client    *openai.Client
	config    config.LLMConfig
	baseURL   string
	logger    *zap.Logger
	requester *requester
}

var _ schemas.LLMClient = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	// Retries belong to the requester so they share its pacing.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if cfg.APITimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.APITimeout))
	}

	log := logger.Named("llm_client.openai")
	return &OpenAIClient{
		client:    openai.NewClient(opts...),
		config:    cfg,
		baseURL:   baseURL,
		logger:    log,
		requester: newRequester(cfg, log),
	}, nil
}

// Generate sends the prompts as a chat completion and returns the first choice.
func (c *OpenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	params := c.buildParams(req)

	var content string
	err := c.requester.do(ctx, func(ctx context.Context) error {
		start := time.Now()
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return c.classify(err)
		}
		if len(completion.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("openai API returned no choices"))
		}
		c.logger.Info("LLM generation complete (OpenAI)",
			zap.Duration("duration", time.Since(start)),
			zap.Int64("prompt_tokens", completion.Usage.PromptTokens),
			zap.Int64("completion_tokens", completion.Usage.CompletionTokens),
			zap.Int64("total_tokens", completion.Usage.TotalTokens),
		)
		content = completion.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *OpenAIClient) buildParams(req schemas.GenerationRequest) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	temperature := float64(c.config.Temperature)
	if req.Options.Temperature != 0 {
		temperature = req.Options.Temperature
	}
	params := openai.ChatCompletionNewParams{
		Messages:    openai.F(messages),
		Model:       openai.F(c.config.Model),
		Temperature: openai.F(temperature),
	}

	topP := float64(c.config.TopP)
	if req.Options.TopP != 0 {
		topP = req.Options.TopP
	}
	if topP > 0 {
		params.TopP = openai.F(topP)
	}
	maxTokens := c.config.MaxTokens
	if req.Options.MaxTokens != 0 {
		maxTokens = req.Options.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.F(int64(maxTokens))
	}
	return params
}

func (c *OpenAIClient) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		c.logger.Error("OpenAI API returned error status", zap.Int("status", apiErr.StatusCode))
		if transientStatus(apiErr.StatusCode) {
			return err
		}
		return backoff.Permanent(err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}
	return err
}

// Close is a no-op; the SDK shares the default HTTP transport.
func (c *OpenAIClient) Close() error {
	return nil
}
