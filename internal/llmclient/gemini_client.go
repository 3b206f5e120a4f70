// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/webgym/api/schemas"
	"github.com/xkilldash9x/webgym/internal/config"
)

// GeminiClient implements the schemas.LLMClient interface for Google Gemini APIs.
type GeminiClient struct {
	client    *genai.Client
	config    config.LLMConfig
	logger    *zap.Logger
	requester *requester
}

var _ schemas.LLMClient = (*GeminiClient)(nil)

// NewGeminiClient initializes the client. A configured endpoint replaces the
// public API base URL.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.APITimeout},
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions.BaseURL = cfg.Endpoint
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log := logger.Named("llm_client.gemini")
	return &GeminiClient{
		client:    client,
		config:    cfg,
		logger:    log,
		requester: newRequester(cfg, log),
	}, nil
}

// Generate sends the prompts to the Gemini API and returns the generated text.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	genConfig := c.buildGenerationConfig(req)

	var content string
	err := c.requester.do(ctx, func(ctx context.Context) error {
		start := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(req.UserPrompt), genConfig)
		if err != nil {
			return c.classify(err)
		}
		if len(resp.Candidates) == 0 {
			if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
				return backoff.Permanent(fmt.Errorf("gemini API blocked the prompt (Reason: %s)", resp.PromptFeedback.BlockReason))
			}
			return backoff.Permanent(fmt.Errorf("gemini API returned no candidates"))
		}

		text := resp.Text()
		if text == "" {
			reason := resp.Candidates[0].FinishReason
			if reason == genai.FinishReasonSafety || reason == genai.FinishReasonBlocklist {
				return backoff.Permanent(fmt.Errorf("gemini API blocked the request (Reason: %s)", reason))
			}
			return fmt.Errorf("gemini API returned empty content (Reason: %s)", reason)
		}

		fields := []zap.Field{zap.Duration("duration", time.Since(start))}
		if usage := resp.UsageMetadata; usage != nil {
			fields = append(fields,
				zap.Int32("prompt_tokens", usage.PromptTokenCount),
				zap.Int32("completion_tokens", usage.CandidatesTokenCount),
				zap.Int32("total_tokens", usage.TotalTokenCount),
			)
		}
		c.logger.Info("LLM generation complete (Gemini)", fields...)
		content = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *GeminiClient) buildGenerationConfig(req schemas.GenerationRequest) *genai.GenerateContentConfig {
	temperature := c.config.Temperature
	if req.Options.Temperature != 0 {
		temperature = float32(req.Options.Temperature)
	}
	topP := c.config.TopP
	if req.Options.TopP != 0 {
		topP = float32(req.Options.TopP)
	}
	maxTokens := c.config.MaxTokens
	if req.Options.MaxTokens != 0 {
		maxTokens = req.Options.MaxTokens
	}

	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(maxTokens),
	}
	if topP > 0 {
		gc.TopP = genai.Ptr(topP)
	}
	if req.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Options.ForceJSONFormat {
		gc.ResponseMIMEType = "application/json"
	}
	return gc
}

func (c *GeminiClient) classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		c.logger.Error("Gemini API returned error status", zap.Int("status", apiErr.Code), zap.String("message", apiErr.Message))
		if transientStatus(apiErr.Code) {
			return err
		}
		return backoff.Permanent(err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}
	return err
}

// Close is a no-op; the SDK client holds no resources of its own.
func (c *GeminiClient) Close() error {
	return nil
}
