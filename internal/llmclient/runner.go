// internal/llmclient/runner.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/api/schemas"
	"github.com/xkilldash9x/webgym/internal/config"
)

// Runner renders a prompt template and sends it to a client.
type Runner struct {
	client   schemas.LLMClient
	template *PromptTemplate
	options  schemas.GenerationOptions
	tier     schemas.ModelTier
	logger   *zap.Logger
}

func NewRunner(client schemas.LLMClient, tmpl *PromptTemplate, cfg config.LLMConfig, logger *zap.Logger) (*Runner, error) {
	if client == nil {
		return nil, fmt.Errorf("runner requires an LLM client")
	}
	if tmpl == nil {
		return nil, fmt.Errorf("runner requires a prompt template")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		client:   client,
		template: tmpl,
		options: schemas.GenerationOptions{
			Temperature: float64(cfg.Temperature),
			TopP:        float64(cfg.TopP),
			MaxTokens:   cfg.MaxTokens,
		},
		tier:   schemas.TierPowerful,
		logger: logger.Named("llm_runner"),
	}, nil
}

// Template returns the prompt template the runner renders.
func (r *Runner) Template() *PromptTemplate { return r.template }

// Run renders vars into the prompt and returns the raw completion.
func (r *Runner) Run(ctx context.Context, vars map[string]any) (string, error) {
	prompt, err := r.template.Render(vars)
	if err != nil {
		return "", err
	}
	r.logger.Debug("Prompt rendered.", zap.String("prompt", prompt))

	out, err := r.client.Generate(ctx, schemas.GenerationRequest{
		UserPrompt: prompt,
		Tier:       r.tier,
		Options:    r.options,
	})
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	r.logger.Debug("LLM response received.", zap.String("response", out))
	return out, nil
}
