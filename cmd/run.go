// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/agent"
	"github.com/xkilldash9x/webgym/internal/config"
	"github.com/xkilldash9x/webgym/internal/env"
	"github.com/xkilldash9x/webgym/internal/evaluate"
	"github.com/xkilldash9x/webgym/internal/llmclient"
)

func newRunCmd(a *app) *cobra.Command {
	var trajectoryOut string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Drives an agent through episodes of the configured environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := a.logger.Named("run")

			var out io.Writer
			if trajectoryOut != "" {
				f, err := os.Create(trajectoryOut)
				if err != nil {
					return fmt.Errorf("failed to create trajectory file: %w", err)
				}
				defer f.Close()
				out = f
			}

			results, err := runConfigured(ctx, a.cfg, out, logger)
			if err != nil {
				return err
			}

			var total float64
			for _, r := range results {
				total += r.Return
				fmt.Fprintf(cmd.OutOrStdout(), "episode %s: steps=%d return=%.4f terminated=%t truncated=%t\n",
					r.ID, r.Steps, r.Return, r.Terminated, r.Truncated)
			}
			if len(results) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "mean return over %d episodes: %.4f\n", len(results), total/float64(len(results)))
			}
			return nil
		},
	}

	runCmd.Flags().String("env", "", "environment kind: miniwob, mind2web or webarena (overrides config)")
	runCmd.Flags().String("name", "", "environment name, the MiniWoB task for miniwob (overrides config)")
	runCmd.Flags().String("task", "", "task given to the agent (overrides config)")
	runCmd.Flags().String("agent", "", "agent kind: random or llm (overrides config)")
	runCmd.Flags().Int("episodes", 0, "number of episodes (overrides config)")
	runCmd.Flags().Int("max-steps", 0, "step limit per episode (overrides config)")
	runCmd.Flags().String("dataset", "", "Mind2Web dataset file (overrides config)")
	runCmd.Flags().String("annotation-id", "", "Mind2Web scenario to replay (overrides config)")
	runCmd.Flags().StringVarP(&trajectoryOut, "trajectory-out", "o", "", "write the trajectory as JSON lines to this file")
	return runCmd
}

// runConfigured builds the environment and agent the configuration selects and
// drives its episodes. Records go to out when it is not nil.
func runConfigured(ctx context.Context, cfg *config.Config, out io.Writer, logger *zap.Logger) ([]episodeResult, error) {
	var records *evaluate.RecordWriter
	if out != nil {
		records = evaluate.NewRecordWriter(out)
	}

	built, err := buildEnvironment(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return built.drive(ctx, cfg, records, logger)
}

// drive binds the agent to e and runs the configured episodes, closing both
// afterwards.
func drive[S any](ctx context.Context, cfg *config.Config, e env.Environment[S], records *evaluate.RecordWriter, logger *zap.Logger) (results []episodeResult, err error) {
	defer func() {
		if cerr := e.Close(); cerr != nil {
			logger.Warn("Failed to close environment.", zap.Error(cerr))
		}
	}()

	// Replay and sandbox environments only learn their task on reset.
	if r, ok := e.(env.Resetter); ok && e.Task() == "" {
		if _, _, err := r.Reset(ctx); err != nil {
			return nil, fmt.Errorf("failed to reset %s: %w", e.Identity().Name, err)
		}
	}

	ag, closeAgent, err := newAgent[S](ctx, cfg, driverEnv[S]{e}, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := closeAgent(); cerr != nil {
			logger.Warn("Failed to close LLM client.", zap.Error(cerr))
		}
	}()

	logger.Info("Starting run.",
		zap.String("env", e.Identity().Name),
		zap.String("env_kind", string(cfg.Env.Kind)),
		zap.String("agent", ag.Name()),
		zap.String("agent_id", ag.ID()),
		zap.String("task", ag.Task()),
		zap.Int("episodes", cfg.Run.Episodes),
	)

	d := &driver[S]{
		env:      e,
		agent:    ag,
		maxSteps: cfg.Run.MaxSteps,
		records:  records,
		logger:   logger,
	}
	return d.run(ctx, cfg.Run.Episodes)
}

// newAgent builds the configured agent for e. The returned func releases the
// agent's model client.
func newAgent[S any](ctx context.Context, cfg *config.Config, e env.Environment[S], logger *zap.Logger) (agent.Agent[S], func() error, error) {
	noop := func() error { return nil }

	switch cfg.Agent.Kind {
	case config.AgentRandom:
		a, err := agent.NewRandom(e, cfg.Agent, logger)
		if err != nil {
			return nil, noop, err
		}
		return a, noop, nil

	case config.AgentLLM:
		tmpl, err := llmclient.LoadPromptTemplate(cfg.Agent.LLM.Template)
		if err != nil {
			return nil, noop, err
		}
		client, err := llmclient.NewClient(ctx, cfg.Agent.LLM, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create LLM client: %w", err)
		}
		router, err := llmclient.NewLLMRouter(logger, client, client)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		runner, err := llmclient.NewRunner(router, tmpl, cfg.Agent.LLM, logger)
		if err != nil {
			_ = router.Close()
			return nil, noop, err
		}
		a, err := agent.NewLLM(e, runner, tmpl, cfg.Agent, logger)
		if err != nil {
			_ = router.Close()
			return nil, noop, err
		}
		return a, router.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown agent kind %q", cfg.Agent.Kind)
	}
}
