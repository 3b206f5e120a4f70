// File: internal/env/webarena/env.go
package webarena

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/env"
)

// Env drives a Browser with self-contained commands.
type Env struct {
	env.Lifecycle

	browser    Browser
	space      *action.Space[action.NoSession]
	configFile string
	logger     *zap.Logger
}

var (
	_ env.Environment[action.NoSession] = (*Env)(nil)
	_ env.Resetter                      = (*Env)(nil)
)

// New wraps browser. configFile is the default Reset configuration.
func New(id env.Identity, browser Browser, configFile string, logger *zap.Logger) (*Env, error) {
	if browser == nil {
		return nil, fmt.Errorf("webarena environment %q requires a browser", id.Name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	space, err := NewSpace()
	if err != nil {
		return nil, fmt.Errorf("failed to build webarena action space: %w", err)
	}
	return &Env{
		Lifecycle:  env.NewLifecycle(id),
		browser:    browser,
		space:      space,
		configFile: configFile,
		logger:     logger.Named("webarena").With(zap.String("env", id.Name)),
	}, nil
}

func (e *Env) Space() *action.Space[action.NoSession] { return e.space }

// Reset loads the construction-time configuration file.
func (e *Env) Reset(ctx context.Context) (env.Observation, env.Info, error) {
	return e.ResetConfig(ctx, "")
}

// ResetConfig loads configFile, or the construction-time default when empty. The
// browser is not touched unless the file exists.
func (e *Env) ResetConfig(ctx context.Context, configFile string) (env.Observation, env.Info, error) {
	if err := e.CheckOpen(); err != nil {
		return nil, nil, err
	}
	path := configFile
	if path == "" {
		path = e.configFile
	}
	if path == "" {
		return nil, nil, fmt.Errorf("%w: no config file given", env.ErrConfigNotFound)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", env.ErrConfigNotFound, path)
		}
		return nil, nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}
	obs, info, err := e.browser.Reset(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("browser reset failed: %w", err)
	}
	e.MarkReady()
	e.logger.Debug("Browser reset.", zap.String("config_file", path))
	return obs, info, nil
}

// Step resolves and calls the action, then executes its command.
func (e *Env) Step(ctx context.Context, target action.Target[action.NoSession], args action.Args) (env.StepResult, error) {
	if err := e.CheckReady(); err != nil {
		return env.StepResult{}, err
	}
	out, err := env.Invoke(ctx, e.space, action.NoSession{}, target, args)
	if err != nil {
		return env.StepResult{}, err
	}
	cmd, ok := out.(Command)
	if !ok {
		return env.StepResult{}, fmt.Errorf("action %s produced %T, expected a browser command", target, out)
	}
	res, err := e.browser.Execute(ctx, cmd)
	if err != nil {
		return env.StepResult{}, fmt.Errorf("browser execution of %s failed: %w", cmd.Kind, err)
	}
	e.logger.Debug("Command executed.",
		zap.String("kind", string(cmd.Kind)),
		zap.Float64("reward", res.Reward),
		zap.Bool("terminated", res.Terminated),
	)
	return res, nil
}

// Close releases the browser. Later calls are no-ops.
func (e *Env) Close() error {
	if !e.MarkClosed() {
		return nil
	}
	if err := e.browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
