// File: cmd/build.go
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/browser"
	"github.com/xkilldash9x/webgym/internal/config"
	"github.com/xkilldash9x/webgym/internal/env"
	"github.com/xkilldash9x/webgym/internal/env/mind2web"
	"github.com/xkilldash9x/webgym/internal/env/miniwob"
	"github.com/xkilldash9x/webgym/internal/env/webarena"
	"github.com/xkilldash9x/webgym/internal/evaluate"
)

// builtEnv hides the session type of the environment it was built for.
type builtEnv struct {
	drive func(ctx context.Context, cfg *config.Config, records *evaluate.RecordWriter, logger *zap.Logger) ([]episodeResult, error)
}

func bind[S any](e env.Environment[S]) builtEnv {
	return builtEnv{
		drive: func(ctx context.Context, cfg *config.Config, records *evaluate.RecordWriter, logger *zap.Logger) ([]episodeResult, error) {
			return drive(ctx, cfg, e, records, logger)
		},
	}
}

func identity(cfg *config.Config) env.Identity {
	name := cfg.Env.Name
	if name == "" {
		name = string(cfg.Env.Kind)
	}
	return env.Identity{Name: name, Type: cfg.Env.Type, Task: cfg.Env.Task}
}

// buildEnvironment constructs the configured environment. The browser backed
// variants launch their own browser session, which the environment closes.
func buildEnvironment(ctx context.Context, cfg *config.Config, logger *zap.Logger) (builtEnv, error) {
	id := identity(cfg)

	switch cfg.Env.Kind {
	case config.EnvMind2Web:
		e, err := mind2web.New(id, mind2web.Options{
			DatasetPath:  cfg.Env.Mind2Web.DatasetPath,
			AnnotationID: cfg.Env.Mind2Web.AnnotationID,
		}, logger)
		if err != nil {
			return builtEnv{}, fmt.Errorf("failed to create mind2web environment: %w", err)
		}
		return bind[action.NoSession](e), nil

	case config.EnvMiniWoB:
		if cfg.Env.Name == "" {
			return builtEnv{}, fmt.Errorf("env.name must name the miniwob task")
		}
		allowed := actionTypes(cfg.Env.MiniWoB.ActionTypes)
		session, err := browser.NewSession(ctx, cfg.Browser, logger)
		if err != nil {
			return builtEnv{}, err
		}
		sim, err := browser.NewMiniWoBSimulator(session, cfg.Env.MiniWoB.BaseURL, cfg.Env.Name, allowed, logger)
		if err != nil {
			_ = session.Close()
			return builtEnv{}, err
		}
		e, err := miniwob.New(ctx, id, sim, miniwob.Options{
			EpisodeMaxTime:  cfg.Env.MiniWoB.EpisodeMaxTime,
			MaxEpisodeSteps: cfg.Env.MiniWoB.MaxEpisodeSteps,
			ActionTypes:     allowed,
		}, logger)
		if err != nil {
			_ = sim.Close()
			return builtEnv{}, fmt.Errorf("failed to create miniwob environment: %w", err)
		}
		return bind[miniwob.Simulator](e), nil

	case config.EnvWebArena:
		session, err := browser.NewSession(ctx, cfg.Browser, logger)
		if err != nil {
			return builtEnv{}, err
		}
		b, err := browser.NewWebArenaBrowser(session, cfg.Env.WebArena, logger)
		if err != nil {
			_ = session.Close()
			return builtEnv{}, err
		}
		e, err := webarena.New(id, b, cfg.Env.WebArena.ConfigFile, logger)
		if err != nil {
			_ = b.Close()
			return builtEnv{}, fmt.Errorf("failed to create webarena environment: %w", err)
		}
		return bind[action.NoSession](e), nil

	default:
		return builtEnv{}, fmt.Errorf("unknown environment kind %q", cfg.Env.Kind)
	}
}

func actionTypes(names []string) []miniwob.ActionType {
	if len(names) == 0 {
		return nil
	}
	out := make([]miniwob.ActionType, 0, len(names))
	for _, n := range names {
		out = append(out, miniwob.ActionType(n))
	}
	return out
}

// describeSpace lists the catalog of an environment kind without building the
// environment.
func describeSpace(kind config.EnvKind) ([]action.Info, error) {
	switch kind {
	case config.EnvMiniWoB:
		s, err := miniwob.NewSpace()
		if err != nil {
			return nil, err
		}
		return s.Describe(), nil
	case config.EnvMind2Web:
		s, err := mind2web.NewSpace()
		if err != nil {
			return nil, err
		}
		return s.Describe(), nil
	case config.EnvWebArena:
		s, err := webarena.NewSpace()
		if err != nil {
			return nil, err
		}
		return s.Describe(), nil
	default:
		return nil, fmt.Errorf("unknown environment kind %q", kind)
	}
}
