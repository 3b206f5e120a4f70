// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/config"
	"github.com/xkilldash9x/webgym/internal/observability"
)

const envPrefix = "WEBGYM"

// app is the state shared by the commands of one root command instance.
type app struct {
	cfgFile string
	envFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds a fresh command tree, so flags never leak between runs.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "webgym",
		Short:   "webgym runs agents against web interaction benchmarks.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading environment variables")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.SetVersionTemplate(`{{printf "webgym version %s\n" .Version}}`)

	rootCmd.AddCommand(
		newRunCmd(a),
		newActionsCmd(a),
		newEvaluateCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree with ctx and logs a failure before returning it.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger := observability.GetLogger()
		if errors.Is(err, context.Canceled) {
			logger.Warn("Command aborted.")
		} else {
			logger.Error("Command execution failed", zap.Error(err))
		}
		observability.Sync()
		return err
	}
	observability.Sync()
	return nil
}

// initialize loads the configuration and sets up logging. Commands that do not
// need either skip it by annotation.
func (a *app) initialize(cmd *cobra.Command) error {
	if cmd.Annotations["skip_config"] == "true" {
		return nil
	}

	v := viper.New()
	config.SetDefaults(v)
	if err := initializeConfig(cmd, v, a.cfgFile, a.envFile); err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "webgym"})
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "webgym"})
		return fmt.Errorf("failed to load config: %w", err)
	}

	observability.InitializeLogger(cfg.Logger)
	a.v = v
	a.cfg = cfg
	a.logger = observability.GetLogger()
	a.logger.Debug("Starting webgym", zap.String("version", Version), zap.String("command", cmd.Name()))
	return nil
}

// initializeConfig reads the dotenv file, the config file and WEBGYM_ variables
// into v, then binds the flags of cmd that map onto config keys.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		v.Set("logger.level", f.Value.String())
	}
	for flag, key := range flagBindings {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
	}
	return nil
}

// flagBindings maps command flags onto config keys. A flag only overrides the
// key when it is set.
var flagBindings = map[string]string{
	"env":           "env.kind",
	"name":          "env.name",
	"task":          "env.task",
	"agent":         "agent.kind",
	"episodes":      "run.episodes",
	"max-steps":     "run.max_steps",
	"dataset":       "env.mind2web.dataset_path",
	"annotation-id": "env.mind2web.annotation_id",
	"concurrency":   "evaluate.concurrency",
}
