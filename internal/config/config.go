// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Env      EnvConfig      `mapstructure:"env" yaml:"env"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Run      RunConfig      `mapstructure:"run" yaml:"run"`
	Evaluate EvaluateConfig `mapstructure:"evaluate" yaml:"evaluate"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EnvKind selects which benchmark adapter the runner drives.
type EnvKind string

const (
	EnvMiniWoB  EnvKind = "miniwob"
	EnvMind2Web EnvKind = "mind2web"
	EnvWebArena EnvKind = "webarena"
)

// EnvConfig describes the environment identity and the per-variant settings.
type EnvConfig struct {
	Kind     EnvKind        `mapstructure:"kind" yaml:"kind"`
	Name     string         `mapstructure:"name" yaml:"name"`
	Type     string         `mapstructure:"type" yaml:"type"`
	Task     string         `mapstructure:"task" yaml:"task"`
	MiniWoB  MiniWoBConfig  `mapstructure:"miniwob" yaml:"miniwob"`
	Mind2Web Mind2WebConfig `mapstructure:"mind2web" yaml:"mind2web"`
	WebArena WebArenaConfig `mapstructure:"webarena" yaml:"webarena"`
}

// MiniWoBConfig configures the synthetic task suite.
type MiniWoBConfig struct {
	// BaseURL points at the directory serving the task HTML files.
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	EpisodeMaxTime  time.Duration `mapstructure:"episode_max_time" yaml:"episode_max_time"`
	MaxEpisodeSteps int           `mapstructure:"max_episode_steps" yaml:"max_episode_steps"`
	ActionTypes     []string      `mapstructure:"action_types" yaml:"action_types"`
}

// Mind2WebConfig points at a recorded demonstration dataset.
type Mind2WebConfig struct {
	DatasetPath  string `mapstructure:"dataset_path" yaml:"dataset_path"`
	AnnotationID string `mapstructure:"annotation_id" yaml:"annotation_id"`
}

// WebArenaConfig carries the sandbox task file and the observation options
// forwarded to the browser backend.
type WebArenaConfig struct {
	ConfigFile          string        `mapstructure:"config_file" yaml:"config_file"`
	ObservationType     string        `mapstructure:"observation_type" yaml:"observation_type"`
	CurrentViewportOnly bool          `mapstructure:"current_viewport_only" yaml:"current_viewport_only"`
	MaxPageLength       int           `mapstructure:"max_page_length" yaml:"max_page_length"`
	SleepAfterExecution time.Duration `mapstructure:"sleep_after_execution" yaml:"sleep_after_execution"`
	SlowMo              time.Duration `mapstructure:"slow_mo" yaml:"slow_mo"`
}

// AgentKind selects the agent implementation.
type AgentKind string

const (
	AgentRandom AgentKind = "random"
	AgentLLM    AgentKind = "llm"
)

// AgentConfig holds settings related to the agent and its language model.
type AgentConfig struct {
	Kind      AgentKind `mapstructure:"kind" yaml:"kind"`
	Name      string    `mapstructure:"name" yaml:"name"`
	Task      string    `mapstructure:"task" yaml:"task"`
	PlanSteps int       `mapstructure:"plan_steps" yaml:"plan_steps"`
	LLM       LLMConfig `mapstructure:"llm" yaml:"llm"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
)

// LLMConfig defines the model, its sampling settings and the prompt setup of
// the language-model agent.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float32       `mapstructure:"top_p" yaml:"top_p"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`

	// Template is the path of the prompt template file.
	Template             string `mapstructure:"template" yaml:"template"`
	TrajectoryMaxLength  int    `mapstructure:"trajectory_max_length" yaml:"trajectory_max_length"`
	NoopAction           string `mapstructure:"noop_action" yaml:"noop_action"`
	MaxObservationTokens int    `mapstructure:"max_observation_tokens" yaml:"max_observation_tokens"`

	// MaxRetries of zero disables the retry wrapper.
	MaxRetries        int     `mapstructure:"max_retries" yaml:"max_retries"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// BrowserConfig holds settings for the headless browser instances.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	DisableGPU      bool           `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	DisableCache    bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
	// ActionTimeout bounds every browser round trip.
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// RunConfig bounds the episodes driven by the run command.
type RunConfig struct {
	Episodes int `mapstructure:"episodes" yaml:"episodes"`
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
}

// EvaluateConfig tunes the trajectory evaluation command.
type EvaluateConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webgym")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Env --
	v.SetDefault("env.kind", string(EnvMind2Web))
	v.SetDefault("env.name", "")
	v.SetDefault("env.type", "")
	v.SetDefault("env.task", "")
	v.SetDefault("env.miniwob.base_url", "http://localhost:8080/miniwob")
	v.SetDefault("env.miniwob.episode_max_time", "10s")
	v.SetDefault("env.miniwob.max_episode_steps", 0)
	v.SetDefault("env.mind2web.dataset_path", "")
	v.SetDefault("env.mind2web.annotation_id", "")
	v.SetDefault("env.webarena.config_file", "")
	v.SetDefault("env.webarena.observation_type", "accessibility_tree")
	v.SetDefault("env.webarena.current_viewport_only", true)
	v.SetDefault("env.webarena.max_page_length", 8192)
	v.SetDefault("env.webarena.sleep_after_execution", "0s")
	v.SetDefault("env.webarena.slow_mo", "0s")

	// -- Agent --
	v.SetDefault("agent.kind", string(AgentRandom))
	v.SetDefault("agent.name", "")
	v.SetDefault("agent.task", "")
	v.SetDefault("agent.plan_steps", 3)

	// -- Agent LLM --
	v.SetDefault("agent.llm.provider", string(ProviderOpenAI))
	v.SetDefault("agent.llm.model", "gpt-3.5-turbo")
	v.SetDefault("agent.llm.endpoint", "")
	v.SetDefault("agent.llm.api_timeout", "60s")
	v.SetDefault("agent.llm.temperature", 0.3)
	v.SetDefault("agent.llm.top_p", 1.0)
	v.SetDefault("agent.llm.max_tokens", 1024)
	v.SetDefault("agent.llm.template", "")
	v.SetDefault("agent.llm.trajectory_max_length", 5)
	v.SetDefault("agent.llm.noop_action", "none")
	v.SetDefault("agent.llm.max_observation_tokens", 0)
	v.SetDefault("agent.llm.max_retries", 0)
	v.SetDefault("agent.llm.requests_per_minute", 0)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.disable_cache", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.action_timeout", "30s")
	v.SetDefault("browser.viewport", map[string]int{"width": 1280, "height": 720})

	// -- Run --
	v.SetDefault("run.episodes", 1)
	v.SetDefault("run.max_steps", 30)

	// -- Evaluate --
	v.SetDefault("evaluate.concurrency", 4)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The first variable found wins.
	_ = v.BindEnv("agent.llm.api_key", "WEBGYM_LLM_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.Logger.LogFile,
		&c.Env.Mind2Web.DatasetPath,
		&c.Env.WebArena.ConfigFile,
		&c.Agent.LLM.Template,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Env.Validate(); err != nil {
		return fmt.Errorf("env configuration invalid: %w", err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}
	if c.Run.Episodes <= 0 {
		return fmt.Errorf("run.episodes must be a positive integer")
	}
	if c.Run.MaxSteps <= 0 {
		return fmt.Errorf("run.max_steps must be a positive integer")
	}
	if c.Evaluate.Concurrency <= 0 {
		return fmt.Errorf("evaluate.concurrency must be a positive integer")
	}
	return nil
}

// Validate checks the environment selection and the settings of the selected variant.
func (e *EnvConfig) Validate() error {
	switch e.Kind {
	case EnvMiniWoB:
		if e.MiniWoB.BaseURL == "" {
			return fmt.Errorf("miniwob.base_url is required")
		}
		if e.MiniWoB.EpisodeMaxTime < 0 {
			return fmt.Errorf("miniwob.episode_max_time must not be negative")
		}
		if e.MiniWoB.MaxEpisodeSteps < 0 {
			return fmt.Errorf("miniwob.max_episode_steps must not be negative")
		}
	case EnvMind2Web, EnvWebArena:
	default:
		return fmt.Errorf("unknown kind %q (want one of miniwob, mind2web, webarena)", e.Kind)
	}
	return nil
}

// Validate checks the agent selection and, for the language-model agent, its model settings.
func (a *AgentConfig) Validate() error {
	switch a.Kind {
	case AgentRandom:
		return nil
	case AgentLLM:
	default:
		return fmt.Errorf("unknown kind %q (want random or llm)", a.Kind)
	}

	llm := a.LLM
	switch LLMProvider(strings.ToLower(string(llm.Provider))) {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider %q is not supported", llm.Provider)
	}
	if llm.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if llm.Temperature < 0 || llm.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0")
	}
	if llm.TrajectoryMaxLength <= 0 {
		return fmt.Errorf("llm.trajectory_max_length must be a positive integer")
	}
	if llm.MaxRetries < 0 || llm.MaxObservationTokens < 0 || llm.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.max_retries, llm.max_observation_tokens and llm.requests_per_minute must not be negative")
	}
	return nil
}
