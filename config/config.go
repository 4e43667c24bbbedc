// Package config loads agentloop settings from a YAML file, AGENTLOOP_*
// environment variables and command-line flags via viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/hupe1980/agentloop/logging"
)

const (
	// EnvPrefix prefixes every environment override, e.g. AGENTLOOP_BACKEND_MODEL.
	EnvPrefix = "AGENTLOOP"
	// FileName is the config file name searched for without extension.
	FileName = "agentloop"

	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

var (
	// ErrMissingAPIKey is returned when neither the config nor the provider's
	// environment variable carries an API key.
	ErrMissingAPIKey = errors.New("config: missing API key")
	// ErrUnknownProvider is returned for a backend.provider other than
	// anthropic or openai.
	ErrUnknownProvider = errors.New("config: unknown provider")
)

// Config stores all configuration of the application.
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Log     LogConfig     `mapstructure:"log"`
}

// BackendConfig selects and tunes the language model backend.
type BackendConfig struct {
	Provider    string  `mapstructure:"provider"`    // "anthropic", "openai"
	Model       string  `mapstructure:"model"`       // empty selects the adapter default
	MaxTokens   int64   `mapstructure:"max_tokens"`  // per response
	Temperature float64 `mapstructure:"temperature"` // sampling temperature
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	MaxRetries  int     `mapstructure:"max_retries"` // -1 keeps the SDK default
}

// AgentConfig tunes the task loop.
type AgentConfig struct {
	WorkDir      string `mapstructure:"work_dir"`
	MaxTurns     int    `mapstructure:"max_turns"`     // 0 means unlimited
	SystemPrompt string `mapstructure:"system_prompt"` // template override
}

// LogConfig selects the logging backend.
type LogConfig struct {
	Level   string `mapstructure:"level"`   // debug, info, warn, error
	Format  string `mapstructure:"format"`  // text, json
	Backend string `mapstructure:"backend"` // slog, zap
}

// NewViper returns a viper instance with defaults, env binding and the
// config search path applied. An explicit configPath overrides the search.
func NewViper(configPath string) *viper.Viper {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend.provider", ProviderAnthropic)
	v.SetDefault("backend.model", "")
	v.SetDefault("backend.max_tokens", 4096)
	v.SetDefault("backend.temperature", 0.7)
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.max_retries", -1)

	v.SetDefault("agent.work_dir", ".")
	v.SetDefault("agent.max_turns", 0)
	v.SetDefault("agent.system_prompt", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.backend", "slog")
}

// Load reads the config file (a missing file in the search path is not an
// error), decodes it and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes the config, fills the API key from the provider's
// environment variable and reports the first invalid setting.
func (c *Config) Validate() error {
	c.Backend.Provider = strings.ToLower(strings.TrimSpace(c.Backend.Provider))
	if c.Backend.Provider == "" {
		c.Backend.Provider = ProviderAnthropic
	}

	var keyEnv string
	switch c.Backend.Provider {
	case ProviderAnthropic:
		keyEnv = "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		keyEnv = "OPENAI_API_KEY"
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Backend.Provider)
	}

	if c.Backend.APIKey == "" {
		c.Backend.APIKey = os.Getenv(keyEnv)
	}
	if c.Backend.APIKey == "" {
		return fmt.Errorf("%w: set backend.api_key or %s", ErrMissingAPIKey, keyEnv)
	}
	if c.Backend.MaxTokens <= 0 {
		return fmt.Errorf("config: backend.max_tokens must be positive, got %d", c.Backend.MaxTokens)
	}

	if c.Agent.WorkDir == "" {
		c.Agent.WorkDir = "."
	}
	if c.Agent.MaxTurns < 0 {
		return fmt.Errorf("config: agent.max_turns must not be negative, got %d", c.Agent.MaxTurns)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Log.Backend {
	case "", "slog", "zap":
	default:
		return fmt.Errorf("config: log.backend must be slog or zap, got %q", c.Log.Backend)
	}

	return nil
}

// NewLogger builds the configured logger. The returned close function
// flushes buffered output and is safe to call more than once.
func (c LogConfig) NewLogger() (logging.Logger, func(), error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, nil, err
	}

	format := c.Format
	if format == "" {
		format = "text"
	}

	if c.Backend == "zap" {
		z, err := logging.NewZapLogger(level, format)
		if err != nil {
			return nil, nil, err
		}
		return z, func() { _ = z.Sync() }, nil
	}

	l := logging.NewSlogLogger(level, format, false).WithComponent("agentloop")
	return l, func() {}, nil
}
