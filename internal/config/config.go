// Package config loads the immutable service configuration. Values are
// layered: built-in defaults, then an optional TOML file, then BACKLOGBOT_*
// environment variables (double underscore separates sections, e.g.
// BACKLOGBOT_WEBHOOK__SHARED_SECRET).
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "BACKLOGBOT_"

// Config is constructed once at startup and passed to every component.
type Config struct {
	Server struct {
		Port     int    `koanf:"port"`
		LogLevel string `koanf:"log_level"`
	} `koanf:"server"`

	Webhook struct {
		// SharedSecret authenticates inbound deliveries; empty disables the
		// check (local testing only).
		SharedSecret string `koanf:"shared_secret"`
	} `koanf:"webhook"`

	Backlog struct {
		// Space is the Backlog space name; BaseURL wins when both are set.
		Space   string `koanf:"space"`
		BaseURL string `koanf:"base_url"`
		APIKey  string `koanf:"api_key"`
	} `koanf:"backlog"`

	Bot struct {
		UserID             int64 `koanf:"user_id"`
		RecentCommentCount int   `koanf:"recent_comment_count"`
	} `koanf:"bot"`

	Trial struct {
		Enabled        bool    `koanf:"enabled"`
		AllowedUserIDs []int64 `koanf:"allowed_user_ids"`
	} `koanf:"trial"`

	Context struct {
		PerResourceBytes int `koanf:"per_resource_bytes"`
		TotalBytes       int `koanf:"total_bytes"`
	} `koanf:"context"`

	LLM struct {
		Provider       string `koanf:"provider"`
		Model          string `koanf:"model"`
		APIKey         string `koanf:"api_key"`
		BaseURL        string `koanf:"base_url"`
		TimeoutSeconds int    `koanf:"timeout_seconds"`
		MaxRetries     int    `koanf:"max_retries"`
		MaxTokens      int    `koanf:"max_tokens"`
	} `koanf:"llm"`

	Idempotency struct {
		// Enabled turns duplicate suppression off entirely when false,
		// which processes every delivery (useful for testing).
		Enabled bool `koanf:"enabled"`
		// PostgresDSN selects the durable backend; empty falls back to
		// an in-process TTL map.
		PostgresDSN string `koanf:"postgres_dsn"`
	} `koanf:"idempotency"`
}

var defaults = map[string]interface{}{
	"server.port":                8000,
	"server.log_level":           "info",
	"bot.recent_comment_count":   30,
	"context.per_resource_bytes": 100000,
	"context.total_bytes":        200000,
	"llm.provider":               "anthropic",
	"llm.model":                  "claude-3-5-haiku-latest",
	"llm.timeout_seconds":        10,
	"llm.max_retries":            2,
	"llm.max_tokens":             700,
	"idempotency.enabled":        true,
}

// Load reads configuration. configPath may be empty, in which case only
// defaults and environment variables apply.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Backlog.APIKey == "" {
		return fmt.Errorf("config: backlog.api_key is required")
	}
	base := c.BacklogBaseURL()
	if base == "" {
		return fmt.Errorf("config: one of backlog.space or backlog.base_url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return fmt.Errorf("config: invalid backlog base URL %q: %w", base, err)
	}
	switch c.LLM.Provider {
	case "anthropic", "openai":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("config: llm.api_key is required for provider %q", c.LLM.Provider)
		}
	case "ollama":
	default:
		return fmt.Errorf("config: unknown llm.provider %q", c.LLM.Provider)
	}
	if c.Bot.RecentCommentCount <= 0 {
		return fmt.Errorf("config: bot.recent_comment_count must be positive")
	}
	if c.Context.PerResourceBytes <= 0 || c.Context.TotalBytes <= 0 {
		return fmt.Errorf("config: context byte budgets must be positive")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: llm.timeout_seconds must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("config: llm.max_retries must not be negative")
	}
	return nil
}

// BacklogBaseURL returns the tracker origin, deriving it from the space name
// when no explicit base URL is configured.
func (c *Config) BacklogBaseURL() string {
	if c.Backlog.BaseURL != "" {
		return strings.TrimRight(c.Backlog.BaseURL, "/")
	}
	if c.Backlog.Space != "" {
		return fmt.Sprintf("https://%s.backlog.com", c.Backlog.Space)
	}
	return ""
}

// LLMTimeout returns the per-attempt model timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}
