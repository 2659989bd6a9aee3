// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/clinic-studio/internal/llm"
	"github.com/jonathan/clinic-studio/internal/resilience"
)

// EnvPrefix is prepended to every environment override: server.port is read
// from STUDIO_SERVER_PORT.
const EnvPrefix = "STUDIO"

// Config is the studio configuration. Every field has a default; a file and
// STUDIO_* environment variables override them in that order.
type Config struct {
	Env   string `mapstructure:"env"`   // dev (console logs) or prod (JSON logs)
	Trace bool   `mapstructure:"trace"` // export spans to stdout

	Backend   BackendConfig   `mapstructure:"backend"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Publish   PublishConfig   `mapstructure:"publish"`
	WordPress WordPressConfig `mapstructure:"wordpress"`
	PubMed    PubMedConfig    `mapstructure:"pubmed"`

	// CredentialKey seals the stored publishing credentials.
	CredentialKey string `mapstructure:"credential_key"`
}

// BackendConfig selects the generation provider.
type BackendConfig struct {
	Provider string `mapstructure:"provider"` // gemini or openai
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	// Models overrides tier models, keyed by lite, standard, advanced or image.
	Models map[string]string `mapstructure:"models"`
}

// RetryConfig tunes the backend retry policy.
type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialDelay   time.Duration `mapstructure:"initial_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	Jitter         bool          `mapstructure:"jitter"`
}

// AuditConfig tunes the compliance debouncer.
type AuditConfig struct {
	QuietPeriod time.Duration `mapstructure:"quiet_period"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// RateLimit is requests per second per client; RateBurst the bucket size.
	RateLimit   float64 `mapstructure:"rate_limit"`
	RateBurst   int     `mapstructure:"rate_burst"`
	RequireAuth bool    `mapstructure:"require_auth"`
}

// StoreConfig picks the persistence backend: PostgreSQL when DatabaseURL is
// set, otherwise a bbolt file at Path.
type StoreConfig struct {
	Path        string `mapstructure:"path"`
	DatabaseURL string `mapstructure:"database_url"`
}

// RedisConfig enables the shared cache when URL is set.
type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

// PublishConfig configures the image host and the social API.
type PublishConfig struct {
	ImageHost     string        `mapstructure:"image_host"` // imgbb or gcs
	ImgBBEndpoint string        `mapstructure:"imgbb_endpoint"`
	GraphBaseURL  string        `mapstructure:"graph_base_url"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	GCS           GCSConfig     `mapstructure:"gcs"`
}

// GCSConfig configures the Cloud Storage image host.
type GCSConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	EmulatorHost  string `mapstructure:"emulator_host"`
}

// WordPressConfig points at the practice blog.
type WordPressConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// PubMedConfig configures the E-utilities client.
type PubMedConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// Addr is the server listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("trace", false)

	v.SetDefault("backend.provider", "gemini")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.base_url", "")

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_delay", "1s")
	v.SetDefault("retry.attempt_timeout", "45s")
	v.SetDefault("retry.jitter", false)

	v.SetDefault("audit.quiet_period", "1s")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.require_auth", false)

	v.SetDefault("store.path", "data/studio.db")
	v.SetDefault("store.database_url", "")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.prefix", "studio:")

	v.SetDefault("publish.image_host", "imgbb")
	v.SetDefault("publish.imgbb_endpoint", "https://api.imgbb.com/1/upload")
	v.SetDefault("publish.graph_base_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("publish.http_timeout", "60s")
	v.SetDefault("publish.gcs.bucket", "")
	v.SetDefault("publish.gcs.prefix", "posts")
	v.SetDefault("publish.gcs.public_base_url", "")
	v.SetDefault("publish.gcs.emulator_host", "")

	v.SetDefault("wordpress.base_url", "")
	v.SetDefault("pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("pubmed.api_key", "")

	v.SetDefault("credential_key", "")
}

// Load reads the configuration. path may be empty; a YAML or JSON file is
// merged over the defaults and STUDIO_* variables win over both.
// GEMINI_API_KEY and OPENAI_API_KEY fill backend.api_key when it is unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Backend.APIKey == "" {
		cfg.Backend.APIKey = providerKey(cfg.Backend.Provider)
	}
	return &cfg, nil
}

func providerKey(provider string) string {
	if provider == "openai" {
		return os.Getenv("OPENAI_API_KEY")
	}
	return os.Getenv("GEMINI_API_KEY")
}

// Validate checks ranges and mutually exclusive options. It does not require
// a backend key; commands that call the backend check that themselves.
func (c *Config) Validate() error {
	switch c.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("config error: 'env' must be dev or prod, got %q", c.Env)
	}
	switch c.Backend.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("config error: 'backend.provider' must be gemini or openai, got %q", c.Backend.Provider)
	}
	for tier := range c.Backend.Models {
		switch tier {
		case "lite", "standard", "advanced", "image":
		default:
			return fmt.Errorf("config error: unknown model tier %q", tier)
		}
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("config error: 'retry.max_retries' must be non-negative")
	}
	if c.Retry.InitialDelay <= 0 {
		return fmt.Errorf("config error: 'retry.initial_delay' must be positive")
	}
	if c.Retry.AttemptTimeout < 0 {
		return fmt.Errorf("config error: 'retry.attempt_timeout' must be non-negative")
	}
	if c.Audit.QuietPeriod <= 0 {
		return fmt.Errorf("config error: 'audit.quiet_period' must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' out of range: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("config error: 'server.rate_limit' and 'server.rate_burst' must be non-negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst == 0 {
		return fmt.Errorf("config error: 'server.rate_burst' must be set when rate limiting is on")
	}

	if c.Store.Path == "" && c.Store.DatabaseURL == "" {
		return fmt.Errorf("config error: one of 'store.path' or 'store.database_url' is required")
	}

	switch c.Publish.ImageHost {
	case "imgbb":
		if c.Publish.GCS.Bucket != "" {
			return fmt.Errorf("config error: 'publish.gcs.bucket' is set but 'publish.image_host' is imgbb")
		}
	case "gcs":
		if c.Publish.GCS.Bucket == "" {
			return fmt.Errorf("config error: 'publish.gcs.bucket' is required when 'publish.image_host' is gcs")
		}
	default:
		return fmt.Errorf("config error: 'publish.image_host' must be imgbb or gcs, got %q", c.Publish.ImageHost)
	}
	if c.Publish.HTTPTimeout <= 0 {
		return fmt.Errorf("config error: 'publish.http_timeout' must be positive")
	}

	return nil
}

// LLMConfig returns the provider defaults with the configured overrides applied.
func (c *Config) LLMConfig() *llm.Config {
	cfg := llm.ConfigFor(llm.Provider(c.Backend.Provider))
	cfg.BaseURL = c.Backend.BaseURL
	for tier, model := range c.Backend.Models {
		cfg = cfg.WithModel(llm.ModelTier(tier), model)
	}
	return cfg
}

// RetryPolicy returns the backend retry policy.
func (c *Config) RetryPolicy() resilience.Policy {
	return resilience.Policy{
		MaxRetries:     c.Retry.MaxRetries,
		InitialDelay:   c.Retry.InitialDelay,
		AttemptTimeout: c.Retry.AttemptTimeout,
		Jitter:         c.Retry.Jitter,
	}
}
