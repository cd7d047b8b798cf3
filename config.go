// config.go
// ----------
// Server configuration: the yaml file format consumed by cmd/cinebridge
// plus conversion helpers into the typed configs the core components take.
// Durations are written as Go duration strings ("500ms", "1m30s").
package cinebridge

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cinebridge/cine-bridge/cache"
)

// Duration is a time.Duration that unmarshals from yaml duration strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// LimiterSettings is the yaml shape of RateLimiterConfig.
type LimiterSettings struct {
	MaxRequests     int      `yaml:"max_requests"`
	Window          Duration `yaml:"window"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

// RetrySettings is the yaml shape of RetryPolicy.
type RetrySettings struct {
	MaxRetries        int      `yaml:"max_retries"`
	InitialDelay      Duration `yaml:"initial_delay"`
	MaxDelay          Duration `yaml:"max_delay"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier"`
	Timeout           Duration `yaml:"timeout"`
}

// ProviderSettings selects and configures the upstream provider. Kept as
// plain values here so the root package stays free of adapter imports;
// cmd/cinebridge maps them onto the chosen adapter's own config.
type ProviderSettings struct {
	// Type is "catalog" (built-in static catalog) or "openai".
	Type string `yaml:"type"`

	// OpenAI settings.
	Model             string `yaml:"model"`
	APIKeyEnv         string `yaml:"api_key_env"`
	BaseURL           string `yaml:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	OAuthTokenURL     string `yaml:"oauth_token_url"`
	OAuthClientID     string `yaml:"oauth_client_id"`
	OAuthClientSecret string `yaml:"oauth_client_secret"`
}

// CacheSettings is the yaml shape of cache.Config.
type CacheSettings struct {
	Backend       string   `yaml:"backend"`
	TTL           Duration `yaml:"ttl"`
	RedisAddr     string   `yaml:"redis_addr"`
	RedisPassword string   `yaml:"redis_password"`
	RedisDB       int      `yaml:"redis_db"`
	RedisPrefix   string   `yaml:"redis_prefix"`
}

// ServerConfig is the top-level yaml config for the gateway server.
type ServerConfig struct {
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	// AuthSecret, when set, enables bearer-token client identification:
	// the rate-limit key becomes the token's subject claim instead of the
	// caller's network address.
	AuthSecret string `yaml:"auth_secret"`

	Limiter  LimiterSettings  `yaml:"limiter"`
	Retry    RetrySettings    `yaml:"retry"`
	Provider ProviderSettings `yaml:"provider"`
	Cache    CacheSettings    `yaml:"cache"`
}

// LoadServerConfig reads and parses a yaml config file, applying defaults
// for anything unset.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Provider.Type == "" {
		c.Provider.Type = "catalog"
	}
}

// LimiterConfig converts the yaml settings into the limiter's config.
func (c *ServerConfig) LimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxRequests:     c.Limiter.MaxRequests,
		Window:          time.Duration(c.Limiter.Window),
		CleanupInterval: time.Duration(c.Limiter.CleanupInterval),
	}
}

// RetryPolicy converts the yaml settings into the executor's policy.
func (c *ServerConfig) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        c.Retry.MaxRetries,
		InitialDelay:      time.Duration(c.Retry.InitialDelay),
		MaxDelay:          time.Duration(c.Retry.MaxDelay),
		BackoffMultiplier: c.Retry.BackoffMultiplier,
		Timeout:           time.Duration(c.Retry.Timeout),
	}
}

// CacheConfig converts the yaml settings into the cache package's config.
func (c *ServerConfig) CacheConfig() cache.Config {
	return cache.Config{
		Backend:       c.Cache.Backend,
		TTL:           time.Duration(c.Cache.TTL),
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
		RedisPrefix:   c.Cache.RedisPrefix,
	}
}
