package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default quota ceilings applied when the config file omits them.
const (
	// DefaultFreeDailyLimit is the free-tier request ceiling per 24h window.
	DefaultFreeDailyLimit = 50
	// DefaultPremiumDailyLimit is the premium-tier request ceiling per 24h window.
	DefaultPremiumDailyLimit = 500
	// DefaultAnonymousHourlyLimit is the per-IP ceiling per 1h window.
	DefaultAnonymousHourlyLimit = 20
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":8080".
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // Postgres DSN or SQLite file path.
}

// RedisConfig holds the optional redis connection settings.
type RedisConfig struct {
	URL string `yaml:"url"` // redis://host:port/db; empty disables redis counters.
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret      string        `yaml:"secret"`
	ExpiryHours int           `yaml:"expiry_hours"`
	Expiry      time.Duration `yaml:"-"` // Derived from ExpiryHours.
}

// ProviderConfig holds generative-text provider settings.
type ProviderConfig struct {
	GeminiAPIKey     string `yaml:"gemini_api_key"`
	GeminiBaseURL    string `yaml:"gemini_base_url"`
	OpenRouterAPIKey string `yaml:"openrouter_api_key"`
	OpenRouterURL    string `yaml:"openrouter_url"`
	PrimaryModel     string `yaml:"primary_model"`
	FallbackModel    string `yaml:"fallback_model"`
}

// QuotaConfig holds per-tier request ceilings.
type QuotaConfig struct {
	FreeDailyLimit       int `yaml:"free_daily_limit"`
	PremiumDailyLimit    int `yaml:"premium_daily_limit"`
	AnonymousHourlyLimit int `yaml:"anonymous_hourly_limit"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug/info/warn/error.
	File  string `yaml:"file"`  // Optional rotating log file path.
}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Provider ProviderConfig `yaml:"provider"`
	Quota    QuotaConfig    `yaml:"quota"`
	Log      LogConfig      `yaml:"log"`
}

// ResolveConfigPath returns the effective config file path.
func ResolveConfigPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed != "" {
		return filepath.Clean(trimmed)
	}
	if env := strings.TrimSpace(os.Getenv("CONFIG_PATH")); env != "" {
		return filepath.Clean(env)
	}
	return "config.yaml"
}

// Load reads the YAML config file, applies env overrides, and validates.
// A missing file is not an error; env-only deployments are supported.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, errRead := os.ReadFile(path)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	} else if !os.IsNotExist(errRead) {
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, fmt.Errorf("config: database dsn is required")
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, fmt.Errorf("config: jwt secret is required")
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables override file values.
// Secrets are expected to arrive via env in production deployments.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"SERVER_ADDR", &cfg.Server.Addr},
		{"DATABASE_DSN", &cfg.Database.DSN},
		{"REDIS_URL", &cfg.Redis.URL},
		{"JWT_SECRET", &cfg.JWT.Secret},
		{"GEMINI_API_KEY", &cfg.Provider.GeminiAPIKey},
		{"OPENROUTER_API_KEY", &cfg.Provider.OpenRouterAPIKey},
		{"PRIMARY_MODEL", &cfg.Provider.PrimaryModel},
		{"FALLBACK_MODEL", &cfg.Provider.FallbackModel},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FILE", &cfg.Log.File},
	}
	for _, o := range overrides {
		if value := strings.TrimSpace(os.Getenv(o.key)); value != "" {
			*o.dst = value
		}
	}

	intOverrides := []struct {
		key string
		dst *int
	}{
		{"FREE_DAILY_LIMIT", &cfg.Quota.FreeDailyLimit},
		{"PREMIUM_DAILY_LIMIT", &cfg.Quota.PremiumDailyLimit},
		{"ANONYMOUS_HOURLY_LIMIT", &cfg.Quota.AnonymousHourlyLimit},
		{"JWT_EXPIRY_HOURS", &cfg.JWT.ExpiryHours},
	}
	for _, o := range intOverrides {
		raw := strings.TrimSpace(os.Getenv(o.key))
		if raw == "" {
			continue
		}
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			*o.dst = parsed
		}
	}
}

// applyDefaults fills unset values.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.JWT.ExpiryHours <= 0 {
		cfg.JWT.ExpiryHours = 72
	}
	cfg.JWT.Expiry = time.Duration(cfg.JWT.ExpiryHours) * time.Hour
	if strings.TrimSpace(cfg.Provider.PrimaryModel) == "" {
		cfg.Provider.PrimaryModel = "gemini-2.0-flash"
	}
	if strings.TrimSpace(cfg.Provider.FallbackModel) == "" {
		cfg.Provider.FallbackModel = "gemini-1.5-flash"
	}
	if cfg.Quota.FreeDailyLimit <= 0 {
		cfg.Quota.FreeDailyLimit = DefaultFreeDailyLimit
	}
	if cfg.Quota.PremiumDailyLimit <= 0 {
		cfg.Quota.PremiumDailyLimit = DefaultPremiumDailyLimit
	}
	if cfg.Quota.AnonymousHourlyLimit <= 0 {
		cfg.Quota.AnonymousHourlyLimit = DefaultAnonymousHourlyLimit
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
}
