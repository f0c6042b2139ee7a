package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort     = 3100
	defaultEnv      = "development"
	defaultDBHost   = "127.0.0.1"
	defaultDBPort   = 3306
	defaultDBUser   = "root"
	defaultDBName   = "lendfront"
	defaultRedisURL = "redis://localhost:6379/0"

	defaultProviderTimeout = 10 * time.Second
	defaultDeepLinkScheme  = "lendfront"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	Database       DatabaseRuntimeConfig `yaml:"database"`
	RedisURL       string                `yaml:"redis_url"`
	JWTSecret      string                `yaml:"jwt_secret"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	Provider       ProviderConfig        `yaml:"provider"`
	Alert          AlertConfig           `yaml:"alert"`
}

type DatabaseRuntimeConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// ProviderConfig configures the external identity-verification provider and
// the tunables of the KYC flow. The redirect scheme is configuration rather
// than a hard-coded branch so it can be adjusted per deployment.
type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
	CallbackURL    string `yaml:"callback_url"`
	DeepLinkScheme string `yaml:"deep_link_scheme"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the HTTP timeout for provider calls.
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return defaultProviderTimeout
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// AlertConfig points at the ops chat webhook for throttled incident pushes.
type AlertConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

// Load reads and validates the YAML config file.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	normalize(&cfg)

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Provider.BaseURL == "" {
		return nil, fmt.Errorf("provider.base_url is required in %q", path)
	}
	if cfg.Provider.WebhookSecret == "" {
		return nil, fmt.Errorf("provider.webhook_secret is required in %q", path)
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Host: defaultDBHost,
			Port: defaultDBPort,
			User: defaultDBUser,
			Name: defaultDBName,
		},
		RedisURL: defaultRedisURL,
		Provider: ProviderConfig{
			DeepLinkScheme: defaultDeepLinkScheme,
		},
	}
}

func normalize(cfg *AppConfig) {
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.RedisURL = normalizeRedisRawURL(cfg.RedisURL)

	origins := cfg.AllowedOrigins[:0]
	for _, origin := range cfg.AllowedOrigins {
		if v := strings.TrimSpace(origin); v != "" {
			origins = append(origins, v)
		}
	}
	cfg.AllowedOrigins = origins

	cfg.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Provider.BaseURL), "/")
	cfg.Provider.APIKey = strings.TrimSpace(cfg.Provider.APIKey)
	cfg.Provider.WebhookSecret = strings.TrimSpace(cfg.Provider.WebhookSecret)
	cfg.Provider.CallbackURL = strings.TrimSpace(cfg.Provider.CallbackURL)
	cfg.Provider.DeepLinkScheme = strings.TrimSpace(cfg.Provider.DeepLinkScheme)
	if cfg.Provider.DeepLinkScheme == "" {
		cfg.Provider.DeepLinkScheme = defaultDeepLinkScheme
	}

	cfg.Alert.WebhookURL = strings.TrimSpace(cfg.Alert.WebhookURL)
	cfg.Alert.Channel = strings.TrimSpace(cfg.Alert.Channel)
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultRedisURL
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}
