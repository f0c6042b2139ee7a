package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
provider:
  base_url: https://kyc.example.com/
  webhook_secret: whsec_123
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3100 {
		t.Fatalf("port = %d, want default 3100", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Fatalf("env should default to development")
	}
	if cfg.Provider.BaseURL != "https://kyc.example.com" {
		t.Fatalf("base url = %q, want trailing slash trimmed", cfg.Provider.BaseURL)
	}
	if cfg.Provider.DeepLinkScheme != "lendfront" {
		t.Fatalf("deep link scheme = %q", cfg.Provider.DeepLinkScheme)
	}
	if cfg.Provider.Timeout() != 10*time.Second {
		t.Fatalf("timeout = %s, want 10s default", cfg.Provider.Timeout())
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("redis url = %q", cfg.RedisURL)
	}
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
port: 8080
env: Production
database:
  host: db.internal
  port: 3307
  user: portal
  password: pw
  name: portal
redis_url: redis.internal:6379
jwt_secret: " top-secret "
allowed_origins:
  - "*.lendfront.example"
  - ""
provider:
  base_url: https://kyc.example.com
  api_key: key_1
  webhook_secret: whsec_123
  callback_url: https://portal.example.com/api/v1/verification/webhook
  deep_link_scheme: lendfront
  timeout_seconds: 30
alert:
  webhook_url: https://chat.example.com/hooks/abc
  channel: ops
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IsDev() {
		t.Fatalf("env production should not be dev")
	}
	if cfg.JWTSecret != "top-secret" {
		t.Fatalf("jwt secret = %q, want trimmed", cfg.JWTSecret)
	}
	if len(cfg.AllowedOrigins) != 1 {
		t.Fatalf("origins = %v, want empty entries dropped", cfg.AllowedOrigins)
	}
	if !strings.HasPrefix(cfg.RedisURL, "redis://") {
		t.Fatalf("redis url = %q, want scheme added", cfg.RedisURL)
	}
	if cfg.Provider.Timeout() != 30*time.Second {
		t.Fatalf("timeout = %s", cfg.Provider.Timeout())
	}
	dsn := cfg.Database.DSNValue()
	if !strings.Contains(dsn, "tcp(db.internal:3307)") || !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("dsn = %q", dsn)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing base url", "provider:\n  webhook_secret: x\n"},
		{"missing webhook secret", "provider:\n  base_url: https://kyc.example.com\n"},
		{"bad port", "port: 70000\n" + minimalConfig},
		{"unknown field", "surprise: 1\n" + minimalConfig},
	}
	for _, tc := range cases {
		if _, err := Load(writeConfig(t, tc.content)); err == nil {
			t.Fatalf("%s: Load should fail", tc.name)
		}
	}
}

func TestExplicitDSNWins(t *testing.T) {
	db := DatabaseRuntimeConfig{
		DSN:  "user:pw@tcp(1.2.3.4:3306)/x",
		Host: "ignored",
	}
	if got := db.DSNValue(); got != "user:pw@tcp(1.2.3.4:3306)/x" {
		t.Fatalf("DSNValue = %q", got)
	}
}
