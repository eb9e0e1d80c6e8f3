package sikad

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://sikad.example.ac.id/api"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults with url", mutate: func(*Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.API.BaseURL = "" }, wantErr: "BaseURL required"},
		{name: "relative url", mutate: func(c *Config) { c.API.BaseURL = "/api" }, wantErr: "absolute http(s) URL"},
		{name: "zero timeout", mutate: func(c *Config) { c.API.Timeout = 0 }, wantErr: "Timeout"},
		{name: "bad zone", mutate: func(c *Config) { c.API.TimeZone = "Mars/Olympus" }, wantErr: "TimeZone"},
		{name: "same keys", mutate: func(c *Config) { c.Session.ProfileKey = c.Session.TokenKey }, wantErr: "must differ"},
		{name: "negative freshness", mutate: func(c *Config) { c.Session.VerifyFreshness = -time.Second }, wantErr: "VerifyFreshness"},
		{name: "file without path", mutate: func(c *Config) { c.Storage.Backend = StorageFile }, wantErr: "FilePath"},
		{name: "redis without addr", mutate: func(c *Config) { c.Storage.Backend = StorageRedis }, wantErr: "RedisAddr"},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "sqlite" }, wantErr: "unsupported"},
		{name: "route without slash", mutate: func(c *Config) { c.Routes.Login = "login" }, wantErr: "must start with /"},
		{name: "home equals login", mutate: func(c *Config) { c.Routes.Home = c.Routes.Login }, wantErr: "Home must differ"},
		{name: "audit without buffer", mutate: func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }, wantErr: "BufferSize"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConfigLocationFallsBackToWITA(t *testing.T) {
	cfg := validConfig()
	loc := cfg.location()
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	if offset != 8*60*60 {
		t.Fatalf("expected UTC+8, got offset %d", offset)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://env.example.ac.id/api")
	t.Setenv(EnvAPITimeout, "7s")
	t.Setenv(EnvStorage, "file")
	t.Setenv(EnvStoragePath, "/tmp/sikad.json")
	t.Setenv(EnvVerifyFreshness+"_SECONDS", "45")
	t.Setenv(EnvMetrics, "true")

	cfg, err := LoadConfigFromEnv(DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.ac.id/api" || cfg.API.Timeout != 7*time.Second {
		t.Fatalf("unexpected api config %+v", cfg.API)
	}
	if cfg.Storage.Backend != StorageFile || cfg.Storage.FilePath != "/tmp/sikad.json" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Session.VerifyFreshness != 45*time.Second {
		t.Fatalf("expected 45s freshness, got %v", cfg.Session.VerifyFreshness)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected metrics enabled")
	}
}

func TestLoadConfigFromDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(EnvAPIURL+"=http://localhost:8080/api\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables that are already set.
	os.Unsetenv(EnvAPIURL)
	t.Cleanup(func() { os.Unsetenv(EnvAPIURL) })

	cfg, err := LoadConfigFromEnv(DefaultConfig(), path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8080/api" {
		t.Fatalf("expected url from .env, got %q", cfg.API.BaseURL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sikad.yaml")
	doc := `
api:
  base_url: https://yaml.example.ac.id/api
  timeout: 20s
storage:
  backend: redis
  redis_addr: 127.0.0.1:6379
  redis_ttl: 720h
routes:
  home: /dashboard
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFile(path, DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Timeout != 20*time.Second || cfg.Storage.RedisTTL != 720*time.Hour {
		t.Fatalf("unexpected durations %v %v", cfg.API.Timeout, cfg.Storage.RedisTTL)
	}
	if cfg.Routes.Home != "/dashboard" || cfg.Routes.Login != "/login" {
		t.Fatalf("expected yaml to overlay defaults, got %+v", cfg.Routes)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
