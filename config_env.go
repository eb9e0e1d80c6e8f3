package sikad

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by [LoadConfigFromEnv].
const (
	EnvAPIURL          = "SIKAD_API_URL"
	EnvAPITimeout      = "SIKAD_API_TIMEOUT"
	EnvTimeZone        = "SIKAD_TIMEZONE"
	EnvStorage         = "SIKAD_STORAGE"
	EnvStoragePath     = "SIKAD_STORAGE_PATH"
	EnvPassphrase      = "SIKAD_STORAGE_PASSPHRASE"
	EnvRedisAddr       = "SIKAD_REDIS_ADDR"
	EnvRedisPassword   = "SIKAD_REDIS_PASSWORD"
	EnvRedisDB         = "SIKAD_REDIS_DB"
	EnvRedisPrefix     = "SIKAD_REDIS_PREFIX"
	EnvRedisTTL        = "SIKAD_REDIS_TTL"
	EnvVerifyFreshness = "SIKAD_VERIFY_FRESHNESS"
	EnvAudit           = "SIKAD_AUDIT"
	EnvMetrics         = "SIKAD_METRICS"
)

// LoadConfigFromEnv applies SIKAD_* variables on top of base. The dotenv files are
// loaded first when they exist; variables already set in the process win.
func LoadConfigFromEnv(base Config, dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return base, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := base
	cfg.API.BaseURL = getenv(EnvAPIURL, cfg.API.BaseURL)
	cfg.API.TimeZone = getenv(EnvTimeZone, cfg.API.TimeZone)
	cfg.Storage.Backend = StorageBackend(getenv(EnvStorage, string(cfg.Storage.Backend)))
	cfg.Storage.FilePath = getenv(EnvStoragePath, cfg.Storage.FilePath)
	cfg.Storage.Passphrase = getenv(EnvPassphrase, cfg.Storage.Passphrase)
	cfg.Storage.RedisAddr = getenv(EnvRedisAddr, cfg.Storage.RedisAddr)
	cfg.Storage.RedisPassword = getenv(EnvRedisPassword, cfg.Storage.RedisPassword)
	cfg.Storage.RedisPrefix = getenv(EnvRedisPrefix, cfg.Storage.RedisPrefix)

	var err error
	if cfg.API.Timeout, err = getenvDuration(EnvAPITimeout, cfg.API.Timeout); err != nil {
		return base, err
	}
	if cfg.Storage.RedisTTL, err = getenvDuration(EnvRedisTTL, cfg.Storage.RedisTTL); err != nil {
		return base, err
	}
	if cfg.Session.VerifyFreshness, err = getenvDuration(EnvVerifyFreshness, cfg.Session.VerifyFreshness); err != nil {
		return base, err
	}
	if cfg.Storage.RedisDB, err = getenvInt(EnvRedisDB, cfg.Storage.RedisDB); err != nil {
		return base, err
	}
	if cfg.Audit.Enabled, err = getenvBool(EnvAudit, cfg.Audit.Enabled); err != nil {
		return base, err
	}
	if cfg.Metrics.Enabled, err = getenvBool(EnvMetrics, cfg.Metrics.Enabled); err != nil {
		return base, err
	}
	return cfg, nil
}

// LoadConfigFile decodes a YAML file over base. Durations use Go syntax ("15s").
func LoadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getenvDuration accepts Go durations or, under KEY_SECONDS, whole seconds.
func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fallback, fmt.Errorf("%s: %w", key, err)
		}
		return d, nil
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		seconds, err := strconv.Atoi(val)
		if err != nil {
			return fallback, fmt.Errorf("%s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return fallback, nil
}

func getenvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
