package sikad

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/guard"
	"github.com/MrEthical07/sikad/session"
)

// Config is the full engine configuration. Start from [DefaultConfig] and override.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Storage StorageConfig `yaml:"storage"`
	Routes  RoutesConfig  `yaml:"routes"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the backend.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	// TimeZone renders check-in dates and decides what "today" means.
	TimeZone   string `yaml:"time_zone"`
	RequestIDs bool   `yaml:"request_ids"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the session store.
type SessionConfig struct {
	TokenKey   string `yaml:"token_key"`
	ProfileKey string `yaml:"profile_key"`
	// VerifyFreshness is how long a successful verification is reused. 0 verifies on
	// every call.
	VerifyFreshness time.Duration `yaml:"verify_freshness"`
	// ExpiryLeeway tolerates clock skew on the token's exp claim. 0 means none.
	ExpiryLeeway time.Duration `yaml:"expiry_leeway"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend names a persisted storage implementation.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
)

// StorageConfig selects where the token and profile are persisted.
type StorageConfig struct {
	Backend StorageBackend `yaml:"backend"`

	FilePath string `yaml:"file_path"`
	// Passphrase seals the file with Argon2id + XChaCha20-Poly1305 when set.
	Passphrase string `yaml:"passphrase"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

/*
====================================
ROUTES / AUDIT / METRICS
====================================
*/

// RoutesConfig names the guard's routes.
type RoutesConfig struct {
	Login    string `yaml:"login"`
	Register string `yaml:"register"`
	Home     string `yaml:"home"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the settings the mobile app ships with, minus the backend URL.
func DefaultConfig() Config {
	routes := guard.DefaultRoutes()
	return Config{
		API: APIConfig{
			Timeout:    api.DefaultTimeout,
			UserAgent:  "sikad-go",
			TimeZone:   "Asia/Makassar",
			RequestIDs: true,
		},
		Session: SessionConfig{
			TokenKey:        session.DefaultTokenKey,
			ProfileKey:      session.DefaultProfileKey,
			VerifyFreshness: session.DefaultVerifyFreshness,
			ExpiryLeeway:    session.DefaultExpiryLeeway,
		},
		Storage: StorageConfig{
			Backend:     StorageMemory,
			RedisPrefix: "sikad",
		},
		Routes: RoutesConfig{
			Login:    routes.Login,
			Register: routes.Register,
			Home:     routes.Home,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DevelopmentConfig points at a local backend with metrics and audit on.
func DevelopmentConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API BaseURL %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}
	if c.API.TimeZone != "" {
		if _, err := time.LoadLocation(c.API.TimeZone); err != nil && c.API.TimeZone != defaultTimeZone {
			return fmt.Errorf("API TimeZone: %w", err)
		}
	}

	// Session
	if c.Session.TokenKey == "" || c.Session.ProfileKey == "" {
		return errors.New("Session TokenKey and ProfileKey required")
	}
	if c.Session.TokenKey == c.Session.ProfileKey {
		return errors.New("Session TokenKey and ProfileKey must differ")
	}
	if c.Session.VerifyFreshness < 0 {
		return errors.New("Session VerifyFreshness must be >= 0")
	}
	if c.Session.ExpiryLeeway < 0 {
		return errors.New("Session ExpiryLeeway must be >= 0")
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory, "":
	case StorageFile:
		if c.Storage.FilePath == "" {
			return errors.New("Storage FilePath required for file backend")
		}
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("Storage RedisAddr required for redis backend")
		}
		if c.Storage.RedisTTL < 0 {
			return errors.New("Storage RedisTTL must be >= 0")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}

	// Routes
	for name, r := range map[string]string{"Login": c.Routes.Login, "Register": c.Routes.Register, "Home": c.Routes.Home} {
		if r == "" || !strings.HasPrefix(r, "/") {
			return fmt.Errorf("Routes %s must start with /", name)
		}
	}
	if c.Routes.Home == c.Routes.Login || c.Routes.Home == c.Routes.Register {
		return errors.New("Routes Home must differ from the public routes")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}
	return nil
}

const defaultTimeZone = "Asia/Makassar"

func (c *Config) location() *time.Location {
	name := c.API.TimeZone
	if name == "" {
		name = defaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Asia/Makassar is fixed at UTC+8 with no DST.
		return time.FixedZone("WITA", 8*60*60)
	}
	return loc
}

func (c *Config) routes() guard.Routes {
	return guard.Routes{Login: c.Routes.Login, Register: c.Routes.Register, Home: c.Routes.Home}
}
