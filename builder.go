package sikad

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/internal/audit"
	"github.com/MrEthical07/sikad/session"
	"github.com/MrEthical07/sikad/storage"
)

// Builder assembles an [Engine].
//
// Builder instances are intended to be configured during initialization and then
// discarded. A builder can be used once.
type Builder struct {
	config     Config
	storage    storage.Storage
	httpClient *http.Client
	auditSink  AuditSink
	logger     Logger
	clock      func() time.Time

	built bool
}

// Logger receives diagnostics from the engine and its API client. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// New returns a builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets the backend root, for example "https://sikad.example.ac.id/api".
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithStorage supplies an already-open storage backend. It overrides Config.Storage,
// and the engine takes ownership of it.
func (b *Builder) WithStorage(st storage.Storage) *Builder {
	b.storage = st
	return b
}

// WithHTTPClient replaces the transport used for backend calls.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithAuditSink sets where audit events are delivered. Audit must also be enabled in
// the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the diagnostics sink. The default is the standard logger.
func (b *Builder) WithLogger(l Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides the time source used for freshness and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, opens storage and wires the API client, session
// store, metrics and audit dispatcher together. The returned engine is in
// [session.StateUnknown]; call [Engine.Restore] next.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}

	// -------- API CLIENT --------
	opts := []api.Option{
		api.WithLogger(logger),
		api.WithRequestIDs(cfg.API.RequestIDs),
	}
	if b.httpClient != nil {
		opts = append(opts, api.WithHTTPClient(b.httpClient))
	}
	client, err := api.New(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
		Location:  cfg.location(),
	}, opts...)
	if err != nil {
		return nil, err
	}

	// -------- STORAGE --------
	st := b.storage
	if st == nil {
		st, err = OpenStorage(context.Background(), cfg.Storage)
		if err != nil {
			return nil, err
		}
	}

	e := &Engine{
		config:  cfg,
		client:  client,
		storage: st,
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		routes:  cfg.routes(),
	}

	// -------- AUDIT --------
	if cfg.Audit.Enabled {
		e.audit = audit.NewDispatcher(audit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}

	// -------- SESSION STORE --------
	e.store = session.NewStore(client, st, session.Config{
		TokenKey:        cfg.Session.TokenKey,
		ProfileKey:      cfg.Session.ProfileKey,
		VerifyFreshness: sessionWindow(cfg.Session.VerifyFreshness),
		ExpiryLeeway:    sessionWindow(cfg.Session.ExpiryLeeway),
		Clock:           b.clock,
		Logger:          logger,
		OnEvent:         e.onSessionEvent,
	})

	b.built = true
	return e, nil
}

// sessionWindow maps a config window onto session.Config, where zero means the
// package default and a negative value turns the window off.
func sessionWindow(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}
