package sikad

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/guard"
	"github.com/MrEthical07/sikad/internal/audit"
	"github.com/MrEthical07/sikad/session"
	"github.com/MrEthical07/sikad/storage"
	"github.com/MrEthical07/sikad/validate"
)

// Engine is a logged-in (or not yet logged-in) SIKAD client. Methods are safe for
// concurrent use once [Builder.Build] has returned.
type Engine struct {
	config  Config
	client  *api.Client
	storage storage.Storage
	store   *session.Store
	routes  guard.Routes
	audit   *audit.Dispatcher
	metrics *Metrics
	logger  Logger
}

// LoginResult is the outcome of [Engine.Login] as the login screen shows it.
type LoginResult = session.LoginResult

// Close flushes the audit dispatcher and releases storage.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.storage != nil {
		return e.storage.Close()
	}
	return nil
}

// Client exposes the underlying API client for calls the engine does not wrap.
func (e *Engine) Client() *api.Client { return e.client }

// Store exposes the session store.
func (e *Engine) Store() *session.Store { return e.store }

// Routes returns the guard routes from the config.
func (e *Engine) Routes() guard.Routes { return e.routes }

// NewGuard returns a route guard bound to this engine's session.
func (e *Engine) NewGuard(nav guard.Navigator) *guard.Guard {
	return guard.New(e.store, nav, e.routes)
}

// HTTPGuard wraps next with redirect-on-unauthenticated behavior.
func (e *Engine) HTTPGuard(next http.Handler) http.Handler {
	return guard.Handler(e.store, e.routes, next)
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
SESSION
====================================
*/

// Restore loads any persisted session and verifies it. It should be called once at
// start-up, before the guard is consulted.
func (e *Engine) Restore(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	return e.store.Restore(ctx)
}

// Login checks that both fields are filled, then signs in. The result message is
// what the login screen should display on failure.
func (e *Engine) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if e == nil || e.store == nil {
		return LoginResult{}, ErrEngineNotReady
	}
	if err := validate.Login(username, password); err != nil {
		e.metricInc(MetricValidationFailure)
		var ve *ValidationError
		errors.As(err, &ve)
		return LoginResult{Message: ve.Message()}, err
	}
	return e.store.Login(ctx, username, password)
}

// Logout ends the session. Local state is cleared even when the backend is
// unreachable.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	return e.store.Logout(ctx)
}

// VerifySession reports whether the held session is still accepted by the backend.
func (e *Engine) VerifySession(ctx context.Context) bool {
	if e == nil || e.store == nil {
		return false
	}
	return e.store.VerifySession(ctx)
}

func (e *Engine) State() session.State {
	if e == nil || e.store == nil {
		return session.StateUnknown
	}
	return e.store.State()
}

// Session returns the current session and whether one is held.
func (e *Engine) Session() (session.Session, bool) {
	if e == nil || e.store == nil {
		return session.Session{}, false
	}
	return e.store.Snapshot()
}

func (e *Engine) Profile() api.Profile {
	if e == nil || e.store == nil {
		return api.Profile{}
	}
	return e.store.Profile()
}

func (e *Engine) Role() api.Role {
	if e == nil || e.store == nil {
		return ""
	}
	return e.store.Role()
}

// Subscribe delivers state changes until cancel is called.
func (e *Engine) Subscribe() (<-chan session.State, func()) {
	return e.store.Subscribe()
}

/*
====================================
AUTHENTICATED CALLS
====================================
*/

// authed runs fn with the held token. A 401 triggers a fresh verification so a
// revoked session is cleared and the guard redirects.
func authed[T any](ctx context.Context, e *Engine, op string, fn func(context.Context, string) api.Response[T]) (T, error) {
	var zero T
	if e == nil || e.store == nil {
		return zero, ErrEngineNotReady
	}
	token := e.store.Token()
	if token == "" {
		return zero, ErrNotAuthenticated
	}
	res := fn(ctx, token)
	if err := e.observe(ctx, op, res.Kind, res.Status, res.Err()); err != nil {
		return zero, err
	}
	return res.Data, nil
}

// optional runs fn with the held token when there is one. Lookup lists the
// registration screen needs are reachable before login.
func optional[T any](ctx context.Context, e *Engine, op string, fn func(context.Context, string) api.Response[T]) (T, error) {
	var zero T
	if e == nil || e.store == nil {
		return zero, ErrEngineNotReady
	}
	res := fn(ctx, e.store.Token())
	if err := e.observe(ctx, op, res.Kind, res.Status, res.Err()); err != nil {
		return zero, err
	}
	return res.Data, nil
}

// public runs an unauthenticated call.
func public[T any](ctx context.Context, e *Engine, op string, fn func(context.Context) api.Response[T]) (T, error) {
	var zero T
	if e == nil || e.client == nil {
		return zero, ErrEngineNotReady
	}
	res := fn(ctx)
	if err := e.observe(ctx, op, res.Kind, res.Status, res.Err()); err != nil {
		return zero, err
	}
	return res.Data, nil
}

func (e *Engine) observe(ctx context.Context, op string, kind api.Kind, status int, err error) error {
	if err == nil {
		e.metricInc(MetricRequestSuccess)
		return nil
	}
	e.metricInc(MetricRequestFailure)
	switch {
	case kind == api.KindTimeout:
		e.metricInc(MetricRequestTimeout)
	case status == http.StatusUnauthorized:
		e.metricInc(MetricRequestUnauthorized)
		if e.store.Token() != "" {
			e.store.Revalidate(ctx)
		}
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	return &RequestError{Op: op, Err: apiErr}
}

// invalid counts a client-side validation failure and returns err.
func (e *Engine) invalid(err error) error {
	if err != nil {
		e.metricInc(MetricValidationFailure)
	}
	return err
}
