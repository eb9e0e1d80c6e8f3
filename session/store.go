package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/jwt"
	"github.com/MrEthical07/sikad/storage"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidCredentials is returned when the backend rejects a username/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrLoginFailed is returned when the login call fails for a reason other than rejection.
var ErrLoginFailed = errors.New("login failed")

// ErrProfileFetchFailed is returned when a token was issued but the profile could not be loaded.
var ErrProfileFetchFailed = errors.New("profile fetch failed")

// ErrSessionRejected is returned when the backend no longer accepts the stored token.
var ErrSessionRejected = errors.New("session rejected")

// ErrTokenExpired is returned when the stored token's own expiry has passed.
var ErrTokenExpired = errors.New("session token expired")

// ErrStorageUnavailable wraps persistence failures.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// ErrNoSession is returned by operations that need an authenticated session.
var ErrNoSession = errors.New("no active session")

const (
	// DefaultTokenKey is the storage key of the bearer token.
	DefaultTokenKey = "absence_auth_token"
	// DefaultProfileKey is the storage key of the profile record.
	DefaultProfileKey = "absence_user_info"
	// DefaultVerifyFreshness is how long a successful verification is trusted.
	DefaultVerifyFreshness = 30 * time.Second
	// DefaultExpiryLeeway tolerates clock skew when reading a JWT exp claim.
	DefaultExpiryLeeway = 30 * time.Second

	// MessageInvalidCredentials is shown when the backend rejects a login without a message.
	MessageInvalidCredentials = "Username atau password salah"
	// MessageProfileFetchFailed is shown when the profile call after login fails without a message.
	MessageProfileFetchFailed = "Failed to load user profile"
	// MessageStorageFailed is shown when the session could not be saved.
	MessageStorageFailed = "Failed to save session"
)

// Authenticator is the subset of [*api.Client] the store calls.
type Authenticator interface {
	Login(ctx context.Context, username, password string) api.Response[api.LoginData]
	GetSession(ctx context.Context, token string) api.Response[api.Profile]
	Logout(ctx context.Context, token string) api.Response[api.Empty]
}

// Logger receives store diagnostics. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Config configures a [Store]. Zero fields take the package defaults. A negative
// VerifyFreshness or ExpiryLeeway turns that window off.
type Config struct {
	TokenKey        string
	ProfileKey      string
	VerifyFreshness time.Duration
	ExpiryLeeway    time.Duration
	Clock           func() time.Time
	Logger          Logger
	// OnEvent is called synchronously after lifecycle steps. It must not call back
	// into the store.
	OnEvent func(Event)
}

func (c Config) withDefaults() Config {
	if c.TokenKey == "" {
		c.TokenKey = DefaultTokenKey
	}
	if c.ProfileKey == "" {
		c.ProfileKey = DefaultProfileKey
	}
	switch {
	case c.VerifyFreshness == 0:
		c.VerifyFreshness = DefaultVerifyFreshness
	case c.VerifyFreshness < 0:
		c.VerifyFreshness = 0
	}
	switch {
	case c.ExpiryLeeway == 0:
		c.ExpiryLeeway = DefaultExpiryLeeway
	case c.ExpiryLeeway < 0:
		c.ExpiryLeeway = 0
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

// Store owns the session. It is safe for concurrent use.
type Store struct {
	auth    Authenticator
	storage storage.Storage
	cfg     Config

	// persistMu serializes storage writes with generation checks. Lock order:
	// persistMu, then mu.
	persistMu sync.Mutex

	mu           sync.RWMutex
	state        State
	sess         Session
	generation   uint64
	lastVerified time.Time

	verifyGroup singleflight.Group

	subsMu  sync.Mutex
	subs    map[uint64]chan State
	nextSub uint64
}

// NewStore creates a store in [StateUnknown]. Call [Store.Restore] once at start-up.
func NewStore(auth Authenticator, st storage.Storage, cfg Config) *Store {
	if st == nil {
		st = storage.NewMemory()
	}
	return &Store{
		auth:    auth,
		storage: st,
		cfg:     cfg.withDefaults(),
		subs:    make(map[uint64]chan State),
	}
}

// Restore rehydrates the session from storage and verifies it. A cached profile makes
// the store authenticated before the backend answers; without one the state stays
// unknown until verification resolves. Storage read errors leave the store anonymous.
// Calling Restore after the state is known is a no-op.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.RLock()
	known := s.state != StateUnknown
	s.mu.RUnlock()
	if known {
		return nil
	}

	token, ok, err := s.storage.Get(ctx, s.cfg.TokenKey)
	if err != nil {
		s.emit(Event{Type: EventStorageFailure, Err: err})
		s.forceAnonymous(ctx)
		return fmt.Errorf("%w: read token: %v", ErrStorageUnavailable, err)
	}
	if !ok || token == "" {
		s.forceAnonymous(ctx)
		return nil
	}

	sess := Session{Token: token}
	cached := false
	if raw, found, err := s.storage.Get(ctx, s.cfg.ProfileKey); err != nil {
		s.emit(Event{Type: EventStorageFailure, Err: err})
		s.forceAnonymous(ctx)
		return fmt.Errorf("%w: read profile: %v", ErrStorageUnavailable, err)
	} else if found {
		p, at, decErr := DecodeProfile(raw)
		if decErr != nil {
			s.cfg.Logger.Printf("sikad: discarding cached profile: %v", decErr)
		} else {
			sess.Profile, sess.VerifiedAt = p, at
			cached = true
		}
	}

	s.mu.Lock()
	if s.state != StateUnknown {
		s.mu.Unlock()
		return nil
	}
	s.sess = sess
	if cached {
		s.state = StateAuthenticated
	}
	s.mu.Unlock()
	if cached {
		s.notify(StateAuthenticated)
	}

	if !s.VerifySession(ctx) {
		if s.State() == StateAnonymous {
			return ErrSessionRejected
		}
		return ctx.Err()
	}
	s.emit(Event{Type: EventRestored, Role: s.Role(), UserID: s.Profile().ID})
	return nil
}

// Login signs in with the two-step token then profile exchange. Nothing is
// persisted unless both calls succeed.
func (s *Store) Login(ctx context.Context, username, password string) (LoginResult, error) {
	start := s.cfg.Clock()

	tokenRes := s.auth.Login(ctx, username, password)
	if !tokenRes.Success || tokenRes.Data.Token == "" {
		msg, err := loginFailure(tokenRes)
		s.emit(Event{Type: EventLoginFailure, Kind: tokenRes.Kind, Message: msg, Err: err, Latency: s.cfg.Clock().Sub(start)})
		return LoginResult{Message: msg}, err
	}
	token := tokenRes.Data.Token

	profileRes := s.auth.GetSession(ctx, token)
	if !profileRes.Success {
		msg := profileRes.Message
		if msg == "" {
			msg = MessageProfileFetchFailed
		}
		err := fmt.Errorf("%w: %s", ErrProfileFetchFailed, msg)
		// The token is never stored, so revoke it on a best-effort basis.
		s.auth.Logout(api.Silent(context.WithoutCancel(ctx)), token)
		s.emit(Event{Type: EventLoginFailure, Kind: profileRes.Kind, Message: msg, Err: err, Latency: s.cfg.Clock().Sub(start)})
		return LoginResult{Message: msg}, err
	}
	profile := profileRes.Data
	now := s.cfg.Clock()

	s.persistMu.Lock()
	if err := s.persist(ctx, token, profile, now); err != nil {
		s.persistMu.Unlock()
		s.auth.Logout(api.Silent(context.WithoutCancel(ctx)), token)
		s.emit(Event{Type: EventStorageFailure, Err: err})
		s.forceAnonymous(ctx)
		s.emit(Event{Type: EventLoginFailure, Message: MessageStorageFailed, Err: err, Latency: s.cfg.Clock().Sub(start)})
		return LoginResult{Message: MessageStorageFailed}, err
	}
	s.mu.Lock()
	s.generation++
	s.sess = Session{Token: token, Profile: profile, VerifiedAt: now}
	s.lastVerified = now
	s.state = StateAuthenticated
	s.mu.Unlock()
	s.persistMu.Unlock()

	s.notify(StateAuthenticated)
	s.emit(Event{Type: EventLoginSuccess, Role: profile.Role, UserID: profile.ID, Latency: s.cfg.Clock().Sub(start)})
	return LoginResult{OK: true}, nil
}

func loginFailure(res api.Response[api.LoginData]) (string, error) {
	switch {
	case res.Success:
		return "Invalid response from server: missing token", fmt.Errorf("%w: missing token", ErrLoginFailed)
	case res.Kind == api.KindRejected && res.Status < 500:
		msg := res.Message
		if msg == "" || strings.HasPrefix(msg, api.MessageDefault) {
			msg = MessageInvalidCredentials
		}
		return msg, fmt.Errorf("%w: %s", ErrInvalidCredentials, msg)
	default:
		return res.Message, fmt.Errorf("%w: %v", ErrLoginFailed, res.Err())
	}
}

// persist writes the profile record, then the token. On failure it removes both.
// Callers hold persistMu.
func (s *Store) persist(ctx context.Context, token string, p api.Profile, verifiedAt time.Time) error {
	blob, err := EncodeProfile(p, verifiedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := s.storage.Set(ctx, s.cfg.ProfileKey, blob); err != nil {
		_ = s.storage.Delete(context.WithoutCancel(ctx), s.cfg.ProfileKey)
		return fmt.Errorf("%w: write profile: %v", ErrStorageUnavailable, err)
	}
	if err := s.storage.Set(ctx, s.cfg.TokenKey, token); err != nil {
		_ = s.storage.Delete(context.WithoutCancel(ctx), s.cfg.TokenKey, s.cfg.ProfileKey)
		return fmt.Errorf("%w: write token: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// VerifySession confirms the held token with the backend and reports whether the
// store is still authenticated. A success within VerifyFreshness is reused without a
// network call, and concurrent callers share one in-flight request. Any failure
// clears the session.
func (s *Store) VerifySession(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	now := s.cfg.Clock()

	s.mu.RLock()
	token, gen, last, state := s.sess.Token, s.generation, s.lastVerified, s.state
	s.mu.RUnlock()

	if token == "" {
		if state == StateUnknown {
			// Nothing loaded yet: the persisted token decides.
			if err := s.Restore(ctx); err != nil {
				return false
			}
			return s.State() == StateAuthenticated
		}
		s.forceAnonymous(ctx)
		return false
	}
	if !last.IsZero() && now.Sub(last) < s.cfg.VerifyFreshness {
		s.emit(Event{Type: EventVerifyCached, Role: s.Role()})
		return true
	}
	if claims, err := jwt.Inspect(token); err == nil && claims.Expired(now, s.cfg.ExpiryLeeway) {
		s.failClosed(ctx, gen, Event{Type: EventTokenExpired, Err: ErrTokenExpired, Message: "token expired"})
		return false
	}

	ch := s.verifyGroup.DoChan("verify:"+strconv.FormatUint(gen, 10), func() (any, error) {
		return s.verify(context.WithoutCancel(ctx), token, gen), nil
	})
	select {
	case r := <-ch:
		return r.Val.(bool)
	case <-ctx.Done():
		return false
	}
}

// Revalidate forgets the last successful verification and verifies again. Call it
// when another endpoint answered 401 for the held token.
func (s *Store) Revalidate(ctx context.Context) bool {
	s.mu.Lock()
	s.lastVerified = time.Time{}
	s.mu.Unlock()
	return s.VerifySession(ctx)
}

func (s *Store) verify(ctx context.Context, token string, gen uint64) bool {
	start := s.cfg.Clock()
	res := s.auth.GetSession(api.Silent(ctx), token)
	latency := s.cfg.Clock().Sub(start)
	if !res.Success {
		s.failClosed(ctx, gen, Event{
			Type:    EventVerifyRejected,
			Kind:    res.Kind,
			Message: res.Message,
			Err:     fmt.Errorf("%w: %v", ErrSessionRejected, res.Err()),
			Latency: latency,
		})
		return false
	}

	now := s.cfg.Clock()
	s.persistMu.Lock()
	s.mu.RLock()
	stale := s.generation != gen
	s.mu.RUnlock()
	if stale {
		s.persistMu.Unlock()
		return false
	}
	blob, err := EncodeProfile(res.Data, now)
	if err == nil {
		err = s.storage.Set(ctx, s.cfg.ProfileKey, blob)
	}
	if err != nil {
		s.persistMu.Unlock()
		s.emit(Event{Type: EventStorageFailure, Err: err})
		s.failClosed(ctx, gen, Event{Type: EventVerifyRejected, Err: fmt.Errorf("%w: %v", ErrStorageUnavailable, err), Latency: latency})
		return false
	}
	s.mu.Lock()
	resolved := s.state != StateAuthenticated
	s.sess.Profile = res.Data
	s.sess.VerifiedAt = now
	s.lastVerified = now
	s.state = StateAuthenticated
	s.mu.Unlock()
	s.persistMu.Unlock()

	if resolved {
		s.notify(StateAuthenticated)
	}
	s.emit(Event{Type: EventVerified, Role: res.Data.Role, UserID: res.Data.ID, Latency: latency})
	return true
}

// failClosed clears the session held at generation gen. A newer session is left alone.
func (s *Store) failClosed(ctx context.Context, gen uint64, ev Event) {
	s.persistMu.Lock()
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.persistMu.Unlock()
		return
	}
	ev.Role = s.sess.Profile.Role
	ev.UserID = s.sess.Profile.ID
	s.clearLocked()
	s.mu.Unlock()
	err := s.storage.Delete(context.WithoutCancel(ctx), s.cfg.TokenKey, s.cfg.ProfileKey)
	s.persistMu.Unlock()

	if err != nil {
		s.cfg.Logger.Printf("sikad: clear session storage: %v", err)
		s.emit(Event{Type: EventStorageFailure, Err: err})
	}
	s.notify(StateAnonymous)
	s.emit(ev)
}

// forceAnonymous clears whatever is held, regardless of generation.
func (s *Store) forceAnonymous(ctx context.Context) error {
	s.persistMu.Lock()
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
	err := s.storage.Delete(context.WithoutCancel(ctx), s.cfg.TokenKey, s.cfg.ProfileKey)
	s.persistMu.Unlock()
	s.notify(StateAnonymous)
	if err != nil {
		s.emit(Event{Type: EventStorageFailure, Err: err})
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) clearLocked() {
	s.generation++
	s.sess = Session{}
	s.lastVerified = time.Time{}
	s.state = StateAnonymous
}

// Logout asks the backend to invalidate the token, then clears local state whatever
// the backend answered. Only a local storage failure is returned.
func (s *Store) Logout(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.RLock()
	token, p := s.sess.Token, s.sess.Profile
	s.mu.RUnlock()

	if token != "" && s.auth != nil {
		if res := s.auth.Logout(api.Silent(ctx), token); !res.Success {
			s.cfg.Logger.Printf("sikad: remote logout failed: %s", res.Message)
		}
	}
	err := s.forceAnonymous(ctx)
	s.emit(Event{Type: EventLogout, Role: p.Role, UserID: p.ID, Err: err})
	return err
}

// ReplaceProfile installs a profile returned by a successful profile update.
func (s *Store) ReplaceProfile(ctx context.Context, p api.Profile) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	authenticated := s.state == StateAuthenticated && s.sess.Token != ""
	verifiedAt := s.sess.VerifiedAt
	s.mu.RUnlock()
	if !authenticated {
		return ErrNoSession
	}

	blob, err := EncodeProfile(p, verifiedAt)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, s.cfg.ProfileKey, blob); err != nil {
		s.emit(Event{Type: EventStorageFailure, Err: err})
		return fmt.Errorf("%w: write profile: %v", ErrStorageUnavailable, err)
	}
	s.mu.Lock()
	s.sess.Profile = p
	s.mu.Unlock()
	s.emit(Event{Type: EventProfileReplaced, Role: p.Role, UserID: p.ID})
	return nil
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a copy of the session and whether one is held.
func (s *Store) Snapshot() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess, s.state == StateAuthenticated && s.sess.Token != ""
}

// Token returns the bearer token, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Token
}

// Profile returns the cached profile.
func (s *Store) Profile() api.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Profile
}

// Role returns the cached profile's role.
func (s *Store) Role() api.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Profile.Role
}

// Subscribe returns a channel that receives the state after every change. Slow
// readers only see the latest state. cancel closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) notify(st State) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

func (s *Store) emit(ev Event) {
	if s.cfg.OnEvent == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = s.cfg.Clock()
	}
	s.cfg.OnEvent(ev)
}
