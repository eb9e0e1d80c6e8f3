package fakebackend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/internal/rate"
	"github.com/MrEthical07/sikad/jwt"
	"github.com/MrEthical07/sikad/password"
)

// Config tunes a [Server]. Zero values select test-friendly defaults.
type Config struct {
	Secret   []byte
	TokenTTL time.Duration
	Clock    func() time.Time
	Location *time.Location

	// Redis, when set, holds the failed-login counters.
	Redis            redis.UniversalClient
	MaxLoginAttempts int
	LoginCooldown    time.Duration

	// Password overrides the Argon2id parameters used for new accounts.
	Password password.Params
	// SkipSeed starts with empty tables.
	SkipSeed bool
}

// Server holds the fake backend state.
type Server struct {
	cfg     Config
	signer  *jwt.Signer
	hasher  *password.Hasher
	limiter *rate.Limiter

	mu         sync.RWMutex
	users      map[int64]*user
	byUsername map[string]int64
	stases     []api.Stase
	groups     []api.Group
	activities map[int64]*api.Activity
	visits     map[int64]*visit
	files      map[int64]*file
	uploads    map[string][]byte
	revoked    map[string]struct{}
	nextID     int64

	// calls counts requests per route pattern.
	calls map[string]int
}

// New builds a server, seeding demo data unless cfg.SkipSeed is set.
func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		cfg.Secret = []byte("sikad-fake-backend-secret")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.FixedZone("WITA", 8*60*60)
	}
	if cfg.Password == (password.Params{}) {
		// Cheap parameters keep tests fast; production hashes use DefaultParams.
		cfg.Password = password.Params{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1, SaltBytes: 16, KeyBytes: 32}
	}

	signer, err := jwt.NewSigner(cfg.Secret, "sikad-fake", cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		signer:     signer.WithClock(cfg.Clock),
		hasher:     hasher,
		limiter:    rate.New(cfg.Redis, rate.Config{MaxAttempts: cfg.MaxLoginAttempts, Cooldown: cfg.LoginCooldown, Prefix: "fake:login"}),
		users:      make(map[int64]*user),
		byUsername: make(map[string]int64),
		activities: make(map[int64]*api.Activity),
		visits:     make(map[int64]*visit),
		files:      make(map[int64]*file),
		uploads:    make(map[string][]byte),
		revoked:    make(map[string]struct{}),
		calls:      make(map[string]int),
	}
	if !cfg.SkipSeed {
		if err := s.seed(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Router returns the HTTP surface. Mount it at the API base path.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/login", s.handleLogin)
	r.Post("/students/register", s.handleRegisterStudent)
	r.Post("/advisors/register", s.handleRegisterAdvisor)
	r.Get("/staces", s.handleStases)
	r.Get("/groups", s.handleGroups)
	r.Get("/files", s.handleFiles)
	r.Get("/uploads/{name}", s.handleUpload)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/auth/session", s.handleSession)
		r.Post("/auth/logout", s.handleLogout)
		r.Put("/students/profile", s.handleUpdateStudent)
		r.Put("/advisors/profile", s.handleUpdateAdvisor)

		r.Get("/activities", s.handleListActivities)
		r.With(s.requireStaff).Post("/activities", s.handleCreateActivity)
		r.With(s.requireStaff).Put("/activities/{id}", s.handleUpdateActivity)
		r.With(s.requireStaff).Delete("/activities/{id}", s.handleDeleteActivity)
		r.Get("/advisors/clinic", s.handleClinicAdvisors)

		r.With(s.requireStudent).Post("/logbooks/check-in", s.handleCheckIn)
		r.With(s.requireStudent).Post("/logbooks/{id}/check-out", s.handleCheckOut)
		r.With(s.requireStudent).Get("/logbooks/student", s.handleStudentLogbooks)
		r.Get("/logbooks/{id}", s.handleLogbookDetails)
		r.With(s.requireStaff).Put("/logbooks/{id}/verify", s.handleVerify)

		r.Get("/statistics", s.handleStatistics)
		r.Get("/files/{id}/download", s.handleDownload)
	})

	return r
}

// Calls reports how many requests hit the route pattern, e.g. "GET /auth/session".
func (s *Server) Calls(route string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[route]
}

// Revoke invalidates token as if it had been logged out elsewhere.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	s.revoked[token] = struct{}{}
	s.mu.Unlock()
}

// IssueToken signs a token for an existing username, bypassing the password check.
func (s *Server) IssueToken(username string) (string, error) {
	s.mu.RLock()
	id, ok := s.byUsername[strings.ToLower(username)]
	var u user
	if ok {
		u = *s.users[id]
	}
	s.mu.RUnlock()
	if !ok {
		return "", errors.New("unknown user")
	}
	return s.signer.Issue(strconv.FormatInt(u.id, 10), string(u.role))
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		s.mu.Lock()
		s.calls[r.Method+" "+pattern]++
		s.mu.Unlock()
	})
}

func (s *Server) now() time.Time {
	return s.cfg.Clock().In(s.cfg.Location)
}

func (s *Server) newID() int64 {
	s.nextID++
	return s.nextID
}

/*
====================================
AUTH
====================================
*/

type userKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		claims, err := s.signer.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}

		s.mu.RLock()
		_, revoked := s.revoked[token]
		u, ok := s.users[id]
		s.mu.RUnlock()
		if revoked || !ok {
			writeError(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, session{userID: u.id, token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type session struct {
	userID int64
	token  string
}

func sessionFrom(ctx context.Context) session {
	sess, _ := ctx.Value(userKey{}).(session)
	return sess
}

// caller returns a copy of the authenticated user.
func (s *Server) caller(r *http.Request) (user, bool) {
	id := sessionFrom(r.Context()).userID
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return user{}, false
	}
	return *u, true
}

func (s *Server) requireRole(allowed func(api.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := s.caller(r)
			if !ok || !allowed(u.role) {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requireStudent(next http.Handler) http.Handler {
	return s.requireRole(api.Role.IsStudent)(next)
}

func (s *Server) requireStaff(next http.Handler) http.Handler {
	return s.requireRole(func(r api.Role) bool { return r.IsAdvisor() || r.IsProgramHead() })(next)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

/*
====================================
RESPONSES
====================================
*/

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
