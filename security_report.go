package sikad

import (
	"net/url"
	"time"

	"github.com/MrEthical07/sikad/jwt"
	"github.com/MrEthical07/sikad/session"
)

// SecurityReport summarizes how the engine protects the session it holds.
type SecurityReport struct {
	TransportSecure bool
	StorageBackend  StorageBackend
	StorageSealed   bool
	RequestIDs      bool
	VerifyFreshness time.Duration
	ExpiryLeeway    time.Duration
	AuditEnabled    bool
	MetricsEnabled  bool

	State session.State
	// TokenExpiresAt is zero when there is no token or it is not a JWT with exp.
	TokenExpiresAt time.Time
	TokenSubject   string
}

// Warnings lists settings a production deployment should not ship with.
func (r SecurityReport) Warnings() []string {
	var out []string
	if !r.TransportSecure {
		out = append(out, "backend URL is not https")
	}
	if r.StorageBackend == StorageFile && !r.StorageSealed {
		out = append(out, "file storage is not sealed with a passphrase")
	}
	if r.VerifyFreshness > 5*time.Minute {
		out = append(out, "verification freshness window exceeds 5m")
	}
	return out
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	backend := e.config.Storage.Backend
	if backend == "" {
		backend = StorageMemory
	}
	r := SecurityReport{
		StorageBackend:  backend,
		StorageSealed:   backend == StorageFile && e.config.Storage.Passphrase != "",
		RequestIDs:      e.config.API.RequestIDs,
		VerifyFreshness: e.config.Session.VerifyFreshness,
		ExpiryLeeway:    e.config.Session.ExpiryLeeway,
		AuditEnabled:    e.audit != nil,
		MetricsEnabled:  e.metrics.Enabled(),
		State:           e.State(),
	}
	if u, err := url.Parse(e.config.API.BaseURL); err == nil {
		r.TransportSecure = u.Scheme == "https"
	}
	if token := e.store.Token(); token != "" {
		if claims, err := jwt.Inspect(token); err == nil {
			r.TokenExpiresAt = claims.ExpiresAt
			r.TokenSubject = claims.Subject
		}
	}
	return r
}
