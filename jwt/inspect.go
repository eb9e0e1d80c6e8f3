package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by [Inspect] for tokens that are not structurally JWTs.
var ErrNotJWT = errors.New("token is not a jwt")

// Claims is the unverified subset of registered claims the client cares about.
type Claims struct {
	Subject   string
	Issuer    string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasExpiry reports whether the token carried an exp claim.
func (c Claims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// Expired reports whether the token's exp is before now minus leeway. Tokens
// without exp never expire client-side.
func (c Claims) Expired(now time.Time, leeway time.Duration) bool {
	if !c.HasExpiry() {
		return false
	}
	return now.After(c.ExpiresAt.Add(leeway))
}

type tokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes the token payload without checking its signature.
func Inspect(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrNotJWT
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &tokenClaims{})
	if err != nil {
		return Claims{}, ErrNotJWT
	}
	tc, ok := parsed.Claims.(*tokenClaims)
	if !ok {
		return Claims{}, ErrNotJWT
	}

	out := Claims{
		Subject: tc.Subject,
		Issuer:  tc.Issuer,
		Role:    tc.Role,
	}
	if tc.ExpiresAt != nil {
		out.ExpiresAt = tc.ExpiresAt.Time
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = tc.IssuedAt.Time
	}
	return out, nil
}
