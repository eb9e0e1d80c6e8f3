package session

import (
	"time"

	"github.com/MrEthical07/sikad/api"
)

// State is the authentication state of a [Store].
type State uint8

const (
	// StateUnknown means start-up restoration has not finished.
	StateUnknown State = iota
	// StateAnonymous means no session is held.
	StateAnonymous
	// StateAuthenticated means a token is held and has not been invalidated.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "invalid"
	}
}

// Session is the in-memory view of the signed-in user.
type Session struct {
	Token   string
	Profile api.Profile
	// VerifiedAt is the last successful backend confirmation, possibly from a previous
	// process when the session was restored from storage.
	VerifiedAt time.Time
}

// LoginResult is what a login form displays.
type LoginResult struct {
	OK      bool
	Message string
}

// EventType names a session lifecycle event.
type EventType string

const (
	EventLoginSuccess    EventType = "login_success"
	EventLoginFailure    EventType = "login_failure"
	EventLogout          EventType = "logout"
	EventRestored        EventType = "session_restored"
	EventVerified        EventType = "session_verified"
	EventVerifyCached    EventType = "session_verify_cached"
	EventVerifyRejected  EventType = "session_verify_rejected"
	EventTokenExpired    EventType = "session_token_expired"
	EventProfileReplaced EventType = "profile_replaced"
	EventStorageFailure  EventType = "storage_failure"
)

// Event is emitted to Config.OnEvent after each lifecycle step. Err is set on failures.
type Event struct {
	Type    EventType
	Role    api.Role
	UserID  api.ID
	Kind    api.Kind
	Message string
	Err     error
	Latency time.Duration
	At      time.Time
}
