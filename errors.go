package sikad

import (
	"errors"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/session"
	"github.com/MrEthical07/sikad/validate"
)

var (
	// ErrInvalidCredentials is returned when the backend rejects a login.
	ErrInvalidCredentials = session.ErrInvalidCredentials
	// ErrLoginFailed is returned when login fails for transport or server reasons.
	ErrLoginFailed = session.ErrLoginFailed
	// ErrProfileFetchFailed is returned when login got a token but not a profile.
	ErrProfileFetchFailed = session.ErrProfileFetchFailed
	// ErrSessionRejected is returned when the stored session is no longer valid.
	ErrSessionRejected = session.ErrSessionRejected
	// ErrStorageUnavailable wraps persisted storage failures.
	ErrStorageUnavailable = session.ErrStorageUnavailable
	// ErrValidation matches every [*ValidationError].
	ErrValidation = validate.ErrInvalid

	// ErrNotAuthenticated is returned by operations that need a session when none is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrEngineNotReady is returned by a nil or closed engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrRequestFailed matches every [*RequestError].
	ErrRequestFailed = errors.New("request failed")
)

// ValidationError lists the fields a form got wrong.
type ValidationError = validate.Error

// RequestError is a failed backend call. Error returns the display message; the
// normalized kind is reachable with errors.Is against the api sentinels.
type RequestError struct {
	Op  string
	Err *api.Error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() []error {
	return []error{ErrRequestFailed, e.Err}
}

// Kind is the normalized failure kind.
func (e *RequestError) Kind() api.Kind {
	return e.Err.Kind
}

// Message returns the string a UI should show for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message()
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re.Error()
	}
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return "Silakan login terlebih dahulu"
	case errors.Is(err, ErrStorageUnavailable):
		return session.MessageStorageFailed
	}
	return err.Error()
}
