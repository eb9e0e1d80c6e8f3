package api

import (
	"errors"
	"net/http"
)

// Kind classifies why a call failed.
type Kind uint8

const (
	// KindNone marks a successful response.
	KindNone Kind = iota
	// KindTimeout means the per-call deadline elapsed.
	KindTimeout
	// KindNetwork covers connection, DNS and TLS failures.
	KindNetwork
	// KindRejected means the backend answered with a failure (non-2xx or success=false).
	KindRejected
	// KindMalformed means the body was not JSON or not in the envelope shape.
	KindMalformed
	// KindCanceled means the caller's context was canceled.
	KindCanceled
	// KindInvalidRequest means the request could not be built.
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindRejected:
		return "rejected"
	case KindMalformed:
		return "malformed"
	case KindCanceled:
		return "canceled"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

var (
	// ErrTimeout matches failures of kind [KindTimeout].
	ErrTimeout = errors.New("request timeout")
	// ErrNetwork matches failures of kind [KindNetwork].
	ErrNetwork = errors.New("network failure")
	// ErrRejected matches failures of kind [KindRejected].
	ErrRejected = errors.New("request rejected")
	// ErrMalformed matches failures of kind [KindMalformed].
	ErrMalformed = errors.New("malformed response")
	// ErrCanceled matches failures of kind [KindCanceled].
	ErrCanceled = errors.New("request canceled")
	// ErrInvalidRequest matches failures of kind [KindInvalidRequest].
	ErrInvalidRequest = errors.New("invalid request")
)

// Messages produced by the client itself rather than the backend.
const (
	MessageTimeout  = "Request timeout"
	MessageCanceled = "Request canceled"
	MessageDefault  = "An error occurred during the API request"
)

// Response is the normalized result of every API call.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`

	Kind      Kind   `json:"-"`
	Status    int    `json:"-"`
	RequestID string `json:"-"`
}

// Unauthorized reports whether the backend rejected the bearer token.
func (r Response[T]) Unauthorized() bool {
	return r.Status == http.StatusUnauthorized
}

// Err returns nil on success and an [*Error] otherwise.
func (r Response[T]) Err() error {
	if r.Success {
		return nil
	}
	return &Error{Kind: r.Kind, Status: r.Status, Message: r.Message}
}

// Error is the error form of a failed [Response].
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return MessageDefault
	}
	return e.Message
}

// Is lets errors.Is match the package sentinels by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrRejected:
		return e.Kind == KindRejected
	case ErrMalformed:
		return e.Kind == KindMalformed
	case ErrCanceled:
		return e.Kind == KindCanceled
	case ErrInvalidRequest:
		return e.Kind == KindInvalidRequest
	}
	return false
}

func failure[T any](kind Kind, status int, message string) Response[T] {
	return Response[T]{Success: false, Kind: kind, Status: status, Message: message}
}
