package storage

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the underlying backend cannot be read or written.
var ErrUnavailable = errors.New("storage unavailable")

// ErrSealed is returned when a sealed file cannot be opened with the configured passphrase.
var ErrSealed = errors.New("storage sealed with a different passphrase")

// Storage is a string-keyed record store. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Close releases backend resources.
	Close() error
}
