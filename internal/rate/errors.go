package rate

import "errors"

var (
	// ErrRateLimited is returned when a key has no attempts left in its window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis command failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
