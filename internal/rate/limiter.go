package rate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config tunes failed-attempt throttling.
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
	Prefix      string
}

// Limiter counts failed attempts per key in fixed windows. Counters live in Redis
// when a client is given and in process memory otherwise.
type Limiter struct {
	config Config
	redis  redis.UniversalClient

	mu    sync.Mutex
	local map[string]window
	now   func() time.Time
}

type window struct {
	count   int64
	expires time.Time
}

// New creates a [Limiter]. client may be nil.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &Limiter{
		config: cfg,
		redis:  client,
		local:  make(map[string]window),
		now:    time.Now,
	}
}

// Enabled reports whether throttling is configured.
func (l *Limiter) Enabled() bool {
	return l != nil && l.config.MaxAttempts > 0 && l.config.Cooldown > 0
}

// Check returns [ErrRateLimited] once key has used up its attempts.
func (l *Limiter) Check(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	count, err := l.get(ctx, l.key(key))
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Fail records a failed attempt for key.
func (l *Limiter) Fail(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	_, err := l.incrementWithTTL(ctx, l.key(key), l.config.Cooldown)
	return err
}

// Reset clears key after a successful attempt.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	k := l.key(key)
	if l.redis == nil {
		l.mu.Lock()
		delete(l.local, k)
		l.mu.Unlock()
		return nil
	}
	if err := l.redis.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(k string) string {
	return l.config.Prefix + ":" + k
}

func (l *Limiter) get(ctx context.Context, key string) (int64, error) {
	if l.redis == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		w, ok := l.local[key]
		if !ok || !l.now().Before(w.expires) {
			return 0, nil
		}
		return w.count, nil
	}
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if l.redis == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		now := l.now()
		w := l.local[key]
		if !now.Before(w.expires) {
			w = window{expires: now.Add(ttl)}
		}
		w.count++
		l.local[key] = w
		return w.count, nil
	}

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// Fixed window: the TTL is set only on the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
