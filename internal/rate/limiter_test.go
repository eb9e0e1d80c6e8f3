package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLimiterRedisWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := New(client, Config{MaxAttempts: 2, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Check(ctx, "budi"); err != nil {
			t.Fatalf("attempt %d: unexpected %v", i, err)
		}
		if err := l.Fail(ctx, "budi"); err != nil {
			t.Fatalf("fail: %v", err)
		}
	}
	if err := l.Check(ctx, "budi"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if ttl := mr.TTL("rl:budi"); ttl <= 0 {
		t.Fatalf("expected window ttl, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.Check(ctx, "budi"); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestLimiterLocalWindowAndReset(t *testing.T) {
	l := New(nil, Config{MaxAttempts: 1, Cooldown: time.Minute})
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_ = l.Fail(ctx, "siti")
	if err := l.Check(ctx, "siti"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Reset(ctx, "siti"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.Check(ctx, "siti"); err != nil {
		t.Fatalf("expected reset counter, got %v", err)
	}

	_ = l.Fail(ctx, "siti")
	now = now.Add(2 * time.Minute)
	if err := l.Check(ctx, "siti"); err != nil {
		t.Fatalf("expected expired window, got %v", err)
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := New(nil, Config{})
	for i := 0; i < 10; i++ {
		_ = l.Fail(context.Background(), "x")
	}
	if err := l.Check(context.Background(), "x"); err != nil {
		t.Fatalf("disabled limiter must not block: %v", err)
	}
}

func TestLimiterRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	l := New(client, Config{MaxAttempts: 1, Cooldown: time.Minute})
	mr.Close()

	if err := l.Fail(context.Background(), "x"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
