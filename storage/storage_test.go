package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedis(rdb, "sk", ttl)
	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	return store, mr
}

func testSeal() SealConfig {
	return SealConfig{Passphrase: "correct horse", Time: 1, MemoryKB: 64, Threads: 1}
}

func TestBackendsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	plain, err := NewFile(FileOptions{Path: filepath.Join(dir, "plain.json")})
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	sealed, err := NewFile(FileOptions{Path: filepath.Join(dir, "sealed.bin"), Seal: testSeal()})
	if err != nil {
		t.Fatalf("new sealed file: %v", err)
	}
	rs, _ := newRedisStoreTest(t, 0)

	backends := []struct {
		name string
		s    Storage
	}{
		{name: "memory", s: NewMemory()},
		{name: "file", s: plain},
		{name: "sealed-file", s: sealed},
		{name: "redis", s: rs},
	}

	ctx := context.Background()
	for _, tc := range backends {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok, err := tc.s.Get(ctx, "token"); err != nil || ok {
				t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
			}
			if err := tc.s.Set(ctx, "token", "abc"); err != nil {
				t.Fatalf("set token: %v", err)
			}
			if err := tc.s.Set(ctx, "profile", `{"id":1}`); err != nil {
				t.Fatalf("set profile: %v", err)
			}
			v, ok, err := tc.s.Get(ctx, "token")
			if err != nil || !ok || v != "abc" {
				t.Fatalf("get token: v=%q ok=%v err=%v", v, ok, err)
			}
			if err := tc.s.Delete(ctx, "token", "profile", "missing"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok, err := tc.s.Get(ctx, "profile"); err != nil || ok {
				t.Fatalf("expected profile removed, ok=%v err=%v", ok, err)
			}
			if err := tc.s.Delete(ctx, "token"); err != nil {
				t.Fatalf("second delete must be idempotent: %v", err)
			}
		})
	}
}

func TestFileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	ctx := context.Background()

	first, err := NewFile(FileOptions{Path: path})
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	if err := first.Set(ctx, "absence_auth_token", "tok-1"); err != nil {
		t.Fatalf("set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	second, _ := NewFile(FileOptions{Path: path})
	v, ok, err := second.Get(ctx, "absence_auth_token")
	if err != nil || !ok || v != "tok-1" {
		t.Fatalf("reopen get: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestFileDeleteLastKeyRemovesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()
	f, _ := NewFile(FileOptions{Path: path})

	if err := f.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := f.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected document removed, stat err=%v", err)
	}
}

func TestSealedFileDoesNotLeakPlaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sealed.bin")
	ctx := context.Background()
	f, _ := NewFile(FileOptions{Path: path, Seal: testSeal()})

	if err := f.Set(ctx, "absence_auth_token", "super-secret-token"); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if bytes.Contains(raw, []byte("super-secret-token")) {
		t.Fatal("sealed document contains plaintext token")
	}

	wrong, _ := NewFile(FileOptions{Path: path, Seal: SealConfig{Passphrase: "nope", Time: 1, MemoryKB: 64, Threads: 1}})
	if _, _, err := wrong.Get(ctx, "absence_auth_token"); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed with wrong passphrase, got %v", err)
	}

	unsealed, _ := NewFile(FileOptions{Path: path})
	if _, _, err := unsealed.Get(ctx, "absence_auth_token"); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed without passphrase, got %v", err)
	}

	right, _ := NewFile(FileOptions{Path: path, Seal: testSeal()})
	v, ok, err := right.Get(ctx, "absence_auth_token")
	if err != nil || !ok || v != "super-secret-token" {
		t.Fatalf("reopen sealed: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestFileCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f, _ := NewFile(FileOptions{Path: path})
	if _, _, err := f.Get(context.Background(), "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for corrupt document, got %v", err)
	}
}

func TestRedisAppliesPrefixAndTTL(t *testing.T) {
	store, mr := newRedisStoreTest(t, time.Hour)
	ctx := context.Background()

	if err := store.Set(ctx, "absence_auth_token", "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("sk:absence_auth_token") {
		t.Fatal("expected prefixed key in redis")
	}
	if ttl := mr.TTL("sk:absence_auth_token"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func TestRedisUnavailable(t *testing.T) {
	store, mr := newRedisStoreTest(t, 0)
	mr.Close()

	_, _, err := store.Get(context.Background(), "k")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
