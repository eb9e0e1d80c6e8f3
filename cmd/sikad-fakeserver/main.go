// Command sikad-fakeserver serves the in-memory SIKAD backend used by the tests, for
// trying the client and CLI without the real service.
//
//	go run ./cmd/sikad-fakeserver -addr :8080
//	SIKAD_API_URL=http://localhost:8080/api go run ./cmd/sikad login budi
//
// Seeded accounts share the password Rahasia1!.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sikad/internal/fakebackend"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "listen address")
		redisAddr   = flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "redis for login throttling; empty starts miniredis")
		maxAttempts = flag.Int("max-login-attempts", 5, "failed logins before cooldown; 0 disables throttling")
		cooldown    = flag.Duration("login-cooldown", time.Minute, "login cooldown window")
		tokenTTL    = flag.Duration("token-ttl", 24*time.Hour, "issued token lifetime")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			log.Fatalf("miniredis start failed: %v", err)
		}
		defer mr.Close()
		*redisAddr = mr.Addr()
		log.Printf("using miniredis at %s", mr.Addr())
	}
	redisClient := redis.NewClient(&redis.Options{Addr: *redisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		log.Fatalf("redis ping failed: %v", err)
	}
	cancel()
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("redis close error: %v", err)
		}
	}()

	backend, err := fakebackend.New(fakebackend.Config{
		TokenTTL:         *tokenTTL,
		Redis:            redisClient,
		MaxLoginAttempts: *maxAttempts,
		LoginCooldown:    *cooldown,
	})
	if err != nil {
		log.Fatalf("backend init failed: %v", err)
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/api", backend.Router())

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("sikad fake backend listening on %s (base URL http://localhost%s/api)", *addr, *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
}
