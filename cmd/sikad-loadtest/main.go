package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sikad"
	"github.com/MrEthical07/sikad/internal/fakebackend"
	"github.com/MrEthical07/sikad/storage"
)

func main() {
	var (
		engines     = flag.Int("engines", 32, "number of signed-in clients")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (verify + logbooks)")
		freshness   = flag.Duration("freshness", 0, "verify freshness window; 0 forces a backend round-trip per verify")
		baseURL     = flag.String("url", "", "backend URL; if empty an in-process fake backend is used")
		username    = flag.String("user", fakebackend.SeedStudent, "student account to sign in")
		pw          = flag.String("password", fakebackend.SeedPassword, "password for -user")
		redisAddr   = flag.String("redis-addr", "", "redis address for session storage; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *engines <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "engines, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	url := *baseURL
	if url == "" {
		backend, err := fakebackend.New(fakebackend.Config{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "fake backend: %v\n", err)
			os.Exit(1)
		}
		ts := httptest.NewServer(backend.Router())
		defer ts.Close()
		url = ts.URL
		fmt.Printf("using in-process fake backend at %s\n", url)
	}

	client, cleanup := openRedis(*redisAddr)
	defer cleanup()

	clients := make([]*sikad.Engine, *engines)
	fmt.Printf("signing in %d clients...\n", *engines)
	startLogin := time.Now()
	for i := range clients {
		cfg := sikad.DefaultConfig()
		cfg.API.BaseURL = url
		cfg.Session.VerifyFreshness = *freshness
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true

		// One key prefix per client so sessions do not overwrite each other.
		st := storage.NewRedis(client, fmt.Sprintf("sikad:load:%d", i), time.Hour)
		e, err := sikad.New().
			WithConfig(cfg).
			WithStorage(st).
			WithLogger(log.New(io.Discard, "", 0)).
			Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build: %v\n", err)
			os.Exit(1)
		}
		defer e.Close()
		_ = e.Restore(ctx)
		if res, err := e.Login(ctx, *username, *pw); err != nil {
			fmt.Fprintf(os.Stderr, "login: %s\n", res.Message)
			os.Exit(1)
		}
		clients[i] = e
	}
	fmt.Printf("signed in in %s\n", time.Since(startLogin).Round(time.Millisecond))

	verifyStats := runPhase(clients, *ops, *concurrency, func(e *sikad.Engine) error {
		if !e.VerifySession(ctx) {
			return fmt.Errorf("session rejected")
		}
		return nil
	})
	logbookStats := runPhase(clients, *ops, *concurrency, func(e *sikad.Engine) error {
		_, err := e.Logbooks(ctx)
		return err
	})

	fmt.Println("---- results ----")
	printStats("verify", verifyStats)
	printStats("logbooks", logbookStats)

	var remote, cached uint64
	for _, e := range clients {
		snap := e.MetricsSnapshot()
		remote += snap.Counters[sikad.MetricVerifySuccess]
		cached += snap.Counters[sikad.MetricVerifyCached]
	}
	fmt.Printf("verify round-trips=%d cached=%d\n", remote, cached)
}

func openRedis(addr string) (redis.UniversalClient, func()) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }
	}
	mr, err := miniredis.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
		os.Exit(1)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}
}

// runPhase spreads ops across random clients. Workers that land on the same client
// exercise the shared in-flight verification.
func runPhase(clients []*sikad.Engine, ops, concurrency int, op func(*sikad.Engine) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				e := clients[r.Intn(len(clients))]
				t0 := time.Now()
				err := op(e)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures,
		s.total.Round(time.Millisecond), s.opsPerS,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond))
}
