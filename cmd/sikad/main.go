// Command sikad is a terminal client for the SIKAD attendance and logbook backend.
//
//	sikad [global flags] <command> [command flags] [args]
//
// The backend URL comes from -url, SIKAD_API_URL (also read from .env) or the
// api.base_url key of the -config YAML file. The session is kept in a file under
// the user config directory unless another storage backend is chosen.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/alicebob/miniredis/v2"

	"github.com/MrEthical07/sikad"
	"github.com/MrEthical07/sikad/guard"
	promexport "github.com/MrEthical07/sikad/metrics/export/prometheus"
)

type globalFlags struct {
	configPath string
	baseURL    string
	storage    string
	statePath  string
	verbose    bool
	metrics    bool
	audit      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var g globalFlags
	fs := flag.NewFlagSet("sikad", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.configPath, "config", "", "YAML config file")
	fs.StringVar(&g.baseURL, "url", "", "backend base URL (overrides config and env)")
	fs.StringVar(&g.storage, "storage", "", "session storage: file, memory, redis or miniredis")
	fs.StringVar(&g.statePath, "state", "", "session file for the file backend")
	fs.BoolVar(&g.verbose, "v", false, "log backend diagnostics to stderr")
	fs.BoolVar(&g.metrics, "metrics", false, "print Prometheus metrics to stderr after the command")
	fs.BoolVar(&g.audit, "audit", false, "write session audit events to stderr as JSON lines")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(fs)
		return 2
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "sikad: unknown command %q\n", name)
		usage(fs)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cleanup, err := loadConfig(g)
	if err != nil {
		fmt.Fprintf(stderr, "sikad: %v\n", err)
		return 1
	}
	defer cleanup()

	logger := log.New(io.Discard, "", 0)
	if g.verbose {
		logger = log.New(stderr, "", log.LstdFlags)
	}
	b := sikad.New().WithConfig(cfg).WithLogger(logger)
	if g.audit {
		b.WithAuditSink(sikad.NewJSONWriterSink(stderr))
	}
	engine, err := b.Build()
	if err != nil {
		fmt.Fprintf(stderr, "sikad: %v\n", err)
		return 1
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Printf("sikad: close: %v", err)
		}
	}()

	if err := engine.Restore(ctx); err != nil && !errors.Is(err, sikad.ErrSessionRejected) {
		logger.Printf("sikad: restore: %v", err)
	}

	if route := cmd.route(engine.Routes()); route != "" {
		var target string
		gd := engine.NewGuard(guard.NavigatorFunc(func(to string) { target = to }))
		if d := gd.OnRouteChange(ctx, route); d.Action == guard.Redirect {
			if target == engine.Routes().Login {
				fmt.Fprintln(stderr, sikad.Message(sikad.ErrNotAuthenticated))
			} else {
				p := engine.Profile()
				fmt.Fprintf(stderr, "Sudah login sebagai %s (%s)\n", p.Username, p.Role)
			}
			return 1
		}
	}

	c := &cli{engine: engine, out: stdout, stdin: os.Stdin}
	code := 0
	if err := cmd.run(ctx, c, fs.Args()[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, sikad.Message(err))
		}
		code = 1
	}

	if g.metrics {
		fmt.Fprint(stderr, promexport.NewPrometheusExporter(engine).Render())
	}
	return code
}

// loadConfig layers defaults, the YAML file, SIKAD_* variables and flags, in that order.
func loadConfig(g globalFlags) (sikad.Config, func(), error) {
	cleanup := func() {}
	cfg := sikad.DefaultConfig()
	cfg.Storage.Backend = sikad.StorageFile

	var err error
	if g.configPath != "" {
		if cfg, err = sikad.LoadConfigFile(g.configPath, cfg); err != nil {
			return cfg, cleanup, err
		}
	}
	if cfg, err = sikad.LoadConfigFromEnv(cfg); err != nil {
		return cfg, cleanup, err
	}
	if g.baseURL != "" {
		cfg.API.BaseURL = g.baseURL
	}
	if g.statePath != "" {
		cfg.Storage.FilePath = g.statePath
	}
	cfg.Metrics.Enabled = cfg.Metrics.Enabled || g.metrics
	cfg.Metrics.EnableLatencyHistograms = cfg.Metrics.EnableLatencyHistograms || g.metrics
	cfg.Audit.Enabled = cfg.Audit.Enabled || g.audit

	switch g.storage {
	case "":
	case "miniredis":
		// Session lives only as long as the process; handy for trying the redis path.
		mr, err := miniredis.Run()
		if err != nil {
			return cfg, cleanup, err
		}
		cleanup = mr.Close
		cfg.Storage.Backend = sikad.StorageRedis
		cfg.Storage.RedisAddr = mr.Addr()
	default:
		cfg.Storage.Backend = sikad.StorageBackend(g.storage)
	}

	if cfg.Storage.Backend == sikad.StorageFile && cfg.Storage.FilePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return cfg, cleanup, fmt.Errorf("locate config dir: %w", err)
		}
		cfg.Storage.FilePath = filepath.Join(dir, "sikad", "session.json")
	}
	return cfg, cleanup, nil
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "usage: sikad [flags] <command> [command flags] [args]")
	fmt.Fprintln(out, "\nflags:")
	fs.PrintDefaults()
	fmt.Fprintln(out, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-18s %s\n", name, commands[name].summary)
	}
}
