package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"ipsguard/config"
	"ipsguard/internal/api"
	"ipsguard/internal/bus"
	"ipsguard/internal/bus/memory"
	busredis "ipsguard/internal/bus/redis"
	"ipsguard/internal/logger"
	"ipsguard/internal/metrics"
	"ipsguard/internal/pipeline"
	"ipsguard/internal/rules"
	"ipsguard/internal/session"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("ipsguard.yml"); err == nil {
		return "ipsguard.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), "ipsguard.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "ipsguard.yml"
}

func applyDefaults(cfg *config.Config) {
	g := &cfg.IPSGuard

	if g.Bus.Mode == "" {
		g.Bus.Mode = "redis"
	}
	if g.Bus.Redis.Addr == "" {
		g.Bus.Redis.Addr = "127.0.0.1:6379"
	}
	if g.Bus.Redis.DialTimeout <= 0 {
		g.Bus.Redis.DialTimeout = 5 * time.Second
	}
	if g.Bus.OutboxSize <= 0 {
		g.Bus.OutboxSize = 128
	}

	if g.Session.SweepInterval <= 0 {
		g.Session.SweepInterval = time.Second
	}
	if g.Session.StaleAfter <= 0 {
		g.Session.StaleAfter = 10 * time.Second
	}
	if g.Session.QueueSize <= 0 {
		g.Session.QueueSize = 256
	}

	if g.API.Addr == "" {
		g.API.Addr = "127.0.0.1:8080"
	}
	if g.API.TimeZone == "" {
		g.API.TimeZone = api.DefaultTimeZone
	}
	if g.Metrics.Addr == "" {
		g.Metrics.Addr = "127.0.0.1:9108"
	}

	if g.Logging.Level == "" {
		g.Logging.Level = "info"
	}
}

func loadConfig(configArg string) (*config.Config, string) {
	configPath := findConfigFile(configArg)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || configArg != "" {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Printf("Warning: no config file found, using defaults")
		cfg = &config.Config{}
		configPath = "(defaults)"
	}
	applyDefaults(cfg)
	return cfg, configPath
}

func openBus(cfg config.BusConfig) (bus.Bus, error) {
	switch cfg.Mode {
	case "redis":
		return busredis.NewBus(busredis.Config{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			Prefix:      cfg.Redis.Prefix,
			DialTimeout: cfg.Redis.DialTimeout,
		})
	case "memory":
		return memory.New(0), nil
	default:
		return nil, fmt.Errorf("unknown bus mode: %s", cfg.Mode)
	}
}

// loadRules returns the Sigma suppression engine, or a NoopEngine when rules
// are disabled or no path is set.
func loadRules(cfg config.RulesConfig) (rules.Engine, error) {
	if !cfg.Enabled {
		return &rules.NoopEngine{}, nil
	}
	if strings.TrimSpace(cfg.Path) == "" {
		logger.Warnf("Rules enabled but rules.path is empty; suppression rules disabled")
		return &rules.NoopEngine{}, nil
	}

	engine, stats, err := rules.NewSigmaEngine(cfg.Path)
	if err != nil {
		return nil, err
	}
	logger.Infof("Sigma suppression rules loaded: loaded=%d skipped_product=%d skipped_complex=%d skipped_invalid=%d files=%d",
		stats.Loaded,
		stats.SkippedProduct,
		stats.SkippedComplex,
		stats.SkippedInvalid,
		stats.TotalFiles,
	)
	return engine, nil
}

func runService(args []string) {
	configArg := ""
	if len(args) > 0 {
		configArg = args[0]
	}
	cfg, configPath := loadConfig(configArg)
	g := cfg.IPSGuard

	if err := logger.Init(logger.Config{
		Enabled: g.Logging.Enabled,
		Level:   g.Logging.Level,
		File:    g.Logging.File,
		Console: g.Logging.Console,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Infof("ipsguard starting")
	logger.Infof("Config loaded from: %s", configPath)

	engine, err := loadRules(g.Rules)
	if err != nil {
		logger.Errorf("Failed to load Sigma rules from %s: %v", g.Rules.Path, err)
		log.Fatalf("Failed to load Sigma rules: %v", err)
	}

	eventBus, err := openBus(g.Bus)
	if err != nil {
		logger.Errorf("Failed to open event bus: %v", err)
		log.Fatalf("Failed to open event bus: %v", err)
	}
	logger.Infof("Bus mode: %s", g.Bus.Mode)

	outbox := pipeline.NewOutbox(g.Bus.OutboxSize)
	sess := session.New(session.Config{
		SweepInterval: g.Session.SweepInterval,
		StaleAfter:    g.Session.StaleAfter,
		Retention:     g.Session.PassiveRetention,
		QueueSize:     g.Session.QueueSize,
	}, engine, outbox)
	pipe := pipeline.NewBusPipeline(eventBus, sess, outbox)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return ignoreCanceled(sess.Run(gctx)) })
	grp.Go(func() error { return ignoreCanceled(pipe.Run(gctx)) })

	var servers []interface{ Shutdown(context.Context) error }
	if g.API.Enabled {
		srv, err := api.NewServer(api.Config{Addr: g.API.Addr, TimeZone: g.API.TimeZone}, sess)
		if err != nil {
			log.Fatalf("Failed to create API server: %v", err)
		}
		servers = append(servers, srv)
		grp.Go(srv.Start)
	}
	if g.Metrics.Enabled {
		srv := metrics.NewServer(g.Metrics.Addr)
		servers = append(servers, srv)
		grp.Go(srv.Start)
	}

	grp.Go(func() error {
		<-gctx.Done()
		logger.Infof("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Errorf("Server shutdown: %v", err)
			}
		}
		return nil
	})

	if err := grp.Wait(); err != nil {
		logger.Errorf("ipsguard stopped with error: %v", err)
	}
	if err := pipe.Close(); err != nil {
		logger.Errorf("Error closing pipeline: %v", err)
	}
	logger.Infof("ipsguard stopped")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runPublish sends one payload on a bus channel, standing in for a detector
// or the dashboard shell.
func runPublish(args []string) int {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	configArg := fs.String("config", "", "Config file path")
	channel := fs.String("channel", bus.ChannelAlert, "Bus channel (alert|block|unblock|csv|avoidBlocking)")
	payload := fs.String("payload", "", "Message payload")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*payload) == "" {
		fmt.Fprintln(os.Stderr, "payload is required")
		return 2
	}

	cfg, _ := loadConfig(*configArg)
	if cfg.IPSGuard.Bus.Mode != "redis" {
		fmt.Fprintln(os.Stderr, "publish requires bus.mode=redis")
		return 1
	}
	b, err := openBus(cfg.IPSGuard.Bus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open bus: %v\n", err)
		return 1
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Publish(ctx, *channel, []byte(*payload)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to publish: %v\n", err)
		return 1
	}
	fmt.Printf("published channel=%s bytes=%d\n", *channel, len(*payload))
	return 0
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "run":
			runService(os.Args[2:])
			return
		case "publish":
			os.Exit(runPublish(os.Args[2:]))
		default:
			// First arg is a config path.
			runService(os.Args[1:])
			return
		}
	}

	runService(nil)
}
