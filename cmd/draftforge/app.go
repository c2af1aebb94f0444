package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/draftforge/draftforge/analyze"
	"github.com/draftforge/draftforge/api"
	"github.com/draftforge/draftforge/config"
	"github.com/draftforge/draftforge/generate"
	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/metrics"
	"github.com/draftforge/draftforge/model"
	"github.com/draftforge/draftforge/prompt"
	"github.com/draftforge/draftforge/storage"
	"github.com/draftforge/draftforge/validate"
)

// App wires together all components.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// NATS
	embeddedServer *server.Server
	natsConn       *nats.Conn
	js             jetstream.JetStream

	// Storage
	store *storage.Store

	// Models
	registry *model.Registry
	watcher  *model.Watcher

	metrics    *metrics.Metrics
	httpServer *http.Server
}

// NewApp creates an application instance from config.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Start initializes all components and begins serving HTTP.
func (a *App) Start(ctx context.Context) error {
	if err := a.startNATS(ctx); err != nil {
		return fmt.Errorf("start NATS: %w", err)
	}

	store, err := storage.NewStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	a.store = store

	if err := a.startModelRegistry(ctx); err != nil {
		return fmt.Errorf("initialize model registry: %w", err)
	}

	a.metrics = metrics.New()

	client := llm.NewClient(a.registry,
		llm.WithLogger(a.logger),
		llm.WithRecorder(a.metrics),
		llm.WithHTTPClient(&http.Client{Timeout: a.cfg.Models.Timeout}),
	)

	gen := a.cfg.Generation
	composer := prompt.NewComposer(prompt.Limits{
		ContextCharLimit:     gen.ContextCharLimit,
		ValidationCharBudget: gen.ValidationCharBudget,
		MaxRules:             gen.MaxRules,
		RuleDescriptionLimit: gen.RuleDescriptionLimit,
	})

	orchestrator := generate.NewOrchestrator(client, composer, a.store, generate.Config{
		Temperature:     gen.DraftTemperature,
		MaxOutputTokens: gen.MaxOutputTokens,
	}, a.logger)

	engine := validate.NewEngine(client, composer, a.store, validate.Config{
		Temperature: gen.ValidateTemperature,
		MaxTokens:   gen.MaxOutputTokens,
	}, a.logger)

	analyzer := analyze.NewAnalyzer(client, a.logger)

	mux := http.NewServeMux()
	api.NewHandler(a.store, orchestrator, engine, analyzer, a.metrics, a.logger).Register(mux)

	a.httpServer = &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("HTTP server listening", "addr", a.cfg.Server.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server failed", "error", err)
		}
	}()

	return nil
}

func (a *App) startNATS(ctx context.Context) error {
	if a.cfg.NATS.URL != "" && !a.cfg.NATS.Embedded {
		a.logger.Info("Connecting to NATS", "url", a.cfg.NATS.URL)
		conn, err := nats.Connect(a.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.natsConn = conn
	} else {
		a.logger.Info("Starting embedded NATS server")
		opts := &server.Options{
			Port:      -1, // Random available port
			JetStream: true,
			StoreDir:  a.cfg.NATS.StoreDir,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}

		go ns.Start()

		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}

		a.embeddedServer = ns

		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
		a.natsConn = conn
	}

	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js

	return nil
}

func (a *App) startModelRegistry(ctx context.Context) error {
	path := a.cfg.Models.RegistryPath
	if path == "" {
		a.registry = model.NewDefaultRegistry()
		a.logger.Info("Using built-in model registry")
		return nil
	}

	registry, err := model.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("load model registry %s: %w", path, err)
	}
	a.registry = registry
	a.logger.Info("Loaded model registry",
		"path", path,
		"endpoints", len(registry.ListEndpoints()))

	if !a.cfg.Models.WatchRegistry {
		return nil
	}

	watcher, err := model.NewWatcher(model.WatcherConfig{
		Path:   path,
		Logger: a.logger,
	}, a.registry)
	if err != nil {
		return fmt.Errorf("create registry watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start registry watcher: %w", err)
	}
	a.watcher = watcher

	return nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown(timeout time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("HTTP server shutdown", "error", err)
		}
	}

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("Registry watcher stop", "error", err)
		}
	}

	if a.natsConn != nil {
		a.natsConn.Drain()
		a.natsConn.Close()
	}

	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}

	a.logger.Info("Shutdown complete")
}

func run(configPath, addr, natsURL, logLevel string) error {
	bootLogger := newLogger("info", "text")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.NewLoader(bootLogger).Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags override config.
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if natsURL != "" {
		cfg.NATS.URL = natsURL
		cfg.NATS.Embedded = false
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	logger.Info("DraftForge starting", "version", Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := NewApp(cfg, logger)
	if err := app.Start(ctx); err != nil {
		return err
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	<-signalCtx.Done()
	logger.Info("Received shutdown signal")

	app.Shutdown(cfg.Server.ShutdownTimeout)
	return nil
}

func newLogger(level, format string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
