// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notewatch/internal/api"
	"github.com/starford/notewatch/internal/format"
	"github.com/starford/notewatch/internal/mcpserver"
	"github.com/starford/notewatch/internal/notewatch"
	"github.com/starford/notewatch/internal/notify"
	"github.com/starford/notewatch/internal/settings"
	"github.com/starford/notewatch/internal/source"
	"github.com/starford/notewatch/internal/sse"
	"github.com/starford/notewatch/internal/vault"
)

// runtime is the wired object graph shared by the HTTP and MCP modes.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	store   settings.Store
	broker  *sse.Broker
	ctl     *notewatch.Controller
	watcher *source.Watcher
}

func (rt *runtime) close() {
	rt.broker.Close()
	if err := rt.store.Close(); err != nil {
		rt.logger.Warn("settings store close failed", slog.String("error", err.Error()))
	}
}

func setup(ctx context.Context, app *application, logOut *os.File) (*runtime, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("settings_backend", cfg.Settings.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	fs, err := vault.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}

	store, err := openSettingsStore(ctx, cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("init settings store: %w", err)
	}

	loc, err := cfg.Log.Location()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("log time zone: %w", err)
	}
	formatter := format.New(cfg.Log.TimeFormat)
	formatter.Location = loc

	broker := sse.NewBroker(cfg.Notify.SSEBuffer)

	notifiers := notify.Multi{notify.NewConsole(logger), broker}
	if cfg.Notify.Terminal {
		notifiers = append(notifiers, notify.NewTerminal(os.Stderr))
	}
	notifiers = append(notifiers, app.notifiers...)

	bus := source.NewBus()
	ctl := notewatch.New(notewatch.Deps{
		Store:     store,
		Vault:     fs,
		Source:    bus,
		Formatter: formatter,
		Notifier:  notifiers,
		Logger:    logger,
	})

	// Events caused by the log writer are dropped before anyone sees them.
	// Past that, the broker sees every event and the bus only dispatches to
	// the handlers the settings enable.
	sink := source.Filter{Next: source.Tee{bus, broker}, Drop: ctl.Owns}
	watcher := source.NewWatcher(fs.Root(), sink, logger, cfg.Watch.RenameWindow)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		broker:  broker,
		ctl:     ctl,
		watcher: watcher,
	}, nil
}

// openSettingsStore returns the Store selected by cfg.Backend.
func openSettingsStore(ctx context.Context, cfg SettingsConfig) (settings.Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return settings.NewMemory(), nil
	case BackendFile:
		return settings.NewFileStore(cfg.File), nil
	case BackendSQLite:
		return settings.OpenSQLite(cfg.SQLitePath)
	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		return settings.NewRedisStore(rdb, cfg.Redis.Key), nil
	}
	return nil, fmt.Errorf("unknown settings backend %q", cfg.Backend)
}

// Run starts the watcher and the HTTP settings API with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	rt, err := setup(ctx, app, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg, logger := rt.cfg, rt.logger
	rt.ctl.Start(ctx)

	apiRouter := api.NewRouter(rt.ctl, cfg.Auth.AuthEnabled(), cfg.Auth.Token, rt.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","listening":%d}`, len(rt.ctl.Listening()))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := rt.watcher.Run(gCtx); err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		rt.ctl.Stop(context.Background())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Open SSE streams would hold Shutdown until the timeout.
		rt.broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the signal handler has finished, so
// the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP starts the watcher and serves the MCP tools over stdio. Logs go
// to stderr because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	rt, err := setup(ctx, app, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.ctl.Start(ctx)
	defer rt.ctl.Stop(context.Background())

	srv := mcpserver.New(rt.ctl, app.version)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.watcher.Run(gCtx)
	})
	g.Go(func() error {
		rt.logger.Info("Serving MCP over stdio")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		rt.logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
