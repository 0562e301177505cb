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
	"golang.org/x/sync/errgroup"

	"github.com/starford/prompthub/internal/api"
	"github.com/starford/prompthub/internal/hubservice"
	"github.com/starford/prompthub/internal/kv"
	"github.com/starford/prompthub/internal/mcpserver"
	"github.com/starford/prompthub/internal/media"
	"github.com/starford/prompthub/internal/modelstore"
	"github.com/starford/prompthub/internal/prefs"
	"github.com/starford/prompthub/internal/promptstore"
	"github.com/starford/prompthub/internal/sse"
	"github.com/starford/prompthub/internal/storage"
)

// core holds the components shared by the HTTP and MCP entry points.
type core struct {
	cfg    *Config
	logger *slog.Logger
	kv     kv.Store
	svc    *hubservice.Service
}

func (c *core) Close() {
	if err := c.kv.Close(); err != nil {
		c.logger.Warn("kv close failed", slog.String("error", err.Error()))
	}
}

// setup applies options, configures the default logger and loads every store.
// pub receives change notifications; nil disables them.
func setup(ctx context.Context, opts []Option, pub func(*Config) hubservice.Publisher) (*core, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_path", cfg.Data.Path),
		slog.String("kv_driver", cfg.KV.Driver),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure data and media directories exist.
	if err := os.MkdirAll(cfg.Data.MediaPath(), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dataFS, err := storage.NewFS(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	mediaFS, err := storage.NewFS(cfg.Data.MediaPath())
	if err != nil {
		return nil, fmt.Errorf("init media storage: %w", err)
	}

	store, err := openKV(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init kv: %w", err)
	}

	ms := modelstore.New(dataFS, store, logger)
	ms.Load(ctx)

	ps := promptstore.New(dataFS, logger)
	ps.Load()

	var p hubservice.Publisher
	if pub != nil {
		p = pub(cfg)
	}

	svc := hubservice.New(ms, ps, media.NewManager(mediaFS, logger), prefs.New(store, logger), logger, p)

	logger.Info("Catalogs loaded",
		slog.Int("models", len(svc.Models())),
		slog.Int("prompts", len(svc.Prompts())))

	return &core{cfg: cfg, logger: logger, kv: store, svc: svc}, nil
}

func openKV(ctx context.Context, cfg *Config) (kv.Store, error) {
	switch cfg.KV.Driver {
	case KVDriverRedis:
		return kv.OpenRedis(ctx, kv.RedisOptions{
			Addr:     cfg.KV.Redis.Addr,
			Password: cfg.KV.Redis.Password,
			DB:       cfg.KV.Redis.DB,
			Prefix:   cfg.KV.Redis.Prefix,
		})
	default:
		return kv.OpenSQLite(cfg.KV.ResolveSQLitePath(cfg.Data.Path))
	}
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	var broker *sse.Broker
	c, err := setup(ctx, opts, func(cfg *Config) hubservice.Publisher {
		broker = sse.NewBroker(cfg.SSE.Throttle)
		return broker
	})
	if err != nil {
		return err
	}
	defer c.Close()
	defer broker.Close()

	cfg, logger, svc := c.cfg, c.logger, c.svc

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", healthOK)
	r.Get("/health/ready", healthOK)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the media root so files changed outside the app reach clients.
	g.Go(func() error {
		if err := media.Watch(gCtx, cfg.Data.MediaPath(), logger, svc.HandleMediaEvent); err != nil {
			logger.Warn("media watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
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

// errShutdown cancels the group once the server has been shut down so the
// watcher exits too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the catalog over MCP on stdin/stdout until the client
// disconnects. Logs go to stderr unless WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)

	c, err := setup(ctx, opts, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	c.logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(c.svc, c.logger).ServeStdio(); err != nil {
		return fmt.Errorf("mcp serve: %w", err)
	}
	return nil
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
