// Package internal wires configuration, the catalog and the transports into
// runnable entry points.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mediabridge/internal/api"
	"github.com/starford/mediabridge/internal/bridge"
	"github.com/starford/mediabridge/internal/catalog"
	"github.com/starford/mediabridge/internal/channel"
	"github.com/starford/mediabridge/internal/gallery"
	"github.com/starford/mediabridge/internal/mcpserver"
	"github.com/starford/mediabridge/internal/sse"
)

// services is the dependency graph shared by every entry point.
type services struct {
	logger     *slog.Logger
	catalog    *catalog.Catalog
	dispatcher *bridge.Dispatcher
	gallery    *gallery.Service
}

// setup opens the catalog and builds the bridge on top of it. logOut is the
// default log destination, overridden by WithLogOutput.
func setup(ctx context.Context, app *application, logOut io.Writer, catOpts ...catalog.Option) (*services, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	if app.logOut != nil {
		logOut = app.logOut
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	capability, err := cfg.Catalog.Capability()
	if err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("media_root", cfg.Catalog.Root),
		slog.String("storage", capability.String()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("channel", cfg.Channel.Name),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Catalog.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}

	cat, err := catalog.Open(cfg.SQLite.Path, cfg.Catalog.Root,
		append([]catalog.Option{catalog.WithCapability(capability)}, catOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	if err := catalog.Sync(ctx, cat, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	b := bridge.New(cat, logger)
	return &services{
		logger:     logger,
		catalog:    cat,
		dispatcher: bridge.NewDispatcher(b, logger),
		gallery:    gallery.NewService(cat),
	}, nil
}

// Run serves the HTTP API, the SSE feed and the catalog watcher until a
// shutdown signal arrives or ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, err := setup(ctx, app, os.Stdout, catalog.WithListener(func(kind string, e catalog.Entry) {
		broker.PublishMediaEvent(kind, string(e.ID), e.Path)
	}))
	if err != nil {
		return err
	}
	defer svc.catalog.Close()

	cfg := app.config
	logger := svc.logger

	apiRouter := api.NewRouter(svc.dispatcher, svc.gallery, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.catalog.CountPending(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := catalog.Watch(gCtx, svc.catalog, logger); err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Unblocks the watcher when shutdown came from a signal.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunChannel answers method calls framed on stdin and writes replies to
// stdout. Logs go to stderr so stdout carries frames only.
func RunChannel(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := setup(ctx, app, os.Stderr)
	if err != nil {
		return err
	}
	defer svc.catalog.Close()

	srv := channel.NewServer(app.config.Channel.Name, svc.dispatcher, svc.logger)
	if err := srv.Serve(ctx, app.stdin, app.stdout); err != nil {
		svc.logger.Error("channel stopped", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// RunMCP serves the bridge as MCP tools on stdio. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := setup(ctx, app, os.Stderr)
	if err != nil {
		return err
	}
	defer svc.catalog.Close()

	srv := mcpserver.New(svc.dispatcher, svc.gallery, svc.logger)
	if err := srv.Serve(ctx, app.stdin, app.stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
