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

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/deck"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/nav"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	localDeck := cfg.Deck.Path != ""

	if app.mcp {
		if !localDeck {
			return fmt.Errorf("mcp mode requires a local deck (deck.path)")
		}
		return runMCP(cfg)
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("deck_path", cfg.Deck.Path),
		slog.String("deck_base_url", cfg.Deck.BaseURL),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var (
		store  storage.Provider
		db     *index.DB
		broker *sse.Broker
	)

	if localDeck {
		var err error
		store, err = storage.NewFS(cfg.Deck.Path)
		if err != nil {
			return fmt.Errorf("init deck storage: %w", err)
		}

		db, err = index.Open(cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("init index: %w", err)
		}
		defer db.Close()

		// Run initial sync.
		if err := index.Sync(db, store, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	// SSE broker.
	broker = sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Repository client. A local deck is served by this process under
	// /cards/, so the client points back at our own listen address; an
	// external deck is fetched from its base URL directly.
	limiter := deck.NewLimiter(cfg.Limits.MaxRequests, time.Duration(cfg.Limits.WindowSeconds)*time.Second)
	baseURL := cfg.Deck.BaseURL
	if localDeck {
		baseURL = fmt.Sprintf("http://127.0.0.1:%d/cards/", cfg.App.HTTP.Port)
	}
	client := deck.NewClient(baseURL, baseURL+cfg.Deck.IndexFileName(), limiter, logger)

	// Load the card index. With a local deck we read the index file off
	// disk; the limiter is reserved for card fetches. An external deck is
	// asked over HTTP, which consumes one limiter slot like any fetch.
	if localDeck {
		raw, err := store.Read(cfg.Deck.IndexFileName())
		if err != nil {
			return fmt.Errorf("read deck index: %w", err)
		}
		set, err := deck.ParseIndex(string(raw), logger)
		if err != nil {
			return fmt.Errorf("parse deck index: %w", err)
		}
		client.UseIndex(set)
	} else {
		if _, err := client.FetchIndex(ctx); err != nil {
			return fmt.Errorf("fetch deck index: %w", err)
		}
	}
	if !client.Known().Known(cfg.Deck.DefaultCard) {
		return fmt.Errorf("default card %q is not in the deck index", cfg.Deck.DefaultCard)
	}
	logger.Info("Deck index loaded", slog.Int("cards", client.Known().Len()))

	// View-stack sessions.
	sessions := api.NewSessionManager(client, nav.Config{
		DefaultCard: cfg.Deck.DefaultCard,
		MaxPanels:   cfg.Limits.MaxPanels,
	}, cfg.Limits.MaxSessions)

	// Build API router. The index is nil for external decks.
	var idx index.CardIndex
	if db != nil {
		idx = db
	}
	apiRouter := api.NewRouter(client, idx, sessions, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Serve the raw deck when hosting it locally.
	if localDeck {
		fileServer := http.StripPrefix("/cards/", http.FileServer(http.Dir(cfg.Deck.Path)))
		r.Get("/cards/*", fileServer.ServeHTTP)
	}

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback (local deck only).
	if localDeck {
		g.Go(func() error {
			index.Watch(gCtx, db, store, cfg.Deck.Path, logger, func(kind, id string) {
				broker.PublishCardEvent(kind, id)
			})
			return nil
		})
	}

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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// runMCP serves the deck tools over stdio. Logs go to stderr so they do
// not corrupt the protocol stream on stdout.
func runMCP(cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := storage.NewFS(cfg.Deck.Path)
	if err != nil {
		return fmt.Errorf("init deck storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio", slog.String("deck_path", cfg.Deck.Path))
	return mcpserver.New(store, db).ServeStdio()
}
