package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunobiangulo/slidecast"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// SLIDECAST_* environment variables override the file.
	cfg, err := slidecast.LoadConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	apiKey := os.Getenv("SLIDECAST_API_KEY")
	corsOrigins := os.Getenv("SLIDECAST_CORS_ORIGINS")

	engine, err := slidecast.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:         *addr,
		Handler:      newServer(engine, apiKey, corsOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// newServer wires routes and the middleware chain:
// recovery -> cors -> auth -> logging -> mux
func newServer(engine slidecast.Engine, apiKey, corsOrigins string) http.Handler {
	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /parse", h.handleParse)
	mux.HandleFunc("POST /ingest", h.handleIngest)
	mux.HandleFunc("POST /update", h.handleUpdate)
	mux.HandleFunc("POST /update-all", h.handleUpdateAll)
	mux.HandleFunc("GET /decks", h.handleListDecks)
	mux.HandleFunc("GET /decks/{id}", h.handleGetDeck)
	mux.HandleFunc("GET /decks/{id}/export", h.handleExport)
	mux.HandleFunc("DELETE /decks/{id}", h.handleDeleteDeck)
	mux.HandleFunc("GET /search", h.handleSearch)
	mux.HandleFunc("GET /health", h.handleHealth)

	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)
	return handler
}
