// ABOUTME: Gateway wires the store, Slack client, and router behind an HTTP server
// ABOUTME: Owns server lifecycle: listener setup, run loop, graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/scribe-gateway/internal/config"
	"github.com/2389/scribe-gateway/internal/conversation"
	"github.com/2389/scribe-gateway/internal/slack"
	"github.com/2389/scribe-gateway/internal/store"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// Gateway is the top-level server tying together configuration, storage,
// the Slack client, and the conversation router.
type Gateway struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.SQLiteStore
	router     *conversation.Router
	verifier   *slack.SignatureVerifier
	httpServer *http.Server
}

// New creates a Gateway from configuration. The SQLite store is opened (and
// its schema created) here; callers own shutdown via Run's context.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	sender := slack.NewClient(cfg.Slack.BotToken, cfg.Slack.Channel)

	gw := &Gateway{
		cfg:      cfg,
		logger:   logger.With("component", "gateway"),
		store:    st,
		router:   conversation.New(st, sender, logger),
		verifier: slack.NewSignatureVerifier(cfg.Slack.SigningSecret),
	}

	gw.httpServer = &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: gw.routes(),
	}

	return gw, nil
}

// routes builds the HTTP route table.
func (g *Gateway) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/post-message", g.handlePostMessage).Methods(http.MethodPost)
	r.HandleFunc("/events", g.handleEvents).Methods(http.MethodPost)
	r.HandleFunc("/history/{author}", g.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/health", g.handleHealth).Methods(http.MethodGet)

	if g.cfg.Metrics.Enabled {
		r.Handle(g.cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}

	return r
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails. Shutdown is always attempted on the way out.
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("HTTP server listening", "addr", g.cfg.Server.HTTPAddr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("shutdown signal received")
	case serverErr = <-errCh:
		g.logger.Error("HTTP server failed", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server and closes the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs []error

	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	g.logger.Info("gateway stopped")
	return nil
}

// handleHealth handles GET /health.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
