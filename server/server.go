// ABOUTME: Process wiring for the HTTP server: router assembly, backend selection, and graceful serve.
// ABOUTME: Mounts the editor session API and the workflow CRUD API behind shared middleware.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/2389-research/nodewire/editor"
	"github.com/2389-research/nodewire/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// shutdownTimeout bounds how long in-flight requests get after a stop signal.
const shutdownTimeout = 10 * time.Second

// cleanupInterval is how often idle editor sessions are swept.
const cleanupInterval = time.Minute

// NewHandler builds the root router. authToken may be empty to disable auth.
func NewHandler(repo store.Repository, sessions *editor.Store, authToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	if authToken != "" {
		r.Use(AuthMiddleware(authToken))
	}

	r.Get("/health", handleHealth)

	api := &workflowAPI{repo: repo}
	r.Route("/api/workflows", api.routes)

	editor.NewServer(sessions, editor.WithRepository(repo)).Register(r)

	return r
}

// Run opens the configured backend and serves until ctx is cancelled, then
// shuts down gracefully.
func Run(ctx context.Context, cfg *Config) error {
	repo, err := store.Open(ctx, cfg.Backend, cfg.Home, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn().Err(err).Msg("close repository")
		}
	}()

	sessions := editor.NewStore(cfg.MaxSessions, cfg.SessionTTL)
	stopCleanup := sessions.StartCleanup(cleanupInterval)
	defer stopCleanup()

	ln, err := net.Listen("tcp", cfg.Bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Bind, err)
	}
	return serve(ctx, ln, NewHandler(repo, sessions, cfg.AuthToken), cfg.Backend)
}

func serve(ctx context.Context, ln net.Listener, handler http.Handler, backend string) error {
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("backend", backend).Msg("listening")
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
