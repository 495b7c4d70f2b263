// ABOUTME: HTTP server struct with chi router, session store, and optional workflow repository
// ABOUTME: Configures all session routes and wires handler methods via functional options

package editor

import (
	"net/http"
	"time"

	"github.com/2389-research/nodewire/store"
	"github.com/go-chi/chi/v5"
)

// ServerOption configures optional Server behavior.
type ServerOption func(*Server)

// WithRepository enables save and load against a persistent workflow store.
func WithRepository(repo store.Repository) ServerOption {
	return func(s *Server) {
		s.repo = repo
	}
}

// WithClock overrides the time source used for export timestamps.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

// Server holds the chi router, session store, and the repository used by
// save and load. Without a repository those two routes answer 503.
type Server struct {
	router chi.Router
	store  *Store
	repo   store.Repository
	now    func() time.Time
}

// NewServer creates a Server with all routes configured.
func NewServer(sessions *Store, opts ...ServerOption) *Server {
	s := &Server{
		store: sessions,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	s.Register(r)
	s.router = r
	return s
}

// Register adds the session routes to r, so a parent router can serve them
// behind its own middleware.
func (s *Server) Register(r chi.Router) {
	// Session lifecycle
	r.Post("/sessions", s.handleCreateSession)
	r.Get("/sessions/{id}", s.handleGetSession)
	r.Delete("/sessions/{id}", s.handleDeleteSession)
	r.Get("/sessions/{id}/validate", s.handleValidate)
	r.Get("/sessions/{id}/export", s.handleExport)

	// Mutation handlers
	r.Post("/sessions/{id}/nodes", s.handleAddNode)
	r.Patch("/sessions/{id}/nodes/{nodeId}", s.handleUpdateNode)
	r.Put("/sessions/{id}/nodes/{nodeId}/position", s.handleMoveNode)
	r.Delete("/sessions/{id}/nodes/{nodeId}", s.handleDeleteNode)
	r.Post("/sessions/{id}/edges", s.handleAddEdge)
	r.Delete("/sessions/{id}/edges/{edgeId}", s.handleDeleteEdge)
	r.Post("/sessions/{id}/import", s.handleImport)
	r.Post("/sessions/{id}/clear", s.handleClear)
	r.Post("/sessions/{id}/undo", s.handleUndo)
	r.Post("/sessions/{id}/redo", s.handleRedo)

	// Persistence
	r.Post("/sessions/{id}/save", s.handleSave)
	r.Post("/sessions/{id}/load/{workflowId}", s.handleLoad)
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
