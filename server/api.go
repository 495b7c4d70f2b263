// ABOUTME: Workflow CRUD routes under /api/workflows plus the /health probe.
// ABOUTME: Creation validates the graph first and answers 422 with the error list when it fails.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/2389-research/nodewire/store"
	"github.com/2389-research/nodewire/workflow"
	"github.com/2389-research/nodewire/workflow/validator"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxDocumentSize = 10 << 20

// workflowAPI serves persisted workflows from a repository.
type workflowAPI struct {
	repo store.Repository
}

func (a *workflowAPI) routes(r chi.Router) {
	r.Get("/", a.handleList)
	r.Post("/", a.handleCreate)
	r.Get("/{id}", a.handleGet)
	r.Delete("/{id}", a.handleDelete)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *workflowAPI) handleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.repo.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list workflows")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list workflows"})
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleCreate accepts any object carrying nodes and edges arrays, the same
// shape the export document uses.
func (a *workflowAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large (max 10MB)"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	g, err := workflow.Import(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if errs := validator.Validate(g.Nodes, g.Edges); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string][]string{"errors": errs})
		return
	}
	g.Propagate()

	saved, err := a.repo.Create(r.Context(), g)
	if err != nil {
		log.Error().Err(err).Msg("create workflow")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save workflow"})
		return
	}
	log.Info().Str("workflow", saved.ID).Int("nodes", len(saved.Nodes)).Int("edges", len(saved.Edges)).Msg("workflow created")
	writeJSON(w, http.StatusCreated, saved)
}

func (a *workflowAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	saved, err := a.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workflow not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get workflow")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load workflow"})
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (a *workflowAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := a.repo.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workflow not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("delete workflow")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete workflow"})
		return
	}
	log.Info().Str("workflow", id).Msg("workflow deleted")
	writeJSON(w, http.StatusOK, map[string]string{"message": "workflow deleted"})
}
