// ABOUTME: HTTP handler methods for all editor session endpoints
// ABOUTME: Covers session lifecycle, graph mutations, undo/redo, validation, export, and save/load

package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/2389-research/nodewire/store"
	"github.com/2389-research/nodewire/workflow"
	"github.com/2389-research/nodewire/workflow/validator"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// maxBodySize caps uploaded documents and request bodies at 10MB.
const maxBodySize = 10 << 20

type addNodeRequest struct {
	ID       string             `json:"id"`
	Kind     string             `json:"kind"`
	Type     string             `json:"type"` // canvas node type, used when kind is empty
	Position *workflow.Position `json:"position"`
	Data     map[string]string  `json:"data"`
}

type updateNodeRequest struct {
	Data map[string]string `json:"data"`
}

type addEdgeRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type validateResponse struct {
	Valid       bool                   `json:"valid"`
	Errors      []string               `json:"errors"`
	Diagnostics []validator.Diagnostic `json:"diagnostics"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNodeNotFound), errors.Is(err, ErrEdgeNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrDerivedField), errors.Is(err, ErrNothingToUndo), errors.Is(err, ErrNothingToRedo):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// readBody reads a size-limited request body. On failure it has already
// written the response.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large (max 10MB)")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return nil, false
	}
	return data, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	data, ok := readBody(w, r)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// session resolves the {id} URL parameter, writing 404 when it is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// respond writes the session view, or maps err to an error response.
func (s *Server) respond(w http.ResponseWriter, sess *Session, err error) {
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// handleCreateSession starts a session from an optional posted document.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}

	var g *workflow.Graph
	if len(data) > 0 {
		imported, err := workflow.Import(data)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		g = imported
	}

	sess := s.store.Create(g)
	writeJSON(w, http.StatusCreated, sess.View())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleValidate lints the current graph. ?strict=true adds the component check.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	opts := validator.Options{StrictConnectivity: r.URL.Query().Get("strict") == "true"}
	diags := sess.Lint(opts)
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:       len(diags) == 0,
		Errors:      validator.Messages(diags),
		Diagnostics: diags,
	})
}

// handleExport returns the graph as a downloadable document in the
// requested format (json, yaml, markdown, html).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	g := sess.Snapshot()
	now := s.now()
	filename := workflow.ExportFilename(now)

	var (
		body        []byte
		contentType string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		data, err := workflow.Export(g, now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		body, contentType = data, "application/json"
	case "yaml":
		data, err := workflow.ExportYAML(g, now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		body, contentType = []byte(data), "application/yaml"
		filename = replaceExt(filename, ".yaml")
	case "markdown", "md":
		body, contentType = []byte(workflow.ExportMarkdown(g)), "text/markdown; charset=utf-8"
		filename = replaceExt(filename, ".md")
	case "html":
		html, err := workflow.RenderHTML(workflow.ExportMarkdown(g))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		body, contentType = []byte(html), "text/html; charset=utf-8"
		filename = replaceExt(filename, ".html")
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown export format %q", format))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func replaceExt(filename, ext string) string {
	const jsonExt = ".json"
	return filename[:len(filename)-len(jsonExt)] + ext
}

// handleAddNode adds a node of the requested kind with canvas defaults.
// Explicit id, position, and data override the defaults.
func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req addNodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := req.Kind
	if name == "" {
		name = req.Type
	}
	kind, err := workflow.ParseKind(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Canvas Output nodes carry an empty value; only a real value is rejected.
	if req.Data[workflow.FieldValue] != "" && kind == workflow.KindOutput {
		writeError(w, http.StatusUnprocessableEntity, ErrDerivedField.Error())
		return
	}

	node := workflow.NewNode(kind)
	if req.ID != "" {
		node.ID = req.ID
	}
	if req.Position != nil {
		node.Position = *req.Position
	}
	for k, v := range req.Data {
		node.Data[k] = v
	}

	if err := sess.AddNode(node); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

// handleUpdateNode merges data fields into an existing node.
func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req updateNodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.respond(w, sess, sess.UpdateNode(chi.URLParam(r, "nodeId"), req.Data))
}

func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var pos workflow.Position
	if !decodeBody(w, r, &pos) {
		return
	}
	s.respond(w, sess, sess.MoveNode(chi.URLParam(r, "nodeId"), pos))
}

// handleDeleteNode removes a node and its connected edges.
func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respond(w, sess, sess.RemoveNode(chi.URLParam(r, "nodeId")))
}

// handleAddEdge connects two existing nodes.
func (s *Server) handleAddEdge(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req addEdgeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := sess.AddEdge(req.Source, req.Target); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

// handleDeleteEdge removes an edge by its id.
func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respond(w, sess, sess.RemoveEdge(chi.URLParam(r, "edgeId")))
}

// handleImport replaces the graph with a posted workflow document.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	data, ok := readBody(w, r)
	if !ok {
		return
	}
	g, err := workflow.Import(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.Replace(g)
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Clear()
	writeJSON(w, http.StatusOK, sess.View())
}

// handleUndo reverts the last mutation.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respond(w, sess, sess.Undo())
}

// handleRedo reapplies a previously undone mutation.
func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respond(w, sess, sess.Redo())
}

// handleSave validates the graph and persists it only when clean. Validation
// failures answer 422 with the error list.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "no workflow repository configured")
		return
	}

	g := sess.Snapshot()
	if errs := validator.Validate(g.Nodes, g.Edges); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string][]string{"errors": errs})
		return
	}

	saved, err := s.repo.Create(r.Context(), g)
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("save workflow")
		writeError(w, http.StatusInternalServerError, "failed to save workflow")
		return
	}
	log.Info().Str("session", sess.ID).Str("workflow", saved.ID).Int("nodes", len(saved.Nodes)).Msg("workflow saved")
	writeJSON(w, http.StatusCreated, saved)
}

// handleLoad replaces the graph with a persisted workflow.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "no workflow repository configured")
		return
	}

	saved, err := s.repo.Get(r.Context(), chi.URLParam(r, "workflowId"))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("session", sess.ID).Msg("load workflow")
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	sess.Replace(saved.Graph())
	writeJSON(w, http.StatusOK, sess.View())
}
