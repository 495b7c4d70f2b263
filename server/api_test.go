// ABOUTME: Tests for the /api/workflows CRUD routes and the composed root handler.
// ABOUTME: Runs against a JSONL repository in a temp dir through httptest.
package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2389-research/nodewire/editor"
	"github.com/2389-research/nodewire/store"
	"github.com/2389-research/nodewire/workflow/validator"
)

const validWorkflow = `{
  "nodes": [
    {"id": "in", "type": "inputNode", "position": {"x": 0, "y": 0}, "data": {"label": "In", "value": "42"}},
    {"id": "out", "type": "outputNode", "position": {"x": 250, "y": 0}, "data": {"label": "Out", "value": ""}}
  ],
  "edges": [{"id": "reactflow__edge-in-out", "source": "in", "target": "out"}]
}`

func newTestHandler(t *testing.T, token string) (http.Handler, store.Repository) {
	t.Helper()
	repo, err := store.OpenJsonl(filepath.Join(t.TempDir(), "workflows.jsonl"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return NewHandler(repo, editor.NewStore(10, time.Hour), token), repo
}

func request(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, "")

	w := request(h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestWorkflowCRUD(t *testing.T) {
	h, _ := newTestHandler(t, "")

	w := request(h, http.MethodPost, "/api/workflows", validWorkflow)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created store.Workflow
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("expected _id")
	}
	if created.Nodes[1].Value() != "42" {
		t.Errorf("expected derived value to be stored, got %q", created.Nodes[1].Value())
	}

	w = request(h, http.MethodGet, "/api/workflows", "")
	var list []store.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != created.ID || list[0].NodeCount != 2 {
		t.Fatalf("unexpected list %+v", list)
	}

	w = request(h, http.MethodGet, "/api/workflows/"+created.ID, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"_id":"`+created.ID+`"`) {
		t.Fatalf("get: %d %s", w.Code, w.Body.String())
	}

	if w := request(h, http.MethodDelete, "/api/workflows/"+created.ID, ""); w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	if w := request(h, http.MethodDelete, "/api/workflows/"+created.ID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
	if w := request(h, http.MethodGet, "/api/workflows/"+created.ID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", w.Code)
	}
}

func TestListEmptyIsArray(t *testing.T) {
	h, _ := newTestHandler(t, "")

	w := request(h, http.MethodGet, "/api/workflows", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", w.Body.String())
	}
}

func TestCreateRejectsInvalidWorkflow(t *testing.T) {
	h, repo := newTestHandler(t, "")

	cycle := `{"nodes": [
		{"id": "a", "type": "inputNode", "data": {}},
		{"id": "b", "type": "outputNode", "data": {}}
	], "edges": [
		{"id": "1", "source": "a", "target": "b"},
		{"id": "2", "source": "b", "target": "a"}
	]}`
	w := request(h, http.MethodPost, "/api/workflows", cycle)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var body map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body["errors"]) != 1 || body["errors"][0] != validator.MsgCycle {
		t.Fatalf("errors = %v", body["errors"])
	}

	list, err := repo.List(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatal("expected nothing persisted")
	}
}

func TestCreateRejectsMalformedDocument(t *testing.T) {
	h, _ := newTestHandler(t, "")

	for _, body := range []string{`not json`, `{"nodes": {}}`, `{"edges": []}`} {
		if w := request(h, http.MethodPost, "/api/workflows", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestHandlerServesEditorSessions(t *testing.T) {
	h, _ := newTestHandler(t, "")

	w := request(h, http.MethodPost, "/sessions", validWorkflow)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var view editor.View
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}

	w = request(h, http.MethodPost, "/sessions/"+view.ID+"/save", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("save through root handler: expected 201, got %d", w.Code)
	}

	w = request(h, http.MethodGet, "/api/workflows", "")
	if !strings.Contains(w.Body.String(), `"nodeCount":2`) {
		t.Fatalf("expected saved session in list, got %s", w.Body.String())
	}
}

func TestHandlerRequiresTokenWhenConfigured(t *testing.T) {
	h, _ := newTestHandler(t, "tok")

	if w := request(h, http.MethodGet, "/api/workflows", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := request(h, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("expected health to stay open, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}
