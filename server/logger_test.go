// ABOUTME: Tests for logger initialization and the request logging middleware.
// ABOUTME: Captures JSON log output in a buffer to assert on structured fields.
package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	if err := initLogger(&buf, "debug", "json"); err != nil {
		t.Fatalf("initLogger: %v", err)
	}
	return &buf
}

func TestInitLoggerRejectsBadInput(t *testing.T) {
	var buf bytes.Buffer
	if err := initLogger(&buf, "loud", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := initLogger(&buf, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRequestLoggerRecordsFields(t *testing.T) {
	buf := captureLogs(t)

	h := requestLogger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/workflows", nil))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["method"] != "POST" || entry["path"] != "/api/workflows" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["status"] != float64(http.StatusTeapot) || entry["bytes"] != float64(15) {
		t.Errorf("unexpected status/bytes in %v", entry)
	}
	if entry["message"] != "request" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestRequestLoggerDefaultsStatus(t *testing.T) {
	buf := captureLogs(t)

	h := requestLogger(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
}
