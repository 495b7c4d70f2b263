// ABOUTME: Tests specific to the JSONL workflow log: replay across reopen and repair of truncated tails.
// ABOUTME: Complements the shared repository tests in store_test.go.
package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestJsonlReopenReplaysLog(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "wf.jsonl")

	repo, err := OpenJsonl(path)
	if err != nil {
		t.Fatalf("OpenJsonl: %v", err)
	}
	kept, err := repo.Create(ctx, sampleGraph())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	gone, err := repo.Create(ctx, sampleGraph())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Delete(ctx, gone.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_ = repo.Close()

	reopened, err := OpenJsonl(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if _, err := reopened.Get(ctx, kept.ID); err != nil {
		t.Errorf("kept workflow missing after reopen: %v", err)
	}
	if _, err := reopened.Get(ctx, gone.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted workflow resurrected: %v", err)
	}
}

func TestJsonlRepairDropsTruncatedTail(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wf.jsonl")

	repo, err := OpenJsonl(path)
	if err != nil {
		t.Fatalf("OpenJsonl: %v", err)
	}
	w, err := repo.Create(ctx, sampleGraph())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = repo.Close()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for corruption: %v", err)
	}
	_, _ = f.WriteString(`{"op":"put","id":"partial","workflow":{"_id":`)
	_ = f.Close()

	kept, err := RepairJsonl(path)
	if err != nil {
		t.Fatalf("RepairJsonl: %v", err)
	}
	if kept != 1 {
		t.Fatalf("expected 1 record kept, got %d", kept)
	}

	reopened, err := OpenJsonl(path)
	if err != nil {
		t.Fatalf("reopen after repair: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	list, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != w.ID {
		t.Fatalf("unexpected list after repair: %+v", list)
	}
}

func TestJsonlGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenJsonl(filepath.Join(t.TempDir(), "wf.jsonl"))
	if err != nil {
		t.Fatalf("OpenJsonl: %v", err)
	}
	defer func() { _ = repo.Close() }()

	w, _ := repo.Create(ctx, sampleGraph())
	got, _ := repo.Get(ctx, w.ID)
	got.Nodes[0].Data["value"] = "mutated"

	again, _ := repo.Get(ctx, w.ID)
	if again.Nodes[0].Value() != "hi" {
		t.Fatalf("Get exposed internal state: %q", again.Nodes[0].Value())
	}
}
