// ABOUTME: File-backed workflow repository built on an append-only JSONL log of put/delete records.
// ABOUTME: On open the log is repaired (truncated tails dropped) and replayed into an in-memory view.
package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2389-research/nodewire/workflow"
)

// Record operations written to the log.
const (
	opPut    = "put"
	opDelete = "delete"
)

// logRecord is one line of the JSONL log.
type logRecord struct {
	Op       string    `json:"op"`
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	Workflow *Workflow `json:"workflow,omitempty"`
}

// JsonlRepository keeps every workflow in memory and appends each change to
// a JSONL file, fsyncing after every write.
type JsonlRepository struct {
	mu        sync.RWMutex
	path      string
	file      *os.File
	workflows map[string]Workflow
}

// OpenJsonl repairs and replays the log at path, then opens it for append.
// Parent directories are created as needed.
func OpenJsonl(path string) (*JsonlRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent dirs: %w", err)
	}

	workflows := make(map[string]Workflow)
	if _, err := os.Stat(path); err == nil {
		if _, err := RepairJsonl(path); err != nil {
			return nil, err
		}
		records, err := replayJsonl(path)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			applyRecord(workflows, rec)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open jsonl file: %w", err)
	}
	return &JsonlRepository{path: path, file: file, workflows: workflows}, nil
}

func applyRecord(workflows map[string]Workflow, rec logRecord) {
	switch rec.Op {
	case opPut:
		if rec.Workflow != nil {
			workflows[rec.ID] = *rec.Workflow
		}
	case opDelete:
		delete(workflows, rec.ID)
	default:
		// Unknown ops from newer writers are skipped.
	}
}

// Path returns the log file path.
func (r *JsonlRepository) Path() string {
	return r.path
}

// Close closes the log file.
func (r *JsonlRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

func (r *JsonlRepository) append(rec logRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := r.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write record line: %w", err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	return nil
}

// Create appends a put record and adds the workflow to the view.
func (r *JsonlRepository) Create(ctx context.Context, g *workflow.Graph) (Workflow, error) {
	if err := ctx.Err(); err != nil {
		return Workflow{}, err
	}
	w := newRecord(g, time.Now().UTC())

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.append(logRecord{Op: opPut, ID: w.ID, At: w.UpdatedAt, Workflow: &w}); err != nil {
		return Workflow{}, err
	}
	r.workflows[w.ID] = w
	return w, nil
}

// Get returns a copy of one workflow.
func (r *JsonlRepository) Get(ctx context.Context, id string) (Workflow, error) {
	if err := ctx.Err(); err != nil {
		return Workflow{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workflows[id]
	if !ok {
		return Workflow{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := w.Graph()
	w.Nodes, w.Edges = nonNil(cp.Nodes), nonNilEdges(cp.Edges)
	return w, nil
}

// List returns summaries newest first, ties broken by id descending.
func (r *JsonlRepository) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]Summary, 0, len(r.workflows))
	for _, w := range r.workflows {
		summaries = append(summaries, summarize(w))
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
		}
		return summaries[i].ID > summaries[j].ID
	})
	return summaries, nil
}

// Delete appends a delete record.
func (r *JsonlRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workflows[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := r.append(logRecord{Op: opDelete, ID: id, At: time.Now().UTC()}); err != nil {
		return err
	}
	delete(r.workflows, id)
	return nil
}

// replayJsonl reads every record from the log in order. Blank lines are
// skipped.
func replayJsonl(path string) ([]logRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jsonl for replay: %w", err)
	}
	defer func() { _ = file.Close() }()

	var records []logRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec logRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("parse record line: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan jsonl file: %w", err)
	}
	return records, nil
}

// RepairJsonl rewrites the log keeping only complete, parseable lines, via
// temp file, fsync, and rename. Returns the number of records kept.
func RepairJsonl(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open jsonl for repair: %w", err)
	}

	var valid []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec logRecord
		if json.Unmarshal([]byte(line), &rec) == nil {
			valid = append(valid, line)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = file.Close()
		return 0, fmt.Errorf("scan jsonl for repair: %w", err)
	}
	_ = file.Close()

	tmpPath := path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	for _, line := range valid {
		if _, err := fmt.Fprintln(tmp, line); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
			return 0, fmt.Errorf("write valid line: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("fsync temp file: %w", err)
	}
	_ = tmp.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("rename temp to original: %w", err)
	}
	if dir, err := os.Open(filepath.Dir(path)); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return len(valid), nil
}
