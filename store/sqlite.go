// ABOUTME: SQLite-backed workflow repository storing each graph as a JSON column.
// ABOUTME: Opens in WAL mode and creates the schema on first use.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/2389-research/nodewire/workflow"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SqliteRepository persists workflows in a single SQLite table.
type SqliteRepository struct {
	db *sql.DB
}

// OpenSqlite opens or creates the database at path.
func OpenSqlite(path string) (*SqliteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent dirs: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			graph TEXT NOT NULL,
			node_count INTEGER NOT NULL,
			edge_count INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SqliteRepository{db: db}, nil
}

// Close closes the database connection.
func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

// Create inserts a new workflow.
func (r *SqliteRepository) Create(ctx context.Context, g *workflow.Graph) (Workflow, error) {
	w := newRecord(g, time.Now().UTC())
	graph, err := json.Marshal(workflow.Graph{Nodes: w.Nodes, Edges: w.Edges})
	if err != nil {
		return Workflow{}, fmt.Errorf("marshal graph: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO workflows (id, graph, node_count, edge_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, string(graph), len(w.Nodes), len(w.Edges),
		w.CreatedAt.Format(sqliteTimeLayout), w.UpdatedAt.Format(sqliteTimeLayout))
	if err != nil {
		return Workflow{}, fmt.Errorf("insert workflow: %w", err)
	}
	return w, nil
}

// Get loads one workflow.
func (r *SqliteRepository) Get(ctx context.Context, id string) (Workflow, error) {
	var (
		graph, created, updated string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT graph, created_at, updated_at FROM workflows WHERE id = ?", id).
		Scan(&graph, &created, &updated)
	if err == sql.ErrNoRows {
		return Workflow{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Workflow{}, fmt.Errorf("query workflow: %w", err)
	}

	var g workflow.Graph
	if err := json.Unmarshal([]byte(graph), &g); err != nil {
		return Workflow{}, fmt.Errorf("decode graph %s: %w", id, err)
	}
	w := Workflow{ID: id, Nodes: nonNil(g.Nodes), Edges: nonNilEdges(g.Edges)}
	if w.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
		return Workflow{}, fmt.Errorf("parse created_at: %w", err)
	}
	if w.UpdatedAt, err = time.Parse(sqliteTimeLayout, updated); err != nil {
		return Workflow{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return w, nil
}

// List returns summaries ordered newest first.
func (r *SqliteRepository) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, node_count, edge_count, updated_at FROM workflows ORDER BY updated_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := []Summary{}
	for rows.Next() {
		var (
			s       Summary
			updated string
		)
		if err := rows.Scan(&s.ID, &s.NodeCount, &s.EdgeCount, &updated); err != nil {
			return nil, fmt.Errorf("scan workflow row: %w", err)
		}
		if s.UpdatedAt, err = time.Parse(sqliteTimeLayout, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes a workflow.
func (r *SqliteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
