// ABOUTME: Persistence contract for saved workflows plus the record types and backend selection.
// ABOUTME: Workflow ids are ULIDs so listings sort by creation time without a secondary index.
package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/2389-research/nodewire/workflow"
	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a workflow id has no record.
var ErrNotFound = errors.New("workflow not found")

// Workflow is a persisted graph. It serializes with "_id" so existing
// browser clients can read it unchanged.
type Workflow struct {
	ID        string          `json:"_id"`
	Nodes     []workflow.Node `json:"nodes"`
	Edges     []workflow.Edge `json:"edges"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Graph returns the workflow's nodes and edges as an editable graph copy.
func (w Workflow) Graph() *workflow.Graph {
	g := &workflow.Graph{Nodes: w.Nodes, Edges: w.Edges}
	return g.Clone()
}

// Summary is the list view of a workflow.
type Summary struct {
	ID        string    `json:"_id"`
	NodeCount int       `json:"nodeCount"`
	EdgeCount int       `json:"edgeCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository stores workflows. Implementations are safe for concurrent use.
type Repository interface {
	Create(ctx context.Context, g *workflow.Graph) (Workflow, error)
	Get(ctx context.Context, id string) (Workflow, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSqlite = "sqlite"
	BackendRedis  = "redis"
	BackendJsonl  = "jsonl"
)

// Open constructs the named backend. File backends live under home.
func Open(ctx context.Context, backend, home, redisURL string) (Repository, error) {
	switch backend {
	case BackendSqlite, "":
		return OpenSqlite(filepath.Join(home, "workflows.db"))
	case BackendRedis:
		return OpenRedis(ctx, redisURL)
	case BackendJsonl:
		return OpenJsonl(filepath.Join(home, "workflows.jsonl"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// NewID generates a workflow id.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// newRecord stamps a fresh workflow from a graph snapshot.
func newRecord(g *workflow.Graph, now time.Time) Workflow {
	cp := g.Clone()
	return Workflow{
		ID:        NewID(),
		Nodes:     nonNil(cp.Nodes),
		Edges:     nonNilEdges(cp.Edges),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func summarize(w Workflow) Summary {
	return Summary{ID: w.ID, NodeCount: len(w.Nodes), EdgeCount: len(w.Edges), UpdatedAt: w.UpdatedAt}
}

func nonNil(ns []workflow.Node) []workflow.Node {
	if ns == nil {
		return []workflow.Node{}
	}
	return ns
}

func nonNilEdges(es []workflow.Edge) []workflow.Edge {
	if es == nil {
		return []workflow.Edge{}
	}
	return es
}
