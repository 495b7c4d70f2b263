// ABOUTME: Session struct with undo/redo and graph mutation operations
// ABOUTME: Every mutation snapshots the graph, re-propagates derived values, and re-runs the linter

package editor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2389-research/nodewire/workflow"
	"github.com/2389-research/nodewire/workflow/validator"
)

// maxHistory bounds both the undo and redo stacks.
const maxHistory = 50

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	// ErrDerivedField is returned when a caller tries to write an Output
	// node's value, which only propagation may set.
	ErrDerivedField = errors.New("output value is derived and cannot be edited")
	ErrNodeNotFound = errors.New("node not found")
	ErrEdgeNotFound = errors.New("edge not found")
	ErrDuplicate    = errors.New("already exists")
)

type Session struct {
	mu          sync.RWMutex
	ID          string
	Graph       *workflow.Graph
	Diagnostics []validator.Diagnostic
	UndoStack   []*workflow.Graph
	RedoStack   []*workflow.Graph
	CreatedAt   time.Time
	LastAccess  time.Time
}

// View is a consistent copy of session state for rendering.
type View struct {
	ID          string                 `json:"id"`
	Nodes       []workflow.Node        `json:"nodes"`
	Edges       []workflow.Edge        `json:"edges"`
	Errors      []string               `json:"errors"`
	Diagnostics []validator.Diagnostic `json:"diagnostics"`
	CanUndo     bool                   `json:"canUndo"`
	CanRedo     bool                   `json:"canRedo"`
}

func newSession(id string, g *workflow.Graph, now time.Time) *Session {
	if g == nil {
		g = &workflow.Graph{}
	}
	sess := &Session{
		ID:         id,
		Graph:      g,
		UndoStack:  make([]*workflow.Graph, 0, maxHistory),
		RedoStack:  make([]*workflow.Graph, 0, maxHistory),
		CreatedAt:  now,
		LastAccess: now,
	}
	sess.refresh()
	return sess
}

// RLock acquires a read lock for safe concurrent reads of session data.
func (sess *Session) RLock() {
	sess.mu.RLock()
}

// RUnlock releases a read lock.
func (sess *Session) RUnlock() {
	sess.mu.RUnlock()
}

// View returns a deep copy of the graph with the current diagnostics.
func (sess *Session) View() View {
	sess.mu.RLock()
	defer sess.mu.RUnlock()

	cp := sess.Graph.Clone()
	diags := append([]validator.Diagnostic{}, sess.Diagnostics...)
	return View{
		ID:          sess.ID,
		Nodes:       cp.Nodes,
		Edges:       cp.Edges,
		Errors:      validator.Messages(diags),
		Diagnostics: diags,
		CanUndo:     len(sess.UndoStack) > 0,
		CanRedo:     len(sess.RedoStack) > 0,
	}
}

// Snapshot returns a deep copy of the current graph.
func (sess *Session) Snapshot() *workflow.Graph {
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.Graph.Clone()
}

// Lint runs the validator against the current graph without touching the
// stored diagnostics.
func (sess *Session) Lint(opts validator.Options) []validator.Diagnostic {
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return validator.Lint(sess.Graph.Nodes, sess.Graph.Edges, opts)
}

// AddNode appends a node. A zero Data map is replaced with empty fields.
func (sess *Session) AddNode(n workflow.Node) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if n.ID == "" {
		return fmt.Errorf("node id is required")
	}
	if sess.Graph.FindNode(n.ID) != nil {
		return fmt.Errorf("node %s: %w", n.ID, ErrDuplicate)
	}

	sess.pushUndo()
	if n.Data == nil {
		n.Data = map[string]string{}
	}
	sess.Graph.AddNode(n)
	sess.refresh()
	return nil
}

// UpdateNode merges fields into a node's data. Writing value on an Output
// node fails with ErrDerivedField and leaves the graph untouched.
func (sess *Session) UpdateNode(nodeID string, fields map[string]string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	node := sess.Graph.FindNode(nodeID)
	if node == nil {
		return fmt.Errorf("node %s: %w", nodeID, ErrNodeNotFound)
	}
	if _, ok := fields[workflow.FieldValue]; ok && node.Kind == workflow.KindOutput {
		return fmt.Errorf("node %s: %w", nodeID, ErrDerivedField)
	}

	sess.pushUndo()
	// pushUndo cloned the graph, but node still points into the live slice.
	if node.Data == nil {
		node.Data = make(map[string]string, len(fields))
	}
	for k, v := range fields {
		node.Data[k] = v
	}
	sess.refresh()
	return nil
}

// MoveNode updates a node's canvas position.
func (sess *Session) MoveNode(nodeID string, pos workflow.Position) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	node := sess.Graph.FindNode(nodeID)
	if node == nil {
		return fmt.Errorf("node %s: %w", nodeID, ErrNodeNotFound)
	}
	sess.pushUndo()
	node.Position = pos
	sess.refresh()
	return nil
}

// RemoveNode removes a node and its associated edges.
func (sess *Session) RemoveNode(nodeID string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Graph.FindNode(nodeID) == nil {
		return fmt.Errorf("node %s: %w", nodeID, ErrNodeNotFound)
	}

	sess.pushUndo()
	sess.Graph.RemoveNode(nodeID)
	sess.refresh()
	return nil
}

// AddEdge connects two existing nodes and returns the new edge. Connecting
// the same pair twice fails with ErrDuplicate.
func (sess *Session) AddEdge(source, target string) (workflow.Edge, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Graph.FindNode(source) == nil {
		return workflow.Edge{}, fmt.Errorf("source node %s: %w", source, ErrNodeNotFound)
	}
	if sess.Graph.FindNode(target) == nil {
		return workflow.Edge{}, fmt.Errorf("target node %s: %w", target, ErrNodeNotFound)
	}

	edge := workflow.Edge{ID: workflow.EdgeID(source, target), Source: source, Target: target}
	if sess.Graph.FindEdge(edge.ID) >= 0 {
		return workflow.Edge{}, fmt.Errorf("edge %s: %w", edge.ID, ErrDuplicate)
	}

	sess.pushUndo()
	sess.Graph.AddEdge(edge)
	sess.refresh()
	return edge, nil
}

// RemoveEdge removes an edge by id.
func (sess *Session) RemoveEdge(edgeID string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Graph.FindEdge(edgeID) < 0 {
		return fmt.Errorf("edge %s: %w", edgeID, ErrEdgeNotFound)
	}

	sess.pushUndo()
	sess.Graph.RemoveEdge(edgeID)
	sess.refresh()
	return nil
}

// Replace swaps in a whole new graph, as import and load do. The previous
// graph stays reachable through Undo.
func (sess *Session) Replace(g *workflow.Graph) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.pushUndo()
	sess.Graph = g.Clone()
	sess.refresh()
}

// Clear empties the canvas.
func (sess *Session) Clear() {
	sess.Replace(&workflow.Graph{})
}

// Undo restores the previous graph.
func (sess *Session) Undo() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if len(sess.UndoStack) == 0 {
		return ErrNothingToUndo
	}

	prev := sess.UndoStack[len(sess.UndoStack)-1]
	sess.UndoStack = sess.UndoStack[:len(sess.UndoStack)-1]
	sess.RedoStack = appendCapped(sess.RedoStack, sess.Graph)

	sess.Graph = prev
	sess.refresh()
	return nil
}

// Redo reapplies a previously undone graph.
func (sess *Session) Redo() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if len(sess.RedoStack) == 0 {
		return ErrNothingToRedo
	}

	next := sess.RedoStack[len(sess.RedoStack)-1]
	sess.RedoStack = sess.RedoStack[:len(sess.RedoStack)-1]
	sess.UndoStack = appendCapped(sess.UndoStack, sess.Graph)

	sess.Graph = next
	sess.refresh()
	return nil
}

// pushUndo saves a copy of the current graph and clears the redo stack.
func (sess *Session) pushUndo() {
	sess.UndoStack = appendCapped(sess.UndoStack, sess.Graph.Clone())
	sess.RedoStack = sess.RedoStack[:0]
}

// refresh recomputes derived values and diagnostics after a mutation.
func (sess *Session) refresh() {
	sess.Graph.Propagate()
	sess.Diagnostics = validator.Lint(sess.Graph.Nodes, sess.Graph.Edges)
}

func appendCapped(stack []*workflow.Graph, g *workflow.Graph) []*workflow.Graph {
	stack = append(stack, g)
	if len(stack) > maxHistory {
		stack = stack[1:]
	}
	return stack
}
