// ABOUTME: Workflow graph types: the closed Input/Output node kind, nodes, edges, and the Graph container.
// ABOUTME: Kinds encode to the canvas type strings "inputNode"/"outputNode" so editor payloads round-trip unchanged.
package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind is the closed set of node variants. Adding a variant requires updating
// every switch over Kind (propagation, validation, rendering).
type Kind int

const (
	// KindInput produces a value that flows downstream.
	KindInput Kind = iota + 1
	// KindOutput consumes a value; its value field is derived.
	KindOutput
)

// Field names shared by both node kinds.
const (
	FieldLabel       = "label"
	FieldDescription = "description"
	FieldValue       = "value"
)

const (
	inputWireName  = "inputNode"
	outputWireName = "outputNode"
)

// String returns the canvas type string for the kind.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return inputWireName
	case KindOutput:
		return outputWireName
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a canvas type string to a Kind. The short forms "input" and
// "output" used by the drag palette are accepted too.
func ParseKind(s string) (Kind, error) {
	switch s {
	case inputWireName, "input":
		return KindInput, nil
	case outputWireName, "output":
		return KindOutput, nil
	default:
		return 0, fmt.Errorf("unknown node type %q", s)
	}
}

// MarshalJSON encodes the kind as its canvas type string.
func (k Kind) MarshalJSON() ([]byte, error) {
	switch k {
	case KindInput, KindOutput:
		return json.Marshal(k.String())
	default:
		return nil, fmt.Errorf("marshal node kind: invalid value %d", int(k))
	}
}

// UnmarshalJSON decodes a canvas type string.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("node type must be a string: %w", err)
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML encodes the kind as its canvas type string.
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// Position is the canvas placement of a node. The engine never reads it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a graph vertex.
type Node struct {
	ID       string            `json:"id" yaml:"id"`
	Kind     Kind              `json:"type" yaml:"type"`
	Position Position          `json:"position" yaml:"position"`
	Data     map[string]string `json:"data" yaml:"data"`
}

// Edge is a directed connection between two node ids. Endpoints are not
// guaranteed to resolve.
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Graph holds the editor-owned node and edge collections.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// defaultPosition is where dropped nodes land before the user moves them.
var defaultPosition = Position{X: 200, Y: 200}

// NewNode returns a freshly placed node of the given kind with a random id
// and empty label/description/value fields.
func NewNode(kind Kind) Node {
	label := "input"
	if kind == KindOutput {
		label = "output"
	}
	return Node{
		ID:       uuid.New().String(),
		Kind:     kind,
		Position: defaultPosition,
		Data: map[string]string{
			FieldLabel:       label,
			FieldDescription: "",
			FieldValue:       "",
		},
	}
}

// EdgeID returns the canvas-style identifier for a connection.
func EdgeID(source, target string) string {
	return "reactflow__edge-" + source + "-" + target
}

// Value returns the node's value field, or "" when unset.
func (n Node) Value() string {
	if n.Data == nil {
		return ""
	}
	return n.Data[FieldValue]
}

// Label returns the node's label field, or "" when unset.
func (n Node) Label() string {
	if n.Data == nil {
		return ""
	}
	return n.Data[FieldLabel]
}

// FindNode returns a pointer to the node with the given id, or nil.
func (g *Graph) FindNode(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// FindEdge returns the index of the edge with the given id, or -1.
func (g *Graph) FindEdge(id string) int {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return i
		}
	}
	return -1
}

// AddNode appends a node.
func (g *Graph) AddNode(n Node) {
	g.Nodes = append(g.Nodes, n)
}

// AddEdge appends an edge.
func (g *Graph) AddEdge(e Edge) {
	g.Edges = append(g.Edges, e)
}

// RemoveNode deletes the node and every edge incident to it. Returns false if
// no node has the id.
func (g *Graph) RemoveNode(id string) bool {
	idx := -1
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	g.Nodes = append(g.Nodes[:idx], g.Nodes[idx+1:]...)

	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	g.Edges = kept
	return true
}

// RemoveEdge deletes the edge with the given id. Returns false if absent.
func (g *Graph) RemoveEdge(id string) bool {
	idx := g.FindEdge(id)
	if idx < 0 {
		return false
	}
	g.Edges = append(g.Edges[:idx], g.Edges[idx+1:]...)
	return true
}

// Clone returns a deep copy so callers can snapshot a graph before mutating it.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		cp := n
		if n.Data != nil {
			cp.Data = make(map[string]string, len(n.Data))
			for k, v := range n.Data {
				cp.Data[k] = v
			}
		}
		out.Nodes[i] = cp
	}
	copy(out.Edges, g.Edges)
	return out
}
