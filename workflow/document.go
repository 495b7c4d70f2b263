// ABOUTME: JSON export/import of workflow documents: {nodes, edges, exportedAt, version}.
// ABOUTME: Import accepts any object with nodes and edges arrays and ignores every other key.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DocumentVersion is written into every exported document.
const DocumentVersion = "1.0"

// exportTimeLayout is ISO-8601 UTC with millisecond precision.
const exportTimeLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	// ErrInvalidDocument means the payload parsed but lacks nodes/edges arrays
	// or carries nodes the engine cannot represent.
	ErrInvalidDocument = errors.New("invalid workflow file format")
	// ErrUnreadable means the payload is not JSON.
	ErrUnreadable = errors.New("error reading workflow file")
)

// Document is the exported file format.
type Document struct {
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
	ExportedAt string `json:"exportedAt"`
	Version    string `json:"version"`
}

// Export renders the graph as an indented JSON document stamped with now.
func Export(g *Graph, now time.Time) ([]byte, error) {
	doc := Document{
		Nodes:      nonNilNodes(g.Nodes),
		Edges:      nonNilEdges(g.Edges),
		ExportedAt: now.UTC().Format(exportTimeLayout),
		Version:    DocumentVersion,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal workflow document: %w", err)
	}
	return data, nil
}

// ExportFilename is the download name for an export made at now.
func ExportFilename(now time.Time) string {
	return "workflow-" + now.UTC().Format("2006-01-02") + ".json"
}

// Import decodes a document. Only the nodes and edges keys are read.
func Import(data []byte) (*Graph, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	nodesRaw, ok := raw["nodes"]
	if !ok || !isArray(nodesRaw) {
		return nil, fmt.Errorf("%w: missing nodes array", ErrInvalidDocument)
	}
	edgesRaw, ok := raw["edges"]
	if !ok || !isArray(edgesRaw) {
		return nil, fmt.Errorf("%w: missing edges array", ErrInvalidDocument)
	}

	g := &Graph{}
	if err := json.Unmarshal(nodesRaw, &g.Nodes); err != nil {
		return nil, fmt.Errorf("%w: nodes: %v", ErrInvalidDocument, err)
	}
	if err := json.Unmarshal(edgesRaw, &g.Edges); err != nil {
		return nil, fmt.Errorf("%w: edges: %v", ErrInvalidDocument, err)
	}

	seen := make(map[string]bool, len(g.Nodes))
	for i := range g.Nodes {
		if seen[g.Nodes[i].ID] {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrInvalidDocument, g.Nodes[i].ID)
		}
		seen[g.Nodes[i].ID] = true
		if g.Nodes[i].Kind == 0 {
			return nil, fmt.Errorf("%w: node %q has no type", ErrInvalidDocument, g.Nodes[i].ID)
		}
		if g.Nodes[i].Data == nil {
			g.Nodes[i].Data = make(map[string]string)
		}
	}
	g.Nodes = nonNilNodes(g.Nodes)
	g.Edges = nonNilEdges(g.Edges)
	return g, nil
}

// isArray reports whether a raw JSON value is an array literal.
func isArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

func nonNilNodes(ns []Node) []Node {
	if ns == nil {
		return []Node{}
	}
	return ns
}

func nonNilEdges(es []Edge) []Edge {
	if es == nil {
		return []Edge{}
	}
	return es
}
