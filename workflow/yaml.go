// ABOUTME: Exports a workflow graph as a YAML document with the same shape as the JSON export.
// ABOUTME: Uses gopkg.in/yaml.v3; node data keys are emitted in sorted order by the encoder.
package workflow

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlDocument mirrors Document with YAML tags.
type yamlDocument struct {
	Version    string `yaml:"version"`
	ExportedAt string `yaml:"exportedAt"`
	Nodes      []Node `yaml:"nodes"`
	Edges      []Edge `yaml:"edges"`
}

// ExportYAML renders the graph as YAML stamped with now.
func ExportYAML(g *Graph, now time.Time) (string, error) {
	doc := yamlDocument{
		Version:    DocumentVersion,
		ExportedAt: now.UTC().Format(exportTimeLayout),
		Nodes:      nonNilNodes(g.Nodes),
		Edges:      nonNilEdges(g.Edges),
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("marshal workflow yaml: %w", err)
	}
	return string(data), nil
}
