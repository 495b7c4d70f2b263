// ABOUTME: Renders a workflow as a deterministic Markdown report and converts Markdown to HTML with goldmark.
// ABOUTME: Inputs come first, then outputs (each in graph order), then edges in graph order.
package workflow

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// ExportMarkdown renders a human-readable report of the graph, including the
// current derived Output values.
func ExportMarkdown(g *Graph) string {
	var out strings.Builder

	fmt.Fprintln(&out, "# Workflow")
	fmt.Fprintln(&out)
	fmt.Fprintf(&out, "%d nodes, %d edges\n", len(g.Nodes), len(g.Edges))

	writeSection(&out, "Inputs", nodesOfKind(g.Nodes, KindInput))
	writeSection(&out, "Outputs", nodesOfKind(g.Nodes, KindOutput))

	if len(g.Edges) > 0 {
		fmt.Fprintln(&out)
		fmt.Fprintln(&out, "## Connections")
		fmt.Fprintln(&out)
		for _, e := range g.Edges {
			fmt.Fprintf(&out, "- `%s` -> `%s`\n", e.Source, e.Target)
		}
	}

	return out.String()
}

func writeSection(out *strings.Builder, title string, nodes []Node) {
	if len(nodes) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "## %s\n", title)
	for _, n := range nodes {
		fmt.Fprintln(out)
		label := n.Label()
		if label == "" {
			label = n.ID
		}
		fmt.Fprintf(out, "### %s\n", label)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "- id: `%s`\n", n.ID)
		fmt.Fprintf(out, "- value: %s\n", quoteOrEmpty(n.Value()))
		if desc := strings.TrimSpace(n.Data[FieldDescription]); desc != "" {
			fmt.Fprintln(out)
			fmt.Fprintln(out, desc)
		}
	}
}

func nodesOfKind(nodes []Node, kind Kind) []Node {
	var out []Node
	for _, n := range nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func quoteOrEmpty(v string) string {
	if v == "" {
		return "_(empty)_"
	}
	return fmt.Sprintf("%q", v)
}

// RenderHTML converts Markdown to HTML. goldmark's default renderer omits raw
// HTML from the input.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
