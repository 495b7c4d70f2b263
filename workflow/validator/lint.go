// ABOUTME: Structural lint rules for workflow graphs run before a workflow may be saved.
// ABOUTME: Every rule runs unconditionally; findings are returned as data in a fixed rule order.
package validator

import (
	"fmt"

	"github.com/2389-research/nodewire/workflow"
)

// Messages reported by the default rules. Clients display them verbatim.
const (
	MsgNoInput      = "At least one Input node required"
	MsgNoOutput     = "At least one Output node required"
	MsgDisconnected = "All nodes must be connected"
	MsgCycle        = "Circular connections detected"
)

// Rule names attached to diagnostics.
const (
	RuleInputNode    = "input_node"
	RuleOutputNode   = "output_node"
	RuleConnectivity = "connectivity"
	RuleCycle        = "cycle"
	RuleConnected    = "connected"
)

// Diagnostic is a single validation finding.
type Diagnostic struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Rule     string `json:"rule"`
	NodeID   string `json:"nodeId,omitempty"`
}

// Options enables checks beyond the default rule set.
type Options struct {
	// StrictConnectivity adds a true connectivity check over the undirected
	// skeleton. The edge-count rule still runs.
	StrictConnectivity bool
}

// Validate runs the default rules and returns their messages. An empty
// result means the graph may be persisted.
func Validate(nodes []workflow.Node, edges []workflow.Edge) []string {
	return Messages(Lint(nodes, edges))
}

// Lint runs every rule and returns all findings. Only the first Options
// value is consulted.
func Lint(nodes []workflow.Node, edges []workflow.Edge, opts ...Options) []Diagnostic {
	var cfg Options
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var diags []Diagnostic
	diags = append(diags, checkInputPresent(nodes)...)
	diags = append(diags, checkOutputPresent(nodes)...)
	diags = append(diags, checkEdgeCount(nodes, edges)...)
	diags = append(diags, checkCycles(nodes, edges)...)
	if cfg.StrictConnectivity {
		diags = append(diags, checkConnected(nodes, edges)...)
	}
	return diags
}

// Messages projects diagnostics to their messages, preserving order.
func Messages(diags []Diagnostic) []string {
	msgs := make([]string, 0, len(diags))
	for _, d := range diags {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func hasKind(nodes []workflow.Node, kind workflow.Kind) bool {
	for _, n := range nodes {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

func checkInputPresent(nodes []workflow.Node) []Diagnostic {
	if hasKind(nodes, workflow.KindInput) {
		return nil
	}
	return []Diagnostic{{Severity: "error", Message: MsgNoInput, Rule: RuleInputNode}}
}

func checkOutputPresent(nodes []workflow.Node) []Diagnostic {
	if hasKind(nodes, workflow.KindOutput) {
		return nil
	}
	return []Diagnostic{{Severity: "error", Message: MsgNoOutput, Rule: RuleOutputNode}}
}

// checkEdgeCount requires len(edges) >= len(nodes)-1. This is a lower bound
// only: a graph can satisfy it while split into several components.
func checkEdgeCount(nodes []workflow.Node, edges []workflow.Edge) []Diagnostic {
	if len(edges) >= len(nodes)-1 {
		return nil
	}
	return []Diagnostic{{Severity: "error", Message: MsgDisconnected, Rule: RuleConnectivity}}
}

func checkCycles(nodes []workflow.Node, edges []workflow.Edge) []Diagnostic {
	at, found := findCycle(nodes, edges)
	if !found {
		return nil
	}
	return []Diagnostic{{Severity: "error", Message: MsgCycle, Rule: RuleCycle, NodeID: at}}
}

func checkConnected(nodes []workflow.Node, edges []workflow.Edge) []Diagnostic {
	n := countComponents(nodes, edges)
	if n <= 1 {
		return nil
	}
	return []Diagnostic{{
		Severity: "error",
		Message:  fmt.Sprintf("Graph has %d disconnected components", n),
		Rule:     RuleConnected,
	}}
}
