// ABOUTME: Graph traversals backing the lint rules: an explicit-stack cycle probe and union-find components.
// ABOUTME: The probe keeps a tri-state mark per node id so deep graphs never grow the goroutine stack.
package validator

import "github.com/2389-research/nodewire/workflow"

type mark uint8

const (
	unvisited mark = iota
	inProgress
	done
)

// frame is one level of the explicit DFS stack: a node and the index of the
// next successor to examine.
type frame struct {
	id   string
	next int
}

// findCycle probes from every node id in node order. Reaching a node that is
// still in progress means a cycle; finished nodes are skipped. Edge endpoints
// that name no node are traversed as plain ids. Returns the id where the
// cycle closed.
func findCycle(nodes []workflow.Node, edges []workflow.Edge) (string, bool) {
	adj := make(map[string][]string, len(nodes))
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	marks := make(map[string]mark, len(nodes))
	for _, n := range nodes {
		if marks[n.ID] != unvisited {
			continue
		}

		stack := []frame{{id: n.ID}}
		marks[n.ID] = inProgress
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succ := adj[top.id]
			if top.next == len(succ) {
				marks[top.id] = done
				stack = stack[:len(stack)-1]
				continue
			}
			next := succ[top.next]
			top.next++

			switch marks[next] {
			case inProgress:
				return next, true
			case done:
				continue
			default:
				marks[next] = inProgress
				stack = append(stack, frame{id: next})
			}
		}
	}
	return "", false
}

// countComponents counts connected components of the undirected skeleton.
// Edges with an endpoint that names no node are ignored.
func countComponents(nodes []workflow.Node, edges []workflow.Edge) int {
	parent := make(map[string]string, len(nodes))
	for _, n := range nodes {
		parent[n.ID] = n.ID
	}

	find := func(x string) string {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	components := len(parent)
	for _, e := range edges {
		if _, ok := parent[e.Source]; !ok {
			continue
		}
		if _, ok := parent[e.Target]; !ok {
			continue
		}
		a, b := find(e.Source), find(e.Target)
		if a != b {
			parent[a] = b
			components--
		}
	}
	return components
}
