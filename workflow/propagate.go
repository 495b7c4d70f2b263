// ABOUTME: Input -> Output value propagation: a pure Derive step plus a narrow writer that applies it.
// ABOUTME: Only Output nodes' value field is ever written; unresolved or mismatched edges are skipped.
package workflow

// Update is a derived value for one Output node.
type Update struct {
	NodeID string
	Value  string
}

// DerivedWriter is the only capability allowed to write an Output node's
// value field.
type DerivedWriter interface {
	SetDerivedValue(nodeID, value string)
}

// Derive computes the Output values implied by the Input -> Output edges, in
// edge order. When several edges target the same Output, later updates
// supersede earlier ones once applied. Inputs are not mutated.
func Derive(nodes []Node, edges []Edge) []Update {
	byID := indexByID(nodes)

	var updates []Update
	for _, e := range edges {
		si, ok := byID[e.Source]
		if !ok {
			continue
		}
		ti, ok := byID[e.Target]
		if !ok {
			continue
		}
		if !flowsValue(nodes[si].Kind, nodes[ti].Kind) {
			continue
		}
		updates = append(updates, Update{NodeID: nodes[ti].ID, Value: nodes[si].Value()})
	}
	return updates
}

// flowsValue reports whether an edge from src to dst carries a value.
func flowsValue(src, dst Kind) bool {
	switch src {
	case KindInput:
		return dst == KindOutput
	case KindOutput:
		return false
	default:
		return false
	}
}

// Apply hands each update to the writer in order.
func Apply(w DerivedWriter, updates []Update) {
	for _, u := range updates {
		w.SetDerivedValue(u.NodeID, u.Value)
	}
}

// Propagate refreshes Output values in place. It never fails and runs in
// time proportional to len(nodes) + len(edges).
func Propagate(nodes []Node, edges []Edge) {
	Apply(newNodeIndex(nodes), Derive(nodes, edges))
}

// Propagate refreshes the graph's Output values in place.
func (g *Graph) Propagate() {
	Propagate(g.Nodes, g.Edges)
}

// SetDerivedValue implements DerivedWriter. Writes to missing or non-Output
// nodes are dropped.
func (g *Graph) SetDerivedValue(nodeID, value string) {
	if n := g.FindNode(nodeID); n != nil {
		setDerived(n, value)
	}
}

// nodeIndex writes derived values into a node slice through an id index.
type nodeIndex struct {
	nodes []Node
	byID  map[string]int
}

func newNodeIndex(nodes []Node) nodeIndex {
	return nodeIndex{nodes: nodes, byID: indexByID(nodes)}
}

// indexByID maps each id to its first position, so a repeated id resolves
// the same way FindNode does.
func indexByID(nodes []Node) map[string]int {
	byID := make(map[string]int, len(nodes))
	for i := range nodes {
		if _, seen := byID[nodes[i].ID]; !seen {
			byID[nodes[i].ID] = i
		}
	}
	return byID
}

func (ix nodeIndex) SetDerivedValue(nodeID, value string) {
	if i, ok := ix.byID[nodeID]; ok {
		setDerived(&ix.nodes[i], value)
	}
}

func setDerived(n *Node, value string) {
	if n.Kind != KindOutput {
		return
	}
	if n.Data == nil {
		n.Data = make(map[string]string)
	}
	n.Data[FieldValue] = value
}
