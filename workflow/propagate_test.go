// ABOUTME: Tests for Input -> Output propagation, the derived writer, and graph mutation helpers.
// ABOUTME: Covers single-hop copy, skipped edge kinds, dangling edges, idempotence, and fan-in.
package workflow

import "testing"

func input(id, value string) Node {
	return Node{ID: id, Kind: KindInput, Data: map[string]string{FieldLabel: id, FieldValue: value}}
}

func output(id string) Node {
	return Node{ID: id, Kind: KindOutput, Data: map[string]string{FieldLabel: id}}
}

func edge(src, dst string) Edge {
	return Edge{ID: EdgeID(src, dst), Source: src, Target: dst}
}

func TestPropagateCopiesInputToOutput(t *testing.T) {
	nodes := []Node{input("in", "hello"), output("out")}
	edges := []Edge{edge("in", "out")}

	Propagate(nodes, edges)

	if got := nodes[1].Value(); got != "hello" {
		t.Fatalf("output value = %q, want %q", got, "hello")
	}
	if got := nodes[0].Value(); got != "hello" {
		t.Fatalf("input value changed to %q", got)
	}
}

func TestPropagateSkipsNonQualifyingEdges(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		edges []Edge
	}{
		{"output to input", []Node{input("in", "x"), output("out")}, []Edge{edge("out", "in")}},
		{"input to input", []Node{input("a", "x"), input("b", "y")}, []Edge{edge("a", "b")}},
		{"output to output", []Node{output("a"), output("b")}, []Edge{edge("a", "b")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := make([]string, len(tt.nodes))
			for i, n := range tt.nodes {
				before[i] = n.Value()
			}
			Propagate(tt.nodes, tt.edges)
			for i, n := range tt.nodes {
				if n.Value() != before[i] {
					t.Errorf("node %s value changed from %q to %q", n.ID, before[i], n.Value())
				}
			}
		})
	}
}

func TestPropagateToleratesDanglingEdges(t *testing.T) {
	nodes := []Node{input("in", "v"), output("out")}
	edges := []Edge{edge("in", "gone"), edge("gone", "out"), edge("in", "out")}

	Propagate(nodes, edges)

	if got := nodes[1].Value(); got != "v" {
		t.Fatalf("output value = %q, want %q", got, "v")
	}
}

func TestPropagateIsIdempotent(t *testing.T) {
	nodes := []Node{input("a", "1"), input("b", "2"), output("x"), output("y")}
	edges := []Edge{edge("a", "x"), edge("b", "y")}

	Propagate(nodes, edges)
	first := []string{nodes[2].Value(), nodes[3].Value()}
	Propagate(nodes, edges)
	second := []string{nodes[2].Value(), nodes[3].Value()}

	if first[0] != second[0] || first[1] != second[1] {
		t.Fatalf("second pass changed values: %v -> %v", first, second)
	}
}

func TestPropagateFanInEndsWithAConnectedInputValue(t *testing.T) {
	nodes := []Node{input("a", "from-a"), input("b", "from-b"), output("out")}
	edges := []Edge{edge("a", "out"), edge("b", "out")}

	Propagate(nodes, edges)

	got := nodes[2].Value()
	if got != "from-a" && got != "from-b" {
		t.Fatalf("output value = %q, want one of the connected input values", got)
	}
	// Edge order is iteration order here, so the last edge wins.
	if got != "from-b" {
		t.Errorf("output value = %q, want last edge's value %q", got, "from-b")
	}
}

func TestPropagateAllocatesMissingData(t *testing.T) {
	nodes := []Node{input("in", "v"), {ID: "out", Kind: KindOutput}}
	Propagate(nodes, []Edge{edge("in", "out")})
	if got := nodes[1].Value(); got != "v" {
		t.Fatalf("output value = %q, want %q", got, "v")
	}
}

func TestDeriveDoesNotMutate(t *testing.T) {
	nodes := []Node{input("in", "v"), output("out")}
	updates := Derive(nodes, []Edge{edge("in", "out")})

	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if updates[0] != (Update{NodeID: "out", Value: "v"}) {
		t.Errorf("unexpected update %+v", updates[0])
	}
	if nodes[1].Value() != "" {
		t.Errorf("Derive mutated output value to %q", nodes[1].Value())
	}
}

type recordingWriter struct {
	writes []Update
}

func (w *recordingWriter) SetDerivedValue(nodeID, value string) {
	w.writes = append(w.writes, Update{NodeID: nodeID, Value: value})
}

func TestApplyPassesUpdatesInOrder(t *testing.T) {
	w := &recordingWriter{}
	Apply(w, []Update{{"a", "1"}, {"a", "2"}})
	if len(w.writes) != 2 || w.writes[1].Value != "2" {
		t.Fatalf("unexpected writes %+v", w.writes)
	}
}

func TestGraphSetDerivedValueIgnoresInputs(t *testing.T) {
	g := &Graph{Nodes: []Node{input("in", "keep"), output("out")}}

	g.SetDerivedValue("in", "overwritten")
	g.SetDerivedValue("missing", "x")
	g.SetDerivedValue("out", "set")

	if g.FindNode("in").Value() != "keep" {
		t.Errorf("input value was overwritten")
	}
	if g.FindNode("out").Value() != "set" {
		t.Errorf("output value = %q, want %q", g.FindNode("out").Value(), "set")
	}
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	g := &Graph{
		Nodes: []Node{input("a", ""), output("b"), output("c")},
		Edges: []Edge{edge("a", "b"), edge("a", "c")},
	}

	if !g.RemoveNode("b") {
		t.Fatal("expected RemoveNode to report success")
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(g.Nodes))
	}
	if len(g.Edges) != 1 || g.Edges[0].Target != "c" {
		t.Fatalf("expected only a->c to remain, got %+v", g.Edges)
	}
	if g.RemoveNode("b") {
		t.Error("expected second RemoveNode to report false")
	}
}

func TestCloneIsDeep(t *testing.T) {
	g := &Graph{Nodes: []Node{input("a", "1")}, Edges: []Edge{edge("a", "b")}}
	cp := g.Clone()

	cp.Nodes[0].Data[FieldValue] = "2"
	cp.Edges[0].Target = "z"

	if g.Nodes[0].Value() != "1" {
		t.Error("clone shares node data with original")
	}
	if g.Edges[0].Target != "b" {
		t.Error("clone shares edges with original")
	}
}

func TestNewNodeDefaults(t *testing.T) {
	n := NewNode(KindOutput)
	if n.ID == "" {
		t.Fatal("expected generated id")
	}
	if n.Label() != "output" {
		t.Errorf("label = %q, want %q", n.Label(), "output")
	}
	if n.Position != (Position{X: 200, Y: 200}) {
		t.Errorf("position = %+v", n.Position)
	}
	if _, ok := n.Data[FieldDescription]; !ok {
		t.Error("expected description field to be present")
	}
	if NewNode(KindOutput).ID == n.ID {
		t.Error("expected distinct ids")
	}
}

func TestPropagateDuplicateIDResolvesFirstNode(t *testing.T) {
	nodes := []Node{
		input("src", "first"),
		input("src", "second"),
		output("dst"),
		output("dst"),
	}
	Propagate(nodes, []Edge{edge("src", "dst")})

	if got := nodes[2].Value(); got != "first" {
		t.Fatalf("first dst value = %q, want %q", got, "first")
	}
	if got := nodes[3].Value(); got != "" {
		t.Fatalf("second dst value = %q, want untouched", got)
	}
}
