package detect

import (
	"testing"

	"arcsight/graph"
)

func cyclic(nodes ...string) []graph.Edge {
	edges := make([]graph.Edge, len(nodes))
	for i, from := range nodes {
		edges[i] = graph.Edge{From: from, To: nodes[(i+1)%len(nodes)]}
	}
	return edges
}

func TestCycles_TwoNode(t *testing.T) {
	g := graph.New(cyclic("a.ts", "b.ts"))

	cycles := Cycles(g)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d: %+v", len(cycles), cycles)
	}
	if got := cycles[0].Canonical(); got != "a.ts -> b.ts" {
		t.Errorf("canonical = %q, want %q", got, "a.ts -> b.ts")
	}
}

func TestCycles_ThreeNode(t *testing.T) {
	// Edges c -> a -> b -> c; the canonical rotation starts at a.
	g := graph.New(cyclic("c.ts", "a.ts", "b.ts"))

	cycles := Cycles(g)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if got := cycles[0].Canonical(); got != "a.ts -> b.ts -> c.ts" {
		t.Errorf("canonical = %q, want %q", got, "a.ts -> b.ts -> c.ts")
	}
}

func TestCycles_LongCyclesExcluded(t *testing.T) {
	five := graph.New(cyclic("a", "b", "c", "d", "e"))
	if got := Cycles(five); len(got) != 1 {
		t.Errorf("5-cycle should be detected, got %d cycles", len(got))
	}

	six := graph.New(cyclic("a", "b", "c", "d", "e", "f"))
	if got := Cycles(six); len(got) != 0 {
		t.Errorf("6-cycle should be excluded, got %d cycles", len(got))
	}
}

func TestCycles_SelfLoopExcluded(t *testing.T) {
	g := graph.New([]graph.Edge{{From: "a", To: "a"}})
	if got := Cycles(g); len(got) != 0 {
		t.Errorf("self-loop should not be a cycle, got %d", len(got))
	}
}

func TestCycles_Acyclic(t *testing.T) {
	g := graph.New([]graph.Edge{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
		{From: "a", To: "c"},
	})
	if got := Cycles(g); len(got) != 0 {
		t.Errorf("acyclic graph yielded cycles: %+v", got)
	}
}

func TestCycles_MultiEdgeMerged(t *testing.T) {
	g := graph.New([]graph.Edge{
		{From: "a", To: "b", Line: 1},
		{From: "a", To: "b", Line: 7},
		{From: "b", To: "a", Line: 2},
	})

	cycles := Cycles(g)
	if len(cycles) != 1 {
		t.Errorf("duplicate edges should merge into one cycle, got %d", len(cycles))
	}
}

func TestCycles_SortLaw(t *testing.T) {
	// One 3-cycle among late-sorting names, one 2-cycle among early ones:
	// shorter sorts first regardless of content.
	edges := append(cyclic("x", "y", "z"), cyclic("a", "b")...)
	g := graph.New(edges)

	cycles := Cycles(g)
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycles))
	}
	if cycles[0].Canonical() != "a -> b" {
		t.Errorf("shorter cycle should sort first, got %q", cycles[0].Canonical())
	}
	if cycles[1].Canonical() != "x -> y -> z" {
		t.Errorf("second cycle = %q, want %q", cycles[1].Canonical(), "x -> y -> z")
	}
}

func TestCycles_OverlappingCycles(t *testing.T) {
	// a <-> b and a -> b -> c -> a share the edge a -> b.
	g := graph.New([]graph.Edge{
		{From: "a", To: "b"},
		{From: "b", To: "a"},
		{From: "b", To: "c"},
		{From: "c", To: "a"},
	})

	cycles := Cycles(g)
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d: %+v", len(cycles), cycles)
	}
	if cycles[0].Canonical() != "a -> b" || cycles[1].Canonical() != "a -> b -> c" {
		t.Errorf("unexpected cycles: %q, %q", cycles[0].Canonical(), cycles[1].Canonical())
	}
}

func TestCycles_Deterministic(t *testing.T) {
	g := graph.New([]graph.Edge{
		{From: "m", To: "n"},
		{From: "n", To: "m"},
		{From: "p", To: "q"},
		{From: "q", To: "r"},
		{From: "r", To: "p"},
		{From: "n", To: "p"},
	})

	var previous string
	for i := 0; i < 5; i++ {
		var joined string
		for _, c := range Cycles(g) {
			joined += c.Canonical() + ";"
		}
		if previous != "" && joined != previous {
			t.Fatalf("non-deterministic cycle list: %q vs %q", joined, previous)
		}
		previous = joined
	}
}

func TestCanonicalize_RotationInvariance(t *testing.T) {
	rotations := [][]string{
		{"b", "c", "a"},
		{"c", "a", "b"},
		{"a", "b", "c"},
	}

	for _, r := range rotations {
		if got := Canonicalize(r).Canonical(); got != "a -> b -> c" {
			t.Errorf("Canonicalize(%v) = %q, want %q", r, got, "a -> b -> c")
		}
	}
}

func TestCycle_Edges(t *testing.T) {
	c := Cycle{Nodes: []string{"a", "b", "c"}}
	edges := c.Edges()

	want := [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}
	if len(edges) != len(want) {
		t.Fatalf("expected %d edges, got %d", len(want), len(edges))
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edges[%d] = %v, want %v", i, edges[i], want[i])
		}
	}
}
