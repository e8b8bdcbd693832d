// Package detect enumerates simple import cycles in canonical form.
package detect

import (
	"sort"
	"strings"

	"arcsight/graph"
)

// Separator joins cycle nodes into the canonical string.
const Separator = " -> "

// Cycle length bounds. Longer cycles are excluded entirely, not truncated.
const (
	MinLen = 2
	MaxLen = 5
)

// Cycle is a closed import loop. Nodes holds the canonical rotation: the
// lexicographically smallest node first, then cycle order.
type Cycle struct {
	Nodes []string `json:"nodes"`
}

// Canonical returns the canonical string form. Two cycles are equal iff
// their canonical forms are equal.
func (c Cycle) Canonical() string {
	return strings.Join(c.Nodes, Separator)
}

// Len returns the number of nodes in the cycle.
func (c Cycle) Len() int {
	return len(c.Nodes)
}

// Edges returns the directed edges of the cycle in canonical order,
// including the closing edge back to the first node.
func (c Cycle) Edges() [][2]string {
	edges := make([][2]string, len(c.Nodes))
	for i, from := range c.Nodes {
		edges[i] = [2]string{from, c.Nodes[(i+1)%len(c.Nodes)]}
	}
	return edges
}

// Canonicalize rotates a node sequence so the lexicographically smallest
// node comes first. The input must already be a valid simple cycle.
func Canonicalize(nodes []string) Cycle {
	if len(nodes) == 0 {
		return Cycle{}
	}

	smallest := 0
	for i, n := range nodes {
		if n < nodes[smallest] {
			smallest = i
		}
	}

	rotated := make([]string, len(nodes))
	for i := range nodes {
		rotated[i] = nodes[(smallest+i)%len(nodes)]
	}
	return Cycle{Nodes: rotated}
}

// Cycles finds all simple cycles of length 2 to 5. The search seeds a
// depth-first walk from each node in sorted order and only visits nodes
// greater than the seed, so every cycle is discovered exactly once with its
// smallest node first: the result is canonically rotated by construction.
// Output is sorted by (length ascending, canonical string ascending).
func Cycles(g *graph.Graph) []Cycle {
	var found []Cycle
	seen := make(map[string]bool)

	for _, seed := range g.Nodes() {
		path := []string{seed}
		onPath := map[string]bool{seed: true}
		walk(g, seed, path, onPath, func(cycle []string) {
			c := Cycle{Nodes: append([]string(nil), cycle...)}
			key := c.Canonical()
			if !seen[key] {
				seen[key] = true
				found = append(found, c)
			}
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if len(found[i].Nodes) != len(found[j].Nodes) {
			return len(found[i].Nodes) < len(found[j].Nodes)
		}
		return found[i].Canonical() < found[j].Canonical()
	})

	return found
}

// walk extends the current path by each outgoing edge of its tip. Closing
// back to the seed with at least two nodes yields a cycle; nodes at or
// below the seed are out of bounds for this walk.
func walk(g *graph.Graph, seed string, path []string, onPath map[string]bool, emit func([]string)) {
	tip := path[len(path)-1]
	prev := ""

	for _, e := range g.Edges(tip) {
		if e.To == prev { // adjacency is sorted by target; skip multi-edges
			continue
		}
		prev = e.To

		if e.To == seed {
			if len(path) >= MinLen {
				emit(path)
			}
			continue
		}
		if e.To < seed || onPath[e.To] || len(path) == MaxLen {
			continue
		}

		onPath[e.To] = true
		walk(g, seed, append(path, e.To), onPath, emit)
		delete(onPath, e.To)
	}
}
