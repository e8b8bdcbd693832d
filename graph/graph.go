// Package graph builds the directed import graph of a canonical snapshot.
package graph

import (
	"math"
	"sort"
)

// Edge is a resolved import: from file, to file, the 1-based line of the
// import statement, and whether the import is type-only. Type-only edges are
// recorded during extraction but never enter the adjacency structure.
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Line     int    `json:"line"`
	TypeOnly bool   `json:"typeOnly"`
}

// Graph maps each node to its sorted outgoing edges. Immutable once built;
// downstream stages only read it.
type Graph struct {
	nodes []string
	adj   map[string][]Edge
}

// New builds a graph from explicit edges. Nodes are the union of edge
// endpoints plus extraNodes; adjacency lists are sorted by (target, line).
func New(edges []Edge, extraNodes ...string) *Graph {
	nodeSet := make(map[string]bool)
	adj := make(map[string][]Edge)

	for _, n := range extraNodes {
		nodeSet[n] = true
	}
	for _, e := range edges {
		nodeSet[e.From] = true
		nodeSet[e.To] = true
		adj[e.From] = append(adj[e.From], e)
	}

	nodes := make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	for from := range adj {
		sortEdges(adj[from])
	}

	return &Graph{nodes: nodes, adj: adj}
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].Line < edges[j].Line
	})
}

// Nodes returns all node paths in sorted order.
func (g *Graph) Nodes() []string {
	return g.nodes
}

// Edges returns the sorted outgoing edges of a node.
func (g *Graph) Edges(from string) []Edge {
	return g.adj[from]
}

// Edge reports whether an edge from → to exists and returns the first
// (lowest-line) occurrence.
func (g *Graph) Edge(from, to string) (Edge, bool) {
	for _, e := range g.adj[from] {
		if e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, edges := range g.adj {
		total += len(edges)
	}
	return total
}

// Stats summarizes graph structure. Computed purely from node and edge
// counts, independent of traversal order.
type Stats struct {
	NodeCount int     `json:"node_count"`
	EdgeCount int     `json:"edge_count"`
	AvgFanOut float64 `json:"avg_fan_out"`
}

// Stats computes the structural statistics of the graph. Average fan-out is
// rounded to 4 decimals for stable serialization.
func (g *Graph) Stats() Stats {
	nodes := len(g.nodes)
	edges := g.EdgeCount()

	fanOut := 0.0
	if nodes > 0 {
		fanOut = math.Round(float64(edges)/float64(nodes)*10000) / 10000
	}

	return Stats{
		NodeCount: nodes,
		EdgeCount: edges,
		AvgFanOut: fanOut,
	}
}
