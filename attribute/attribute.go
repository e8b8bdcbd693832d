// Package attribute filters new cycles against a PR diff and selects the
// root-cause edge for each emittable cycle.
package attribute

import (
	"arcsight/detect"
	"arcsight/graph"
)

// LineRef identifies one line of one file.
type LineRef struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

// PRDiff is the change surface of a pull request: the changed files and the
// import lines the diff added.
type PRDiff struct {
	ChangedFiles     map[string]bool
	AddedImportLines map[LineRef]bool
}

// Changed reports whether a path is in the changed-files set.
func (d PRDiff) Changed(path string) bool {
	return d.ChangedFiles[path]
}

// Added reports whether an import line was newly added by the diff.
func (d PRDiff) Added(path string, line int) bool {
	return d.AddedImportLines[LineRef{Path: path, Line: line}]
}

// Reported is a prior-report record: a cycle already surfaced on this PR
// with a specific root-cause edge. Re-detection of the same pair is
// suppressed; a different root-cause edge re-qualifies the cycle.
type Reported struct {
	Canonical string `json:"canonical"`
	RootFrom  string `json:"root_from"`
	RootTo    string `json:"root_to"`
}

// AttributedCycle is an emittable cycle plus the edge responsible for
// closing it.
type AttributedCycle struct {
	Cycle detect.Cycle `json:"cycle"`
	Root  graph.Edge   `json:"root"`
}

// Attribute computes the emittable cycles of a change. A head cycle is new
// if its canonical form is absent from the base set. A new cycle is
// attributable only if some node is a changed file and some cycle edge
// corresponds to a newly added import line in a changed file; that edge is
// the root cause. When several edges qualify, the one with the smallest
// (from, to) wins. Cycles matching a prior report with the same root edge
// are suppressed. Non-attributable cycles are dropped, never surfaced.
func Attribute(base, head []detect.Cycle, g *graph.Graph, diff PRDiff, prior []Reported) []AttributedCycle {
	baseSet := make(map[string]bool, len(base))
	for _, c := range base {
		baseSet[c.Canonical()] = true
	}

	priorSet := make(map[Reported]bool, len(prior))
	for _, r := range prior {
		priorSet[r] = true
	}

	var out []AttributedCycle
	for _, c := range head {
		canonical := c.Canonical()
		if baseSet[canonical] {
			continue
		}
		if !touchesChangedFile(c, diff) {
			continue
		}

		root, ok := rootCauseEdge(c, g, diff)
		if !ok {
			continue
		}
		if priorSet[Reported{Canonical: canonical, RootFrom: root.From, RootTo: root.To}] {
			continue
		}

		out = append(out, AttributedCycle{Cycle: c, Root: root})
	}

	return out
}

func touchesChangedFile(c detect.Cycle, diff PRDiff) bool {
	for _, n := range c.Nodes {
		if diff.Changed(n) {
			return true
		}
	}
	return false
}

// rootCauseEdge finds the qualifying edge with the smallest (from, to).
// Cycle edges are walked in canonical order; graph adjacency supplies the
// import line numbers checked against the diff. A multi-edge qualifies on
// its smallest added line.
func rootCauseEdge(c detect.Cycle, g *graph.Graph, diff PRDiff) (graph.Edge, bool) {
	var best graph.Edge
	found := false

	for _, pair := range c.Edges() {
		from, to := pair[0], pair[1]
		if !diff.Changed(from) {
			continue
		}

		for _, e := range g.Edges(from) {
			if e.To != to || !diff.Added(e.From, e.Line) {
				continue
			}
			if !found || less(e, best) {
				best = e
				found = true
			}
			break // adjacency sorted by (to, line): first hit is the smallest line
		}
	}

	return best, found
}

func less(a, b graph.Edge) bool {
	if a.From != b.From {
		return a.From < b.From
	}
	return a.To < b.To
}
