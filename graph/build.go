package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"arcsight/parse"
	"arcsight/snapshot"
)

// ErrAliasAmbiguous reports an import specifier resolving to more than one
// existing snapshot path. The builder never guesses between candidates.
var ErrAliasAmbiguous = errors.New("graph: ambiguous import resolution")

// AliasRule maps a specifier pattern to a path template, tsconfig-paths
// style. Pattern and Target each contain at most one "*"; the matched
// wildcard text substitutes into the target.
type AliasRule struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Target  string `json:"target" yaml:"target"`
}

// Resolution counts extraction and resolution outcomes across one build.
// These are the only inputs the confidence evaluator sees.
type Resolution struct {
	SourceFiles int // parseable files in the snapshot
	Parsed      int // files whose tree had no syntax errors
	Considered  int // relative or alias-matched specifiers
	Resolved    int // considered specifiers with exactly one candidate
	Unresolved  int // considered specifiers with zero candidates
}

// Builder turns a canonical snapshot into an import graph.
type Builder struct {
	parser  *parse.Parser
	aliases []AliasRule
}

// NewBuilder creates a builder with a fixed alias map. Rule order is
// significant only for reproducibility; all matching rules are probed.
func NewBuilder(aliases []AliasRule) *Builder {
	return &Builder{
		parser:  parse.NewParser(),
		aliases: aliases,
	}
}

// Build extracts and resolves imports for every source file in the snapshot.
// Type-only imports are excluded from the graph. A specifier resolving to
// more than one existing path aborts with ErrAliasAmbiguous; a specifier
// resolving to none is dropped and counted as unresolved. Bare external
// specifiers are ignored entirely.
func (b *Builder) Build(snap *snapshot.Snapshot) (*Graph, Resolution, error) {
	var res Resolution
	var edges []Edge
	var sourceNodes []string

	for _, f := range snap.Files() {
		if !parse.IsSourceFile(f.Path) {
			continue
		}
		res.SourceFiles++
		sourceNodes = append(sourceNodes, f.Path)

		parsed, err := b.parser.File(f.Path, f.Content)
		if err != nil {
			continue
		}
		if !parsed.HasError {
			res.Parsed++
		}

		for _, imp := range parsed.Imports {
			if imp.TypeOnly {
				continue
			}

			target, outcome, err := b.resolve(snap, f.Path, imp.Source)
			if err != nil {
				return nil, res, err
			}

			switch outcome {
			case resolvedOne:
				res.Considered++
				res.Resolved++
				if target != f.Path { // self-imports carry no cycle information
					edges = append(edges, Edge{From: f.Path, To: target, Line: imp.Line})
				}
			case resolvedNone:
				res.Considered++
				res.Unresolved++
			case notConsidered:
				// bare external specifier
			}
		}
	}

	return New(edges, sourceNodes...), res, nil
}

type resolveOutcome int

const (
	notConsidered resolveOutcome = iota
	resolvedNone
	resolvedOne
)

// resolve maps a specifier to an existing snapshot path. Relative
// specifiers resolve against the importing file's directory; others are
// probed against every matching alias rule. All existing candidates across
// rules and extension probing are collected; more than one distinct
// candidate is ambiguous.
func (b *Builder) resolve(snap *snapshot.Snapshot, fromPath, source string) (string, resolveOutcome, error) {
	var bases []string

	if parse.IsRelative(source) {
		base := parse.ResolveRelative(fromPath, source)
		if base == "" {
			return "", resolvedNone, nil
		}
		bases = []string{base}
	} else {
		for _, rule := range b.aliases {
			if target, ok := applyAlias(rule, source); ok {
				bases = append(bases, target)
			}
		}
		if len(bases) == 0 {
			return "", notConsidered, nil
		}
	}

	candidates := make(map[string]bool)
	for _, base := range bases {
		for _, p := range parse.PossibleFilePaths(base) {
			if snap.Has(p) {
				candidates[p] = true
			}
		}
	}

	switch len(candidates) {
	case 0:
		return "", resolvedNone, nil
	case 1:
		for p := range candidates {
			return p, resolvedOne, nil
		}
	}

	paths := make([]string, 0, len(candidates))
	for p := range candidates {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return "", resolvedNone, fmt.Errorf("%w: %q in %s matches %v", ErrAliasAmbiguous, source, fromPath, paths)
}

// applyAlias matches a specifier against one rule and substitutes the
// wildcard into the target. A rule without "*" matches exactly.
func applyAlias(rule AliasRule, source string) (string, bool) {
	star := strings.Index(rule.Pattern, "*")
	if star < 0 {
		if source == rule.Pattern {
			return rule.Target, true
		}
		return "", false
	}

	prefix, suffix := rule.Pattern[:star], rule.Pattern[star+1:]
	if len(source) < len(prefix)+len(suffix) ||
		!strings.HasPrefix(source, prefix) || !strings.HasSuffix(source, suffix) {
		return "", false
	}

	matched := source[len(prefix) : len(source)-len(suffix)]
	return strings.Replace(rule.Target, "*", matched, 1), true
}
