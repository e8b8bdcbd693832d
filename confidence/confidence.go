// Package confidence scores repository analyzability and gates emission.
//
// The evaluator sees only aggregate statistics. It has no access to cycles,
// edges, or diff content, so its output cannot depend on them.
package confidence

import (
	"math"

	"github.com/bmatcuk/doublestar/v4"
)

// Thresholds for the emission gate.
const (
	MinScore       = 0.8
	MinSourceFiles = 10
)

// Stats are the evaluator's only inputs: segmentation quality, file count,
// alias-resolution success, and the monorepo flag.
type Stats struct {
	SourceFiles int  `json:"source_files"`
	Parsed      int  `json:"parsed"`
	Considered  int  `json:"considered"`
	Resolved    int  `json:"resolved"`
	Monorepo    bool `json:"monorepo"`
}

// Score computes the confidence score in [0,1]:
//
//	0.5*parseRatio + 0.3*resolveRatio + 0.2*min(1, sourceFiles/50)
//
// With no considered imports the resolve ratio is vacuously 1. Rounded to
// 4 decimals for stable serialization.
func Score(s Stats) float64 {
	parseRatio := 0.0
	if s.SourceFiles > 0 {
		parseRatio = float64(s.Parsed) / float64(s.SourceFiles)
	}

	resolveRatio := 1.0
	if s.Considered > 0 {
		resolveRatio = float64(s.Resolved) / float64(s.Considered)
	}

	sizeFactor := math.Min(1, float64(s.SourceFiles)/50)

	score := 0.5*parseRatio + 0.3*resolveRatio + 0.2*sizeFactor
	score = math.Max(0, math.Min(1, score))
	return math.Round(score*10000) / 10000
}

// Gate reports whether emission is allowed: score at or above the
// threshold, enough source files, not a monorepo, and every considered
// import resolved unambiguously.
func Gate(s Stats) bool {
	return Score(s) >= MinScore &&
		s.SourceFiles >= MinSourceFiles &&
		!s.Monorepo &&
		s.Resolved == s.Considered
}

// IsMonorepo is the default monorepo predicate: package manifests present
// in more than one distinct directory. Manifest paths are matched against
// the configured globs (default ["package.json"], which matches the root
// manifest only; "**/package.json" widens the net).
func IsMonorepo(paths []string, manifestGlobs []string) bool {
	dirs := make(map[string]bool)

	for _, p := range paths {
		for _, g := range manifestGlobs {
			ok, err := doublestar.Match(g, p)
			if err != nil || !ok {
				continue
			}
			dirs[parentDir(p)] = true
			break
		}
	}

	return len(dirs) > 1
}

func parentDir(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return "."
}
