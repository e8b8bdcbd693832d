// Package engine orchestrates one analysis call: canonicalization, graph
// construction, cycle detection, attribution, confidence gating, and
// envelope assembly under the safety switch.
//
// Analyze never returns an error and never panics outward. Every failure
// maps to a safety code and a silent or error envelope.
package engine

import (
	"errors"
	"time"

	"arcsight/attribute"
	"arcsight/confidence"
	"arcsight/config"
	"arcsight/detect"
	"arcsight/envelope"
	"arcsight/graph"
	"arcsight/safety"
	"arcsight/snapshot"
)

// Input is everything one analysis call consumes. The engine owns all
// derived structures for the duration of the call; nothing persists.
type Input struct {
	Identity map[string]string
	Config   config.AnalyzerConfig

	Head []snapshot.File
	Base []snapshot.File // nil when no base revision is available

	Diff  *attribute.PRDiff    // nil when no diff is available
	Prior []attribute.Reported // cycles already reported on this PR
}

// Options carries call-scoped knobs that are not analysis configuration.
// Now, when set, is consulted between pipeline stages to enforce the
// wall-clock budget; a nil Now disables the timeout and keeps the engine
// free of clock access.
type Options struct {
	Now func() time.Time
}

// Analyze runs the full pipeline and returns a signed envelope.
func Analyze(in Input, opts Options) (env *envelope.Envelope) {
	sw := safety.NewSwitch()
	limits := envelope.Limits{
		MaxCycleLength: in.Config.MaxCycleLength,
		TimeoutSeconds: in.Config.TimeoutSeconds,
	}

	defer func() {
		if r := recover(); r != nil {
			sw.Trip(safety.CodeInternalError)
			env = collapse(sw, in.Identity, "", "", limits)
		}
	}()

	configHash, err := in.Config.Hash()
	if err != nil {
		sw.Trip(safety.CodeInternalError)
		return collapse(sw, in.Identity, "", "", limits)
	}

	overBudget := deadline(opts, in.Config.TimeoutSeconds)

	head, err := snapshot.Canonicalize(in.Head)
	if err != nil {
		sw.Trip(safety.CodeCanonicalizationCollision)
		return collapse(sw, in.Identity, configHash, "", limits)
	}
	fingerprint := head.Fingerprint()

	var baseSnap *snapshot.Snapshot
	if in.Base != nil {
		baseSnap, err = snapshot.Canonicalize(in.Base)
		if err != nil {
			sw.Trip(safety.CodeCanonicalizationCollision)
			return collapse(sw, in.Identity, configHash, fingerprint, limits)
		}
	}
	if overBudget() {
		sw.Trip(safety.CodeTimeoutExceeded)
		return collapse(sw, in.Identity, configHash, fingerprint, limits)
	}

	builder := graph.NewBuilder(in.Config.Aliases)
	headGraph, res, err := builder.Build(head)
	if err != nil {
		sw.Trip(buildFailureCode(err))
		return collapse(sw, in.Identity, configHash, fingerprint, limits)
	}

	var baseCycles []detect.Cycle
	if baseSnap != nil {
		baseGraph, _, err := builder.Build(baseSnap)
		if err != nil {
			sw.Trip(buildFailureCode(err))
			return collapse(sw, in.Identity, configHash, fingerprint, limits)
		}
		baseCycles = detect.Cycles(baseGraph)
	}
	if overBudget() {
		sw.Trip(safety.CodeTimeoutExceeded)
		return collapse(sw, in.Identity, configHash, fingerprint, limits)
	}

	headCycles := detect.Cycles(headGraph)
	if overBudget() {
		sw.Trip(safety.CodeTimeoutExceeded)
		return collapse(sw, in.Identity, configHash, fingerprint, limits)
	}

	stats := confidence.Stats{
		SourceFiles: res.SourceFiles,
		Parsed:      res.Parsed,
		Considered:  res.Considered,
		Resolved:    res.Resolved,
		Monorepo:    confidence.IsMonorepo(head.Paths(), in.Config.ManifestGlobs),
	}
	score := confidence.Score(stats)
	if !confidence.Gate(stats) {
		sw.Trip(safety.CodeLowConfidence)
		return collapse(sw, in.Identity, configHash, fingerprint, limits)
	}

	status := envelope.StatusSuccess
	var attributed []attribute.AttributedCycle
	if in.Diff == nil {
		// Nothing is attributable without a diff; report structure only.
		status = envelope.StatusDegraded
	} else {
		attributed = attribute.Attribute(baseCycles, headCycles, headGraph, *in.Diff, in.Prior)
		if len(attributed) == 0 {
			status = envelope.StatusSilent
		}
	}
	if overBudget() {
		sw.Trip(safety.CodeTimeoutExceeded)
		return collapse(sw, in.Identity, configHash, fingerprint, limits)
	}

	out := envelope.Build(envelope.Input{
		Identity:        in.Identity,
		Cycles:          attributed,
		Status:          status,
		Confidence:      score,
		Stats:           headGraph.Stats(),
		Limits:          limits,
		ConfigHash:      configHash,
		RepoFingerprint: fingerprint,
	})
	if err := envelope.Sign(out); err != nil {
		sw.Trip(safety.CodeInternalError)
		return collapse(sw, in.Identity, configHash, fingerprint, limits)
	}
	return out
}

// collapse produces the signed no-signal envelope for a tripped switch.
func collapse(sw *safety.Switch, identity map[string]string, configHash, fingerprint string, limits envelope.Limits) *envelope.Envelope {
	env := envelope.Silent(identity, sw.Status(), string(sw.Code()), configHash, fingerprint, limits)
	// Signing a silent envelope cannot fail: every field is a plain value.
	_ = envelope.Sign(env)
	return env
}

// buildFailureCode maps graph construction failures to safety codes.
func buildFailureCode(err error) safety.Code {
	if errors.Is(err, graph.ErrAliasAmbiguous) {
		return safety.CodeAliasAmbiguous
	}
	return safety.CodeGraphIncomplete
}

// deadline returns a predicate reporting whether the wall-clock budget is
// spent. Without an injected clock the budget is never spent.
func deadline(opts Options, timeoutSeconds int) func() bool {
	if opts.Now == nil {
		return func() bool { return false }
	}
	start := opts.Now()
	budget := time.Duration(timeoutSeconds) * time.Second
	return func() bool {
		return opts.Now().Sub(start) > budget
	}
}
