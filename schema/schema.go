// Package schema upgrades older envelope and config shapes to the current
// version. Upgrades are additive chains of pure per-version steps; there is
// no downgrade.
package schema

import (
	"errors"
	"fmt"
)

// ErrNoPath reports a missing upgrade step for a requested version pair.
var ErrNoPath = errors.New("schema: no upgrade path")

// Kind selects the object family an adapter operates on.
type Kind string

const (
	KindEnvelope Kind = "envelope"
	KindConfig   Kind = "config"
)

// Step upgrades an object by exactly one version. Steps must not mutate
// their input; each returns a fresh object.
type Step func(obj map[string]interface{}) (map[string]interface{}, error)

type stepKey struct {
	kind Kind
	from int
	to   int
}

// Registry holds the registered upgrade steps.
type Registry struct {
	steps map[stepKey]Step
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[stepKey]Step)}
}

// Register adds a single-version step. Registering the same pair twice
// replaces the earlier step.
func (r *Registry) Register(kind Kind, from, to int, step Step) {
	r.steps[stepKey{kind: kind, from: from, to: to}] = step
}

// Upgrade composes the registered steps from one version to another, in
// version order. Equal versions return the object unchanged. A gap in the
// chain fails with ErrNoPath before any step runs.
func (r *Registry) Upgrade(kind Kind, obj map[string]interface{}, from, to int) (map[string]interface{}, error) {
	if from > to {
		return nil, fmt.Errorf("%w: downgrade %s v%d to v%d", ErrNoPath, kind, from, to)
	}

	for v := from; v < to; v++ {
		if _, ok := r.steps[stepKey{kind: kind, from: v, to: v + 1}]; !ok {
			return nil, fmt.Errorf("%w: %s v%d to v%d", ErrNoPath, kind, v, v+1)
		}
	}

	for v := from; v < to; v++ {
		step := r.steps[stepKey{kind: kind, from: v, to: v + 1}]
		next, err := step(obj)
		if err != nil {
			return nil, err
		}
		obj = next
	}

	return obj, nil
}

// Default returns the registry with all known steps.
func Default() *Registry {
	r := NewRegistry()
	r.Register(KindEnvelope, 1, 2, envelopeV1toV2)
	r.Register(KindConfig, 1, 2, configV1toV2)
	return r
}
