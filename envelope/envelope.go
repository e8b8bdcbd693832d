// Package envelope defines the versioned, signed output record of one
// analysis call.
package envelope

import (
	"arcsight/attribute"
	"arcsight/cas"
	"arcsight/graph"
)

// Build constants. These are the only version identifiers an envelope
// carries; none of them vary at runtime.
const (
	AnalyzerVersion      = "1.0.0"
	SchemaVersion        = "2"
	RulepackVersion      = "base-1"
	SandboxPolicyVersion = "sandbox-1"
)

// Envelope status values.
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
	StatusSilent   = "silent"
	StatusError    = "error"
)

// Version identifies the analyzer build that produced an envelope.
type Version struct {
	Analyzer string `json:"analyzer"`
	Schema   string `json:"schema"`
	Rulepack string `json:"rulepack"`
}

// RootCause is the import edge responsible for closing a cycle.
type RootCause struct {
	From string `json:"from"`
	To   string `json:"to"`
	Line int    `json:"line"`
}

// CycleReport is one emitted cycle in canonical form.
type CycleReport struct {
	Canonical string    `json:"canonical"`
	Length    int       `json:"length"`
	RootCause RootCause `json:"root_cause"`
}

// Limits records the static analysis bounds in force.
type Limits struct {
	MaxCycleLength int `json:"max_cycle_length"`
	TimeoutSeconds int `json:"timeout_seconds"`
}

// Core holds the analysis result proper.
type Core struct {
	Cycles     []CycleReport `json:"cycles"`
	Status     string        `json:"status"`
	ErrorCode  string        `json:"error_code"`
	Confidence float64       `json:"confidence"`
	Limits     Limits        `json:"limits"`
	GraphStats graph.Stats   `json:"graph_stats"`
}

// Meta carries content-addressing data and the envelope signature.
type Meta struct {
	ConfigSnapshotHash   string `json:"config_snapshot_hash"`
	RepoFingerprint      string `json:"repo_fingerprint"`
	SandboxPolicyVersion string `json:"sandbox_policy_version"`
	Signature            string `json:"signature"`
}

// Envelope is the complete output record. Immutable after signing; never
// partially emitted.
type Envelope struct {
	Version    Version                `json:"version"`
	Identity   map[string]string      `json:"identity"`
	Core       Core                   `json:"core"`
	Extensions map[string]interface{} `json:"extensions"`
	Meta       Meta                   `json:"meta"`
}

// Input collects everything the builder needs for a success or degraded
// envelope.
type Input struct {
	Identity        map[string]string
	Cycles          []attribute.AttributedCycle
	Status          string
	Confidence      float64
	Stats           graph.Stats
	Limits          Limits
	ConfigHash      string
	RepoFingerprint string
}

// Build assembles an unsigned envelope. Cycle order follows the input,
// which attribution keeps in (length, canonical) order.
func Build(in Input) *Envelope {
	cycles := make([]CycleReport, len(in.Cycles))
	for i, ac := range in.Cycles {
		cycles[i] = CycleReport{
			Canonical: ac.Cycle.Canonical(),
			Length:    ac.Cycle.Len(),
			RootCause: RootCause{From: ac.Root.From, To: ac.Root.To, Line: ac.Root.Line},
		}
	}

	return &Envelope{
		Version:  buildVersion(),
		Identity: copyIdentity(in.Identity),
		Core: Core{
			Cycles:     cycles,
			Status:     in.Status,
			Confidence: in.Confidence,
			Limits:     in.Limits,
			GraphStats: in.Stats,
		},
		Extensions: map[string]interface{}{},
		Meta: Meta{
			ConfigSnapshotHash:   in.ConfigHash,
			RepoFingerprint:      in.RepoFingerprint,
			SandboxPolicyVersion: SandboxPolicyVersion,
		},
	}
}

// Silent assembles the constant no-signal envelope: empty cycle list,
// zeroed stats, zero confidence. Status and error code come from the
// safety switch; everything else that could vary is dropped.
func Silent(identity map[string]string, status, errorCode, configHash, repoFingerprint string, limits Limits) *Envelope {
	return &Envelope{
		Version:  buildVersion(),
		Identity: copyIdentity(identity),
		Core: Core{
			Cycles:    []CycleReport{},
			Status:    status,
			ErrorCode: errorCode,
			Limits:    limits,
		},
		Extensions: map[string]interface{}{},
		Meta: Meta{
			ConfigSnapshotHash:   configHash,
			RepoFingerprint:      repoFingerprint,
			SandboxPolicyVersion: SandboxPolicyVersion,
		},
	}
}

func buildVersion() Version {
	return Version{
		Analyzer: AnalyzerVersion,
		Schema:   SchemaVersion,
		Rulepack: RulepackVersion,
	}
}

// copyIdentity copies the caller's identity verbatim. The copy keeps the
// envelope independent of later caller mutation.
func copyIdentity(identity map[string]string) map[string]string {
	out := make(map[string]string, len(identity))
	for k, v := range identity {
		out[k] = v
	}
	return out
}

// Sign computes and stores the envelope signature: the BLAKE3 hex digest of
// the canonical JSON of the envelope with the signature field empty. Two
// envelopes with identical canonical content always sign identically.
func Sign(e *Envelope) error {
	sig, err := signature(e)
	if err != nil {
		return err
	}
	e.Meta.Signature = sig
	return nil
}

// Verify recomputes the signature and compares it to the stored one.
func Verify(e *Envelope) (bool, error) {
	sig, err := signature(e)
	if err != nil {
		return false, err
	}
	return sig == e.Meta.Signature, nil
}

func signature(e *Envelope) (string, error) {
	unsigned := *e
	unsigned.Meta.Signature = ""

	data, err := cas.CanonicalJSON(&unsigned)
	if err != nil {
		return "", err
	}
	return cas.Blake3HashHex(data), nil
}

// CanonicalJSON serializes the signed envelope in canonical form. This is
// the byte representation callers compare and archive.
func (e *Envelope) CanonicalJSON() ([]byte, error) {
	return cas.CanonicalJSON(e)
}
