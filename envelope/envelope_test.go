package envelope

import (
	"bytes"
	"testing"

	"arcsight/attribute"
	"arcsight/detect"
	"arcsight/graph"
)

func sampleInput() Input {
	return Input{
		Identity: map[string]string{"repo": "acme/web", "revision": "abc123"},
		Cycles: []attribute.AttributedCycle{
			{
				Cycle: detect.Cycle{Nodes: []string{"a.ts", "b.ts"}},
				Root:  graph.Edge{From: "a.ts", To: "b.ts", Line: 3},
			},
		},
		Status:          StatusSuccess,
		Confidence:      0.92,
		Stats:           graph.Stats{NodeCount: 12, EdgeCount: 20, AvgFanOut: 1.6667},
		Limits:          Limits{MaxCycleLength: 5, TimeoutSeconds: 7},
		ConfigHash:      "cfg-hash",
		RepoFingerprint: "repo-fp",
	}
}

func TestBuild(t *testing.T) {
	e := Build(sampleInput())

	if e.Version.Analyzer != AnalyzerVersion || e.Version.Schema != SchemaVersion {
		t.Errorf("unexpected version: %+v", e.Version)
	}
	if e.Identity["repo"] != "acme/web" {
		t.Errorf("identity not copied: %+v", e.Identity)
	}
	if len(e.Core.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(e.Core.Cycles))
	}

	c := e.Core.Cycles[0]
	if c.Canonical != "a.ts -> b.ts" || c.Length != 2 {
		t.Errorf("unexpected cycle report: %+v", c)
	}
	if c.RootCause.From != "a.ts" || c.RootCause.Line != 3 {
		t.Errorf("unexpected root cause: %+v", c.RootCause)
	}
	if e.Meta.SandboxPolicyVersion != SandboxPolicyVersion {
		t.Errorf("sandbox policy version = %q", e.Meta.SandboxPolicyVersion)
	}
}

func TestBuild_IdentityCopied(t *testing.T) {
	identity := map[string]string{"repo": "acme/web"}
	e := Build(Input{Identity: identity, Status: StatusSuccess})

	identity["repo"] = "mutated"
	if e.Identity["repo"] != "acme/web" {
		t.Error("envelope identity follows caller mutation")
	}
}

func TestSign_Deterministic(t *testing.T) {
	var previous string
	for i := 0; i < 3; i++ {
		e := Build(sampleInput())
		if err := Sign(e); err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		if e.Meta.Signature == "" {
			t.Fatal("empty signature")
		}
		if previous != "" && e.Meta.Signature != previous {
			t.Fatalf("non-deterministic signature: %s vs %s", e.Meta.Signature, previous)
		}
		previous = e.Meta.Signature
	}
}

func TestSign_SensitiveToContent(t *testing.T) {
	a := Build(sampleInput())
	if err := Sign(a); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	in := sampleInput()
	in.Confidence = 0.91
	b := Build(in)
	if err := Sign(b); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if a.Meta.Signature == b.Meta.Signature {
		t.Error("different content produced the same signature")
	}
}

func TestVerify(t *testing.T) {
	e := Build(sampleInput())
	if err := Sign(e); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	ok, err := Verify(e)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Error("freshly signed envelope did not verify")
	}

	e.Core.Status = StatusDegraded
	ok, err = Verify(e)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Error("tampered envelope verified")
	}
}

func TestSilent(t *testing.T) {
	limits := Limits{MaxCycleLength: 5, TimeoutSeconds: 7}
	e := Silent(map[string]string{"repo": "acme/web"}, StatusSilent, "ALIAS_AMBIGUOUS", "cfg", "fp", limits)

	if e.Core.Status != StatusSilent || e.Core.ErrorCode != "ALIAS_AMBIGUOUS" {
		t.Errorf("unexpected core: %+v", e.Core)
	}
	if len(e.Core.Cycles) != 0 {
		t.Errorf("silent envelope carries cycles: %+v", e.Core.Cycles)
	}
	if e.Core.Confidence != 0 {
		t.Errorf("silent envelope confidence = %v, want 0", e.Core.Confidence)
	}
	if e.Core.GraphStats.NodeCount != 0 || e.Core.GraphStats.EdgeCount != 0 {
		t.Errorf("silent envelope carries stats: %+v", e.Core.GraphStats)
	}
}

func TestSilent_IdenticalInputsSignIdentically(t *testing.T) {
	limits := Limits{MaxCycleLength: 5, TimeoutSeconds: 7}
	a := Silent(nil, StatusError, "INTERNAL_ERROR", "", "", limits)
	b := Silent(nil, StatusError, "INTERNAL_ERROR", "", "", limits)
	if err := Sign(a); err != nil {
		t.Fatal(err)
	}
	if err := Sign(b); err != nil {
		t.Fatal(err)
	}
	if a.Meta.Signature != b.Meta.Signature {
		t.Error("identical error envelopes signed differently")
	}
}

func TestCanonicalJSON_Stable(t *testing.T) {
	e := Build(sampleInput())
	if err := Sign(e); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	first, err := e.CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := e.CanonicalJSON()
		if err != nil {
			t.Fatalf("CanonicalJSON failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("canonical serialization varied across calls")
		}
	}
}
