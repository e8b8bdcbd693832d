package report

import (
	"errors"
	"path/filepath"
	"testing"

	"arcsight/attribute"
	"arcsight/envelope"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "report.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func signedEnvelope(t *testing.T, status string) *envelope.Envelope {
	t.Helper()
	env := envelope.Build(envelope.Input{
		Identity: map[string]string{"repo": "acme/web"},
		Status:   status,
	})
	if err := envelope.Sign(env); err != nil {
		t.Fatal(err)
	}
	return env
}

func TestSaveAndGetEnvelope(t *testing.T) {
	db := openTestDB(t)
	env := signedEnvelope(t, envelope.StatusSuccess)

	if err := db.SaveEnvelope("rev1", env); err != nil {
		t.Fatalf("SaveEnvelope failed: %v", err)
	}

	got, err := db.GetEnvelope("rev1")
	if err != nil {
		t.Fatalf("GetEnvelope failed: %v", err)
	}
	if got.Meta.Signature != env.Meta.Signature {
		t.Errorf("signature = %q, want %q", got.Meta.Signature, env.Meta.Signature)
	}
	if got.Core.Status != envelope.StatusSuccess {
		t.Errorf("status = %q", got.Core.Status)
	}

	ok, err := envelope.Verify(got)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("archived envelope does not verify")
	}
}

func TestGetEnvelope_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetEnvelope("missing")
	if !errors.Is(err, ErrEnvelopeNotFound) {
		t.Errorf("expected ErrEnvelopeNotFound, got %v", err)
	}
}

func TestSaveEnvelope_Replaces(t *testing.T) {
	db := openTestDB(t)

	if err := db.SaveEnvelope("rev1", signedEnvelope(t, envelope.StatusDegraded)); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveEnvelope("rev1", signedEnvelope(t, envelope.StatusSuccess)); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetEnvelope("rev1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Core.Status != envelope.StatusSuccess {
		t.Errorf("status = %q, want replacement", got.Core.Status)
	}
}

func TestReportedRoundTrip(t *testing.T) {
	db := openTestDB(t)

	records := []attribute.Reported{
		{Canonical: "a.ts -> b.ts", RootFrom: "a.ts", RootTo: "b.ts"},
		{Canonical: "x.ts -> y.ts", RootFrom: "x.ts", RootTo: "y.ts"},
	}

	if err := db.RecordReported("pr-42", records); err != nil {
		t.Fatalf("RecordReported failed: %v", err)
	}
	// Second push with the same cycles: idempotent.
	if err := db.RecordReported("pr-42", records); err != nil {
		t.Fatalf("RecordReported retry failed: %v", err)
	}

	got, err := db.ListReported("pr-42")
	if err != nil {
		t.Fatalf("ListReported failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Canonical != "a.ts -> b.ts" || got[1].Canonical != "x.ts -> y.ts" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestReported_ScopedPerPR(t *testing.T) {
	db := openTestDB(t)

	if err := db.RecordReported("pr-1", []attribute.Reported{
		{Canonical: "a -> b", RootFrom: "a", RootTo: "b"},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListReported("pr-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("records leaked across PRs: %+v", got)
	}
}
