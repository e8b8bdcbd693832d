package gitio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"arcsight/attribute"
)

func commitFiles(t *testing.T, repo *git.Repository, dir string, files map[string]string, msg string) string {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := wt.Add(rel); err != nil {
			t.Fatal(err)
		}
	}
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(0, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return hash.String()
}

func setupRepo(t *testing.T) (*Repository, string, string) {
	t.Helper()
	dir := t.TempDir()
	raw, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}

	base := commitFiles(t, raw, dir, map[string]string{
		"src/a.ts": "export const a = 1;\n",
		"src/b.ts": "import './a';\nexport const b = 1;\n",
	}, "base")

	head := commitFiles(t, raw, dir, map[string]string{
		"src/a.ts": "import './b';\nexport const a = 1;\n",
	}, "add import")

	repo, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	return repo, base, head
}

func TestSnapshotAt(t *testing.T) {
	repo, base, _ := setupRepo(t)

	files, err := repo.SnapshotAt(base)
	if err != nil {
		t.Fatalf("SnapshotAt failed: %v", err)
	}

	byPath := make(map[string]string)
	for _, f := range files {
		byPath[f.Path] = string(f.Content)
	}
	if len(byPath) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(byPath), byPath)
	}
	if byPath["src/a.ts"] != "export const a = 1;\n" {
		t.Errorf("base src/a.ts = %q", byPath["src/a.ts"])
	}
}

func TestPRDiff(t *testing.T) {
	repo, base, head := setupRepo(t)

	diff, err := repo.PRDiff(base, head)
	if err != nil {
		t.Fatalf("PRDiff failed: %v", err)
	}

	if !diff.ChangedFiles["src/a.ts"] {
		t.Errorf("src/a.ts missing from changed files: %v", diff.ChangedFiles)
	}
	if diff.ChangedFiles["src/b.ts"] {
		t.Error("unchanged src/b.ts reported as changed")
	}
	if !diff.AddedImportLines[attribute.LineRef{Path: "src/a.ts", Line: 1}] {
		t.Errorf("added import line not detected: %v", diff.AddedImportLines)
	}
}

func TestResolveHash(t *testing.T) {
	repo, _, head := setupRepo(t)

	hash, err := repo.ResolveHash("HEAD")
	if err != nil {
		t.Fatalf("ResolveHash failed: %v", err)
	}
	if hash != head {
		t.Errorf("HEAD = %s, want %s", hash, head)
	}
}

func TestOpen_NotARepo(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error opening a non-repository")
	}
}

func TestLooksLikeImport(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"import './b';", true},
		{"  import { x } from './x';", true},
		{"const y = require('./y');", true},
		{"export { z } from './z';", true},
		{"export const a = 1;", false},
		{"const b = 2;", false},
	}

	for _, tt := range tests {
		if got := looksLikeImport(tt.line); got != tt.want {
			t.Errorf("looksLikeImport(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
