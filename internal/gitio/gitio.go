// Package gitio reads snapshots and PR diffs from a Git repository using
// go-git.
package gitio

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"

	"arcsight/attribute"
	"arcsight/parse"
	"arcsight/snapshot"
)

// Repository wraps a go-git repository.
type Repository struct {
	repo *git.Repository
	path string
}

// Open opens an existing Git repository.
func Open(repoPath string) (*Repository, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return &Repository{repo: repo, path: repoPath}, nil
}

// resolve turns a revision string (branch, tag, or hash) into a commit.
func (r *Repository) resolve(rev string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolving revision %q: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("getting commit %s: %w", hash, err)
	}
	return commit, nil
}

// ResolveHash returns the full commit hash for a revision string.
func (r *Repository) ResolveHash(rev string) (string, error) {
	commit, err := r.resolve(rev)
	if err != nil {
		return "", err
	}
	return commit.Hash.String(), nil
}

// SnapshotAt returns the tree of a revision as a raw snapshot input.
func (r *Repository) SnapshotAt(rev string) ([]snapshot.File, error) {
	commit, err := r.resolve(rev)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting tree: %w", err)
	}

	var files []snapshot.File
	err = tree.Files().ForEach(func(f *object.File) error {
		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reading file %s: %w", f.Name, err)
		}
		files = append(files, snapshot.File{Path: f.Name, Content: []byte(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// PRDiff computes the change surface between two revisions: the changed
// source files and the import lines the head side added, with 1-based line
// numbers in the head file.
func (r *Repository) PRDiff(baseRev, headRev string) (*attribute.PRDiff, error) {
	baseCommit, err := r.resolve(baseRev)
	if err != nil {
		return nil, err
	}
	headCommit, err := r.resolve(headRev)
	if err != nil {
		return nil, err
	}

	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting base tree: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting head tree: %w", err)
	}

	patch, err := baseTree.Patch(headTree)
	if err != nil {
		return nil, fmt.Errorf("computing patch: %w", err)
	}

	out := &attribute.PRDiff{
		ChangedFiles:     make(map[string]bool),
		AddedImportLines: make(map[attribute.LineRef]bool),
	}

	for _, fp := range patch.FilePatches() {
		_, to := fp.Files()
		if to == nil { // deletion
			continue
		}
		path := to.Path()
		if !parse.IsSourceFile(path) {
			continue
		}
		out.ChangedFiles[path] = true

		line := 1
		for _, chunk := range fp.Chunks() {
			lines := chunkLines(chunk.Content())
			switch chunk.Type() {
			case diff.Equal:
				line += len(lines)
			case diff.Add:
				for _, text := range lines {
					if looksLikeImport(text) {
						out.AddedImportLines[attribute.LineRef{Path: path, Line: line}] = true
					}
					line++
				}
			case diff.Delete:
				// removed lines do not occupy head line numbers
			}
		}
	}

	return out, nil
}

// chunkLines splits chunk content into lines without the phantom empty
// line a trailing newline would produce.
func chunkLines(content string) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// looksLikeImport reports whether an added line is an import statement
// candidate. The graph builder decides what actually resolves; this only
// feeds the diff's added-import set.
func looksLikeImport(line string) bool {
	t := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(t, "import "), strings.HasPrefix(t, "import{"), strings.HasPrefix(t, "import("):
		return true
	case strings.Contains(t, "require("):
		return true
	case strings.HasPrefix(t, "export ") && strings.Contains(t, " from "):
		return true
	default:
		return false
	}
}
