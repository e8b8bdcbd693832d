// Package snapshot defines the canonical repository snapshot and the
// canonicalizer that produces it from raw input.
package snapshot

import (
	"errors"
	"fmt"
	"sort"

	"arcsight/cas"
)

// ErrPathCollision reports two distinct raw paths collapsing to the same
// canonical path.
var ErrPathCollision = errors.New("snapshot: canonical path collision")

// ErrInvalidPath reports a raw path that cannot be canonicalized (empty, or
// escaping the repository root).
var ErrInvalidPath = errors.New("snapshot: invalid path")

// File is a single file in a snapshot: canonical path plus content bytes.
type File struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// Snapshot is the canonical, ordered, content-addressable representation of
// a repository. Files are sorted lexicographically by canonical path.
// Immutable once built.
type Snapshot struct {
	files  []File
	byPath map[string]int
}

// Canonicalize normalizes raw files into a Snapshot. Steps, in fixed order:
// path normalization (POSIX separators, deduplicated slashes, dot segments
// collapsed, case preserved), newline normalization of text content, Unicode
// NFC normalization of text content, lexicographic sort by canonical path.
// Binary content passes through byte-identical.
func Canonicalize(raw []File) (*Snapshot, error) {
	files := make([]File, 0, len(raw))
	seen := make(map[string]string, len(raw))

	for _, f := range raw {
		canonical, err := NormalizePath(f.Path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[canonical]; ok {
			return nil, fmt.Errorf("%w: %q and %q both map to %q", ErrPathCollision, prev, f.Path, canonical)
		}
		seen[canonical] = f.Path

		files = append(files, File{
			Path:    canonical,
			Content: NormalizeContent(f.Content),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	byPath := make(map[string]int, len(files))
	for i, f := range files {
		byPath[f.Path] = i
	}

	return &Snapshot{files: files, byPath: byPath}, nil
}

// Len returns the number of files.
func (s *Snapshot) Len() int {
	return len(s.files)
}

// Files returns the sorted file list. Callers must not mutate it.
func (s *Snapshot) Files() []File {
	return s.files
}

// Paths returns the sorted canonical paths.
func (s *Snapshot) Paths() []string {
	paths := make([]string, len(s.files))
	for i, f := range s.files {
		paths[i] = f.Path
	}
	return paths
}

// Lookup returns the file at a canonical path.
func (s *Snapshot) Lookup(path string) (File, bool) {
	i, ok := s.byPath[path]
	if !ok {
		return File{}, false
	}
	return s.files[i], true
}

// Has reports whether a canonical path exists in the snapshot.
func (s *Snapshot) Has(path string) bool {
	_, ok := s.byPath[path]
	return ok
}

// Fingerprint computes the BLAKE3 content fingerprint of the snapshot:
// a streaming hash over sorted path + "\n" + content + "\n".
func (s *Snapshot) Fingerprint() string {
	hasher := cas.NewBlake3Hasher()
	for _, f := range s.files {
		hasher.Write([]byte(f.Path))
		hasher.Write([]byte("\n"))
		hasher.Write(f.Content)
		hasher.Write([]byte("\n"))
	}
	return fmt.Sprintf("%x", hasher.Sum(nil))
}
