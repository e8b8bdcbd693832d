// Package ignore provides gitignore-style pattern matching for file
// filtering during snapshot collection.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is a single ignore pattern with its gitignore semantics.
type Pattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool
}

// Matcher holds compiled ignore patterns.
type Matcher struct {
	patterns []Pattern
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{patterns: []Pattern{}}
}

// Compile creates a matcher from pattern strings.
func Compile(patterns []string) *Matcher {
	m := NewMatcher()
	m.AddPatterns(patterns)
	return m
}

// AddPattern adds a single gitignore-style pattern line.
func (m *Matcher) AddPattern(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	p := Pattern{}

	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}

	// Unanchored patterns without a slash match the basename at any level.
	if !p.anchored && !strings.Contains(line, "/") {
		line = "**/" + line
	}

	p.pattern = line
	m.patterns = append(m.patterns, p)
}

// AddPatterns adds multiple pattern lines.
func (m *Matcher) AddPatterns(lines []string) {
	for _, line := range lines {
		m.AddPattern(line)
	}
}

// LoadFile loads patterns from a gitignore-style file. A missing file is
// not an error.
func (m *Matcher) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		m.AddPattern(scanner.Text())
	}
	return scanner.Err()
}

// Match reports whether a slash-separated relative path should be skipped.
// Later patterns override earlier ones via negation, as in git.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")

	ignored := false
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			if m.matchDirPattern(p.pattern, path) {
				ignored = !p.negated
			}
			continue
		}
		if m.matchPattern(p.pattern, path) {
			ignored = !p.negated
		}
	}
	return ignored
}

// matchDirPattern reports whether the path lies inside a directory matching
// the pattern.
func (m *Matcher) matchDirPattern(pattern, path string) bool {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if m.matchPattern(pattern, strings.Join(parts[:i], "/")) {
			return true
		}
	}
	return false
}

func (m *Matcher) matchPattern(pattern, path string) bool {
	matched, _ := doublestar.Match(pattern, path)
	if matched {
		return true
	}
	// "node_modules" also matches "node_modules/foo/bar.js".
	if !strings.HasSuffix(pattern, "/**") {
		matched, _ = doublestar.Match(pattern+"/**", path)
	}
	return matched
}

// LoadDefaults loads the built-in skip list: VCS metadata, dependency
// trees, and build output that never belongs in a snapshot.
func (m *Matcher) LoadDefaults() {
	m.AddPatterns([]string{
		".git/",
		".svn/",
		".hg/",
		".DS_Store",
		"node_modules/",
		"bower_components/",
		"jspm_packages/",
		"dist/",
		"build/",
		"out/",
		".next/",
		".nuxt/",
		".svelte-kit/",
		"coverage/",
		".turbo/",
		".cache/",
		"*.log",
		"*.tmp",
		"package-lock.json",
		"yarn.lock",
		"pnpm-lock.yaml",
	})
}

// LoadFromDir builds a matcher from the defaults plus the directory's
// .gitignore and .arcsightignore, in that order so later files win.
func LoadFromDir(dir string) (*Matcher, error) {
	m := NewMatcher()
	m.LoadDefaults()

	if err := m.LoadFile(filepath.Join(dir, ".gitignore")); err != nil {
		return nil, err
	}
	if err := m.LoadFile(filepath.Join(dir, ".arcsightignore")); err != nil {
		return nil, err
	}
	return m, nil
}
