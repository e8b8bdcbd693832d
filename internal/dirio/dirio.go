// Package dirio collects a raw snapshot from a filesystem directory.
package dirio

import (
	"fmt"
	"os"
	"path/filepath"

	"arcsight/internal/ignore"
	"arcsight/snapshot"
)

// Option configures Collect.
type Option func(*collector)

type collector struct {
	matcher *ignore.Matcher
}

// WithIgnore overrides the matcher built from the directory's ignore files.
func WithIgnore(m *ignore.Matcher) Option {
	return func(c *collector) {
		c.matcher = m
	}
}

// Collect walks a directory and returns its files as a raw snapshot input:
// slash-separated relative paths, content bytes, no canonicalization.
// Ignored paths are skipped; everything else is included so manifests stay
// visible to monorepo detection.
func Collect(dirPath string, opts ...Option) ([]snapshot.File, error) {
	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absPath)
	}

	c := &collector{}
	for _, opt := range opts {
		opt(c)
	}
	if c.matcher == nil {
		c.matcher, err = ignore.LoadFromDir(absPath)
		if err != nil {
			return nil, fmt.Errorf("loading ignore patterns: %w", err)
		}
	}

	var files []snapshot.File
	err = filepath.Walk(absPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(absPath, path)
		if err != nil {
			return fmt.Errorf("getting relative path: %w", err)
		}
		relPath = filepath.ToSlash(relPath)
		if relPath == "." {
			return nil
		}

		if c.matcher.Match(relPath, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading file %s: %w", path, err)
		}
		files = append(files, snapshot.File{Path: relPath, Content: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return files, nil
}
