// Package parse provides Tree-sitter based import extraction for TypeScript
// and JavaScript sources.
package parse

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Import is a single import statement extracted from a source file.
type Import struct {
	Source   string `json:"source"`   // Import specifier (e.g., "./taxes", "lodash")
	Line     int    `json:"line"`     // 1-based line of the statement
	TypeOnly bool   `json:"typeOnly"` // import type { X } from "./y"
	Dynamic  bool   `json:"dynamic"`  // import("./y") or require("./y")
}

// Result holds the imports of one parsed file.
type Result struct {
	Imports  []Import
	HasError bool // the tree contains syntax errors
}

// Parser wraps Tree-sitter parsers for the supported grammars.
type Parser struct {
	tsParser  *sitter.Parser
	tsxParser *sitter.Parser
	jsParser  *sitter.Parser
}

// NewParser creates a parser with TypeScript, TSX, and JavaScript grammars.
// The JavaScript grammar also covers .jsx.
func NewParser() *Parser {
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(typescript.GetLanguage())

	tsxParser := sitter.NewParser()
	tsxParser.SetLanguage(tsx.GetLanguage())

	jsParser := sitter.NewParser()
	jsParser.SetLanguage(javascript.GetLanguage())

	return &Parser{
		tsParser:  tsParser,
		tsxParser: tsxParser,
		jsParser:  jsParser,
	}
}

// File parses a source file and extracts its imports. The grammar is chosen
// from the path's extension.
func (p *Parser) File(filePath string, content []byte) (*Result, error) {
	lang := Lang(filePath)
	if lang == "" {
		return nil, fmt.Errorf("parse: %q is not a TypeScript or JavaScript source", filePath)
	}
	return p.ExtractImports(content, lang)
}

// ExtractImports parses content with the grammar for lang ("ts", "tsx",
// "js", or "jsx") and extracts all import statements in document order.
func (p *Parser) ExtractImports(content []byte, lang string) (*Result, error) {
	var parser *sitter.Parser
	switch lang {
	case "ts":
		parser = p.tsParser
	case "tsx":
		parser = p.tsxParser
	case "js", "jsx":
		parser = p.jsParser
	default:
		return nil, fmt.Errorf("parse: unsupported language %q", lang)
	}

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing failed: %w", err)
	}

	root := tree.RootNode()
	return &Result{
		Imports:  extractImports(root, content),
		HasError: root.HasError(),
	}, nil
}

// Lang returns the grammar name for a source path ("ts", "tsx", "js",
// "jsx"), or "" for anything else.
func Lang(filePath string) string {
	switch path.Ext(filePath) {
	case ".ts":
		return "ts"
	case ".tsx":
		return "tsx"
	case ".js", ".mjs", ".cjs":
		return "js"
	case ".jsx":
		return "jsx"
	default:
		return ""
	}
}

// IsSourceFile reports whether the path is a parseable source file.
func IsSourceFile(filePath string) bool {
	return Lang(filePath) != ""
}

// PossibleFilePaths returns the candidate snapshot paths a resolved import
// specifier may denote, in fixed probe order:
// exact path (when it already carries a source extension), then extension
// probing, then index files.
func PossibleFilePaths(importPath string) []string {
	switch path.Ext(importPath) {
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs":
		return []string{importPath}
	}

	return []string{
		importPath + ".ts",
		importPath + ".tsx",
		importPath + ".js",
		importPath + ".jsx",
		path.Join(importPath, "index.ts"),
		path.Join(importPath, "index.tsx"),
		path.Join(importPath, "index.js"),
		path.Join(importPath, "index.jsx"),
	}
}

// IsRelative reports whether a specifier is relative ("./x", "../x").
func IsRelative(source string) bool {
	return strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") || source == "." || source == ".."
}

// ResolveRelative resolves a relative specifier against the directory of the
// importing file, yielding a root-relative path. Specifiers escaping the
// repository root resolve to "".
func ResolveRelative(fromPath, source string) string {
	joined := path.Join(path.Dir(fromPath), source)
	cleaned := path.Clean(joined)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return ""
	}
	if cleaned == "." {
		return ""
	}
	return cleaned
}
