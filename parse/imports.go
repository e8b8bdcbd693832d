package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// extractImports finds all import statements in the AST, in document order.
func extractImports(node *sitter.Node, content []byte) []Import {
	imports := make([]Import, 0)

	iter := sitter.NewIterator(node, sitter.DFSMode)
	for {
		n, err := iter.Next()
		if err != nil || n == nil {
			break
		}

		switch n.Type() {
		case "import_statement":
			if imp, ok := parseImportStatement(n, content); ok {
				imports = append(imports, imp)
			}
		case "export_statement":
			// Re-exports carry a source: export { a } from "./b"
			if imp, ok := parseReexport(n, content); ok {
				imports = append(imports, imp)
			}
		case "call_expression":
			if imp, ok := parseDynamicImport(n, content); ok {
				imports = append(imports, imp)
			} else if imp, ok := parseRequireCall(n, content); ok {
				imports = append(imports, imp)
			}
		}
	}

	return imports
}

// parseImportStatement parses a static import statement.
// Handles:
//   - import foo from './bar'
//   - import * as foo from './bar'
//   - import { a, b as c } from './bar'
//   - import './bar'
//   - import type { T } from './bar'
func parseImportStatement(node *sitter.Node, content []byte) (Import, bool) {
	source, ok := findStringChild(node, content)
	if !ok {
		return Import{}, false
	}

	return Import{
		Source:   source,
		Line:     int(node.StartPoint().Row) + 1,
		TypeOnly: isTypeOnly(node, content),
	}, true
}

// parseReexport parses export statements that re-export from another module:
// export { a } from './b', export * from './b', export type { T } from './b'.
// Export statements without a source are not imports.
func parseReexport(node *sitter.Node, content []byte) (Import, bool) {
	hasFrom := false
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "from" {
			hasFrom = true
			break
		}
	}
	if !hasFrom {
		return Import{}, false
	}

	source, ok := findStringChild(node, content)
	if !ok {
		return Import{}, false
	}

	return Import{
		Source:   source,
		Line:     int(node.StartPoint().Row) + 1,
		TypeOnly: isTypeOnly(node, content),
	}, true
}

// isTypeOnly reports whether a statement is a type-only import or re-export.
// The TypeScript grammar emits the "type" keyword as a direct child of the
// statement; the textual prefix catches grammars that fold it elsewhere.
func isTypeOnly(node *sitter.Node, content []byte) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "type" {
			return true
		}
	}
	text := node.Content(content)
	return strings.HasPrefix(text, "import type ") || strings.HasPrefix(text, "export type ")
}

// parseDynamicImport checks for import("./foo") calls.
func parseDynamicImport(node *sitter.Node, content []byte) (Import, bool) {
	if node.ChildCount() < 2 {
		return Import{}, false
	}

	callee := node.Child(0)
	if callee == nil || callee.Type() != "import" {
		return Import{}, false
	}

	args := node.Child(1)
	if args == nil || args.Type() != "arguments" {
		return Import{}, false
	}

	source, ok := findStringChild(args, content)
	if !ok {
		return Import{}, false
	}

	return Import{
		Source:  source,
		Line:    int(node.StartPoint().Row) + 1,
		Dynamic: true,
	}, true
}

// parseRequireCall checks for CommonJS require("./foo") calls.
func parseRequireCall(node *sitter.Node, content []byte) (Import, bool) {
	if node.ChildCount() < 2 {
		return Import{}, false
	}

	callee := node.Child(0)
	if callee == nil || callee.Type() != "identifier" || callee.Content(content) != "require" {
		return Import{}, false
	}

	args := node.Child(1)
	if args == nil || args.Type() != "arguments" {
		return Import{}, false
	}

	source, ok := findStringChild(args, content)
	if !ok {
		return Import{}, false
	}

	return Import{
		Source:  source,
		Line:    int(node.StartPoint().Row) + 1,
		Dynamic: true,
	}, true
}

// findStringChild returns the unquoted content of the first direct string
// child of a node. Template strings with interpolation are rejected: their
// specifier is not statically known.
func findStringChild(node *sitter.Node, content []byte) (string, bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "string" {
			continue
		}
		source := strings.Trim(child.Content(content), "\"'`")
		if source == "" {
			return "", false
		}
		return source, true
	}
	return "", false
}
