// Package syntax extracts the top-level import statements of a Python
// module using Tree-sitter.
//
// Only direct children of the module node are inspected. Imports nested in
// functions, classes, conditionals or try blocks are not module-level
// dependency declarations and are never reported. Validity is checked over the
// whole file: Python 2 forms the grammar tolerates are syntax errors.
package syntax

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"time"

	"importguard/internal/logging"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// SyntaxError reports source text that is not valid Python.
type SyntaxError struct {
	Filename string
	Position Position
	Snippet  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%s: invalid syntax near %q", e.Filename, e.Position, e.Snippet)
}

// File holds the top-level import statements of one parsed module.
type File struct {
	Filename   string
	statements []Statement
}

// Len returns the number of top-level import statements.
func (f *File) Len() int {
	return len(f.statements)
}

// Statements yields the top-level statements of the requested kind in
// source order.
func (f *File) Statements(kind Kind) iter.Seq[Statement] {
	return func(yield func(Statement) bool) {
		for _, s := range f.statements {
			if s.Kind() != kind {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Imports yields the plain import statements.
func (f *File) Imports() iter.Seq[*Import] {
	return func(yield func(*Import) bool) {
		for s := range f.Statements(KindImport) {
			if !yield(s.(*Import)) {
				return
			}
		}
	}
}

// ImportFroms yields the import-from statements.
func (f *File) ImportFroms() iter.Seq[*ImportFrom] {
	return func(yield func(*ImportFrom) bool) {
		for s := range f.Statements(KindImportFrom) {
			if !yield(s.(*ImportFrom)) {
				return
			}
		}
	}
}

// Parse parses Python source and collects its top-level import statements.
// The filename only labels diagnostics. Invalid source returns *SyntaxError.
// Each call uses its own parser, so Parse is safe for concurrent use.
func Parse(ctx context.Context, filename string, src []byte) (*File, error) {
	start := time.Now()
	logging.SyntaxDebug("parsing %s (%d bytes)", filepath.Base(filename), len(src))

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		logging.Get(logging.CategorySyntax).Error("parse failed: %s - %v", filename, err)
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(filename, root, src)
	}
	if err := rejectPython2(filename, root, src); err != nil {
		return nil, err
	}

	f := &File{Filename: filename}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "import_statement":
			f.statements = append(f.statements, parseImport(child, src))
		case "import_from_statement":
			f.statements = append(f.statements, parseImportFrom(child, src))
		case "future_import_statement":
			f.statements = append(f.statements, parseFutureImport(child, src))
		}
	}

	logging.SyntaxDebug("parsed %s - %d import statements in %v",
		filepath.Base(filename), len(f.statements), time.Since(start))
	return f, nil
}

// parseImport handles `import a.b as c, d`.
func parseImport(node *sitter.Node, src []byte) *Import {
	stmt := &Import{Position: position(node)}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if alias, ok := parseAlias(node.NamedChild(i), src); ok {
			stmt.Names = append(stmt.Names, alias)
		}
	}
	return stmt
}

// parseImportFrom handles `from [.]*a.b import c as d, e` and the wildcard form.
func parseImportFrom(node *sitter.Node, src []byte) *ImportFrom {
	stmt := &ImportFrom{Position: position(node)}

	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode != nil {
		switch moduleNode.Type() {
		case "relative_import":
			for i := 0; i < int(moduleNode.NamedChildCount()); i++ {
				part := moduleNode.NamedChild(i)
				switch part.Type() {
				case "import_prefix":
					stmt.Level = strings.Count(part.Content(src), ".")
				case "dotted_name":
					stmt.Module = dottedName(part, src)
				}
			}
		default:
			stmt.Module = dottedName(moduleNode, src)
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() {
			continue
		}
		if child.Type() == "wildcard_import" {
			stmt.Names = append(stmt.Names, Alias{Name: "*"})
			continue
		}
		if alias, ok := parseAlias(child, src); ok {
			stmt.Names = append(stmt.Names, alias)
		}
	}
	return stmt
}

// parseFutureImport maps `from __future__ import x` onto ImportFrom.
func parseFutureImport(node *sitter.Node, src []byte) *ImportFrom {
	stmt := &ImportFrom{Module: "__future__", Position: position(node)}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if alias, ok := parseAlias(node.NamedChild(i), src); ok {
			stmt.Names = append(stmt.Names, alias)
		}
	}
	return stmt
}

func parseAlias(node *sitter.Node, src []byte) (Alias, bool) {
	switch node.Type() {
	case "dotted_name":
		return Alias{Name: dottedName(node, src)}, true
	case "aliased_import":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return Alias{}, false
		}
		alias := Alias{Name: dottedName(nameNode, src)}
		if asNode := node.ChildByFieldName("alias"); asNode != nil {
			alias.AsName = asNode.Content(src)
		}
		return alias, true
	}
	return Alias{}, false
}

// dottedName joins the identifiers of a dotted_name, dropping any whitespace
// or line continuations between them.
func dottedName(node *sitter.Node, src []byte) string {
	if node.NamedChildCount() == 0 {
		return strings.TrimSpace(node.Content(src))
	}
	parts := make([]string, 0, node.NamedChildCount())
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		parts = append(parts, child.Content(src))
	}
	return strings.Join(parts, ".")
}

func position(node *sitter.Node) Position {
	p := node.StartPoint()
	return Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// syntaxError locates the first ERROR or MISSING node under root.
func syntaxError(filename string, root *sitter.Node, src []byte) *SyntaxError {
	bad := firstErrorNode(root)
	if bad == nil {
		bad = root
	}
	snippet := bad.Content(src)
	if bad.IsMissing() {
		snippet = bad.Type()
	}
	return newSyntaxError(filename, position(bad), snippet)
}

func newSyntaxError(filename string, pos Position, snippet string) *SyntaxError {
	if idx := strings.IndexByte(snippet, '\n'); idx >= 0 {
		snippet = snippet[:idx]
	}
	if len(snippet) > 40 {
		snippet = snippet[:40] + "..."
	}
	err := &SyntaxError{Filename: filename, Position: pos, Snippet: snippet}
	logging.Get(logging.CategorySyntax).Warn("%v", err)
	return err
}

// python2Statements are accepted by the grammar but are not valid Python 3.
var python2Statements = map[string]bool{
	"print_statement": true,
	"exec_statement":  true,
}

// rejectPython2 reports Python 2 only syntax that the grammar parses without
// error: print and exec statements, backtick repr and the <> operator.
func rejectPython2(filename string, root *sitter.Node, src []byte) error {
	var quoted [][2]uint32
	var bad *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if bad != nil {
			return
		}
		switch t := n.Type(); {
		case python2Statements[t], t == "<>", t == "`":
			bad = n
			return
		case t == "string", t == "comment":
			quoted = append(quoted, [2]uint32{n.StartByte(), n.EndByte()})
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	if bad != nil {
		return newSyntaxError(filename, position(bad), bad.Content(src))
	}

	// A backtick outside string literals and comments is never valid
	// Python 3, whatever node the grammar put it in.
	for off := 0; off < len(src); off++ {
		if src[off] != '`' || inRanges(uint32(off), quoted) {
			continue
		}
		return newSyntaxError(filename, offsetPosition(src, off), string(src[off:]))
	}
	return nil
}

func inRanges(off uint32, ranges [][2]uint32) bool {
	for _, r := range ranges {
		if off >= r[0] && off < r[1] {
			return true
		}
	}
	return false
}

func offsetPosition(src []byte, off int) Position {
	line := 1 + strings.Count(string(src[:off]), "\n")
	col := off - strings.LastIndexByte(string(src[:off]), '\n')
	return Position{Line: line, Column: col}
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
