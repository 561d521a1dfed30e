// # internal/compiler/parser/idents.go
package parser

import (
	"sort"
	"unicode"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// identCollector walks an expression or statement subtree and records every
// identifier that resolves to no enclosing binding. It tracks lexical scope
// (function parameters, block-level declarations, loop bindings) instead of
// text-scanning, so shadowed names never leak into the dependency set.
type identCollector struct {
	source []byte
	stop   map[string]bool
	out    map[string]bool
}

// collectFreeIdents returns the sorted free-identifier set of node. Names in
// the stoplist and capitalized identifiers (treated as type or constructor
// references) are excluded. outer seeds the scope chain with names that are
// bound by construction, such as component parameters.
func collectFreeIdents(node *sitter.Node, source []byte, stop map[string]bool, outer *lexScope) []string {
	c := &identCollector{
		source: source,
		stop:   stop,
		out:    make(map[string]bool),
	}
	c.walk(node, newLexScope(outer))

	names := make([]string, 0, len(c.out))
	for name := range c.out {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *identCollector) walk(node *sitter.Node, scope *lexScope) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "identifier", "shorthand_property_identifier":
		c.record(c.text(node), scope)
		return

	case "comment", "jsx_closing_element":
		return

	case "jsx_opening_element", "jsx_self_closing_element":
		// The tag name is not a data dependency; lowercase tags would
		// otherwise collide with real identifiers.
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "jsx_attribute" || child.Kind() == "jsx_expression" {
				c.walk(child, scope)
			}
		}
		return

	case "arrow_function", "function_expression", "function_declaration",
		"generator_function", "generator_function_declaration", "method_definition":
		inner := newLexScope(scope)
		if name := node.ChildByFieldName("name"); name != nil {
			inner.add(c.text(name))
		}
		if params := node.ChildByFieldName("parameters"); params != nil {
			c.declarePattern(params, inner)
		}
		if param := node.ChildByFieldName("parameter"); param != nil {
			c.declarePattern(param, inner)
		}
		c.walk(node.ChildByFieldName("body"), inner)
		return

	case "statement_block", "program":
		inner := newLexScope(scope)
		c.hoistDeclarations(node, inner)
		for i := uint(0); i < node.ChildCount(); i++ {
			c.walk(node.Child(i), inner)
		}
		return

	case "variable_declarator":
		if name := node.ChildByFieldName("name"); name != nil {
			c.declarePattern(name, scope)
		}
		c.walk(node.ChildByFieldName("value"), scope)
		return

	case "catch_clause":
		inner := newLexScope(scope)
		if param := node.ChildByFieldName("parameter"); param != nil {
			c.declarePattern(param, inner)
		}
		c.walk(node.ChildByFieldName("body"), inner)
		return

	case "member_expression":
		// Only the object side can reference a binding; the property is a
		// field name.
		c.walk(node.ChildByFieldName("object"), scope)
		return
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		c.walk(node.Child(i), scope)
	}
}

// hoistDeclarations pre-declares block-level names so forward references
// inside the same block resolve as bound.
func (c *identCollector) hoistDeclarations(block *sitter.Node, scope *lexScope) {
	for i := uint(0); i < block.ChildCount(); i++ {
		child := block.Child(i)
		switch child.Kind() {
		case "function_declaration", "generator_function_declaration", "class_declaration":
			if name := child.ChildByFieldName("name"); name != nil {
				scope.add(c.text(name))
			}
		case "lexical_declaration", "variable_declaration":
			c.declareDeclarators(child, scope)
		case "export_statement":
			if decl := child.ChildByFieldName("declaration"); decl != nil {
				c.hoistSingle(decl, scope)
			}
		}
	}
}

func (c *identCollector) hoistSingle(decl *sitter.Node, scope *lexScope) {
	switch decl.Kind() {
	case "function_declaration", "generator_function_declaration", "class_declaration":
		if name := decl.ChildByFieldName("name"); name != nil {
			scope.add(c.text(name))
		}
	case "lexical_declaration", "variable_declaration":
		c.declareDeclarators(decl, scope)
	}
}

func (c *identCollector) declareDeclarators(decl *sitter.Node, scope *lexScope) {
	for i := uint(0); i < decl.ChildCount(); i++ {
		child := decl.Child(i)
		if child.Kind() == "variable_declarator" {
			if name := child.ChildByFieldName("name"); name != nil {
				c.declarePattern(name, scope)
			}
		}
	}
}

// declarePattern binds every name introduced by a parameter list or
// destructuring pattern.
func (c *identCollector) declarePattern(node *sitter.Node, scope *lexScope) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		scope.add(c.text(node))
		return
	case "pair_pattern":
		// {key: binding} — only the value side binds.
		c.declarePattern(node.ChildByFieldName("value"), scope)
		return
	case "assignment_pattern":
		c.declarePattern(node.ChildByFieldName("left"), scope)
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		c.declarePattern(node.Child(i), scope)
	}
}

func (c *identCollector) record(name string, scope *lexScope) {
	if name == "" || scope.has(name) || c.stop[name] {
		return
	}
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		// Capitalized names are type/constructor references, not data
		// dependencies. Known limitation carried over from the dependency
		// heuristic this replaces.
		return
	}
	c.out[name] = true
}

func (c *identCollector) text(node *sitter.Node) string {
	return string(c.source[node.StartByte():node.EndByte()])
}
