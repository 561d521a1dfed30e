// # internal/compiler/parser/jsx.go
package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// treeBuilder converts the tree-sitter JSX subtree returned by a component
// into the parser's own raw markup structures, so no downstream stage touches
// tree-sitter memory after the parse tree is closed. Expression slots keep a
// small mini-AST covering the shapes the markup analyzer classifies; anything
// else collapses to ExprRaw with the source preserved.
type treeBuilder struct {
	source []byte
	stop   map[string]bool
}

func isJSXKind(kind string) bool {
	switch kind {
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return true
	}
	return false
}

func (b *treeBuilder) buildMarkup(node *sitter.Node) *MarkupNode {
	node = unwrapParens(node)
	if node == nil {
		return nil
	}

	switch node.Kind() {
	case "jsx_self_closing_element":
		m := &MarkupNode{
			Kind:   NodeElement,
			Line:   line(node),
			Column: column(node),
		}
		b.fillTagAndAttrs(node, m)
		return m

	case "jsx_element", "jsx_fragment":
		m := &MarkupNode{
			Kind:   NodeFragment,
			Line:   line(node),
			Column: column(node),
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "jsx_opening_element":
				b.fillTagAndAttrs(child, m)
				if m.Tag != "" {
					m.Kind = NodeElement
				}
			case "jsx_closing_element":
				// skip
			default:
				if c := b.buildChild(child); c != nil {
					m.Children = append(m.Children, c)
				}
			}
		}
		return m
	}

	return nil
}

func (b *treeBuilder) fillTagAndAttrs(node *sitter.Node, m *MarkupNode) {
	if name := node.ChildByFieldName("name"); name != nil {
		m.Tag = b.text(name)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "jsx_attribute" {
			m.Attrs = append(m.Attrs, b.buildAttr(child))
		}
	}
}

func (b *treeBuilder) buildChild(node *sitter.Node) *MarkupNode {
	switch node.Kind() {
	case "jsx_text", "html_character_reference":
		text := collapseSpace(b.text(node))
		if text == "" {
			return nil
		}
		return &MarkupNode{
			Kind:   NodeText,
			Text:   text,
			Line:   line(node),
			Column: column(node),
		}

	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return b.buildMarkup(node)

	case "jsx_expression":
		inner := jsxExpressionInner(node)
		if inner == nil {
			return nil
		}
		return &MarkupNode{
			Kind:   NodeExpr,
			Expr:   b.buildExpr(inner),
			Line:   line(inner),
			Column: column(inner),
		}
	}
	return nil
}

func (b *treeBuilder) buildAttr(node *sitter.Node) Attr {
	attr := Attr{Line: line(node)}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "property_identifier", "jsx_namespace_name":
			if attr.Name == "" {
				attr.Name = b.text(child)
			}
		case "string":
			attr.Static = b.unquote(child)
		case "jsx_expression":
			inner := jsxExpressionInner(child)
			if inner == nil {
				continue
			}
			expr := b.buildExpr(inner)
			if expr.Kind == ExprString {
				// {"literal"} is static despite the braces.
				attr.Static = expr.Value
			} else {
				attr.IsExpr = true
				attr.Expr = expr
			}
		}
	}

	if !attr.IsExpr && attr.Static == "" {
		// Bare boolean attribute.
		attr.Static = "true"
	}
	return attr
}

func (b *treeBuilder) buildExpr(node *sitter.Node) *Expr {
	node = unwrapParens(node)
	if node == nil {
		return nil
	}

	e := &Expr{
		Raw:    b.text(node),
		Line:   line(node),
		Column: column(node),
	}
	e.Deps = collectFreeIdents(node, b.source, b.stop, nil)

	switch node.Kind() {
	case "identifier":
		e.Kind = ExprIdent
		e.Name = e.Raw

	case "member_expression":
		e.Kind = ExprMember
		e.Object = b.buildExpr(node.ChildByFieldName("object"))
		if prop := node.ChildByFieldName("property"); prop != nil {
			e.Property = b.text(prop)
		}

	case "call_expression":
		e.Kind = ExprCall
		e.Callee = b.buildExpr(node.ChildByFieldName("function"))
		if args := node.ChildByFieldName("arguments"); args != nil {
			for i := uint(0); i < args.ChildCount(); i++ {
				arg := args.Child(i)
				if !arg.IsNamed() || arg.Kind() == "comment" {
					continue
				}
				e.Args = append(e.Args, b.buildExpr(arg))
			}
		}

	case "binary_expression":
		op := ""
		if opNode := node.ChildByFieldName("operator"); opNode != nil {
			op = b.text(opNode)
		}
		if op != "&&" {
			e.Kind = ExprRaw
			break
		}
		e.Kind = ExprLogicalAnd
		e.Left = b.buildExpr(node.ChildByFieldName("left"))
		e.Right = b.buildExpr(node.ChildByFieldName("right"))

	case "ternary_expression":
		e.Kind = ExprTernary
		e.Cond = b.buildExpr(node.ChildByFieldName("condition"))
		e.Then = b.buildExpr(node.ChildByFieldName("consequence"))
		if alt := b.buildExpr(node.ChildByFieldName("alternative")); alt != nil && !alt.IsNullish() {
			e.Else = alt
		}

	case "unary_expression":
		op := ""
		if opNode := node.ChildByFieldName("operator"); opNode != nil {
			op = b.text(opNode)
		}
		if op != "!" {
			e.Kind = ExprRaw
			break
		}
		e.Kind = ExprNot
		e.Operand = b.buildExpr(node.ChildByFieldName("argument"))

	case "string":
		e.Kind = ExprString
		e.Value = b.unquote(node)

	case "number":
		e.Kind = ExprNumber

	case "array":
		e.Kind = ExprArray
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.IsNamed() && child.Kind() != "comment" {
				e.Elements = append(e.Elements, b.buildExpr(child))
			}
		}

	case "arrow_function":
		e.Kind = ExprArrow
		e.Params = b.arrowParams(node)
		e.Body = b.arrowBody(node.ChildByFieldName("body"))

	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		e.Kind = ExprMarkup
		e.Markup = b.buildMarkup(node)

	default:
		e.Kind = ExprRaw
	}

	return e
}

func (b *treeBuilder) arrowParams(node *sitter.Node) []string {
	var out []string
	collect := func(n *sitter.Node) {
		scope := newLexScope(nil)
		c := &identCollector{source: b.source, stop: map[string]bool{}, out: map[string]bool{}}
		c.declarePattern(n, scope)
		for name := range scope.symbols {
			out = append(out, name)
		}
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		// Preserve source order for positional bindings.
		for i := uint(0); i < params.ChildCount(); i++ {
			child := params.Child(i)
			if child.IsNamed() && child.Kind() != "comment" {
				if child.Kind() == "identifier" {
					out = append(out, b.text(child))
				} else {
					collect(child)
				}
			}
		}
		return out
	}
	if param := node.ChildByFieldName("parameter"); param != nil {
		out = append(out, b.text(param))
	}
	return out
}

// arrowBody resolves an arrow callback body to either its concise expression
// or the argument of the block body's first return statement.
func (b *treeBuilder) arrowBody(body *sitter.Node) *Expr {
	if body == nil {
		return nil
	}
	if body.Kind() != "statement_block" {
		return b.buildExpr(body)
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child.Kind() == "return_statement" && child.NamedChildCount() > 0 {
			return b.buildExpr(child.NamedChild(0))
		}
	}
	return &Expr{Kind: ExprRaw, Raw: b.text(body), Line: line(body), Column: column(body)}
}

func (b *treeBuilder) unquote(node *sitter.Node) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "string_fragment" {
			return b.text(child)
		}
	}
	text := b.text(node)
	if len(text) >= 2 {
		return text[1 : len(text)-1]
	}
	return text
}

func (b *treeBuilder) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(b.source[node.StartByte():node.EndByte()])
}

func unwrapParens(node *sitter.Node) *sitter.Node {
	for node != nil && node.Kind() == "parenthesized_expression" {
		var inner *sitter.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.IsNamed() && child.Kind() != "comment" {
				inner = child
				break
			}
		}
		if inner == nil {
			return nil
		}
		node = inner
	}
	return node
}

func jsxExpressionInner(node *sitter.Node) *sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.IsNamed() && child.Kind() != "comment" {
			return child
		}
	}
	return nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func column(node *sitter.Node) int {
	return int(node.StartPosition().Column) + 1
}
