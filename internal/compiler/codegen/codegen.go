// # internal/compiler/codegen/codegen.go
package codegen

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"loom/internal/compiler/diag"
	"loom/internal/compiler/markup"
	"loom/internal/compiler/parser"
	"loom/internal/compiler/scope"
)

// RouteMeta is the manifest entry emitted for a page document.
type RouteMeta struct {
	Path        string `json:"path"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Guard       string `json:"guard,omitempty"`
	Component   string `json:"component"`
	Module      string `json:"module"`
}

// Generator lowers a scoped document plus its normalized markup into the
// runtime-call output module. It always produces output: constructs the
// earlier stages could not model come through as inert text with a
// fallback diagnostic, never as a hard failure.
type Generator struct {
	vocab parser.Vocabulary

	file string
	res  *diag.Result
}

func NewGenerator(vocab parser.Vocabulary) *Generator {
	return &Generator{vocab: vocab}
}

// Generate emits the output module and, for pages, the route entry. The
// views map holds one normalized markup document per component name.
func (g *Generator) Generate(doc *parser.SourceDocument, scoped *scope.ScopedDocument, views map[string]*markup.Document, res *diag.Result) (string, *RouteMeta) {
	g.file = doc.File
	g.res = res

	e := &emitter{}
	e.linef("// Code generated by loomc from %s. DO NOT EDIT.", filepath.Base(doc.File))
	e.blank()
	g.emitImports(e, doc)

	if scoped.Policy == scope.PagePolicy {
		g.emitPageLayout(e, scoped, views)
	} else {
		g.emitSharedLayout(e, scoped, views)
	}

	var route *RouteMeta
	if doc.Meta.IsPage && scoped.Main != nil {
		route = &RouteMeta{
			Path:        doc.Meta.Route,
			Title:       doc.Meta.Title,
			Description: doc.Meta.Description,
			Guard:       doc.Meta.Guard,
			Component:   scoped.Main.Name,
		}
	}
	return e.String(), route
}

// emitImports re-emits author imports verbatim and folds any runtime-module
// import into the generated one, so ref and derive are always in scope.
// Default and namespace bindings on the runtime module survive the fold.
func (g *Generator) emitImports(e *emitter, doc *parser.SourceDocument) {
	names := []string{g.vocab.Container, g.vocab.Derive}
	seen := map[string]bool{g.vocab.Container: true, g.vocab.Derive: true}
	defaultBinding := ""
	namespaceBinding := ""

	for _, imp := range doc.Imports {
		if imp.Source == g.vocab.Module {
			if imp.Default != "" && defaultBinding == "" {
				defaultBinding = imp.Default
			}
			if imp.Namespace != "" && namespaceBinding == "" {
				namespaceBinding = imp.Namespace
			}
			for _, spec := range imp.Specifiers {
				if !seen[spec] {
					seen[spec] = true
					names = append(names, spec)
				}
			}
			continue
		}
		e.line(imp.Raw)
	}

	clause := fmt.Sprintf("{ %s }", strings.Join(names, ", "))
	if defaultBinding != "" {
		clause = defaultBinding + ", " + clause
	}
	e.linef("import %s from %s;", clause, jsQuote(g.vocab.Module))
	if namespaceBinding != "" {
		e.linef("import * as %s from %s;", namespaceBinding, jsQuote(g.vocab.Module))
	}
	e.blank()
}

// emitSharedLayout keeps top-level blocks at module scope, shared across
// every invocation of the exported components.
func (g *Generator) emitSharedLayout(e *emitter, scoped *scope.ScopedDocument, views map[string]*markup.Document) {
	for _, b := range scoped.ComponentScope {
		e.block(b.Source, b.Column)
	}
	if len(scoped.ComponentScope) > 0 {
		e.blank()
	}

	if scoped.Main != nil {
		g.emitComponent(e, scoped.Main, nil, scoped.UIScope, views[scoped.Main.Name])
	}
	for _, other := range scoped.Others {
		e.blank()
		g.emitComponent(e, other.Decl, nil, other.Blocks, views[other.Decl.Name])
	}
}

// emitPageLayout relocates top-level blocks into the page function so every
// navigation constructs private state.
func (g *Generator) emitPageLayout(e *emitter, scoped *scope.ScopedDocument, views map[string]*markup.Document) {
	if scoped.Main != nil {
		g.emitComponent(e, scoped.Main, scoped.ComponentScope, scoped.UIScope, views[scoped.Main.Name])
	}
	for _, other := range scoped.Others {
		e.blank()
		g.emitComponent(e, other.Decl, nil, other.Blocks, views[other.Decl.Name])
	}
}

func (g *Generator) emitComponent(e *emitter, c *parser.ComponentDecl, hoisted []parser.CodeBlock, blocks []parser.CodeBlock, view *markup.Document) {
	prefix := "export "
	if c.IsDefault {
		prefix = "export default "
	}
	sig := g.vocab.Builder
	if c.ParamsRaw != "" {
		sig += ", " + c.ParamsRaw
	}
	e.linef("%sfunction %s(%s) {", prefix, c.Name, sig)
	e.in()

	for _, b := range hoisted {
		e.block(b.Source, b.Column)
	}
	if len(hoisted) > 0 {
		e.blank()
	}

	e.linef("%s.render((%s) => {", g.vocab.Builder, g.vocab.Builder)
	e.in()
	for _, b := range blocks {
		e.block(b.Source, b.Column)
	}
	if view != nil && len(view.Roots) > 0 {
		if len(blocks) > 0 {
			e.blank()
		}
		g.emitNodes(e, view.Roots)
	}
	e.out()
	e.line("});")

	e.out()
	e.line("}")
}

func (g *Generator) emitNodes(e *emitter, nodes []markup.Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *markup.Text:
			g.emitText(e, v)
		case *markup.Element:
			g.emitElement(e, v)
		case *markup.Conditional:
			g.emitConditional(e, v)
		case *markup.Loop:
			g.emitLoop(e, v)
		}
	}
}

func (g *Generator) emitText(e *emitter, t *markup.Text) {
	if t.Fallback {
		g.res.Addf(diag.KindCodegenFallback, g.file, t.Line, 0,
			"emitting inert text for a construct the generator cannot lower")
	}
	switch {
	case t.IsStatic && t.Quote:
		e.linef("%s.text(%s);", g.vocab.Builder, jsQuote(t.Static))
	case t.IsStatic:
		e.linef("%s.text(%s);", g.vocab.Builder, t.Static)
	default:
		e.linef("%s.text(%s);", g.vocab.Builder, g.derive(t.Binding.Deps, t.Binding.Raw))
	}
}

func (g *Generator) emitElement(e *emitter, el *markup.Element) {
	call := g.vocab.Builder + "." + el.Tag
	if isComponentTag(el.Tag) {
		// Component invocation: generated components take the builder first.
		call = el.Tag
	}

	props := g.propsObject(el)
	events := g.eventsObject(el)

	if len(el.Children) == 0 {
		if isComponentTag(el.Tag) {
			e.linef("%s(%s, %s);", call, g.vocab.Builder, props)
		} else {
			e.linef("%s(%s, %s);", call, props, events)
		}
		return
	}

	if isComponentTag(el.Tag) {
		e.linef("%s(%s, %s, (%s) => {", call, g.vocab.Builder, props, g.vocab.Builder)
	} else {
		e.linef("%s(%s, %s, (%s) => {", call, props, events, g.vocab.Builder)
	}
	e.in()
	g.emitNodes(e, el.Children)
	e.out()
	e.line("});")
}

func (g *Generator) propsObject(el *markup.Element) string {
	var parts []string
	for _, p := range el.Props {
		value := ""
		switch {
		case p.IsStatic:
			value = jsQuote(p.Static)
		case p.Binding.Reactive():
			value = g.derive(p.Binding.Deps, p.Binding.Raw)
		default:
			value = p.Binding.Raw
		}
		parts = append(parts, fmt.Sprintf("%s: %s", propName(p.Name), value))
	}
	return objectLiteral(parts)
}

func (g *Generator) eventsObject(el *markup.Element) string {
	var parts []string
	for _, ev := range el.Events {
		parts = append(parts, fmt.Sprintf("%s: %s", propName(ev.Name), ev.Handler))
	}
	return objectLiteral(parts)
}

// emitConditional lowers the canonical branch list: plain if/else when no
// branch condition is reactive, the runtime's when chain otherwise.
func (g *Generator) emitConditional(e *emitter, c *markup.Conditional) {
	if c.Static {
		for i, br := range c.Branches {
			if i == 0 {
				e.linef("if (%s) {", br.Cond.Raw)
			} else {
				e.linef("} else if (%s) {", br.Cond.Raw)
			}
			e.in()
			g.emitNodes(e, br.Body)
			e.out()
		}
		if c.Else != nil {
			e.line("} else {")
			e.in()
			g.emitNodes(e, c.Else)
			e.out()
		}
		e.line("}")
		return
	}

	for i, br := range c.Branches {
		guard := g.derive(br.Cond.Deps, br.Cond.Raw)
		if i == 0 {
			e.linef("%s.%s(%s, (%s) => {", g.vocab.Builder, g.vocab.When, guard, g.vocab.Builder)
		} else {
			e.linef("}).%s(%s, (%s) => {", g.vocab.ElseWhen, guard, g.vocab.Builder)
		}
		e.in()
		g.emitNodes(e, br.Body)
		e.out()
	}
	if c.Else != nil {
		e.linef("}).%s((%s) => {", g.vocab.Otherwise, g.vocab.Builder)
		e.in()
		g.emitNodes(e, c.Else)
		e.out()
	}
	e.line("});")
}

func (g *Generator) emitLoop(e *emitter, l *markup.Loop) {
	if !l.Reactive {
		params := l.Item
		if l.Index != "" {
			params += ", " + l.Index
		}
		e.linef("%s.forEach((%s) => {", l.Source.Raw, params)
		e.in()
		g.emitNodes(e, l.Body)
		e.out()
		e.line("});")
		return
	}

	key := "(_item, _index) => _index"
	if l.Key != nil {
		key = fmt.Sprintf("(%s) => %s", l.Key.Param, l.Key.Raw)
	}
	render := g.vocab.Builder + ", " + l.Item
	if l.Index != "" {
		render += ", " + l.Index
	}

	e.linef("%s.%s({", g.vocab.Builder, g.vocab.Each)
	e.in()
	e.linef("items: %s,", l.Source.Raw)
	e.linef("key: %s,", key)
	e.linef("render: (%s) => {", render)
	e.in()
	g.emitNodes(e, l.Body)
	e.out()
	e.line("},")
	e.out()
	e.line("});")
}

// derive wraps an expression with its subscription list.
func (g *Generator) derive(deps []string, raw string) string {
	return fmt.Sprintf("%s([%s], () => %s)", g.vocab.Derive, strings.Join(deps, ", "), raw)
}

var jsIdentRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

func propName(name string) string {
	if jsIdentRe.MatchString(name) {
		return name
	}
	return jsQuote(name)
}

func isComponentTag(tag string) bool {
	return tag != "" && tag[0] >= 'A' && tag[0] <= 'Z'
}

func objectLiteral(parts []string) string {
	if len(parts) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// jsQuote produces a double-quoted JS string literal. Only the escapes JS
// and Go disagree on are handled by hand; everything else passes through
// as UTF-8.
func jsQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// emitter accumulates two-space indented output lines.
type emitter struct {
	b      strings.Builder
	indent int
}

func (e *emitter) in()  { e.indent++ }
func (e *emitter) out() { e.indent-- }

func (e *emitter) line(s string) {
	if s == "" {
		e.b.WriteByte('\n')
		return
	}
	for i := 0; i < e.indent; i++ {
		e.b.WriteString("  ")
	}
	e.b.WriteString(s)
	e.b.WriteByte('\n')
}

func (e *emitter) linef(format string, args ...any) {
	e.line(fmt.Sprintf(format, args...))
}

func (e *emitter) blank() { e.line("") }

// block re-emits a source block at the current indent. Continuation lines
// shed the block's original column so relative indentation survives.
func (e *emitter) block(src string, col int) {
	lines := strings.Split(src, "\n")
	e.line(lines[0])
	for _, ln := range lines[1:] {
		e.line(dedent(ln, col-1))
	}
}

func dedent(s string, n int) string {
	i := 0
	for i < n && i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[i:]
}

func (e *emitter) String() string { return e.b.String() }
