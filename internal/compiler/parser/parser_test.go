// # internal/compiler/parser/parser_test.go
package parser

import (
	"strings"
	"testing"
)

func newTestParser() *Parser {
	return NewParser(NewGrammarLoader(), DefaultVocabulary())
}

const counterSource = `// @page /counter
// @title Counter

import { formatCount } from "./lib.js";

const label = "Count";

export default function Counter() {
  const count = ref(0);
  const double = derive([count], () => count.value * 2);
  const inc = () => count.value++;
  return (
    <div class="counter">
      <span>{label}</span>
      <span>{count.value}</span>
      <button onClick={inc}>+</button>
    </div>
  );
}
`

func TestParseCounter(t *testing.T) {
	p := newTestParser()
	doc, res, err := p.Parse("pages/counter.jsx", []byte(counterSource))
	if err != nil {
		t.Fatalf("Parse failed: %v (%v)", err, res.All())
	}

	if !doc.Meta.IsPage || doc.Meta.Route != "/counter" {
		t.Errorf("Unexpected page meta: %+v", doc.Meta)
	}
	if doc.Meta.Title != "Counter" {
		t.Errorf("Unexpected title %q", doc.Meta.Title)
	}
	if doc.Grammar != "jsx" {
		t.Errorf("Expected jsx grammar, got %s", doc.Grammar)
	}

	if len(doc.Imports) != 1 || doc.Imports[0].Source != "./lib.js" {
		t.Fatalf("Unexpected imports: %+v", doc.Imports)
	}
	if len(doc.Imports[0].Specifiers) != 1 || doc.Imports[0].Specifiers[0] != "formatCount" {
		t.Errorf("Unexpected import specifiers: %v", doc.Imports[0].Specifiers)
	}

	if len(doc.TopLevel) != 1 {
		t.Fatalf("Expected 1 top-level block, got %d", len(doc.TopLevel))
	}
	if doc.TopLevel[0].Symbol != "label" || doc.TopLevel[0].Kind != BlockVariable {
		t.Errorf("Unexpected top-level block: %+v", doc.TopLevel[0])
	}

	if len(doc.Components) != 1 {
		t.Fatalf("Expected 1 component, got %d", len(doc.Components))
	}
	comp := doc.Components[0]
	if comp.Name != "Counter" || !comp.IsDefault {
		t.Errorf("Unexpected component: %+v", comp)
	}
	if len(comp.Body) != 3 {
		t.Fatalf("Expected 3 body blocks, got %d", len(comp.Body))
	}

	count := comp.Body[0]
	if count.Symbol != "count" || !count.Container {
		t.Errorf("Expected count to be a container block: %+v", count)
	}
	double := comp.Body[1]
	if double.Symbol != "double" || !hasRef(double.Refs, "count") {
		t.Errorf("Expected double to reference count: %+v", double)
	}
	inc := comp.Body[2]
	if inc.Symbol != "inc" || !hasRef(inc.Refs, "count") {
		t.Errorf("Expected inc to reference count: %+v", inc)
	}

	if comp.Markup == nil || comp.Markup.Kind != NodeElement || comp.Markup.Tag != "div" {
		t.Fatalf("Unexpected markup root: %+v", comp.Markup)
	}
	if len(comp.Markup.Attrs) != 1 || comp.Markup.Attrs[0].Name != "class" || comp.Markup.Attrs[0].Static != "counter" {
		t.Errorf("Unexpected root attrs: %+v", comp.Markup.Attrs)
	}
	if len(comp.Markup.Children) != 3 {
		t.Fatalf("Expected 3 children, got %d", len(comp.Markup.Children))
	}

	countSpan := comp.Markup.Children[1]
	if len(countSpan.Children) != 1 || countSpan.Children[0].Kind != NodeExpr {
		t.Fatalf("Expected expression child in second span: %+v", countSpan)
	}
	expr := countSpan.Children[0].Expr
	if expr.Kind != ExprMember || expr.Raw != "count.value" {
		t.Errorf("Unexpected expression: %+v", expr)
	}
	if !hasRef(expr.Deps, "count") {
		t.Errorf("Expected count.value deps to include count, got %v", expr.Deps)
	}

	button := comp.Markup.Children[2]
	if button.Tag != "button" {
		t.Fatalf("Expected button, got %s", button.Tag)
	}
	if len(button.Attrs) != 1 || button.Attrs[0].Name != "onClick" || !button.Attrs[0].IsExpr {
		t.Errorf("Unexpected button attrs: %+v", button.Attrs)
	}

	if containers := doc.Containers(); !containers["count"] || containers["label"] {
		t.Errorf("Unexpected container set: %v", containers)
	}
}

func TestParseSharedComponent(t *testing.T) {
	src := `
const theme = "dark";

export function Badge({ label, tone }) {
  return <span class={tone}>{label}</span>;
}
`
	p := newTestParser()
	doc, _, err := p.Parse("components/badge.jsx", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if doc.Meta.IsPage {
		t.Error("Expected non-page document")
	}
	comp := doc.Main()
	if comp == nil || comp.Name != "Badge" || comp.IsDefault {
		t.Fatalf("Unexpected main component: %+v", comp)
	}
	if !hasRef(comp.Params, "label") || !hasRef(comp.Params, "tone") {
		t.Errorf("Expected destructured params, got %v", comp.Params)
	}
	if !strings.Contains(comp.ParamsRaw, "label") {
		t.Errorf("Unexpected ParamsRaw %q", comp.ParamsRaw)
	}

	// Component params are bound, so markup deps must not include them via
	// the outer scope leak.
	if comp.Markup == nil || comp.Markup.Tag != "span" {
		t.Fatalf("Unexpected markup: %+v", comp.Markup)
	}
}

func TestParseAnonymousDefault(t *testing.T) {
	src := `export default function () {
  return <p>hello</p>;
}
`
	p := newTestParser()
	doc, _, err := p.Parse("widgets/user-card.jsx", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Components[0].Name != "UserCard" {
		t.Errorf("Expected UserCard from file name, got %s", doc.Components[0].Name)
	}
}

func TestParseTSX(t *testing.T) {
	src := `export default function App() {
  const open = ref(false);
  return <div>{open.value && <aside>menu</aside>}</div>;
}
`
	p := newTestParser()
	doc, _, err := p.Parse("app.tsx", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Grammar != "tsx" {
		t.Errorf("Expected tsx grammar, got %s", doc.Grammar)
	}
	if len(doc.Components[0].Body) != 1 || !doc.Components[0].Body[0].Container {
		t.Errorf("Expected open container block: %+v", doc.Components[0].Body)
	}
}

func TestParseErrors(t *testing.T) {
	p := newTestParser()

	if _, _, err := p.Parse("style.css", []byte("body {}")); err == nil {
		t.Error("Expected error for unsupported file type")
	}

	if _, res, err := p.Parse("empty.jsx", []byte("const x = 1;")); err == nil {
		t.Error("Expected error for file without exported component")
	} else if !res.HasFatal() {
		t.Error("Expected fatal diagnostic for missing component")
	}

	pageNoDefault := `// @page /broken
export function Broken() {
  return <p>broken</p>;
}
`
	if _, _, err := p.Parse("broken.jsx", []byte(pageNoDefault)); err == nil {
		t.Error("Expected error for page without default export")
	}
}

func TestComponentNameFromFile(t *testing.T) {
	cases := map[string]string{
		"user-card.jsx":     "UserCard",
		"pages/home.tsx":    "Home",
		"nav_bar.jsx":       "NavBar",
		"widgets/a.b.c.jsx": "AB",
	}
	for path, want := range cases {
		if got := componentNameFromFile(path); got != want {
			t.Errorf("componentNameFromFile(%q) = %q, want %q", path, got, want)
		}
	}
}

func hasRef(refs []string, name string) bool {
	for _, r := range refs {
		if r == name {
			return true
		}
	}
	return false
}

func TestParseConciseArrowComponent(t *testing.T) {
	src := `export default () => (
  <div class="card">
    <p>hi</p>
  </div>
);
`
	doc, res, err := newTestParser().Parse("card.jsx", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v (%v)", err, res.All())
	}

	comp := doc.Default()
	if comp == nil || comp.Name != "Card" {
		t.Fatalf("Unexpected component: %+v", comp)
	}
	if comp.Markup == nil {
		t.Fatal("Concise arrow body must be captured as markup")
	}
	if comp.Markup.Tag != "div" {
		t.Errorf("Unexpected markup root %q", comp.Markup.Tag)
	}
	if len(comp.Body) != 0 {
		t.Errorf("Markup body leaked into code blocks: %+v", comp.Body)
	}
}

func TestParseConciseArrowNonMarkupBody(t *testing.T) {
	src := `export default () => buildView();
`
	doc, _, err := newTestParser().Parse("view.jsx", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	comp := doc.Default()
	if comp.Markup != nil {
		t.Errorf("Non-markup body misread as markup: %+v", comp.Markup)
	}
	if len(comp.Body) != 1 {
		t.Fatalf("Expected body expression block, got %+v", comp.Body)
	}
	if comp.Body[0].Source != "buildView()" {
		t.Errorf("Unexpected body source %q", comp.Body[0].Source)
	}
}
