// # internal/compiler/markup/markup_test.go
package markup

import (
	"testing"

	"loom/internal/compiler/diag"
	"loom/internal/compiler/parser"
)

func ident(name string, deps ...string) *parser.Expr {
	return &parser.Expr{Kind: parser.ExprIdent, Raw: name, Name: name, Deps: deps}
}

func member(obj *parser.Expr, prop, raw string, deps ...string) *parser.Expr {
	return &parser.Expr{Kind: parser.ExprMember, Raw: raw, Object: obj, Property: prop, Deps: deps}
}

func call(callee *parser.Expr, raw string, args ...*parser.Expr) *parser.Expr {
	return &parser.Expr{Kind: parser.ExprCall, Raw: raw, Callee: callee, Args: args}
}

func arrow(params []string, body *parser.Expr, raw string) *parser.Expr {
	return &parser.Expr{Kind: parser.ExprArrow, Raw: raw, Params: params, Body: body}
}

func markupExpr(m *parser.MarkupNode) *parser.Expr {
	return &parser.Expr{Kind: parser.ExprMarkup, Markup: m}
}

func el(tag string, children ...*parser.MarkupNode) *parser.MarkupNode {
	return &parser.MarkupNode{Kind: parser.NodeElement, Tag: tag, Children: children}
}

func exprNode(e *parser.Expr) *parser.MarkupNode {
	return &parser.MarkupNode{Kind: parser.NodeExpr, Expr: e}
}

func analyzeOne(t *testing.T, root *parser.MarkupNode, containers map[string]bool, res *diag.Result) *Document {
	t.Helper()
	return Analyze(root, containers, parser.DefaultVocabulary(), "test.jsx", res)
}

// openValue builds the `open.value` reactive guard.
func openValue() *parser.Expr {
	return member(ident("open", "open"), "value", "open.value", "open")
}

func asideMarkup() *parser.MarkupNode {
	return el("aside", &parser.MarkupNode{Kind: parser.NodeText, Text: "menu"})
}

// All three conditional idioms must normalize to the same canonical shape.
func TestConditionalIdiomsNormalize(t *testing.T) {
	containers := map[string]bool{"open": true}

	logical := exprNode(&parser.Expr{
		Kind:  parser.ExprLogicalAnd,
		Left:  openValue(),
		Right: markupExpr(asideMarkup()),
	})

	ternary := exprNode(&parser.Expr{
		Kind: parser.ExprTernary,
		Cond: openValue(),
		Then: markupExpr(asideMarkup()),
	})

	chain := exprNode(call(
		ident("when"),
		`when(open.value, <aside>menu</aside>)`,
		openValue(),
		markupExpr(asideMarkup()),
	))

	for name, root := range map[string]*parser.MarkupNode{
		"logical-and": logical,
		"ternary":     ternary,
		"chain":       chain,
	} {
		res := diag.NewResult()
		doc := analyzeOne(t, el("div", root), containers, res)

		if len(res.All()) != 0 {
			t.Errorf("%s: unexpected diagnostics %v", name, res.All())
			continue
		}
		div := doc.Roots[0].(*Element)
		if len(div.Children) != 1 {
			t.Fatalf("%s: expected 1 child, got %d", name, len(div.Children))
		}
		cond, ok := div.Children[0].(*Conditional)
		if !ok {
			t.Fatalf("%s: expected Conditional, got %T", name, div.Children[0])
		}
		if cond.Static {
			t.Errorf("%s: expected reactive conditional", name)
		}
		if len(cond.Branches) != 1 || cond.Else != nil {
			t.Errorf("%s: unexpected branch shape: %+v", name, cond)
		}
		if cond.Branches[0].Cond.Raw != "open.value" || !cond.Branches[0].Cond.Reactive() {
			t.Errorf("%s: unexpected guard: %+v", name, cond.Branches[0].Cond)
		}
		if len(cond.Branches[0].Body) != 1 {
			t.Errorf("%s: expected 1 body node", name)
		}
	}
}

func TestChainedTernaryFlattens(t *testing.T) {
	containers := map[string]bool{"status": true}
	statusIs := func(value string) *parser.Expr {
		raw := `status.value === "` + value + `"`
		return &parser.Expr{Kind: parser.ExprRaw, Raw: raw, Deps: []string{"status"}}
	}

	inner := &parser.Expr{
		Kind: parser.ExprTernary,
		Cond: statusIs("error"),
		Then: markupExpr(el("strong")),
		Else: markupExpr(el("em")),
	}
	root := exprNode(&parser.Expr{
		Kind: parser.ExprTernary,
		Cond: statusIs("ok"),
		Then: markupExpr(el("span")),
		Else: inner,
	})

	res := diag.NewResult()
	doc := analyzeOne(t, root, containers, res)

	cond := doc.Roots[0].(*Conditional)
	if len(cond.Branches) != 2 {
		t.Fatalf("Expected 2 branches, got %d", len(cond.Branches))
	}
	if cond.Else == nil {
		t.Fatal("Expected else body from final alternative")
	}
	if cond.Branches[0].Body[0].(*Element).Tag != "span" ||
		cond.Branches[1].Body[0].(*Element).Tag != "strong" ||
		cond.Else[0].(*Element).Tag != "em" {
		t.Errorf("Branch bodies mapped incorrectly: %+v", cond)
	}
}

func TestExplicitChainFull(t *testing.T) {
	containers := map[string]bool{"mode": true}
	guard := func(raw string) *parser.Expr {
		return &parser.Expr{Kind: parser.ExprRaw, Raw: raw, Deps: []string{"mode"}}
	}

	whenCall := call(ident("when"), "", guard(`mode.value === "a"`), markupExpr(el("a")))
	elseCall := call(member(whenCall, "elsewhen", ""), "", guard(`mode.value === "b"`), markupExpr(el("b")))
	otherCall := call(member(elseCall, "otherwise", ""), "", markupExpr(el("i")))

	res := diag.NewResult()
	doc := analyzeOne(t, exprNode(otherCall), containers, res)

	if len(res.All()) != 0 {
		t.Fatalf("Unexpected diagnostics: %v", res.All())
	}
	cond := doc.Roots[0].(*Conditional)
	if len(cond.Branches) != 2 || cond.Else == nil {
		t.Fatalf("Unexpected chain shape: %+v", cond)
	}
	if cond.Branches[1].Cond.Raw != `mode.value === "b"` {
		t.Errorf("Unexpected second guard: %q", cond.Branches[1].Cond.Raw)
	}
}

func TestMalformedChainDegrades(t *testing.T) {
	containers := map[string]bool{"open": true}
	whenCall := call(ident("when"), "", openValue(), markupExpr(asideMarkup()))
	// A foreign method interrupts the chain.
	bad := call(member(whenCall, "foo", ""), `when(open.value, ...).foo()`)

	res := diag.NewResult()
	doc := analyzeOne(t, exprNode(bad), containers, res)

	if res.Count(diag.KindMarkupError) != 1 {
		t.Fatalf("Expected markup error, got %v", res.All())
	}
	text, ok := doc.Roots[0].(*Text)
	if !ok || !text.Fallback {
		t.Errorf("Expected fallback text node, got %+v", doc.Roots[0])
	}
}

func TestReactiveMapLoop(t *testing.T) {
	containers := map[string]bool{"todos": true}

	li := el("li", exprNode(member(ident("todo"), "text", "todo.text", "todo")))
	li.Attrs = []parser.Attr{{
		Name:   "key",
		IsExpr: true,
		Expr:   member(ident("todo"), "id", "todo.id", "todo"),
	}}

	todosValue := member(ident("todos", "todos"), "value", "todos.value", "todos")
	mapCall := call(
		member(todosValue, "map", "todos.value.map", "todos"),
		`todos.value.map((todo) => <li key={todo.id}>{todo.text}</li>)`,
		arrow([]string{"todo"}, markupExpr(li), ""),
	)

	res := diag.NewResult()
	doc := analyzeOne(t, exprNode(mapCall), containers, res)

	loop, ok := doc.Roots[0].(*Loop)
	if !ok {
		t.Fatalf("Expected Loop, got %T", doc.Roots[0])
	}
	if !loop.Reactive || loop.Source.Raw != "todos" {
		t.Errorf("Expected reactive loop over todos, got %+v", loop)
	}
	if loop.Item != "todo" {
		t.Errorf("Unexpected item binding %q", loop.Item)
	}
	if loop.Key == nil || loop.Key.Raw != "todo.id" || loop.Key.Param != "todo" {
		t.Errorf("Unexpected key: %+v", loop.Key)
	}
	if res.Count(diag.KindMarkupWarning) != 0 {
		t.Errorf("Keyed loop must not warn: %v", res.All())
	}
}

func TestLiteralMapLoopIsStatic(t *testing.T) {
	arr := &parser.Expr{Kind: parser.ExprArray, Raw: "[1, 2, 3]"}
	mapCall := call(
		member(arr, "map", "[1, 2, 3].map"),
		`[1, 2, 3].map((n) => <li>{n}</li>)`,
		arrow([]string{"n"}, markupExpr(el("li", exprNode(ident("n", "n")))), ""),
	)

	res := diag.NewResult()
	doc := analyzeOne(t, exprNode(mapCall), map[string]bool{"todos": true}, res)

	loop := doc.Roots[0].(*Loop)
	if loop.Reactive {
		t.Error("Literal array loop must not be reactive")
	}
	if loop.Source.Raw != "[1, 2, 3]" {
		t.Errorf("Unexpected source %q", loop.Source.Raw)
	}
	if res.Count(diag.KindMarkupWarning) != 0 {
		t.Errorf("Static loops never warn about keys: %v", res.All())
	}
}

func TestEachHelper(t *testing.T) {
	containers := map[string]bool{"items": true}
	eachCall := call(
		ident("each"),
		`each(items, (it, i) => <li>{it.name}</li>, (it) => it.id)`,
		ident("items", "items"),
		arrow([]string{"it", "i"}, markupExpr(el("li", exprNode(member(ident("it"), "name", "it.name", "it")))), ""),
		arrow([]string{"it"}, member(ident("it"), "id", "it.id", "it"), ""),
	)

	res := diag.NewResult()
	doc := analyzeOne(t, exprNode(eachCall), containers, res)

	loop := doc.Roots[0].(*Loop)
	if !loop.Reactive || loop.Source.Raw != "items" {
		t.Errorf("Unexpected loop source: %+v", loop.Source)
	}
	if loop.Item != "it" || loop.Index != "i" {
		t.Errorf("Unexpected bindings: item=%q index=%q", loop.Item, loop.Index)
	}
	if loop.Key == nil || loop.Key.Param != "it" || loop.Key.Raw != "it.id" {
		t.Errorf("Unexpected key: %+v", loop.Key)
	}
}

func TestReactiveLoopWithoutKeyWarns(t *testing.T) {
	containers := map[string]bool{"items": true}
	mapCall := call(
		member(member(ident("items", "items"), "value", "items.value", "items"), "map", "items.value.map", "items"),
		`items.value.map((it) => <li>{it}</li>)`,
		arrow([]string{"it"}, markupExpr(el("li", exprNode(ident("it", "it")))), ""),
	)

	res := diag.NewResult()
	analyzeOne(t, exprNode(mapCall), containers, res)

	if res.Count(diag.KindMarkupWarning) != 1 {
		t.Errorf("Expected missing-key warning, got %v", res.All())
	}
}

func TestElementClassification(t *testing.T) {
	containers := map[string]bool{"user": true}
	root := el("div")
	root.Attrs = []parser.Attr{
		{Name: "class", Static: "card"},
		{Name: "title", IsExpr: true, Expr: member(member(ident("user", "user"), "value", "user.value", "user"), "name", "user.value.name", "user")},
		{Name: "onClick", IsExpr: true, Expr: ident("save", "save")},
		{Name: "key", IsExpr: true, Expr: ident("id", "id")},
	}
	root.Children = []*parser.MarkupNode{
		{Kind: parser.NodeText, Text: "hello"},
		exprNode(member(member(ident("user", "user"), "value", "user.value", "user"), "name", "user.value.name", "user")),
		exprNode(&parser.Expr{Kind: parser.ExprRaw, Raw: "1 + 2"}),
	}

	res := diag.NewResult()
	doc := analyzeOne(t, root, containers, res)
	div := doc.Roots[0].(*Element)

	if len(div.Props) != 2 {
		t.Fatalf("Expected 2 props, got %+v", div.Props)
	}
	if !div.Props[0].IsStatic || div.Props[0].Static != "card" {
		t.Errorf("Unexpected static prop: %+v", div.Props[0])
	}
	if !div.Props[1].Binding.Reactive() {
		t.Errorf("Expected reactive title prop: %+v", div.Props[1])
	}

	if len(div.Events) != 1 || div.Events[0].Name != "click" || div.Events[0].Handler != "save" {
		t.Errorf("Unexpected events: %+v", div.Events)
	}
	if div.Key == nil || div.Key.Raw != "id" {
		t.Errorf("Expected key lifted off props: %+v", div.Key)
	}

	if len(div.Children) != 3 {
		t.Fatalf("Expected 3 children, got %d", len(div.Children))
	}
	static := div.Children[0].(*Text)
	if !static.IsStatic || !static.Quote || static.Static != "hello" {
		t.Errorf("Unexpected static text: %+v", static)
	}
	reactive := div.Children[1].(*Text)
	if reactive.IsStatic || !reactive.Binding.Reactive() {
		t.Errorf("Expected reactive text: %+v", reactive)
	}
	inline := div.Children[2].(*Text)
	if !inline.IsStatic || inline.Quote || inline.Static != "1 + 2" {
		t.Errorf("Expected inline expression text: %+v", inline)
	}
}
