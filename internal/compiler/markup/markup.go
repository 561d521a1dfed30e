// # internal/compiler/markup/markup.go
package markup

import (
	"regexp"
	"strings"

	"loom/internal/compiler/diag"
	"loom/internal/compiler/parser"
)

// Document is the normalized structural model of one component's markup:
// a flat, queryable tree of elements, text slots, conditionals and loops,
// with every dynamic expression annotated with the reactive containers it
// depends on. It is built fresh from the parser's raw tree, never aliasing it.
type Document struct {
	Roots []Node
}

type Node interface {
	node()
}

type Element struct {
	Tag      string
	Props    []Prop
	Events   []Event
	Key      *Binding // key prop, lifted off the props list
	Children []Node
	Line     int
}

type Prop struct {
	Name     string
	IsStatic bool
	Static   string   // literal value when IsStatic
	Binding  *Binding // reactive or inline expression otherwise
}

type Event struct {
	Name    string // DOM event name, already lower-cased (onClick -> click)
	Handler string // handler expression, emitted verbatim
}

// Binding is a dynamic expression plus the ordered, de-duplicated subset of
// its free identifiers that name reactive containers. An empty Deps list
// means the expression can be inlined with no subscription.
type Binding struct {
	Raw  string
	Deps []string
}

func (b *Binding) Reactive() bool {
	return b != nil && len(b.Deps) > 0
}

type Text struct {
	IsStatic bool
	Static   string   // literal text (Quote) or inline expression source
	Quote    bool     // quote Static as a string literal on emit
	Binding  *Binding // reactive expression otherwise
	Fallback bool     // degraded output for a construct that could not be lowered
	Line     int
}

type CondBranch struct {
	Cond Binding
	Body []Node
}

// Conditional is the single canonical shape all three authoring idioms
// normalize to: `cond && markup`, ternaries (chained ones become the
// else-if branches), and the explicit when/elsewhen/otherwise chain.
type Conditional struct {
	Branches []CondBranch // if plus else-if branches, in order
	Else     []Node
	Static   bool // no branch condition touches a reactive container
	Line     int
}

type KeyFn struct {
	Param string // item binding the key expression is written against
	Raw   string
}

// Loop is the canonical shape for the three loop idioms: a reactive
// container's .map callback, a literal array's .map callback, and the
// explicit each helper.
type Loop struct {
	Source   Binding // the container for reactive loops, the iterable otherwise
	Reactive bool
	Item     string
	Index    string // "" when the callback declares no index
	Key      *KeyFn // nil when absent (flagged on reactive loops)
	Body     []Node
	Line     int
}

func (*Element) node()     {}
func (*Text) node()        {}
func (*Conditional) node() {}
func (*Loop) node()        {}

var eventPropRe = regexp.MustCompile(`^on[A-Z]`)

type analyzer struct {
	containers map[string]bool
	vocab      parser.Vocabulary
	file       string
	res        *diag.Result
}

// Analyze normalizes a component's raw markup tree against the set of known
// reactive container symbols.
func Analyze(root *parser.MarkupNode, containers map[string]bool, vocab parser.Vocabulary, file string, res *diag.Result) *Document {
	doc := &Document{}
	if root == nil {
		return doc
	}
	a := &analyzer{
		containers: containers,
		vocab:      vocab,
		file:       file,
		res:        res,
	}
	doc.Roots = a.nodes(root)
	return doc
}

// nodes lowers one raw node; fragments flatten into their children.
func (a *analyzer) nodes(m *parser.MarkupNode) []Node {
	if m == nil {
		return nil
	}
	switch m.Kind {
	case parser.NodeText:
		return []Node{&Text{IsStatic: true, Static: m.Text, Quote: true, Line: m.Line}}
	case parser.NodeFragment:
		var out []Node
		for _, child := range m.Children {
			out = append(out, a.nodes(child)...)
		}
		return out
	case parser.NodeElement:
		return []Node{a.element(m)}
	case parser.NodeExpr:
		return a.expr(m.Expr)
	}
	return nil
}

func (a *analyzer) element(m *parser.MarkupNode) *Element {
	el := &Element{Tag: m.Tag, Line: m.Line}

	for _, attr := range m.Attrs {
		raw := attr.Static
		if attr.IsExpr {
			raw = attr.Expr.Raw
		}

		switch {
		case eventPropRe.MatchString(attr.Name):
			name := strings.ToLower(attr.Name[2:])
			el.Events = append(el.Events, Event{Name: name, Handler: raw})
		case attr.Name == "key":
			el.Key = a.binding(attr.Expr, raw)
		case attr.IsExpr:
			el.Props = append(el.Props, Prop{Name: attr.Name, Binding: a.binding(attr.Expr, raw)})
		default:
			el.Props = append(el.Props, Prop{Name: attr.Name, IsStatic: true, Static: attr.Static})
		}
	}

	for _, child := range m.Children {
		el.Children = append(el.Children, a.nodes(child)...)
	}
	return el
}

func (a *analyzer) expr(e *parser.Expr) []Node {
	if e == nil {
		return nil
	}

	switch e.Kind {
	case parser.ExprMarkup:
		return a.nodes(e.Markup)

	case parser.ExprLogicalAnd:
		if e.Right != nil && e.Right.Kind == parser.ExprMarkup {
			cond := a.binding(e.Left, e.Left.Raw)
			c := &Conditional{
				Branches: []CondBranch{{Cond: *cond, Body: a.nodes(e.Right.Markup)}},
				Line:     e.Line,
			}
			c.Static = !cond.Reactive()
			return []Node{c}
		}

	case parser.ExprTernary:
		if ternaryHoldsMarkup(e) {
			return []Node{a.ternary(e)}
		}

	case parser.ExprCall:
		if node, ok := a.call(e); ok {
			return node
		}
	}

	// Plain dynamic text slot.
	b := a.binding(e, e.Raw)
	if b.Reactive() {
		return []Node{&Text{Binding: b, Line: e.Line}}
	}
	if e.Kind == parser.ExprString {
		return []Node{&Text{IsStatic: true, Static: e.Value, Quote: true, Line: e.Line}}
	}
	return []Node{&Text{IsStatic: true, Static: e.Raw, Line: e.Line}}
}

func ternaryHoldsMarkup(e *parser.Expr) bool {
	if e.Then != nil && e.Then.Kind == parser.ExprMarkup {
		return true
	}
	if e.Else != nil && e.Else.Kind == parser.ExprMarkup {
		return true
	}
	if e.Else != nil && e.Else.Kind == parser.ExprTernary {
		return ternaryHoldsMarkup(e.Else)
	}
	return false
}

// ternary flattens `c1 ? a : c2 ? b : z` into an else-if chain.
func (a *analyzer) ternary(e *parser.Expr) *Conditional {
	c := &Conditional{Line: e.Line, Static: true}

	cur := e
	for {
		cond := a.binding(cur.Cond, cur.Cond.Raw)
		if cond.Reactive() {
			c.Static = false
		}
		c.Branches = append(c.Branches, CondBranch{Cond: *cond, Body: a.branchBody(cur.Then)})

		if cur.Else == nil {
			return c
		}
		if cur.Else.Kind == parser.ExprTernary && ternaryHoldsMarkup(cur.Else) {
			cur = cur.Else
			continue
		}
		c.Else = a.branchBody(cur.Else)
		return c
	}
}

func (a *analyzer) branchBody(e *parser.Expr) []Node {
	if e == nil || e.IsNullish() {
		return nil
	}
	return a.expr(e)
}

// call classifies call expressions in markup position: the explicit loop
// helper, a .map loop, or the explicit conditional chain. Anything else is
// left to the plain-text path.
func (a *analyzer) call(e *parser.Expr) ([]Node, bool) {
	callee := e.Callee
	if callee == nil {
		return nil, false
	}

	if callee.Kind == parser.ExprIdent && callee.Name == a.vocab.Each {
		return []Node{a.eachLoop(e)}, true
	}

	if callee.Kind == parser.ExprMember && callee.Property == "map" {
		if loop, ok := a.mapLoop(e); ok {
			return []Node{loop}, true
		}
		return nil, false
	}

	// when(...).elsewhen(...).otherwise(...) — the chain head is the
	// outermost call; anything that is not a pure chain is malformed.
	if isChainShaped(callee, a.vocab) {
		if node, ok := a.explicitChain(e); ok {
			return []Node{node}, true
		}
		a.res.Addf(diag.KindMarkupError, a.file, e.Line, e.Column,
			"malformed conditional chain: %s", firstLine(e.Raw))
		return []Node{&Text{IsStatic: true, Static: e.Raw, Quote: true, Fallback: true, Line: e.Line}}, true
	}

	return nil, false
}

// isChainShaped reports whether the callee could be part of an explicit
// conditional chain, so malformed chains are diagnosed instead of being
// silently treated as text.
func isChainShaped(callee *parser.Expr, vocab parser.Vocabulary) bool {
	switch callee.Kind {
	case parser.ExprIdent:
		return callee.Name == vocab.When
	case parser.ExprMember:
		if callee.Property == vocab.ElseWhen || callee.Property == vocab.Otherwise {
			return true
		}
		// A foreign method hanging off a when chain is still chain-shaped
		// (and malformed); find when() at the base.
		obj := callee.Object
		for obj != nil {
			if obj.Kind == parser.ExprCall {
				return isChainShaped(obj.Callee, vocab)
			}
			if obj.Kind == parser.ExprMember {
				obj = obj.Object
				continue
			}
			return false
		}
	}
	return false
}

type chainLink struct {
	name string
	args []*parser.Expr
	line int
}

// explicitChain validates and normalizes the three-call idiom. The chain
// must be one contiguous member-call sequence: when first, elsewhen zero or
// more times, otherwise at most once and last.
func (a *analyzer) explicitChain(e *parser.Expr) (Node, bool) {
	var links []chainLink
	cur := e
	for {
		if cur.Kind != parser.ExprCall || cur.Callee == nil {
			return nil, false
		}
		switch cur.Callee.Kind {
		case parser.ExprIdent:
			links = append(links, chainLink{name: cur.Callee.Name, args: cur.Args, line: cur.Line})
			cur = nil
		case parser.ExprMember:
			links = append(links, chainLink{name: cur.Callee.Property, args: cur.Args, line: cur.Line})
			cur = cur.Callee.Object
		default:
			return nil, false
		}
		if cur == nil {
			break
		}
	}

	// links were collected outermost-first.
	for i, j := 0, len(links)-1; i < j; i, j = i+1, j-1 {
		links[i], links[j] = links[j], links[i]
	}

	if links[0].name != a.vocab.When || len(links[0].args) != 2 {
		return nil, false
	}

	c := &Conditional{Line: e.Line, Static: true}
	addBranch := func(link chainLink) {
		cond := a.binding(link.args[0], link.args[0].Raw)
		if cond.Reactive() {
			c.Static = false
		}
		c.Branches = append(c.Branches, CondBranch{Cond: *cond, Body: a.branchBody(link.args[1])})
	}
	addBranch(links[0])

	for i := 1; i < len(links); i++ {
		link := links[i]
		switch link.name {
		case a.vocab.ElseWhen:
			if len(link.args) != 2 || c.Else != nil {
				return nil, false
			}
			addBranch(link)
		case a.vocab.Otherwise:
			if len(link.args) != 1 || c.Else != nil {
				return nil, false
			}
			c.Else = a.branchBody(link.args[0])
		default:
			return nil, false
		}
	}
	return c, true
}

func (a *analyzer) eachLoop(e *parser.Expr) Node {
	if len(e.Args) < 2 || e.Args[1].Kind != parser.ExprArrow {
		a.res.Addf(diag.KindMarkupError, a.file, e.Line, e.Column,
			"%s requires an iterable and a render callback", a.vocab.Each)
		return &Text{IsStatic: true, Static: e.Raw, Quote: true, Fallback: true, Line: e.Line}
	}

	loop := &Loop{Line: e.Line}
	iterable := e.Args[0]
	root := iterable.RootIdent()
	if a.containers[root] {
		loop.Reactive = true
		loop.Source = Binding{Raw: root, Deps: []string{root}}
	} else {
		loop.Source = Binding{Raw: iterable.Raw}
	}

	a.fillLoopCallback(loop, e.Args[1])

	if len(e.Args) >= 3 {
		key := e.Args[2]
		if key.Kind == parser.ExprArrow && key.Body != nil && len(key.Params) > 0 {
			loop.Key = &KeyFn{Param: key.Params[0], Raw: key.Body.Raw}
		} else {
			loop.Key = &KeyFn{Param: loop.Item, Raw: key.Raw}
		}
	}

	a.checkLoopKey(loop)
	return loop
}

// mapLoop handles `source.map(callback)`. A reactive container's .value.map
// becomes a reactive list over the container itself; a literal array (or any
// non-container source) stays a plain iteration.
func (a *analyzer) mapLoop(e *parser.Expr) (Node, bool) {
	if len(e.Args) < 1 || e.Args[0].Kind != parser.ExprArrow {
		return nil, false
	}
	callback := e.Args[0]
	if callback.Body == nil || callback.Body.Kind != parser.ExprMarkup {
		return nil, false
	}

	loop := &Loop{Line: e.Line}
	iterable := e.Callee.Object
	root := iterable.RootIdent()
	if a.containers[root] {
		loop.Reactive = true
		loop.Source = Binding{Raw: root, Deps: []string{root}}
	} else {
		loop.Source = Binding{Raw: iterable.Raw}
	}

	a.fillLoopCallback(loop, callback)
	a.checkLoopKey(loop)
	return loop, true
}

func (a *analyzer) fillLoopCallback(loop *Loop, callback *parser.Expr) {
	loop.Item = "item"
	if len(callback.Params) > 0 {
		loop.Item = callback.Params[0]
	}
	if len(callback.Params) > 1 {
		loop.Index = callback.Params[1]
	}
	loop.Body = a.branchBody(callback.Body)

	// The key prop on the body's root element names the identity expression.
	if loop.Key == nil {
		for _, n := range loop.Body {
			if el, ok := n.(*Element); ok {
				if el.Key != nil {
					loop.Key = &KeyFn{Param: loop.Item, Raw: el.Key.Raw}
				}
				break
			}
		}
	}
}

func (a *analyzer) checkLoopKey(loop *Loop) {
	if loop.Reactive && loop.Key == nil {
		a.res.Addf(diag.KindMarkupWarning, a.file, loop.Line, 0,
			"reactive list without a key expression; item identity is not stable across reorders")
	}
}

// binding builds the dependency-annotated view of one expression: the
// ordered intersection of its free identifiers with the known reactive
// containers.
func (a *analyzer) binding(e *parser.Expr, raw string) *Binding {
	b := &Binding{Raw: raw}
	if e == nil {
		return b
	}
	seen := make(map[string]bool)
	for _, dep := range e.Deps {
		if a.containers[dep] && !seen[dep] {
			seen[dep] = true
			b.Deps = append(b.Deps, dep)
		}
	}
	return b
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
