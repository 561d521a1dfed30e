// # internal/compiler/scope/scope.go
package scope

import (
	"sort"
	"strings"

	"loom/internal/compiler/diag"
	"loom/internal/compiler/parser"
)

// Policy is the scope-mapping rule for one document. Pages invert the usual
// mapping: module-level declarations are relocated into the page function so
// every navigation gets private copies, while reusable components keep
// module-level declarations shared.
type Policy int

const (
	SharedPolicy Policy = iota
	PagePolicy
)

func (p Policy) String() string {
	if p == PagePolicy {
		return "page"
	}
	return "shared"
}

// PolicyFor selects the mapping from the parsed page metadata.
func PolicyFor(doc *parser.SourceDocument) Policy {
	if doc.Meta.IsPage {
		return PagePolicy
	}
	return SharedPolicy
}

// ScopedDocument carries the two target scopes in emit order. The code
// generator decides placement: component scope goes to module level under
// SharedPolicy and into the page function under PagePolicy; UI scope always
// goes into the render callback.
type ScopedDocument struct {
	Policy         Policy
	ComponentScope []parser.CodeBlock
	UIScope        []parser.CodeBlock
	Main           *parser.ComponentDecl

	// Others holds the ordered bodies of exported components besides Main,
	// each its own UI scope.
	Others []ComponentBlocks
}

// ComponentBlocks pairs a secondary exported component with its ordered
// body blocks.
type ComponentBlocks struct {
	Decl   *parser.ComponentDecl
	Blocks []parser.CodeBlock
}

// Analyze partitions the document's blocks into the two scopes, orders each
// scope so every symbol is defined before first use, and reports cross-scope
// violations. It never fails: cycles fall back to original relative order.
func Analyze(doc *parser.SourceDocument, res *diag.Result) *ScopedDocument {
	scoped := &ScopedDocument{
		Policy: PolicyFor(doc),
		Main:   doc.Main(),
	}

	component := append([]parser.CodeBlock(nil), doc.TopLevel...)
	var ui []parser.CodeBlock
	if scoped.Main != nil {
		ui = append(ui, scoped.Main.Body...)
	}

	scoped.ComponentScope = orderBlocks(component, doc.File, res)
	scoped.UIScope = orderBlocks(ui, doc.File, res)

	for i := range doc.Components {
		c := &doc.Components[i]
		if c == scoped.Main {
			continue
		}
		scoped.Others = append(scoped.Others, ComponentBlocks{
			Decl:   c,
			Blocks: orderBlocks(append([]parser.CodeBlock(nil), c.Body...), doc.File, res),
		})
	}

	reportViolations(scoped, doc.File, res)
	return scoped
}

// orderBlocks emits blocks dependency-first within one scope. Strongly
// connected groups (mutual references, common with sibling closures) keep
// their original relative order instead of failing.
func orderBlocks(blocks []parser.CodeBlock, file string, res *diag.Result) []parser.CodeBlock {
	if len(blocks) <= 1 {
		return blocks
	}

	bySymbol := make(map[string]int, len(blocks))
	for i, b := range blocks {
		if b.Symbol != "" {
			if _, exists := bySymbol[b.Symbol]; !exists {
				bySymbol[b.Symbol] = i
			}
		}
	}

	// deps[i] lists the blocks that must precede block i, in ref order.
	deps := make([][]int, len(blocks))
	for i, b := range blocks {
		for _, ref := range b.Refs {
			if j, ok := bySymbol[ref]; ok && j != i {
				deps[i] = append(deps[i], j)
			}
		}
	}

	groups := stronglyConnected(deps)

	out := make([]parser.CodeBlock, 0, len(blocks))
	for _, group := range groups {
		sort.Ints(group)
		if len(group) > 1 {
			names := make([]string, 0, len(group))
			for _, i := range group {
				if blocks[i].Symbol != "" {
					names = append(names, blocks[i].Symbol)
				}
			}
			res.Addf(diag.KindScopeCycle, file, blocks[group[0]].Line, blocks[group[0]].Column,
				"cyclic references between %s; keeping original order", strings.Join(names, ", "))
		}
		for _, i := range group {
			out = append(out, blocks[i])
		}
	}
	return out
}

// stronglyConnected is Tarjan's algorithm over the dependency edges. SCCs
// come out dependencies-first; roots are visited in original block order so
// unrelated blocks keep their authored order.
func stronglyConnected(deps [][]int) [][]int {
	n := len(deps)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	var (
		stack   []int
		counter int
		groups  [][]int
	)

	var visit func(v int)
	visit = func(v int) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range deps[v] {
			if index[w] == -1 {
				visit(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && index[w] < low[v] {
				low[v] = index[w]
			}
		}

		if low[v] == index[v] {
			var group []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				group = append(group, w)
				if w == v {
					break
				}
			}
			groups = append(groups, group)
		}
	}

	for v := 0; v < n; v++ {
		if index[v] == -1 {
			visit(v)
		}
	}
	return groups
}

// reportViolations flags component-scope blocks that reference UI-scope
// symbols. Capture only works the other way: the render callback closes over
// the component scope, never the reverse.
func reportViolations(scoped *ScopedDocument, file string, res *diag.Result) {
	uiSymbols := make(map[string]bool)
	for _, b := range scoped.UIScope {
		if b.Symbol != "" {
			uiSymbols[b.Symbol] = true
		}
	}
	for _, b := range scoped.ComponentScope {
		for _, ref := range b.Refs {
			if uiSymbols[ref] {
				res.Addf(diag.KindScopeViolation, file, b.Line, b.Column,
					"component-scope code references UI-scope symbol %q", ref)
			}
		}
	}
}
