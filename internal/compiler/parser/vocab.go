// # internal/compiler/parser/vocab.go
package parser

// Vocabulary names the runtime entry points the compiler recognizes in
// authored source and is allowed to emit calls to. The defaults match the
// loom runtime; a project can override them in loom.toml.
type Vocabulary struct {
	Container string // value container constructor
	Derive    string // derived-value operator
	Builder   string // builder object parameter name
	When      string // explicit conditional helper
	ElseWhen  string // else-if chain helper
	Otherwise string // else chain helper
	Each      string // explicit loop helper
	Module    string // runtime module specifier for generated imports
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Container: "ref",
		Derive:    "derive",
		Builder:   "ui",
		When:      "when",
		ElseWhen:  "elsewhen",
		Otherwise: "otherwise",
		Each:      "each",
		Module:    "@loom/runtime",
	}
}

// stoplist returns identifiers never treated as data dependencies: well-known
// globals plus the runtime vocabulary itself. Capitalized identifiers are
// excluded separately as type/constructor references.
func (v Vocabulary) stoplist() map[string]bool {
	s := map[string]bool{
		"console":               true,
		"window":                true,
		"document":              true,
		"navigator":             true,
		"localStorage":          true,
		"sessionStorage":        true,
		"setTimeout":            true,
		"setInterval":           true,
		"clearTimeout":          true,
		"clearInterval":         true,
		"requestAnimationFrame": true,
		"fetch":                 true,
		"alert":                 true,
		"undefined":             true,
		"arguments":             true,
		"globalThis":            true,
	}
	for _, name := range []string{v.Container, v.Derive, v.Builder, v.When, v.ElseWhen, v.Otherwise, v.Each} {
		if name != "" {
			s[name] = true
		}
	}
	return s
}
