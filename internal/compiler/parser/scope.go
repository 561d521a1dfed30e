// # internal/compiler/parser/scope.go
package parser

// lexScope is a chain of lexical binding frames used while collecting free
// identifiers. Parameters and local declarations shadow outer names.
type lexScope struct {
	symbols map[string]bool
	parent  *lexScope
}

func newLexScope(parent *lexScope) *lexScope {
	return &lexScope{
		symbols: make(map[string]bool),
		parent:  parent,
	}
}

func (s *lexScope) add(symbol string) {
	s.symbols[symbol] = true
}

func (s *lexScope) has(symbol string) bool {
	if s == nil {
		return false
	}
	if s.symbols[symbol] {
		return true
	}
	return s.parent.has(symbol)
}
