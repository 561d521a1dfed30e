// # internal/compiler/parser/loader.go
package parser

import (
	"path/filepath"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// GrammarLoader owns the compiled tree-sitter grammars for the two input
// flavors: plain JSX and TSX.
type GrammarLoader struct {
	languages map[string]*sitter.Language
}

func NewGrammarLoader() *GrammarLoader {
	gl := &GrammarLoader{
		languages: make(map[string]*sitter.Language),
	}

	gl.languages["jsx"] = sitter.NewLanguage(tree_sitter_javascript.Language())
	gl.languages["tsx"] = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())

	return gl
}

func (gl *GrammarLoader) Language(grammar string) *sitter.Language {
	return gl.languages[grammar]
}

// DetectGrammar maps a file path to its grammar name, or "" for files the
// compiler does not handle.
func DetectGrammar(path string) string {
	switch filepath.Ext(path) {
	case ".jsx", ".js":
		return "jsx"
	case ".tsx":
		return "tsx"
	default:
		return ""
	}
}
