// # internal/compiler/parser/parser.go
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"loom/internal/compiler/diag"
)

// Parser turns raw component source into a SourceDocument. It owns the
// tree-sitter lifetime: nothing tree-sitter escapes Parse.
type Parser struct {
	loader *GrammarLoader
	vocab  Vocabulary
}

func NewParser(loader *GrammarLoader, vocab Vocabulary) *Parser {
	return &Parser{
		loader: loader,
		vocab:  vocab,
	}
}

func (p *Parser) Vocabulary() Vocabulary {
	return p.vocab
}

// Parse produces the document plus accumulated diagnostics. A non-nil error
// means a fatal ParseError; recoverable issues only land in the result.
func (p *Parser) Parse(path string, content []byte) (*SourceDocument, *diag.Result, error) {
	res := diag.NewResult()

	grammar := DetectGrammar(path)
	if grammar == "" {
		res.Addf(diag.KindParseError, path, 0, 0, "unsupported file type %q", filepath.Ext(path))
		return nil, res, errors.New("unsupported file type")
	}
	lang := p.loader.Language(grammar)
	if lang == nil {
		res.Addf(diag.KindParseError, path, 0, 0, "grammar not loaded: %s", grammar)
		return nil, res, fmt.Errorf("grammar not loaded: %s", grammar)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree := parser.Parse(content, nil)
	if tree == nil {
		res.Addf(diag.KindParseError, path, 0, 0, "parse failed")
		return nil, res, errors.New("parse failed")
	}
	defer tree.Close()

	doc := &SourceDocument{
		File:    path,
		Grammar: grammar,
	}
	w := &docWalker{
		parser:  p,
		source:  content,
		doc:     doc,
		res:     res,
		builder: &treeBuilder{source: content, stop: p.vocab.stoplist()},
	}

	root := tree.RootNode()
	w.scanComments(root)
	w.walkProgram(root)

	if err := w.validate(); err != nil {
		return nil, res, err
	}
	return doc, res, nil
}

type docWalker struct {
	parser  *Parser
	source  []byte
	doc     *SourceDocument
	res     *diag.Result
	builder *treeBuilder

	defaultCount int
}

// scanComments feeds every line comment in the file to the directive
// recognizer. Block comments share the same node kind and are rejected by
// the recognizer's prefix check.
func (w *docWalker) scanComments(node *sitter.Node) {
	if node.Kind() == "comment" {
		scanDirective(w.text(node), &w.doc.Meta)
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		w.scanComments(node.Child(i))
	}
}

func (w *docWalker) walkProgram(root *sitter.Node) {
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		switch child.Kind() {
		case "comment", "empty_statement", "hash_bang_line":
			// handled elsewhere or irrelevant
		case "import_statement":
			w.doc.Imports = append(w.doc.Imports, w.extractImport(child))
		case "export_statement":
			w.handleExport(child)
		default:
			if !child.IsNamed() {
				continue
			}
			w.doc.TopLevel = append(w.doc.TopLevel, w.makeBlock(child, OriginTopLevel, nil))
		}
	}
}

func (w *docWalker) handleExport(node *sitter.Node) {
	isDefault := false
	for i := uint(0); i < node.ChildCount(); i++ {
		if node.Child(i).Kind() == "default" {
			isDefault = true
			break
		}
	}
	if isDefault {
		w.defaultCount++
	}

	if decl := node.ChildByFieldName("declaration"); decl != nil {
		switch decl.Kind() {
		case "function_declaration", "generator_function_declaration":
			w.doc.Components = append(w.doc.Components, w.makeComponent(decl, isDefault))
			return
		default:
			// Exported non-function declarations stay top-level shared code.
			w.doc.TopLevel = append(w.doc.TopLevel, w.makeBlock(decl, OriginTopLevel, nil))
			return
		}
	}

	if value := node.ChildByFieldName("value"); value != nil && isDefault {
		if value.Kind() == "arrow_function" || value.Kind() == "function_expression" {
			w.doc.Components = append(w.doc.Components, w.makeComponent(value, true))
			return
		}
	}

	w.res.Addf(diag.KindParseError, w.doc.File, line(node), column(node),
		"unsupported export form: %s", firstLine(w.text(node)))
}

func (w *docWalker) makeComponent(fn *sitter.Node, isDefault bool) ComponentDecl {
	comp := ComponentDecl{
		IsDefault: isDefault,
		Exported:  true,
		Line:      line(fn),
	}

	if name := fn.ChildByFieldName("name"); name != nil {
		comp.Name = w.text(name)
	} else {
		comp.Name = componentNameFromFile(w.doc.File)
	}

	paramScope := newLexScope(nil)
	if params := fn.ChildByFieldName("parameters"); params != nil {
		c := &identCollector{source: w.source, stop: map[string]bool{}, out: map[string]bool{}}
		c.declarePattern(params, paramScope)
		for name := range paramScope.symbols {
			comp.Params = append(comp.Params, name)
		}
		sort.Strings(comp.Params)
		comp.ParamsRaw = strings.Trim(w.text(params), "()")
	}

	body := fn.ChildByFieldName("body")
	if body == nil {
		return comp
	}
	if body.Kind() != "statement_block" {
		// Concise arrow body: the expression itself is the returned markup.
		if arg := unwrapParens(body); arg != nil && isJSXKind(arg.Kind()) {
			comp.Markup = w.builder.buildMarkup(arg)
		} else {
			comp.Body = append(comp.Body, w.makeBlock(body, OriginComponentBody, paramScope))
		}
		return comp
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		switch child.Kind() {
		case "comment", "{", "}":
		case "return_statement":
			if comp.Markup == nil && child.NamedChildCount() > 0 {
				arg := unwrapParens(child.NamedChild(0))
				if arg != nil && isJSXKind(arg.Kind()) {
					comp.Markup = w.builder.buildMarkup(arg)
					continue
				}
			}
			comp.Body = append(comp.Body, w.makeBlock(child, OriginComponentBody, paramScope))
		default:
			if !child.IsNamed() {
				continue
			}
			comp.Body = append(comp.Body, w.makeBlock(child, OriginComponentBody, paramScope))
		}
	}
	return comp
}

func (w *docWalker) makeBlock(node *sitter.Node, origin Origin, outer *lexScope) CodeBlock {
	block := CodeBlock{
		Kind:   BlockExpression,
		Source: w.text(node),
		Origin: origin,
		Line:   line(node),
		Column: column(node),
	}

	switch node.Kind() {
	case "lexical_declaration", "variable_declaration":
		block.Kind = BlockVariable
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() != "variable_declarator" {
				continue
			}
			if name := child.ChildByFieldName("name"); name != nil && block.Symbol == "" {
				block.Symbol = w.patternFirstName(name)
			}
			if value := child.ChildByFieldName("value"); value != nil {
				block.Container = w.isContainerCall(value)
			}
			break
		}
	case "function_declaration", "generator_function_declaration", "class_declaration":
		block.Kind = BlockFunction
		if name := node.ChildByFieldName("name"); name != nil {
			block.Symbol = w.text(name)
		}
	}

	block.Refs = collectFreeIdents(node, w.source, w.parser.vocab.stoplist(), outer)
	return block
}

// isContainerCall reports whether an initializer is a direct call to the
// runtime's value-container constructor.
func (w *docWalker) isContainerCall(value *sitter.Node) bool {
	value = unwrapParens(value)
	if value == nil || value.Kind() != "call_expression" {
		return false
	}
	fn := value.ChildByFieldName("function")
	return fn != nil && w.text(fn) == w.parser.vocab.Container
}

// patternFirstName returns the first bound name of a declarator pattern in
// source order.
func (w *docWalker) patternFirstName(node *sitter.Node) string {
	switch node.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		return w.text(node)
	case "pair_pattern":
		if value := node.ChildByFieldName("value"); value != nil {
			return w.patternFirstName(value)
		}
		return ""
	case "assignment_pattern":
		if left := node.ChildByFieldName("left"); left != nil {
			return w.patternFirstName(left)
		}
		return ""
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !child.IsNamed() {
			continue
		}
		if name := w.patternFirstName(child); name != "" {
			return name
		}
	}
	return ""
}

func (w *docWalker) extractImport(node *sitter.Node) Import {
	imp := Import{
		Raw:  w.text(node),
		Line: line(node),
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "string":
			imp.Source = w.builder.unquote(child)
		case "import_clause":
			for j := uint(0); j < child.ChildCount(); j++ {
				clause := child.Child(j)
				switch clause.Kind() {
				case "identifier":
					imp.Default = w.text(clause)
				case "namespace_import":
					for k := uint(0); k < clause.ChildCount(); k++ {
						if clause.Child(k).Kind() == "identifier" {
							imp.Namespace = w.text(clause.Child(k))
						}
					}
				case "named_imports":
					for k := uint(0); k < clause.ChildCount(); k++ {
						spec := clause.Child(k)
						if spec.Kind() == "import_specifier" {
							imp.Specifiers = append(imp.Specifiers, w.text(spec))
						}
					}
				}
			}
		}
	}
	return imp
}

func (w *docWalker) validate() error {
	if w.defaultCount > 1 {
		w.res.Addf(diag.KindParseError, w.doc.File, 0, 0,
			"multiple default exports (%d)", w.defaultCount)
		return errors.New("multiple default exports")
	}
	if len(w.doc.Components) == 0 {
		w.res.Addf(diag.KindParseError, w.doc.File, 0, 0, "no exported component found")
		return errors.New("no exported component found")
	}
	if w.doc.Meta.IsPage && w.doc.Default() == nil {
		w.res.Addf(diag.KindParseError, w.doc.File, 0, 0,
			"page directive requires a default-exported component")
		return errors.New("page directive requires a default export")
	}
	return nil
}

func (w *docWalker) text(node *sitter.Node) string {
	return string(w.source[node.StartByte():node.EndByte()])
}

// componentNameFromFile derives an identifier for anonymous default exports:
// "user-card.jsx" becomes "UserCard".
func componentNameFromFile(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.FieldsFunc(base, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, part := range parts {
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	if b.Len() == 0 {
		return "Component"
	}
	return b.String()
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
