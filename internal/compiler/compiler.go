// # internal/compiler/compiler.go

// Package compiler wires the four pipeline stages into a single entry point:
// parse, scope analysis, markup normalization, code generation. One call per
// source file; diagnostics accumulate across all stages and only a parse
// error aborts a file.
package compiler

import (
	"path/filepath"
	"strings"

	"loom/internal/compiler/codegen"
	"loom/internal/compiler/diag"
	"loom/internal/compiler/markup"
	"loom/internal/compiler/parser"
	"loom/internal/compiler/scope"
)

type Compiler struct {
	parser *parser.Parser
	gen    *codegen.Generator
}

func New(vocab parser.Vocabulary) *Compiler {
	return &Compiler{
		parser: parser.NewParser(parser.NewGrammarLoader(), vocab),
		gen:    codegen.NewGenerator(vocab),
	}
}

// Output is the result of compiling one source file.
type Output struct {
	File        string // output path, derived from the input path
	Code        string
	Route       *codegen.RouteMeta // non-nil for pages
	Diagnostics *diag.Result
}

// Compile runs the full pipeline over one file's content. The error is
// non-nil only for fatal parse errors; recoverable issues land in
// Output.Diagnostics and the output code degrades instead of failing.
func (c *Compiler) Compile(path string, src []byte) (*Output, error) {
	out := &Output{File: OutputPath(path)}

	doc, res, err := c.parser.Parse(path, src)
	out.Diagnostics = res
	if err != nil {
		return out, err
	}

	scoped := scope.Analyze(doc, res)

	containers := doc.Containers()
	views := make(map[string]*markup.Document, len(doc.Components))
	for i := range doc.Components {
		comp := &doc.Components[i]
		if comp.Markup != nil {
			views[comp.Name] = markup.Analyze(comp.Markup, containers, c.parser.Vocabulary(), path, res)
		}
	}

	code, route := c.gen.Generate(doc, scoped, views, res)
	out.Code = code
	out.Route = route
	if route != nil {
		route.Module = filepath.Base(out.File)
	}
	return out, nil
}

// OutputPath maps a source path to its generated sibling:
// pages/home.jsx becomes pages/home.gen.js.
func OutputPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".gen.js"
}

// IsGenerated reports whether a path names compiler output, so scanners and
// watchers never feed the compiler its own products.
func IsGenerated(path string) bool {
	return strings.HasSuffix(path, ".gen.js")
}
