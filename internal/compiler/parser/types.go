// # internal/compiler/parser/types.go
package parser

type BlockKind int

const (
	BlockVariable BlockKind = iota
	BlockFunction
	BlockExpression
)

type Origin int

const (
	OriginTopLevel Origin = iota
	OriginComponentBody
)

// CodeBlock is one top-level or component-body statement, carried as raw
// source text together with the symbol it declares (if any) and the free
// identifiers it references. Dependency edges between blocks run from
// Refs to the Symbol of other blocks.
type CodeBlock struct {
	Kind   BlockKind
	Source string
	Symbol string   // declared name, "" for bare expressions
	Refs   []string // free identifiers, sorted, stoplist and capitalized names excluded
	Origin Origin

	// Container marks variable blocks whose initializer calls the runtime's
	// value-container constructor; the markup analyzer treats these symbols
	// as reactive sources.
	Container bool

	Line   int
	Column int
}

type Import struct {
	Source     string   // module specifier
	Default    string   // default-import binding, "" if none
	Namespace  string   // * as name binding, "" if none
	Specifiers []string // named imports in source order
	Raw        string   // original statement text, re-emitted verbatim
	Line       int
}

// PageMeta is the decoded page directive block.
type PageMeta struct {
	IsPage      bool
	Route       string
	Title       string
	Description string
	Guard       string
}

type ComponentDecl struct {
	Name      string
	IsDefault bool
	Exported  bool
	Params    []string // bound parameter names
	ParamsRaw string   // original parameter list text, without the parens
	Body      []CodeBlock
	Markup    *MarkupNode // returned markup tree, nil when the component returns none
	Line      int
}

// SourceDocument is the parse result for one component file. It is immutable
// after Parse returns; downstream stages build fresh structures instead of
// mutating it.
type SourceDocument struct {
	File       string
	Grammar    string // "jsx" or "tsx"
	Meta       PageMeta
	Imports    []Import
	TopLevel   []CodeBlock
	Components []ComponentDecl
}

// Default returns the default-exported component, or nil.
func (d *SourceDocument) Default() *ComponentDecl {
	for i := range d.Components {
		if d.Components[i].IsDefault {
			return &d.Components[i]
		}
	}
	return nil
}

// Main returns the component the pipeline lowers: the default export when
// present, otherwise the first exported component.
func (d *SourceDocument) Main() *ComponentDecl {
	if c := d.Default(); c != nil {
		return c
	}
	if len(d.Components) > 0 {
		return &d.Components[0]
	}
	return nil
}

// Containers collects the symbols declared by value-container blocks across
// both origins.
func (d *SourceDocument) Containers() map[string]bool {
	out := make(map[string]bool)
	for _, b := range d.TopLevel {
		if b.Container {
			out[b.Symbol] = true
		}
	}
	for _, c := range d.Components {
		for _, b := range c.Body {
			if b.Container {
				out[b.Symbol] = true
			}
		}
	}
	return out
}

type NodeKind int

const (
	NodeElement NodeKind = iota
	NodeFragment
	NodeText
	NodeExpr
)

// MarkupNode is the raw markup tree captured at parse time. No semantic
// interpretation happens here; the markup analyzer owns that.
type MarkupNode struct {
	Kind     NodeKind
	Tag      string // NodeElement
	Attrs    []Attr
	Children []*MarkupNode
	Text     string // NodeText, whitespace-trimmed
	Expr     *Expr  // NodeExpr
	Line     int
	Column   int
}

type Attr struct {
	Name   string
	Static string // literal value when IsExpr is false
	IsExpr bool
	Expr   *Expr
	Line   int
}

type ExprKind int

const (
	ExprIdent ExprKind = iota
	ExprMember
	ExprCall
	ExprLogicalAnd
	ExprTernary
	ExprNot
	ExprString
	ExprNumber
	ExprArray
	ExprArrow
	ExprMarkup
	ExprRaw
)

// Expr is a plain mini-AST over the expression shapes the markup analyzer
// classifies. Everything it does not model collapses to ExprRaw with the
// original source preserved. Deps is the expression's free-identifier set,
// computed against the enclosing lexical scope at parse time.
type Expr struct {
	Kind ExprKind
	Raw  string

	Name     string // ExprIdent
	Value    string // ExprString, unquoted
	Object   *Expr  // ExprMember
	Property string // ExprMember

	Callee *Expr   // ExprCall
	Args   []*Expr // ExprCall

	Left  *Expr // ExprLogicalAnd
	Right *Expr // ExprLogicalAnd

	Cond *Expr // ExprTernary
	Then *Expr // ExprTernary
	Else *Expr // ExprTernary, nil when the alternative is null/undefined

	Operand *Expr // ExprNot

	Params   []string // ExprArrow
	Body     *Expr    // ExprArrow
	Elements []*Expr  // ExprArray

	Markup *MarkupNode // ExprMarkup

	Deps   []string
	Line   int
	Column int
}

// RootIdent returns the identifier at the base of an ident/member chain,
// or "" when the expression is not such a chain.
func (e *Expr) RootIdent() string {
	switch e.Kind {
	case ExprIdent:
		return e.Name
	case ExprMember:
		if e.Object != nil {
			return e.Object.RootIdent()
		}
	}
	return ""
}

// IsNullish reports whether the expression is the literal null or undefined.
func (e *Expr) IsNullish() bool {
	if e == nil {
		return true
	}
	return e.Raw == "null" || e.Raw == "undefined"
}
