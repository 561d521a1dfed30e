// # internal/compiler/diag/diag.go
package diag

import "fmt"

type Kind string

const (
	KindParseError      Kind = "PARSE_ERROR"
	KindScopeViolation  Kind = "SCOPE_VIOLATION"
	KindScopeCycle      Kind = "SCOPE_CYCLE"
	KindMarkupError     Kind = "MARKUP_ERROR"
	KindMarkupWarning   Kind = "MARKUP_WARNING"
	KindCodegenFallback Kind = "CODEGEN_FALLBACK"
)

// Diagnostic is a structured, position-carrying message produced by any
// pipeline stage. Only KindParseError aborts compilation of a file; every
// other kind is recoverable and the stage that raised it applies its
// best-effort policy.
type Diagnostic struct {
	Kind    Kind
	Message string
	File    string
	Line    int
	Column  int
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("[%s] %s:%d:%d %s", d.Kind, d.File, d.Line, d.Column, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Kind, d.File, d.Message)
}

// Fatal reports whether this diagnostic aborts the file.
func (d Diagnostic) Fatal() bool {
	return d.Kind == KindParseError
}

// Result accumulates diagnostics across the pipeline stages for one file.
// Stages append to it and keep going; nothing is thrown past the entry point.
type Result struct {
	diags []Diagnostic
}

func NewResult() *Result {
	return &Result{}
}

func (r *Result) Add(d Diagnostic) {
	r.diags = append(r.diags, d)
}

func (r *Result) Addf(kind Kind, file string, line, column int, format string, args ...any) {
	r.Add(Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		File:    file,
		Line:    line,
		Column:  column,
	})
}

func (r *Result) All() []Diagnostic {
	return r.diags
}

func (r *Result) Count(kind Kind) int {
	n := 0
	for _, d := range r.diags {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// HasFatal reports whether any accumulated diagnostic aborts the file.
func (r *Result) HasFatal() bool {
	for _, d := range r.diags {
		if d.Fatal() {
			return true
		}
	}
	return false
}

func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.diags = append(r.diags, other.diags...)
}
