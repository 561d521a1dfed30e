// # internal/compiler/parser/directive.go
package parser

import (
	"regexp"
	"strings"
)

// Directives ride in // comment lines anywhere in the file:
//
//	// @page /settings/profile
//	// @title Profile
//	// @describe Edit the signed-in user's profile.
//	// @guard requireAuth
//
// A bare `// @page` marks a routed page whose path is resolved from the file's
// position in the route tree by the route generator. `@page` outside a line
// comment (block comments, string literals, plain code) is never a directive.
var (
	pageRe     = regexp.MustCompile(`@page\b(?:[ \t]+(\S+))?`)
	titleRe    = regexp.MustCompile(`@title[ \t]+(.+)`)
	describeRe = regexp.MustCompile(`@describe[ \t]+(.+)`)
	guardRe    = regexp.MustCompile(`@guard[ \t]+(\S+)`)
)

// scanDirective folds one comment node's text into meta. Only //-prefixed
// comments participate; the tree-sitter grammar hands us block comments
// through the same node kind, so the prefix check is the discriminator.
func scanDirective(comment string, meta *PageMeta) {
	trimmed := strings.TrimSpace(comment)
	if !strings.HasPrefix(trimmed, "//") {
		return
	}
	body := trimmed[2:]

	if m := pageRe.FindStringSubmatch(body); m != nil {
		meta.IsPage = true
		if m[1] != "" {
			meta.Route = m[1]
		}
	}
	if m := titleRe.FindStringSubmatch(body); m != nil && meta.Title == "" {
		meta.Title = strings.TrimSpace(m[1])
	}
	if m := describeRe.FindStringSubmatch(body); m != nil && meta.Description == "" {
		meta.Description = strings.TrimSpace(m[1])
	}
	if m := guardRe.FindStringSubmatch(body); m != nil && meta.Guard == "" {
		meta.Guard = m[1]
	}
}
