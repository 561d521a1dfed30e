// # internal/compiler/parser/directive_test.go
package parser

import "testing"

func TestScanDirectivePage(t *testing.T) {
	var meta PageMeta
	scanDirective("// @page /settings/profile", &meta)
	if !meta.IsPage {
		t.Fatal("Expected IsPage true")
	}
	if meta.Route != "/settings/profile" {
		t.Errorf("Expected route /settings/profile, got %q", meta.Route)
	}
}

func TestScanDirectiveBarePage(t *testing.T) {
	var meta PageMeta
	scanDirective("// @page", &meta)
	if !meta.IsPage {
		t.Fatal("Expected bare @page to mark the file as a page")
	}
	if meta.Route != "" {
		t.Errorf("Expected empty route for bare @page, got %q", meta.Route)
	}
}

func TestScanDirectiveBlockCommentIgnored(t *testing.T) {
	var meta PageMeta
	scanDirective("/* @page /about */", &meta)
	if meta.IsPage {
		t.Error("Block comments must not carry directives")
	}
}

func TestScanDirectiveMetadata(t *testing.T) {
	var meta PageMeta
	scanDirective("// @page /about", &meta)
	scanDirective("// @title About Us", &meta)
	scanDirective("// @describe Company history and contact details.", &meta)
	scanDirective("// @guard requireAuth", &meta)

	if meta.Title != "About Us" {
		t.Errorf("Unexpected title %q", meta.Title)
	}
	if meta.Description != "Company history and contact details." {
		t.Errorf("Unexpected description %q", meta.Description)
	}
	if meta.Guard != "requireAuth" {
		t.Errorf("Unexpected guard %q", meta.Guard)
	}
}

func TestScanDirectiveFirstValueWins(t *testing.T) {
	var meta PageMeta
	scanDirective("// @title First", &meta)
	scanDirective("// @title Second", &meta)
	if meta.Title != "First" {
		t.Errorf("Expected first title to win, got %q", meta.Title)
	}
}

func TestScanDirectivePrefixWordsIgnored(t *testing.T) {
	cases := []string{
		"// @pages are compiled from this directory",
		"// @pageSize 10",
		"// see @pagespec for details",
	}
	for _, comment := range cases {
		var meta PageMeta
		scanDirective(comment, &meta)
		if meta.IsPage {
			t.Errorf("%q must not be a page directive", comment)
		}
	}
}
