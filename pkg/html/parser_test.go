package html

import (
	"errors"
	"testing"
)

func TestParser_NestedElements(t *testing.T) {
	doc, err := Parse(`<article class="post"><div class="e-content post"><p>Hello</p></div></article>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	article := doc.Root.Children[0]
	if article.TagName != "article" || article.Parent != doc.Root {
		t.Fatalf("expected article under root, got %q", article.TagName)
	}
	div := article.Children[0]
	if !div.HasClass("e-content") || !div.HasClass("post") {
		t.Errorf("expected container classes, got %v", div.Classes())
	}
	p := div.Children[0]
	if p.Parent != div || p.Children[0].Text != "Hello" {
		t.Error("expected p with text Hello under div")
	}
}

func TestParser_AnnotatedParagraph(t *testing.T) {
	doc, err := Parse(`<p>Some <span class="margin-trigger">word</span><span class="margin-note">note <em>here</em></span> rest.</p>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	notes := doc.Root.ElementsByClass("margin-note")
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	trigger := notes[0].PreviousElementSibling()
	if trigger == nil || !trigger.HasClass("margin-trigger") {
		t.Fatal("note should directly follow its trigger")
	}
	if got := notes[0].TextContent(); got != "note here" {
		t.Errorf("note text = %q", got)
	}
}

func TestParser_AutoCloseParagraph(t *testing.T) {
	doc, err := Parse(`<p>one<div>two</div>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Root.Children) != 2 {
		t.Fatalf("div should close the open p, root has %d children", len(doc.Root.Children))
	}
}

func TestParser_VoidElements(t *testing.T) {
	doc, err := Parse(`<p>a<br>b<img src="x.png">c</p>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := doc.Root.Children[0]
	if len(p.Children) != 5 {
		t.Fatalf("expected 5 children in p, got %d", len(p.Children))
	}
}

func TestParser_StyleAndScript(t *testing.T) {
	doc, err := Parse(`<style>p > span { color: red; }</style><p>x</p><script>if (a < b) { run(); }</script><script src="ext.js"></script>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Stylesheets) != 1 || doc.Stylesheets[0] != "p > span { color: red; }" {
		t.Errorf("stylesheets = %q", doc.Stylesheets)
	}
	if len(doc.Scripts) != 1 || doc.Scripts[0] != "if (a < b) { run(); }" {
		t.Errorf("scripts = %q", doc.Scripts)
	}
	if doc.Root.Children[0].TagName != "style" {
		t.Error("style element should stay in the tree")
	}
}

func TestParser_LinkStylesheets(t *testing.T) {
	src := `<link rel="stylesheet" href="data:text/css,p%20%7B%20color%3A%20red%20%7D">` +
		`<link rel="stylesheet" href="site.css"><link rel="stylesheet" href="missing.css">`
	fetch := func(href string) (string, error) {
		if href == "site.css" {
			return ".margin-note { width: 250px }", nil
		}
		return "", errors.New("not found")
	}
	doc, err := ParseWithFetcher(src, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Stylesheets) != 2 || doc.Stylesheets[0] != "p { color: red }" {
		t.Errorf("stylesheets = %q", doc.Stylesheets)
	}
	if len(doc.Links) != 1 || doc.Links[0] != "missing.css" {
		t.Errorf("links = %q", doc.Links)
	}
}
