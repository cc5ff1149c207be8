package post

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"marginalia/pkg/text"
)

// Placeholder is the trigger used for a note with no word before it.
const Placeholder = "†"

var noteMarker = regexp.MustCompile(`([\p{L}\p{M}\p{N}_]+)?\[\[(.+?)\]\]`)

// Convert rewrites word[[note text]] markers as a trigger span followed by
// a note span.
func Convert(src string) string {
	return noteMarker.ReplaceAllStringFunc(src, func(m string) string {
		sub := noteMarker.FindStringSubmatch(m)
		trigger := sub[1]
		if trigger == "" {
			trigger = Placeholder
		}
		return `<span class="margin-trigger">` + trigger + `</span><span class="margin-note">` + sub[2] + `</span>`
	})
}

//go:embed article.html
var articleHTML string

var articleTemplate = template.Must(template.New("article.html").Parse(articleHTML))

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// RenderArticle turns a Markdown post into a standalone HTML page laid out
// as a blog article. Front matter, if present, is stripped and supplies the
// title when title is empty.
func RenderArticle(src, title string) (string, error) {
	fm, body, err := Split(src)
	if err != nil && !errors.Is(err, ErrNoFrontMatter) {
		return "", err
	}
	if title == "" {
		title = fm.Title
	}

	var rendered bytes.Buffer
	if err := markdown.Convert([]byte(Convert(body)), &rendered); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	dir := "ltr"
	if text.FirstStrong(title+" "+body) == text.RightToLeft {
		dir = "rtl"
	}
	var out strings.Builder
	err = articleTemplate.Execute(&out, struct {
		Title, Dir string
		Body       template.HTML
	}{title, dir, template.HTML(rendered.String())})
	if err != nil {
		return "", fmt.Errorf("article template: %w", err)
	}
	return out.String(), nil
}
