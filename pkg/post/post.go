// Package post creates blog posts whose Markdown carries margin notes.
//
// Posts are Jekyll style: a YAML front matter block between "---" lines
// followed by the Markdown body. Inline notes are written as
// word[[note text]] and converted to trigger/note spans.
package post

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLayout = "post"
	DefaultTag    = "عام"
	// DateLayout is the front matter date format.
	DateLayout = "2006-01-02 15:04:05 -0700"

	excerptRunes = 160
	delimiter    = "---"
)

var ErrNoFrontMatter = errors.New("no front matter")

type FrontMatter struct {
	Layout    string   `yaml:"layout"`
	Title     string   `yaml:"title"`
	Date      string   `yaml:"date"`
	Tags      []string `yaml:"tags,flow"`
	Author    string   `yaml:"author,omitempty"`
	Excerpt   string   `yaml:"excerpt,omitempty"`
	Published *bool    `yaml:"published,omitempty"`
}

// Time parses Date. A zero time and an error are returned for dates in any
// other layout.
func (f FrontMatter) Time() (time.Time, error) {
	t, err := time.Parse(DateLayout, f.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("front matter date: %w", err)
	}
	return t, nil
}

type Post struct {
	// Name is the file name, YYYY-MM-DD-slug.md for regular posts.
	Name  string
	Front FrontMatter
	Body  string
}

type Options struct {
	Tags   []string
	Author string
	// Notes converts word[[note]] markers in the content.
	Notes bool
	Now   time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

func (o Options) tags() []string {
	if len(o.Tags) == 0 {
		return []string{DefaultTag}
	}
	return o.Tags
}

// NewPost builds a post dated opts.Now with an excerpt taken from the
// content.
func NewPost(title, content string, opts Options) *Post {
	now := opts.now()
	if opts.Notes {
		content = Convert(content)
	}
	return &Post{
		Name: now.Format("2006-01-02") + "-" + Slug(title) + ".md",
		Front: FrontMatter{
			Layout:  DefaultLayout,
			Title:   title,
			Date:    now.Format(DateLayout),
			Tags:    opts.tags(),
			Author:  opts.Author,
			Excerpt: Excerpt(content),
		},
		Body: content,
	}
}

// NewThought builds a short untitled post named after the time of day.
func NewThought(thought string, opts Options) *Post {
	now := opts.now()
	return &Post{
		Name: now.Format("2006-01-02") + "-thought-" + now.Format("150405") + ".md",
		Front: FrontMatter{
			Layout: DefaultLayout,
			Title:  "خاطرة: " + now.Format("2006/01/02"),
			Date:   now.Format(DateLayout),
			Tags:   []string{"خواطر", "أفكار"},
			Author: opts.Author,
		},
		Body: thought,
	}
}

// NewSeriesPost builds part n of a series. The body starts with a link to
// the other parts.
func NewSeriesPost(series string, part int, title, content string, opts Options) *Post {
	nav := fmt.Sprintf("\n---\nهذا المقال جزء من سلسلة: **%s**\n\n[عرض جميع أجزاء السلسلة](/tags/#%s)\n\n---\n\n",
		series, strings.ReplaceAll(series, " ", "-"))
	opts.Tags = []string{series, "سلسلة"}
	return NewPost(fmt.Sprintf("%s - الجزء %d: %s", series, part, title), nav+content, opts)
}

// NewDraft builds an unpublished outline for the drafts directory.
func NewDraft(title, outline string, opts Options) *Post {
	now := opts.now()
	unpublished := false
	body := fmt.Sprintf("# %s\n\n## مخطط المقال:\n\n%s\n\n---\n*هذه مسودة - يجب إكمالها قبل النشر*\n", title, outline)
	return &Post{
		Name: "draft-" + now.Format("20060102") + "-" + Slug(title) + ".md",
		Front: FrontMatter{
			Layout:    DefaultLayout,
			Title:     title,
			Date:      now.Format(DateLayout),
			Tags:      []string{"مسودة"},
			Author:    opts.Author,
			Published: &unpublished,
		},
		Body: body,
	}
}

// Marshal renders the post file: front matter, a blank line, the body.
func (p *Post) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p.Front); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(p.Body)
	if !strings.HasSuffix(p.Body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Split separates a post file into its front matter and body.
// ErrNoFrontMatter is returned, with doc as the body, when doc does not open
// with a front matter block.
func Split(doc string) (FrontMatter, string, error) {
	var fm FrontMatter
	doc = strings.TrimPrefix(doc, "\ufeff")
	rest, ok := strings.CutPrefix(strings.ReplaceAll(doc, "\r\n", "\n"), delimiter+"\n")
	if !ok {
		return fm, doc, ErrNoFrontMatter
	}
	head, body, ok := strings.Cut(rest, "\n"+delimiter+"\n")
	if !ok {
		head, ok = strings.CutSuffix(rest, "\n"+delimiter)
		if !ok {
			return fm, doc, ErrNoFrontMatter
		}
	}
	if err := yaml.Unmarshal([]byte(head), &fm); err != nil {
		return fm, doc, fmt.Errorf("decode front matter: %w", err)
	}
	return fm, strings.TrimLeft(body, "\n"), nil
}

// Excerpt returns the first 160 runes of content, followed by "..." when
// content is longer.
func Excerpt(content string) string {
	if utf8.RuneCountInString(content) <= excerptRunes {
		return content
	}
	return string([]rune(content)[:excerptRunes]) + "..."
}

// Slug turns a title into a file name component. Letters, digits, marks and
// underscores survive; runs of spaces and hyphens become one hyphen.
func Slug(title string) string {
	title = cases.Lower(language.Und).String(norm.NFC.String(title))
	var sb strings.Builder
	sep := false
	for _, r := range title {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), r == '_':
			if sep && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sep = false
			sb.WriteRune(r)
		case unicode.IsSpace(r), r == '-':
			sep = true
		}
	}
	return sb.String()
}
