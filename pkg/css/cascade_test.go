package css

import (
	"testing"

	"marginalia/pkg/html"
)

func styleFor(t *testing.T, src, css string, width float64, pick func(*html.Document) *html.Node) *Style {
	t.Helper()
	doc := parseDoc(t, src)
	sheet, _ := ParseStylesheet(css)
	styles := ApplyStyles(doc.Root, []*Stylesheet{sheet}, width, 800)
	return styles[pick(doc)]
}

func firstByClass(class string) func(*html.Document) *html.Node {
	return func(doc *html.Document) *html.Node { return doc.Root.ElementsByClass(class)[0] }
}

func TestComputeStyle_SpecificityOverride(t *testing.T) {
	style := styleFor(t, `<div class="highlight" id="x">t</div>`, `
		#x { color: green; }
		.highlight { color: blue; }
		div { color: red; }
	`, 800, firstByClass("highlight"))
	if c, _ := style.Get("color"); c != "green" {
		t.Errorf("expected id rule to win, got %q", c)
	}
}

func TestComputeStyle_LaterRuleWinsTie(t *testing.T) {
	style := styleFor(t, `<p class="a b">t</p>`, `.a { color: red } .b { color: blue }`, 800, firstByClass("a"))
	if c, _ := style.Get("color"); c != "blue" {
		t.Errorf("expected later rule to win, got %q", c)
	}
}

func TestComputeStyle_InlineWins(t *testing.T) {
	style := styleFor(t, `<p class="a" style="color: purple">t</p>`, `.a { color: red }`, 800, firstByClass("a"))
	if c, _ := style.Get("color"); c != "purple" {
		t.Errorf("expected inline style to win, got %q", c)
	}
}

func TestComputeStyle_Inheritance(t *testing.T) {
	style := styleFor(t, `<div class="outer"><span class="inner">t</span></div>`,
		`.outer { color: #667; font-size: 20px; text-align: right; width: 300px }`, 800, firstByClass("inner"))
	if c, _ := style.Get("color"); c != "#667" {
		t.Errorf("color should inherit, got %q", c)
	}
	if style.GetTextAlign() != TextAlignRight {
		t.Error("text-align should inherit")
	}
	if _, ok := style.Get("width"); ok {
		t.Error("width must not inherit")
	}
	if style.GetFontSize() != 20 {
		t.Errorf("font-size = %v", style.GetFontSize())
	}
}

func TestComputeStyle_RelativeFontSize(t *testing.T) {
	style := styleFor(t, `<div class="outer"><span class="inner">t</span></div>`,
		`.outer { font-size: 20px } .inner { font-size: 0.8em }`, 800, firstByClass("inner"))
	if fs := style.GetFontSize(); fs != 16 {
		t.Errorf("0.8em of 20px = %v, want 16", fs)
	}
	rem := styleFor(t, `<div class="outer"><span class="inner">t</span></div>`,
		`.outer { font-size: 20px } .inner { font-size: 0.8rem }`, 800, firstByClass("inner"))
	if fs := rem.GetFontSize(); fs < 12.79 || fs > 12.81 {
		t.Errorf("0.8rem = %v, want 12.8", fs)
	}
}

func TestComputeStyle_MediaGated(t *testing.T) {
	css := `@media (min-width: 1200px) { .margin-note { position: absolute } }`
	wide := styleFor(t, `<span class="margin-note">n</span>`, css, 1400, firstByClass("margin-note"))
	narrow := styleFor(t, `<span class="margin-note">n</span>`, css, 1000, firstByClass("margin-note"))
	if wide.GetPosition() != PositionAbsolute {
		t.Error("wide viewport should apply the media rule")
	}
	if narrow.GetPosition() != PositionStatic {
		t.Error("narrow viewport should not apply the media rule")
	}
}

func TestComputeStyle_UserAgentDefaults(t *testing.T) {
	doc := parseDoc(t, `<p>a <strong>b</strong></p><script>x()</script>`)
	styles := ApplyStyles(doc.Root, nil, 800, 600)
	p := doc.Root.ElementsByTag("p")[0]
	if styles[p].GetDisplay() != DisplayBlock {
		t.Error("p should be block")
	}
	if styles[p].GetMargin().Top != 16 {
		t.Errorf("p margin-top = %v", styles[p].GetMargin().Top)
	}
	strong := doc.Root.ElementsByTag("strong")[0]
	if styles[strong].GetFontWeight() != FontWeightBold {
		t.Error("strong should be bold")
	}
	script := doc.Root.ElementsByTag("script")[0]
	if styles[script].GetDisplay() != DisplayNone {
		t.Error("script should not display")
	}
}
