package page

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"marginalia/pkg/css"
	"marginalia/pkg/html"
	"marginalia/pkg/schedule"
)

const article = `<html><body>
<article class="post">
  <p>First paragraph with a <span class="margin-trigger">word</span><span class="margin-note">A note about the word.</span> in it.</p>
  <p>Second <span class="margin-trigger">line</span><span class="margin-note">Second note.</span> right after.</p>
  <p>Third <span class="margin-trigger">entry</span><span class="margin-note">نص عربي</span> at the end.</p>
</article>
</body></html>`

func newPage(t *testing.T, src string, width float64) *Page {
	t.Helper()
	doc, err := html.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.Width = width
	p, err := New(doc, opts)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRelayoutPlacesNotes(t *testing.T) {
	p := newPage(t, article, 1280)
	if err := p.Relayout(); err != nil {
		t.Fatal(err)
	}

	placements := p.Placements()
	if len(placements) != 3 {
		t.Fatalf("placements = %d, want 3", len(placements))
	}
	spacing := p.opts.Margin.Spacing
	for i := 1; i < len(placements); i++ {
		prev, cur := placements[i-1], placements[i]
		if cur.Top < prev.Top+prev.Height+spacing-0.01 {
			t.Errorf("note %d at %v overlaps note %d ending at %v", i, cur.Top, i-1, prev.Top+prev.Height)
		}
		if cur.Top < cur.Desired-0.01 {
			t.Errorf("note %d placed above its trigger: %v < %v", i, cur.Top, cur.Desired)
		}
	}

	sel := p.Selectors()
	for _, n := range p.Document().Root.ElementsByClass(sel.Note) {
		if !n.HasClass(sel.Positioned) {
			t.Errorf("note %q not marked positioned", n.TextContent())
		}
		if s := p.Tree().Style(n); s == nil || s.GetPosition() != css.PositionAbsolute {
			t.Errorf("note %q not absolutely positioned", n.TextContent())
		}
	}
	out := p.HTML()
	if !strings.Contains(out, "position: absolute") || !strings.Contains(out, "text-align: right") {
		t.Errorf("serialized page missing placement styles:\n%s", out)
	}
}

func TestConsecutiveNotesShareTrigger(t *testing.T) {
	p := newPage(t, `<html><body><article class="post">
  <p>One <span class="margin-trigger">word</span><span class="margin-note">First note.</span><span class="margin-note">Second note.</span> here.</p>
</article></body></html>`, 1280)
	if err := p.Relayout(); err != nil {
		t.Fatal(err)
	}
	placements := p.Placements()
	if len(placements) != 2 {
		t.Fatalf("placements = %d, want 2", len(placements))
	}
	first, second := placements[0], placements[1]
	if first.Desired != second.Desired {
		t.Errorf("desired tops differ: %v, %v", first.Desired, second.Desired)
	}
	if !second.Clamped || second.Top < first.Top+first.Height+p.opts.Margin.Spacing-0.01 {
		t.Errorf("second note not stacked below the first: %+v, %+v", first, second)
	}
	for _, n := range p.Document().Root.ElementsByClass("margin-note") {
		if !n.HasClass("positioned") {
			t.Errorf("note %q not positioned", n.TextContent())
		}
	}
}

func TestNotesStayInFlowWhenNarrow(t *testing.T) {
	p := newPage(t, article, 800)
	note := p.Document().Root.ElementsByClass("margin-note")[0]
	if s := p.Tree().Style(note); s == nil || s.GetPosition() != css.PositionStatic {
		t.Fatal("note should be in normal flow below the breakpoint")
	}
}

func TestRelayoutWithoutContainer(t *testing.T) {
	p := newPage(t, `<div><span class="margin-trigger">w</span><span class="margin-note">n</span></div>`, 1280)
	before := p.HTML()
	if err := p.Relayout(); err != nil {
		t.Fatal(err)
	}
	if len(p.Placements()) != 0 || p.HTML() != before {
		t.Fatal("page without a container should be untouched")
	}
}

func TestClearRemovesPlacements(t *testing.T) {
	p := newPage(t, article, 1280)
	if err := p.Relayout(); err != nil {
		t.Fatal(err)
	}
	if err := p.Clear(); err != nil {
		t.Fatal(err)
	}
	if len(p.Placements()) != 0 {
		t.Fatal("placements survived Clear")
	}
	after := p.HTML()
	if strings.Contains(after, "positioned") || strings.Contains(after, "top:") {
		t.Fatalf("notes still positioned:\n%s", after)
	}
	// The container keeps position: relative after a pass.
	if !strings.Contains(after, `style="position: relative"`) {
		t.Errorf("container style lost:\n%s", after)
	}
}

func TestSetViewport(t *testing.T) {
	p := newPage(t, article, 800)
	p.SetViewport(1400, 900)
	if w, h := p.Viewport(); w != 1400 || h != 900 {
		t.Fatalf("viewport = %vx%v", w, h)
	}
	note := p.Document().Root.ElementsByClass("margin-note")[0]
	if p.Tree().Style(note).GetPosition() != css.PositionAbsolute {
		t.Fatal("wide viewport should take notes out of flow")
	}
}

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestLoadImages(t *testing.T) {
	src := `<article class="post"><p><img src="` + pngDataURI(t, 40, 30) + `"><img src="data:image/png;base64,AAAA"></p></article>`
	p := newPage(t, src, 1280)

	var loaded atomic.Int32
	err := p.LoadImages(context.Background(), func() { loaded.Add(1) })
	if err == nil {
		t.Fatal("expected an error for the broken image")
	}
	if loaded.Load() != 1 {
		t.Fatalf("onLoad called %d times, want 1", loaded.Load())
	}
	img := p.Document().Root.ElementsByTag("img")[0]
	src0, _ := img.GetAttribute("src")
	if w, h, ok := p.Images().Cached(src0); !ok || w != 40 || h != 30 {
		t.Fatalf("cached size = %dx%d %v", w, h, ok)
	}
}

func TestRunScriptsReposition(t *testing.T) {
	src := strings.Replace(article, "</body>", `<script>
		var d = marginNotes.debug();
		if (d.length !== 3 || d[0].trigger !== "word") throw new Error("debug: " + JSON.stringify(d));
		marginNotes.reposition();
	</script></body>`, 1)
	p := newPage(t, src, 1280)
	if err := p.RunScripts(); err != nil {
		t.Fatal(err)
	}
	if len(p.Placements()) != 3 {
		t.Fatalf("reposition did not run a pass")
	}
	notes := p.Notes()
	if !notes[0].Positioned || notes[0].Top == "" {
		t.Fatalf("notes = %+v", notes)
	}
}

func TestRunScriptsUsesRequester(t *testing.T) {
	src := strings.Replace(article, "</body>", `<script>marginNotes.reposition();</script></body>`, 1)
	p := newPage(t, src, 1280)
	var requests int
	p.OnRelayoutRequest(func() { requests++ })
	if err := p.RunScripts(); err != nil {
		t.Fatal(err)
	}
	if requests != 1 || len(p.Placements()) != 0 {
		t.Fatalf("requests = %d placements = %d", requests, len(p.Placements()))
	}
}

func TestSchedulerDrivesPage(t *testing.T) {
	p := newPage(t, article, 1280)
	clock := schedule.NewFakeClock()
	opts := schedule.DefaultOptions()
	opts.Clock = clock
	s := schedule.New(p, opts)
	defer s.Close()

	s.Ready(1280)
	if len(p.Placements()) != 3 || s.State() != schedule.Applied {
		t.Fatalf("ready pass: placements = %d state = %v", len(p.Placements()), s.State())
	}

	p.SetViewport(900, 800)
	s.Resize(900)
	if len(p.Placements()) != 0 {
		t.Fatal("narrow resize should clear placements")
	}

	p.SetViewport(1300, 800)
	s.Resize(1300)
	clock.Advance(opts.Debounce)
	if len(p.Placements()) != 3 {
		t.Fatal("debounced resize should place notes again")
	}
	clock.Advance(2 * time.Second)
	if s.Passes() < 2 {
		t.Errorf("passes = %d", s.Passes())
	}
}
