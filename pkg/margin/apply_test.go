package margin

import (
	"testing"

	"marginalia/pkg/css"
	"marginalia/pkg/html"
)

const article = `<article class="post"><div class="e-content post">` +
	`<p>First <span class="margin-trigger" id="t1">word</span><span class="margin-note" id="n1">one</span> and ` +
	`<span class="margin-trigger" id="t2">two</span> <em>x</em> <span class="margin-note" id="n2">second</span></p>` +
	`<p><span class="margin-note" id="orphan">lonely</span></p>` +
	`</div></article>`

func parse(t *testing.T, src string) *html.Document {
	t.Helper()
	doc, err := html.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestResolve(t *testing.T) {
	doc := parse(t, article)
	res := Resolve(doc.Root, DefaultSelectors())

	if res.Container == nil || !res.Container.HasClass("e-content") {
		t.Fatalf("container = %v", res.Container)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("got %d candidates, want 3", len(res.Candidates))
	}
	byID := func(id string) *html.Node { return doc.Root.ElementByID(id) }
	if res.Candidates[0].Trigger != byID("t1") || res.Candidates[0].Note != byID("n1") {
		t.Errorf("first pair wrong")
	}
	if res.Candidates[1].Trigger != byID("t2") {
		t.Errorf("second note should skip text and <em> to reach t2")
	}
	if res.Candidates[2].Trigger != nil {
		t.Errorf("orphan note got a trigger")
	}
}

func TestResolveContainerFallback(t *testing.T) {
	doc := parse(t, `<article class="post"><p><span class="margin-trigger">a</span><span class="margin-note">b</span></p></article>`)
	res := Resolve(doc.Root, DefaultSelectors())
	if res.Container == nil || res.Container.TagName != "article" {
		t.Fatalf("container = %v", res.Container)
	}
	if len(res.Candidates) != 1 {
		t.Fatalf("got %d candidates", len(res.Candidates))
	}
}

func TestResolveNoContainer(t *testing.T) {
	doc := parse(t, `<div><span class="margin-note">x</span></div>`)
	res := Resolve(doc.Root, DefaultSelectors())
	if res.Container != nil || len(res.Candidates) != 0 {
		t.Fatalf("resolution = %+v", res)
	}
}

func TestFindTriggerSkipsPreviousNote(t *testing.T) {
	doc := parse(t, `<p><span class="margin-trigger" id="t">a</span><span class="margin-note" id="n1">b</span> <span class="margin-note" id="n2">c</span></p>`)
	trigger := doc.Root.ElementByID("t")
	for _, id := range []string{"n1", "n2"} {
		if got := FindTrigger(doc.Root.ElementByID(id), DefaultSelectors()); got != trigger {
			t.Errorf("%s trigger = %v, want %v", id, got, trigger)
		}
	}
}

func TestFindTriggerNearest(t *testing.T) {
	doc := parse(t, `<p><span class="margin-trigger">a</span> text <span class="margin-trigger" id="t2">b</span> <em>x</em> <span class="margin-note" id="n">c</span></p>`)
	if got := FindTrigger(doc.Root.ElementByID("n"), DefaultSelectors()); got != doc.Root.ElementByID("t2") {
		t.Fatalf("trigger = %v", got)
	}
	orphan := parse(t, `<p>text <span class="margin-note" id="n">c</span></p>`)
	if got := FindTrigger(orphan.Root.ElementByID("n"), DefaultSelectors()); got != nil {
		t.Fatalf("orphan note trigger = %v", got)
	}
}

func TestApply(t *testing.T) {
	doc := parse(t, `<div class="e-content post" style="color: red"><p>`+
		`<span class="margin-trigger">w</span><span class="margin-note" style="color: blue">note</span>`+
		`<span class="margin-trigger">v</span><span class="margin-note">مرحبا</span></p></div>`)
	res := Resolve(doc.Root, DefaultSelectors())
	placements := []Placement{
		{Note: res.Candidates[0].Note, Top: 12.3456, Right: -280, Width: 250},
		{Note: res.Candidates[1].Note, Top: 80, Right: -280, Width: 250},
	}
	Apply(res, placements, DefaultOptions())

	if got, _ := res.Container.GetAttribute("style"); got != "color: red; position: relative" {
		t.Errorf("container style = %q", got)
	}

	first := css.ParseDeclarations(res.Candidates[0].Note.Attributes["style"])
	want := map[string]string{
		"color": "blue", "position": "absolute", "top": "12.35px",
		"right": "-280px", "width": "250px", "text-align": "left",
	}
	for prop, v := range want {
		if got, _ := first.Get(prop); got != v {
			t.Errorf("%s = %q, want %q", prop, got, v)
		}
	}
	if !res.Candidates[0].Note.HasClass("positioned") {
		t.Errorf("note not marked positioned")
	}

	second := css.ParseDeclarations(res.Candidates[1].Note.Attributes["style"])
	if got, _ := second.Get("text-align"); got != "right" {
		t.Errorf("rtl note text-align = %q, want right", got)
	}
}

func TestApplyTextAlignOverride(t *testing.T) {
	doc := parse(t, `<div class="e-content post"><span class="margin-trigger">w</span><span class="margin-note">مرحبا</span></div>`)
	res := Resolve(doc.Root, DefaultSelectors())
	opts := DefaultOptions()
	opts.TextAlign = AlignLeft
	Apply(res, []Placement{{Note: res.Candidates[0].Note}}, opts)

	d := css.ParseDeclarations(res.Candidates[0].Note.Attributes["style"])
	if got, _ := d.Get("text-align"); got != "left" {
		t.Fatalf("text-align = %q, want left", got)
	}
}

func TestApplyIdempotent(t *testing.T) {
	doc := parse(t, article)
	res := Resolve(doc.Root, DefaultSelectors())
	placements := []Placement{
		{Note: res.Candidates[0].Note, Top: 10, Right: -280, Width: 250},
		{Note: res.Candidates[1].Note, Top: 70, Right: -280, Width: 250},
	}
	Apply(res, placements, DefaultOptions())
	once := doc.Root.Serialize()
	Apply(res, placements, DefaultOptions())
	if twice := doc.Root.Serialize(); twice != once {
		t.Fatalf("second apply changed the document:\n%s\n%s", once, twice)
	}
}

func TestClearRestoresAuthoredStyle(t *testing.T) {
	src := `<div class="e-content post"><p><span class="margin-trigger">w</span>` +
		`<span class="margin-note" style="color: blue">a</span>` +
		`<span class="margin-trigger">v</span><span class="margin-note">b</span></p></div>`
	doc := parse(t, src)
	res := Resolve(doc.Root, DefaultSelectors())
	Apply(res, []Placement{
		{Note: res.Candidates[0].Note, Top: 1, Right: -280, Width: 250},
		{Note: res.Candidates[1].Note, Top: 50, Right: -280, Width: 250},
	}, DefaultOptions())

	Clear(doc.Root, DefaultSelectors())

	first, second := res.Candidates[0].Note, res.Candidates[1].Note
	if got := first.Attributes["style"]; got != "color: blue" {
		t.Errorf("first note style = %q", got)
	}
	if _, ok := second.GetAttribute("style"); ok {
		t.Errorf("second note kept a style attribute")
	}
	if first.HasClass("positioned") || second.HasClass("positioned") {
		t.Errorf("positioned class not removed")
	}
	if !first.HasClass("margin-note") {
		t.Errorf("note class lost")
	}
}

func TestClearRestoresAuthoredOwnedProperties(t *testing.T) {
	src := `<div class="e-content post"><p><span class="margin-trigger">w</span>` +
		`<span class="margin-note" style="width: 180px; color: blue; text-align: center">a</span></p></div>`
	doc := parse(t, src)
	res := Resolve(doc.Root, DefaultSelectors())
	note := res.Candidates[0].Note
	placements := []Placement{{Note: note, Top: 5, Right: -280, Width: 250}}
	Apply(res, placements, DefaultOptions())
	Apply(res, placements, DefaultOptions())

	d := css.ParseDeclarations(note.Attributes["style"])
	if got, _ := d.Get("width"); got != "250px" {
		t.Errorf("positioned width = %q, want 250px", got)
	}
	if got := note.Attributes[AuthoredAttr]; got != "width: 180px; text-align: center" {
		t.Errorf("saved authored values = %q", got)
	}

	Clear(doc.Root, DefaultSelectors())
	if got := note.Attributes["style"]; got != "width: 180px; color: blue; text-align: center" {
		t.Errorf("restored style = %q", got)
	}
	if _, ok := note.GetAttribute(AuthoredAttr); ok {
		t.Errorf("%s left on the note", AuthoredAttr)
	}
}
