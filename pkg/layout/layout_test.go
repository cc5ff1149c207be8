package layout

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"math"
	"testing"

	"marginalia/pkg/html"
	"marginalia/pkg/images"
)

func layoutHTML(t *testing.T, src string, width float64) (*Tree, *html.Document, *LayoutEngine) {
	t.Helper()
	doc, err := html.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	engine := NewLayoutEngine(width, 600)
	return engine.Layout(doc), doc, engine
}

func near(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func TestLayoutEngine_SingleBox(t *testing.T) {
	tree, _, _ := layoutHTML(t, `<div style="width: 200px; height: 100px;"></div>`, 800)
	if len(tree.Boxes) != 1 {
		t.Fatalf("expected 1 box, got %d", len(tree.Boxes))
	}
	if tree.Boxes[0].Width != 200 || tree.Boxes[0].Height != 100 {
		t.Errorf("expected 200x100, got %fx%f", tree.Boxes[0].Width, tree.Boxes[0].Height)
	}
	if tree.Height != 600 {
		t.Errorf("tree height should be at least the viewport, got %v", tree.Height)
	}
}

func TestLayoutEngine_VerticalStacking(t *testing.T) {
	tree, _, _ := layoutHTML(t, `<div style="height: 50px;"></div><div style="height: 50px;"></div><div style="height: 50px;"></div>`, 800)
	if len(tree.Boxes) != 3 {
		t.Fatalf("expected 3 boxes, got %d", len(tree.Boxes))
	}
	if tree.Boxes[0].Y != 0 || tree.Boxes[1].Y != 50 || tree.Boxes[2].Y != 100 {
		t.Error("boxes not stacking correctly")
	}
}

func TestLayoutEngine_MarginCollapsing(t *testing.T) {
	tree, _, _ := layoutHTML(t, `<div style="height: 10px; margin-bottom: 20px"></div><div style="height: 10px; margin-top: 30px"></div>`, 800)
	if y := tree.Boxes[1].Y; y != 40 {
		t.Errorf("second box Y = %v, want 40 (collapsed margin 30)", y)
	}
}

func TestLayoutEngine_AutoMarginsCentre(t *testing.T) {
	tree, _, _ := layoutHTML(t, `<div style="width: 200px; margin: 0 auto; height: 5px"></div>`, 800)
	if x := tree.Boxes[0].X; x != 300 {
		t.Errorf("X = %v, want 300", x)
	}
}

func TestLayoutEngine_BoxModel(t *testing.T) {
	tree, _, _ := layoutHTML(t, `<div style="width: 100px; padding: 10px; border: 2px solid black; margin: 5px"></div>`, 800)
	b := tree.Boxes[0]
	if o := b.ContentOrigin(); o.X != 17 || o.Y != 17 {
		t.Errorf("content origin = %+v, want 17,17", o)
	}
	if r := b.BorderRect(); r.Width != 124 || r.X != 5 {
		t.Errorf("border rect = %+v", r)
	}
}

func TestLayoutEngine_DisplayNone(t *testing.T) {
	tree, doc, _ := layoutHTML(t, `<div style="display: none; height: 40px"></div><div id="b" style="height: 10px"></div>`, 800)
	b := doc.Root.ElementByID("b")
	r, ok := tree.Rect(b)
	if !ok || r.Y != 0 {
		t.Errorf("hidden box should take no space, b = %+v", r)
	}
	if len(tree.Boxes) != 1 {
		t.Errorf("expected 1 box, got %d", len(tree.Boxes))
	}
}

func TestLayoutEngine_RelativeOffset(t *testing.T) {
	tree, _, _ := layoutHTML(t, `<div style="position: relative; top: 10px; left: 4px; height: 20px"></div>`, 800)
	if b := tree.Boxes[0]; b.Y != 10 || b.X != 4 {
		t.Errorf("relative box at %v,%v, want 4,10", b.X, b.Y)
	}
}

func TestLayoutEngine_LineWrapping(t *testing.T) {
	tree, _, _ := layoutHTML(t, `<p style="width: 120px; margin: 0; font-size: 16px; line-height: 20px">one two three four five six seven eight</p>`, 800)
	p := tree.Boxes[0]
	if len(p.Runs) < 2 {
		t.Fatalf("expected text to wrap into several runs, got %d", len(p.Runs))
	}
	lines := math.Round(p.Height / 20)
	if lines < 2 || !near(p.Height, lines*20) {
		t.Errorf("height %v should be a whole number of 20px lines", p.Height)
	}
	for i := 1; i < len(p.Runs); i++ {
		if p.Runs[i].Baseline < p.Runs[i-1].Baseline {
			t.Error("runs should progress down the page")
		}
	}
	for _, r := range p.Runs {
		if r.X+r.Width > 120.01 {
			t.Errorf("run %q overflows the line", r.Text)
		}
	}
}

func TestLayoutEngine_InlineElementRect(t *testing.T) {
	tree, doc, _ := layoutHTML(t, `<p style="margin: 0; line-height: 20px">Some <span id="t">word</span> here</p>`, 800)
	span := doc.Root.ElementByID("t")
	r, ok := tree.Rect(span)
	if !ok {
		t.Fatal("inline element should have a rect")
	}
	if r.Y != 0 || r.Height != 20 || r.X <= 0 || r.Width <= 0 {
		t.Errorf("unexpected rect %+v", r)
	}
	if len(tree.Fragments(span)) != 1 {
		t.Errorf("expected one fragment, got %d", len(tree.Fragments(span)))
	}
}

func TestLayoutEngine_InlineRectOnLaterLine(t *testing.T) {
	tree, doc, _ := layoutHTML(t, `<p style="margin: 0; width: 60px; line-height: 20px">aaaa bbbb cccc dddd <span id="t">eeee</span></p>`, 800)
	r, _ := tree.Rect(doc.Root.ElementByID("t"))
	if r.Y < 40 {
		t.Errorf("span on a later line should be at least two lines down, got Y=%v", r.Y)
	}
}

func TestLayoutEngine_EmptyInlineElement(t *testing.T) {
	tree, doc, _ := layoutHTML(t, `<p style="margin: 0">a<span id="e"></span> b</p>`, 800)
	r, ok := tree.Rect(doc.Root.ElementByID("e"))
	if !ok || r.Width != 0 {
		t.Errorf("empty span should get a zero-width rect, got %+v, %v", r, ok)
	}
}

func TestLayoutEngine_TextAlign(t *testing.T) {
	tree, _, _ := layoutHTML(t, `<p style="width: 300px; margin: 0; text-align: right">hi</p>`, 800)
	run := tree.Boxes[0].Runs[0]
	if !near(run.X+run.Width, 300) {
		t.Errorf("right aligned run ends at %v", run.X+run.Width)
	}
	tree, _, _ = layoutHTML(t, `<p style="width: 300px; margin: 0; text-align: center">hi</p>`, 800)
	run = tree.Boxes[0].Runs[0]
	if !near(run.X, 300-run.X-run.Width) {
		t.Errorf("centred run at %v width %v", run.X, run.Width)
	}
}

func TestLayoutEngine_RightToLeft(t *testing.T) {
	tree, _, _ := layoutHTML(t, `<p style="direction: rtl; width: 300px; margin: 0">ab cd</p>`, 800)
	runs := tree.Boxes[0].Runs
	if len(runs) != 2 {
		t.Fatalf("expected one run per word in rtl, got %d", len(runs))
	}
	if runs[0].X <= runs[1].X {
		t.Error("first word should sit to the right in rtl")
	}
	if !near(runs[0].X+runs[0].Width, 300) {
		t.Errorf("rtl text should start at the right edge, ends at %v", runs[0].X+runs[0].Width)
	}
}

func TestLayoutEngine_AbsolutePositioning(t *testing.T) {
	src := `<div style="height: 50px"></div>` +
		`<div id="c" style="position: relative; width: 400px; padding: 10px">` +
		`<p style="margin: 0">text <span id="n" style="position: absolute; top: 30px; right: -280px; width: 250px">note</span></p></div>`
	tree, doc, _ := layoutHTML(t, src, 1400)
	note := tree.Box(doc.Root.ElementByID("n"))
	if note == nil {
		t.Fatal("absolute element should get a box")
	}
	if note.X != 450 || note.Y != 80 {
		t.Errorf("note at %v,%v, want 450,80", note.X, note.Y)
	}
	if note.Width != 250 {
		t.Errorf("note width = %v", note.Width)
	}
	c := tree.Box(doc.Root.ElementByID("c"))
	if c.Height <= 0 || c.Height > 40 {
		t.Errorf("absolute content should not grow the container much, height %v", c.Height)
	}
	if o, _ := tree.PaddingOrigin(doc.Root.ElementByID("c")); o.X != 0 || o.Y != 50 {
		t.Errorf("padding origin = %+v", o)
	}
}

func TestLayoutEngine_AbsoluteStaticPosition(t *testing.T) {
	src := `<div id="c" style="position: relative; width: 200px"><p style="margin: 0; line-height: 20px">aaaa bbbb cccc dddd eeee ffff <span id="n" style="position: absolute; right: 0; width: 50px">x</span></p></div>`
	tree, doc, _ := layoutHTML(t, src, 800)
	note := tree.Box(doc.Root.ElementByID("n"))
	p := tree.Boxes[0].Children[0]
	if note.Y < 20 || note.Y >= p.Height {
		t.Errorf("note without top should stay on its line, Y=%v in paragraph of height %v", note.Y, p.Height)
	}
	if note.X != 150 {
		t.Errorf("note X = %v, want 150", note.X)
	}
}

func TestLayoutEngine_AbsoluteWithoutPositionedAncestor(t *testing.T) {
	tree, doc, _ := layoutHTML(t, `<div style="height: 100px"><span id="n" style="position: absolute; bottom: 0; left: 10px; width: 20px; height: 30px"></span></div>`, 800)
	note := tree.Box(doc.Root.ElementByID("n"))
	if note.X != 10 || note.Y != 570 {
		t.Errorf("viewport positioned box at %v,%v, want 10,570", note.X, note.Y)
	}
}

func TestLayoutEngine_Opacity(t *testing.T) {
	tree, _, _ := layoutHTML(t, `<div style="opacity: 0.5"><p style="opacity: 0">t</p></div><p>u</p>`, 800)
	hidden := tree.Boxes[0].Children[0]
	if hidden.Opacity != 0 || hidden.Runs[0].Opacity != 0 {
		t.Errorf("nested opacity should multiply to 0, got %v", hidden.Opacity)
	}
	if tree.Boxes[0].Opacity != 0.5 || tree.Boxes[1].Runs[0].Opacity != 1 {
		t.Error("unexpected opacity values")
	}
}

func TestMeasureHeight(t *testing.T) {
	src := `<p id="n" style="margin: 0; padding: 5px; line-height: 20px">a note with quite a few words in it to wrap</p>`
	_, doc, engine := layoutHTML(t, src, 1400)
	n := doc.Root.ElementByID("n")
	narrow, ok := engine.MeasureHeight(n, 80)
	if !ok {
		t.Fatal("styled node should measure")
	}
	wide, _ := engine.MeasureHeight(n, 1000)
	if wide != 30 {
		t.Errorf("single line plus padding = %v, want 30", wide)
	}
	if narrow <= wide {
		t.Errorf("narrower width should be taller: %v vs %v", narrow, wide)
	}
	if _, ok := engine.MeasureHeight(html.NewElement("p"), 100); ok {
		t.Error("unstyled node should not measure")
	}
}

func TestLayoutEngine_ImageFromLoader(t *testing.T) {
	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30)))
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	doc, _ := html.Parse(`<p style="margin: 0"><img id="i" src="` + src + `"></p>`)
	loader := images.NewLoader(nil)
	engine := NewLayoutEngine(800, 600)
	engine.SetImageLoader(loader)

	before := engine.Layout(doc).Box(doc.Root.ElementByID("i"))
	if before.Width != 0 {
		t.Errorf("unloaded image should lay out at 0 width, got %v", before.Width)
	}
	if _, _, err := loader.Dimensions(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	after := engine.Layout(doc).Box(doc.Root.ElementByID("i"))
	if after.Width != 40 || after.Height != 30 {
		t.Errorf("loaded image = %vx%v, want 40x30", after.Width, after.Height)
	}
}

func TestLayoutEngine_ImageAttributeScaling(t *testing.T) {
	tree, doc, _ := layoutHTML(t, `<p><img id="i" src="x.png" width="120" height="60" style="max-width: 60px"></p>`, 800)
	b := tree.Box(doc.Root.ElementByID("i"))
	if b.Width != 60 || b.Height != 30 {
		t.Errorf("max-width should scale the image to 60x30, got %vx%v", b.Width, b.Height)
	}
}
