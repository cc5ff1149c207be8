package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"marginalia/pkg/html"
	"marginalia/pkg/images"
	"marginalia/pkg/layout"
	"marginalia/pkg/page"
)

func paint(t *testing.T, src string, loader *images.Loader) image.Image {
	t.Helper()
	doc, err := html.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	engine := layout.NewLayoutEngine(100, 100)
	if loader != nil {
		engine.SetImageLoader(loader)
	}
	r := NewRenderer(100, 100, Options{Images: loader})
	r.Render(context.Background(), engine.Layout(doc))
	return r.Image()
}

func rgb(img image.Image, x, y int) (uint8, uint8, uint8) {
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return c.R, c.G, c.B
}

func TestRenderBackground(t *testing.T) {
	img := paint(t, `<div style="background-color: #ff0000; width: 50px; height: 20px"></div>`, nil)
	if r, g, b := rgb(img, 10, 10); r != 255 || g != 0 || b != 0 {
		t.Errorf("inside = %d,%d,%d, want red", r, g, b)
	}
	if r, g, b := rgb(img, 80, 80); r != 255 || g != 255 || b != 255 {
		t.Errorf("outside = %d,%d,%d, want white", r, g, b)
	}
}

func TestRenderBorder(t *testing.T) {
	img := paint(t, `<div style="border: 4px solid #0000ff; width: 40px; height: 40px"></div>`, nil)
	if r, g, b := rgb(img, 1, 20); r != 0 || g != 0 || b != 255 {
		t.Errorf("border = %d,%d,%d, want blue", r, g, b)
	}
	if r, g, b := rgb(img, 20, 20); r != 255 || g != 255 || b != 255 {
		t.Errorf("content = %d,%d,%d, want white", r, g, b)
	}
}

func TestRenderSkipsTransparentBoxes(t *testing.T) {
	img := paint(t, `<div style="opacity: 0"><div style="background-color: #ff0000; height: 30px"></div></div>`, nil)
	if r, g, b := rgb(img, 10, 10); r != 255 || g != 255 || b != 255 {
		t.Errorf("pixel = %d,%d,%d, transparent subtree was painted", r, g, b)
	}
}

func TestRenderImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.RGBA{0, 200, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	loader := images.NewLoader(nil)
	img := paint(t, `<p><img src="`+uri+`" width="20" height="20"></p>`, loader)
	found := false
	for y := 0; y < 40 && !found; y++ {
		for x := 0; x < 20; x++ {
			if _, g, b := rgb(img, x, y); g == 200 && b == 0 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatal("image pixels not painted")
	}
}

func TestPageWithGuides(t *testing.T) {
	doc, err := html.Parse(`<article class="post"><p>Some <span class="margin-trigger">word</span><span class="margin-note">A note.</span> here.</p></article>`)
	if err != nil {
		t.Fatal(err)
	}
	opts := page.DefaultOptions()
	opts.Width, opts.Height = 1300, 400
	p, err := page.New(doc, opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Relayout(); err != nil {
		t.Fatal(err)
	}

	r := Page(context.Background(), p, Options{Guides: true})
	if b := r.Image().Bounds(); b.Dx() != 1300 || b.Dy() < 400 {
		t.Fatalf("bounds = %v", b)
	}
	var out bytes.Buffer
	if err := r.EncodePNG(&out); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(&out); err != nil {
		t.Fatalf("encoded image does not decode: %v", err)
	}
}
