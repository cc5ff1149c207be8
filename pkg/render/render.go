// Package render paints a layout tree with gg.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"marginalia/pkg/css"
	"marginalia/pkg/images"
	"marginalia/pkg/layout"
	"marginalia/pkg/margin"
	"marginalia/pkg/page"
	"marginalia/pkg/text"
)

var errNoLoader = errors.New("no image loader")

type Options struct {
	// Guides draws a line from each trigger to its placed note.
	Guides   bool
	Measurer *text.Measurer
	Images   *images.Loader
	Logger   *log.Logger
}

type Renderer struct {
	context *gg.Context
	opts    Options
	logger  *log.Logger
	faces   map[faceKey]font.Face
}

type faceKey struct {
	size         float64
	bold, italic bool
}

func NewRenderer(width, height int, opts Options) *Renderer {
	if opts.Measurer == nil {
		opts.Measurer = text.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Renderer{
		context: gg.NewContext(width, height),
		opts:    opts,
		logger:  logger,
		faces:   make(map[faceKey]font.Face),
	}
}

// Page paints p at its viewport width. The image grows to the full page
// height.
func Page(ctx context.Context, p *page.Page, opts Options) *Renderer {
	tree := p.Tree()
	w, h := p.Viewport()
	if tree.Height > h {
		h = tree.Height
	}
	if opts.Images == nil {
		opts.Images = p.Images()
	}
	if opts.Measurer == nil {
		opts.Measurer = p.Measurer()
	}
	r := NewRenderer(int(math.Ceil(w)), int(math.Ceil(h)), opts)
	r.Render(ctx, tree)
	if opts.Guides {
		r.DrawGuides(tree, p.Placements())
	}
	return r
}

// Render clears the canvas to white and paints every box in tree order.
func (r *Renderer) Render(ctx context.Context, tree *layout.Tree) {
	r.context.SetRGB(1, 1, 1)
	r.context.Clear()
	tree.Walk(func(b *layout.Box) {
		if b.Opacity <= 0 {
			return
		}
		r.drawBox(ctx, b)
	})
}

func (r *Renderer) drawBox(ctx context.Context, box *layout.Box) {
	if box.Style == nil {
		return
	}
	rect := box.BorderRect()
	if bg, ok := box.Style.GetBackgroundColor(); ok {
		// Background covers the padding box.
		x := rect.X + box.Border.Left
		y := rect.Y + box.Border.Top
		w := rect.Width - box.Border.Left - box.Border.Right
		h := rect.Height - box.Border.Top - box.Border.Bottom
		if w > 0 && h > 0 {
			r.setColor(bg, box.Opacity)
			r.context.DrawRectangle(x, y, w, h)
			r.context.Fill()
		}
	}
	r.drawBorder(box, rect)
	r.drawImage(ctx, box)
	r.drawText(box)
}

// drawBorder paints each side as a filled strip. Only solid borders are
// drawn.
func (r *Renderer) drawBorder(box *layout.Box, rect layout.Rect) {
	b := box.Border
	if b.Top <= 0 && b.Right <= 0 && b.Bottom <= 0 && b.Left <= 0 {
		return
	}
	if style, ok := box.Style.Get("border-style"); ok && style != "solid" {
		return
	}
	r.setColor(box.Style.GetBorderColor(), box.Opacity)
	if b.Top > 0 {
		r.context.DrawRectangle(rect.X, rect.Y, rect.Width, b.Top)
	}
	if b.Bottom > 0 {
		r.context.DrawRectangle(rect.X, rect.Bottom()-b.Bottom, rect.Width, b.Bottom)
	}
	if b.Left > 0 {
		r.context.DrawRectangle(rect.X, rect.Y, b.Left, rect.Height)
	}
	if b.Right > 0 {
		r.context.DrawRectangle(rect.Right()-b.Right, rect.Y, b.Right, rect.Height)
	}
	r.context.Fill()
}

func (r *Renderer) drawText(box *layout.Box) {
	for _, run := range box.Runs {
		if run.Opacity <= 0 || run.Text == "" {
			continue
		}
		r.useFace(run.Size, run.Bold, run.Italic)
		r.setColor(run.Color, run.Opacity)
		r.context.DrawString(run.Text, run.X, run.Baseline)
	}
}

func (r *Renderer) useFace(size float64, bold, italic bool) {
	k := faceKey{size, bold, italic}
	face, ok := r.faces[k]
	if !ok {
		face = r.opts.Measurer.NewFace(size, bold, italic)
		r.faces[k] = face
	}
	r.context.SetFontFace(face)
}

func (r *Renderer) drawImage(ctx context.Context, box *layout.Box) {
	if box.ImagePath == "" || box.Width <= 0 || box.Height <= 0 {
		return
	}
	var img image.Image
	err := errNoLoader
	if r.opts.Images != nil {
		img, err = r.opts.Images.Load(ctx, box.ImagePath)
	}
	o := box.ContentOrigin()
	if err != nil {
		r.logger.Debug("drawing broken image placeholder", "err", err)
		r.context.SetRGB(0.9, 0.9, 0.9)
		r.context.DrawRectangle(o.X, o.Y, box.Width, box.Height)
		r.context.Fill()
		r.context.SetRGB(0.5, 0.5, 0.5)
		r.context.SetLineWidth(2)
		r.context.DrawLine(o.X, o.Y, o.X+box.Width, o.Y+box.Height)
		r.context.DrawLine(o.X+box.Width, o.Y, o.X, o.Y+box.Height)
		r.context.Stroke()
		return
	}

	bounds := img.Bounds()
	r.context.Push()
	r.context.Translate(o.X, o.Y)
	r.context.Scale(box.Width/float64(bounds.Dx()), box.Height/float64(bounds.Dy()))
	r.context.DrawImage(img, 0, 0)
	r.context.Pop()
}

// DrawGuides connects each placed note to its trigger with a dashed line
// and outlines the note.
func (r *Renderer) DrawGuides(tree *layout.Tree, placements []margin.Placement) {
	r.context.Push()
	defer r.context.Pop()
	r.context.SetRGBA(0.85, 0.2, 0.2, 0.8)
	r.context.SetLineWidth(1)
	r.context.SetDash(4, 3)
	for _, p := range placements {
		trig, ok := tree.Rect(p.Trigger)
		if !ok {
			continue
		}
		note, ok := tree.Rect(p.Note)
		if !ok {
			continue
		}
		r.context.DrawLine(trig.Right(), trig.Bottom(), note.X, note.Y)
		r.context.Stroke()
		r.context.DrawRectangle(note.X, note.Y, note.Width, note.Height)
		r.context.Stroke()
	}
}

func (r *Renderer) setColor(c css.Color, opacity float64) {
	a := float64(c.A) / 255 * opacity
	r.context.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, a)
}

func (r *Renderer) Image() image.Image {
	return r.context.Image()
}

func (r *Renderer) EncodePNG(w io.Writer) error {
	return png.Encode(w, r.context.Image())
}

func (r *Renderer) SavePNG(filename string) error {
	if err := r.context.SavePNG(filename); err != nil {
		return fmt.Errorf("save %s: %w", filename, err)
	}
	return nil
}
