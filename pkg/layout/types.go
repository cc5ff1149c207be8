package layout

import (
	"marginalia/pkg/css"
	"marginalia/pkg/html"
)

// Box is a laid out element. X and Y are the border-box origin; Width and
// Height are the content size.
type Box struct {
	Node      *html.Node
	Style     *css.Style
	X         float64
	Y         float64
	Width     float64
	Height    float64
	Margin    css.BoxEdge
	Padding   css.BoxEdge
	Border    css.BoxEdge
	Children  []*Box
	Parent    *Box
	Position  css.PositionType
	Opacity   float64 // effective, including ancestors
	ImagePath string  // img elements
	Runs      []TextRun

	maxLine float64 // widest line of inline content
}

// BorderRect returns the border box.
func (b *Box) BorderRect() Rect {
	return Rect{
		X:      b.X,
		Y:      b.Y,
		Width:  b.Border.Left + b.Padding.Left + b.Width + b.Padding.Right + b.Border.Right,
		Height: b.Border.Top + b.Padding.Top + b.Height + b.Padding.Bottom + b.Border.Bottom,
	}
}

// ContentOrigin returns the top-left of the content box.
func (b *Box) ContentOrigin() Position {
	return Position{X: b.X + b.Border.Left + b.Padding.Left, Y: b.Y + b.Border.Top + b.Padding.Top}
}

// IsPositioned returns true if the box has position != static
func (b *Box) IsPositioned() bool {
	return b.Position != css.PositionStatic
}

// TextRun is a span of text on one line drawn in a single face.
type TextRun struct {
	Text     string
	X        float64
	Baseline float64
	Width    float64
	Size     float64
	Bold     bool
	Italic   bool
	Color    css.Color
	Opacity  float64
	Node     *html.Node // innermost element owning the text, nil for the block itself
}

type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Rect) Bottom() float64 { return r.Y + r.Height }

func (r Rect) Right() float64 { return r.X + r.Width }

// Union returns the smallest rect containing both.
func (r Rect) Union(o Rect) Rect {
	x := min(r.X, o.X)
	y := min(r.Y, o.Y)
	return Rect{X: x, Y: y, Width: max(r.Right(), o.Right()) - x, Height: max(r.Bottom(), o.Bottom()) - y}
}

func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

type Position struct {
	X float64
	Y float64
}

// Tree is the result of one layout pass.
type Tree struct {
	Boxes  []*Box // top-level boxes in paint order
	Width  float64
	Height float64 // bottom of the lowest box, at least the viewport height

	boxes     map[*html.Node]*Box
	rects     map[*html.Node]Rect
	fragments map[*html.Node][]Rect
	styles    map[*html.Node]*css.Style
}

func newTree(width float64, styles map[*html.Node]*css.Style) *Tree {
	return &Tree{
		Width:     width,
		boxes:     make(map[*html.Node]*Box),
		rects:     make(map[*html.Node]Rect),
		fragments: make(map[*html.Node][]Rect),
		styles:    styles,
	}
}

// Rect returns the border box of a block element or the union of an inline
// element's line fragments. ok is false for elements that generated nothing.
func (t *Tree) Rect(node *html.Node) (Rect, bool) {
	if b, ok := t.boxes[node]; ok {
		return b.BorderRect(), true
	}
	r, ok := t.rects[node]
	return r, ok
}

// Fragments returns an inline element's per-line rects.
func (t *Tree) Fragments(node *html.Node) []Rect {
	return t.fragments[node]
}

// PaddingOrigin returns the top-left of node's padding box, the origin
// absolutely positioned descendants are placed against.
func (t *Tree) PaddingOrigin(node *html.Node) (Position, bool) {
	if b, ok := t.boxes[node]; ok {
		return Position{X: b.X + b.Border.Left, Y: b.Y + b.Border.Top}, true
	}
	if r, ok := t.rects[node]; ok {
		return Position{X: r.X, Y: r.Y}, true
	}
	return Position{}, false
}

func (t *Tree) Box(node *html.Node) *Box {
	return t.boxes[node]
}

// Style returns the computed style used for node in this pass.
func (t *Tree) Style(node *html.Node) *css.Style {
	return t.styles[node]
}

// Walk visits boxes depth-first in paint order.
func (t *Tree) Walk(fn func(*Box)) {
	var visit func(*Box)
	visit = func(b *Box) {
		fn(b)
		for _, c := range b.Children {
			visit(c)
		}
	}
	for _, b := range t.Boxes {
		visit(b)
	}
}

func (t *Tree) addRect(node *html.Node, r Rect) {
	t.fragments[node] = append(t.fragments[node], r)
	if prev, ok := t.rects[node]; ok {
		r = prev.Union(r)
	}
	t.rects[node] = r
}
