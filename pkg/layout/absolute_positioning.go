package layout

import (
	"marginalia/pkg/css"
	"marginalia/pkg/html"
)

type deferredBox struct {
	node   *html.Node
	style  *css.Style
	static Position // where the box would have been in normal flow
	placed bool
}

func (le *LayoutEngine) deferBox(node *html.Node, style *css.Style, static Position) {
	le.deferred = append(le.deferred, &deferredBox{node: node, style: style, static: static})
}

// placeDeferred lays out absolutely positioned boxes once the normal flow
// is final. Boxes deferred while placing others are handled in turn.
func (le *LayoutEngine) placeDeferred(root *Box) {
	for i := 0; i < len(le.deferred); i++ {
		d := le.deferred[i]
		le.applyAbsolutePositioning(root, d)
		d.placed = true
	}
}

// applyAbsolutePositioning positions an absolutely positioned box
// following CSS 2.1 §10.3.7 (horizontal) and §10.6.4 (vertical). Offsets
// that are unset fall back to the static position.
func (le *LayoutEngine) applyAbsolutePositioning(root *Box, d *deferredBox) {
	cb := le.findContainingBlock(d.node, d.style)
	area := le.paddingBox(cb)
	parent := cb
	if parent == nil {
		parent = root
	}

	style := d.style
	offset := style.GetPositionOffset()
	margin := style.GetMargin()
	padding := style.GetPadding()
	border := style.GetBorderWidth()
	horizontal := padding.Left + padding.Right + border.Left + border.Right

	var width *float64
	if w, ok := style.GetLengthOrPercent("width", area.Width); ok {
		width = &w
	} else if d.node.TagName != "img" {
		avail := area.Width - margin.Left - margin.Right - horizontal
		if offset.HasLeft {
			avail -= offset.Left
		}
		if offset.HasRight {
			avail -= offset.Right
		}
		if !(offset.HasLeft && offset.HasRight) {
			avail = min(avail, le.shrinkToFit(d.node, style, avail))
		}
		avail = max(avail, 0)
		width = &avail
	}

	box := le.layoutBlock(parent, d.node, style, 0, 0, area.Width, width)
	outer := box.BorderRect()

	marginLeftAuto := style.IsAuto("margin-left")
	marginRightAuto := style.IsAuto("margin-right")
	marginTopAuto := style.IsAuto("margin-top")
	marginBottomAuto := style.IsAuto("margin-bottom")

	var x, y float64
	// When left, right and width are all set and both margins are auto,
	// the margins are equal (centring the element horizontally).
	switch {
	case offset.HasLeft && offset.HasRight && marginLeftAuto && marginRightAuto:
		free := area.Width - offset.Left - offset.Right - outer.Width
		box.Margin.Left = max(free/2, 0)
		box.Margin.Right = box.Margin.Left
		x = area.X + offset.Left + box.Margin.Left
	case offset.HasLeft:
		x = area.X + offset.Left + box.Margin.Left
	case offset.HasRight:
		x = area.X + area.Width - offset.Right - box.Margin.Right - outer.Width
	default:
		x = d.static.X + box.Margin.Left
	}

	switch {
	case offset.HasTop && offset.HasBottom && marginTopAuto && marginBottomAuto:
		free := area.Height - offset.Top - offset.Bottom - outer.Height
		box.Margin.Top = max(free/2, 0)
		box.Margin.Bottom = box.Margin.Top
		y = area.Y + offset.Top + box.Margin.Top
	case offset.HasTop:
		y = area.Y + offset.Top + box.Margin.Top
	case offset.HasBottom:
		y = area.Y + area.Height - offset.Bottom - box.Margin.Bottom - outer.Height
	default:
		y = d.static.Y + box.Margin.Top
	}

	le.translate(box, x-box.X, y-box.Y)
}

// shrinkToFit returns the widest line node produces when laid out in avail,
// which is the preferred width of an auto-width absolute box.
func (le *LayoutEngine) shrinkToFit(node *html.Node, style *css.Style, avail float64) float64 {
	savedTree, savedDeferred := le.tree, le.deferred
	defer func() { le.tree, le.deferred = savedTree, savedDeferred }()
	le.tree = newTree(avail, le.styles)
	le.deferred = nil

	holder := &Box{Node: node.Parent, Style: css.NewStyle(), Width: avail}
	box := le.layoutBlock(holder, node, style, 0, 0, avail, &avail)
	left := box.ContentOrigin().X
	extent := 0.0
	var visit func(*Box)
	visit = func(b *Box) {
		extent = max(extent, b.ContentOrigin().X-left+b.maxLine)
		for _, c := range b.Children {
			if c.ImagePath != "" {
				extent = max(extent, c.BorderRect().Right()-left)
			}
			visit(c)
		}
	}
	visit(box)
	return extent
}
