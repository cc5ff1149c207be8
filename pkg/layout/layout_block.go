package layout

import (
	"marginalia/pkg/css"
	"marginalia/pkg/html"
)

// layoutBlock lays out node as a block box at (x, y) inside a containing
// width of availableWidth. forcedWidth, when non-nil, overrides the content
// width the style would give.
func (le *LayoutEngine) layoutBlock(parent *Box, node *html.Node, style *css.Style, x, y, availableWidth float64, forcedWidth *float64) *Box {
	box := &Box{
		Node:     node,
		Style:    style,
		Parent:   parent,
		Position: style.GetPosition(),
		Opacity:  le.effectiveOpacity(node),
		Margin:   style.GetMargin(),
		Padding:  style.GetPadding(),
		Border:   style.GetBorderWidth(),
	}
	horizontal := box.Padding.Left + box.Padding.Right + box.Border.Left + box.Border.Right

	explicitWidth := false
	switch {
	case forcedWidth != nil:
		box.Width = *forcedWidth
		explicitWidth = true
	case node.TagName == "img":
		box.Width, box.Height = le.imageSize(node, style, availableWidth-horizontal)
		explicitWidth = true
	default:
		if w, ok := style.GetLengthOrPercent("width", availableWidth); ok {
			box.Width = w
			explicitWidth = true
		} else {
			box.Width = availableWidth - box.Margin.Left - box.Margin.Right - horizontal
		}
		if maxW, ok := style.GetLengthOrPercent("max-width", availableWidth); ok && box.Width > maxW {
			box.Width = maxW
			explicitWidth = true
		}
		if minW, ok := style.GetLengthOrPercent("min-width", availableWidth); ok && box.Width < minW {
			box.Width = minW
		}
	}
	box.Width = max(box.Width, 0)

	// Auto horizontal margins centre a box that does not fill its container.
	if explicitWidth && forcedWidth == nil {
		free := availableWidth - box.Width - horizontal
		leftAuto, rightAuto := style.IsAuto("margin-left"), style.IsAuto("margin-right")
		switch {
		case leftAuto && rightAuto:
			box.Margin.Left = max(free/2, 0)
			box.Margin.Right = box.Margin.Left
		case leftAuto:
			box.Margin.Left = max(free-box.Margin.Right, 0)
		}
	}

	box.X = x + box.Margin.Left
	box.Y = y + box.Margin.Top
	parent.Children = append(parent.Children, box)
	le.tree.boxes[node] = box

	if node.TagName == "img" {
		box.ImagePath, _ = node.GetAttribute("src")
		return box
	}

	contentHeight := le.layoutChildren(box, node.Children)
	if h, ok := style.GetLength("height"); ok {
		box.Height = h
	} else {
		box.Height = contentHeight
	}
	if minH, ok := style.GetLength("min-height"); ok && box.Height < minH {
		box.Height = minH
	}

	if box.Position == css.PositionRelative {
		off := style.GetPositionOffset()
		var dx, dy float64
		if off.HasLeft {
			dx = off.Left
		} else if off.HasRight {
			dx = -off.Right
		}
		if off.HasTop {
			dy = off.Top
		} else if off.HasBottom {
			dy = -off.Bottom
		}
		if dx != 0 || dy != 0 {
			le.translate(box, dx, dy)
		}
	}
	return box
}

// layoutChildren stacks block children and line boxes inside box's content
// area and returns the height they occupy. Vertical margins of adjacent
// block siblings collapse.
func (le *LayoutEngine) layoutChildren(box *Box, nodes []*html.Node) float64 {
	origin := box.ContentOrigin()
	cursor := origin.Y
	prevMarginBottom := 0.0
	prevIsBlock := false
	var group []*html.Node

	flush := func() {
		if len(group) == 0 {
			return
		}
		if h := le.layoutInline(box, group, origin.X, cursor, box.Width); h > 0 {
			cursor += h
			prevIsBlock = false
			prevMarginBottom = 0
		}
		group = nil
	}

	for _, child := range nodes {
		if child.Type == html.TextNode {
			group = append(group, child)
			continue
		}
		style := le.styleOf(child)
		if style.GetDisplay() == css.DisplayNone {
			continue
		}
		if pos := style.GetPosition(); pos == css.PositionAbsolute || pos == css.PositionFixed {
			if len(group) > 0 {
				group = append(group, child)
			} else {
				le.deferBox(child, style, Position{X: origin.X, Y: cursor})
			}
			continue
		}
		if isInlineLevel(child, style) {
			group = append(group, child)
			continue
		}

		flush()
		marginTop := style.GetMargin().Top
		y := cursor
		if prevIsBlock {
			y = cursor - prevMarginBottom + max(prevMarginBottom, marginTop) - marginTop
		}
		b := le.layoutBlock(box, child, style, origin.X, y, box.Width, nil)
		cursor = b.BorderRect().Bottom() + b.Margin.Bottom
		prevMarginBottom = b.Margin.Bottom
		prevIsBlock = true
	}
	flush()
	return cursor - origin.Y
}

func isInlineLevel(node *html.Node, style *css.Style) bool {
	if node.TagName == "br" {
		return true
	}
	d := style.GetDisplay()
	return d == css.DisplayInline || d == css.DisplayInlineBlock
}

// imageSize resolves an image's used size from CSS, then attributes, then the
// loader's cached intrinsic size, keeping the aspect ratio when only one
// dimension is given. max-width clamps against maxWidth.
func (le *LayoutEngine) imageSize(node *html.Node, style *css.Style, maxWidth float64) (float64, float64) {
	var iw, ih float64
	if le.loader != nil {
		if src, ok := node.GetAttribute("src"); ok {
			if w, h, ok := le.loader.Cached(src); ok {
				iw, ih = float64(w), float64(h)
			}
		}
	}
	dim := func(prop string) (float64, bool) {
		if v, ok := style.GetLengthOrPercent(prop, maxWidth); ok {
			return v, true
		}
		if a, ok := node.GetAttribute(prop); ok {
			return css.ParseLength(a)
		}
		return 0, false
	}
	w, hasW := dim("width")
	h, hasH := dim("height")
	switch {
	case hasW && hasH:
	case hasW && iw > 0:
		h = w * ih / iw
	case hasH && ih > 0:
		w = h * iw / ih
	case !hasW && !hasH:
		w, h = iw, ih
	}
	if mw, ok := style.GetLengthOrPercent("max-width", maxWidth); ok && w > mw && w > 0 {
		h = h * mw / w
		w = mw
	}
	return w, h
}

func (le *LayoutEngine) effectiveOpacity(node *html.Node) float64 {
	o := 1.0
	for n := node; n != nil; n = n.Parent {
		if s, ok := le.styles[n]; ok {
			o *= s.GetOpacity()
		}
	}
	return o
}

// translate moves box, its descendants and everything recorded for the DOM
// subtree it covers.
func (le *LayoutEngine) translate(box *Box, dx, dy float64) {
	var shift func(*Box)
	shift = func(b *Box) {
		b.X += dx
		b.Y += dy
		for i := range b.Runs {
			b.Runs[i].X += dx
			b.Runs[i].Baseline += dy
		}
		for _, c := range b.Children {
			shift(c)
		}
	}
	shift(box)

	for node, r := range le.tree.rects {
		if box.Node.Contains(node) {
			le.tree.rects[node] = r.Translate(dx, dy)
			frags := le.tree.fragments[node]
			for i := range frags {
				frags[i] = frags[i].Translate(dx, dy)
			}
		}
	}
	for _, d := range le.deferred {
		if !d.placed && box.Node.Contains(d.node) {
			d.static.X += dx
			d.static.Y += dy
		}
	}
}
