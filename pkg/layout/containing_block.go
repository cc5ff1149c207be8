package layout

import (
	"marginalia/pkg/css"
	"marginalia/pkg/html"
)

// findContainingBlock returns the box an absolutely positioned node is
// placed against: the nearest ancestor with a positioned block box. nil
// means the viewport. Fixed boxes always use the viewport. Positioned inline
// ancestors generate no box and are skipped.
func (le *LayoutEngine) findContainingBlock(node *html.Node, style *css.Style) *Box {
	if style.GetPosition() == css.PositionFixed {
		return nil
	}
	for a := node.Parent; a != nil; a = a.Parent {
		if b, ok := le.tree.boxes[a]; ok && b.IsPositioned() {
			return b
		}
	}
	return nil
}

// paddingBox returns the rect absolutely positioned children resolve their
// offsets against.
func (le *LayoutEngine) paddingBox(cb *Box) Rect {
	if cb == nil {
		return Rect{Width: le.viewport.width, Height: le.viewport.height}
	}
	return Rect{
		X:      cb.X + cb.Border.Left,
		Y:      cb.Y + cb.Border.Top,
		Width:  cb.Width + cb.Padding.Left + cb.Padding.Right,
		Height: cb.Height + cb.Padding.Top + cb.Padding.Bottom,
	}
}
