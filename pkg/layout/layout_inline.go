package layout

import (
	"strings"
	"unicode"

	"marginalia/pkg/css"
	"marginalia/pkg/html"
)

type itemKind int

const (
	itemWord   itemKind = iota
	itemAtomic          // replaced element (img)
	itemBreak           // <br>, or the edge of a block nested in inline content
	itemMarker          // empty inline element, recorded for its position only
	itemAbs             // absolutely positioned element, recorded for its static position
)

type inlineItem struct {
	kind    itemKind
	text    string
	width   float64
	height  float64
	space   float64 // width of a collapsible space before the item
	style   *css.Style
	owners  []*html.Node // inline element ancestors, outermost first
	node    *html.Node
	soft    bool // itemBreak that only ends a non-empty line
	opacity float64

	x       float64 // set when the line is placed
	applied float64 // space actually kept before the item
}

// inlineFlow flattens inline content into items and breaks them into lines.
type inlineFlow struct {
	le           *LayoutEngine
	items        []*inlineItem
	width        float64
	pendingSpace bool
}

// layoutInline lays out a run of inline-level nodes as line boxes starting
// at (x, y) and returns the total line height.
func (le *LayoutEngine) layoutInline(block *Box, nodes []*html.Node, x, y, width float64) float64 {
	f := &inlineFlow{le: le, width: width}
	f.flatten(nodes, nil, block.Style, le.effectiveOpacity(block.Node))

	lb := &lineBuilder{le: le, block: block, x: x, y: y, width: width}
	var line []*inlineItem
	lineWidth := 0.0
	hasContent := false
	finish := func(forced bool) {
		lb.place(line, lineWidth, hasContent || forced)
		line, lineWidth, hasContent = nil, 0, false
	}

	for _, it := range f.items {
		switch it.kind {
		case itemWord, itemAtomic:
			sp := it.space
			if !hasContent {
				sp = 0
			}
			if hasContent && lineWidth+sp+it.width > width {
				finish(false)
				sp = 0
			}
			it.applied = sp
			line = append(line, it)
			lineWidth += sp + it.width
			hasContent = true
		case itemMarker, itemAbs:
			line = append(line, it)
		case itemBreak:
			if it.soft && !hasContent {
				continue
			}
			finish(!it.soft)
		}
	}
	if len(line) > 0 {
		finish(false)
	}
	return lb.y - y
}

func (f *inlineFlow) flatten(nodes []*html.Node, owners []*html.Node, style *css.Style, opacity float64) {
	for _, n := range nodes {
		if n.Type == html.TextNode {
			f.addText(n.Text, owners, style, opacity)
			continue
		}
		st := f.le.styleOf(n)
		if st.GetDisplay() == css.DisplayNone {
			continue
		}
		if pos := st.GetPosition(); pos == css.PositionAbsolute || pos == css.PositionFixed {
			f.items = append(f.items, &inlineItem{kind: itemAbs, node: n, style: st, owners: owners})
			continue
		}
		switch n.TagName {
		case "br":
			f.items = append(f.items, &inlineItem{kind: itemBreak})
			f.pendingSpace = false
			continue
		case "img":
			w, h := f.le.imageSize(n, st, f.width)
			f.items = append(f.items, &inlineItem{
				kind: itemAtomic, node: n, style: st, width: w, height: h,
				space: f.takeSpace(style), owners: owners, opacity: opacity * st.GetOpacity(),
			})
			continue
		}

		inner := make([]*html.Node, len(owners), len(owners)+1)
		copy(inner, owners)
		inner = append(inner, n)
		block := !isInlineLevel(n, st)
		if block {
			f.items = append(f.items, &inlineItem{kind: itemBreak, soft: true})
			f.pendingSpace = false
		}
		before := len(f.items)
		f.flatten(n.Children, inner, st, opacity*st.GetOpacity())
		if len(f.items) == before {
			f.items = append(f.items, &inlineItem{kind: itemMarker, node: n, owners: inner, style: st})
		}
		if block {
			f.items = append(f.items, &inlineItem{kind: itemBreak, soft: true})
			f.pendingSpace = false
		}
	}
}

func (f *inlineFlow) takeSpace(style *css.Style) float64 {
	if !f.pendingSpace {
		return 0
	}
	f.pendingSpace = false
	return f.le.measure(" ", style)
}

func (f *inlineFlow) addText(s string, owners []*html.Node, style *css.Style, opacity float64) {
	if s == "" {
		return
	}
	if unicode.IsSpace(rune(s[0])) {
		f.pendingSpace = true
	}
	for _, word := range strings.Fields(s) {
		f.items = append(f.items, &inlineItem{
			kind:    itemWord,
			text:    word,
			width:   f.le.measure(word, style),
			space:   f.takeSpace(style),
			style:   style,
			owners:  owners,
			opacity: opacity,
		})
		f.pendingSpace = true
	}
	if !unicode.IsSpace(rune(s[len(s)-1])) {
		f.pendingSpace = false
	}
}

func (le *LayoutEngine) measure(s string, style *css.Style) float64 {
	return le.measurer.Measure(s, style.GetFontSize(), style.GetFontWeight() == css.FontWeightBold, style.IsItalic())
}

// lineBuilder places finished lines and records their output.
type lineBuilder struct {
	le    *LayoutEngine
	block *Box
	x, y  float64
	width float64
}

func (lb *lineBuilder) place(items []*inlineItem, lineWidth float64, tall bool) {
	lineHeight, baseline := 0.0, 0.0
	if tall {
		above, below := lb.strut(lb.block.Style)
		for _, it := range items {
			switch it.kind {
			case itemWord:
				a, b := lb.strut(it.style)
				above, below = max(above, a), max(below, b)
			case itemAtomic:
				above = max(above, it.height)
			}
		}
		lineHeight, baseline = above+below, above
	}
	top := lb.y
	lb.block.maxLine = max(lb.block.maxLine, lineWidth)

	rtl := lb.block.Style.GetDirection() == "rtl"
	free := max(lb.width-lineWidth, 0)
	offset := 0.0 // distance from the start edge
	switch align := lb.block.Style.GetTextAlign(); {
	case align == css.TextAlignCenter:
		offset = free / 2
	case align == css.TextAlignRight && !rtl, align == css.TextAlignLeft && rtl,
		align == css.TextAlignEnd:
		offset = free
	}

	cursor := offset
	for _, it := range items {
		cursor += it.applied
		if rtl {
			it.x = lb.x + lb.width - cursor - it.width
		} else {
			it.x = lb.x + cursor
		}
		cursor += it.width
	}

	frags := make(map[*html.Node]Rect)
	var order []*html.Node
	var last *TextRun
	for _, it := range items {
		if it.kind == itemAbs {
			lb.le.deferBox(it.node, it.style, Position{X: it.x, Y: top})
			continue
		}
		r := Rect{X: it.x, Y: top, Width: it.width, Height: lineHeight}
		for _, o := range it.owners {
			if prev, ok := frags[o]; ok {
				frags[o] = prev.Union(r)
			} else {
				frags[o] = r
				order = append(order, o)
			}
		}
		switch it.kind {
		case itemWord:
			owner := innermost(it.owners)
			if last != nil && !rtl && it.applied > 0 && last.Node == owner && last.sameFace(it) {
				last.Text += " " + it.text
				last.Width = it.x + it.width - last.X
				continue
			}
			lb.block.Runs = append(lb.block.Runs, TextRun{
				Text:     it.text,
				X:        it.x,
				Baseline: top + baseline,
				Width:    it.width,
				Size:     it.style.GetFontSize(),
				Bold:     it.style.GetFontWeight() == css.FontWeightBold,
				Italic:   it.style.IsItalic(),
				Color:    it.style.GetColor(),
				Opacity:  it.opacity,
				Node:     owner,
			})
			last = &lb.block.Runs[len(lb.block.Runs)-1]
		case itemAtomic:
			box := &Box{
				Node: it.node, Style: it.style, Parent: lb.block,
				X: it.x, Y: top + baseline - it.height, Width: it.width, Height: it.height,
				Position: css.PositionStatic, Opacity: it.opacity,
			}
			box.ImagePath, _ = it.node.GetAttribute("src")
			lb.block.Children = append(lb.block.Children, box)
			lb.le.tree.boxes[it.node] = box
			last = nil
		}
	}
	for _, o := range order {
		if _, isBox := lb.le.tree.boxes[o]; !isBox {
			lb.le.tree.addRect(o, frags[o])
		}
	}
	lb.y += lineHeight
}

func (r *TextRun) sameFace(it *inlineItem) bool {
	return r.Size == it.style.GetFontSize() &&
		r.Bold == (it.style.GetFontWeight() == css.FontWeightBold) &&
		r.Italic == it.style.IsItalic() &&
		r.Color == it.style.GetColor() &&
		r.Opacity == it.opacity
}

// strut returns the space above and below the baseline a style's line
// height reserves, splitting the leading evenly.
func (lb *lineBuilder) strut(style *css.Style) (above, below float64) {
	size := style.GetFontSize()
	ascent, descent := lb.le.measurer.Metrics(size, style.GetFontWeight() == css.FontWeightBold, style.IsItalic())
	lh := style.GetLineHeight()
	halfLeading := (lh - ascent - descent) / 2
	return halfLeading + ascent, lh - halfLeading - ascent
}

func innermost(owners []*html.Node) *html.Node {
	if len(owners) == 0 {
		return nil
	}
	return owners[len(owners)-1]
}
