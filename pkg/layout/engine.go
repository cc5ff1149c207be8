package layout

import (
	"marginalia/pkg/css"
	"marginalia/pkg/html"
	"marginalia/pkg/images"
	"marginalia/pkg/text"
)

// LayoutEngine lays out a document for one viewport. It is not safe for
// concurrent use; callers serialise passes.
type LayoutEngine struct {
	viewport struct {
		width  float64
		height float64
	}
	stylesheets []*css.Stylesheet
	measurer    *text.Measurer
	loader      *images.Loader
	styles      map[*html.Node]*css.Style

	tree     *Tree
	deferred []*deferredBox // absolutely positioned boxes awaiting placement
}

func NewLayoutEngine(viewportWidth, viewportHeight float64) *LayoutEngine {
	le := &LayoutEngine{measurer: text.Default()}
	le.viewport.width = viewportWidth
	le.viewport.height = viewportHeight
	return le
}

func (le *LayoutEngine) SetViewport(width, height float64) {
	le.viewport.width = width
	le.viewport.height = height
}

// SetStylesheets replaces the sheets used by Layout. Without a call, Layout
// parses the document's own stylesheets.
func (le *LayoutEngine) SetStylesheets(sheets []*css.Stylesheet) {
	le.stylesheets = sheets
}

func (le *LayoutEngine) SetMeasurer(m *text.Measurer) {
	le.measurer = m
}

// SetImageLoader lets layout size images from the loader's cache. Images
// without a cached size and without explicit dimensions lay out as 0x0.
func (le *LayoutEngine) SetImageLoader(l *images.Loader) {
	le.loader = l
}

// Layout styles and lays out doc.
func (le *LayoutEngine) Layout(doc *html.Document) *Tree {
	sheets := le.stylesheets
	if sheets == nil {
		sheets = css.ParseStylesheets(doc.Stylesheets)
	}
	le.styles = css.ApplyStyles(doc.Root, sheets, le.viewport.width, le.viewport.height)
	le.tree = newTree(le.viewport.width, le.styles)
	le.deferred = nil

	root := &Box{Node: doc.Root, Style: css.NewStyle(), Width: le.viewport.width, Opacity: 1}
	le.layoutChildren(root, doc.Root.Children)
	le.placeDeferred(root)
	le.tree.Boxes = root.Children
	for _, b := range root.Children {
		b.Parent = nil
	}

	le.tree.Height = le.viewport.height
	le.tree.Walk(func(b *Box) {
		le.tree.Height = max(le.tree.Height, b.BorderRect().Bottom()+b.Margin.Bottom)
	})
	tree := le.tree
	le.tree = nil
	return tree
}

// MeasureHeight lays node out on its own as a static block whose content
// width is width and returns its border-box height. It reads the styles of
// the last Layout call; ok is false if node was not styled by it or does not
// display.
func (le *LayoutEngine) MeasureHeight(node *html.Node, width float64) (float64, bool) {
	style, ok := le.styles[node]
	if !ok || style.GetDisplay() == css.DisplayNone {
		return 0, false
	}
	savedTree, savedDeferred := le.tree, le.deferred
	defer func() { le.tree, le.deferred = savedTree, savedDeferred }()

	le.tree = newTree(width, le.styles)
	le.deferred = nil
	holder := &Box{Node: node.Parent, Style: css.NewStyle(), Width: width, Opacity: 1}
	box := le.layoutBlock(holder, node, style, 0, 0, width, &width)
	return box.BorderRect().Height, true
}

func (le *LayoutEngine) styleOf(node *html.Node) *css.Style {
	if s, ok := le.styles[node]; ok {
		return s
	}
	return css.NewStyle()
}
