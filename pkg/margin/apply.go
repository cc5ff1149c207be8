package margin

import (
	"math"
	"strconv"

	"marginalia/pkg/css"
	"marginalia/pkg/html"
	"marginalia/pkg/text"
)

// ownedProperties are the inline declarations Apply writes and Clear removes.
var ownedProperties = []string{"position", "top", "right", "width", "text-align"}

// AuthoredAttr holds the author's own values for owned properties while a
// note is positioned, so Clear can put them back.
const AuthoredAttr = "data-margin-authored"

// Apply writes placements onto their notes and marks them positioned. The
// container becomes the positioning context. Applying the same placements
// twice leaves the DOM unchanged.
func Apply(res Resolution, placements []Placement, opts Options) {
	if res.Container == nil {
		return
	}
	setStyle(res.Container, func(d css.Declarations) css.Declarations {
		return d.Set("position", "relative")
	})

	for _, p := range placements {
		align := noteAlign(p.Note, opts.TextAlign)
		if !p.Note.HasClass(res.Selectors.Positioned) {
			saveAuthored(p.Note)
		}
		setStyle(p.Note, func(d css.Declarations) css.Declarations {
			d = d.Set("position", "absolute")
			d = d.Set("top", px(p.Top))
			d = d.Set("right", px(p.Right))
			d = d.Set("width", px(p.Width))
			return d.Set("text-align", align)
		})
		p.Note.AddClass(res.Selectors.Positioned)
	}
}

// Clear undoes Apply for every positioned note under root, restoring the
// inline styles the author wrote.
func Clear(root *html.Node, sel Selectors) {
	for _, note := range root.ElementsByClass(sel.Positioned) {
		if !note.HasClass(sel.Note) {
			continue
		}
		raw, _ := note.GetAttribute(AuthoredAttr)
		authored := css.ParseDeclarations(raw)
		setStyle(note, func(d css.Declarations) css.Declarations {
			for _, prop := range ownedProperties {
				if v, ok := authored.Get(prop); ok {
					d = d.Set(prop, v)
				} else {
					d = d.Remove(prop)
				}
			}
			return d
		})
		note.RemoveAttribute(AuthoredAttr)
		note.RemoveClass(sel.Positioned)
	}
}

// saveAuthored records the owned properties present in n's style attribute.
func saveAuthored(n *html.Node) {
	raw, _ := n.GetAttribute("style")
	current := css.ParseDeclarations(raw)
	var saved css.Declarations
	for _, prop := range ownedProperties {
		if v, ok := current.Get(prop); ok {
			saved = saved.Set(prop, v)
		}
	}
	if len(saved) == 0 {
		n.RemoveAttribute(AuthoredAttr)
		return
	}
	n.SetAttribute(AuthoredAttr, saved.String())
}

func noteAlign(note *html.Node, mode string) string {
	switch mode {
	case AlignLeft, AlignRight:
		return mode
	}
	if text.FirstStrong(note.TextContent()) == text.RightToLeft {
		return AlignRight
	}
	return AlignLeft
}

// setStyle rewrites n's style attribute through fn, dropping the attribute
// when no declarations remain.
func setStyle(n *html.Node, fn func(css.Declarations) css.Declarations) {
	raw, _ := n.GetAttribute("style")
	d := fn(css.ParseDeclarations(raw))
	if len(d) == 0 {
		n.RemoveAttribute("style")
		return
	}
	n.SetAttribute("style", d.String())
}

func px(v float64) string {
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
