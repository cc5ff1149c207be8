package css

import (
	"fmt"
	"sort"
	"strings"

	"marginalia/pkg/html"
)

// inheritedProperties pass from parent to child unless the child sets them.
var inheritedProperties = []string{
	"color", "font-family", "font-size", "font-style", "font-weight",
	"line-height", "text-align", "direction", "white-space", "visibility",
}

var blockTags = map[string]bool{
	"html": true, "body": true, "address": true, "article": true, "aside": true,
	"blockquote": true, "details": true, "div": true, "dl": true, "dd": true,
	"dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "ul": true, "thead": true, "tbody": true, "tfoot": true,
	"tr": true, "td": true, "th": true, "caption": true,
}

var hiddenTags = map[string]bool{
	"head": true, "script": true, "style": true, "title": true, "meta": true,
	"link": true, "template": true, "noscript": true,
}

var headingSizes = map[string]string{
	"h1": "2em", "h2": "1.5em", "h3": "1.17em", "h4": "1em", "h5": "0.83em", "h6": "0.67em",
}

// applyUserAgentStyles applies default browser styles based on element type
func applyUserAgentStyles(node *html.Node, style *Style) {
	tag := node.TagName
	switch {
	case hiddenTags[tag]:
		style.Set("display", "none")
		return
	case blockTags[tag]:
		style.Set("display", "block")
	}

	switch tag {
	case "body":
		expandBoxProperty(style, "margin", "8px", "")
	case "p", "dl":
		style.Set("margin-top", "1em")
		style.Set("margin-bottom", "1em")
	case "blockquote", "figure":
		expandBoxProperty(style, "margin", "1em 40px", "")
	case "ul", "ol":
		style.Set("margin-top", "1em")
		style.Set("margin-bottom", "1em")
		style.Set("padding-left", "40px")
	case "b", "strong", "th":
		style.Set("font-weight", "bold")
	case "em", "i", "cite":
		style.Set("font-style", "italic")
	case "a":
		style.Set("color", "#0645ad")
	case "hr":
		expandBorderProperty(style, "1px solid gray")
		expandBoxProperty(style, "margin", "0.5em 0", "")
	case "h1", "h2", "h3", "h4", "h5", "h6":
		style.Set("font-size", headingSizes[tag])
		style.Set("font-weight", "bold")
		style.Set("margin-top", "0.67em")
		style.Set("margin-bottom", "0.67em")
	}
}

type matchedRule struct {
	rule  Rule
	sheet int
}

// ComputeStyle computes the final style for a node by applying the cascade.
// parent is the computed style of the parent element, or nil at the root.
func ComputeStyle(node *html.Node, stylesheets []*Stylesheet, viewportWidth, viewportHeight float64, parent *Style) *Style {
	finalStyle := NewStyle()
	if parent != nil {
		for _, prop := range inheritedProperties {
			if v, ok := parent.Get(prop); ok {
				finalStyle.Set(prop, v)
			}
		}
	}
	applyUserAgentStyles(node, finalStyle)

	matched := make([]matchedRule, 0)
	for i, sheet := range stylesheets {
		for _, rule := range sheet.Rules {
			if !EvaluateMediaQuery(rule.MediaQuery, viewportWidth, viewportHeight) {
				continue
			}
			if MatchesSelector(node, rule.Selector) {
				matched = append(matched, matchedRule{rule: rule, sheet: i})
			}
		}
	}
	// Lower specificity first; ties go to the later sheet, then the later rule.
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.rule.Selector.Specificity != b.rule.Selector.Specificity {
			return a.rule.Selector.Specificity < b.rule.Selector.Specificity
		}
		if a.sheet != b.sheet {
			return a.sheet < b.sheet
		}
		return a.rule.Order < b.rule.Order
	})
	for _, m := range matched {
		for property, value := range m.rule.Declarations {
			finalStyle.Set(property, value)
		}
	}

	// Inline styles have highest specificity
	if styleAttr, ok := node.GetAttribute("style"); ok {
		for property, value := range ParseInlineStyle(styleAttr).Properties {
			finalStyle.Set(property, value)
		}
	}

	resolveInherit(finalStyle, parent)
	resolveFontSize(finalStyle, parent)
	return finalStyle
}

func resolveInherit(style, parent *Style) {
	for prop, v := range style.Properties {
		if v != "inherit" {
			continue
		}
		if parent == nil {
			delete(style.Properties, prop)
			continue
		}
		if pv, ok := parent.Get(prop); ok {
			style.Set(prop, pv)
		} else {
			delete(style.Properties, prop)
		}
	}
}

// resolveFontSize rewrites font-size as pixels so em lengths on this element
// and its children resolve against a fixed value.
func resolveFontSize(style, parent *Style) {
	parentSize := RootFontSize
	if parent != nil {
		parentSize = parent.GetFontSize()
	}
	val, ok := style.Get("font-size")
	if !ok {
		return
	}
	px, ok := ResolveLength(val, parentSize)
	if p, isPct := ParsePercent(val); isPct {
		px, ok = p*parentSize, true
	}
	if !ok {
		switch strings.TrimSpace(val) {
		case "small":
			px, ok = 13, true
		case "medium":
			px, ok = 16, true
		case "large":
			px, ok = 18, true
		case "smaller":
			px, ok = parentSize*0.83, true
		case "larger":
			px, ok = parentSize*1.2, true
		}
	}
	if ok {
		style.Set("font-size", fmt.Sprintf("%gpx", px))
	}
}

// ApplyStyles computes styles for every element under root.
func ApplyStyles(root *html.Node, stylesheets []*Stylesheet, viewportWidth, viewportHeight float64) map[*html.Node]*Style {
	styles := make(map[*html.Node]*Style)
	applyStylesToNode(root, stylesheets, styles, viewportWidth, viewportHeight, nil)
	return styles
}

func applyStylesToNode(node *html.Node, stylesheets []*Stylesheet, styles map[*html.Node]*Style, viewportWidth, viewportHeight float64, parent *Style) {
	if node.IsElement() {
		style := ComputeStyle(node, stylesheets, viewportWidth, viewportHeight, parent)
		styles[node] = style
		parent = style
	}
	for _, child := range node.Children {
		if child.Type == html.ElementNode {
			applyStylesToNode(child, stylesheets, styles, viewportWidth, viewportHeight, parent)
		}
	}
}
