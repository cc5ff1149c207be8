package css

import (
	"fmt"
	"strings"

	"marginalia/pkg/html"
)

type Combinator int

const (
	DescendantCombinator      Combinator = iota // "a b"
	ChildCombinator                             // "a > b"
	AdjacentSiblingCombinator                   // "a + b"
	GeneralSiblingCombinator                    // "a ~ b"
)

// AttributeSelector is [name] or [name=value].
type AttributeSelector struct {
	Name     string
	Value    string
	HasValue bool
}

// SelectorPart is one compound selector, e.g. div.e-content.post#main.
type SelectorPart struct {
	Tag        string // "" or "*" matches any element
	ID         string
	Classes    []string
	Attributes []AttributeSelector
}

// Selector is a complex selector: compound parts joined by combinators.
// Combinators[i] sits between Parts[i] and Parts[i+1].
type Selector struct {
	Raw         string
	Parts       []SelectorPart
	Combinators []Combinator
	Specificity int
}

// ParseSelector parses a single complex selector (no commas).
func ParseSelector(raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	sel := Selector{Raw: raw}
	if raw == "" {
		return sel, fmt.Errorf("empty selector")
	}

	pending := DescendantCombinator
	tokens := tokenizeSelector(raw)
	for i, tok := range tokens {
		switch tok {
		case ">", "+", "~":
			if len(sel.Parts) == 0 || i == len(tokens)-1 {
				return sel, fmt.Errorf("dangling combinator in %q", raw)
			}
			pending = map[string]Combinator{">": ChildCombinator, "+": AdjacentSiblingCombinator, "~": GeneralSiblingCombinator}[tok]
			continue
		}
		part, err := parseCompound(tok)
		if err != nil {
			return sel, fmt.Errorf("selector %q: %w", raw, err)
		}
		if len(sel.Parts) > 0 {
			sel.Combinators = append(sel.Combinators, pending)
		}
		sel.Parts = append(sel.Parts, part)
		pending = DescendantCombinator
	}
	for _, p := range sel.Parts {
		if p.ID != "" {
			sel.Specificity += 100
		}
		sel.Specificity += 10 * (len(p.Classes) + len(p.Attributes))
		if p.Tag != "" && p.Tag != "*" {
			sel.Specificity++
		}
	}
	return sel, nil
}

// ParseSelectorList parses "a, b.c" into its member selectors.
func ParseSelectorList(raw string) ([]Selector, error) {
	var out []Selector
	for _, s := range strings.Split(raw, ",") {
		sel, err := ParseSelector(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

// tokenizeSelector splits on whitespace and combinators, keeping bracketed
// attribute selectors intact.
func tokenizeSelector(s string) []string {
	var tokens []string
	var cur strings.Builder
	depth := 0
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '[':
			depth++
			cur.WriteRune(r)
		case r == ']':
			depth--
			cur.WriteRune(r)
		case depth > 0:
			cur.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		case r == '>' || r == '+' || r == '~':
			flush()
			tokens = append(tokens, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func parseCompound(s string) (SelectorPart, error) {
	var part SelectorPart
	i := 0
	readName := func() string {
		start := i
		for i < len(s) && isNameByte(s[i]) {
			i++
		}
		return s[start:i]
	}
	if i < len(s) && s[i] == '*' {
		part.Tag = "*"
		i++
	} else {
		part.Tag = strings.ToLower(readName())
	}
	for i < len(s) {
		switch s[i] {
		case '.':
			i++
			name := readName()
			if name == "" {
				return part, fmt.Errorf("empty class name")
			}
			part.Classes = append(part.Classes, name)
		case '#':
			i++
			part.ID = readName()
			if part.ID == "" {
				return part, fmt.Errorf("empty id")
			}
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return part, fmt.Errorf("unterminated attribute selector")
			}
			body := s[i+1 : i+end]
			i += end + 1
			name, value, hasValue := strings.Cut(body, "=")
			part.Attributes = append(part.Attributes, AttributeSelector{
				Name:     strings.ToLower(strings.TrimSpace(name)),
				Value:    strings.Trim(strings.TrimSpace(value), `"'`),
				HasValue: hasValue,
			})
		default:
			return part, fmt.Errorf("unsupported selector syntax %q", s[i:])
		}
	}
	return part, nil
}

func isNameByte(c byte) bool {
	return c == '-' || c == '_' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// MatchesSelector returns true if the node matches the complex selector.
func MatchesSelector(node *html.Node, selector Selector) bool {
	if !node.IsElement() || len(selector.Parts) == 0 {
		return false
	}
	// Start matching from the rightmost part (the target element)
	return matchesFrom(node, selector, len(selector.Parts)-1)
}

func matchesFrom(node *html.Node, selector Selector, partIndex int) bool {
	if !matchesSelectorPart(node, selector.Parts[partIndex]) {
		return false
	}
	if partIndex == 0 {
		return true
	}
	prev := partIndex - 1
	switch selector.Combinators[prev] {
	case DescendantCombinator:
		for a := node.Parent; a.IsElement(); a = a.Parent {
			if matchesFrom(a, selector, prev) {
				return true
			}
		}
	case ChildCombinator:
		if node.Parent.IsElement() {
			return matchesFrom(node.Parent, selector, prev)
		}
	case AdjacentSiblingCombinator:
		if s := node.PreviousElementSibling(); s != nil {
			return matchesFrom(s, selector, prev)
		}
	case GeneralSiblingCombinator:
		for s := node.PreviousElementSibling(); s != nil; s = s.PreviousElementSibling() {
			if matchesFrom(s, selector, prev) {
				return true
			}
		}
	}
	return false
}

func matchesSelectorPart(node *html.Node, part SelectorPart) bool {
	if part.Tag != "" && part.Tag != "*" && part.Tag != node.TagName {
		return false
	}
	if part.ID != "" {
		if id, _ := node.GetAttribute("id"); id != part.ID {
			return false
		}
	}
	for _, c := range part.Classes {
		if !node.HasClass(c) {
			return false
		}
	}
	for _, a := range part.Attributes {
		v, ok := node.GetAttribute(a.Name)
		if !ok || (a.HasValue && v != a.Value) {
			return false
		}
	}
	return true
}

// QuerySelectorAll returns descendants of root matching any selector in the
// list, in document order.
func QuerySelectorAll(root *html.Node, list []Selector) []*html.Node {
	var out []*html.Node
	for _, child := range root.Children {
		child.Walk(func(n *html.Node) bool {
			for _, sel := range list {
				if MatchesSelector(n, sel) {
					out = append(out, n)
					break
				}
			}
			return true
		})
	}
	return out
}

// QuerySelector returns the first match or nil.
func QuerySelector(root *html.Node, list []Selector) *html.Node {
	var found *html.Node
	for _, child := range root.Children {
		if !child.Walk(func(n *html.Node) bool {
			for _, sel := range list {
				if MatchesSelector(n, sel) {
					found = n
					return false
				}
			}
			return true
		}) {
			break
		}
	}
	return found
}
