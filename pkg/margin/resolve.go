package margin

import (
	"marginalia/pkg/css"
	"marginalia/pkg/html"
)

// Selectors names the markup the margin pass looks for. Container entries
// are CSS selectors tried in order; the rest are class names.
type Selectors struct {
	Container  []string
	Trigger    string
	Note       string
	Positioned string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Container:  []string{".e-content.post", "article.post"},
		Trigger:    "margin-trigger",
		Note:       "margin-note",
		Positioned: "positioned",
	}
}

// Resolution is the outcome of Resolve. Container is nil when no container
// matched, in which case Candidates is empty.
type Resolution struct {
	Container  *html.Node
	Candidates []Candidate
	Selectors  Selectors
}

// Resolve finds the container and pairs every note inside it with its
// trigger, in document order.
func Resolve(root *html.Node, sel Selectors) Resolution {
	res := Resolution{Selectors: sel}
	res.Container = FindContainer(root, sel)
	if res.Container == nil {
		return res
	}
	for _, note := range res.Container.ElementsByClass(sel.Note) {
		res.Candidates = append(res.Candidates, Candidate{
			Trigger: FindTrigger(note, sel),
			Note:    note,
		})
	}
	return res
}

// FindContainer returns the first element matching the earliest container
// selector that matches anything. Invalid selectors are skipped.
func FindContainer(root *html.Node, sel Selectors) *html.Node {
	for _, raw := range sel.Container {
		list, err := css.ParseSelectorList(raw)
		if err != nil {
			continue
		}
		if n := css.QuerySelector(root, list); n != nil {
			return n
		}
	}
	return nil
}

// FindTrigger walks back from note over text, other notes and unrelated
// elements to the nearest trigger. Consecutive notes share that trigger.
func FindTrigger(note *html.Node, sel Selectors) *html.Node {
	parent := note.Parent
	if parent == nil {
		return nil
	}
	i := note.IndexInParent()
	for i--; i >= 0; i-- {
		s := parent.Children[i]
		if s.Type == html.ElementNode && s.HasClass(sel.Trigger) {
			return s
		}
	}
	return nil
}
