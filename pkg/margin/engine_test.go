package margin

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"marginalia/pkg/html"
)

// fakeGeometry answers from fixed tables; nodes missing from a table are
// unresolvable.
type fakeGeometry struct {
	tops    map[*html.Node]float64
	heights map[*html.Node]float64
}

func (g fakeGeometry) TriggerTop(n *html.Node) (float64, bool) {
	v, ok := g.tops[n]
	return v, ok
}

func (g fakeGeometry) NoteHeight(n *html.Node, _ float64) (float64, bool) {
	v, ok := g.heights[n]
	return v, ok
}

// pairs builds n trigger/note candidates with the given trigger tops and a
// uniform note height.
func pairs(tops []float64, height float64) ([]Candidate, fakeGeometry) {
	geom := fakeGeometry{tops: map[*html.Node]float64{}, heights: map[*html.Node]float64{}}
	var cands []Candidate
	for _, top := range tops {
		c := Candidate{Trigger: html.NewElement("span"), Note: html.NewElement("span")}
		geom.tops[c.Trigger] = top
		geom.heights[c.Note] = height
		cands = append(cands, c)
	}
	return cands, geom
}

func tops(ps []Placement) []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Top
	}
	return out
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLayoutPushesCollidingNotes(t *testing.T) {
	cands, geom := pairs([]float64{100, 110, 115}, 40)
	got := NewEngine(DefaultOptions(), nil).Layout(cands, geom)

	want := []float64{100, 160, 220}
	if !equalFloats(tops(got), want) {
		t.Fatalf("tops = %v, want %v", tops(got), want)
	}
	if got[0].Clamped || !got[1].Clamped || !got[2].Clamped {
		t.Errorf("clamped = %v %v %v, want false true true", got[0].Clamped, got[1].Clamped, got[2].Clamped)
	}
	if got[1].Desired != 110 || got[1].Height != 40 {
		t.Errorf("second placement diagnostics = %+v", got[1])
	}
	for _, p := range got {
		if p.Right != DefaultRight || p.Width != DefaultWidth {
			t.Errorf("placement right/width = %v/%v", p.Right, p.Width)
		}
	}
}

func TestLayoutKeepsWellSpacedNotes(t *testing.T) {
	cands, geom := pairs([]float64{0, 100, 400}, 50)
	got := NewEngine(DefaultOptions(), nil).Layout(cands, geom)

	want := []float64{0, 100, 400}
	if !equalFloats(tops(got), want) {
		t.Fatalf("tops = %v, want %v", tops(got), want)
	}
	for i, p := range got {
		if p.Clamped {
			t.Errorf("placement %d clamped", i)
		}
	}
}

func TestLayoutInvariants(t *testing.T) {
	tests := []struct {
		name    string
		tops    []float64
		height  float64
		spacing float64
	}{
		{"dense", []float64{10, 10, 10, 10, 10}, 30, 20},
		{"descending", []float64{500, 400, 300, 200}, 25, 10},
		{"mixed", []float64{0, 300, 310, 900, 905, 2000}, 120, 20},
		{"zero spacing", []float64{5, 6, 7}, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Spacing = tt.spacing
			cands, geom := pairs(tt.tops, tt.height)
			got := NewEngine(opts, nil).Layout(cands, geom)
			if len(got) != len(tt.tops) {
				t.Fatalf("placed %d notes, want %d", len(got), len(tt.tops))
			}
			for i, p := range got {
				if p.Top < p.Desired {
					t.Errorf("note %d above its trigger: top %v desired %v", i, p.Top, p.Desired)
				}
				if i == 0 {
					if p.Top != p.Desired {
						t.Errorf("first note moved: top %v desired %v", p.Top, p.Desired)
					}
					continue
				}
				prev := got[i-1]
				if p.Top-(prev.Top+prev.Height) < tt.spacing {
					t.Errorf("notes %d and %d closer than %v", i-1, i, tt.spacing)
				}
				if p.Top < prev.Top {
					t.Errorf("note %d above note %d", i, i-1)
				}
			}
		})
	}
}

func TestLayoutDeterministic(t *testing.T) {
	cands, geom := pairs([]float64{40, 45, 300, 301}, 33)
	e := NewEngine(DefaultOptions(), nil)
	first := e.Layout(cands, geom)
	second := e.Layout(cands, geom)
	if !equalFloats(tops(first), tops(second)) {
		t.Fatalf("passes differ: %v vs %v", tops(first), tops(second))
	}
}

func TestLayoutAdjust(t *testing.T) {
	opts := DefaultOptions()
	opts.Adjust = -4
	cands, geom := pairs([]float64{100}, 10)
	got := NewEngine(opts, nil).Layout(cands, geom)
	if got[0].Top != 96 || got[0].Desired != 96 {
		t.Fatalf("adjusted placement = %+v", got[0])
	}
}

func TestLayoutSkipsUnresolved(t *testing.T) {
	cands, geom := pairs([]float64{100, 200}, 40)
	orphan := Candidate{Note: html.NewElement("span")}
	unmeasured := Candidate{Trigger: html.NewElement("span"), Note: html.NewElement("span")}
	cands = []Candidate{cands[0], orphan, unmeasured, cands[1]}

	var buf bytes.Buffer
	logger := log.New(&buf)
	got := NewEngine(DefaultOptions(), logger).Layout(cands, geom)

	if len(got) != 2 {
		t.Fatalf("placed %d notes, want 2", len(got))
	}
	if !equalFloats(tops(got), []float64{100, 200}) {
		t.Errorf("tops = %v", tops(got))
	}
	out := buf.String()
	if !strings.Contains(out, "no trigger") || !strings.Contains(out, "geometry unavailable") {
		t.Errorf("missing warnings in log output:\n%s", out)
	}
}

func TestLayoutMissingHeightCountsAsZero(t *testing.T) {
	cands, geom := pairs([]float64{100, 105}, 40)
	delete(geom.heights, cands[0].Note)
	got := NewEngine(DefaultOptions(), nil).Layout(cands, geom)
	if len(got) != 2 {
		t.Fatalf("placed %d notes, want 2", len(got))
	}
	if got[0].Height != 0 || got[1].Top != 120 {
		t.Errorf("placements = %+v", got)
	}
}

func TestLayoutNoCandidates(t *testing.T) {
	got := NewEngine(DefaultOptions(), nil).Layout(nil, fakeGeometry{})
	if len(got) != 0 {
		t.Fatalf("got %d placements", len(got))
	}
}
