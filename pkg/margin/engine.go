// Package margin places margin notes beside the trigger text they annotate.
//
// A pass has three steps. Resolve finds the container and pairs every note
// with its trigger. Engine.Layout turns trigger positions into note
// placements, pushing a note down whenever it would overlap the one above
// it. Apply writes the placements back onto the notes' inline styles.
//
// Layout is pure: it reads geometry through the Geometry interface and never
// touches the DOM, so identical geometry always yields identical placements.
package margin

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"marginalia/pkg/html"
)

const (
	DefaultSpacing = 20.0
	DefaultWidth   = 250.0
	DefaultRight   = -280.0
)

// Text alignment values accepted by Options.TextAlign.
const (
	AlignAuto  = "auto"
	AlignLeft  = "left"
	AlignRight = "right"
)

// Options holds the per-pass constants. Zero values are not substituted:
// use DefaultOptions and override fields.
type Options struct {
	Spacing   float64 // minimum gap between consecutive notes
	Width     float64 // note width
	Right     float64 // note offset from the container's right edge
	Adjust    float64 // constant added to every trigger top
	TextAlign string  // auto, left or right
}

func DefaultOptions() Options {
	return Options{
		Spacing:   DefaultSpacing,
		Width:     DefaultWidth,
		Right:     DefaultRight,
		TextAlign: AlignAuto,
	}
}

// Candidate pairs a note with its trigger. Trigger is nil when no trigger
// could be resolved.
type Candidate struct {
	Trigger *html.Node
	Note    *html.Node
}

// Placement is the computed position of one note, relative to the
// container's padding edge.
type Placement struct {
	Trigger *html.Node
	Note    *html.Node
	Top     float64
	Right   float64
	Width   float64

	Desired float64 // trigger top plus adjust
	Height  float64 // measured note height
	Clamped bool    // Top was pushed below Desired
}

// Geometry answers the two layout questions the engine needs.
type Geometry interface {
	// TriggerTop returns the top of the trigger's first line box relative to
	// the container.
	TriggerTop(trigger *html.Node) (float64, bool)
	// NoteHeight returns the rendered height of note at the given width.
	NoteHeight(note *html.Node, width float64) (float64, bool)
}

type Engine struct {
	opts   Options
	logger *log.Logger
}

// NewEngine returns an engine using logger for diagnostics. A nil logger
// discards them.
func NewEngine(opts Options, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{opts: opts, logger: logger}
}

func (e *Engine) Options() Options { return e.opts }

// Layout computes placements for cands in order. Candidates without a
// trigger, or whose trigger has no geometry, are skipped with a warning. The
// returned slice holds only placed notes.
func (e *Engine) Layout(cands []Candidate, geom Geometry) []Placement {
	placements := make([]Placement, 0, len(cands))
	var cursor float64
	haveCursor := false

	for i, c := range cands {
		if c.Trigger == nil {
			e.logger.Warn("margin note has no trigger", "index", i, "note", snippet(c.Note))
			continue
		}
		top, ok := geom.TriggerTop(c.Trigger)
		if !ok {
			e.logger.Warn("trigger geometry unavailable", "index", i, "trigger", snippet(c.Trigger))
			continue
		}

		desired := top + e.opts.Adjust
		p := Placement{
			Trigger: c.Trigger,
			Note:    c.Note,
			Top:     desired,
			Right:   e.opts.Right,
			Width:   e.opts.Width,
			Desired: desired,
		}
		if haveCursor && desired < cursor+e.opts.Spacing {
			p.Top = cursor + e.opts.Spacing
			p.Clamped = true
		}

		h, ok := geom.NoteHeight(c.Note, e.opts.Width)
		if !ok {
			e.logger.Warn("note height unavailable, using 0", "index", i, "note", snippet(c.Note))
			h = 0
		}
		p.Height = h
		cursor = p.Top + h
		haveCursor = true

		e.logger.Debug("placed margin note", "index", i, "desired", desired, "top", p.Top, "height", h)
		placements = append(placements, p)
	}
	return placements
}

// snippet shortens a node's text for log output.
func snippet(n *html.Node) string {
	if n == nil {
		return ""
	}
	s := strings.Join(strings.Fields(n.TextContent()), " ")
	if r := []rune(s); len(r) > 40 {
		return string(r[:40]) + "..."
	}
	return s
}
