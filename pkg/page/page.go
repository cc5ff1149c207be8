// Package page runs the margin note pipeline over one document.
//
// A Page owns the document, its stylesheets and the latest layout. Relayout
// performs a full pass: clear old placements, lay out, resolve notes, compute
// placements against the layout, apply them, and lay out again so the tree
// shows the notes where they now are. A Page satisfies schedule.Target.
package page

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"marginalia/pkg/css"
	"marginalia/pkg/html"
	"marginalia/pkg/images"
	"marginalia/pkg/layout"
	"marginalia/pkg/margin"
	"marginalia/pkg/resource"
	"marginalia/pkg/schedule"
	"marginalia/pkg/text"
)

type Options struct {
	Width      float64
	Height     float64
	Breakpoint float64
	Margin     margin.Options
	Selectors  margin.Selectors
	Measurer   *text.Measurer
	Fetcher    resource.Fetcher // sub-resources: stylesheets and images
	Logger     *log.Logger
}

func DefaultOptions() Options {
	return Options{
		Width:      1280,
		Height:     800,
		Breakpoint: schedule.DefaultBreakpoint,
		Margin:     margin.DefaultOptions(),
		Selectors:  margin.DefaultSelectors(),
	}
}

type Page struct {
	mu     sync.Mutex
	doc    *html.Document
	opts   Options
	logger *log.Logger

	sheets     []*css.Stylesheet
	layout     *layout.LayoutEngine
	margin     *margin.Engine
	loader     *images.Loader
	tree       *layout.Tree
	placements []margin.Placement

	onRelayout func()
	// dirty records relayout requests made by running scripts.
	dirty bool
}

// New prepares doc for layout at the options' viewport.
func New(doc *html.Document, opts Options) (*Page, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	base, err := DefaultStylesheet(opts.Selectors, opts.Margin, opts.Breakpoint)
	if err != nil {
		return nil, err
	}
	defaults, err := css.ParseStylesheet(base)
	if err != nil {
		return nil, fmt.Errorf("parse default stylesheet: %w", err)
	}

	p := &Page{
		doc:    doc,
		opts:   opts,
		logger: logger,
		sheets: append([]*css.Stylesheet{defaults}, css.ParseStylesheets(doc.Stylesheets)...),
		layout: layout.NewLayoutEngine(opts.Width, opts.Height),
		margin: margin.NewEngine(opts.Margin, logger),
		loader: images.NewLoader(opts.Fetcher),
	}
	p.layout.SetStylesheets(p.sheets)
	p.layout.SetImageLoader(p.loader)
	if opts.Measurer != nil {
		p.layout.SetMeasurer(opts.Measurer)
	}
	p.tree = p.layout.Layout(doc)
	return p, nil
}

// Load fetches and parses the document at uri. A nil fetcher reads uri
// directly and resolves sub-resources against its location.
func Load(ctx context.Context, fetcher resource.Fetcher, uri string, opts Options) (*Page, error) {
	docFetcher := fetcher
	if fetcher == nil {
		docFetcher = resource.NewFetcher("")
		fetcher = resource.ForDocument(uri)
	}
	body, _, err := docFetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", uri, err)
	}
	doc, err := html.ParseWithFetcher(string(body), func(href string) (string, error) {
		sheet, _, err := fetcher.Fetch(ctx, href)
		return string(sheet), err
	})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", uri, err)
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetcher
	}
	p, err := New(doc, opts)
	if err != nil {
		return nil, err
	}
	for _, href := range doc.Links {
		p.logger.Warn("stylesheet not loaded", "href", href)
	}
	return p, nil
}

// OnRelayoutRequest sets the callback used when scripts ask for a re-layout,
// normally Scheduler.ContentChanged.
func (p *Page) OnRelayoutRequest(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRelayout = fn
}

// Relayout runs a complete margin pass. A page without a container or
// without notes is left in normal flow and nil is returned.
func (p *Page) Relayout() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.relayoutLocked()
}

func (p *Page) relayoutLocked() error {
	start := time.Now()
	margin.Clear(p.doc.Root, p.opts.Selectors)
	p.placements = nil
	p.tree = p.layout.Layout(p.doc)

	res := margin.Resolve(p.doc.Root, p.opts.Selectors)
	if res.Container == nil || len(res.Candidates) == 0 {
		p.logger.Debug("no margin notes to place", "container", res.Container != nil)
		return nil
	}
	origin, ok := p.tree.PaddingOrigin(res.Container)
	if !ok {
		p.logger.Warn("margin note container generated no box")
		return nil
	}

	geom := treeGeometry{tree: p.tree, engine: p.layout, origin: origin}
	placements := p.margin.Layout(res.Candidates, geom)
	margin.Apply(res, placements, p.opts.Margin)
	p.placements = placements
	p.tree = p.layout.Layout(p.doc)

	p.logger.Debug("relayout", "notes", len(res.Candidates), "placed", len(placements), "elapsed", time.Since(start))
	return nil
}

// Clear removes every placement and lays the page out again.
func (p *Page) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	margin.Clear(p.doc.Root, p.opts.Selectors)
	p.placements = nil
	p.tree = p.layout.Layout(p.doc)
	return nil
}

// SetViewport changes the viewport and refreshes the layout. Placements are
// not recomputed; that is the scheduler's decision.
func (p *Page) SetViewport(width, height float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts.Width, p.opts.Height = width, height
	p.layout.SetViewport(width, height)
	p.tree = p.layout.Layout(p.doc)
}

func (p *Page) Viewport() (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts.Width, p.opts.Height
}

// Placements returns the placements of the last pass.
func (p *Page) Placements() []margin.Placement {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]margin.Placement(nil), p.placements...)
}

func (p *Page) Tree() *layout.Tree {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tree
}

// Document returns the page's document. Callers mutating it must follow up
// with Relayout.
func (p *Page) Document() *html.Document {
	return p.doc
}

func (p *Page) Images() *images.Loader {
	return p.loader
}

func (p *Page) Selectors() margin.Selectors {
	return p.opts.Selectors
}

// HTML serializes the document with the current placements applied.
func (p *Page) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Root.Serialize()
}

// treeGeometry answers margin geometry queries from a layout tree.
type treeGeometry struct {
	tree   *layout.Tree
	engine *layout.LayoutEngine
	origin layout.Position
}

func (g treeGeometry) TriggerTop(trigger *html.Node) (float64, bool) {
	r, ok := g.tree.Rect(trigger)
	if !ok {
		return 0, false
	}
	return r.Y - g.origin.Y, true
}

func (g treeGeometry) NoteHeight(note *html.Node, width float64) (float64, bool) {
	return g.engine.MeasureHeight(note, width)
}

// Measurer returns the text measurer used for layout.
func (p *Page) Measurer() *text.Measurer {
	if p.opts.Measurer != nil {
		return p.opts.Measurer
	}
	return text.Default()
}
