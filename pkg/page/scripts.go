package page

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"marginalia/pkg/css"
	"marginalia/pkg/html"
	"marginalia/pkg/js"
	"marginalia/pkg/layout"
	"marginalia/pkg/margin"
)

// RunScripts executes the document's scripts with the page as host and lays
// the page out again. Relayout requests made by scripts are collected: with a
// requester installed it is called once after the page is unlocked,
// otherwise a pass runs before RunScripts returns.
func (p *Page) RunScripts() error {
	p.mu.Lock()
	if len(p.doc.Scripts) == 0 {
		p.mu.Unlock()
		return nil
	}
	p.dirty = false
	err := js.New(scriptHost{p}, p.logger).Execute(p.doc)
	if err != nil {
		err = fmt.Errorf("run scripts: %w", err)
	}
	requested, requester := p.dirty, p.onRelayout
	p.dirty = false
	if requested && requester == nil {
		err = errors.Join(err, p.relayoutLocked())
	} else {
		p.tree = p.layout.Layout(p.doc)
	}
	p.mu.Unlock()

	if requested && requester != nil {
		requester()
	}
	return err
}

// scriptHost exposes the page to scripts. Its methods run while RunScripts
// holds p.mu and read page fields directly.
type scriptHost struct {
	p *Page
}

func (h scriptHost) Viewport() (float64, float64) {
	return h.p.opts.Width, h.p.opts.Height
}

func (h scriptHost) Rect(node *html.Node) (layout.Rect, bool) {
	return h.p.tree.Rect(node)
}

func (h scriptHost) PaddingOrigin(node *html.Node) (layout.Position, bool) {
	return h.p.tree.PaddingOrigin(node)
}

func (h scriptHost) OffsetParent(node *html.Node) *html.Node {
	for a := node.Parent; a.IsElement(); a = a.Parent {
		if a.TagName == "body" {
			return a
		}
		if s := h.p.tree.Style(a); s != nil && s.GetPosition() != css.PositionStatic {
			return a
		}
	}
	return nil
}

func (h scriptHost) RequestRelayout() {
	h.p.dirty = true
}

func (h scriptHost) Notes() []js.NoteStatus {
	return noteStatus(h.p.doc.Root, h.p.opts.Selectors)
}

// Notes reports every note in the container with its trigger and current
// position.
func (p *Page) Notes() []js.NoteStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return noteStatus(p.doc.Root, p.opts.Selectors)
}

func noteStatus(root *html.Node, sel margin.Selectors) []js.NoteStatus {
	res := margin.Resolve(root, sel)
	out := make([]js.NoteStatus, len(res.Candidates))
	for i, c := range res.Candidates {
		raw, _ := c.Note.GetAttribute("style")
		top, _ := css.ParseDeclarations(raw).Get("top")
		out[i] = js.NoteStatus{
			Index:      i,
			Positioned: c.Note.HasClass(sel.Positioned),
			Top:        top,
		}
		if c.Trigger != nil {
			out[i].Trigger = c.Trigger.TextContent()
		}
	}
	return out
}

// LoadImages sizes every <img> through the page's image loader, in
// parallel. onLoad runs once per image that loaded; failures are logged and
// returned together.
func (p *Page) LoadImages(ctx context.Context, onLoad func()) error {
	p.mu.Lock()
	var srcs []string
	for _, img := range p.doc.Root.ElementsByTag("img") {
		if src, ok := img.GetAttribute("src"); ok && src != "" {
			srcs = append(srcs, src)
		}
	}
	p.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, src := range srcs {
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			if _, _, err := p.loader.Dimensions(ctx, src); err != nil {
				p.logger.Warn("image failed to load", "src", src, "err", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			if onLoad != nil {
				onLoad()
			}
		}(src)
	}
	wg.Wait()
	return errors.Join(errs...)
}
