// Package js runs page scripts against the DOM with goja.
//
// Scripts see a browser-like global environment: document, window, console
// and marginNotes. Geometry and re-layout requests go through a Host, which
// the page supplies.
package js

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"

	"marginalia/pkg/html"
	"marginalia/pkg/layout"
)

// Host connects scripts to the page that owns the document.
type Host interface {
	Viewport() (width, height float64)
	// Rect returns node's border box in page coordinates.
	Rect(node *html.Node) (layout.Rect, bool)
	// OffsetParent returns the nearest positioned ancestor, or nil.
	OffsetParent(node *html.Node) *html.Node
	PaddingOrigin(node *html.Node) (layout.Position, bool)
	// RequestRelayout asks for a debounced margin layout pass.
	RequestRelayout()
	Notes() []NoteStatus
}

// NoteStatus describes one margin note for marginNotes.debug().
type NoteStatus struct {
	Index      int
	Trigger    string // trigger text, empty when unmatched
	Positioned bool
	Top        string // the note's inline top value
}

// Engine executes JavaScript against an HTML document's DOM.
type Engine struct {
	vm     *goja.Runtime
	host   Host
	logger *log.Logger
	dom    *domContext
}

// New creates an engine. host may be nil, in which case geometry reads as
// zero and relayout requests are dropped.
func New(host Host, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	vm := goja.New()
	e := &Engine{vm: vm, host: host, logger: logger}

	c := &consoleAPI{logger: logger}
	c.register(vm)
	registerWindow(e)
	return e
}

// Bind points the document global at doc. Execute calls it; callers
// running ad-hoc code through Run call it once first.
func (e *Engine) Bind(doc *html.Document) {
	if e.dom != nil && e.dom.doc == doc {
		return
	}
	e.dom = registerDocument(e.vm, doc, e.host)
}

// Execute runs all scripts from the document in order. It stops at the
// first script that throws and returns its error.
func (e *Engine) Execute(doc *html.Document) error {
	e.Bind(doc)
	for i, script := range doc.Scripts {
		if _, err := e.vm.RunString(script); err != nil {
			return fmt.Errorf("script %d: %w", i, err)
		}
	}
	return nil
}

// Run evaluates src and returns its completion value exported to Go.
func (e *Engine) Run(src string) (any, error) {
	v, err := e.vm.RunString(src)
	if err != nil {
		return nil, err
	}
	return v.Export(), nil
}
