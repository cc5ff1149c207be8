package js

import (
	"github.com/dop251/goja"
)

// registerWindow installs window and marginNotes. Both read the host on
// every access so values track the current viewport.
func registerWindow(e *Engine) {
	vm := e.vm

	window := vm.NewDynamicObject(&windowAccessor{e: e})
	vm.Set("window", window)

	notes := vm.NewObject()
	notes.Set("reposition", func(goja.FunctionCall) goja.Value {
		if e.host != nil {
			e.host.RequestRelayout()
		}
		return goja.Undefined()
	})
	notes.Set("debug", func(goja.FunctionCall) goja.Value {
		var items []any
		if e.host != nil {
			for _, n := range e.host.Notes() {
				rec := vm.NewObject()
				rec.Set("index", n.Index)
				rec.Set("trigger", n.Trigger)
				rec.Set("positioned", n.Positioned)
				rec.Set("top", n.Top)
				items = append(items, rec)
			}
		}
		return vm.NewArray(items...)
	})
	vm.Set("marginNotes", notes)
}

type windowAccessor struct {
	e *Engine
}

func (w *windowAccessor) viewport() (float64, float64) {
	if w.e.host == nil {
		return 0, 0
	}
	return w.e.host.Viewport()
}

func (w *windowAccessor) Get(key string) goja.Value {
	vm := w.e.vm
	switch key {
	case "innerWidth":
		width, _ := w.viewport()
		return vm.ToValue(width)
	case "innerHeight":
		_, height := w.viewport()
		return vm.ToValue(height)
	case "document":
		return vm.Get("document")
	case "marginNotes":
		return vm.Get("marginNotes")
	case "console":
		return vm.Get("console")
	}
	return goja.Undefined()
}

func (w *windowAccessor) Set(string, goja.Value) bool { return false }

func (w *windowAccessor) Has(key string) bool {
	switch key {
	case "innerWidth", "innerHeight", "document", "marginNotes", "console":
		return true
	}
	return false
}

func (w *windowAccessor) Delete(string) bool { return false }

func (w *windowAccessor) Keys() []string {
	return []string{"innerWidth", "innerHeight", "document", "marginNotes", "console"}
}
