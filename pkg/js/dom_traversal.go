package js

import (
	"github.com/dop251/goja"

	"marginalia/pkg/html"
)

func (e *elementAccessor) firstChild() goja.Value {
	if len(e.node.Children) == 0 {
		return goja.Null()
	}
	return e.ctx.elementProxy(e.node.Children[0])
}

func (e *elementAccessor) lastChild() goja.Value {
	if len(e.node.Children) == 0 {
		return goja.Null()
	}
	return e.ctx.elementProxy(e.node.Children[len(e.node.Children)-1])
}

func (e *elementAccessor) firstElementChild() goja.Value {
	for _, child := range e.node.Children {
		if child.Type == html.ElementNode {
			return e.ctx.elementProxy(child)
		}
	}
	return goja.Null()
}

func (e *elementAccessor) lastElementChild() goja.Value {
	for i := len(e.node.Children) - 1; i >= 0; i-- {
		if e.node.Children[i].Type == html.ElementNode {
			return e.ctx.elementProxy(e.node.Children[i])
		}
	}
	return goja.Null()
}

func (e *elementAccessor) nextSibling() goja.Value {
	idx := e.node.IndexInParent()
	if idx < 0 || idx+1 >= len(e.node.Parent.Children) {
		return goja.Null()
	}
	return e.ctx.elementProxy(e.node.Parent.Children[idx+1])
}

func (e *elementAccessor) previousSibling() goja.Value {
	return e.ctx.nodeOrNull(e.node.PreviousSibling())
}

// registerDocumentProperties sets document.documentElement, head and body.
// Documents without the wrapper elements get null.
func registerDocumentProperties(ctx *domContext, docObj *goja.Object, doc *html.Document) {
	first := func(tag string) goja.Value {
		if nodes := doc.Root.ElementsByTag(tag); len(nodes) > 0 {
			return ctx.elementProxy(nodes[0])
		}
		return goja.Null()
	}
	docObj.Set("documentElement", first("html"))
	docObj.Set("head", first("head"))
	docObj.Set("body", first("body"))
}
