package js

import (
	"github.com/dop251/goja"

	"marginalia/pkg/html"
)

// appendChildFn returns a JS function that implements node.appendChild(child).
func (e *elementAccessor) appendChildFn() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(e.ctx.vm.NewTypeError("Failed to execute 'appendChild': 1 argument required"))
		}
		child := e.ctx.unwrapNode(call.Arguments[0])
		if child == nil {
			panic(e.ctx.vm.NewTypeError("Failed to execute 'appendChild': parameter is not a Node"))
		}
		if child.Contains(e.node) {
			panic(e.ctx.vm.NewTypeError("Failed to execute 'appendChild': the new child contains the parent"))
		}
		e.node.InsertBefore(child, nil)
		return e.ctx.elementProxy(child)
	}
}

// removeChildFn returns a JS function that implements node.removeChild(child).
func (e *elementAccessor) removeChildFn() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(e.ctx.vm.NewTypeError("Failed to execute 'removeChild': 1 argument required"))
		}
		child := e.ctx.unwrapNode(call.Arguments[0])
		if child == nil {
			panic(e.ctx.vm.NewTypeError("Failed to execute 'removeChild': parameter is not a Node"))
		}
		removed := e.node.RemoveChild(child)
		if removed == nil {
			panic(e.ctx.vm.NewTypeError("Failed to execute 'removeChild': The node to be removed is not a child of this node"))
		}
		return e.ctx.elementProxy(removed)
	}
}

// insertBeforeFn returns a JS function that implements node.insertBefore(newNode, refNode).
func (e *elementAccessor) insertBeforeFn() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(e.ctx.vm.NewTypeError("Failed to execute 'insertBefore': 1 argument required"))
		}
		newChild := e.ctx.unwrapNode(call.Arguments[0])
		if newChild == nil {
			panic(e.ctx.vm.NewTypeError("Failed to execute 'insertBefore': parameter 1 is not a Node"))
		}
		var refChild *html.Node
		if len(call.Arguments) > 1 {
			refChild = e.ctx.unwrapNode(call.Arguments[1])
		}
		e.node.InsertBefore(newChild, refChild)
		return e.ctx.elementProxy(newChild)
	}
}

// appendFn returns a JS function for element.append(...nodes). Strings
// become text nodes.
func (e *elementAccessor) appendFn() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			if node := e.ctx.unwrapNode(arg); node != nil {
				e.node.InsertBefore(node, nil)
			} else {
				e.node.AppendText(arg.String())
			}
		}
		return goja.Undefined()
	}
}

// setInnerHTML parses the markup and replaces the node's children with the
// result. Unparseable markup leaves the node empty.
func (e *elementAccessor) setInnerHTML(markup string) {
	e.node.SetTextContent("")
	if markup == "" {
		return
	}
	frag, err := html.Parse(markup)
	if err != nil {
		return
	}
	for _, child := range append([]*html.Node(nil), frag.Root.Children...) {
		e.node.InsertBefore(child, nil)
	}
}
