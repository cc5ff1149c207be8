package js

import (
	"github.com/dop251/goja"

	"marginalia/pkg/css"
	"marginalia/pkg/html"
)

// registerQuerySelectors adds querySelector/querySelectorAll to a document object.
func registerQuerySelectors(ctx *domContext, obj *goja.Object, root *html.Node) {
	obj.Set("querySelector", querySelectorFn(ctx, root))
	obj.Set("querySelectorAll", querySelectorAllFn(ctx, root))
}

// selectorArg parses the first argument as a selector list, throwing a JS
// error for missing or unsupported selectors.
func selectorArg(ctx *domContext, call goja.FunctionCall, method string) []css.Selector {
	if len(call.Arguments) == 0 {
		panic(ctx.vm.NewTypeError("Failed to execute '" + method + "': 1 argument required"))
	}
	list, err := css.ParseSelectorList(call.Arguments[0].String())
	if err != nil {
		panic(ctx.vm.NewTypeError("Failed to execute '" + method + "': " + err.Error()))
	}
	return list
}

func querySelectorFn(ctx *domContext, root *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		list := selectorArg(ctx, call, "querySelector")
		return ctx.nodeOrNull(css.QuerySelector(root, list))
	}
}

func querySelectorAllFn(ctx *domContext, root *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		list := selectorArg(ctx, call, "querySelectorAll")
		return ctx.elementArray(css.QuerySelectorAll(root, list))
	}
}

func matchesAny(node *html.Node, list []css.Selector) bool {
	for _, sel := range list {
		if css.MatchesSelector(node, sel) {
			return true
		}
	}
	return false
}

// matchesFn returns a JS function implementing element.matches(selector).
func matchesFn(ctx *domContext, node *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		list := selectorArg(ctx, call, "matches")
		return ctx.vm.ToValue(node.IsElement() && matchesAny(node, list))
	}
}

// closestFn returns a JS function implementing element.closest(selector).
func closestFn(ctx *domContext, node *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		list := selectorArg(ctx, call, "closest")
		for current := node; current.IsElement(); current = current.Parent {
			if matchesAny(current, list) {
				return ctx.elementProxy(current)
			}
		}
		return goja.Null()
	}
}
