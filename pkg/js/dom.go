package js

import (
	"strings"
	"unicode"

	"github.com/dop251/goja"

	"marginalia/pkg/css"
	"marginalia/pkg/html"
	"marginalia/pkg/layout"
)

// domContext holds shared state for DOM bindings within a single execution.
// It maintains a node-to-proxy cache so the same JS object is returned for
// the same underlying *html.Node (needed for === identity checks).
type domContext struct {
	vm    *goja.Runtime
	doc   *html.Document
	host  Host
	cache map[*html.Node]*goja.Object
	nodes map[*goja.Object]*html.Node
}

func newDOMContext(vm *goja.Runtime, doc *html.Document, host Host) *domContext {
	return &domContext{
		vm:    vm,
		doc:   doc,
		host:  host,
		cache: make(map[*html.Node]*goja.Object),
		nodes: make(map[*goja.Object]*html.Node),
	}
}

// registerDocument sets up the global `document` object on the goja runtime.
func registerDocument(vm *goja.Runtime, doc *html.Document, host Host) *domContext {
	ctx := newDOMContext(vm, doc, host)

	docObj := vm.NewObject()
	docObj.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Null()
		}
		return ctx.nodeOrNull(doc.Root.ElementByID(call.Arguments[0].String()))
	})
	docObj.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return ctx.elementArray(nil)
		}
		return ctx.elementArray(doc.Root.ElementsByTag(strings.ToLower(call.Arguments[0].String())))
	})
	docObj.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return ctx.elementArray(nil)
		}
		return ctx.elementArray(doc.Root.ElementsByClass(call.Arguments[0].String()))
	})
	docObj.Set("createElement", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(vm.NewTypeError("Failed to execute 'createElement' on 'Document': 1 argument required"))
		}
		return ctx.elementProxy(html.NewElement(call.Arguments[0].String()))
	})
	docObj.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		text := ""
		if len(call.Arguments) > 0 {
			text = call.Arguments[0].String()
		}
		return ctx.elementProxy(&html.Node{Type: html.TextNode, Text: text})
	})

	registerQuerySelectors(ctx, docObj, doc.Root)
	registerDocumentProperties(ctx, docObj, doc)

	vm.Set("document", docObj)
	return ctx
}

// elementArray creates a JS array of Element proxies.
func (ctx *domContext) elementArray(nodes []*html.Node) goja.Value {
	items := make([]any, len(nodes))
	for i, n := range nodes {
		items[i] = ctx.elementProxy(n)
	}
	return ctx.vm.NewArray(items...)
}

// elementProxy creates (or retrieves from cache) a JS DynamicObject wrapping an html.Node.
func (ctx *domContext) elementProxy(node *html.Node) *goja.Object {
	if v, ok := ctx.cache[node]; ok {
		return v
	}
	v := ctx.vm.NewDynamicObject(&elementAccessor{ctx: ctx, node: node})
	ctx.cache[node] = v
	ctx.nodes[v] = node
	return v
}

func (ctx *domContext) nodeOrNull(node *html.Node) goja.Value {
	if node == nil {
		return goja.Null()
	}
	return ctx.elementProxy(node)
}

// unwrapNode extracts the *html.Node behind a proxy, or nil for other values.
func (ctx *domContext) unwrapNode(val goja.Value) *html.Node {
	if val == nil || goja.IsNull(val) || goja.IsUndefined(val) {
		return nil
	}
	obj, ok := val.(*goja.Object)
	if !ok {
		return nil
	}
	return ctx.nodes[obj]
}

// elementAccessor implements goja.DynamicObject to intercept property access
// on DOM element proxies.
type elementAccessor struct {
	ctx  *domContext
	node *html.Node
}

var elementKeys = []string{
	"tagName", "nodeName", "nodeType", "nodeValue", "id", "className",
	"textContent", "innerHTML", "outerHTML",
	"getAttribute", "setAttribute", "hasAttribute", "removeAttribute",
	"children", "childNodes", "parentElement", "parentNode", "style",
	"appendChild", "removeChild", "insertBefore", "remove", "append",
	"firstChild", "lastChild", "firstElementChild", "lastElementChild",
	"nextSibling", "previousSibling", "nextElementSibling", "previousElementSibling",
	"querySelector", "querySelectorAll", "matches", "closest",
	"classList", "contains", "getElementsByClassName", "getElementsByTagName",
	"getBoundingClientRect", "offsetTop", "offsetLeft", "offsetWidth", "offsetHeight", "offsetParent",
}

func (e *elementAccessor) Get(key string) goja.Value {
	vm := e.ctx.vm

	switch key {
	case "nodeType":
		if e.node.Type == html.TextNode {
			return vm.ToValue(3)
		}
		return vm.ToValue(1)
	case "nodeName":
		if e.node.Type == html.TextNode {
			return vm.ToValue("#text")
		}
		return vm.ToValue(strings.ToUpper(e.node.TagName))
	case "nodeValue":
		if e.node.Type == html.TextNode {
			return vm.ToValue(e.node.Text)
		}
		return goja.Null()
	case "tagName":
		if e.node.Type == html.TextNode {
			return goja.Undefined()
		}
		return vm.ToValue(strings.ToUpper(e.node.TagName))
	case "id":
		id, _ := e.node.GetAttribute("id")
		return vm.ToValue(id)
	case "className":
		cls, _ := e.node.GetAttribute("class")
		return vm.ToValue(cls)
	case "textContent":
		return vm.ToValue(e.node.TextContent())
	case "innerHTML":
		return vm.ToValue(e.node.Serialize())
	case "outerHTML":
		return vm.ToValue(e.node.SerializeOuter())
	case "getAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return goja.Null()
			}
			val, ok := e.node.GetAttribute(strings.ToLower(call.Arguments[0].String()))
			if !ok {
				return goja.Null()
			}
			return vm.ToValue(val)
		})
	case "setAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 2 {
				return goja.Undefined()
			}
			e.node.SetAttribute(strings.ToLower(call.Arguments[0].String()), call.Arguments[1].String())
			return goja.Undefined()
		})
	case "hasAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return vm.ToValue(false)
			}
			_, ok := e.node.GetAttribute(strings.ToLower(call.Arguments[0].String()))
			return vm.ToValue(ok)
		})
	case "removeAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) > 0 {
				e.node.RemoveAttribute(strings.ToLower(call.Arguments[0].String()))
			}
			return goja.Undefined()
		})
	case "children":
		var elChildren []*html.Node
		for _, child := range e.node.Children {
			if child.Type == html.ElementNode {
				elChildren = append(elChildren, child)
			}
		}
		return e.ctx.elementArray(elChildren)
	case "childNodes":
		return e.ctx.elementArray(e.node.Children)
	case "parentElement", "parentNode":
		if e.node.Parent.IsElement() {
			return e.ctx.elementProxy(e.node.Parent)
		}
		return goja.Null()
	case "style":
		return vm.NewDynamicObject(&styleAccessor{vm: vm, node: e.node})
	case "classList":
		return newClassListProxy(e.ctx, e.node)

	case "appendChild":
		return vm.ToValue(e.appendChildFn())
	case "removeChild":
		return vm.ToValue(e.removeChildFn())
	case "insertBefore":
		return vm.ToValue(e.insertBeforeFn())
	case "remove":
		return vm.ToValue(func(goja.FunctionCall) goja.Value {
			if e.node.Parent != nil {
				e.node.Parent.RemoveChild(e.node)
			}
			return goja.Undefined()
		})
	case "append":
		return vm.ToValue(e.appendFn())

	case "firstChild":
		return e.firstChild()
	case "lastChild":
		return e.lastChild()
	case "firstElementChild":
		return e.firstElementChild()
	case "lastElementChild":
		return e.lastElementChild()
	case "nextSibling":
		return e.nextSibling()
	case "previousSibling":
		return e.previousSibling()
	case "nextElementSibling":
		return e.ctx.nodeOrNull(e.node.NextElementSibling())
	case "previousElementSibling":
		return e.ctx.nodeOrNull(e.node.PreviousElementSibling())

	case "querySelector":
		return vm.ToValue(querySelectorFn(e.ctx, e.node))
	case "querySelectorAll":
		return vm.ToValue(querySelectorAllFn(e.ctx, e.node))
	case "matches":
		return vm.ToValue(matchesFn(e.ctx, e.node))
	case "closest":
		return vm.ToValue(closestFn(e.ctx, e.node))

	case "contains":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return vm.ToValue(false)
			}
			other := e.ctx.unwrapNode(call.Arguments[0])
			return vm.ToValue(other != nil && e.node.Contains(other))
		})
	case "getElementsByTagName":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return e.ctx.elementArray(nil)
			}
			return e.ctx.elementArray(e.node.ElementsByTag(strings.ToLower(call.Arguments[0].String())))
		})
	case "getElementsByClassName":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return e.ctx.elementArray(nil)
			}
			return e.ctx.elementArray(e.node.ElementsByClass(call.Arguments[0].String()))
		})

	case "getBoundingClientRect":
		return vm.ToValue(func(goja.FunctionCall) goja.Value {
			return e.domRect(e.rect())
		})
	case "offsetTop":
		return vm.ToValue(e.rect().Y - e.offsetOrigin().Y)
	case "offsetLeft":
		return vm.ToValue(e.rect().X - e.offsetOrigin().X)
	case "offsetWidth":
		return vm.ToValue(e.rect().Width)
	case "offsetHeight":
		return vm.ToValue(e.rect().Height)
	case "offsetParent":
		if e.ctx.host == nil {
			return goja.Null()
		}
		return e.ctx.nodeOrNull(e.ctx.host.OffsetParent(e.node))
	}
	return goja.Undefined()
}

func (e *elementAccessor) Set(key string, val goja.Value) bool {
	switch key {
	case "textContent":
		e.node.SetTextContent(val.String())
		return true
	case "className":
		e.node.SetAttribute("class", val.String())
		return true
	case "id":
		e.node.SetAttribute("id", val.String())
		return true
	case "innerHTML":
		e.setInnerHTML(val.String())
		return true
	case "nodeValue":
		if e.node.Type == html.TextNode {
			e.node.Text = val.String()
		}
		return true
	}
	return false
}

func (e *elementAccessor) Has(key string) bool {
	for _, k := range elementKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (e *elementAccessor) Delete(key string) bool {
	return false
}

func (e *elementAccessor) Keys() []string {
	return elementKeys
}

// rect returns the node's layout rect, zero when the host has none.
func (e *elementAccessor) rect() layout.Rect {
	if e.ctx.host == nil {
		return layout.Rect{}
	}
	r, _ := e.ctx.host.Rect(e.node)
	return r
}

// offsetOrigin is the padding edge offsetTop and offsetLeft are measured from.
func (e *elementAccessor) offsetOrigin() layout.Position {
	if e.ctx.host == nil {
		return layout.Position{}
	}
	parent := e.ctx.host.OffsetParent(e.node)
	if parent == nil {
		return layout.Position{}
	}
	p, _ := e.ctx.host.PaddingOrigin(parent)
	return p
}

func (e *elementAccessor) domRect(r layout.Rect) goja.Value {
	obj := e.ctx.vm.NewObject()
	obj.Set("x", r.X)
	obj.Set("y", r.Y)
	obj.Set("left", r.X)
	obj.Set("top", r.Y)
	obj.Set("width", r.Width)
	obj.Set("height", r.Height)
	obj.Set("right", r.Right())
	obj.Set("bottom", r.Bottom())
	return obj
}

// styleAccessor maps JS camelCase property access to CSS kebab-case on the
// node's inline style attribute. Declaration order is preserved.
type styleAccessor struct {
	vm   *goja.Runtime
	node *html.Node
}

func (s *styleAccessor) decls() css.Declarations {
	raw, _ := s.node.GetAttribute("style")
	return css.ParseDeclarations(raw)
}

func (s *styleAccessor) store(d css.Declarations) {
	if len(d) == 0 {
		s.node.RemoveAttribute("style")
		return
	}
	s.node.SetAttribute("style", d.String())
}

func (s *styleAccessor) Get(key string) goja.Value {
	switch key {
	case "cssText":
		return s.vm.ToValue(s.decls().String())
	case "getPropertyValue":
		return s.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return s.vm.ToValue("")
			}
			v, _ := s.decls().Get(strings.ToLower(call.Arguments[0].String()))
			return s.vm.ToValue(v)
		})
	case "setProperty":
		return s.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) >= 2 {
				s.setProp(strings.ToLower(call.Arguments[0].String()), call.Arguments[1].String())
			}
			return goja.Undefined()
		})
	case "removeProperty":
		return s.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return s.vm.ToValue("")
			}
			prop := strings.ToLower(call.Arguments[0].String())
			d := s.decls()
			old, _ := d.Get(prop)
			s.store(d.Remove(prop))
			return s.vm.ToValue(old)
		})
	}
	v, _ := s.decls().Get(camelToKebab(key))
	return s.vm.ToValue(v)
}

func (s *styleAccessor) Set(key string, val goja.Value) bool {
	if key == "cssText" {
		s.store(css.ParseDeclarations(val.String()))
		return true
	}
	s.setProp(camelToKebab(key), val.String())
	return true
}

// setProp assigns a declaration; an empty value removes it, as in browsers.
func (s *styleAccessor) setProp(prop, value string) {
	d := s.decls()
	if strings.TrimSpace(value) == "" {
		s.store(d.Remove(prop))
		return
	}
	s.store(d.Set(prop, value))
}

func (s *styleAccessor) Has(key string) bool {
	return true
}

func (s *styleAccessor) Delete(key string) bool {
	s.store(s.decls().Remove(camelToKebab(key)))
	return true
}

func (s *styleAccessor) Keys() []string {
	d := s.decls()
	keys := make([]string, len(d))
	for i, decl := range d {
		keys[i] = decl.Property
	}
	return keys
}

// camelToKebab converts a JS camelCase property name to CSS kebab-case.
func camelToKebab(s string) string {
	if s == "cssFloat" {
		return "float"
	}
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
