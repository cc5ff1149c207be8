package html

import (
	"sort"
	"strings"
)

type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
)

// Node is an element or text node. Parent links are maintained by the
// mutation helpers; code that builds trees by hand should use AddChild.
type Node struct {
	Type       NodeType
	TagName    string
	Attributes map[string]string
	Text       string
	Children   []*Node
	Parent     *Node
}

type Document struct {
	Root        *Node
	Stylesheets []string // CSS text from <style> tags and resolved <link> sheets
	Scripts     []string // JavaScript from <script> tags, in document order
	Links       []string // hrefs of <link rel="stylesheet"> that still need fetching
}

func NewDocument() *Document {
	return &Document{
		Root: &Node{
			Type:     ElementNode,
			TagName:  "document",
			Children: make([]*Node, 0),
		},
	}
}

// NewElement returns a detached element with an empty attribute map.
func NewElement(tag string) *Node {
	return &Node{
		Type:       ElementNode,
		TagName:    strings.ToLower(tag),
		Attributes: make(map[string]string),
		Children:   make([]*Node, 0),
	}
}

// IsElement reports whether n is a real element (not text, not the synthetic root).
func (n *Node) IsElement() bool {
	return n != nil && n.Type == ElementNode && n.TagName != "document"
}

func (n *Node) GetAttribute(name string) (string, bool) {
	if n.Attributes == nil {
		return "", false
	}
	val, ok := n.Attributes[name]
	return val, ok
}

func (n *Node) SetAttribute(name, value string) {
	if n.Attributes == nil {
		n.Attributes = make(map[string]string)
	}
	n.Attributes[name] = value
}

func (n *Node) RemoveAttribute(name string) {
	if n.Attributes != nil {
		delete(n.Attributes, name)
	}
}

// Classes returns the whitespace separated tokens of the class attribute.
func (n *Node) Classes() []string {
	cls, _ := n.GetAttribute("class")
	return strings.Fields(cls)
}

func (n *Node) HasClass(name string) bool {
	for _, c := range n.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends name to the class list unless it is already present.
func (n *Node) AddClass(name string) {
	if n.HasClass(name) {
		return
	}
	n.SetAttribute("class", strings.Join(append(n.Classes(), name), " "))
}

// RemoveClass drops every occurrence of name. The class attribute is removed
// entirely once the last token is gone.
func (n *Node) RemoveClass(name string) {
	classes := n.Classes()
	kept := classes[:0]
	for _, c := range classes {
		if c != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		n.RemoveAttribute("class")
		return
	}
	n.SetAttribute("class", strings.Join(kept, " "))
}

// AddChild adds a child node and sets up the parent relationship
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// AppendText creates a text node and adds it as a child
func (n *Node) AppendText(text string) {
	if text == "" {
		return
	}
	n.AddChild(&Node{Type: TextNode, Text: text})
}

// RemoveChild removes the given child, clears its parent pointer and returns
// it. Returns nil if child is not found.
func (n *Node) RemoveChild(child *Node) *Node {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return child
		}
	}
	return nil
}

// InsertBefore inserts newChild before refChild. A nil or unknown refChild
// appends. newChild is detached from any previous parent first.
func (n *Node) InsertBefore(newChild, refChild *Node) *Node {
	if newChild.Parent != nil {
		newChild.Parent.RemoveChild(newChild)
	}
	if refChild != nil {
		for i, c := range n.Children {
			if c == refChild {
				n.Children = append(n.Children, nil)
				copy(n.Children[i+1:], n.Children[i:])
				n.Children[i] = newChild
				newChild.Parent = n
				return newChild
			}
		}
	}
	n.AddChild(newChild)
	return newChild
}

// IndexInParent returns the index of this node among its parent's children,
// or -1 if it has no parent.
func (n *Node) IndexInParent() int {
	if n.Parent == nil {
		return -1
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// PreviousSibling returns the node immediately before n, of any type.
func (n *Node) PreviousSibling() *Node {
	i := n.IndexInParent()
	if i <= 0 {
		return nil
	}
	return n.Parent.Children[i-1]
}

// PreviousElementSibling skips text nodes backwards to the nearest element.
func (n *Node) PreviousElementSibling() *Node {
	for s := n.PreviousSibling(); s != nil; s = s.PreviousSibling() {
		if s.Type == ElementNode {
			return s
		}
	}
	return nil
}

func (n *Node) NextElementSibling() *Node {
	i := n.IndexInParent()
	if i < 0 {
		return nil
	}
	for _, s := range n.Parent.Children[i+1:] {
		if s.Type == ElementNode {
			return s
		}
	}
	return nil
}

// Contains returns true if other is a descendant of n (or n itself).
func (n *Node) Contains(other *Node) bool {
	for c := other; c != nil; c = c.Parent {
		if c == n {
			return true
		}
	}
	return false
}

// Walk visits n and its descendants depth-first in document order. Returning
// false from fn stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// ElementsByClass collects descendant elements carrying class name, in
// document order. n itself is not included.
func (n *Node) ElementsByClass(name string) []*Node {
	var out []*Node
	for _, child := range n.Children {
		child.Walk(func(c *Node) bool {
			if c.Type == ElementNode && c.HasClass(name) {
				out = append(out, c)
			}
			return true
		})
	}
	return out
}

func (n *Node) ElementsByTag(tag string) []*Node {
	var out []*Node
	for _, child := range n.Children {
		child.Walk(func(c *Node) bool {
			if c.Type == ElementNode && c.TagName == tag {
				out = append(out, c)
			}
			return true
		})
	}
	return out
}

func (n *Node) ElementByID(id string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if v, ok := c.GetAttribute("id"); ok && c.Type == ElementNode && v == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// TextContent concatenates the text of n and its descendants.
func (n *Node) TextContent() string {
	if n.Type == TextNode {
		return n.Text
	}
	var sb strings.Builder
	for _, child := range n.Children {
		sb.WriteString(child.TextContent())
	}
	return sb.String()
}

// SetTextContent replaces all children with a single text node.
func (n *Node) SetTextContent(text string) {
	for _, c := range n.Children {
		c.Parent = nil
	}
	n.Children = nil
	n.AppendText(text)
}

// Serialize returns the innerHTML of this node.
func (n *Node) Serialize() string {
	var sb strings.Builder
	for _, child := range n.Children {
		serializeNode(&sb, child)
	}
	return sb.String()
}

// SerializeOuter returns the outerHTML of this node.
func (n *Node) SerializeOuter() string {
	var sb strings.Builder
	serializeNode(&sb, n)
	return sb.String()
}

func serializeNode(sb *strings.Builder, n *Node) {
	if n.Type == TextNode {
		if n.Parent != nil && isRawTextElement(n.Parent.TagName) {
			sb.WriteString(n.Text)
			return
		}
		sb.WriteString(escapeHTML(n.Text))
		return
	}
	if n.TagName == "document" {
		for _, child := range n.Children {
			serializeNode(sb, child)
		}
		return
	}

	sb.WriteByte('<')
	sb.WriteString(n.TagName)

	// Sorted for deterministic output
	if len(n.Attributes) > 0 {
		keys := make([]string, 0, len(n.Attributes))
		for k := range n.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteByte(' ')
			sb.WriteString(k)
			sb.WriteString(`="`)
			sb.WriteString(escapeAttr(n.Attributes[k]))
			sb.WriteByte('"')
		}
	}

	sb.WriteByte('>')
	if isVoidElement(n.TagName) {
		return
	}
	for _, child := range n.Children {
		serializeNode(sb, child)
	}
	sb.WriteString("</")
	sb.WriteString(n.TagName)
	sb.WriteByte('>')
}

var (
	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;", "<", "&lt;", ">", "&gt;")
)

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }

func isRawTextElement(tag string) bool {
	return tag == "script" || tag == "style"
}

func isVoidElement(tag string) bool {
	switch tag {
	case "br", "hr", "img", "input", "meta", "link", "area", "base",
		"col", "embed", "param", "source", "track", "wbr":
		return true
	}
	return false
}
