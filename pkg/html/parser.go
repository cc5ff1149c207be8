package html

import (
	"fmt"
	"net/url"
	"strings"
)

// CSSFetcher resolves an external stylesheet href to its CSS text.
type CSSFetcher func(href string) (string, error)

type Parser struct {
	tokenizer  *Tokenizer
	doc        *Document
	stack      []*Node
	cssFetcher CSSFetcher
}

func NewParser(html string) *Parser {
	return &Parser{
		tokenizer: NewTokenizer(html),
		doc:       NewDocument(),
	}
}

func (p *Parser) Parse() (*Document, error) {
	p.stack = []*Node{p.doc.Root}

	for {
		token, err := p.tokenizer.NextToken()
		if err != nil {
			return nil, fmt.Errorf("tokenizer error: %w", err)
		}
		if token.Type == TokenEOF {
			break
		}

		switch token.Type {
		case TokenStartTag:
			if p.isBlockElement(token.TagName) {
				p.autoCloseP()
			}

			node := &Node{
				Type:       ElementNode,
				TagName:    token.TagName,
				Attributes: token.Attributes,
				Children:   make([]*Node, 0),
			}
			p.currentParent().AddChild(node)

			switch token.TagName {
			case "style", "script":
				raw := p.tokenizer.ReadRawUntil(token.TagName)
				if raw != "" {
					node.AddChild(&Node{Type: TextNode, Text: raw})
				}
				if token.TagName == "style" {
					p.doc.Stylesheets = append(p.doc.Stylesheets, raw)
				} else if _, external := token.Attributes["src"]; !external {
					p.doc.Scripts = append(p.doc.Scripts, raw)
				}
				continue
			case "link":
				p.handleLink(token.Attributes)
			}

			if !token.SelfClosing && !isVoidElement(token.TagName) {
				p.stack = append(p.stack, node)
			}

		case TokenText:
			if token.Text != "" {
				p.currentParent().AppendText(token.Text)
			}

		case TokenEndTag:
			p.closeTag(token.TagName)
		}
	}

	return p.doc, nil
}

func (p *Parser) currentParent() *Node {
	if len(p.stack) == 0 {
		return p.doc.Root
	}
	return p.stack[len(p.stack)-1]
}

// closeTag pops the stack up to and including the matching open element.
// Stray end tags are ignored.
func (p *Parser) closeTag(tagName string) {
	for i := len(p.stack) - 1; i >= 1; i-- {
		if p.stack[i].TagName == tagName {
			p.stack = p.stack[:i]
			return
		}
	}
}

// autoCloseP closes an open <p> unless a block container sits above it.
func (p *Parser) autoCloseP() {
	for i := len(p.stack) - 1; i >= 1; i-- {
		if p.stack[i].TagName == "p" {
			p.stack = p.stack[:i]
			return
		}
		if p.isBlockElement(p.stack[i].TagName) {
			return
		}
	}
}

func (p *Parser) isBlockElement(tagName string) bool {
	switch tagName {
	case "address", "article", "aside", "blockquote", "details", "dialog",
		"dd", "div", "dl", "dt", "fieldset", "figcaption", "figure",
		"footer", "form", "h1", "h2", "h3", "h4", "h5", "h6",
		"header", "hgroup", "hr", "li", "main", "nav", "ol",
		"p", "pre", "section", "table", "ul":
		return true
	}
	return false
}

func (p *Parser) handleLink(attrs map[string]string) {
	if !strings.Contains(attrs["rel"], "stylesheet") {
		return
	}
	href := strings.TrimSpace(attrs["href"])
	if href == "" {
		return
	}
	if strings.HasPrefix(href, "data:text/css,") {
		encoded := href[len("data:text/css,"):]
		if decoded, err := url.PathUnescape(encoded); err == nil {
			encoded = decoded
		}
		p.doc.Stylesheets = append(p.doc.Stylesheets, encoded)
		return
	}
	if p.cssFetcher != nil {
		if css, err := p.cssFetcher(href); err == nil {
			p.doc.Stylesheets = append(p.doc.Stylesheets, css)
			return
		}
	}
	p.doc.Links = append(p.doc.Links, href)
}

func Parse(html string) (*Document, error) {
	return NewParser(html).Parse()
}

// ParseWithFetcher parses html and loads <link rel="stylesheet"> sheets
// through fetch. Sheets that fail to load are recorded in Document.Links.
func ParseWithFetcher(html string, fetch CSSFetcher) (*Document, error) {
	p := NewParser(html)
	p.cssFetcher = fetch
	return p.Parse()
}
