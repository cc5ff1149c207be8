package html

import (
	"fmt"
	gohtml "html"
	"strings"
	"unicode"
)

type TokenType int

const (
	TokenStartTag TokenType = iota
	TokenEndTag
	TokenText
	TokenEOF
)

type Token struct {
	Type        TokenType
	TagName     string
	Attributes  map[string]string
	Text        string
	SelfClosing bool // XHTML style <br/>
}

type Tokenizer struct {
	input string
	pos   int
}

func NewTokenizer(html string) *Tokenizer {
	return &Tokenizer{input: html}
}

func (t *Tokenizer) NextToken() (Token, error) {
	for t.pos < len(t.input) {
		if t.input[t.pos] != '<' {
			tok, ok := t.readText()
			if ok {
				return tok, nil
			}
			continue
		}
		tok, ok, err := t.readTag()
		if err != nil {
			return Token{}, err
		}
		if ok {
			return tok, nil
		}
	}
	return Token{Type: TokenEOF}, nil
}

// readTag consumes markup starting at '<'. Comments, doctypes and processing
// instructions are skipped and reported with ok == false.
func (t *Tokenizer) readTag() (Token, bool, error) {
	rest := t.input[t.pos+1:]
	switch {
	case strings.HasPrefix(rest, "!--"):
		end := strings.Index(rest[3:], "-->")
		if end < 0 {
			t.pos = len(t.input)
		} else {
			t.pos += 1 + 3 + end + 3
		}
		return Token{}, false, nil
	case strings.HasPrefix(rest, "?"), strings.HasPrefix(rest, "!"):
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return Token{}, false, fmt.Errorf("expected '>' but reached EOF")
		}
		t.pos += 1 + end + 1
		return Token{}, false, nil
	}

	t.pos++
	isEndTag := false
	if t.pos < len(t.input) && t.input[t.pos] == '/' {
		isEndTag = true
		t.pos++
	}
	tagName := t.readTagName()
	if tagName == "" {
		// A lone '<' in text, e.g. "a < b".
		return Token{Type: TokenText, Text: "<"}, true, nil
	}
	if isEndTag {
		end := strings.IndexByte(t.input[t.pos:], '>')
		if end < 0 {
			return Token{}, false, fmt.Errorf("unterminated end tag </%s>", tagName)
		}
		t.pos += end + 1
		return Token{Type: TokenEndTag, TagName: tagName}, true, nil
	}

	attributes := make(map[string]string)
	for {
		t.skipWhitespace()
		if t.pos >= len(t.input) {
			return Token{}, false, fmt.Errorf("unexpected EOF in <%s>", tagName)
		}
		switch t.input[t.pos] {
		case '>':
			t.pos++
			return Token{Type: TokenStartTag, TagName: tagName, Attributes: attributes}, true, nil
		case '/':
			t.pos++
			t.skipWhitespace()
			if t.pos < len(t.input) && t.input[t.pos] == '>' {
				t.pos++
				return Token{Type: TokenStartTag, TagName: tagName, Attributes: attributes, SelfClosing: true}, true, nil
			}
			continue
		}
		name, value, err := t.readAttribute()
		if err != nil {
			return Token{}, false, err
		}
		attributes[name] = value
	}
}

func (t *Tokenizer) readTagName() string {
	start := t.pos
	for t.pos < len(t.input) && isTagNameChar(t.input[t.pos]) {
		t.pos++
	}
	return strings.ToLower(t.input[start:t.pos])
}

func (t *Tokenizer) readAttribute() (string, string, error) {
	start := t.pos
	for t.pos < len(t.input) && isAttributeNameChar(t.input[t.pos]) {
		t.pos++
	}
	name := strings.ToLower(t.input[start:t.pos])
	if name == "" {
		return "", "", fmt.Errorf("expected attribute name at position %d", t.pos)
	}
	t.skipWhitespace()
	if t.pos >= len(t.input) || t.input[t.pos] != '=' {
		return name, "", nil
	}
	t.pos++
	t.skipWhitespace()
	if t.pos >= len(t.input) {
		return "", "", fmt.Errorf("expected value for attribute %q", name)
	}
	if quote := t.input[t.pos]; quote == '"' || quote == '\'' {
		end := strings.IndexByte(t.input[t.pos+1:], quote)
		if end < 0 {
			return "", "", fmt.Errorf("unterminated value for attribute %q", name)
		}
		value := t.input[t.pos+1 : t.pos+1+end]
		t.pos += end + 2
		return name, gohtml.UnescapeString(value), nil
	}
	start = t.pos
	for t.pos < len(t.input) && !unicode.IsSpace(rune(t.input[t.pos])) && t.input[t.pos] != '>' {
		t.pos++
	}
	return name, gohtml.UnescapeString(t.input[start:t.pos]), nil
}

// readText reads up to the next '<'. Whitespace-only runs between tags are
// dropped; other text keeps one boundary space on each side so inline flow
// ("a <em>b</em> c") keeps its word gaps.
func (t *Tokenizer) readText() (Token, bool) {
	start := t.pos
	for t.pos < len(t.input) && t.input[t.pos] != '<' {
		t.pos++
	}
	raw := t.input[start:t.pos]
	if strings.TrimSpace(raw) == "" {
		if strings.ContainsAny(raw, " \t") && !strings.Contains(raw, "\n") {
			return Token{Type: TokenText, Text: " "}, true
		}
		return Token{}, false
	}
	return Token{Type: TokenText, Text: gohtml.UnescapeString(normalizeWhitespace(raw))}, true
}

func normalizeWhitespace(s string) string {
	result := strings.Join(strings.Fields(s), " ")
	if unicode.IsSpace(rune(s[0])) {
		result = " " + result
	}
	if unicode.IsSpace(rune(s[len(s)-1])) {
		result += " "
	}
	return result
}

func (t *Tokenizer) skipWhitespace() {
	for t.pos < len(t.input) && unicode.IsSpace(rune(t.input[t.pos])) {
		t.pos++
	}
}

// ReadRawUntil reads raw content up to the closing tag (e.g. </script>),
// matched case-insensitively, and consumes the closing tag.
func (t *Tokenizer) ReadRawUntil(endTag string) string {
	needle := "</" + strings.ToLower(endTag)
	lower := strings.ToLower(t.input[t.pos:])
	idx := strings.Index(lower, needle)
	if idx < 0 {
		content := t.input[t.pos:]
		t.pos = len(t.input)
		return content
	}
	content := t.input[t.pos : t.pos+idx]
	t.pos += idx
	if end := strings.IndexByte(t.input[t.pos:], '>'); end >= 0 {
		t.pos += end + 1
	} else {
		t.pos = len(t.input)
	}
	return content
}

func isTagNameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isAttributeNameChar(c byte) bool {
	return isTagNameChar(c) || c == ':' || c == '.'
}
