package css

import (
	"regexp"
	"strings"
)

// Rule represents a CSS rule (selector + declarations). A selector list in
// the source produces one Rule per member selector.
type Rule struct {
	Selector     Selector
	Declarations map[string]string // longhand property -> value
	MediaQuery   *MediaQuery       // nil outside @media
	Order        int               // source order, for cascade ties
}

type Stylesheet struct {
	Rules []Rule
}

var commentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)

// ParseStylesheet parses CSS text. Malformed rules and unsupported at-rules
// are skipped; parsing never fails on content.
func ParseStylesheet(css string) (*Stylesheet, error) {
	sheet := &Stylesheet{Rules: make([]Rule, 0)}
	css = commentPattern.ReplaceAllString(css, "")
	order := 0
	parseBlock(sheet, css, nil, &order)
	return sheet, nil
}

// ParseStylesheets parses each text in order. Sheets later in the slice win
// specificity ties.
func ParseStylesheets(texts []string) []*Stylesheet {
	sheets := make([]*Stylesheet, 0, len(texts))
	for _, t := range texts {
		if sheet, err := ParseStylesheet(t); err == nil {
			sheets = append(sheets, sheet)
		}
	}
	return sheets
}

func parseBlock(sheet *Stylesheet, css string, media *MediaQuery, order *int) {
	for _, chunk := range splitRules(css) {
		brace := strings.IndexByte(chunk, '{')
		prelude := strings.TrimSpace(chunk[:brace])
		body := chunk[brace+1 : strings.LastIndexByte(chunk, '}')]

		if strings.HasPrefix(prelude, "@") {
			if strings.HasPrefix(prelude, "@media") {
				mq := ParseMediaQuery(strings.TrimPrefix(prelude, "@media"))
				parseBlock(sheet, body, &mq, order)
			}
			continue
		}

		selectors, err := ParseSelectorList(prelude)
		if err != nil {
			continue
		}
		decls := parseDeclarations(body)
		for _, sel := range selectors {
			sheet.Rules = append(sheet.Rules, Rule{
				Selector:     sel,
				Declarations: decls,
				MediaQuery:   media,
				Order:        *order,
			})
			*order++
		}
	}
}

// splitRules splits CSS into top-level "prelude { ... }" chunks, honouring
// nested braces. Statements such as @import without a block are dropped.
func splitRules(css string) []string {
	rules := make([]string, 0)
	depth := 0
	start := 0
	for i, ch := range css {
		switch ch {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				start = i + 1
				continue
			}
			depth--
			if depth == 0 {
				chunk := css[start : i+1]
				if semi := strings.LastIndexByte(chunk[:strings.IndexByte(chunk, '{')], ';'); semi >= 0 {
					chunk = chunk[semi+1:]
				}
				if strings.TrimSpace(chunk) != "" {
					rules = append(rules, chunk)
				}
				start = i + 1
			}
		}
	}
	return rules
}

// parseDeclarations parses a rule body into longhand properties.
func parseDeclarations(declStr string) map[string]string {
	style := NewStyle()
	for _, d := range ParseDeclarations(declStr) {
		expandShorthand(style, d.Property, d.Value)
	}
	return style.Properties
}
