package page

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"marginalia/pkg/margin"
)

//go:embed default.css
var defaultCSS string

var defaultTemplate = template.Must(template.New("default.css").Parse(defaultCSS))

// DefaultStylesheet returns the margin-note rules for the given selectors.
// Below the breakpoint notes stay in flow; above it they leave the flow and
// stay invisible until positioned.
func DefaultStylesheet(sel margin.Selectors, opts margin.Options, breakpoint float64) (string, error) {
	var sb strings.Builder
	err := defaultTemplate.Execute(&sb, map[string]string{
		"Container":  strings.Join(sel.Container, ", "),
		"Note":       sel.Note,
		"Positioned": sel.Positioned,
		"Breakpoint": num(breakpoint),
		"Width":      num(opts.Width),
		"Right":      num(opts.Right),
	})
	if err != nil {
		return "", fmt.Errorf("default stylesheet: %w", err)
	}
	return sb.String(), nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
