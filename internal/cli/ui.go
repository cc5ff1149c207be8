package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"marginalia/pkg/margin"
)

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorAmber = lipgloss.Color("220")
	colorWhite = lipgloss.Color("255")
	colorDim   = lipgloss.Color("240")
)

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning = lipgloss.NewStyle().Foreground(colorAmber)

	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorDim)
)

const (
	iconSuccess = "✓"
	iconArrow   = "→"
)

// Placement is the JSON form of a margin placement.
type Placement struct {
	Index   int     `json:"index"`
	Trigger string  `json:"trigger"`
	Note    string  `json:"note"`
	Desired float64 `json:"desired"`
	Top     float64 `json:"top"`
	Right   float64 `json:"right"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Clamped bool    `json:"clamped"`
}

func placementRecords(ps []margin.Placement) []Placement {
	out := make([]Placement, len(ps))
	for i, p := range ps {
		out[i] = Placement{
			Index:   i,
			Trigger: strings.TrimSpace(p.Trigger.TextContent()),
			Note:    strings.TrimSpace(p.Note.TextContent()),
			Desired: round2(p.Desired),
			Top:     round2(p.Top),
			Right:   p.Right,
			Width:   p.Width,
			Height:  round2(p.Height),
			Clamped: p.Clamped,
		}
	}
	return out
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// printPlacements writes an aligned table of placements.
func printPlacements(w io.Writer, title string, ps []Placement) {
	fmt.Fprintln(w, StyleTitle.Render(title))
	if len(ps) == 0 {
		fmt.Fprintln(w, StyleDim.Render("  no margin notes placed"))
		return
	}

	headers := []string{"#", "trigger", "desired", "top", "height", "note"}
	rows := make([][]string, len(ps))
	for i, p := range ps {
		top := fmt.Sprintf("%.2f", p.Top)
		if p.Clamped {
			top += " " + iconArrow
		}
		rows[i] = []string{
			fmt.Sprint(p.Index),
			clip(p.Trigger, 18),
			fmt.Sprintf("%.2f", p.Desired),
			top,
			fmt.Sprintf("%.2f", p.Height),
			clip(p.Note, 40),
		}
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	cell := func(s string, i int, style lipgloss.Style) string {
		return style.Width(widths[i] + 2).Render(s)
	}
	var sb strings.Builder
	sb.WriteString("  ")
	for i, h := range headers {
		sb.WriteString(cell(h, i, styleHeader))
	}
	fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	for _, r := range rows {
		sb.Reset()
		sb.WriteString("  ")
		for i, v := range r {
			style := StyleValue
			switch i {
			case 0, 2, 3, 4:
				style = StyleNumber
			case 5:
				style = StyleDim
			}
			sb.WriteString(cell(v, i, style))
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}
}

func clip(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

func printDone(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, StyleSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}
