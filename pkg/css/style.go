package css

import (
	"strconv"
	"strings"
)

// RootFontSize is the font-size rem units resolve against.
const RootFontSize = 16.0

// Style is a flat set of longhand properties for one element.
type Style struct {
	Properties map[string]string
}

func NewStyle() *Style {
	return &Style{Properties: make(map[string]string)}
}

func (s *Style) Get(property string) (string, bool) {
	val, ok := s.Properties[property]
	return val, ok
}

func (s *Style) Set(property, value string) {
	s.Properties[property] = value
}

// GetLength resolves property to pixels. em units resolve against this
// style's font-size, except for font-size itself which the cascade resolves.
func (s *Style) GetLength(property string) (float64, bool) {
	val, ok := s.Get(property)
	if !ok {
		return 0, false
	}
	return ResolveLength(val, s.GetFontSize())
}

// IsAuto reports whether property is explicitly set to auto.
func (s *Style) IsAuto(property string) bool {
	val, ok := s.Get(property)
	return ok && strings.TrimSpace(val) == "auto"
}

// ParseLength parses a pixel value ("100px" or "100").
func ParseLength(val string) (float64, bool) {
	val = strings.TrimSpace(val)
	val = strings.TrimSuffix(val, "px")
	num, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}

// ResolveLength parses px, em and rem lengths. Percentages and keywords are
// not lengths here and report false.
func ResolveLength(val string, fontSize float64) (float64, bool) {
	val = strings.TrimSpace(val)
	switch {
	case strings.HasSuffix(val, "rem"):
		n, err := strconv.ParseFloat(strings.TrimSuffix(val, "rem"), 64)
		return n * RootFontSize, err == nil
	case strings.HasSuffix(val, "em"):
		n, err := strconv.ParseFloat(strings.TrimSuffix(val, "em"), 64)
		return n * fontSize, err == nil
	case strings.HasSuffix(val, "%"):
		return 0, false
	}
	return ParseLength(val)
}

// ParsePercent parses "50%" into 0.5.
func ParsePercent(val string) (float64, bool) {
	val = strings.TrimSpace(val)
	if !strings.HasSuffix(val, "%") {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(val, "%"), 64)
	if err != nil {
		return 0, false
	}
	return n / 100, true
}

// GetLengthOrPercent resolves property against base when it is a percentage.
func (s *Style) GetLengthOrPercent(property string, base float64) (float64, bool) {
	val, ok := s.Get(property)
	if !ok {
		return 0, false
	}
	if p, ok := ParsePercent(val); ok {
		return p * base, true
	}
	return ResolveLength(val, s.GetFontSize())
}

// BoxEdge represents the four sides of a box (top, right, bottom, left)
type BoxEdge struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

func (s *Style) GetMargin() BoxEdge {
	return s.edge("margin-%s")
}

func (s *Style) GetPadding() BoxEdge {
	return s.edge("padding-%s")
}

// GetBorderWidth only counts sides whose border-style draws something.
func (s *Style) GetBorderWidth() BoxEdge {
	e := s.edge("border-%s-width")
	if st, _ := s.Get("border-style"); st == "" || st == "none" || st == "hidden" {
		return BoxEdge{}
	}
	return e
}

func (s *Style) edge(pattern string) BoxEdge {
	side := func(name string) float64 {
		v, ok := s.GetLength(strings.Replace(pattern, "%s", name, 1))
		if !ok {
			return 0
		}
		return v
	}
	return BoxEdge{Top: side("top"), Right: side("right"), Bottom: side("bottom"), Left: side("left")}
}

type PositionType string

const (
	PositionStatic   PositionType = "static"
	PositionRelative PositionType = "relative"
	PositionAbsolute PositionType = "absolute"
	PositionFixed    PositionType = "fixed"
)

func (s *Style) GetPosition() PositionType {
	switch pos, _ := s.Get("position"); pos {
	case "relative":
		return PositionRelative
	case "absolute":
		return PositionAbsolute
	case "fixed":
		return PositionFixed
	}
	return PositionStatic
}

// PositionOffset holds top/right/bottom/left for positioned boxes. The Has
// flags distinguish an unset offset from an explicit zero.
type PositionOffset struct {
	Top, Right, Bottom, Left             float64
	HasTop, HasRight, HasBottom, HasLeft bool
}

func (s *Style) GetPositionOffset() PositionOffset {
	var off PositionOffset
	off.Top, off.HasTop = s.GetLength("top")
	off.Right, off.HasRight = s.GetLength("right")
	off.Bottom, off.HasBottom = s.GetLength("bottom")
	off.Left, off.HasLeft = s.GetLength("left")
	return off
}

// ParseInlineStyle parses a style attribute, expanding shorthands.
func ParseInlineStyle(styleAttr string) *Style {
	style := NewStyle()
	for _, d := range ParseDeclarations(styleAttr) {
		expandShorthand(style, d.Property, d.Value)
	}
	return style
}

func expandShorthand(style *Style, property, value string) {
	switch property {
	case "margin", "padding":
		expandBoxProperty(style, property, value, "")
	case "border-width":
		expandBoxProperty(style, "border", value, "-width")
	case "border":
		expandBorderProperty(style, value)
	case "background":
		if _, ok := ParseColor(value); ok {
			style.Set("background-color", value)
		}
	default:
		style.Set(property, value)
	}
}

// expandBoxProperty handles the 1 to 4 value forms of margin and padding.
func expandBoxProperty(style *Style, prefix, value, suffix string) {
	parts := strings.Fields(value)
	var top, right, bottom, left string
	switch len(parts) {
	case 1:
		top, right, bottom, left = parts[0], parts[0], parts[0], parts[0]
	case 2:
		top, right, bottom, left = parts[0], parts[1], parts[0], parts[1]
	case 3:
		top, right, bottom, left = parts[0], parts[1], parts[2], parts[1]
	case 4:
		top, right, bottom, left = parts[0], parts[1], parts[2], parts[3]
	default:
		return
	}
	style.Set(prefix+"-top"+suffix, top)
	style.Set(prefix+"-right"+suffix, right)
	style.Set(prefix+"-bottom"+suffix, bottom)
	style.Set(prefix+"-left"+suffix, left)
}

// expandBorderProperty expands "1px solid black" style shorthands.
func expandBorderProperty(style *Style, value string) {
	for _, part := range strings.Fields(value) {
		switch {
		case part == "solid" || part == "dotted" || part == "dashed" || part == "double" || part == "none":
			style.Set("border-style", part)
		case isLengthToken(part):
			for _, side := range []string{"top", "right", "bottom", "left"} {
				style.Set("border-"+side+"-width", part)
			}
		default:
			style.Set("border-color", part)
		}
	}
}

func isLengthToken(s string) bool {
	_, ok := ResolveLength(s, RootFontSize)
	return ok
}

// GetFontSize returns the font-size in pixels (default: 16px). The cascade
// stores computed pixel sizes, so relative units here resolve against the root.
func (s *Style) GetFontSize() float64 {
	if val, ok := s.Get("font-size"); ok {
		if size, ok := ResolveLength(val, RootFontSize); ok {
			return size
		}
	}
	return RootFontSize
}

// GetLineHeight returns the line-height in pixels. Unitless values multiply
// the font-size; the default is 1.2.
func (s *Style) GetLineHeight() float64 {
	fs := s.GetFontSize()
	val, ok := s.Get("line-height")
	if !ok || val == "normal" {
		return fs * 1.2
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
		return n * fs
	}
	if p, ok := ParsePercent(val); ok {
		return p * fs
	}
	if lh, ok := ResolveLength(val, fs); ok {
		return lh
	}
	return fs * 1.2
}

// GetColor returns the text color (default: black)
func (s *Style) GetColor() Color {
	if colorStr, ok := s.Get("color"); ok {
		if c, ok := ParseColor(colorStr); ok {
			return c
		}
	}
	return Color{A: 255}
}

// GetBackgroundColor reports false for unset or transparent backgrounds.
func (s *Style) GetBackgroundColor() (Color, bool) {
	v, ok := s.Get("background-color")
	if !ok {
		return Color{}, false
	}
	c, ok := ParseColor(v)
	if !ok || c.A == 0 {
		return Color{}, false
	}
	return c, true
}

// GetBorderColor defaults to the text color.
func (s *Style) GetBorderColor() Color {
	if v, ok := s.Get("border-color"); ok {
		if c, ok := ParseColor(v); ok {
			return c
		}
	}
	return s.GetColor()
}

// GetOpacity clamps to [0, 1] and defaults to 1.
func (s *Style) GetOpacity() float64 {
	v, ok := s.Get("opacity")
	if !ok {
		return 1
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 1
	}
	return max(0, min(1, n))
}

type TextAlign string

const (
	TextAlignLeft    TextAlign = "left"
	TextAlignRight   TextAlign = "right"
	TextAlignCenter  TextAlign = "center"
	TextAlignJustify TextAlign = "justify"
	TextAlignStart   TextAlign = "start"
	TextAlignEnd     TextAlign = "end"
)

// GetTextAlign returns the text-align value (default: start)
func (s *Style) GetTextAlign() TextAlign {
	switch align, _ := s.Get("text-align"); align {
	case "left":
		return TextAlignLeft
	case "right":
		return TextAlignRight
	case "center":
		return TextAlignCenter
	case "justify":
		return TextAlignJustify
	case "end":
		return TextAlignEnd
	}
	return TextAlignStart
}

// GetDirection returns "rtl" or "ltr".
func (s *Style) GetDirection() string {
	if d, _ := s.Get("direction"); d == "rtl" {
		return "rtl"
	}
	return "ltr"
}

type FontWeight string

const (
	FontWeightNormal FontWeight = "normal"
	FontWeightBold   FontWeight = "bold"
)

func (s *Style) GetFontWeight() FontWeight {
	switch w, _ := s.Get("font-weight"); w {
	case "bold", "bolder", "600", "700", "800", "900":
		return FontWeightBold
	}
	return FontWeightNormal
}

func (s *Style) IsItalic() bool {
	st, _ := s.Get("font-style")
	return st == "italic" || st == "oblique"
}

type DisplayType string

const (
	DisplayBlock       DisplayType = "block"
	DisplayInline      DisplayType = "inline"
	DisplayInlineBlock DisplayType = "inline-block"
	DisplayNone        DisplayType = "none"
)

// GetDisplay returns the display value (default: inline). Layout modes this
// engine does not implement fall back to block.
func (s *Style) GetDisplay() DisplayType {
	display, ok := s.Get("display")
	if !ok {
		return DisplayInline
	}
	switch display {
	case "inline":
		return DisplayInline
	case "inline-block":
		return DisplayInlineBlock
	case "none":
		return DisplayNone
	}
	return DisplayBlock
}
