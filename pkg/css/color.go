package css

import (
	"strconv"
	"strings"
)

// Color is a non-premultiplied sRGB colour. It implements image/color.Color.
type Color struct {
	R, G, B, A uint8
}

func (c Color) RGBA() (r, g, b, a uint32) {
	a = uint32(c.A)
	a |= a << 8
	r = uint32(c.R)
	r |= r << 8
	r = r * a / 0xffff
	g = uint32(c.G)
	g |= g << 8
	g = g * a / 0xffff
	b = uint32(c.B)
	b |= b << 8
	b = b * a / 0xffff
	return
}

var namedColors = map[string]Color{
	"black":       {0, 0, 0, 255},
	"white":       {255, 255, 255, 255},
	"red":         {255, 0, 0, 255},
	"green":       {0, 128, 0, 255},
	"blue":        {0, 0, 255, 255},
	"yellow":      {255, 255, 0, 255},
	"cyan":        {0, 255, 255, 255},
	"magenta":     {255, 0, 255, 255},
	"gray":        {128, 128, 128, 255},
	"grey":        {128, 128, 128, 255},
	"lightgray":   {211, 211, 211, 255},
	"darkgray":    {169, 169, 169, 255},
	"orange":      {255, 165, 0, 255},
	"purple":      {128, 0, 128, 255},
	"pink":        {255, 192, 203, 255},
	"brown":       {165, 42, 42, 255},
	"lime":        {0, 255, 0, 255},
	"navy":        {0, 0, 128, 255},
	"teal":        {0, 128, 128, 255},
	"silver":      {192, 192, 192, 255},
	"whitesmoke":  {245, 245, 245, 255},
	"transparent": {0, 0, 0, 0},
}

// ParseColor accepts named colours, #rgb, #rrggbb, #rrggbbaa, rgb() and rgba().
func ParseColor(colorStr string) (Color, bool) {
	colorStr = strings.ToLower(strings.TrimSpace(colorStr))
	if c, ok := namedColors[colorStr]; ok {
		return c, true
	}
	if strings.HasPrefix(colorStr, "#") {
		return parseHexColor(colorStr[1:])
	}
	if strings.HasPrefix(colorStr, "rgb") {
		return parseRGBFunc(colorStr)
	}
	return Color{}, false
}

func parseHexColor(hex string) (Color, bool) {
	switch len(hex) {
	case 3, 4:
		var expanded strings.Builder
		for _, ch := range hex {
			expanded.WriteRune(ch)
			expanded.WriteRune(ch)
		}
		hex = expanded.String()
	case 6, 8:
	default:
		return Color{}, false
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, false
	}
	return Color{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, true
}

func parseRGBFunc(s string) (Color, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Color{}, false
	}
	args := strings.FieldsFunc(s[open+1:len(s)-1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(args) != 3 && len(args) != 4 {
		return Color{}, false
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return Color{}, false
		}
		ch[i] = uint8(max(0, min(255, n)))
	}
	alpha := uint8(255)
	if len(args) == 4 {
		a, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return Color{}, false
		}
		alpha = uint8(max(0, min(1, a)) * 255)
	}
	return Color{R: ch[0], G: ch[1], B: ch[2], A: alpha}, true
}
