package text

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// FontConfig holds paths to TrueType files. An empty path selects the
// embedded Go font for that style.
type FontConfig struct {
	Regular    string
	Bold       string
	Italic     string
	BoldItalic string
}

// FontPath returns the font path for the given style combination.
func (fc FontConfig) FontPath(bold, italic bool) string {
	switch {
	case bold && italic && fc.BoldItalic != "":
		return fc.BoldItalic
	case bold && fc.Bold != "":
		return fc.Bold
	case italic && fc.Italic != "":
		return fc.Italic
	case bold || italic:
		// A configured regular face is preferred over mixing in the Go fonts.
		if fc.Regular != "" && fc.Bold == "" && fc.Italic == "" && fc.BoldItalic == "" {
			return fc.Regular
		}
		return ""
	}
	return fc.Regular
}

func embeddedTTF(bold, italic bool) []byte {
	switch {
	case bold && italic:
		return gobolditalic.TTF
	case bold:
		return gobold.TTF
	case italic:
		return goitalic.TTF
	}
	return goregular.TTF
}

type fontKey struct {
	bold, italic bool
}

type faceKey struct {
	fontKey
	size float64
}

// Measurer measures and breaks text. truetype faces are not safe for
// concurrent use, so every measurement holds mu.
type Measurer struct {
	cfg   FontConfig
	mu    sync.Mutex
	fonts map[fontKey]*truetype.Font
	faces map[faceKey]font.Face
}

// NewMeasurer parses every configured font file up front so a bad path
// surfaces as an error instead of a silent fallback.
func NewMeasurer(cfg FontConfig) (*Measurer, error) {
	m := &Measurer{
		cfg:   cfg,
		fonts: make(map[fontKey]*truetype.Font),
		faces: make(map[faceKey]font.Face),
	}
	for _, k := range []fontKey{{false, false}, {true, false}, {false, true}, {true, true}} {
		if _, err := m.font(k); err != nil {
			return nil, err
		}
	}
	return m, nil
}

var (
	defaultOnce     sync.Once
	defaultMeasurer *Measurer
)

// Default returns a shared measurer over the embedded Go fonts.
func Default() *Measurer {
	defaultOnce.Do(func() {
		m, err := NewMeasurer(FontConfig{})
		if err != nil {
			panic(fmt.Sprintf("embedded fonts: %v", err))
		}
		defaultMeasurer = m
	})
	return defaultMeasurer
}

func (m *Measurer) font(k fontKey) (*truetype.Font, error) {
	if f, ok := m.fonts[k]; ok {
		return f, nil
	}
	data := embeddedTTF(k.bold, k.italic)
	if path := m.cfg.FontPath(k.bold, k.italic); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = b
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", m.cfg.FontPath(k.bold, k.italic), err)
	}
	m.fonts[k] = f
	return f, nil
}

// face must be called with mu held.
func (m *Measurer) face(size float64, bold, italic bool) font.Face {
	key := faceKey{fontKey{bold, italic}, size}
	if f, ok := m.faces[key]; ok {
		return f
	}
	f, err := m.font(key.fontKey)
	if err != nil {
		// Only reachable for configs that failed NewMeasurer.
		f, _ = truetype.Parse(goregular.TTF)
	}
	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
	m.faces[key] = face
	return face
}

// NewFace returns a face the caller owns, for painting on another goroutine.
func (m *Measurer) NewFace(size float64, bold, italic bool) font.Face {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.font(fontKey{bold, italic})
	if err != nil {
		f, _ = truetype.Parse(goregular.TTF)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

// Warm builds the faces for the given sizes in every style.
func (m *Measurer) Warm(sizes ...float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, size := range sizes {
		for _, k := range []fontKey{{false, false}, {true, false}, {false, true}, {true, true}} {
			m.face(size, k.bold, k.italic)
		}
	}
}

// Measure returns the advance width of s in pixels.
func (m *Measurer) Measure(s string, size float64, bold, italic bool) float64 {
	if s == "" {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return toFloat(font.MeasureString(m.face(size, bold, italic), s))
}

// Metrics returns the ascent and descent for a face in pixels.
func (m *Measurer) Metrics(size float64, bold, italic bool) (ascent, descent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	met := m.face(size, bold, italic).Metrics()
	return toFloat(met.Ascent), toFloat(met.Descent)
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// Wrap breaks text into lines that fit within maxWidth. A word wider than
// maxWidth gets a line of its own.
func (m *Measurer) Wrap(text string, size float64, bold, italic bool, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	lines := make([]string, 0)
	currentLine := ""
	for _, word := range words {
		testLine := word
		if currentLine != "" {
			testLine = currentLine + " " + word
		}
		if m.Measure(testLine, size, bold, italic) <= maxWidth || currentLine == "" {
			currentLine = testLine
			continue
		}
		lines = append(lines, currentLine)
		currentLine = word
	}
	return append(lines, currentLine)
}
