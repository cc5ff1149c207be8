// Package config loads marginalia settings.
//
// Settings start from Default, are overlaid by an optional TOML file and then
// by MARGINALIA_* environment variables, and are finally checked by Validate.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/BurntSushi/toml"

	"marginalia/pkg/margin"
	"marginalia/pkg/schedule"
	"marginalia/pkg/text"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// MaxViewport bounds either viewport dimension. Rendering allocates a full
// RGBA image of the viewport.
const MaxViewport = 10000

// CheckViewport reports a width or height that is not a finite number in
// (0, MaxViewport].
func CheckViewport(width, height float64) error {
	for _, d := range []struct {
		name string
		v    float64
	}{{"width", width}, {"height", height}} {
		if math.IsNaN(d.v) || d.v <= 0 || d.v > MaxViewport {
			return fmt.Errorf("%w: viewport %s %v is outside (0, %d]", ErrInvalid, d.name, d.v, MaxViewport)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type Config struct {
	Viewport  Viewport  `toml:"viewport" envPrefix:"MARGINALIA_VIEWPORT_"`
	Margin    Margin    `toml:"margin" envPrefix:"MARGINALIA_MARGIN_"`
	Selectors Selectors `toml:"selectors" envPrefix:"MARGINALIA_SELECTORS_"`
	Schedule  Schedule  `toml:"schedule" envPrefix:"MARGINALIA_SCHEDULE_"`
	Fonts     Fonts     `toml:"fonts" envPrefix:"MARGINALIA_FONTS_"`
	Posts     Posts     `toml:"posts" envPrefix:"MARGINALIA_POSTS_"`
}

type Viewport struct {
	Width  float64 `toml:"width" env:"WIDTH"`
	Height float64 `toml:"height" env:"HEIGHT"`
}

type Margin struct {
	Breakpoint float64 `toml:"breakpoint" env:"BREAKPOINT"`
	Spacing    float64 `toml:"spacing" env:"SPACING"`
	Width      float64 `toml:"width" env:"WIDTH"`
	Right      float64 `toml:"right" env:"RIGHT"`
	Adjust     float64 `toml:"adjust" env:"ADJUST"`
	TextAlign  string  `toml:"text_align" env:"TEXT_ALIGN"`
}

type Selectors struct {
	Container  []string `toml:"container" env:"CONTAINER"`
	Trigger    string   `toml:"trigger" env:"TRIGGER"`
	Note       string   `toml:"note" env:"NOTE"`
	Positioned string   `toml:"positioned" env:"POSITIONED"`
}

type Schedule struct {
	Debounce    Duration `toml:"debounce" env:"DEBOUNCE"`
	SafetyDelay Duration `toml:"safety_delay" env:"SAFETY_DELAY"`
}

// Fonts holds TrueType paths. Empty entries use the embedded Go fonts.
type Fonts struct {
	Regular    string `toml:"regular" env:"REGULAR"`
	Bold       string `toml:"bold" env:"BOLD"`
	Italic     string `toml:"italic" env:"ITALIC"`
	BoldItalic string `toml:"bold_italic" env:"BOLD_ITALIC"`
}

type Posts struct {
	Dir    string   `toml:"dir" env:"DIR"`
	Author string   `toml:"author" env:"AUTHOR"`
	Tags   []string `toml:"tags" env:"TAGS"`
}

func Default() Config {
	sel := margin.DefaultSelectors()
	return Config{
		Viewport: Viewport{Width: 1280, Height: 800},
		Margin: Margin{
			Breakpoint: schedule.DefaultBreakpoint,
			Spacing:    margin.DefaultSpacing,
			Width:      margin.DefaultWidth,
			Right:      margin.DefaultRight,
			TextAlign:  margin.AlignAuto,
		},
		Selectors: Selectors{
			Container:  sel.Container,
			Trigger:    sel.Trigger,
			Note:       sel.Note,
			Positioned: sel.Positioned,
		},
		Schedule: Schedule{
			Debounce:    Duration{schedule.DefaultDebounce},
			SafetyDelay: Duration{schedule.DefaultSafetyDelay},
		},
		Posts: Posts{Dir: "_posts"},
	}
}

// Load builds the effective configuration. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undecoded[0].String(), path)
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem found, each wrapping ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	if err := CheckViewport(c.Viewport.Width, c.Viewport.Height); err != nil {
		errs = append(errs, err)
	}
	for name, v := range map[string]float64{
		"breakpoint": c.Margin.Breakpoint,
		"spacing":    c.Margin.Spacing,
		"width":      c.Margin.Width,
		"right":      c.Margin.Right,
		"adjust":     c.Margin.Adjust,
	} {
		if !finite(v) {
			bad("margin.%s must be a finite number, got %v", name, v)
		}
	}
	if c.Margin.Breakpoint < 0 {
		bad("margin.breakpoint must not be negative")
	}
	if c.Margin.Spacing < 0 {
		bad("margin.spacing must not be negative")
	}
	if c.Margin.Width <= 0 {
		bad("margin.width must be positive")
	}
	switch c.Margin.TextAlign {
	case margin.AlignAuto, margin.AlignLeft, margin.AlignRight:
	default:
		bad("margin.text_align %q is not auto, left or right", c.Margin.TextAlign)
	}
	if len(c.Selectors.Container) == 0 {
		bad("selectors.container is empty")
	}
	if c.Selectors.Trigger == "" || c.Selectors.Note == "" || c.Selectors.Positioned == "" {
		bad("selectors.trigger, note and positioned are required")
	}
	if c.Schedule.Debounce.Duration < 0 || c.Schedule.SafetyDelay.Duration < 0 {
		bad("schedule delays must not be negative")
	}
	return errors.Join(errs...)
}

// Write encodes c as TOML.
func (c Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func (c Config) MarginOptions() margin.Options {
	return margin.Options{
		Spacing:   c.Margin.Spacing,
		Width:     c.Margin.Width,
		Right:     c.Margin.Right,
		Adjust:    c.Margin.Adjust,
		TextAlign: c.Margin.TextAlign,
	}
}

func (c Config) MarginSelectors() margin.Selectors {
	return margin.Selectors{
		Container:  append([]string(nil), c.Selectors.Container...),
		Trigger:    c.Selectors.Trigger,
		Note:       c.Selectors.Note,
		Positioned: c.Selectors.Positioned,
	}
}

// ScheduleOptions returns scheduler options without a clock or logger.
func (c Config) ScheduleOptions() schedule.Options {
	return schedule.Options{
		Breakpoint:  c.Margin.Breakpoint,
		Debounce:    c.Schedule.Debounce.Duration,
		SafetyDelay: c.Schedule.SafetyDelay.Duration,
	}
}

func (c Config) FontConfig() text.FontConfig {
	return text.FontConfig{
		Regular:    c.Fonts.Regular,
		Bold:       c.Fonts.Bold,
		Italic:     c.Fonts.Italic,
		BoldItalic: c.Fonts.BoldItalic,
	}
}
