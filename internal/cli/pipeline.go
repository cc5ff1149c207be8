package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"marginalia/pkg/config"
	"marginalia/pkg/html"
	"marginalia/pkg/page"
	"marginalia/pkg/post"
	"marginalia/pkg/resource"
	"marginalia/pkg/schedule"
	"marginalia/pkg/text"
)

// viewport holds the --width and --height flags. Zero means the configured
// value.
type viewport struct {
	width, height float64
}

func (v *viewport) addFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&v.width, "width", 0, "viewport width in pixels (default from config)")
	cmd.Flags().Float64Var(&v.height, "height", 0, "viewport height in pixels (default from config)")
}

func (c *CLI) resolveViewport(v viewport) (float64, float64) {
	w, h := v.width, v.height
	if w <= 0 {
		w = c.Config.Viewport.Width
	}
	if h <= 0 {
		h = c.Config.Viewport.Height
	}
	return w, h
}

func (c *CLI) pageOptions(ctx context.Context, width, height float64) (page.Options, error) {
	measurer, err := text.NewMeasurer(c.Config.FontConfig())
	if err != nil {
		return page.Options{}, fmt.Errorf("load fonts: %w", err)
	}
	return page.Options{
		Width:      width,
		Height:     height,
		Breakpoint: c.Config.Margin.Breakpoint,
		Margin:     c.Config.MarginOptions(),
		Selectors:  c.Config.MarginSelectors(),
		Measurer:   measurer,
		Logger:     loggerFromContext(ctx),
	}, nil
}

func isPost(input string) bool {
	return strings.EqualFold(filepath.Ext(input), ".md")
}

// openPage loads an HTML document or a Markdown post.
func (c *CLI) openPage(ctx context.Context, input string, width, height float64) (*page.Page, error) {
	opts, err := c.pageOptions(ctx, width, height)
	if err != nil {
		return nil, err
	}
	if !isPost(input) {
		return page.Load(ctx, nil, input, opts)
	}

	src, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("read post: %w", err)
	}
	article, err := post.RenderArticle(string(src), "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}
	doc, err := html.Parse(article)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", input, err)
	}
	opts.Fetcher = resource.ForDocument(input)
	return page.New(doc, opts)
}

// settle replays the events a reader's browser would deliver: content
// ready, scripts, image loads and window load. The scheduler runs on a
// virtual clock so every debounce and the safety net fire before settle
// returns.
func (c *CLI) settle(ctx context.Context, p *page.Page) (schedule.State, error) {
	logger := loggerFromContext(ctx)
	clock := schedule.NewFakeClock()
	opts := c.Config.ScheduleOptions()
	opts.Clock = clock
	opts.Logger = logger
	var passErr error
	opts.AfterPass = func(_ schedule.State, err error) {
		if err != nil {
			passErr = err
		}
	}
	s := schedule.New(p, opts)
	defer s.Close()
	p.OnRelayoutRequest(s.ContentChanged)

	width, _ := p.Viewport()
	s.Ready(width)
	if err := p.RunScripts(); err != nil {
		logger.Warn("page script failed", "err", err)
	}
	if err := p.LoadImages(ctx, s.ImageLoaded); err != nil {
		logger.Warn("images failed to load", "err", err)
	}
	s.Load()
	clock.Advance(max(opts.Debounce, opts.SafetyDelay))
	return s.State(), passErr
}

// prepare opens and settles input.
func (c *CLI) prepare(ctx context.Context, input string, v viewport) (*page.Page, error) {
	prog := newProgress(loggerFromContext(ctx))
	w, h := c.resolveViewport(v)
	if err := config.CheckViewport(w, h); err != nil {
		return nil, err
	}
	p, err := c.openPage(ctx, input, w, h)
	if err != nil {
		return nil, err
	}
	state, err := c.settle(ctx, p)
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Laid out %s at %gpx, %d notes placed, %s", filepath.Base(input), w, len(p.Placements()), state))
	return p, nil
}
