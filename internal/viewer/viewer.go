// Package viewer shows a page in a fyne window and keeps its margin notes
// placed as the window is resized.
package viewer

import (
	"context"
	"fmt"
	"image"
	"io"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/log"

	"marginalia/pkg/page"
	"marginalia/pkg/render"
	"marginalia/pkg/schedule"
)

// warmSizes are the font sizes of body text, notes and headings in the
// default stylesheet.
var warmSizes = []float64{16, 12.8, 32, 24}

type Options struct {
	Title    string
	Schedule schedule.Options
	Guides   bool
	Logger   *log.Logger
}

type Viewer struct {
	page   *page.Page
	sched  *schedule.Scheduler
	opts   Options
	logger *log.Logger

	view   *pageView
	status *widget.Label
}

// New wires p to a scheduler. Passes repaint the view.
func New(p *page.Page, opts Options) *Viewer {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	v := &Viewer{page: p, opts: opts, logger: logger}
	sopts := opts.Schedule
	sopts.Logger = logger
	sopts.AfterPass = v.afterPass
	v.sched = schedule.New(p, sopts)
	p.OnRelayoutRequest(v.sched.ContentChanged)
	return v
}

func (v *Viewer) Scheduler() *schedule.Scheduler {
	return v.sched
}

// Run opens the window and blocks until it is closed.
func (v *Viewer) Run(ctx context.Context) error {
	a := app.New()
	title := v.opts.Title
	if title == "" {
		title = "marginalia"
	}
	w := a.NewWindow(title)
	width, height := v.page.Viewport()

	v.status = widget.NewLabel("Loading...")
	v.view = newPageView(v.resized)
	w.SetContent(container.NewBorder(nil, v.status, nil, nil, v.view))
	w.Resize(fyne.NewSize(float32(width), float32(height)))

	go v.start(ctx)
	stop := context.AfterFunc(ctx, func() { fyne.Do(a.Quit) })
	defer stop()
	w.ShowAndRun()
	v.sched.Close()
	return ctx.Err()
}

// start delivers the document lifecycle events to the scheduler.
func (v *Viewer) start(ctx context.Context) {
	width, _ := v.page.Viewport()
	v.sched.Ready(width)
	if err := v.page.RunScripts(); err != nil {
		v.logger.Warn("page script failed", "err", err)
	}
	v.repaint()

	go func() {
		v.page.Measurer().Warm(warmSizes...)
		v.sched.FontsReady()
	}()
	go func() {
		if err := v.page.LoadImages(ctx, v.sched.ImageLoaded); err != nil {
			v.logger.Warn("images failed to load", "err", err)
		}
		v.sched.Load()
	}()
}

// resized runs on the UI goroutine whenever the page area changes width.
func (v *Viewer) resized(width float32) {
	_, height := v.page.Viewport()
	v.page.SetViewport(float64(width), height)
	v.sched.Resize(float64(width))
	if !v.sched.Active() {
		go v.repaint()
	}
}

func (v *Viewer) afterPass(state schedule.State, err error) {
	if err != nil {
		v.logger.Warn("margin pass failed", "err", err)
	}
	go v.repaint()
}

func (v *Viewer) repaint() {
	if v.view == nil {
		return
	}
	img := render.Page(context.Background(), v.page, render.Options{Guides: v.opts.Guides, Logger: v.logger}).Image()
	w, _ := v.page.Viewport()
	msg := fmt.Sprintf("%gpx, %d notes placed, %s", w, len(v.page.Placements()), v.sched.State())
	fyne.Do(func() {
		v.view.setImage(img)
		v.status.SetText(msg)
	})
}

// pageView shows the rendered page in a vertical scroller and reports width
// changes.
type pageView struct {
	widget.BaseWidget
	raster   *canvas.Image
	scroll   *container.Scroll
	onResize func(width float32)
	width    float32
}

func newPageView(onResize func(float32)) *pageView {
	raster := canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	raster.FillMode = canvas.ImageFillOriginal
	v := &pageView{raster: raster, scroll: container.NewVScroll(raster), onResize: onResize}
	v.ExtendBaseWidget(v)
	return v
}

func (v *pageView) setImage(img image.Image) {
	v.raster.Image = img
	v.raster.Refresh()
}

func (v *pageView) CreateRenderer() fyne.WidgetRenderer {
	return &pageViewRenderer{view: v}
}

type pageViewRenderer struct {
	view *pageView
}

func (r *pageViewRenderer) Layout(size fyne.Size) {
	r.view.scroll.Resize(size)
	if size.Width != r.view.width && size.Width > 0 {
		r.view.width = size.Width
		r.view.onResize(size.Width)
	}
}

func (r *pageViewRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *pageViewRenderer) Refresh() {
	r.view.raster.Refresh()
}

func (r *pageViewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.view.scroll}
}

func (r *pageViewRenderer) Destroy() {}
