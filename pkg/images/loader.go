package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"marginalia/pkg/resource"
)

// Loader decodes images through a fetcher and caches both the decoded
// images and their dimensions. Safe for concurrent use.
type Loader struct {
	fetcher resource.Fetcher
	mu      sync.RWMutex
	cache   map[string]image.Image
	sizes   map[string]image.Point
}

// NewLoader returns a loader reading through fetcher. A nil fetcher reads
// data URIs and paths relative to the working directory.
func NewLoader(fetcher resource.Fetcher) *Loader {
	if fetcher == nil {
		fetcher = resource.NewFetcher("")
	}
	return &Loader{
		fetcher: fetcher,
		cache:   make(map[string]image.Image),
		sizes:   make(map[string]image.Point),
	}
}

// IsDataURI reports whether src is an inline data: URI.
func IsDataURI(src string) bool {
	return strings.HasPrefix(src, "data:")
}

// Load fetches and decodes src.
func (l *Loader) Load(ctx context.Context, src string) (image.Image, error) {
	l.mu.RLock()
	if img, ok := l.cache[src]; ok {
		l.mu.RUnlock()
		return img, nil
	}
	l.mu.RUnlock()

	body, _, err := l.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", shortName(src), err)
	}

	l.mu.Lock()
	l.cache[src] = img
	l.sizes[src] = img.Bounds().Size()
	l.mu.Unlock()
	return img, nil
}

// Dimensions returns the intrinsic size of src, decoding only the header
// when the image is not cached yet.
func (l *Loader) Dimensions(ctx context.Context, src string) (width, height int, err error) {
	l.mu.RLock()
	if p, ok := l.sizes[src]; ok {
		l.mu.RUnlock()
		return p.X, p.Y, nil
	}
	l.mu.RUnlock()

	body, _, err := l.fetcher.Fetch(ctx, src)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", shortName(src), err)
	}

	l.mu.Lock()
	l.sizes[src] = image.Pt(cfg.Width, cfg.Height)
	l.mu.Unlock()
	return cfg.Width, cfg.Height, nil
}

// Cached returns the size of src if it has been resolved before. Layout uses
// this so it never blocks on I/O.
func (l *Loader) Cached(src string) (width, height int, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.sizes[src]
	return p.X, p.Y, ok
}

func shortName(src string) string {
	if IsDataURI(src) && len(src) > 32 {
		return src[:32] + "..."
	}
	return src
}
