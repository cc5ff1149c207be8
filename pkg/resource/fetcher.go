package resource

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	stdnet "marginalia/std/net"
)

// ErrUnsupported is returned for URI schemes the fetcher cannot serve.
var ErrUnsupported = errors.New("unsupported uri")

// Fetcher retrieves resources by URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (body []byte, contentType string, err error)
}

// DefaultFetcher serves data: URIs, local files and HTTP(S). Relative
// references resolve against base, which is a directory or a URL.
type DefaultFetcher struct {
	base string
}

// NewFetcher creates a DefaultFetcher with the given base.
func NewFetcher(base string) *DefaultFetcher {
	return &DefaultFetcher{base: base}
}

// ForDocument returns a fetcher whose base is the location of uri.
func ForDocument(uri string) *DefaultFetcher {
	if stdnet.IsNetworkURL(uri) {
		return NewFetcher(uri)
	}
	return NewFetcher(filepath.Dir(strings.TrimPrefix(uri, "file://")))
}

// Resolve returns the absolute location for uri.
func (f *DefaultFetcher) Resolve(uri string) string {
	switch {
	case strings.HasPrefix(uri, "data:"), stdnet.IsNetworkURL(uri):
		return uri
	case stdnet.IsNetworkURL(f.base):
		return stdnet.ResolveURL(f.base, uri)
	}
	path := strings.TrimPrefix(uri, "file://")
	if !filepath.IsAbs(path) && f.base != "" {
		path = filepath.Join(f.base, path)
	}
	return path
}

// Fetch retrieves the resource at the given URI.
func (f *DefaultFetcher) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	resolved := f.Resolve(uri)
	switch {
	case strings.HasPrefix(resolved, "data:"):
		return DecodeDataURI(resolved)
	case stdnet.IsNetworkURL(resolved):
		return stdnet.Fetch(ctx, resolved)
	case strings.Contains(resolved, "://"):
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupported, uri)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	body, err := os.ReadFile(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", resolved, err)
	}
	return body, contentTypeFor(resolved), nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css":
		return "text/css"
	case ".html", ".htm":
		return "text/html"
	case ".js":
		return "text/javascript"
	case ".md":
		return "text/markdown"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return ""
}

// FetchCSS fetches a stylesheet URI and returns its text content.
// Returns an error if the content type does not look like CSS or text.
func (f *DefaultFetcher) FetchCSS(ctx context.Context, uri string) (string, error) {
	body, contentType, err := f.Fetch(ctx, uri)
	if err != nil {
		return "", err
	}
	ct := strings.ToLower(contentType)
	if ct != "" && !strings.HasPrefix(ct, "text/") && !strings.Contains(ct, "css") {
		return "", fmt.Errorf("unexpected content type for CSS: %s", contentType)
	}
	return string(body), nil
}

// DecodeDataURI decodes "data:[<mediatype>][;base64],<data>".
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: not a data uri", ErrUnsupported)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data uri: missing comma")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if mediaType == "" {
		mediaType = "text/plain"
	}
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decode data uri: %w", err)
		}
		return data, mediaType, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data uri: %w", err)
	}
	return []byte(text), mediaType, nil
}
