package resource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeDataURI(t *testing.T) {
	tests := []struct {
		uri, body, mediaType string
	}{
		{"data:text/css,p%20%7B%7D", "p {}", "text/css"},
		{"data:;base64,aGVsbG8=", "hello", "text/plain"},
		{"data:image/png;base64,aGk=", "hi", "image/png"},
	}
	for _, tt := range tests {
		body, mt, err := DecodeDataURI(tt.uri)
		if err != nil {
			t.Fatalf("%q: %v", tt.uri, err)
		}
		if string(body) != tt.body || mt != tt.mediaType {
			t.Errorf("%q: got %q (%s)", tt.uri, body, mt)
		}
	}
	for _, bad := range []string{"text/css,x", "data:image/png;base64", "data:;base64,!!!"} {
		if _, _, err := DecodeDataURI(bad); err == nil {
			t.Errorf("expected an error for %q", bad)
		}
	}
}

func TestFetchRelativeFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "site.css"), []byte(".a{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := ForDocument(filepath.Join(dir, "post.html"))
	body, ct, err := f.Fetch(context.Background(), "site.css")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != ".a{}" || ct != "text/css" {
		t.Errorf("got %q (%s)", body, ct)
	}
	css, err := f.FetchCSS(context.Background(), "site.css")
	if err != nil || css != ".a{}" {
		t.Errorf("FetchCSS = %q, %v", css, err)
	}
}

func TestFetchUnsupportedScheme(t *testing.T) {
	_, _, err := NewFetcher("").Fetch(context.Background(), "ftp://example.com/x.css")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestFetchCSSRejectsImages(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.png"), []byte("x"), 0o644)
	if _, err := NewFetcher(dir).FetchCSS(context.Background(), "a.png"); err == nil {
		t.Error("expected an error for a non-CSS content type")
	}
}

func TestResolve(t *testing.T) {
	if got := NewFetcher("https://example.com/blog/").Resolve("a.css"); got != "https://example.com/blog/a.css" {
		t.Errorf("Resolve = %q", got)
	}
	if got := NewFetcher("/srv/posts").Resolve("img/a.png"); got != "/srv/posts/img/a.png" {
		t.Errorf("Resolve = %q", got)
	}
}
