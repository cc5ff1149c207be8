package post

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Store keeps posts as files in a directory. Drafts go to a sibling
// _drafts directory.
type Store struct {
	Dir string
}

func (s Store) DraftsDir() string {
	return filepath.Join(filepath.Dir(filepath.Clean(s.Dir)), "_drafts")
}

// Write saves p and returns its path. Drafts, posts whose Published is
// false, are written to DraftsDir.
func (s Store) Write(p *Post) (string, error) {
	dir := s.Dir
	if p.Front.Published != nil && !*p.Front.Published {
		dir = s.DraftsDir()
	}
	data, err := p.Marshal()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, p.Name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write post: %w", err)
	}
	return path, nil
}

// Read loads a post file by name or path.
func (s Store) Read(name string) (*Post, error) {
	path := name
	if !filepath.IsAbs(name) && filepath.Dir(name) == "." {
		path = filepath.Join(s.Dir, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read post: %w", err)
	}
	fm, body, err := Split(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &Post{Name: filepath.Base(path), Front: fm, Body: body}, nil
}

type Entry struct {
	Name    string
	ModTime time.Time
}

// List returns the posts in the directory, newest first by modification
// time.
func (s Store) List() ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*.md"))
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		entries = append(entries, Entry{Name: filepath.Base(m), ModTime: info.ModTime()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ModTime.Equal(entries[j].ModTime) {
			return entries[i].ModTime.After(entries[j].ModTime)
		}
		return entries[i].Name > entries[j].Name
	})
	return entries, nil
}

// Recent returns at most n entries from List.
func (s Store) Recent(n int) ([]Entry, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Search returns the names of posts containing keyword, ignoring case.
func (s Store) Search(keyword string) ([]string, error) {
	fold := cases.Fold()
	needle := fold.String(keyword)
	dirents, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	var found []string
	for _, d := range dirents {
		if d.IsDir() || filepath.Ext(d.Name()) != ".md" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.Dir, d.Name()))
		if err != nil {
			return nil, fmt.Errorf("search posts: %w", err)
		}
		if strings.Contains(fold.String(string(data)), needle) {
			found = append(found, d.Name())
		}
	}
	return found, nil
}

type Stats struct {
	Total  int
	Latest string
	Oldest string
}

func (s Store) Stats() (Stats, error) {
	entries, err := s.List()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Total: len(entries)}
	if len(entries) > 0 {
		st.Latest = entries[0].Name
		st.Oldest = entries[len(entries)-1].Name
	}
	return st, nil
}
