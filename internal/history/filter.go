package history

import (
	"fmt"
	"path"
	"strings"
)

// Filter excludes files from an export by glob pattern.
// Patterns are separated by semicolons and matched both against the
// slash-separated path relative to the export root and against the bare file name.
type Filter struct {
	patterns []string
}

// NewFilter parses a semicolon-separated list of glob patterns
func NewFilter(patterns string) (*Filter, error) {
	f := &Filter{}
	for _, p := range strings.Split(patterns, ";") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, p)
	}
	return f, nil
}

// Empty returns true if the filter excludes nothing
func (f *Filter) Empty() bool {
	return f == nil || len(f.patterns) == 0
}

// Excludes reports whether the file at relPath should be left out of the export
func (f *Filter) Excludes(relPath string) bool {
	if f.Empty() {
		return false
	}
	relPath = strings.TrimPrefix(relPath, "/")
	base := path.Base(relPath)
	for _, p := range f.patterns {
		if ok, _ := path.Match(p, relPath); ok {
			return true
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}
